package learning

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/shulehq/shule/core/curriculum"
)

var (
	// errors
	ErrNotFound    = errors.New("learning record not found")
	ErrNotOwner    = errors.New("submission belongs to another student")
	ErrPodMismatch = errors.New("student is not in one of the teacher's pods")
	ErrEnrolled    = errors.New("student is already enrolled in this pod")
)

type (
	// LessonAccess is the curriculum-side visibility check; satisfied by
	// *curriculum.Service.
	LessonAccess interface {
		CheckLessonAccess(ctx context.Context, studentID, lessonID string) (curriculum.Lesson, error)
	}

	Repository interface {
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		QueryEnrollmentsByPod(ctx context.Context, podID string) ([]Enrollment, error)

		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		UpdateSubmission(ctx context.Context, s Submission) (Submission, error)
		QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error)

		CreateFeedback(ctx context.Context, f Feedback) (Feedback, error)
		QueryFeedbackBySubmission(ctx context.Context, submissionID string) ([]Feedback, error)

		UpsertMasteryRecord(ctx context.Context, m MasteryRecord) (MasteryRecord, error)
		QueryMasteryByStudent(ctx context.Context, studentID string) ([]MasteryRecord, error)

		// SharesPod reports whether the teacher holds an active membership in
		// a pod the student is actively enrolled in.
		SharesPod(ctx context.Context, teacherID, studentID string) (bool, error)
	}

	Service struct {
		repo    Repository
		lessons LessonAccess
	}
)

func NewService(repo Repository, lessons LessonAccess) *Service {
	return &Service{repo: repo, lessons: lessons}
}

func (svc *Service) Enroll(ctx context.Context, studentID, podID string) (Enrollment, error) {
	return svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID: studentID,
		PodID:     podID,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
}

// Submit creates a submission for the student; the lesson must be visible
// to the student's pod (curriculum assignment check).
func (svc *Service) Submit(ctx context.Context, studentID string, ns NewSubmission) (Submission, error) {
	if _, err := svc.lessons.CheckLessonAccess(ctx, studentID, ns.LessonID); err != nil {
		return Submission{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateSubmission(ctx, Submission{
		StudentID:   studentID,
		LessonID:    ns.LessonID,
		Status:      SubmissionSubmitted,
		Content:     ns.Content,
		SubmittedAt: now,
		UpdatedAt:   now,
	})
}

// UpdateSubmission lets a student revise their own submission.
func (svc *Service) UpdateSubmission(ctx context.Context, studentID, submissionID string, content map[string]interface{}) (Submission, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	if sub.StudentID != studentID {
		return Submission{}, ErrNotOwner
	}
	sub.Content = content
	sub.Status = SubmissionSubmitted
	sub.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSubmission(ctx, sub)
}

func (svc *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmissionByID(ctx, id)
}

func (svc *Service) QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, filter)
}

// GiveFeedback records teacher feedback on a submission; the teacher must
// share a pod with the submitting student. The submission moves to graded.
func (svc *Service) GiveFeedback(ctx context.Context, teacherID, submissionID string, nf NewFeedback) (Feedback, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return Feedback{}, err
	}

	ok, err := svc.repo.SharesPod(ctx, teacherID, sub.StudentID)
	if err != nil {
		return Feedback{}, errors.Wrap(err, "checking pod membership")
	}
	if !ok {
		return Feedback{}, ErrPodMismatch
	}

	fb, err := svc.repo.CreateFeedback(ctx, Feedback{
		SubmissionID: submissionID,
		TeacherID:    teacherID,
		Comment:      nf.Comment,
		RubricScores: nf.RubricScores,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return Feedback{}, err
	}

	sub.Status = SubmissionGraded
	sub.UpdatedAt = time.Now().UTC()
	if _, err := svc.repo.UpdateSubmission(ctx, sub); err != nil {
		return fb, errors.Wrap(err, "updating submission status")
	}
	return fb, nil
}

func (svc *Service) SubmissionFeedback(ctx context.Context, submissionID string) ([]Feedback, error) {
	return svc.repo.QueryFeedbackBySubmission(ctx, submissionID)
}

func (svc *Service) UpsertMastery(ctx context.Context, um UpsertMastery) (MasteryRecord, error) {
	return svc.repo.UpsertMasteryRecord(ctx, MasteryRecord{
		StudentID: um.StudentID,
		SkillKey:  um.SkillKey,
		Level:     um.Level,
		UpdatedAt: time.Now().UTC(),
	})
}

func (svc *Service) StudentMastery(ctx context.Context, studentID string) ([]MasteryRecord, error) {
	return svc.repo.QueryMasteryByStudent(ctx, studentID)
}
