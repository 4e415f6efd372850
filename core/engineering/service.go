package engineering

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNotOwner       = errors.New("submission belongs to another student")
	ErrAlreadyGraded  = errors.New("submission already approved")
	ErrUnknownStatus  = errors.New("unknown submission status")
	ErrSelfMentorship = errors.New("mentor and mentee must differ")
)

type Repository interface {
	QueryProjects(ctx context.Context, phaseCode string) ([]Project, error)
	GetProject(ctx context.Context, id string) (Project, error)

	CreateSubmission(ctx context.Context, sub *ProjectSubmission) error
	GetSubmission(ctx context.Context, id string) (ProjectSubmission, error)
	QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]ProjectSubmission, error)
	UpdateSubmission(ctx context.Context, sub *ProjectSubmission) error

	CreateSession(ctx context.Context, sess *MentorshipSession) error
	QuerySessionsByMentor(ctx context.Context, mentorID string) ([]MentorshipSession, error)
	QuerySessionsByMentee(ctx context.Context, menteeID string) ([]MentorshipSession, error)
}

type ServiceInterface interface {
	ListProjects(ctx context.Context, phaseCode string) ([]Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	Submit(ctx context.Context, studentID string, ns NewSubmission) (ProjectSubmission, error)
	Submissions(ctx context.Context, filter SubmissionFilter) ([]ProjectSubmission, error)
	Review(ctx context.Context, mentorID, submissionID string, status SubmissionStatus) (ProjectSubmission, error)
	LogSession(ctx context.Context, mentorID string, nm NewMentorshipSession) (MentorshipSession, error)
	SessionsByMentor(ctx context.Context, mentorID string) ([]MentorshipSession, error)
	SessionsByMentee(ctx context.Context, menteeID string) ([]MentorshipSession, error)
}

type Service struct {
	validate *validator.Validate
	repo     Repository
}

var _ ServiceInterface = (*Service)(nil)

func NewService(v *validator.Validate, repo Repository) *Service {
	return &Service{validate: v, repo: repo}
}

func (svc *Service) ListProjects(ctx context.Context, phaseCode string) ([]Project, error) {
	return svc.repo.QueryProjects(ctx, phaseCode)
}

func (svc *Service) GetProject(ctx context.Context, id string) (Project, error) {
	return svc.repo.GetProject(ctx, id)
}

func (svc *Service) Submit(ctx context.Context, studentID string, ns NewSubmission) (ProjectSubmission, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return ProjectSubmission{}, err
	}
	if _, err := svc.repo.GetProject(ctx, ns.ProjectID); err != nil {
		return ProjectSubmission{}, err
	}

	now := time.Now().UTC()
	sub := ProjectSubmission{
		StudentID:     studentID,
		ProjectID:     ns.ProjectID,
		DeviceID:      ns.DeviceID,
		Status:        StatusSubmitted,
		Evidence:      ns.Evidence,
		Documentation: ns.Documentation,
		MentorID:      ns.MentorID,
		SubmittedAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := svc.repo.CreateSubmission(ctx, &sub); err != nil {
		return ProjectSubmission{}, errors.Wrap(err, "creating submission")
	}
	return sub, nil
}

func (svc *Service) Submissions(ctx context.Context, filter SubmissionFilter) ([]ProjectSubmission, error) {
	return svc.repo.QuerySubmissions(ctx, filter)
}

// Review moves a submission through the review pipeline. Approved
// submissions are final.
func (svc *Service) Review(ctx context.Context, mentorID, submissionID string, status SubmissionStatus) (ProjectSubmission, error) {
	switch status {
	case StatusReviewed, StatusApproved, StatusNeedsRevision:
	default:
		return ProjectSubmission{}, ErrUnknownStatus
	}

	sub, err := svc.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return ProjectSubmission{}, err
	}
	if sub.Status == StatusApproved {
		return ProjectSubmission{}, ErrAlreadyGraded
	}

	sub.Status = status
	sub.MentorID = mentorID
	sub.UpdatedAt = time.Now().UTC()
	if err := svc.repo.UpdateSubmission(ctx, &sub); err != nil {
		return ProjectSubmission{}, errors.Wrap(err, "updating submission")
	}
	return sub, nil
}

func (svc *Service) LogSession(ctx context.Context, mentorID string, nm NewMentorshipSession) (MentorshipSession, error) {
	if err := nm.Validate(svc.validate); err != nil {
		return MentorshipSession{}, err
	}
	if mentorID == nm.MenteeID {
		return MentorshipSession{}, ErrSelfMentorship
	}

	sess := MentorshipSession{
		MentorID:        mentorID,
		MenteeID:        nm.MenteeID,
		ProjectID:       nm.ProjectID,
		PodID:           nm.PodID,
		SessionDate:     nm.SessionDate,
		DurationMinutes: nm.DurationMinutes,
		TopicsCovered:   nm.TopicsCovered,
		MentorNotes:     nm.MentorNotes,
		CreatedAt:       time.Now().UTC(),
	}
	if err := svc.repo.CreateSession(ctx, &sess); err != nil {
		return MentorshipSession{}, errors.Wrap(err, "creating mentorship session")
	}
	return sess, nil
}

func (svc *Service) SessionsByMentor(ctx context.Context, mentorID string) ([]MentorshipSession, error) {
	return svc.repo.QuerySessionsByMentor(ctx, mentorID)
}

func (svc *Service) SessionsByMentee(ctx context.Context, menteeID string) ([]MentorshipSession, error) {
	return svc.repo.QuerySessionsByMentee(ctx, menteeID)
}
