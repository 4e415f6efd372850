package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/shulehq/shule/core/learning"
)

type learningRepository struct {
	db *learningTable
}

var _ learning.Repository = (*learningRepository)(nil) // interface compliance check

func NewLearningRepository(db *DB) *learningRepository {
	return &learningRepository{db: db.learning}
}

// SetTeacherPods wires teacher -> pod relations for SharesPod checks.
func (repo *learningRepository) SetTeacherPods(teacherID string, podIDs ...string) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.teacherPods[teacherID] = podIDs
}

func (repo *learningRepository) CreateEnrollment(_ context.Context, e learning.Enrollment) (learning.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.enrollments {
		if existing.StudentID == e.StudentID && existing.Active {
			return learning.Enrollment{}, learning.ErrEnrolled
		}
	}
	e.ID = uuid.New().String()
	repo.db.enrollments[e.ID] = &e
	return e, nil
}

func (repo *learningRepository) QueryEnrollmentsByPod(_ context.Context, podID string) ([]learning.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	es := make([]learning.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if e.PodID == podID && e.Active {
			es = append(es, *e)
		}
	}
	sort.Slice(es, func(i, j int) bool { return es[i].CreatedAt.Before(es[j].CreatedAt) })
	return es, nil
}

func (repo *learningRepository) CreateSubmission(_ context.Context, s learning.Submission) (learning.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = uuid.New().String()
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *learningRepository) GetSubmissionByID(_ context.Context, id string) (learning.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.submissions[id]; ok {
		return *s, nil
	}
	return learning.Submission{}, learning.ErrNotFound
}

func (repo *learningRepository) UpdateSubmission(_ context.Context, s learning.Submission) (learning.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.submissions[s.ID]; !ok {
		return learning.Submission{}, learning.ErrNotFound
	}
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *learningRepository) QuerySubmissions(_ context.Context, filter learning.SubmissionFilter) ([]learning.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]learning.Submission, 0)
	for _, s := range repo.db.submissions {
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		if filter.LessonID != "" && s.LessonID != filter.LessonID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		subs = append(subs, *s)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *learningRepository) CreateFeedback(_ context.Context, f learning.Feedback) (learning.Feedback, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	f.ID = uuid.New().String()
	repo.db.feedback[f.ID] = &f
	return f, nil
}

func (repo *learningRepository) QueryFeedbackBySubmission(_ context.Context, submissionID string) ([]learning.Feedback, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	fs := make([]learning.Feedback, 0)
	for _, f := range repo.db.feedback {
		if f.SubmissionID == submissionID {
			fs = append(fs, *f)
		}
	}
	sort.Slice(fs, func(i, j int) bool { return fs[i].CreatedAt.Before(fs[j].CreatedAt) })
	return fs, nil
}

func (repo *learningRepository) UpsertMasteryRecord(_ context.Context, m learning.MasteryRecord) (learning.MasteryRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.mastery {
		if existing.StudentID == m.StudentID && existing.SkillKey == m.SkillKey {
			existing.Level = m.Level
			existing.UpdatedAt = m.UpdatedAt
			return *existing, nil
		}
	}
	m.ID = uuid.New().String()
	repo.db.mastery[m.ID] = &m
	return m, nil
}

func (repo *learningRepository) QueryMasteryByStudent(_ context.Context, studentID string) ([]learning.MasteryRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ms := make([]learning.MasteryRecord, 0)
	for _, m := range repo.db.mastery {
		if m.StudentID == studentID {
			ms = append(ms, *m)
		}
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].SkillKey < ms[j].SkillKey })
	return ms, nil
}

func (repo *learningRepository) SharesPod(_ context.Context, teacherID, studentID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, podID := range repo.db.teacherPods[teacherID] {
		for _, e := range repo.db.enrollments {
			if e.StudentID == studentID && e.PodID == podID && e.Active {
				return true, nil
			}
		}
	}
	return false, nil
}
