package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/shulehq/shule/core/engineering"
)

type engineeringRepository struct {
	db *engineeringTable
}

var _ engineering.Repository = (*engineeringRepository)(nil) // interface compliance check

func NewEngineeringRepository(db *DB) *engineeringRepository {
	return &engineeringRepository{db: db.engineering}
}

// AddProject seeds a project; the catalog has no API create path.
func (repo *engineeringRepository) AddProject(p engineering.Project) engineering.Project {
	repo.db.Lock()
	defer repo.db.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	repo.db.projects[p.ID] = &p
	return p
}

func (repo *engineeringRepository) QueryProjects(_ context.Context, phaseCode string) ([]engineering.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ps := make([]engineering.Project, 0)
	for _, p := range repo.db.projects {
		if phaseCode != "" && p.PhaseCode != phaseCode {
			continue
		}
		ps = append(ps, *p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].ProjectCode < ps[j].ProjectCode })
	return ps, nil
}

func (repo *engineeringRepository) GetProject(_ context.Context, id string) (engineering.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.projects[id]; ok {
		return *p, nil
	}
	return engineering.Project{}, engineering.ErrNotFound
}

func (repo *engineeringRepository) CreateSubmission(_ context.Context, sub *engineering.ProjectSubmission) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub.ID = uuid.New().String()
	cp := *sub
	repo.db.submissions[sub.ID] = &cp
	return nil
}

func (repo *engineeringRepository) GetSubmission(_ context.Context, id string) (engineering.ProjectSubmission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.submissions[id]; ok {
		return *s, nil
	}
	return engineering.ProjectSubmission{}, engineering.ErrNotFound
}

func (repo *engineeringRepository) QuerySubmissions(_ context.Context, filter engineering.SubmissionFilter) ([]engineering.ProjectSubmission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]engineering.ProjectSubmission, 0)
	for _, s := range repo.db.submissions {
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		if filter.ProjectID != "" && s.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		subs = append(subs, *s)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.After(subs[j].CreatedAt) })
	return subs, nil
}

func (repo *engineeringRepository) UpdateSubmission(_ context.Context, sub *engineering.ProjectSubmission) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.submissions[sub.ID]; !ok {
		return engineering.ErrNotFound
	}
	cp := *sub
	repo.db.submissions[sub.ID] = &cp
	return nil
}

func (repo *engineeringRepository) CreateSession(_ context.Context, sess *engineering.MentorshipSession) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	sess.ID = uuid.New().String()
	cp := *sess
	repo.db.sessions[sess.ID] = &cp
	return nil
}

func (repo *engineeringRepository) QuerySessionsByMentor(_ context.Context, mentorID string) ([]engineering.MentorshipSession, error) {
	return repo.querySessions(func(s engineering.MentorshipSession) bool { return s.MentorID == mentorID })
}

func (repo *engineeringRepository) QuerySessionsByMentee(_ context.Context, menteeID string) ([]engineering.MentorshipSession, error) {
	return repo.querySessions(func(s engineering.MentorshipSession) bool { return s.MenteeID == menteeID })
}

func (repo *engineeringRepository) querySessions(match func(engineering.MentorshipSession) bool) ([]engineering.MentorshipSession, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sessions := make([]engineering.MentorshipSession, 0)
	for _, s := range repo.db.sessions {
		if match(*s) {
			sessions = append(sessions, *s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].SessionDate.After(sessions[j].SessionDate) })
	return sessions, nil
}
