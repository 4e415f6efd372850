package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shulehq/shule/core/curriculum"
)

type curriculumRepository struct {
	db       *curriculumTable
	learning *learningTable
}

var _ curriculum.Repository = (*curriculumRepository)(nil) // interface compliance check

func NewCurriculumRepository(db *DB) *curriculumRepository {
	return &curriculumRepository{db: db.curriculum, learning: db.learning}
}

func (repo *curriculumRepository) CreateCourse(_ context.Context, c curriculum.Course) (curriculum.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *curriculumRepository) GetCourseByID(_ context.Context, id string) (curriculum.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return curriculum.Course{}, curriculum.ErrNotFound
}

func (repo *curriculumRepository) QueryCourses(_ context.Context) ([]curriculum.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cs := make([]curriculum.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		cs = append(cs, *c)
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].SubjectCode < cs[j].SubjectCode })
	return cs, nil
}

func (repo *curriculumRepository) CreateVersion(_ context.Context, v curriculum.CourseVersion) (curriculum.CourseVersion, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var max int
	for _, existing := range repo.db.versions {
		if existing.CourseID == v.CourseID && existing.Version > max {
			max = existing.Version
		}
	}
	v.ID = uuid.New().String()
	v.Version = max + 1
	repo.db.versions[v.ID] = &v
	return v, nil
}

func (repo *curriculumRepository) GetVersionByID(_ context.Context, id string) (curriculum.CourseVersion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if v, ok := repo.db.versions[id]; ok {
		return *v, nil
	}
	return curriculum.CourseVersion{}, curriculum.ErrNotFound
}

func (repo *curriculumRepository) QueryVersionsByCourse(_ context.Context, courseID string) ([]curriculum.CourseVersion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	vs := make([]curriculum.CourseVersion, 0)
	for _, v := range repo.db.versions {
		if v.CourseID == courseID {
			vs = append(vs, *v)
		}
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].Version > vs[j].Version })
	return vs, nil
}

func (repo *curriculumRepository) MarkVersionApproved(_ context.Context, versionID string, rec curriculum.ApprovalRecord) (curriculum.CourseVersion, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	v, ok := repo.db.versions[versionID]
	if !ok {
		return curriculum.CourseVersion{}, curriculum.ErrNotFound
	}
	v.Status = curriculum.StatusApproved
	v.IsImmutable = true
	v.UpdatedAt = time.Now().UTC()

	rec.ID = uuid.New().String()
	rec.CourseVersionID = versionID
	repo.db.approvals[rec.ID] = &rec
	return *v, nil
}

func (repo *curriculumRepository) MarkVersionSuperseded(_ context.Context, versionID, supersededByID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	v, ok := repo.db.versions[versionID]
	if !ok {
		return curriculum.ErrNotFound
	}
	v.Status = curriculum.StatusDeprecated
	v.SupersededByID = supersededByID
	v.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *curriculumRepository) CreateUnit(_ context.Context, u curriculum.Unit) (curriculum.Unit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	u.ID = uuid.New().String()
	repo.db.units[u.ID] = &u
	return u, nil
}

func (repo *curriculumRepository) GetUnitByID(_ context.Context, id string) (curriculum.Unit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if u, ok := repo.db.units[id]; ok {
		return *u, nil
	}
	return curriculum.Unit{}, curriculum.ErrNotFound
}

func (repo *curriculumRepository) QueryUnitsByVersion(_ context.Context, versionID string) ([]curriculum.Unit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	us := make([]curriculum.Unit, 0)
	for _, u := range repo.db.units {
		if u.CourseVersionID == versionID {
			us = append(us, *u)
		}
	}
	sort.Slice(us, func(i, j int) bool { return us[i].UnitNumber < us[j].UnitNumber })
	return us, nil
}

func (repo *curriculumRepository) CreateLesson(_ context.Context, l curriculum.Lesson) (curriculum.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	l.ID = uuid.New().String()
	repo.db.lessons[l.ID] = &l
	return l, nil
}

func (repo *curriculumRepository) GetLessonByID(_ context.Context, id string) (curriculum.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if l, ok := repo.db.lessons[id]; ok {
		return *l, nil
	}
	return curriculum.Lesson{}, curriculum.ErrNotFound
}

func (repo *curriculumRepository) UpdateLesson(_ context.Context, l curriculum.Lesson) (curriculum.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lessons[l.ID]; !ok {
		return curriculum.Lesson{}, curriculum.ErrNotFound
	}
	repo.db.lessons[l.ID] = &l
	return l, nil
}

func (repo *curriculumRepository) QueryLessonsByUnit(_ context.Context, unitID string) ([]curriculum.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ls := make([]curriculum.Lesson, 0)
	for _, l := range repo.db.lessons {
		if l.UnitID == unitID {
			ls = append(ls, *l)
		}
	}
	sort.Slice(ls, func(i, j int) bool { return ls[i].LessonNumber < ls[j].LessonNumber })
	return ls, nil
}

func (repo *curriculumRepository) VersionIDForLesson(_ context.Context, lessonID string) (string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	l, ok := repo.db.lessons[lessonID]
	if !ok {
		return "", curriculum.ErrNotFound
	}
	u, ok := repo.db.units[l.UnitID]
	if !ok {
		return "", curriculum.ErrNotFound
	}
	return u.CourseVersionID, nil
}

func (repo *curriculumRepository) CreateAssignment(_ context.Context, a curriculum.PodCourseAssignment) (curriculum.PodCourseAssignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = uuid.New().String()
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *curriculumRepository) QueryAssignmentsByPod(_ context.Context, podID string) ([]curriculum.PodCourseAssignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	as := make([]curriculum.PodCourseAssignment, 0)
	for _, a := range repo.db.assignments {
		if a.PodID == podID {
			as = append(as, *a)
		}
	}
	sort.Slice(as, func(i, j int) bool { return as[i].CreatedAt.Before(as[j].CreatedAt) })
	return as, nil
}

func (repo *curriculumRepository) ActivePodID(_ context.Context, studentID string) (string, error) {
	repo.learning.RLock()
	defer repo.learning.RUnlock()

	for _, e := range repo.learning.enrollments {
		if e.StudentID == studentID && e.Active {
			return e.PodID, nil
		}
	}
	return "", curriculum.ErrNotEnrolled
}
