package curriculum

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound           = errors.New("curriculum record not found")
	ErrNotEnrolled        = errors.New("student is not enrolled in a pod")
	ErrLessonNotAssigned  = errors.New("lesson is not assigned to the student's pod")
	ErrVersionImmutable   = errors.New("course version is approved and immutable")
	ErrVersionApproved    = errors.New("course version is already approved")
	ErrVersionNotApproved = errors.New("course version is not approved")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		QueryCourses(ctx context.Context) ([]Course, error)

		// CreateVersion assigns the next version number for the course.
		CreateVersion(ctx context.Context, v CourseVersion) (CourseVersion, error)
		GetVersionByID(ctx context.Context, id string) (CourseVersion, error)
		QueryVersionsByCourse(ctx context.Context, courseID string) ([]CourseVersion, error)
		// MarkVersionApproved flips status/immutability and records the approval.
		MarkVersionApproved(ctx context.Context, versionID string, rec ApprovalRecord) (CourseVersion, error)
		MarkVersionSuperseded(ctx context.Context, versionID, supersededByID string) error

		CreateUnit(ctx context.Context, u Unit) (Unit, error)
		GetUnitByID(ctx context.Context, id string) (Unit, error)
		// QueryUnitsByVersion returns units ordered by unit number.
		QueryUnitsByVersion(ctx context.Context, versionID string) ([]Unit, error)

		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, id string) (Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson) (Lesson, error)
		// QueryLessonsByUnit returns lessons ordered by lesson number.
		QueryLessonsByUnit(ctx context.Context, unitID string) ([]Lesson, error)
		// VersionIDForLesson resolves lesson -> unit -> course version.
		VersionIDForLesson(ctx context.Context, lessonID string) (string, error)

		CreateAssignment(ctx context.Context, a PodCourseAssignment) (PodCourseAssignment, error)
		QueryAssignmentsByPod(ctx context.Context, podID string) ([]PodCourseAssignment, error)

		// ActivePodID resolves the student's active pod enrollment,
		// ErrNotEnrolled when none exists.
		ActivePodID(ctx context.Context, studentID string) (string, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		SubjectCode: nc.SubjectCode,
		GradeBand:   nc.GradeBand,
		Title:       nc.Title,
		Description: nc.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) QueryCourses(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

// CreateVersion opens a new draft version for the course. The previous
// approved version keeps serving pods until the new one is assigned.
func (svc *Service) CreateVersion(ctx context.Context, courseID, authorID string, nv NewVersion) (CourseVersion, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return CourseVersion{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateVersion(ctx, CourseVersion{
		CourseID:     courseID,
		Status:       StatusDraft,
		AuthoredByID: authorID,
		Notes:        nv.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) GetVersion(ctx context.Context, id string) (CourseVersion, error) {
	return svc.repo.GetVersionByID(ctx, id)
}

func (svc *Service) QueryVersions(ctx context.Context, courseID string) ([]CourseVersion, error) {
	return svc.repo.QueryVersionsByCourse(ctx, courseID)
}

// checkMutable refuses structural edits to approved/immutable versions.
func (svc *Service) checkMutable(ctx context.Context, versionID string) error {
	ver, err := svc.repo.GetVersionByID(ctx, versionID)
	if err != nil {
		return err
	}
	if ver.IsImmutable || ver.Status == StatusApproved {
		return ErrVersionImmutable
	}
	return nil
}

func (svc *Service) AddUnit(ctx context.Context, versionID string, nu NewUnit) (Unit, error) {
	if err := svc.checkMutable(ctx, versionID); err != nil {
		return Unit{}, err
	}
	return svc.repo.CreateUnit(ctx, Unit{
		CourseVersionID: versionID,
		UnitNumber:      nu.UnitNumber,
		Title:           nu.Title,
		Overview:        nu.Overview,
		CreatedAt:       time.Now().UTC(),
	})
}

func (svc *Service) Units(ctx context.Context, versionID string) ([]Unit, error) {
	return svc.repo.QueryUnitsByVersion(ctx, versionID)
}

func (svc *Service) Lessons(ctx context.Context, unitID string) ([]Lesson, error) {
	return svc.repo.QueryLessonsByUnit(ctx, unitID)
}

func (svc *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

func (svc *Service) AddLesson(ctx context.Context, unitID string, nl NewLesson) (Lesson, error) {
	unit, err := svc.repo.GetUnitByID(ctx, unitID)
	if err != nil {
		return Lesson{}, err
	}
	if err := svc.checkMutable(ctx, unit.CourseVersionID); err != nil {
		return Lesson{}, err
	}
	return svc.repo.CreateLesson(ctx, Lesson{
		UnitID:           unitID,
		LessonNumber:     nl.LessonNumber,
		Title:            nl.Title,
		CanonicalText:    nl.CanonicalText,
		Objectives:       nl.Objectives,
		Tags:             nl.Tags,
		EstimatedMinutes: nl.EstimatedMinutes,
		CreatedAt:        time.Now().UTC(),
	})
}

func (svc *Service) UpdateLesson(ctx context.Context, lessonID string, nl NewLesson) (Lesson, error) {
	lsn, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Lesson{}, err
	}
	versionID, err := svc.repo.VersionIDForLesson(ctx, lessonID)
	if err != nil {
		return Lesson{}, err
	}
	if err := svc.checkMutable(ctx, versionID); err != nil {
		return Lesson{}, err
	}
	lsn.LessonNumber = nl.LessonNumber
	lsn.Title = nl.Title
	lsn.CanonicalText = nl.CanonicalText
	lsn.Objectives = nl.Objectives
	lsn.Tags = nl.Tags
	lsn.EstimatedMinutes = nl.EstimatedMinutes
	return svc.repo.UpdateLesson(ctx, lsn)
}

// ApproveVersion marks the version approved and immutable, and deprecates
// the previously approved version of the same course (superseded link).
func (svc *Service) ApproveVersion(ctx context.Context, versionID, approverID, note string) (CourseVersion, error) {
	ver, err := svc.repo.GetVersionByID(ctx, versionID)
	if err != nil {
		return CourseVersion{}, err
	}
	if ver.Status == StatusApproved {
		return CourseVersion{}, ErrVersionApproved
	}

	approved, err := svc.repo.MarkVersionApproved(ctx, versionID, ApprovalRecord{
		CourseVersionID: versionID,
		ApprovedByID:    approverID,
		ApprovalNote:    note,
		ApprovedAt:      time.Now().UTC(),
	})
	if err != nil {
		return CourseVersion{}, err
	}

	// supersede older approved versions of the course
	versions, err := svc.repo.QueryVersionsByCourse(ctx, ver.CourseID)
	if err != nil {
		return approved, errors.Wrap(err, "querying course versions")
	}
	for _, v := range versions {
		if v.ID != versionID && v.Status == StatusApproved {
			if err := svc.repo.MarkVersionSuperseded(ctx, v.ID, versionID); err != nil {
				return approved, errors.Wrap(err, "superseding version")
			}
		}
	}
	return approved, nil
}

func (svc *Service) AssignCourseToPod(ctx context.Context, podID string, na NewAssignment) (PodCourseAssignment, error) {
	ver, err := svc.repo.GetVersionByID(ctx, na.CourseVersionID)
	if err != nil {
		return PodCourseAssignment{}, err
	}
	if ver.Status != StatusApproved {
		return PodCourseAssignment{}, errors.Wrap(ErrVersionNotApproved, "only approved versions can be assigned")
	}
	return svc.repo.CreateAssignment(ctx, PodCourseAssignment{
		PodID:           podID,
		CourseVersionID: na.CourseVersionID,
		StartDate:       na.StartDate,
		EndDate:         na.EndDate,
		CreatedAt:       time.Now().UTC(),
	})
}

func (svc *Service) PodAssignments(ctx context.Context, podID string) ([]PodCourseAssignment, error) {
	return svc.repo.QueryAssignmentsByPod(ctx, podID)
}

// VisibleLessons resolves the lessons a student may see: active pod
// enrollment -> in-window pod-course-assignments -> units ordered by unit
// number -> lessons ordered by lesson number.
// Returns ErrNotEnrolled when the student has no active pod membership;
// an enrolled student with no assigned courses gets an empty list.
func (svc *Service) VisibleLessons(ctx context.Context, studentID string) ([]Lesson, error) {
	podID, err := svc.repo.ActivePodID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	assignments, err := svc.repo.QueryAssignmentsByPod(ctx, podID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	lessons := make([]Lesson, 0)
	for _, a := range assignments {
		if !a.InWindow(now) {
			continue
		}
		units, err := svc.repo.QueryUnitsByVersion(ctx, a.CourseVersionID)
		if err != nil {
			return nil, err
		}
		for _, u := range units {
			unitLessons, err := svc.repo.QueryLessonsByUnit(ctx, u.ID)
			if err != nil {
				return nil, err
			}
			lessons = append(lessons, unitLessons...)
		}
	}
	return lessons, nil
}

// CheckLessonAccess verifies that the lesson belongs to a course version
// assigned to the student's pod. A valid lesson id outside the pod's
// assignments is denied (ErrLessonNotAssigned), which blocks URL guessing.
func (svc *Service) CheckLessonAccess(ctx context.Context, studentID, lessonID string) (Lesson, error) {
	lsn, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Lesson{}, err
	}
	versionID, err := svc.repo.VersionIDForLesson(ctx, lessonID)
	if err != nil {
		return Lesson{}, err
	}

	podID, err := svc.repo.ActivePodID(ctx, studentID)
	if err != nil {
		return Lesson{}, err
	}
	assignments, err := svc.repo.QueryAssignmentsByPod(ctx, podID)
	if err != nil {
		return Lesson{}, err
	}

	now := time.Now().UTC()
	for _, a := range assignments {
		if a.CourseVersionID == versionID && a.InWindow(now) {
			return lsn, nil
		}
	}
	return Lesson{}, ErrLessonNotAssigned
}
