package curriculum_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulehq/shule/core/curriculum"
	"github.com/shulehq/shule/core/learning"
	dummydb "github.com/shulehq/shule/storage/database/dummy"
)

type fixture struct {
	svc         *curriculum.Service
	enrollments learning.Repository
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	return fixture{
		svc:         curriculum.NewService(dummydb.NewCurriculumRepository(db)),
		enrollments: dummydb.NewLearningRepository(db),
	}
}

func (f fixture) enroll(t *testing.T, studentID, podID string) {
	t.Helper()
	_, err := f.enrollments.CreateEnrollment(context.Background(), learning.Enrollment{
		StudentID: studentID,
		PodID:     podID,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

// buildCourse creates a course with one approved version holding units 1..2
// of two lessons each, and returns the version.
func buildCourse(t *testing.T, svc *curriculum.Service) curriculum.CourseVersion {
	t.Helper()
	ctx := context.Background()

	crs, err := svc.CreateCourse(ctx, curriculum.NewCourse{
		SubjectCode: "MATH", GradeBand: "K1", Title: "Numeracy",
	})
	require.NoError(t, err)

	ver, err := svc.CreateVersion(ctx, crs.ID, "author-1", curriculum.NewVersion{Notes: "first draft"})
	require.NoError(t, err)

	// add out of order to exercise ordering on read
	for _, n := range []int{2, 1} {
		unit, err := svc.AddUnit(ctx, ver.ID, curriculum.NewUnit{UnitNumber: n, Title: "Unit"})
		require.NoError(t, err)
		for _, ln := range []int{2, 1} {
			_, err = svc.AddLesson(ctx, unit.ID, curriculum.NewLesson{
				LessonNumber:  ln,
				Title:         "Lesson",
				CanonicalText: "count things",
			})
			require.NoError(t, err)
		}
	}

	ver, err = svc.ApproveVersion(ctx, ver.ID, "approver-1", "looks good")
	require.NoError(t, err)
	return ver
}

func TestService_VisibleLessons(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ver := buildCourse(t, f.svc)

	_, err := f.svc.AssignCourseToPod(ctx, "pod-1", curriculum.NewAssignment{CourseVersionID: ver.ID})
	require.NoError(t, err)
	f.enroll(t, "student-1", "pod-1")

	lessons, err := f.svc.VisibleLessons(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, lessons, 4)

	// unit order then lesson order
	nums := make([]int, 0, len(lessons))
	for _, l := range lessons {
		nums = append(nums, l.LessonNumber)
	}
	assert.Equal(t, []int{1, 2, 1, 2}, nums)
}

func TestService_VisibleLessons_notEnrolled(t *testing.T) {
	f := setup(t)

	_, err := f.svc.VisibleLessons(context.Background(), "stranger")
	assert.Equal(t, curriculum.ErrNotEnrolled, errors.Cause(err))
}

func TestService_VisibleLessons_emptyWhenNoAssignments(t *testing.T) {
	f := setup(t)
	f.enroll(t, "student-1", "pod-1")

	lessons, err := f.svc.VisibleLessons(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Empty(t, lessons)
}

func TestService_VisibleLessons_windowGating(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ver := buildCourse(t, f.svc)

	// assignment window ended yesterday
	_, err := f.svc.AssignCourseToPod(ctx, "pod-1", curriculum.NewAssignment{
		CourseVersionID: ver.ID,
		EndDate:         time.Now().UTC().Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	f.enroll(t, "student-1", "pod-1")

	lessons, err := f.svc.VisibleLessons(ctx, "student-1")
	require.NoError(t, err)
	assert.Empty(t, lessons)
}

func TestService_CheckLessonAccess(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	assigned := buildCourse(t, f.svc)
	other := buildCourse(t, f.svc)

	_, err := f.svc.AssignCourseToPod(ctx, "pod-1", curriculum.NewAssignment{CourseVersionID: assigned.ID})
	require.NoError(t, err)
	f.enroll(t, "student-1", "pod-1")

	lessonIn := firstLesson(t, f.svc, assigned.ID)
	lessonOut := firstLesson(t, f.svc, other.ID)

	got, err := f.svc.CheckLessonAccess(ctx, "student-1", lessonIn.ID)
	require.NoError(t, err)
	assert.Equal(t, lessonIn.ID, got.ID)

	// a valid id outside the pod's assignments is denied, not 404
	_, err = f.svc.CheckLessonAccess(ctx, "student-1", lessonOut.ID)
	assert.Equal(t, curriculum.ErrLessonNotAssigned, errors.Cause(err))
}

func TestService_versionImmutability(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ver := buildCourse(t, f.svc) // approved

	_, err := f.svc.AddUnit(ctx, ver.ID, curriculum.NewUnit{UnitNumber: 3, Title: "Extra"})
	assert.Equal(t, curriculum.ErrVersionImmutable, errors.Cause(err))

	units, err := f.svc.Units(ctx, ver.ID)
	require.NoError(t, err)
	_, err = f.svc.AddLesson(ctx, units[0].ID, curriculum.NewLesson{LessonNumber: 9, Title: "Extra", CanonicalText: "x"})
	assert.Equal(t, curriculum.ErrVersionImmutable, errors.Cause(err))

	lsn := firstLesson(t, f.svc, ver.ID)
	_, err = f.svc.UpdateLesson(ctx, lsn.ID, curriculum.NewLesson{LessonNumber: 1, Title: "Changed", CanonicalText: "y"})
	assert.Equal(t, curriculum.ErrVersionImmutable, errors.Cause(err))

	_, err = f.svc.ApproveVersion(ctx, ver.ID, "approver-2", "again")
	assert.Equal(t, curriculum.ErrVersionApproved, errors.Cause(err))
}

func TestService_approvalSupersedesPrevious(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	crs, err := f.svc.CreateCourse(ctx, curriculum.NewCourse{SubjectCode: "SCI", GradeBand: "K2", Title: "Science"})
	require.NoError(t, err)

	v1, err := f.svc.CreateVersion(ctx, crs.ID, "author-1", curriculum.NewVersion{})
	require.NoError(t, err)
	v1, err = f.svc.ApproveVersion(ctx, v1.ID, "approver-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.True(t, v1.IsImmutable)

	v2, err := f.svc.CreateVersion(ctx, crs.ID, "author-1", curriculum.NewVersion{})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, curriculum.StatusDraft, v2.Status)

	_, err = f.svc.ApproveVersion(ctx, v2.ID, "approver-1", "")
	require.NoError(t, err)

	v1, err = f.svc.GetVersion(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, curriculum.StatusDeprecated, v1.Status)
	assert.Equal(t, v2.ID, v1.SupersededByID)
}

func TestService_assignRequiresApprovedVersion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	crs, err := f.svc.CreateCourse(ctx, curriculum.NewCourse{SubjectCode: "ENG", GradeBand: "K1", Title: "Reading"})
	require.NoError(t, err)
	draft, err := f.svc.CreateVersion(ctx, crs.ID, "author-1", curriculum.NewVersion{})
	require.NoError(t, err)

	_, err = f.svc.AssignCourseToPod(ctx, "pod-1", curriculum.NewAssignment{CourseVersionID: draft.ID})
	assert.Equal(t, curriculum.ErrVersionNotApproved, errors.Cause(err))
}

func firstLesson(t *testing.T, svc *curriculum.Service, versionID string) curriculum.Lesson {
	t.Helper()
	ctx := context.Background()
	units, err := svc.Units(ctx, versionID)
	require.NoError(t, err)
	require.NotEmpty(t, units)
	lessons, err := svc.Lessons(ctx, units[0].ID)
	require.NoError(t, err)
	require.NotEmpty(t, lessons)
	return lessons[0]
}
