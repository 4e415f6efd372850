package learning_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulehq/shule/core/curriculum"
	"github.com/shulehq/shule/core/learning"
	dummydb "github.com/shulehq/shule/storage/database/dummy"
)

// allowAllLessons bypasses the curriculum check for tests that only care
// about submission semantics.
type allowAllLessons struct{}

func (allowAllLessons) CheckLessonAccess(context.Context, string, string) (curriculum.Lesson, error) {
	return curriculum.Lesson{}, nil
}

type denyAllLessons struct{}

func (denyAllLessons) CheckLessonAccess(context.Context, string, string) (curriculum.Lesson, error) {
	return curriculum.Lesson{}, curriculum.ErrLessonNotAssigned
}

func setup(t *testing.T, lessons learning.LessonAccess) (*learning.Service, *dummydb.DB) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	return learning.NewService(dummydb.NewLearningRepository(db), lessons), db
}

func TestService_Enroll_duplicateActive(t *testing.T) {
	svc, _ := setup(t, allowAllLessons{})
	ctx := context.Background()

	_, err := svc.Enroll(ctx, "student-1", "pod-1")
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, "student-1", "pod-1")
	assert.Equal(t, learning.ErrEnrolled, errors.Cause(err))

	// one active enrollment per student, regardless of pod
	_, err = svc.Enroll(ctx, "student-1", "pod-2")
	assert.Equal(t, learning.ErrEnrolled, errors.Cause(err))
}

func TestService_Submit_lessonMustBeVisible(t *testing.T) {
	svc, _ := setup(t, denyAllLessons{})

	_, err := svc.Submit(context.Background(), "student-1", learning.NewSubmission{
		LessonID: "lesson-1",
		Content:  map[string]interface{}{"answer": 42},
	})
	assert.Equal(t, curriculum.ErrLessonNotAssigned, errors.Cause(err))
}

func TestService_UpdateSubmission_ownerOnly(t *testing.T) {
	svc, _ := setup(t, allowAllLessons{})
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "student-1", learning.NewSubmission{
		LessonID: "lesson-1",
		Content:  map[string]interface{}{"answer": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, learning.SubmissionSubmitted, sub.Status)

	_, err = svc.UpdateSubmission(ctx, "student-2", sub.ID, map[string]interface{}{"answer": 2})
	assert.Equal(t, learning.ErrNotOwner, errors.Cause(err))

	updated, err := svc.UpdateSubmission(ctx, "student-1", sub.ID, map[string]interface{}{"answer": 2})
	require.NoError(t, err)
	assert.Equal(t, float64(2), toFloat(updated.Content["answer"]))
}

func TestService_GiveFeedback(t *testing.T) {
	svc, db := setup(t, allowAllLessons{})
	ctx := context.Background()

	repo := dummydb.NewLearningRepository(db)
	repo.SetTeacherPods("teacher-1", "pod-1")

	_, err := svc.Enroll(ctx, "student-1", "pod-1")
	require.NoError(t, err)
	sub, err := svc.Submit(ctx, "student-1", learning.NewSubmission{
		LessonID: "lesson-1",
		Content:  map[string]interface{}{"answer": 1},
	})
	require.NoError(t, err)

	// a teacher outside the student's pod is refused
	_, err = svc.GiveFeedback(ctx, "teacher-2", sub.ID, learning.NewFeedback{Comment: "nice"})
	assert.Equal(t, learning.ErrPodMismatch, errors.Cause(err))

	fb, err := svc.GiveFeedback(ctx, "teacher-1", sub.ID, learning.NewFeedback{
		Comment:      "nice work",
		RubricScores: map[string]float64{"accuracy": 0.9},
	})
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", fb.TeacherID)

	sub, err = svc.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, learning.SubmissionGraded, sub.Status)

	fbs, err := svc.SubmissionFeedback(ctx, sub.ID)
	require.NoError(t, err)
	assert.Len(t, fbs, 1)
}

func TestService_UpsertMastery(t *testing.T) {
	svc, _ := setup(t, allowAllLessons{})
	ctx := context.Background()

	rec, err := svc.UpsertMastery(ctx, learning.UpsertMastery{
		StudentID: "student-1",
		SkillKey:  "K1.MATH.NUMBERS.1-10",
		Level:     learning.MasteryEmerging,
	})
	require.NoError(t, err)

	// same skill key updates in place
	again, err := svc.UpsertMastery(ctx, learning.UpsertMastery{
		StudentID: "student-1",
		SkillKey:  "K1.MATH.NUMBERS.1-10",
		Level:     learning.MasteryProficient,
	})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)

	recs, err := svc.StudentMastery(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, learning.MasteryProficient, recs[0].Level)
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return -1
	}
}
