package engineering_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulehq/shule/core/engineering"
	dummydb "github.com/shulehq/shule/storage/database/dummy"
)

func setup(t *testing.T) (*engineering.Service, engineering.Project) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	repo := dummydb.NewEngineeringRepository(db)
	project := repo.AddProject(engineering.Project{
		PhaseCode:      "P1",
		ProjectCode:    "P1-SOLAR",
		ProjectName:    "Solar charger",
		EstimatedHours: 12,
	})
	return engineering.NewService(validator.New(), repo), project
}

func submit(t *testing.T, svc *engineering.Service, studentID, projectID string) engineering.ProjectSubmission {
	t.Helper()
	sub, err := svc.Submit(context.Background(), studentID, engineering.NewSubmission{
		ProjectID: projectID,
		Evidence:  map[string]interface{}{"photo": "solar.jpg"},
	})
	require.NoError(t, err)
	return sub
}

func TestService_Submit(t *testing.T) {
	svc, project := setup(t)

	sub := submit(t, svc, "student-1", project.ID)
	assert.Equal(t, engineering.StatusSubmitted, sub.Status)
	assert.Equal(t, "student-1", sub.StudentID)

	// unknown project is refused
	_, err := svc.Submit(context.Background(), "student-1", engineering.NewSubmission{ProjectID: "nope"})
	assert.Equal(t, engineering.ErrNotFound, errors.Cause(err))
}

func TestService_Review(t *testing.T) {
	svc, project := setup(t)
	ctx := context.Background()
	sub := submit(t, svc, "student-1", project.ID)

	_, err := svc.Review(ctx, "mentor-1", sub.ID, engineering.SubmissionStatus("graded"))
	assert.Equal(t, engineering.ErrUnknownStatus, errors.Cause(err))

	reviewed, err := svc.Review(ctx, "mentor-1", sub.ID, engineering.StatusNeedsRevision)
	require.NoError(t, err)
	assert.Equal(t, engineering.StatusNeedsRevision, reviewed.Status)
	assert.Equal(t, "mentor-1", reviewed.MentorID)

	_, err = svc.Review(ctx, "mentor-1", sub.ID, engineering.StatusApproved)
	require.NoError(t, err)

	// approved submissions are final
	_, err = svc.Review(ctx, "mentor-2", sub.ID, engineering.StatusReviewed)
	assert.Equal(t, engineering.ErrAlreadyGraded, errors.Cause(err))
}

func TestService_LogSession(t *testing.T) {
	svc, project := setup(t)
	ctx := context.Background()

	_, err := svc.LogSession(ctx, "mentor-1", engineering.NewMentorshipSession{
		MenteeID:    "mentor-1",
		SessionDate: time.Now().UTC(),
	})
	assert.Equal(t, engineering.ErrSelfMentorship, errors.Cause(err))

	sess, err := svc.LogSession(ctx, "mentor-1", engineering.NewMentorshipSession{
		MenteeID:        "student-1",
		ProjectID:       project.ID,
		SessionDate:     time.Now().UTC(),
		DurationMinutes: 45,
		TopicsCovered:   []string{"soldering", "safety"},
	})
	require.NoError(t, err)
	assert.Equal(t, "mentor-1", sess.MentorID)

	byMentor, err := svc.SessionsByMentor(ctx, "mentor-1")
	require.NoError(t, err)
	assert.Len(t, byMentor, 1)

	byMentee, err := svc.SessionsByMentee(ctx, "student-1")
	require.NoError(t, err)
	assert.Len(t, byMentee, 1)
}

func TestService_ListProjects_phaseFilter(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewEngineeringRepository(db)
	repo.AddProject(engineering.Project{PhaseCode: "P1", ProjectCode: "P1-A", ProjectName: "A"})
	repo.AddProject(engineering.Project{PhaseCode: "P2", ProjectCode: "P2-B", ProjectName: "B"})
	svc := engineering.NewService(validator.New(), repo)

	all, err := svc.ListProjects(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	p1, err := svc.ListProjects(context.Background(), "P1")
	require.NoError(t, err)
	require.Len(t, p1, 1)
	assert.Equal(t, "P1-A", p1[0].ProjectCode)
}
