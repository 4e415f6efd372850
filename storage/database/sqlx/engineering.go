package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shulehq/shule/core/engineering"
)

type projectRow struct {
	ID             string      `db:"id"`
	PhaseCode      string      `db:"phase_code"`
	ProjectCode    string      `db:"project_code"`
	ProjectName    string      `db:"project_name"`
	Description    null.String `db:"description"`
	Instructions   null.Bytes  `db:"instructions"`
	EstimatedHours null.Int    `db:"estimated_hours"`
	IsCapstone     bool        `db:"is_capstone"`
	CreatedAt      time.Time   `db:"created_at"`
}

func (r projectRow) toProject() (engineering.Project, error) {
	instructions, err := jsonbOut(r.Instructions.Bytes)
	if err != nil {
		return engineering.Project{}, err
	}
	return engineering.Project{
		ID:             r.ID,
		PhaseCode:      r.PhaseCode,
		ProjectCode:    r.ProjectCode,
		ProjectName:    r.ProjectName,
		Description:    r.Description.String,
		Instructions:   instructions,
		EstimatedHours: r.EstimatedHours.Int,
		IsCapstone:     r.IsCapstone,
		CreatedAt:      r.CreatedAt,
	}, nil
}

type projectSubmissionRow struct {
	ID            string      `db:"id"`
	StudentID     string      `db:"student_id"`
	ProjectID     string      `db:"project_id"`
	DeviceID      null.String `db:"device_id"`
	Status        string      `db:"status"`
	Evidence      null.Bytes  `db:"evidence"`
	Documentation null.String `db:"documentation"`
	MentorID      null.String `db:"mentor_id"`
	SubmittedAt   null.Time   `db:"submitted_at"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func (r projectSubmissionRow) toSubmission() (engineering.ProjectSubmission, error) {
	evidence, err := jsonbOut(r.Evidence.Bytes)
	if err != nil {
		return engineering.ProjectSubmission{}, err
	}
	return engineering.ProjectSubmission{
		ID:            r.ID,
		StudentID:     r.StudentID,
		ProjectID:     r.ProjectID,
		DeviceID:      r.DeviceID.String,
		Status:        engineering.SubmissionStatus(r.Status),
		Evidence:      evidence,
		Documentation: r.Documentation.String,
		MentorID:      r.MentorID.String,
		SubmittedAt:   r.SubmittedAt.Time,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

type sessionRow struct {
	ID              string         `db:"id"`
	MentorID        string         `db:"mentor_id"`
	MenteeID        string         `db:"mentee_id"`
	ProjectID       null.String    `db:"project_id"`
	PodID           null.String    `db:"pod_id"`
	SessionDate     time.Time      `db:"session_date"`
	DurationMinutes null.Int       `db:"duration_minutes"`
	TopicsCovered   pq.StringArray `db:"topics_covered"`
	MentorNotes     null.String    `db:"mentor_notes"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (r sessionRow) toSession() engineering.MentorshipSession {
	return engineering.MentorshipSession{
		ID:              r.ID,
		MentorID:        r.MentorID,
		MenteeID:        r.MenteeID,
		ProjectID:       r.ProjectID.String,
		PodID:           r.PodID.String,
		SessionDate:     r.SessionDate,
		DurationMinutes: r.DurationMinutes.Int,
		TopicsCovered:   []string(r.TopicsCovered),
		MentorNotes:     r.MentorNotes.String,
		CreatedAt:       r.CreatedAt,
	}
}

type engineeringRepository struct {
	db *sqlx.DB
}

var _ engineering.Repository = (*engineeringRepository)(nil) // interface compliance check

func NewEngineeringRepository(db *sqlx.DB) *engineeringRepository {
	return &engineeringRepository{db: db}
}

func (repo engineeringRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return engineering.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo engineeringRepository) QueryProjects(ctx context.Context, phaseCode string) ([]engineering.Project, error) {
	query := `SELECT * FROM engineering_project`
	var args []interface{}
	if phaseCode != "" {
		query += ` WHERE phase_code = $1`
		args = append(args, phaseCode)
	}
	query += ` ORDER BY project_code`

	var rows []projectRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	ps := make([]engineering.Project, 0, len(rows))
	for _, r := range rows {
		p, err := r.toProject()
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, nil
}

func (repo engineeringRepository) GetProject(ctx context.Context, id string) (engineering.Project, error) {
	var row projectRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM engineering_project WHERE id = $1`, id); err != nil {
		return engineering.Project{}, repo.trapNoRowsErr(err, "getting project")
	}
	return row.toProject()
}

func (repo engineeringRepository) CreateSubmission(ctx context.Context, sub *engineering.ProjectSubmission) error {
	sub.ID = uuid.New().String()
	evidence, err := jsonbIn(sub.Evidence)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO engineering_project_submission (id, student_id, project_id, device_id, status, evidence, documentation, mentor_id, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = repo.db.ExecContext(ctx, query,
		sub.ID, sub.StudentID, sub.ProjectID, nullStr(sub.DeviceID), string(sub.Status),
		evidence, nullStr(sub.Documentation), nullStr(sub.MentorID), nullTime(sub.SubmittedAt),
		sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "inserting project submission")
	}
	return nil
}

func (repo engineeringRepository) GetSubmission(ctx context.Context, id string) (engineering.ProjectSubmission, error) {
	var row projectSubmissionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM engineering_project_submission WHERE id = $1`, id); err != nil {
		return engineering.ProjectSubmission{}, repo.trapNoRowsErr(err, "getting project submission")
	}
	return row.toSubmission()
}

func (repo engineeringRepository) QuerySubmissions(ctx context.Context, filter engineering.SubmissionFilter) ([]engineering.ProjectSubmission, error) {
	query := `SELECT * FROM engineering_project_submission`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}
	if filter.StudentID != "" {
		conds = append(conds, "student_id = "+arg(filter.StudentID))
	}
	if filter.ProjectID != "" {
		conds = append(conds, "project_id = "+arg(filter.ProjectID))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(string(filter.Status)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var rows []projectSubmissionRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying project submissions")
	}
	subs := make([]engineering.ProjectSubmission, 0, len(rows))
	for _, r := range rows {
		s, err := r.toSubmission()
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, nil
}

func (repo engineeringRepository) UpdateSubmission(ctx context.Context, sub *engineering.ProjectSubmission) error {
	evidence, err := jsonbIn(sub.Evidence)
	if err != nil {
		return err
	}
	const query = `
		UPDATE engineering_project_submission
		SET device_id = $2, status = $3, evidence = $4, documentation = $5, mentor_id = $6, updated_at = $7
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		sub.ID, nullStr(sub.DeviceID), string(sub.Status), evidence,
		nullStr(sub.Documentation), nullStr(sub.MentorID), sub.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "updating project submission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engineering.ErrNotFound
	}
	return nil
}

func (repo engineeringRepository) CreateSession(ctx context.Context, sess *engineering.MentorshipSession) error {
	sess.ID = uuid.New().String()
	const query = `
		INSERT INTO mentorship_session (id, mentor_id, mentee_id, project_id, pod_id, session_date, duration_minutes, topics_covered, mentor_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.db.ExecContext(ctx, query,
		sess.ID, sess.MentorID, sess.MenteeID, nullStr(sess.ProjectID), nullStr(sess.PodID),
		sess.SessionDate, null.NewInt(sess.DurationMinutes, sess.DurationMinutes > 0),
		pqStringArray(sess.TopicsCovered), nullStr(sess.MentorNotes), sess.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "inserting mentorship session")
	}
	return nil
}

func (repo engineeringRepository) QuerySessionsByMentor(ctx context.Context, mentorID string) ([]engineering.MentorshipSession, error) {
	return repo.querySessions(ctx, `SELECT * FROM mentorship_session WHERE mentor_id = $1 ORDER BY session_date DESC`, mentorID)
}

func (repo engineeringRepository) QuerySessionsByMentee(ctx context.Context, menteeID string) ([]engineering.MentorshipSession, error) {
	return repo.querySessions(ctx, `SELECT * FROM mentorship_session WHERE mentee_id = $1 ORDER BY session_date DESC`, menteeID)
}

func (repo engineeringRepository) querySessions(ctx context.Context, query, id string) ([]engineering.MentorshipSession, error) {
	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, errors.Wrap(err, "querying mentorship sessions")
	}
	sessions := make([]engineering.MentorshipSession, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, r.toSession())
	}
	return sessions, nil
}
