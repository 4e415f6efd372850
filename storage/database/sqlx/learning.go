package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shulehq/shule/core/learning"
)

type enrollmentRow struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	PodID     string    `db:"pod_id"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

func (r enrollmentRow) toEnrollment() learning.Enrollment {
	return learning.Enrollment{ID: r.ID, StudentID: r.StudentID, PodID: r.PodID, Active: r.Active, CreatedAt: r.CreatedAt}
}

type submissionRow struct {
	ID          string    `db:"id"`
	StudentID   string    `db:"student_id"`
	LessonID    string    `db:"lesson_id"`
	Status      string    `db:"status"`
	Content     []byte    `db:"content"`
	SubmittedAt time.Time `db:"submitted_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r submissionRow) toSubmission() (learning.Submission, error) {
	content, err := jsonbOut(r.Content)
	if err != nil {
		return learning.Submission{}, err
	}
	return learning.Submission{
		ID:          r.ID,
		StudentID:   r.StudentID,
		LessonID:    r.LessonID,
		Status:      learning.SubmissionStatus(r.Status),
		Content:     content,
		SubmittedAt: r.SubmittedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

type feedbackRow struct {
	ID           string     `db:"id"`
	SubmissionID string     `db:"submission_id"`
	TeacherID    string     `db:"teacher_id"`
	Comment      string     `db:"comment"`
	RubricScores null.Bytes `db:"rubric_scores"`
	CreatedAt    time.Time  `db:"created_at"`
}

func (r feedbackRow) toFeedback() (learning.Feedback, error) {
	f := learning.Feedback{
		ID:           r.ID,
		SubmissionID: r.SubmissionID,
		TeacherID:    r.TeacherID,
		Comment:      r.Comment,
		CreatedAt:    r.CreatedAt,
	}
	if len(r.RubricScores.Bytes) > 0 {
		if err := json.Unmarshal(r.RubricScores.Bytes, &f.RubricScores); err != nil {
			return learning.Feedback{}, errors.Wrap(err, "unmarshaling rubric scores")
		}
	}
	return f, nil
}

type masteryRow struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	SkillKey  string    `db:"skill_key"`
	Level     string    `db:"level"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r masteryRow) toMastery() learning.MasteryRecord {
	return learning.MasteryRecord{
		ID:        r.ID,
		StudentID: r.StudentID,
		SkillKey:  r.SkillKey,
		Level:     learning.MasteryLevel(r.Level),
		UpdatedAt: r.UpdatedAt,
	}
}

type learningRepository struct {
	db *sqlx.DB
}

var _ learning.Repository = (*learningRepository)(nil) // interface compliance check

func NewLearningRepository(db *sqlx.DB) *learningRepository {
	return &learningRepository{db: db}
}

func (repo learningRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return learning.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo learningRepository) CreateEnrollment(ctx context.Context, e learning.Enrollment) (learning.Enrollment, error) {
	e.ID = uuid.New().String()
	const query = `
		INSERT INTO enrollment (id, student_id, pod_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := repo.db.ExecContext(ctx, query, e.ID, e.StudentID, e.PodID, e.Active, e.CreatedAt)
	if err != nil {
		// enrollment_active_idx allows one active enrollment per student
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23505" {
			return learning.Enrollment{}, learning.ErrEnrolled
		}
		return learning.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo learningRepository) QueryEnrollmentsByPod(ctx context.Context, podID string) ([]learning.Enrollment, error) {
	var rows []enrollmentRow
	const query = `SELECT * FROM enrollment WHERE pod_id = $1 AND active ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, query, podID); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	es := make([]learning.Enrollment, 0, len(rows))
	for _, r := range rows {
		es = append(es, r.toEnrollment())
	}
	return es, nil
}

func (repo learningRepository) CreateSubmission(ctx context.Context, s learning.Submission) (learning.Submission, error) {
	s.ID = uuid.New().String()
	content, err := jsonbIn(s.Content)
	if err != nil {
		return learning.Submission{}, err
	}
	const query = `
		INSERT INTO submission (id, student_id, lesson_id, status, content, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = repo.db.ExecContext(ctx, query,
		s.ID, s.StudentID, s.LessonID, string(s.Status), content, s.SubmittedAt, s.UpdatedAt)
	if err != nil {
		return learning.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return s, nil
}

func (repo learningRepository) GetSubmissionByID(ctx context.Context, id string) (learning.Submission, error) {
	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM submission WHERE id = $1`, id); err != nil {
		return learning.Submission{}, repo.trapNoRowsErr(err, "getting submission")
	}
	return row.toSubmission()
}

func (repo learningRepository) UpdateSubmission(ctx context.Context, s learning.Submission) (learning.Submission, error) {
	content, err := jsonbIn(s.Content)
	if err != nil {
		return learning.Submission{}, err
	}
	const query = `
		UPDATE submission SET status = $2, content = $3, updated_at = $4 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, s.ID, string(s.Status), content, s.UpdatedAt)
	if err != nil {
		return learning.Submission{}, errors.Wrap(err, "updating submission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return learning.Submission{}, learning.ErrNotFound
	}
	return s, nil
}

func (repo learningRepository) QuerySubmissions(ctx context.Context, filter learning.SubmissionFilter) ([]learning.Submission, error) {
	query := `SELECT * FROM submission`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}
	if filter.StudentID != "" {
		conds = append(conds, "student_id = "+arg(filter.StudentID))
	}
	if filter.LessonID != "" {
		conds = append(conds, "lesson_id = "+arg(filter.LessonID))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(string(filter.Status)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY submitted_at DESC"

	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]learning.Submission, 0, len(rows))
	for _, r := range rows {
		s, err := r.toSubmission()
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, nil
}

func (repo learningRepository) CreateFeedback(ctx context.Context, f learning.Feedback) (learning.Feedback, error) {
	f.ID = uuid.New().String()
	var scores interface{}
	if f.RubricScores != nil {
		b, err := json.Marshal(f.RubricScores)
		if err != nil {
			return learning.Feedback{}, errors.Wrap(err, "marshaling rubric scores")
		}
		scores = b
	}
	const query = `
		INSERT INTO feedback (id, submission_id, teacher_id, comment, rubric_scores, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, query, f.ID, f.SubmissionID, f.TeacherID, f.Comment, scores, f.CreatedAt)
	if err != nil {
		return learning.Feedback{}, errors.Wrap(err, "inserting feedback")
	}
	return f, nil
}

func (repo learningRepository) QueryFeedbackBySubmission(ctx context.Context, submissionID string) ([]learning.Feedback, error) {
	var rows []feedbackRow
	const query = `SELECT * FROM feedback WHERE submission_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, query, submissionID); err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	fs := make([]learning.Feedback, 0, len(rows))
	for _, r := range rows {
		f, err := r.toFeedback()
		if err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	return fs, nil
}

func (repo learningRepository) UpsertMasteryRecord(ctx context.Context, m learning.MasteryRecord) (learning.MasteryRecord, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	const query = `
		INSERT INTO mastery_record (id, student_id, skill_key, level, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, skill_key)
		DO UPDATE SET level = EXCLUDED.level, updated_at = EXCLUDED.updated_at
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		m.ID, m.StudentID, m.SkillKey, string(m.Level), m.UpdatedAt).Scan(&m.ID)
	if err != nil {
		return learning.MasteryRecord{}, errors.Wrap(err, "upserting mastery record")
	}
	return m, nil
}

func (repo learningRepository) QueryMasteryByStudent(ctx context.Context, studentID string) ([]learning.MasteryRecord, error) {
	var rows []masteryRow
	const query = `SELECT * FROM mastery_record WHERE student_id = $1 ORDER BY skill_key`
	if err := repo.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, errors.Wrap(err, "querying mastery records")
	}
	ms := make([]learning.MasteryRecord, 0, len(rows))
	for _, r := range rows {
		ms = append(ms, r.toMastery())
	}
	return ms, nil
}

func (repo learningRepository) SharesPod(ctx context.Context, teacherID, studentID string) (bool, error) {
	var shares bool
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM membership m
			JOIN enrollment e ON e.pod_id = m.pod_id AND e.active
			WHERE m.user_id = $1 AND m.is_active AND e.student_id = $2
		)`
	if err := repo.db.GetContext(ctx, &shares, query, teacherID, studentID); err != nil {
		return false, errors.Wrap(err, "checking shared pod")
	}
	return shares, nil
}
