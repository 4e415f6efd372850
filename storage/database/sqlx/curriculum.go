package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shulehq/shule/core/curriculum"
)

type courseRow struct {
	ID          string      `db:"id"`
	SubjectCode string      `db:"subject_code"`
	GradeBand   string      `db:"grade_band"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r courseRow) toCourse() curriculum.Course {
	return curriculum.Course{
		ID:          r.ID,
		SubjectCode: r.SubjectCode,
		GradeBand:   r.GradeBand,
		Title:       r.Title,
		Description: r.Description.String,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type versionRow struct {
	ID             string      `db:"id"`
	CourseID       string      `db:"course_id"`
	Version        int         `db:"version"`
	Status         string      `db:"status"`
	IsImmutable    bool        `db:"is_immutable"`
	AuthoredByID   null.String `db:"authored_by_id"`
	SupersededByID null.String `db:"superseded_by_id"`
	Notes          null.String `db:"notes"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func (r versionRow) toVersion() curriculum.CourseVersion {
	return curriculum.CourseVersion{
		ID:             r.ID,
		CourseID:       r.CourseID,
		Version:        r.Version,
		Status:         curriculum.VersionStatus(r.Status),
		IsImmutable:    r.IsImmutable,
		AuthoredByID:   r.AuthoredByID.String,
		SupersededByID: r.SupersededByID.String,
		Notes:          r.Notes.String,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type unitRow struct {
	ID              string      `db:"id"`
	CourseVersionID string      `db:"course_version_id"`
	UnitNumber      int         `db:"unit_number"`
	Title           string      `db:"title"`
	Overview        null.String `db:"overview"`
	CreatedAt       time.Time   `db:"created_at"`
}

func (r unitRow) toUnit() curriculum.Unit {
	return curriculum.Unit{
		ID:              r.ID,
		CourseVersionID: r.CourseVersionID,
		UnitNumber:      r.UnitNumber,
		Title:           r.Title,
		Overview:        r.Overview.String,
		CreatedAt:       r.CreatedAt,
	}
}

type lessonRow struct {
	ID               string         `db:"id"`
	UnitID           string         `db:"unit_id"`
	LessonNumber     int            `db:"lesson_number"`
	Title            string         `db:"title"`
	CanonicalText    string         `db:"canonical_text"`
	Objectives       pq.StringArray `db:"objectives"`
	Tags             pq.StringArray `db:"tags"`
	EstimatedMinutes null.Int       `db:"estimated_minutes"`
	CreatedAt        time.Time      `db:"created_at"`
}

func (r lessonRow) toLesson() curriculum.Lesson {
	return curriculum.Lesson{
		ID:               r.ID,
		UnitID:           r.UnitID,
		LessonNumber:     r.LessonNumber,
		Title:            r.Title,
		CanonicalText:    r.CanonicalText,
		Objectives:       []string(r.Objectives),
		Tags:             []string(r.Tags),
		EstimatedMinutes: r.EstimatedMinutes.Int,
		CreatedAt:        r.CreatedAt,
	}
}

type assignmentRow struct {
	ID              string    `db:"id"`
	PodID           string    `db:"pod_id"`
	CourseVersionID string    `db:"course_version_id"`
	StartDate       null.Time `db:"start_date"`
	EndDate         null.Time `db:"end_date"`
	CreatedAt       time.Time `db:"created_at"`
}

func (r assignmentRow) toAssignment() curriculum.PodCourseAssignment {
	return curriculum.PodCourseAssignment{
		ID:              r.ID,
		PodID:           r.PodID,
		CourseVersionID: r.CourseVersionID,
		StartDate:       r.StartDate.Time,
		EndDate:         r.EndDate.Time,
		CreatedAt:       r.CreatedAt,
	}
}

type curriculumRepository struct {
	db *sqlx.DB
}

var _ curriculum.Repository = (*curriculumRepository)(nil) // interface compliance check

func NewCurriculumRepository(db *sqlx.DB) *curriculumRepository {
	return &curriculumRepository{db: db}
}

func (repo curriculumRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return curriculum.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo curriculumRepository) CreateCourse(ctx context.Context, c curriculum.Course) (curriculum.Course, error) {
	c.ID = uuid.New().String()
	const query = `
		INSERT INTO course (id, subject_code, grade_band, title, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, query,
		c.ID, c.SubjectCode, c.GradeBand, c.Title, nullStr(c.Description), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return curriculum.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo curriculumRepository) GetCourseByID(ctx context.Context, id string) (curriculum.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		return curriculum.Course{}, repo.trapNoRowsErr(err, "getting course")
	}
	return row.toCourse(), nil
}

func (repo curriculumRepository) QueryCourses(ctx context.Context) ([]curriculum.Course, error) {
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM course ORDER BY subject_code, grade_band`); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	cs := make([]curriculum.Course, 0, len(rows))
	for _, r := range rows {
		cs = append(cs, r.toCourse())
	}
	return cs, nil
}

func (repo curriculumRepository) CreateVersion(ctx context.Context, v curriculum.CourseVersion) (curriculum.CourseVersion, error) {
	v.ID = uuid.New().String()
	// next version number is computed in the same statement to avoid a
	// read-then-write race between concurrent authors
	const query = `
		INSERT INTO course_version (id, course_id, version, status, is_immutable, authored_by_id, notes, created_at, updated_at)
		SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3, $4, $5, $6, $7, $8
		FROM course_version WHERE course_id = $2
		RETURNING version`
	err := repo.db.QueryRowContext(ctx, query,
		v.ID, v.CourseID, string(v.Status), v.IsImmutable, nullStr(v.AuthoredByID), nullStr(v.Notes), v.CreatedAt, v.UpdatedAt,
	).Scan(&v.Version)
	if err != nil {
		return curriculum.CourseVersion{}, errors.Wrap(err, "inserting course version")
	}
	return v, nil
}

func (repo curriculumRepository) GetVersionByID(ctx context.Context, id string) (curriculum.CourseVersion, error) {
	var row versionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course_version WHERE id = $1`, id); err != nil {
		return curriculum.CourseVersion{}, repo.trapNoRowsErr(err, "getting course version")
	}
	return row.toVersion(), nil
}

func (repo curriculumRepository) QueryVersionsByCourse(ctx context.Context, courseID string) ([]curriculum.CourseVersion, error) {
	var rows []versionRow
	const query = `SELECT * FROM course_version WHERE course_id = $1 ORDER BY version DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, errors.Wrap(err, "querying course versions")
	}
	vs := make([]curriculum.CourseVersion, 0, len(rows))
	for _, r := range rows {
		vs = append(vs, r.toVersion())
	}
	return vs, nil
}

func (repo curriculumRepository) MarkVersionApproved(ctx context.Context, versionID string, rec curriculum.ApprovalRecord) (curriculum.CourseVersion, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return curriculum.CourseVersion{}, errors.Wrap(err, "starting tx")
	}
	defer func() { _ = tx.Rollback() }()

	const upd = `
		UPDATE course_version
		SET status = 'approved', is_immutable = true, updated_at = now()
		WHERE id = $1`
	res, err := tx.ExecContext(ctx, upd, versionID)
	if err != nil {
		return curriculum.CourseVersion{}, errors.Wrap(err, "approving course version")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return curriculum.CourseVersion{}, curriculum.ErrNotFound
	}

	const ins = `
		INSERT INTO approval_record (id, course_version_id, approved_by_id, approval_note, approved_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err = tx.ExecContext(ctx, ins,
		uuid.New().String(), versionID, rec.ApprovedByID, nullStr(rec.ApprovalNote), rec.ApprovedAt)
	if err != nil {
		return curriculum.CourseVersion{}, errors.Wrap(err, "inserting approval record")
	}

	var row versionRow
	if err = tx.GetContext(ctx, &row, `SELECT * FROM course_version WHERE id = $1`, versionID); err != nil {
		return curriculum.CourseVersion{}, errors.Wrap(err, "reloading course version")
	}
	if err = tx.Commit(); err != nil {
		return curriculum.CourseVersion{}, errors.Wrap(err, "committing approval")
	}
	return row.toVersion(), nil
}

func (repo curriculumRepository) MarkVersionSuperseded(ctx context.Context, versionID, supersededByID string) error {
	const query = `
		UPDATE course_version
		SET status = 'deprecated', superseded_by_id = $2, updated_at = now()
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, versionID, supersededByID)
	if err != nil {
		return errors.Wrap(err, "superseding course version")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return curriculum.ErrNotFound
	}
	return nil
}

func (repo curriculumRepository) CreateUnit(ctx context.Context, u curriculum.Unit) (curriculum.Unit, error) {
	u.ID = uuid.New().String()
	const query = `
		INSERT INTO unit (id, course_version_id, unit_number, title, overview, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, query,
		u.ID, u.CourseVersionID, u.UnitNumber, u.Title, nullStr(u.Overview), u.CreatedAt)
	if err != nil {
		return curriculum.Unit{}, errors.Wrap(err, "inserting unit")
	}
	return u, nil
}

func (repo curriculumRepository) GetUnitByID(ctx context.Context, id string) (curriculum.Unit, error) {
	var row unitRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM unit WHERE id = $1`, id); err != nil {
		return curriculum.Unit{}, repo.trapNoRowsErr(err, "getting unit")
	}
	return row.toUnit(), nil
}

func (repo curriculumRepository) QueryUnitsByVersion(ctx context.Context, versionID string) ([]curriculum.Unit, error) {
	var rows []unitRow
	const query = `SELECT * FROM unit WHERE course_version_id = $1 ORDER BY unit_number`
	if err := repo.db.SelectContext(ctx, &rows, query, versionID); err != nil {
		return nil, errors.Wrap(err, "querying units")
	}
	us := make([]curriculum.Unit, 0, len(rows))
	for _, r := range rows {
		us = append(us, r.toUnit())
	}
	return us, nil
}

func (repo curriculumRepository) CreateLesson(ctx context.Context, l curriculum.Lesson) (curriculum.Lesson, error) {
	l.ID = uuid.New().String()
	const query = `
		INSERT INTO lesson (id, unit_id, lesson_number, title, canonical_text, objectives, tags, estimated_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, query,
		l.ID, l.UnitID, l.LessonNumber, l.Title, l.CanonicalText,
		pqStringArray(l.Objectives), pqStringArray(l.Tags), null.NewInt(l.EstimatedMinutes, l.EstimatedMinutes > 0), l.CreatedAt)
	if err != nil {
		return curriculum.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return l, nil
}

func (repo curriculumRepository) GetLessonByID(ctx context.Context, id string) (curriculum.Lesson, error) {
	var row lessonRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM lesson WHERE id = $1`, id); err != nil {
		return curriculum.Lesson{}, repo.trapNoRowsErr(err, "getting lesson")
	}
	return row.toLesson(), nil
}

func (repo curriculumRepository) UpdateLesson(ctx context.Context, l curriculum.Lesson) (curriculum.Lesson, error) {
	const query = `
		UPDATE lesson
		SET title = $2, canonical_text = $3, objectives = $4, tags = $5, estimated_minutes = $6
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		l.ID, l.Title, l.CanonicalText, pqStringArray(l.Objectives), pqStringArray(l.Tags),
		null.NewInt(l.EstimatedMinutes, l.EstimatedMinutes > 0))
	if err != nil {
		return curriculum.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return curriculum.Lesson{}, curriculum.ErrNotFound
	}
	return l, nil
}

func (repo curriculumRepository) QueryLessonsByUnit(ctx context.Context, unitID string) ([]curriculum.Lesson, error) {
	var rows []lessonRow
	const query = `SELECT * FROM lesson WHERE unit_id = $1 ORDER BY lesson_number`
	if err := repo.db.SelectContext(ctx, &rows, query, unitID); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	ls := make([]curriculum.Lesson, 0, len(rows))
	for _, r := range rows {
		ls = append(ls, r.toLesson())
	}
	return ls, nil
}

func (repo curriculumRepository) VersionIDForLesson(ctx context.Context, lessonID string) (string, error) {
	var versionID string
	const query = `
		SELECT u.course_version_id FROM lesson l
		JOIN unit u ON u.id = l.unit_id
		WHERE l.id = $1`
	if err := repo.db.GetContext(ctx, &versionID, query, lessonID); err != nil {
		return "", repo.trapNoRowsErr(err, "resolving lesson version")
	}
	return versionID, nil
}

func (repo curriculumRepository) CreateAssignment(ctx context.Context, a curriculum.PodCourseAssignment) (curriculum.PodCourseAssignment, error) {
	a.ID = uuid.New().String()
	const query = `
		INSERT INTO pod_course_assignment (id, pod_id, course_version_id, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, query,
		a.ID, a.PodID, a.CourseVersionID, nullTime(a.StartDate), nullTime(a.EndDate), a.CreatedAt)
	if err != nil {
		return curriculum.PodCourseAssignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo curriculumRepository) QueryAssignmentsByPod(ctx context.Context, podID string) ([]curriculum.PodCourseAssignment, error) {
	var rows []assignmentRow
	const query = `SELECT * FROM pod_course_assignment WHERE pod_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, query, podID); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	as := make([]curriculum.PodCourseAssignment, 0, len(rows))
	for _, r := range rows {
		as = append(as, r.toAssignment())
	}
	return as, nil
}

func (repo curriculumRepository) ActivePodID(ctx context.Context, studentID string) (string, error) {
	var podID string
	const query = `SELECT pod_id FROM enrollment WHERE student_id = $1 AND active LIMIT 1`
	if err := repo.db.GetContext(ctx, &podID, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return "", curriculum.ErrNotEnrolled
		}
		return "", errors.Wrap(err, "resolving active pod")
	}
	return podID, nil
}
