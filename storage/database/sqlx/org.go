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

	"github.com/shulehq/shule/core/org"
)

type districtRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Country   null.String `db:"country"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r districtRow) toDistrict() org.District {
	return org.District{ID: r.ID, Name: r.Name, Country: r.Country.String, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

type schoolRow struct {
	ID         string    `db:"id"`
	DistrictID string    `db:"district_id"`
	Name       string    `db:"name"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r schoolRow) toSchool() org.School {
	return org.School{ID: r.ID, DistrictID: r.DistrictID, Name: r.Name, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

type campusRow struct {
	ID        string      `db:"id"`
	SchoolID  string      `db:"school_id"`
	Name      string      `db:"name"`
	Address   null.String `db:"address"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r campusRow) toCampus() org.Campus {
	return org.Campus{ID: r.ID, SchoolID: r.SchoolID, Name: r.Name, Address: r.Address.String, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

type podRow struct {
	ID                string      `db:"id"`
	SchoolID          string      `db:"school_id"`
	CampusID          null.String `db:"campus_id"`
	Name              string      `db:"name"`
	LanguageCode      string      `db:"language_code"`
	RotationStartDate null.Time   `db:"rotation_start_date"`
	RotationEndDate   null.Time   `db:"rotation_end_date"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

func (r podRow) toPod() org.Pod {
	return org.Pod{
		ID:                r.ID,
		SchoolID:          r.SchoolID,
		CampusID:          r.CampusID.String,
		Name:              r.Name,
		LanguageCode:      r.LanguageCode,
		RotationStartDate: r.RotationStartDate.Time,
		RotationEndDate:   r.RotationEndDate.Time,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

type orgRepository struct {
	db *sqlx.DB
}

var _ org.Repository = (*orgRepository)(nil) // interface compliance check

func NewOrgRepository(db *sqlx.DB) *orgRepository {
	return &orgRepository{db: db}
}

func (repo orgRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return org.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// trapUniqueErr maps a unique-violation to org.ErrNameExists
func (repo orgRepository) trapUniqueErr(err error, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23505" {
		return org.ErrNameExists
	}
	return errors.Wrap(err, msg)
}

func (repo orgRepository) CreateDistrict(ctx context.Context, d org.District) (org.District, error) {
	d.ID = uuid.New().String()
	const query = `INSERT INTO district (id, name, country, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := repo.db.ExecContext(ctx, query, d.ID, d.Name, nullStr(d.Country), d.CreatedAt, d.UpdatedAt); err != nil {
		return org.District{}, repo.trapUniqueErr(err, "inserting district")
	}
	return d, nil
}

func (repo orgRepository) GetDistrictByID(ctx context.Context, id string) (org.District, error) {
	var row districtRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM district WHERE id = $1`, id); err != nil {
		return org.District{}, repo.trapNoRowsErr(err, "getting district")
	}
	return row.toDistrict(), nil
}

func (repo orgRepository) QueryDistricts(ctx context.Context) ([]org.District, error) {
	var rows []districtRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM district ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying districts")
	}
	ds := make([]org.District, 0, len(rows))
	for _, r := range rows {
		ds = append(ds, r.toDistrict())
	}
	return ds, nil
}

func (repo orgRepository) CreateSchool(ctx context.Context, s org.School) (org.School, error) {
	s.ID = uuid.New().String()
	const query = `INSERT INTO school (id, district_id, name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := repo.db.ExecContext(ctx, query, s.ID, s.DistrictID, s.Name, s.CreatedAt, s.UpdatedAt); err != nil {
		return org.School{}, repo.trapUniqueErr(err, "inserting school")
	}
	return s, nil
}

func (repo orgRepository) GetSchoolByID(ctx context.Context, id string) (org.School, error) {
	var row schoolRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM school WHERE id = $1`, id); err != nil {
		return org.School{}, repo.trapNoRowsErr(err, "getting school")
	}
	return row.toSchool(), nil
}

func (repo orgRepository) QuerySchools(ctx context.Context, districtID string) ([]org.School, error) {
	var rows []schoolRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM school WHERE district_id = $1 ORDER BY name`, districtID); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	ss := make([]org.School, 0, len(rows))
	for _, r := range rows {
		ss = append(ss, r.toSchool())
	}
	return ss, nil
}

func (repo orgRepository) CreateCampus(ctx context.Context, c org.Campus) (org.Campus, error) {
	c.ID = uuid.New().String()
	const query = `INSERT INTO campus (id, school_id, name, address, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := repo.db.ExecContext(ctx, query, c.ID, c.SchoolID, c.Name, nullStr(c.Address), c.CreatedAt, c.UpdatedAt); err != nil {
		return org.Campus{}, repo.trapUniqueErr(err, "inserting campus")
	}
	return c, nil
}

func (repo orgRepository) GetCampusByID(ctx context.Context, id string) (org.Campus, error) {
	var row campusRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM campus WHERE id = $1`, id); err != nil {
		return org.Campus{}, repo.trapNoRowsErr(err, "getting campus")
	}
	return row.toCampus(), nil
}

func (repo orgRepository) QueryCampuses(ctx context.Context, schoolID string) ([]org.Campus, error) {
	var rows []campusRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM campus WHERE school_id = $1 ORDER BY name`, schoolID); err != nil {
		return nil, errors.Wrap(err, "querying campuses")
	}
	cs := make([]org.Campus, 0, len(rows))
	for _, r := range rows {
		cs = append(cs, r.toCampus())
	}
	return cs, nil
}

func (repo orgRepository) CreatePod(ctx context.Context, p org.Pod) (org.Pod, error) {
	p.ID = uuid.New().String()
	const query = `
		INSERT INTO pod (id, school_id, campus_id, name, language_code, rotation_start_date, rotation_end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, query,
		p.ID, p.SchoolID, nullStr(p.CampusID), p.Name, p.LanguageCode,
		nullTime(p.RotationStartDate), nullTime(p.RotationEndDate), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return org.Pod{}, repo.trapUniqueErr(err, "inserting pod")
	}
	return p, nil
}

func (repo orgRepository) GetPodByID(ctx context.Context, id string) (org.Pod, error) {
	var row podRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM pod WHERE id = $1`, id); err != nil {
		return org.Pod{}, repo.trapNoRowsErr(err, "getting pod")
	}
	return row.toPod(), nil
}

func (repo orgRepository) QueryPods(ctx context.Context, schoolID string) ([]org.Pod, error) {
	var rows []podRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM pod WHERE school_id = $1 ORDER BY name`, schoolID); err != nil {
		return nil, errors.Wrap(err, "querying pods")
	}
	pods := make([]org.Pod, 0, len(rows))
	for _, r := range rows {
		pods = append(pods, r.toPod())
	}
	return pods, nil
}
