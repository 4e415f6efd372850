package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/audit"
)

type auditRow struct {
	ID         string      `db:"id"`
	ActorID    null.String `db:"actor_id"`
	ActorRole  string      `db:"actor_role"`
	Action     string      `db:"action"`
	EntityType string      `db:"entity_type"`
	EntityID   null.String `db:"entity_id"`
	Scope      null.String `db:"scope"`
	DistrictID null.String `db:"district_id"`
	SchoolID   null.String `db:"school_id"`
	PodID      null.String `db:"pod_id"`
	Meta       null.Bytes  `db:"meta"`
	CreatedAt  time.Time   `db:"created_at"`
}

func (r auditRow) toEntry() (audit.Entry, error) {
	meta, err := jsonbOut(r.Meta.Bytes)
	if err != nil {
		return audit.Entry{}, err
	}
	return audit.Entry{
		ID:         r.ID,
		ActorID:    r.ActorID.String,
		ActorRole:  access.Role(r.ActorRole),
		Action:     r.Action,
		EntityType: r.EntityType,
		EntityID:   r.EntityID.String,
		Scope:      access.Scope(r.Scope.String),
		DistrictID: r.DistrictID.String,
		SchoolID:   r.SchoolID.String,
		PodID:      r.PodID.String,
		Meta:       meta,
		CreatedAt:  r.CreatedAt,
	}, nil
}

// auditRepository only ever inserts and selects; the audit_entry table
// additionally carries a trigger rejecting UPDATE and DELETE.
type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *sqlx.DB) *auditRepository {
	return &auditRepository{db: db}
}

func (repo auditRepository) Append(ctx context.Context, e audit.Entry) error {
	meta, err := jsonbIn(e.Meta)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO audit_entry (id, actor_id, actor_role, action, entity_type, entity_id, scope, district_id, school_id, pod_id, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = repo.db.ExecContext(ctx, query,
		uuid.New().String(), nullStr(e.ActorID), string(e.ActorRole), e.Action, e.EntityType,
		nullStr(e.EntityID), nullStr(string(e.Scope)), nullStr(e.DistrictID), nullStr(e.SchoolID),
		nullStr(e.PodID), meta, e.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "appending audit entry")
	}
	return nil
}

func (repo auditRepository) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	query := `SELECT * FROM audit_entry`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}
	if filter.ActorID != "" {
		conds = append(conds, "actor_id = "+arg(filter.ActorID))
	}
	if filter.Action != "" {
		conds = append(conds, "action = "+arg(filter.Action))
	}
	if filter.EntityType != "" {
		conds = append(conds, "entity_type = "+arg(filter.EntityType))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "created_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "created_at <= "+arg(filter.To))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT " + arg(filter.Limit)

	var rows []auditRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}
	entries := make([]audit.Entry, 0, len(rows))
	for _, r := range rows {
		e, err := r.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
