package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/user"
)

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Email        string      `db:"email"`
	IsActive     bool        `db:"is_active"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

type membershipRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Role        string    `db:"role"`
	Scope       string    `db:"scope"`
	DistrictID  null.String `db:"district_id"`
	SchoolID    null.String `db:"school_id"`
	CampusID    null.String `db:"campus_id"`
	PodID       null.String `db:"pod_id"`
	TeacherTier null.Int  `db:"teacher_tier"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r membershipRow) toMembership() user.Membership {
	m := user.Membership{
		ID:         r.ID,
		UserID:     r.UserID,
		Role:       access.Role(r.Role),
		Scope:      access.Scope(r.Scope),
		DistrictID: r.DistrictID.String,
		SchoolID:   r.SchoolID.String,
		CampusID:   r.CampusID.String,
		PodID:      r.PodID.String,
		IsActive:   r.IsActive,
		CreatedAt:  r.CreatedAt,
	}
	if r.TeacherTier.Valid {
		tier := r.TeacherTier.Int
		m.TeacherTier = &tier
	}
	return m
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND NOT (id = ANY($2))`
		args = append(args, pqStringArray(ids))
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	const query = `
		INSERT INTO "user" (id, name, email, is_active, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, query,
		usr.ID, usr.Name, usr.Email, usr.IsActive, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	query := `SELECT * FROM "user" WHERE `
	var arg interface{}
	switch {
	case filter.ID != "":
		query += `id = $1`
		arg = filter.ID
	case filter.Email != "":
		query += `email = $1`
		arg = filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, arg); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	return row.toUser(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	query := `SELECT u.* FROM "user" u`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			p1, p2 := arg(val), arg(val)
			conds = append(conds, "(u.name ILIKE "+p1+" OR u.email ILIKE "+p2+")")
		}
		if filter.Role != "" {
			conds = append(conds, "EXISTS (SELECT 1 FROM membership m WHERE m.user_id = u.id AND m.is_active AND m.role = "+arg(string(filter.Role))+")")
		}
		if filter.IsActive != nil {
			conds = append(conds, "u.is_active = "+arg(*filter.IsActive))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "u.created_at >= "+arg(filter.CreatedFrom))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "u.created_at <= "+arg(filter.CreatedTo))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderClause(ordering, "u.created_at DESC")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	usr.UpdatedAt = time.Now().UTC()

	// a NULL hash or is_active keeps the stored value
	var hash []byte
	if len(usr.PasswordHash) > 0 {
		hash = usr.PasswordHash
	}
	const query = `
		UPDATE "user"
		SET name = $2, email = $3,
		    is_active = COALESCE($4, is_active),
		    password_hash = COALESCE($5, password_hash),
		    updated_at = $6
		WHERE id = $1
		RETURNING is_active, password_hash, created_at, last_login`
	var row userRow
	err := repo.db.QueryRowxContext(ctx, query,
		usr.ID, usr.Name, usr.Email, isActive, hash, usr.UpdatedAt).
		Scan(&row.IsActive, &row.PasswordHash, &row.CreatedAt, &row.LastLogin)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "updating user")
	}
	usr.IsActive = row.IsActive
	usr.PasswordHash = row.PasswordHash.Bytes
	usr.CreatedAt = row.CreatedAt
	usr.LastLogin = row.LastLogin.Time
	return usr, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pqStringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (repo userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	usr.LastLogin = time.Now().UTC()
	_, err := repo.db.ExecContext(ctx, `UPDATE "user" SET last_login = $2 WHERE id = $1`, usr.ID, usr.LastLogin)
	if err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

func (repo userRepository) CreateMembership(ctx context.Context, m user.Membership) (user.Membership, error) {
	m.ID = uuid.New().String()
	const query = `
		INSERT INTO membership (id, user_id, role, scope, district_id, school_id, campus_id, pod_id, teacher_tier, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.db.ExecContext(ctx, query,
		m.ID, m.UserID, string(m.Role), string(m.Scope),
		nullStr(m.DistrictID), nullStr(m.SchoolID), nullStr(m.CampusID), nullStr(m.PodID),
		null.IntFromPtr(m.TeacherTier), m.IsActive, m.CreatedAt)
	if err != nil {
		return user.Membership{}, errors.Wrap(err, "inserting membership")
	}
	return m, nil
}

func (repo userRepository) QueryMemberships(ctx context.Context, userID string) ([]user.Membership, error) {
	var rows []membershipRow
	const query = `SELECT * FROM membership WHERE user_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "querying memberships")
	}
	ms := make([]user.Membership, 0, len(rows))
	for _, r := range rows {
		ms = append(ms, r.toMembership())
	}
	return ms, nil
}

func (repo userRepository) PrimaryMembership(ctx context.Context, userID string) (user.Membership, error) {
	var row membershipRow
	const query = `SELECT * FROM membership WHERE user_id = $1 AND is_active ORDER BY created_at LIMIT 1`
	if err := repo.db.GetContext(ctx, &row, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return user.Membership{}, user.ErrNoMembership
		}
		return user.Membership{}, errors.Wrap(err, "getting primary membership")
	}
	return row.toMembership(), nil
}

func (repo userRepository) DeactivateMembership(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE membership SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deactivating membership")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}
