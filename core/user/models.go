package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/access"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Membership binds a user to a role within one organizational scope
// instance. A user may hold several (different roles in different scopes).
// Memberships are deactivated on reassignment, never deleted: role history
// matters for audit.
type Membership struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	Role       access.Role   `json:"role"`
	Scope      access.Scope  `json:"scope"`
	DistrictID string        `json:"district_id,omitempty"`
	SchoolID   string        `json:"school_id,omitempty"`
	CampusID   string        `json:"campus_id,omitempty"`
	PodID      string        `json:"pod_id,omitempty"`
	TeacherTier *int         `json:"teacher_tier,omitempty"` // 0-4, teaching roles only
	IsActive   bool          `json:"is_active"`
	CreatedAt  time.Time     `json:"created_at"` // UTC
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"omitempty,email"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Email, origUsr)
}

// NewMembership contains information needed to grant a user a role in a scope.
type NewMembership struct {
	UserID      string       `json:"user_id" validate:"required"`
	Role        access.Role  `json:"role" validate:"required"`
	Scope       access.Scope `json:"scope" validate:"required"`
	DistrictID  string       `json:"district_id"`
	SchoolID    string       `json:"school_id"`
	CampusID    string       `json:"campus_id"`
	PodID       string       `json:"pod_id"`
	TeacherTier *int         `json:"teacher_tier"`
}

func (nm *NewMembership) Validate(validate *validator.Validate) error {
	if err := validate.Struct(nm); err != nil {
		return err
	}
	if !access.KnownRole(nm.Role) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "unknown role"})
	}
	if !access.KnownScope(nm.Scope) {
		return core.NewValidationError(nil, core.FieldError{Field: "scope", Error: "unknown scope"})
	}
	if nm.Scope == access.ScopePod && nm.PodID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "pod_id", Error: "this field is required for pod scope"})
	}
	if nm.TeacherTier != nil && (*nm.TeacherTier < 0 || *nm.TeacherTier > 4) {
		return core.NewValidationError(nil, core.FieldError{Field: "teacher_tier", Error: "tier must be between 0 and 4"})
	}
	return nil
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string      `query:"search"`
	Role        access.Role `query:"role"`
	IsActive    *bool       `query:"is_active"`
	CreatedFrom time.Time   `query:"created_from"`
	CreatedTo   time.Time   `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
