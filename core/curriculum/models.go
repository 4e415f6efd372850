package curriculum

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shulehq/shule/core"
)

// VersionStatus is the lifecycle state of a CourseVersion.
type VersionStatus string

const (
	StatusDraft      VersionStatus = "draft"
	StatusInReview   VersionStatus = "in_review"
	StatusApproved   VersionStatus = "approved"
	StatusDeprecated VersionStatus = "deprecated"
)

type Course struct {
	ID          string    `json:"id"`
	SubjectCode string    `json:"subject_code"`
	GradeBand   string    `json:"grade_band"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// CourseVersion is a snapshot of a course's unit/lesson structure.
// Once approved it is immutable; a new version supersedes it instead.
type CourseVersion struct {
	ID             string        `json:"id"`
	CourseID       string        `json:"course_id"`
	Version        int           `json:"version"`
	Status         VersionStatus `json:"status"`
	IsImmutable    bool          `json:"is_immutable"`
	AuthoredByID   string        `json:"authored_by_id,omitempty"`
	SupersededByID string        `json:"superseded_by_id,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type Unit struct {
	ID              string    `json:"id"`
	CourseVersionID string    `json:"course_version_id"`
	UnitNumber      int       `json:"unit_number"`
	Title           string    `json:"title"`
	Overview        string    `json:"overview,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type Lesson struct {
	ID               string    `json:"id"`
	UnitID           string    `json:"unit_id"`
	LessonNumber     int       `json:"lesson_number"`
	Title            string    `json:"title"`
	CanonicalText    string    `json:"canonical_text"`
	Objectives       []string  `json:"objectives"`
	Tags             []string  `json:"tags"`
	EstimatedMinutes int       `json:"estimated_minutes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// PodCourseAssignment links a pod to a specific course version, optionally
// within a date window. A zero window bound is open-ended on that side.
type PodCourseAssignment struct {
	ID              string    `json:"id"`
	PodID           string    `json:"pod_id"`
	CourseVersionID string    `json:"course_version_id"`
	StartDate       time.Time `json:"start_date,omitempty"`
	EndDate         time.Time `json:"end_date,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// InWindow reports whether the assignment is active at time t.
func (a PodCourseAssignment) InWindow(t time.Time) bool {
	if !a.StartDate.IsZero() && t.Before(a.StartDate) {
		return false
	}
	if !a.EndDate.IsZero() && t.After(a.EndDate) {
		return false
	}
	return true
}

// ApprovalRecord documents who approved a course version and when.
type ApprovalRecord struct {
	ID              string    `json:"id"`
	CourseVersionID string    `json:"course_version_id"`
	ApprovedByID    string    `json:"approved_by_id"`
	ApprovalNote    string    `json:"approval_note,omitempty"`
	ApprovedAt      time.Time `json:"approved_at"`
}

type NewCourse struct {
	SubjectCode string `json:"subject_code" validate:"required"`
	GradeBand   string `json:"grade_band" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.SubjectCode = core.CleanString(nc.SubjectCode, true /* lower */)
	return validate.Struct(nc)
}

type NewVersion struct {
	Notes string `json:"notes"`
}

type NewUnit struct {
	UnitNumber int    `json:"unit_number" validate:"required,min=1"`
	Title      string `json:"title" validate:"required"`
	Overview   string `json:"overview"`
}

func (nu *NewUnit) Validate(validate *validator.Validate) error {
	nu.Title = core.CleanString(nu.Title)
	return validate.Struct(nu)
}

type NewLesson struct {
	LessonNumber     int      `json:"lesson_number" validate:"required,min=1"`
	Title            string   `json:"title" validate:"required"`
	CanonicalText    string   `json:"canonical_text" validate:"required"`
	Objectives       []string `json:"objectives"`
	Tags             []string `json:"tags"`
	EstimatedMinutes int      `json:"estimated_minutes" validate:"omitempty,min=1"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	return validate.Struct(nl)
}

type NewAssignment struct {
	CourseVersionID string    `json:"course_version_id" validate:"required"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	if err := validate.Struct(na); err != nil {
		return err
	}
	if !na.StartDate.IsZero() && !na.EndDate.IsZero() && na.EndDate.Before(na.StartDate) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date must not precede start date"})
	}
	return nil
}
