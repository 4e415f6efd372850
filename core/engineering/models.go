package engineering

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shulehq/shule/core"
)

type SubmissionStatus string

const (
	StatusInProgress    SubmissionStatus = "in_progress"
	StatusSubmitted     SubmissionStatus = "submitted"
	StatusReviewed      SubmissionStatus = "reviewed"
	StatusApproved      SubmissionStatus = "approved"
	StatusNeedsRevision SubmissionStatus = "needs_revision"
)

// Project is a hands-on build within an engineering phase
// (e.g. "G3_FLASHLIGHT", "G8_PHONE_BUILD").
type Project struct {
	ID             string                 `json:"id"`
	PhaseCode      string                 `json:"phase_code"`
	ProjectCode    string                 `json:"project_code"`
	ProjectName    string                 `json:"project_name"`
	Description    string                 `json:"description,omitempty"`
	Instructions   map[string]interface{} `json:"instructions,omitempty"`
	EstimatedHours int                    `json:"estimated_hours,omitempty"`
	IsCapstone     bool                   `json:"is_capstone"`
	CreatedAt      time.Time              `json:"created_at"` // UTC
}

type ProjectSubmission struct {
	ID            string                 `json:"id"`
	StudentID     string                 `json:"student_id"`
	ProjectID     string                 `json:"project_id"`
	DeviceID      string                 `json:"device_id,omitempty"` // when the project results in a device
	Status        SubmissionStatus       `json:"status"`
	Evidence      map[string]interface{} `json:"evidence,omitempty"` // photos/videos/test results refs
	Documentation string                 `json:"documentation,omitempty"`
	MentorID      string                 `json:"mentor_id,omitempty"`
	SubmittedAt   time.Time              `json:"submitted_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// MentorshipSession records a senior student mentoring a junior one.
type MentorshipSession struct {
	ID              string    `json:"id"`
	MentorID        string    `json:"mentor_id"`
	MenteeID        string    `json:"mentee_id"`
	ProjectID       string    `json:"project_id,omitempty"`
	PodID           string    `json:"pod_id,omitempty"`
	SessionDate     time.Time `json:"session_date"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	TopicsCovered   []string  `json:"topics_covered,omitempty"`
	MentorNotes     string    `json:"mentor_notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type NewSubmission struct {
	ProjectID     string                 `json:"project_id" validate:"required"`
	DeviceID      string                 `json:"device_id"`
	Evidence      map[string]interface{} `json:"evidence"`
	Documentation string                 `json:"documentation"`
	MentorID      string                 `json:"mentor_id"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

type NewMentorshipSession struct {
	MenteeID        string    `json:"mentee_id" validate:"required"`
	ProjectID       string    `json:"project_id"`
	PodID           string    `json:"pod_id"`
	SessionDate     time.Time `json:"session_date" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,min=1"`
	TopicsCovered   []string  `json:"topics_covered"`
	MentorNotes     string    `json:"mentor_notes"`
}

func (nm *NewMentorshipSession) Validate(validate *validator.Validate) error {
	nm.MentorNotes = core.CleanString(nm.MentorNotes)
	return validate.Struct(nm)
}

type SubmissionFilter struct {
	StudentID string           `query:"student_id"`
	ProjectID string           `query:"project_id"`
	Status    SubmissionStatus `query:"status"`
}
