package learning

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shulehq/shule/core"
)

type SubmissionStatus string

const (
	SubmissionDraft         SubmissionStatus = "draft"
	SubmissionSubmitted     SubmissionStatus = "submitted"
	SubmissionNeedsRevision SubmissionStatus = "needs_revision"
	SubmissionGraded        SubmissionStatus = "graded"
)

type MasteryLevel string

const (
	MasteryNotStarted MasteryLevel = "not_started"
	MasteryEmerging   MasteryLevel = "emerging"
	MasteryDeveloping MasteryLevel = "developing"
	MasteryProficient MasteryLevel = "proficient"
	MasteryMastered   MasteryLevel = "mastered"
)

var masteryLevels = []MasteryLevel{MasteryNotStarted, MasteryEmerging, MasteryDeveloping, MasteryProficient, MasteryMastered}

func KnownMasteryLevel(l MasteryLevel) bool {
	for _, lvl := range masteryLevels {
		if l == lvl {
			return true
		}
	}
	return false
}

type Enrollment struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	PodID     string    `json:"pod_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Submission struct {
	ID          string                 `json:"id"`
	StudentID   string                 `json:"student_id"`
	LessonID    string                 `json:"lesson_id"`
	Status      SubmissionStatus       `json:"status"`
	Content     map[string]interface{} `json:"content"`
	SubmittedAt time.Time              `json:"submitted_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

type Feedback struct {
	ID           string             `json:"id"`
	SubmissionID string             `json:"submission_id"`
	TeacherID    string             `json:"teacher_id"`
	Comment      string             `json:"comment"`
	RubricScores map[string]float64 `json:"rubric_scores,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

type MasteryRecord struct {
	ID        string       `json:"id"`
	StudentID string       `json:"student_id"`
	SkillKey  string       `json:"skill_key"` // e.g. "K1.MATH.NUMBERS.1-10"
	Level     MasteryLevel `json:"level"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type NewSubmission struct {
	LessonID string                 `json:"lesson_id" validate:"required"`
	Content  map[string]interface{} `json:"content" validate:"required"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

type NewFeedback struct {
	Comment      string             `json:"comment" validate:"required"`
	RubricScores map[string]float64 `json:"rubric_scores"`
}

func (nf *NewFeedback) Validate(validate *validator.Validate) error {
	nf.Comment = core.CleanString(nf.Comment)
	return validate.Struct(nf)
}

type UpsertMastery struct {
	StudentID string       `json:"student_id" validate:"required"`
	SkillKey  string       `json:"skill_key" validate:"required"`
	Level     MasteryLevel `json:"level" validate:"required"`
}

func (um *UpsertMastery) Validate(validate *validator.Validate) error {
	if err := validate.Struct(um); err != nil {
		return err
	}
	if !KnownMasteryLevel(um.Level) {
		return core.NewValidationError(nil, core.FieldError{Field: "level", Error: "unknown mastery level"})
	}
	return nil
}

type SubmissionFilter struct {
	StudentID string           `query:"student_id"`
	LessonID  string           `query:"lesson_id"`
	Status    SubmissionStatus `query:"status"`
}
