package org

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shulehq/shule/core"
)

type District struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type School struct {
	ID         string    `json:"id"`
	DistrictID string    `json:"district_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Campus struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pod is a mixed-age, language-scoped instructional group within a campus;
// the unit to which curriculum is assigned and through which students
// access lessons.
type Pod struct {
	ID                string    `json:"id"`
	SchoolID          string    `json:"school_id"`
	CampusID          string    `json:"campus_id,omitempty"`
	Name              string    `json:"name"`
	LanguageCode      string    `json:"language_code"`
	RotationStartDate time.Time `json:"rotation_start_date"`
	RotationEndDate   time.Time `json:"rotation_end_date"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type NewDistrict struct {
	Name    string `json:"name" validate:"required"`
	Country string `json:"country"`
}

func (nd *NewDistrict) Validate(validate *validator.Validate) error {
	nd.Name = core.CleanString(nd.Name)
	return validate.Struct(nd)
}

type NewSchool struct {
	DistrictID string `json:"district_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

type NewCampus struct {
	SchoolID string `json:"school_id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Address  string `json:"address"`
}

func (nc *NewCampus) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type NewPod struct {
	SchoolID          string    `json:"school_id" validate:"required"`
	CampusID          string    `json:"campus_id"`
	Name              string    `json:"name" validate:"required"`
	LanguageCode      string    `json:"language_code" validate:"required,max=12"`
	RotationStartDate time.Time `json:"rotation_start_date" validate:"required"`
	RotationEndDate   time.Time `json:"rotation_end_date" validate:"required,gtfield=RotationStartDate"`
}

func (np *NewPod) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	np.LanguageCode = core.CleanString(np.LanguageCode, true /* lower */)
	return validate.Struct(np)
}
