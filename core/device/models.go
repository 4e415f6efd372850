package device

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shulehq/shule/core"
)

type DeviceType string

const (
	TypePhone  DeviceType = "phone"
	TypeLaptop DeviceType = "laptop"
	TypeHub    DeviceType = "hub"
)

func KnownDeviceType(t DeviceType) bool {
	return t == TypePhone || t == TypeLaptop || t == TypeHub
}

type Status string

const (
	StatusActive      Status = "active"
	StatusMaintenance Status = "maintenance"
	StatusLost        Status = "lost"
	StatusRetired     Status = "retired"
)

func KnownStatus(s Status) bool {
	return s == StatusActive || s == StatusMaintenance || s == StatusLost || s == StatusRetired
}

type Device struct {
	ID                   string     `json:"id"`
	DeviceType           DeviceType `json:"device_type"`
	SerialNumber         string     `json:"serial_number"`
	HardwareRevision     string     `json:"hardware_revision,omitempty"`
	FirmwareVersion      string     `json:"firmware_version,omitempty"`
	AssignedStudentID    string     `json:"assigned_student_id,omitempty"`
	AssignedTeacherID    string     `json:"assigned_teacher_id,omitempty"`
	Status               Status     `json:"status"`
	LastSeenAt           time.Time  `json:"last_seen_at,omitempty"`
	BatteryHealthPercent *int       `json:"battery_health_percent,omitempty"` // 0-100
	StorageUsedMB        *int       `json:"storage_used_mb,omitempty"`
	StorageTotalMB       *int       `json:"storage_total_mb,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	CreatedAt            time.Time  `json:"created_at"` // UTC
	UpdatedAt            time.Time  `json:"updated_at"` // UTC
}

type MaintenanceType string

const (
	MaintenanceRepair         MaintenanceType = "repair"
	MaintenanceReplacement    MaintenanceType = "replacement"
	MaintenanceFirmwareUpdate MaintenanceType = "firmware_update"
	MaintenanceBatterySwap    MaintenanceType = "battery_swap"
	MaintenancePreventive     MaintenanceType = "preventive"
)

func KnownMaintenanceType(t MaintenanceType) bool {
	switch t {
	case MaintenanceRepair, MaintenanceReplacement, MaintenanceFirmwareUpdate, MaintenanceBatterySwap, MaintenancePreventive:
		return true
	}
	return false
}

type MaintenanceEvent struct {
	ID                 string          `json:"id"`
	DeviceID           string          `json:"device_id"`
	MaintenanceType    MaintenanceType `json:"maintenance_type"`
	Description        string          `json:"description,omitempty"`
	PerformedBy        string          `json:"performed_by,omitempty"`
	CostUSD            float64         `json:"cost_usd,omitempty"`
	PerformedAt        time.Time       `json:"performed_at"`
	NextMaintenanceDue time.Time       `json:"next_maintenance_due,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

type NewDevice struct {
	DeviceType       DeviceType `json:"device_type" validate:"required"`
	SerialNumber     string     `json:"serial_number" validate:"required"`
	HardwareRevision string     `json:"hardware_revision"`
	FirmwareVersion  string     `json:"firmware_version"`
}

func (nd *NewDevice) Validate(validate *validator.Validate) error {
	nd.SerialNumber = core.CleanString(nd.SerialNumber)
	if err := validate.Struct(nd); err != nil {
		return err
	}
	if !KnownDeviceType(nd.DeviceType) {
		return core.NewValidationError(nil, core.FieldError{Field: "device_type", Error: "device type must be phone, laptop or hub"})
	}
	return nil
}

type AssignDevice struct {
	DeviceID  string `json:"device_id" validate:"required"`
	StudentID string `json:"student_id"`
	TeacherID string `json:"teacher_id"`
}

func (ad *AssignDevice) Validate(validate *validator.Validate) error {
	if err := validate.Struct(ad); err != nil {
		return err
	}
	if ad.StudentID == "" && ad.TeacherID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "either student_id or teacher_id is required"})
	}
	return nil
}

type HealthReport struct {
	DeviceID             string `json:"device_id" validate:"required"`
	BatteryHealthPercent *int   `json:"battery_health_percent" validate:"omitempty,min=0,max=100"`
	StorageUsedMB        *int   `json:"storage_used_mb" validate:"omitempty,min=0"`
	StorageTotalMB       *int   `json:"storage_total_mb" validate:"omitempty,min=0"`
}

func (hr *HealthReport) Validate(validate *validator.Validate) error {
	return validate.Struct(hr)
}

type NewMaintenance struct {
	DeviceID           string          `json:"device_id" validate:"required"`
	MaintenanceType    MaintenanceType `json:"maintenance_type" validate:"required"`
	Description        string          `json:"description"`
	CostUSD            float64         `json:"cost_usd" validate:"omitempty,min=0"`
	NextMaintenanceDue time.Time       `json:"next_maintenance_due"`
}

func (nm *NewMaintenance) Validate(validate *validator.Validate) error {
	if err := validate.Struct(nm); err != nil {
		return err
	}
	if !KnownMaintenanceType(nm.MaintenanceType) {
		return core.NewValidationError(nil, core.FieldError{Field: "maintenance_type", Error: "unknown maintenance type"})
	}
	return nil
}

type QueryFilter struct {
	DeviceType DeviceType `query:"device_type"`
	Status     Status     `query:"status"`
}
