package device

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound     = errors.New("device not found")
	ErrSerialExists = errors.New("a device with this serial number already exists")
)

const (
	batteryAlertThreshold = 20 // percent health
	storageAlertThreshold = 90 // percent used
)

type (
	Repository interface {
		CreateDevice(ctx context.Context, d Device) (Device, error)
		GetDeviceByID(ctx context.Context, id string) (Device, error)
		GetDeviceBySerial(ctx context.Context, serial string) (Device, error)
		QueryDevices(ctx context.Context, filter QueryFilter) ([]Device, error)
		UpdateDevice(ctx context.Context, d Device) (Device, error)

		CreateMaintenanceEvent(ctx context.Context, e MaintenanceEvent) (MaintenanceEvent, error)
		QueryMaintenanceEvents(ctx context.Context, deviceID string) ([]MaintenanceEvent, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register adds a new device to the fleet. Serial numbers are unique;
// a duplicate yields ErrSerialExists.
func (svc *Service) Register(ctx context.Context, nd NewDevice) (Device, error) {
	if _, err := svc.repo.GetDeviceBySerial(ctx, nd.SerialNumber); err == nil {
		return Device{}, ErrSerialExists
	} else if errors.Cause(err) != ErrNotFound {
		return Device{}, errors.Wrap(err, "checking serial uniqueness")
	}

	now := time.Now().UTC()
	return svc.repo.CreateDevice(ctx, Device{
		DeviceType:       nd.DeviceType,
		SerialNumber:     nd.SerialNumber,
		HardwareRevision: nd.HardwareRevision,
		FirmwareVersion:  nd.FirmwareVersion,
		Status:           StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Device, error) {
	return svc.repo.GetDeviceByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Device, error) {
	return svc.repo.QueryDevices(ctx, filter)
}

// Assign hands a device to a student or a teacher. Assigning to one clears
// the other (a device has a single custodian).
func (svc *Service) Assign(ctx context.Context, ad AssignDevice) (Device, error) {
	dev, err := svc.repo.GetDeviceByID(ctx, ad.DeviceID)
	if err != nil {
		return Device{}, err
	}
	dev.AssignedStudentID = ad.StudentID
	dev.AssignedTeacherID = ad.TeacherID
	dev.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateDevice(ctx, dev)
}

// ReportHealth records the metrics a device phones home with and returns
// operator alerts for low battery health or nearly-full storage.
func (svc *Service) ReportHealth(ctx context.Context, hr HealthReport) (Device, []string, error) {
	dev, err := svc.repo.GetDeviceByID(ctx, hr.DeviceID)
	if err != nil {
		return Device{}, nil, err
	}

	if hr.BatteryHealthPercent != nil {
		dev.BatteryHealthPercent = hr.BatteryHealthPercent
	}
	if hr.StorageUsedMB != nil {
		dev.StorageUsedMB = hr.StorageUsedMB
	}
	if hr.StorageTotalMB != nil {
		dev.StorageTotalMB = hr.StorageTotalMB
	}
	now := time.Now().UTC()
	dev.LastSeenAt = now
	dev.UpdatedAt = now

	dev, err = svc.repo.UpdateDevice(ctx, dev)
	if err != nil {
		return Device{}, nil, err
	}

	var alerts []string
	if dev.BatteryHealthPercent != nil && *dev.BatteryHealthPercent < batteryAlertThreshold {
		alerts = append(alerts, fmt.Sprintf("battery health below %d%%", batteryAlertThreshold))
	}
	if dev.StorageUsedMB != nil && dev.StorageTotalMB != nil && *dev.StorageTotalMB > 0 {
		if usage := float64(*dev.StorageUsedMB) / float64(*dev.StorageTotalMB) * 100; usage > storageAlertThreshold {
			alerts = append(alerts, fmt.Sprintf("storage usage above %d%%", storageAlertThreshold))
		}
	}
	return dev, alerts, nil
}

func (svc *Service) SetStatus(ctx context.Context, id string, status Status) (Device, error) {
	dev, err := svc.repo.GetDeviceByID(ctx, id)
	if err != nil {
		return Device{}, err
	}
	dev.Status = status
	dev.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateDevice(ctx, dev)
}

// LogMaintenance appends a maintenance event; a repair/replacement also
// flips the device into maintenance status.
func (svc *Service) LogMaintenance(ctx context.Context, performedBy string, nm NewMaintenance) (MaintenanceEvent, error) {
	dev, err := svc.repo.GetDeviceByID(ctx, nm.DeviceID)
	if err != nil {
		return MaintenanceEvent{}, err
	}

	now := time.Now().UTC()
	event, err := svc.repo.CreateMaintenanceEvent(ctx, MaintenanceEvent{
		DeviceID:           nm.DeviceID,
		MaintenanceType:    nm.MaintenanceType,
		Description:        nm.Description,
		PerformedBy:        performedBy,
		CostUSD:            nm.CostUSD,
		PerformedAt:        now,
		NextMaintenanceDue: nm.NextMaintenanceDue,
		CreatedAt:          now,
	})
	if err != nil {
		return MaintenanceEvent{}, err
	}

	if nm.MaintenanceType == MaintenanceRepair || nm.MaintenanceType == MaintenanceReplacement {
		dev.Status = StatusMaintenance
		dev.UpdatedAt = now
		if _, err := svc.repo.UpdateDevice(ctx, dev); err != nil {
			return event, errors.Wrap(err, "updating device status")
		}
	}
	return event, nil
}

func (svc *Service) MaintenanceHistory(ctx context.Context, deviceID string) ([]MaintenanceEvent, error) {
	return svc.repo.QueryMaintenanceEvents(ctx, deviceID)
}
