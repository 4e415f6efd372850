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

	"github.com/shulehq/shule/core/device"
)

type deviceRow struct {
	ID                   string      `db:"id"`
	DeviceType           string      `db:"device_type"`
	SerialNumber         string      `db:"serial_number"`
	HardwareRevision     null.String `db:"hardware_revision"`
	FirmwareVersion      null.String `db:"firmware_version"`
	AssignedStudentID    null.String `db:"assigned_student_id"`
	AssignedTeacherID    null.String `db:"assigned_teacher_id"`
	Status               string      `db:"status"`
	LastSeenAt           null.Time   `db:"last_seen_at"`
	BatteryHealthPercent null.Int    `db:"battery_health_percent"`
	StorageUsedMB        null.Int    `db:"storage_used_mb"`
	StorageTotalMB       null.Int    `db:"storage_total_mb"`
	Notes                null.String `db:"notes"`
	CreatedAt            time.Time   `db:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at"`
}

func (r deviceRow) toDevice() device.Device {
	return device.Device{
		ID:                   r.ID,
		DeviceType:           device.DeviceType(r.DeviceType),
		SerialNumber:         r.SerialNumber,
		HardwareRevision:     r.HardwareRevision.String,
		FirmwareVersion:      r.FirmwareVersion.String,
		AssignedStudentID:    r.AssignedStudentID.String,
		AssignedTeacherID:    r.AssignedTeacherID.String,
		Status:               device.Status(r.Status),
		LastSeenAt:           r.LastSeenAt.Time,
		BatteryHealthPercent: r.BatteryHealthPercent.Ptr(),
		StorageUsedMB:        r.StorageUsedMB.Ptr(),
		StorageTotalMB:       r.StorageTotalMB.Ptr(),
		Notes:                r.Notes.String,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

type maintenanceRow struct {
	ID                 string      `db:"id"`
	DeviceID           string      `db:"device_id"`
	MaintenanceType    string      `db:"maintenance_type"`
	Description        null.String `db:"description"`
	PerformedBy        null.String `db:"performed_by"`
	CostUSD            null.Float64 `db:"cost_usd"`
	PerformedAt        time.Time   `db:"performed_at"`
	NextMaintenanceDue null.Time   `db:"next_maintenance_due"`
	CreatedAt          time.Time   `db:"created_at"`
}

func (r maintenanceRow) toEvent() device.MaintenanceEvent {
	return device.MaintenanceEvent{
		ID:                 r.ID,
		DeviceID:           r.DeviceID,
		MaintenanceType:    device.MaintenanceType(r.MaintenanceType),
		Description:        r.Description.String,
		PerformedBy:        r.PerformedBy.String,
		CostUSD:            r.CostUSD.Float64,
		PerformedAt:        r.PerformedAt,
		NextMaintenanceDue: r.NextMaintenanceDue.Time,
		CreatedAt:          r.CreatedAt,
	}
}

type deviceRepository struct {
	db *sqlx.DB
}

var _ device.Repository = (*deviceRepository)(nil) // interface compliance check

func NewDeviceRepository(db *sqlx.DB) *deviceRepository {
	return &deviceRepository{db: db}
}

func (repo deviceRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return device.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo deviceRepository) CreateDevice(ctx context.Context, d device.Device) (device.Device, error) {
	d.ID = uuid.New().String()
	const query = `
		INSERT INTO device (id, device_type, serial_number, hardware_revision, firmware_version,
			assigned_student_id, assigned_teacher_id, status, last_seen_at,
			battery_health_percent, storage_used_mb, storage_total_mb, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := repo.db.ExecContext(ctx, query,
		d.ID, string(d.DeviceType), d.SerialNumber, nullStr(d.HardwareRevision), nullStr(d.FirmwareVersion),
		nullStr(d.AssignedStudentID), nullStr(d.AssignedTeacherID), string(d.Status), nullTime(d.LastSeenAt),
		null.IntFromPtr(d.BatteryHealthPercent), null.IntFromPtr(d.StorageUsedMB), null.IntFromPtr(d.StorageTotalMB),
		nullStr(d.Notes), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return device.Device{}, errors.Wrap(err, "inserting device")
	}
	return d, nil
}

func (repo deviceRepository) GetDeviceByID(ctx context.Context, id string) (device.Device, error) {
	var row deviceRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM device WHERE id = $1`, id); err != nil {
		return device.Device{}, repo.trapNoRowsErr(err, "getting device")
	}
	return row.toDevice(), nil
}

func (repo deviceRepository) GetDeviceBySerial(ctx context.Context, serial string) (device.Device, error) {
	var row deviceRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM device WHERE serial_number = $1`, serial); err != nil {
		return device.Device{}, repo.trapNoRowsErr(err, "getting device by serial")
	}
	return row.toDevice(), nil
}

func (repo deviceRepository) QueryDevices(ctx context.Context, filter device.QueryFilter) ([]device.Device, error) {
	query := `SELECT * FROM device`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}
	if filter.DeviceType != "" {
		conds = append(conds, "device_type = "+arg(string(filter.DeviceType)))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(string(filter.Status)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY serial_number"

	var rows []deviceRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying devices")
	}
	ds := make([]device.Device, 0, len(rows))
	for _, r := range rows {
		ds = append(ds, r.toDevice())
	}
	return ds, nil
}

func (repo deviceRepository) UpdateDevice(ctx context.Context, d device.Device) (device.Device, error) {
	const query = `
		UPDATE device
		SET firmware_version = $2, assigned_student_id = $3, assigned_teacher_id = $4, status = $5,
			last_seen_at = $6, battery_health_percent = $7, storage_used_mb = $8, storage_total_mb = $9,
			notes = $10, updated_at = $11
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		d.ID, nullStr(d.FirmwareVersion), nullStr(d.AssignedStudentID), nullStr(d.AssignedTeacherID), string(d.Status),
		nullTime(d.LastSeenAt), null.IntFromPtr(d.BatteryHealthPercent), null.IntFromPtr(d.StorageUsedMB),
		null.IntFromPtr(d.StorageTotalMB), nullStr(d.Notes), d.UpdatedAt)
	if err != nil {
		return device.Device{}, errors.Wrap(err, "updating device")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return device.Device{}, device.ErrNotFound
	}
	return d, nil
}

func (repo deviceRepository) CreateMaintenanceEvent(ctx context.Context, e device.MaintenanceEvent) (device.MaintenanceEvent, error) {
	e.ID = uuid.New().String()
	const query = `
		INSERT INTO maintenance_event (id, device_id, maintenance_type, description, performed_by, cost_usd, performed_at, next_maintenance_due, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, query,
		e.ID, e.DeviceID, string(e.MaintenanceType), nullStr(e.Description), nullStr(e.PerformedBy),
		null.NewFloat64(e.CostUSD, e.CostUSD > 0), e.PerformedAt, nullTime(e.NextMaintenanceDue), e.CreatedAt)
	if err != nil {
		return device.MaintenanceEvent{}, errors.Wrap(err, "inserting maintenance event")
	}
	return e, nil
}

func (repo deviceRepository) QueryMaintenanceEvents(ctx context.Context, deviceID string) ([]device.MaintenanceEvent, error) {
	var rows []maintenanceRow
	const query = `SELECT * FROM maintenance_event WHERE device_id = $1 ORDER BY performed_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, deviceID); err != nil {
		return nil, errors.Wrap(err, "querying maintenance events")
	}
	events := make([]device.MaintenanceEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toEvent())
	}
	return events, nil
}
