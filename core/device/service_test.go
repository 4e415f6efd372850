package device_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulehq/shule/core/device"
	dummydb "github.com/shulehq/shule/storage/database/dummy"
)

func setup(t *testing.T) *device.Service {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	return device.NewService(dummydb.NewDeviceRepository(db))
}

func register(t *testing.T, svc *device.Service, serial string) device.Device {
	t.Helper()
	dev, err := svc.Register(context.Background(), device.NewDevice{
		DeviceType:      device.TypeLaptop,
		SerialNumber:    serial,
		FirmwareVersion: "1.0.0",
	})
	require.NoError(t, err)
	return dev
}

func TestService_Register_duplicateSerial(t *testing.T) {
	svc := setup(t)

	dev := register(t, svc, "SN-001")
	assert.Equal(t, device.StatusActive, dev.Status)

	_, err := svc.Register(context.Background(), device.NewDevice{
		DeviceType:   device.TypePhone,
		SerialNumber: "SN-001",
	})
	assert.Equal(t, device.ErrSerialExists, errors.Cause(err))
}

func TestService_Assign_singleCustodian(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	dev := register(t, svc, "SN-002")

	dev, err := svc.Assign(ctx, device.AssignDevice{DeviceID: dev.ID, StudentID: "student-1"})
	require.NoError(t, err)
	assert.Equal(t, "student-1", dev.AssignedStudentID)

	// reassigning to a teacher clears the student
	dev, err = svc.Assign(ctx, device.AssignDevice{DeviceID: dev.ID, TeacherID: "teacher-1"})
	require.NoError(t, err)
	assert.Empty(t, dev.AssignedStudentID)
	assert.Equal(t, "teacher-1", dev.AssignedTeacherID)
}

func TestService_ReportHealth_alerts(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	intPtr := func(n int) *int { return &n }

	tests := []struct {
		name       string
		report     device.HealthReport
		wantAlerts int
	}{
		{"healthy", device.HealthReport{BatteryHealthPercent: intPtr(80), StorageUsedMB: intPtr(100), StorageTotalMB: intPtr(1000)}, 0},
		{"low battery", device.HealthReport{BatteryHealthPercent: intPtr(15)}, 1},
		{"storage nearly full", device.HealthReport{BatteryHealthPercent: intPtr(80), StorageUsedMB: intPtr(950), StorageTotalMB: intPtr(1000)}, 1},
		{"both", device.HealthReport{BatteryHealthPercent: intPtr(5), StorageUsedMB: intPtr(999), StorageTotalMB: intPtr(1000)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := register(t, svc, "SN-"+tt.name)
			tt.report.DeviceID = dev.ID

			dev, alerts, err := svc.ReportHealth(ctx, tt.report)
			require.NoError(t, err)
			assert.Len(t, alerts, tt.wantAlerts)
			assert.False(t, dev.LastSeenAt.IsZero())
		})
	}
}

func TestService_LogMaintenance(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	dev := register(t, svc, "SN-003")

	evt, err := svc.LogMaintenance(ctx, "tech-1", device.NewMaintenance{
		DeviceID:        dev.ID,
		MaintenanceType: device.MaintenanceRepair,
		Description:     "cracked screen",
		CostUSD:         42.50,
	})
	require.NoError(t, err)
	assert.Equal(t, "tech-1", evt.PerformedBy)

	// repairs flip the device into maintenance status
	dev, err = svc.Get(ctx, dev.ID)
	require.NoError(t, err)
	assert.Equal(t, device.StatusMaintenance, dev.Status)

	history, err := svc.MaintenanceHistory(ctx, dev.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestService_Query_filter(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	lap := register(t, svc, "SN-LAP")
	register(t, svc, "SN-LAP2")
	_, err := svc.Register(ctx, device.NewDevice{DeviceType: device.TypeHub, SerialNumber: "SN-HUB"})
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, lap.ID, device.StatusRetired)
	require.NoError(t, err)

	devs, err := svc.Query(ctx, device.QueryFilter{DeviceType: device.TypeLaptop})
	require.NoError(t, err)
	assert.Len(t, devs, 2)

	devs, err = svc.Query(ctx, device.QueryFilter{DeviceType: device.TypeLaptop, Status: device.StatusRetired})
	require.NoError(t, err)
	assert.Len(t, devs, 1)
}
