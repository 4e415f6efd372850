package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/shulehq/shule/core/device"
)

type deviceRepository struct {
	db *deviceTable
}

var _ device.Repository = (*deviceRepository)(nil) // interface compliance check

func NewDeviceRepository(db *DB) *deviceRepository {
	return &deviceRepository{db: db.device}
}

func (repo *deviceRepository) CreateDevice(_ context.Context, d device.Device) (device.Device, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	d.ID = uuid.New().String()
	repo.db.devices[d.ID] = &d
	return d, nil
}

func (repo *deviceRepository) GetDeviceByID(_ context.Context, id string) (device.Device, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if d, ok := repo.db.devices[id]; ok {
		return *d, nil
	}
	return device.Device{}, device.ErrNotFound
}

func (repo *deviceRepository) GetDeviceBySerial(_ context.Context, serial string) (device.Device, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, d := range repo.db.devices {
		if d.SerialNumber == serial {
			return *d, nil
		}
	}
	return device.Device{}, device.ErrNotFound
}

func (repo *deviceRepository) QueryDevices(_ context.Context, filter device.QueryFilter) ([]device.Device, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ds := make([]device.Device, 0)
	for _, d := range repo.db.devices {
		if filter.DeviceType != "" && d.DeviceType != filter.DeviceType {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		ds = append(ds, *d)
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].SerialNumber < ds[j].SerialNumber })
	return ds, nil
}

func (repo *deviceRepository) UpdateDevice(_ context.Context, d device.Device) (device.Device, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.devices[d.ID]; !ok {
		return device.Device{}, device.ErrNotFound
	}
	repo.db.devices[d.ID] = &d
	return d, nil
}

func (repo *deviceRepository) CreateMaintenanceEvent(_ context.Context, e device.MaintenanceEvent) (device.MaintenanceEvent, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	e.ID = uuid.New().String()
	repo.db.events[e.ID] = &e
	return e, nil
}

func (repo *deviceRepository) QueryMaintenanceEvents(_ context.Context, deviceID string) ([]device.MaintenanceEvent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := make([]device.MaintenanceEvent, 0)
	for _, e := range repo.db.events {
		if e.DeviceID == deviceID {
			events = append(events, *e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].PerformedAt.After(events[j].PerformedAt) })
	return events, nil
}
