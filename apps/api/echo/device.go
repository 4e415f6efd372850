package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/audit"
	"github.com/shulehq/shule/core/device"
)

type deviceApi struct {
	svc      *device.Service
	audit    *audit.Recorder
	validate *validator.Validate
}

func registerDeviceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *device.Service, rec *audit.Recorder, validate *validator.Validate) {
	api := deviceApi{svc: svc, audit: rec, validate: validate}

	dg := g.Group("/devices", jwt, inspectorReadOnlyMiddleware(rec))
	dg.POST("/register", api.register, permission(rec, access.ResourceDevice, access.ActionCreate))
	dg.GET("", api.query, permission(rec, access.ResourceDevice, access.ActionRead))
	dg.GET("/:id", api.retrieve, permission(rec, access.ResourceDevice, access.ActionRead))
	dg.POST("/assign", api.assign, permission(rec, access.ResourceDevice, access.ActionUpdate))
	dg.POST("/health", api.reportHealth, permission(rec, access.ResourceDevice, access.ActionUpdate))
	dg.PUT("/:id/status", api.setStatus, permission(rec, access.ResourceDevice, access.ActionUpdate))
	dg.POST("/maintenance", api.logMaintenance, permission(rec, access.ResourceDevice, access.ActionUpdate))
	dg.GET("/:id/maintenance", api.maintenanceHistory, permission(rec, access.ResourceDevice, access.ActionRead))
}

func (api *deviceApi) register(ctx echo.Context) error {
	var data device.NewDevice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDevice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	dev, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return err
	}

	recordAction(ctx, api.audit, string(access.ActionCreate), "device", dev.ID,
		map[string]interface{}{"serial_number": dev.SerialNumber})
	return ctx.JSON(http.StatusCreated, dev)
}

func (api *deviceApi) query(ctx echo.Context) error {
	var filter device.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []device.Device{})
	}

	devs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying devices")
	}
	if devs == nil {
		devs = []device.Device{}
	}
	return ctx.JSON(http.StatusOK, devs)
}

func (api *deviceApi) retrieve(ctx echo.Context) error {
	dev, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dev)
}

func (api *deviceApi) assign(ctx echo.Context) error {
	var data device.AssignDevice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignDevice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	dev, err := api.svc.Assign(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "assigning device")
	}

	recordAction(ctx, api.audit, string(access.ActionUpdate), "device", dev.ID,
		map[string]interface{}{"student_id": data.StudentID, "teacher_id": data.TeacherID})
	return ctx.JSON(http.StatusOK, dev)
}

func (api *deviceApi) reportHealth(ctx echo.Context) error {
	var data device.HealthReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to HealthReport")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	dev, alerts, err := api.svc.ReportHealth(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "reporting device health")
	}
	if alerts == nil {
		alerts = []string{}
	}
	return ctx.JSON(http.StatusOK, HealthResponse{Device: dev, Alerts: alerts})
}

func (api *deviceApi) setStatus(ctx echo.Context) error {
	var data SetStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetStatusRequest")
	}
	if !device.KnownStatus(data.Status) {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "unknown device status"})
	}

	dev, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}

	recordAction(ctx, api.audit, string(access.ActionUpdate), "device", dev.ID,
		map[string]interface{}{"status": string(dev.Status)})
	return ctx.JSON(http.StatusOK, dev)
}

func (api *deviceApi) logMaintenance(ctx echo.Context) error {
	var data device.NewMaintenance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaintenance")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	evt, err := api.svc.LogMaintenance(ctx.Request().Context(), ident.UserID, data)
	if err != nil {
		return errors.Wrap(err, "logging maintenance")
	}

	recordAction(ctx, api.audit, string(access.ActionUpdate), "device", data.DeviceID,
		map[string]interface{}{"maintenance_type": string(data.MaintenanceType)})
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *deviceApi) maintenanceHistory(ctx echo.Context) error {
	evts, err := api.svc.MaintenanceHistory(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying maintenance history")
	}
	if evts == nil {
		evts = []device.MaintenanceEvent{}
	}
	return ctx.JSON(http.StatusOK, evts)
}

type (
	SetStatusRequest struct {
		Status device.Status `json:"status"`
	}

	HealthResponse struct {
		Device device.Device `json:"device"`
		Alerts []string      `json:"alerts"`
	}
)
