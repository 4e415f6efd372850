package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/audit"
	"github.com/shulehq/shule/core/org"
)

type orgApi struct {
	svc      *org.Service
	audit    *audit.Recorder
	validate *validator.Validate
}

func registerOrgAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *org.Service, rec *audit.Recorder, validate *validator.Validate) {
	api := orgApi{svc: svc, audit: rec, validate: validate}

	dg := g.Group("/districts", jwt, inspectorReadOnlyMiddleware(rec))
	dg.POST("", api.createDistrict, permission(rec, access.ResourceAdmin, access.ActionCreate))
	dg.GET("", api.queryDistricts, permission(rec, access.ResourceAdmin, access.ActionRead))
	dg.GET("/:id", api.retrieveDistrict, permission(rec, access.ResourceAdmin, access.ActionRead))
	dg.GET("/:id/schools", api.querySchools, permission(rec, access.ResourceAdmin, access.ActionRead))

	sg := g.Group("/schools", jwt, inspectorReadOnlyMiddleware(rec))
	sg.POST("", api.createSchool, permission(rec, access.ResourceAdmin, access.ActionCreate))
	sg.GET("/:id", api.retrieveSchool, permission(rec, access.ResourceAdmin, access.ActionRead))
	sg.GET("/:id/campuses", api.queryCampuses, permission(rec, access.ResourceAdmin, access.ActionRead))
	sg.GET("/:id/pods", api.queryPods, permission(rec, access.ResourceAdmin, access.ActionRead))
	sg.POST("/campuses", api.createCampus, permission(rec, access.ResourceAdmin, access.ActionCreate))

	pg := g.Group("/pods", jwt, inspectorReadOnlyMiddleware(rec))
	pg.POST("", api.createPod, permission(rec, access.ResourceAdmin, access.ActionCreate))
	pg.GET("/:id", api.retrievePod, permission(rec, access.ResourceAdmin, access.ActionRead))
}

func (api *orgApi) createDistrict(ctx echo.Context) error {
	var data org.NewDistrict
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDistrict")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	d, err := api.svc.CreateDistrict(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating district")
	}

	recordAction(ctx, api.audit, string(access.ActionCreate), "district", d.ID, nil)
	return ctx.JSON(http.StatusCreated, d)
}

func (api *orgApi) queryDistricts(ctx echo.Context) error {
	ds, err := api.svc.QueryDistricts(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying districts")
	}
	if ds == nil {
		ds = []org.District{}
	}
	return ctx.JSON(http.StatusOK, ds)
}

func (api *orgApi) retrieveDistrict(ctx echo.Context) error {
	d, err := api.svc.GetDistrict(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *orgApi) createSchool(ctx echo.Context) error {
	var data org.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.CreateSchool(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}

	recordAction(ctx, api.audit, string(access.ActionCreate), "school", s.ID, nil)
	return ctx.JSON(http.StatusCreated, s)
}

func (api *orgApi) retrieveSchool(ctx echo.Context) error {
	s, err := api.svc.GetSchool(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *orgApi) querySchools(ctx echo.Context) error {
	ss, err := api.svc.QuerySchools(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if ss == nil {
		ss = []org.School{}
	}
	return ctx.JSON(http.StatusOK, ss)
}

func (api *orgApi) createCampus(ctx echo.Context) error {
	var data org.NewCampus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCampus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.CreateCampus(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating campus")
	}

	recordAction(ctx, api.audit, string(access.ActionCreate), "campus", c.ID, nil)
	return ctx.JSON(http.StatusCreated, c)
}

func (api *orgApi) queryCampuses(ctx echo.Context) error {
	cs, err := api.svc.QueryCampuses(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying campuses")
	}
	if cs == nil {
		cs = []org.Campus{}
	}
	return ctx.JSON(http.StatusOK, cs)
}

func (api *orgApi) createPod(ctx echo.Context) error {
	var data org.NewPod
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPod")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.CreatePod(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating pod")
	}

	recordAction(ctx, api.audit, string(access.ActionCreate), "pod", p.ID, nil)
	return ctx.JSON(http.StatusCreated, p)
}

func (api *orgApi) retrievePod(ctx echo.Context) error {
	p, err := api.svc.GetPod(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *orgApi) queryPods(ctx echo.Context) error {
	ps, err := api.svc.QueryPods(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying pods")
	}
	if ps == nil {
		ps = []org.Pod{}
	}
	return ctx.JSON(http.StatusOK, ps)
}
