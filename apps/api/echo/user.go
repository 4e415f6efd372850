package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/audit"
	"github.com/shulehq/shule/core/user"
)

type userApi struct {
	svc      user.ServiceInterface
	audit    *audit.Recorder
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc user.ServiceInterface, rec *audit.Recorder, validate *validator.Validate) {
	api := userApi{svc: svc, audit: rec, validate: validate}

	ug := g.Group("/users", jwt, inspectorReadOnlyMiddleware(rec))

	ug.POST("", api.create, permission(rec, access.ResourceAdmin, access.ActionCreate))
	ug.GET("", api.query, permission(rec, access.ResourceAdmin, access.ActionRead))
	ug.GET("/roles", api.queryRoles, permission(rec, access.ResourceAdmin, access.ActionRead))
	ug.GET("/:id", api.retrieve, permission(rec, access.ResourceAdmin, access.ActionRead))
	ug.PUT("/:id", api.update, permission(rec, access.ResourceAdmin, access.ActionUpdate))
	ug.DELETE("/:id", api.destroy, permission(rec, access.ResourceAdmin, access.ActionDelete))

	ug.GET("/:id/memberships", api.queryMemberships, permission(rec, access.ResourceAdmin, access.ActionRead))
	ug.POST("/memberships", api.grant, permission(rec, access.ResourceAdmin, access.ActionCreate))
	ug.DELETE("/memberships/:id", api.revoke, permission(rec, access.ResourceAdmin, access.ActionDelete))
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}

	recordAction(ctx, api.audit, string(access.ActionCreate), "user", usr.ID, nil)
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	usr, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(usr, api.validate, api.svc); err != nil {
		return err
	}

	usr, err = api.svc.Update(rctx, usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}

	recordAction(ctx, api.audit, string(access.ActionUpdate), "user", usr.ID, nil)
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	// ctxUser cannot delete themselves
	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	if usr.ID == ident.UserID {
		return errHttpForbidden
	}

	if err = api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}

	recordAction(ctx, api.audit, string(access.ActionDelete), "user", usr.ID, nil)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	perms := make(map[access.Role]map[access.Resource][]access.Action, len(access.AllRoles))
	for _, role := range access.AllRoles {
		perms[role] = access.RolePermissions(role)
	}
	return ctx.JSON(http.StatusOK, perms)
}

func (api *userApi) queryMemberships(ctx echo.Context) error {
	ms, err := api.svc.Memberships(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying memberships")
	}
	if ms == nil {
		ms = []user.Membership{}
	}
	return ctx.JSON(http.StatusOK, ms)
}

func (api *userApi) grant(ctx echo.Context) error {
	var data user.NewMembership
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMembership")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.Grant(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "granting membership")
	}

	recordAction(ctx, api.audit, string(access.ActionCreate), "membership", m.ID, nil)
	return ctx.JSON(http.StatusCreated, m)
}

func (api *userApi) revoke(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := api.svc.Revoke(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "revoking membership")
	}

	recordAction(ctx, api.audit, string(access.ActionDelete), "membership", id, nil)
	return ctx.NoContent(http.StatusNoContent)
}
