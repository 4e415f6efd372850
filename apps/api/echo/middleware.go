package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/audit"
)

// inspectorReadOnlyMiddleware is the hard gate for the inspector role:
// any method other than GET or HEAD is rejected regardless of what the
// permission matrix says further down. Denied attempts are audited.
func inspectorReadOnlyMiddleware(rec *audit.Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ident, err := contextIdentity(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context identity")
			}

			method := ctx.Request().Method
			if access.IsInspector(ident.Role) && method != http.MethodGet && method != http.MethodHead {
				rec.Record(ctx.Request().Context(), audit.Entry{
					ActorID:    ident.UserID,
					ActorRole:  ident.Role,
					Action:     audit.ActionAccessDenied,
					EntityType: "route",
					EntityID:   ctx.Path(),
					Scope:      ident.Scope,
					DistrictID: ident.DistrictID,
					SchoolID:   ident.SchoolID,
					PodID:      ident.PodID,
					Meta:       map[string]interface{}{"method": method},
				})
				return errReadOnlyRole
			}
			return next(ctx)
		}
	}
}

// recordAction appends an audit entry for a completed mutation, tagged with
// the caller's identity. meta is optional.
func recordAction(ctx echo.Context, rec *audit.Recorder, action, entityType, entityID string, meta map[string]interface{}) {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return
	}
	rec.Record(ctx.Request().Context(), audit.Entry{
		ActorID:    ident.UserID,
		ActorRole:  ident.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Scope:      ident.Scope,
		DistrictID: ident.DistrictID,
		SchoolID:   ident.SchoolID,
		PodID:      ident.PodID,
		Meta:       meta,
	})
}

// permission gates a route on the role/resource/action matrix. Denied
// attempts are audited with the resource and action that were refused.
func permission(rec *audit.Recorder, resource access.Resource, action access.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ident, err := contextIdentity(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context identity")
			}

			if !access.IsAllowed(ident.Role, resource, action) {
				rec.Record(ctx.Request().Context(), audit.Entry{
					ActorID:    ident.UserID,
					ActorRole:  ident.Role,
					Action:     audit.ActionAccessDenied,
					EntityType: string(resource),
					Scope:      ident.Scope,
					DistrictID: ident.DistrictID,
					SchoolID:   ident.SchoolID,
					PodID:      ident.PodID,
					Meta:       map[string]interface{}{"attempted_action": string(action)},
				})
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
