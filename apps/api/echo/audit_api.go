package echoapi

import (
	"encoding/csv"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/audit"
)

type auditApi struct {
	rec *audit.Recorder
}

func registerAuditAPI(g *echo.Group, jwt echo.MiddlewareFunc, rec *audit.Recorder) {
	api := auditApi{rec: rec}

	ag := g.Group("/audit", jwt, inspectorReadOnlyMiddleware(rec))
	ag.GET("", api.query, permission(rec, access.ResourceAudit, access.ActionRead))
	ag.GET("/export", api.export, permission(rec, access.ResourceAudit, access.ActionExport))
}

func (api *auditApi) query(ctx echo.Context) error {
	var filter audit.Filter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to audit.Filter")
	}

	entries, err := api.rec.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying audit entries")
	}
	if entries == nil {
		entries = []audit.Entry{}
	}

	// inspector reads of the audit trail are themselves audited
	if ident, err := contextIdentity(ctx); err == nil && access.IsInspector(ident.Role) {
		recordAction(ctx, api.rec, string(access.ActionRead), "audit_entry", "", nil)
	}
	return ctx.JSON(http.StatusOK, entries)
}

// export streams the filtered trail as CSV. The export itself is appended
// to the trail, so pulling records leaves a record.
func (api *auditApi) export(ctx echo.Context) error {
	var filter audit.Filter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to audit.Filter")
	}

	entries, err := api.rec.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying audit entries")
	}

	recordAction(ctx, api.rec, string(access.ActionExport), "audit_entry", "",
		map[string]interface{}{"rows": len(entries)})

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="audit-export.csv"`)
	res.WriteHeader(http.StatusOK)

	w := csv.NewWriter(res)
	if err = w.Write([]string{"id", "actor_id", "actor_role", "action", "entity_type", "entity_id", "scope", "district_id", "school_id", "pod_id", "created_at"}); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, e := range entries {
		row := []string{
			e.ID, e.ActorID, string(e.ActorRole), e.Action, e.EntityType, e.EntityID,
			string(e.Scope), e.DistrictID, e.SchoolID, e.PodID, e.CreatedAt.Format(time.RFC3339),
		}
		if err = w.Write(row); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}
	w.Flush()
	return w.Error()
}
