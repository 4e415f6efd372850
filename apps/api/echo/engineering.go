package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/audit"
	"github.com/shulehq/shule/core/engineering"
)

type engineeringApi struct {
	svc      engineering.ServiceInterface
	audit    *audit.Recorder
	validate *validator.Validate
}

func registerEngineeringAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc engineering.ServiceInterface, rec *audit.Recorder, validate *validator.Validate) {
	api := engineeringApi{svc: svc, audit: rec, validate: validate}

	eg := g.Group("/engineering", jwt, inspectorReadOnlyMiddleware(rec))

	eg.GET("/projects", api.queryProjects, permission(rec, access.ResourceEngineering, access.ActionRead))
	eg.GET("/projects/:id", api.retrieveProject, permission(rec, access.ResourceEngineering, access.ActionRead))

	eg.POST("/submissions", api.submit, permission(rec, access.ResourceEngineering, access.ActionCreate))
	eg.GET("/submissions", api.querySubmissions, permission(rec, access.ResourceEngineering, access.ActionRead))
	eg.PUT("/submissions/:id/review", api.review, permission(rec, access.ResourceEngineering, access.ActionApprove))

	eg.POST("/sessions", api.logSession, permission(rec, access.ResourceEngineering, access.ActionCreate))
	eg.GET("/sessions/mentors/:id", api.sessionsByMentor, permission(rec, access.ResourceEngineering, access.ActionRead))
	eg.GET("/sessions/mentees/:id", api.sessionsByMentee, permission(rec, access.ResourceEngineering, access.ActionRead))
}

func (api *engineeringApi) queryProjects(ctx echo.Context) error {
	ps, err := api.svc.ListProjects(ctx.Request().Context(), ctx.QueryParam("phase"))
	if err != nil {
		return errors.Wrap(err, "querying engineering projects")
	}
	if ps == nil {
		ps = []engineering.Project{}
	}
	return ctx.JSON(http.StatusOK, ps)
}

func (api *engineeringApi) retrieveProject(ctx echo.Context) error {
	p, err := api.svc.GetProject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *engineeringApi) submit(ctx echo.Context) error {
	var data engineering.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), ident.UserID, data)
	if err != nil {
		return err
	}

	recordAction(ctx, api.audit, string(access.ActionCreate), "engineering_submission", sub.ID,
		map[string]interface{}{"project_id": sub.ProjectID})
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *engineeringApi) querySubmissions(ctx echo.Context) error {
	var filter engineering.SubmissionFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []engineering.ProjectSubmission{})
	}

	// students only ever see their own project work
	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	if ident.Role == access.RoleStudent {
		filter.StudentID = ident.UserID
	}

	subs, err := api.svc.Submissions(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying project submissions")
	}
	if subs == nil {
		subs = []engineering.ProjectSubmission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *engineeringApi) review(ctx echo.Context) error {
	var data ReviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewRequest")
	}
	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	sub, err := api.svc.Review(ctx.Request().Context(), ident.UserID, ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}

	recordAction(ctx, api.audit, string(access.ActionApprove), "engineering_submission", sub.ID,
		map[string]interface{}{"status": string(sub.Status)})
	return ctx.JSON(http.StatusOK, sub)
}

func (api *engineeringApi) logSession(ctx echo.Context) error {
	var data engineering.NewMentorshipSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMentorshipSession")
	}
	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	sess, err := api.svc.LogSession(ctx.Request().Context(), ident.UserID, data)
	if err != nil {
		return err
	}

	recordAction(ctx, api.audit, string(access.ActionCreate), "mentorship_session", sess.ID,
		map[string]interface{}{"mentee_id": sess.MenteeID})
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *engineeringApi) sessionsByMentor(ctx echo.Context) error {
	ss, err := api.svc.SessionsByMentor(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying mentorship sessions")
	}
	if ss == nil {
		ss = []engineering.MentorshipSession{}
	}
	return ctx.JSON(http.StatusOK, ss)
}

func (api *engineeringApi) sessionsByMentee(ctx echo.Context) error {
	ss, err := api.svc.SessionsByMentee(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying mentorship sessions")
	}
	if ss == nil {
		ss = []engineering.MentorshipSession{}
	}
	return ctx.JSON(http.StatusOK, ss)
}

type ReviewRequest struct {
	Status engineering.SubmissionStatus `json:"status"`
}
