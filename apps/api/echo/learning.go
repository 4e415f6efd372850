package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/audit"
	"github.com/shulehq/shule/core/learning"
)

type learningApi struct {
	svc      *learning.Service
	audit    *audit.Recorder
	validate *validator.Validate
}

func registerLearningAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *learning.Service, rec *audit.Recorder, validate *validator.Validate) {
	api := learningApi{svc: svc, audit: rec, validate: validate}

	eg := g.Group("/enrollments", jwt, inspectorReadOnlyMiddleware(rec))
	eg.POST("", api.enroll, permission(rec, access.ResourceStudent, access.ActionUpdate))

	sg := g.Group("/submissions", jwt, inspectorReadOnlyMiddleware(rec))
	sg.POST("", api.submit, permission(rec, access.ResourceSubmission, access.ActionCreate))
	sg.GET("", api.query, permission(rec, access.ResourceSubmission, access.ActionRead))
	sg.GET("/:id", api.retrieve, permission(rec, access.ResourceSubmission, access.ActionRead))
	sg.PUT("/:id", api.update, permission(rec, access.ResourceSubmission, access.ActionUpdate))
	sg.POST("/:id/feedback", api.giveFeedback, permission(rec, access.ResourceSubmission, access.ActionUpdate))
	sg.GET("/:id/feedback", api.queryFeedback, permission(rec, access.ResourceSubmission, access.ActionRead))

	mg := g.Group("/mastery", jwt, inspectorReadOnlyMiddleware(rec))
	mg.POST("", api.upsertMastery, permission(rec, access.ResourceMastery, access.ActionUpdate))
	mg.GET("/students/:id", api.studentMastery, permission(rec, access.ResourceMastery, access.ActionRead))
}

func (api *learningApi) enroll(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), data.StudentID, data.PodID)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}

	recordAction(ctx, api.audit, string(access.ActionUpdate), "enrollment", enr.ID,
		map[string]interface{}{"student_id": enr.StudentID, "pod_id": enr.PodID})
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *learningApi) submit(ctx echo.Context) error {
	var data learning.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), ident.UserID, data)
	if err != nil {
		return errors.Wrap(err, "creating submission")
	}

	recordAction(ctx, api.audit, string(access.ActionCreate), "submission", sub.ID, nil)
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *learningApi) query(ctx echo.Context) error {
	var filter learning.SubmissionFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []learning.Submission{})
	}

	// students only ever see their own submissions
	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	if ident.Role == access.RoleStudent {
		filter.StudentID = ident.UserID
	}

	subs, err := api.svc.QuerySubmissions(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []learning.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *learningApi) retrieve(ctx echo.Context) error {
	sub, err := api.svc.GetSubmission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	if ident.Role == access.RoleStudent && sub.StudentID != ident.UserID {
		return learning.ErrNotOwner
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *learningApi) update(ctx echo.Context) error {
	var data UpdateSubmissionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubmissionRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}
	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	sub, err := api.svc.UpdateSubmission(ctx.Request().Context(), ident.UserID, ctx.Param("id"), data.Content)
	if err != nil {
		return err
	}

	recordAction(ctx, api.audit, string(access.ActionUpdate), "submission", sub.ID, nil)
	return ctx.JSON(http.StatusOK, sub)
}

func (api *learningApi) giveFeedback(ctx echo.Context) error {
	var data learning.NewFeedback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	fb, err := api.svc.GiveFeedback(ctx.Request().Context(), ident.UserID, ctx.Param("id"), data)
	if err != nil {
		return err
	}

	recordAction(ctx, api.audit, string(access.ActionUpdate), "submission", ctx.Param("id"),
		map[string]interface{}{"feedback_id": fb.ID})
	return ctx.JSON(http.StatusCreated, fb)
}

func (api *learningApi) queryFeedback(ctx echo.Context) error {
	fbs, err := api.svc.SubmissionFeedback(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying feedback")
	}
	if fbs == nil {
		fbs = []learning.Feedback{}
	}
	return ctx.JSON(http.StatusOK, fbs)
}

func (api *learningApi) upsertMastery(ctx echo.Context) error {
	var data learning.UpsertMastery
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpsertMastery")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.UpsertMastery(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "upserting mastery record")
	}

	recordAction(ctx, api.audit, string(access.ActionUpdate), "mastery_record", rec.ID,
		map[string]interface{}{"skill_key": rec.SkillKey, "level": string(rec.Level)})
	return ctx.JSON(http.StatusOK, rec)
}

func (api *learningApi) studentMastery(ctx echo.Context) error {
	recs, err := api.svc.StudentMastery(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying mastery records")
	}
	if recs == nil {
		recs = []learning.MasteryRecord{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

type (
	EnrollRequest struct {
		StudentID string `json:"student_id" validate:"required"`
		PodID     string `json:"pod_id" validate:"required"`
	}

	UpdateSubmissionRequest struct {
		Content map[string]interface{} `json:"content" validate:"required"`
	}
)
