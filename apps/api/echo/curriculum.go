package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/audit"
	"github.com/shulehq/shule/core/curriculum"
)

type curriculumApi struct {
	svc      *curriculum.Service
	audit    *audit.Recorder
	validate *validator.Validate
}

func registerCurriculumAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *curriculum.Service, rec *audit.Recorder, validate *validator.Validate) {
	api := curriculumApi{svc: svc, audit: rec, validate: validate}

	cg := g.Group("/courses", jwt, inspectorReadOnlyMiddleware(rec))
	cg.POST("", api.createCourse, permission(rec, access.ResourceCourse, access.ActionCreate))
	cg.GET("", api.queryCourses, permission(rec, access.ResourceCourse, access.ActionRead))
	cg.GET("/:id", api.retrieveCourse, permission(rec, access.ResourceCourse, access.ActionRead))
	cg.POST("/:id/versions", api.createVersion, permission(rec, access.ResourceCourse, access.ActionCreate))
	cg.GET("/:id/versions", api.queryVersions, permission(rec, access.ResourceCourse, access.ActionRead))

	vg := g.Group("/versions", jwt, inspectorReadOnlyMiddleware(rec))
	vg.GET("/:id", api.retrieveVersion, permission(rec, access.ResourceCourse, access.ActionRead))
	vg.POST("/:id/approve", api.approveVersion, permission(rec, access.ResourceCurriculum, access.ActionApprove))
	vg.POST("/:id/units", api.addUnit, permission(rec, access.ResourceCourse, access.ActionUpdate))
	vg.GET("/:id/units", api.queryUnits, permission(rec, access.ResourceCourse, access.ActionRead))

	ug := g.Group("/units", jwt, inspectorReadOnlyMiddleware(rec))
	ug.POST("/:id/lessons", api.addLesson, permission(rec, access.ResourceLesson, access.ActionCreate))
	ug.GET("/:id/lessons", api.queryLessons, permission(rec, access.ResourceLesson, access.ActionRead))

	lg := g.Group("/lessons", jwt, inspectorReadOnlyMiddleware(rec))
	lg.GET("/:id", api.retrieveLesson, permission(rec, access.ResourceLesson, access.ActionRead))
	lg.PUT("/:id", api.updateLesson, permission(rec, access.ResourceLesson, access.ActionUpdate))

	pg := g.Group("/pods", jwt, inspectorReadOnlyMiddleware(rec))
	pg.POST("/:id/courses", api.assignCourse, permission(rec, access.ResourceCurriculum, access.ActionUpdate))
	pg.GET("/:id/courses", api.queryAssignments, permission(rec, access.ResourceCurriculum, access.ActionRead))

	sg := g.Group("/students", jwt, inspectorReadOnlyMiddleware(rec))
	sg.GET("/me/lessons", api.myLessons, permission(rec, access.ResourceLesson, access.ActionRead))
}

func (api *curriculumApi) createCourse(ctx echo.Context) error {
	var data curriculum.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}

	recordAction(ctx, api.audit, string(access.ActionCreate), "course", crs.ID, nil)
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *curriculumApi) queryCourses(ctx echo.Context) error {
	cs, err := api.svc.QueryCourses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if cs == nil {
		cs = []curriculum.Course{}
	}
	return ctx.JSON(http.StatusOK, cs)
}

func (api *curriculumApi) retrieveCourse(ctx echo.Context) error {
	crs, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *curriculumApi) createVersion(ctx echo.Context) error {
	var data curriculum.NewVersion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVersion")
	}
	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	ver, err := api.svc.CreateVersion(ctx.Request().Context(), ctx.Param("id"), ident.UserID, data)
	if err != nil {
		return errors.Wrap(err, "creating course version")
	}

	recordAction(ctx, api.audit, string(access.ActionCreate), "course_version", ver.ID, nil)
	return ctx.JSON(http.StatusCreated, ver)
}

func (api *curriculumApi) queryVersions(ctx echo.Context) error {
	vs, err := api.svc.QueryVersions(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying versions")
	}
	if vs == nil {
		vs = []curriculum.CourseVersion{}
	}
	return ctx.JSON(http.StatusOK, vs)
}

func (api *curriculumApi) retrieveVersion(ctx echo.Context) error {
	ver, err := api.svc.GetVersion(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ver)
}

func (api *curriculumApi) approveVersion(ctx echo.Context) error {
	var data ApproveVersionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApproveVersionRequest")
	}
	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	ver, err := api.svc.ApproveVersion(ctx.Request().Context(), ctx.Param("id"), ident.UserID, data.Note)
	if err != nil {
		return errors.Wrap(err, "approving version")
	}

	recordAction(ctx, api.audit, string(access.ActionApprove), "course_version", ver.ID, nil)
	return ctx.JSON(http.StatusOK, ver)
}

func (api *curriculumApi) addUnit(ctx echo.Context) error {
	var data curriculum.NewUnit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUnit")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	unit, err := api.svc.AddUnit(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding unit")
	}

	recordAction(ctx, api.audit, string(access.ActionUpdate), "course_version", ctx.Param("id"), nil)
	return ctx.JSON(http.StatusCreated, unit)
}

func (api *curriculumApi) queryUnits(ctx echo.Context) error {
	us, err := api.svc.Units(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying units")
	}
	if us == nil {
		us = []curriculum.Unit{}
	}
	return ctx.JSON(http.StatusOK, us)
}

func (api *curriculumApi) addLesson(ctx echo.Context) error {
	var data curriculum.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lsn, err := api.svc.AddLesson(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding lesson")
	}

	recordAction(ctx, api.audit, string(access.ActionCreate), "lesson", lsn.ID, nil)
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *curriculumApi) queryLessons(ctx echo.Context) error {
	ls, err := api.svc.Lessons(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if ls == nil {
		ls = []curriculum.Lesson{}
	}
	return ctx.JSON(http.StatusOK, ls)
}

// retrieveLesson serves two audiences: students go through the pod
// assignment check so a guessed lesson id outside their curriculum is
// denied; staff and inspectors read directly. Student and inspector
// reads leave an audit trail.
func (api *curriculumApi) retrieveLesson(ctx echo.Context) error {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	var lsn curriculum.Lesson
	if ident.Role == access.RoleStudent {
		lsn, err = api.svc.CheckLessonAccess(ctx.Request().Context(), ident.UserID, ctx.Param("id"))
	} else {
		lsn, err = api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	}
	if err != nil {
		return err
	}

	if ident.Role == access.RoleStudent || access.IsInspector(ident.Role) {
		recordAction(ctx, api.audit, string(access.ActionRead), "lesson", lsn.ID, nil)
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *curriculumApi) updateLesson(ctx echo.Context) error {
	var data curriculum.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lsn, err := api.svc.UpdateLesson(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}

	recordAction(ctx, api.audit, string(access.ActionUpdate), "lesson", lsn.ID, nil)
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *curriculumApi) assignCourse(ctx echo.Context) error {
	var data curriculum.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.AssignCourseToPod(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "assigning course to pod")
	}

	recordAction(ctx, api.audit, string(access.ActionUpdate), "pod", a.PodID,
		map[string]interface{}{"course_version_id": a.CourseVersionID})
	return ctx.JSON(http.StatusCreated, a)
}

func (api *curriculumApi) queryAssignments(ctx echo.Context) error {
	as, err := api.svc.PodAssignments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying pod assignments")
	}
	if as == nil {
		as = []curriculum.PodCourseAssignment{}
	}
	return ctx.JSON(http.StatusOK, as)
}

// myLessons resolves the calling student's visible curriculum. A student
// with no active enrollment gets a 403, which is distinct from an enrolled
// student with no assigned courses (an empty list).
func (api *curriculumApi) myLessons(ctx echo.Context) error {
	ident, err := contextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	ls, err := api.svc.VisibleLessons(ctx.Request().Context(), ident.UserID)
	if err != nil {
		return err
	}
	if ls == nil {
		ls = []curriculum.Lesson{}
	}
	return ctx.JSON(http.StatusOK, ls)
}

type ApproveVersionRequest struct {
	Note string `json:"note"`
}
