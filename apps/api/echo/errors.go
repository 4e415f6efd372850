package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/curriculum"
	"github.com/shulehq/shule/core/device"
	"github.com/shulehq/shule/core/engineering"
	"github.com/shulehq/shule/core/learning"
	"github.com/shulehq/shule/core/org"
	"github.com/shulehq/shule/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errNoActiveMembership   = echo.NewHTTPError(http.StatusForbidden, "no active membership")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errReadOnlyRole         = echo.NewHTTPError(http.StatusForbidden, "this role is read-only")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			code, message = mapDomainErr(origErr)
			if code != http.StatusInternalServerError {
				break
			}

			// any other error is a server error
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// mapDomainErr translates domain sentinel errors into HTTP responses.
func mapDomainErr(err error) (int, interface{}) {
	switch err {
	case user.ErrNotFound, org.ErrNotFound, curriculum.ErrNotFound,
		learning.ErrNotFound, device.ErrNotFound, engineering.ErrNotFound:
		return http.StatusNotFound, err.Error()

	// denied, not empty: a student outside any pod gets an explicit 403
	// distinct from a pod with no assigned curriculum
	case curriculum.ErrNotEnrolled, curriculum.ErrLessonNotAssigned,
		learning.ErrNotOwner, learning.ErrPodMismatch:
		return http.StatusForbidden, err.Error()

	case curriculum.ErrVersionImmutable, curriculum.ErrVersionApproved,
		curriculum.ErrVersionNotApproved, device.ErrSerialExists,
		org.ErrNameExists, user.ErrEmailExists,
		learning.ErrEnrolled, engineering.ErrAlreadyGraded:
		return http.StatusConflict, err.Error()

	case engineering.ErrUnknownStatus, engineering.ErrSelfMentorship:
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, nil
}
