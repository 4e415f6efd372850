package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/audit"
	"github.com/shulehq/shule/core/curriculum"
	"github.com/shulehq/shule/core/device"
	"github.com/shulehq/shule/core/engineering"
	"github.com/shulehq/shule/core/learning"
	"github.com/shulehq/shule/core/org"
	"github.com/shulehq/shule/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc        user.ServiceInterface
		OrgSvc         *org.Service
		CurriculumSvc  *curriculum.Service
		LearningSvc    *learning.Service
		DeviceSvc      *device.Service
		EngineeringSvc engineering.ServiceInterface
		Audit          *audit.Recorder

		SignalShutdown func()
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	debug := s.opts.Conf.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || s.opts.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = debug

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerAuthAPI(v1, jwt, s.opts.UserSvc, s.opts.Audit, s.opts.Validate)
	registerUserAPI(v1, jwt, s.opts.UserSvc, s.opts.Audit, s.opts.Validate)
	registerOrgAPI(v1, jwt, s.opts.OrgSvc, s.opts.Audit, s.opts.Validate)
	registerCurriculumAPI(v1, jwt, s.opts.CurriculumSvc, s.opts.Audit, s.opts.Validate)
	registerLearningAPI(v1, jwt, s.opts.LearningSvc, s.opts.Audit, s.opts.Validate)
	registerDeviceAPI(v1, jwt, s.opts.DeviceSvc, s.opts.Audit, s.opts.Validate)
	registerEngineeringAPI(v1, jwt, s.opts.EngineeringSvc, s.opts.Audit, s.opts.Validate)
	registerAuditAPI(v1, jwt, s.opts.Audit)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Shule API!")
}
