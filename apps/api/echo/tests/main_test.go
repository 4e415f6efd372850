package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/shulehq/shule/apps/api/echo"
	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/audit"
	"github.com/shulehq/shule/core/curriculum"
	"github.com/shulehq/shule/core/device"
	"github.com/shulehq/shule/core/engineering"
	"github.com/shulehq/shule/core/learning"
	"github.com/shulehq/shule/core/org"
	"github.com/shulehq/shule/core/user"
	emailsvc "github.com/shulehq/shule/services/email"
	logsvc "github.com/shulehq/shule/services/logger"
	dummydb "github.com/shulehq/shule/storage/database/dummy"
)

var (
	app     echoapi.Server
	usrRepo user.Repository
	learnRepo interface {
		learning.Repository
		SetTeacherPods(teacherID string, podIDs ...string)
	}
	engRepo interface {
		engineering.Repository
		AddProject(p engineering.Project) engineering.Project
	}
	auditRec *audit.Recorder

	orgSvc        *org.Service
	curriculumSvc *curriculum.Service
	learningSvc   *learning.Service
	deviceSvc     *device.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errReadOnly     = httpErr{Error: "this role is read-only"}
)

func testConfig() *core.Config {
	return &core.Config{
		TestMode:        true,
		Env:             "TEST",
		AppName:         "Shule",
		SecretKey:       []byte("secret-sauce"),
		FrontendBaseURL: "http://localhost:3000",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
			PasswordResetTimeoutDelta: time.Hour,
		},
	}
}

func TestMain(m *testing.M) {
	conf := testConfig()

	db, err := dummydb.Open()
	if err != nil {
		fmt.Printf("dummydb.Open(): %v", err)
		os.Exit(1)
	}
	usrRepo = dummydb.NewUserRepository(db)
	learnRepo = dummydb.NewLearningRepository(db)
	engRepo = dummydb.NewEngineeringRepository(db)

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)

	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	auditRec = audit.NewRecorder(dummydb.NewAuditRepository(db), logger)
	orgSvc = org.NewService(dummydb.NewOrgRepository(db))
	curriculumSvc = curriculum.NewService(dummydb.NewCurriculumRepository(db))
	learningSvc = learning.NewService(learnRepo, curriculumSvc)
	deviceSvc = device.NewService(dummydb.NewDeviceRepository(db))

	echoapi.ConfigureAuth(conf)
	app = echoapi.NewServer(&echoapi.Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        user.NewService(conf, usrRepo, mailSvc),
		OrgSvc:         orgSvc,
		CurriculumSvc:  curriculumSvc,
		LearningSvc:    learningSvc,
		DeviceSvc:      deviceSvc,
		EngineeringSvc: engineering.NewService(validate, engRepo),
		Audit:          auditRec,
		SignalShutdown: func() {},
	})

	os.Exit(m.Run())
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// createUser persists an active user with one active membership,
// bypassing the service so fixtures do not pollute the audit trail.
func createUser(t *testing.T, name, email, pwd string, role access.Role, scope access.Scope, podID string) (user.User, user.Membership) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	usr := user.User{Name: name, Email: email, IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword(): %v", err)
	}
	usr, err := usrRepo.CreateUser(ctx, usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}

	m, err := usrRepo.CreateMembership(ctx, user.Membership{
		UserID:    usr.ID,
		Role:      role,
		Scope:     scope,
		PodID:     podID,
		IsActive:  true,
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateMembership(): %v", err)
	}
	return usr, m
}

func getToken(t *testing.T, usr user.User, m user.Membership) string {
	t.Helper()
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, m))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// auditEntries reads back the trail for assertions on recorded actions.
func auditEntries(t *testing.T, filter audit.Filter) []audit.Entry {
	t.Helper()
	entries, err := auditRec.Query(context.Background(), filter)
	if err != nil {
		t.Fatalf("auditRec.Query(): %v", err)
	}
	return entries
}
