package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	echoapi "github.com/shulehq/shule/apps/api/echo"
	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/audit"
	"github.com/shulehq/shule/core/user"
)

func Test_authApi_login(t *testing.T) {
	usr, _ := createUser(t, "Amina", "amina@shule.test", "Passw0rd!", access.RoleTeacher, access.ScopePod, "pod-login")

	body := func(email, pwd string) []byte {
		return marshallObj(t, echoapi.LoginRequest{Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "empty payload", path: "/v1/auth/login", wantCode: http.StatusBadRequest,
			body:     []byte("{}"),
			wantData: marshallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown email", path: "/v1/auth/login", wantCode: http.StatusBadRequest,
			body:     body("ghost@shule.test", "Passw0rd!"),
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", path: "/v1/auth/login", wantCode: http.StatusBadRequest,
			body:     body("amina@shule.test", "nope"),
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{name: "valid credentials", path: "/v1/auth/login", wantCode: http.StatusOK, body: body("amina@shule.test", "Passw0rd!")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling LoginResponse: %v", err)
				}
				if resp.Token == "" {
					t.Error("expected a token")
				}
			}
		})
	}

	// a successful login leaves a trace
	entries := auditEntries(t, audit.Filter{ActorID: usr.ID, Action: audit.ActionLogin})
	if len(entries) != 1 {
		t.Errorf("login audit entries = %d; want 1", len(entries))
	}
}

func Test_authApi_inactiveAccount(t *testing.T) {
	usr, _ := createUser(t, "Dormant", "dormant@shule.test", "Passw0rd!", access.RoleTeacher, access.ScopePod, "pod-login")
	inactive := false
	if _, err := usrRepo.UpdateUser(context.Background(), usr, &inactive); err != nil {
		t.Fatalf("UpdateUser(): %v", err)
	}

	tt := httpTest{
		path: "/v1/auth/login", wantCode: http.StatusForbidden,
		body:     marshallObj(t, echoapi.LoginRequest{Email: "dormant@shule.test", Password: "Passw0rd!"}),
		wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
	}
	req, rec := newRequest(http.MethodPost, tt.path, tt.body)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_authApi_noMembership(t *testing.T) {
	now := time.Now().UTC()
	usr := user.User{Name: "Floating", Email: "floating@shule.test", IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err := usr.SetPassword("Passw0rd!"); err != nil {
		t.Fatalf("SetPassword(): %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}

	tt := httpTest{
		path: "/v1/auth/login", wantCode: http.StatusForbidden,
		body:     marshallObj(t, echoapi.LoginRequest{Email: usr.Email, Password: "Passw0rd!"}),
		wantData: marshallObj(t, httpErr{Error: "no active membership"}),
	}
	req, rec := newRequest(http.MethodPost, tt.path, tt.body)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}
