package user

import (
	"testing"
	"time"

	coreapp "github.com/shulehq/shule/core"
)

func testConfig() *coreapp.Config {
	return &coreapp.Config{
		SecretKey: []byte("secret"),
		Server: coreapp.ServerConfig{
			PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		},
	}
}

func TestMakeVerifyToken(t *testing.T) {
	conf := testConfig()

	now := time.Now()
	usr := User{
		ID:        "a4f2f3c8-0001-4b6f-9c62-000000000001",
		Name:      "T",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken, err := MakeToken(conf, usr)
	if err != nil {
		t.Fatalf("MakeToken() error = %v", err)
	}

	// generate an expired token
	dayLate := conf.Server.PasswordResetTimeoutDelta + (24 * time.Hour)
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := MakeToken(conf, usr)
	if err != nil {
		t.Fatalf("MakeToken() error = %v", err)
	}
	NowFunc = time.Now // reset

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: ErrInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: ErrInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: ErrTokenExpired},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyToken(conf, tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestToken_invalidatedByUse(t *testing.T) {
	conf := testConfig()

	usr := User{ID: "a4f2f3c8-0002-4b6f-9c62-000000000002", IsActive: true}
	_ = usr.SetPassword("pwd")

	token, err := MakeToken(conf, usr)
	if err != nil {
		t.Fatalf("MakeToken() error = %v", err)
	}
	if err = verifyToken(conf, usr, token); err != nil {
		t.Fatalf("verifyToken() error = %v", err)
	}

	// a password change invalidates outstanding tokens
	_ = usr.SetPassword("newpwd")
	if err = verifyToken(conf, usr, token); err != ErrInvalidToken {
		t.Errorf("verifyToken() error = %v, want %v", err, ErrInvalidToken)
	}
}
