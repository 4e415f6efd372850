package user_test

import (
	"context"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/user"
	emailsvc "github.com/shulehq/shule/services/email"
	dummydb "github.com/shulehq/shule/storage/database/dummy"
)

func testConfig() *core.Config {
	return &core.Config{
		AppName:          "Shule",
		SecretKey:        []byte("secret"),
		DefaultFromEmail: "noreply@test.test",
		FrontendBaseURL:  "http://localhost:3000",
		Server: core.ServerConfig{
			PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		},
	}
}

func setup(t *testing.T) *user.Service {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	conf := testConfig()
	return user.NewService(conf, dummydb.NewUserRepository(db), emailsvc.NewConsoleServiceMock(conf))
}

func create(t *testing.T, svc *user.Service, name, email string) user.User {
	t.Helper()
	nu := user.NewUser{
		Name:            name,
		Email:           email,
		Password:        "Sekr3tPwd!",
		PasswordConfirm: "Sekr3tPwd!",
	}
	require.NoError(t, nu.Validate(validator.New(), svc))
	usr, err := svc.Create(context.Background(), nu)
	require.NoError(t, err)
	return usr
}

func TestService_Create(t *testing.T) {
	svc := setup(t)

	usr := create(t, svc, "Awa Traore", "Awa@Test.CD")
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.IsActive)
	assert.Equal(t, "awa@test.cd", usr.Email) // emails stored lowercase
	assert.NoError(t, usr.CheckPassword("Sekr3tPwd!"))
	assert.Error(t, usr.CheckPassword("nope"))

	// duplicate email
	assert.Error(t, svc.CheckUniqueness("awa@test.cd"))
	assert.NoError(t, svc.CheckUniqueness("awa@test.cd", usr)) // self excluded
}

func TestService_Memberships(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	usr := create(t, svc, "Kofi", "kofi@test.cd")

	_, err := svc.PrimaryMembership(ctx, usr.ID)
	assert.Equal(t, user.ErrNoMembership, errors.Cause(err))

	first, err := svc.Grant(ctx, user.NewMembership{
		UserID: usr.ID,
		Role:   access.RoleTeacher,
		Scope:  access.ScopePod,
		PodID:  "pod-1",
	})
	require.NoError(t, err)
	assert.True(t, first.IsActive)

	_, err = svc.Grant(ctx, user.NewMembership{
		UserID:     usr.ID,
		Role:       access.RolePodLead,
		Scope:      access.ScopePod,
		PodID:      "pod-2",
	})
	require.NoError(t, err)

	// oldest active membership wins
	primary, err := svc.PrimaryMembership(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, primary.ID)

	require.NoError(t, svc.Revoke(ctx, first.ID))
	primary, err = svc.PrimaryMembership(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, access.RolePodLead, primary.Role)

	ms, err := svc.Memberships(ctx, usr.ID)
	require.NoError(t, err)
	assert.Len(t, ms, 2) // revoked memberships stay, deactivated
}

func TestService_PasswordResetFlow(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	usr := create(t, svc, "Zola", "zola@test.cd")

	before := len(emailsvc.SentMessages)
	require.NoError(t, svc.RequestPasswordReset(ctx, "zola@test.cd"))
	require.Len(t, emailsvc.SentMessages, before+1)

	msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
	require.Len(t, msg.To, 1)
	assert.Equal(t, usr.Email, msg.To[0].Address)

	// pull uid & token out of the emailed link
	link := regexp.MustCompile(`https?://\S+`).FindString(msg.BodyStr)
	require.NotEmpty(t, link)
	u, err := url.Parse(link)
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, user.ResetUserPassword{
		UID:             u.Query().Get("uid"),
		Token:           u.Query().Get("token"),
		Password:        "NewSekr3t!",
		PasswordConfirm: "NewSekr3t!",
	})
	require.NoError(t, err)

	usr, err = svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("NewSekr3t!"))

	// token burned by the password change
	err = svc.ResetPassword(ctx, user.ResetUserPassword{
		UID:             u.Query().Get("uid"),
		Token:           u.Query().Get("token"),
		Password:        "AnotherPwd!",
		PasswordConfirm: "AnotherPwd!",
	})
	assert.Equal(t, user.ErrInvalidToken, errors.Cause(err))
}

func TestService_RequestPasswordReset_unknownOrInactive(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	err := svc.RequestPasswordReset(ctx, "ghost@test.cd")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	usr := create(t, svc, "Dormant", "dormant@test.cd")
	inactive := false
	uu := user.UpdateUser{IsActive: &inactive}
	require.NoError(t, uu.Validate(usr, validator.New(), svc))
	_, err = svc.Update(ctx, usr.ID, uu)
	require.NoError(t, err)

	err = svc.RequestPasswordReset(ctx, "dormant@test.cd")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}
