package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/user"
)

// addUser creates a user with an active membership. It is the bootstrap
// path for the first district admin, before the API has anyone who could
// call it.
func (cli *commandLine) addUser(name, email, pwd string, role access.Role, scope access.Scope, districtID, schoolID, podID string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	if !access.KnownRole(role) {
		return errors.Errorf("unknown role %q", role)
	}
	if !access.KnownScope(scope) {
		return errors.Errorf("unknown scope %q", scope)
	}

	now := time.Now().UTC()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      core.CleanString(name),
		Email:     email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr, err := cli.usrRepo.CreateUser(ctx, usr)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}

	_, err = cli.usrRepo.CreateMembership(ctx, user.Membership{
		ID:         uuid.New().String(),
		UserID:     usr.ID,
		Role:       role,
		Scope:      scope,
		DistrictID: districtID,
		SchoolID:   schoolID,
		PodID:      podID,
		IsActive:   true,
		CreatedAt:  now,
	})
	return errors.Wrap(err, "creating membership")
}
