package org_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulehq/shule/core/org"
	dummydb "github.com/shulehq/shule/storage/database/dummy"
)

func setup(t *testing.T) *org.Service {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	return org.NewService(dummydb.NewOrgRepository(db))
}

func TestService_Districts(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	d, err := svc.CreateDistrict(ctx, org.NewDistrict{Name: "Kilifi", Country: "KE"})
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.False(t, d.CreatedAt.IsZero())

	got, err := svc.GetDistrict(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Name, got.Name)

	_, err = svc.CreateDistrict(ctx, org.NewDistrict{Name: "Kilifi", Country: "KE"})
	assert.Equal(t, org.ErrNameExists, errors.Cause(err))

	_, err = svc.GetDistrict(ctx, "nope")
	assert.Equal(t, org.ErrNotFound, errors.Cause(err))
}

func TestService_SchoolsScopedToDistrict(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	_, err := svc.CreateSchool(ctx, org.NewSchool{DistrictID: "missing", Name: "Mnarani Primary"})
	assert.Equal(t, org.ErrNotFound, errors.Cause(err))

	d1, err := svc.CreateDistrict(ctx, org.NewDistrict{Name: "Kilifi", Country: "KE"})
	require.NoError(t, err)
	d2, err := svc.CreateDistrict(ctx, org.NewDistrict{Name: "Mombasa", Country: "KE"})
	require.NoError(t, err)

	s1, err := svc.CreateSchool(ctx, org.NewSchool{DistrictID: d1.ID, Name: "Mnarani Primary"})
	require.NoError(t, err)
	_, err = svc.CreateSchool(ctx, org.NewSchool{DistrictID: d1.ID, Name: "Mnarani Primary"})
	assert.Equal(t, org.ErrNameExists, errors.Cause(err))

	// same name in another district is fine
	_, err = svc.CreateSchool(ctx, org.NewSchool{DistrictID: d2.ID, Name: "Mnarani Primary"})
	require.NoError(t, err)

	ss, err := svc.QuerySchools(ctx, d1.ID)
	require.NoError(t, err)
	require.Len(t, ss, 1)
	assert.Equal(t, s1.ID, ss[0].ID)
}

func TestService_PodsAndCampuses(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	d, err := svc.CreateDistrict(ctx, org.NewDistrict{Name: "Kilifi", Country: "KE"})
	require.NoError(t, err)
	sch, err := svc.CreateSchool(ctx, org.NewSchool{DistrictID: d.ID, Name: "Mnarani Primary"})
	require.NoError(t, err)

	c, err := svc.CreateCampus(ctx, org.NewCampus{SchoolID: sch.ID, Name: "Main", Address: "Mnarani Rd"})
	require.NoError(t, err)

	start := time.Now().UTC()
	p, err := svc.CreatePod(ctx, org.NewPod{
		SchoolID:          sch.ID,
		CampusID:          c.ID,
		Name:              "Baobab",
		LanguageCode:      "sw",
		RotationStartDate: start,
		RotationEndDate:   start.AddDate(0, 3, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, sch.ID, p.SchoolID)

	_, err = svc.CreatePod(ctx, org.NewPod{SchoolID: "missing", Name: "Acacia", LanguageCode: "en",
		RotationStartDate: start, RotationEndDate: start.AddDate(0, 3, 0)})
	assert.Equal(t, org.ErrNotFound, errors.Cause(err))

	pods, err := svc.QueryPods(ctx, sch.ID)
	require.NoError(t, err)
	require.Len(t, pods, 1)
	assert.Equal(t, p.ID, pods[0].ID)

	campuses, err := svc.QueryCampuses(ctx, sch.ID)
	require.NoError(t, err)
	assert.Len(t, campuses, 1)
}
