package org

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound   = errors.New("organization not found")
	ErrNameExists = errors.New("a record with this name already exists in this scope")
)

type (
	Repository interface {
		CreateDistrict(ctx context.Context, d District) (District, error)
		GetDistrictByID(ctx context.Context, id string) (District, error)
		QueryDistricts(ctx context.Context) ([]District, error)

		CreateSchool(ctx context.Context, s School) (School, error)
		GetSchoolByID(ctx context.Context, id string) (School, error)
		QuerySchools(ctx context.Context, districtID string) ([]School, error)

		CreateCampus(ctx context.Context, c Campus) (Campus, error)
		GetCampusByID(ctx context.Context, id string) (Campus, error)
		QueryCampuses(ctx context.Context, schoolID string) ([]Campus, error)

		CreatePod(ctx context.Context, p Pod) (Pod, error)
		GetPodByID(ctx context.Context, id string) (Pod, error)
		QueryPods(ctx context.Context, schoolID string) ([]Pod, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateDistrict(ctx context.Context, nd NewDistrict) (District, error) {
	now := time.Now().UTC()
	return svc.repo.CreateDistrict(ctx, District{Name: nd.Name, Country: nd.Country, CreatedAt: now, UpdatedAt: now})
}

func (svc *Service) GetDistrict(ctx context.Context, id string) (District, error) {
	return svc.repo.GetDistrictByID(ctx, id)
}

func (svc *Service) QueryDistricts(ctx context.Context) ([]District, error) {
	return svc.repo.QueryDistricts(ctx)
}

func (svc *Service) CreateSchool(ctx context.Context, ns NewSchool) (School, error) {
	if _, err := svc.repo.GetDistrictByID(ctx, ns.DistrictID); err != nil {
		return School{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateSchool(ctx, School{DistrictID: ns.DistrictID, Name: ns.Name, CreatedAt: now, UpdatedAt: now})
}

func (svc *Service) GetSchool(ctx context.Context, id string) (School, error) {
	return svc.repo.GetSchoolByID(ctx, id)
}

func (svc *Service) QuerySchools(ctx context.Context, districtID string) ([]School, error) {
	return svc.repo.QuerySchools(ctx, districtID)
}

func (svc *Service) CreateCampus(ctx context.Context, nc NewCampus) (Campus, error) {
	if _, err := svc.repo.GetSchoolByID(ctx, nc.SchoolID); err != nil {
		return Campus{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateCampus(ctx, Campus{SchoolID: nc.SchoolID, Name: nc.Name, Address: nc.Address, CreatedAt: now, UpdatedAt: now})
}

func (svc *Service) GetCampus(ctx context.Context, id string) (Campus, error) {
	return svc.repo.GetCampusByID(ctx, id)
}

func (svc *Service) QueryCampuses(ctx context.Context, schoolID string) ([]Campus, error) {
	return svc.repo.QueryCampuses(ctx, schoolID)
}

func (svc *Service) CreatePod(ctx context.Context, np NewPod) (Pod, error) {
	if _, err := svc.repo.GetSchoolByID(ctx, np.SchoolID); err != nil {
		return Pod{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreatePod(ctx, Pod{
		SchoolID:          np.SchoolID,
		CampusID:          np.CampusID,
		Name:              np.Name,
		LanguageCode:      np.LanguageCode,
		RotationStartDate: np.RotationStartDate.UTC(),
		RotationEndDate:   np.RotationEndDate.UTC(),
		CreatedAt:         now,
		UpdatedAt:         now,
	})
}

func (svc *Service) GetPod(ctx context.Context, id string) (Pod, error) {
	return svc.repo.GetPodByID(ctx, id)
}

func (svc *Service) QueryPods(ctx context.Context, schoolID string) ([]Pod, error) {
	return svc.repo.QueryPods(ctx, schoolID)
}
