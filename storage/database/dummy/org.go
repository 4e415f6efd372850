package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/shulehq/shule/core/org"
)

type orgRepository struct {
	db *orgTable
}

var _ org.Repository = (*orgRepository)(nil) // interface compliance check

func NewOrgRepository(db *DB) *orgRepository {
	return &orgRepository{db: db.org}
}

func (repo *orgRepository) CreateDistrict(_ context.Context, d org.District) (org.District, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.districts {
		if existing.Name == d.Name {
			return org.District{}, org.ErrNameExists
		}
	}
	d.ID = uuid.New().String()
	repo.db.districts[d.ID] = &d
	return d, nil
}

func (repo *orgRepository) GetDistrictByID(_ context.Context, id string) (org.District, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if d, ok := repo.db.districts[id]; ok {
		return *d, nil
	}
	return org.District{}, org.ErrNotFound
}

func (repo *orgRepository) QueryDistricts(_ context.Context) ([]org.District, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ds := make([]org.District, 0, len(repo.db.districts))
	for _, d := range repo.db.districts {
		ds = append(ds, *d)
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].Name < ds[j].Name })
	return ds, nil
}

func (repo *orgRepository) CreateSchool(_ context.Context, s org.School) (org.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.schools {
		if existing.DistrictID == s.DistrictID && existing.Name == s.Name {
			return org.School{}, org.ErrNameExists
		}
	}
	s.ID = uuid.New().String()
	repo.db.schools[s.ID] = &s
	return s, nil
}

func (repo *orgRepository) GetSchoolByID(_ context.Context, id string) (org.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.schools[id]; ok {
		return *s, nil
	}
	return org.School{}, org.ErrNotFound
}

func (repo *orgRepository) QuerySchools(_ context.Context, districtID string) ([]org.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ss := make([]org.School, 0)
	for _, s := range repo.db.schools {
		if s.DistrictID == districtID {
			ss = append(ss, *s)
		}
	}
	sort.Slice(ss, func(i, j int) bool { return ss[i].Name < ss[j].Name })
	return ss, nil
}

func (repo *orgRepository) CreateCampus(_ context.Context, c org.Campus) (org.Campus, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.campuses {
		if existing.SchoolID == c.SchoolID && existing.Name == c.Name {
			return org.Campus{}, org.ErrNameExists
		}
	}
	c.ID = uuid.New().String()
	repo.db.campuses[c.ID] = &c
	return c, nil
}

func (repo *orgRepository) GetCampusByID(_ context.Context, id string) (org.Campus, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.campuses[id]; ok {
		return *c, nil
	}
	return org.Campus{}, org.ErrNotFound
}

func (repo *orgRepository) QueryCampuses(_ context.Context, schoolID string) ([]org.Campus, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cs := make([]org.Campus, 0)
	for _, c := range repo.db.campuses {
		if c.SchoolID == schoolID {
			cs = append(cs, *c)
		}
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
	return cs, nil
}

func (repo *orgRepository) CreatePod(_ context.Context, p org.Pod) (org.Pod, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.pods {
		if existing.SchoolID == p.SchoolID && existing.Name == p.Name {
			return org.Pod{}, org.ErrNameExists
		}
	}
	p.ID = uuid.New().String()
	repo.db.pods[p.ID] = &p
	return p, nil
}

func (repo *orgRepository) GetPodByID(_ context.Context, id string) (org.Pod, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.pods[id]; ok {
		return *p, nil
	}
	return org.Pod{}, org.ErrNotFound
}

func (repo *orgRepository) QueryPods(_ context.Context, schoolID string) ([]org.Pod, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ps := make([]org.Pod, 0)
	for _, p := range repo.db.pods {
		if p.SchoolID == schoolID {
			ps = append(ps, *p)
		}
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
	return ps, nil
}
