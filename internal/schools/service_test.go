package schools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flysch/matchd/internal/cache"
	"github.com/flysch/matchd/internal/model"
	"github.com/flysch/matchd/internal/store"
)

// fakeStore records calls and serves canned schools.
type fakeStore struct {
	store.Store
	schools    []model.School
	listErr    error
	listCalls  int
	lastFilter store.SchoolFilter
}

func (f *fakeStore) ListSchools(ctx context.Context, filter store.SchoolFilter) ([]model.School, error) {
	f.listCalls++
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.School, len(f.schools))
	copy(out, f.schools)
	return out, nil
}

func (f *fakeStore) GetSchool(ctx context.Context, id string) (*model.School, error) {
	for _, s := range f.schools {
		if s.ID == id {
			cp := s
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func newService(schools []model.School) (*Service, *fakeStore) {
	fs := &fakeStore{schools: schools}
	svc := New(fs, cache.New(5*time.Minute))
	return svc, fs
}

func pplSchool(id, name string, location any) model.School {
	return model.School{
		ID:          id,
		Name:        name,
		RawLocation: location,
		Programs: []model.Program{
			{Type: model.ProgramPPL, MinCost: 9000, MaxCost: 13000, TrainingType: []model.TrainingType{model.TrainingPart61}},
		},
	}
}

func TestFetchNormalizesLocations(t *testing.T) {
	svc, _ := newService([]model.School{
		pplSchool("s1", "Alpha", "POINT(-122.4194 37.7749)"),
		pplSchool("s2", "Beta", `{"lat": 34.05, "lng": -118.24}`),
		pplSchool("s3", "Gamma", "garbage"),
	})

	got, err := svc.Fetch(context.Background(), model.SchoolFilters{})
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.NotNil(t, got[0].Location)
	assert.InDelta(t, 37.7749, got[0].Location.Lat, 1e-9)

	// JSON object strings decode before classification.
	require.NotNil(t, got[1].Location)
	assert.InDelta(t, 34.05, got[1].Location.Lat, 1e-9)

	assert.Nil(t, got[2].Location)
}

func TestFetchDefaultsTrustTier(t *testing.T) {
	svc, _ := newService([]model.School{pplSchool("s1", "Alpha", nil)})

	got, err := svc.Fetch(context.Background(), model.SchoolFilters{})
	require.NoError(t, err)
	assert.Equal(t, model.TierUnverified, got[0].TrustTier)
}

func TestFetchUnfilteredUsesCache(t *testing.T) {
	svc, fs := newService([]model.School{pplSchool("s1", "Alpha", nil)})

	_, err := svc.Fetch(context.Background(), model.SchoolFilters{})
	require.NoError(t, err)
	_, err = svc.Fetch(context.Background(), model.SchoolFilters{})
	require.NoError(t, err)

	assert.Equal(t, 1, fs.listCalls, "second unfiltered fetch should hit the cache")
}

func TestFetchFilteredBypassesAndOverwritesCache(t *testing.T) {
	svc, fs := newService([]model.School{
		pplSchool("s1", "Alpha", nil),
		pplSchool("s2", "Beta", nil),
	})

	// Prime the cache with the full listing.
	full, err := svc.Fetch(context.Background(), model.SchoolFilters{})
	require.NoError(t, err)
	assert.Len(t, full, 2)

	// A filtered fetch hits the store and overwrites the slot.
	search := model.SchoolFilters{Search: "Alpha"}
	_, err = svc.Fetch(context.Background(), search)
	require.NoError(t, err)
	assert.Equal(t, 2, fs.listCalls)
	assert.Equal(t, "Alpha", fs.lastFilter.Search)

	// The next unfiltered fetch now sees the filtered listing in the slot.
	cached, err := svc.Fetch(context.Background(), model.SchoolFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, fs.listCalls, "unfiltered fetch served from overwritten slot")
	assert.Len(t, cached, 2, "store-level search already ran; client filters kept both")
}

func TestFetchProgramFilter(t *testing.T) {
	ir := pplSchool("s2", "Beta", nil)
	ir.Programs = []model.Program{{Type: model.ProgramIR, MinCost: 7000, MaxCost: 9000}}

	svc, _ := newService([]model.School{pplSchool("s1", "Alpha", nil), ir})

	got, err := svc.Fetch(context.Background(), model.SchoolFilters{
		Programs: []model.ProgramType{model.ProgramIR},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s2", got[0].ID)
}

func TestFetchBudgetOverlapFilter(t *testing.T) {
	svc, _ := newService([]model.School{pplSchool("s1", "Alpha", nil)})

	lo, hi := 10000.0, 20000.0
	got, err := svc.Fetch(context.Background(), model.SchoolFilters{BudgetMin: &lo, BudgetMax: &hi})
	require.NoError(t, err)
	assert.Len(t, got, 1, "program range 9000-13000 overlaps 10000-20000")

	lo2, hi2 := 14000.0, 20000.0
	got, err = svc.Fetch(context.Background(), model.SchoolFilters{BudgetMin: &lo2, BudgetMax: &hi2})
	require.NoError(t, err)
	assert.Empty(t, got, "no overlap above the program max")
}

func TestFetchTrainingTypeFilter(t *testing.T) {
	svc, _ := newService([]model.School{pplSchool("s1", "Alpha", nil)})

	got, err := svc.Fetch(context.Background(), model.SchoolFilters{TrainingType: model.TrainingPart141})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.Fetch(context.Background(), model.SchoolFilters{TrainingType: model.TrainingPart61})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFetchFleetFilters(t *testing.T) {
	withG1000 := pplSchool("s1", "Alpha", nil)
	withG1000.Fleet = &model.Fleet{
		Aircraft:      []model.Aircraft{{Type: "Cessna 172", Count: 3, HasG1000: true}},
		TotalAircraft: 3,
	}
	plain := pplSchool("s2", "Beta", nil)

	svc, _ := newService([]model.School{withG1000, plain})

	yes := true
	got, err := svc.Fetch(context.Background(), model.SchoolFilters{HasG1000: &yes})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
}

func TestFetchGeoFilter(t *testing.T) {
	sf := pplSchool("s1", "SF School", "POINT(-122.4194 37.7749)")
	la := pplSchool("s2", "LA School", "POINT(-118.2437 34.0522)")
	noLoc := pplSchool("s3", "Nowhere School", nil)

	svc, _ := newService([]model.School{sf, la, noLoc})

	got, err := svc.Fetch(context.Background(), model.SchoolFilters{
		Location: &model.GeoFilter{Lat: 37.7749, Lng: -122.4194, RadiusKm: 100},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID, "LA is out of radius and nil locations are excluded")
}

func TestFetchStoreError(t *testing.T) {
	fs := &fakeStore{listErr: assert.AnError}
	svc := New(fs, cache.New(time.Minute))

	_, err := svc.Fetch(context.Background(), model.SchoolFilters{})
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	svc, _ := newService([]model.School{pplSchool("s1", "Alpha", "POINT(-122.4194 37.7749)")})

	school, err := svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, school.Location)
	assert.InDelta(t, 37.7749, school.Location.Lat, 1e-9)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
