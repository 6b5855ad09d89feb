// Package schools fetches, normalizes, and filters school listings on top of
// the store, with a single-slot TTL cache for unfiltered fetches.
package schools

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/flysch/matchd/internal/cache"
	"github.com/flysch/matchd/internal/geo"
	"github.com/flysch/matchd/internal/model"
	"github.com/flysch/matchd/internal/store"
)

// Service provides school listings with normalized locations.
type Service struct {
	store store.Store
	cache *cache.SchoolCache
	now   func() time.Time
}

// New creates a Service over the given store and cache.
func New(st store.Store, c *cache.SchoolCache) *Service {
	return &Service{
		store: st,
		cache: c,
		now:   time.Now,
	}
}

// Fetch returns schools matching the filters. Unfiltered fetches are served
// from the cache when fresh. Search and trust tier narrowing run in the
// store; everything else is applied here after location normalization.
//
// Every fetch result, filtered or not, is written back to the single cache
// slot: a filtered fetch replaces whatever unfiltered listing was cached.
func (s *Service) Fetch(ctx context.Context, filters model.SchoolFilters) ([]model.School, error) {
	filtered := filters.HasFilters()

	if !filtered {
		if cached, ok := s.cache.Get(s.now()); ok {
			zap.L().Debug("schools served from cache", zap.Int("count", len(cached)))
			return cached, nil
		}
	}

	fetchedAt := s.now()
	rows, err := s.store.ListSchools(ctx, store.SchoolFilter{
		Search:     filters.Search,
		TrustTiers: filters.TrustTiers,
	})
	if err != nil {
		return nil, eris.Wrap(err, "schools: list")
	}

	result := make([]model.School, 0, len(rows))
	for _, school := range rows {
		normalize(&school)
		if matchesClientFilters(&school, filters) {
			result = append(result, school)
		}
	}

	s.cache.Put(result, fetchedAt)

	zap.L().Debug("schools fetched",
		zap.Int("total", len(rows)),
		zap.Int("matched", len(result)),
		zap.Bool("filtered", filtered),
	)
	return result, nil
}

// Get returns one school by id with its location normalized.
func (s *Service) Get(ctx context.Context, id string) (*model.School, error) {
	school, err := s.store.GetSchool(ctx, id)
	if err != nil {
		return nil, err
	}
	normalize(school)
	return school, nil
}

// Search returns schools whose names match the query.
func (s *Service) Search(ctx context.Context, query string) ([]model.School, error) {
	return s.Fetch(ctx, model.SchoolFilters{Search: query})
}

// Subscribe streams updated school records until ctx is canceled.
func (s *Service) Subscribe(ctx context.Context, fn func(school *model.School)) error {
	return s.store.SubscribeSchools(ctx, func(schoolID string) {
		school, err := s.Get(ctx, schoolID)
		if err != nil {
			zap.L().Warn("subscribe: fetch updated school failed",
				zap.String("school_id", schoolID),
				zap.Error(err),
			)
			return
		}
		fn(school)
	})
}

// normalize resolves the raw location and defaults the trust tier.
func normalize(school *model.School) {
	school.Location = geo.Normalize(decodeRaw(school.RawLocation))
	if school.TrustTier == "" {
		school.TrustTier = model.TierUnverified
	}
}

// decodeRaw unwraps JSON-encoded location strings so object, GeoJSON and
// array encodings stored as text still classify structurally.
func decodeRaw(raw any) any {
	s, ok := raw.(string)
	if !ok {
		return raw
	}
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded
		}
	}
	return raw
}

func matchesClientFilters(school *model.School, filters model.SchoolFilters) bool {
	if len(filters.Programs) > 0 && !hasAnyProgram(school, filters.Programs) {
		return false
	}

	if filters.TrainingType != "" && !offersTrainingType(school, filters.TrainingType) {
		return false
	}

	if filters.BudgetMin != nil || filters.BudgetMax != nil {
		if !budgetOverlaps(school, filters.BudgetMin, filters.BudgetMax) {
			return false
		}
	}

	if filters.HasSimulator != nil && school.Fleet.HasSimulators() != *filters.HasSimulator {
		return false
	}
	if filters.HasG1000 != nil && school.Fleet.HasG1000() != *filters.HasG1000 {
		return false
	}

	if filters.Location != nil {
		if school.Location == nil {
			return false
		}
		dist := geo.HaversineKm(filters.Location.Center(), *school.Location)
		if dist > filters.Location.RadiusKm {
			return false
		}
	}

	return true
}

func hasAnyProgram(school *model.School, programs []model.ProgramType) bool {
	for _, p := range programs {
		if school.HasProgram(p) {
			return true
		}
	}
	return false
}

func offersTrainingType(school *model.School, t model.TrainingType) bool {
	for _, p := range school.Programs {
		for _, tt := range p.TrainingType {
			if tt == t {
				return true
			}
		}
	}
	return false
}

// budgetOverlaps reports whether any program's cost range intersects the
// requested budget range.
func budgetOverlaps(school *model.School, min, max *float64) bool {
	lo := 0.0
	hi := math.Inf(1)
	if min != nil {
		lo = *min
	}
	if max != nil {
		hi = *max
	}
	for _, p := range school.Programs {
		if p.MinCost <= hi && p.MaxCost >= lo {
			return true
		}
	}
	return false
}
