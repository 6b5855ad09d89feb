// Package cache provides a single-slot TTL cache for school listings.
package cache

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flysch/matchd/internal/model"
)

// DefaultTTL is how long a cached listing stays fresh.
const DefaultTTL = 5 * time.Minute

// SchoolCache holds the most recent school listing. It is a single slot:
// whichever fetch completes last owns it, guarded by the fetchedAt stamp so a
// slow stale fetch cannot clobber a fresher one.
type SchoolCache struct {
	mu        sync.Mutex
	schools   []model.School
	fetchedAt time.Time
	ttl       time.Duration
}

// New creates a SchoolCache with the given TTL. Non-positive TTL falls back
// to DefaultTTL.
func New(ttl time.Duration) *SchoolCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SchoolCache{ttl: ttl}
}

// Get returns the cached listing if it is still fresh at the given time.
func (c *SchoolCache) Get(now time.Time) ([]model.School, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.schools == nil || now.Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.schools, true
}

// Put stores a listing stamped with its fetch time. A Put carrying an older
// stamp than the current slot is dropped.
func (c *SchoolCache) Put(schools []model.School, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.schools != nil && fetchedAt.Before(c.fetchedAt) {
		zap.L().Debug("cache: dropping stale put",
			zap.Time("incoming", fetchedAt),
			zap.Time("current", c.fetchedAt),
		)
		return
	}
	c.schools = schools
	c.fetchedAt = fetchedAt
}

// Clear empties the slot.
func (c *SchoolCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schools = nil
	c.fetchedAt = time.Time{}
}
