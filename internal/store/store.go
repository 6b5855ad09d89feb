package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/flysch/matchd/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// SchoolFilter specifies server-side criteria for listing schools. All other
// filtering happens in the schools service.
type SchoolFilter struct {
	Search     string            `json:"search,omitempty"`
	TrustTiers []model.TrustTier `json:"trust_tiers,omitempty"`
}

// Store defines the persistence interface for schools and match sessions.
type Store interface {
	// Schools
	ListSchools(ctx context.Context, filter SchoolFilter) ([]model.School, error)
	GetSchool(ctx context.Context, id string) (*model.School, error)
	UpsertSchool(ctx context.Context, school *model.School) error

	// SubscribeSchools blocks, invoking fn with the id of each updated
	// school until ctx is canceled. Backends without change notification
	// return an error immediately.
	SubscribeSchools(ctx context.Context, fn func(schoolID string)) error

	// Match sessions
	InsertMatchSession(ctx context.Context, session *model.MatchSession) error
	ListMatchSessions(ctx context.Context, userID string, limit int) ([]model.MatchSession, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
