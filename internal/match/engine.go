package match

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/flysch/matchd/internal/model"
	"github.com/flysch/matchd/internal/schools"
	"github.com/flysch/matchd/internal/store"
	"github.com/flysch/matchd/pkg/oracle"
)

// DefaultOracleTimeout bounds how long a single oracle call may take before
// the engine falls back to rule-based ranking.
const DefaultOracleTimeout = 30 * time.Second

// Engine orchestrates a match run: fetch, filter, rank (oracle or fallback),
// and persist the session.
type Engine struct {
	schools       *schools.Service
	store         store.Store
	oracle        oracle.Client // nil means always use the fallback
	weights       Weights
	fallbackLimit int
	oracleTimeout time.Duration
	now           func() time.Time
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	Oracle        oracle.Client
	Weights       Weights
	FallbackLimit int
	OracleTimeout time.Duration
}

// NewEngine creates a match engine over the schools service and store.
func NewEngine(svc *schools.Service, st store.Store, opts EngineOptions) *Engine {
	w := opts.Weights
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	limit := opts.FallbackLimit
	if limit <= 0 {
		limit = DefaultFallbackLimit
	}
	timeout := opts.OracleTimeout
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	return &Engine{
		schools:       svc,
		store:         st,
		oracle:        opts.Oracle,
		weights:       w,
		fallbackLimit: limit,
		oracleTimeout: timeout,
		now:           time.Now,
	}
}

// Run executes a match for the given inputs and records the session. A
// session insert failure is logged but does not fail the match.
func (e *Engine) Run(ctx context.Context, userID string, inputs model.MatchInputs) (*model.MatchSession, error) {
	if inputs.MaxBudget <= 0 || len(inputs.TrainingGoals) == 0 {
		return nil, ErrInvalidInputs
	}

	all, err := e.schools.Fetch(ctx, model.SchoolFilters{})
	if err != nil {
		return nil, eris.Wrap(err, "match: fetch schools")
	}
	if len(all) == 0 {
		return nil, ErrNoSchools
	}

	candidates := Filter(all, inputs)
	if len(candidates) == 0 {
		return nil, &NoCandidatesError{Diagnostics: Diagnose(all, inputs)}
	}

	rankings, debrief, usedFallback := e.rank(ctx, candidates, inputs)

	now := e.now().UTC()
	session := &model.MatchSession{
		ID:           uuid.New().String(),
		UserID:       userID,
		Inputs:       inputs,
		Rankings:     rankings,
		Debrief:      debrief,
		UsedFallback: usedFallback,
		CompletedAt:  now,
		CreatedAt:    now,
	}

	if err := e.store.InsertMatchSession(ctx, session); err != nil {
		zap.L().Warn("match: session insert failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}

	zap.L().Info("match complete",
		zap.String("session_id", session.ID),
		zap.Int("candidates", len(candidates)),
		zap.Int("ranked", len(rankings)),
		zap.Bool("fallback", usedFallback),
	)
	return session, nil
}

// rank asks the oracle first and falls back to rule-based ranking on any
// failure: transport error, timeout, or a structurally invalid reply.
func (e *Engine) rank(ctx context.Context, candidates []model.School, inputs model.MatchInputs) ([]model.SchoolRanking, string, bool) {
	if e.oracle == nil {
		rankings, debrief := FallbackRank(candidates, inputs, e.weights, e.fallbackLimit)
		return rankings, debrief, true
	}

	oracleCtx, cancel := context.WithTimeout(ctx, e.oracleTimeout)
	defer cancel()

	result, err := e.oracle.Rank(oracleCtx, buildRankRequest(candidates, inputs))
	if err != nil {
		zap.L().Warn("match: oracle ranking failed, using fallback", zap.Error(err))
		rankings, debrief := FallbackRank(candidates, inputs, e.weights, e.fallbackLimit)
		return rankings, debrief, true
	}

	rankings := make([]model.SchoolRanking, len(result.Rankings))
	for i, r := range result.Rankings {
		rankings[i] = model.SchoolRanking{
			SchoolID: r.SchoolID,
			Score:    int(r.Score),
			Reason:   r.Reason,
		}
	}
	return rankings, result.Debrief, false
}

// buildRankRequest condenses candidates into the oracle's prompt payload.
func buildRankRequest(candidates []model.School, inputs model.MatchInputs) oracle.RankRequest {
	req := oracle.RankRequest{
		Budget:                inputs.MaxBudget,
		Schedule:              inputs.ScheduleFlexibility,
		PreferredAircraft:     inputs.PreferredAircraft,
		PreferredTrainingType: string(inputs.PreferredTrainingType),
	}
	for _, g := range inputs.TrainingGoals {
		req.TrainingGoals = append(req.TrainingGoals, string(g))
	}
	if inputs.Location != nil {
		req.LocationRadiusKm = inputs.Location.RadiusKm
	}

	for i := range candidates {
		req.Candidates = append(req.Candidates, condense(&candidates[i]))
	}
	return req
}

func condense(s *model.School) oracle.Candidate {
	c := oracle.Candidate{
		ID:        s.ID,
		Name:      s.Name,
		Location:  s.City + ", " + s.State,
		TrustTier: string(s.TrustTier),
	}

	for _, p := range s.Programs {
		cp := oracle.CandidateProgram{
			Type:      string(p.Type),
			CostRange: moneyPrinter.Sprintf("$%.0f-$%.0f", p.MinCost, p.MaxCost),
		}
		if p.MinHours != nil && p.MinHours.Part61 > 0 {
			cp.Hours = moneyPrinter.Sprintf("%.0f+ hours", p.MinHours.Part61)
		}
		c.Programs = append(c.Programs, cp)
	}

	if s.Fleet != nil {
		c.Fleet = oracle.CandidateFleet{
			TotalAircraft: s.Fleet.TotalAircraft,
			HasSimulators: s.Fleet.HasSimulators(),
			HasG1000:      s.Fleet.HasG1000(),
		}
	}

	sig := s.Signals()
	c.Signals = oracle.CandidateSignals{
		AvgHoursToPPL:    sig.AvgHoursToPPL,
		FleetUtilization: sig.FleetUtilization,
		PassRate:         sig.PassRateFirstAttempt,
	}
	return c
}
