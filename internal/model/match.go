package model

import "time"

// GeoPoint is a normalized WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within WGS84 bounds.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// GeoFilter restricts results to a radius around a point.
type GeoFilter struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radius"`
}

// Center returns the filter's center point.
func (g GeoFilter) Center() GeoPoint {
	return GeoPoint{Lat: g.Lat, Lng: g.Lng}
}

// MatchInputs captures a student's matching requirements.
type MatchInputs struct {
	MaxBudget             float64       `json:"maxBudget"`
	TrainingGoals         []ProgramType `json:"trainingGoals"`
	PreferredAircraft     []string      `json:"preferredAircraft,omitempty"`
	ScheduleFlexibility   string        `json:"scheduleFlexibility,omitempty"`
	Location              *GeoFilter    `json:"location,omitempty"`
	Financing             bool          `json:"financing,omitempty"`
	VeteranBenefits       bool          `json:"veteranBenefits,omitempty"`
	HousingNeeded         bool          `json:"housingNeeded,omitempty"`
	PreferredTrainingType TrainingType  `json:"preferredTrainingType,omitempty"`
}

// SchoolRanking is a single ranked result with its score and rationale.
type SchoolRanking struct {
	SchoolID string `json:"schoolId"`
	Score    int    `json:"score"`
	Reason   string `json:"reason"`
}

// MatchSession records one completed match run.
type MatchSession struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id,omitempty"`
	Inputs       MatchInputs     `json:"inputs"`
	Rankings     []SchoolRanking `json:"ranked_schools"`
	Debrief      string          `json:"debrief"`
	UsedFallback bool            `json:"used_fallback"`
	CompletedAt  time.Time       `json:"completed_at"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SchoolFilters narrows a school listing.
type SchoolFilters struct {
	Search       string        `json:"search,omitempty"`
	Location     *GeoFilter    `json:"location,omitempty"`
	Programs     []ProgramType `json:"programs,omitempty"`
	TrustTiers   []TrustTier   `json:"trustTiers,omitempty"`
	TrainingType TrainingType  `json:"trainingType,omitempty"`
	BudgetMin    *float64      `json:"budgetMin,omitempty"`
	BudgetMax    *float64      `json:"budgetMax,omitempty"`
	HasSimulator *bool         `json:"hasSimulator,omitempty"`
	HasG1000     *bool         `json:"hasG1000,omitempty"`
}

// HasFilters reports whether any filter field is set. Unfiltered listings are
// eligible for the cached fetch path.
func (f SchoolFilters) HasFilters() bool {
	return f.Search != "" ||
		f.Location != nil ||
		len(f.Programs) > 0 ||
		len(f.TrustTiers) > 0 ||
		f.TrainingType != "" ||
		f.BudgetMin != nil ||
		f.BudgetMax != nil ||
		f.HasSimulator != nil ||
		f.HasG1000 != nil
}
