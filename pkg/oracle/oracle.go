// Package oracle ranks flight school candidates with an LLM. It owns its
// request and response types so callers never touch SDK types directly.
package oracle

import (
	"context"

	"github.com/rotisserie/eris"
)

// ErrInvalidResponse indicates the model's reply could not be used: missing
// rankings, missing debrief, or unparseable JSON. Callers fall back to
// rule-based ranking; partial responses are never salvaged.
var ErrInvalidResponse = eris.New("oracle: invalid response")

// Client produces a ranked school list with a prose debrief.
type Client interface {
	Rank(ctx context.Context, req RankRequest) (*RankResult, error)
}

// RankRequest carries the student's requirements and the condensed candidate
// pool sent to the model.
type RankRequest struct {
	Budget                float64
	TrainingGoals         []string
	Schedule              string
	LocationRadiusKm      float64
	PreferredAircraft     []string
	PreferredTrainingType string
	Candidates            []Candidate
}

// Candidate is the condensed school payload included in the prompt.
type Candidate struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Location  string             `json:"location"`
	Programs  []CandidateProgram `json:"programs"`
	Fleet     CandidateFleet     `json:"fleet"`
	TrustTier string             `json:"trustTier"`
	Signals   CandidateSignals   `json:"fspSignals"`
}

// CandidateProgram summarizes one program offering.
type CandidateProgram struct {
	Type      string `json:"type"`
	CostRange string `json:"costRange"`
	Hours     string `json:"hours,omitempty"`
}

// CandidateFleet summarizes fleet composition.
type CandidateFleet struct {
	TotalAircraft int  `json:"totalAircraft"`
	HasSimulators bool `json:"hasSimulators"`
	HasG1000      bool `json:"hasG1000"`
}

// CandidateSignals carries the performance signals the model weighs.
type CandidateSignals struct {
	AvgHoursToPPL    float64 `json:"avgHoursToPPL,omitempty"`
	FleetUtilization float64 `json:"fleetUtilization,omitempty"`
	PassRate         float64 `json:"passRate,omitempty"`
}

// Ranking is one entry of the model's ranked list.
type Ranking struct {
	SchoolID string  `json:"schoolId"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason"`
}

// RankResult is the validated model output.
type RankResult struct {
	Rankings []Ranking `json:"rankings"`
	Debrief  string    `json:"debrief"`
}
