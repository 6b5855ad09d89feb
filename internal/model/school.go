// Package model defines the core domain types for flight school matching.
package model

import (
	"math"
	"time"
)

// TrustTier classifies a school's verification level.
type TrustTier string

const (
	TierPremier    TrustTier = "Premier"
	TierVerified   TrustTier = "Verified"
	TierCommunity  TrustTier = "Community"
	TierUnverified TrustTier = "Unverified"
)

// ProgramType identifies a certificate or rating track.
type ProgramType string

const (
	ProgramPPL  ProgramType = "PPL"
	ProgramIR   ProgramType = "IR"
	ProgramCPL  ProgramType = "CPL"
	ProgramCFI  ProgramType = "CFI"
	ProgramCFII ProgramType = "CFII"
	ProgramMEI  ProgramType = "MEI"
	ProgramATP  ProgramType = "ATP"
)

// TrainingType distinguishes FAA training regulation tracks.
type TrainingType string

const (
	TrainingPart61  TrainingType = "Part 61"
	TrainingPart141 TrainingType = "Part 141"
)

// ProgramHours holds minimum hour requirements per regulation track.
type ProgramHours struct {
	Part61  float64 `json:"part61,omitempty"`
	Part141 float64 `json:"part141,omitempty"`
}

// Program describes a single training offering at a school.
type Program struct {
	Type         ProgramType    `json:"type"`
	MinCost      float64        `json:"minCost"`
	MaxCost      float64        `json:"maxCost"`
	Inclusions   []string       `json:"inclusions,omitempty"`
	MinHours     *ProgramHours  `json:"minHours,omitempty"`
	MaxHours     float64        `json:"maxHours,omitempty"`
	MinMonths    int            `json:"minMonths,omitempty"`
	MaxMonths    int            `json:"maxMonths,omitempty"`
	TrainingType []TrainingType `json:"trainingType,omitempty"`
	Description  string         `json:"description,omitempty"`
}

// MidCost returns the midpoint of the program's cost range.
func (p Program) MidCost() float64 {
	return (p.MinCost + p.MaxCost) / 2
}

// Aircraft describes one aircraft type in a school's fleet.
type Aircraft struct {
	Type       string  `json:"type"`
	Count      int     `json:"count"`
	HasG1000   bool    `json:"hasG1000"`
	HourlyRate float64 `json:"hourlyRate,omitempty"`
}

// Simulators summarizes a school's simulator inventory.
type Simulators struct {
	Count int      `json:"count"`
	Types []string `json:"types,omitempty"`
}

// Fleet describes a school's aircraft and simulators.
type Fleet struct {
	Aircraft      []Aircraft  `json:"aircraft,omitempty"`
	Simulators    *Simulators `json:"simulators,omitempty"`
	TotalAircraft int         `json:"totalAircraft"`
}

// HasSimulators reports whether the fleet includes at least one simulator.
func (f *Fleet) HasSimulators() bool {
	return f != nil && f.Simulators != nil && f.Simulators.Count > 0
}

// HasG1000 reports whether any aircraft in the fleet carries a G1000 panel.
func (f *Fleet) HasG1000() bool {
	if f == nil {
		return false
	}
	for _, a := range f.Aircraft {
		if a.HasG1000 {
			return true
		}
	}
	return false
}

// FSPSignals holds flight school performance signals. Absent signals are
// reported as zero values.
type FSPSignals struct {
	AvgHoursToPPL        float64 `json:"avgHoursToPPL,omitempty"`
	AvgHoursToIR         float64 `json:"avgHoursToIR,omitempty"`
	AvgHoursToCPL        float64 `json:"avgHoursToCPL,omitempty"`
	CancellationRate     float64 `json:"cancellationRate,omitempty"`
	FleetUtilization     float64 `json:"fleetUtilization,omitempty"`
	StudentSatisfaction  float64 `json:"studentSatisfaction,omitempty"`
	PassRateFirstAttempt float64 `json:"passRateFirstAttempt,omitempty"`
	AvgTimeToComplete    float64 `json:"avgTimeToComplete,omitempty"`
}

// School is a flight school record. Location carries the normalized
// coordinates; RawLocation holds whatever encoding the store returned and is
// resolved on fetch.
type School struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Location         *GeoPoint   `json:"location,omitempty"`
	RawLocation      any         `json:"-"`
	Address          string      `json:"address,omitempty"`
	City             string      `json:"city,omitempty"`
	State            string      `json:"state,omitempty"`
	ZipCode          string      `json:"zip_code,omitempty"`
	Country          string      `json:"country,omitempty"`
	Programs         []Program   `json:"programs,omitempty"`
	Fleet            *Fleet      `json:"fleet,omitempty"`
	InstructorsCount int         `json:"instructors_count,omitempty"`
	TrustTier        TrustTier   `json:"trust_tier"`
	FSPSignals       *FSPSignals `json:"fsp_signals,omitempty"`
	VerifiedAt       *time.Time  `json:"verified_at,omitempty"`
	ClaimedBy        string      `json:"claimed_by,omitempty"`
	Website          string      `json:"website,omitempty"`
	Phone            string      `json:"phone,omitempty"`
	Email            string      `json:"email,omitempty"`
	CreatedAt        time.Time   `json:"created_at,omitempty"`
	UpdatedAt        time.Time   `json:"updated_at,omitempty"`
}

// MinProgramCost returns the cheapest program entry cost. Schools with no
// programs return +Inf so budget comparisons exclude them.
func (s *School) MinProgramCost() float64 {
	if len(s.Programs) == 0 {
		return math.Inf(1)
	}
	min := s.Programs[0].MinCost
	for _, p := range s.Programs[1:] {
		if p.MinCost < min {
			min = p.MinCost
		}
	}
	return min
}

// AvgProgramCost returns the mean of per-program cost midpoints, or 0 when
// the school lists no programs.
func (s *School) AvgProgramCost() float64 {
	if len(s.Programs) == 0 {
		return 0
	}
	var sum float64
	for _, p := range s.Programs {
		sum += p.MidCost()
	}
	return sum / float64(len(s.Programs))
}

// HasProgram reports whether the school offers the given program type.
func (s *School) HasProgram(t ProgramType) bool {
	for _, p := range s.Programs {
		if p.Type == t {
			return true
		}
	}
	return false
}

// Signals returns the school's performance signals, zero-valued when absent.
func (s *School) Signals() FSPSignals {
	if s.FSPSignals == nil {
		return FSPSignals{}
	}
	return *s.FSPSignals
}
