package match

import (
	"math"
	"sort"

	"github.com/flysch/matchd/internal/geo"
	"github.com/flysch/matchd/internal/model"
)

// Filter applies the hard constraints that decide candidacy: cheapest program
// within budget, at least one training goal offered, and inside the search
// radius when a location is given.
func Filter(schools []model.School, inputs model.MatchInputs) []model.School {
	var candidates []model.School
	for i := range schools {
		if isCandidate(&schools[i], inputs) {
			candidates = append(candidates, schools[i])
		}
	}
	return candidates
}

func isCandidate(s *model.School, inputs model.MatchInputs) bool {
	return withinBudget(s, inputs.MaxBudget) &&
		matchesGoals(s, inputs.TrainingGoals) &&
		withinRadius(s, inputs.Location)
}

// withinBudget requires the cheapest program entry cost to fit the budget.
// A school with no programs has an infinite entry cost and never qualifies.
func withinBudget(s *model.School, maxBudget float64) bool {
	return s.MinProgramCost() <= maxBudget
}

// matchesGoals requires at least one requested goal to be offered (OR
// semantics across goals).
func matchesGoals(s *model.School, goals []model.ProgramType) bool {
	for _, g := range goals {
		if s.HasProgram(g) {
			return true
		}
	}
	return false
}

// withinRadius passes schools when no location filter is set. With a filter,
// schools without a resolvable location are excluded.
func withinRadius(s *model.School, loc *model.GeoFilter) bool {
	if loc == nil {
		return true
	}
	if s.Location == nil {
		return false
	}
	return geo.HaversineKm(loc.Center(), *s.Location) <= loc.RadiusKm
}

// Diagnose explains an empty candidate pool: the cheapest entry cost across
// all schools, which requested programs nobody offers, how many schools sit
// inside the radius, and per-constraint pass counts.
func Diagnose(schools []model.School, inputs model.MatchInputs) Diagnostics {
	d := Diagnostics{
		TotalSchools:    len(schools),
		MinBudgetNeeded: math.Inf(1),
		SchoolsInRadius: -1,
	}

	offered := make(map[model.ProgramType]bool)
	for i := range schools {
		s := &schools[i]

		if c := s.MinProgramCost(); c < d.MinBudgetNeeded {
			d.MinBudgetNeeded = c
		}
		for _, p := range s.Programs {
			offered[p.Type] = true
		}

		if withinBudget(s, inputs.MaxBudget) {
			d.FilterBreakdown.BudgetMatches++
		}
		if matchesGoals(s, inputs.TrainingGoals) {
			d.FilterBreakdown.ProgramMatches++
		}
		if withinRadius(s, inputs.Location) {
			d.FilterBreakdown.LocationMatches++
		}
	}

	if math.IsInf(d.MinBudgetNeeded, 1) {
		d.MinBudgetNeeded = 0
	}

	for p := range offered {
		d.AvailablePrograms = append(d.AvailablePrograms, p)
	}
	sort.Slice(d.AvailablePrograms, func(i, j int) bool {
		return d.AvailablePrograms[i] < d.AvailablePrograms[j]
	})
	for _, g := range inputs.TrainingGoals {
		if !offered[g] {
			d.MissingPrograms = append(d.MissingPrograms, g)
		}
	}

	if inputs.Location != nil {
		d.SchoolsInRadius = 0
		for i := range schools {
			if withinRadius(&schools[i], inputs.Location) {
				d.SchoolsInRadius++
			}
		}
	}

	return d
}
