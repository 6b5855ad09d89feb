package match

import (
	"math"
	"sort"

	"github.com/flysch/matchd/internal/geo"
	"github.com/flysch/matchd/internal/model"
	"github.com/flysch/matchd/internal/tier"
)

// Weights are the factor weights for rule-based scoring. They should sum to
// 1.0.
type Weights struct {
	Budget   float64 `yaml:"budget" mapstructure:"budget"`
	Programs float64 `yaml:"programs" mapstructure:"programs"`
	Location float64 `yaml:"location" mapstructure:"location"`
	Fleet    float64 `yaml:"fleet" mapstructure:"fleet"`
	Trust    float64 `yaml:"trust" mapstructure:"trust"`
}

// DefaultWeights mirrors the factor split the oracle is instructed to use.
func DefaultWeights() Weights {
	return Weights{
		Budget:   0.40,
		Programs: 0.30,
		Location: 0.15,
		Fleet:    0.10,
		Trust:    0.05,
	}
}

// Score is a school's rule-based match score with its factor breakdown.
type Score struct {
	SchoolID string             `json:"schoolId"`
	Value    int                `json:"score"`
	Factors  map[string]float64 `json:"factors"`
}

// ScoreSchool computes a 0-100 match score for one candidate.
func ScoreSchool(s *model.School, inputs model.MatchInputs, w Weights) Score {
	budget := budgetFactor(s, inputs.MaxBudget)
	programs := programsFactor(s, inputs.TrainingGoals)
	location := locationFactor(s, inputs.Location)
	fleet := fleetFactor(s)
	trust := tier.ScoreWeight(tier.Classify(s))

	total := w.Budget*budget + w.Programs*programs + w.Location*location + w.Fleet*fleet + w.Trust*trust

	return Score{
		SchoolID: s.ID,
		Value:    int(math.Round(total * 100)),
		Factors: map[string]float64{
			"budget":   budget,
			"programs": programs,
			"location": location,
			"fleet":    fleet,
			"trust":    trust,
		},
	}
}

// RankByScore scores every candidate and sorts descending. The sort is
// stable so equal scores keep their input order.
func RankByScore(candidates []model.School, inputs model.MatchInputs, w Weights) []Score {
	scores := make([]Score, len(candidates))
	for i := range candidates {
		scores[i] = ScoreSchool(&candidates[i], inputs, w)
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Value > scores[j].Value
	})
	return scores
}

// budgetFactor rewards schools whose average program cost sits close to the
// budget, decaying linearly with relative distance.
func budgetFactor(s *model.School, maxBudget float64) float64 {
	if maxBudget <= 0 {
		return 0
	}
	avg := s.AvgProgramCost()
	return clamp01(1 - math.Abs(maxBudget-avg)/maxBudget)
}

// programsFactor is the fraction of requested goals the school offers.
func programsFactor(s *model.School, goals []model.ProgramType) float64 {
	if len(goals) == 0 {
		return 0
	}
	matched := 0
	for _, g := range goals {
		if s.HasProgram(g) {
			matched++
		}
	}
	return float64(matched) / float64(len(goals))
}

// locationFactor decays linearly with distance inside the radius. Without a
// location filter, or when either side lacks coordinates, it is neutral.
func locationFactor(s *model.School, loc *model.GeoFilter) float64 {
	if loc == nil || loc.RadiusKm <= 0 || s.Location == nil {
		return 0.5
	}
	dist := geo.HaversineKm(loc.Center(), *s.Location)
	return clamp01(1 - dist/loc.RadiusKm)
}

// fleetFactor saturates at ten aircraft.
func fleetFactor(s *model.School) float64 {
	if s.Fleet == nil {
		return 0
	}
	return math.Min(1, float64(s.Fleet.TotalAircraft)/10)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
