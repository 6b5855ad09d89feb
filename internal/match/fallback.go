package match

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/flysch/matchd/internal/model"
)

// DefaultFallbackLimit caps how many schools the rule-based ranking returns.
const DefaultFallbackLimit = 10

var moneyPrinter = message.NewPrinter(language.AmericanEnglish)

// FallbackRank produces a deterministic ranked list and debrief when the
// oracle is unavailable or returns an unusable reply.
func FallbackRank(candidates []model.School, inputs model.MatchInputs, w Weights, limit int) ([]model.SchoolRanking, string) {
	if limit <= 0 {
		limit = DefaultFallbackLimit
	}

	scores := RankByScore(candidates, inputs, w)
	if len(scores) > limit {
		scores = scores[:limit]
	}

	byID := make(map[string]*model.School, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}

	rankings := make([]model.SchoolRanking, len(scores))
	for i, sc := range scores {
		rankings[i] = model.SchoolRanking{
			SchoolID: sc.SchoolID,
			Score:    sc.Value,
			Reason:   rankReason(byID[sc.SchoolID], sc),
		}
	}

	return rankings, fallbackDebrief(inputs, len(candidates), len(rankings))
}

// rankReason names the school's strongest factor.
func rankReason(s *model.School, sc Score) string {
	best := "budget"
	for _, f := range []string{"programs", "location", "fleet", "trust"} {
		if sc.Factors[f] > sc.Factors[best] {
			best = f
		}
	}

	name := "this school"
	if s != nil {
		name = s.Name
	}

	switch best {
	case "programs":
		return fmt.Sprintf("%s covers your training goals well", name)
	case "location":
		return fmt.Sprintf("%s is conveniently located for you", name)
	case "fleet":
		return fmt.Sprintf("%s has a large, well-equipped fleet", name)
	case "trust":
		return fmt.Sprintf("%s has a strong verified track record", name)
	default:
		return fmt.Sprintf("%s fits your budget closely", name)
	}
}

// fallbackDebrief names the requested programs, the formatted budget, the
// candidate count, and the leading scoring factor.
func fallbackDebrief(inputs model.MatchInputs, candidates, ranked int) string {
	goals := make([]string, len(inputs.TrainingGoals))
	for i, g := range inputs.TrainingGoals {
		goals[i] = string(g)
	}

	budget := moneyPrinter.Sprintf("$%.0f", inputs.MaxBudget)

	return fmt.Sprintf(
		"We found %d schools matching your criteria and ranked the top %d for %s training within your %s budget. Rankings weigh budget fit most heavily, followed by program coverage, location, fleet quality, and trust tier.",
		candidates, ranked, strings.Join(goals, ", "), budget,
	)
}
