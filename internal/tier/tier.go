// Package tier derives trust tiers from school performance signals.
package tier

import "github.com/flysch/matchd/internal/model"

// tierRank orders tiers for requirement comparisons.
var tierRank = map[model.TrustTier]int{
	model.TierPremier:    4,
	model.TierVerified:   3,
	model.TierCommunity:  2,
	model.TierUnverified: 1,
}

// scoreWeight maps tiers to the trust factor used in scoring.
var scoreWeight = map[model.TrustTier]float64{
	model.TierPremier:    1.0,
	model.TierVerified:   0.8,
	model.TierCommunity:  0.5,
	model.TierUnverified: 0.3,
}

// Classify derives a school's trust tier from its signals. Thresholds are
// checked top-down so a school lands on the highest tier it qualifies for.
// Missing signals count as zero.
func Classify(s *model.School) model.TrustTier {
	if s == nil {
		return model.TierUnverified
	}

	programs := len(s.Programs)
	sig := s.Signals()
	util := sig.FleetUtilization
	passRate := sig.PassRateFirstAttempt
	satisfaction := sig.StudentSatisfaction

	if util > 75 && programs >= 3 && passRate > 85 && satisfaction >= 4.0 {
		return model.TierPremier
	}

	if (programs >= 3 || util > 70) && (passRate > 75 || satisfaction >= 3.5) {
		return model.TierVerified
	}

	if programs >= 2 || util > 60 {
		return model.TierCommunity
	}

	return model.TierUnverified
}

// Rank returns the ordinal rank of a tier, 1 (Unverified) through 4
// (Premier). Unknown tiers rank as Unverified.
func Rank(t model.TrustTier) int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return tierRank[model.TierUnverified]
}

// MeetsRequirements reports whether a school's derived tier is at or above
// the target tier.
func MeetsRequirements(s *model.School, target model.TrustTier) bool {
	if s == nil {
		return false
	}
	return Rank(Classify(s)) >= Rank(target)
}

// ScoreWeight returns the trust factor for a tier, in [0, 1]. Unknown tiers
// score as Unverified.
func ScoreWeight(t model.TrustTier) float64 {
	if w, ok := scoreWeight[t]; ok {
		return w
	}
	return scoreWeight[model.TierUnverified]
}

// NextTierRecommendations lists concrete improvements that would move a
// school toward the next tier. Premier schools get none.
func NextTierRecommendations(s *model.School) []string {
	if s == nil {
		return nil
	}

	programs := len(s.Programs)
	sig := s.Signals()
	var recs []string

	switch Classify(s) {
	case model.TierUnverified:
		if programs < 2 {
			recs = append(recs, "Add more training programs")
		}
		if sig.FleetUtilization < 60 {
			recs = append(recs, "Improve fleet utilization")
		}
	case model.TierCommunity:
		if programs < 3 {
			recs = append(recs, "Expand program offerings")
		}
		if sig.FleetUtilization < 70 {
			recs = append(recs, "Increase fleet utilization to 70%+")
		}
		if sig.PassRateFirstAttempt < 75 {
			recs = append(recs, "Work on improving pass rates")
		}
	case model.TierVerified:
		if sig.FleetUtilization <= 75 {
			recs = append(recs, "Achieve 75%+ fleet utilization")
		}
		if programs < 3 {
			recs = append(recs, "Offer at least 3 programs")
		}
		if sig.PassRateFirstAttempt <= 85 {
			recs = append(recs, "Improve first-attempt pass rate to 85%+")
		}
		if sig.StudentSatisfaction < 4.0 {
			recs = append(recs, "Increase student satisfaction to 4.0+")
		}
	}

	return recs
}
