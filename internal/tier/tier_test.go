package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flysch/matchd/internal/model"
)

func schoolWith(programs int, sig model.FSPSignals) *model.School {
	s := &model.School{FSPSignals: &sig}
	for i := 0; i < programs; i++ {
		s.Programs = append(s.Programs, model.Program{Type: model.ProgramPPL})
	}
	return s
}

func TestClassifyPremier(t *testing.T) {
	s := schoolWith(3, model.FSPSignals{
		FleetUtilization:     80,
		PassRateFirstAttempt: 90,
		StudentSatisfaction:  4.2,
	})
	assert.Equal(t, model.TierPremier, Classify(s))
}

func TestClassifyPremierBoundaries(t *testing.T) {
	// Every Premier threshold is strict except satisfaction, which admits 4.0.
	base := model.FSPSignals{FleetUtilization: 80, PassRateFirstAttempt: 90, StudentSatisfaction: 4.0}
	assert.Equal(t, model.TierPremier, Classify(schoolWith(3, base)))

	atUtil := base
	atUtil.FleetUtilization = 75
	assert.NotEqual(t, model.TierPremier, Classify(schoolWith(3, atUtil)))

	atPass := base
	atPass.PassRateFirstAttempt = 85
	assert.NotEqual(t, model.TierPremier, Classify(schoolWith(3, atPass)))

	belowSat := base
	belowSat.StudentSatisfaction = 3.9
	assert.NotEqual(t, model.TierPremier, Classify(schoolWith(3, belowSat)))

	assert.NotEqual(t, model.TierPremier, Classify(schoolWith(2, base)))
}

func TestClassifyVerified(t *testing.T) {
	// Three programs with good pass rate.
	s := schoolWith(3, model.FSPSignals{PassRateFirstAttempt: 80})
	assert.Equal(t, model.TierVerified, Classify(s))

	// High utilization with good satisfaction, few programs.
	s = schoolWith(1, model.FSPSignals{FleetUtilization: 72, StudentSatisfaction: 3.5})
	assert.Equal(t, model.TierVerified, Classify(s))
}

func TestClassifyCommunity(t *testing.T) {
	assert.Equal(t, model.TierCommunity, Classify(schoolWith(2, model.FSPSignals{})))
	assert.Equal(t, model.TierCommunity, Classify(schoolWith(0, model.FSPSignals{FleetUtilization: 65})))
}

func TestClassifyUnverified(t *testing.T) {
	assert.Equal(t, model.TierUnverified, Classify(schoolWith(1, model.FSPSignals{})))
	assert.Equal(t, model.TierUnverified, Classify(nil))
	// Missing signals default to zero.
	assert.Equal(t, model.TierUnverified, Classify(&model.School{Programs: []model.Program{{Type: model.ProgramPPL}}}))
}

func TestRankOrdering(t *testing.T) {
	assert.Greater(t, Rank(model.TierPremier), Rank(model.TierVerified))
	assert.Greater(t, Rank(model.TierVerified), Rank(model.TierCommunity))
	assert.Greater(t, Rank(model.TierCommunity), Rank(model.TierUnverified))
	assert.Equal(t, Rank(model.TierUnverified), Rank(model.TrustTier("bogus")))
}

func TestMeetsRequirements(t *testing.T) {
	verified := schoolWith(3, model.FSPSignals{PassRateFirstAttempt: 80})

	assert.True(t, MeetsRequirements(verified, model.TierVerified))
	assert.True(t, MeetsRequirements(verified, model.TierCommunity))
	assert.True(t, MeetsRequirements(verified, model.TierUnverified))
	assert.False(t, MeetsRequirements(verified, model.TierPremier))
	assert.False(t, MeetsRequirements(nil, model.TierUnverified))
}

func TestScoreWeight(t *testing.T) {
	assert.Equal(t, 1.0, ScoreWeight(model.TierPremier))
	assert.Equal(t, 0.8, ScoreWeight(model.TierVerified))
	assert.Equal(t, 0.5, ScoreWeight(model.TierCommunity))
	assert.Equal(t, 0.3, ScoreWeight(model.TierUnverified))
	assert.Equal(t, 0.3, ScoreWeight(model.TrustTier("bogus")))
}

func TestNextTierRecommendations(t *testing.T) {
	unverified := schoolWith(1, model.FSPSignals{FleetUtilization: 50})
	recs := NextTierRecommendations(unverified)
	assert.Contains(t, recs, "Add more training programs")
	assert.Contains(t, recs, "Improve fleet utilization")

	verified := schoolWith(3, model.FSPSignals{
		FleetUtilization:     72,
		PassRateFirstAttempt: 80,
		StudentSatisfaction:  3.6,
	})
	recs = NextTierRecommendations(verified)
	assert.Contains(t, recs, "Achieve 75%+ fleet utilization")
	assert.Contains(t, recs, "Improve first-attempt pass rate to 85%+")
	assert.Contains(t, recs, "Increase student satisfaction to 4.0+")
	assert.NotContains(t, recs, "Offer at least 3 programs")

	premier := schoolWith(4, model.FSPSignals{
		FleetUtilization:     90,
		PassRateFirstAttempt: 95,
		StudentSatisfaction:  4.8,
	})
	assert.Empty(t, NextTierRecommendations(premier))
	assert.Nil(t, NextTierRecommendations(nil))
}
