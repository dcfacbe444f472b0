package advice

import (
	"errors"
	"slices"
	"testing"

	"finora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		age  int
		want Tier
	}{
		{0, Child}, {10, Child}, {12, Child},
		{13, Teen}, {17, Teen},
		{18, YoungAdult}, {21, YoungAdult},
		{22, Adult}, {65, Adult},
	}
	for _, tt := range tests {
		got, err := TierFor(tt.age)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "age %d", tt.age)
	}
}

func TestNegativeAgeIsConfigurationError(t *testing.T) {
	_, _, err := AgeTier(-1)
	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "age", cerr.Field)
}

func TestRiskTier(t *testing.T) {
	low, err := RiskTier(models.RiskLow)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fixed Deposits", "PPF", "Recurring Deposit"}, low)

	_, err = RiskTier("Reckless")
	var cerr *ConfigurationError
	assert.True(t, errors.As(err, &cerr))
}

func TestLookupsReturnCopies(t *testing.T) {
	_, list, err := AgeTier(10)
	require.NoError(t, err)
	list[0] = "changed"

	_, again, err := AgeTier(10)
	require.NoError(t, err)
	assert.Equal(t, "Piggy Bank", again[0])
}

func TestBlendedRecommendation_ChildHighRisk(t *testing.T) {
	got, err := BlendedRecommendation(10, models.RiskHigh, 0.2)
	require.NoError(t, err)

	piggy := slices.Index(got, "Piggy Bank")
	crypto := slices.Index(got, "Cryptocurrency")
	require.NotEqual(t, -1, piggy)
	require.NotEqual(t, -1, crypto)
	assert.Less(t, piggy, crypto, "age instruments come before high-risk ones")
	assert.NotContains(t, got, ReduceExpenses)
}

func TestBlendedRecommendation_Deduplicates(t *testing.T) {
	got, err := BlendedRecommendation(30, models.RiskModerate, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"SIPs in Mutual Funds", "PPF", "Index Funds", "Stocks", "Digital Gold"}, got)
}

func TestBlendedRecommendation_NegativeSavings(t *testing.T) {
	got, err := BlendedRecommendation(15, models.RiskLow, -0.25)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, ReduceExpenses, got[0])
	assert.Equal(t, []string{ReduceExpenses, "Recurring Deposit", "Savings Account", "Digital Gold", "Fixed Deposits", "PPF"}, got)
}

func TestRecommend(t *testing.T) {
	rec, err := Recommend(19, models.RiskHigh, -0.1)
	require.NoError(t, err)
	assert.Equal(t, YoungAdult, rec.Tier)
	assert.True(t, rec.Advisory)
	assert.Equal(t, ReduceExpenses, rec.Instruments[0])

	_, err = Recommend(19, "", 0)
	assert.Error(t, err)
}
