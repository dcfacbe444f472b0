// Package advice maps a user's age, risk appetite and savings rate to a
// list of investment instruments. Everything here is a pure lookup.
package advice

import (
	"fmt"
	"slices"

	"finora/internal/models"
)

// Tier is an age bucket.
type Tier string

const (
	Child      Tier = "Child"
	Teen       Tier = "Teen"
	YoungAdult Tier = "YoungAdult"
	Adult      Tier = "Adult"
)

// ReduceExpenses is prefixed to recommendations when spending exceeds income.
const ReduceExpenses = "Reduce expenses"

var ageInstruments = map[Tier][]string{
	Child:      {"Piggy Bank", "Kids Savings Account", "Recurring Deposit"},
	Teen:       {"Recurring Deposit", "Savings Account", "Digital Gold"},
	YoungAdult: {"SIPs in Mutual Funds", "Digital Gold", "Index Funds"},
	Adult:      {"SIPs in Mutual Funds", "PPF", "Index Funds", "Stocks"},
}

var riskInstruments = map[models.RiskAppetite][]string{
	models.RiskLow:      {"Fixed Deposits", "PPF", "Recurring Deposit"},
	models.RiskModerate: {"SIPs in Mutual Funds", "Index Funds", "Digital Gold"},
	models.RiskHigh:     {"Stocks", "Equity Mutual Funds", "Cryptocurrency"},
}

// ConfigurationError reports an input outside the fixed lookup tables.
// Callers validate against the same enums, so it indicates a programming error.
type ConfigurationError struct {
	Field string
	Value any
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("advice: unsupported %s %v", e.Field, e.Value)
}

// TierFor buckets an age: Child up to 12, Teen 13-17, YoungAdult 18-21,
// Adult from 22.
func TierFor(age int) (Tier, error) {
	switch {
	case age < 0:
		return "", &ConfigurationError{Field: "age", Value: age}
	case age <= 12:
		return Child, nil
	case age <= 17:
		return Teen, nil
	case age <= 21:
		return YoungAdult, nil
	default:
		return Adult, nil
	}
}

// AgeTier returns the tier for age and its instruments in recommended order.
func AgeTier(age int) (Tier, []string, error) {
	tier, err := TierFor(age)
	if err != nil {
		return "", nil, err
	}
	return tier, slices.Clone(ageInstruments[tier]), nil
}

// RiskTier returns the instruments for a risk appetite.
func RiskTier(risk models.RiskAppetite) ([]string, error) {
	list, ok := riskInstruments[risk]
	if !ok {
		return nil, &ConfigurationError{Field: "risk appetite", Value: risk}
	}
	return slices.Clone(list), nil
}

// BlendedRecommendation concatenates the age and risk lists, keeping the
// first occurrence of each instrument. A negative savings rate puts the
// ReduceExpenses advisory in front.
func BlendedRecommendation(age int, risk models.RiskAppetite, savingsRate float64) ([]string, error) {
	_, byAge, err := AgeTier(age)
	if err != nil {
		return nil, err
	}
	byRisk, err := RiskTier(risk)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(byAge)+len(byRisk)+1)
	if savingsRate < 0 {
		out = append(out, ReduceExpenses)
	}
	seen := make(map[string]bool, cap(out))
	for _, name := range slices.Concat(byAge, byRisk) {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

// Recommendation is the advice returned to a user.
type Recommendation struct {
	Age          int                 `json:"age"`
	Tier         Tier                `json:"tier"`
	RiskAppetite models.RiskAppetite `json:"risk_appetite"`
	SavingsRate  float64             `json:"savings_rate"`
	Advisory     bool                `json:"advisory"`
	Instruments  []string            `json:"instruments"`
}

// Recommend builds the full Recommendation for the given inputs.
func Recommend(age int, risk models.RiskAppetite, savingsRate float64) (Recommendation, error) {
	tier, err := TierFor(age)
	if err != nil {
		return Recommendation{}, err
	}
	list, err := BlendedRecommendation(age, risk, savingsRate)
	if err != nil {
		return Recommendation{}, err
	}
	return Recommendation{
		Age:          age,
		Tier:         tier,
		RiskAppetite: risk,
		SavingsRate:  savingsRate,
		Advisory:     savingsRate < 0,
		Instruments:  list,
	}, nil
}
