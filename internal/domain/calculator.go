package domain

import (
	"math"
	"strconv"
	"strings"
)

// Calculator derives credits from an activity name and raw value.
type Calculator struct {
	rates      RateTable
	rotational RotationalTable
}

// defaultCalculator backs the package-level helpers.
var defaultCalculator = DefaultCalculator()

// NewCalculator constructs a calculator over explicit tables.
func NewCalculator(rates RateTable, rotational RotationalTable) *Calculator {
	return &Calculator{
		rates:      rates,
		rotational: rotational,
	}
}

// DefaultCalculator returns a calculator over the built-in tables.
func DefaultCalculator() *Calculator {
	return NewCalculator(DefaultRateTable(), DefaultRotationalTable())
}

// Rates returns the calculator's rate table.
func (c *Calculator) Rates() RateTable {
	return c.rates
}

// Rotational returns the calculator's duration table.
func (c *Calculator) Rotational() RotationalTable {
	return c.rotational
}

// Compute returns credits for one activity. Unknown activities and malformed values yield 0.
func (c *Calculator) Compute(activityName string, raw float64) float64 {
	def, ok := c.rates.Lookup(activityName)
	if !ok {
		return 0
	}
	raw = sanitizeRaw(raw)

	var credits float64
	switch def.Rule {
	case RulePerHour, RuleSameAsCourse:
		credits = raw
	case RulePerSemester, RulePerCEU:
		credits = raw * 10
	case RuleRange20To40:
		credits = math.Min(math.Max(raw, RangeRuleMin), RangeRuleMax)
	case RuleDuration:
		credits, _ = c.rotational.Lookup(raw)
	case RuleFlat80:
		credits = FlatRuleCredits
	case RuleTwoPerActivity:
		credits = raw * 2
	case RuleOnePerTwoHours:
		credits = raw / 2
	default:
		credits = raw
	}
	if def.HasCap && credits > def.Cap {
		credits = def.Cap
	}
	return credits
}

// ComputeText coerces raw text to a number before computing. Non-numeric text counts as 0.
func (c *Calculator) ComputeText(activityName, raw string) float64 {
	return c.Compute(activityName, ParseRawValue(raw))
}

// DefaultValue returns the raw value pre-filled when an activity is selected.
func (c *Calculator) DefaultValue(activityName string) float64 {
	def, ok := c.rates.Lookup(activityName)
	if !ok {
		return 0
	}
	switch def.Rule {
	case RuleRange20To40:
		return 30
	case RuleDuration:
		months := c.rotational.Months()
		if len(months) == 0 {
			return 0
		}
		return float64(months[0])
	default:
		return 0
	}
}

// InputHint returns the value label and cap note for an activity.
func (c *Calculator) InputHint(activityName string) (label, capNote string) {
	def, ok := c.rates.Lookup(activityName)
	if !ok {
		return RuleDefault.InputLabel(), ""
	}
	return def.Rule.InputLabel(), def.CapNote()
}

// ComputeCredits computes credits against the built-in tables.
func ComputeCredits(activityName string, raw float64) float64 {
	return defaultCalculator.Compute(activityName, raw)
}

// ComputeCreditsFromText computes credits from raw text against the built-in tables.
func ComputeCreditsFromText(activityName, raw string) float64 {
	return defaultCalculator.ComputeText(activityName, raw)
}

// ParseRawValue parses user-entered text, returning 0 for anything non-numeric.
func ParseRawValue(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return sanitizeRaw(v)
}

// sanitizeRaw folds NaN, infinities and negatives to 0.
func sanitizeRaw(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// formatCredits renders credits without trailing zeros.
func formatCredits(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
