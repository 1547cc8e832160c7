package domain

import (
	"math"
	"sort"
)

// RotationalTable maps an assignment length in whole months to a flat credit award.
type RotationalTable struct {
	awards map[int]float64
}

// NewRotationalTable validates and copies the provided awards.
func NewRotationalTable(awards map[int]float64) (RotationalTable, error) {
	out := make(map[int]float64, len(awards))
	for months, credits := range awards {
		if months <= 0 || credits < 0 {
			return RotationalTable{}, ErrInvalidDuration
		}
		out[months] = credits
	}
	return RotationalTable{awards: out}, nil
}

// DefaultRotationalTable returns the built-in duration awards.
func DefaultRotationalTable() RotationalTable {
	return RotationalTable{awards: map[int]float64{
		1:  20,
		2:  30,
		3:  35,
		6:  45,
		9:  65,
		12: 80,
	}}
}

// Lookup returns the award for an integral month count. Fractional or unlisted months do not match.
func (t RotationalTable) Lookup(months float64) (float64, bool) {
	if math.IsNaN(months) || math.IsInf(months, 0) || months != math.Trunc(months) {
		return 0, false
	}
	if months < math.MinInt32 || months > math.MaxInt32 {
		return 0, false
	}
	credits, ok := t.awards[int(months)]
	return credits, ok
}

// Months returns the listed month counts in ascending order.
func (t RotationalTable) Months() []int {
	out := make([]int, 0, len(t.awards))
	for months := range t.awards {
		out = append(out, months)
	}
	sort.Ints(out)
	return out
}

// Award returns the award for a listed month count, or 0.
func (t RotationalTable) Award(months int) float64 {
	return t.awards[months]
}
