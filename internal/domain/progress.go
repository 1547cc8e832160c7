package domain

import "math"

// Progress summarizes accumulated credits against a goal.
type Progress struct {
	Total    float64 `json:"total"`
	Goal     float64 `json:"goal"`
	Percent  float64 `json:"percent"`
	Complete bool    `json:"complete"`
}

// NewProgress computes the percent toward goal, capped at 100.
func NewProgress(total, goal float64) Progress {
	p := Progress{
		Total:    total,
		Goal:     goal,
		Complete: total >= goal,
	}
	if goal > 0 {
		p.Percent = math.Min(total/goal*100, 100)
	}
	return p
}

// Remaining returns credits still needed, never negative.
func (p Progress) Remaining() float64 {
	return math.Max(p.Goal-p.Total, 0)
}

// TotalCredits sums record credits.
func TotalCredits(records []ActivityRecord) float64 {
	var total float64
	for _, r := range records {
		total += r.Credits
	}
	return total
}
