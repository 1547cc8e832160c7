package domain

import "strings"

// DefaultGoal applies to unrecognized qualifications.
const DefaultGoal = 80.0

// QualificationGoal pairs a qualification standard with its credit goal.
type QualificationGoal struct {
	Qualification string  `json:"qualification"`
	Goal          float64 `json:"goal"`
}

// GoalTable resolves qualification names to credit goals.
type GoalTable struct {
	entries  []QualificationGoal
	byName   map[string]float64
	fallback float64
}

// NewGoalTable builds a goal table with a fallback for unknown qualifications.
func NewGoalTable(fallback float64, entries ...QualificationGoal) (GoalTable, error) {
	if fallback < 0 {
		return GoalTable{}, ErrInvalidGoal
	}
	t := GoalTable{
		entries:  make([]QualificationGoal, 0, len(entries)),
		byName:   make(map[string]float64, len(entries)),
		fallback: fallback,
	}
	for _, entry := range entries {
		entry.Qualification = strings.TrimSpace(entry.Qualification)
		if entry.Qualification == "" {
			return GoalTable{}, ErrInvalidName
		}
		if entry.Goal < 0 {
			return GoalTable{}, ErrInvalidGoal
		}
		if _, ok := t.byName[entry.Qualification]; ok {
			return GoalTable{}, ErrDuplicateQualification
		}
		t.byName[entry.Qualification] = entry.Goal
		t.entries = append(t.entries, entry)
	}
	return t, nil
}

// DefaultGoalTable returns the built-in qualification goals.
func DefaultGoalTable() GoalTable {
	t, err := NewGoalTable(DefaultGoal,
		QualificationGoal{Qualification: "Facility Representative", Goal: 80},
		QualificationGoal{Qualification: "STSM", Goal: 60},
		QualificationGoal{Qualification: "Quality Assurance Assessor", Goal: 70},
		QualificationGoal{Qualification: "Project Management", Goal: 65},
		QualificationGoal{Qualification: "Contracting Officer Representative", Goal: 60},
	)
	if err != nil {
		panic("domain: invalid built-in goal table: " + err.Error())
	}
	return t
}

// Resolve returns the mapped goal or the fallback.
func (t GoalTable) Resolve(qualification string) float64 {
	if goal, ok := t.byName[strings.TrimSpace(qualification)]; ok {
		return goal
	}
	return t.fallback
}

// Known reports whether the qualification is listed.
func (t GoalTable) Known(qualification string) bool {
	_, ok := t.byName[strings.TrimSpace(qualification)]
	return ok
}

// Qualifications returns entries in display order.
func (t GoalTable) Qualifications() []QualificationGoal {
	return append([]QualificationGoal(nil), t.entries...)
}

// Fallback returns the goal used for unknown qualifications.
func (t GoalTable) Fallback() float64 {
	return t.fallback
}

// defaultGoals backs ResolveGoal.
var defaultGoals = DefaultGoalTable()

// ResolveGoal resolves against the built-in goal table.
func ResolveGoal(qualification string) float64 {
	return defaultGoals.Resolve(qualification)
}
