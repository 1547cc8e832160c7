package domain

import (
	"strings"
)

// RateRule identifies the formula family used to turn a raw value into credits.
type RateRule int

// RuleDefault and related constants define the supported rate rules.
const (
	RuleDefault RateRule = iota
	RulePerHour
	RulePerSemester
	RulePerCEU
	RuleSameAsCourse
	RuleRange20To40
	RuleDuration
	RuleFlat80
	RuleTwoPerActivity
	RuleOnePerTwoHours
)

// Bounds of the license/certification range rule.
const (
	RangeRuleMin = 20.0
	RangeRuleMax = 40.0
)

// FlatRuleCredits is the fixed award for the flat rule.
const FlatRuleCredits = 80.0

// rateRuleNames stores stable wire names for each rule.
var rateRuleNames = map[RateRule]string{
	RuleDefault:        "default",
	RulePerHour:        "per_hour",
	RulePerSemester:    "per_semester",
	RulePerCEU:         "per_ceu",
	RuleSameAsCourse:   "same_as_course",
	RuleRange20To40:    "range_20_40",
	RuleDuration:       "duration",
	RuleFlat80:         "flat_80",
	RuleTwoPerActivity: "two_per_activity",
	RuleOnePerTwoHours: "one_per_two_hours",
}

// String returns the stable wire name of the rule.
func (r RateRule) String() string {
	if name, ok := rateRuleNames[r]; ok {
		return name
	}
	return rateRuleNames[RuleDefault]
}

// MarshalText encodes the rule by name.
func (r RateRule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// InputLabel returns the raw-value label shown next to the value field.
func (r RateRule) InputLabel() string {
	switch r {
	case RulePerHour, RuleOnePerTwoHours:
		return "Hours"
	case RulePerSemester:
		return "Semester Hours"
	case RulePerCEU:
		return "CEUs"
	case RuleSameAsCourse:
		return "Course Credits"
	case RuleRange20To40:
		return "Credits (20-40)"
	case RuleDuration:
		return "Duration (months)"
	case RuleTwoPerActivity:
		return "Number of Activities"
	case RuleFlat80:
		return "Fixed"
	default:
		return "Value"
	}
}

// ClassifyRate maps a free-text rate descriptor onto its rule.
// Order matters where descriptors overlap: "per 2 hours" must not match the hourly rule.
func ClassifyRate(descriptor string) RateRule {
	d := strings.ToLower(strings.TrimSpace(descriptor))
	switch {
	case strings.Contains(d, "per hour") && !strings.Contains(d, "2 hours"):
		return RulePerHour
	case strings.Contains(d, "per semester"):
		return RulePerSemester
	case strings.Contains(d, "per ceu"):
		return RulePerCEU
	case strings.Contains(d, "same as course"):
		return RuleSameAsCourse
	case strings.Contains(d, "20-40"):
		return RuleRange20To40
	case strings.Contains(d, "duration"):
		return RuleDuration
	case strings.Contains(d, "80 flat"):
		return RuleFlat80
	case strings.Contains(d, "2 per activity"):
		return RuleTwoPerActivity
	case strings.Contains(d, "1 per 2 hours"):
		return RuleOnePerTwoHours
	default:
		return RuleDefault
	}
}

// ActivityDefinition describes one creditable activity type.
type ActivityDefinition struct {
	Name       string
	Descriptor string
	Rule       RateRule
	Cap        float64
	HasCap     bool
}

// NewActivityDefinition validates input and assigns the rule once from the descriptor.
func NewActivityDefinition(name, descriptor string, cap *float64) (ActivityDefinition, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ActivityDefinition{}, ErrInvalidName
	}
	def := ActivityDefinition{
		Name:       name,
		Descriptor: strings.TrimSpace(descriptor),
		Rule:       ClassifyRate(descriptor),
	}
	if cap != nil {
		if *cap < 0 {
			return ActivityDefinition{}, ErrInvalidCap
		}
		def.Cap = *cap
		def.HasCap = true
	}
	return def, nil
}

// CapNote returns a short human-readable cap summary, or an empty string.
func (d ActivityDefinition) CapNote() string {
	if !d.HasCap {
		return ""
	}
	return "max " + formatCredits(d.Cap) + " credits"
}

// RateTable is an ordered, name-indexed set of activity definitions.
type RateTable struct {
	defs   []ActivityDefinition
	byName map[string]int
}

// NewRateTable builds a table, rejecting duplicate names.
func NewRateTable(defs ...ActivityDefinition) (RateTable, error) {
	t := RateTable{
		defs:   make([]ActivityDefinition, 0, len(defs)),
		byName: make(map[string]int, len(defs)),
	}
	for _, def := range defs {
		if strings.TrimSpace(def.Name) == "" {
			return RateTable{}, ErrInvalidName
		}
		if _, ok := t.byName[def.Name]; ok {
			return RateTable{}, ErrDuplicateActivity
		}
		t.byName[def.Name] = len(t.defs)
		t.defs = append(t.defs, def)
	}
	return t, nil
}

// Lookup returns the definition for one activity name.
func (t RateTable) Lookup(name string) (ActivityDefinition, bool) {
	idx, ok := t.byName[strings.TrimSpace(name)]
	if !ok {
		return ActivityDefinition{}, false
	}
	return t.defs[idx], true
}

// Definitions returns all definitions in display order.
func (t RateTable) Definitions() []ActivityDefinition {
	return append([]ActivityDefinition(nil), t.defs...)
}

// Names returns all activity names in display order.
func (t RateTable) Names() []string {
	out := make([]string, 0, len(t.defs))
	for _, def := range t.defs {
		out = append(out, def.Name)
	}
	return out
}

// Len returns the number of definitions.
func (t RateTable) Len() int {
	return len(t.defs)
}

// defaultActivitySeed lists the built-in activity catalog in display order.
var defaultActivitySeed = []struct {
	name       string
	descriptor string
	cap        float64
}{
	{"Formal or Informal Training (Learning Nucleus, LEARN, classroom or online courses)", "1 per hour", 0},
	{"Accredited Higher Education Courses (such as university courses)", "10 per semester hour", 0},
	{"Continuing Education Unit (CEU)", "10 per CEU", 0},
	{"Equivalency Exam", "same as course", 0},
	{"Conference, training, or seminar presentation", "1 per hour incl prep", 20},
	{"Professional License or Certification", "20-40", 0},
	{"On-the-job Experiential Learning (OJT)", "1 per hour", 20},
	{"Mentoring", "1 per hour", 20},
	{"Rotational or Developmental Assignment", "duration-based", 0},
	{"Publication", "1 per hour prep", 20},
	{"Association Leadership Role (such as ANSI, AMSE)", "1 per hour", 20},
	{"Facility Representative Delta Qualification", "80 flat", 0},
	{"Positional Training (such as for STSM, Facility Representative, Quality Assurance Assessor, Project Management, Contracting Officer Representative)", "1 per hour", 0},
	{"Self-Study (changes/revisions to technical standards, published articles/literature)", "2 per activity", 20},
	{"“Lunch and Learn” or similar facilitated discussion", "1 per hour", 20},
	{"Assessments/Investigations", "1 per 2 hours", 40},
}

// DefaultRateTable returns the built-in activity catalog.
func DefaultRateTable() RateTable {
	defs := make([]ActivityDefinition, 0, len(defaultActivitySeed))
	for _, seed := range defaultActivitySeed {
		var cap *float64
		if seed.cap > 0 {
			c := seed.cap
			cap = &c
		}
		def, err := NewActivityDefinition(seed.name, seed.descriptor, cap)
		if err != nil {
			panic("domain: invalid built-in activity " + seed.name + ": " + err.Error())
		}
		defs = append(defs, def)
	}
	table, err := NewRateTable(defs...)
	if err != nil {
		panic("domain: invalid built-in rate table: " + err.Error())
	}
	return table
}
