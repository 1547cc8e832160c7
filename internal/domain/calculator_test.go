package domain

import (
	"math"
	"testing"
)

const (
	ceuActivity        = "Continuing Education Unit (CEU)"
	rotationalActivity = "Rotational or Developmental Assignment"
	deltaActivity      = "Facility Representative Delta Qualification"
	assessmentActivity = "Assessments/Investigations"
	licenseActivity    = "Professional License or Certification"
	mentoringActivity  = "Mentoring"
	selfStudyActivity  = "Self-Study (changes/revisions to technical standards, published articles/literature)"
)

func TestClassifyRate(t *testing.T) {
	cases := []struct {
		descriptor string
		want       RateRule
	}{
		{"1 per hour", RulePerHour},
		{"1 per hour incl prep", RulePerHour},
		{"1 per hour prep", RulePerHour},
		{"10 per semester hour", RulePerSemester},
		{"10 per CEU", RulePerCEU},
		{"same as course", RuleSameAsCourse},
		{"20-40", RuleRange20To40},
		{"duration-based", RuleDuration},
		{"80 flat", RuleFlat80},
		{"2 per activity", RuleTwoPerActivity},
		{"1 per 2 hours", RuleOnePerTwoHours},
		{"something else", RuleDefault},
		{"", RuleDefault},
	}
	for _, tc := range cases {
		t.Run(tc.descriptor, func(t *testing.T) {
			if got := ClassifyRate(tc.descriptor); got != tc.want {
				t.Fatalf("ClassifyRate(%q) = %s, want %s", tc.descriptor, got, tc.want)
			}
		})
	}
}

func TestComputeCreditsPerHourRulesFollowRawValueUpToCap(t *testing.T) {
	table := DefaultRateTable()
	values := []float64{0, 1, 7.5, 19, 20, 35, 120}
	checked := 0
	for _, def := range table.Definitions() {
		if def.Rule != RulePerHour {
			continue
		}
		checked++
		for _, v := range values {
			want := v
			if def.HasCap && want > def.Cap {
				want = def.Cap
			}
			if got := ComputeCredits(def.Name, v); got != want {
				t.Fatalf("ComputeCredits(%q, %v) = %v, want %v", def.Name, v, got, want)
			}
		}
	}
	if checked != 8 {
		t.Fatalf("expected 8 hourly activities, got %d", checked)
	}
}

func TestComputeCreditsRules(t *testing.T) {
	cases := []struct {
		name     string
		activity string
		raw      float64
		want     float64
	}{
		{"ceu multiplies by ten", ceuActivity, 3, 30},
		{"semester multiplies by ten", "Accredited Higher Education Courses (such as university courses)", 2, 20},
		{"equivalency passes through", "Equivalency Exam", 7, 7},
		{"rotational listed month", rotationalActivity, 6, 45},
		{"rotational twelve months", rotationalActivity, 12, 80},
		{"rotational unlisted month", rotationalActivity, 4, 0},
		{"rotational fractional month", rotationalActivity, 6.5, 0},
		{"flat ignores value", deltaActivity, 3, 80},
		{"flat ignores zero", deltaActivity, 0, 80},
		{"flat ignores negative", deltaActivity, -10, 80},
		{"one per two hours halves", assessmentActivity, 10, 5},
		{"one per two hours capped at eighty hours", assessmentActivity, 80, 40},
		{"one per two hours capped beyond", assessmentActivity, 500, 40},
		{"two per activity doubles", selfStudyActivity, 4, 8},
		{"two per activity capped", selfStudyActivity, 15, 20},
		{"range keeps middle", licenseActivity, 30, 30},
		{"range clamps high", licenseActivity, 50, 40},
		{"range clamps low", licenseActivity, 10, 20},
		{"hourly capped", mentoringActivity, 25, 20},
		{"unknown activity", "Basket Weaving", 10, 0},
		{"empty activity", "", 10, 0},
		{"negative value", mentoringActivity, -3, 0},
		{"nan value", mentoringActivity, math.NaN(), 0},
		{"infinite value", ceuActivity, math.Inf(1), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeCredits(tc.activity, tc.raw); got != tc.want {
				t.Fatalf("ComputeCredits(%q, %v) = %v, want %v", tc.activity, tc.raw, got, tc.want)
			}
		})
	}
}

func TestComputeCreditsFromText(t *testing.T) {
	if got := ComputeCreditsFromText(mentoringActivity, "abc"); got != 0 {
		t.Fatalf("non-numeric hourly = %v, want 0", got)
	}
	if got := ComputeCreditsFromText(deltaActivity, "abc"); got != 80 {
		t.Fatalf("non-numeric flat = %v, want 80", got)
	}
	if got := ComputeCreditsFromText(ceuActivity, " 3 "); got != 30 {
		t.Fatalf("padded ceu = %v, want 30", got)
	}
	if got := ComputeCreditsFromText(rotationalActivity, "9"); got != 65 {
		t.Fatalf("rotational text = %v, want 65", got)
	}
}

func TestCalculatorDefaultValue(t *testing.T) {
	calc := DefaultCalculator()
	cases := map[string]float64{
		licenseActivity:    30,
		rotationalActivity: 1,
		deltaActivity:      0,
		mentoringActivity:  0,
		"unknown":          0,
	}
	for activity, want := range cases {
		if got := calc.DefaultValue(activity); got != want {
			t.Fatalf("DefaultValue(%q) = %v, want %v", activity, got, want)
		}
	}
	if got := calc.Compute(rotationalActivity, calc.DefaultValue(rotationalActivity)); got != 20 {
		t.Fatalf("rotational default credits = %v, want 20", got)
	}
	if got := calc.Compute(licenseActivity, calc.DefaultValue(licenseActivity)); got != 30 {
		t.Fatalf("license default credits = %v, want 30", got)
	}
}

func TestCalculatorCustomTables(t *testing.T) {
	cap := 5.0
	def, err := NewActivityDefinition("Reading", "1 per hour", &cap)
	if err != nil {
		t.Fatalf("NewActivityDefinition() error = %v", err)
	}
	rotation, err := NewActivityDefinition("Detail", "duration-based", nil)
	if err != nil {
		t.Fatalf("NewActivityDefinition() error = %v", err)
	}
	rates, err := NewRateTable(def, rotation)
	if err != nil {
		t.Fatalf("NewRateTable() error = %v", err)
	}
	durations, err := NewRotationalTable(map[int]float64{4: 33})
	if err != nil {
		t.Fatalf("NewRotationalTable() error = %v", err)
	}
	calc := NewCalculator(rates, durations)
	if got := calc.Compute("Reading", 9); got != 5 {
		t.Fatalf("capped custom = %v, want 5", got)
	}
	if got := calc.Compute("Detail", 4); got != 33 {
		t.Fatalf("custom duration = %v, want 33", got)
	}
	if got := calc.DefaultValue("Detail"); got != 4 {
		t.Fatalf("custom duration default = %v, want 4", got)
	}
}

func TestRateTableValidation(t *testing.T) {
	def, err := NewActivityDefinition("Mentoring", "1 per hour", nil)
	if err != nil {
		t.Fatalf("NewActivityDefinition() error = %v", err)
	}
	if _, err := NewRateTable(def, def); err != ErrDuplicateActivity {
		t.Fatalf("expected ErrDuplicateActivity, got %v", err)
	}
	if _, err := NewActivityDefinition("  ", "1 per hour", nil); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	negative := -1.0
	if _, err := NewActivityDefinition("x", "1 per hour", &negative); err != ErrInvalidCap {
		t.Fatalf("expected ErrInvalidCap, got %v", err)
	}
	if _, err := NewRotationalTable(map[int]float64{0: 10}); err != ErrInvalidDuration {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestDefaultRateTableOrderAndCaps(t *testing.T) {
	table := DefaultRateTable()
	if table.Len() != 16 {
		t.Fatalf("expected 16 activities, got %d", table.Len())
	}
	names := table.Names()
	if names[0] != "Formal or Informal Training (Learning Nucleus, LEARN, classroom or online courses)" {
		t.Fatalf("unexpected first activity %q", names[0])
	}
	if names[len(names)-1] != assessmentActivity {
		t.Fatalf("unexpected last activity %q", names[len(names)-1])
	}
	def, ok := table.Lookup(assessmentActivity)
	if !ok || !def.HasCap || def.Cap != 40 {
		t.Fatalf("unexpected assessment definition %#v", def)
	}
	if def.CapNote() != "max 40 credits" {
		t.Fatalf("unexpected cap note %q", def.CapNote())
	}
	if def, ok := table.Lookup(ceuActivity); !ok || def.HasCap {
		t.Fatalf("unexpected ceu definition %#v", def)
	}
}

func TestRotationalTableMonths(t *testing.T) {
	months := DefaultRotationalTable().Months()
	want := []int{1, 2, 3, 6, 9, 12}
	if len(months) != len(want) {
		t.Fatalf("Months() = %v, want %v", months, want)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Fatalf("Months() = %v, want %v", months, want)
		}
	}
}

func TestCalculatorInputHint(t *testing.T) {
	calc := DefaultCalculator()
	label, note := calc.InputHint(assessmentActivity)
	if label != "Hours" || note != "max 40 credits" {
		t.Fatalf("InputHint() = %q, %q", label, note)
	}
	label, note = calc.InputHint(rotationalActivity)
	if label != "Duration (months)" || note != "" {
		t.Fatalf("InputHint() = %q, %q", label, note)
	}
	if label, _ := calc.InputHint("nope"); label != "Value" {
		t.Fatalf("unknown InputHint() label = %q", label)
	}
}
