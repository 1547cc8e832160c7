package app

import (
	"time"

	"github.com/hylla/ctrain/internal/domain"
)

// FormState is the full persisted form: profile plus ordered records.
type FormState struct {
	Profile       domain.Profile
	Records       []domain.ActivityRecord
	UpdatedAt     time.Time
	UpdatedBy     string
	UpdatedByType ActorType
}

// Clone deep-copies the state.
func (f FormState) Clone() FormState {
	out := f
	out.Records = make([]domain.ActivityRecord, 0, len(f.Records))
	for _, r := range f.Records {
		out.Records = append(out.Records, r.Clone())
	}
	return out
}

// TotalCredits sums credits over all records.
func (f FormState) TotalCredits() float64 {
	return domain.TotalCredits(f.Records)
}
