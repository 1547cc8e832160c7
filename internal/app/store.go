package app

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/hylla/ctrain/internal/domain"
)

// RecordPatch lists the record fields to change. Nil fields are left alone.
type RecordPatch struct {
	ActivityName   *string
	CompletionDate *string
	RawValue       *float64
	Attachments    *[]domain.Attachment
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.ActivityName == nil && p.CompletionDate == nil && p.RawValue == nil && p.Attachments == nil
}

// RecordStore is the ordered, in-memory collection of activity records.
// Credits are always derived by the calculator and never set directly.
type RecordStore struct {
	calc    *domain.Calculator
	idGen   IDGenerator
	records []domain.ActivityRecord
}

// NewRecordStore constructs an empty store.
func NewRecordStore(calc *domain.Calculator, idGen IDGenerator) *RecordStore {
	if calc == nil {
		calc = domain.DefaultCalculator()
	}
	if idGen == nil {
		idGen = uuid.NewString
	}
	return &RecordStore{
		calc:    calc,
		idGen:   idGen,
		records: []domain.ActivityRecord{},
	}
}

// Add appends an empty record with a fresh id.
func (s *RecordStore) Add() domain.ActivityRecord {
	id := strings.TrimSpace(s.idGen())
	if id == "" || s.indexOf(id) >= 0 {
		id = uuid.NewString()
	}
	record, _ := domain.NewActivityRecord(id)
	s.records = append(s.records, record)
	return record.Clone()
}

// Update merges patch into the record with id and re-derives credits.
// Selecting a different activity without a value resets the value to that activity's default.
// Unknown ids are ignored and report false.
func (s *RecordStore) Update(id string, patch RecordPatch) (domain.ActivityRecord, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return domain.ActivityRecord{}, false
	}
	record := s.records[idx]
	if patch.ActivityName != nil {
		name := strings.TrimSpace(*patch.ActivityName)
		if name != record.ActivityName {
			record.ActivityName = name
			if patch.RawValue == nil {
				record.RawValue = s.calc.DefaultValue(name)
			}
		}
	}
	if patch.RawValue != nil {
		record.RawValue = finiteOrZero(*patch.RawValue)
	}
	if patch.CompletionDate != nil {
		record.CompletionDate = strings.TrimSpace(*patch.CompletionDate)
	}
	if patch.Attachments != nil {
		record.Attachments = (domain.ActivityRecord{Attachments: *patch.Attachments}).Clone().Attachments
	}
	record.Credits = s.calc.Compute(record.ActivityName, record.RawValue)
	s.records[idx] = record
	return record.Clone(), true
}

// Remove deletes the record with id. Unknown ids report false.
func (s *RecordStore) Remove(id string) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	return true
}

// Get returns a copy of one record.
func (s *RecordStore) Get(id string) (domain.ActivityRecord, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return domain.ActivityRecord{}, false
	}
	return s.records[idx].Clone(), true
}

// Total sums credits over all records.
func (s *RecordStore) Total() float64 {
	return domain.TotalCredits(s.records)
}

// Records returns deep copies in insertion order.
func (s *RecordStore) Records() []domain.ActivityRecord {
	out := make([]domain.ActivityRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	return out
}

// Len returns the number of records.
func (s *RecordStore) Len() int {
	return len(s.records)
}

// Replace swaps in a new record list, re-deriving every credit value.
// Records with blank or duplicate ids receive fresh ids.
func (s *RecordStore) Replace(records []domain.ActivityRecord) {
	out := make([]domain.ActivityRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		r = r.Clone()
		r.ID = strings.TrimSpace(r.ID)
		if _, dup := seen[r.ID]; r.ID == "" || dup {
			r.ID = uuid.NewString()
		}
		seen[r.ID] = struct{}{}
		r.ActivityName = strings.TrimSpace(r.ActivityName)
		r.RawValue = finiteOrZero(r.RawValue)
		r.Credits = s.calc.Compute(r.ActivityName, r.RawValue)
		if r.Attachments == nil {
			r.Attachments = []domain.Attachment{}
		}
		out = append(out, r)
	}
	s.records = out
}

// indexOf returns the position of id or -1.
func (s *RecordStore) indexOf(id string) int {
	id = strings.TrimSpace(id)
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// finiteOrZero keeps stored values JSON-safe.
func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
