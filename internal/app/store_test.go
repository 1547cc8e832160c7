package app

import (
	"fmt"
	"math"
	"testing"

	"github.com/hylla/ctrain/internal/domain"
)

func ptr[T any](v T) *T {
	return &v
}

func sequentialIDs(prefix string) IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func TestRecordStoreAddUpdateTotal(t *testing.T) {
	store := NewRecordStore(nil, sequentialIDs("r"))
	rec := store.Add()
	if rec.ID != "r1" || rec.ActivityName != "" || rec.Credits != 0 || len(rec.Attachments) != 0 {
		t.Fatalf("unexpected new record %#v", rec)
	}

	updated, ok := store.Update(rec.ID, RecordPatch{ActivityName: ptr("Mentoring"), RawValue: ptr(5.0)})
	if !ok {
		t.Fatal("expected update to find record")
	}
	if updated.Credits != 5 {
		t.Fatalf("Credits = %v, want 5", updated.Credits)
	}
	if store.Total() != 5 {
		t.Fatalf("Total() = %v, want 5", store.Total())
	}
}

func TestRecordStoreUpdateIsIdempotent(t *testing.T) {
	store := NewRecordStore(nil, sequentialIDs("r"))
	rec := store.Add()
	patch := RecordPatch{ActivityName: ptr("Assessments/Investigations"), RawValue: ptr(30.0)}
	first, _ := store.Update(rec.ID, patch)
	second, _ := store.Update(rec.ID, patch)
	if first.Credits != 15 || second.Credits != first.Credits {
		t.Fatalf("credits differ: first=%v second=%v", first.Credits, second.Credits)
	}
}

func TestRecordStoreActivityChangeResetsValue(t *testing.T) {
	store := NewRecordStore(nil, sequentialIDs("r"))
	rec := store.Add()
	store.Update(rec.ID, RecordPatch{ActivityName: ptr("Mentoring"), RawValue: ptr(12.0)})

	license, _ := store.Update(rec.ID, RecordPatch{ActivityName: ptr("Professional License or Certification")})
	if license.RawValue != 30 || license.Credits != 30 {
		t.Fatalf("expected range default 30, got raw=%v credits=%v", license.RawValue, license.Credits)
	}
	rotation, _ := store.Update(rec.ID, RecordPatch{ActivityName: ptr("Rotational or Developmental Assignment")})
	if rotation.RawValue != 1 || rotation.Credits != 20 {
		t.Fatalf("expected rotational default 1 month, got raw=%v credits=%v", rotation.RawValue, rotation.Credits)
	}
	same, _ := store.Update(rec.ID, RecordPatch{ActivityName: ptr("Rotational or Developmental Assignment")})
	if same.RawValue != 1 {
		t.Fatalf("reselecting the same activity changed the value to %v", same.RawValue)
	}
	dated, _ := store.Update(rec.ID, RecordPatch{CompletionDate: ptr(" 2024-05-01 ")})
	if dated.CompletionDate != "2024-05-01" || dated.Credits != 20 {
		t.Fatalf("unexpected dated record %#v", dated)
	}
}

func TestRecordStoreUnknownIDIsNoop(t *testing.T) {
	store := NewRecordStore(nil, sequentialIDs("r"))
	rec := store.Add()
	store.Update(rec.ID, RecordPatch{ActivityName: ptr("Mentoring"), RawValue: ptr(4.0)})

	if _, ok := store.Update("missing", RecordPatch{RawValue: ptr(10.0)}); ok {
		t.Fatal("expected update of unknown id to report false")
	}
	if store.Remove("missing") {
		t.Fatal("expected remove of unknown id to report false")
	}
	if store.Total() != 4 || store.Len() != 1 {
		t.Fatalf("store changed: total=%v len=%d", store.Total(), store.Len())
	}
	if !store.Remove(rec.ID) || store.Len() != 0 || store.Total() != 0 {
		t.Fatal("expected remove to delete the record")
	}
}

func TestRecordStoreAddKeepsInsertionOrderAndUniqueIDs(t *testing.T) {
	store := NewRecordStore(nil, func() string { return "same" })
	a := store.Add()
	b := store.Add()
	if a.ID == b.ID {
		t.Fatalf("expected unique ids, got %q twice", a.ID)
	}
	records := store.Records()
	if records[0].ID != a.ID || records[1].ID != b.ID {
		t.Fatalf("unexpected order %#v", records)
	}
}

func TestRecordStoreReplaceRederivesCredits(t *testing.T) {
	store := NewRecordStore(nil, sequentialIDs("r"))
	store.Replace([]domain.ActivityRecord{
		{ID: "a", ActivityName: "Continuing Education Unit (CEU)", RawValue: 2, Credits: 999},
		{ID: "a", ActivityName: "Mentoring", RawValue: math.NaN()},
		{ActivityName: " Facility Representative Delta Qualification "},
	})
	records := store.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Credits != 20 {
		t.Fatalf("stale credits survived: %v", records[0].Credits)
	}
	if records[1].ID == "a" || records[2].ID == "" {
		t.Fatalf("expected fresh ids, got %q and %q", records[1].ID, records[2].ID)
	}
	if records[1].RawValue != 0 || records[1].Credits != 0 {
		t.Fatalf("expected NaN folded to 0, got %#v", records[1])
	}
	if records[2].Credits != 80 {
		t.Fatalf("flat credits = %v, want 80", records[2].Credits)
	}
}

func TestRecordStoreRecordsAreCopies(t *testing.T) {
	store := NewRecordStore(nil, sequentialIDs("r"))
	rec := store.Add()
	attachments := []domain.Attachment{{Name: "a.pdf", Data: []byte("abc")}}
	store.Update(rec.ID, RecordPatch{Attachments: &attachments})
	attachments[0].Data[0] = 'z'

	got, _ := store.Get(rec.ID)
	if string(got.Attachments[0].Data) != "abc" {
		t.Fatalf("store shares caller bytes: %q", got.Attachments[0].Data)
	}
	got.Attachments[0].Data[0] = 'y'
	again, _ := store.Get(rec.ID)
	if string(again.Attachments[0].Data) != "abc" {
		t.Fatalf("store leaked internal bytes: %q", again.Attachments[0].Data)
	}
}
