package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestExportSnapshotIncludesExpectedData(t *testing.T) {
	svc := newTestService(&fakeRepo{}, ServiceConfig{})
	rec := fillForm(t, svc)

	snap, err := svc.ExportSnapshot(context.Background())
	if err != nil {
		t.Fatalf("ExportSnapshot() error = %v", err)
	}
	if snap.Version != SnapshotVersion {
		t.Fatalf("unexpected version %q", snap.Version)
	}
	if snap.Profile.Name != "Jane Doe" || snap.Profile.Goal != 60 {
		t.Fatalf("unexpected profile %#v", snap.Profile)
	}
	if len(snap.Records) != 1 || snap.Records[0].ID != rec.ID || snap.Records[0].Credits != 5 {
		t.Fatalf("unexpected records %#v", snap.Records)
	}
	if len(snap.Records[0].Attachments) != 1 || string(snap.Records[0].Attachments[0].Data) != "pdf" {
		t.Fatalf("unexpected attachments %#v", snap.Records[0].Attachments)
	}
}

func TestSnapshotJSONRoundTripRederivesCredits(t *testing.T) {
	src := newTestService(&fakeRepo{}, ServiceConfig{})
	fillForm(t, src)
	snap, err := src.ExportSnapshot(context.Background())
	if err != nil {
		t.Fatalf("ExportSnapshot() error = %v", err)
	}
	snap.Records[0].Credits = 500

	payload, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	repo := &fakeRepo{}
	dst := newTestService(repo, ServiceConfig{})
	if err := dst.ImportSnapshot(context.Background(), decoded); err != nil {
		t.Fatalf("ImportSnapshot() error = %v", err)
	}
	form := dst.Form()
	if form.Profile.Qualification != "STSM" || len(form.Records) != 1 {
		t.Fatalf("unexpected imported form %#v", form)
	}
	if form.Records[0].Credits != 5 {
		t.Fatalf("imported credits = %v, want 5", form.Records[0].Credits)
	}
	if string(form.Records[0].Attachments[0].Data) != "pdf" {
		t.Fatalf("unexpected attachment bytes %q", form.Records[0].Attachments[0].Data)
	}
	if repo.saves != 1 {
		t.Fatalf("expected import to persist once, got %d", repo.saves)
	}
}

func TestImportSnapshotRejectsInvalid(t *testing.T) {
	svc := newTestService(&fakeRepo{}, ServiceConfig{})
	cases := map[string]Snapshot{
		"version":    {Version: "other.v9"},
		"missing id": {Records: []SnapshotRecord{{Activity: "Mentoring"}}},
		"duplicate":  {Records: []SnapshotRecord{{ID: "a"}, {ID: "a"}}},
		"attachment": {Records: []SnapshotRecord{{ID: "a", Attachments: []SnapshotAttachment{{Name: " "}}}}},
	}
	for name, snap := range cases {
		t.Run(name, func(t *testing.T) {
			if err := svc.ImportSnapshot(context.Background(), snap); !errors.Is(err, ErrInvalidSnapshot) {
				t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
			}
		})
	}
}
