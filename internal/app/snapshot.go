package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/ctrain/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "ctrain.snapshot.v1"

// Snapshot is the portable JSON form of a saved form.
type Snapshot struct {
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Profile    SnapshotProfile  `json:"profile"`
	Records    []SnapshotRecord `json:"records"`
}

// SnapshotProfile represents snapshot profile data used by this package.
type SnapshotProfile struct {
	Name          string  `json:"name"`
	Period        string  `json:"period"`
	Qualification string  `json:"qualification"`
	Goal          float64 `json:"goal"`
}

// SnapshotRecord represents one activity record. Credits are informational and re-derived on import.
type SnapshotRecord struct {
	ID             string               `json:"id"`
	Activity       string               `json:"activity"`
	CompletionDate string               `json:"completion_date"`
	RawValue       float64              `json:"raw_value"`
	Credits        float64              `json:"credits"`
	Attachments    []SnapshotAttachment `json:"attachments,omitempty"`
}

// SnapshotAttachment carries attachment bytes, base64-encoded by encoding/json.
type SnapshotAttachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// ExportSnapshot exports the current form.
func (s *Service) ExportSnapshot(_ context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.stateLocked()
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Profile: SnapshotProfile{
			Name:          state.Profile.Name,
			Period:        state.Profile.Period,
			Qualification: state.Profile.Qualification,
			Goal:          s.goals.Resolve(state.Profile.Qualification),
		},
		Records: make([]SnapshotRecord, 0, len(state.Records)),
	}
	for _, r := range state.Records {
		snap.Records = append(snap.Records, snapshotRecordFromDomain(r))
	}
	return snap, nil
}

// ImportSnapshot replaces the current form with the snapshot contents.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	records := make([]domain.ActivityRecord, 0, len(snap.Records))
	for _, r := range snap.Records {
		records = append(records, r.toDomain())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateLocked(ctx, func() error {
		s.profile = domain.Profile{
			Name:          strings.TrimSpace(snap.Profile.Name),
			Period:        strings.TrimSpace(snap.Profile.Period),
			Qualification: strings.TrimSpace(snap.Profile.Qualification),
		}
		s.store.Replace(records)
		return nil
	})
}

// Validate checks version and record integrity.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidSnapshot, s.Version)
	}
	ids := map[string]struct{}{}
	for i, r := range s.Records {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return fmt.Errorf("%w: records[%d].id is required", ErrInvalidSnapshot, i)
		}
		if _, exists := ids[id]; exists {
			return fmt.Errorf("%w: duplicate record id %q", ErrInvalidSnapshot, id)
		}
		ids[id] = struct{}{}
		for j, a := range r.Attachments {
			if _, err := domain.NewAttachment(a.Name, a.ContentType, nil); err != nil {
				return fmt.Errorf("%w: records[%d].attachments[%d]: %v", ErrInvalidSnapshot, i, j, err)
			}
		}
	}
	return nil
}

// snapshotRecordFromDomain converts one record.
func snapshotRecordFromDomain(r domain.ActivityRecord) SnapshotRecord {
	out := SnapshotRecord{
		ID:             r.ID,
		Activity:       r.ActivityName,
		CompletionDate: r.CompletionDate,
		RawValue:       r.RawValue,
		Credits:        r.Credits,
	}
	for _, a := range r.Attachments {
		out.Attachments = append(out.Attachments, SnapshotAttachment{
			Name:        a.Name,
			ContentType: a.ContentType,
			Data:        append([]byte(nil), a.Data...),
		})
	}
	return out
}

// toDomain converts a snapshot record. Credits are left for the store to derive.
func (r SnapshotRecord) toDomain() domain.ActivityRecord {
	out := domain.ActivityRecord{
		ID:             strings.TrimSpace(r.ID),
		ActivityName:   strings.TrimSpace(r.Activity),
		CompletionDate: strings.TrimSpace(r.CompletionDate),
		RawValue:       r.RawValue,
		Attachments:    make([]domain.Attachment, 0, len(r.Attachments)),
	}
	for _, a := range r.Attachments {
		attachment, err := domain.NewAttachment(a.Name, a.ContentType, a.Data)
		if err != nil {
			continue
		}
		out.Attachments = append(out.Attachments, attachment)
	}
	return out
}
