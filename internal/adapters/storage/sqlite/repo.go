package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/ctrain/internal/app"
	"github.com/hylla/ctrain/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// formRowID keys the single profile row.
const formRowID = 1

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// FormEvent is one entry of the save history.
type FormEvent struct {
	ID           int64
	ActorID      string
	ActorType    app.ActorType
	RecordCount  int
	TotalCredits float64
	OccurredAt   time.Time
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS form_profile (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			name TEXT NOT NULL DEFAULT '',
			period TEXT NOT NULL DEFAULT '',
			qualification TEXT NOT NULL DEFAULT '',
			updated_by_actor TEXT NOT NULL DEFAULT 'local',
			updated_by_type TEXT NOT NULL DEFAULT 'user',
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS activity_records (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			activity_name TEXT NOT NULL DEFAULT '',
			completion_date TEXT NOT NULL DEFAULT '',
			raw_value REAL NOT NULL DEFAULT 0,
			credits REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS attachments (
			record_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT 'application/octet-stream',
			data BLOB NOT NULL,
			PRIMARY KEY(record_id, position),
			FOREIGN KEY(record_id) REFERENCES activity_records(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS form_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor_id TEXT NOT NULL,
			actor_type TEXT NOT NULL,
			record_count INTEGER NOT NULL,
			total_credits REAL NOT NULL,
			occurred_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_activity_records_position ON activity_records(position);`,
		`CREATE INDEX IF NOT EXISTS idx_form_events_occurred ON form_events(occurred_at);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// LoadForm loads the stored form. It returns app.ErrNotFound when nothing was saved yet.
func (r *Repository) LoadForm(ctx context.Context) (app.FormState, error) {
	var (
		state      app.FormState
		actorType  string
		updatedRaw string
	)
	row := r.db.QueryRowContext(ctx, `
		SELECT name, period, qualification, updated_by_actor, updated_by_type, updated_at
		FROM form_profile WHERE id = ?`, formRowID)
	if err := row.Scan(
		&state.Profile.Name,
		&state.Profile.Period,
		&state.Profile.Qualification,
		&state.UpdatedBy,
		&actorType,
		&updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return app.FormState{}, app.ErrNotFound
		}
		return app.FormState{}, err
	}
	state.UpdatedByType = app.ActorType(actorType)
	state.UpdatedAt = parseTS(updatedRaw)

	records, err := r.listRecords(ctx)
	if err != nil {
		return app.FormState{}, err
	}
	state.Records = records
	return state, nil
}

// SaveForm replaces the stored form in one transaction and appends a history event.
func (r *Repository) SaveForm(ctx context.Context, state app.FormState) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	actorID := chooseActorID(state.UpdatedBy)
	actorType := normalizeActorType(state.UpdatedByType)

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO form_profile(id, name, period, qualification, updated_by_actor, updated_by_type, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			period = excluded.period,
			qualification = excluded.qualification,
			updated_by_actor = excluded.updated_by_actor,
			updated_by_type = excluded.updated_by_type,
			updated_at = excluded.updated_at
	`, formRowID, state.Profile.Name, state.Profile.Period, state.Profile.Qualification, actorID, string(actorType), ts(updatedAt)); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM attachments`); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM activity_records`); err != nil {
		return err
	}
	for i, rec := range state.Records {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO activity_records(id, position, activity_name, completion_date, raw_value, credits)
			VALUES(?, ?, ?, ?, ?, ?)
		`, rec.ID, i, rec.ActivityName, rec.CompletionDate, rec.RawValue, rec.Credits); err != nil {
			return fmt.Errorf("insert record %q: %w", rec.ID, err)
		}
		for j, a := range rec.Attachments {
			data := a.Data
			if data == nil {
				data = []byte{}
			}
			if _, err = tx.ExecContext(ctx, `
				INSERT INTO attachments(record_id, position, name, content_type, data)
				VALUES(?, ?, ?, ?, ?)
			`, rec.ID, j, a.Name, a.ContentType, data); err != nil {
				return fmt.Errorf("insert attachment %q: %w", a.Name, err)
			}
		}
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO form_events(actor_id, actor_type, record_count, total_credits, occurred_at)
		VALUES(?, ?, ?, ?, ?)
	`, actorID, string(actorType), len(state.Records), state.TotalCredits(), ts(updatedAt)); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// ListFormEvents returns the most recent save events, newest first.
func (r *Repository) ListFormEvents(ctx context.Context, limit int) ([]FormEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor_id, actor_type, record_count, total_credits, occurred_at
		FROM form_events
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]FormEvent, 0)
	for rows.Next() {
		var (
			event       FormEvent
			actorType   string
			occurredRaw string
		)
		if err := rows.Scan(&event.ID, &event.ActorID, &actorType, &event.RecordCount, &event.TotalCredits, &occurredRaw); err != nil {
			return nil, err
		}
		event.ActorType = app.ActorType(actorType)
		event.OccurredAt = parseTS(occurredRaw)
		out = append(out, event)
	}
	return out, rows.Err()
}

// listRecords loads records and their attachments in position order.
func (r *Repository) listRecords(ctx context.Context) ([]domain.ActivityRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, activity_name, completion_date, raw_value, credits
		FROM activity_records
		ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.ActivityRecord, 0)
	index := map[string]int{}
	for rows.Next() {
		rec := domain.ActivityRecord{Attachments: []domain.Attachment{}}
		if err := rows.Scan(&rec.ID, &rec.ActivityName, &rec.CompletionDate, &rec.RawValue, &rec.Credits); err != nil {
			return nil, err
		}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attRows, err := r.db.QueryContext(ctx, `
		SELECT record_id, name, content_type, data
		FROM attachments
		ORDER BY record_id ASC, position ASC`)
	if err != nil {
		return nil, err
	}
	defer attRows.Close()
	for attRows.Next() {
		var (
			recordID string
			a        domain.Attachment
		)
		if err := attRows.Scan(&recordID, &a.Name, &a.ContentType, &a.Data); err != nil {
			return nil, err
		}
		i, ok := index[recordID]
		if !ok {
			continue
		}
		records[i].Attachments = append(records[i].Attachments, a)
	}
	return records, attRows.Err()
}

// chooseActorID returns the first non-empty actor id.
func chooseActorID(candidates ...string) string {
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" {
			return candidate
		}
	}
	return "local"
}

// normalizeActorType maps unknown actor kinds to user.
func normalizeActorType(actorType app.ActorType) app.ActorType {
	switch actorType {
	case app.ActorTypeUser, app.ActorTypeAgent, app.ActorTypeSystem:
		return actorType
	default:
		return app.ActorTypeUser
	}
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
