// Package sqlite persists the chronology in a SQLite database via the pure
// Go modernc.org/sqlite driver. The event list and id counter are stored;
// the party and document indices are derived, so they are rebuilt at load
// rather than persisted.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/casefolio/chronicle/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS chronology_meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id               INTEGER PRIMARY KEY,
	event_date       TEXT NOT NULL,
	date_precision   TEXT NOT NULL,
	description      TEXT NOT NULL,
	parties          TEXT NOT NULL,
	document_source  TEXT NOT NULL DEFAULT '',
	document_excerpt TEXT NOT NULL DEFAULT '',
	tags             TEXT,
	significance     TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL,
	updated_at       TEXT
);
`

// Store holds a single-connection SQLite handle. SQLite serialises writers
// anyway, so one connection avoids SQLITE_BUSY churn.
type Store struct {
	db *sql.DB
}

// New opens (creating if necessary) the database at path and ensures the
// schema exists.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Load(ctx context.Context) (*types.Chronology, error) {
	c := types.NewChronology()

	var nextID int
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM chronology_meta WHERE key = 'next_id'").Scan(&nextID)
	switch {
	case err == sql.ErrNoRows:
		nextID = 1
	case err != nil:
		return nil, fmt.Errorf("load id counter: %w", err)
	}
	c.NextID = nextID

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_date, date_precision, description, parties,
		       document_source, document_excerpt, tags, significance,
		       created_at, updated_at
		FROM events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		c.Events = append(c.Events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	c.Normalize()
	c.RebuildIndices()
	return c, nil
}

func scanEvent(rows *sql.Rows) (types.Event, error) {
	var (
		e          types.Event
		dateStr    string
		partiesRaw string
		tagsRaw    sql.NullString
		createdStr string
		updatedStr sql.NullString
	)
	err := rows.Scan(&e.ID, &dateStr, &e.DatePrecision, &e.Description,
		&partiesRaw, &e.DocumentSource, &e.DocumentExcerpt, &tagsRaw,
		&e.Significance, &createdStr, &updatedStr)
	if err != nil {
		return types.Event{}, fmt.Errorf("scan event row: %w", err)
	}

	e.Date, err = types.ParseDate(dateStr)
	if err != nil {
		return types.Event{}, fmt.Errorf("event %d: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(partiesRaw), &e.Parties); err != nil {
		return types.Event{}, fmt.Errorf("event %d parties: %w", e.ID, err)
	}
	if tagsRaw.Valid && tagsRaw.String != "" {
		if err := json.Unmarshal([]byte(tagsRaw.String), &e.Tags); err != nil {
			return types.Event{}, fmt.Errorf("event %d tags: %w", e.ID, err)
		}
	}
	e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr)
	if err != nil {
		return types.Event{}, fmt.Errorf("event %d created_at: %w", e.ID, err)
	}
	if updatedStr.Valid {
		t, err := time.Parse(time.RFC3339Nano, updatedStr.String)
		if err != nil {
			return types.Event{}, fmt.Errorf("event %d updated_at: %w", e.ID, err)
		}
		e.UpdatedAt = &t
	}
	return e, nil
}

// Save replaces all persisted rows in one transaction.
func (s *Store) Save(ctx context.Context, c *types.Chronology) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM events"); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, event_date, date_precision, description,
			parties, document_source, document_excerpt, tags, significance,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range c.Events {
		parties, tags, updated, err := encodeEvent(e)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, e.ID, e.Date.String(),
			string(e.DatePrecision), e.Description, parties,
			e.DocumentSource, e.DocumentExcerpt, tags, e.Significance,
			e.CreatedAt.Format(time.RFC3339Nano), updated)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", e.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chronology_meta (key, value) VALUES ('next_id', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, c.NextID)
	if err != nil {
		return fmt.Errorf("save id counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func encodeEvent(e types.Event) (parties string, tags sql.NullString, updated sql.NullString, err error) {
	p, err := json.Marshal(e.Parties)
	if err != nil {
		return "", tags, updated, fmt.Errorf("encode event %d parties: %w", e.ID, err)
	}
	if e.Tags != nil {
		t, err := json.Marshal(e.Tags)
		if err != nil {
			return "", tags, updated, fmt.Errorf("encode event %d tags: %w", e.ID, err)
		}
		tags = sql.NullString{String: string(t), Valid: true}
	}
	if e.UpdatedAt != nil {
		updated = sql.NullString{String: e.UpdatedAt.Format(time.RFC3339Nano), Valid: true}
	}
	return string(p), tags, updated, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
