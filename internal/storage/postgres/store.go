// Package postgres persists the chronology in PostgreSQL via lib/pq. Same
// wholesale load/save semantics as the sqlite store; indices are rebuilt at
// load, never persisted.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/casefolio/chronicle/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS chronology_meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id               INTEGER PRIMARY KEY,
	event_date       DATE NOT NULL,
	date_precision   TEXT NOT NULL,
	description      TEXT NOT NULL,
	parties          JSONB NOT NULL,
	document_source  TEXT NOT NULL DEFAULT '',
	document_excerpt TEXT NOT NULL DEFAULT '',
	tags             JSONB,
	significance     TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ
);
`

type Store struct {
	db *sql.DB
}

// New connects to PostgreSQL with the given DSN and ensures the schema
// exists.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
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
		var (
			e          types.Event
			eventDate  time.Time
			partiesRaw []byte
			tagsRaw    []byte
			updatedAt  sql.NullTime
		)
		err := rows.Scan(&e.ID, &eventDate, &e.DatePrecision, &e.Description,
			&partiesRaw, &e.DocumentSource, &e.DocumentExcerpt, &tagsRaw,
			&e.Significance, &e.CreatedAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.Date = types.DateOf(eventDate)
		if err := json.Unmarshal(partiesRaw, &e.Parties); err != nil {
			return nil, fmt.Errorf("event %d parties: %w", e.ID, err)
		}
		if len(tagsRaw) > 0 {
			if err := json.Unmarshal(tagsRaw, &e.Tags); err != nil {
				return nil, fmt.Errorf("event %d tags: %w", e.ID, err)
			}
		}
		if updatedAt.Valid {
			t := updatedAt.Time
			e.UpdatedAt = &t
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range c.Events {
		parties, err := json.Marshal(e.Parties)
		if err != nil {
			return fmt.Errorf("encode event %d parties: %w", e.ID, err)
		}
		// JSONB values travel as text; []byte would be sent as bytea.
		var tags sql.NullString
		if e.Tags != nil {
			data, err := json.Marshal(e.Tags)
			if err != nil {
				return fmt.Errorf("encode event %d tags: %w", e.ID, err)
			}
			tags = sql.NullString{String: string(data), Valid: true}
		}
		var updated sql.NullTime
		if e.UpdatedAt != nil {
			updated = sql.NullTime{Time: *e.UpdatedAt, Valid: true}
		}
		_, err = stmt.ExecContext(ctx, e.ID, e.Date.Time(),
			string(e.DatePrecision), e.Description, string(parties),
			e.DocumentSource, e.DocumentExcerpt, tags, e.Significance,
			e.CreatedAt, updated)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", e.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chronology_meta (key, value) VALUES ('next_id', $1)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, c.NextID)
	if err != nil {
		return fmt.Errorf("save id counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
