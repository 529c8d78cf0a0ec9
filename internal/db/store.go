package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// AlarmStore is the persistence surface the alarm core consumes.
// GetAlarm returns (nil, nil) when no record exists for the id.
type AlarmStore interface {
	GetAlarm(ctx context.Context, id string) (*AlarmRecord, error)
	GetAllAlarms(ctx context.Context) ([]AlarmRecord, error)
	SaveAlarm(ctx context.Context, rec AlarmRecord) error
	DeleteAlarm(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

const schema = `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updatedAt REAL NOT NULL
	);
`

// Store keeps alarm records as JSON values in a SQLite key-value table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database in WAL mode.
// The path ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return NewStore(db), nil
}

// NewStore wraps an open connection whose kv table already exists.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetAlarm returns the record stored under id, or nil if there is none.
func (s *Store) GetAlarm(ctx context.Context, id string) (*AlarmRecord, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, Key(id)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query alarm %s: %w", id, err)
	}

	var rec AlarmRecord
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		return nil, fmt.Errorf("decode alarm %s: %w", id, err)
	}
	return &rec, nil
}

// GetAllAlarms returns every alarm record. Order is insertion order and
// callers must not rely on it.
func (s *Store) GetAllAlarms(ctx context.Context) ([]AlarmRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value
		FROM kv
		WHERE key LIKE 'alarm\_%' ESCAPE '\'
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query alarms: %w", err)
	}
	defer rows.Close()

	var alarms []AlarmRecord
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan alarm: %w", err)
		}
		var rec AlarmRecord
		if err := json.Unmarshal([]byte(value), &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		alarms = append(alarms, rec)
	}
	return alarms, rows.Err()
}

// SaveAlarm upserts the record, replacing any previous value for its id.
func (s *Store) SaveAlarm(ctx context.Context, rec AlarmRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode alarm %s: %w", rec.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updatedAt) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = excluded.updatedAt
	`, Key(rec.ID), string(data), unixFromTime(time.Now()))
	if err != nil {
		return fmt.Errorf("save alarm %s: %w", rec.ID, err)
	}
	return nil
}

// DeleteAlarm removes one record. Deleting a missing id is not an error.
func (s *Store) DeleteAlarm(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, Key(id)); err != nil {
		return fmt.Errorf("delete alarm %s: %w", id, err)
	}
	return nil
}

// DeleteAll removes every alarm record and leaves other keys alone.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key LIKE 'alarm\_%' ESCAPE '\'`); err != nil {
		return fmt.Errorf("delete alarms: %w", err)
	}
	return nil
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

var _ AlarmStore = (*Store)(nil)
