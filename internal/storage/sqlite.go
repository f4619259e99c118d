package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jwebster45206/turnkeeper/pkg/state"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS sessions (
	slot           TEXT PRIMARY KEY,
	schema_version INTEGER NOT NULL,
	payload        BLOB NOT NULL,
	saved_at       INTEGER NOT NULL
)`

// SQLiteStore keeps one row per save slot.
type SQLiteStore struct {
	sqlDB  *sql.DB
	slot   string
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens the database at path and creates the sessions table.
func OpenSQLite(path, slot string, logger *slog.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}
	sqlDB, err := sql.Open("sqlite", cleanPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB, slot: slot, logger: logger}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, gs *state.GameSession) error {
	data, err := MarshalEnvelope(gs)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO sessions (slot, schema_version, payload, saved_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET
		   schema_version = excluded.schema_version,
		   payload = excluded.payload,
		   saved_at = excluded.saved_at`,
		s.slot, SchemaVersion, data, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		s.logger.Error("Failed to save session", "slot", s.slot, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*state.GameSession, error) {
	var (
		version int
		payload []byte
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT schema_version, payload FROM sessions WHERE slot = ?`, s.slot,
	).Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if version > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, version)
	}
	return UnmarshalEnvelope(payload)
}

func (s *SQLiteStore) Delete(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE slot = ?`, s.slot); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
