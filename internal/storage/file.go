package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/turnkeeper/pkg/state"
)

// FileStore keeps the session in a single JSON or YAML file, chosen by the
// path extension.
type FileStore struct {
	path   string
	yaml   bool
	logger *slog.Logger
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	ext := strings.ToLower(filepath.Ext(path))
	return &FileStore{
		path:   path,
		yaml:   ext == ".yaml" || ext == ".yml",
		logger: logger,
	}
}

// SetAside renames an unreadable save to <path>.bad so a new game does not
// overwrite it. It returns the new location.
func (f *FileStore) SetAside() (string, error) {
	bad := f.path + ".bad"
	if err := os.Rename(f.path, bad); err != nil {
		return "", fmt.Errorf("failed to set save aside: %w", err)
	}
	f.logger.Warn("unreadable save set aside", "path", bad)
	return bad, nil
}

// Save writes to a temp file in the same directory and renames it over the
// previous save, so a crash never leaves a partial file.
func (f *FileStore) Save(ctx context.Context, gs *state.GameSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := f.encode(gs)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".save-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write save: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close save: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace save: %w", err)
	}

	f.logger.Debug("session saved", "path", f.path, "session_id", gs.ID, "turn", gs.TurnCount)
	return nil
}

func (f *FileStore) Load(ctx context.Context) (*state.GameSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read save: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	gs, err := f.decode(data)
	if err != nil {
		f.logger.Error("Failed to load save", "path", f.path, "error", err)
		return nil, err
	}
	return gs, nil
}

func (f *FileStore) Delete(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete save: %w", err)
	}
	return nil
}

// Ping checks that the save directory is usable.
func (f *FileStore) Ping(ctx context.Context) error {
	dir := filepath.Dir(f.path)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("save directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("save directory %s is not a directory", dir)
	}
	return nil
}

func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) encode(gs *state.GameSession) ([]byte, error) {
	if !f.yaml {
		return MarshalEnvelope(gs)
	}
	data, err := yaml.Marshal(NewEnvelope(gs))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

func (f *FileStore) decode(data []byte) (*state.GameSession, error) {
	if !f.yaml {
		return UnmarshalEnvelope(data)
	}
	var header struct {
		SchemaVersion int `yaml:"schema_version"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to unmarshal save: %w", err)
	}
	if err := checkVersion(header.SchemaVersion); err != nil {
		return nil, err
	}

	var env Envelope
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal save: %w", err)
	}
	if env.SchemaVersion == 0 && env.Session == nil {
		var gs state.GameSession
		if err := yaml.Unmarshal(data, &gs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %w", err)
		}
		return upgrade(&gs), nil
	}
	if err := env.Check(); err != nil {
		return nil, err
	}
	return upgrade(env.Session), nil
}
