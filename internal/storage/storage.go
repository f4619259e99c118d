package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jwebster45206/turnkeeper/pkg/state"
)

// SchemaVersion is the envelope version written by this build.
const SchemaVersion = 1

var ErrUnsupportedSchema = errors.New("unsupported save schema version")

// Store persists one game session per slot.
type Store interface {
	// Save writes the full session, replacing any previous save.
	Save(ctx context.Context, gs *state.GameSession) error

	// Load returns the saved session, or nil with no error when nothing is saved.
	Load(ctx context.Context) (*state.GameSession, error)

	Delete(ctx context.Context) error

	// Health and lifecycle methods
	Ping(ctx context.Context) error
	Close() error
}

// Envelope wraps a saved session with its schema version.
type Envelope struct {
	SchemaVersion int                `json:"schema_version" yaml:"schema_version"`
	SavedAt       time.Time          `json:"saved_at" yaml:"saved_at"`
	Session       *state.GameSession `json:"session" yaml:"session"`
}

// NewEnvelope wraps gs at the current schema version.
func NewEnvelope(gs *state.GameSession) Envelope {
	return Envelope{
		SchemaVersion: SchemaVersion,
		SavedAt:       time.Now().UTC(),
		Session:       gs,
	}
}

// Check rejects envelopes this build cannot read.
func (e *Envelope) Check() error {
	if err := checkVersion(e.SchemaVersion); err != nil {
		return err
	}
	if e.Session == nil {
		return errors.New("save has no session")
	}
	return nil
}

func checkVersion(v int) error {
	if v > SchemaVersion || v < 0 {
		return fmt.Errorf("%w: %d", ErrUnsupportedSchema, v)
	}
	return nil
}

// MarshalEnvelope encodes gs as a JSON envelope.
func MarshalEnvelope(gs *state.GameSession) ([]byte, error) {
	data, err := json.Marshal(NewEnvelope(gs))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

// UnmarshalEnvelope decodes a JSON save. A bare session without an envelope is
// read as schema version 0 and upgraded.
func UnmarshalEnvelope(data []byte) (*state.GameSession, error) {
	var header struct {
		SchemaVersion *int            `json:"schema_version"`
		Session       json.RawMessage `json:"session"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to unmarshal save: %w", err)
	}
	if header.SchemaVersion == nil && header.Session == nil {
		var gs state.GameSession
		if err := json.Unmarshal(data, &gs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %w", err)
		}
		return upgrade(&gs), nil
	}
	if header.SchemaVersion != nil {
		if err := checkVersion(*header.SchemaVersion); err != nil {
			return nil, err
		}
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal save: %w", err)
	}
	if err := env.Check(); err != nil {
		return nil, err
	}
	return upgrade(env.Session), nil
}

// upgrade fills fields that older saves did not carry.
func upgrade(gs *state.GameSession) *state.GameSession {
	if gs.History.Capacity <= 0 {
		gs.History.Capacity = state.DefaultHistoryCapacity
	}
	if gs.Quest.Name == "" {
		gs.Quest = state.NoQuest()
	}
	if gs.CurrentTurn.UserChoice == "" && gs.TurnCount == 0 {
		gs.CurrentTurn.UserChoice = state.OpeningChoice
	}
	return gs
}
