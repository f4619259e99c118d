package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/turnkeeper/internal/storage"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

const maxHistoryCapacity = 50

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <save.json|save.yaml>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	validator := &SaveValidator{}

	if err := validator.validateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Save file is valid!")
}

type SaveValidator struct {
	errors []string
}

func (v *SaveValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	env, err := decodeStrict(filename, data)
	if err != nil {
		return err
	}

	v.errors = nil
	v.validateEnvelope(env)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

// decodeStrict rejects unknown fields so typos in hand-edited saves surface.
func decodeStrict(filename string, data []byte) (*storage.Envelope, error) {
	var env storage.Envelope
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&env); err != nil {
			return nil, fmt.Errorf("file %s failed strict YAML unmarshaling: %w", filename, err)
		}
	case ".json":
		if !json.Valid(data) {
			return nil, fmt.Errorf("file %s contains invalid JSON", filename)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&env); err != nil {
			return nil, fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
		}
	default:
		return nil, fmt.Errorf("save file must have a .json, .yaml or .yml extension: %s", filepath.Base(filename))
	}
	return &env, nil
}

func (v *SaveValidator) validateEnvelope(env *storage.Envelope) {
	if err := env.Check(); err != nil {
		v.addError("envelope: %v", err)
		return
	}
	gs := env.Session

	if gs.ID == uuid.Nil {
		v.addError("session id is missing")
	}
	if err := gs.Settings.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			v.addError("settings: %s", line)
		}
	}
	if gs.TurnCount < 0 {
		v.addError("turn_count %d is negative", gs.TurnCount)
	}

	v.validateVital("hp", gs.Player.HP, true)
	v.validateVital("mana", gs.Player.Mana, false)
	if gs.Player.Level < 1 {
		v.addError("player level %d must be at least 1", gs.Player.Level)
	}
	if gs.Player.Money < 0 {
		v.addError("player money %d is negative", gs.Player.Money)
	}

	v.validateInventory(gs.Inventory)

	if gs.Quest.Name == "" {
		v.addError("quest has no name (use %q)", state.NoQuestName)
	}
	for i, step := range gs.Quest.Steps {
		if step.Name == "" {
			v.addError("quest step %d has no name", i)
		}
	}

	h := gs.History
	if h.Capacity < 1 || h.Capacity > maxHistoryCapacity {
		v.addError("history capacity %d must be between 1 and %d", h.Capacity, maxHistoryCapacity)
	} else if len(h.Entries) > h.Capacity {
		v.addError("history has %d entries, more than its capacity %d", len(h.Entries), h.Capacity)
	}
	if gs.TurnCount == 0 && len(h.Entries) > 0 {
		v.addError("history has entries before the first turn")
	}
	if gs.CurrentTurn.NarrativeText == "" {
		v.addError("current turn has no narrative")
	}
}

func (v *SaveValidator) validateVital(name string, vital state.Vital, required bool) {
	if required && vital.Max <= 0 {
		v.addError("%s max %d must be positive", name, vital.Max)
	}
	if vital.Current < 0 {
		v.addError("%s current %d is negative", name, vital.Current)
	}
	if vital.Current > vital.Max {
		v.addError("%s current %d exceeds max %d", name, vital.Current, vital.Max)
	}
}

func (v *SaveValidator) validateInventory(items []state.InventoryEntry) {
	seen := make(map[string]int, len(items))
	for i, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			v.addError("inventory entry %d has no name", i)
			continue
		}
		if j, dup := seen[name]; dup {
			v.addError("inventory entry %d duplicates %q from entry %d", i, name, j)
		} else {
			seen[name] = i
		}
		if it.Count < 0 {
			v.addError("inventory entry %q has negative count %d", name, it.Count)
		}
	}
}

func (v *SaveValidator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf("  - "+format, args...))
}
