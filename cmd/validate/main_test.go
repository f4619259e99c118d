package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/turnkeeper/internal/storage"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

func validSession() *state.GameSession {
	gs := state.NewGameSession(
		state.GameSettings{Environment: "jungle", Difficulty: "hard", Language: "en"},
		state.PlayerState{Username: "Ada", HP: state.Vital{Current: 6, Max: 8}},
		"Vines.",
		4,
	)
	gs.Inventory = []state.InventoryEntry{{Name: "Machete", Count: 1}}
	return gs
}

func writeSave(t *testing.T, name string, gs *state.GameSession) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	var data []byte
	var err error
	if strings.HasSuffix(name, ".json") {
		data, err = storage.MarshalEnvelope(gs)
	} else {
		data, err = yaml.Marshal(storage.NewEnvelope(gs))
	}
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestValidateFile_Valid(t *testing.T) {
	for _, name := range []string{"save.json", "save.yaml"} {
		t.Run(name, func(t *testing.T) {
			v := &SaveValidator{}
			if err := v.validateFile(writeSave(t, name, validSession())); err != nil {
				t.Errorf("validateFile() error = %v", err)
			}
		})
	}
}

func TestValidateFile_ReportsEveryIssue(t *testing.T) {
	gs := validSession()
	gs.Player.HP = state.Vital{Current: 12, Max: 8}
	gs.Inventory = append(gs.Inventory, state.InventoryEntry{Name: "Machete", Count: -1})
	gs.History.Capacity = 1
	gs.History.Entries = []state.TurnRecord{{NarrativeText: "a"}, {NarrativeText: "b"}}
	gs.TurnCount = 2

	v := &SaveValidator{}
	err := v.validateFile(writeSave(t, "bad.json", gs))
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"hp current 12 exceeds max 8", "duplicates \"Machete\"", "negative count", "more than its capacity"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestValidateFile_Strict(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown field", "save.json", `{"schema_version":1,"session":{},"extra":true}`},
		{"invalid json", "save.json", `{`},
		{"future schema", "save.json", `{"schema_version":9,"session":{"id":"6f1c3f7e-8f5a-4a53-9d0a-4f7b2a7c1d11"}}`},
		{"unknown yaml field", "save.yaml", "schema_version: 1\nsurprise: 2\n"},
		{"wrong extension", "save.txt", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			v := &SaveValidator{}
			if err := v.validateFile(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
