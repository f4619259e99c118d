package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/turnkeeper/internal/config"
	"github.com/jwebster45206/turnkeeper/internal/storage"
	"github.com/jwebster45206/turnkeeper/pkg/oracle"
)

// creationInput answers every character creation prompt.
const creationInput = "en\nAda\nswamp\n\n\nf\ntall and quiet\n1\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadOrCreate_NewerSaveIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")
	newer := []byte(`{"schema_version":2,"session":{"player":{"username":"Precious"}}}`)
	require.NoError(t, os.WriteFile(path, newer, 0o644))

	c, _ := testConsole(creationInput)
	mo := oracle.NewMockOracle()
	store := storage.NewFileStore(path, discardLogger())

	gs, err := loadOrCreate(context.Background(), c, mo, store, &config.Config{HistoryCapacity: 5}, discardLogger())
	assert.Nil(t, gs)
	assert.ErrorIs(t, err, storage.ErrUnsupportedSchema)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, newer, got, "a newer save must not be overwritten")
	assert.Zero(t, mo.CallCount("GenerateScenario"))
}

func TestLoadOrCreate_BrokenFileSetAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	c, out := testConsole(creationInput)
	store := storage.NewFileStore(path, discardLogger())

	gs, err := loadOrCreate(context.Background(), c, oracle.NewMockOracle(), store, &config.Config{HistoryCapacity: 5}, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, gs)
	assert.Equal(t, "Ada", gs.Player.Username)
	assert.Contains(t, out.String(), path+".bad")

	kept, err := os.ReadFile(path + ".bad")
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(kept))

	saved, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, gs.ID, saved.ID)
}

func TestLoadOrCreate_BrokenRecordNeedsConsent(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   error
		wantSaves int
	}{
		{name: "declined", input: "n\n", wantErr: errSaveKept, wantSaves: 0},
		{name: "empty answer asks again", input: "\nn\n", wantErr: errSaveKept, wantSaves: 0},
		{name: "overwrite", input: "y\n" + creationInput, wantSaves: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMockStore()
			store.SetRaw([]byte("not a save"))
			c, _ := testConsole(tt.input)

			gs, err := loadOrCreate(context.Background(), c, oracle.NewMockOracle(), store, &config.Config{HistoryCapacity: 5}, discardLogger())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, gs)
				assert.Equal(t, []byte("not a save"), store.Raw())
			} else {
				require.NoError(t, err)
				require.NotNil(t, gs)
			}
			assert.Equal(t, tt.wantSaves, store.SaveCount())
		})
	}
}

func TestLoadOrCreate_ResumeShowsCurrentTurn(t *testing.T) {
	store := storage.NewMockStore()
	seed, err := createSession(context.Background(), mustConsole(t, creationInput), oracle.NewMockOracle(), &config.Config{HistoryCapacity: 5})
	require.NoError(t, err)
	seed.AnswerOpening("Look around")
	seed.RecordTurn("The fog lifts over the reeds.", "Wade in")
	require.NoError(t, store.Save(context.Background(), seed))

	c, out := testConsole("y\n")
	gs, err := loadOrCreate(context.Background(), c, oracle.NewMockOracle(), store, &config.Config{HistoryCapacity: 5}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, seed.ID, gs.ID)
	assert.Contains(t, out.String(), "The fog lifts over the reeds.")
}

func mustConsole(t *testing.T, input string) *Console {
	t.Helper()
	c, _ := testConsole(input)
	return c
}
