package turn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jwebster45206/turnkeeper/internal/dispatch"
	"github.com/jwebster45206/turnkeeper/internal/observe"
	"github.com/jwebster45206/turnkeeper/internal/storage"
	"github.com/jwebster45206/turnkeeper/pkg/oracle"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

func zeroBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

type fixture struct {
	session *state.GameSession
	oracle  *oracle.MockOracle
	store   *storage.MockStore
	player  *ScriptedPlayer
	reader  *sdkmetric.ManualReader
	ctrl    *Controller
}

func newFixture(t *testing.T, started bool, opts Options) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gs := state.NewGameSession(
		state.GameSettings{Environment: "moon base", Difficulty: "normal", Language: "en"},
		state.PlayerState{Username: "Kai", HP: state.Vital{Current: 10, Max: 10}, Money: 4},
		"Alarms blare.",
		3,
	)
	if started {
		gs.Inventory = []state.InventoryEntry{{Name: "Wrench", Count: 1}}
		gs.AnswerOpening("Look around")
	}

	reader := sdkmetric.NewManualReader()
	met, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	mo := oracle.NewMockOracle()
	d := dispatch.New(mo, dispatch.Options{
		BootstrapAttempts: 3,
		SliceAttempts:     2,
		NewBackOff:        zeroBackOff,
	}, logger)

	if opts.NarrativeAttempts == 0 {
		opts.NarrativeAttempts = 3
	}
	if opts.MaxTurnRestarts == 0 {
		opts.MaxTurnRestarts = 2
	}
	opts.NewBackOff = zeroBackOff

	f := &fixture{
		session: gs,
		oracle:  mo,
		store:   storage.NewMockStore(),
		player:  &ScriptedPlayer{},
		reader:  reader,
	}
	f.ctrl = NewController(gs, mo, d, f.store, f.player, met, opts, logger)
	return f
}

func (f *fixture) counter(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestRunTurn_FirstTurn(t *testing.T) {
	f := newFixture(t, false, Options{})
	f.player.Choices = []string{"Run to the airlock"}
	f.player.Confirms = []bool{false} // never consulted on the opening

	require.NoError(t, f.ctrl.RunTurn(context.Background()))

	assert.Zero(t, f.oracle.CallCount("GenerateNarrative"), "opening is not generated")
	assert.Equal(t, 1, f.oracle.CallCount("UpdateInventory"), "empty inventory bootstraps")
	assert.Equal(t, []string{"Alarms blare."}, f.player.Presented)
	assert.Len(t, f.player.Confirms, 1, "confirmation skipped on the first turn")

	gs := f.ctrl.Session()
	assert.Equal(t, "Knife", gs.Inventory[0].Name)
	assert.Equal(t, state.TurnRecord{NarrativeText: "Alarms blare.", UserChoice: "Run to the airlock"}, gs.CurrentTurn)
	assert.True(t, gs.History.IsEmpty())
	assert.Equal(t, 1, gs.TurnCount)
	assert.Equal(t, 1, f.store.SaveCount())
	assert.Equal(t, PhaseAwaitingNarrative, f.ctrl.Phase())
	assert.Equal(t, []string{"Knife"}, itemNames(f.player.Reports[0].Inventory.Added))
}

func itemNames(items []state.ItemCount) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestRunTurn_NoFlagsOnlyNarrativeCall(t *testing.T) {
	f := newFixture(t, true, Options{})

	require.NoError(t, f.ctrl.RunTurn(context.Background()))

	for _, call := range []string{"UpdateStats", "UpdateInventory", "UpdateLocation", "UpdateQuest"} {
		assert.Zero(t, f.oracle.CallCount(call), call)
	}
	assert.Equal(t, 1, f.oracle.CallCount("GenerateNarrative"))
	assert.Equal(t, int64(1), f.counter(t, "turnkeeper.turns.committed"))
}

func TestRunTurn_CommitRecordsHistory(t *testing.T) {
	f := newFixture(t, true, Options{SummarizeHistory: true, ShortenHistory: true})
	f.oracle.GenerateNarrativeFunc = func(ctx context.Context, gs *state.GameSession) (*oracle.Narrative, error) {
		return &oracle.Narrative{Text: "A robot rolls in.", UpdateFlags: oracle.UpdateFlags{Player: true}}, nil
	}
	f.oracle.UpdateStatsFunc = func(ctx context.Context, gs *state.GameSession, narrative string) (*state.PlayerPatch, error) {
		money := 0
		return &state.PlayerPatch{Money: &money}, nil
	}
	f.oracle.ShortenTextFunc = func(ctx context.Context, text string) (string, error) {
		return "Alarms.", nil
	}
	f.oracle.SummarizeFunc = func(ctx context.Context, gs *state.GameSession) (string, error) {
		return "Kai woke to alarms.", nil
	}
	f.oracle.GenerateChoicesFunc = func(ctx context.Context, gs *state.GameSession, narrative string) ([]string, error) {
		return []string{"Greet it", "Hide"}, nil
	}
	f.player.Choices = []string{"Hide"}

	require.NoError(t, f.ctrl.RunTurn(context.Background()))

	gs := f.ctrl.Session()
	assert.Equal(t, 0, gs.Player.Money, "presence merge keeps a drop to zero")
	assert.Empty(t, f.player.Reports[0].Changes, "zero values are not reported")
	assert.Equal(t, []state.TurnRecord{{NarrativeText: "Alarms.", UserChoice: "Look around"}}, gs.History.Records())
	assert.Equal(t, state.TurnRecord{NarrativeText: "A robot rolls in.", UserChoice: "Hide"}, gs.CurrentTurn)
	assert.Equal(t, "Kai woke to alarms.", gs.History.Summary)
	assert.Equal(t, [][]string{{"Greet it", "Hide"}}, f.player.Offered)

	saved, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gs.CurrentTurn, saved.CurrentTurn)
}

func TestRunTurn_RejectionLeavesStateAndStoreUntouched(t *testing.T) {
	f := newFixture(t, true, Options{NarrativeAttempts: 2})
	require.NoError(t, f.store.Save(context.Background(), f.session))
	beforeStore := f.store.Raw()
	beforeSession, err := json.Marshal(f.session)
	require.NoError(t, err)

	n := 0
	f.oracle.GenerateNarrativeFunc = func(ctx context.Context, gs *state.GameSession) (*oracle.Narrative, error) {
		n++
		if n > 1 {
			return nil, errors.New("connection refused")
		}
		return &oracle.Narrative{Text: "You find gold.", UpdateFlags: oracle.UpdateFlags{Inventory: true, Player: true}}, nil
	}
	f.oracle.UpdateInventoryFunc = func(ctx context.Context, gs *state.GameSession, narrative string) ([]state.InventoryEntry, error) {
		return []state.InventoryEntry{{Name: "Wrench", Count: 1}, {Name: "Gold", Count: 5}}, nil
	}
	f.oracle.UpdateStatsFunc = func(ctx context.Context, gs *state.GameSession, narrative string) (*state.PlayerPatch, error) {
		m := 50
		return &state.PlayerPatch{Money: &m}, nil
	}
	f.player.Confirms = []bool{false}

	// The rejected turn asks for a fresh narrative, which then fails, so the
	// turn ends without any commit.
	err = f.ctrl.RunTurn(context.Background())
	require.ErrorIs(t, err, ErrNarrativeUnavailable)

	assert.Equal(t, 3, n, "one rejected narrative plus two failed retries")
	assert.Equal(t, []string{"You got new items: 5 Gold", "Your money is now 50"}, f.player.Reports[0].Lines())
	assert.True(t, bytes.Equal(beforeStore, f.store.Raw()), "store changed after rejection")
	afterSession, err := json.Marshal(f.session)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(beforeSession, afterSession), "session changed after rejection")
	assert.Equal(t, int64(1), f.counter(t, "turnkeeper.turns.rejected"))
	assert.Equal(t, 1, f.store.SaveCount())
}

func TestRunTurn_SoftRestartOnMalformedInventory(t *testing.T) {
	f := newFixture(t, true, Options{})
	f.oracle.GenerateNarrativeFunc = func(ctx context.Context, gs *state.GameSession) (*oracle.Narrative, error) {
		return &oracle.Narrative{Text: "You drop something.", ToRemove: []string{"Wrench"}}, nil
	}
	calls := 0
	f.oracle.UpdateInventoryFunc = func(ctx context.Context, gs *state.GameSession, narrative string) ([]state.InventoryEntry, error) {
		calls++
		if calls <= 2 {
			return []state.InventoryEntry{{Count: 1}}, nil
		}
		return []state.InventoryEntry{{Name: "Wrench", Count: 0}, {Name: "Bolt", Count: 1}}, nil
	}

	require.NoError(t, f.ctrl.RunTurn(context.Background()))

	assert.Equal(t, 2, f.oracle.CallCount("GenerateNarrative"), "turn restarted once")
	assert.Equal(t, int64(1), f.counter(t, "turnkeeper.turns.restarted"))
	gs := f.ctrl.Session()
	assert.Equal(t, []state.InventoryEntry{{Name: "Bolt", Count: 1}}, gs.Inventory)
	report := f.player.Reports[len(f.player.Reports)-1]
	assert.Equal(t, []string{"Wrench"}, itemNames(report.Inventory.Removed))
}

func TestRunTurn_TooManyRestarts(t *testing.T) {
	f := newFixture(t, true, Options{MaxTurnRestarts: 1})
	f.oracle.GenerateNarrativeFunc = func(ctx context.Context, gs *state.GameSession) (*oracle.Narrative, error) {
		return &oracle.Narrative{Text: "Something moves.", UpdateFlags: oracle.UpdateFlags{Quest: true}}, nil
	}
	f.oracle.UpdateQuestFunc = func(ctx context.Context, gs *state.GameSession, narrative string) (state.Quest, error) {
		return state.Quest{}, nil
	}

	err := f.ctrl.RunTurn(context.Background())
	assert.ErrorIs(t, err, ErrTooManyRestarts)
	assert.ErrorIs(t, err, dispatch.ErrSliceExhausted)
	assert.Zero(t, f.store.SaveCount())
}

func TestRunTurn_BootstrapExhaustedIsFatal(t *testing.T) {
	f := newFixture(t, false, Options{MaxTurnRestarts: 5})
	f.oracle.UpdateInventoryFunc = func(ctx context.Context, gs *state.GameSession, narrative string) ([]state.InventoryEntry, error) {
		return nil, errors.New("overloaded")
	}

	err := f.ctrl.RunTurn(context.Background())
	assert.ErrorIs(t, err, dispatch.ErrBootstrapExhausted)
	assert.NotErrorIs(t, err, ErrTooManyRestarts)
	assert.Equal(t, 3, f.oracle.CallCount("UpdateInventory"), "one dispatch, no turn restarts")
	assert.Zero(t, f.counter(t, "turnkeeper.turns.restarted"))
	assert.Zero(t, f.store.SaveCount())
	assert.Empty(t, f.player.Presented)
}

func TestRunTurn_NarrativeRetriedThenUnavailable(t *testing.T) {
	f := newFixture(t, true, Options{NarrativeAttempts: 3})
	n := 0
	f.oracle.GenerateNarrativeFunc = func(ctx context.Context, gs *state.GameSession) (*oracle.Narrative, error) {
		n++
		if n == 1 {
			return &oracle.Narrative{Text: "  "}, nil
		}
		return nil, errors.New("timeout")
	}

	err := f.ctrl.RunTurn(context.Background())
	assert.ErrorIs(t, err, ErrNarrativeUnavailable)
	assert.Equal(t, 3, n)
	assert.Equal(t, PhaseAwaitingNarrative, f.ctrl.Phase())
}

func TestRun_NarrativeUnavailable(t *testing.T) {
	tests := []struct {
		name     string
		retries  []bool
		wantErr  error
		wantRuns int
	}{
		{name: "player gives up", retries: []bool{false}, wantErr: ErrNarrativeUnavailable, wantRuns: 2},
		{name: "player retries", retries: []bool{true}, wantRuns: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true, Options{NarrativeAttempts: 2})
			f.player.Retries = tt.retries
			n := 0
			f.oracle.GenerateNarrativeFunc = func(ctx context.Context, gs *state.GameSession) (*oracle.Narrative, error) {
				n++
				if n <= 2 {
					return nil, errors.New("connection refused")
				}
				return &oracle.Narrative{Text: "The hatch opens.", GameOver: true}, nil
			}

			err := f.ctrl.Run(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, PhaseGameOver, f.ctrl.Phase())
				assert.Equal(t, 1, f.store.SaveCount())
			}
			assert.Equal(t, tt.wantRuns, n)
			require.Len(t, f.player.Failures, 1)
			assert.ErrorIs(t, f.player.Failures[0], ErrNarrativeUnavailable)
		})
	}
}

func TestRun_GameOverStopsNarrative(t *testing.T) {
	f := newFixture(t, true, Options{})
	turn := 0
	f.oracle.GenerateNarrativeFunc = func(ctx context.Context, gs *state.GameSession) (*oracle.Narrative, error) {
		turn++
		return &oracle.Narrative{Text: "The reactor blows.", GameOver: turn == 2}, nil
	}

	require.NoError(t, f.ctrl.Run(context.Background()))

	assert.Equal(t, 2, f.oracle.CallCount("GenerateNarrative"))
	assert.Equal(t, 1, f.oracle.CallCount("GenerateChoices"), "no choice after game over")
	assert.Equal(t, PhaseGameOver, f.ctrl.Phase())

	saved, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, saved.IsEnded)

	require.NoError(t, f.ctrl.RunTurn(context.Background()))
	assert.Equal(t, 2, f.oracle.CallCount("GenerateNarrative"), "ended session asks for nothing")
}

func TestRun_ChoicesFallback(t *testing.T) {
	f := newFixture(t, true, Options{})
	f.oracle.GenerateChoicesFunc = func(ctx context.Context, gs *state.GameSession, narrative string) ([]string, error) {
		return nil, errors.New("bad gateway")
	}

	require.NoError(t, f.ctrl.RunTurn(context.Background()))
	assert.Equal(t, [][]string{{FallbackChoice}}, f.player.Offered)
	assert.Equal(t, FallbackChoice, f.ctrl.Session().CurrentTurn.UserChoice)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "awaiting_confirmation", PhaseAwaitingConfirmation.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
