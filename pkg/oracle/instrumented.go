package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/jwebster45206/turnkeeper/pkg/prompts"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

// Recorder receives the outcome of every oracle call.
type Recorder interface {
	RecordOracleCall(ctx context.Context, call string, elapsed time.Duration, err error)
}

// Instrumented wraps a Service so every call runs under a timeout and is
// recorded and logged.
type Instrumented struct {
	inner   Service
	timeout time.Duration
	rec     Recorder
	logger  *slog.Logger
}

// NewInstrumented wraps inner. A non-positive timeout disables the deadline.
func NewInstrumented(inner Service, timeout time.Duration, rec Recorder, logger *slog.Logger) *Instrumented {
	return &Instrumented{inner: inner, timeout: timeout, rec: rec, logger: logger}
}

func observe[T any](i *Instrumented, ctx context.Context, call string, fn func(context.Context) (T, error)) (T, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}
	start := time.Now()
	out, err := fn(ctx)
	elapsed := time.Since(start)
	if i.rec != nil {
		i.rec.RecordOracleCall(ctx, call, elapsed, err)
	}
	if err != nil {
		i.logger.Warn("oracle call failed", "call", call, "elapsed", elapsed, "error", err)
	} else {
		i.logger.Debug("oracle call", "call", call, "elapsed", elapsed)
	}
	return out, err
}

func (i *Instrumented) GenerateNarrative(ctx context.Context, gs *state.GameSession) (*Narrative, error) {
	return observe(i, ctx, string(prompts.KindNarrative), func(ctx context.Context) (*Narrative, error) {
		return i.inner.GenerateNarrative(ctx, gs)
	})
}

func (i *Instrumented) UpdateStats(ctx context.Context, gs *state.GameSession, narrative string) (*state.PlayerPatch, error) {
	return observe(i, ctx, string(prompts.KindStats), func(ctx context.Context) (*state.PlayerPatch, error) {
		return i.inner.UpdateStats(ctx, gs, narrative)
	})
}

func (i *Instrumented) UpdateInventory(ctx context.Context, gs *state.GameSession, narrative string) ([]state.InventoryEntry, error) {
	return observe(i, ctx, string(prompts.KindInventory), func(ctx context.Context) ([]state.InventoryEntry, error) {
		return i.inner.UpdateInventory(ctx, gs, narrative)
	})
}

func (i *Instrumented) UpdateLocation(ctx context.Context, gs *state.GameSession, narrative string) (state.Location, error) {
	return observe(i, ctx, string(prompts.KindLocation), func(ctx context.Context) (state.Location, error) {
		return i.inner.UpdateLocation(ctx, gs, narrative)
	})
}

func (i *Instrumented) UpdateQuest(ctx context.Context, gs *state.GameSession, narrative string) (state.Quest, error) {
	return observe(i, ctx, string(prompts.KindQuest), func(ctx context.Context) (state.Quest, error) {
		return i.inner.UpdateQuest(ctx, gs, narrative)
	})
}

func (i *Instrumented) GenerateChoices(ctx context.Context, gs *state.GameSession, narrative string) ([]string, error) {
	return observe(i, ctx, string(prompts.KindChoices), func(ctx context.Context) ([]string, error) {
		return i.inner.GenerateChoices(ctx, gs, narrative)
	})
}

func (i *Instrumented) Summarize(ctx context.Context, gs *state.GameSession) (string, error) {
	return observe(i, ctx, string(prompts.KindSummarize), func(ctx context.Context) (string, error) {
		return i.inner.Summarize(ctx, gs)
	})
}

func (i *Instrumented) ShortenText(ctx context.Context, text string) (string, error) {
	return observe(i, ctx, string(prompts.KindShorten), func(ctx context.Context) (string, error) {
		return i.inner.ShortenText(ctx, text)
	})
}

func (i *Instrumented) GenerateClasses(ctx context.Context, settings state.GameSettings, c prompts.Character) ([]string, error) {
	return observe(i, ctx, string(prompts.KindClasses), func(ctx context.Context) ([]string, error) {
		return i.inner.GenerateClasses(ctx, settings, c)
	})
}

func (i *Instrumented) GeneratePlayer(ctx context.Context, settings state.GameSettings, c prompts.Character) (state.PlayerState, error) {
	return observe(i, ctx, string(prompts.KindPlayer), func(ctx context.Context) (state.PlayerState, error) {
		return i.inner.GeneratePlayer(ctx, settings, c)
	})
}

func (i *Instrumented) GenerateScenario(ctx context.Context, settings state.GameSettings, c prompts.Character, idea string) (string, error) {
	return observe(i, ctx, string(prompts.KindScenario), func(ctx context.Context) (string, error) {
		return i.inner.GenerateScenario(ctx, settings, c, idea)
	})
}

func (i *Instrumented) Translate(ctx context.Context, text, lang string) (string, error) {
	return observe(i, ctx, string(prompts.KindTranslate), func(ctx context.Context) (string, error) {
		return i.inner.Translate(ctx, text, lang)
	})
}
