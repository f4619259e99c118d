// Package dispatch runs the per-slice state updates that follow a narrative turn.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jwebster45206/turnkeeper/pkg/oracle"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

var (
	// ErrBootstrapExhausted means the oracle never produced a starting inventory.
	ErrBootstrapExhausted = errors.New("inventory bootstrap attempts exhausted")

	// ErrSliceExhausted means a slice update kept returning malformed payloads.
	ErrSliceExhausted = errors.New("slice update attempts exhausted")
)

// Options configures retry budgets.
type Options struct {
	Policy            state.MergePolicy
	BootstrapAttempts int
	SliceAttempts     int
	// NewBackOff returns the delay schedule between attempts. Nil selects an
	// exponential backoff starting at 500ms.
	NewBackOff func() backoff.BackOff
}

// Result is an uncommitted draft and the slices requested to produce it.
type Result struct {
	Draft *state.Draft
	Calls []state.Slice
}

// Dispatcher requests one update per flagged slice, in a fixed order, each
// call seeing the draft as left by the previous one.
type Dispatcher struct {
	oracle oracle.Oracle
	opts   Options
	logger *slog.Logger
}

func New(o oracle.Oracle, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.BootstrapAttempts < 1 {
		opts.BootstrapAttempts = 1
	}
	if opts.SliceAttempts < 1 {
		opts.SliceAttempts = 1
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		}
	}
	return &Dispatcher{oracle: o, opts: opts, logger: logger}
}

// NeedsUpdates reports whether Dispatch would make any oracle call.
func NeedsUpdates(gs *state.GameSession, flags oracle.UpdateFlags) bool {
	return flags.Any() || !gs.HasInventory()
}

// Dispatch builds a draft from gs with every flagged slice refreshed. An empty
// inventory is always regenerated. gs is not modified.
func (d *Dispatcher) Dispatch(ctx context.Context, gs *state.GameSession, narrative string, flags oracle.UpdateFlags) (*Result, error) {
	draft := gs.BeginDraft(d.opts.Policy)
	res := &Result{Draft: draft}

	if flags.Player {
		res.Calls = append(res.Calls, state.SliceStats)
		patch, err := retrySlice(ctx, d, state.SliceStats, func() (*state.PlayerPatch, error) {
			return d.oracle.UpdateStats(ctx, draft.Session(), narrative)
		})
		if err != nil {
			draft.Discard()
			return nil, err
		}
		draft.ApplyStats(patch)
	}

	if flags.Location {
		res.Calls = append(res.Calls, state.SliceLocation)
		loc, err := retrySlice(ctx, d, state.SliceLocation, func() (state.Location, error) {
			loc, err := d.oracle.UpdateLocation(ctx, draft.Session(), narrative)
			if err == nil && loc.Name == "" {
				err = fmt.Errorf("%w: location has no name", oracle.ErrMalformedPayload)
			}
			return loc, err
		})
		if err != nil {
			draft.Discard()
			return nil, err
		}
		draft.SetLocation(loc)
	}

	if flags.Quest {
		res.Calls = append(res.Calls, state.SliceQuest)
		q, err := retrySlice(ctx, d, state.SliceQuest, func() (state.Quest, error) {
			q, err := d.oracle.UpdateQuest(ctx, draft.Session(), narrative)
			if err == nil && q.Name == "" {
				err = fmt.Errorf("%w: quest has no name", oracle.ErrMalformedPayload)
			}
			return q, err
		})
		if err != nil {
			draft.Discard()
			return nil, err
		}
		draft.SetQuest(q)
	}

	bootstrap := !gs.HasInventory()
	if flags.Inventory || bootstrap {
		res.Calls = append(res.Calls, state.SliceInventory)
		op := func() ([]state.InventoryEntry, error) {
			items, err := d.oracle.UpdateInventory(ctx, draft.Session(), narrative)
			if err == nil {
				err = oracle.CheckInventory(items)
			}
			return items, err
		}
		var (
			items []state.InventoryEntry
			err   error
		)
		if bootstrap {
			items, err = d.bootstrapInventory(ctx, op)
		} else {
			items, err = retrySlice(ctx, d, state.SliceInventory, op)
		}
		if err != nil {
			draft.Discard()
			return nil, err
		}
		draft.SetInventory(items)
	}

	d.logger.Debug("updates dispatched", "slices", res.Calls, "bootstrap", bootstrap)
	return res, nil
}

// retrySlice retries malformed payloads up to SliceAttempts. Any other error
// is returned at once.
func retrySlice[T any](ctx context.Context, d *Dispatcher, slice state.Slice, call func() (T, error)) (T, error) {
	attempt := 0
	v, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := call()
		if err != nil && !errors.Is(err, oracle.ErrMalformedPayload) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(d.opts.NewBackOff()),
		backoff.WithMaxTries(uint(d.opts.SliceAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			d.logger.Warn("slice update malformed, retrying",
				"slice", slice, "attempt", attempt, "retry_in", next, "error", err)
		}),
	)
	if err == nil {
		return v, nil
	}
	if errors.Is(err, oracle.ErrMalformedPayload) {
		return v, fmt.Errorf("%w: %s after %d attempts: %w", ErrSliceExhausted, slice, attempt, err)
	}
	return v, fmt.Errorf("%s update: %w", slice, err)
}

// bootstrapInventory keeps asking for a starting inventory until one entry has
// a name. Every failure counts against BootstrapAttempts.
func (d *Dispatcher) bootstrapInventory(ctx context.Context, op func() ([]state.InventoryEntry, error)) ([]state.InventoryEntry, error) {
	attempt := 0
	items, err := backoff.Retry(ctx, func() ([]state.InventoryEntry, error) {
		attempt++
		if err := ctx.Err(); err != nil {
			return nil, backoff.Permanent(err)
		}
		return op()
	},
		backoff.WithBackOff(d.opts.NewBackOff()),
		backoff.WithMaxTries(uint(d.opts.BootstrapAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			d.logger.Warn("inventory bootstrap failed, retrying",
				"attempt", attempt, "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrBootstrapExhausted, attempt, err)
	}
	return items, nil
}
