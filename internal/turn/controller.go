// Package turn drives a game session one turn at a time: narrative, slice
// updates, player confirmation, commit and persistence.
package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jwebster45206/turnkeeper/internal/dispatch"
	"github.com/jwebster45206/turnkeeper/internal/logger"
	"github.com/jwebster45206/turnkeeper/internal/observe"
	"github.com/jwebster45206/turnkeeper/internal/storage"
	"github.com/jwebster45206/turnkeeper/pkg/oracle"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

// FallbackChoice is offered when the oracle cannot produce choices.
const FallbackChoice = "Continue"

var (
	// ErrNarrativeUnavailable means every narrative attempt for a turn failed.
	ErrNarrativeUnavailable = errors.New("narrative unavailable")

	// ErrTooManyRestarts means a turn kept failing after its narrative arrived.
	ErrTooManyRestarts = errors.New("too many turn restarts")
)

// Player is the interactive side of the game.
type Player interface {
	// Present shows the narrative and what it changed.
	Present(ctx context.Context, narrative string, report state.Report) error
	// Confirm asks whether to keep the turn.
	Confirm(ctx context.Context) (bool, error)
	// Choose returns the player's next action. It may be one of choices or free text.
	Choose(ctx context.Context, choices []string) (string, error)
	// Retry asks whether to try the turn again after the oracle stayed unavailable.
	Retry(ctx context.Context, cause error) (bool, error)
}

// Options tunes retry budgets and history upkeep.
type Options struct {
	Policy            state.MergePolicy
	NarrativeAttempts int
	MaxTurnRestarts   int
	SummarizeHistory  bool
	ShortenHistory    bool
	// NewBackOff returns the delay schedule between narrative attempts. Nil
	// selects an exponential backoff starting at one second.
	NewBackOff func() backoff.BackOff
}

// Controller owns a session for its lifetime. It is not safe for concurrent use.
type Controller struct {
	session    *state.GameSession
	oracle     oracle.Oracle
	dispatcher *dispatch.Dispatcher
	store      storage.Store
	player     Player
	metrics    *observe.Metrics
	opts       Options
	logger     *slog.Logger
	phase      Phase
}

func NewController(
	gs *state.GameSession,
	o oracle.Oracle,
	d *dispatch.Dispatcher,
	store storage.Store,
	player Player,
	metrics *observe.Metrics,
	opts Options,
	log *slog.Logger,
) *Controller {
	if opts.NarrativeAttempts < 1 {
		opts.NarrativeAttempts = 1
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 10 * time.Second
			return b
		}
	}
	if metrics == nil {
		metrics = observe.Nop()
	}
	phase := PhaseAwaitingNarrative
	if gs.IsEnded {
		phase = PhaseGameOver
	}
	return &Controller{
		session:    gs,
		oracle:     o,
		dispatcher: d,
		store:      store,
		player:     player,
		metrics:    metrics,
		opts:       opts,
		logger:     logger.WithSession(log, gs.ID.String()),
		phase:      phase,
	}
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// Session returns a snapshot of the committed session.
func (c *Controller) Session() *state.GameSession {
	return c.session.Snapshot()
}

func (c *Controller) setPhase(p Phase) {
	c.phase = p
	c.logger.Debug("phase", "phase", p.String(), "turn", c.session.TurnCount)
}

// Run plays turns until the game ends, ctx is cancelled or a turn fails.
// When the narrative stays unavailable the player decides whether to retry.
func (c *Controller) Run(ctx context.Context) error {
	for c.phase != PhaseGameOver {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.RunTurn(ctx)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNarrativeUnavailable) {
			return err
		}
		again, perr := c.player.Retry(ctx, err)
		if perr != nil {
			return perr
		}
		if !again {
			return err
		}
		c.logger.Info("retrying turn", "turn", c.session.TurnCount)
	}
	c.logger.Info("game over", "turn", c.session.TurnCount)
	return nil
}

// RunTurn plays one turn to commit. Rejected turns and soft failures restart
// from a fresh narrative without touching the session or the store.
func (c *Controller) RunTurn(ctx context.Context) error {
	if c.session.IsEnded {
		c.setPhase(PhaseGameOver)
		return nil
	}
	first := c.session.IsFirstTurn()
	restarts := 0

	for {
		c.setPhase(PhaseAwaitingNarrative)
		narr, err := c.narrative(ctx, first)
		if err != nil {
			return err
		}

		flags := narr.ResolveFlags()
		var draft *state.Draft
		if dispatch.NeedsUpdates(c.session, flags) {
			c.setPhase(PhasePendingUpdates)
			res, err := c.dispatcher.Dispatch(ctx, c.session, narr.Text, flags)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, dispatch.ErrBootstrapExhausted) {
					return err
				}
				restarts++
				c.metrics.TurnsRestarted.Add(ctx, 1)
				logger.WithError(c.logger, err).Warn("updates failed, restarting turn", "restart", restarts)
				if restarts > c.opts.MaxTurnRestarts {
					return fmt.Errorf("%w: %d: %w", ErrTooManyRestarts, restarts, err)
				}
				continue
			}
			draft = res.Draft
		} else {
			draft = c.session.BeginDraft(c.opts.Policy)
		}
		if narr.GameOver {
			draft.MarkGameOver()
		}

		report := state.BuildReport(c.session, draft)
		if err := c.player.Present(ctx, narr.Text, report); err != nil {
			draft.Discard()
			return err
		}

		if !first {
			c.setPhase(PhaseAwaitingConfirmation)
			ok, err := c.player.Confirm(ctx)
			if err != nil {
				draft.Discard()
				return err
			}
			if !ok {
				draft.Discard()
				c.metrics.TurnsRejected.Add(ctx, 1)
				c.logger.Info("turn rejected", "turn", c.session.TurnCount)
				continue
			}
		}

		return c.commit(ctx, draft, narr.Text, first)
	}
}

// narrative returns the story text for this turn. The first turn replays the
// opening instead of asking the oracle.
func (c *Controller) narrative(ctx context.Context, first bool) (*oracle.Narrative, error) {
	if first {
		return &oracle.Narrative{Text: c.session.CurrentTurn.NarrativeText}, nil
	}

	attempt := 0
	narr, err := backoff.Retry(ctx, func() (*oracle.Narrative, error) {
		attempt++
		if err := ctx.Err(); err != nil {
			return nil, backoff.Permanent(err)
		}
		n, err := c.oracle.GenerateNarrative(ctx, c.session.Snapshot())
		if err == nil && strings.TrimSpace(n.Text) == "" {
			err = oracle.ErrEmptyNarrative
		}
		return n, err
	},
		backoff.WithBackOff(c.opts.NewBackOff()),
		backoff.WithMaxTries(uint(c.opts.NarrativeAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("narrative failed, retrying", "attempt", attempt, "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		c.logger.Error("narrative unavailable", "attempts", attempt, "error", err)
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrNarrativeUnavailable, attempt, err)
	}
	return narr, nil
}

func (c *Controller) commit(ctx context.Context, draft *state.Draft, narrative string, first bool) error {
	if err := c.session.Commit(draft); err != nil {
		return fmt.Errorf("commit turn: %w", err)
	}
	c.setPhase(PhaseCommitted)
	c.metrics.TurnsCommitted.Add(ctx, 1)
	c.logger.Info("turn committed", "turn", c.session.TurnCount, "slices", draft.UpdatedSlices())

	if c.session.IsEnded {
		c.session.RecordTurn(narrative, "")
		if err := c.persist(ctx); err != nil {
			return err
		}
		c.setPhase(PhaseGameOver)
		return nil
	}

	choice, err := c.choose(ctx, narrative)
	if err != nil {
		return err
	}
	if first {
		c.session.AnswerOpening(choice)
	} else {
		c.shortenCurrent(ctx)
		c.session.RecordTurn(narrative, choice)
	}
	c.summarize(ctx)

	if err := c.persist(ctx); err != nil {
		return err
	}
	c.setPhase(PhaseAwaitingNarrative)
	return nil
}

func (c *Controller) choose(ctx context.Context, narrative string) (string, error) {
	choices, err := c.oracle.GenerateChoices(ctx, c.session.Snapshot(), narrative)
	if err != nil {
		c.logger.Warn("choices unavailable, offering fallback", "error", err)
	}
	if len(choices) == 0 {
		choices = []string{FallbackChoice}
	}
	choice, err := c.player.Choose(ctx, choices)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(choice) == "" {
		choice = choices[0]
	}
	return choice, nil
}

// shortenCurrent condenses the narrative about to enter the history window.
func (c *Controller) shortenCurrent(ctx context.Context) {
	if !c.opts.ShortenHistory || c.session.CurrentTurn.NarrativeText == "" {
		return
	}
	short, err := c.oracle.ShortenText(ctx, c.session.CurrentTurn.NarrativeText)
	if err != nil || strings.TrimSpace(short) == "" {
		c.logger.Warn("shorten failed, keeping full narrative", "error", err)
		return
	}
	c.session.CurrentTurn.NarrativeText = short
}

func (c *Controller) summarize(ctx context.Context) {
	if !c.opts.SummarizeHistory || c.session.History.IsEmpty() {
		return
	}
	summary, err := c.oracle.Summarize(ctx, c.session.Snapshot())
	if err != nil || strings.TrimSpace(summary) == "" {
		c.logger.Warn("summary failed, keeping previous", "error", err)
		return
	}
	c.session.History.Summary = summary
}

func (c *Controller) persist(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Save(ctx, c.session); err != nil {
		c.logger.Error("Failed to save session", "error", err)
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
