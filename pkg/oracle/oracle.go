// Package oracle defines the narrative oracle the turn engine talks to and an
// implementation backed by a chat LLM.
package oracle

import (
	"context"
	"errors"

	"github.com/jwebster45206/turnkeeper/pkg/prompts"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

var (
	// ErrMalformedPayload means the oracle answered but the answer does not
	// have the expected shape. Retrying the same call may succeed.
	ErrMalformedPayload = errors.New("malformed oracle payload")

	// ErrEmptyNarrative means the narrative call returned no story text.
	ErrEmptyNarrative = errors.New("oracle returned an empty narrative")
)

// Oracle produces narrative turns and the per-slice updates that follow them.
type Oracle interface {
	GenerateNarrative(ctx context.Context, gs *state.GameSession) (*Narrative, error)
	UpdateStats(ctx context.Context, gs *state.GameSession, narrative string) (*state.PlayerPatch, error)
	UpdateInventory(ctx context.Context, gs *state.GameSession, narrative string) ([]state.InventoryEntry, error)
	UpdateLocation(ctx context.Context, gs *state.GameSession, narrative string) (state.Location, error)
	UpdateQuest(ctx context.Context, gs *state.GameSession, narrative string) (state.Quest, error)
	GenerateChoices(ctx context.Context, gs *state.GameSession, narrative string) ([]string, error)
	// Summarize folds the history window into a new story summary.
	Summarize(ctx context.Context, gs *state.GameSession) (string, error)
	// ShortenText condenses a narrative before it enters the history window.
	ShortenText(ctx context.Context, text string) (string, error)
}

// Creator generates everything needed before the first turn.
type Creator interface {
	GenerateClasses(ctx context.Context, settings state.GameSettings, c prompts.Character) ([]string, error)
	GeneratePlayer(ctx context.Context, settings state.GameSettings, c prompts.Character) (state.PlayerState, error)
	GenerateScenario(ctx context.Context, settings state.GameSettings, c prompts.Character, idea string) (string, error)
	Translate(ctx context.Context, text, lang string) (string, error)
}

// Service is an Oracle that can also create sessions.
type Service interface {
	Oracle
	Creator
}

// UpdateFlags says which slices a narrative turn changed.
type UpdateFlags struct {
	Player    bool `json:"need_player_update"`
	Inventory bool `json:"need_inventory_update"`
	Location  bool `json:"need_location_update"`
	Quest     bool `json:"need_quest_update"`
}

// Any reports whether at least one flag is set.
func (f UpdateFlags) Any() bool {
	return f.Player || f.Inventory || f.Location || f.Quest
}

// Narrative is the result of a narrative call.
type Narrative struct {
	Text string `json:"narrative_text"`
	UpdateFlags
	GameOver bool `json:"is_game_over"`

	ToAdd    []string `json:"to_add,omitempty"`
	ToRemove []string `json:"to_remove,omitempty"`
	ToUpdate []string `json:"to_update,omitempty"`

	PlayerUpdateReason    string `json:"player_update_reason,omitempty"`
	InventoryUpdateReason string `json:"inventory_update_reason,omitempty"`
	LocationUpdateReason  string `json:"location_update_reason,omitempty"`
	QuestUpdateReason     string `json:"quest_update_reason,omitempty"`
}

// ResolveFlags merges the explicit flags with the ones implied by item lists
// and update reasons.
func (n *Narrative) ResolveFlags() UpdateFlags {
	f := n.UpdateFlags
	if len(n.ToAdd) > 0 || len(n.ToRemove) > 0 || len(n.ToUpdate) > 0 || n.InventoryUpdateReason != "" {
		f.Inventory = true
	}
	if n.PlayerUpdateReason != "" {
		f.Player = true
	}
	if n.LocationUpdateReason != "" {
		f.Location = true
	}
	if n.QuestUpdateReason != "" {
		f.Quest = true
	}
	return f
}
