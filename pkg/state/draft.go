package state

import (
	"errors"
	"time"
)

// Slice names an independently updatable partition of player state.
type Slice string

const (
	SliceStats     Slice = "stats"
	SliceLocation  Slice = "location"
	SliceQuest     Slice = "quest"
	SliceInventory Slice = "inventory"
)

var (
	ErrDraftDiscarded = errors.New("draft was discarded")
	ErrDraftCommitted = errors.New("draft was already committed")
	ErrForeignDraft   = errors.New("draft belongs to another session")
)

// Draft is a speculative copy of a session. Updates land on the copy and are
// only copied back by Commit, and only for the slices they touched.
type Draft struct {
	session   *GameSession
	policy    MergePolicy
	updated   map[Slice]bool
	gameOver  bool
	discarded bool
	committed bool
}

// BeginDraft clones the session into a new draft.
func (gs *GameSession) BeginDraft(policy MergePolicy) *Draft {
	return &Draft{
		session: gs.Clone(),
		policy:  policy,
		updated: make(map[Slice]bool, 4),
	}
}

// Session returns the draft's working copy. Later slice updaters read earlier
// updates through it.
func (d *Draft) Session() *GameSession {
	return d.session
}

// ApplyStats merges a partial stats update into the draft.
func (d *Draft) ApplyStats(patch *PlayerPatch) {
	if patch.IsEmpty() {
		return
	}
	ApplyPlayerPatch(&d.session.Player, patch, d.policy)
	d.updated[SliceStats] = true
}

// SetInventory replaces the draft inventory.
func (d *Draft) SetInventory(entries []InventoryEntry) {
	d.session.Inventory = NormalizeInventory(entries, false)
	d.updated[SliceInventory] = true
}

// SetLocation replaces the draft location. A zero location is treated as absent.
func (d *Draft) SetLocation(loc Location) {
	if loc.IsZero() {
		return
	}
	d.session.Location = loc
	d.updated[SliceLocation] = true
}

// SetQuest replaces the draft quest. A quest without a name is treated as absent.
func (d *Draft) SetQuest(q Quest) {
	if q.Name == "" {
		return
	}
	d.session.Quest = q.clone()
	d.updated[SliceQuest] = true
}

// MarkGameOver records that the oracle ended the game on this turn.
func (d *Draft) MarkGameOver() {
	d.gameOver = true
}

// GameOver reports whether MarkGameOver was called.
func (d *Draft) GameOver() bool {
	return d.gameOver
}

// Updated reports whether slice was touched in this draft.
func (d *Draft) Updated(slice Slice) bool {
	return d.updated[slice]
}

// UpdatedSlices lists the touched slices in dispatch order.
func (d *Draft) UpdatedSlices() []Slice {
	var out []Slice
	for _, s := range []Slice{SliceStats, SliceLocation, SliceQuest, SliceInventory} {
		if d.updated[s] {
			out = append(out, s)
		}
	}
	return out
}

// Discard abandons the draft. Discarding twice is harmless.
func (d *Draft) Discard() {
	d.discarded = true
}

// Commit copies every slice the draft touched into gs. Untouched slices keep
// their current value, so commits of drafts that touch disjoint slices commute.
func (gs *GameSession) Commit(d *Draft) error {
	switch {
	case d == nil:
		return nil
	case d.discarded:
		return ErrDraftDiscarded
	case d.committed:
		return ErrDraftCommitted
	case d.session.ID != gs.ID:
		return ErrForeignDraft
	}

	if d.updated[SliceStats] {
		gs.Player = d.session.Player
	}
	if d.updated[SliceLocation] {
		gs.Location = d.session.Location
	}
	if d.updated[SliceQuest] {
		gs.Quest = d.session.Quest.clone()
	}
	if d.updated[SliceInventory] {
		gs.Inventory = NormalizeInventory(d.session.Inventory, true)
	}
	if d.gameOver {
		gs.IsEnded = true
	}
	gs.UpdatedAt = time.Now().UTC()
	d.committed = true
	return nil
}
