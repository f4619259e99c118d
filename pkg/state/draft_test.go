package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraft_DoesNotTouchSessionUntilCommit(t *testing.T) {
	gs := newTestSession()
	before := gs.Clone()

	d := gs.BeginDraft(MergePresence)
	d.ApplyStats(&PlayerPatch{Money: intp(0)})
	d.SetInventory([]InventoryEntry{{Name: "Sword", Count: 1}})
	d.SetLocation(Location{Name: "Forest"})
	d.SetQuest(Quest{Name: "Find the witch"})
	d.MarkGameOver()

	assert.Equal(t, before, gs)

	d.Discard()
	assert.ErrorIs(t, gs.Commit(d), ErrDraftDiscarded)
	assert.Equal(t, before, gs)
}

func TestCommit_OnlyTouchedSlices(t *testing.T) {
	gs := newTestSession()
	gs.Location = Location{Name: "Barn"}

	d := gs.BeginDraft(MergePresence)
	d.ApplyStats(&PlayerPatch{Level: intp(3)})
	// Someone else moves the player before commit; the draft never touched location.
	gs.Location = Location{Name: "Field"}

	require.NoError(t, gs.Commit(d))
	assert.Equal(t, 3, gs.Player.Level)
	assert.Equal(t, "Field", gs.Location.Name)
	assert.Equal(t, []Slice{SliceStats}, d.UpdatedSlices())
}

func TestCommit_DisjointSlicesCommute(t *testing.T) {
	statsThenLocation := newTestSession()
	locationThenStats := statsThenLocation.Clone()

	stats := func(gs *GameSession) *Draft {
		d := gs.BeginDraft(MergePresence)
		d.ApplyStats(&PlayerPatch{HP: &VitalPatch{Current: intp(4)}, Exp: intp(80)})
		return d
	}
	location := func(gs *GameSession) *Draft {
		d := gs.BeginDraft(MergePresence)
		d.SetLocation(Location{Name: "Old Mill", Sub: "Loft"})
		return d
	}

	require.NoError(t, statsThenLocation.Commit(stats(statsThenLocation)))
	require.NoError(t, statsThenLocation.Commit(location(statsThenLocation)))
	require.NoError(t, locationThenStats.Commit(location(locationThenStats)))
	require.NoError(t, locationThenStats.Commit(stats(locationThenStats)))

	assert.Equal(t, statsThenLocation.Player, locationThenStats.Player)
	assert.Equal(t, statsThenLocation.Location, locationThenStats.Location)
	assert.Equal(t, statsThenLocation.Inventory, locationThenStats.Inventory)
	assert.Equal(t, statsThenLocation.Quest, locationThenStats.Quest)
}

func TestCommit_Errors(t *testing.T) {
	gs := newTestSession()
	other := newTestSession()

	d := gs.BeginDraft(MergePresence)
	require.NoError(t, gs.Commit(d))
	assert.True(t, errors.Is(gs.Commit(d), ErrDraftCommitted))

	assert.ErrorIs(t, other.Commit(gs.BeginDraft(MergePresence)), ErrForeignDraft)
	assert.NoError(t, gs.Commit(nil))
}

func TestCommit_NormalizesInventoryAndEndsGame(t *testing.T) {
	gs := newTestSession()
	d := gs.BeginDraft(MergePresence)
	d.SetInventory([]InventoryEntry{{Name: "Knife", Count: 0}, {Name: "Coin", Count: 2}, {Name: "Coin", Count: 1}})
	d.MarkGameOver()

	require.NoError(t, gs.Commit(d))
	assert.Equal(t, []InventoryEntry{{Name: "Coin", Count: 3}}, gs.Inventory)
	assert.True(t, gs.IsEnded)
}

func TestDraft_IgnoresAbsentPayloads(t *testing.T) {
	gs := newTestSession()
	d := gs.BeginDraft(MergePresence)
	d.ApplyStats(&PlayerPatch{})
	d.ApplyStats(nil)
	d.SetLocation(Location{})
	d.SetQuest(Quest{Description: "no name"})

	assert.Empty(t, d.UpdatedSlices())
	assert.False(t, d.Updated(SliceQuest))
}

func TestDraft_LaterSlicesSeeEarlierUpdates(t *testing.T) {
	gs := newTestSession()
	d := gs.BeginDraft(MergePresence)
	d.ApplyStats(&PlayerPatch{Level: intp(5)})
	assert.Equal(t, 5, d.Session().Player.Level)
	assert.Equal(t, 1, gs.Player.Level)
}
