package state

import (
	"fmt"
	"strings"
)

// ItemCount is a named quantity in an inventory diff.
type ItemCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// InventoryDiff lists what was gained and lost between two inventories.
type InventoryDiff struct {
	Added   []ItemCount `json:"added"`
	Removed []ItemCount `json:"removed"`
}

// IsEmpty reports whether nothing changed.
func (d InventoryDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// DiffInventory compares two inventories by entry name. Entries present in both
// produce at most one item: the positive count delta, in whichever direction it
// goes. Entries only in newInv are added, entries only in oldInv are removed.
// A zero count is treated the same as the entry being absent. Output follows
// the order of newInv, then oldInv.
func DiffInventory(oldInv, newInv []InventoryEntry) InventoryDiff {
	olds := NormalizeInventory(oldInv, false)
	news := NormalizeInventory(newInv, false)

	oldCounts := make(map[string]int, len(olds))
	for _, e := range olds {
		oldCounts[e.Name] = e.Count
	}
	newCounts := make(map[string]int, len(news))
	for _, e := range news {
		newCounts[e.Name] = e.Count
	}

	diff := InventoryDiff{Added: []ItemCount{}, Removed: []ItemCount{}}
	for _, e := range news {
		before, found := oldCounts[e.Name]
		if !found {
			if e.Count > 0 {
				diff.Added = append(diff.Added, ItemCount{Name: e.Name, Count: e.Count})
			}
			continue
		}
		switch {
		case e.Count > before:
			diff.Added = append(diff.Added, ItemCount{Name: e.Name, Count: e.Count - before})
		case e.Count < before:
			diff.Removed = append(diff.Removed, ItemCount{Name: e.Name, Count: before - e.Count})
		}
	}
	for _, e := range olds {
		if _, found := newCounts[e.Name]; found {
			continue
		}
		if e.Count > 0 {
			diff.Removed = append(diff.Removed, ItemCount{Name: e.Name, Count: e.Count})
		}
	}
	return diff
}

// Change is one scalar value that moved during a turn.
type Change struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
	Line  string `json:"line"`
}

// Report is the human-readable summary of a pending turn.
type Report struct {
	Inventory InventoryDiff `json:"inventory"`
	Changes   []Change      `json:"changes"`
}

// IsEmpty reports whether the report has nothing to show.
func (r Report) IsEmpty() bool {
	return r.Inventory.IsEmpty() && len(r.Changes) == 0
}

// BuildReport compares the committed session with the draft's working copy.
// Only slices the draft touched are compared. Scalar changes are reported only
// when the new value is non-zero and differs from the old one, so a drop to
// zero is never shown.
func BuildReport(old *GameSession, d *Draft) Report {
	r := Report{Inventory: InventoryDiff{Added: []ItemCount{}, Removed: []ItemCount{}}}
	if old == nil || d == nil {
		return r
	}
	next := d.Session()

	if d.Updated(SliceInventory) {
		r.Inventory = DiffInventory(old.Inventory, next.Inventory)
	}

	if d.Updated(SliceStats) {
		op, np := old.Player, next.Player
		r.addInt("hp", op.HP.Current, np.HP.Current, fmt.Sprintf("Your HP is now %d/%d", np.HP.Current, np.HP.Max))
		r.addInt("max_hp", op.HP.Max, np.HP.Max, fmt.Sprintf("Your max HP is now %d", np.HP.Max))
		r.addInt("mana", op.Mana.Current, np.Mana.Current, fmt.Sprintf("Your mana is now %d/%d", np.Mana.Current, np.Mana.Max))
		r.addInt("max_mana", op.Mana.Max, np.Mana.Max, fmt.Sprintf("Your max mana is now %d", np.Mana.Max))
		r.addInt("exp", op.Exp, np.Exp, fmt.Sprintf("Your exp is now %d", np.Exp))
		r.addInt("level", op.Level, np.Level, fmt.Sprintf("Your level is now %d", np.Level))
		r.addInt("money", op.Money, np.Money, fmt.Sprintf("Your money is now %d", np.Money))
	}

	if d.Updated(SliceLocation) {
		r.addString("location", old.Location.Name, next.Location.Name, "You are now in "+next.Location.Name)
		r.addString("location_sub", old.Location.Sub, next.Location.Sub, "You are now at "+next.Location.Sub)
	}

	if d.Updated(SliceQuest) {
		r.addString("quest", old.Quest.Name, next.Quest.Name, "New quest: "+next.Quest.Name)
		r.addString("quest_status", old.Quest.Status, next.Quest.Status, "Quest status: "+next.Quest.Status)
	}
	return r
}

func (r *Report) addInt(field string, from, to int, line string) {
	if to == 0 || to == from {
		return
	}
	r.Changes = append(r.Changes, Change{
		Field: field,
		From:  fmt.Sprint(from),
		To:    fmt.Sprint(to),
		Line:  line,
	})
}

func (r *Report) addString(field, from, to, line string) {
	if to == "" || to == from {
		return
	}
	r.Changes = append(r.Changes, Change{Field: field, From: from, To: to, Line: line})
}

// Lines renders the report, inventory first.
func (r Report) Lines() []string {
	var lines []string
	if len(r.Inventory.Added) > 0 {
		lines = append(lines, "You got new items: "+joinCounts(r.Inventory.Added))
	}
	if len(r.Inventory.Removed) > 0 {
		lines = append(lines, "You lost items: "+joinCounts(r.Inventory.Removed))
	}
	for _, c := range r.Changes {
		lines = append(lines, c.Line)
	}
	return lines
}

func joinCounts(items []ItemCount) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%d %s", it.Count, it.Name)
	}
	return strings.Join(parts, ", ")
}
