package state

import (
	"fmt"
	"strings"
)

// MergePolicy decides which fields of a partial stats update overwrite the
// current value.
type MergePolicy int

const (
	// MergePresence overwrites every field the oracle returned, including zero.
	MergePresence MergePolicy = iota
	// MergeTruthy only overwrites with non-zero, non-empty values. A real zero
	// (money spent down to 0) is indistinguishable from "not returned" and is
	// dropped. Kept for compatibility with saves produced under that rule.
	MergeTruthy
)

func (p MergePolicy) String() string {
	switch p {
	case MergePresence:
		return "presence"
	case MergeTruthy:
		return "truthy"
	default:
		return "unknown"
	}
}

// ParseMergePolicy converts a config value into a MergePolicy.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "presence":
		return MergePresence, nil
	case "truthy":
		return MergeTruthy, nil
	default:
		return MergePresence, fmt.Errorf("unknown merge policy %q", s)
	}
}

// VitalPatch is a partial Vital.
type VitalPatch struct {
	Current *int `json:"current,omitempty"`
	Max     *int `json:"max,omitempty"`
}

// AttributesPatch is a partial Attributes.
type AttributesPatch struct {
	Strength     *int `json:"strength,omitempty"`
	Dexterity    *int `json:"dexterity,omitempty"`
	Constitution *int `json:"constitution,omitempty"`
	Intelligence *int `json:"intelligence,omitempty"`
}

// PlayerPatch is a partial PlayerState as returned by a stats update.
// A nil field was not returned by the oracle.
type PlayerPatch struct {
	HP           *VitalPatch      `json:"hp,omitempty"`
	Mana         *VitalPatch      `json:"mana,omitempty"`
	Money        *int             `json:"money,omitempty"`
	Exp          *int             `json:"exp,omitempty"`
	Level        *int             `json:"level,omitempty"`
	NextLevelExp *int             `json:"next_level_exp,omitempty"`
	Attributes   *AttributesPatch `json:"attributes,omitempty"`
	Class        *string          `json:"class,omitempty"`
	Description  *string          `json:"description,omitempty"`
}

// IsEmpty reports whether the patch carries no fields at all.
func (p *PlayerPatch) IsEmpty() bool {
	return p == nil || (p.HP == nil && p.Mana == nil && p.Money == nil &&
		p.Exp == nil && p.Level == nil && p.NextLevelExp == nil &&
		p.Attributes == nil && p.Class == nil && p.Description == nil)
}

// ApplyPlayerPatch merges patch into dst field by field according to policy.
// Fields absent from the patch are left untouched.
func ApplyPlayerPatch(dst *PlayerState, patch *PlayerPatch, policy MergePolicy) {
	if dst == nil || patch == nil {
		return
	}
	if patch.HP != nil {
		mergeInt(&dst.HP.Current, patch.HP.Current, policy)
		mergeInt(&dst.HP.Max, patch.HP.Max, policy)
	}
	if patch.Mana != nil {
		mergeInt(&dst.Mana.Current, patch.Mana.Current, policy)
		mergeInt(&dst.Mana.Max, patch.Mana.Max, policy)
	}
	mergeInt(&dst.Money, patch.Money, policy)
	mergeInt(&dst.Exp, patch.Exp, policy)
	mergeInt(&dst.Level, patch.Level, policy)
	mergeInt(&dst.NextLevelExp, patch.NextLevelExp, policy)
	if a := patch.Attributes; a != nil {
		mergeInt(&dst.Attributes.Strength, a.Strength, policy)
		mergeInt(&dst.Attributes.Dexterity, a.Dexterity, policy)
		mergeInt(&dst.Attributes.Constitution, a.Constitution, policy)
		mergeInt(&dst.Attributes.Intelligence, a.Intelligence, policy)
	}
	mergeString(&dst.Class, patch.Class, policy)
	mergeString(&dst.Description, patch.Description, policy)
}

func mergeInt(dst *int, v *int, policy MergePolicy) {
	if v == nil {
		return
	}
	if policy == MergeTruthy && *v == 0 {
		return
	}
	*dst = *v
}

func mergeString(dst *string, v *string, policy MergePolicy) {
	if v == nil {
		return
	}
	// An empty identity string is never a meaningful update.
	if *v == "" {
		return
	}
	*dst = *v
}

// NormalizeInventory returns a copy of in with names trimmed, unnamed entries
// dropped, negative counts floored to zero and duplicate names folded into the
// first occurrence (counts summed). When dropEmpty is set, zero-count entries
// are removed.
func NormalizeInventory(in []InventoryEntry, dropEmpty bool) []InventoryEntry {
	out := make([]InventoryEntry, 0, len(in))
	index := make(map[string]int, len(in))
	for _, e := range in {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			continue
		}
		if e.Count < 0 {
			e.Count = 0
		}
		if i, ok := index[e.Name]; ok {
			out[i].Count += e.Count
			continue
		}
		index[e.Name] = len(out)
		out = append(out, e)
	}
	if !dropEmpty {
		return out
	}
	kept := out[:0]
	for _, e := range out {
		if e.Count > 0 {
			kept = append(kept, e)
		}
	}
	return kept
}
