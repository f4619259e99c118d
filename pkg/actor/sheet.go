// Package actor turns player state into a d20 character sheet.
package actor

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/d20"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

// Sheet is the runtime view of a player built on a d20.Actor.
type Sheet struct {
	Player state.PlayerState
	Actor  *d20.Actor
}

// Attributes returns the player's ability scores keyed by lower-case name.
func Attributes(a state.Attributes) map[string]int {
	return map[string]int{
		"strength":     a.Strength,
		"dexterity":    a.Dexterity,
		"constitution": a.Constitution,
		"intelligence": a.Intelligence,
	}
}

// NewSheet builds a sheet. Vitals are clamped first so a sheet can be built
// from any oracle output.
func NewSheet(p state.PlayerState) (*Sheet, error) {
	ClampVitals(&p)
	if p.HP.Max <= 0 {
		return nil, fmt.Errorf("player %q has no maximum HP", p.Username)
	}

	id := p.Username
	if id == "" {
		id = "player"
	}
	actor, err := d20.NewActor(id).
		WithHP(p.HP.Max).
		WithAC(10 + Modifier(p.Attributes.Dexterity)).
		WithAttributes(Attributes(p.Attributes)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	// Current HP at or below zero is tracked on the player only.
	if p.HP.Current > 0 && p.HP.Current != p.HP.Max {
		if err := actor.SetHP(p.HP.Current); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}
	return &Sheet{Player: p, Actor: actor}, nil
}

// ClampVitals keeps current HP and mana within [0, max] and max non-negative.
func ClampVitals(p *state.PlayerState) {
	clampVital(&p.HP)
	clampVital(&p.Mana)
}

func clampVital(v *state.Vital) {
	v.Max = max(v.Max, 0)
	v.Current = min(max(v.Current, 0), v.Max)
}

// Modifier is the d20 ability modifier for score.
func Modifier(score int) int {
	diff := score - 10
	if diff < 0 {
		return (diff - 1) / 2
	}
	return diff / 2
}

// IsDown reports whether the player has no hit points left.
func (s *Sheet) IsDown() bool {
	return s.Player.HP.Current <= 0
}

// AttributeModifier returns the modifier for a named attribute.
func (s *Sheet) AttributeModifier(name string) (int, bool) {
	score, ok := s.Actor.Attribute(strings.ToLower(name))
	if !ok {
		return 0, false
	}
	return Modifier(score), true
}

// Lines renders the sheet for the console.
func (s *Sheet) Lines() []string {
	p := s.Player
	lines := []string{
		fmt.Sprintf("%s, level %d %s", p.Username, p.Level, p.Class),
		fmt.Sprintf("HP %d/%d  Mana %d/%d  AC %d", p.HP.Current, s.Actor.MaxHP(), p.Mana.Current, p.Mana.Max, s.Actor.AC()),
		fmt.Sprintf("Exp %d/%d  Money %d", p.Exp, p.NextLevelExp, p.Money),
	}
	for _, name := range []string{"strength", "dexterity", "constitution", "intelligence"} {
		score, _ := s.Actor.Attribute(name)
		mod, _ := s.AttributeModifier(name)
		lines = append(lines, fmt.Sprintf("%-13s %2d (%+d)", name, score, mod))
	}
	return lines
}
