package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const (
	// OpeningChoice is the user choice recorded against the pre-generated scenario.
	OpeningChoice = "Start the Game"

	NoQuestName        = "No Quest"
	NoQuestDescription = "Find a quest to start your adventure !"
)

// Vital is a bounded resource such as hit points or mana.
type Vital struct {
	Current int `json:"current" yaml:"current"`
	Max     int `json:"max" yaml:"max"`
}

// Attributes are the player's core ability scores.
type Attributes struct {
	Strength     int `json:"strength" yaml:"strength"`
	Dexterity    int `json:"dexterity" yaml:"dexterity"`
	Constitution int `json:"constitution" yaml:"constitution"`
	Intelligence int `json:"intelligence" yaml:"intelligence"`
}

// PlayerState holds the player's stats and identity.
// HP and Mana are expected to satisfy Current <= Max, but oracle output is not
// validated against that, so nothing in this package relies on it.
type PlayerState struct {
	Username     string     `json:"username" yaml:"username"`
	Class        string     `json:"class" yaml:"class"`
	Sex          string     `json:"sex" yaml:"sex"`
	Description  string     `json:"description" yaml:"description"`
	HP           Vital      `json:"hp" yaml:"hp"`
	Mana         Vital      `json:"mana" yaml:"mana"`
	Money        int        `json:"money" yaml:"money"`
	Exp          int        `json:"exp" yaml:"exp"`
	Level        int        `json:"level" yaml:"level"`
	NextLevelExp int        `json:"next_level_exp" yaml:"next_level_exp"`
	Attributes   Attributes `json:"attributes" yaml:"attributes"`
}

// InventoryEntry is one stack of items. Name is the key within an inventory.
type InventoryEntry struct {
	Name     string `json:"name" yaml:"name"`
	Count    int    `json:"count" yaml:"count"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Value    int    `json:"value,omitempty" yaml:"value,omitempty"`
	Equipped bool   `json:"equipped,omitempty" yaml:"equipped,omitempty"`
}

// Location is where the player currently is. It is always replaced whole.
type Location struct {
	Name        string `json:"location_name" yaml:"location_name"`
	ShortReason string `json:"location_short_reason,omitempty" yaml:"location_short_reason,omitempty"`
	Type        string `json:"location_type,omitempty" yaml:"location_type,omitempty"`
	Sub         string `json:"location_sub,omitempty" yaml:"location_sub,omitempty"`
}

// IsZero reports whether no location field is set.
func (l Location) IsZero() bool {
	return l == Location{}
}

// QuestStep is one step of a structured quest.
type QuestStep struct {
	ID     int    `json:"id" yaml:"id"`
	Name   string `json:"step_name" yaml:"step_name"`
	Goal   string `json:"step_goal" yaml:"step_goal"`
	Status string `json:"step_status" yaml:"step_status"`
}

// Quest is the player's active quest. It is always replaced whole.
type Quest struct {
	Name        string      `json:"quest_name" yaml:"quest_name"`
	Description string      `json:"quest_description" yaml:"quest_description"`
	Status      string      `json:"quest_status,omitempty" yaml:"quest_status,omitempty"`
	Steps       []QuestStep `json:"quest_step_list,omitempty" yaml:"quest_step_list,omitempty"`
	Reward      string      `json:"quest_reward,omitempty" yaml:"quest_reward,omitempty"`
}

// NoQuest returns the sentinel quest a new session starts with.
func NoQuest() Quest {
	return Quest{Name: NoQuestName, Description: NoQuestDescription}
}

func (q Quest) clone() Quest {
	out := q
	if q.Steps != nil {
		out.Steps = make([]QuestStep, len(q.Steps))
		copy(out.Steps, q.Steps)
	}
	return out
}

// GameSettings are fixed when the session is created.
type GameSettings struct {
	Environment string `json:"environment" yaml:"environment"`
	Difficulty  string `json:"difficulty" yaml:"difficulty"`
	Language    string `json:"language" yaml:"language"`
}

// Validate checks that every setting is present and the language is a BCP 47 tag.
func (s GameSettings) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Environment) == "" {
		errs = append(errs, errors.New("environment is required"))
	}
	if strings.TrimSpace(s.Difficulty) == "" {
		errs = append(errs, errors.New("difficulty is required"))
	}
	if _, err := language.Parse(s.Language); err != nil {
		errs = append(errs, fmt.Errorf("language %q: %w", s.Language, err))
	}
	return errors.Join(errs...)
}

// TurnRecord pairs a narrative with the choice the player made after reading it.
type TurnRecord struct {
	NarrativeText string `json:"narrative_text" yaml:"narrative_text"`
	UserChoice    string `json:"user_choice" yaml:"user_choice"`
}

// GameSession is the aggregate root of a play session and the unit of persistence.
type GameSession struct {
	ID          uuid.UUID        `json:"id" yaml:"id"`
	Settings    GameSettings     `json:"settings" yaml:"settings"`
	Player      PlayerState      `json:"player" yaml:"player"`
	Inventory   []InventoryEntry `json:"inventory" yaml:"inventory"`
	Location    Location         `json:"location" yaml:"location"`
	Quest       Quest            `json:"quest" yaml:"quest"`
	History     HistoryWindow    `json:"history" yaml:"history"`
	CurrentTurn TurnRecord       `json:"current_turn" yaml:"current_turn"`
	TurnCount   int              `json:"turn_count" yaml:"turn_count"`
	IsEnded     bool             `json:"is_ended,omitempty" yaml:"is_ended,omitempty"`
	CreatedAt   time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" yaml:"updated_at"`
}

// NewGameSession creates a session whose first turn is the opening narrative.
func NewGameSession(settings GameSettings, player PlayerState, opening string, historyCapacity int) *GameSession {
	now := time.Now().UTC()
	if player.Level == 0 {
		player.Level = 1
	}
	return &GameSession{
		ID:          uuid.New(),
		Settings:    settings,
		Player:      player,
		Inventory:   make([]InventoryEntry, 0),
		Quest:       NoQuest(),
		History:     NewHistoryWindow(historyCapacity),
		CurrentTurn: TurnRecord{NarrativeText: opening, UserChoice: OpeningChoice},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsFirstTurn reports whether the session is still on its opening narrative.
func (gs *GameSession) IsFirstTurn() bool {
	return gs.TurnCount == 0
}

// HasInventory reports whether the player holds at least one named entry.
func (gs *GameSession) HasInventory() bool {
	for _, e := range gs.Inventory {
		if strings.TrimSpace(e.Name) != "" {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the session. Nothing is shared with the receiver.
func (gs *GameSession) Clone() *GameSession {
	if gs == nil {
		return nil
	}
	out := *gs
	out.Inventory = cloneInventory(gs.Inventory)
	out.Quest = gs.Quest.clone()
	out.History = gs.History.clone()
	return &out
}

// Snapshot is the read accessor used for diffing and prompting.
func (gs *GameSession) Snapshot() *GameSession {
	return gs.Clone()
}

// RecordTurn pushes the current turn into the history window and opens a new
// current turn built from narrative and the player's choice. It returns the
// evicted record, if any.
func (gs *GameSession) RecordTurn(narrative, choice string) (TurnRecord, bool) {
	evicted, ok := gs.History.Append(gs.CurrentTurn)
	gs.CurrentTurn = TurnRecord{NarrativeText: narrative, UserChoice: choice}
	gs.TurnCount++
	gs.UpdatedAt = time.Now().UTC()
	return evicted, ok
}

// AnswerOpening records the player's choice against the opening narrative.
// The opening stays the current turn, so nothing enters the history window.
func (gs *GameSession) AnswerOpening(choice string) {
	gs.CurrentTurn.UserChoice = choice
	gs.TurnCount++
	gs.UpdatedAt = time.Now().UTC()
}

func cloneInventory(in []InventoryEntry) []InventoryEntry {
	if in == nil {
		return nil
	}
	out := make([]InventoryEntry, len(in))
	copy(out, in)
	return out
}

// UnmarshalYAML accepts room_name as an alias of location_sub.
func (l *Location) UnmarshalYAML(value *yaml.Node) error {
	type plain Location
	var aux struct {
		plain    `yaml:",inline"`
		RoomName string `yaml:"room_name"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	*l = Location(aux.plain)
	if l.Sub == "" {
		l.Sub = aux.RoomName
	}
	return nil
}

// UnmarshalJSON accepts room_name as an alias of location_sub.
func (l *Location) UnmarshalJSON(data []byte) error {
	type plain Location
	var aux struct {
		plain
		RoomName string `json:"room_name"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*l = Location(aux.plain)
	if l.Sub == "" {
		l.Sub = aux.RoomName
	}
	return nil
}
