package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestSession() *GameSession {
	gs := NewGameSession(
		GameSettings{Environment: "medieval", Difficulty: "normal", Language: "en"},
		PlayerState{
			Username: "ayla",
			Class:    "Ranger",
			HP:       Vital{Current: 10, Max: 10},
			Mana:     Vital{Current: 4, Max: 4},
			Money:    12,
			Attributes: Attributes{
				Strength: 12, Dexterity: 15, Constitution: 11, Intelligence: 10,
			},
		},
		"You wake up in a barn.",
		3,
	)
	gs.Inventory = []InventoryEntry{{Name: "Knife", Count: 1}}
	return gs
}

func TestNewGameSession(t *testing.T) {
	gs := NewGameSession(GameSettings{Language: "fr"}, PlayerState{Username: "x"}, "Opening.", 0)

	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", gs.ID.String())
	assert.Equal(t, 1, gs.Player.Level)
	assert.Equal(t, NoQuest(), gs.Quest)
	assert.NotNil(t, gs.Inventory)
	assert.False(t, gs.HasInventory())
	assert.Equal(t, DefaultHistoryCapacity, gs.History.Capacity)
	assert.Equal(t, TurnRecord{NarrativeText: "Opening.", UserChoice: OpeningChoice}, gs.CurrentTurn)
	assert.True(t, gs.IsFirstTurn())
}

func TestGameSession_CloneIsIndependent(t *testing.T) {
	gs := newTestSession()
	gs.Quest.Steps = []QuestStep{{ID: 1, Name: "Find the mill"}}
	gs.RecordTurn("The road forks.", "Go left")

	c := gs.Clone()
	c.Inventory[0].Count = 99
	c.Quest.Steps[0].Name = "changed"
	c.History.Entries[0].UserChoice = "changed"
	c.Player.HP.Current = 1

	assert.Equal(t, 1, gs.Inventory[0].Count)
	assert.Equal(t, "Find the mill", gs.Quest.Steps[0].Name)
	assert.Equal(t, OpeningChoice, gs.History.Entries[0].UserChoice)
	assert.Equal(t, 10, gs.Player.HP.Current)

	// Appending to the clone's history must not write into the original's array.
	c.History.Append(TurnRecord{NarrativeText: "x"})
	assert.Equal(t, 1, gs.History.Len())
}

func TestGameSession_RecordTurn(t *testing.T) {
	gs := newTestSession()

	gs.AnswerOpening("Look around")
	assert.Equal(t, 1, gs.TurnCount)
	assert.True(t, gs.History.IsEmpty())
	assert.Equal(t, "Look around", gs.CurrentTurn.UserChoice)

	_, evicted := gs.RecordTurn("A crow watches you.", "Follow the crow")
	assert.False(t, evicted)
	assert.Equal(t, 2, gs.TurnCount)

	require.Equal(t, 1, gs.History.Len())
	assert.Equal(t, TurnRecord{NarrativeText: "You wake up in a barn.", UserChoice: "Look around"}, gs.History.Entries[0])
	assert.Equal(t, TurnRecord{NarrativeText: "A crow watches you.", UserChoice: "Follow the crow"}, gs.CurrentTurn)
}

func TestLocation_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Location
	}{
		{
			name: "canonical fields",
			in:   `{"location_name":"Tavern","location_type":"inn","location_sub":"Cellar"}`,
			want: Location{Name: "Tavern", Type: "inn", Sub: "Cellar"},
		},
		{
			name: "room_name alias",
			in:   `{"location_name":"Tavern","room_name":"Kitchen"}`,
			want: Location{Name: "Tavern", Sub: "Kitchen"},
		},
		{
			name: "location_sub wins over alias",
			in:   `{"location_name":"Tavern","location_sub":"Cellar","room_name":"Kitchen"}`,
			want: Location{Name: "Tavern", Sub: "Cellar"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Location
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocation_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Location
	}{
		{
			name: "canonical fields",
			in:   "location_name: Tavern\nlocation_type: inn\nlocation_sub: Cellar\n",
			want: Location{Name: "Tavern", Type: "inn", Sub: "Cellar"},
		},
		{
			name: "room_name alias",
			in:   "location_name: Tavern\nroom_name: Kitchen\n",
			want: Location{Name: "Tavern", Sub: "Kitchen"},
		},
		{
			name: "location_sub wins over alias",
			in:   "location_name: Tavern\nlocation_sub: Cellar\nroom_name: Kitchen\n",
			want: Location{Name: "Tavern", Sub: "Cellar"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Location
			require.NoError(t, yaml.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGameSettings_Validate(t *testing.T) {
	tests := []struct {
		name     string
		settings GameSettings
		wantErr  bool
	}{
		{"valid", GameSettings{Environment: "cyberpunk", Difficulty: "hard", Language: "fr-FR"}, false},
		{"missing environment", GameSettings{Difficulty: "hard", Language: "en"}, true},
		{"missing difficulty", GameSettings{Environment: "fantasy", Language: "en"}, true},
		{"bad language", GameSettings{Environment: "fantasy", Difficulty: "easy", Language: "not a tag!"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGameSession_JSONRoundTripKeepsHistory(t *testing.T) {
	gs := newTestSession()
	gs.RecordTurn("Rain falls.", "Take shelter")
	gs.History.Summary = "A ranger woke in a barn."

	data, err := json.Marshal(gs)
	require.NoError(t, err)

	var back GameSession
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, gs.ID, back.ID)
	assert.Equal(t, gs.History.Entries, back.History.Entries)
	assert.Equal(t, "A ranger woke in a barn.", back.History.Summary)
	assert.Equal(t, gs.CurrentTurn, back.CurrentTurn)
}
