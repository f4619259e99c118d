package oracle

import (
	"context"
	"sync"

	"github.com/jwebster45206/turnkeeper/pkg/prompts"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

// MockOracle is a Service for tests. Unset functions fall back to harmless
// defaults that change nothing.
type MockOracle struct {
	GenerateNarrativeFunc func(ctx context.Context, gs *state.GameSession) (*Narrative, error)
	UpdateStatsFunc       func(ctx context.Context, gs *state.GameSession, narrative string) (*state.PlayerPatch, error)
	UpdateInventoryFunc   func(ctx context.Context, gs *state.GameSession, narrative string) ([]state.InventoryEntry, error)
	UpdateLocationFunc    func(ctx context.Context, gs *state.GameSession, narrative string) (state.Location, error)
	UpdateQuestFunc       func(ctx context.Context, gs *state.GameSession, narrative string) (state.Quest, error)
	GenerateChoicesFunc   func(ctx context.Context, gs *state.GameSession, narrative string) ([]string, error)
	SummarizeFunc         func(ctx context.Context, gs *state.GameSession) (string, error)
	ShortenTextFunc       func(ctx context.Context, text string) (string, error)
	GenerateClassesFunc   func(ctx context.Context, settings state.GameSettings, c prompts.Character) ([]string, error)
	GeneratePlayerFunc    func(ctx context.Context, settings state.GameSettings, c prompts.Character) (state.PlayerState, error)
	GenerateScenarioFunc  func(ctx context.Context, settings state.GameSettings, c prompts.Character, idea string) (string, error)
	TranslateFunc         func(ctx context.Context, text, lang string) (string, error)

	// Calls records the name of every method invoked, in order.
	Calls []string

	mu sync.Mutex // protects Calls
}

// NewMockOracle creates a mock with no overrides.
func NewMockOracle() *MockOracle {
	return &MockOracle{Calls: make([]string, 0)}
}

func (m *MockOracle) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, name)
}

// CallCount returns how many times the named method was invoked.
func (m *MockOracle) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *MockOracle) GenerateNarrative(ctx context.Context, gs *state.GameSession) (*Narrative, error) {
	m.record("GenerateNarrative")
	if m.GenerateNarrativeFunc != nil {
		return m.GenerateNarrativeFunc(ctx, gs)
	}
	return &Narrative{Text: "The story continues."}, nil
}

func (m *MockOracle) UpdateStats(ctx context.Context, gs *state.GameSession, narrative string) (*state.PlayerPatch, error) {
	m.record("UpdateStats")
	if m.UpdateStatsFunc != nil {
		return m.UpdateStatsFunc(ctx, gs, narrative)
	}
	return &state.PlayerPatch{}, nil
}

func (m *MockOracle) UpdateInventory(ctx context.Context, gs *state.GameSession, narrative string) ([]state.InventoryEntry, error) {
	m.record("UpdateInventory")
	if m.UpdateInventoryFunc != nil {
		return m.UpdateInventoryFunc(ctx, gs, narrative)
	}
	if !gs.HasInventory() {
		return []state.InventoryEntry{{Name: "Knife", Count: 1, Type: "weapon", Value: 1, Equipped: true}}, nil
	}
	return gs.Clone().Inventory, nil
}

func (m *MockOracle) UpdateLocation(ctx context.Context, gs *state.GameSession, narrative string) (state.Location, error) {
	m.record("UpdateLocation")
	if m.UpdateLocationFunc != nil {
		return m.UpdateLocationFunc(ctx, gs, narrative)
	}
	return gs.Location, nil
}

func (m *MockOracle) UpdateQuest(ctx context.Context, gs *state.GameSession, narrative string) (state.Quest, error) {
	m.record("UpdateQuest")
	if m.UpdateQuestFunc != nil {
		return m.UpdateQuestFunc(ctx, gs, narrative)
	}
	return gs.Clone().Quest, nil
}

func (m *MockOracle) GenerateChoices(ctx context.Context, gs *state.GameSession, narrative string) ([]string, error) {
	m.record("GenerateChoices")
	if m.GenerateChoicesFunc != nil {
		return m.GenerateChoicesFunc(ctx, gs, narrative)
	}
	return []string{"Continue"}, nil
}

func (m *MockOracle) Summarize(ctx context.Context, gs *state.GameSession) (string, error) {
	m.record("Summarize")
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, gs)
	}
	return gs.History.Summary, nil
}

func (m *MockOracle) ShortenText(ctx context.Context, text string) (string, error) {
	m.record("ShortenText")
	if m.ShortenTextFunc != nil {
		return m.ShortenTextFunc(ctx, text)
	}
	return text, nil
}

func (m *MockOracle) GenerateClasses(ctx context.Context, settings state.GameSettings, c prompts.Character) ([]string, error) {
	m.record("GenerateClasses")
	if m.GenerateClassesFunc != nil {
		return m.GenerateClassesFunc(ctx, settings, c)
	}
	return []string{"Warrior", "Mage", "Thief"}, nil
}

func (m *MockOracle) GeneratePlayer(ctx context.Context, settings state.GameSettings, c prompts.Character) (state.PlayerState, error) {
	m.record("GeneratePlayer")
	if m.GeneratePlayerFunc != nil {
		return m.GeneratePlayerFunc(ctx, settings, c)
	}
	return state.PlayerState{
		Username:    c.Username,
		Class:       c.Class,
		Sex:         c.Sex,
		Description: c.Description,
		HP:          state.Vital{Current: 10, Max: 10},
		Mana:        state.Vital{Current: 5, Max: 5},
		Level:       1,
		Attributes:  state.Attributes{Strength: 10, Dexterity: 10, Constitution: 10, Intelligence: 10},
	}, nil
}

func (m *MockOracle) GenerateScenario(ctx context.Context, settings state.GameSettings, c prompts.Character, idea string) (string, error) {
	m.record("GenerateScenario")
	if m.GenerateScenarioFunc != nil {
		return m.GenerateScenarioFunc(ctx, settings, c, idea)
	}
	return "You wake up at a crossroads.", nil
}

func (m *MockOracle) Translate(ctx context.Context, text, lang string) (string, error) {
	m.record("Translate")
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, text, lang)
	}
	return text, nil
}
