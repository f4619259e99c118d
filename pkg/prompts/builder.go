package prompts

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwebster45206/turnkeeper/pkg/chat"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

// Character describes a player who does not exist in a session yet.
type Character struct {
	Username    string `json:"username,omitempty"`
	Description string `json:"description,omitempty"`
	Sex         string `json:"sex,omitempty"`
	Class       string `json:"class,omitempty"`
}

// Builder constructs chat messages for one oracle call using a fluent interface.
type Builder struct {
	kind         Kind
	session      *state.GameSession
	settings     state.GameSettings
	narrative    string
	text         string
	character    Character
	idea         string
	target       string
	historyLimit int
}

// New creates a builder for kind. The full history window is sent by default.
func New(kind Kind) *Builder {
	return &Builder{kind: kind}
}

// WithSession sets the session the prompt describes. Its settings are used
// unless WithSettings is called afterwards.
func (b *Builder) WithSession(gs *state.GameSession) *Builder {
	b.session = gs
	if gs != nil {
		b.settings = gs.Settings
	}
	return b
}

// WithSettings sets the game settings for calls made before a session exists.
func (b *Builder) WithSettings(s state.GameSettings) *Builder {
	b.settings = s
	return b
}

// WithNarrative sets the narrative the update is based on.
func (b *Builder) WithNarrative(text string) *Builder {
	b.narrative = text
	return b
}

// WithText sets free text for shorten and translate calls.
func (b *Builder) WithText(text string) *Builder {
	b.text = text
	return b
}

// WithCharacter sets the character being created.
func (b *Builder) WithCharacter(c Character) *Builder {
	b.character = c
	return b
}

// WithIdea sets the player's optional scenario idea.
func (b *Builder) WithIdea(idea string) *Builder {
	b.idea = idea
	return b
}

// WithTargetLanguage sets the translation target.
func (b *Builder) WithTargetLanguage(lang string) *Builder {
	b.target = lang
	return b
}

// WithHistoryLimit caps how many history records are sent. Zero sends all.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// Build validates the inputs for the builder's kind and returns a system
// message with the instructions followed by a user message with the data.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("%s prompt: %w", b.kind, err)
	}

	system, err := render(b.kind, templateData{
		Settings:    b.settings,
		Bootstrap:   b.kind == KindInventory && !b.session.HasInventory(),
		NoQuestName: state.NoQuestName,
		Target:      b.target,
	})
	if err != nil {
		return nil, err
	}

	user, err := b.userContent()
	if err != nil {
		return nil, fmt.Errorf("%s prompt: %w", b.kind, err)
	}

	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: system},
		{Role: chat.ChatRoleUser, Content: user},
	}, nil
}

func (b *Builder) validate() error {
	switch b.kind {
	case KindNarrative, KindSummarize:
		if b.session == nil {
			return errors.New("session is required")
		}
	case KindStats, KindInventory, KindLocation, KindQuest, KindChoices:
		if b.session == nil {
			return errors.New("session is required")
		}
		if b.narrative == "" {
			return errors.New("narrative is required")
		}
	case KindShorten:
		if b.text == "" {
			return errors.New("text is required")
		}
	case KindTranslate:
		if b.text == "" || b.target == "" {
			return errors.New("text and target language are required")
		}
	case KindClasses, KindPlayer, KindScenario:
		if b.settings.Environment == "" {
			return errors.New("settings are required")
		}
		if b.kind == KindPlayer && b.character.Class == "" {
			return errors.New("character class is required")
		}
	default:
		return fmt.Errorf("unknown prompt kind %q", b.kind)
	}
	return nil
}

func (b *Builder) userContent() (string, error) {
	var args map[string]any
	gs := b.session

	switch b.kind {
	case KindShorten, KindTranslate:
		return b.text, nil
	case KindNarrative:
		args = map[string]any{
			"current_choice": gs.CurrentTurn,
			"text_history":   b.history(),
			"story_summary":  gs.History.Summary,
			"player":         gs.Player,
			"inventory":      gs.Inventory,
			"location":       gs.Location,
			"quest":          gs.Quest,
		}
	case KindStats:
		args = map[string]any{"player": gs.Player, "narrative_text": b.narrative}
	case KindInventory:
		args = map[string]any{
			"inventory":      gs.Inventory,
			"player_class":   gs.Player.Class,
			"location":       gs.Location,
			"narrative_text": b.narrative,
		}
	case KindLocation:
		args = map[string]any{"location": gs.Location, "narrative_text": b.narrative}
	case KindQuest:
		args = map[string]any{"quest": gs.Quest, "player": gs.Player, "narrative_text": b.narrative}
	case KindChoices:
		args = map[string]any{
			"player":         gs.Player,
			"inventory":      gs.Inventory,
			"location":       gs.Location,
			"quest":          gs.Quest,
			"narrative_text": b.narrative,
		}
	case KindSummarize:
		args = map[string]any{"story_summary": gs.History.Summary, "text_history": b.history()}
	case KindClasses, KindPlayer:
		args = map[string]any{
			"description": b.character.Description,
			"sex":         b.character.Sex,
			"class":       b.character.Class,
		}
	case KindScenario:
		args = map[string]any{"player": b.character, "idea": b.idea}
	}
	args["game_settings"] = b.settings

	data, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (b *Builder) history() []state.TurnRecord {
	recs := b.session.History.Records()
	if b.historyLimit > 0 && len(recs) > b.historyLimit {
		recs = recs[len(recs)-b.historyLimit:]
	}
	return recs
}
