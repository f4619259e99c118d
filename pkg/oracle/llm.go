package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/turnkeeper/pkg/chat"
	"github.com/jwebster45206/turnkeeper/pkg/prompts"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

// LLM is a chat completion backend.
type LLM interface {
	Chat(ctx context.Context, req *chat.ChatRequest) (*chat.ChatResponse, error)
}

// LLMOracle implements Service on top of a chat LLM.
type LLMOracle struct {
	llm          LLM
	logger       *slog.Logger
	historyLimit int
}

// NewLLMOracle creates an oracle. historyLimit caps the history records sent
// with each narrative call; zero sends the whole window.
func NewLLMOracle(llm LLM, historyLimit int, logger *slog.Logger) *LLMOracle {
	return &LLMOracle{llm: llm, logger: logger, historyLimit: historyLimit}
}

func (o *LLMOracle) complete(ctx context.Context, b *prompts.Builder, kind prompts.Kind) (string, error) {
	msgs, err := b.Build()
	if err != nil {
		return "", err
	}
	resp, err := o.llm.Chat(ctx, &chat.ChatRequest{
		Messages:    msgs,
		Temperature: chat.Temperature(kind.Temperature()),
		JSON:        kind.JSON(),
		Backend:     kind.Backend(),
	})
	if err != nil {
		return "", fmt.Errorf("%s call: %w", kind, err)
	}
	o.logger.Debug("oracle response", "call", string(kind), "model", resp.Model, "length", len(resp.Message))
	return strings.TrimSpace(resp.Message), nil
}

func (o *LLMOracle) GenerateNarrative(ctx context.Context, gs *state.GameSession) (*Narrative, error) {
	raw, err := o.complete(ctx, prompts.New(prompts.KindNarrative).WithSession(gs).WithHistoryLimit(o.historyLimit), prompts.KindNarrative)
	if err != nil {
		return nil, err
	}
	var n Narrative
	if err := decodeJSON(raw, &n); err != nil {
		return nil, err
	}
	n.Text = strings.TrimSpace(n.Text)
	if n.Text == "" {
		return nil, ErrEmptyNarrative
	}
	return &n, nil
}

func (o *LLMOracle) UpdateStats(ctx context.Context, gs *state.GameSession, narrative string) (*state.PlayerPatch, error) {
	raw, err := o.complete(ctx, prompts.New(prompts.KindStats).WithSession(gs).WithNarrative(narrative), prompts.KindStats)
	if err != nil {
		return nil, err
	}
	// Some models wrap the stats in a "player" object.
	var wrapped struct {
		Player *state.PlayerPatch `json:"player"`
	}
	if err := decodeJSON(raw, &wrapped); err == nil && wrapped.Player != nil {
		return wrapped.Player, nil
	}
	var patch state.PlayerPatch
	if err := decodeJSON(raw, &patch); err != nil {
		return nil, err
	}
	return &patch, nil
}

func (o *LLMOracle) UpdateInventory(ctx context.Context, gs *state.GameSession, narrative string) ([]state.InventoryEntry, error) {
	raw, err := o.complete(ctx, prompts.New(prompts.KindInventory).WithSession(gs).WithNarrative(narrative), prompts.KindInventory)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[state.InventoryEntry](raw, "inventory")
	if err != nil {
		return nil, err
	}
	if err := CheckInventory(items); err != nil {
		return nil, err
	}
	return items, nil
}

// CheckInventory rejects an inventory payload without a first entry or with
// an unnamed entry.
func CheckInventory(items []state.InventoryEntry) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: inventory has no entries", ErrMalformedPayload)
	}
	for i, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("%w: inventory entry %d has no name", ErrMalformedPayload, i)
		}
	}
	return nil
}

func (o *LLMOracle) UpdateLocation(ctx context.Context, gs *state.GameSession, narrative string) (state.Location, error) {
	raw, err := o.complete(ctx, prompts.New(prompts.KindLocation).WithSession(gs).WithNarrative(narrative), prompts.KindLocation)
	if err != nil {
		return state.Location{}, err
	}
	var loc state.Location
	if err := decodeJSON(raw, &loc); err != nil {
		return state.Location{}, err
	}
	if strings.TrimSpace(loc.Name) == "" {
		return state.Location{}, fmt.Errorf("%w: location has no name", ErrMalformedPayload)
	}
	return loc, nil
}

func (o *LLMOracle) UpdateQuest(ctx context.Context, gs *state.GameSession, narrative string) (state.Quest, error) {
	raw, err := o.complete(ctx, prompts.New(prompts.KindQuest).WithSession(gs).WithNarrative(narrative), prompts.KindQuest)
	if err != nil {
		return state.Quest{}, err
	}
	var q state.Quest
	if err := decodeJSON(raw, &q); err != nil {
		return state.Quest{}, err
	}
	if strings.TrimSpace(q.Name) == "" {
		return state.Quest{}, fmt.Errorf("%w: quest has no name", ErrMalformedPayload)
	}
	return q, nil
}

func (o *LLMOracle) GenerateChoices(ctx context.Context, gs *state.GameSession, narrative string) ([]string, error) {
	raw, err := o.complete(ctx, prompts.New(prompts.KindChoices).WithSession(gs).WithNarrative(narrative), prompts.KindChoices)
	if err != nil {
		return nil, err
	}
	choices, err := decodeList[string](raw, "choices")
	if err != nil {
		return nil, err
	}
	return cleanStrings(choices), nil
}

func (o *LLMOracle) Summarize(ctx context.Context, gs *state.GameSession) (string, error) {
	return o.text(ctx, prompts.New(prompts.KindSummarize).WithSession(gs), prompts.KindSummarize)
}

func (o *LLMOracle) ShortenText(ctx context.Context, text string) (string, error) {
	return o.text(ctx, prompts.New(prompts.KindShorten).WithText(text), prompts.KindShorten)
}

func (o *LLMOracle) GenerateClasses(ctx context.Context, settings state.GameSettings, c prompts.Character) ([]string, error) {
	raw, err := o.complete(ctx, prompts.New(prompts.KindClasses).WithSettings(settings).WithCharacter(c), prompts.KindClasses)
	if err != nil {
		return nil, err
	}
	classes, err := decodeList[string](raw, "classes")
	if err != nil {
		return nil, err
	}
	classes = cleanStrings(classes)
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: no classes", ErrMalformedPayload)
	}
	caser := cases.Title(languageTag(settings.Language))
	for i, cl := range classes {
		classes[i] = caser.String(cl)
	}
	return classes, nil
}

func (o *LLMOracle) GeneratePlayer(ctx context.Context, settings state.GameSettings, c prompts.Character) (state.PlayerState, error) {
	player := state.PlayerState{
		Username:    c.Username,
		Class:       c.Class,
		Sex:         c.Sex,
		Description: c.Description,
		Level:       1,
	}
	raw, err := o.complete(ctx, prompts.New(prompts.KindPlayer).WithSettings(settings).WithCharacter(c), prompts.KindPlayer)
	if err != nil {
		return player, err
	}
	var patch state.PlayerPatch
	if err := decodeJSON(raw, &patch); err != nil {
		return player, err
	}
	if patch.HP == nil || patch.HP.Max == nil || *patch.HP.Max <= 0 {
		return player, fmt.Errorf("%w: player has no hit points", ErrMalformedPayload)
	}
	// Identity comes from the player, never from the model.
	patch.Class, patch.Description = nil, nil
	state.ApplyPlayerPatch(&player, &patch, state.MergePresence)
	if patch.HP.Current == nil {
		player.HP.Current = player.HP.Max
	}
	if patch.Mana != nil && patch.Mana.Current == nil {
		player.Mana.Current = player.Mana.Max
	}
	return player, nil
}

func (o *LLMOracle) GenerateScenario(ctx context.Context, settings state.GameSettings, c prompts.Character, idea string) (string, error) {
	return o.text(ctx, prompts.New(prompts.KindScenario).WithSettings(settings).WithCharacter(c).WithIdea(idea), prompts.KindScenario)
}

func (o *LLMOracle) Translate(ctx context.Context, text, lang string) (string, error) {
	return o.text(ctx, prompts.New(prompts.KindTranslate).WithText(text).WithTargetLanguage(lang), prompts.KindTranslate)
}

func (o *LLMOracle) text(ctx context.Context, b *prompts.Builder, kind prompts.Kind) (string, error) {
	raw, err := o.complete(ctx, b, kind)
	if err != nil {
		return "", err
	}
	raw = strings.Trim(raw, "\"` \n")
	if raw == "" {
		return "", fmt.Errorf("%w: empty %s text", ErrMalformedPayload, kind)
	}
	return raw, nil
}

func languageTag(lang string) language.Tag {
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	return tag
}
