package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/turnkeeper/internal/config"
	"github.com/jwebster45206/turnkeeper/pkg/oracle"
	"github.com/jwebster45206/turnkeeper/pkg/prompts"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

// uiStrings are translated once per session when TRANSLATE_MENU is set.
var uiStrings = []string{
	"Your name:",
	"Describe the world to play in:",
	"Any idea for the story? (enter to skip)",
	"Difficulty (easy/normal/hard):",
	"Sex:",
	"Describe your character:",
	"Choose a class (r to regenerate):",
	"Creating your character...",
	"Writing the opening...",
	"Accept AI answer? (y/n)",
	"What do you do?",
	"Pick a number or type your own action:",
	"No such choice.",
	"Copied.",
	"Could not copy to the clipboard.",
	"A save was found. Continue it? (y/n)",
	"The save could not be read. It was moved to",
	"The storyteller is not answering.",
	"Try again? (y/n)",
	"The save could not be read. Overwrite it with a new game? (y/n)",
}

func (c *Console) loadTranslations(ctx context.Context, creator oracle.Creator, lang string) {
	c.ui = make(map[string]string, len(uiStrings))
	for _, s := range uiStrings {
		t, err := creator.Translate(ctx, s, lang)
		if err != nil {
			c.logger.Warn("menu translation failed", "text", s, "error", err)
			continue
		}
		c.ui[s] = t
	}
}

// createSession walks the player through character creation.
func createSession(ctx context.Context, c *Console, creator oracle.Creator, cfg *config.Config) (*state.GameSession, error) {
	lang, err := c.ask(ctx, "Language (BCP 47, e.g. en, fr):", "en")
	if err != nil {
		return nil, err
	}
	if cfg.TranslateMenu && lang != "en" {
		c.loadTranslations(ctx, creator, lang)
	}

	var character prompts.Character
	if character.Username, err = c.ask(ctx, "Your name:", ""); err != nil {
		return nil, err
	}
	env, err := c.ask(ctx, "Describe the world to play in:", "")
	if err != nil {
		return nil, err
	}
	idea, err := c.readLine(ctx, "Any idea for the story? (enter to skip)")
	if err != nil {
		return nil, err
	}
	difficulty, err := c.ask(ctx, "Difficulty (easy/normal/hard):", "normal")
	if err != nil {
		return nil, err
	}
	if character.Sex, err = c.ask(ctx, "Sex:", ""); err != nil {
		return nil, err
	}
	if character.Description, err = c.ask(ctx, "Describe your character:", ""); err != nil {
		return nil, err
	}

	settings := state.GameSettings{Environment: env, Difficulty: difficulty, Language: lang}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	if character.Class, err = chooseClass(ctx, c, creator, settings, character); err != nil {
		return nil, err
	}

	c.printf("%s\n", promptStyle.Render(c.tr("Creating your character...")))
	player, err := creator.GeneratePlayer(ctx, settings, character)
	if err != nil {
		return nil, fmt.Errorf("generate player: %w", err)
	}

	c.printf("%s\n", promptStyle.Render(c.tr("Writing the opening...")))
	opening, err := creator.GenerateScenario(ctx, settings, character, idea)
	if err != nil {
		return nil, fmt.Errorf("generate scenario: %w", err)
	}

	return state.NewGameSession(settings, player, opening, cfg.HistoryCapacity), nil
}

func chooseClass(ctx context.Context, c *Console, creator oracle.Creator, settings state.GameSettings, character prompts.Character) (string, error) {
	for {
		classes, err := creator.GenerateClasses(ctx, settings, character)
		if err != nil {
			return "", fmt.Errorf("generate classes: %w", err)
		}
		for i, class := range classes {
			c.printf("  %s %s\n", choiceStyle.Render(strconv.Itoa(i+1)+")"), class)
		}
		for {
			answer, err := c.ask(ctx, "Choose a class (r to regenerate):", "")
			if err != nil {
				return "", err
			}
			if strings.EqualFold(answer, "r") {
				break
			}
			if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(classes) {
				return classes[n-1], nil
			}
			c.printf("%s\n", errorStyle.Render(c.tr("No such choice.")))
		}
	}
}

// confirmLoad asks whether to continue an existing save.
func confirmLoad(ctx context.Context, c *Console, gs *state.GameSession) (bool, error) {
	c.printf("%s\n", titleStyle.Render(fmt.Sprintf("%s, %s, turn %d", gs.Player.Username, gs.Player.Class, gs.TurnCount)))
	if gs.CurrentTurn.NarrativeText != "" {
		c.printf("%s\n", narratorStyle.Render(wordwrap.String(gs.CurrentTurn.NarrativeText, wrapWidth)))
	}
	for {
		answer, err := c.ask(ctx, "A save was found. Continue it? (y/n)", "y")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}
