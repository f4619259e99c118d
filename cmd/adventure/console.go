package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/turnkeeper/internal/turn"
	"github.com/jwebster45206/turnkeeper/pkg/actor"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

const wrapWidth = 80

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	reportStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	sheetStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// Console is the terminal Player. Lines are read on their own goroutine so a
// cancelled context unblocks any prompt.
type Console struct {
	lines  <-chan string
	out    io.Writer
	logger *slog.Logger

	// session returns the committed session for /sheet.
	session       func() *state.GameSession
	lastNarrative string
	ui            map[string]string
}

var _ turn.Player = (*Console)(nil)

func NewConsole(in io.Reader, out io.Writer, logger *slog.Logger) *Console {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return &Console{lines: lines, out: out, logger: logger}
}

// tr returns the translated UI string when one is loaded.
func (c *Console) tr(s string) string {
	if t, ok := c.ui[s]; ok {
		return t
	}
	return s
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *Console) readLine(ctx context.Context, prompt string) (string, error) {
	c.printf("%s ", promptStyle.Render(c.tr(prompt)))
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

// ask repeats prompt until a non-empty answer, or returns def on empty input
// when def is set.
func (c *Console) ask(ctx context.Context, prompt, def string) (string, error) {
	for {
		answer, err := c.readLine(ctx, prompt)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		if def != "" {
			return def, nil
		}
	}
}

func (c *Console) Present(ctx context.Context, narrative string, report state.Report) error {
	c.lastNarrative = narrative
	c.printf("\n%s\n\n", narratorStyle.Render(wordwrap.String(narrative, wrapWidth)))
	for _, line := range report.Lines() {
		c.printf("%s\n", reportStyle.Render("» "+line))
	}
	return ctx.Err()
}

func (c *Console) Confirm(ctx context.Context) (bool, error) {
	return c.yesNo(ctx, "Accept AI answer? (y/n)")
}

func (c *Console) Retry(ctx context.Context, cause error) (bool, error) {
	c.printf("%s\n", errorStyle.Render(c.tr("The storyteller is not answering.")))
	c.logger.Warn("narrative unavailable", "error", cause)
	return c.yesNo(ctx, "Try again? (y/n)")
}

// yesNo asks until the player answers y or n. Empty input asks again.
func (c *Console) yesNo(ctx context.Context, prompt string) (bool, error) {
	for {
		answer, err := c.readLine(ctx, prompt)
		if err != nil {
			return false, err
		}
		if c.command(answer) {
			continue
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

func (c *Console) Choose(ctx context.Context, choices []string) (string, error) {
	c.printf("\n%s\n", titleStyle.Render(c.tr("What do you do?")))
	for i, choice := range choices {
		c.printf("  %s %s\n", choiceStyle.Render(strconv.Itoa(i+1)+")"), choice)
	}
	for {
		answer, err := c.readLine(ctx, "Pick a number or type your own action:")
		if err != nil {
			return "", err
		}
		if answer == "" || c.command(answer) {
			continue
		}
		if n, err := strconv.Atoi(answer); err == nil {
			if n >= 1 && n <= len(choices) {
				return choices[n-1], nil
			}
			c.printf("%s\n", errorStyle.Render(c.tr("No such choice.")))
			continue
		}
		return answer, nil
	}
}

// command runs a slash command and reports whether line was one.
func (c *Console) command(line string) bool {
	switch strings.ToLower(line) {
	case "/copy":
		if err := clipboard.WriteAll(c.lastNarrative); err != nil {
			c.logger.Warn("clipboard unavailable", "error", err)
			c.printf("%s\n", errorStyle.Render(c.tr("Could not copy to the clipboard.")))
		} else {
			c.printf("%s\n", promptStyle.Render(c.tr("Copied.")))
		}
		return true
	case "/sheet":
		c.printSheet()
		return true
	default:
		return false
	}
}

func (c *Console) printSheet() {
	if c.session == nil {
		return
	}
	gs := c.session()
	sheet, err := actor.NewSheet(gs.Player)
	if err != nil {
		c.printf("%s\n", errorStyle.Render(err.Error()))
		return
	}
	lines := sheet.Lines()
	if sheet.IsDown() {
		lines = append(lines, "Down and out.")
	}
	for _, it := range gs.Inventory {
		lines = append(lines, fmt.Sprintf("%d x %s", it.Count, it.Name))
	}
	if gs.Location.Name != "" {
		lines = append(lines, "Location: "+gs.Location.Name)
	}
	lines = append(lines, "Quest: "+gs.Quest.Name)
	c.printf("%s\n", sheetStyle.Render(strings.Join(lines, "\n")))
}
