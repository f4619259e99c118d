package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/jwebster45206/turnkeeper/pkg/state"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Kind identifies one oracle call and the prompt that drives it.
type Kind string

const (
	KindNarrative Kind = "narrative"
	KindStats     Kind = "stats"
	KindInventory Kind = "inventory"
	KindLocation  Kind = "location"
	KindQuest     Kind = "quest"
	KindChoices   Kind = "choices"
	KindSummarize Kind = "summarize"
	KindShorten   Kind = "shorten"
	KindClasses   Kind = "classes"
	KindPlayer    Kind = "player"
	KindScenario  Kind = "scenario"
	KindTranslate Kind = "translate"
)

// Kinds lists every prompt kind.
var Kinds = []Kind{
	KindNarrative, KindStats, KindInventory, KindLocation, KindQuest, KindChoices,
	KindSummarize, KindShorten, KindClasses, KindPlayer, KindScenario, KindTranslate,
}

// Temperature is the sampling temperature each call is tuned for.
func (k Kind) Temperature() float64 {
	switch k {
	case KindNarrative, KindStats, KindInventory, KindLocation, KindQuest, KindChoices, KindScenario:
		return 0.8
	case KindShorten:
		return 1.0
	case KindSummarize:
		return 0.5
	default:
		return 0.7
	}
}

// JSON reports whether the call expects a JSON object back.
func (k Kind) JSON() bool {
	switch k {
	case KindSummarize, KindShorten, KindScenario, KindTranslate:
		return false
	default:
		return true
	}
}

// Backend reports whether the call is bookkeeping that can run on a cheaper model.
func (k Kind) Backend() bool {
	switch k {
	case KindNarrative, KindScenario:
		return false
	default:
		return true
	}
}

type templateData struct {
	Settings    state.GameSettings
	Bootstrap   bool
	NoQuestName string
	Target      string
}

func render(kind Kind, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(kind)+".tmpl", data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", kind, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
