package turn

import (
	"context"
	"sync"

	"github.com/jwebster45206/turnkeeper/pkg/state"
)

// ScriptedPlayer is a Player that answers from fixed scripts. Once a script
// runs out, it accepts every turn, picks the first choice and gives up on
// retries.
type ScriptedPlayer struct {
	Confirms []bool
	Choices  []string
	Retries  []bool

	Presented []string
	Reports   []state.Report
	Offered   [][]string
	Failures  []error

	mu sync.Mutex
}

var _ Player = (*ScriptedPlayer)(nil)

func (p *ScriptedPlayer) Present(ctx context.Context, narrative string, report state.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Presented = append(p.Presented, narrative)
	p.Reports = append(p.Reports, report)
	return ctx.Err()
}

func (p *ScriptedPlayer) Confirm(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Confirms) == 0 {
		return true, ctx.Err()
	}
	ok := p.Confirms[0]
	p.Confirms = p.Confirms[1:]
	return ok, ctx.Err()
}

func (p *ScriptedPlayer) Choose(ctx context.Context, choices []string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Offered = append(p.Offered, choices)
	if len(p.Choices) == 0 {
		return choices[0], ctx.Err()
	}
	c := p.Choices[0]
	p.Choices = p.Choices[1:]
	return c, ctx.Err()
}

func (p *ScriptedPlayer) Retry(ctx context.Context, cause error) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Failures = append(p.Failures, cause)
	if len(p.Retries) == 0 {
		return false, ctx.Err()
	}
	ok := p.Retries[0]
	p.Retries = p.Retries[1:]
	return ok, ctx.Err()
}
