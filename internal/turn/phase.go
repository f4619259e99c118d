package turn

// Phase is the controller's position within a turn.
type Phase int

const (
	PhaseAwaitingNarrative Phase = iota
	PhasePendingUpdates
	PhaseAwaitingConfirmation
	PhaseCommitted
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingNarrative:
		return "awaiting_narrative"
	case PhasePendingUpdates:
		return "pending_updates"
	case PhaseAwaitingConfirmation:
		return "awaiting_confirmation"
	case PhaseCommitted:
		return "committed"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}
