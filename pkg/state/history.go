package state

// DefaultHistoryCapacity is the number of turn records kept verbatim.
const DefaultHistoryCapacity = 7

// HistoryWindow is a bounded FIFO buffer of recent turns. Summary holds a
// condensed account of the story so far, refreshed externally.
type HistoryWindow struct {
	Capacity int          `json:"capacity" yaml:"capacity"`
	Entries  []TurnRecord `json:"entries" yaml:"entries"`
	Summary  string       `json:"story_summary,omitempty" yaml:"story_summary,omitempty"`
}

// NewHistoryWindow returns an empty window. A non-positive capacity selects
// DefaultHistoryCapacity.
func NewHistoryWindow(capacity int) HistoryWindow {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return HistoryWindow{
		Capacity: capacity,
		Entries:  make([]TurnRecord, 0, capacity),
	}
}

func (h *HistoryWindow) capacity() int {
	if h.Capacity <= 0 {
		return DefaultHistoryCapacity
	}
	return h.Capacity
}

// Append adds rec as the newest entry. When the window is full the oldest
// entry is evicted and returned with ok set.
func (h *HistoryWindow) Append(rec TurnRecord) (evicted TurnRecord, ok bool) {
	h.Entries = append(h.Entries, rec)
	for len(h.Entries) > h.capacity() {
		if !ok {
			evicted, ok = h.Entries[0], true
		}
		h.Entries = h.Entries[1:]
	}
	return evicted, ok
}

// Len returns the number of records held.
func (h *HistoryWindow) Len() int {
	return len(h.Entries)
}

// IsEmpty reports whether no turns have been recorded.
func (h *HistoryWindow) IsEmpty() bool {
	return len(h.Entries) == 0
}

// Records returns a copy of the entries, oldest first.
func (h *HistoryWindow) Records() []TurnRecord {
	out := make([]TurnRecord, len(h.Entries))
	copy(out, h.Entries)
	return out
}

func (h HistoryWindow) clone() HistoryWindow {
	out := h
	out.Entries = make([]TurnRecord, len(h.Entries), max(len(h.Entries), h.capacity()))
	copy(out.Entries, h.Entries)
	return out
}
