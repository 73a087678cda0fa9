// CLAUDE:SUMMARY Undo/redo state: past/future stacks of {action, inverse} pairs over the box store.
package redact

// HistoryEntry pairs a recorded action with its precomputed inverse. Both
// are self-contained: replaying either through the engine reproduces the
// respective state transition without consulting history.
type HistoryEntry struct {
	Action  Action  `json:"action"`
	Inverse *Action `json:"inverse,omitempty"`
}

// State is the mutable per-session context the engine operates on: the box
// store plus the history stacks. It is exclusively owned by one session
// record; the engine borrows it for the duration of one batch.
type State struct {
	Store
	Past   []HistoryEntry `json:"history_past,omitempty"`
	Future []HistoryEntry `json:"history_future,omitempty"`
}

// record pushes a new history entry and discards the redo stack.
func (st *State) record(action Action, inverse *Action) {
	st.Past = append(st.Past, HistoryEntry{Action: action, Inverse: inverse})
	st.Future = nil
}

// CanUndo reports whether an UNDO would replay anything.
func (st *State) CanUndo() bool { return len(st.Past) > 0 }

// CanRedo reports whether a REDO would replay anything.
func (st *State) CanRedo() bool { return len(st.Future) > 0 }
