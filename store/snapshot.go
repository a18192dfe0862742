package store

// Snapshot is the serializable store state: the window list and the current
// window id. Transient exchange state is deliberately absent; an in-flight
// request cannot survive a reload.
type Snapshot struct {
	Windows         []Window `json:"windows"`
	CurrentWindowID string   `json:"current_window_id"`
}

// Snapshot captures the store state for persistence.
func (s *Store) Snapshot() Snapshot {
	windows := make([]Window, len(s.windows))
	for i, w := range s.windows {
		windows[i] = w.Clone()
	}
	return Snapshot{Windows: windows, CurrentWindowID: s.currentID}
}

// Restore loads a snapshot: every window's history goes through the
// alternation repair pass, the retention cap is re-enforced, transient
// exchange state resets to idle, and a stale current pointer falls back to
// the first window.
func (s *Store) Restore(snap Snapshot) {
	windows := make([]Window, len(snap.Windows))
	for i, w := range snap.Windows {
		restored := w.Clone()
		restored.Messages = Repair(restored.Messages)
		windows[i] = restored
	}

	s.windows = evictOverflow(windows)
	s.sending = false

	s.currentID = ""
	for _, w := range s.windows {
		if w.ID == snap.CurrentWindowID {
			s.currentID = snap.CurrentWindowID
			break
		}
	}
	if s.currentID == "" && len(s.windows) > 0 {
		s.currentID = s.windows[0].ID
	}
}
