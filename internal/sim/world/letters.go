package world

import "colonylink.ai/internal/sim/facade"

// Notify appends a letter. A big-threat letter pauses the simulation until Resume.
func (w *World) Notify(n facade.Notification) {
	if n.Focus != nil {
		f := *n.Focus
		n.Focus = &f
	}
	w.lettersMu.Lock()
	w.letters = append(w.letters, n)
	if over := len(w.letters) - w.cfg.MaxLetters; over > 0 {
		w.letters = append([]facade.Notification(nil), w.letters[over:]...)
	}
	w.lettersMu.Unlock()
	if n.Severity == facade.SeverityThreatBig {
		w.paused.Store(true)
	}
}

// Letters returns a copy of the retained letter stack, oldest first.
func (w *World) Letters() []facade.Notification {
	w.lettersMu.Lock()
	defer w.lettersMu.Unlock()
	return append([]facade.Notification(nil), w.letters...)
}
