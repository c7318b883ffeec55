package world

import "time"

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick   uint64 `json:"tick"`
	Paused bool   `json:"paused"`

	Colonists  int `json:"colonists"`
	Hostiles   int `json:"hostiles"`
	Corpses    int `json:"corpses"`
	Lords      int `json:"lords"`
	Fleeing    int `json:"fleeing_lords"`
	Explosions int `json:"explosions"`
	Drops      int `json:"dropped_stacks"`
	Letters    int `json:"letters"`

	Weather      string   `json:"weather"`
	Conditions   []string `json:"conditions,omitempty"`
	ThreatPoints float64  `json:"threat_points"`

	StepMS float64 `json:"step_ms"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) publishMetrics(step time.Duration) {
	m := WorldMetrics{
		Tick:         w.tick.Load(),
		Paused:       w.paused.Load(),
		Weather:      w.weather,
		Explosions:   len(w.explosions),
		Drops:        len(w.drops),
		ThreatPoints: w.DefaultThreatPoints(),
		StepMS:       float64(step.Microseconds()) / 1000.0,
	}
	for _, p := range w.pawns {
		switch {
		case p.dead:
			m.Corpses++
		case p.pawn.FactionID == playerFactionID:
			m.Colonists++
		case w.isHostile(p.pawn.FactionID):
			m.Hostiles++
		}
	}
	for _, l := range w.lords {
		if l.Done() {
			continue
		}
		m.Lords++
		if l.Toil == ToilPanicFlee {
			m.Fleeing++
		}
	}
	for id := range w.conditions {
		m.Conditions = append(m.Conditions, id)
	}
	sortStrings(m.Conditions)
	w.lettersMu.Lock()
	m.Letters = len(w.letters)
	w.lettersMu.Unlock()
	w.metrics.Store(m)
}
