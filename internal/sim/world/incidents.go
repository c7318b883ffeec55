package world

import (
	"colonylink.ai/internal/sim/facade"
)

// condition is an active game condition started by a simple incident.
type condition struct {
	id          string
	startTick   uint64
	untilTick   uint64
	prevWeather string
}

func (w *World) HasIncident(name string) bool {
	_, ok := w.catalogs.Incidents.ByID[name]
	return ok
}

// ExecuteSimpleIncident fires a catalog incident. It fails when the incident is unknown,
// still cooling down, or its condition is already active.
func (w *World) ExecuteSimpleIncident(name string) bool {
	def, ok := w.catalogs.Incidents.ByID[name]
	if !ok {
		return false
	}
	tick := w.tick.Load()
	if last, fired := w.incidentLastFired[name]; fired && def.CooldownTicks > 0 && tick-last < uint64(def.CooldownTicks) {
		return false
	}
	if _, active := w.conditions[name]; active {
		return false
	}
	w.incidentLastFired[name] = tick

	if def.DurationTicks > 0 {
		c := &condition{id: name, startTick: tick, untilTick: tick + uint64(def.DurationTicks)}
		if def.Weather != "" && w.HasWeather(def.Weather) {
			c.prevWeather = w.weather
			w.TransitionWeather(def.Weather)
		}
		w.conditions[name] = c
	}

	title := def.Title
	if title == "" {
		title = def.ID
	}
	w.Notify(facade.Notification{
		Title:    title,
		Body:     def.Description,
		Severity: parseSeverity(def.Severity),
	})
	return true
}

// ActiveConditions lists running conditions, sorted.
func (w *World) ActiveConditions() []string {
	out := make([]string, 0, len(w.conditions))
	for id := range w.conditions {
		out = append(out, id)
	}
	sortStrings(out)
	return out
}

func (w *World) expireConditions(tick uint64) {
	for id, c := range w.conditions {
		if tick < c.untilTick {
			continue
		}
		delete(w.conditions, id)
		if c.prevWeather != "" {
			w.TransitionWeather(c.prevWeather)
		}
	}
}

func parseSeverity(s string) facade.Severity {
	switch s {
	case "POSITIVE":
		return facade.SeverityPositive
	case "NEGATIVE":
		return facade.SeverityNegative
	case "THREAT_BIG":
		return facade.SeverityThreatBig
	default:
		return facade.SeverityNeutral
	}
}
