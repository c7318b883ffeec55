package world

import (
	"sort"

	"colonylink.ai/internal/sim/catalogs"
	"colonylink.ai/internal/sim/facade"
)

const playerFactionID = "PlayerColony"

func (w *World) loadFactions() {
	for _, def := range w.catalogs.Factions.Defs {
		f := &facade.Faction{
			ID:       def.ID,
			Name:     def.Name,
			Hostile:  def.Hostile,
			AutoFlee: def.AutoFlee,
			Tech:     def.Tech,
		}
		for _, k := range def.GroupKinds {
			f.GroupKinds = append(f.GroupKinds, facade.PawnGroupKind(k))
		}
		w.factions = append(w.factions, f)
		w.factionsBy[f.ID] = f
	}
}

// Faction returns the faction with id, or nil.
func (w *World) Faction(id string) *facade.Faction { return w.factionsBy[id] }

// RandomEnemyFaction draws uniformly among hostile factions. Nil when there are none.
func (w *World) RandomEnemyFaction() *facade.Faction {
	var hostile []*facade.Faction
	for _, f := range w.factions {
		if f.Hostile {
			hostile = append(hostile, f)
		}
	}
	if len(hostile) == 0 {
		return nil
	}
	return hostile[w.rng.Intn(len(hostile))]
}

func (w *World) isHostile(factionID string) bool {
	f := w.factionsBy[factionID]
	return f != nil && f.Hostile
}

func (w *World) pointsPerPawn(factionID string) float64 {
	if def, ok := w.catalogs.Factions.ByID[factionID]; ok && def.PointsPerPawn > 0 {
		return def.PointsPerPawn
	}
	return 50
}

// strategy is a catalog-backed raid strategy.
type strategy struct {
	def catalogs.StrategyDef
}

func (s *strategy) ID() string { return s.def.ID }

// CanUseWith requires a hostile faction able to field kind, enough points, a faction
// tech level the strategy allows, and some way to arrive.
func (s *strategy) CanUseWith(req *facade.IncidentRequest, kind facade.PawnGroupKind) bool {
	if s == nil || req == nil || req.Faction == nil || !req.Faction.Hostile {
		return false
	}
	if !containsString(s.def.GroupKinds, string(kind)) || !req.Faction.CanGenerate(kind) {
		return false
	}
	if req.Points >= 0 && req.Points < s.def.MinPoints {
		return false
	}
	if len(s.def.AllowedTech) > 0 && !containsString(s.def.AllowedTech, req.Faction.Tech) {
		return false
	}
	if req.ArrivalMode != "" {
		return true
	}
	return len(s.def.ArriveModes) > 0
}

func (w *World) loadStrategies() {
	for id, def := range w.catalogs.Strategies.ByID {
		w.strategies[id] = &strategy{def: def}
	}
}

// Strategy resolves id; "" is the catalog default (immediate attack). Unknown ids
// return a nil interface.
func (w *World) Strategy(id string) facade.Strategy {
	if id == "" {
		id = w.catalogs.Strategies.DefaultID
	}
	s, ok := w.strategies[id]
	if !ok {
		return nil
	}
	return s
}

func containsString(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func sortStrings(xs []string) { sort.Strings(xs) }
