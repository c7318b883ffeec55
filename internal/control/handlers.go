package control

import (
	"fmt"

	"colonylink.ai/internal/protocol"
	"colonylink.ai/internal/sim/facade"
	"colonylink.ai/internal/sim/selection"
)

const (
	cargoPodsTitle = "Cargo Pods"
	cargoPodsBody  = "You have detected a cluster of cargo pods dropping nearby.\n\nPerhaps you'll find something useful in the wreckage."
)

func (d *Dispatcher) handleRaid(w facade.World, _ protocol.Command, rec *record) error {
	return d.raid(w, nil, facade.UseDefaultPoints, "", rec)
}

func (d *Dispatcher) handleSiege(w facade.World, _ protocol.Command, rec *record) error {
	return d.raid(w, nil, facade.UseDefaultPoints, "Siege", rec)
}

// raid selects a faction that can attack with strategyID and, when one is found,
// executes exactly one raid. A pinned faction gets a single attempt.
func (d *Dispatcher) raid(w facade.World, pinned *facade.Faction, points float64, strategyID string, rec *record) error {
	strat := w.Strategy(strategyID)
	if strat == nil {
		return fmt.Errorf("raid strategy %q: %w", strategyID, protocol.ErrUnknownDef)
	}
	if points < 0 {
		points = w.DefaultThreatPoints()
	}
	req := facade.IncidentRequest{
		Target:   w.CurrentMap(),
		Faction:  pinned,
		Points:   points,
		Strategy: strat,
	}
	policy := selection.PolicyFor(pinned, w.RandomEnemyFaction, d.cfg.FactionAttempts)
	attempts, err := selection.SelectFaction(&req, policy)
	rec.attempts = attempts
	if err != nil {
		d.log.Printf("no factions can raid with %v points", req.Points)
		return reported{err}
	}
	if !w.ExecuteRaid(req) {
		d.log.Printf("raid by %s with %v points did not fire", req.Faction.ID, req.Points)
	}
	return nil
}

func (d *Dispatcher) pickLocation(w facade.World, rec *record) (facade.GridLocation, error) {
	loc, draws, err := selection.PickLocation(w, d.rng, d.cfg.LocationAttempts)
	rec.attempts = draws
	return loc, err
}

func (d *Dispatcher) handleItemPods(w facade.World, cmd protocol.Command, rec *record) error {
	var item facade.ItemDef
	if name, ok := cmd.Param(0); ok {
		def, found := w.ItemDef(name)
		if !found {
			d.log.Printf("No item named %s, drop pods cancelling...", name)
			return reported{fmt.Errorf("item %q: %w", name, protocol.ErrUnknownDef)}
		}
		item = def
	} else {
		items := w.HaulableItems()
		if len(items) == 0 {
			return fmt.Errorf("no haulable items: %w", protocol.ErrUnknownDef)
		}
		item = items[d.rng.Intn(len(items))]
	}

	loc, err := d.pickLocation(w, rec)
	if err != nil {
		return err
	}
	if w.DropItemPods(item.ID, loc) == 0 {
		d.log.Printf("no pods dropped for %s", item.ID)
		return nil
	}
	w.Notify(facade.Notification{
		Title:    cargoPodsTitle,
		Body:     cargoPodsBody,
		Severity: facade.SeverityPositive,
		Focus:    &loc,
	})
	return nil
}

func (d *Dispatcher) handleBoom(w facade.World, _ protocol.Command, rec *record) error {
	loc, err := d.pickLocation(w, rec)
	if err != nil {
		return err
	}
	w.SpawnExplosion(loc, d.cfg.ExplosionRadius, d.cfg.ExplosionDamage)
	w.Notify(facade.Notification{
		Title:    "An explosion occured.",
		Severity: facade.SeverityNegative,
		Focus:    &loc,
	})
	return nil
}

func (d *Dispatcher) handleWanderer(w facade.World, cmd protocol.Command, rec *record) error {
	var customName *string
	if name, ok := cmd.Param(0); ok {
		customName = &name
	}
	loc, err := d.pickLocation(w, rec)
	if err != nil {
		return err
	}
	pawn, ok := w.SpawnWandererColonist(customName, loc)
	if !ok {
		d.log.Printf("wanderer could not spawn at %v", loc.ToArray())
		return nil
	}
	focus := pawn.Pos
	w.Notify(facade.Notification{
		Title:    "Wanderer Joins",
		Body:     fmt.Sprintf("%s has joined your colony!", pawn.Name.Full()),
		Severity: facade.SeverityPositive,
		Focus:    &focus,
	})
	return nil
}

func (d *Dispatcher) handleRetreat(w facade.World, _ protocol.Command, _ *record) error {
	w.ForceFlee()
	w.Notify(facade.Notification{
		Title:    "All foes on the map are retreating.",
		Severity: facade.SeverityPositive,
	})
	return nil
}

// handleResurrect posts a letter only when something came back. Any hostile among the
// resurrected makes it a big threat.
func (d *Dispatcher) handleResurrect(w facade.World, _ protocol.Command, _ *record) error {
	count, anyHostile := w.ResurrectAllCorpses()
	if count == 0 {
		return nil
	}
	sev := facade.SeverityPositive
	if anyHostile {
		sev = facade.SeverityThreatBig
	}
	w.Notify(facade.Notification{
		Title:    "Resurrection Event",
		Body:     fmt.Sprintf("A total of %d corpses were resurrected on the current map!", count),
		Severity: sev,
	})
	return nil
}

func (d *Dispatcher) handleWeather(w facade.World, cmd protocol.Command, _ *record) error {
	name, ok := cmd.Param(0)
	if ok && w.HasWeather(name) {
		w.TransitionWeather(name)
		return nil
	}
	if ok {
		d.log.Printf("Weather name '%s' is invalid. Randomizing weather.", name)
	}
	ids := w.WeatherIDs()
	if len(ids) == 0 {
		return nil
	}
	w.TransitionWeather(ids[d.rng.Intn(len(ids))])
	return nil
}

// simpleIncident fires a parameterless incident. Unknown incidents are a silent no-op.
func (d *Dispatcher) simpleIncident(name string) handlerFunc {
	return func(w facade.World, _ protocol.Command, _ *record) error {
		if !w.HasIncident(name) {
			return nil
		}
		if !w.ExecuteSimpleIncident(name) {
			d.log.Printf("Failed to trigger event: %s", name)
		}
		return nil
	}
}

func (d *Dispatcher) handleMessage(w facade.World, cmd protocol.Command, _ *record) error {
	title, _ := cmd.Param(0)
	body, _ := cmd.Param(1)
	w.Notify(facade.Notification{Title: title, Body: body, Severity: facade.SeverityNeutral})
	return nil
}
