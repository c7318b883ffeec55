package world

import (
	"fmt"

	"colonylink.ai/internal/sim/facade"
)

type Toil string

const (
	ToilAssault   Toil = "ASSAULT"
	ToilStage     Toil = "STAGE"
	ToilSiege     Toil = "SIEGE"
	ToilPanicFlee Toil = "PANIC_FLEE"
)

const (
	lordMoveEveryTicks = 30
	stageTicks         = 600
	siegeTicks         = 3000
	maxRaidPawns       = 40
)

// Lord directs a group of pawns of one faction.
type Lord struct {
	ID          string
	FactionID   string
	Strategy    string
	ArrivalMode facade.ArrivalMode
	Points      float64
	Toil        Toil
	ToilSince   uint64
	PawnIDs     []string
	Alive       int
}

// Done reports a lord with no living pawn left on the map.
func (l *Lord) Done() bool { return l.Alive <= 0 }

func (w *World) Lords() []Lord {
	out := make([]Lord, 0, len(w.lords))
	for _, l := range w.lords {
		c := *l
		c.PawnIDs = append([]string(nil), l.PawnIDs...)
		out = append(out, c)
	}
	return out
}

func (w *World) lordByID(id string) *Lord {
	if id == "" {
		return nil
	}
	for _, l := range w.lords {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// ExecuteRaid spawns a hostile group sized by points and posts a big-threat letter.
// It refuses requests whose strategy does not accept a combat group.
func (w *World) ExecuteRaid(req facade.IncidentRequest) bool {
	if req.Faction == nil || req.Strategy == nil {
		return false
	}
	if req.Points < 0 {
		req.Points = w.DefaultThreatPoints()
	}
	if !req.Strategy.CanUseWith(&req, facade.GroupCombat) {
		return false
	}
	if req.ArrivalMode == "" {
		req.ArrivalMode = facade.ArrivalEdgeWalkIn
	}

	n := int(req.Points / w.pointsPerPawn(req.Faction.ID))
	if n < 1 {
		n = 1
	}
	if n > maxRaidPawns {
		n = maxRaidPawns
	}

	origin, ok := w.arrivalOrigin(req.ArrivalMode)
	if !ok {
		return false
	}

	tick := w.tick.Load()
	lord := &Lord{
		ID:          fmt.Sprintf("L%04d", w.nextLordNum.Add(1)),
		FactionID:   req.Faction.ID,
		Strategy:    req.Strategy.ID(),
		ArrivalMode: req.ArrivalMode,
		Points:      req.Points,
		Toil:        initialToil(req.Strategy.ID()),
		ToilSince:   tick,
	}
	names := w.catalogs.Factions.ByID[req.Faction.ID].Names
	for i := 0; i < n; i++ {
		loc, ok := w.nearestStandable(origin, 6)
		if !ok {
			break
		}
		name := facade.PawnName{First: req.Faction.Name}
		if len(names) > 0 {
			name = facade.PawnName{First: names[w.rng.Intn(len(names))]}
		}
		p := facade.Pawn{ID: w.newPawnID(), Name: name, FactionID: req.Faction.ID, Pos: loc}
		w.addPawn(p, lord.ID)
		lord.PawnIDs = append(lord.PawnIDs, p.ID)
		lord.Alive++
	}
	if lord.Alive == 0 {
		return false
	}
	w.lords = append(w.lords, lord)

	focus := origin
	w.Notify(facade.Notification{
		Title:    "Raid",
		Body:     fmt.Sprintf("A group of %d raiders from %s has arrived.", lord.Alive, req.Faction.Name),
		Severity: facade.SeverityThreatBig,
		Focus:    &focus,
	})
	return true
}

func initialToil(strategyID string) Toil {
	switch strategyID {
	case "Siege":
		return ToilSiege
	case "StageThenAttack":
		return ToilStage
	default:
		return ToilAssault
	}
}

func (w *World) arrivalOrigin(mode facade.ArrivalMode) (facade.GridLocation, bool) {
	switch mode {
	case facade.ArrivalCenterDrop:
		return w.nearestStandable(w.center(), 16)
	default:
		return w.randomEdgeCell()
	}
}

// ForceFlee sends every active lord of a hostile auto-flee faction into panic flight
// and returns how many lords changed toil.
func (w *World) ForceFlee() int {
	n := 0
	tick := w.tick.Load()
	for _, l := range w.lords {
		if l.Done() || l.Toil == ToilPanicFlee {
			continue
		}
		f := w.factionsBy[l.FactionID]
		if f == nil || !f.Hostile || !f.AutoFlee {
			continue
		}
		l.Toil = ToilPanicFlee
		l.ToilSince = tick
		n++
	}
	return n
}

// advanceLords moves lord pawns: assaulting groups close on the map center, fleeing
// groups head for the nearest edge and leave the map once they reach it.
func (w *World) advanceLords(tick uint64) {
	for _, l := range w.lords {
		if l.Done() {
			continue
		}
		switch l.Toil {
		case ToilStage:
			if tick-l.ToilSince >= stageTicks {
				l.Toil, l.ToilSince = ToilAssault, tick
			}
			continue
		case ToilSiege:
			if tick-l.ToilSince >= siegeTicks {
				l.Toil, l.ToilSince = ToilAssault, tick
			}
			continue
		}
		if tick%lordMoveEveryTicks != 0 {
			continue
		}
		for _, id := range l.PawnIDs {
			p := w.pawns[id]
			if p.dead || p.left {
				continue
			}
			if l.Toil == ToilPanicFlee {
				if w.onEdge(p.pawn.Pos) {
					p.left = true
					l.Alive--
					continue
				}
				p.pawn.Pos = w.stepToward(p.pawn.Pos, w.nearestEdgeTarget(p.pawn.Pos))
				continue
			}
			p.pawn.Pos = w.stepToward(p.pawn.Pos, w.center())
		}
	}
}
