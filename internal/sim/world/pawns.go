package world

import (
	"fmt"
	"math"

	"colonylink.ai/internal/sim/facade"
)

type pawnState struct {
	pawn   facade.Pawn
	lordID string
	dead   bool
	// left is set once a fleeing pawn walks off the map.
	left     bool
	killedBy string
}

// Explosion is a recorded blast.
type Explosion struct {
	Tick       uint64
	At         facade.GridLocation
	Radius     float64
	DamageType string
	Killed     int
}

func (w *World) newPawnID() string {
	return fmt.Sprintf("P%06d", w.nextPawnNum.Add(1))
}

func (w *World) addPawn(p facade.Pawn, lordID string) *pawnState {
	ps := &pawnState{pawn: p, lordID: lordID}
	w.pawns[p.ID] = ps
	w.pawnOrder = append(w.pawnOrder, p.ID)
	return ps
}

// Pawns returns living, on-map pawns in spawn order.
func (w *World) Pawns() []facade.Pawn {
	out := make([]facade.Pawn, 0, len(w.pawnOrder))
	for _, id := range w.pawnOrder {
		p := w.pawns[id]
		if p.dead || p.left {
			continue
		}
		out = append(out, p.pawn)
	}
	return out
}

// Corpses returns dead pawns still on the map.
func (w *World) Corpses() []facade.Pawn {
	var out []facade.Pawn
	for _, id := range w.pawnOrder {
		if p := w.pawns[id]; p.dead && !p.left {
			out = append(out, p.pawn)
		}
	}
	return out
}

func (w *World) Explosions() []Explosion {
	return append([]Explosion(nil), w.explosions...)
}

func (w *World) randomName() facade.PawnName {
	names := w.catalogs.Factions.ByID[playerFactionID].Names
	if len(names) == 0 {
		names = []string{"Colonist"}
	}
	pick := func() string { return names[w.rng.Intn(len(names))] }
	return facade.PawnName{First: pick(), Nick: pick(), Last: pick() + "son"}
}

func (w *World) spawnStartingColonists() {
	c := w.center()
	for i := 0; i < w.cfg.StartingColonists; i++ {
		loc, ok := w.nearestStandable(c, 8)
		if !ok {
			return
		}
		w.addPawn(facade.Pawn{ID: w.newPawnID(), Name: w.randomName(), FactionID: playerFactionID, Pos: loc}, "")
	}
}

// SpawnWandererColonist generates a colonist at a standable cell. A non-nil customName
// replaces the generated nickname, even when it is empty.
func (w *World) SpawnWandererColonist(customName *string, at facade.GridLocation) (facade.Pawn, bool) {
	if !w.Standable(at) {
		return facade.Pawn{}, false
	}
	name := w.randomName()
	if customName != nil {
		name.Nick = *customName
	}
	p := facade.Pawn{ID: w.newPawnID(), Name: name, FactionID: playerFactionID, Pos: at}
	w.addPawn(p, "")
	return p, true
}

// SpawnExplosion kills every living pawn within radius of at.
func (w *World) SpawnExplosion(at facade.GridLocation, radius float64, damageType string) {
	killed := 0
	for _, id := range w.pawnOrder {
		p := w.pawns[id]
		if p.dead || p.left {
			continue
		}
		dx, dz := float64(p.pawn.Pos.X-at.X), float64(p.pawn.Pos.Z-at.Z)
		if math.Sqrt(dx*dx+dz*dz) > radius {
			continue
		}
		p.dead = true
		p.killedBy = damageType
		killed++
		if l := w.lordByID(p.lordID); l != nil {
			l.Alive--
		}
	}
	w.explosions = append(w.explosions, Explosion{
		Tick:       w.tick.Load(),
		At:         at,
		Radius:     radius,
		DamageType: damageType,
		Killed:     killed,
	})
}

// ResurrectAllCorpses brings every corpse back and reports whether any of them belongs
// to a faction hostile to the colony.
func (w *World) ResurrectAllCorpses() (int, bool) {
	count, anyHostile := 0, false
	for _, id := range w.pawnOrder {
		p := w.pawns[id]
		if !p.dead || p.left {
			continue
		}
		p.dead = false
		p.killedBy = ""
		count++
		if w.isHostile(p.pawn.FactionID) {
			anyHostile = true
		}
		if l := w.lordByID(p.lordID); l != nil {
			l.Alive++
		}
	}
	return count, anyHostile
}

// KillPawn marks id dead and leaves a corpse for resurrect. Nothing in the server calls
// it; tests use it to stage corpses.
func (w *World) KillPawn(id, damageType string) bool {
	p, ok := w.pawns[id]
	if !ok || p.dead || p.left {
		return false
	}
	p.dead = true
	p.killedBy = damageType
	if l := w.lordByID(p.lordID); l != nil {
		l.Alive--
	}
	return true
}
