package selection

import (
	"fmt"

	"colonylink.ai/internal/protocol"
	"colonylink.ai/internal/sim/facade"
)

// DefaultFactionAttempts bounds the random faction search.
const DefaultFactionAttempts = 100

// FactionPolicy supplies raid candidates and how many rejections it tolerates.
type FactionPolicy interface {
	Draw() *facade.Faction
	Budget() int
}

type pinnedFaction struct{ f *facade.Faction }

// Pinned always offers f and gives up after its first rejection.
func Pinned(f *facade.Faction) FactionPolicy { return pinnedFaction{f: f} }

func (p pinnedFaction) Draw() *facade.Faction { return p.f }
func (p pinnedFaction) Budget() int           { return 1 }

type randomEnemy struct {
	draw    func() *facade.Faction
	ceiling int
}

// RandomEnemy draws a fresh candidate from draw each attempt, up to ceiling rejections.
func RandomEnemy(draw func() *facade.Faction, ceiling int) FactionPolicy {
	if ceiling <= 0 {
		ceiling = DefaultFactionAttempts
	}
	return randomEnemy{draw: draw, ceiling: ceiling}
}

func (r randomEnemy) Draw() *facade.Faction {
	if r.draw == nil {
		return nil
	}
	return r.draw()
}
func (r randomEnemy) Budget() int { return r.ceiling }

// PolicyFor picks the single-shot policy when a faction was pinned and the bounded
// random policy otherwise.
func PolicyFor(pinned *facade.Faction, draw func() *facade.Faction, ceiling int) FactionPolicy {
	if pinned != nil {
		return Pinned(pinned)
	}
	return RandomEnemy(draw, ceiling)
}

// SelectFaction fills req.Faction with the first candidate whose strategy accepts a
// combat group, then sets the edge walk-in arrival mode. It returns the number of
// candidates drawn; on exhaustion req.Faction is left nil and the error wraps
// protocol.ErrNoEligibleFaction.
func SelectFaction(req *facade.IncidentRequest, policy FactionPolicy) (int, error) {
	if req == nil || req.Strategy == nil {
		return 0, fmt.Errorf("select faction: missing strategy: %w", protocol.ErrNoEligibleFaction)
	}
	attempts, rejected := 0, 0
	for rejected < policy.Budget() {
		attempts++
		req.Faction = policy.Draw()
		if req.Faction != nil && req.Strategy.CanUseWith(req, facade.GroupCombat) {
			req.ArrivalMode = facade.ArrivalEdgeWalkIn
			return attempts, nil
		}
		rejected++
	}
	req.Faction = nil
	return attempts, fmt.Errorf("faction search gave up after %d attempts: %w", attempts, protocol.ErrNoEligibleFaction)
}
