package selection

import (
	"errors"
	"testing"

	"colonylink.ai/internal/protocol"
	"colonylink.ai/internal/sim/facade"
)

type stubStrategy struct {
	id    string
	calls int
	ok    func(req *facade.IncidentRequest, kind facade.PawnGroupKind) bool
}

func (s *stubStrategy) ID() string { return s.id }
func (s *stubStrategy) CanUseWith(req *facade.IncidentRequest, kind facade.PawnGroupKind) bool {
	s.calls++
	return s.ok(req, kind)
}

func never(*facade.IncidentRequest, facade.PawnGroupKind) bool  { return false }
func always(*facade.IncidentRequest, facade.PawnGroupKind) bool { return true }

func TestSelectFaction_PinnedRejectedOnce(t *testing.T) {
	pirates := &facade.Faction{ID: "pirates", Hostile: true}
	strat := &stubStrategy{id: "ImmediateAttack", ok: never}
	req := &facade.IncidentRequest{Points: 350, Strategy: strat}

	draws := 0
	policy := PolicyFor(pirates, func() *facade.Faction { draws++; return pirates }, 100)
	attempts, err := SelectFaction(req, policy)
	if !errors.Is(err, protocol.ErrNoEligibleFaction) {
		t.Fatalf("err=%v want ErrNoEligibleFaction", err)
	}
	if attempts != 1 || strat.calls != 1 {
		t.Fatalf("attempts=%d calls=%d want=1", attempts, strat.calls)
	}
	if draws != 0 {
		t.Fatalf("pinned policy must not draw random factions, draws=%d", draws)
	}
	if req.Faction != nil || req.ArrivalMode != "" {
		t.Fatalf("request should stay unfinalized: %+v", req)
	}
}

func TestSelectFaction_PinnedAccepted(t *testing.T) {
	tribe := &facade.Faction{ID: "tribe", Hostile: true}
	strat := &stubStrategy{id: "ImmediateAttack", ok: always}
	req := &facade.IncidentRequest{Points: 100, Strategy: strat}

	attempts, err := SelectFaction(req, Pinned(tribe))
	if err != nil {
		t.Fatalf("SelectFaction: %v", err)
	}
	if attempts != 1 || req.Faction != tribe || req.ArrivalMode != facade.ArrivalEdgeWalkIn {
		t.Fatalf("attempts=%d req=%+v", attempts, req)
	}
}

func TestSelectFaction_RandomAllEligibleFirstDraw(t *testing.T) {
	f := &facade.Faction{ID: "pirates", Hostile: true}
	strat := &stubStrategy{id: "ImmediateAttack", ok: always}
	req := &facade.IncidentRequest{Points: 100, Strategy: strat}

	attempts, err := SelectFaction(req, RandomEnemy(func() *facade.Faction { return f }, 100))
	if err != nil {
		t.Fatalf("SelectFaction: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts=%d want=1", attempts)
	}
}

func TestSelectFaction_RandomNeverEligibleStopsAtCeiling(t *testing.T) {
	f := &facade.Faction{ID: "pirates", Hostile: true}
	strat := &stubStrategy{id: "Siege", ok: never}
	req := &facade.IncidentRequest{Points: 35, Strategy: strat}

	draws := 0
	attempts, err := SelectFaction(req, RandomEnemy(func() *facade.Faction { draws++; return f }, DefaultFactionAttempts))
	if !errors.Is(err, protocol.ErrNoEligibleFaction) {
		t.Fatalf("err=%v", err)
	}
	if attempts != 100 || draws != 100 || strat.calls != 100 {
		t.Fatalf("attempts=%d draws=%d calls=%d want=100", attempts, draws, strat.calls)
	}
}

func TestSelectFaction_NilDrawsCountAsRejections(t *testing.T) {
	strat := &stubStrategy{id: "ImmediateAttack", ok: always}
	req := &facade.IncidentRequest{Points: 100, Strategy: strat}

	attempts, err := SelectFaction(req, RandomEnemy(func() *facade.Faction { return nil }, 5))
	if !errors.Is(err, protocol.ErrNoEligibleFaction) || attempts != 5 {
		t.Fatalf("attempts=%d err=%v", attempts, err)
	}
	if strat.calls != 0 {
		t.Fatalf("strategy consulted without a faction: calls=%d", strat.calls)
	}
}

func TestSelectFaction_EventuallyEligible(t *testing.T) {
	weak := &facade.Faction{ID: "weak", Hostile: true}
	strong := &facade.Faction{ID: "strong", Hostile: true, Tech: "industrial"}
	strat := &stubStrategy{id: "Siege", ok: func(req *facade.IncidentRequest, kind facade.PawnGroupKind) bool {
		return kind == facade.GroupCombat && req.Faction.Tech == "industrial"
	}}
	seq := []*facade.Faction{weak, weak, weak, strong}
	i := 0
	draw := func() *facade.Faction { f := seq[i%len(seq)]; i++; return f }

	req := &facade.IncidentRequest{Points: 500, Strategy: strat}
	attempts, err := SelectFaction(req, RandomEnemy(draw, 100))
	if err != nil {
		t.Fatalf("SelectFaction: %v", err)
	}
	if attempts != 4 || req.Faction != strong {
		t.Fatalf("attempts=%d faction=%+v", attempts, req.Faction)
	}
}

func TestSelectFaction_MissingStrategy(t *testing.T) {
	if _, err := SelectFaction(&facade.IncidentRequest{}, Pinned(&facade.Faction{})); !errors.Is(err, protocol.ErrNoEligibleFaction) {
		t.Fatalf("err=%v", err)
	}
}

func TestRandomEnemy_DefaultCeiling(t *testing.T) {
	if got := RandomEnemy(nil, 0).Budget(); got != DefaultFactionAttempts {
		t.Fatalf("Budget=%d want=%d", got, DefaultFactionAttempts)
	}
	if RandomEnemy(nil, 3).Draw() != nil {
		t.Fatalf("nil draw func should yield nil")
	}
}
