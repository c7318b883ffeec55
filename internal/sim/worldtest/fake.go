// Package worldtest provides test doubles for facade.World and a helper for building
// a real world from the repository catalogs.
package worldtest

import (
	"fmt"
	"sync"

	"colonylink.ai/internal/sim/facade"
)

// FuncStrategy is a Strategy whose acceptance is decided by Accept. A nil Accept
// accepts everything.
type FuncStrategy struct {
	Name   string
	Accept func(req *facade.IncidentRequest, kind facade.PawnGroupKind) bool
	Checks int
}

func (s *FuncStrategy) ID() string { return s.Name }

func (s *FuncStrategy) CanUseWith(req *facade.IncidentRequest, kind facade.PawnGroupKind) bool {
	s.Checks++
	if s.Accept == nil {
		return true
	}
	return s.Accept(req, kind)
}

// Call is one recorded facade invocation.
type Call struct {
	Method string
	Args   []any
}

// Fake is a scriptable in-memory facade.World that records every call.
type Fake struct {
	mu sync.Mutex

	MapIDValue facade.MapID
	Width      int
	Height     int
	// StandableFn decides standability for in-bounds cells; nil means every cell.
	StandableFn func(loc facade.GridLocation) bool

	// EnemyDraws is consumed in order by RandomEnemyFaction; when exhausted, Enemy is
	// returned.
	EnemyDraws []*facade.Faction
	Enemy      *facade.Faction
	EnemyCalls int

	Strategies    map[string]facade.Strategy
	DefaultPoints float64
	RaidResult    bool
	Raids         []facade.IncidentRequest

	// Incidents maps known incident names to their execution result.
	Incidents map[string]bool

	Weathers       []string
	CurrentWeather string

	Corpses        int
	CorpsesHostile bool
	FleeCount      int

	Items       map[string]facade.ItemDef
	PodsPerDrop int

	Letters []facade.Notification
	Calls   []Call

	// PanicOn makes the named method panic.
	PanicOn string
}

var _ facade.World = (*Fake)(nil)

// NewFake returns a 10x10 fully standable map with one default strategy, a hostile
// "Pirates" enemy and the usual weather and items.
func NewFake() *Fake {
	pirates := &facade.Faction{ID: "Pirates", Name: "Pirates", Hostile: true, AutoFlee: true, GroupKinds: []facade.PawnGroupKind{facade.GroupCombat}}
	def := &FuncStrategy{Name: "ImmediateAttack"}
	return &Fake{
		MapIDValue:    "fake",
		Width:         10,
		Height:        10,
		Enemy:         pirates,
		Strategies:    map[string]facade.Strategy{"": def, "ImmediateAttack": def, "Siege": &FuncStrategy{Name: "Siege"}},
		DefaultPoints: 120,
		RaidResult:    true,
		Incidents: map[string]bool{
			"SolarFlare": true, "Eclipse": true, "Aurora": true, "ToxicFallout": true, "ShortCircuit": true,
		},
		Weathers:       []string{"Clear", "Rain", "Fog"},
		CurrentWeather: "Clear",
		Items: map[string]facade.ItemDef{
			"Steel":      {ID: "Steel", Haulable: true, StackLimit: 75},
			"MealSimple": {ID: "MealSimple", Haulable: true, StackLimit: 10},
		},
		PodsPerDrop: 3,
	}
}

func (f *Fake) record(method string, args ...any) {
	f.Calls = append(f.Calls, Call{Method: method, Args: args})
	if f.PanicOn == method {
		panic(fmt.Sprintf("worldtest: scripted panic in %s", method))
	}
}

// CallCount counts recorded calls to method.
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// MutationCount counts recorded calls that change world state or post letters.
func (f *Fake) MutationCount() int {
	n := 0
	for _, m := range []string{"ExecuteRaid", "ExecuteSimpleIncident", "TransitionWeather", "ResurrectAllCorpses", "ForceFlee", "SpawnExplosion", "SpawnWandererColonist", "DropItemPods", "Notify"} {
		n += f.CallCount(m)
	}
	return n
}

func (f *Fake) CurrentMap() facade.MapID { return f.MapIDValue }

func (f *Fake) MapSize() (int, int) { return f.Width, f.Height }

func (f *Fake) InBounds(loc facade.GridLocation) bool {
	return loc.X >= 0 && loc.Z >= 0 && loc.X < f.Width && loc.Z < f.Height
}

func (f *Fake) Standable(loc facade.GridLocation) bool {
	if !f.InBounds(loc) {
		return false
	}
	return f.StandableFn == nil || f.StandableFn(loc)
}

func (f *Fake) RandomEnemyFaction() *facade.Faction {
	f.EnemyCalls++
	if len(f.EnemyDraws) > 0 {
		next := f.EnemyDraws[0]
		f.EnemyDraws = f.EnemyDraws[1:]
		return next
	}
	return f.Enemy
}

func (f *Fake) DefaultThreatPoints() float64 { return f.DefaultPoints }

func (f *Fake) Strategy(id string) facade.Strategy {
	s, ok := f.Strategies[id]
	if !ok {
		return nil
	}
	return s
}

func (f *Fake) ExecuteRaid(req facade.IncidentRequest) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ExecuteRaid", req)
	f.Raids = append(f.Raids, req)
	return f.RaidResult
}

func (f *Fake) HasIncident(name string) bool {
	_, ok := f.Incidents[name]
	return ok
}

func (f *Fake) ExecuteSimpleIncident(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ExecuteSimpleIncident", name)
	return f.Incidents[name]
}

func (f *Fake) WeatherIDs() []string { return append([]string(nil), f.Weathers...) }

func (f *Fake) HasWeather(id string) bool {
	for _, w := range f.Weathers {
		if w == id {
			return true
		}
	}
	return false
}

func (f *Fake) TransitionWeather(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("TransitionWeather", id)
	f.CurrentWeather = id
}

func (f *Fake) ResurrectAllCorpses() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ResurrectAllCorpses")
	n, hostile := f.Corpses, f.CorpsesHostile
	f.Corpses, f.CorpsesHostile = 0, false
	return n, hostile
}

func (f *Fake) ForceFlee() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ForceFlee")
	return f.FleeCount
}

func (f *Fake) SpawnExplosion(at facade.GridLocation, radius float64, damageType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SpawnExplosion", at, radius, damageType)
}

// SpawnWandererColonist records the custom name as a string, or nil when none was given.
func (f *Fake) SpawnWandererColonist(customName *string, at facade.GridLocation) (facade.Pawn, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := facade.PawnName{First: "Ada", Nick: "Wren", Last: "Hollis"}
	var arg any
	if customName != nil {
		arg = *customName
		name.Nick = *customName
	}
	f.record("SpawnWandererColonist", arg, at)
	return facade.Pawn{ID: "P000001", Name: name, FactionID: "PlayerColony", Pos: at}, true
}

func (f *Fake) ItemDef(id string) (facade.ItemDef, bool) {
	it, ok := f.Items[id]
	return it, ok
}

func (f *Fake) HaulableItems() []facade.ItemDef {
	var out []facade.ItemDef
	for _, id := range sortedItemIDs(f.Items) {
		if it := f.Items[id]; it.Haulable && !it.Blueprint && !it.Frame {
			out = append(out, it)
		}
	}
	return out
}

func (f *Fake) DropItemPods(itemID string, at facade.GridLocation) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DropItemPods", itemID, at)
	return f.PodsPerDrop
}

func (f *Fake) Notify(n facade.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Notify", n)
	f.Letters = append(f.Letters, n)
}
