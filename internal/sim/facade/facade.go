// Package facade is the surface the remote-control core uses to touch the simulation.
//
// Every method is called from the simulation's tick goroutine; implementations need no
// locking on behalf of the core.
package facade

// MapID identifies the map an incident targets.
type MapID string

// GridLocation is a map cell. Y (height) is implicit and always zero.
type GridLocation struct {
	X int
	Z int
}

func (l GridLocation) ToArray() [2]int { return [2]int{l.X, l.Z} }

// PawnGroupKind is the composition used to build an incident's pawn group.
type PawnGroupKind string

const (
	GroupCombat   PawnGroupKind = "COMBAT"
	GroupTrader   PawnGroupKind = "TRADER"
	GroupSettling PawnGroupKind = "SETTLEMENT"
)

// ArrivalMode is how a raid group enters the map.
type ArrivalMode string

const (
	ArrivalEdgeWalkIn   ArrivalMode = "EDGE_WALK_IN"
	ArrivalCenterDrop   ArrivalMode = "CENTER_DROP"
	ArrivalEdgeDropPods ArrivalMode = "EDGE_DROP_PODS"
)

type Faction struct {
	ID         string
	Name       string
	Hostile    bool
	AutoFlee   bool
	Tech       string
	GroupKinds []PawnGroupKind
}

func (f *Faction) CanGenerate(kind PawnGroupKind) bool {
	if f == nil {
		return false
	}
	for _, k := range f.GroupKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Strategy is a raid composition policy.
type Strategy interface {
	ID() string
	// CanUseWith reports whether the strategy can run for req with a group of kind.
	CanUseWith(req *IncidentRequest, kind PawnGroupKind) bool
}

// IncidentRequest describes one raid-style incident. Before it is handed to
// ExecuteRaid, Faction and Strategy are non-nil and Strategy.CanUseWith(req, GroupCombat)
// holds.
type IncidentRequest struct {
	Target      MapID
	Faction     *Faction
	Points      float64
	Strategy    Strategy
	ArrivalMode ArrivalMode
}

// UseDefaultPoints is the Points sentinel meaning "current default threat points".
const UseDefaultPoints = -1.0

type ItemDef struct {
	ID              string
	Haulable        bool
	Blueprint       bool
	Frame           bool
	StackLimit      int
	StuffCategories []string
	MadeFromStuff   bool
	StuffProps      []string
}

type PawnName struct {
	First string
	Nick  string
	Last  string
}

func (n PawnName) Full() string {
	switch {
	case n.Nick == "" && n.Last == "":
		return n.First
	case n.Nick == "":
		return n.First + " " + n.Last
	default:
		return n.First + " '" + n.Nick + "' " + n.Last
	}
}

type Pawn struct {
	ID        string
	Name      PawnName
	FactionID string
	Pos       GridLocation
}

// Severity is the framing of a player notification.
type Severity int

const (
	SeverityNeutral Severity = iota
	SeverityPositive
	SeverityNegative
	SeverityThreatBig
)

func (s Severity) String() string {
	switch s {
	case SeverityPositive:
		return "POSITIVE"
	case SeverityNegative:
		return "NEGATIVE"
	case SeverityThreatBig:
		return "THREAT_BIG"
	default:
		return "NEUTRAL"
	}
}

// Notification is a player-visible letter. Focus, when set, is where the camera jumps.
type Notification struct {
	Title    string
	Body     string
	Severity Severity
	Focus    *GridLocation
}

// World is the simulation's mutation surface.
type World interface {
	CurrentMap() MapID
	MapSize() (width, height int)
	InBounds(loc GridLocation) bool
	Standable(loc GridLocation) bool

	// RandomEnemyFaction may return nil when no hostile faction exists.
	RandomEnemyFaction() *Faction
	DefaultThreatPoints() float64
	// Strategy returns nil for an unknown id. The empty id is the immediate-attack default.
	Strategy(id string) Strategy
	ExecuteRaid(req IncidentRequest) bool

	HasIncident(name string) bool
	ExecuteSimpleIncident(name string) bool

	WeatherIDs() []string
	HasWeather(id string) bool
	TransitionWeather(id string)

	ResurrectAllCorpses() (count int, anyHostile bool)
	ForceFlee() int
	SpawnExplosion(at GridLocation, radius float64, damageType string)
	SpawnWandererColonist(customName *string, at GridLocation) (Pawn, bool)

	ItemDef(id string) (ItemDef, bool)
	HaulableItems() []ItemDef
	DropItemPods(itemID string, at GridLocation) int

	Notify(n Notification)
}
