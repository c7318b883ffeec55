package world

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"colonylink.ai/internal/sim/catalogs"
	"colonylink.ai/internal/sim/facade"
)

// TickHook runs on the world goroutine once per scheduler tick, after the simulation
// step. Hooks may call any facade.World method on w.
type TickHook func(tick uint64)

// World is a single-threaded colony simulation implementing facade.World.
// All state must be accessed only from the world loop goroutine; Metrics and Letters
// are the exceptions and may be read from anywhere.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	rng      *rand.Rand

	tick    atomic.Uint64
	paused  atomic.Bool
	metrics atomic.Value

	grid    []bool // true = blocked
	terrain atomic.Value

	factions   []*facade.Faction
	factionsBy map[string]*facade.Faction
	strategies map[string]*strategy

	weather           string
	weatherSinceTick  uint64
	conditions        map[string]*condition
	incidentLastFired map[string]uint64

	pawns      map[string]*pawnState
	pawnOrder  []string
	lords      []*Lord
	explosions []Explosion
	drops      []DroppedStack

	lettersMu sync.Mutex
	letters   []facade.Notification

	nextPawnNum atomic.Uint64
	nextLordNum atomic.Uint64

	hooks []TickHook
	stop  chan struct{}
	once  sync.Once
}

var _ facade.World = (*World)(nil)

func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("world: nil catalogs")
	}
	cfg.applyDefaults()
	w := &World{
		cfg:               cfg,
		catalogs:          cats,
		rng:               rand.New(rand.NewSource(cfg.Seed)),
		factionsBy:        map[string]*facade.Faction{},
		strategies:        map[string]*strategy{},
		conditions:        map[string]*condition{},
		incidentLastFired: map[string]uint64{},
		pawns:             map[string]*pawnState{},
		stop:              make(chan struct{}),
	}
	w.grid = generateGrid(cfg.Seed, cfg.Width, cfg.Height, cfg.BlockedPermille)
	w.publishTerrain()
	w.loadFactions()
	w.loadStrategies()
	if len(cats.Weather.IDs) > 0 {
		w.weather = cats.Weather.IDs[0]
		if _, ok := cats.Weather.ByID["Clear"]; ok {
			w.weather = "Clear"
		}
	}
	w.spawnStartingColonists()
	w.publishMetrics(0)
	return w, nil
}

func (w *World) Config() WorldConfig { return w.cfg }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// Rand is the world's seeded source; hooks running on the world goroutine may share it.
func (w *World) Rand() *rand.Rand { return w.rng }

// OnTick registers h. Must be called before Run.
func (w *World) OnTick(h TickHook) {
	if h != nil {
		w.hooks = append(w.hooks, h)
	}
}

func (w *World) Paused() bool { return w.paused.Load() }

// Resume clears a pause requested by a big-threat letter.
func (w *World) Resume() { w.paused.Store(false) }

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case <-ticker.C:
			w.Step()
		}
	}
}

func (w *World) Stop() { w.once.Do(func() { close(w.stop) }) }

// Step advances the simulation by one tick (unless paused) and then runs the tick
// hooks. Hooks run even while paused so remote commands keep flowing.
func (w *World) Step() {
	start := time.Now()
	tick := w.tick.Load()
	if !w.paused.Load() {
		tick = w.tick.Add(1)
		w.expireConditions(tick)
		w.advanceLords(tick)
	}
	for _, h := range w.hooks {
		h(tick)
	}
	w.publishMetrics(time.Since(start))
}

func (w *World) CurrentMap() facade.MapID { return facade.MapID(w.cfg.ID) }

func (w *World) DefaultThreatPoints() float64 {
	colonists := 0
	for _, p := range w.pawns {
		if !p.dead && p.pawn.FactionID == playerFactionID {
			colonists++
		}
	}
	pts := w.cfg.BaseThreatPoints + w.cfg.ThreatPointsPerTick*float64(w.tick.Load()) + 10*float64(colonists)
	if pts > w.cfg.MaxThreatPoints {
		pts = w.cfg.MaxThreatPoints
	}
	return pts
}
