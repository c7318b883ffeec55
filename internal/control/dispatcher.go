// Package control turns decoded remote commands into world effects.
//
// Everything here runs on the world tick goroutine. Dispatch never panics and never
// returns an error to the tick: failures are logged and recorded on the CommandEntry
// handed to the sinks.
package control

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"colonylink.ai/internal/protocol"
	"colonylink.ai/internal/sim/facade"
	"colonylink.ai/internal/sim/selection"
)

// Sink receives every finished CommandEntry. Implementations must not block the tick.
type Sink interface {
	WriteCommand(e protocol.CommandEntry) error
}

// Rand is the random source handlers draw from.
type Rand interface {
	Intn(n int) int
}

type Config struct {
	FactionAttempts  int
	LocationAttempts int
	ExplosionRadius  float64
	ExplosionDamage  string
}

func (c *Config) applyDefaults() {
	if c.FactionAttempts <= 0 {
		c.FactionAttempts = selection.DefaultFactionAttempts
	}
	if c.LocationAttempts <= 0 {
		c.LocationAttempts = selection.DefaultLocationAttempts
	}
	if c.ExplosionRadius <= 0 {
		c.ExplosionRadius = 4.9
	}
	if c.ExplosionDamage == "" {
		c.ExplosionDamage = "Bomb"
	}
}

type handlerFunc func(w facade.World, cmd protocol.Command, rec *record) error

// record collects what a handler did for the command log.
type record struct {
	attempts     int
	calls        []string
	notification *facade.Notification
}

type Dispatcher struct {
	world facade.World
	cfg   Config
	rng   Rand
	log   *log.Logger

	handlers map[string]handlerFunc

	sinksMu sync.RWMutex
	sinks   []Sink

	statsMu sync.Mutex
	stats   Stats

	now   func() time.Time
	newID func() string
}

func NewDispatcher(w facade.World, cfg Config, rng Rand, logger *log.Logger) *Dispatcher {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.Default()
	}
	d := &Dispatcher{
		world: w,
		cfg:   cfg,
		rng:   rng,
		log:   logger,
		stats: Stats{ByName: map[string]uint64{}, ByCode: map[string]uint64{}},
		now:   time.Now,
		newID: uuid.NewString,
	}
	d.handlers = map[string]handlerFunc{
		"raid":       d.handleRaid,
		"siege":      d.handleSiege,
		"itempods":   d.handleItemPods,
		"boom":       d.handleBoom,
		"wanderer":   d.handleWanderer,
		"retreat":    d.handleRetreat,
		"resurrect":  d.handleResurrect,
		"weather":    d.handleWeather,
		"solarflare": d.simpleIncident("SolarFlare"),
		"eclipse":    d.simpleIncident("Eclipse"),
		"aurora":     d.simpleIncident("Aurora"),
		"fallout":    d.simpleIncident("ToxicFallout"),
		"zzzt":       d.simpleIncident("ShortCircuit"),
		"message":    d.handleMessage,
	}
	return d
}

// Commands lists the recognised command names, sorted.
func (d *Dispatcher) Commands() []string {
	out := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (d *Dispatcher) AddSink(s Sink) {
	if s == nil {
		return
	}
	d.sinksMu.Lock()
	d.sinks = append(d.sinks, s)
	d.sinksMu.Unlock()
}

// HandlePayload decodes raw and dispatches it. Payloads that fail to decode are still
// recorded with their error code.
func (d *Dispatcher) HandlePayload(tick uint64, raw []byte, remote string) protocol.CommandEntry {
	cmd, err := protocol.Decode(raw)
	if err != nil {
		d.log.Printf("dropping payload from %s: %v", remote, err)
		e := d.newEntry(tick, remote, raw)
		e.Code, e.Error = protocol.CodeOf(err), err.Error()
		d.finish(e)
		return e
	}
	d.log.Printf("received message: %s length: %d", cmd.String(), len(raw))
	e := d.dispatch(tick, remote, raw, cmd)
	return e
}

// RecordFailure records a payload that never reached the decoder, such as a failed read.
func (d *Dispatcher) RecordFailure(tick uint64, remote string, err error) protocol.CommandEntry {
	e := d.newEntry(tick, remote, nil)
	e.Code, e.Error = protocol.CodeOf(err), err.Error()
	d.finish(e)
	return e
}

// Dispatch runs cmd's handler. Unknown names, handler errors and handler panics are
// logged and recorded; none of them reach the caller.
func (d *Dispatcher) Dispatch(tick uint64, cmd protocol.Command) protocol.CommandEntry {
	return d.dispatch(tick, "", []byte(cmd.String()), cmd)
}

func (d *Dispatcher) dispatch(tick uint64, remote string, raw []byte, cmd protocol.Command) (e protocol.CommandEntry) {
	e = d.newEntry(tick, remote, raw)
	e.Name = cmd.Name
	e.Params = append([]string{}, cmd.Params...)

	h, ok := d.handlers[cmd.Name]
	if !ok {
		d.log.Printf("unknown command received: %s", cmd.Name)
		err := fmt.Errorf("%q: %w", cmd.Name, protocol.ErrUnknownCommand)
		e.Code, e.Error = protocol.CodeOf(err), err.Error()
		d.finish(e)
		return e
	}

	rec := &record{}
	err := d.run(h, cmd, rec)
	rec.fill(&e)
	if err != nil {
		if !errors.As(err, new(reported)) {
			d.log.Printf("error handling %s command: %v", cmd.Name, err)
		}
		e.Code, e.Error = protocol.CodeOf(err), err.Error()
	}
	d.finish(e)
	return e
}

// reported marks a handler error whose diagnostic the handler already logged.
type reported struct{ error }

func (r reported) Unwrap() error { return r.error }

// run invokes h and turns a panic into ErrHandlerFailure.
func (d *Dispatcher) run(h handlerFunc, cmd protocol.Command, rec *record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v: %w", cmd.Name, r, protocol.ErrHandlerFailure)
		}
	}()
	return h(&recorder{World: d.world, rec: rec}, cmd, rec)
}

func (d *Dispatcher) newEntry(tick uint64, remote string, raw []byte) protocol.CommandEntry {
	return protocol.CommandEntry{
		ID:     d.newID(),
		Tick:   tick,
		At:     d.now().UTC().Format(time.RFC3339Nano),
		Remote: remote,
		Raw:    string(raw),
		Params: []string{},
	}
}

func (d *Dispatcher) finish(e protocol.CommandEntry) {
	d.statsMu.Lock()
	d.stats.Total++
	if e.Name != "" {
		d.stats.ByName[e.Name]++
	}
	if e.Code != "" {
		d.stats.Failed++
		d.stats.ByCode[e.Code]++
	}
	d.statsMu.Unlock()

	d.sinksMu.RLock()
	sinks := d.sinks
	d.sinksMu.RUnlock()
	for _, s := range sinks {
		d.writeSink(s, e)
	}
}

func (d *Dispatcher) writeSink(s Sink, e protocol.CommandEntry) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Printf("command sink panicked: %v", r)
		}
	}()
	if err := s.WriteCommand(e); err != nil {
		d.log.Printf("command sink: %v", err)
	}
}

func (r *record) fill(e *protocol.CommandEntry) {
	e.Attempts = r.attempts
	e.Calls = append([]string(nil), r.calls...)
	if n := r.notification; n != nil {
		ne := &protocol.NotificationEntry{Title: n.Title, Body: n.Body, Severity: n.Severity.String()}
		if n.Focus != nil {
			f := n.Focus.ToArray()
			ne.Focus = &f
		}
		e.Notification = ne
	}
}

// Stats are cumulative dispatch counters.
type Stats struct {
	Total  uint64
	Failed uint64
	ByName map[string]uint64
	ByCode map[string]uint64
}

func (d *Dispatcher) Stats() Stats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	out := Stats{Total: d.stats.Total, Failed: d.stats.Failed, ByName: map[string]uint64{}, ByCode: map[string]uint64{}}
	for k, v := range d.stats.ByName {
		out.ByName[k] = v
	}
	for k, v := range d.stats.ByCode {
		out.ByCode[k] = v
	}
	return out
}
