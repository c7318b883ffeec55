package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"sort"
	"strings"

	"colonylink.ai/internal/control"
	"colonylink.ai/internal/persistence/indexdb"
	"colonylink.ai/internal/protocol"
	"colonylink.ai/internal/sim/world"
	"colonylink.ai/internal/transport/observer"
)

// stateLetters is how many recent letters /admin/v1/state returns.
const stateLetters = 20

type app struct {
	colonyID string
	world    *world.World
	disp     *control.Dispatcher
	idx      runtimeIndex
	obs      *observer.Server

	enableAdmin bool
	enablePprof bool
	log         *log.Logger
}

type stateResponse struct {
	ColonyID string                       `json:"colony_id"`
	Tick     uint64                       `json:"tick"`
	Paused   bool                         `json:"paused"`
	Metrics  world.WorldMetrics           `json:"metrics"`
	Commands control.Stats                `json:"commands"`
	Letters  []protocol.NotificationEntry `json:"letters"`
}

func (a *app) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		a.writeMetrics(rw)
	})

	if a.enableAdmin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", a.handleState)
		mux.HandleFunc("/admin/v1/resume", a.handleResume)
		if a.obs != nil {
			mux.HandleFunc("/admin/v1/observer/bootstrap", a.obs.BootstrapHandler())
			mux.HandleFunc("/admin/v1/commands/ws", a.obs.WSHandler())
		}
	} else if a.log != nil {
		a.log.Printf("admin endpoints disabled (CL_ENABLE_ADMIN_HTTP=false)")
	}
	if a.enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

func (a *app) handleState(rw http.ResponseWriter, r *http.Request) {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	letters := a.world.Letters()
	if len(letters) > stateLetters {
		letters = letters[len(letters)-stateLetters:]
	}
	resp := stateResponse{
		ColonyID: a.colonyID,
		Tick:     a.world.CurrentTick(),
		Paused:   a.world.Paused(),
		Metrics:  a.world.Metrics(),
		Commands: a.disp.Stats(),
		Letters:  make([]protocol.NotificationEntry, 0, len(letters)),
	}
	for _, n := range letters {
		ne := protocol.NotificationEntry{Title: n.Title, Body: n.Body, Severity: n.Severity.String()}
		if n.Focus != nil {
			f := n.Focus.ToArray()
			ne.Focus = &f
		}
		resp.Letters = append(resp.Letters, ne)
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(resp)
}

// handleResume clears the pause a big-threat letter set.
func (a *app) handleResume(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	wasPaused := a.world.Paused()
	a.world.Resume()
	if a.log != nil && wasPaused {
		a.log.Printf("resumed by admin at tick=%d", a.world.CurrentTick())
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "was_paused": wasPaused, "tick": a.world.CurrentTick()})
}

// writeMetrics renders the minimal Prometheus exposition format.
func (a *app) writeMetrics(rw io.Writer) {
	m := a.world.Metrics()
	tick := a.world.CurrentTick()
	if m.Tick != 0 {
		tick = m.Tick
	}
	c := a.colonyID

	gauge := func(name, help string) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
	}
	counter := func(name, help string) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s counter\n", name)
	}

	gauge("colonylink_world_tick", "Current world tick.")
	fmt.Fprintf(rw, "colonylink_world_tick{colony=%q} %d\n", c, tick)

	gauge("colonylink_world_paused", "1 while a big-threat letter holds the simulation.")
	fmt.Fprintf(rw, "colonylink_world_paused{colony=%q} %d\n", c, boolInt(m.Paused))

	gauge("colonylink_world_pawns", "Pawns on the map by kind.")
	fmt.Fprintf(rw, "colonylink_world_pawns{colony=%q,kind=%q} %d\n", c, "colonist", m.Colonists)
	fmt.Fprintf(rw, "colonylink_world_pawns{colony=%q,kind=%q} %d\n", c, "hostile", m.Hostiles)
	fmt.Fprintf(rw, "colonylink_world_pawns{colony=%q,kind=%q} %d\n", c, "corpse", m.Corpses)

	gauge("colonylink_world_lords", "Active hostile groups.")
	fmt.Fprintf(rw, "colonylink_world_lords{colony=%q,state=%q} %d\n", c, "active", m.Lords)
	fmt.Fprintf(rw, "colonylink_world_lords{colony=%q,state=%q} %d\n", c, "fleeing", m.Fleeing)

	gauge("colonylink_world_threat_points", "Default raid points at the current tick.")
	fmt.Fprintf(rw, "colonylink_world_threat_points{colony=%q} %.3f\n", c, m.ThreatPoints)

	gauge("colonylink_world_letters", "Retained letters.")
	fmt.Fprintf(rw, "colonylink_world_letters{colony=%q} %d\n", c, m.Letters)

	gauge("colonylink_world_step_ms", "Last tick step duration in milliseconds.")
	fmt.Fprintf(rw, "colonylink_world_step_ms{colony=%q} %.3f\n", c, m.StepMS)

	if a.disp != nil {
		st := a.disp.Stats()
		counter("colonylink_commands_total", "Commands received by name.")
		for _, name := range sortedKeys(st.ByName) {
			fmt.Fprintf(rw, "colonylink_commands_total{colony=%q,name=%q} %d\n", c, name, st.ByName[name])
		}
		counter("colonylink_command_failures_total", "Commands that recorded an error code.")
		for _, code := range sortedKeys(st.ByCode) {
			fmt.Fprintf(rw, "colonylink_command_failures_total{colony=%q,code=%q} %d\n", c, code, st.ByCode[code])
		}
	}

	switch idx := a.idx.(type) {
	case *indexdb.SQLiteIndex:
		s := idx.Stats()
		gauge("colonylink_index_queue_depth", "Index writer queue depth.")
		fmt.Fprintf(rw, "colonylink_index_queue_depth{backend=%q} %d\n", "sqlite", s.QueueDepth)
		counter("colonylink_index_written_total", "Entries committed to the index.")
		fmt.Fprintf(rw, "colonylink_index_written_total{backend=%q} %d\n", "sqlite", s.WrittenTotal)
		counter("colonylink_index_dropped_total", "Entries dropped because the queue was full.")
		fmt.Fprintf(rw, "colonylink_index_dropped_total{backend=%q} %d\n", "sqlite", s.DropTotal)
	case *indexdb.IngestIndex:
		s := idx.Stats()
		gauge("colonylink_index_queue_depth", "Index writer queue depth.")
		fmt.Fprintf(rw, "colonylink_index_queue_depth{backend=%q} %d\n", "ingest", s.QueueDepth)
		counter("colonylink_index_written_total", "Entries committed to the index.")
		fmt.Fprintf(rw, "colonylink_index_written_total{backend=%q} %d\n", "ingest", s.SentTotal)
		counter("colonylink_index_dropped_total", "Entries dropped because the queue was full.")
		fmt.Fprintf(rw, "colonylink_index_dropped_total{backend=%q} %d\n", "ingest", s.QueueDroppedTotal+s.RetainDropTotal)
		counter("colonylink_index_flush_fail_total", "Failed ingest flushes.")
		fmt.Fprintf(rw, "colonylink_index_flush_fail_total{backend=%q} %d\n", "ingest", s.FlushFailTotal)
	}

	if a.obs != nil {
		s := a.obs.Stats()
		gauge("colonylink_observer_subscribers", "Connected command feed observers.")
		fmt.Fprintf(rw, "colonylink_observer_subscribers %d\n", s.Subscribers)
		counter("colonylink_observer_dropped_total", "Feed messages dropped for slow observers.")
		fmt.Fprintf(rw, "colonylink_observer_dropped_total %d\n", s.DropTotal)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sortedKeys(m map[string]uint64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
