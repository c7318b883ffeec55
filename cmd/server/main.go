package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"colonylink.ai/internal/control"
	persistlog "colonylink.ai/internal/persistence/log"
	"colonylink.ai/internal/sim/catalogs"
	"colonylink.ai/internal/sim/tuning"
	"colonylink.ai/internal/sim/world"
	"colonylink.ai/internal/transport/observer"
	"colonylink.ai/internal/transport/tcp"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8080", "http listen address (health, metrics, admin)")
		colonyID   = flag.String("colony", "colony_1", "colony id")
		listen     = flag.String("listen", "", "command socket address (default: listener.addr from tuning)")
		seed       = flag.Int64("seed", 0, "world seed (0 = seed from tuning)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the command index (catalogs + commands + notifications)")
	)
	flag.Parse()

	logger := newLogger("server")

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
		if err := tuning.ApplyEnv(&tune); err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
	}
	if *seed != 0 {
		tune.Seed = *seed
	}
	if s := strings.TrimSpace(*listen); s != "" {
		tune.Listener.Addr = s
	}

	colonyDir := filepath.Join(*dataDir, "colonies", *colonyID)
	_ = os.MkdirAll(colonyDir, 0o755)

	w, err := world.New(worldConfigFromTuning(*colonyID, tune), cats)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	logger.Printf("colony=%s map=%dx%d seed=%d tick_rate=%d", *colonyID, tune.MapWidth, tune.MapHeight, tune.Seed, tune.TickRateHz)

	// Optional: read-model index backend (does not affect the simulation).
	idx, err := openRuntimeIndex(colonyDir, *colonyID, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	cmdLog := persistlog.NewCommandLogger(colonyDir)
	defer cmdLog.Close()

	disp := control.NewDispatcher(w, dispatcherConfigFromTuning(tune), w.Rand(), newLogger("dispatch"))
	disp.AddSink(cmdLog)
	if idx != nil {
		disp.AddSink(idx)
	}

	// A bind failure disables remote control; the simulation keeps running.
	ln, err := tcp.Start(tcp.Config{
		Addr:              tune.Listener.Addr,
		ReceiveBufferSize: tune.Listener.ReceiveBufferSize,
		AcceptWindow:      tune.Listener.AcceptWindow(),
		ReadTimeout:       tune.Listener.ReadTimeout(),
	}, newLogger("listener"))
	if err != nil {
		logger.Printf("remote control disabled: %v", err)
	} else {
		defer ln.Close()
		w.OnTick(control.NewReceiver(ln, disp).Tick)
	}

	enableAdminHTTP := envBool("CL_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	var obs *observer.Server
	if enableAdminHTTP {
		obs = observer.NewServer(w, disp.Commands(), newLogger("observer"))
		disp.AddSink(obs)
	}

	ctx, cancel := signalContext()
	defer cancel()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	a := &app{
		colonyID:    *colonyID,
		world:       w,
		disp:        disp,
		idx:         idx,
		obs:         obs,
		enableAdmin: enableAdminHTTP,
		enablePprof: envBool("CL_ENABLE_PPROF_HTTP", false),
		log:         logger,
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
		cancel()
	}
	<-worldDone
	logger.Printf("shutdown complete tick=%d commands=%d", w.CurrentTick(), disp.Stats().Total)
}

func newLogger(component string) *log.Logger {
	return log.New(os.Stdout, "["+component+"] ", log.LstdFlags|log.Lmicroseconds)
}

func worldConfigFromTuning(id string, tune tuning.Tuning) world.WorldConfig {
	return world.WorldConfig{
		ID:                  id,
		TickRateHz:          tune.TickRateHz,
		Seed:                tune.Seed,
		Width:               tune.MapWidth,
		Height:              tune.MapHeight,
		BlockedPermille:     tune.BlockedPermille,
		BaseThreatPoints:    tune.Raid.BaseThreatPoints,
		ThreatPointsPerTick: tune.Raid.ThreatPointsPerTick,
		MaxThreatPoints:     tune.Raid.MaxThreatPoints,
		StartingColonists:   tune.StartingColonists,
		Pods: world.PodConfig{
			MinPods:        tune.Pods.MinPods,
			MaxPods:        tune.Pods.MaxPods,
			MinStack:       tune.Pods.MinStack,
			MaxStack:       tune.Pods.MaxStack,
			StackThreshold: tune.Pods.StackThreshold,
		},
	}
}

func dispatcherConfigFromTuning(tune tuning.Tuning) control.Config {
	return control.Config{
		FactionAttempts:  tune.Raid.FactionAttempts,
		LocationAttempts: tune.Location.MaxAttempts,
		ExplosionRadius:  tune.Explosion.Radius,
		ExplosionDamage:  tune.Explosion.DamageType,
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
