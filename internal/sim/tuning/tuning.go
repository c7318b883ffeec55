package tuning

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz      int   `yaml:"tick_rate_hz" env:"COLONYLINK_TICK_RATE_HZ"`
	MapWidth        int   `yaml:"map_width"`
	MapHeight       int   `yaml:"map_height"`
	BlockedPermille int   `yaml:"blocked_permille"`
	Seed            int64 `yaml:"seed" env:"COLONYLINK_SEED"`

	StartingColonists int `yaml:"starting_colonists"`

	Listener  Listener  `yaml:"listener"`
	Raid      Raid      `yaml:"raid"`
	Location  Location  `yaml:"location"`
	Explosion Explosion `yaml:"explosion"`
	Pods      Pods      `yaml:"pods"`
}

type Listener struct {
	Addr              string `yaml:"addr" env:"COLONYLINK_LISTEN_ADDR"`
	ReceiveBufferSize int    `yaml:"receive_buffer_size" env:"COLONYLINK_RECEIVE_BUFFER_SIZE"`
	AcceptWindowMs    int    `yaml:"accept_window_ms" env:"COLONYLINK_ACCEPT_WINDOW_MS"`
	// ReadTimeoutMs bounds the single payload read. Zero keeps the read fully blocking.
	ReadTimeoutMs int `yaml:"read_timeout_ms" env:"COLONYLINK_READ_TIMEOUT_MS"`
}

func (l Listener) AcceptWindow() time.Duration {
	return time.Duration(l.AcceptWindowMs) * time.Millisecond
}

func (l Listener) ReadTimeout() time.Duration {
	return time.Duration(l.ReadTimeoutMs) * time.Millisecond
}

type Raid struct {
	FactionAttempts     int     `yaml:"faction_attempts" env:"COLONYLINK_FACTION_ATTEMPTS"`
	BaseThreatPoints    float64 `yaml:"base_threat_points"`
	ThreatPointsPerTick float64 `yaml:"threat_points_per_tick"`
	MaxThreatPoints     float64 `yaml:"max_threat_points"`
}

type Location struct {
	MaxAttempts int `yaml:"max_attempts" env:"COLONYLINK_LOCATION_ATTEMPTS"`
}

type Explosion struct {
	Radius     float64 `yaml:"radius"`
	DamageType string  `yaml:"damage_type"`
}

type Pods struct {
	MinPods        int `yaml:"min_pods"`
	MaxPods        int `yaml:"max_pods"`
	MinStack       int `yaml:"min_stack"`
	MaxStack       int `yaml:"max_stack"`
	StackThreshold int `yaml:"stack_threshold"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      60,
		MapWidth:        250,
		MapHeight:       250,
		BlockedPermille: 180,
		Seed:            1337,

		StartingColonists: 3,
		Listener: Listener{
			Addr:              ":12345",
			ReceiveBufferSize: 8192,
			AcceptWindowMs:    1,
		},
		Raid: Raid{
			FactionAttempts:     100,
			BaseThreatPoints:    35,
			ThreatPointsPerTick: 0.01,
			MaxThreatPoints:     10000,
		},
		Location:  Location{MaxAttempts: 10000},
		Explosion: Explosion{Radius: 4.9, DamageType: "Bomb"},
		Pods: Pods{
			MinPods:        1,
			MaxPods:        6,
			MinStack:       10,
			MaxStack:       75,
			StackThreshold: 10,
		},
	}
}

// Load reads tuning.yaml on top of Defaults and then applies COLONYLINK_* environment
// overrides.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := ApplyEnv(&t); err != nil {
		return t, err
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// ApplyEnv overlays set environment variables; unset ones leave t untouched.
func ApplyEnv(t *Tuning) error {
	if err := env.Parse(t); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be > 0")
	case t.MapWidth <= 0 || t.MapHeight <= 0:
		return fmt.Errorf("map size must be positive, got %dx%d", t.MapWidth, t.MapHeight)
	case t.BlockedPermille < 0 || t.BlockedPermille > 1000:
		return fmt.Errorf("blocked_permille out of range: %d", t.BlockedPermille)
	case t.StartingColonists < 0:
		return fmt.Errorf("starting_colonists must be >= 0")
	case t.Listener.Addr == "":
		return fmt.Errorf("listener.addr is empty")
	case t.Listener.ReceiveBufferSize <= 0:
		return fmt.Errorf("listener.receive_buffer_size must be > 0")
	case t.Listener.AcceptWindowMs <= 0:
		return fmt.Errorf("listener.accept_window_ms must be > 0")
	case t.Listener.ReadTimeoutMs < 0:
		return fmt.Errorf("listener.read_timeout_ms must be >= 0")
	case t.Raid.FactionAttempts <= 0:
		return fmt.Errorf("raid.faction_attempts must be > 0")
	case t.Location.MaxAttempts <= 0:
		return fmt.Errorf("location.max_attempts must be > 0")
	case t.Pods.MinPods <= 0 || t.Pods.MaxPods < t.Pods.MinPods:
		return fmt.Errorf("pods range invalid: %d..%d", t.Pods.MinPods, t.Pods.MaxPods)
	case t.Pods.MinStack <= 0 || t.Pods.MaxStack < t.Pods.MinStack:
		return fmt.Errorf("pods stack range invalid: %d..%d", t.Pods.MinStack, t.Pods.MaxStack)
	}
	return nil
}
