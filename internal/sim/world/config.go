package world

type WorldConfig struct {
	ID         string
	TickRateHz int
	Seed       int64

	// Grid. A cell is blocked with probability BlockedPermille/1000.
	Width           int
	Height          int
	BlockedPermille int

	// Threat points grow linearly with ticks and colony size, capped at MaxThreatPoints.
	BaseThreatPoints    float64
	ThreatPointsPerTick float64
	MaxThreatPoints     float64

	// StartingColonists are spawned near the map center by New.
	StartingColonists int

	Pods PodConfig

	// MaxLetters bounds the retained letter history.
	MaxLetters int
}

type PodConfig struct {
	MinPods        int
	MaxPods        int
	MinStack       int
	MaxStack       int
	StackThreshold int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "colony_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 60
	}
	if c.Width <= 0 {
		c.Width = 250
	}
	if c.Height <= 0 {
		c.Height = 250
	}
	if c.BlockedPermille < 0 {
		c.BlockedPermille = 0
	}
	if c.BlockedPermille > 1000 {
		c.BlockedPermille = 1000
	}
	if c.BaseThreatPoints <= 0 {
		c.BaseThreatPoints = 35
	}
	if c.MaxThreatPoints <= 0 {
		c.MaxThreatPoints = 10000
	}
	if c.StartingColonists < 0 {
		c.StartingColonists = 0
	}
	if c.Pods.MinPods <= 0 {
		c.Pods.MinPods = 1
	}
	if c.Pods.MaxPods < c.Pods.MinPods {
		c.Pods.MaxPods = 6
	}
	if c.Pods.MinStack <= 0 {
		c.Pods.MinStack = 10
	}
	if c.Pods.MaxStack < c.Pods.MinStack {
		c.Pods.MaxStack = 75
	}
	if c.Pods.StackThreshold <= 0 {
		c.Pods.StackThreshold = 10
	}
	if c.MaxLetters <= 0 {
		c.MaxLetters = 256
	}
}
