package selection

import (
	"fmt"

	"colonylink.ai/internal/protocol"
	"colonylink.ai/internal/sim/facade"
)

// DefaultLocationAttempts caps the standable-cell search. A map with no standable
// cell fails with protocol.ErrNoValidLocation instead of spinning forever.
const DefaultLocationAttempts = 10000

// Intn is the slice of *rand.Rand the location search needs.
type Intn interface {
	Intn(n int) int
}

// Grid is the map the search runs against.
type Grid interface {
	MapSize() (width, height int)
	InBounds(loc facade.GridLocation) bool
	Standable(loc facade.GridLocation) bool
}

// PickLocation draws uniform cells in [0,w)x[0,h) until one is in bounds and standable.
// maxAttempts <= 0 uses DefaultLocationAttempts. The second result is the number of
// draws made.
func PickLocation(g Grid, rng Intn, maxAttempts int) (facade.GridLocation, int, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultLocationAttempts
	}
	w, h := g.MapSize()
	if w <= 0 || h <= 0 {
		return facade.GridLocation{}, 0, fmt.Errorf("map %dx%d: %w", w, h, protocol.ErrNoValidLocation)
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		loc := facade.GridLocation{X: rng.Intn(w), Z: rng.Intn(h)}
		if g.InBounds(loc) && g.Standable(loc) {
			return loc, attempt, nil
		}
	}
	return facade.GridLocation{}, maxAttempts, fmt.Errorf("after %d draws on %dx%d map: %w", maxAttempts, w, h, protocol.ErrNoValidLocation)
}
