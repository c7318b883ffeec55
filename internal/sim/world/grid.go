package world

import (
	"colonylink.ai/internal/sim/encoding"
	"colonylink.ai/internal/sim/facade"
)

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// generateGrid marks cells blocked (rock, water) deterministically from seed.
// The 3x3 block around the map center is always open so colonists have room to land.
func generateGrid(seed int64, width, height, blockedPermille int) []bool {
	g := make([]bool, width*height)
	cx, cz := width/2, height/2
	for z := 0; z < height; z++ {
		for x := 0; x < width; x++ {
			if absInt(x-cx) <= 1 && absInt(z-cz) <= 1 {
				continue
			}
			g[z*width+x] = int(hash2(seed, x, z)%1000) < blockedPermille
		}
	}
	return g
}

func (w *World) MapSize() (int, int) { return w.cfg.Width, w.cfg.Height }

func (w *World) InBounds(loc facade.GridLocation) bool {
	return loc.X >= 0 && loc.Z >= 0 && loc.X < w.cfg.Width && loc.Z < w.cfg.Height
}

// Standable reports an in-bounds, unblocked cell with no living pawn on it.
func (w *World) Standable(loc facade.GridLocation) bool {
	if !w.InBounds(loc) || w.grid[loc.Z*w.cfg.Width+loc.X] {
		return false
	}
	for _, p := range w.pawns {
		if !p.dead && !p.left && p.pawn.Pos == loc {
			return false
		}
	}
	return true
}

// SetBlocked overrides a single cell and republishes the terrain mask. Tests use it to
// shape the map.
func (w *World) SetBlocked(loc facade.GridLocation, blocked bool) {
	if !w.InBounds(loc) {
		return
	}
	w.grid[loc.Z*w.cfg.Width+loc.X] = blocked
	w.publishTerrain()
}

func (w *World) publishTerrain() {
	w.terrain.Store(encoding.EncodeGrid(w.grid))
}

// TerrainRLE is the run-length encoded blocked mask (see encoding.DecodeRLE). Safe to
// call from any goroutine.
func (w *World) TerrainRLE() string {
	s, _ := w.terrain.Load().(string)
	return s
}

func (w *World) center() facade.GridLocation {
	return facade.GridLocation{X: w.cfg.Width / 2, Z: w.cfg.Height / 2}
}

// nearestStandable scans rings around origin out to maxRadius.
func (w *World) nearestStandable(origin facade.GridLocation, maxRadius int) (facade.GridLocation, bool) {
	if w.Standable(origin) {
		return origin, true
	}
	for r := 1; r <= maxRadius; r++ {
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				if absInt(dx) != r && absInt(dz) != r {
					continue
				}
				loc := facade.GridLocation{X: origin.X + dx, Z: origin.Z + dz}
				if w.Standable(loc) {
					return loc, true
				}
			}
		}
	}
	return facade.GridLocation{}, false
}

// randomEdgeCell draws standable cells on the map border.
func (w *World) randomEdgeCell() (facade.GridLocation, bool) {
	for i := 0; i < 256; i++ {
		var loc facade.GridLocation
		switch w.rng.Intn(4) {
		case 0:
			loc = facade.GridLocation{X: w.rng.Intn(w.cfg.Width), Z: 0}
		case 1:
			loc = facade.GridLocation{X: w.rng.Intn(w.cfg.Width), Z: w.cfg.Height - 1}
		case 2:
			loc = facade.GridLocation{X: 0, Z: w.rng.Intn(w.cfg.Height)}
		default:
			loc = facade.GridLocation{X: w.cfg.Width - 1, Z: w.rng.Intn(w.cfg.Height)}
		}
		if w.Standable(loc) {
			return loc, true
		}
	}
	return facade.GridLocation{}, false
}

func (w *World) onEdge(loc facade.GridLocation) bool {
	return loc.X == 0 || loc.Z == 0 || loc.X == w.cfg.Width-1 || loc.Z == w.cfg.Height-1
}

// stepToward moves one cell toward target, sidestepping a blocked diagonal.
func (w *World) stepToward(from, target facade.GridLocation) facade.GridLocation {
	dx, dz := sign(target.X-from.X), sign(target.Z-from.Z)
	candidates := []facade.GridLocation{
		{X: from.X + dx, Z: from.Z + dz},
		{X: from.X + dx, Z: from.Z},
		{X: from.X, Z: from.Z + dz},
	}
	for _, c := range candidates {
		if c != from && w.Standable(c) {
			return c
		}
	}
	return from
}

// nearestEdgeTarget is the closest border cell straight out from loc.
func (w *World) nearestEdgeTarget(loc facade.GridLocation) facade.GridLocation {
	best := facade.GridLocation{X: 0, Z: loc.Z}
	bestD := loc.X
	if d := w.cfg.Width - 1 - loc.X; d < bestD {
		best, bestD = facade.GridLocation{X: w.cfg.Width - 1, Z: loc.Z}, d
	}
	if d := loc.Z; d < bestD {
		best, bestD = facade.GridLocation{X: loc.X, Z: 0}, d
	}
	if d := w.cfg.Height - 1 - loc.Z; d < bestD {
		best = facade.GridLocation{X: loc.X, Z: w.cfg.Height - 1}
	}
	return best
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
