package worldtest

import (
	"sort"
	"testing"

	"colonylink.ai/internal/sim/catalogs"
	"colonylink.ai/internal/sim/facade"
	world "colonylink.ai/internal/sim/world"
)

// NewWorld builds a real world from the repository catalogs. configDir is relative to
// the calling package, usually "../../configs" or "../../../configs".
func NewWorld(t *testing.T, configDir string, cfg world.WorldConfig) *world.World {
	t.Helper()
	cats, err := catalogs.Load(configDir)
	if err != nil {
		t.Fatalf("catalogs.Load: %v", err)
	}
	w, err := world.New(cfg, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func sortedItemIDs(m map[string]facade.ItemDef) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
