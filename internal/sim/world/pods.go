package world

import (
	"colonylink.ai/internal/sim/catalogs"
	"colonylink.ai/internal/sim/facade"
)

// DroppedStack is one pod's contents resting on the map.
type DroppedStack struct {
	Tick   uint64
	ItemID string
	Stuff  string
	Count  int
	Pos    facade.GridLocation
}

func toFacadeItem(def catalogs.ItemDef) facade.ItemDef {
	return facade.ItemDef{
		ID:              def.ID,
		Haulable:        def.Haulable,
		Blueprint:       def.Blueprint,
		Frame:           def.Frame,
		StackLimit:      def.StackLimit,
		StuffCategories: append([]string(nil), def.StuffCategories...),
		MadeFromStuff:   def.MadeFromStuff,
		StuffProps:      append([]string(nil), def.StuffProps...),
	}
}

func (w *World) ItemDef(id string) (facade.ItemDef, bool) {
	def, ok := w.catalogs.Items.ByID[id]
	if !ok {
		return facade.ItemDef{}, false
	}
	return toFacadeItem(def), true
}

// HaulableItems lists haulable ITEM defs that are neither blueprints nor frames.
func (w *World) HaulableItems() []facade.ItemDef {
	var out []facade.ItemDef
	for _, id := range w.catalogs.Items.IDs {
		def := w.catalogs.Items.ByID[id]
		if def.Category != "ITEM" || !def.Haulable || def.Blueprint || def.Frame {
			continue
		}
		out = append(out, toFacadeItem(def))
	}
	return out
}

// DropItemPods drops a random number of pods of itemID around at and returns how
// many landed. Stuffed items get a random stuff whose categories overlap the item's.
func (w *World) DropItemPods(itemID string, at facade.GridLocation) int {
	def, ok := w.catalogs.Items.ByID[itemID]
	if !ok {
		return 0
	}
	pc := w.cfg.Pods
	count := pc.MinPods + w.rng.Intn(pc.MaxPods-pc.MinPods+1)

	var stuffs []string
	if def.MadeFromStuff {
		for _, id := range w.catalogs.Items.IDs {
			s := w.catalogs.Items.ByID[id]
			if len(s.StuffProps) > 0 && overlaps(def.StuffCategories, s.StuffProps) {
				stuffs = append(stuffs, s.ID)
			}
		}
	}

	tick := w.tick.Load()
	for i := 0; i < count; i++ {
		stack := DroppedStack{Tick: tick, ItemID: def.ID, Pos: at}
		if len(stuffs) > 0 {
			stack.Stuff = stuffs[w.rng.Intn(len(stuffs))]
		}
		if def.StackLimit > pc.StackThreshold {
			stack.Count = pc.MinStack + w.rng.Intn(pc.MaxStack-pc.MinStack+1)
		} else {
			stack.Count = def.StackLimit
		}
		if loc, ok := w.nearestStandable(facade.GridLocation{X: at.X + w.rng.Intn(7) - 3, Z: at.Z + w.rng.Intn(7) - 3}, 4); ok {
			stack.Pos = loc
		}
		w.drops = append(w.drops, stack)
	}
	return count
}

func (w *World) Drops() []DroppedStack {
	return append([]DroppedStack(nil), w.drops...)
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		if containsString(b, x) {
			return true
		}
	}
	return false
}
