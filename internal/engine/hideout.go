package engine

import (
	"github.com/metalagman/questgraph/internal/graph"
)

// HideoutAvailability reports for every module whether the member can build it now:
// it is not built yet, the previous level of its station is built, every required
// station level is built and every trader requirement is met.
func HideoutAvailability(h *graph.HideoutGraph, m *Member) map[string]bool {
	modules := h.Modules()
	out := make(map[string]bool, len(modules))
	for i := range modules {
		out[modules[i].ID] = moduleAvailable(h, &modules[i], m)
	}
	return out
}

func moduleAvailable(h *graph.HideoutGraph, mod *graph.HideoutModule, m *Member) bool {
	if m.built(mod.ID) {
		return false
	}
	if prev, ok := h.ModuleAt(mod.StationID, mod.Level-1); ok && !m.built(prev.ID) {
		return false
	}
	for _, pred := range mod.Predecessors {
		if !m.built(pred) {
			return false
		}
	}
	for _, tr := range mod.TraderRequirements {
		if m.traderLevel(tr.TraderID) < tr.Level {
			return false
		}
	}
	return true
}
