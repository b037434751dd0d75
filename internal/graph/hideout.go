package graph

import (
	"encoding/json"
	"fmt"

	"github.com/metalagman/questgraph/internal/model"
)

// HideoutModule is a station level enriched with its graph neighbours.
type HideoutModule struct {
	model.HideoutLevel
	StationID    string   `json:"stationId"`
	Predecessors []string `json:"predecessors,omitempty"`
	Successors   []string `json:"successors,omitempty"`
}

// Parents is an alias of Predecessors.
func (m *HideoutModule) Parents() []string {
	return m.Predecessors
}

// Children is an alias of Successors.
func (m *HideoutModule) Children() []string {
	return m.Successors
}

// MarshalJSON emits parents and children next to predecessors and successors.
func (m HideoutModule) MarshalJSON() ([]byte, error) {
	type plain HideoutModule
	return json.Marshal(struct {
		plain
		Parents  []string `json:"parents,omitempty"`
		Children []string `json:"children,omitempty"`
	}{
		plain:    plain(m),
		Parents:  m.Predecessors,
		Children: m.Successors,
	})
}

type stationLevel struct {
	stationID string
	level     int
}

// HideoutGraph is the prerequisite graph between hideout station levels.
type HideoutGraph struct {
	graph       *Digraph
	modules     []HideoutModule
	index       map[string]int
	byLevel     map[stationLevel]string
	diagnostics []Diagnostic
}

// BuildHideout builds the hideout graph. Every station level requirement becomes a
// direct edge from the required level to the dependent level.
func BuildHideout(stations []model.HideoutStation, opts ...Option) *HideoutGraph {
	o := newOptions(opts)
	rep := &reporter{logger: o.logger}

	h := &HideoutGraph{
		graph:   NewDigraph(),
		index:   make(map[string]int),
		byLevel: make(map[stationLevel]string),
	}

	for _, station := range stations {
		for _, lvl := range station.Levels {
			if lvl.ID == "" {
				continue
			}
			if !h.graph.AddNode(lvl.ID) {
				rep.warn(Diagnostic{
					Kind:    DiagDuplicateID,
					NodeID:  lvl.ID,
					Message: "duplicate hideout level id, keeping the first definition",
				})
				continue
			}
			h.index[lvl.ID] = len(h.modules)
			h.modules = append(h.modules, HideoutModule{HideoutLevel: lvl, StationID: station.ID})
			h.byLevel[stationLevel{stationID: station.ID, level: lvl.Level}] = lvl.ID
		}
	}

	for i := range h.modules {
		m := &h.modules[i]
		for _, req := range m.StationLevelRequirements {
			reqID, ok := h.byLevel[stationLevel{stationID: req.StationID, level: req.Level}]
			if !ok {
				rep.warn(Diagnostic{
					Kind:    DiagMissingHideoutLevel,
					NodeID:  m.ID,
					Ref:     fmt.Sprintf("%s@%d", req.StationID, req.Level),
					Message: "station level requirement cannot be resolved, edge dropped",
				})
				continue
			}
			h.graph.AddEdge(reqID, m.ID)
		}
	}

	for i := range h.modules {
		m := &h.modules[i]
		m.Predecessors = h.graph.Predecessors(m.ID)
		m.Successors = h.graph.Successors(m.ID)
	}

	if cycle := h.graph.DetectCycle(); cycle != nil {
		rep.warn(Diagnostic{
			Kind:    DiagCycle,
			NodeID:  cycle[0],
			Path:    cycle,
			Message: "hideout level requirements form a cycle",
		})
	}

	h.diagnostics = rep.diags
	return h
}

// Modules returns the enriched modules in station order.
func (h *HideoutGraph) Modules() []HideoutModule {
	return h.modules
}

// Module returns the module with the given level id.
func (h *HideoutGraph) Module(id string) (*HideoutModule, bool) {
	i, ok := h.index[id]
	if !ok {
		return nil, false
	}
	return &h.modules[i], true
}

// ModuleAt returns the module for a station level.
func (h *HideoutGraph) ModuleAt(stationID string, level int) (*HideoutModule, bool) {
	id, ok := h.byLevel[stationLevel{stationID: stationID, level: level}]
	if !ok {
		return nil, false
	}
	return h.Module(id)
}

// Graph exposes the underlying digraph.
func (h *HideoutGraph) Graph() *Digraph {
	return h.graph
}

// Predecessors returns the levels directly required by a module.
func (h *HideoutGraph) Predecessors(id string) []string {
	return h.graph.Predecessors(id)
}

// Successors returns the levels directly unlocked by a module.
func (h *HideoutGraph) Successors(id string) []string {
	return h.graph.Successors(id)
}

// Diagnostics returns data-quality problems found while building.
func (h *HideoutGraph) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), h.diagnostics...)
}
