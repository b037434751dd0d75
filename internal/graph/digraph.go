// Package graph builds prerequisite graphs for tasks and hideout levels and derives
// the per-node predecessor, successor and alternative relations.
//
// Builders never fail on inconsistent game data: dangling references are dropped,
// logged at warn level and recorded as diagnostics.
package graph

import "sort"

// Digraph is a directed graph over string ids with deduplicated edges.
// Adjacency lists keep insertion order so repeated builds are identical.
type Digraph struct {
	order []string
	nodes map[string]struct{}
	in    map[string][]string
	out   map[string][]string
	edges map[[2]string]struct{}
}

// NewDigraph returns an empty graph.
func NewDigraph() *Digraph {
	return &Digraph{
		nodes: make(map[string]struct{}),
		in:    make(map[string][]string),
		out:   make(map[string][]string),
		edges: make(map[[2]string]struct{}),
	}
}

// AddNode adds a node. It reports false if the node already existed.
func (g *Digraph) AddNode(id string) bool {
	if _, ok := g.nodes[id]; ok {
		return false
	}
	g.nodes[id] = struct{}{}
	g.order = append(g.order, id)
	return true
}

// HasNode reports whether id is a node of the graph.
func (g *Digraph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// AddEdge adds from -> to. Self loops, duplicates and edges touching unknown nodes
// are ignored; the return value reports whether an edge was added.
func (g *Digraph) AddEdge(from, to string) bool {
	if from == to || !g.HasNode(from) || !g.HasNode(to) {
		return false
	}
	key := [2]string{from, to}
	if _, ok := g.edges[key]; ok {
		return false
	}
	g.edges[key] = struct{}{}
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
	return true
}

// HasEdge reports whether from -> to exists.
func (g *Digraph) HasEdge(from, to string) bool {
	_, ok := g.edges[[2]string{from, to}]
	return ok
}

// Nodes returns node ids in insertion order.
func (g *Digraph) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Len returns the number of nodes.
func (g *Digraph) Len() int {
	return len(g.order)
}

// Predecessors returns the direct in-neighbours of id.
func (g *Digraph) Predecessors(id string) []string {
	return append([]string(nil), g.in[id]...)
}

// Successors returns the direct out-neighbours of id.
func (g *Digraph) Successors(id string) []string {
	return append([]string(nil), g.out[id]...)
}

// Roots returns nodes without predecessors, sorted.
func (g *Digraph) Roots() []string {
	var roots []string
	for _, id := range g.order {
		if len(g.in[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// Leaves returns nodes without successors, sorted.
func (g *Digraph) Leaves() []string {
	var leaves []string
	for _, id := range g.order {
		if len(g.out[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// Ancestors returns every node that transitively reaches id, sorted.
func (g *Digraph) Ancestors(id string) []string {
	return g.closure(id, g.in)
}

// Descendants returns every node transitively reachable from id, sorted.
func (g *Digraph) Descendants(id string) []string {
	return g.closure(id, g.out)
}

func (g *Digraph) closure(start string, adj map[string][]string) []string {
	if !g.HasNode(start) {
		return nil
	}
	seen := map[string]bool{start: true}
	stack := append([]string(nil), adj[start]...)
	var out []string
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		stack = append(stack, adj[cur]...)
	}
	sort.Strings(out)
	return out
}

// DetectCycle returns one cycle path (first node repeated at the end) or nil.
// DFS with white/gray/black coloring, roots visited in sorted order.
func (g *Digraph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int, len(g.order))
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range g.out[node] {
			if color[next] == gray {
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	ids := append([]string(nil), g.order...)
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
