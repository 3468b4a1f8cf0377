// Package graph wraps the model's dependency edges as an in-memory directed
// multigraph with adjacency lists in both directions.
package graph

import (
	"sort"

	"cim/internal/model"
)

// Direction selects which adjacency to walk
type Direction string

const (
	DirForward  Direction = "forward"
	DirBackward Direction = "backward"
	DirBoth     Direction = "both"
)

// ParseDirection normalizes a direction string, accepting the deps-command
// aliases incoming/outgoing.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "", "forward", "outgoing":
		return DirForward, true
	case "backward", "incoming":
		return DirBackward, true
	case "both":
		return DirBoth, true
	}
	return "", false
}

// HalfEdge is one adjacency entry: the edge attributes plus the neighbor
// it leads to.
type HalfEdge struct {
	Kind     model.EdgeKind
	Weight   model.Weight
	Intent   string
	Neighbor string
}

// Graph holds adjacency lists keyed by artifact path
type Graph struct {
	outgoing map[string][]HalfEdge
	incoming map[string][]HalfEdge
	edges    []model.Edge
}

// New builds the graph from the model's edge list. Entries are sorted by
// neighbor path so traversals are deterministic.
func New(m *model.Model) *Graph {
	g := &Graph{
		outgoing: make(map[string][]HalfEdge),
		incoming: make(map[string][]HalfEdge),
		edges:    m.Edges,
	}

	for _, e := range m.Edges {
		g.outgoing[e.From] = append(g.outgoing[e.From], HalfEdge{
			Kind: e.Kind, Weight: e.Weight, Intent: e.Intent, Neighbor: e.To,
		})
		g.incoming[e.To] = append(g.incoming[e.To], HalfEdge{
			Kind: e.Kind, Weight: e.Weight, Intent: e.Intent, Neighbor: e.From,
		})
	}

	for _, adj := range g.outgoing {
		sortHalfEdges(adj)
	}
	for _, adj := range g.incoming {
		sortHalfEdges(adj)
	}

	return g
}

func sortHalfEdges(adj []HalfEdge) {
	sort.Slice(adj, func(i, j int) bool {
		if adj[i].Neighbor != adj[j].Neighbor {
			return adj[i].Neighbor < adj[j].Neighbor
		}
		return adj[i].Kind < adj[j].Kind
	})
}

// Neighbors returns the adjacency entries for path in the given direction,
// filtered to the edge kinds in kinds (nil or empty means all kinds).
func (g *Graph) Neighbors(path string, dir Direction, kinds []model.EdgeKind) []HalfEdge {
	var out []HalfEdge
	if dir == DirForward || dir == DirBoth {
		out = appendFiltered(out, g.outgoing[path], kinds)
	}
	if dir == DirBackward || dir == DirBoth {
		out = appendFiltered(out, g.incoming[path], kinds)
	}
	return out
}

// Outgoing returns the outgoing adjacency for path
func (g *Graph) Outgoing(path string) []HalfEdge {
	return g.outgoing[path]
}

// Incoming returns the incoming adjacency for path
func (g *Graph) Incoming(path string) []HalfEdge {
	return g.incoming[path]
}

// Degree returns the incoming and outgoing edge counts for path
func (g *Graph) Degree(path string) (in, out int) {
	return len(g.incoming[path]), len(g.outgoing[path])
}

// Edges returns the full edge list
func (g *Graph) Edges() []model.Edge {
	return g.edges
}

func appendFiltered(dst, src []HalfEdge, kinds []model.EdgeKind) []HalfEdge {
	if len(kinds) == 0 {
		return append(dst, src...)
	}
	for _, he := range src {
		for _, k := range kinds {
			if he.Kind == k {
				dst = append(dst, he)
				break
			}
		}
	}
	return dst
}
