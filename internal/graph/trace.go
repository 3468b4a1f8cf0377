package graph

import (
	"sort"

	"cim/internal/model"
)

// TraceNode is a node discovered by a trace, annotated with its hop count
// from the root and the edge that first reached it. The root carries no
// edge attributes.
type TraceNode struct {
	Path       string         `json:"path"`
	Depth      int            `json:"depth"`
	EdgeKind   model.EdgeKind `json:"edgeKind,omitempty"`
	EdgeWeight model.Weight   `json:"edgeWeight,omitempty"`
}

// TraceResult is the discovered node set plus every edge among the visited
// nodes that passes the kind filter, not just the BFS tree edges, so that
// cross-links between visited nodes are preserved.
type TraceResult struct {
	Nodes []TraceNode  `json:"nodes"`
	Edges []model.Edge `json:"edges"`
}

// Trace runs a breadth-first traversal from root. Each node is visited at
// most once; BFS guarantees the first discovery is the shallowest, so a
// node's recorded depth is its true shortest distance from the root.
// depth = 0 returns only the root with no edges. Cycles are handled by the
// visited-set check.
func (g *Graph) Trace(root string, dir Direction, kinds []model.EdgeKind, depth int) *TraceResult {
	visited := map[string]TraceNode{
		root: {Path: root, Depth: 0},
	}

	frontier := []string{root}
	for d := 1; d <= depth && len(frontier) > 0; d++ {
		var next []string
		for _, path := range frontier {
			for _, he := range g.Neighbors(path, dir, kinds) {
				if _, seen := visited[he.Neighbor]; seen {
					continue
				}
				visited[he.Neighbor] = TraceNode{
					Path:       he.Neighbor,
					Depth:      d,
					EdgeKind:   he.Kind,
					EdgeWeight: he.Weight,
				}
				next = append(next, he.Neighbor)
			}
		}
		frontier = next
	}

	result := &TraceResult{
		Nodes: make([]TraceNode, 0, len(visited)),
		Edges: g.inducedEdges(visited, kinds),
	}
	for _, n := range visited {
		result.Nodes = append(result.Nodes, n)
	}
	sort.Slice(result.Nodes, func(i, j int) bool {
		if result.Nodes[i].Depth != result.Nodes[j].Depth {
			return result.Nodes[i].Depth < result.Nodes[j].Depth
		}
		return result.Nodes[i].Path < result.Nodes[j].Path
	})

	return result
}

// inducedEdges collects every edge whose endpoints were both visited and
// whose kind passes the filter. depth = 0 yields no edges because only the
// root is visited and self-edges do not occur in well-formed models.
func (g *Graph) inducedEdges(visited map[string]TraceNode, kinds []model.EdgeKind) []model.Edge {
	if len(visited) < 2 {
		return []model.Edge{}
	}

	kindSet := make(map[model.EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		kindSet[k] = true
	}

	edges := make([]model.Edge, 0)
	for _, e := range g.edges {
		if len(kindSet) > 0 && !kindSet[e.Kind] {
			continue
		}
		if _, ok := visited[e.From]; !ok {
			continue
		}
		if _, ok := visited[e.To]; !ok {
			continue
		}
		edges = append(edges, e)
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].Kind < edges[j].Kind
	})

	return edges
}
