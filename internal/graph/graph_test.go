package graph

import (
	"testing"

	"cim/internal/model"
)

func testModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.FromInstance(&model.Instance{
		Artifacts: []model.Artifact{
			{Path: "main", Kind: model.KindModule, Summary: "entry"},
			{Path: "pluginLoader", Kind: model.KindModule, Summary: "loads plugins"},
			{Path: "pluginManager", Kind: model.KindModule, Summary: "manages plugins"},
			{Path: "config", Kind: model.KindConfig, Summary: "settings"},
			{Path: "orphan", Kind: model.KindModule, Summary: "nothing links here"},
		},
		Dependencies: []model.Edge{
			{From: "main", To: "pluginLoader", Kind: model.EdgeImports, Weight: model.WeightCritical},
			{From: "pluginLoader", To: "pluginManager", Kind: model.EdgeImports, Weight: model.WeightCritical},
			{From: "config", To: "pluginManager", Kind: model.EdgeConfigures, Weight: model.WeightWeak},
			{From: "pluginManager", To: "main", Kind: model.EdgeCalls, Weight: model.WeightWeak},
		},
	})
	if err != nil {
		t.Fatalf("FromInstance failed: %v", err)
	}
	return m
}

func TestNeighbors(t *testing.T) {
	g := New(testModel(t))

	fwd := g.Neighbors("main", DirForward, nil)
	if len(fwd) != 1 || fwd[0].Neighbor != "pluginLoader" {
		t.Errorf("forward neighbors of main = %v, want [pluginLoader]", fwd)
	}

	back := g.Neighbors("pluginManager", DirBackward, nil)
	if len(back) != 2 {
		t.Errorf("backward neighbors of pluginManager = %v, want 2", back)
	}

	filtered := g.Neighbors("pluginManager", DirBackward, []model.EdgeKind{model.EdgeConfigures})
	if len(filtered) != 1 || filtered[0].Neighbor != "config" {
		t.Errorf("configures-filtered = %v, want [config]", filtered)
	}

	both := g.Neighbors("pluginLoader", DirBoth, nil)
	if len(both) != 2 {
		t.Errorf("both-direction neighbors = %v, want 2", both)
	}
}

func TestTraceDepthZero(t *testing.T) {
	g := New(testModel(t))

	res := g.Trace("main", DirForward, nil, 0)
	if len(res.Nodes) != 1 || res.Nodes[0].Path != "main" || res.Nodes[0].Depth != 0 {
		t.Errorf("nodes = %v, want only root at depth 0", res.Nodes)
	}
	if len(res.Edges) != 0 {
		t.Errorf("edges = %v, want none at depth 0", res.Edges)
	}
}

func TestTraceImportsChain(t *testing.T) {
	g := New(testModel(t))

	res := g.Trace("main", DirForward, []model.EdgeKind{model.EdgeImports}, 2)

	want := map[string]int{"main": 0, "pluginLoader": 1, "pluginManager": 2}
	if len(res.Nodes) != len(want) {
		t.Fatalf("nodes = %v, want %v", res.Nodes, want)
	}
	for _, n := range res.Nodes {
		if want[n.Path] != n.Depth {
			t.Errorf("%s depth = %d, want %d", n.Path, n.Depth, want[n.Path])
		}
	}
	if len(res.Edges) != 2 {
		t.Errorf("edges = %v, want the two imports edges", res.Edges)
	}
	for _, e := range res.Edges {
		if e.Kind != model.EdgeImports {
			t.Errorf("edge %v should be filtered to imports", e)
		}
	}
}

func TestTraceShortestDepthWins(t *testing.T) {
	// main is reachable from itself at depth 0 even though the cycle
	// main -> ... -> pluginManager -> main would rediscover it at depth 3.
	g := New(testModel(t))

	res := g.Trace("main", DirForward, nil, 5)
	for _, n := range res.Nodes {
		if n.Path == "main" && n.Depth != 0 {
			t.Errorf("root rediscovered at depth %d, want 0", n.Depth)
		}
		if n.Path == "pluginManager" && n.Depth != 2 {
			t.Errorf("pluginManager depth = %d, want 2", n.Depth)
		}
	}
}

func TestTraceIncludesCrossLinks(t *testing.T) {
	// Unfiltered trace from config at depth 2 visits config, pluginManager,
	// and main; the visited set then induces the pluginManager->main edge
	// as well as the tree edges.
	g := New(testModel(t))

	res := g.Trace("config", DirForward, nil, 2)

	edgeSet := make(map[string]bool)
	for _, e := range res.Edges {
		edgeSet[e.From+"->"+e.To] = true
	}
	if !edgeSet["config->pluginManager"] || !edgeSet["pluginManager->main"] {
		t.Errorf("edges = %v, want both induced edges", res.Edges)
	}
	if edgeSet["main->pluginLoader"] {
		t.Error("edge to unvisited pluginLoader must not be included")
	}
	if len(res.Edges) != 2 {
		t.Errorf("edges = %v, want exactly 2", res.Edges)
	}
}

func TestTraceBothDirections(t *testing.T) {
	g := New(testModel(t))

	res := g.Trace("pluginManager", DirBoth, nil, 1)
	paths := make(map[string]bool)
	for _, n := range res.Nodes {
		paths[n.Path] = true
	}
	for _, want := range []string{"pluginManager", "pluginLoader", "config", "main"} {
		if !paths[want] {
			t.Errorf("both-direction trace missing %s (got %v)", want, res.Nodes)
		}
	}
}

func TestTraceCycleTermination(t *testing.T) {
	g := New(testModel(t))

	// Depth far beyond the graph diameter must terminate and visit each
	// node exactly once.
	res := g.Trace("main", DirForward, nil, 100)
	seen := make(map[string]int)
	for _, n := range res.Nodes {
		seen[n.Path]++
	}
	for path, count := range seen {
		if count != 1 {
			t.Errorf("%s visited %d times, want 1", path, count)
		}
	}
}

func TestDegreeAndOrphan(t *testing.T) {
	g := New(testModel(t))

	in, out := g.Degree("orphan")
	if in != 0 || out != 0 {
		t.Errorf("orphan degree = (%d,%d), want (0,0)", in, out)
	}

	in, out = g.Degree("pluginManager")
	if in != 2 || out != 1 {
		t.Errorf("pluginManager degree = (%d,%d), want (2,1)", in, out)
	}
}
