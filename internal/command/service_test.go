package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cim/internal/config"
	cimerrors "cim/internal/errors"
	"cim/internal/model"
	"cim/internal/query"
	"cim/internal/slogutil"
)

func testService(t *testing.T, repoRoot string) *Service {
	t.Helper()
	m, err := model.FromInstance(&model.Instance{
		GeneratedAt: "2026-08-01T12:00:00Z",
		Generator:   "cim-bootstrap",
		Artifacts: []model.Artifact{
			{
				Path:    "src/main.js",
				Kind:    model.KindModule,
				Summary: "Entry point",
				Intent:  "Boots the application",
				Tags:    []string{"core"},
				Exports: []string{"main"},
				Size:    40,
			},
			{
				Path:    "src/pluginManager.js",
				Kind:    model.KindModule,
				Summary: "Handles plugin activation",
				Tags:    []string{"core", "plugins"},
				Exports: []string{"activatePlugin"},
				Size:    120,
				Children: []model.Child{
					{Name: "activatePlugin", Kind: "function", Line: 10, EndLine: 42},
				},
			},
			{
				Path:    "src/config.js",
				Kind:    model.KindConfig,
				Summary: "Settings",
				Size:    15,
			},
			{
				Path:    "src/orphan.js",
				Kind:    model.KindModule,
				Summary: "Unreferenced helper",
				Size:    5,
			},
		},
		Dependencies: []model.Edge{
			{From: "src/main.js", To: "src/pluginManager.js", Kind: model.EdgeImports, Weight: model.WeightCritical},
			{From: "src/config.js", To: "src/pluginManager.js", Kind: model.EdgeConfigures, Weight: model.WeightWeak},
		},
		Flows: []model.Flow{
			{
				Name:    "plugin-activation",
				Summary: "Plugin startup",
				Steps: []model.FlowStep{
					{Intent: "activate plugins", Artifact: "src/pluginManager.js"},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("FromInstance failed: %v", err)
	}
	return FromModel(m, config.DefaultConfig(), repoRoot, slogutil.NewDiscardLogger())
}

func TestPeek(t *testing.T) {
	s := testService(t, t.TempDir())

	resp, err := s.Peek("src/pluginManager.js")
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if resp.Kind != "module" || resp.Size != 120 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.DepCount != 2 {
		t.Errorf("depCount = %d, want 2 (both incident edges)", resp.DepCount)
	}
}

func TestPeekUnknownPathSuggests(t *testing.T) {
	s := testService(t, t.TempDir())

	_, err := s.Peek("src/pluginmanager.js")
	if cimerrors.CodeOf(err) != cimerrors.ArtifactNotFound {
		t.Fatalf("error = %v, want ArtifactNotFound", err)
	}
	var ce *cimerrors.CimError
	if !errors.As(err, &ce) || len(ce.Suggestions) == 0 {
		t.Errorf("error = %+v, want did-you-mean suggestions", err)
	}
}

func TestDepCountMatchesDepsTotals(t *testing.T) {
	s := testService(t, t.TempDir())

	for _, p := range s.Model().AllPaths() {
		peek, err := s.Peek(p)
		if err != nil {
			t.Fatalf("Peek(%s) failed: %v", p, err)
		}
		deps, err := s.Deps(DepsOptions{Path: p})
		if err != nil {
			t.Fatalf("Deps(%s) failed: %v", p, err)
		}
		if deps.TotalIncoming+deps.TotalOutgoing != peek.DepCount {
			t.Errorf("%s: deps %d+%d != depCount %d",
				p, deps.TotalIncoming, deps.TotalOutgoing, peek.DepCount)
		}
	}
}

func TestFocus(t *testing.T) {
	s := testService(t, t.TempDir())

	resp, err := s.Focus(FocusOptions{Path: "src/pluginManager.js"})
	if err != nil {
		t.Fatalf("Focus failed: %v", err)
	}
	if len(resp.Children) != 1 || resp.Children[0].Name != "activatePlugin" {
		t.Errorf("children = %v", resp.Children)
	}
	if len(resp.Dependencies) != 2 {
		t.Errorf("dependencies = %v, want both incident edges", resp.Dependencies)
	}
	if len(resp.Flows) != 1 || resp.Flows[0].Name != "plugin-activation" {
		t.Errorf("flows = %v", resp.Flows)
	}
}

func TestFocusIncludeSelectsSections(t *testing.T) {
	s := testService(t, t.TempDir())

	resp, err := s.Focus(FocusOptions{Path: "src/pluginManager.js", Include: []string{"flows"}})
	if err != nil {
		t.Fatalf("Focus failed: %v", err)
	}
	if len(resp.Children) != 0 || len(resp.Dependencies) != 0 {
		t.Errorf("resp = %+v, want only flows populated", resp)
	}
	if len(resp.Flows) != 1 {
		t.Errorf("flows = %v", resp.Flows)
	}

	_, err = s.Focus(FocusOptions{Path: "src/pluginManager.js", Include: []string{"everything"}})
	if cimerrors.CodeOf(err) != cimerrors.ValidationError {
		t.Errorf("error = %v, want ValidationError for unknown section", err)
	}
}

func TestTrace(t *testing.T) {
	s := testService(t, t.TempDir())

	resp, err := s.Trace(TraceOptions{Path: "src/main.js", Direction: "forward", Depth: 2})
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if resp.Root != "src/main.js" || resp.Direction != "forward" || resp.Kind != "all" {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Nodes) != 2 {
		t.Errorf("nodes = %v, want main and pluginManager", resp.Nodes)
	}
}

func TestTraceValidation(t *testing.T) {
	s := testService(t, t.TempDir())

	_, err := s.Trace(TraceOptions{Path: "src/nope.js", Depth: 1})
	if cimerrors.CodeOf(err) != cimerrors.ArtifactNotFound {
		t.Errorf("error = %v, want ArtifactNotFound", err)
	}

	_, err = s.Trace(TraceOptions{Path: "src/main.js", Direction: "sideways", Depth: 1})
	if cimerrors.CodeOf(err) != cimerrors.ValidationError {
		t.Errorf("error = %v, want ValidationError for direction", err)
	}

	_, err = s.Trace(TraceOptions{Path: "src/main.js", Depth: -1})
	if cimerrors.CodeOf(err) != cimerrors.ValidationError {
		t.Errorf("error = %v, want ValidationError for depth", err)
	}

	_, err = s.Trace(TraceOptions{Path: "src/main.js", Kind: "telepathy", Depth: 1})
	if cimerrors.CodeOf(err) != cimerrors.ValidationError {
		t.Errorf("error = %v, want ValidationError for kind", err)
	}
}

func TestDepsFilters(t *testing.T) {
	s := testService(t, t.TempDir())

	resp, err := s.Deps(DepsOptions{Path: "src/pluginManager.js", Direction: "incoming"})
	if err != nil {
		t.Fatalf("Deps failed: %v", err)
	}
	if resp.TotalIncoming != 2 || resp.TotalOutgoing != 0 {
		t.Errorf("resp = %+v", resp)
	}

	resp, err = s.Deps(DepsOptions{Path: "src/pluginManager.js", Weight: "critical"})
	if err != nil {
		t.Fatalf("Deps failed: %v", err)
	}
	if resp.TotalIncoming != 1 || resp.Incoming[0].Path != "src/main.js" {
		t.Errorf("critical-filtered = %+v", resp)
	}

	_, err = s.Deps(DepsOptions{Path: "src/pluginManager.js", Weight: "heavy"})
	if cimerrors.CodeOf(err) != cimerrors.ValidationError {
		t.Errorf("error = %v, want ValidationError for weight", err)
	}
}

func TestStats(t *testing.T) {
	s := testService(t, t.TempDir())

	resp, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if resp.Artifacts.Total != 4 || resp.Artifacts.ByKind["module"] != 3 {
		t.Errorf("artifacts = %+v", resp.Artifacts)
	}
	if resp.Dependencies.Total != 2 || resp.Dependencies.ByWeight["critical"] != 1 {
		t.Errorf("dependencies = %+v", resp.Dependencies)
	}
	if resp.Flows != 1 {
		t.Errorf("flows = %d", resp.Flows)
	}
	if resp.ProseCoverage != 0.25 {
		t.Errorf("proseCoverage = %v, want 0.25 (1 of 4 with intent)", resp.ProseCoverage)
	}
	if len(resp.Orphans) != 1 || resp.Orphans[0] != "src/orphan.js" {
		t.Errorf("orphans = %v", resp.Orphans)
	}
	if len(resp.MostConnected) == 0 || resp.MostConnected[0].Path != "src/pluginManager.js" {
		t.Errorf("mostConnected = %v", resp.MostConnected)
	}
	if len(resp.TopTags) == 0 || resp.TopTags[0].Tag != "core" {
		t.Errorf("topTags = %v", resp.TopTags)
	}
}

func TestSearchWireShape(t *testing.T) {
	s := testService(t, t.TempDir())

	resp, err := s.Search(query.SearchOptions{Tags: []string{"plugins"}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.TotalResults != 1 || resp.Results[0].Path != "src/pluginManager.js" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Query == "" {
		t.Error("query echo must not be empty")
	}
}

func TestQueryWireShape(t *testing.T) {
	s := testService(t, t.TempDir())

	resp, err := s.Query(context.Background(), QueryOptions{Task: "plugin activation"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if resp.Mode != "local" || resp.TotalResults != len(resp.Results) {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Results) == 0 || resp.Results[0].Path != "src/pluginManager.js" {
		t.Fatalf("results = %v", resp.Results)
	}
	if resp.Results[0].Kind != "module" || resp.Results[0].Relevance <= 0 {
		t.Errorf("results[0] = %+v", resp.Results[0])
	}
}

func TestDiff(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	content := []byte("line\nline\nline\nline\nline\n")
	for _, name := range []string{"main.js", "pluginManager.js", "config.js", "orphan.js"} {
		if err := os.WriteFile(filepath.Join(root, "src", name), content, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s := testService(t, root)
	report, err := s.Diff(context.Background(), DiffOptions{})
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	// orphan.js is recorded at 5 lines and matches; the others drifted.
	if report.Summary.Drifted != 3 {
		t.Errorf("report = %+v, want 3 drifted", report.Summary)
	}
}

func TestStatus(t *testing.T) {
	root := t.TempDir()
	s := testService(t, root)

	resp, err := s.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if resp.Artifacts != 4 || resp.Dependencies != 2 || resp.Flows != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Generator != "cim-bootstrap" {
		t.Errorf("generator = %q", resp.Generator)
	}
	if resp.ModelDir != filepath.Join(root, config.ModelDirName) {
		t.Errorf("modelDir = %q", resp.ModelDir)
	}
}
