package command

import (
	"fmt"
	"strings"

	"cim/internal/format"
	"cim/internal/graph"
	"cim/internal/model"
)

// PeekResponse is the one-line identity card of an artifact.
type PeekResponse struct {
	Path     string   `json:"path" yaml:"path"`
	Kind     string   `json:"kind" yaml:"kind"`
	Summary  string   `json:"summary" yaml:"summary"`
	Tags     []string `json:"tags" yaml:"tags"`
	Exports  []string `json:"exports,omitempty" yaml:"exports,omitempty"`
	Size     int      `json:"size,omitempty" yaml:"size,omitempty"`
	DepCount int      `json:"depCount" yaml:"depCount"`
}

func (r *PeekResponse) Table() ([]string, [][]string) {
	return []string{"PATH", "KIND", "SUMMARY", "TAGS", "DEPS"},
		[][]string{{r.Path, r.Kind, r.Summary, strings.Join(r.Tags, ","), fmt.Sprint(r.DepCount)}}
}

func (r *PeekResponse) PathList() []string {
	return []string{r.Path}
}

// DepEntry is one incident edge of an artifact.
type DepEntry struct {
	Path      string `json:"path" yaml:"path"`
	Kind      string `json:"kind" yaml:"kind"`
	Weight    string `json:"weight" yaml:"weight"`
	Intent    string `json:"intent,omitempty" yaml:"intent,omitempty"`
	Direction string `json:"direction" yaml:"direction"`
}

// FlowRef names a flow that references an artifact.
type FlowRef struct {
	Name    string `json:"name" yaml:"name"`
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// FocusResponse is the full dossier of an artifact.
type FocusResponse struct {
	PeekResponse `yaml:",inline"`
	Intent       string        `json:"intent,omitempty" yaml:"intent,omitempty"`
	Children     []model.Child `json:"children" yaml:"children"`
	Dependencies []DepEntry    `json:"dependencies" yaml:"dependencies"`
	Flows        []FlowRef     `json:"flows" yaml:"flows"`
}

func (r *FocusResponse) Tree() *format.Node {
	root := &format.Node{Label: r.Path + " (" + r.Kind + ")"}
	if len(r.Children) > 0 {
		section := &format.Node{Label: "children"}
		for _, c := range r.Children {
			section.Children = append(section.Children, &format.Node{
				Label: c.Name + " (" + string(c.Kind) + ")",
			})
		}
		root.Children = append(root.Children, section)
	}
	if len(r.Dependencies) > 0 {
		section := &format.Node{Label: "dependencies"}
		for _, d := range r.Dependencies {
			arrow := "-> "
			if d.Direction == "incoming" {
				arrow = "<- "
			}
			section.Children = append(section.Children, &format.Node{
				Label: arrow + d.Path + " (" + d.Kind + ", " + d.Weight + ")",
			})
		}
		root.Children = append(root.Children, section)
	}
	if len(r.Flows) > 0 {
		section := &format.Node{Label: "flows"}
		for _, f := range r.Flows {
			section.Children = append(section.Children, &format.Node{Label: f.Name})
		}
		root.Children = append(root.Children, section)
	}
	return root
}

func (r *FocusResponse) PathList() []string {
	return []string{r.Path}
}

// TraceResponse is the wire shape of a trace: the BFS node set and
// every edge among visited nodes.
type TraceResponse struct {
	Root      string            `json:"root" yaml:"root"`
	Direction string            `json:"direction" yaml:"direction"`
	Kind      string            `json:"kind" yaml:"kind"`
	Depth     int               `json:"depth" yaml:"depth"`
	Nodes     []graph.TraceNode `json:"nodes" yaml:"nodes"`
	Edges     []model.Edge      `json:"edges" yaml:"edges"`
}

func (r *TraceResponse) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		rows = append(rows, []string{
			fmt.Sprint(n.Depth), n.Path, string(n.EdgeKind), string(n.EdgeWeight),
		})
	}
	return []string{"DEPTH", "PATH", "VIA", "WEIGHT"}, rows
}

// Tree reconstructs the BFS tree by attaching each node to a visited
// node one level shallower that shares an edge with it.
func (r *TraceResponse) Tree() *format.Node {
	depths := make(map[string]int, len(r.Nodes))
	nodes := make(map[string]*format.Node, len(r.Nodes))
	for _, n := range r.Nodes {
		depths[n.Path] = n.Depth
		label := n.Path
		if n.EdgeKind != "" {
			label += " (" + string(n.EdgeKind) + ")"
		}
		nodes[n.Path] = &format.Node{Label: label}
	}

	root := nodes[r.Root]
	for _, n := range r.Nodes {
		if n.Depth == 0 {
			continue
		}
		parent := ""
		for _, e := range r.Edges {
			if e.To == n.Path && depths[e.From] == n.Depth-1 {
				parent = e.From
				break
			}
			if e.From == n.Path && depths[e.To] == n.Depth-1 {
				parent = e.To
				break
			}
		}
		if p, ok := nodes[parent]; ok {
			p.Children = append(p.Children, nodes[n.Path])
		} else if root != nil {
			root.Children = append(root.Children, nodes[n.Path])
		}
	}
	return root
}

func (r *TraceResponse) PathList() []string {
	paths := make([]string, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		paths = append(paths, n.Path)
	}
	return paths
}

// SearchEntry is one structured-search hit.
type SearchEntry struct {
	Path        string   `json:"path" yaml:"path"`
	Kind        string   `json:"kind" yaml:"kind"`
	Summary     string   `json:"summary" yaml:"summary"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	MatchReason string   `json:"matchReason" yaml:"matchReason"`
}

// SearchResponse is the wire shape of a structured search.
type SearchResponse struct {
	Query        string        `json:"query" yaml:"query"`
	Results      []SearchEntry `json:"results" yaml:"results"`
	TotalResults int           `json:"totalResults" yaml:"totalResults"`
}

func (r *SearchResponse) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.Results))
	for _, e := range r.Results {
		rows = append(rows, []string{e.Path, e.Kind, e.Summary, e.MatchReason})
	}
	return []string{"PATH", "KIND", "SUMMARY", "MATCHED"}, rows
}

func (r *SearchResponse) PathList() []string {
	paths := make([]string, 0, len(r.Results))
	for _, e := range r.Results {
		paths = append(paths, e.Path)
	}
	return paths
}

// DepsResponse is the wire shape of a deps command.
type DepsResponse struct {
	Artifact      string     `json:"artifact" yaml:"artifact"`
	Incoming      []DepEntry `json:"incoming" yaml:"incoming"`
	Outgoing      []DepEntry `json:"outgoing" yaml:"outgoing"`
	TotalIncoming int        `json:"totalIncoming" yaml:"totalIncoming"`
	TotalOutgoing int        `json:"totalOutgoing" yaml:"totalOutgoing"`
}

func (r *DepsResponse) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.Incoming)+len(r.Outgoing))
	for _, d := range append(append([]DepEntry{}, r.Incoming...), r.Outgoing...) {
		rows = append(rows, []string{d.Direction, d.Path, d.Kind, d.Weight})
	}
	return []string{"DIRECTION", "PATH", "KIND", "WEIGHT"}, rows
}

func (r *DepsResponse) Tree() *format.Node {
	root := &format.Node{Label: r.Artifact}
	if len(r.Incoming) > 0 {
		in := &format.Node{Label: "incoming"}
		for _, d := range r.Incoming {
			in.Children = append(in.Children, &format.Node{
				Label: d.Path + " (" + d.Kind + ", " + d.Weight + ")",
			})
		}
		root.Children = append(root.Children, in)
	}
	if len(r.Outgoing) > 0 {
		out := &format.Node{Label: "outgoing"}
		for _, d := range r.Outgoing {
			out.Children = append(out.Children, &format.Node{
				Label: d.Path + " (" + d.Kind + ", " + d.Weight + ")",
			})
		}
		root.Children = append(root.Children, out)
	}
	return root
}

func (r *DepsResponse) PathList() []string {
	paths := make([]string, 0, len(r.Incoming)+len(r.Outgoing))
	for _, d := range r.Incoming {
		paths = append(paths, d.Path)
	}
	for _, d := range r.Outgoing {
		paths = append(paths, d.Path)
	}
	return paths
}

// ArtifactStats counts artifacts by kind.
type ArtifactStats struct {
	Total  int            `json:"total" yaml:"total"`
	ByKind map[string]int `json:"byKind" yaml:"byKind"`
}

// DependencyStats counts edges by weight.
type DependencyStats struct {
	Total    int            `json:"total" yaml:"total"`
	ByWeight map[string]int `json:"byWeight" yaml:"byWeight"`
}

// TagCount is one entry of the tag leaderboard.
type TagCount struct {
	Tag   string `json:"tag" yaml:"tag"`
	Count int    `json:"count" yaml:"count"`
}

// ConnectedArtifact is one entry of the connectivity leaderboard.
type ConnectedArtifact struct {
	Path        string `json:"path" yaml:"path"`
	Connections int    `json:"connections" yaml:"connections"`
}

// StatsResponse is the wire shape of a stats command.
type StatsResponse struct {
	Artifacts     ArtifactStats       `json:"artifacts" yaml:"artifacts"`
	Dependencies  DependencyStats     `json:"dependencies" yaml:"dependencies"`
	Flows         int                 `json:"flows" yaml:"flows"`
	ProseCoverage float64             `json:"proseCoverage" yaml:"proseCoverage"`
	TopTags       []TagCount          `json:"topTags" yaml:"topTags"`
	MostConnected []ConnectedArtifact `json:"mostConnected" yaml:"mostConnected"`
	Orphans       []string            `json:"orphans" yaml:"orphans"`
}

func (r *StatsResponse) Table() ([]string, [][]string) {
	rows := [][]string{
		{"artifacts", fmt.Sprint(r.Artifacts.Total)},
		{"dependencies", fmt.Sprint(r.Dependencies.Total)},
		{"flows", fmt.Sprint(r.Flows)},
		{"proseCoverage", fmt.Sprintf("%.0f%%", r.ProseCoverage*100)},
		{"orphans", fmt.Sprint(len(r.Orphans))},
	}
	return []string{"METRIC", "VALUE"}, rows
}

// QueryEntry is one ranked result of a relevance query.
type QueryEntry struct {
	Path      string  `json:"path" yaml:"path"`
	Kind      string  `json:"kind" yaml:"kind"`
	Summary   string  `json:"summary" yaml:"summary"`
	Relevance float64 `json:"relevance" yaml:"relevance"`
	Reason    string  `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// QueryFlow is a flow flagged as relevant to the task.
type QueryFlow struct {
	Name    string  `json:"name" yaml:"name"`
	Summary string  `json:"summary,omitempty" yaml:"summary,omitempty"`
	Score   float64 `json:"score,omitempty" yaml:"score,omitempty"`
}

// QueryResponse is the wire shape of a relevance query.
type QueryResponse struct {
	Task         string       `json:"task" yaml:"task"`
	Mode         string       `json:"mode" yaml:"mode"`
	Results      []QueryEntry `json:"results" yaml:"results"`
	Flows        []QueryFlow  `json:"flows" yaml:"flows"`
	TotalResults int          `json:"totalResults" yaml:"totalResults"`
	Degraded     bool         `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

func (r *QueryResponse) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.Results))
	for _, e := range r.Results {
		rows = append(rows, []string{
			fmt.Sprintf("%.2f", e.Relevance), e.Path, e.Summary,
		})
	}
	return []string{"SCORE", "PATH", "SUMMARY"}, rows
}

func (r *QueryResponse) PathList() []string {
	paths := make([]string, 0, len(r.Results))
	for _, e := range r.Results {
		paths = append(paths, e.Path)
	}
	return paths
}

// StatusResponse describes the loaded model and service setup.
type StatusResponse struct {
	ModelDir      string `json:"modelDir" yaml:"modelDir"`
	SchemaVersion int    `json:"schemaVersion" yaml:"schemaVersion"`
	GeneratedAt   string `json:"generatedAt,omitempty" yaml:"generatedAt,omitempty"`
	Generator     string `json:"generator,omitempty" yaml:"generator,omitempty"`
	Artifacts     int    `json:"artifacts" yaml:"artifacts"`
	Dependencies  int    `json:"dependencies" yaml:"dependencies"`
	Flows         int    `json:"flows" yaml:"flows"`
	AIBackend     string `json:"aiBackend,omitempty" yaml:"aiBackend,omitempty"`
}

func (r *StatusResponse) Table() ([]string, [][]string) {
	rows := [][]string{
		{"modelDir", r.ModelDir},
		{"schemaVersion", fmt.Sprint(r.SchemaVersion)},
		{"generatedAt", r.GeneratedAt},
		{"generator", r.Generator},
		{"artifacts", fmt.Sprint(r.Artifacts)},
		{"dependencies", fmt.Sprint(r.Dependencies)},
		{"flows", fmt.Sprint(r.Flows)},
	}
	return []string{"FIELD", "VALUE"}, rows
}
