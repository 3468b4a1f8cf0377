// Package command composes the model, graph, query engine, and drift
// detector into the request/response contracts shared by the CLI and
// the protocol server.
package command

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"cim/internal/config"
	"cim/internal/drift"
	cimerrors "cim/internal/errors"
	"cim/internal/graph"
	"cim/internal/model"
	"cim/internal/query"
)

// suggestionLimit caps did-you-mean lists on unknown paths.
const suggestionLimit = 3

// Service owns the loaded model and answers every command. All state
// is read-only after construction, so a Service is safe for
// concurrent use.
type Service struct {
	model    *model.Model
	graph    *graph.Graph
	engine   *query.Engine
	detector *drift.Detector
	cfg      *config.Config
	repoRoot string
	logger   *slog.Logger
}

// NewService loads the model from repoRoot's model directory and
// wires up the engines. Model load failures are fatal; a ranker
// misconfiguration only disables AI mode.
func NewService(repoRoot string, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := model.Load(filepath.Join(repoRoot, config.ModelDirName), logger)
	if err != nil {
		return nil, err
	}
	g := graph.New(m)
	e := query.NewEngine(m, g, cfg.Scoring, logger)

	ranker, err := query.NewRanker(cfg.AI, logger)
	if err != nil {
		logger.Warn("ai ranker unavailable, mode=ai will degrade", "error", err)
	} else if ranker != nil {
		e.SetRanker(ranker)
	}

	return &Service{
		model:    m,
		graph:    g,
		engine:   e,
		detector: drift.NewDetector(m, cfg.Drift, logger),
		cfg:      cfg,
		repoRoot: repoRoot,
		logger:   logger,
	}, nil
}

// FromModel builds a Service over an already-loaded model. Used by
// tests and embedders that manage loading themselves.
func FromModel(m *model.Model, cfg *config.Config, repoRoot string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	g := graph.New(m)
	return &Service{
		model:    m,
		graph:    g,
		engine:   query.NewEngine(m, g, cfg.Scoring, logger),
		detector: drift.NewDetector(m, cfg.Drift, logger),
		cfg:      cfg,
		repoRoot: repoRoot,
		logger:   logger,
	}
}

// SetRanker installs the AI ranker used by query --mode ai.
func (s *Service) SetRanker(r query.Ranker) {
	s.engine.SetRanker(r)
}

// Model exposes the loaded model for read-only consumers such as the
// protocol server's resource endpoints.
func (s *Service) Model() *model.Model {
	return s.model
}

func (s *Service) lookup(path string) (*model.Artifact, error) {
	a, ok := s.model.ArtifactByPath(path)
	if !ok {
		return nil, cimerrors.NewArtifactNotFound(path, s.model.SimilarPaths(path, suggestionLimit))
	}
	return a, nil
}

// Peek returns the one-line identity card of an artifact.
func (s *Service) Peek(path string) (*PeekResponse, error) {
	a, err := s.lookup(path)
	if err != nil {
		return nil, err
	}
	in, out := s.graph.Degree(path)
	return &PeekResponse{
		Path:     a.Path,
		Kind:     string(a.Kind),
		Summary:  a.Summary,
		Tags:     a.Tags,
		Exports:  a.Exports,
		Size:     a.Size,
		DepCount: in + out,
	}, nil
}

// FocusOptions select which focus sections to include. Empty means
// all sections.
type FocusOptions struct {
	Path    string
	Include []string
}

var focusSections = map[string]bool{"deps": true, "flows": true, "children": true}

// Focus returns the full dossier of an artifact: peek fields plus
// intent, children, incident dependencies, and referencing flows.
func (s *Service) Focus(opts FocusOptions) (*FocusResponse, error) {
	include := make(map[string]bool, len(opts.Include))
	for _, section := range opts.Include {
		section = strings.TrimSpace(strings.ToLower(section))
		if !focusSections[section] {
			return nil, cimerrors.NewValidationError("include",
				"unknown section "+section+" (want deps, flows, children)")
		}
		include[section] = true
	}
	all := len(include) == 0

	peek, err := s.Peek(opts.Path)
	if err != nil {
		return nil, err
	}
	a, _ := s.model.ArtifactByPath(opts.Path)

	resp := &FocusResponse{
		PeekResponse: *peek,
		Intent:       a.Intent,
		Children:     []model.Child{},
		Dependencies: []DepEntry{},
		Flows:        []FlowRef{},
	}
	if all || include["children"] {
		resp.Children = a.Children
	}
	if all || include["deps"] {
		for _, he := range s.graph.Incoming(opts.Path) {
			resp.Dependencies = append(resp.Dependencies, depEntry(he, "incoming"))
		}
		for _, he := range s.graph.Outgoing(opts.Path) {
			resp.Dependencies = append(resp.Dependencies, depEntry(he, "outgoing"))
		}
	}
	if all || include["flows"] {
		for _, f := range s.model.FlowsReferencing(opts.Path) {
			resp.Flows = append(resp.Flows, FlowRef{Name: f.Name, Summary: f.Summary})
		}
	}
	return resp, nil
}

// TraceOptions are the arguments of a trace command.
type TraceOptions struct {
	Path      string
	Direction string
	Kind      string
	Depth     int
}

// Trace runs a bounded BFS from the given artifact.
func (s *Service) Trace(opts TraceOptions) (*TraceResponse, error) {
	if _, err := s.lookup(opts.Path); err != nil {
		return nil, err
	}
	dir, ok := graph.ParseDirection(opts.Direction)
	if !ok {
		return nil, cimerrors.NewValidationError("direction",
			"must be forward, backward, or both, got "+opts.Direction)
	}
	if opts.Depth < 0 {
		return nil, cimerrors.NewValidationError("depth", "must not be negative")
	}
	kinds, kindLabel, err := s.parseEdgeKind(opts.Kind)
	if err != nil {
		return nil, err
	}

	res := s.graph.Trace(opts.Path, dir, kinds, opts.Depth)
	return &TraceResponse{
		Root:      opts.Path,
		Direction: directionLabel(dir),
		Kind:      kindLabel,
		Depth:     opts.Depth,
		Nodes:     res.Nodes,
		Edges:     res.Edges,
	}, nil
}

// Search runs a structured multi-criteria search.
func (s *Service) Search(opts query.SearchOptions) (*SearchResponse, error) {
	res, err := s.engine.Search(opts)
	if err != nil {
		return nil, err
	}
	results := make([]SearchEntry, 0, len(res.Hits))
	for _, h := range res.Hits {
		results = append(results, SearchEntry{
			Path:        h.Path,
			Kind:        h.Kind,
			Summary:     h.Summary,
			Tags:        h.Tags,
			MatchReason: h.MatchReason,
		})
	}
	return &SearchResponse{
		Query:        describeSearch(opts),
		Results:      results,
		TotalResults: res.Total,
	}, nil
}

// DepsOptions are the arguments of a deps command.
type DepsOptions struct {
	Path      string
	Direction string
	Kind      string
	Weight    string
}

// Deps lists the direct neighbors of an artifact, split by direction.
func (s *Service) Deps(opts DepsOptions) (*DepsResponse, error) {
	if _, err := s.lookup(opts.Path); err != nil {
		return nil, err
	}
	dir, ok := parseDepsDirection(opts.Direction)
	if !ok {
		return nil, cimerrors.NewValidationError("direction",
			"must be incoming, outgoing, or both, got "+opts.Direction)
	}
	kinds, _, err := s.parseEdgeKind(opts.Kind)
	if err != nil {
		return nil, err
	}
	if opts.Weight != "" && !knownWeight(opts.Weight) {
		return nil, cimerrors.NewValidationError("weight",
			"must be critical, normal, or weak, got "+opts.Weight)
	}

	resp := &DepsResponse{
		Artifact: opts.Path,
		Incoming: []DepEntry{},
		Outgoing: []DepEntry{},
	}
	if dir == graph.DirBackward || dir == graph.DirBoth {
		for _, he := range s.graph.Neighbors(opts.Path, graph.DirBackward, kinds) {
			if opts.Weight == "" || string(he.Weight) == opts.Weight {
				resp.Incoming = append(resp.Incoming, depEntry(he, "incoming"))
			}
		}
	}
	if dir == graph.DirForward || dir == graph.DirBoth {
		for _, he := range s.graph.Neighbors(opts.Path, graph.DirForward, kinds) {
			if opts.Weight == "" || string(he.Weight) == opts.Weight {
				resp.Outgoing = append(resp.Outgoing, depEntry(he, "outgoing"))
			}
		}
	}
	resp.TotalIncoming = len(resp.Incoming)
	resp.TotalOutgoing = len(resp.Outgoing)
	return resp, nil
}

// topN caps the stats leaderboards.
const topN = 10

// Stats aggregates model-wide counts and leaderboards.
func (s *Service) Stats() (*StatsResponse, error) {
	byKind := make(map[string]int)
	withIntent := 0
	for _, a := range s.model.Artifacts {
		byKind[string(a.Kind)]++
		if strings.TrimSpace(a.Intent) != "" {
			withIntent++
		}
	}

	byWeight := make(map[string]int)
	edges := s.graph.Edges()
	for _, e := range edges {
		byWeight[string(e.Weight)]++
	}

	coverage := 0.0
	if len(s.model.Artifacts) > 0 {
		coverage = float64(withIntent) / float64(len(s.model.Artifacts))
	}

	topTags := make([]TagCount, 0)
	for tag, count := range s.model.Tags() {
		topTags = append(topTags, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(topTags, func(i, j int) bool {
		if topTags[i].Count != topTags[j].Count {
			return topTags[i].Count > topTags[j].Count
		}
		return topTags[i].Tag < topTags[j].Tag
	})
	if len(topTags) > topN {
		topTags = topTags[:topN]
	}

	connected := make([]ConnectedArtifact, 0, len(s.model.Artifacts))
	orphans := []string{}
	for _, p := range s.model.AllPaths() {
		in, out := s.graph.Degree(p)
		if in+out == 0 {
			orphans = append(orphans, p)
			continue
		}
		connected = append(connected, ConnectedArtifact{Path: p, Connections: in + out})
	}
	sort.Slice(connected, func(i, j int) bool {
		if connected[i].Connections != connected[j].Connections {
			return connected[i].Connections > connected[j].Connections
		}
		return connected[i].Path < connected[j].Path
	})
	if len(connected) > topN {
		connected = connected[:topN]
	}

	return &StatsResponse{
		Artifacts:     ArtifactStats{Total: len(s.model.Artifacts), ByKind: byKind},
		Dependencies:  DependencyStats{Total: len(edges), ByWeight: byWeight},
		Flows:         len(s.model.Flows),
		ProseCoverage: coverage,
		TopTags:       topTags,
		MostConnected: connected,
		Orphans:       orphans,
	}, nil
}

// DiffOptions are the arguments of a diff command.
type DiffOptions struct {
	SinceRef         string
	ThresholdPercent float64
}

// Diff reports drift between the model and the repository.
func (s *Service) Diff(ctx context.Context, opts DiffOptions) (*drift.Report, error) {
	return s.detector.Detect(ctx, drift.Options{
		RepoRoot:         s.repoRoot,
		SinceRef:         opts.SinceRef,
		ThresholdPercent: opts.ThresholdPercent,
	})
}

// QueryOptions are the arguments of a query command.
type QueryOptions struct {
	Task       string
	Mode       string
	MaxResults int
}

// Query runs a relevance query and maps it to the wire shape.
func (s *Service) Query(ctx context.Context, opts QueryOptions) (*QueryResponse, error) {
	res, err := s.engine.Query(ctx, query.QueryOptions{
		Task:       opts.Task,
		Mode:       opts.Mode,
		MaxResults: opts.MaxResults,
	})
	if err != nil {
		return nil, err
	}

	results := make([]QueryEntry, 0, len(res.Results))
	for _, h := range res.Results {
		kind := ""
		if a, ok := s.model.ArtifactByPath(h.Path); ok {
			kind = string(a.Kind)
		}
		results = append(results, QueryEntry{
			Path:      h.Path,
			Kind:      kind,
			Summary:   h.Summary,
			Relevance: h.Score,
			Reason:    h.Reason,
		})
	}
	flows := make([]QueryFlow, 0, len(res.Flows))
	for _, f := range res.Flows {
		flows = append(flows, QueryFlow{Name: f.Name, Summary: f.Summary, Score: f.Score})
	}
	return &QueryResponse{
		Task:         res.Task,
		Mode:         res.Mode,
		Results:      results,
		Flows:        flows,
		TotalResults: len(results),
		Degraded:     res.Degraded,
	}, nil
}

// Status reports what model is loaded and how the service is set up.
func (s *Service) Status() (*StatusResponse, error) {
	return &StatusResponse{
		ModelDir:      filepath.Join(s.repoRoot, config.ModelDirName),
		SchemaVersion: s.model.Schema.SchemaVersion,
		GeneratedAt:   s.model.GeneratedAt,
		Generator:     s.model.Generator,
		Artifacts:     len(s.model.Artifacts),
		Dependencies:  len(s.graph.Edges()),
		Flows:         len(s.model.Flows),
		AIBackend:     s.cfg.AI.Backend,
	}, nil
}

func (s *Service) parseEdgeKind(kind string) ([]model.EdgeKind, string, error) {
	if kind == "" || kind == "all" {
		return nil, "all", nil
	}
	if !s.model.Schema.KnownEdgeKind(kind) {
		return nil, "", cimerrors.NewValidationError("kind", "unknown edge kind "+kind)
	}
	return []model.EdgeKind{model.EdgeKind(kind)}, kind, nil
}

func parseDepsDirection(s string) (graph.Direction, bool) {
	switch s {
	case "", "both":
		return graph.DirBoth, true
	case "incoming":
		return graph.DirBackward, true
	case "outgoing":
		return graph.DirForward, true
	}
	return graph.DirBoth, false
}

func directionLabel(dir graph.Direction) string {
	switch dir {
	case graph.DirForward:
		return "forward"
	case graph.DirBackward:
		return "backward"
	default:
		return "both"
	}
}

func knownWeight(w string) bool {
	switch model.Weight(w) {
	case model.WeightCritical, model.WeightNormal, model.WeightWeak:
		return true
	}
	return false
}

func depEntry(he graph.HalfEdge, direction string) DepEntry {
	return DepEntry{
		Path:      he.Neighbor,
		Kind:      string(he.Kind),
		Weight:    string(he.Weight),
		Intent:    he.Intent,
		Direction: direction,
	}
}

// describeSearch renders the applied criteria for the response's
// query field.
func describeSearch(opts query.SearchOptions) string {
	var parts []string
	if len(opts.Tags) > 0 {
		parts = append(parts, "tags="+strings.Join(opts.Tags, ","))
	}
	if opts.Kind != "" {
		parts = append(parts, "kind="+opts.Kind)
	}
	if opts.NamePattern != "" {
		parts = append(parts, "name="+opts.NamePattern)
	}
	if opts.Prose != "" {
		parts = append(parts, "prose="+opts.Prose)
	}
	if opts.Export != "" {
		parts = append(parts, "export="+opts.Export)
	}
	if opts.HasChildren != nil {
		if *opts.HasChildren {
			parts = append(parts, "hasChildren")
		} else {
			parts = append(parts, "noChildren")
		}
	}
	if len(parts) == 0 {
		return "matchAll"
	}
	return strings.Join(parts, " ")
}
