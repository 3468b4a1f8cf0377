package query

import (
	"context"
	"log/slog"
	"math"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/surgebase/porter2"

	"cim/internal/config"
	cimerrors "cim/internal/errors"
	"cim/internal/graph"
	"cim/internal/model"
)

// Engine answers structured searches and free-text relevance queries
// against a loaded model. All state is read-only after construction,
// so an Engine is safe for concurrent use.
type Engine struct {
	model   *model.Model
	graph   *graph.Graph
	scoring config.ScoringConfig
	ranker  Ranker
	logger  *slog.Logger
}

// NewEngine creates an engine over a loaded model and its graph.
func NewEngine(m *model.Model, g *graph.Graph, scoring config.ScoringConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		model:   m,
		graph:   g,
		scoring: scoring,
		logger:  logger,
	}
}

// SetRanker installs the external ranker used by AI-assisted queries.
// Without one, mode=ai always degrades to local results.
func (e *Engine) SetRanker(r Ranker) {
	e.ranker = r
}

// SearchOptions are the ANDed criteria of a structured search.
// Empty fields are not applied.
type SearchOptions struct {
	Tags        []string `json:"tags,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	NamePattern string   `json:"namePattern,omitempty"`
	Prose       string   `json:"prose,omitempty"`
	Export      string   `json:"export,omitempty"`
	HasChildren *bool    `json:"hasChildren,omitempty"`

	// MatchAll permits a search with no criteria, returning every
	// artifact. Without it an empty search is a validation error.
	MatchAll bool `json:"matchAll,omitempty"`
}

func (o SearchOptions) empty() bool {
	return len(o.Tags) == 0 && o.Kind == "" && o.NamePattern == "" &&
		o.Prose == "" && o.Export == "" && o.HasChildren == nil
}

// SearchHit is one artifact matching every supplied criterion.
// MatchReason lists which criteria matched, for read-back only.
type SearchHit struct {
	Path        string   `json:"path"`
	Kind        string   `json:"kind"`
	Summary     string   `json:"summary"`
	Tags        []string `json:"tags,omitempty"`
	MatchReason string   `json:"matchReason"`
}

// SearchResult wraps the hits of a structured search.
type SearchResult struct {
	Total int         `json:"total"`
	Hits  []SearchHit `json:"hits"`
}

// Search applies every supplied criterion conjunctively over all
// artifacts. Results are ordered by path.
func (e *Engine) Search(opts SearchOptions) (*SearchResult, error) {
	if opts.empty() && !opts.MatchAll {
		return nil, cimerrors.NewValidationError("search",
			"at least one filter is required (or set matchAll)")
	}
	if opts.Kind != "" && !e.model.Schema.KnownArtifactKind(opts.Kind) {
		return nil, cimerrors.NewValidationError("kind",
			"unknown artifact kind "+opts.Kind)
	}
	if opts.NamePattern != "" && !doublestar.ValidatePattern(opts.NamePattern) {
		return nil, cimerrors.NewValidationError("namePattern",
			"invalid glob pattern "+opts.NamePattern)
	}

	prose := strings.ToLower(opts.Prose)

	// Export lookups go through the model's export index rather than
	// scanning each artifact's export list.
	var exporters map[string]bool
	if opts.Export != "" {
		paths := e.model.PathsByExport(opts.Export)
		exporters = make(map[string]bool, len(paths))
		for _, p := range paths {
			exporters[p] = true
		}
	}

	hits := []SearchHit{}
	for _, p := range e.model.AllPaths() {
		a, _ := e.model.ArtifactByPath(p)
		var reasons []string

		if len(opts.Tags) > 0 {
			all := true
			for _, tag := range opts.Tags {
				if !a.HasTag(tag) {
					all = false
					break
				}
			}
			if !all {
				continue
			}
			reasons = append(reasons, "tags="+strings.Join(opts.Tags, ","))
		}
		if opts.Kind != "" {
			if string(a.Kind) != opts.Kind {
				continue
			}
			reasons = append(reasons, "kind="+opts.Kind)
		}
		if opts.NamePattern != "" {
			full, _ := doublestar.Match(opts.NamePattern, a.Path)
			base, _ := doublestar.Match(opts.NamePattern, path.Base(a.Path))
			if !full && !base {
				continue
			}
			reasons = append(reasons, "name~"+opts.NamePattern)
		}
		if prose != "" {
			if !strings.Contains(strings.ToLower(a.Summary), prose) &&
				!strings.Contains(strings.ToLower(a.Intent), prose) {
				continue
			}
			reasons = append(reasons, "prose~"+opts.Prose)
		}
		if opts.Export != "" {
			if !exporters[a.Path] {
				continue
			}
			reasons = append(reasons, "export="+opts.Export)
		}
		if opts.HasChildren != nil {
			if (len(a.Children) > 0) != *opts.HasChildren {
				continue
			}
			reasons = append(reasons, "hasChildren")
		}
		if len(reasons) == 0 {
			reasons = append(reasons, "matchAll")
		}

		hits = append(hits, SearchHit{
			Path:        a.Path,
			Kind:        string(a.Kind),
			Summary:     a.Summary,
			Tags:        a.Tags,
			MatchReason: strings.Join(reasons, " "),
		})
	}

	return &SearchResult{Total: len(hits), Hits: hits}, nil
}

// Query modes.
const (
	ModeLocal = "local"
	ModeAI    = "ai"
)

// QueryOptions control a free-text relevance query.
type QueryOptions struct {
	Task       string `json:"task"`
	MaxResults int    `json:"maxResults,omitempty"`
	Mode       string `json:"mode,omitempty"`
}

// QueryHit is one scored artifact in a query result.
type QueryHit struct {
	Path    string   `json:"path"`
	Score   float64  `json:"score"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// FlowHit is a flow whose name or step intents matched the task.
type FlowHit struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Summary string  `json:"summary,omitempty"`
}

// QueryResult is the ranked answer to a relevance query. Degraded is
// set when mode=ai fell back to the local ranking.
type QueryResult struct {
	Task     string     `json:"task"`
	Mode     string     `json:"mode"`
	Results  []QueryHit `json:"results"`
	Flows    []FlowHit  `json:"flows,omitempty"`
	Degraded bool       `json:"degraded,omitempty"`
}

// Query runs a relevance query. Local mode is synchronous and
// deterministic; AI mode pre-filters locally, delegates ranking to the
// configured ranker, and degrades to the local ranking on any failure.
func (e *Engine) Query(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	if strings.TrimSpace(opts.Task) == "" {
		return nil, cimerrors.NewValidationError("task", "must not be empty")
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeLocal
	}
	if mode != ModeLocal && mode != ModeAI {
		return nil, cimerrors.NewValidationError("mode",
			"must be \"local\" or \"ai\", got "+opts.Mode)
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = e.scoring.MaxResults
	}

	tokens := Tokenize(opts.Task)
	hits := e.scoreArtifacts(tokens)
	flows := e.scoreFlows(tokens)

	if mode == ModeAI {
		if res, ok := e.rankWithAI(ctx, opts.Task, hits, maxResults); ok {
			return res, nil
		}
		// Fall through to the local ranking, flagged degraded.
		res := localResult(opts.Task, hits, flows, maxResults)
		res.Mode = ModeAI
		res.Degraded = true
		return res, nil
	}

	return localResult(opts.Task, hits, flows, maxResults), nil
}

func localResult(task string, hits []QueryHit, flows []FlowHit, maxResults int) *QueryResult {
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	return &QueryResult{
		Task:    task,
		Mode:    ModeLocal,
		Results: hits,
		Flows:   flows,
	}
}

// scoreArtifacts computes the local relevance score of every artifact:
// per-field token contributions plus a decayed graph-proximity bonus
// from positively scored neighbors. The returned hits are sorted by
// score descending, path ascending, and exclude zero scores.
func (e *Engine) scoreArtifacts(tokens []Token) []QueryHit {
	scores := make(map[string]float64)
	for _, p := range e.model.AllPaths() {
		a, _ := e.model.ArtifactByPath(p)
		if s := e.scoreArtifact(a, tokens); s > 0 {
			scores[p] = s
		}
	}

	// Graph expansion: artifacts within maxHops of a scored artifact
	// inherit a decayed share of its score.
	bonus := make(map[string]float64)
	for p, base := range scores {
		visited := map[string]bool{p: true}
		frontier := []string{p}
		for hop := 1; hop <= e.scoring.MaxHops; hop++ {
			var next []string
			decay := base * math.Pow(e.scoring.HopDecay, float64(hop))
			for _, cur := range frontier {
				for _, he := range e.graph.Neighbors(cur, graph.DirBoth, nil) {
					if visited[he.Neighbor] {
						continue
					}
					visited[he.Neighbor] = true
					bonus[he.Neighbor] += decay
					next = append(next, he.Neighbor)
				}
			}
			frontier = next
		}
	}
	for p, b := range bonus {
		scores[p] += b
	}

	hits := make([]QueryHit, 0, len(scores))
	for p, s := range scores {
		a, _ := e.model.ArtifactByPath(p)
		hits = append(hits, QueryHit{
			Path:    p,
			Score:   round3(s),
			Summary: a.Summary,
			Tags:    a.Tags,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Path < hits[j].Path
	})
	return hits
}

func (e *Engine) scoreArtifact(a *model.Artifact, tokens []Token) float64 {
	summary := strings.ToLower(a.Summary)
	intent := strings.ToLower(a.Intent)
	pathLower := strings.ToLower(a.Path)

	var score float64
	for _, tok := range tokens {
		for _, tag := range a.Tags {
			lt := strings.ToLower(tag)
			if lt == tok.Raw || porter2.Stem(lt) == tok.Stem {
				score += e.scoring.TagWeight
			}
		}
		if strings.Contains(summary, tok.Stem) {
			score += e.scoring.SummaryWeight
		}
		if intent != "" && strings.Contains(intent, tok.Stem) {
			score += e.scoring.IntentWeight
		}
		for _, exp := range a.Exports {
			if strings.ToLower(exp) == tok.Raw {
				score += e.scoring.ExportWeight
			}
		}
		if pathSegmentContains(pathLower, tok.Stem) {
			score += e.scoring.PathWeight
		}
	}
	return score
}

// scoreFlows scores flows against their name and step intents.
func (e *Engine) scoreFlows(tokens []Token) []FlowHit {
	var hits []FlowHit
	for _, f := range e.model.Flows {
		name := strings.ToLower(f.Name)
		var score float64
		for _, tok := range tokens {
			if strings.Contains(name, tok.Stem) {
				score += e.scoring.SummaryWeight
			}
			for _, step := range f.Steps {
				if strings.Contains(strings.ToLower(step.Intent), tok.Stem) {
					score += e.scoring.IntentWeight
				}
			}
		}
		if score > 0 {
			hits = append(hits, FlowHit{Name: f.Name, Score: round3(score), Summary: f.Summary})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Name < hits[j].Name
	})
	return hits
}

// rankWithAI delegates ranking of the local top candidates to the
// configured ranker. Returns ok=false on any failure so the caller can
// degrade to the local ranking.
func (e *Engine) rankWithAI(ctx context.Context, task string, hits []QueryHit, maxResults int) (*QueryResult, bool) {
	if e.ranker == nil {
		e.logger.Warn("ai query requested but no ranker configured, degrading to local")
		return nil, false
	}

	limit := e.scoring.CandidateLimit
	if limit <= 0 || limit > len(hits) {
		limit = len(hits)
	}
	candidates := make([]Candidate, 0, limit)
	byPath := make(map[string]QueryHit, limit)
	for _, h := range hits[:limit] {
		candidates = append(candidates, Candidate{
			Path:       h.Path,
			Summary:    h.Summary,
			Tags:       h.Tags,
			LocalScore: h.Score,
		})
		byPath[h.Path] = h
	}

	flowSummaries := make([]FlowSummary, 0, len(e.model.Flows))
	for _, f := range e.model.Flows {
		flowSummaries = append(flowSummaries, FlowSummary{Name: f.Name, Summary: f.Summary})
	}

	ranking, err := e.ranker.Rank(ctx, task, candidates, flowSummaries)
	if err != nil {
		e.logger.Warn("ai ranking failed, degrading to local",
			"error", cimerrors.NewAIQueryFailure(err))
		return nil, false
	}

	results := make([]QueryHit, 0, len(ranking.Results))
	for _, r := range ranking.Results {
		local, known := byPath[r.Path]
		if !known {
			// The ranker invented a path; skip it.
			e.logger.Debug("dropping unknown path from ai ranking", "path", r.Path)
			continue
		}
		results = append(results, QueryHit{
			Path:    r.Path,
			Score:   r.Relevance,
			Summary: local.Summary,
			Tags:    local.Tags,
			Reason:  r.Reason,
		})
	}
	if len(results) == 0 {
		e.logger.Warn("ai ranking returned no usable paths, degrading to local")
		return nil, false
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	// Only flows the ranker flagged are returned; an empty flagged set
	// stays empty rather than falling back to the local flow hits.
	flowHits := make([]FlowHit, 0, len(ranking.Flows))
	for _, name := range ranking.Flows {
		for _, f := range e.model.Flows {
			if f.Name == name {
				flowHits = append(flowHits, FlowHit{Name: f.Name, Summary: f.Summary})
				break
			}
		}
	}

	return &QueryResult{
		Task:    task,
		Mode:    ModeAI,
		Results: results,
		Flows:   flowHits,
	}, true
}

func pathSegmentContains(lowerPath, needle string) bool {
	for _, seg := range strings.FieldsFunc(lowerPath, func(r rune) bool {
		return r == '/' || r == '.'
	}) {
		if strings.Contains(seg, needle) {
			return true
		}
	}
	return false
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
