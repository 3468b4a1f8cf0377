package model

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// Model is the loaded Code Model with its lookup indices.
// It is built once at load time and treated as read-only afterwards, so
// concurrent reads need no locking.
type Model struct {
	Schema      *Schema
	GeneratedAt string
	Generator   string

	Artifacts []*Artifact
	Edges     []Edge
	Flows     []Flow

	byPath   map[string]*Artifact
	byTag    map[string][]string
	byKind   map[Kind][]string
	byExport map[string][]string
}

// buildIndices populates the lookup maps. Paths inside each index bucket are
// kept sorted so that every query over the model is deterministic.
func (m *Model) buildIndices() {
	m.byPath = make(map[string]*Artifact, len(m.Artifacts))
	m.byTag = make(map[string][]string)
	m.byKind = make(map[Kind][]string)
	m.byExport = make(map[string][]string)

	for _, a := range m.Artifacts {
		m.byPath[a.Path] = a
		m.byKind[a.Kind] = append(m.byKind[a.Kind], a.Path)
		for _, tag := range a.Tags {
			m.byTag[tag] = append(m.byTag[tag], a.Path)
		}
		for _, sym := range a.Exports {
			m.byExport[sym] = append(m.byExport[sym], a.Path)
		}
	}

	for _, paths := range m.byTag {
		sort.Strings(paths)
	}
	for _, paths := range m.byKind {
		sort.Strings(paths)
	}
	for _, paths := range m.byExport {
		sort.Strings(paths)
	}
}

// ArtifactByPath looks up an artifact by its unique path
func (m *Model) ArtifactByPath(path string) (*Artifact, bool) {
	a, ok := m.byPath[path]
	return a, ok
}

// PathsByTag returns the sorted paths of artifacts carrying the exact tag
func (m *Model) PathsByTag(tag string) []string {
	return m.byTag[tag]
}

// PathsByKind returns the sorted paths of artifacts of the given kind
func (m *Model) PathsByKind(kind Kind) []string {
	return m.byKind[kind]
}

// PathsByExport returns the sorted paths of artifacts exporting the symbol
func (m *Model) PathsByExport(symbol string) []string {
	return m.byExport[symbol]
}

// AllPaths returns every artifact path in lexical order
func (m *Model) AllPaths() []string {
	paths := make([]string, 0, len(m.Artifacts))
	for _, a := range m.Artifacts {
		paths = append(paths, a.Path)
	}
	sort.Strings(paths)
	return paths
}

// Tags returns every distinct tag with its artifact count
func (m *Model) Tags() map[string]int {
	counts := make(map[string]int, len(m.byTag))
	for tag, paths := range m.byTag {
		counts[tag] = len(paths)
	}
	return counts
}

// FlowsReferencing returns the flows that reference the artifact path in
// any of their steps.
func (m *Model) FlowsReferencing(path string) []Flow {
	var flows []Flow
	for _, f := range m.Flows {
		for _, s := range f.Steps {
			if s.Artifact == path {
				flows = append(flows, f)
				break
			}
		}
	}
	return flows
}

// suggestionThreshold is the minimum Jaro-Winkler similarity for a path to
// be offered as a near-miss suggestion.
const suggestionThreshold = 0.75

// SimilarPaths returns up to limit known paths closest to the given path,
// for "did you mean" read-back on failed lookups.
func (m *Model) SimilarPaths(path string, limit int) []string {
	if limit <= 0 {
		limit = 3
	}

	type scored struct {
		path  string
		score float32
	}

	needle := strings.ToLower(path)
	candidates := make([]scored, 0, 8)
	for _, a := range m.Artifacts {
		sim, err := edlib.StringsSimilarity(needle, strings.ToLower(a.Path), edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if sim >= suggestionThreshold {
			candidates = append(candidates, scored{path: a.Path, score: sim})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].path < candidates[j].path
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	paths := make([]string, 0, len(candidates))
	for _, c := range candidates {
		paths = append(paths, c.path)
	}
	return paths
}
