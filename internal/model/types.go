// Package model defines the Code Model entities and loads the two model
// documents (schema and instance) produced by the upstream bootstrap
// pipeline. The loaded model is immutable for the lifetime of the process.
package model

// Kind classifies an artifact
type Kind string

const (
	KindModule   Kind = "module"
	KindFunction Kind = "function"
	KindClass    Kind = "class"
	KindTest     Kind = "test"
	KindConfig   Kind = "config"
	KindFlow     Kind = "flow"
)

// EdgeKind classifies a dependency edge
type EdgeKind string

const (
	EdgeImports    EdgeKind = "imports"
	EdgeCalls      EdgeKind = "calls"
	EdgeExtends    EdgeKind = "extends"
	EdgeImplements EdgeKind = "implements"
	EdgeConfigures EdgeKind = "configures"
	EdgeTests      EdgeKind = "tests"
)

// Weight is the qualitative strength of a dependency edge
type Weight string

const (
	WeightCritical Weight = "critical"
	WeightNormal   Weight = "normal"
	WeightWeak     Weight = "weak"
)

// Child is a nested function or class inside an artifact
type Child struct {
	Name      string   `json:"name" yaml:"name"`
	Kind      string   `json:"kind" yaml:"kind"`
	Signature string   `json:"signature,omitempty" yaml:"signature,omitempty"`
	Line      int      `json:"line,omitempty" yaml:"line,omitempty"`
	EndLine   int      `json:"endLine,omitempty" yaml:"endLine,omitempty"`
	Params    []string `json:"params,omitempty" yaml:"params,omitempty"`
	Summary   string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Intent    string   `json:"intent,omitempty" yaml:"intent,omitempty"`
}

// Artifact is a discrete, addressable unit of code in the model.
// Artifacts are produced by the bootstrap pipeline and read-only here.
type Artifact struct {
	Path     string   `json:"path" yaml:"path"`
	Kind     Kind     `json:"kind" yaml:"kind"`
	Summary  string   `json:"summary" yaml:"summary"`
	Intent   string   `json:"intent,omitempty" yaml:"intent,omitempty"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Exports  []string `json:"exports,omitempty" yaml:"exports,omitempty"`
	Size     int      `json:"size,omitempty" yaml:"size,omitempty"`
	Children []Child  `json:"children,omitempty" yaml:"children,omitempty"`
}

// HasTag reports whether the artifact carries the exact tag
func (a *Artifact) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Edge is a directed dependency between two artifacts
type Edge struct {
	From   string   `json:"from" yaml:"from"`
	To     string   `json:"to" yaml:"to"`
	Kind   EdgeKind `json:"kind" yaml:"kind"`
	Weight Weight   `json:"weight" yaml:"weight"`
	Intent string   `json:"intent,omitempty" yaml:"intent,omitempty"`
}

// FlowStep is one step of a cross-artifact flow
type FlowStep struct {
	Intent   string `json:"intent" yaml:"intent"`
	Artifact string `json:"artifact,omitempty" yaml:"artifact,omitempty"`
}

// Flow is a named multi-step narrative over the graph
type Flow struct {
	Name    string     `json:"name" yaml:"name"`
	Summary string     `json:"summary,omitempty" yaml:"summary,omitempty"`
	Steps   []FlowStep `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Schema is the schema document: it declares the instance document and the
// accepted vocabulary for kinds and weights.
type Schema struct {
	SchemaVersion int      `json:"schemaVersion" yaml:"schemaVersion"`
	Instance      string   `json:"instance,omitempty" yaml:"instance,omitempty"`
	ArtifactKinds []string `json:"artifactKinds,omitempty" yaml:"artifactKinds,omitempty"`
	EdgeKinds     []string `json:"edgeKinds,omitempty" yaml:"edgeKinds,omitempty"`
	EdgeWeights   []string `json:"edgeWeights,omitempty" yaml:"edgeWeights,omitempty"`
}

// KnownArtifactKind reports whether kind is in the schema's artifact
// vocabulary, falling back to the defaults when none is declared.
func (s Schema) KnownArtifactKind(kind string) bool {
	kinds := s.ArtifactKinds
	if len(kinds) == 0 {
		kinds = DefaultArtifactKinds()
	}
	return containsKind(kinds, kind)
}

// KnownEdgeKind reports whether kind is in the schema's edge
// vocabulary, falling back to the defaults when none is declared.
func (s Schema) KnownEdgeKind(kind string) bool {
	kinds := s.EdgeKinds
	if len(kinds) == 0 {
		kinds = DefaultEdgeKinds()
	}
	return containsKind(kinds, kind)
}

func containsKind(kinds []string, kind string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Instance is the instance document: the artifacts, edges, and flows
type Instance struct {
	GeneratedAt  string     `json:"generatedAt,omitempty" yaml:"generatedAt,omitempty"`
	Generator    string     `json:"generator,omitempty" yaml:"generator,omitempty"`
	Artifacts    []Artifact `json:"artifacts" yaml:"artifacts"`
	Dependencies []Edge     `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Flows        []Flow     `json:"flows,omitempty" yaml:"flows,omitempty"`
}

// DefaultArtifactKinds is the vocabulary used when the schema document
// does not declare its own.
func DefaultArtifactKinds() []string {
	return []string{
		string(KindModule), string(KindFunction), string(KindClass),
		string(KindTest), string(KindConfig), string(KindFlow),
	}
}

// DefaultEdgeKinds is the edge vocabulary used when the schema document
// does not declare its own.
func DefaultEdgeKinds() []string {
	return []string{
		string(EdgeImports), string(EdgeCalls), string(EdgeExtends),
		string(EdgeImplements), string(EdgeConfigures), string(EdgeTests),
	}
}

// DefaultEdgeWeights is the weight vocabulary used when the schema document
// does not declare its own.
func DefaultEdgeWeights() []string {
	return []string{string(WeightCritical), string(WeightNormal), string(WeightWeak)}
}
