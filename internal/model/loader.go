package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	cimerrors "cim/internal/errors"
)

// SupportedSchemaVersion is the only schema document version this loader accepts.
const SupportedSchemaVersion = 1

// schemaCandidates are the recognized schema document names, probed in order.
var schemaCandidates = []string{"schema.json", "schema.yaml", "schema.yml"}

// instanceCandidates are the recognized instance document names, probed in
// order when the schema does not name one.
var instanceCandidates = []string{"model.json", "model.json.zst", "model.yaml", "model.yml"}

// Load reads the schema and instance documents from dir, validates them, and
// returns the indexed model. Loading is a one-shot operation at process
// start; there is no partial or incremental reload.
func Load(dir string, logger *slog.Logger) (*Model, error) {
	schema, err := loadSchema(dir)
	if err != nil {
		return nil, err
	}

	instance, instancePath, err := loadInstance(dir, schema)
	if err != nil {
		return nil, err
	}

	m, err := build(schema, instance)
	if err != nil {
		return nil, err
	}

	// Dangling flow step references are tolerated: flows are narrative
	// metadata, not structural edges. Log them so drift is visible.
	for _, f := range m.Flows {
		for _, s := range f.Steps {
			if s.Artifact == "" {
				continue
			}
			if _, ok := m.byPath[s.Artifact]; !ok {
				logger.Warn("flow step references unknown artifact",
					"flow", f.Name,
					"artifact", s.Artifact,
				)
			}
		}
	}

	logger.Info("model loaded",
		"document", instancePath,
		"artifacts", len(m.Artifacts),
		"edges", len(m.Edges),
		"flows", len(m.Flows),
	)

	return m, nil
}

func loadSchema(dir string) (*Schema, error) {
	for _, name := range schemaCandidates {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, cimerrors.NewMalformedModel(fmt.Sprintf("cannot read schema document %s", path), err)
		}

		var schema Schema
		if err := decodeStrict(name, data, &schema); err != nil {
			return nil, cimerrors.NewMalformedModel(fmt.Sprintf("schema document %s is not valid", path), err)
		}
		if schema.SchemaVersion != SupportedSchemaVersion {
			return nil, cimerrors.NewMalformedModel(
				fmt.Sprintf("unsupported schemaVersion %d in %s (supported: %d)",
					schema.SchemaVersion, path, SupportedSchemaVersion), nil)
		}

		if len(schema.ArtifactKinds) == 0 {
			schema.ArtifactKinds = DefaultArtifactKinds()
		}
		if len(schema.EdgeKinds) == 0 {
			schema.EdgeKinds = DefaultEdgeKinds()
		}
		if len(schema.EdgeWeights) == 0 {
			schema.EdgeWeights = DefaultEdgeWeights()
		}
		return &schema, nil
	}

	return nil, cimerrors.NewModelNotFound(dir)
}

func loadInstance(dir string, schema *Schema) (*Instance, string, error) {
	candidates := instanceCandidates
	if schema.Instance != "" {
		candidates = []string{schema.Instance}
	}

	for _, name := range candidates {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, "", cimerrors.NewMalformedModel(fmt.Sprintf("cannot read instance document %s", path), err)
		}

		if strings.HasSuffix(name, ".zst") {
			data, err = decompress(data)
			if err != nil {
				return nil, "", cimerrors.NewMalformedModel(fmt.Sprintf("cannot decompress %s", path), err)
			}
			name = strings.TrimSuffix(name, ".zst")
		}

		var instance Instance
		if err := decodeStrict(name, data, &instance); err != nil {
			return nil, "", cimerrors.NewMalformedModel(fmt.Sprintf("instance document %s is not valid", path), err)
		}
		return &instance, path, nil
	}

	return nil, "", cimerrors.NewModelNotFound(dir)
}

// decodeStrict parses a model document, rejecting unknown fields. Model
// documents come from a duck-typed producer, so anything loosely shaped is
// an error rather than something to repair.
func decodeStrict(name string, data []byte, v interface{}) error {
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(v)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func decompress(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// build validates the instance against the schema vocabulary and assembles
// the indexed model. Any violation is a model-integrity error, surfaced
// immediately and never silently repaired.
func build(schema *Schema, instance *Instance) (*Model, error) {
	artifactKinds := toSet(schema.ArtifactKinds)
	edgeKinds := toSet(schema.EdgeKinds)
	edgeWeights := toSet(schema.EdgeWeights)

	m := &Model{
		Schema:      schema,
		GeneratedAt: instance.GeneratedAt,
		Generator:   instance.Generator,
		Artifacts:   make([]*Artifact, 0, len(instance.Artifacts)),
		Edges:       make([]Edge, 0, len(instance.Dependencies)),
		Flows:       instance.Flows,
	}

	seen := make(map[string]bool, len(instance.Artifacts))
	for i := range instance.Artifacts {
		a := instance.Artifacts[i]
		if a.Path == "" {
			return nil, cimerrors.NewMalformedModel(fmt.Sprintf("artifact %d has no path", i), nil)
		}
		if seen[a.Path] {
			return nil, cimerrors.NewMalformedModel(fmt.Sprintf("duplicate artifact path %q", a.Path), nil)
		}
		seen[a.Path] = true
		if a.Summary == "" {
			return nil, cimerrors.NewMalformedModel(fmt.Sprintf("artifact %q has no summary", a.Path), nil)
		}
		if !artifactKinds[string(a.Kind)] {
			return nil, cimerrors.NewMalformedModel(
				fmt.Sprintf("artifact %q has unknown kind %q", a.Path, a.Kind), nil)
		}
		m.Artifacts = append(m.Artifacts, &instance.Artifacts[i])
	}

	for i, e := range instance.Dependencies {
		if e.From == "" || e.To == "" {
			return nil, cimerrors.NewMalformedModel(fmt.Sprintf("dependency %d is missing an endpoint", i), nil)
		}
		if !seen[e.From] {
			return nil, cimerrors.NewMalformedModel(
				fmt.Sprintf("dependency %q -> %q references unknown artifact %q", e.From, e.To, e.From), nil)
		}
		if !seen[e.To] {
			return nil, cimerrors.NewMalformedModel(
				fmt.Sprintf("dependency %q -> %q references unknown artifact %q", e.From, e.To, e.To), nil)
		}
		if !edgeKinds[string(e.Kind)] {
			return nil, cimerrors.NewMalformedModel(
				fmt.Sprintf("dependency %q -> %q has unknown kind %q", e.From, e.To, e.Kind), nil)
		}
		if e.Weight == "" {
			e.Weight = WeightNormal
		}
		if !edgeWeights[string(e.Weight)] {
			return nil, cimerrors.NewMalformedModel(
				fmt.Sprintf("dependency %q -> %q has unknown weight %q", e.From, e.To, e.Weight), nil)
		}
		m.Edges = append(m.Edges, e)
	}

	for i, f := range instance.Flows {
		if f.Name == "" {
			return nil, cimerrors.NewMalformedModel(fmt.Sprintf("flow %d has no name", i), nil)
		}
	}

	m.buildIndices()
	return m, nil
}

// FromInstance assembles a model directly from an in-memory instance using
// the default vocabulary. Callers that load from disk use Load; this entry
// point serves embedders and tests.
func FromInstance(instance *Instance) (*Model, error) {
	schema := &Schema{
		SchemaVersion: SupportedSchemaVersion,
		ArtifactKinds: DefaultArtifactKinds(),
		EdgeKinds:     DefaultEdgeKinds(),
		EdgeWeights:   DefaultEdgeWeights(),
	}
	return build(schema, instance)
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
