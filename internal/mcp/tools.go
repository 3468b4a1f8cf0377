package mcp

import (
	"context"

	"cim/internal/command"
	"cim/internal/envelope"
	"cim/internal/query"
)

// Tool describes one entry of the tool catalog.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns the fixed tool catalog: one tool per
// command-layer operation.
func (s *Server) GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "peek",
			Description: "Get the one-line identity card of an artifact: kind, summary, tags, exports, size, and dependency count",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Artifact path as recorded in the model",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "focus",
			Description: "Get the full dossier of an artifact: peek fields plus intent, children, incident dependencies, and referencing flows",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Artifact path as recorded in the model",
					},
					"include": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string", "enum": []string{"deps", "flows", "children"}},
						"description": "Sections to include; empty means all",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "search",
			Description: "Structured search over artifacts. All supplied criteria are ANDed: tags, kind, name glob, prose substring, exported symbol, has-children",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tags": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Tags the artifact must all carry",
					},
					"kind": map[string]interface{}{
						"type":        "string",
						"description": "Artifact kind, e.g. module, function, class, test, config",
					},
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Glob pattern matched against the path or base name",
					},
					"prose": map[string]interface{}{
						"type":        "string",
						"description": "Case-insensitive substring matched against summary and intent",
					},
					"exports": map[string]interface{}{
						"type":        "string",
						"description": "Exact exported symbol name",
					},
					"hasChildren": map[string]interface{}{
						"type":        "boolean",
						"description": "Require (or forbid) nested children",
					},
					"matchAll": map[string]interface{}{
						"type":        "boolean",
						"description": "Allow an empty search that returns every artifact",
					},
				},
			},
		},
		{
			Name:        "trace",
			Description: "Breadth-first dependency trace from an artifact, bounded by depth, direction, and edge kind",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Root artifact path",
					},
					"direction": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"forward", "backward", "both"},
						"default":     "forward",
						"description": "Edge direction to follow",
					},
					"kind": map[string]interface{}{
						"type":        "string",
						"description": "Edge kind filter, or all",
					},
					"depth": map[string]interface{}{
						"type":        "integer",
						"default":     2,
						"description": "Maximum hop count from the root",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "deps",
			Description: "List the direct dependencies of an artifact, split into incoming and outgoing",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Artifact path",
					},
					"direction": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"incoming", "outgoing", "both"},
						"default":     "both",
						"description": "Which side of the adjacency to return",
					},
					"kind": map[string]interface{}{
						"type":        "string",
						"description": "Edge kind filter, or all",
					},
					"weight": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"critical", "normal", "weak"},
						"description": "Edge weight filter",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "stats",
			Description: "Model-wide aggregates: counts by kind and weight, flow count, prose coverage, top tags, most-connected artifacts, orphans",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "diff",
			Description: "Report drift between the model and the repository: new files, deleted files, and size-drifted files",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"since": map[string]interface{}{
						"type":        "string",
						"description": "Git reference to compare against instead of the working tree",
					},
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "Drift threshold in percent; defaults to the configured value",
					},
				},
			},
		},
		{
			Name:        "query",
			Description: "Free-text relevance query over the model. mode=local is deterministic in-process scoring; mode=ai delegates ranking to the configured reasoning backend and degrades to local on failure",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"task": map[string]interface{}{
						"type":        "string",
						"description": "What you are trying to accomplish, in plain language",
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"local", "ai"},
						"default":     "local",
						"description": "Ranking mode",
					},
					"maxResults": map[string]interface{}{
						"type":        "integer",
						"description": "Result cap; defaults to the configured value",
					},
				},
				"required": []string{"task"},
			},
		},
		{
			Name:        "status",
			Description: "Describe the loaded model: schema version, generator, counts, and the configured AI backend",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// callTool dispatches a tool call to the command layer. Returns
// ok=false when the tool name is unknown, which the caller reports as
// a JSON-RPC error. Command-level failures are wrapped in an error
// envelope instead, so the protocol call itself still succeeds.
func (s *Server) callTool(ctx context.Context, name string, args map[string]interface{}) (*envelope.Response, bool) {
	switch name {
	case "peek":
		resp, err := s.service.Peek(stringArg(args, "path"))
		return wrap(resp, err), true
	case "focus":
		resp, err := s.service.Focus(command.FocusOptions{
			Path:    stringArg(args, "path"),
			Include: stringsArg(args, "include"),
		})
		return wrap(resp, err), true
	case "search":
		opts := query.SearchOptions{
			Tags:        stringsArg(args, "tags"),
			Kind:        stringArg(args, "kind"),
			NamePattern: stringArg(args, "name"),
			Prose:       stringArg(args, "prose"),
			Export:      stringArg(args, "exports"),
			MatchAll:    boolArg(args, "matchAll"),
		}
		if v, ok := args["hasChildren"].(bool); ok {
			opts.HasChildren = &v
		}
		resp, err := s.service.Search(opts)
		return wrap(resp, err), true
	case "trace":
		resp, err := s.service.Trace(command.TraceOptions{
			Path:      stringArg(args, "path"),
			Direction: stringArg(args, "direction"),
			Kind:      stringArg(args, "kind"),
			Depth:     intArg(args, "depth", 2),
		})
		return wrap(resp, err), true
	case "deps":
		resp, err := s.service.Deps(command.DepsOptions{
			Path:      stringArg(args, "path"),
			Direction: stringArg(args, "direction"),
			Kind:      stringArg(args, "kind"),
			Weight:    stringArg(args, "weight"),
		})
		return wrap(resp, err), true
	case "stats":
		resp, err := s.service.Stats()
		return wrap(resp, err), true
	case "diff":
		resp, err := s.service.Diff(ctx, command.DiffOptions{
			SinceRef:         stringArg(args, "since"),
			ThresholdPercent: floatArg(args, "threshold"),
		})
		return wrap(resp, err), true
	case "query":
		resp, err := s.service.Query(ctx, command.QueryOptions{
			Task:       stringArg(args, "task"),
			Mode:       stringArg(args, "mode"),
			MaxResults: intArg(args, "maxResults", 0),
		})
		if err != nil {
			return envelope.Err(err), true
		}
		env := envelope.OK(resp)
		if resp.Degraded {
			env.MarkDegraded().WithWarning("AI_QUERY_FAILURE",
				"ai ranking unavailable, returning local results")
		}
		return env, true
	case "status":
		resp, err := s.service.Status()
		return wrap(resp, err), true
	}
	return nil, false
}

func wrap(data interface{}, err error) *envelope.Response {
	if err != nil {
		return envelope.Err(err)
	}
	return envelope.OK(data)
}

// JSON numbers decode as float64; these helpers coerce tool arguments
// to the types the command layer expects.

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]interface{}, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func intArg(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func floatArg(args map[string]interface{}, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func stringsArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
