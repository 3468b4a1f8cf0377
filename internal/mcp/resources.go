package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"cim/internal/command"
)

// Resource is a static resource the client can read.
type Resource struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType,omitempty"`
}

// ResourceTemplate is a parameterized resource.
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType,omitempty"`
}

// GetResourceDefinitions returns the static resource catalog.
func (s *Server) GetResourceDefinitions() []Resource {
	return []Resource{
		{URI: "cim://status", Name: "Model Status", MimeType: "application/json"},
		{URI: "cim://stats", Name: "Model Statistics", MimeType: "application/json"},
	}
}

// GetResourceTemplates returns the parameterized resource catalog.
func (s *Server) GetResourceTemplates() []ResourceTemplate {
	return []ResourceTemplate{
		{URITemplate: "cim://artifact/{path}", Name: "Artifact", MimeType: "application/json"},
	}
}

// handleReadResource resolves a cim:// URI through the command layer.
func (s *Server) handleReadResource(msg *Message) *Message {
	params := paramsObject(msg)
	uri, ok := params["uri"].(string)
	if !ok || uri == "" {
		return NewErrorMessage(msg.Id, InvalidParams, "missing resource uri", nil)
	}

	s.logger.Debug("reading resource", "uri", uri)

	const scheme = "cim://"
	if !strings.HasPrefix(uri, scheme) {
		return NewErrorMessage(msg.Id, InvalidParams,
			"unsupported resource scheme, expected cim://", nil)
	}

	var payload interface{}
	var err error
	switch rest := strings.TrimPrefix(uri, scheme); {
	case rest == "status":
		payload, err = s.service.Status()
	case rest == "stats":
		payload, err = s.service.Stats()
	case strings.HasPrefix(rest, "artifact/"):
		payload, err = s.service.Focus(command.FocusOptions{
			Path: strings.TrimPrefix(rest, "artifact/"),
		})
	default:
		return NewErrorMessage(msg.Id, InvalidParams,
			fmt.Sprintf("unknown resource: %s", uri), nil)
	}
	if err != nil {
		return NewErrorMessage(msg.Id, InternalError, err.Error(), nil)
	}

	body, merr := json.Marshal(payload)
	if merr != nil {
		return NewErrorMessage(msg.Id, InternalError,
			fmt.Sprintf("encode resource: %v", merr), nil)
	}

	return NewResultMessage(msg.Id, map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"uri":      uri,
				"mimeType": "application/json",
				"text":     string(body),
			},
		},
	})
}
