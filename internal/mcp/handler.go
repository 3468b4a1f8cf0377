package mcp

import (
	"encoding/json"
	"fmt"
)

// handleMessage processes one incoming message. Notifications return
// nil; everything else returns exactly one response.
func (s *Server) handleMessage(msg *Message) *Message {
	if msg.IsRequest() {
		return s.handleRequest(msg)
	}
	if msg.IsNotification() {
		s.handleNotification(msg)
		return nil
	}
	return NewErrorMessage(msg.Id, InvalidRequest,
		"invalid message: not a request or notification", nil)
}

func (s *Server) handleRequest(msg *Message) *Message {
	s.logger.Debug("handling request", "method", msg.Method, "id", msg.Id)

	switch msg.Method {
	case "initialize":
		return NewResultMessage(msg.Id, s.handleInitialize(paramsObject(msg)))
	case "ping":
		return NewResultMessage(msg.Id, map[string]interface{}{})
	case "tools/list":
		return NewResultMessage(msg.Id, map[string]interface{}{
			"tools": s.GetToolDefinitions(),
		})
	case "tools/call":
		return s.handleCallTool(msg)
	case "resources/list":
		return NewResultMessage(msg.Id, map[string]interface{}{
			"resources":         s.GetResourceDefinitions(),
			"resourceTemplates": s.GetResourceTemplates(),
		})
	case "resources/read":
		return s.handleReadResource(msg)
	default:
		return NewErrorMessage(msg.Id, MethodNotFound,
			fmt.Sprintf("method not found: %s", msg.Method), nil)
	}
}

func (s *Server) handleNotification(msg *Message) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("mcp client initialized")
	case "notifications/cancelled":
		s.logger.Debug("client cancelled a request")
	default:
		s.logger.Debug("ignoring notification", "method", msg.Method)
	}
}

// handleCallTool dispatches tools/call. An unknown tool name is a
// JSON-RPC error; a command-level failure is an error envelope inside
// a successful protocol response, so the session keeps going.
func (s *Server) handleCallTool(msg *Message) *Message {
	params := paramsObject(msg)

	name, ok := params["name"].(string)
	if !ok || name == "" {
		return NewErrorMessage(msg.Id, InvalidParams, "missing tool name", nil)
	}
	args, ok := params["arguments"].(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	s.logger.Info("calling tool", "tool", name)

	env, known := s.callTool(s.ctx, name, args)
	if !known {
		return NewErrorMessage(msg.Id, InvalidParams,
			fmt.Sprintf("unknown tool: %s", name), nil)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return NewErrorMessage(msg.Id, InternalError,
			fmt.Sprintf("encode tool result: %v", err), nil)
	}

	return NewResultMessage(msg.Id, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(body),
			},
		},
		"isError": env.IsError(),
	})
}

func paramsObject(msg *Message) map[string]interface{} {
	if params, ok := msg.Params.(map[string]interface{}); ok {
		return params
	}
	return map[string]interface{}{}
}
