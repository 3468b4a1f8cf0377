package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"cim/internal/command"
	"cim/internal/config"
	"cim/internal/model"
	"cim/internal/slogutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	m, err := model.FromInstance(&model.Instance{
		Artifacts: []model.Artifact{
			{
				Path:    "src/main.js",
				Kind:    model.KindModule,
				Summary: "Entry point",
				Tags:    []string{"core"},
				Size:    40,
			},
			{
				Path:    "src/pluginManager.js",
				Kind:    model.KindModule,
				Summary: "Handles plugin activation",
				Tags:    []string{"core", "plugins"},
				Size:    120,
			},
		},
		Dependencies: []model.Edge{
			{From: "src/main.js", To: "src/pluginManager.js", Kind: model.EdgeImports, Weight: model.WeightCritical},
		},
	})
	if err != nil {
		t.Fatalf("FromInstance failed: %v", err)
	}
	service := command.FromModel(m, config.DefaultConfig(), t.TempDir(), slogutil.NewDiscardLogger())
	return NewServer(service, "test", slogutil.NewDiscardLogger())
}

// run feeds newline-delimited requests to the server and returns one
// decoded response per output line.
func run(t *testing.T, s *Server, lines ...string) []Message {
	t.Helper()
	var out bytes.Buffer
	s.SetStreams(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var responses []Message
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, line)
		}
		responses = append(responses, msg)
	}
	return responses
}

// toolText extracts the envelope text block from a tools/call result.
func toolText(t *testing.T, msg Message) map[string]interface{} {
	t.Helper()
	result, ok := msg.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result = %v, want object", msg.Result)
	}
	content, ok := result["content"].([]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content = %v, want one block", result["content"])
	}
	block := content[0].(map[string]interface{})
	if block["type"] != "text" {
		t.Fatalf("block type = %v, want text", block["type"])
	}
	var env map[string]interface{}
	if err := json.Unmarshal([]byte(block["text"].(string)), &env); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}
	return env
}

func TestInitialize(t *testing.T) {
	responses := run(t, testServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"clientInfo":{"name":"test"}}}`)

	if len(responses) != 1 {
		t.Fatalf("responses = %v, want 1", responses)
	}
	result := responses[0].Result.(map[string]interface{})
	if result["protocolVersion"] != protocolVersion {
		t.Errorf("protocolVersion = %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]interface{})
	if info["name"] != "cim" || info["version"] != "test" {
		t.Errorf("serverInfo = %v", info)
	}
}

func TestToolsList(t *testing.T) {
	responses := run(t, testServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	result := responses[0].Result.(map[string]interface{})
	tools := result["tools"].([]interface{})
	if len(tools) != 9 {
		t.Fatalf("tools = %d, want 9", len(tools))
	}
	names := make(map[string]bool)
	for _, raw := range tools {
		tool := raw.(map[string]interface{})
		names[tool["name"].(string)] = true
		if tool["inputSchema"] == nil {
			t.Errorf("tool %v missing inputSchema", tool["name"])
		}
	}
	for _, want := range []string{"peek", "focus", "search", "trace", "deps", "stats", "diff", "query", "status"} {
		if !names[want] {
			t.Errorf("tool catalog missing %s", want)
		}
	}
}

func TestCallToolPeek(t *testing.T) {
	responses := run(t, testServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"peek","arguments":{"path":"src/pluginManager.js"}}}`)

	env := toolText(t, responses[0])
	if env["error"] != nil {
		t.Fatalf("envelope error = %v", env["error"])
	}
	data := env["data"].(map[string]interface{})
	if data["path"] != "src/pluginManager.js" || data["depCount"] != float64(1) {
		t.Errorf("data = %v", data)
	}
}

func TestCallToolCommandErrorStaysInEnvelope(t *testing.T) {
	responses := run(t, testServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"peek","arguments":{"path":"src/missing.js"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"stats","arguments":{}}}`)

	if len(responses) != 2 {
		t.Fatalf("responses = %d, want 2", len(responses))
	}
	if responses[0].Error != nil {
		t.Fatal("artifact-not-found must be an envelope error, not a protocol error")
	}
	env := toolText(t, responses[0])
	errInfo := env["error"].(map[string]interface{})
	if errInfo["code"] != "ARTIFACT_NOT_FOUND" {
		t.Errorf("error code = %v", errInfo["code"])
	}
	// The session must keep serving requests.
	if responses[1].Error != nil {
		t.Errorf("followup failed: %v", responses[1].Error)
	}
}

func TestUnknownToolIsProtocolError(t *testing.T) {
	responses := run(t, testServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"mindRead","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"peek","arguments":{"path":"src/main.js"}}}`)

	if len(responses) != 2 {
		t.Fatalf("responses = %d, want 2", len(responses))
	}
	if responses[0].Error == nil || responses[0].Error.Code != InvalidParams {
		t.Errorf("error = %v, want InvalidParams for unknown tool", responses[0].Error)
	}
	env := toolText(t, responses[1])
	if env["error"] != nil {
		t.Errorf("valid call after unknown tool failed: %v", env["error"])
	}
}

func TestMalformedLineDoesNotKillSession(t *testing.T) {
	responses := run(t, testServer(t),
		`this is not json`,
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`)

	if len(responses) != 2 {
		t.Fatalf("responses = %d, want parse error plus pong", len(responses))
	}
	if responses[0].Error == nil || responses[0].Error.Code != ParseError {
		t.Errorf("error = %v, want ParseError", responses[0].Error)
	}
	if responses[1].Error != nil {
		t.Errorf("ping after bad line failed: %v", responses[1].Error)
	}
}

func TestUnknownMethod(t *testing.T) {
	responses := run(t, testServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"timeTravel"}`)

	if responses[0].Error == nil || responses[0].Error.Code != MethodNotFound {
		t.Errorf("error = %v, want MethodNotFound", responses[0].Error)
	}
}

func TestNotificationsProduceNoResponse(t *testing.T) {
	responses := run(t, testServer(t),
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`)

	if len(responses) != 1 {
		t.Fatalf("responses = %d, want only the ping reply", len(responses))
	}
	if responses[0].Id != float64(1) {
		t.Errorf("id = %v, want 1", responses[0].Id)
	}
}

func TestResources(t *testing.T) {
	responses := run(t, testServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"cim://status"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"cim://artifact/src/main.js"}}`)

	list := responses[0].Result.(map[string]interface{})
	if len(list["resources"].([]interface{})) == 0 {
		t.Error("resource catalog is empty")
	}

	read := responses[1].Result.(map[string]interface{})
	contents := read["contents"].([]interface{})
	if len(contents) != 1 {
		t.Fatalf("contents = %v", contents)
	}
	var status map[string]interface{}
	text := contents[0].(map[string]interface{})["text"].(string)
	if err := json.Unmarshal([]byte(text), &status); err != nil {
		t.Fatalf("status is not JSON: %v", err)
	}
	if status["artifacts"] != float64(2) {
		t.Errorf("status = %v", status)
	}

	if responses[2].Error != nil {
		t.Errorf("artifact read failed: %v", responses[2].Error)
	}
}
