package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	cimerrors "cim/internal/errors"
)

type fakeResponse struct {
	Name  string   `json:"name" yaml:"name"`
	Items []string `json:"items" yaml:"items"`
}

func (f *fakeResponse) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(f.Items))
	for _, item := range f.Items {
		rows = append(rows, []string{f.Name, item})
	}
	return []string{"NAME", "ITEM"}, rows
}

func (f *fakeResponse) Tree() *Node {
	root := &Node{Label: f.Name}
	for _, item := range f.Items {
		root.Children = append(root.Children, &Node{Label: item})
	}
	return root
}

func (f *fakeResponse) PathList() []string {
	return f.Items
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Format
	}{
		{"", JSON},
		{"json", JSON},
		{"YAML", YAML},
		{"yml", YAML},
		{"table", Table},
		{"tree", Tree},
		{"paths", Paths},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil || got != c.want {
			t.Errorf("Parse(%q) = (%v, %v), want %v", c.in, got, err, c.want)
		}
	}

	_, err := Parse("xml")
	if cimerrors.CodeOf(err) != cimerrors.ValidationError {
		t.Errorf("Parse(xml) error = %v, want ValidationError", err)
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, JSON, &fakeResponse{Name: "x", Items: []string{"a"}})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var decoded fakeResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if decoded.Name != "x" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, YAML, &fakeResponse{Name: "x", Items: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "name: x") {
		t.Errorf("yaml output missing fields:\n%s", buf.String())
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Table, &fakeResponse{Name: "x", Items: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"NAME", "ITEM", "a", "b"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTree(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Tree, &fakeResponse{Name: "root", Items: []string{"leaf"}})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "root") || !strings.Contains(buf.String(), "leaf") {
		t.Errorf("tree output missing nodes:\n%s", buf.String())
	}
}

func TestRenderPaths(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Paths, &fakeResponse{Name: "x", Items: []string{"a/b.js", "c/d.js"}})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.String() != "a/b.js\nc/d.js\n" {
		t.Errorf("paths output = %q", buf.String())
	}
}

func TestRenderFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, Table, map[string]int{"n": 1})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var decoded map[string]int
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("fallback is not JSON: %v\n%s", err, buf.String())
	}
}
