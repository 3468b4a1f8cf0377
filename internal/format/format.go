// Package format renders command responses in the output formats the
// CLI and protocol server expose: structured JSON or YAML, a table, a
// tree, or a bare path list.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"
	"gopkg.in/yaml.v3"

	cimerrors "cim/internal/errors"
)

// Format selects an output rendering.
type Format string

const (
	JSON  Format = "json"
	YAML  Format = "yaml"
	Table Format = "table"
	Tree  Format = "tree"
	Paths Format = "paths"
)

// Parse maps a --format flag value to a Format. Empty defaults to JSON.
func Parse(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "table":
		return Table, nil
	case "tree":
		return Tree, nil
	case "paths":
		return Paths, nil
	}
	return "", cimerrors.NewValidationError("format",
		"must be json, yaml, table, tree, or paths, got "+s)
}

// Node is one node of a renderable tree.
type Node struct {
	Label    string
	Children []*Node
}

// Tabler is implemented by responses that render as a table.
type Tabler interface {
	Table() (headers []string, rows [][]string)
}

// Treer is implemented by responses that render as a tree.
type Treer interface {
	Tree() *Node
}

// Pather is implemented by responses that render as a bare path list.
type Pather interface {
	PathList() []string
}

// Render writes v to w in the requested format. Responses that do not
// support a table, tree, or paths rendering fall back to JSON.
func Render(w io.Writer, f Format, v interface{}) error {
	switch f {
	case YAML:
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	case Table:
		if t, ok := v.(Tabler); ok {
			return renderTable(w, t)
		}
	case Tree:
		if t, ok := v.(Treer); ok {
			return renderTree(w, t)
		}
	case Paths:
		if p, ok := v.(Pather); ok {
			for _, path := range p.PathList() {
				if _, err := fmt.Fprintln(w, path); err != nil {
					return err
				}
			}
			return nil
		}
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func renderTable(w io.Writer, t Tabler) error {
	headers, rows := t.Table()
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(w, tbl.String())
	return err
}

func renderTree(w io.Writer, t Treer) error {
	root := t.Tree()
	if root == nil {
		_, err := fmt.Fprintln(w, "(empty)")
		return err
	}
	_, err := fmt.Fprintln(w, buildTree(root).String())
	return err
}

func buildTree(n *Node) *tree.Tree {
	t := tree.Root(n.Label)
	for _, c := range n.Children {
		if len(c.Children) == 0 {
			t.Child(c.Label)
		} else {
			t.Child(buildTree(c))
		}
	}
	return t
}
