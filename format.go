package deptree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// PrintTree writes an indented text rendering of the tree to w, one node
// per line:
//
//	-BL16I-MO-IOC-01: work (/dls_sw/work/R3.14.12.3/ioc/BL16I/MO)
//	 |-motor: 6-9 (/dls_sw/prod/R3.14.12.3/support/motor/6-9)
func (t *Tree) PrintTree(w io.Writer) error {
	return t.printTree(w, 0)
}

func (t *Tree) printTree(w io.Writer, depth int) error {
	indent := ""
	for range depth {
		indent += " |"
	}
	if _, err := fmt.Fprintf(w, "%s-%s: %s (%s)\n", indent, t.Name, t.Version, t.Path); err != nil {
		return err
	}
	for _, child := range t.Children {
		if err := child.printTree(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Format returns the PrintTree rendering as a string.
func (t *Tree) Format() string {
	var buf bytes.Buffer
	_ = t.PrintTree(&buf) // cannot fail on a bytes.Buffer
	return buf.String()
}

// ToJSON renders the tree as indented JSON: name, version, path and
// children per node.
func (t *Tree) ToJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToDOT renders the tree in Graphviz DOT format. Nodes are keyed by
// module path so a module pinned twice at the same version collapses to
// one node, while clashing versions stay visibly separate.
func (t *Tree) ToDOT() string {
	var buf bytes.Buffer

	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box];\n\n")

	declared := make(map[string]bool)
	for _, node := range t.Flatten(true, false) {
		if declared[node.Path] {
			continue
		}
		declared[node.Path] = true
		label := fmt.Sprintf("%s\\n%s", node.Name, node.Version)
		attrs := fmt.Sprintf(`label="%s"`, label)
		if node.parent == nil {
			attrs += ", style=bold"
		}
		buf.WriteString(fmt.Sprintf("  %q [%s];\n", node.Path, attrs))
	}

	buf.WriteString("\n")

	edges := make(map[string]bool)
	for _, node := range t.Flatten(true, false) {
		for _, child := range node.Children {
			edge := fmt.Sprintf("  %q -> %q;\n", node.Path, child.Path)
			if edges[edge] {
				continue
			}
			edges[edge] = true
			buf.WriteString(edge)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}
