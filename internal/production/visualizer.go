package production

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/comalice/embedx"
)

// DefaultVisualizer renders the embedx lifecycle.
type DefaultVisualizer struct{}

// ExportDOT generates Graphviz DOT source for the lifecycle, highlighting
// current.
func (v *DefaultVisualizer) ExportDOT(current embedx.State) string {
	var buf bytes.Buffer
	buf.WriteString(`digraph Lifecycle {
  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	for _, s := range embedx.States() {
		attrs := ""
		switch {
		case s == current:
			attrs = ` style="rounded,filled" fillcolor=lightgreen`
		case s.Terminal():
			attrs = ` shape=doublecircle`
		}
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", s.String(), s.String(), attrs)
	}

	for _, e := range collectEdges() {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, e.Label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the transition table.
func (v *DefaultVisualizer) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(collectEdges(), "", "  ")
}

// Edge represents a transition edge. Events that share a source and target
// are merged into one label.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

func collectEdges() []Edge {
	var edges []Edge
	index := make(map[[2]embedx.State]int)
	for _, t := range embedx.Transitions() {
		key := [2]embedx.State{t.From, t.To}
		if i, ok := index[key]; ok {
			if edges[i].Label != t.Event {
				edges[i].Label += "|" + t.Event
			}
			continue
		}
		index[key] = len(edges)
		edges = append(edges, Edge{From: t.From.String(), To: t.To.String(), Label: t.Event})
	}
	return edges
}
