package ir

import (
	"fmt"
	"strings"
)

// String renders the graph in the textual form accepted by weft's
// parser, so printing and reparsing a graph yields the same structure.
func (g *Graph) String() string {
	var b strings.Builder
	writeGraph(&b, g, "graph", 0)
	return b.String()
}

func writeGraph(b *strings.Builder, g *Graph, header string, indent int) {
	pad := strings.Repeat(" ", indent)
	b.WriteString(pad + header + "(")
	writeParams(b, g.Inputs())
	b.WriteString("):\n")
	writeBlockBody(b, g.block, indent+2, header == "graph")
}

func writeParams(b *strings.Builder, params []*Value) {
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%%%s : %s", p.Name(), p.Type())
	}
}

func writeBlockBody(b *strings.Builder, blk *Block, indent int, root bool) {
	pad := strings.Repeat(" ", indent)
	for _, n := range blk.Nodes() {
		b.WriteString(pad + n.statement() + "\n")
		for i, sub := range n.blocks {
			fmt.Fprintf(b, "%s  block%d(", pad, i)
			writeParams(b, sub.Inputs())
			b.WriteString("):\n")
			writeBlockBody(b, sub, indent+4, false)
		}
		if n.subgraph != nil {
			writeGraph(b, n.subgraph, "subgraph", indent+2)
		}
	}
	if root {
		b.WriteString(pad + "return (")
	} else {
		b.WriteString(pad + "-> (")
	}
	for i, o := range blk.Outputs() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("%" + o.Name())
	}
	b.WriteString(")\n")
}

func (n *Node) statement() string {
	var b strings.Builder
	for i, o := range n.outputs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%%%s : %s", o.Name(), o.Type())
	}
	if len(n.outputs) > 0 {
		b.WriteString(" = ")
	}
	b.WriteString(string(n.kind))
	if len(n.attrs) > 0 {
		parts := make([]string, len(n.attrs))
		for i, a := range n.attrs {
			parts[i] = a.name + "=" + a.value
		}
		b.WriteString("[" + strings.Join(parts, ", ") + "]")
	}
	b.WriteString("(")
	for i, in := range n.inputs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("%" + in.Name())
	}
	b.WriteString(")")
	return b.String()
}
