package ir

import (
	"fmt"
	"math"
	"strconv"
)

// Directions for walking a block's node ring.
const (
	PrevDirection = 0
	NextDirection = 1
)

// Nodes get topological positions spaced topoGap apart so that inserts
// between neighbors rarely force a renumbering.
const topoGap = int64(1) << 40

const (
	topoLowerBound = math.MinInt64 / 4
	topoUpperBound = math.MaxInt64 / 4
)

type attribute struct {
	name  string
	value string
}

// Node is one operation: ordered inputs, ordered outputs, an owning
// block, and optionally nested blocks, attributes, a subgraph, and a
// schema.
type Node struct {
	kind     Symbol
	graph    *Graph
	block    *Block
	inputs   []*Value
	outputs  []*Value
	blocks   []*Block
	attrs    []attribute
	subgraph *Graph
	schema   *FunctionSchema

	link    [2]*Node
	topoPos int64
}

// Kind returns the node's operator symbol.
func (n *Node) Kind() Symbol { return n.kind }

// OwningGraph returns the graph this node belongs to.
func (n *Node) OwningGraph() *Graph { return n.graph }

// OwningBlock returns the block this node is linked into, or nil if the
// node is not yet inserted.
func (n *Node) OwningBlock() *Block { return n.block }

// Inputs returns the node's input values in order.
func (n *Node) Inputs() []*Value { return n.inputs }

// Input returns the i'th input.
func (n *Node) Input(i int) *Value { return n.inputs[i] }

// Outputs returns the node's output values in order.
func (n *Node) Outputs() []*Value { return n.outputs }

// Output returns the i'th output.
func (n *Node) Output(i int) *Value { return n.outputs[i] }

// Blocks returns the node's nested blocks in order.
func (n *Node) Blocks() []*Block { return n.blocks }

// Schema returns the schema resolved for this node, or nil.
func (n *Node) Schema() *FunctionSchema { return n.schema }

// SetSchema attaches a resolved schema.
func (n *Node) SetSchema(s *FunctionSchema) { n.schema = s }

// Subgraph returns the node's subgraph attribute, or nil.
func (n *Node) Subgraph() *Graph { return n.subgraph }

// SetSubgraph attaches a subgraph.
func (n *Node) SetSubgraph(g *Graph) { n.subgraph = g }

// AddInput appends v to the node's inputs and records the use.
func (n *Node) AddInput(v *Value) *Value {
	v.uses = append(v.uses, Use{User: n, Offset: len(n.inputs)})
	n.inputs = append(n.inputs, v)
	return v
}

// AddOutput appends a new output value of the given type.
func (n *Node) AddOutput(t Type) *Value {
	v := n.graph.newValue(n, len(n.outputs), t)
	n.outputs = append(n.outputs, v)
	return v
}

// AddBlock appends a new nested block owned by this node.
func (n *Node) AddBlock() *Block {
	b := newBlock(n.graph, n)
	n.blocks = append(n.blocks, b)
	return b
}

// Attr returns the raw text of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.name == name {
			return a.value, true
		}
	}
	return "", false
}

// SetAttr sets the named attribute, replacing any previous value.
func (n *Node) SetAttr(name, value string) {
	for i, a := range n.attrs {
		if a.name == name {
			n.attrs[i].value = value
			return
		}
	}
	n.attrs = append(n.attrs, attribute{name: name, value: value})
}

// IntAttr parses the named attribute as an integer.
func (n *Node) IntAttr(name string) (int64, bool) {
	raw, ok := n.Attr(name)
	if !ok {
		return 0, false
	}
	i, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// SetIntAttr sets the named attribute to an integer value.
func (n *Node) SetIntAttr(name string, value int64) {
	n.SetAttr(name, strconv.FormatInt(value, 10))
}

// NextInDirection returns the ring neighbor in the given direction
// (PrevDirection or NextDirection).
func (n *Node) NextInDirection(d int) *Node { return n.link[d] }

// Next returns the node after n in its block, which may be the block's
// Return sentinel.
func (n *Node) Next() *Node { return n.link[NextDirection] }

// Prev returns the node before n in its block, which may be the block's
// Param sentinel.
func (n *Node) Prev() *Node { return n.link[PrevDirection] }

// IsBefore reports whether n executes before m. Nodes in different
// blocks are compared through their enclosing nodes.
func (n *Node) IsBefore(m *Node) bool { return n.isBeforeOrAfter(m, false) }

// IsAfter reports whether n executes after m.
func (n *Node) IsAfter(m *Node) bool { return n.isBeforeOrAfter(m, true) }

func (n *Node) isBeforeOrAfter(m *Node, after bool) bool {
	if n.block == m.block {
		if after {
			return n.topoPos > m.topoPos
		}
		return n.topoPos < m.topoPos
	}
	// Walk both block chains upward until a common block is found.
	for lhs := n; lhs != nil; {
		for rhs := m; rhs != nil; {
			if rhs.block == nil {
				break
			}
			if lhs.block == rhs.block {
				return lhs.isBeforeOrAfter(rhs, after)
			}
			rhs = rhs.block.owner
		}
		if lhs.block == nil {
			break
		}
		lhs = lhs.block.owner
	}
	panic(fmt.Sprintf("weft/ir: nodes %s and %s share no block", n.kind, m.kind))
}

// MoveAfter relinks n so it immediately follows p.
func (n *Node) MoveAfter(p *Node) {
	if n == p {
		return
	}
	n.unlink()
	n.insertAfter(p)
}

// MoveBefore relinks n so it immediately precedes p.
func (n *Node) MoveBefore(p *Node) {
	if n == p {
		return
	}
	n.unlink()
	n.insertAfter(p.link[PrevDirection])
}

// InsertAfter links an unattached node into p's block right after p.
func (n *Node) InsertAfter(p *Node) {
	if n.block != nil {
		panic("weft/ir: node already inserted")
	}
	n.insertAfter(p)
}

// InsertBefore links an unattached node into p's block right before p.
func (n *Node) InsertBefore(p *Node) {
	if n.block != nil {
		panic("weft/ir: node already inserted")
	}
	n.insertAfter(p.link[PrevDirection])
}

func (n *Node) insertAfter(p *Node) {
	if p.block == nil {
		panic("weft/ir: insertion point not in a block")
	}
	next := p.link[NextDirection]
	n.link[PrevDirection] = p
	n.link[NextDirection] = next
	p.link[NextDirection] = n
	next.link[PrevDirection] = n
	n.block = p.block
	n.assignTopoPosition()
}

func (n *Node) unlink() {
	if n.block == nil {
		panic("weft/ir: node not inserted")
	}
	n.link[PrevDirection].link[NextDirection] = n.link[NextDirection]
	n.link[NextDirection].link[PrevDirection] = n.link[PrevDirection]
	n.link[PrevDirection] = nil
	n.link[NextDirection] = nil
	n.block = nil
}

func (n *Node) assignTopoPosition() {
	lo := n.link[PrevDirection].topoPos
	hi := n.link[NextDirection].topoPos
	if lo+1 >= hi {
		// No room between the neighbors; respace the whole block.
		n.block.reindex()
		return
	}
	n.topoPos = lo + (hi-lo)/2
}

// String renders the node as a single statement line, e.g.
// "%c : Tensor = aten::add_(%a, %b)".
func (n *Node) String() string {
	return n.statement()
}
