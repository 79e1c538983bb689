package ir

// Block is an ordered sequence of nodes. Its inputs are produced by a
// Param sentinel node and its outputs are consumed by a Return sentinel;
// the sentinels bound the node ring.
type Block struct {
	graph *Graph
	owner *Node
	param *Node
	ret   *Node
}

func newBlock(g *Graph, owner *Node) *Block {
	b := &Block{graph: g, owner: owner}
	b.param = g.newNode(Param)
	b.ret = g.newNode(Return)
	b.param.block = b
	b.ret.block = b
	b.param.topoPos = topoLowerBound
	b.ret.topoPos = topoUpperBound
	b.param.link[NextDirection] = b.ret
	b.param.link[PrevDirection] = b.ret
	b.ret.link[PrevDirection] = b.param
	b.ret.link[NextDirection] = b.param
	return b
}

// OwningGraph returns the graph this block belongs to.
func (b *Block) OwningGraph() *Graph { return b.graph }

// OwningNode returns the node that owns this block, or nil for a graph's
// root block.
func (b *Block) OwningNode() *Node { return b.owner }

// ParamNode returns the sentinel that produces the block's inputs.
func (b *Block) ParamNode() *Node { return b.param }

// ReturnNode returns the sentinel that consumes the block's outputs.
func (b *Block) ReturnNode() *Node { return b.ret }

// Inputs returns the block's input values.
func (b *Block) Inputs() []*Value { return b.param.outputs }

// Outputs returns the block's output values.
func (b *Block) Outputs() []*Value { return b.ret.inputs }

// AddInput adds a block input of the given type.
func (b *Block) AddInput(t Type) *Value { return b.param.AddOutput(t) }

// RegisterOutput appends v to the block's outputs.
func (b *Block) RegisterOutput(v *Value) { b.ret.AddInput(v) }

// Append links an unattached node at the end of the block.
func (b *Block) Append(n *Node) *Node {
	n.InsertBefore(b.ret)
	return n
}

// Prepend links an unattached node at the start of the block.
func (b *Block) Prepend(n *Node) *Node {
	n.InsertAfter(b.param)
	return n
}

// Nodes returns the block's nodes in execution order, excluding the
// Param and Return sentinels.
func (b *Block) Nodes() []*Node {
	var nodes []*Node
	for n := b.param.link[NextDirection]; n != b.ret; n = n.link[NextDirection] {
		nodes = append(nodes, n)
	}
	return nodes
}

// reindex respaces the topological positions of the block's nodes.
func (b *Block) reindex() {
	pos := int64(0)
	for n := b.param.link[NextDirection]; n != b.ret; n = n.link[NextDirection] {
		n.topoPos = pos
		pos += topoGap
	}
}
