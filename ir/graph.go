package ir

import "strconv"

// Graph owns a tree of blocks and the values flowing between their
// nodes. Subgraphs held by FusionGroup-style nodes are separate Graphs.
type Graph struct {
	block  *Block
	nextID int
	values []*Value
	byName map[string]*Value
}

// NewGraph returns an empty graph with a root block.
func NewGraph() *Graph {
	g := &Graph{byName: make(map[string]*Value)}
	g.block = newBlock(g, nil)
	return g
}

// Block returns the graph's root block.
func (g *Graph) Block() *Block { return g.block }

// Inputs returns the graph's input values.
func (g *Graph) Inputs() []*Value { return g.block.Inputs() }

// Outputs returns the graph's output values.
func (g *Graph) Outputs() []*Value { return g.block.Outputs() }

// AddInput adds a graph input of the given type.
func (g *Graph) AddInput(t Type) *Value { return g.block.AddInput(t) }

// RegisterOutput appends v to the graph's outputs.
func (g *Graph) RegisterOutput(v *Value) { g.block.RegisterOutput(v) }

// Create returns a new unattached node of the given kind. Use Append,
// Prepend, InsertBefore, or InsertAfter to place it in a block.
func (g *Graph) Create(kind Symbol) *Node {
	return g.newNode(kind)
}

// Values returns every value created in this graph, in creation order.
func (g *Graph) Values() []*Value { return g.values }

// FindValue looks a value up by debug name, falling back to numeric id
// for unnamed values.
func (g *Graph) FindValue(name string) *Value {
	if v, ok := g.byName[name]; ok {
		return v
	}
	id, err := strconv.Atoi(name)
	if err != nil {
		return nil
	}
	for _, v := range g.values {
		if v.name == "" && v.id == id {
			return v
		}
	}
	return nil
}

func (g *Graph) newNode(kind Symbol) *Node {
	return &Node{kind: kind, graph: g}
}

func (g *Graph) newValue(n *Node, offset int, t Type) *Value {
	v := &Value{id: g.nextID, typ: t, node: n, offset: offset}
	g.nextID++
	g.values = append(g.values, v)
	return v
}
