package ir

import "strconv"

// Use records one consumption of a value: the consuming node and the
// input slot it occupies there.
type Use struct {
	User   *Node
	Offset int
}

// Value is an SSA value: produced by exactly one node (block parameters
// are produced by the block's Param sentinel) and consumed by zero or
// more uses.
type Value struct {
	id     int
	name   string
	typ    Type
	node   *Node
	offset int
	uses   []Use
}

// ID returns the value's graph-unique numeric id.
func (v *Value) ID() int { return v.id }

// Name returns the value's debug name, or its numeric id if unnamed.
func (v *Value) Name() string {
	if v.name != "" {
		return v.name
	}
	return strconv.Itoa(v.id)
}

// SetName assigns a debug name and indexes it on the owning graph.
func (v *Value) SetName(name string) {
	g := v.node.graph
	if v.name != "" {
		delete(g.byName, v.name)
	}
	v.name = name
	if name != "" {
		g.byName[name] = v
	}
}

// Type returns the value's static type.
func (v *Value) Type() Type { return v.typ }

// SetType replaces the value's static type.
func (v *Value) SetType(t Type) { v.typ = t }

// Node returns the producing node.
func (v *Value) Node() *Node { return v.node }

// Offset returns the value's index among the producing node's outputs.
func (v *Value) Offset() int { return v.offset }

// Uses returns all recorded consumptions of this value.
func (v *Value) Uses() []Use { return v.uses }
