package alias

import (
	"fmt"

	"weft/ir"
)

// NodeSet is an unordered set of graph nodes.
type NodeSet map[*ir.Node]struct{}

// Contains reports set membership.
func (s NodeSet) Contains(n *ir.Node) bool {
	_, ok := s[n]
	return ok
}

// MayAlias reports whether a and b may share a memory location.
// Untracked values never alias. Both tracked values must have been
// assigned an element during analysis.
func (db *DB) MayAlias(a, b *ir.Value) bool {
	if !ShouldTrackValue(a) || !ShouldTrackValue(b) {
		return false
	}
	return db.dag.MayAlias(db.mustElement(a), db.mustElement(b))
}

// MayAliasSets reports whether any value in as may alias any value in
// bs. Values without an element are skipped.
func (db *DB) MayAliasSets(as, bs ValueSet) bool {
	if len(as) == 0 || len(bs) == 0 {
		return false
	}
	return db.dag.MayAliasSets(db.elementsOf(as), db.elementsOf(bs))
}

func (db *DB) elementsOf(vs ValueSet) []*Element {
	elems := make([]*Element, 0, len(vs))
	for v := range vs {
		if e := db.elementOf(v); e != nil {
			elems = append(elems, e)
		}
	}
	return elems
}

// cannotCheckAliasContainment reports whether v's contained values are
// opaque to the analysis. Only tuples built in-graph expose their
// contents; any other container could hold anything.
func (db *DB) cannotCheckAliasContainment(v *ir.Value) bool {
	if !IsContainerType(v.Type()) {
		return false
	}
	if v.Node().Kind() != ir.TupleConstruct {
		return true
	}
	for _, in := range v.Node().Inputs() {
		if db.cannotCheckAliasContainment(in) {
			return true
		}
	}
	return false
}

// MayContainAlias reports whether a, or anything a contains, may alias
// b or anything b contains.
func (db *DB) MayContainAlias(a, b *ir.Value) bool {
	return db.MayContainAliasSets([]*ir.Value{a}, []*ir.Value{b})
}

// MayContainAliasSets is the set form of MayContainAlias. If either
// side holds a container whose contents cannot be checked, the answer
// is a conservative true.
func (db *DB) MayContainAliasSets(as, bs []*ir.Value) bool {
	aElems := make([]*Element, 0, len(as))
	for _, v := range as {
		if db.cannotCheckAliasContainment(v) {
			return true
		}
		if ShouldTrackValue(v) {
			aElems = append(aElems, db.mustElement(v))
		}
	}
	if len(aElems) == 0 {
		return false
	}
	bElems := make([]*Element, 0, len(bs))
	for _, v := range bs {
		if db.cannotCheckAliasContainment(v) {
			return true
		}
		if ShouldTrackValue(v) {
			bElems = append(bElems, db.mustElement(v))
		}
	}
	return db.dag.MayContainAlias(aElems, bElems)
}

// HasWriters reports whether anything in the graph writes to a memory
// location v may occupy.
func (db *DB) HasWriters(v *ir.Value) bool {
	e := db.elementOf(v)
	if e == nil || v.Type().Kind() == ir.KindNone {
		return false
	}
	if db.writeCacheStale {
		db.rebuildWriteCache()
	}
	for _, loc := range db.dag.MemoryLocations(e) {
		if db.writeCache[loc] {
			return true
		}
	}
	return false
}

// HasWritersNode reports whether anything writes to an alias of one of
// n's inputs or outputs.
func (db *DB) HasWritersNode(n *ir.Node) bool {
	for _, in := range n.Inputs() {
		if db.HasWriters(in) {
			return true
		}
	}
	for _, out := range n.Outputs() {
		if db.HasWriters(out) {
			return true
		}
	}
	return false
}

func (db *DB) rebuildWriteCache() {
	cache := make(map[*Element]bool)
	for _, elems := range db.writtenElems {
		for _, e := range elems {
			for _, loc := range db.dag.MemoryLocations(e) {
				cache[loc] = true
			}
		}
	}
	db.writeCache = cache
	db.writeCacheStale = false
}

// GetWrites returns the values n writes to, optionally including writes
// inside nested blocks.
func (db *DB) GetWrites(n *ir.Node, recurse bool) ValueSet {
	writes := make(ValueSet)
	db.getWritesInto(n, writes, recurse)
	return writes
}

func (db *DB) getWritesInto(n *ir.Node, ret ValueSet, recurse bool) {
	for _, v := range db.writeOrder[n] {
		ret.add(v)
	}
	if recurse {
		for _, b := range n.Blocks() {
			for _, m := range b.Nodes() {
				db.getWritesInto(m, ret, recurse)
			}
		}
	}
}

// GetReads returns every value n reads, which conservatively is every
// input and output, optionally including nested blocks.
func (db *DB) GetReads(n *ir.Node, recurse bool) ValueSet {
	reads := make(ValueSet)
	db.getReadsInto(n, reads, recurse)
	return reads
}

func (db *DB) getReadsInto(n *ir.Node, ret ValueSet, recurse bool) {
	for _, in := range n.Inputs() {
		ret.add(in)
	}
	for _, out := range n.Outputs() {
		ret.add(out)
	}
	if recurse {
		for _, b := range n.Blocks() {
			for _, m := range b.Nodes() {
				db.getReadsInto(m, ret, recurse)
			}
		}
	}
}

// WritesToAlias reports whether n writes to an alias of any value in
// vs. Writes registered directly against wildcard buckets count.
func (db *DB) WritesToAlias(n *ir.Node, vs ValueSet, recurse bool) bool {
	return db.dag.MayAliasSets(db.WrittenElements(n, recurse), db.elementsOf(vs))
}

// WrittenElements returns the elements n writes to, wildcard buckets
// included, optionally recursing into nested blocks.
func (db *DB) WrittenElements(n *ir.Node, recurse bool) []*Element {
	var elems []*Element
	db.writtenElementsInto(n, &elems, recurse)
	return elems
}

func (db *DB) writtenElementsInto(n *ir.Node, ret *[]*Element, recurse bool) {
	*ret = append(*ret, db.writtenElems[n]...)
	if recurse {
		for _, b := range n.Blocks() {
			for _, m := range b.Nodes() {
				db.writtenElementsInto(m, ret, recurse)
			}
		}
	}
}

// ReadElements returns the elements behind the values n reads.
func (db *DB) ReadElements(n *ir.Node, recurse bool) []*Element {
	var elems []*Element
	for v := range db.GetReads(n, recurse) {
		if e := db.elementOf(v); e != nil {
			elems = append(elems, e)
		}
	}
	return elems
}

// MayAliasElements reports whether any element in as may share a
// memory location with any element in bs.
func (db *DB) MayAliasElements(as, bs []*Element) bool {
	return db.dag.MayAliasSets(as, bs)
}

// WritesToInputAlias reports whether n, or a node nested in it, writes
// to a value that may alias one of the graph inputs.
func (db *DB) WritesToInputAlias(n *ir.Node) bool {
	inputs := make([]*Element, 0, len(db.graph.Inputs()))
	for _, in := range db.graph.Inputs() {
		if e := db.elementOf(in); e != nil {
			inputs = append(inputs, e)
		}
	}
	return db.dag.MayAliasSets(db.WrittenElements(n, true), inputs)
}

// GetWriters returns the nodes that write to anything aliasing one of
// n's inputs or outputs.
func (db *DB) GetWriters(n *ir.Node) NodeSet {
	reads := db.ReadElements(n, false)
	writers := make(NodeSet)
	for _, w := range db.writeNodes {
		if db.dag.MayAliasSets(db.writtenElems[w], reads) {
			writers[w] = struct{}{}
		}
	}
	return writers
}

// HasWritersBefore reports whether a writer of n's values sits
// topologically before n. A value that may alias a wildcard could have
// been written at any point, so it always counts.
func (db *DB) HasWritersBefore(n *ir.Node) bool {
	for _, in := range n.Inputs() {
		if db.MayAliasWildcard(in) {
			return true
		}
	}
	for _, out := range n.Outputs() {
		if db.MayAliasWildcard(out) {
			return true
		}
	}
	for w := range db.GetWriters(n) {
		if db.isBeforeSameGraph(w, n) {
			return true
		}
	}
	return false
}

// isBeforeSameGraph orders nodes that may live in different subgraphs
// by hoisting each through its owning subgraph node until both share a
// graph.
func (db *DB) isBeforeSameGraph(a, b *ir.Node) bool {
	lhs := a
	for {
		rhs := b
		for {
			if lhs.OwningGraph() == rhs.OwningGraph() {
				return lhs.IsBefore(rhs)
			}
			owner, ok := db.subgraphOwners[rhs.OwningGraph()]
			if !ok {
				break
			}
			rhs = owner
		}
		owner, ok := db.subgraphOwners[lhs.OwningGraph()]
		if !ok {
			break
		}
		lhs = owner
	}
	panic(fmt.Sprintf("weft/alias: %s and %s nodes share no graph", a.Kind(), b.Kind()))
}

// GetAliases returns every tracked value that may alias v, v included.
func (db *DB) GetAliases(v *ir.Value) ValueSet {
	ret := make(ValueSet)
	e := db.elementOf(v)
	if e == nil {
		return ret
	}
	for w, we := range db.elements {
		if db.dag.MayAlias(e, we) {
			ret.add(w)
		}
	}
	return ret
}
