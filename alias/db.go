package alias

import (
	"fmt"
	"sort"

	"weft/fingerprint"
	"weft/ir"
	"weft/registry"
)

// ValueSet is an unordered set of IR values.
type ValueSet map[*ir.Value]struct{}

// NewValueSet builds a set from the given values.
func NewValueSet(vs ...*ir.Value) ValueSet {
	set := make(ValueSet, len(vs))
	for _, v := range vs {
		set[v] = struct{}{}
	}
	return set
}

func (s ValueSet) add(v *ir.Value) { s[v] = struct{}{} }

// Contains reports set membership.
func (s ValueSet) Contains(v *ir.Value) bool {
	_, ok := s[v]
	return ok
}

// DB holds the alias analysis results for one graph: an element per
// tracked value, wildcard buckets per type kind, and the write index.
// Queries are read-only; the graph must not change structurally between
// construction and queries (see Stale).
type DB struct {
	graph *ir.Graph
	reg   *registry.Registry

	dag         *MemoryDAG
	elements    map[*ir.Value]*Element
	wildcards   map[ir.TypeKind]*Element
	bucketKinds map[*Element]ir.TypeKind

	writeIndex   map[*ir.Node]ValueSet
	writeOrder   map[*ir.Node][]*ir.Value
	writtenElems map[*ir.Node][]*Element
	writeNodes   []*ir.Node

	subgraphOwners map[*ir.Graph]*ir.Node

	writeCache      map[*Element]bool
	writeCacheStale bool

	digest [32]byte
}

// Option configures DB construction.
type Option func(*DB)

// WithRegistry overrides the registry consulted for schemas-by-policy
// lookups during analysis. The default is registry.Default().
func WithRegistry(r *registry.Registry) Option {
	return func(db *DB) { db.reg = r }
}

// New analyzes g and builds its alias database. Graph inputs all start
// in the wildcard bucket of their type kind: callers may pass aliasing
// arguments, so inputs of the same kind must be assumed to alias.
func New(g *ir.Graph, opts ...Option) (*DB, error) {
	db := &DB{
		graph:           g,
		reg:             registry.Default(),
		dag:             NewMemoryDAG(),
		elements:        make(map[*ir.Value]*Element),
		wildcards:       make(map[ir.TypeKind]*Element),
		bucketKinds:     make(map[*Element]ir.TypeKind),
		writeIndex:      make(map[*ir.Node]ValueSet),
		writeOrder:      make(map[*ir.Node][]*ir.Value),
		writtenElems:    make(map[*ir.Node][]*Element),
		subgraphOwners:  make(map[*ir.Graph]*ir.Node),
		writeCacheStale: true,
	}
	for _, opt := range opts {
		opt(db)
	}
	for _, in := range g.Inputs() {
		db.setWildcard(in)
	}
	if err := db.analyzeBlock(g.Block()); err != nil {
		return nil, err
	}
	db.digest = fingerprint.Graph(g)
	return db, nil
}

// Graph returns the analyzed graph.
func (db *DB) Graph() *ir.Graph { return db.graph }

// Fingerprint returns the content hash of the graph text at analysis
// time.
func (db *DB) Fingerprint() [32]byte { return db.digest }

// Stale reports whether g's current text no longer matches the text
// this database was built from.
func (db *DB) Stale() bool {
	return fingerprint.Graph(db.graph) != db.digest
}

// elementOf returns v's element, or nil if v has none (untracked, or
// deliberately left unassigned).
func (db *DB) elementOf(v *ir.Value) *Element {
	return db.elements[v]
}

func (db *DB) mustElement(v *ir.Value) *Element {
	e, ok := db.elements[v]
	if !ok {
		panic(fmt.Sprintf("weft/alias: no element for value %%%s", v.Name()))
	}
	return e
}

func (db *DB) giveFreshAlias(v *ir.Value) {
	if !ShouldTrackValue(v) {
		return
	}
	// Loop bodies are mapped before being analyzed, so a value may
	// already have an element.
	if _, ok := db.elements[v]; ok {
		return
	}
	db.elements[v] = db.dag.MakeFreshValue(v)
}

func (db *DB) getOrCreateElement(v *ir.Value) *Element {
	if _, ok := db.elements[v]; !ok {
		db.giveFreshAlias(v)
	}
	return db.mustElement(v)
}

// makePointerTo records that from may point to to's memory.
func (db *DB) makePointerTo(from, to *ir.Value) {
	if !ShouldTrackValue(from) {
		if ShouldTrackValue(to) {
			panic(fmt.Sprintf("weft/alias: pointer from untracked %%%s to tracked %%%s", from.Name(), to.Name()))
		}
		return
	}
	if from == to {
		return
	}
	// An optional may be fed a None; that creates no pointer.
	if from.Type().Kind() == ir.KindOptional && to.Type().Kind() == ir.KindNone {
		return
	}
	db.dag.MakePointerTo(db.getOrCreateElement(from), db.getOrCreateElement(to))
	db.writeCacheStale = true
}

func (db *DB) addToContainedElements(elem, container *ir.Value) {
	if !ShouldTrackValue(elem) {
		return
	}
	if !IsContainerType(container.Type()) {
		panic(fmt.Sprintf("weft/alias: %%%s is not a container", container.Name()))
	}
	db.dag.AddToContainedElements(db.getOrCreateElement(elem), db.getOrCreateElement(container))
	db.writeCacheStale = true
}

// mapAliases points each value in from at its partner in to.
func (db *DB) mapAliases(from, to []*ir.Value) {
	if len(from) != len(to) {
		panic(fmt.Sprintf("weft/alias: mapping %d values onto %d", len(to), len(from)))
	}
	for i := range from {
		db.makePointerTo(from[i], to[i])
	}
}

// registerWrite records that n writes to v's memory.
func (db *DB) registerWrite(v *ir.Value, n *ir.Node) {
	if !ShouldTrackValue(v) {
		return
	}
	e := db.mustElement(v)
	set, ok := db.writeIndex[n]
	if !ok {
		set = make(ValueSet)
		db.writeIndex[n] = set
	}
	if !set.Contains(v) {
		set.add(v)
		db.writeOrder[n] = append(db.writeOrder[n], v)
		db.noteWritingNode(n)
		db.writtenElems[n] = append(db.writtenElems[n], e)
	}
	db.writeCacheStale = true
}

// registerWriteToElement records a write against an element that stands
// for no single value, such as a wildcard bucket.
func (db *DB) registerWriteToElement(e *Element, n *ir.Node) {
	db.noteWritingNode(n)
	db.writtenElems[n] = append(db.writtenElems[n], e)
	db.writeCacheStale = true
}

// noteWritingNode keeps writeNodes in analysis order so queries and
// dumps iterate writes deterministically.
func (db *DB) noteWritingNode(n *ir.Node) {
	if _, seen := db.writtenElems[n]; !seen {
		db.writeNodes = append(db.writeNodes, n)
	}
}

func sortedBucketKinds(buckets map[ir.TypeKind]*Element) []ir.TypeKind {
	kinds := make([]ir.TypeKind, 0, len(buckets))
	for k := range buckets {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
