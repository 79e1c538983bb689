package alias

import "weft/ir"

// Element is one node in the points-to graph: the memory named by one
// IR value, or a type-kind wildcard bucket (Value is nil for buckets).
type Element struct {
	id    int
	value *ir.Value

	pointsTo    []*Element
	pointedFrom []*Element
	contained   []*Element

	locs        []*Element
	locsVersion uint64
	locsValid   bool
}

// ID returns the element's arena index.
func (e *Element) ID() int { return e.id }

// Value returns the IR value this element stands for, or nil for a
// wildcard bucket.
func (e *Element) Value() *ir.Value { return e.value }

// PointsTo returns the direct points-to successors in creation order.
func (e *Element) PointsTo() []*Element { return e.pointsTo }

// Contained returns the elements recorded as contained in this one.
func (e *Element) Contained() []*Element { return e.contained }

// MemoryDAG is an arena of Elements and the points-to and containment
// edges between them. Memory locations are computed lazily and cached
// until the edge set changes.
type MemoryDAG struct {
	elements []*Element
	version  uint64
}

// NewMemoryDAG returns an empty arena.
func NewMemoryDAG() *MemoryDAG {
	return &MemoryDAG{}
}

// MakeFreshValue allocates a new element with no edges. v may be nil
// for elements that stand for no particular value.
func (d *MemoryDAG) MakeFreshValue(v *ir.Value) *Element {
	e := &Element{id: len(d.elements), value: v}
	d.elements = append(d.elements, e)
	return e
}

// Elements returns every allocated element in creation order.
func (d *MemoryDAG) Elements() []*Element { return d.elements }

// MakePointerTo records that from may point to the memory of to.
// Self-edges and duplicates are ignored.
func (d *MemoryDAG) MakePointerTo(from, to *Element) {
	if from == to {
		return
	}
	if containsElement(from.pointsTo, to) {
		return
	}
	from.pointsTo = append(from.pointsTo, to)
	to.pointedFrom = append(to.pointedFrom, from)
	d.version++
}

// AddToContainedElements records that elem is contained in container.
func (d *MemoryDAG) AddToContainedElements(elem, container *Element) {
	if elem == container {
		return
	}
	if containsElement(container.contained, elem) {
		return
	}
	container.contained = append(container.contained, elem)
	d.version++
}

// MemoryLocations returns the elements that stand for actual memory
// reachable from e: the points-to sinks. An element with no outgoing
// pointers is its own location.
func (d *MemoryDAG) MemoryLocations(e *Element) []*Element {
	if e.locsValid && e.locsVersion == d.version {
		return e.locs
	}
	var locs []*Element
	seen := map[*Element]bool{e: true}
	queue := []*Element{e}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if len(cur.pointsTo) == 0 {
			locs = append(locs, cur)
			continue
		}
		for _, to := range cur.pointsTo {
			if !seen[to] {
				seen[to] = true
				queue = append(queue, to)
			}
		}
	}
	e.locs = locs
	e.locsVersion = d.version
	e.locsValid = true
	return locs
}

// MayAlias reports whether a and b may point to the same memory.
func (d *MemoryDAG) MayAlias(a, b *Element) bool {
	locsA := d.MemoryLocations(a)
	locsB := d.MemoryLocations(b)
	if len(locsA) == 0 || len(locsB) == 0 {
		return false
	}
	set := make(map[*Element]bool, len(locsA))
	for _, l := range locsA {
		set[l] = true
	}
	for _, l := range locsB {
		if set[l] {
			return true
		}
	}
	return false
}

// MayAliasSets reports whether any element of as may alias any element
// of bs.
func (d *MemoryDAG) MayAliasSets(as, bs []*Element) bool {
	if len(as) == 0 || len(bs) == 0 {
		return false
	}
	set := make(map[*Element]bool)
	for _, a := range as {
		for _, l := range d.MemoryLocations(a) {
			set[l] = true
		}
	}
	for _, b := range bs {
		for _, l := range d.MemoryLocations(b) {
			if set[l] {
				return true
			}
		}
	}
	return false
}

// MayContainAlias reports whether some element reachable from as
// through points-to or containment edges may alias some element
// reachable the same way from bs. The starting elements count as
// reachable.
func (d *MemoryDAG) MayContainAlias(as, bs []*Element) bool {
	ra := d.reachable(as)
	rb := d.reachable(bs)
	for _, a := range ra {
		for _, b := range rb {
			if d.MayAlias(a, b) {
				return true
			}
		}
	}
	return false
}

func (d *MemoryDAG) reachable(start []*Element) []*Element {
	var out []*Element
	seen := make(map[*Element]bool)
	queue := append([]*Element(nil), start...)
	for _, e := range start {
		seen[e] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		for _, next := range cur.pointsTo {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
		for _, next := range cur.contained {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return out
}

func containsElement(list []*Element, e *Element) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}
