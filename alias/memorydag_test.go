package alias

import "testing"

func TestMemoryLocationsFollowPointerChains(t *testing.T) {
	dag := NewMemoryDAG()
	a := dag.MakeFreshValue(nil)
	b := dag.MakeFreshValue(nil)
	c := dag.MakeFreshValue(nil)
	dag.MakePointerTo(a, b)
	dag.MakePointerTo(b, c)

	locs := dag.MemoryLocations(a)
	if len(locs) != 1 || locs[0] != c {
		t.Errorf("MemoryLocations(a) = %v, want just the chain end", ids(locs))
	}
	if locs := dag.MemoryLocations(c); len(locs) != 1 || locs[0] != c {
		t.Errorf("a sink is its own location; got %v", ids(locs))
	}
}

func TestMemoryLocationsMergeAtDiamonds(t *testing.T) {
	dag := NewMemoryDAG()
	a := dag.MakeFreshValue(nil)
	b := dag.MakeFreshValue(nil)
	c := dag.MakeFreshValue(nil)
	d := dag.MakeFreshValue(nil)
	dag.MakePointerTo(a, b)
	dag.MakePointerTo(a, c)
	dag.MakePointerTo(b, d)
	dag.MakePointerTo(c, d)

	locs := dag.MemoryLocations(a)
	if len(locs) != 1 || locs[0] != d {
		t.Errorf("both diamond arms end at d; got %v", ids(locs))
	}
}

func TestSelfAndDuplicateEdgesAreIgnored(t *testing.T) {
	dag := NewMemoryDAG()
	a := dag.MakeFreshValue(nil)
	b := dag.MakeFreshValue(nil)
	dag.MakePointerTo(a, a)
	if len(a.PointsTo()) != 0 {
		t.Errorf("self edge must be dropped")
	}
	dag.MakePointerTo(a, b)
	dag.MakePointerTo(a, b)
	if got := len(a.PointsTo()); got != 1 {
		t.Errorf("duplicate edge recorded %d times, want 1", got)
	}
}

func TestMayAliasRequiresSharedSink(t *testing.T) {
	dag := NewMemoryDAG()
	x := dag.MakeFreshValue(nil)
	y := dag.MakeFreshValue(nil)
	z := dag.MakeFreshValue(nil)
	sink := dag.MakeFreshValue(nil)
	dag.MakePointerTo(x, sink)
	dag.MakePointerTo(y, sink)

	if !dag.MayAlias(x, y) {
		t.Errorf("x and y share a sink")
	}
	if !dag.MayAlias(x, sink) {
		t.Errorf("a pointer aliases its target")
	}
	if dag.MayAlias(x, z) {
		t.Errorf("z is unrelated")
	}
}

func TestMayAliasSetsShortCircuitsOnEmpty(t *testing.T) {
	dag := NewMemoryDAG()
	a := dag.MakeFreshValue(nil)
	b := dag.MakeFreshValue(nil)
	dag.MakePointerTo(a, b)

	if dag.MayAliasSets(nil, []*Element{a}) {
		t.Errorf("an empty side never aliases")
	}
	if dag.MayAliasSets([]*Element{a}, nil) {
		t.Errorf("an empty side never aliases")
	}
	if !dag.MayAliasSets([]*Element{a}, []*Element{b}) {
		t.Errorf("a points to b")
	}
}

func TestContainmentReachesThroughNesting(t *testing.T) {
	dag := NewMemoryDAG()
	outer := dag.MakeFreshValue(nil)
	inner := dag.MakeFreshValue(nil)
	leaf := dag.MakeFreshValue(nil)
	other := dag.MakeFreshValue(nil)
	dag.AddToContainedElements(inner, outer)
	dag.AddToContainedElements(leaf, inner)

	if dag.MayAlias(outer, leaf) {
		t.Errorf("containment is not aliasing")
	}
	if !dag.MayContainAlias([]*Element{outer}, []*Element{leaf}) {
		t.Errorf("the leaf is reachable through two containment hops")
	}
	if dag.MayContainAlias([]*Element{outer}, []*Element{other}) {
		t.Errorf("other was never put in a container")
	}
}

func TestLocationsRecomputedAfterNewEdge(t *testing.T) {
	dag := NewMemoryDAG()
	a := dag.MakeFreshValue(nil)
	b := dag.MakeFreshValue(nil)

	if locs := dag.MemoryLocations(a); len(locs) != 1 || locs[0] != a {
		t.Fatalf("a starts as its own location; got %v", ids(locs))
	}
	dag.MakePointerTo(a, b)
	if locs := dag.MemoryLocations(a); len(locs) != 1 || locs[0] != b {
		t.Errorf("the cached locations must be invalidated by the new edge; got %v", ids(locs))
	}
}

func ids(elems []*Element) []int {
	out := make([]int, len(elems))
	for i, e := range elems {
		out[i] = e.ID()
	}
	return out
}
