package reorder

import (
	"weft/alias"
	"weft/ir"
)

// workingSet is the group of nodes being moved together. It carries
// usage and mutability state as multisets so members can be added and
// the mover erased without rescanning the block.
type workingSet struct {
	db    *alias.DB
	nodes []*ir.Node

	// Each key maps to the number of working-set members contributing it.
	users  map[*ir.Node]int
	writes map[*alias.Element]int
	reads  map[*alias.Element]int
}

func newWorkingSet(mover *ir.Node, db *alias.DB) *workingSet {
	ws := &workingSet{
		db:     db,
		users:  make(map[*ir.Node]int),
		writes: make(map[*alias.Element]int),
		reads:  make(map[*alias.Element]int),
	}
	ws.add(mover)
	return ws
}

func (ws *workingSet) add(n *ir.Node) {
	ws.nodes = append(ws.nodes, n)
	for user := range ws.usersSameBlock(n) {
		ws.users[user]++
	}
	for _, w := range uniqueElements(ws.db.WrittenElements(n, true)) {
		ws.writes[w]++
	}
	for _, r := range ws.db.ReadElements(n, true) {
		ws.reads[r]++
	}
}

// eraseMover drops the front node's contributions, leaving only the
// dependencies that have to be dragged along.
func (ws *workingSet) eraseMover() {
	mover := ws.nodes[0]
	for user := range ws.usersSameBlock(mover) {
		decNodeCount(ws.users, user)
	}
	for _, w := range uniqueElements(ws.db.WrittenElements(mover, true)) {
		decElementCount(ws.writes, w)
	}
	for _, r := range ws.db.ReadElements(mover, true) {
		decElementCount(ws.reads, r)
	}
	ws.nodes = ws.nodes[1:]
}

// dependsOn reports whether moving n past the working set would break
// a data or mutability dependency.
func (ws *workingSet) dependsOn(n *ir.Node) bool {
	if len(ws.nodes) == 0 {
		return false
	}
	return ws.hasDataDependency(n) || ws.hasMutabilityDependency(n)
}

func (ws *workingSet) hasDataDependency(n *ir.Node) bool {
	if n.IsAfter(ws.nodes[0]) {
		return ws.producesFor(n)
	}
	return ws.consumesFrom(n)
}

// hasMutabilityDependency reports whether n writes to memory the set
// reads, or the set writes to memory n reads.
func (ws *workingSet) hasMutabilityDependency(n *ir.Node) bool {
	nWrites := uniqueElements(ws.db.WrittenElements(n, true))
	if ws.db.MayAliasElements(nWrites, elementKeys(ws.reads)) {
		return true
	}
	nReads := ws.db.ReadElements(n, true)
	return ws.db.MayAliasElements(elementKeys(ws.writes), nReads)
}

// producesFor reports whether the working set produces a value n uses.
func (ws *workingSet) producesFor(n *ir.Node) bool {
	return ws.users[n] > 0
}

// consumesFrom reports whether the working set uses a value n produces.
func (ws *workingSet) consumesFrom(n *ir.Node) bool {
	users := ws.usersSameBlock(n)
	for _, member := range ws.nodes {
		if _, ok := users[member]; ok {
			return true
		}
	}
	return false
}

// usersSameBlock returns the users of n's outputs hoisted to n's block:
// a use inside an If branch counts as a use by the whole If node.
func (ws *workingSet) usersSameBlock(n *ir.Node) map[*ir.Node]struct{} {
	users := make(map[*ir.Node]struct{})
	for _, out := range n.Outputs() {
		for _, use := range out.Uses() {
			if same := findSameBlock(use.User, n); same != nil {
				users[same] = struct{}{}
			}
		}
	}
	return users
}

// findSameBlock hoists target up its block chain until it shares a
// block with n, or returns nil if target lives outside n's block tree.
func findSameBlock(target, n *ir.Node) *ir.Node {
	if target.OwningGraph() != n.OwningGraph() {
		panic("weft/reorder: nodes belong to different graphs")
	}
	for target.OwningBlock() != n.OwningBlock() {
		owner := target.OwningBlock().OwningNode()
		if owner == nil {
			return nil
		}
		target = owner
	}
	return target
}

func decNodeCount(m map[*ir.Node]int, n *ir.Node) {
	if m[n] <= 1 {
		delete(m, n)
	} else {
		m[n]--
	}
}

func decElementCount(m map[*alias.Element]int, e *alias.Element) {
	if m[e] <= 1 {
		delete(m, e)
	} else {
		m[e]--
	}
}

func uniqueElements(elems []*alias.Element) []*alias.Element {
	seen := make(map[*alias.Element]struct{}, len(elems))
	out := make([]*alias.Element, 0, len(elems))
	for _, e := range elems {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func elementKeys(m map[*alias.Element]int) []*alias.Element {
	keys := make([]*alias.Element, 0, len(m))
	for e := range m {
		keys = append(keys, e)
	}
	return keys
}
