// Package reorder plans and executes topologically-safe node moves.
// A move is legal only when it preserves value dependencies and the
// relative order of reads and writes to aliasing memory, as recorded
// in an alias database.
package reorder

import (
	"weft/alias"
	"weft/ir"
)

type moveSide int

const (
	moveBefore moveSide = iota
	moveAfter
)

// MoveAfterTopologicallyValid moves n directly after movePoint if that
// can be done safely, dragging n's dependencies along. Only nodes
// between n and movePoint are touched. Reports whether the move was
// executed.
func MoveAfterTopologicallyValid(db *alias.DB, n, movePoint *ir.Node) bool {
	return tryMove(db, n, movePoint, moveAfter, false)
}

// CouldMoveAfterTopologically reports whether the move would succeed,
// without mutating the graph.
func CouldMoveAfterTopologically(db *alias.DB, n, movePoint *ir.Node) bool {
	return tryMove(db, n, movePoint, moveAfter, true)
}

// MoveBeforeTopologicallyValid moves n directly before movePoint if
// that can be done safely. The move side is not the same as moving
// after movePoint's predecessor: given
//
//	%b = f(%a)
//	%c = g()
//
// moving a before c succeeds by pushing the consumer b past c, while
// moving a after b fails.
func MoveBeforeTopologicallyValid(db *alias.DB, n, movePoint *ir.Node) bool {
	return tryMove(db, n, movePoint, moveBefore, false)
}

// CouldMoveBeforeTopologically reports whether the move would succeed,
// without mutating the graph.
func CouldMoveBeforeTopologically(db *alias.DB, n, movePoint *ir.Node) bool {
	return tryMove(db, n, movePoint, moveBefore, true)
}

// tryMove walks from toMove toward movePoint, one node at a time,
// growing a working set of everything that cannot be moved past. If
// the working set can cross movePoint the move is executed: toMove
// ends up directly on the requested side of movePoint, and only nodes
// between the two are repositioned.
func tryMove(db *alias.DB, toMove, movePoint *ir.Node, side moveSide, dryRun bool) bool {
	if toMove.OwningBlock() != movePoint.OwningBlock() {
		panic("weft/reorder: move target is in a different block")
	}
	if toMove == movePoint {
		return true
	}

	ws := newWorkingSet(toMove, db)

	direction := ir.NextDirection
	if toMove.IsAfter(movePoint) {
		direction = ir.PrevDirection
	}

	cur := toMove.NextInDirection(direction)
	for cur != movePoint {
		if ws.dependsOn(cur) {
			ws.add(cur)
		}
		cur = cur.NextInDirection(direction)
	}

	// Moving before a later point (or after an earlier one) splits the
	// mover from its dependencies: the mover crosses movePoint while
	// its dependencies stay on the near side.
	split := (side == moveBefore && toMove.IsBefore(movePoint)) ||
		(side == moveAfter && toMove.IsAfter(movePoint))
	if split {
		ws.eraseMover()
	}

	// Intermediate dependencies that cannot cross movePoint pin the
	// mover in place.
	if ws.dependsOn(movePoint) {
		return false
	}
	if dryRun {
		return true
	}

	if split {
		move(toMove, movePoint, side)
		reversed := moveAfter
		if side == moveAfter {
			reversed = moveBefore
		}
		for _, n := range ws.nodes {
			move(n, cur, reversed)
			cur = n
		}
	} else {
		for _, n := range ws.nodes {
			move(n, cur, side)
			cur = n
		}
	}
	return true
}

func move(n, movePoint *ir.Node, side moveSide) {
	switch side {
	case moveBefore:
		n.MoveBefore(movePoint)
	case moveAfter:
		n.MoveAfter(movePoint)
	}
}
