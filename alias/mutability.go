// Package alias builds a per-graph database of points-to facts and
// answers may-alias, containment, and mutation queries about the
// graph's values.
package alias

import "weft/ir"

// MutableKind returns the wildcard-bucket key for a type: values of the
// same bucket kind may alias each other once tracking is lost. The
// second result is false for immutable types, which are not tracked at
// all. Optional and Future wrappers are transparent.
func MutableKind(t ir.Type) (ir.TypeKind, bool) {
	switch t.Kind() {
	case ir.KindTensor, ir.KindList, ir.KindTuple, ir.KindDict, ir.KindClass:
		return t.Kind(), true
	case ir.KindOptional, ir.KindFuture:
		return MutableKind(t.Contained()[0])
	}
	return "", false
}

// ShouldTrack reports whether values of type t have observable identity
// worth tracking.
func ShouldTrack(t ir.Type) bool {
	_, ok := MutableKind(t)
	return ok
}

// ShouldTrackValue reports whether v's type is tracked.
func ShouldTrackValue(v *ir.Value) bool {
	return ShouldTrack(v.Type())
}

// IsContainerType reports whether t holds other values, unwrapping
// Optional and Future first.
func IsContainerType(t ir.Type) bool {
	return len(ir.Unwrap(t).Contained()) > 0
}
