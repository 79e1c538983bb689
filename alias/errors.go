package alias

import "errors"

// Errors returned by New when a graph cannot be analyzed. They wrap the
// offending node's description; match with errors.Is.
var (
	// ErrMissingSummary means a node kind requires alias summaries that
	// are not available (prim::CallFunction, or an aten/prim operator
	// with no schema).
	ErrMissingSummary = errors.New("alias summaries required")

	// ErrVarargMutable means a vararg or varret schema declared mutable
	// outputs, which cannot be bound to alias sets.
	ErrVarargMutable = errors.New("alias information not found for variadic operator")

	// ErrUnhandledKind means analysis for the node kind is deliberately
	// unimplemented (prim::profile).
	ErrUnhandledKind = errors.New("analysis not implemented for node kind")
)
