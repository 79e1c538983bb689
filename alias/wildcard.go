package alias

import (
	"fmt"

	"weft/ir"
)

// wildcardBucket returns the existing bucket for t's mutable kind, or
// nil if none has been created.
func (db *DB) wildcardBucket(t ir.Type) *Element {
	kind, ok := MutableKind(t)
	if !ok {
		return nil
	}
	return db.wildcards[kind]
}

func (db *DB) getOrCreateWildcard(t ir.Type) *Element {
	kind, ok := MutableKind(t)
	if !ok {
		panic(fmt.Sprintf("weft/alias: no wildcard bucket for immutable type %s", t))
	}
	e, ok := db.wildcards[kind]
	if !ok {
		e = db.dag.MakeFreshValue(nil)
		db.wildcards[kind] = e
		db.bucketKinds[e] = kind
	}
	return e
}

// setWildcard sends v to the wildcard bucket of its type kind.
func (db *DB) setWildcard(v *ir.Value) {
	if !ShouldTrackValue(v) {
		return
	}
	db.dag.MakePointerTo(db.getOrCreateElement(v), db.getOrCreateWildcard(v.Type()))
	db.writeCacheStale = true
}

// MayAliasWildcard reports whether v may alias the wildcard bucket of
// its own type kind.
func (db *DB) MayAliasWildcard(v *ir.Value) bool {
	if !ShouldTrackValue(v) {
		return false
	}
	e := db.elementOf(v)
	if e == nil {
		return false
	}
	bucket := db.wildcardBucket(v.Type())
	if bucket == nil {
		return false
	}
	return db.dag.MayAlias(e, bucket)
}

// WritesToWildcard reports whether n writes to a wildcard bucket,
// directly or through a value that may alias one.
func (db *DB) WritesToWildcard(n *ir.Node) bool {
	for _, e := range db.writtenElems[n] {
		if _, isBucket := db.bucketKinds[e]; isBucket {
			return true
		}
		if e.Value() != nil && db.MayAliasWildcard(e.Value()) {
			return true
		}
	}
	return false
}

// HasUntrackedEffects reports whether n's effects escape the graph:
// either it writes through an alias of a graph input, or its writes
// land in a wildcard bucket. Such nodes are never safe to eliminate.
func (db *DB) HasUntrackedEffects(n *ir.Node) bool {
	return db.WritesToInputAlias(n) || db.WritesToWildcard(n)
}
