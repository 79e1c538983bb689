package alias

import (
	"fmt"
	"strings"
)

// Dump renders the database for debugging: the graph, the points-to
// and containment edges, and the per-node writes. The output is
// deterministic, so two databases built from equal graphs dump
// identically.
func (db *DB) Dump() string {
	var sb strings.Builder

	sb.WriteString("===1. GRAPH===\n")
	sb.WriteString(db.graph.String())

	sb.WriteString("\n===2. ALIAS DB===\n")
	for _, e := range db.dag.Elements() {
		if pts := e.PointsTo(); len(pts) > 0 {
			fmt.Fprintf(&sb, "%s points to: %s\n", db.elementName(e), db.elementNames(pts))
		}
		if contained := e.Contained(); len(contained) > 0 {
			fmt.Fprintf(&sb, "%s contains: %s\n", db.elementName(e), db.elementNames(contained))
		}
	}

	sb.WriteString("\n===3. Writes===\n")
	for _, n := range db.writeNodes {
		sb.WriteString(n.String())
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "  %s\n", db.elementNames(db.writtenElems[n]))
	}
	return sb.String()
}

// String is Dump.
func (db *DB) String() string { return db.Dump() }

func (db *DB) elementName(e *Element) string {
	if v := e.Value(); v != nil {
		return v.Name()
	}
	if kind, ok := db.bucketKinds[e]; ok {
		return fmt.Sprintf("WILDCARD(%s)", kind)
	}
	return "WILDCARD"
}

func (db *DB) elementNames(elems []*Element) string {
	names := make([]string, len(elems))
	for i, e := range elems {
		names[i] = db.elementName(e)
	}
	return strings.Join(names, ", ")
}
