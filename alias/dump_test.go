package alias

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDumpShowsGraphEdgesAndWrites(t *testing.T) {
	db, _ := buildDB(t, `
graph(%1 : Tensor, %2 : Tensor):
  %3 : Tensor = aten::add_(%1, %2)
  return (%3)
`)
	out := db.Dump()

	for _, section := range []string{"===1. GRAPH===", "===2. ALIAS DB===", "===3. Writes==="} {
		if !strings.Contains(out, section) {
			t.Errorf("dump is missing section %q:\n%s", section, out)
		}
	}
	if !strings.Contains(out, "1 points to: WILDCARD(Tensor)") {
		t.Errorf("graph inputs point to their kind bucket:\n%s", out)
	}
	if !strings.Contains(out, "3 points to: 1") {
		t.Errorf("the add_ output points to its self argument:\n%s", out)
	}
	if !strings.Contains(out, "aten::add_") {
		t.Errorf("the writing node must be listed:\n%s", out)
	}
}

func TestDumpShowsContainment(t *testing.T) {
	db, _ := buildDB(t, `
graph():
  %a : Tensor = prim::Constant()
  %b : Tensor = prim::Constant()
  %t : (Tensor, Tensor) = prim::TupleConstruct(%a, %b)
  return (%t)
`)
	if out := db.Dump(); !strings.Contains(out, "t contains: a, b") {
		t.Errorf("tuple containment missing from dump:\n%s", out)
	}
}

func TestDumpIsDeterministic(t *testing.T) {
	text := `
graph(%x : Tensor):
  %y : Tensor = aten::t(%x)
  %z : Tensor = aten::relu_(%y)
  return (%z)
`
	db1, _ := buildDB(t, text)
	db2, _ := buildDB(t, text)
	if diff := cmp.Diff(db1.Dump(), db2.Dump()); diff != "" {
		t.Errorf("equal graphs must dump identically (-first +second):\n%s", diff)
	}
}
