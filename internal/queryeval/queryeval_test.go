package queryeval

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"weft/alias"
	"weft/parse"
	"weft/registry"
)

func buildDB(t *testing.T, text string) *alias.DB {
	t.Helper()
	g, err := parse.NewGraphParser(registry.Default()).Parse([]byte(text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db, err := alias.New(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return db
}

const mixedGraph = `graph(%x : Tensor, %o : Tensor):
  %y : Tensor = aten::t(%x)
  %w : Tensor = aten::add_(%x, %o)
  %z : Tensor = aten::mm(%x, %o)
  return (%z)
`

func TestEvalAliasQueries(t *testing.T) {
	db := buildDB(t, mixedGraph)

	cases := []struct {
		line string
		want string
	}{
		{"alias %x %y", "true"},
		{"alias %z %x", "false"},
		{"wildcard %x", "true"},
		{"wildcard %z", "false"},
		{"writes %w", "%w %x"},
		{"reads %w", "%o %w %x"},
	}
	for _, tc := range cases {
		res := EvalLine(db, tc.line)
		if res.Error != "" {
			t.Fatalf("%s: unexpected error: %s", tc.line, res.Error)
		}
		if res.Output != tc.want {
			t.Errorf("%s = %q, want %q", tc.line, res.Output, tc.want)
		}
	}
}

func TestEvalWritersListsStatements(t *testing.T) {
	db := buildDB(t, mixedGraph)

	res := EvalLine(db, "writers %x")
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	want := "%w : Tensor = aten::add_(%x, %o)"
	if res.Output != want {
		t.Fatalf("writers %%x = %q, want %q", res.Output, want)
	}

	// %y views %x, so the same write shows up through it.
	through := EvalLine(db, "writers %y")
	if through.Output != want {
		t.Fatalf("writers %%y = %q, want %q", through.Output, want)
	}

	// Nothing writes to the fresh mm output.
	fresh := EvalLine(db, "writers %z")
	if fresh.Output != "" {
		t.Fatalf("writers %%z = %q, want empty", fresh.Output)
	}
}

func TestEvalCheckMoveIsDryRun(t *testing.T) {
	db := buildDB(t, mixedGraph)
	before := db.Graph().String()

	// The transpose reads %x, which aten::add_ writes; it cannot cross.
	res := EvalLine(db, "check-move %y after %w")
	if res.Error != "" || res.Output != "false" {
		t.Fatalf("check-move = %+v, want false", res)
	}
	if diff := cmp.Diff(before, db.Graph().String()); diff != "" {
		t.Fatalf("dry run changed the graph (-before +after):\n%s", diff)
	}
}

func TestEvalMoveReordersGraph(t *testing.T) {
	db := buildDB(t, `graph(%x : Tensor, %o : Tensor):
  %y : Tensor = aten::relu(%x)
  %z : Tensor = aten::relu(%o)
  return (%y, %z)
`)

	check := EvalLine(db, "check-move %z before %y")
	if check.Error != "" || check.Output != "true" {
		t.Fatalf("check-move = %+v, want true", check)
	}

	res := EvalLine(db, "move %z before %y")
	if res.Error != "" || res.Output != "true" {
		t.Fatalf("move = %+v, want true", res)
	}

	want := `graph(%x : Tensor, %o : Tensor):
  %z : Tensor = aten::relu(%o)
  %y : Tensor = aten::relu(%x)
  return (%y, %z)
`
	got := Eval(db, Query{Op: "graph"})
	if diff := cmp.Diff(want, got.Output); diff != "" {
		t.Fatalf("graph after move (-want +got):\n%s", diff)
	}
}

func TestEvalDumpAndFingerprint(t *testing.T) {
	db := buildDB(t, mixedGraph)

	dump := Eval(db, Query{Op: "dump"})
	if !strings.Contains(dump.Output, "===1. GRAPH===") {
		t.Fatalf("dump output missing graph section:\n%s", dump.Output)
	}

	fp := Eval(db, Query{Op: "fingerprint"})
	if len(fp.Output) != 64 {
		t.Fatalf("fingerprint length = %d, want 64", len(fp.Output))
	}
}

func TestEvalErrors(t *testing.T) {
	db := buildDB(t, mixedGraph)

	cases := []struct {
		line string
		want string
	}{
		{"alias %x", "takes 2 arguments"},
		{"alias %x %nope", "no value named %nope"},
		{"writes %x", "graph input"},
		{"move %y sideways %w", "before or after"},
		{"frobnicate", `unknown query op "frobnicate"`},
		{"", "empty query"},
	}
	for _, tc := range cases {
		res := EvalLine(db, tc.line)
		if res.Error == "" {
			t.Fatalf("%q: expected error", tc.line)
		}
		if !strings.Contains(res.Error, tc.want) {
			t.Errorf("%q error = %q, want substring %q", tc.line, res.Error, tc.want)
		}
	}
}

func TestEvalAllContinuesPastFailures(t *testing.T) {
	db := buildDB(t, mixedGraph)

	results := EvalAll(db, []Query{
		{Op: "alias", Args: []string{"%x", "%y"}},
		{Op: "alias", Args: []string{"%x", "%nope"}},
		{Op: "wildcard", Args: []string{"%z"}},
	})
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Output != "true" || results[0].Error != "" {
		t.Fatalf("first result = %+v", results[0])
	}
	if results[1].Error == "" {
		t.Fatal("second result should carry the lookup error")
	}
	if results[2].Output != "false" {
		t.Fatalf("third result = %+v", results[2])
	}
}
