// Package queryeval evaluates textual alias queries against a built
// database. The CLI shell and the playground share this dispatch.
package queryeval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"weft/alias"
	"weft/fingerprint"
	"weft/ir"
	"weft/reorder"
)

// Query is one operation to evaluate against a database.
type Query struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

// Result pairs a query with its output. Exactly one of Output and Error
// is meaningful.
type Result struct {
	Op     string   `json:"op"`
	Args   []string `json:"args,omitempty"`
	Output string   `json:"output,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Eval runs a single query against db.
func Eval(db *alias.DB, q Query) Result {
	out, err := eval(db, q.Op, q.Args)
	res := Result{Op: q.Op, Args: q.Args, Output: out}
	if err != nil {
		res.Output = ""
		res.Error = err.Error()
	}
	return res
}

// EvalAll runs queries in order against the same database. A failed
// query does not stop the ones after it.
func EvalAll(db *alias.DB, qs []Query) []Result {
	results := make([]Result, 0, len(qs))
	for _, q := range qs {
		results = append(results, Eval(db, q))
	}
	return results
}

// EvalLine splits an "op arg arg" line and evaluates it.
func EvalLine(db *alias.DB, line string) Result {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Result{Error: "empty query"}
	}
	return Eval(db, Query{Op: fields[0], Args: fields[1:]})
}

func eval(db *alias.DB, op string, args []string) (string, error) {
	switch op {
	case "alias":
		a, b, err := twoValues(db, op, args)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(db.MayAlias(a, b)), nil

	case "contains":
		a, b, err := twoValues(db, op, args)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(db.MayContainAlias(a, b)), nil

	case "wildcard":
		v, err := oneValue(db, op, args)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(db.MayAliasWildcard(v)), nil

	case "writers":
		v, err := oneValue(db, op, args)
		if err != nil {
			return "", err
		}
		return writersOf(db, v), nil

	case "writes":
		n, err := oneNode(db, op, args)
		if err != nil {
			return "", err
		}
		return valueNames(db.GetWrites(n, true)), nil

	case "reads":
		n, err := oneNode(db, op, args)
		if err != nil {
			return "", err
		}
		return valueNames(db.GetReads(n, true)), nil

	case "move", "check-move":
		n, side, pivot, err := moveArgs(db, op, args)
		if err != nil {
			return "", err
		}
		var ok bool
		switch {
		case op == "check-move" && side == "after":
			ok = reorder.CouldMoveAfterTopologically(db, n, pivot)
		case op == "check-move":
			ok = reorder.CouldMoveBeforeTopologically(db, n, pivot)
		case side == "after":
			ok = reorder.MoveAfterTopologicallyValid(db, n, pivot)
		default:
			ok = reorder.MoveBeforeTopologicallyValid(db, n, pivot)
		}
		return strconv.FormatBool(ok), nil

	case "dump":
		return db.Dump(), nil

	case "graph":
		return db.Graph().String(), nil

	case "fingerprint":
		return fingerprint.GraphHex(db.Graph()), nil

	default:
		return "", fmt.Errorf("unknown query op %q", op)
	}
}

func oneValue(db *alias.DB, op string, args []string) (*ir.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s takes 1 argument", op)
	}
	return findValue(db.Graph(), args[0])
}

func twoValues(db *alias.DB, op string, args []string) (*ir.Value, *ir.Value, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("%s takes 2 arguments", op)
	}
	a, err := findValue(db.Graph(), args[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := findValue(db.Graph(), args[1])
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func oneNode(db *alias.DB, op string, args []string) (*ir.Node, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s takes 1 argument", op)
	}
	return findNode(db.Graph(), args[0])
}

// moveArgs parses [%n, before|after, %pivot].
func moveArgs(db *alias.DB, op string, args []string) (*ir.Node, string, *ir.Node, error) {
	if len(args) != 3 {
		return nil, "", nil, fmt.Errorf("%s takes %%node before|after %%pivot", op)
	}
	side := args[1]
	if side != "before" && side != "after" {
		return nil, "", nil, fmt.Errorf("move side must be before or after, got %q", side)
	}
	n, err := findNode(db.Graph(), args[0])
	if err != nil {
		return nil, "", nil, err
	}
	pivot, err := findNode(db.Graph(), args[2])
	if err != nil {
		return nil, "", nil, err
	}
	return n, side, pivot, nil
}

func findValue(g *ir.Graph, name string) (*ir.Value, error) {
	v := g.FindValue(strings.TrimPrefix(name, "%"))
	if v == nil {
		return nil, fmt.Errorf("no value named %s", name)
	}
	return v, nil
}

func findNode(g *ir.Graph, name string) (*ir.Node, error) {
	v, err := findValue(g, name)
	if err != nil {
		return nil, err
	}
	n := v.Node()
	if n.Kind() == ir.Param {
		return nil, fmt.Errorf("%s is a graph input, not a node output", name)
	}
	return n, nil
}

// writersOf lists every node writing to an alias of v, one statement
// per line. Nested blocks and fused subgraphs are searched so the
// innermost writing statement is reported.
func writersOf(db *alias.DB, v *ir.Value) string {
	set := alias.NewValueSet(v)
	var lines []string
	walkNodes(db.Graph().Block(), func(n *ir.Node) {
		if db.WritesToAlias(n, set, false) {
			lines = append(lines, n.String())
		}
	})
	return strings.Join(lines, "\n")
}

func walkNodes(b *ir.Block, fn func(*ir.Node)) {
	for _, n := range b.Nodes() {
		fn(n)
		for _, sub := range n.Blocks() {
			walkNodes(sub, fn)
		}
		if sg := n.Subgraph(); sg != nil {
			walkNodes(sg.Block(), fn)
		}
	}
}

func valueNames(vs alias.ValueSet) string {
	names := make([]string, 0, len(vs))
	for v := range vs {
		names = append(names, "%"+v.Name())
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}
