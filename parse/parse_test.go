package parse_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"weft/ir"
	"weft/parse"
	"weft/registry"
)

func parseGraph(t *testing.T, text string) *ir.Graph {
	t.Helper()
	g, err := parse.NewGraphParser(registry.Default()).Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return g
}

func TestPrintedGraphIsCanonical(t *testing.T) {
	text := `graph(%x : Tensor):
  %y : Tensor = aten::relu(%x)
  return (%y)
`
	g := parseGraph(t, text)
	if diff := cmp.Diff(text, g.String()); diff != "" {
		t.Errorf("parse then print must reproduce the canonical text (-want +got):\n%s", diff)
	}
}

func TestControlFlowRoundTrips(t *testing.T) {
	text := `
graph(%c : bool, %x : Tensor):
  %max : int = prim::Constant[value=3]()
  %r : Tensor = prim::If(%c)
    block0():
      %a : Tensor = aten::relu(%x)
      -> (%a)
    block1():
      -> (%x)
  %y : Tensor = prim::Loop(%max, %c, %r)
    block0(%i : int, %ri : Tensor):
      %yi : Tensor = aten::relu(%ri)
      -> (%c, %yi)
  return (%y)
`
	first := parseGraph(t, text).String()
	second := parseGraph(t, first).String()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("printed graph must reparse to the same text (-first +second):\n%s", diff)
	}
	if !strings.Contains(first, "    block0():\n") || !strings.Contains(first, "      -> (%a)\n") {
		t.Errorf("nested block layout wrong:\n%s", first)
	}
}

func TestSubgraphAndAttributesRoundTrip(t *testing.T) {
	text := `
graph(%x : Tensor):
  %o0 : Tensor, %o1 : Tensor = prim::ConstantChunk[chunks=2](%x)
  %f : Tensor = prim::FusionGroup(%o0)
    subgraph(%sx : Tensor):
      %so : Tensor = aten::relu_(%sx)
      -> (%so)
  return (%f)
`
	first := parseGraph(t, text).String()
	second := parseGraph(t, first).String()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("printed graph must reparse to the same text (-first +second):\n%s", diff)
	}
	if !strings.Contains(first, "prim::ConstantChunk[chunks=2](%x)") {
		t.Errorf("attribute lost in round trip:\n%s", first)
	}
	if !strings.Contains(first, "    subgraph(%sx : Tensor):\n") {
		t.Errorf("subgraph section lost in round trip:\n%s", first)
	}
}

func TestSchemasAttachDuringParse(t *testing.T) {
	g := parseGraph(t, `
graph(%x : Tensor, %y : Tensor, %i : int):
  %a : Tensor = aten::add_(%x, %y)
  %b : Tensor = aten::add(%x, %i)
  %c : Tensor = aten::qr(%x)
  %d : Tensor = my::custom(%x)
  return (%a)
`)
	if s := g.FindValue("a").Node().Schema(); s == nil || string(s.Name) != "aten::add_" {
		t.Errorf("add_ must resolve its schema, got %v", s)
	}
	if s := g.FindValue("b").Node().Schema(); s == nil || s.Overload != "Scalar" {
		t.Errorf("int argument must select the Scalar overload, got %v", s)
	}
	if s := g.FindValue("c").Node().Schema(); s != nil {
		t.Errorf("unknown operators carry no schema, got %v", s)
	}
	if s := g.FindValue("d").Node().Schema(); s != nil {
		t.Errorf("foreign namespaces carry no schema, got %v", s)
	}
}

func TestZeroOutputStatements(t *testing.T) {
	g := parseGraph(t, `
graph():
  %obj : Widget = prim::CreateObject()
  %v : Tensor = prim::Constant()
  prim::SetAttr[name="weight"](%obj, %v)
  return (%obj)
`)
	var found *ir.Node
	for _, n := range g.Block().Nodes() {
		if n.Kind() == ir.SetAttr {
			found = n
		}
	}
	if found == nil {
		t.Fatal("SetAttr statement was not parsed")
	}
	if len(found.Outputs()) != 0 {
		t.Errorf("SetAttr has %d outputs, want 0", len(found.Outputs()))
	}
	if len(found.Inputs()) != 2 {
		t.Errorf("SetAttr has %d inputs, want 2", len(found.Inputs()))
	}
	if got, ok := found.Attr("name"); !ok || got != `"weight"` {
		t.Errorf("name attribute = %q, want the quoted literal", got)
	}
}

func TestValueLookupByName(t *testing.T) {
	g := parseGraph(t, `
graph(%1 : Tensor):
  %out : Tensor = aten::relu(%1)
  return (%out)
`)
	if v := g.FindValue("1"); v == nil || v.Type().Kind() != ir.KindTensor {
		t.Errorf("numeric value names must resolve")
	}
	out := g.FindValue("out")
	if out == nil {
		t.Fatal("named value missing")
	}
	if got := out.Node().Inputs()[0]; got != g.Inputs()[0] {
		t.Errorf("relu input is not the graph input")
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		wantSub string
	}{
		{
			name:    "undefined value",
			text:    "graph():\n  %y : Tensor = aten::relu(%z)\n  return (%y)\n",
			wantSub: "%z is not defined",
		},
		{
			name:    "duplicate definition",
			text:    "graph(%x : Tensor, %x : Tensor):\n  return (%x)\n",
			wantSub: "defined twice",
		},
		{
			name:    "trailing tokens",
			text:    "graph():\n  return ()\nextra",
			wantSub: "trailing",
		},
		{
			name:    "wrong header",
			text:    "chart():\n  return ()\n",
			wantSub: `expected "graph"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse.NewGraphParser(nil).Parse([]byte(tc.text))
			if err == nil {
				t.Fatalf("Parse succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error = %v, want mention of %q", err, tc.wantSub)
			}
		})
	}
}
