package parse

import (
	"fmt"
	"strings"

	"weft/ir"
)

// SchemaSource resolves operator schemas while nodes are constructed.
// *registry.Registry implements it.
type SchemaSource interface {
	Match(kind ir.Symbol, inputs []ir.Type) *ir.FunctionSchema
}

// GraphParser parses the textual graph form produced by ir.Graph.String:
//
//	graph(%x : Tensor, %y : Tensor):
//	  %z : Tensor = aten::add_(%x, %y)
//	  return (%z)
//
// Nested blocks appear as "blockN(...):" sections under their node and
// end with "-> (...)"; subgraph attributes appear as "subgraph(...):"
// sections.
type GraphParser struct {
	source SchemaSource
}

// NewGraphParser creates a parser. source may be nil, in which case no
// schemas are attached to nodes.
func NewGraphParser(source SchemaSource) *GraphParser {
	return &GraphParser{source: source}
}

// Parse parses one graph.
func (p *GraphParser) Parse(content []byte) (*ir.Graph, error) {
	toks, err := lex(content)
	if err != nil {
		return nil, fmt.Errorf("parsing graph: %w", err)
	}
	c := &cursor{toks: toks}
	g, err := p.parseGraph(c, "graph")
	if err != nil {
		return nil, fmt.Errorf("parsing graph: %w", err)
	}
	if tok := c.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("parsing graph: line %d: trailing %s %q", tok.line, tok.kind, tok.text)
	}
	return g, nil
}

type graphScope struct {
	g   *ir.Graph
	env map[string]*ir.Value
}

func (s *graphScope) define(name string, v *ir.Value, line int) error {
	if _, ok := s.env[name]; ok {
		return fmt.Errorf("line %d: %%%s defined twice", line, name)
	}
	v.SetName(name)
	s.env[name] = v
	return nil
}

func (s *graphScope) lookup(name string, line int) (*ir.Value, error) {
	v, ok := s.env[name]
	if !ok {
		return nil, fmt.Errorf("line %d: %%%s is not defined", line, name)
	}
	return v, nil
}

// parseGraph parses a "graph(...):" or "subgraph(...):" section into a
// fresh ir.Graph with its own value namespace.
func (p *GraphParser) parseGraph(c *cursor, header string) (*ir.Graph, error) {
	tok, err := c.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	if tok.text != header {
		return nil, fmt.Errorf("line %d: expected %q, got %q", tok.line, header, tok.text)
	}
	scope := &graphScope{g: ir.NewGraph(), env: make(map[string]*ir.Value)}
	if err := p.parseParams(c, scope, scope.g.Block()); err != nil {
		return nil, err
	}
	if err := p.parseBlockBody(c, scope, scope.g.Block(), header == "graph"); err != nil {
		return nil, err
	}
	return scope.g, nil
}

// parseParams parses "(%a : T, %b : U):" and adds the inputs to b.
func (p *GraphParser) parseParams(c *cursor, scope *graphScope, b *ir.Block) error {
	if _, err := c.expect(tokLParen); err != nil {
		return err
	}
	if !c.accept(tokRParen) {
		for {
			tok, err := c.expect(tokValue)
			if err != nil {
				return err
			}
			if _, err := c.expect(tokColon); err != nil {
				return err
			}
			t, err := p.parseType(c)
			if err != nil {
				return err
			}
			if err := scope.define(tok.text, b.AddInput(t), tok.line); err != nil {
				return err
			}
			if c.accept(tokComma) {
				continue
			}
			if _, err := c.expect(tokRParen); err != nil {
				return err
			}
			break
		}
	}
	_, err := c.expect(tokColon)
	return err
}

// parseBlockBody parses statements until the block's terminator:
// "return (...)" for a graph root, "-> (...)" otherwise.
func (p *GraphParser) parseBlockBody(c *cursor, scope *graphScope, b *ir.Block, root bool) error {
	var last *ir.Node
	for {
		tok := c.peek()
		switch {
		case root && tok.kind == tokIdent && tok.text == "return":
			c.next()
			return p.parseTerminator(c, scope, b)
		case !root && tok.kind == tokArrow:
			c.next()
			return p.parseTerminator(c, scope, b)
		case tok.kind == tokIdent && isBlockHeader(tok.text):
			if last == nil {
				return fmt.Errorf("line %d: block section without a preceding node", tok.line)
			}
			c.next()
			sub := last.AddBlock()
			if err := p.parseParams(c, scope, sub); err != nil {
				return err
			}
			if err := p.parseBlockBody(c, scope, sub, false); err != nil {
				return err
			}
		case tok.kind == tokIdent && tok.text == "subgraph":
			if last == nil {
				return fmt.Errorf("line %d: subgraph section without a preceding node", tok.line)
			}
			sub, err := p.parseGraph(c, "subgraph")
			if err != nil {
				return err
			}
			last.SetSubgraph(sub)
		case tok.kind == tokEOF:
			return fmt.Errorf("line %d: unexpected end of input in block", tok.line)
		default:
			n, err := p.parseStatement(c, scope, b)
			if err != nil {
				return err
			}
			last = n
		}
	}
}

func isBlockHeader(text string) bool {
	if !strings.HasPrefix(text, "block") {
		return false
	}
	rest := text[len("block"):]
	if rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (p *GraphParser) parseTerminator(c *cursor, scope *graphScope, b *ir.Block) error {
	if _, err := c.expect(tokLParen); err != nil {
		return err
	}
	if c.accept(tokRParen) {
		return nil
	}
	for {
		tok, err := c.expect(tokValue)
		if err != nil {
			return err
		}
		v, err := scope.lookup(tok.text, tok.line)
		if err != nil {
			return err
		}
		b.RegisterOutput(v)
		if c.accept(tokComma) {
			continue
		}
		_, err = c.expect(tokRParen)
		return err
	}
}

// parseStatement parses one node line: an optional output list, the node
// kind with optional attributes, and the input list.
func (p *GraphParser) parseStatement(c *cursor, scope *graphScope, b *ir.Block) (*ir.Node, error) {
	type output struct {
		name string
		typ  ir.Type
		line int
	}
	var outputs []output
	for c.peek().kind == tokValue {
		tok := c.next()
		if _, err := c.expect(tokColon); err != nil {
			return nil, err
		}
		t, err := p.parseType(c)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, output{name: tok.text, typ: t, line: tok.line})
		if c.accept(tokComma) {
			continue
		}
		break
	}
	if len(outputs) > 0 {
		if _, err := c.expect(tokEqual); err != nil {
			return nil, err
		}
	}
	kindTok, err := c.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(kindTok.text, "::") {
		return nil, fmt.Errorf("line %d: expected a namespaced node kind, got %q", kindTok.line, kindTok.text)
	}
	n := scope.g.Create(ir.Symbol(kindTok.text))

	if c.peek().kind == tokLBrack {
		if err := p.parseAttrs(c, n); err != nil {
			return nil, err
		}
	}

	if _, err := c.expect(tokLParen); err != nil {
		return nil, err
	}
	if !c.accept(tokRParen) {
		for {
			tok, err := c.expect(tokValue)
			if err != nil {
				return nil, err
			}
			v, err := scope.lookup(tok.text, tok.line)
			if err != nil {
				return nil, err
			}
			n.AddInput(v)
			if c.accept(tokComma) {
				continue
			}
			if _, err := c.expect(tokRParen); err != nil {
				return nil, err
			}
			break
		}
	}

	for _, o := range outputs {
		if err := scope.define(o.name, n.AddOutput(o.typ), o.line); err != nil {
			return nil, err
		}
	}
	b.Append(n)

	if p.source != nil {
		inputs := make([]ir.Type, len(n.Inputs()))
		for i, in := range n.Inputs() {
			inputs[i] = in.Type()
		}
		if sch := p.source.Match(n.Kind(), inputs); sch != nil {
			n.SetSchema(sch)
		}
	}
	return n, nil
}

func (p *GraphParser) parseAttrs(c *cursor, n *ir.Node) error {
	if _, err := c.expect(tokLBrack); err != nil {
		return err
	}
	for {
		nameTok, err := c.expect(tokIdent)
		if err != nil {
			return err
		}
		if _, err := c.expect(tokEqual); err != nil {
			return err
		}
		valTok := c.next()
		switch valTok.kind {
		case tokNumber, tokString, tokIdent:
			n.SetAttr(nameTok.text, valTok.text)
		default:
			return fmt.Errorf("line %d: expected attribute value, got %s %q", valTok.line, valTok.kind, valTok.text)
		}
		if c.accept(tokComma) {
			continue
		}
		_, err = c.expect(tokRBrack)
		return err
	}
}

// parseType parses a type in graph position (no alias annotations).
func (p *GraphParser) parseType(c *cursor) (ir.Type, error) {
	var base ir.Type
	if c.peek().kind == tokLParen {
		c.next()
		var elems []ir.Type
		if !c.accept(tokRParen) {
			for {
				t, err := p.parseType(c)
				if err != nil {
					return nil, err
				}
				elems = append(elems, t)
				if c.accept(tokComma) {
					continue
				}
				if _, err := c.expect(tokRParen); err != nil {
					return nil, err
				}
				break
			}
		}
		base = ir.TupleOf(elems...)
	} else {
		tok, err := c.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		switch tok.text {
		case "Tensor":
			base = ir.TensorType
		case "int":
			base = ir.IntType
		case "float":
			base = ir.FloatType
		case "bool":
			base = ir.BoolType
		case "str":
			base = ir.StringType
		case "Scalar", "Number":
			base = ir.NumberType
		case "None", "NoneType":
			base = ir.NoneType
		case "Dict":
			if _, err := c.expect(tokLParen); err != nil {
				return nil, err
			}
			key, err := p.parseType(c)
			if err != nil {
				return nil, err
			}
			if _, err := c.expect(tokComma); err != nil {
				return nil, err
			}
			value, err := p.parseType(c)
			if err != nil {
				return nil, err
			}
			if _, err := c.expect(tokRParen); err != nil {
				return nil, err
			}
			base = ir.DictOf(key, value)
		case "Future":
			if _, err := c.expect(tokLParen); err != nil {
				return nil, err
			}
			elem, err := p.parseType(c)
			if err != nil {
				return nil, err
			}
			if _, err := c.expect(tokRParen); err != nil {
				return nil, err
			}
			base = ir.FutureOf(elem)
		default:
			base = ir.ClassNamed(tok.text)
		}
	}
	for {
		if c.peek().kind == tokLBrack {
			c.next()
			if _, err := c.expect(tokRBrack); err != nil {
				return nil, err
			}
			base = ir.ListOf(base)
			continue
		}
		if c.peek().kind == tokQuest {
			c.next()
			base = ir.OptionalOf(base)
			continue
		}
		return base, nil
	}
}
