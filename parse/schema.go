package parse

import (
	"fmt"
	"strings"

	"weft/ir"
)

// Schema parses an operator schema declaration such as
//
//	aten::add_(Tensor(a!) self, Tensor other) -> Tensor(a!)
//
// Alias annotations support named sets, unions ("a|b"), the wildcard
// "*", the write marker "!", and before/after forms ("a -> a|b").
// Keyword-only markers ("*,") and default values are accepted and
// recorded but carry no alias meaning.
func Schema(text string) (*ir.FunctionSchema, error) {
	toks, err := lex([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	c := &cursor{toks: toks}
	s, err := parseSchema(c)
	if err != nil {
		return nil, fmt.Errorf("parsing schema %q: %w", text, err)
	}
	if tok := c.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("parsing schema %q: trailing %s %q", text, tok.kind, tok.text)
	}
	return s, nil
}

// MustSchema is Schema for statically known declarations; it panics on
// error.
func MustSchema(text string) *ir.FunctionSchema {
	s, err := Schema(text)
	if err != nil {
		panic(err)
	}
	return s
}

func parseSchema(c *cursor) (*ir.FunctionSchema, error) {
	nameTok, err := c.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	s := &ir.FunctionSchema{}
	s.Name, s.Overload = splitOverload(nameTok.text)
	if _, err := c.expect(tokLParen); err != nil {
		return nil, err
	}
	if err := parseSchemaArgs(c, s); err != nil {
		return nil, err
	}
	if _, err := c.expect(tokArrow); err != nil {
		return nil, err
	}
	return s, parseSchemaReturns(c, s)
}

// splitOverload separates "aten::add_.Tensor" into the operator name and
// the overload suffix.
func splitOverload(name string) (ir.Symbol, string) {
	base := name
	if i := strings.Index(name, "::"); i >= 0 {
		base = name[i+2:]
	}
	if j := strings.Index(base, "."); j >= 0 {
		cut := len(name) - len(base) + j
		return ir.Symbol(name[:cut]), name[cut+1:]
	}
	return ir.Symbol(name), ""
}

func parseSchemaArgs(c *cursor, s *ir.FunctionSchema) error {
	if c.accept(tokRParen) {
		return nil
	}
	for {
		switch c.peek().kind {
		case tokStar:
			// Keyword-only marker.
			c.next()
		case tokEllipsis:
			c.next()
			s.VarArg = true
			if _, err := c.expect(tokRParen); err != nil {
				return err
			}
			return nil
		default:
			arg, err := parseSchemaArg(c, true)
			if err != nil {
				return err
			}
			s.Arguments = append(s.Arguments, arg)
		}
		if c.accept(tokComma) {
			continue
		}
		_, err := c.expect(tokRParen)
		return err
	}
}

func parseSchemaReturns(c *cursor, s *ir.FunctionSchema) error {
	switch c.peek().kind {
	case tokEllipsis:
		c.next()
		s.VarRet = true
		return nil
	case tokLParen:
		c.next()
		if c.accept(tokRParen) {
			return nil
		}
		for {
			ret, err := parseSchemaArg(c, false)
			if err != nil {
				return err
			}
			s.Returns = append(s.Returns, ret)
			if c.accept(tokComma) {
				continue
			}
			_, err = c.expect(tokRParen)
			return err
		}
	default:
		ret, err := parseSchemaArg(c, false)
		if err != nil {
			return err
		}
		s.Returns = append(s.Returns, ret)
		return nil
	}
}

func parseSchemaArg(c *cursor, allowDefault bool) (ir.Argument, error) {
	var arg ir.Argument
	t, info, err := parseAnnotatedType(c)
	if err != nil {
		return arg, err
	}
	arg.Type = t
	arg.Alias = info
	if c.peek().kind == tokIdent {
		arg.Name = c.next().text
	}
	if allowDefault && c.accept(tokEqual) {
		if err := skipDefaultValue(c); err != nil {
			return arg, err
		}
		arg.HasDefault = true
	}
	return arg, nil
}

// parseAnnotatedType parses a schema type with an optional alias
// annotation, e.g. "Tensor(a!)", "Tensor", "int[]", "Tensor?".
func parseAnnotatedType(c *cursor) (ir.Type, *ir.AliasInfo, error) {
	base, err := parseSchemaBaseType(c)
	if err != nil {
		return nil, nil, err
	}
	var info *ir.AliasInfo
	if canAnnotate(base) && c.peek().kind == tokLParen {
		info, err = parseAliasAnnotation(c)
		if err != nil {
			return nil, nil, err
		}
	}
	t := base
	for {
		if c.peek().kind == tokLBrack {
			c.next()
			if _, err := c.expect(tokRBrack); err != nil {
				return nil, nil, err
			}
			if info != nil {
				return nil, nil, fmt.Errorf("line %d: alias annotations on contained types are not supported", c.peek().line)
			}
			t = ir.ListOf(t)
			continue
		}
		if c.peek().kind == tokQuest {
			c.next()
			t = ir.OptionalOf(t)
			continue
		}
		break
	}
	return t, info, nil
}

// canAnnotate reports whether a "(" following the base type starts an
// alias annotation rather than type arguments.
func canAnnotate(t ir.Type) bool {
	switch t.Kind() {
	case ir.KindDict, ir.KindFuture, ir.KindTuple:
		return false
	}
	return true
}

func parseSchemaBaseType(c *cursor) (ir.Type, error) {
	if c.peek().kind == tokLParen {
		c.next()
		var elems []ir.Type
		if !c.accept(tokRParen) {
			for {
				t, _, err := parseAnnotatedType(c)
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
		return ir.TupleOf(elems...), nil
	}
	tok, err := c.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	switch tok.text {
	case "Tensor":
		return ir.TensorType, nil
	case "int":
		return ir.IntType, nil
	case "float":
		return ir.FloatType, nil
	case "bool":
		return ir.BoolType, nil
	case "str":
		return ir.StringType, nil
	case "Scalar", "Number":
		return ir.NumberType, nil
	case "None", "NoneType":
		return ir.NoneType, nil
	case "Dict":
		if _, err := c.expect(tokLParen); err != nil {
			return nil, err
		}
		key, _, err := parseAnnotatedType(c)
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(tokComma); err != nil {
			return nil, err
		}
		value, _, err := parseAnnotatedType(c)
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(tokRParen); err != nil {
			return nil, err
		}
		return ir.DictOf(key, value), nil
	case "Future":
		if _, err := c.expect(tokLParen); err != nil {
			return nil, err
		}
		elem, _, err := parseAnnotatedType(c)
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(tokRParen); err != nil {
			return nil, err
		}
		return ir.FutureOf(elem), nil
	default:
		return ir.ClassNamed(tok.text), nil
	}
}

func parseAliasAnnotation(c *cursor) (*ir.AliasInfo, error) {
	if _, err := c.expect(tokLParen); err != nil {
		return nil, err
	}
	info := &ir.AliasInfo{}
	var err error
	info.BeforeSets, err = parseAliasSets(c)
	if err != nil {
		return nil, err
	}
	if c.accept(tokBang) {
		info.Write = true
	}
	if c.accept(tokArrow) {
		info.AfterSets, err = parseAliasSets(c)
		if err != nil {
			return nil, err
		}
		if c.accept(tokBang) {
			info.Write = true
		}
	} else {
		info.AfterSets = append([]string(nil), info.BeforeSets...)
	}
	if _, err := c.expect(tokRParen); err != nil {
		return nil, err
	}
	return info, nil
}

func parseAliasSets(c *cursor) ([]string, error) {
	var sets []string
	for {
		switch c.peek().kind {
		case tokIdent:
			sets = append(sets, c.next().text)
		case tokStar:
			c.next()
			sets = append(sets, ir.WildcardSet)
		default:
			tok := c.peek()
			return nil, fmt.Errorf("line %d: expected alias set, got %s %q", tok.line, tok.kind, tok.text)
		}
		if !c.accept(tokPipe) {
			return sets, nil
		}
	}
}

// skipDefaultValue consumes a default expression: a literal, an
// identifier, or a bracketed list.
func skipDefaultValue(c *cursor) error {
	switch c.peek().kind {
	case tokNumber, tokString, tokIdent:
		c.next()
		return nil
	case tokLBrack:
		c.next()
		depth := 1
		for depth > 0 {
			switch c.next().kind {
			case tokLBrack:
				depth++
			case tokRBrack:
				depth--
			case tokEOF:
				return fmt.Errorf("unterminated default value")
			}
		}
		return nil
	default:
		tok := c.peek()
		return fmt.Errorf("line %d: expected default value, got %s %q", tok.line, tok.kind, tok.text)
	}
}
