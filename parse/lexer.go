// Package parse provides parsers for the textual graph form and for
// operator schema declarations.
package parse

import "fmt"

type tokKind string

const (
	tokIdent    tokKind = "identifier"
	tokValue    tokKind = "value name"
	tokNumber   tokKind = "number"
	tokString   tokKind = "string"
	tokArrow    tokKind = "->"
	tokEllipsis tokKind = "..."
	tokLParen   tokKind = "("
	tokRParen   tokKind = ")"
	tokLBrack   tokKind = "["
	tokRBrack   tokKind = "]"
	tokComma    tokKind = ","
	tokColon    tokKind = ":"
	tokEqual    tokKind = "="
	tokBang     tokKind = "!"
	tokPipe     tokKind = "|"
	tokQuest    tokKind = "?"
	tokStar     tokKind = "*"
	tokEOF      tokKind = "end of input"
)

type token struct {
	kind tokKind
	text string
	line int
}

// lex tokenizes src. Identifiers may embed "::" and ".", so operator
// kinds like "aten::add_.Tensor" come out as a single token. "#" starts
// a comment running to end of line.
func lex(src []byte) ([]token, error) {
	var toks []token
	line := 1
	i := 0
	emit := func(k tokKind, text string) {
		toks = append(toks, token{kind: k, text: text, line: line})
	}
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '%':
			i++
			start := i
			for i < len(src) && isNameByte(src[i]) {
				i++
			}
			if i == start {
				return nil, fmt.Errorf("line %d: empty value name after %%", line)
			}
			emit(tokValue, string(src[start:i]))
		case isIdentStart(c):
			start := i
			for i < len(src) {
				if isNameByte(src[i]) {
					i++
					continue
				}
				if src[i] == ':' && i+1 < len(src) && src[i+1] == ':' {
					i += 2
					continue
				}
				break
			}
			emit(tokIdent, string(src[start:i]))
		case c >= '0' && c <= '9':
			n := scanNumber(src[i:])
			emit(tokNumber, string(src[i:i+n]))
			i += n
		case c == '-':
			if i+1 < len(src) && src[i+1] == '>' {
				emit(tokArrow, "->")
				i += 2
			} else if i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9' {
				n := scanNumber(src[i+1:])
				emit(tokNumber, string(src[i:i+1+n]))
				i += 1 + n
			} else {
				return nil, fmt.Errorf("line %d: unexpected %q", line, c)
			}
		case c == '"':
			j := i + 1
			for j < len(src) && src[j] != '"' && src[j] != '\n' {
				j++
			}
			if j >= len(src) || src[j] != '"' {
				return nil, fmt.Errorf("line %d: unterminated string", line)
			}
			emit(tokString, string(src[i:j+1]))
			i = j + 1
		case c == '.':
			if i+2 < len(src) && src[i+1] == '.' && src[i+2] == '.' {
				emit(tokEllipsis, "...")
				i += 3
			} else {
				return nil, fmt.Errorf("line %d: unexpected %q", line, c)
			}
		default:
			var k tokKind
			switch c {
			case '(':
				k = tokLParen
			case ')':
				k = tokRParen
			case '[':
				k = tokLBrack
			case ']':
				k = tokRBrack
			case ',':
				k = tokComma
			case ':':
				k = tokColon
			case '=':
				k = tokEqual
			case '!':
				k = tokBang
			case '|':
				k = tokPipe
			case '?':
				k = tokQuest
			case '*':
				k = tokStar
			default:
				return nil, fmt.Errorf("line %d: unexpected %q", line, c)
			}
			emit(k, string(c))
			i++
		}
	}
	toks = append(toks, token{kind: tokEOF, line: line})
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameByte(c byte) bool {
	return c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func scanNumber(src []byte) int {
	i := 0
	for i < len(src) {
		c := src[i]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' {
			i++
			continue
		}
		if (c == '+' || c == '-') && i > 0 && (src[i-1] == 'e' || src[i-1] == 'E') {
			i++
			continue
		}
		break
	}
	return i
}

// cursor is a shared position over the token stream.
type cursor struct {
	toks []token
	pos  int
}

func (c *cursor) peek() token { return c.toks[c.pos] }

func (c *cursor) next() token {
	t := c.toks[c.pos]
	if t.kind != tokEOF {
		c.pos++
	}
	return t
}

func (c *cursor) accept(k tokKind) bool {
	if c.toks[c.pos].kind == k {
		c.next()
		return true
	}
	return false
}

func (c *cursor) expect(k tokKind) (token, error) {
	t := c.next()
	if t.kind != k {
		return t, fmt.Errorf("line %d: expected %s, got %s %q", t.line, k, t.kind, t.text)
	}
	return t, nil
}
