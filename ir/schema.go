package ir

import (
	"fmt"
	"strings"
)

// WildcardSet is the alias-set name reserved for "may alias anything of
// its kind".
const WildcardSet = "*"

// AliasInfo is the alias annotation on one argument or return: the named
// alias sets the value belongs to before and after the call, and whether
// the operator writes through it.
type AliasInfo struct {
	BeforeSets []string
	AfterSets  []string
	Write      bool

	// ContainedTypes carries annotations on contained types, e.g. the
	// element annotation of an annotated list. Analysis does not support
	// these yet.
	ContainedTypes []*AliasInfo
}

// BeforeSet returns the primary (first) before-set name.
func (ai *AliasInfo) BeforeSet() string { return ai.BeforeSets[0] }

// IsWildcardBefore reports whether the before-position mentions "*".
func (ai *AliasInfo) IsWildcardBefore() bool { return containsSet(ai.BeforeSets, WildcardSet) }

// IsWildcardAfter reports whether the after-position mentions "*".
func (ai *AliasInfo) IsWildcardAfter() bool { return containsSet(ai.AfterSets, WildcardSet) }

// SameBeforeAndAfter reports whether the annotation declares no
// set change across the call.
func (ai *AliasInfo) SameBeforeAndAfter() bool {
	if len(ai.BeforeSets) != len(ai.AfterSets) {
		return false
	}
	for i := range ai.BeforeSets {
		if ai.BeforeSets[i] != ai.AfterSets[i] {
			return false
		}
	}
	return true
}

func (ai *AliasInfo) String() string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(strings.Join(ai.BeforeSets, "|"))
	if ai.Write {
		b.WriteString("!")
	}
	if !ai.SameBeforeAndAfter() {
		b.WriteString(" -> ")
		b.WriteString(strings.Join(ai.AfterSets, "|"))
	}
	b.WriteString(")")
	return b.String()
}

func containsSet(sets []string, name string) bool {
	for _, s := range sets {
		if s == name {
			return true
		}
	}
	return false
}

// Argument describes one formal argument or return of a schema.
type Argument struct {
	Name       string
	Type       Type
	Alias      *AliasInfo
	HasDefault bool
}

// FunctionSchema is an operator's declared signature, including alias
// annotations.
type FunctionSchema struct {
	Name      Symbol
	Overload  string
	Arguments []Argument
	Returns   []Argument
	VarArg    bool
	VarRet    bool
}

// MinArguments returns the number of leading arguments without defaults,
// i.e. the fewest inputs a call site may supply.
func (s *FunctionSchema) MinArguments() int {
	n := 0
	for _, a := range s.Arguments {
		if a.HasDefault {
			break
		}
		n++
	}
	return n
}

func (s *FunctionSchema) String() string {
	var b strings.Builder
	b.WriteString(string(s.Name))
	if s.Overload != "" {
		b.WriteString("." + s.Overload)
	}
	b.WriteString("(")
	for i, a := range s.Arguments {
		if i > 0 {
			b.WriteString(", ")
		}
		writeArgument(&b, a)
	}
	if s.VarArg {
		if len(s.Arguments) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("...")
	}
	b.WriteString(") -> ")
	switch {
	case s.VarRet:
		b.WriteString("...")
	case len(s.Returns) == 1:
		writeArgument(&b, s.Returns[0])
	default:
		b.WriteString("(")
		for i, r := range s.Returns {
			if i > 0 {
				b.WriteString(", ")
			}
			writeArgument(&b, r)
		}
		b.WriteString(")")
	}
	return b.String()
}

func writeArgument(b *strings.Builder, a Argument) {
	fmt.Fprintf(b, "%s", a.Type)
	if a.Alias != nil {
		b.WriteString(a.Alias.String())
	}
	if a.Name != "" {
		b.WriteString(" " + a.Name)
	}
}
