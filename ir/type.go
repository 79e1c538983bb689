// Package ir provides the compute-graph intermediate representation that
// weft analyzes: typed SSA values, operator nodes, nested blocks, and
// operator schemas with alias annotations.
package ir

import (
	"fmt"
	"strings"
)

// TypeKind represents the shape of a type in the lattice.
type TypeKind string

const (
	KindTensor   TypeKind = "Tensor"
	KindList     TypeKind = "List"
	KindTuple    TypeKind = "Tuple"
	KindDict     TypeKind = "Dict"
	KindClass    TypeKind = "Class"
	KindFuture   TypeKind = "Future"
	KindOptional TypeKind = "Optional"
	KindInt      TypeKind = "Int"
	KindFloat    TypeKind = "Float"
	KindBool     TypeKind = "Bool"
	KindString   TypeKind = "String"
	KindNumber   TypeKind = "Number"
	KindNone     TypeKind = "None"
)

// Type is one point in the type lattice. Implementations are immutable
// and may be shared freely between values and schemas.
type Type interface {
	// Kind reports which lattice member this type is.
	Kind() TypeKind
	// Contained returns the directly contained types: the element type of
	// a list, future, or optional, the members of a tuple, or the key and
	// value types of a dict. Nil for leaf types.
	Contained() []Type
	// IsSubtypeOf reports whether values of this type are acceptable
	// where `other` is expected.
	IsSubtypeOf(other Type) bool
	String() string
}

// Singleton leaf types.
var (
	TensorType Type = &primType{KindTensor}
	IntType    Type = &primType{KindInt}
	FloatType  Type = &primType{KindFloat}
	BoolType   Type = &primType{KindBool}
	StringType Type = &primType{KindString}
	NumberType Type = &primType{KindNumber}
	NoneType   Type = &primType{KindNone}
)

type primType struct {
	kind TypeKind
}

func (t *primType) Kind() TypeKind          { return t.kind }
func (t *primType) Contained() []Type       { return nil }
func (t *primType) IsSubtypeOf(o Type) bool { return subtypeOf(t, o) }

func (t *primType) String() string {
	switch t.kind {
	case KindTensor:
		return "Tensor"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "str"
	case KindNumber:
		return "Scalar"
	case KindNone:
		return "NoneType"
	}
	return string(t.kind)
}

type listType struct {
	elem Type
}

// ListOf returns the list type with the given element type.
func ListOf(elem Type) Type { return &listType{elem} }

func (t *listType) Kind() TypeKind          { return KindList }
func (t *listType) Contained() []Type       { return []Type{t.elem} }
func (t *listType) IsSubtypeOf(o Type) bool { return subtypeOf(t, o) }
func (t *listType) String() string          { return t.elem.String() + "[]" }

type tupleType struct {
	elems []Type
}

// TupleOf returns the tuple type with the given member types.
func TupleOf(elems ...Type) Type {
	return &tupleType{elems: append([]Type(nil), elems...)}
}

func (t *tupleType) Kind() TypeKind          { return KindTuple }
func (t *tupleType) Contained() []Type       { return t.elems }
func (t *tupleType) IsSubtypeOf(o Type) bool { return subtypeOf(t, o) }

func (t *tupleType) String() string {
	parts := make([]string, len(t.elems))
	for i, e := range t.elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

type dictType struct {
	key   Type
	value Type
}

// DictOf returns the dict type with the given key and value types.
func DictOf(key, value Type) Type { return &dictType{key: key, value: value} }

func (t *dictType) Kind() TypeKind          { return KindDict }
func (t *dictType) Contained() []Type       { return []Type{t.key, t.value} }
func (t *dictType) IsSubtypeOf(o Type) bool { return subtypeOf(t, o) }
func (t *dictType) String() string {
	return fmt.Sprintf("Dict(%s, %s)", t.key, t.value)
}

type optionalType struct {
	elem Type
}

// OptionalOf returns the optional type wrapping elem. Optionals of
// optionals collapse to a single level.
func OptionalOf(elem Type) Type {
	if elem.Kind() == KindOptional {
		return elem
	}
	return &optionalType{elem}
}

func (t *optionalType) Kind() TypeKind          { return KindOptional }
func (t *optionalType) Contained() []Type       { return []Type{t.elem} }
func (t *optionalType) IsSubtypeOf(o Type) bool { return subtypeOf(t, o) }
func (t *optionalType) String() string          { return t.elem.String() + "?" }

type futureType struct {
	elem Type
}

// FutureOf returns the future type wrapping elem.
func FutureOf(elem Type) Type { return &futureType{elem} }

func (t *futureType) Kind() TypeKind          { return KindFuture }
func (t *futureType) Contained() []Type       { return []Type{t.elem} }
func (t *futureType) IsSubtypeOf(o Type) bool { return subtypeOf(t, o) }
func (t *futureType) String() string          { return fmt.Sprintf("Future(%s)", t.elem) }

type classType struct {
	name string
}

// ClassNamed returns the class type with the given qualified name.
func ClassNamed(name string) Type { return &classType{name} }

func (t *classType) Kind() TypeKind          { return KindClass }
func (t *classType) Contained() []Type       { return nil }
func (t *classType) IsSubtypeOf(o Type) bool { return subtypeOf(t, o) }
func (t *classType) String() string          { return t.name }

// ClassName returns the qualified name of a class type, or "" if t is
// not a class.
func ClassName(t Type) string {
	if c, ok := t.(*classType); ok {
		return c.name
	}
	return ""
}

// EqualTypes reports structural equality of two types.
func EqualTypes(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if a.Kind() == KindClass {
		return ClassName(a) == ClassName(b)
	}
	ca, cb := a.Contained(), b.Contained()
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if !EqualTypes(ca[i], cb[i]) {
			return false
		}
	}
	return true
}

// subtypeOf implements the shared subtyping rules: reflexivity, numeric
// widening into Scalar, and None/T acceptance by Optional.
func subtypeOf(t, o Type) bool {
	if EqualTypes(t, o) {
		return true
	}
	if o.Kind() == KindOptional {
		if t.Kind() == KindNone {
			return true
		}
		return subtypeOf(t, o.Contained()[0])
	}
	if (t.Kind() == KindInt || t.Kind() == KindFloat) && o.Kind() == KindNumber {
		return true
	}
	return false
}

// Unwrap strips Optional and Future wrappers until a non-wrapper type
// remains.
func Unwrap(t Type) Type {
	for t.Kind() == KindOptional || t.Kind() == KindFuture {
		t = t.Contained()[0]
	}
	return t
}
