package parse

import (
	"strings"
	"testing"

	"weft/ir"
)

func mustSchema(t *testing.T, decl string) *ir.FunctionSchema {
	t.Helper()
	s, err := Schema(decl)
	if err != nil {
		t.Fatalf("Schema(%q): %v", decl, err)
	}
	return s
}

func TestSchemaAliasAnnotations(t *testing.T) {
	s := mustSchema(t, "aten::add_(Tensor(a!) self, Tensor other) -> Tensor(a!)")

	if got := string(s.Name); got != "aten::add_" {
		t.Errorf("Name = %q, want aten::add_", got)
	}
	self := s.Arguments[0]
	if self.Name != "self" || self.Alias == nil {
		t.Fatalf("self argument not parsed: %+v", self)
	}
	if !self.Alias.Write {
		t.Errorf("self must carry the write marker")
	}
	if got := self.Alias.BeforeSet(); got != "a" {
		t.Errorf("self before-set = %q, want a", got)
	}
	if !self.Alias.SameBeforeAndAfter() {
		t.Errorf("no arrow means the sets do not change")
	}
	if other := s.Arguments[1]; other.Alias != nil {
		t.Errorf("unannotated argument must have nil alias info")
	}
	if ret := s.Returns[0]; ret.Alias == nil || !ret.Alias.Write || ret.Alias.BeforeSet() != "a" {
		t.Errorf("return annotation not parsed: %+v", ret)
	}
}

func TestSchemaViewAnnotationIsReadOnly(t *testing.T) {
	s := mustSchema(t, "aten::t(Tensor(a) self) -> Tensor(a)")
	if s.Arguments[0].Alias.Write {
		t.Errorf("a view annotation does not write")
	}
}

func TestSchemaSetUnions(t *testing.T) {
	s := mustSchema(t, "foo::pick(Tensor(a) x, Tensor(b) y) -> Tensor(a|b)")
	ret := s.Returns[0]
	if got := len(ret.Alias.BeforeSets); got != 2 {
		t.Fatalf("union parsed into %d sets, want 2", got)
	}
	if ret.Alias.BeforeSets[0] != "a" || ret.Alias.BeforeSets[1] != "b" {
		t.Errorf("union sets = %v", ret.Alias.BeforeSets)
	}
}

func TestSchemaBeforeAfterArrow(t *testing.T) {
	s := mustSchema(t, "foo::move(Tensor(a -> b) x) -> Tensor(b)")
	info := s.Arguments[0].Alias
	if info.SameBeforeAndAfter() {
		t.Errorf("the arrow changes the set membership")
	}
	if info.BeforeSets[0] != "a" || info.AfterSets[0] != "b" {
		t.Errorf("before %v after %v, want a and b", info.BeforeSets, info.AfterSets)
	}
}

func TestSchemaWildcards(t *testing.T) {
	s := mustSchema(t, "foo::recv(Tensor(*) x) -> Tensor(*)")
	if !s.Arguments[0].Alias.IsWildcardBefore() {
		t.Errorf("star must parse as the wildcard set")
	}

	s = mustSchema(t, "foo::leak(Tensor(a -> *) x) -> Tensor")
	info := s.Arguments[0].Alias
	if info.IsWildcardBefore() {
		t.Errorf("the wildcard is only in the after position")
	}
	if !info.IsWildcardAfter() {
		t.Errorf("the after position must be the wildcard")
	}
}

func TestSchemaDefaultsAndKeywordOnly(t *testing.T) {
	s := mustSchema(t, "aten::cat(Tensor[] tensors, int dim=0) -> Tensor")
	if !s.Arguments[1].HasDefault {
		t.Errorf("dim has a default")
	}
	if got := s.MinArguments(); got != 1 {
		t.Errorf("MinArguments = %d, want 1", got)
	}

	s = mustSchema(t, "foo::rand(int[] size, *, bool pinned=0, Generator? gen=None) -> Tensor")
	if got := len(s.Arguments); got != 3 {
		t.Errorf("keyword-only marker must not become an argument; got %d", got)
	}
	if got := s.MinArguments(); got != 1 {
		t.Errorf("MinArguments = %d, want 1", got)
	}
}

func TestSchemaVarargs(t *testing.T) {
	s := mustSchema(t, "foo::format(str fmt, ...) -> str")
	if !s.VarArg {
		t.Errorf("trailing ellipsis sets VarArg")
	}
	if s.VarRet {
		t.Errorf("the return is concrete")
	}

	s = mustSchema(t, "prim::tupleunpack((Tensor, Tensor) tup) -> ...")
	if !s.VarRet {
		t.Errorf("ellipsis return sets VarRet")
	}
}

func TestSchemaOverloadSplit(t *testing.T) {
	s := mustSchema(t, "aten::add.Scalar(Tensor self, Scalar other) -> Tensor")
	if string(s.Name) != "aten::add" || s.Overload != "Scalar" {
		t.Errorf("Name = %q Overload = %q, want aten::add / Scalar", s.Name, s.Overload)
	}
}

func TestSchemaTypeShapes(t *testing.T) {
	s := mustSchema(t, "foo::mix(Tensor? opt, int[] sizes, Dict(str, Tensor) d, Future(Tensor) f) -> (Tensor values, Tensor indices)")
	wantKinds := []ir.TypeKind{ir.KindOptional, ir.KindList, ir.KindDict, ir.KindFuture}
	for i, k := range wantKinds {
		if got := s.Arguments[i].Type.Kind(); got != k {
			t.Errorf("argument %d kind = %s, want %s", i, got, k)
		}
	}
	if len(s.Returns) != 2 || s.Returns[1].Name != "indices" {
		t.Errorf("multiple named returns not parsed: %+v", s.Returns)
	}
}

func TestSchemaStringRoundTrips(t *testing.T) {
	decls := []string{
		"aten::add_(Tensor(a!) self, Tensor other) -> Tensor(a!)",
		"aten::t(Tensor(a) self) -> Tensor(a)",
		"foo::pick(Tensor(a) x, Tensor(b) y) -> Tensor(a|b)",
		"foo::move(Tensor(a -> b) x) -> Tensor(b)",
		"aten::size(Tensor self) -> int[]",
	}
	for _, decl := range decls {
		s := mustSchema(t, decl)
		if got := s.String(); got != decl {
			t.Errorf("String() = %q, want %q", got, decl)
		}
	}
}

func TestSchemaErrors(t *testing.T) {
	cases := []struct {
		decl    string
		wantSub string
	}{
		{"aten::chunk(Tensor(a) self, int chunks) -> Tensor(a)[]", "contained types"},
		{"aten::f(Tensor(!) x) -> Tensor", "expected alias set"},
		{"aten::f(..., Tensor x) -> Tensor", ""},
		{"aten::f(Tensor x", ""},
		{"aten::f(Tensor x) Tensor", ""},
	}
	for _, tc := range cases {
		_, err := Schema(tc.decl)
		if err == nil {
			t.Errorf("Schema(%q) succeeded, want error", tc.decl)
			continue
		}
		if tc.wantSub != "" && !strings.Contains(err.Error(), tc.wantSub) {
			t.Errorf("Schema(%q) error = %v, want mention of %q", tc.decl, err, tc.wantSub)
		}
	}
}
