// Package registry maintains the operator schema catalog and the
// per-kind analysis policies that drive alias analysis.
package registry

import (
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"weft/ir"
	"weft/parse"
)

// AnalysisKind selects how nodes of a kind are analyzed.
type AnalysisKind string

const (
	// FromSchema derives aliasing from the operator's alias annotations.
	FromSchema AnalysisKind = "from-schema"
	// Pure treats every output as a fresh value.
	Pure AnalysisKind = "pure"
	// Conservative assumes writes to all inputs and wildcard outputs.
	Conservative AnalysisKind = "conservative"
)

func validAnalysisKind(k AnalysisKind) bool {
	switch k {
	case FromSchema, Pure, Conservative:
		return true
	}
	return false
}

// Registry holds operator schemas, explicit per-kind analysis
// overrides, and glob-based analysis rules. It is safe for concurrent
// use.
type Registry struct {
	mu      sync.RWMutex
	schemas map[ir.Symbol][]*ir.FunctionSchema
	kinds   map[ir.Symbol]AnalysisKind
	rules   []Rule
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		schemas: make(map[ir.Symbol][]*ir.FunctionSchema),
		kinds:   make(map[ir.Symbol]AnalysisKind),
	}
}

// Register parses a schema declaration and adds it to the catalog.
func (r *Registry) Register(decl string) (*ir.FunctionSchema, error) {
	s, err := parse.Schema(decl)
	if err != nil {
		return nil, err
	}
	r.RegisterSchema(s)
	return s, nil
}

// RegisterSchema adds an already-parsed schema to the catalog.
func (r *Registry) RegisterSchema(s *ir.FunctionSchema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Name] = append(r.schemas[s.Name], s)
}

// Schemas returns all schemas registered for a kind, in registration
// order.
func (r *Registry) Schemas(kind ir.Symbol) []*ir.FunctionSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*ir.FunctionSchema(nil), r.schemas[kind]...)
}

// Match returns the first schema for kind that accepts the given input
// types, or nil.
func (r *Registry) Match(kind ir.Symbol, inputs []ir.Type) *ir.FunctionSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.schemas[kind] {
		if schemaAccepts(s, inputs) {
			return s
		}
	}
	return nil
}

func schemaAccepts(s *ir.FunctionSchema, inputs []ir.Type) bool {
	if len(inputs) < s.MinArguments() {
		return false
	}
	if len(inputs) > len(s.Arguments) && !s.VarArg {
		return false
	}
	for i, t := range inputs {
		if i >= len(s.Arguments) {
			break
		}
		if !t.IsSubtypeOf(s.Arguments[i].Type) {
			return false
		}
	}
	return true
}

// SetAnalysisKind records an explicit analysis override for a kind.
// Explicit overrides win over rules.
func (r *Registry) SetAnalysisKind(kind ir.Symbol, a AnalysisKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = a
}

// AnalysisKindFor resolves the analysis policy for a kind: explicit
// override first, then the first matching rule, then FromSchema.
func (r *Registry) AnalysisKindFor(kind ir.Symbol) AnalysisKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if k, ok := r.kinds[kind]; ok {
		return k
	}
	for _, rule := range r.rules {
		if rule.matches(kind) {
			return rule.Analysis
		}
	}
	return FromSchema
}

// Clone returns an independent copy sharing no state with r.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := New()
	for kind, list := range r.schemas {
		c.schemas[kind] = append([]*ir.FunctionSchema(nil), list...)
	}
	for kind, a := range r.kinds {
		c.kinds[kind] = a
	}
	c.rules = append([]Rule(nil), r.rules...)
	return c
}

func (rule Rule) matches(kind ir.Symbol) bool {
	for _, pattern := range rule.Ops {
		ok, err := doublestar.Match(pattern, string(kind))
		if err == nil && ok {
			return true
		}
	}
	return false
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns a shared registry preloaded with the schemas of
// common tensor operators. Callers that mutate the registry should
// Clone it first.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = New()
		for _, decl := range builtinSchemas {
			defaultReg.RegisterSchema(parse.MustSchema(decl))
		}
	})
	return defaultReg
}

var builtinSchemas = []string{
	"aten::add_(Tensor(a!) self, Tensor other) -> Tensor(a!)",
	"aten::sub_(Tensor(a!) self, Tensor other) -> Tensor(a!)",
	"aten::mul_(Tensor(a!) self, Tensor other) -> Tensor(a!)",
	"aten::div_(Tensor(a!) self, Tensor other) -> Tensor(a!)",
	"aten::relu_(Tensor(a!) self) -> Tensor(a!)",
	"aten::copy_(Tensor(a!) self, Tensor src) -> Tensor(a!)",
	"aten::fill_(Tensor(a!) self, Scalar value) -> Tensor(a!)",
	"aten::add(Tensor self, Tensor other) -> Tensor",
	"aten::add.Scalar(Tensor self, Scalar other) -> Tensor",
	"aten::sub(Tensor self, Tensor other) -> Tensor",
	"aten::sub.Scalar(Tensor self, Scalar other) -> Tensor",
	"aten::mul(Tensor self, Tensor other) -> Tensor",
	"aten::mul.Scalar(Tensor self, Scalar other) -> Tensor",
	"aten::div(Tensor self, Tensor other) -> Tensor",
	"aten::div.Scalar(Tensor self, Scalar other) -> Tensor",
	"aten::relu(Tensor self) -> Tensor",
	"aten::mm(Tensor self, Tensor mat2) -> Tensor",
	"aten::t(Tensor(a) self) -> Tensor(a)",
	"aten::view(Tensor(a) self, int[] size) -> Tensor(a)",
	"aten::select(Tensor(a) self, int dim, int index) -> Tensor(a)",
	"aten::cat(Tensor[] tensors, int dim=0) -> Tensor",
	"aten::zeros(int[] size) -> Tensor",
	"aten::rand(int[] size) -> Tensor",
	"aten::size(Tensor self) -> int[]",
}
