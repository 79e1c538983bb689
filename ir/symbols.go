package ir

import "strings"

// Symbol is a namespaced operator or node kind, e.g. "aten::add_" or
// "prim::If". The namespace is everything before the "::".
type Symbol string

// Namespace returns the part before "::", or "" if unqualified.
func (s Symbol) Namespace() string {
	if i := strings.Index(string(s), "::"); i >= 0 {
		return string(s)[:i]
	}
	return ""
}

// Unqualified returns the part after "::", or the whole symbol if
// unqualified.
func (s Symbol) Unqualified() string {
	if i := strings.Index(string(s), "::"); i >= 0 {
		return string(s)[i+2:]
	}
	return string(s)
}

// IsAten reports whether s lives in the aten namespace.
func (s Symbol) IsAten() bool { return s.Namespace() == "aten" }

// IsPrim reports whether s lives in the prim namespace.
func (s Symbol) IsPrim() bool { return s.Namespace() == "prim" }

// Well-known node kinds.
const (
	// Sentinels owned by every block.
	Param  Symbol = "prim::Param"
	Return Symbol = "prim::Return"

	// Control flow.
	If   Symbol = "prim::If"
	Loop Symbol = "prim::Loop"

	// Subgraph holders.
	FusionGroup         Symbol = "prim::FusionGroup"
	DifferentiableGraph Symbol = "prim::DifferentiableGraph"
	GradOf              Symbol = "prim::GradOf"

	// Fresh-value producers.
	Constant       Symbol = "prim::Constant"
	AutogradZero   Symbol = "prim::AutogradZero"
	AutogradAdd    Symbol = "prim::AutogradAdd"
	FusedConcat    Symbol = "prim::FusedConcat"
	MMTreeReduce   Symbol = "prim::MMTreeReduce"
	MMBatchSide    Symbol = "prim::MMBatchSide"
	BroadcastSizes Symbol = "prim::BroadcastSizes"
	ChunkSizes     Symbol = "prim::ChunkSizes"
	Function       Symbol = "prim::Function"
	CreateObject   Symbol = "prim::CreateObject"

	// Container construction and access.
	TupleConstruct Symbol = "prim::TupleConstruct"
	TupleUnpack    Symbol = "prim::TupleUnpack"
	TupleIndex     Symbol = "prim::TupleIndex"
	TupleSlice     Symbol = "prim::TupleSlice"
	ListConstruct  Symbol = "prim::ListConstruct"
	ListUnpack     Symbol = "prim::ListUnpack"
	DictConstruct  Symbol = "prim::DictConstruct"
	DictIndex      Symbol = "prim::DictIndex"

	// Object attribute access.
	GetAttr Symbol = "prim::GetAttr"
	SetAttr Symbol = "prim::SetAttr"

	// Chunking.
	ConstantChunk     Symbol = "prim::ConstantChunk"
	BroadcastingChunk Symbol = "prim::BroadcastingChunk"

	// Asynchrony.
	Fork Symbol = "prim::fork"
	Wait Symbol = "aten::wait"

	// Escape hatches.
	PythonOp     Symbol = "prim::PythonOp"
	CallFunction Symbol = "prim::CallFunction"
	Profile      Symbol = "prim::profile"
	Print        Symbol = "prim::Print"

	// Arithmetic that may appear with or without a schema.
	Add Symbol = "aten::add"
	Sub Symbol = "aten::sub"
	Mul Symbol = "aten::mul"
	Div Symbol = "aten::div"

	// Kinds that must never reach analysis.
	Load               Symbol = "prim::Load"
	Store              Symbol = "prim::Store"
	Drop               Symbol = "prim::Drop"
	AutogradAnyNonZero Symbol = "prim::AutogradAnyNonZero"
	OnnxReshape        Symbol = "onnx::Reshape"
	OnnxShape          Symbol = "onnx::Shape"
)
