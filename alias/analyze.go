package alias

import (
	"fmt"

	"weft/ir"
	"weft/registry"
)

func (db *DB) analyzeBlock(b *ir.Block) error {
	for _, n := range b.Nodes() {
		if err := db.analyzeNode(n); err != nil {
			return err
		}
	}
	return nil
}

// analyzeNode dispatches on node kind. Kinds without schemas get
// hand-written analyses; everything else goes through the registry
// policy and then the schema path.
func (db *DB) analyzeNode(n *ir.Node) error {
	switch n.Kind() {
	case ir.If:
		return db.analyzeIf(n)
	case ir.Loop:
		return db.analyzeLoop(n)
	case ir.FusionGroup, ir.DifferentiableGraph:
		return db.analyzeSubgraph(n)
	case ir.Fork:
		db.analyzeFork(n)
		return nil
	case ir.Wait:
		db.analyzeWait(n)
		return nil
	case ir.TupleConstruct:
		db.analyzeTupleConstruct(n)
		return nil
	case ir.GradOf:
		return db.analyzeGradOf(n)
	case ir.Constant, ir.AutogradZero, ir.AutogradAdd, ir.FusedConcat,
		ir.MMTreeReduce, ir.MMBatchSide, ir.BroadcastSizes, ir.ChunkSizes,
		ir.Function, ir.CreateObject:
		db.analyzeCreator(n)
		return nil
	case ir.DictConstruct, ir.ListConstruct:
		db.analyzeContainerConstruct(n)
		return nil
	case ir.TupleUnpack, ir.TupleIndex, ir.DictIndex, ir.TupleSlice,
		ir.ListUnpack, ir.PythonOp, ir.GetAttr:
		db.analyzeExtractor(n)
		return nil
	case ir.ConstantChunk:
		db.analyzeChunk(n)
		return nil
	case ir.BroadcastingChunk:
		db.analyzeBroadcastingChunk(n)
		return nil
	case ir.SetAttr:
		db.analyzeSetAttr(n)
		return nil
	case ir.Profile:
		return fmt.Errorf("%w: %s", ErrUnhandledKind, n.Kind())
	case ir.CallFunction:
		return fmt.Errorf("%w: node %s", ErrMissingSummary, n)
	case ir.Add, ir.Sub, ir.Mul, ir.Div:
		// Tensor/primitive combinations sometimes appear without a
		// schema; their results are fresh values.
		if n.Schema() == nil {
			db.analyzeCreator(n)
			return nil
		}
	case ir.Print:
		return nil
	default:
		switch db.reg.AnalysisKindFor(n.Kind()) {
		case registry.Pure:
			db.analyzeCreator(n)
			return nil
		case registry.Conservative:
			db.analyzeCustomOp(n)
			return nil
		}
		if hasSpecialCase(n.Kind()) {
			panic(fmt.Sprintf("weft/alias: kind %s must not reach schema analysis", n.Kind()))
		}
	}
	return db.analyzeSchema(n)
}

// analyzeIf joins the alias info of both branches: each node output may
// point to either branch's corresponding block output.
func (db *DB) analyzeIf(n *ir.Node) error {
	trueBlock := n.Blocks()[0]
	falseBlock := n.Blocks()[1]
	if err := db.analyzeBlock(trueBlock); err != nil {
		return err
	}
	if err := db.analyzeBlock(falseBlock); err != nil {
		return err
	}
	for i, out := range n.Outputs() {
		db.makePointerTo(out, trueBlock.Outputs()[i])
		db.makePointerTo(out, falseBlock.Outputs()[i])
	}
	return nil
}

// analyzeLoop maps loop-carried inputs onto the body's block inputs,
// analyzes the body, and maps the body outputs onto the node outputs.
func (db *DB) analyzeLoop(n *ir.Node) error {
	body := n.Blocks()[0]
	// Node inputs lead with max trip count and condition, block inputs
	// with the trip count, block outputs with the continue condition.
	loopCarried := n.Inputs()[2:]
	blockInputs := body.Inputs()[1:]
	blockOutputs := body.Outputs()[1:]
	if len(loopCarried) != len(blockInputs) {
		panic(fmt.Sprintf("weft/alias: loop carries %d values but body takes %d", len(loopCarried), len(blockInputs)))
	}
	if len(blockOutputs) != len(n.Outputs()) {
		panic(fmt.Sprintf("weft/alias: loop body yields %d values but node has %d outputs", len(blockOutputs), len(n.Outputs())))
	}
	db.mapAliases(blockInputs, loopCarried)
	if err := db.analyzeBlock(body); err != nil {
		return err
	}
	db.mapAliases(n.Outputs(), blockOutputs)
	return nil
}

func (db *DB) analyzeGradOf(n *ir.Node) error {
	body := n.Blocks()[0]
	if err := db.analyzeBlock(body); err != nil {
		return err
	}
	db.mapAliases(n.Outputs(), body.Outputs())
	return nil
}

// analyzeSubgraph maps node inputs onto the subgraph's inputs, analyzes
// it, and points node outputs at the leading subgraph outputs. The
// subgraph may have extra trailing outputs.
func (db *DB) analyzeSubgraph(n *ir.Node) error {
	sub := n.Subgraph()
	if sub == nil {
		panic(fmt.Sprintf("weft/alias: %s node without a subgraph", n.Kind()))
	}
	db.subgraphOwners[sub] = n
	db.mapAliases(sub.Inputs(), n.Inputs())
	if err := db.analyzeBlock(sub.Block()); err != nil {
		return err
	}
	if len(sub.Outputs()) < len(n.Outputs()) {
		panic(fmt.Sprintf("weft/alias: subgraph yields %d values but node has %d outputs", len(sub.Outputs()), len(n.Outputs())))
	}
	for i, out := range n.Outputs() {
		db.makePointerTo(out, sub.Outputs()[i])
	}
	return nil
}

// analyzeCreator gives every output a fresh element.
func (db *DB) analyzeCreator(n *ir.Node) {
	for _, out := range n.Outputs() {
		db.giveFreshAlias(out)
	}
}

// analyzeExtractor pulls values out of composites; tracking them
// precisely is not attempted, so everything becomes a wildcard.
func (db *DB) analyzeExtractor(n *ir.Node) {
	for _, out := range n.Outputs() {
		db.setWildcard(out)
	}
}

// analyzeChunk: every returned chunk may alias the input tensor.
func (db *DB) analyzeChunk(n *ir.Node) {
	for _, out := range n.Outputs() {
		db.makePointerTo(out, n.Input(0))
	}
}

// analyzeBroadcastingChunk: input i produces the chunk outputs
// [i*chunks, (i+1)*chunks); each may alias input i.
func (db *DB) analyzeBroadcastingChunk(n *ir.Node) {
	chunks, ok := n.IntAttr("chunks")
	if !ok {
		panic("weft/alias: BroadcastingChunk without a chunks attribute")
	}
	outputs := n.Outputs()
	for i, in := range n.Inputs() {
		base := i * int(chunks)
		for k := 0; k < int(chunks); k++ {
			db.makePointerTo(outputs[base+k], in)
		}
	}
}

// analyzeTupleConstruct records each tracked input as contained in the
// output tuple, keeping per-component precision.
func (db *DB) analyzeTupleConstruct(n *ir.Node) {
	db.getOrCreateElement(n.Output(0))
	for _, in := range n.Inputs() {
		if ShouldTrackValue(in) {
			db.addToContainedElements(in, n.Output(0))
		}
	}
}

// analyzeContainerConstruct: lists and dicts get a fresh element and
// swallow their inputs into the wildcard buckets.
func (db *DB) analyzeContainerConstruct(n *ir.Node) {
	for _, in := range n.Inputs() {
		db.setWildcard(in)
	}
	for _, out := range n.Outputs() {
		db.giveFreshAlias(out)
	}
}

// analyzeSetAttr writes to the object and loses track of the stored
// value.
func (db *DB) analyzeSetAttr(n *ir.Node) {
	self := n.Input(0)
	if self.Type().Kind() != ir.KindClass {
		panic(fmt.Sprintf("weft/alias: SetAttr on non-class value %%%s", self.Name()))
	}
	db.registerWrite(self, n)
	db.setWildcard(n.Input(1))
}

// analyzeFork wildcards the captured inputs; the returned future itself
// is a fresh value.
func (db *DB) analyzeFork(n *ir.Node) {
	for _, in := range n.Inputs() {
		db.setWildcard(in)
	}
	for _, out := range n.Outputs() {
		db.giveFreshAlias(out)
	}
}

// analyzeWait wildcards the outputs. The awaited task may have mutated
// anything we lost track of, so the write is registered directly
// against every wildcard bucket that exists at this point.
func (db *DB) analyzeWait(n *ir.Node) {
	for _, out := range n.Outputs() {
		db.setWildcard(out)
	}
	for _, kind := range sortedBucketKinds(db.wildcards) {
		db.registerWriteToElement(db.wildcards[kind], n)
	}
}

// analyzeCustomOp is the most conservative summary: the op may write to
// every input, and its outputs may alias anything.
func (db *DB) analyzeCustomOp(n *ir.Node) {
	for _, in := range n.Inputs() {
		if ShouldTrackValue(in) {
			db.getOrCreateElement(in)
			db.registerWrite(in, n)
		}
	}
	for _, out := range n.Outputs() {
		db.setWildcard(out)
	}
}

// analyzeSchema binds the schema's formal alias annotations to the
// node's actual values, then propagates them to the outputs.
func (db *DB) analyzeSchema(n *ir.Node) error {
	sch := n.Schema()
	if sch == nil {
		if !n.Kind().IsAten() && !n.Kind().IsPrim() {
			db.analyzeCustomOp(n)
			return nil
		}
		return fmt.Errorf("%w: no schema for %s", ErrMissingSummary, n.Kind())
	}

	if sch.VarArg || sch.VarRet {
		for _, out := range n.Outputs() {
			if ShouldTrackValue(out) {
				return fmt.Errorf("%w: node %s", ErrVarargMutable, n)
			}
		}
	}

	// Custom operators carry schemas without usable alias info.
	if !n.Kind().IsAten() && !n.Kind().IsPrim() {
		db.analyzeCustomOp(n)
		return nil
	}

	formalToActual := make(map[string]*ir.Value)
	for i, arg := range sch.Arguments {
		if i >= len(n.Inputs()) {
			break
		}
		formal := arg.Alias
		if formal == nil {
			continue
		}
		actual := n.Input(i)
		if !ShouldTrackValue(actual) {
			continue
		}
		if len(formal.ContainedTypes) != 0 {
			panic(fmt.Sprintf("weft/alias: composite alias annotation on %s", sch.Name))
		}
		if formal.IsWildcardBefore() {
			panic(fmt.Sprintf("weft/alias: argument of %s annotated as wildcard before the call", sch.Name))
		}

		name := formal.BeforeSet()
		// Only the first actual bound to a formal set counts.
		if _, bound := formalToActual[name]; bound {
			continue
		}
		formalToActual[name] = actual

		if formal.Write {
			db.registerWrite(actual, n)
		}

		if formal.IsWildcardAfter() {
			db.setWildcard(actual)
		} else if !formal.SameBeforeAndAfter() {
			panic(fmt.Sprintf("weft/alias: unsupported alias-set change %s on %s", formal, sch.Name))
		}
	}

	for i, ret := range sch.Returns {
		if i >= len(n.Outputs()) {
			break
		}
		actual := n.Output(i)
		formal := ret.Alias
		if formal == nil {
			db.giveFreshAlias(actual)
			continue
		}
		if !ShouldTrackValue(actual) {
			continue
		}
		if len(formal.ContainedTypes) != 0 {
			panic(fmt.Sprintf("weft/alias: composite alias annotation on %s", sch.Name))
		}
		if formal.IsWildcardBefore() || formal.IsWildcardAfter() {
			db.setWildcard(actual)
			continue
		}
		for _, name := range formal.BeforeSets {
			bound, ok := formalToActual[name]
			if !ok {
				// A lone unbound set is equivalent to fresh, e.g.
				//   foo(Tensor(a) self) -> Tensor(b)
				// A union like (a|fresh) stays unassigned: conservatively
				// the output aliases `a` only through the bound names.
				if len(formal.BeforeSets) == 1 {
					db.giveFreshAlias(actual)
				}
				continue
			}
			db.makePointerTo(actual, bound)
		}
		if formal.Write {
			db.registerWrite(actual, n)
		}
	}
	return nil
}

// specialCase lists kinds that either have a dedicated analysis above
// or must never appear in analyzed graphs; reaching the schema path
// with one of them is a bug.
var specialCase = map[ir.Symbol]bool{
	ir.If:                  true,
	ir.Loop:                true,
	ir.FusionGroup:         true,
	ir.DifferentiableGraph: true,
	ir.Constant:            true,
	ir.DictConstruct:       true,
	ir.ListConstruct:       true,
	ir.TupleConstruct:      true,
	ir.AutogradZero:        true,
	ir.FusedConcat:         true,
	ir.GradOf:              true,
	ir.MMTreeReduce:        true,
	ir.MMBatchSide:         true,
	ir.BroadcastSizes:      true,
	ir.ChunkSizes:          true,
	ir.Function:            true,
	ir.TupleUnpack:         true,
	ir.TupleIndex:          true,
	ir.DictIndex:           true,
	ir.TupleSlice:          true,
	ir.ListUnpack:          true,
	ir.PythonOp:            true,
	ir.ConstantChunk:       true,
	ir.BroadcastingChunk:   true,
	ir.Fork:                true,
	ir.CreateObject:        true,
	ir.AutogradAdd:         true,
	ir.GetAttr:             true,
	ir.SetAttr:             true,
	ir.Profile:             true,
	ir.Wait:                true,

	// Never valid in graphs under analysis.
	ir.Print:              true,
	ir.Load:               true,
	ir.Store:              true,
	ir.Drop:               true,
	ir.AutogradAnyNonZero: true,
	ir.OnnxReshape:        true,
	ir.OnnxShape:          true,
}

func hasSpecialCase(kind ir.Symbol) bool { return specialCase[kind] }
