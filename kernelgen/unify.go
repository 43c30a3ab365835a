package kernelgen

// DoUnification absorbs downstream elementwise ops into the kernel seeded at
// rootIdx (spec §4.5, "Unifier"). It mutates flat in place -- appending
// PostOps, filling PostOpInputs and KernelOutputs -- marks every absorbed op
// computed on prog, and records elided shape-identity ops in rewrites. The
// returned set lists every post-op input variable name (spec's
// war_safe_reads: extra tensor reads a codegen backend must treat as
// write-after-read hazards against the kernel's own output).
//
// programOutputs is the set of variable names the caller has designated as
// final program outputs (the output_shapes keys of the external interface,
// spec §6); a variable absent from prog's use-def op_defs is a program
// input.
func DoUnification(prog *Program, rootIdx int, flat *FlatContraction, bindings Bindings, ud *UseDefGraph, rewrites *VarRewrites, programOutputs map[string]bool) (map[string]bool, error) {
	root := prog.Ops[rootIdx]

	unified := map[int]bool{rootIdx: true}
	frontier := []int{rootIdx}
	for len(frontier) > 0 {
		u := frontier[0]
		frontier = frontier[1:]

		for _, c := range ud.UsesOf(prog.Ops[u].Output) {
			if unified[c] || prog.Ops[c].computed || prog.Ops[c].Tag == OpConstant {
				continue
			}
			if !OpCanBeUnified(prog.Ops[c], root, bindings) {
				continue
			}
			candidate, ok := backwardClose(prog, bindings, ud, rootIdx, root, c, unified)
			if !ok {
				continue
			}
			for idx := range candidate {
				unified[idx] = true
			}
			frontier = append(frontier, c)
		}
	}

	// Rewrite phase: walk the unified ops in ascending program order,
	// eliding pure shape-identity ops and copying the rest forward as
	// post-ops with their inputs resolved through the local rewrite map.
	// A contraction root contributes no post-op of its own -- the
	// contraction itself is GenerateContraction's job -- but a FUNCTION
	// root (an elementwise orphan seed, spec §4.6) is walked like any other
	// unified op and becomes the kernel's first post-op.
	ordered := make([]int, 0, len(unified))
	for idx := range unified {
		if prog.Ops[idx].Tag != OpFunction {
			continue
		}
		ordered = append(ordered, idx)
	}
	insertionSort(ordered)

	local := map[string]string{}
	resolve := func(name string) string {
		if r, ok := local[name]; ok {
			return r
		}
		return rewrites.Lookup(name)
	}
	isProgramInput := func(name string) bool {
		_, ok := ud.DefOf(name)
		return !ok
	}

	warSafeReads := map[string]bool{}

	for _, idx := range ordered {
		op := prog.Ops[idx]
		prog.Ops[idx].computed = true

		input := ""
		if len(op.Inputs) > 0 {
			input = op.Inputs[0]
		}
		isShapeIdentity := op.Function.Fn == "reshape" || op.Function.Fn == "ident"
		if op.Function.Fn == "reshape" {
			inShape, inOk := bindings.Shape(input)
			outShape, outOk := bindings.Shape(op.Output)
			if !inOk || !outOk {
				return nil, invalidReshapef("reshape %q has a non-tensor operand %q", op.Output, input)
			}
			if inShape.ByteSize() != outShape.ByteSize() {
				return nil, invalidReshapef("reshape %q changes byte_size: %d -> %d", op.Output, inShape.ByteSize(), outShape.ByteSize())
			}
			if inShape.ElemSize() != outShape.ElemSize() {
				return nil, invalidReshapef("reshape %q changes elem_size: %d -> %d", op.Output, inShape.ElemSize(), outShape.ElemSize())
			}
		}
		outIsOutput := programOutputs[op.Output]
		inIsInput := isProgramInput(resolve(input))
		inIsOutput := programOutputs[resolve(input)]

		// Elide unless the output is a program output and the input is
		// either a program output itself (spec §8's both-outputs boundary
		// test) or a plain program input (the pre- is a program input and
		// the post- is a program output case, which needs a real copy, not
		// an alias, so the op is kept rather than elided).
		if isShapeIdentity && (!outIsOutput || (!inIsOutput && !inIsInput)) {
			canonical := resolve(input)
			local[op.Output] = canonical
			rewrites.Insert(op.Output, canonical)
			continue
		}

		rewritten := op
		rewritten.Inputs = make([]string, len(op.Inputs))
		for i, in := range op.Inputs {
			rewritten.Inputs[i] = resolve(in)
		}
		flat.PostOps = append(flat.PostOps, rewritten)

		for _, in := range rewritten.Inputs {
			shape, ok := bindings.Shape(in)
			if !ok {
				continue
			}
			if defIdx, ok := ud.DefOf(in); ok && unified[defIdx] {
				continue
			}
			if _, exists := flat.PostOpInputs[in]; exists {
				continue
			}
			access, err := buildPostOpInputAccess(flat, bindings, shape, in)
			if err != nil {
				return nil, err
			}
			flat.PostOpInputs[in] = access
			warSafeReads[in] = true
		}
	}

	for idx := range unified {
		op := prog.Ops[idx]
		name := op.Output
		if _, elided := local[name]; elided {
			continue // elided ops never surface as a kernel output
		}
		name = resolve(name)
		if _, isKernelInput := flat.PostOpInputs[name]; isKernelInput {
			continue
		}
		hasOutsideConsumer := false
		for _, c := range ud.UsesOf(op.Output) {
			if !unified[c] {
				hasOutsideConsumer = true
				break
			}
		}
		if programOutputs[name] || hasOutsideConsumer {
			flat.KernelOutputs = append(flat.KernelOutputs, name)
		}
	}

	prog.Ops[rootIdx].computed = true
	return warSafeReads, nil
}

// backwardClose attempts to grow a candidate fusion set starting at c by
// walking its inputs backward: a predecessor op is required to join the set
// (and have its own inputs walked in turn) only if it sits after root in
// program order and is not already unified, computed, or a constant. Any
// such predecessor failing the fusion predicate discards the whole attempt.
func backwardClose(prog *Program, bindings Bindings, ud *UseDefGraph, rootIdx int, root Op, c int, unified map[int]bool) (map[int]bool, bool) {
	candidate := map[int]bool{c: true}
	var visit func(u int) bool
	visit = func(u int) bool {
		for _, in := range prog.Ops[u].Inputs {
			i, ok := ud.DefOf(in)
			if !ok || i <= rootIdx || unified[i] || candidate[i] || prog.Ops[i].computed || prog.Ops[i].Tag == OpConstant {
				continue
			}
			if !OpCanBeUnified(prog.Ops[i], root, bindings) {
				return false
			}
			candidate[i] = true
			if !visit(i) {
				return false
			}
		}
		return true
	}
	if !visit(c) {
		return nil, false
	}
	return candidate, true
}

// buildPostOpInputAccess derives the FlatTensorAccess for a fused op's extra
// tensor input (spec §4.5, "Post-op input strides"): project the output's
// symbolic index polynomial onto the input's trailing dimensions, the same
// right-aligned broadcast rule OpCanBeUnified already checked for legality.
//
// When the input has exactly as many elements as the kernel's output, the
// output's own shape is used in place of the input's -- the input is a full
// (non-broadcast) alias of the output's iteration space, most commonly an
// upstream kernel's buffer the post-op reads back unchanged.
func buildPostOpInputAccess(flat *FlatContraction, bindings Bindings, inputShape TensorShape, inputName string) (FlatTensorAccess, error) {
	outShape, ok := bindings.Shape(flat.Output)
	if !ok {
		return FlatTensorAccess{}, internalInvariantf("missing tensor shape binding for output %q (post-op input %q)", flat.Output, inputName)
	}

	useShape := inputShape
	if inputShape.ElemSize() == outShape.ElemSize() {
		useShape = outShape
	}

	outPoly := flat.OutputPolynomial
	off := len(outPoly) - useShape.Rank()
	if off < 0 {
		return FlatTensorAccess{}, invalidProgramf("post-op input %q has rank %d, exceeding output rank %d", inputName, useShape.Rank(), len(outPoly))
	}

	p := NewPolynomial()
	for i, dim := range useShape.Dims {
		outDimIdx := off + i
		if dim.Size == 1 && outShape.Dims[outDimIdx].Size != 1 {
			continue
		}
		p = p.Add(outPoly[outDimIdx].ScaleInt(int64(dim.Stride)))
	}

	strides := make([]int64, len(flat.Names))
	for k, name := range flat.Names {
		strides[k] = p.FloorCoeff(name)
	}

	return FlatTensorAccess{
		Strides:          strides,
		Offset:           0,
		Vector:           1,
		GlobalIndexLimit: int64(useShape.ElemSize()),
		Type:             useShape.DType,
	}, nil
}

// insertionSort sorts a short slice of op indices ascending without pulling
// in the sort package for what is always a handful of elements.
func insertionSort(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1] > a[j]; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}
