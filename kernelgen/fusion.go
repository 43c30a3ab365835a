package kernelgen

// OpCanBeUnified decides whether op t can be fused into a kernel seeded at
// root (spec §4.4). Both t and root are identified by their Op; bindings
// supplies tensor shapes for t's output and its tensor inputs.
func OpCanBeUnified(t Op, root Op, bindings Bindings) bool {
	if t.Tag != OpFunction || t.Function.IsSpecial {
		return false
	}

	tShape, ok := bindings.Shape(t.Output)
	if !ok {
		return false
	}
	rootShape, ok := bindings.Shape(root.Output)
	if !ok {
		return false
	}
	if tShape.ElemSize() != rootShape.ElemSize() {
		return false
	}

	for _, in := range t.Inputs {
		inShape, ok := bindings.Shape(in)
		if !ok {
			// Non-tensor (scalar) input: nothing to check for broadcast compatibility.
			continue
		}
		if inShape.ElemSize() == rootShape.ElemSize() {
			continue
		}
		if !isBroadcastCompatible(inShape, rootShape) {
			return false
		}
	}
	return true
}

// isBroadcastCompatible reports whether input can be broadcast against
// root's shape: letting off = rank(root) - rank(input) (>= 0 required), for
// every input dim, either its size is 1 or it matches root.Dims[off+i].
func isBroadcastCompatible(input, root TensorShape) bool {
	off := root.Rank() - input.Rank()
	if off < 0 {
		return false
	}
	for i, d := range input.Dims {
		if d.Size == 1 {
			continue
		}
		if d.Size != root.Dims[off+i].Size {
			return false
		}
	}
	return true
}
