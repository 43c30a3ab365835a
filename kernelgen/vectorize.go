package kernelgen

// Vectorize attempts to fold the innermost (last) index of flat into
// requestedWidth-wide vector lanes, halving the width on failure until it
// gives up at 1 (spec §4.7). It is a no-op if flat.AggVec != 1 (a contraction
// that is already vectorized, or one seeded with AggVec forced open, is left
// alone) or if requestedWidth <= 1.
func Vectorize(flat *FlatContraction, requestedWidth int) {
	if flat.AggVec != 1 || requestedWidth <= 1 || len(flat.Names) == 0 {
		return
	}
	for v := requestedWidth; v > 1; v /= 2 {
		if vectorizeWidthLegal(flat, v) {
			applyVectorization(flat, v)
			return
		}
	}
}

// vectorizeWidthLegal reports whether the last index can be grouped into
// v-wide lanes: its range must divide evenly by v, and every tensor access's
// innermost stride must be 0 (broadcast across the lane, unaffected) or 1
// (contiguous, the only stride a SIMD lane load can absorb).
func vectorizeWidthLegal(flat *FlatContraction, v int) bool {
	last := len(flat.Names) - 1
	if flat.Ranges[last]%int64(v) != 0 {
		return false
	}
	innerStrideOK := func(s int64) bool { return s == 0 || s == 1 }
	for _, a := range flat.Access {
		if !innerStrideOK(a.Strides[last]) {
			return false
		}
	}
	for _, a := range flat.PostOpInputs {
		if !innerStrideOK(a.Strides[last]) {
			return false
		}
	}
	return true
}

// applyVectorization commits width v: the innermost loop range shrinks by a
// factor of v (each iteration now advances v elements), and every
// contiguous-innermost access adopts v as its vector width.
func applyVectorization(flat *FlatContraction, v int) {
	last := len(flat.Names) - 1
	flat.Ranges[last] /= int64(v)
	flat.AggVec = v
	for i := range flat.Access {
		if flat.Access[i].Strides[last] == 1 {
			flat.Access[i].Vector = v
		}
	}
	for name, a := range flat.PostOpInputs {
		if a.Strides[last] == 1 {
			a.Vector = v
			flat.PostOpInputs[name] = a
		}
	}
}
