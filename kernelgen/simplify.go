package kernelgen

// SimplifyFlat folds one pair of indices per call when legal, returning true
// on success so the caller can re-run it to a fixed point (spec §4.2).
//
// Two distinct indices i (outer) and j (inner) fold into one when, across
// every access and every post-op input, either both strides are zero or
// Strides[i] == Ranges[j]*Strides[j] (the "Horner" relationship a reshape
// that merely re-splits a dimension produces), and at least one of those
// accesses has a genuine (non-zero) match rather than being vacuously safe.
// An index whose output stride is zero is never tried as the outer index.
//
// This is the corrected form noted in spec §4.2's Open Question: the
// original predicate collapsed to a tautology ("perfect_match ||
// perfect_match") that silently dropped the both-strides-zero case; the
// intended check restores it.
//
// SimplifyFlat is a no-op (returns false immediately) when flat has any
// constraints, since constraint LHS vectors are not updated by the fold.
func SimplifyFlat(flat *FlatContraction) bool {
	if len(flat.Constraints) > 0 {
		return false
	}
	n := len(flat.Names)
	for outer := 0; outer < n; outer++ {
		if flat.Access[0].Strides[outer] == 0 {
			continue
		}
		for inner := 0; inner < n; inner++ {
			if inner == outer {
				continue
			}
			if combinableIndices(flat, outer, inner) {
				combineIndices(flat, outer, inner)
				return true
			}
		}
	}
	return false
}

// combinableIndices reports whether outer can be folded into inner.
func combinableIndices(flat *FlatContraction, outer, inner int) bool {
	anyGenuineMatch := false
	rangeInner := flat.Ranges[inner]
	safe := func(strides []int64) bool {
		so, si := strides[outer], strides[inner]
		bothZero := so == 0 && si == 0
		perfectMatch := so == rangeInner*si
		if !bothZero && !perfectMatch {
			return false
		}
		if !bothZero {
			anyGenuineMatch = true
		}
		return true
	}
	for _, a := range flat.Access {
		if !safe(a.Strides) {
			return false
		}
	}
	for _, a := range flat.PostOpInputs {
		if !safe(a.Strides) {
			return false
		}
	}
	return anyGenuineMatch
}

// combineIndices erases outer, folding its range into inner.
func combineIndices(flat *FlatContraction, outer, inner int) {
	flat.Ranges[inner] *= flat.Ranges[outer]

	dropAt := func(strides []int64) []int64 {
		out := make([]int64, 0, len(strides)-1)
		for i, s := range strides {
			if i == outer {
				continue
			}
			out = append(out, s)
		}
		return out
	}

	for i := range flat.Access {
		flat.Access[i].Strides = dropAt(flat.Access[i].Strides)
	}
	for name, a := range flat.PostOpInputs {
		a.Strides = dropAt(a.Strides)
		flat.PostOpInputs[name] = a
	}

	flat.Names = append(flat.Names[:outer], flat.Names[outer+1:]...)
	flat.Ranges = append(flat.Ranges[:outer], flat.Ranges[outer+1:]...)
}

// SimplifyFlatToFixedPoint repeatedly applies SimplifyFlat until no further
// fold is possible. spec §8 guarantees this converges in at most
// len(Names) iterations.
func SimplifyFlatToFixedPoint(flat *FlatContraction) {
	for SimplifyFlat(flat) {
	}
}
