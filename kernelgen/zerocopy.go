package kernelgen

import "sort"

// NeedsZero decides whether flat's output is fully written by the generated
// aggregation loop (spec §4.1). When it returns true the Driver must emit a
// prefill kernel (zero-fill, or a broadcast-copy of UseDefault) before the
// contraction, and the contraction no longer fuses with downstream ops.
func NeedsZero(flat *FlatContraction) bool {
	out := flat.Access[0]
	if out.Offset != 0 {
		return true
	}

	type strideRange struct {
		stride int64
		rang   int64
	}
	var pattern []strideRange
	for i, stride := range out.Strides {
		if stride == 0 {
			continue
		}
		if stride < 0 {
			return true
		}
		pattern = append(pattern, strideRange{stride: stride, rang: flat.Ranges[i]})
	}

	for _, fc := range flat.Constraints {
		outputOnly := true
		for i, lhs := range fc.LHS {
			if lhs != 0 && out.Strides[i] == 0 {
				outputOnly = false
				break
			}
		}
		if outputOnly {
			return true
		}
	}

	sort.Slice(pattern, func(i, j int) bool { return pattern[i].stride < pattern[j].stride })
	var curskip int64 = 1
	for _, p := range pattern {
		if curskip != p.stride {
			return true
		}
		curskip *= p.rang
	}
	return curskip != out.GlobalIndexLimit
}
