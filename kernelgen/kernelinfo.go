package kernelgen

import "sort"

// AccessDebugInfo is the per-tensor-operand slice of ContractionDebugInfo.
type AccessDebugInfo struct {
	Name             string
	Strides          []int64
	Offset           int64
	Vector           int
	GlobalIndexLimit int64
}

// ContractionDebugInfo is the structured record spec §6 requires as
// KernelInfo.info: the original C++ emitted this as a protobuf
// (proto::ContractionInfo); this module's Non-goal on wire serialization
// means it is a plain struct instead, still carrying the same fields.
type ContractionDebugInfo struct {
	SourceOps   []string
	Names       []string
	Ranges      []int64
	Access      []AccessDebugInfo
	Constraints []FlatConstraint
	Flops       int64
	Bytes       int64
}

// KernelInfo is one emitted kernel (spec §6).
type KernelInfo struct {
	Name         string
	Settings     HardwareSettings
	TileSize     []int64
	Inputs       []string
	Outputs      []string
	Key          string
	TotBytes     int64
	TotFlops     int64
	Candidates   []TileCandidate
	WarSafeReads map[string]bool
	Info         ContractionDebugInfo
}

// ContractionWrap assembles a KernelInfo from a flat contraction that has
// already been through unification (or deliberately skipped it, in the
// prefill-needed case): simplify to a fixed point, vectorize, search tile
// sizes, then assemble (spec §4.8). The second return value is false when
// flat carries neither a contraction to generate nor any post-ops, in which
// case no kernel is emitted at all.
func ContractionWrap(flat *FlatContraction, rewrites *VarRewrites, name string, settings HardwareSettings, tileTrials int, warSafeReads map[string]bool) (*KernelInfo, bool, error) {
	if !flat.GenerateContraction && len(flat.PostOps) == 0 {
		return nil, false, nil
	}
	if err := flat.CheckInvariants(); err != nil {
		return nil, false, err
	}

	SimplifyFlatToFixedPoint(flat)
	Vectorize(flat, settings.VecSize)

	candidates := SearchTiles(flat, settings, tileTrials)
	if len(candidates) == 0 {
		return nil, false, internalInvariantf("tile search for kernel %q produced no candidates", name)
	}
	primary := candidates[0]
	rest := candidates[1:]

	inputs := make([]string, 0, len(flat.AccessNames)+len(flat.PostOpInputs))
	for _, n := range flat.AccessNames[1:] {
		inputs = append(inputs, rewrites.Lookup(n))
	}
	postInputNames := make([]string, 0, len(flat.PostOpInputs))
	for n := range flat.PostOpInputs {
		postInputNames = append(postInputNames, n)
	}
	sort.Strings(postInputNames)
	inputs = append(inputs, postInputNames...)

	innerLoops := int64(1)
	for _, t := range primary.Sizes {
		innerLoops *= t
	}
	var memRead int64
	for _, a := range flat.Access[1:] {
		memRead += int64(a.Type.Size())
	}
	for _, a := range flat.PostOpInputs {
		memRead += int64(a.Type.Size())
	}
	memWrite := int64(0)
	if len(flat.Access) > 0 {
		memWrite = int64(flat.Access[0].Type.Size())
	}
	totBytes := primary.WorkGroups * (innerLoops*memRead + memWrite)

	fullIter := int64(1)
	for _, r := range flat.Ranges {
		fullIter *= r
	}
	numInputs := len(flat.Access) - 1
	flopsPerElem := int64(0)
	if flat.GenerateContraction && numInputs > 1 {
		flopsPerElem = int64(numInputs - 1)
	}
	totFlops := fullIter * flopsPerElem

	accessDebug := make([]AccessDebugInfo, len(flat.Access))
	for i, a := range flat.Access {
		nm := ""
		if i < len(flat.AccessNames) {
			nm = flat.AccessNames[i]
		}
		accessDebug[i] = AccessDebugInfo{
			Name:             nm,
			Strides:          append([]int64(nil), a.Strides...),
			Offset:           a.Offset,
			Vector:           a.Vector,
			GlobalIndexLimit: a.GlobalIndexLimit,
		}
	}

	info := ContractionDebugInfo{
		SourceOps:   append([]string(nil), flat.sourceOps...),
		Names:       append([]string(nil), flat.Names...),
		Ranges:      append([]int64(nil), flat.Ranges...),
		Access:      accessDebug,
		Constraints: append([]FlatConstraint(nil), flat.Constraints...),
		Flops:       totFlops,
		Bytes:       totBytes,
	}

	ki := &KernelInfo{
		Name:         name,
		Settings:     settings,
		TileSize:     primary.Sizes,
		Inputs:       inputs,
		Outputs:      append([]string(nil), flat.KernelOutputs...),
		Key:          flat.KeyString(),
		TotBytes:     totBytes,
		TotFlops:     totFlops,
		Candidates:   rest,
		WarSafeReads: warSafeReads,
		Info:         info,
	}
	return ki, true, nil
}
