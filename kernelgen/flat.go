package kernelgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
)

// FlatTensorAccess is the per-tensor-operand access descriptor of a
// FlatContraction: strides parallel to FlatContraction.Names, an offset, a
// vectorization width, and the tensor's total element count (spec §3).
type FlatTensorAccess struct {
	Strides          []int64
	Offset           int64
	Vector           int
	GlobalIndexLimit int64
	Type             dtypes.DType
}

// Clone returns a deep copy.
func (a FlatTensorAccess) Clone() FlatTensorAccess {
	b := a
	b.Strides = append([]int64(nil), a.Strides...)
	return b
}

// FlatConstraint is a linear inequality Σ LHS[i]*names[i] ≤ RHS.
type FlatConstraint struct {
	LHS []int64
	RHS int64
}

// FlatContraction is the canonical lowered form of a Contraction or of a
// seeded elementwise kernel (spec §3, "FlatContraction").
type FlatContraction struct {
	Names       []string
	Ranges      []int64
	Access      []FlatTensorAccess // index 0 is always the output
	AccessNames []string          // tensor id each Access entry was lowered from
	Constraints []FlatConstraint

	Output string

	// GenerateContraction is false for elementwise-only kernels (spec §3).
	GenerateContraction bool

	// AggVec is the aggregation vectorization width, 1 until the Vectorizer runs.
	AggVec int

	// PostOps are fused function ops, in a valid topological order.
	PostOps []Op

	// PostOpInputs maps an extra post-op input variable to its derived access.
	PostOpInputs map[string]FlatTensorAccess

	// KernelOutputs are the variable names this kernel must actually write.
	KernelOutputs []string

	// OutputPolynomial is the symbolic per-dimension index polynomial of the
	// output tensor, carried forward from the originating Contraction (or
	// synthesized as the identity for an elementwise seed). The Unifier
	// uses it to derive post-op input access strides (spec §4.5).
	OutputPolynomial []Polynomial

	// sourceOps records the original ops this flat contraction was built
	// from, for ContractionDebugInfo; not semantically load-bearing.
	sourceOps []string
}

// NumIndices is len(Names) == len(Ranges).
func (f *FlatContraction) NumIndices() int {
	return len(f.Names)
}

// indexOf returns the position of name in f.Names, or -1.
func (f *FlatContraction) indexOf(name string) int {
	for i, n := range f.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// CheckInvariants validates the structural invariants of spec §3 that must
// hold for any FlatContraction handed to the tile optimizer or assembler.
func (f *FlatContraction) CheckInvariants() error {
	n := len(f.Names)
	if len(f.Ranges) != n {
		return internalInvariantf("flat contraction has %d names but %d ranges", n, len(f.Ranges))
	}
	for k, a := range f.Access {
		if len(a.Strides) != n {
			return internalInvariantf("flat contraction access %d has %d strides, want %d (names)", k, len(a.Strides), n)
		}
	}
	for name, a := range f.PostOpInputs {
		if len(a.Strides) != n {
			return internalInvariantf("post-op input %q has %d strides, want %d (names)", name, len(a.Strides), n)
		}
	}
	for _, fc := range f.Constraints {
		if len(fc.LHS) != n {
			return internalInvariantf("constraint has %d lhs entries, want %d (names)", len(fc.LHS), n)
		}
	}
	return nil
}

// Clone returns a deep copy of f.
func (f *FlatContraction) Clone() *FlatContraction {
	g := &FlatContraction{
		Names:               append([]string(nil), f.Names...),
		Ranges:              append([]int64(nil), f.Ranges...),
		AccessNames:         append([]string(nil), f.AccessNames...),
		Constraints:         append([]FlatConstraint(nil), f.Constraints...),
		Output:              f.Output,
		GenerateContraction: f.GenerateContraction,
		AggVec:              f.AggVec,
		PostOps:             append([]Op(nil), f.PostOps...),
		KernelOutputs:       append([]string(nil), f.KernelOutputs...),
		sourceOps:           append([]string(nil), f.sourceOps...),
	}
	g.Access = make([]FlatTensorAccess, len(f.Access))
	for i, a := range f.Access {
		g.Access[i] = a.Clone()
	}
	g.PostOpInputs = make(map[string]FlatTensorAccess, len(f.PostOpInputs))
	for k, v := range f.PostOpInputs {
		g.PostOpInputs[k] = v.Clone()
	}
	for i, fc := range g.Constraints {
		g.Constraints[i] = FlatConstraint{LHS: append([]int64(nil), fc.LHS...), RHS: fc.RHS}
	}
	return g
}

// KeyString is a stable, deterministic string identifier of f's content,
// used by downstream codegen to cache compiled kernels across programs that
// lower to the same flat shape (spec §6, KernelInfo.key).
func (f *FlatContraction) KeyString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "names=%v;ranges=%v;", f.Names, f.Ranges)
	for i, a := range f.Access {
		fmt.Fprintf(&b, "access[%d]={strides=%v,off=%d,vec=%d,lim=%d,type=%s};", i, a.Strides, a.Offset, a.Vector, a.GlobalIndexLimit, a.Type)
	}
	for i, c := range f.Constraints {
		fmt.Fprintf(&b, "constraint[%d]={lhs=%v,rhs=%d};", i, c.LHS, c.RHS)
	}
	fmt.Fprintf(&b, "gen=%v;output=%s;", f.GenerateContraction, f.Output)
	for _, op := range f.PostOps {
		fmt.Fprintf(&b, "post={fn=%s,out=%s,in=%v};", op.Function.Fn, op.Output, op.Inputs)
	}
	postInputNames := make([]string, 0, len(f.PostOpInputs))
	for name := range f.PostOpInputs {
		postInputNames = append(postInputNames, name)
	}
	sort.Strings(postInputNames)
	for _, name := range postInputNames {
		a := f.PostOpInputs[name]
		fmt.Fprintf(&b, "postin[%s]={strides=%v,lim=%d};", name, a.Strides, a.GlobalIndexLimit)
	}
	return b.String()
}

// LowerContraction reduces a symbolic Contraction to its canonical
// FlatContraction, given the shape bindings for all its tensor operands
// (spec §4, data-flow step "per op flat contraction").
//
// Index ranges are inferred from whichever operand dimension carries that
// index with coefficient exactly 1 and no constant term -- the simple,
// direct binding a shape/type binder would have already established; a
// range that cannot be inferred this way is an invalid-program error,
// since no downstream pass in this core re-derives ranges from constraints.
func LowerContraction(c *Contraction, bindings Bindings) (*FlatContraction, error) {
	if len(c.Specs) < 2 || len(c.Specs) > 4 {
		return nil, invalidProgramf("contraction has %d operands, must be 2-4", len(c.Specs))
	}

	shapes := make([]TensorShape, len(c.Specs))
	for i, spec := range c.Specs {
		shape, ok := bindings.Shape(spec.ID)
		if !ok {
			return nil, invalidProgramf("missing tensor shape binding for %q", spec.ID)
		}
		if len(spec.IndexPolynomial) != shape.Rank() {
			return nil, invalidProgramf("tensor %q has rank %d but contraction supplies %d index polynomials",
				spec.ID, shape.Rank(), len(spec.IndexPolynomial))
		}
		shapes[i] = shape
	}

	nameOrder := make([]string, 0, 4)
	seen := map[string]bool{}
	addName := func(n string) {
		if !seen[n] {
			seen[n] = true
			nameOrder = append(nameOrder, n)
		}
	}
	for _, spec := range c.Specs {
		for _, poly := range spec.IndexPolynomial {
			for _, n := range poly.SortedNames() {
				addName(n)
			}
		}
	}
	for _, con := range c.Constraints {
		for _, n := range con.Expr.SortedNames() {
			addName(n)
		}
	}

	ranges := map[string]int64{}
	for si, spec := range c.Specs {
		for di, poly := range spec.IndexPolynomial {
			if len(poly.Terms) != 1 || !poly.Const.IsZero() {
				continue
			}
			for n, coeff := range poly.Terms {
				if coeff.Num != coeff.Den {
					continue // not exactly coefficient 1
				}
				size := int64(shapes[si].Dims[di].Size)
				if existing, ok := ranges[n]; ok && existing != size {
					return nil, invalidProgramf("index %q has conflicting ranges %d and %d", n, existing, size)
				}
				ranges[n] = size
			}
		}
	}
	for _, n := range nameOrder {
		if _, ok := ranges[n]; !ok {
			return nil, invalidProgramf("cannot infer a range for index %q: no operand dimension binds it with coefficient 1", n)
		}
	}

	names := nameOrder
	rangeList := make([]int64, len(names))
	for i, n := range names {
		rangeList[i] = ranges[n]
	}

	access := make([]FlatTensorAccess, len(c.Specs))
	accessNames := make([]string, len(c.Specs))
	for si, spec := range c.Specs {
		accessNames[si] = spec.ID
	}
	for si, spec := range c.Specs {
		strides := make([]int64, len(names))
		var offset int64
		for di, poly := range spec.IndexPolynomial {
			s := int64(shapes[si].Dims[di].Stride)
			offset += poly.Const.Floor() * s
			for ni, n := range names {
				strides[ni] += poly.FloorCoeff(n) * s
			}
		}
		access[si] = FlatTensorAccess{
			Strides:          strides,
			Offset:           offset,
			Vector:           1,
			GlobalIndexLimit: int64(shapes[si].ElemSize()),
			Type:             shapes[si].DType,
		}
	}

	constraints := make([]FlatConstraint, len(c.Constraints))
	for ci, con := range c.Constraints {
		lhs := make([]int64, len(names))
		for ni, n := range names {
			lhs[ni] = con.Expr.FloorCoeff(n)
		}
		constraints[ci] = FlatConstraint{LHS: lhs, RHS: con.RHS}
	}

	return &FlatContraction{
		Names:               names,
		Ranges:              rangeList,
		Access:              access,
		AccessNames:         accessNames,
		Constraints:         constraints,
		Output:              c.Specs[0].ID,
		GenerateContraction: true,
		AggVec:              1,
		PostOpInputs:        map[string]FlatTensorAccess{},
		OutputPolynomial:    append([]Polynomial(nil), c.Specs[0].IndexPolynomial...),
		sourceOps:           []string{contractionSourceString(c)},
	}, nil
}

// NewElementwiseSeed builds the trivial FlatContraction used to seed an
// orphan elementwise op (spec §4.6, "Elementwise orphan"): synthesized
// indices i1..in over the output shape, and a dense row-major output access.
func NewElementwiseSeed(output string, shape TensorShape) *FlatContraction {
	n := shape.Rank()
	names := make([]string, n)
	ranges := make([]int64, n)
	strides := make([]int64, n)
	outPoly := make([]Polynomial, n)
	for i, d := range shape.Dims {
		names[i] = fmt.Sprintf("i%d", i+1)
		ranges[i] = int64(d.Size)
		strides[i] = int64(d.Stride)
		outPoly[i] = VarPolynomial(names[i])
	}
	return &FlatContraction{
		Names:  names,
		Ranges: ranges,
		Access: []FlatTensorAccess{{
			Strides:          strides,
			Offset:           0,
			Vector:           1,
			GlobalIndexLimit: int64(shape.ElemSize()),
			Type:             shape.DType,
		}},
		AccessNames:         []string{output},
		Output:              output,
		GenerateContraction: false,
		AggVec:              1,
		PostOpInputs:        map[string]FlatTensorAccess{},
		OutputPolynomial:    outPoly,
	}
}

func contractionSourceString(c *Contraction) string {
	ids := make([]string, len(c.Specs))
	for i, s := range c.Specs {
		ids[i] = s.ID
	}
	return strings.Join(ids, ", ")
}
