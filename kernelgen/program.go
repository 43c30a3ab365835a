package kernelgen

import (
	"github.com/gomlx/gopjrt/dtypes"
)

// OpTag is the discriminant of the Op tagged-variant (spec §3, "Program").
type OpTag int

//go:generate go tool enumer -type=OpTag -trimprefix=Op -output=optag_string.go program.go

const (
	// OpContraction carries a *Contraction.
	OpContraction OpTag = iota
	// OpFunction carries a Function.
	OpFunction
	// OpConstant carries no payload; it is skipped by the Driver.
	OpConstant
)

// Function is the payload of an OpFunction op: an elementwise or special
// operation applied to Inputs, producing Output.
type Function struct {
	Fn        string
	Params    []string
	IsSpecial bool
}

// Op is a single entry in a Program: a tagged variant with a single output
// name and an ordered list of input variable names.
type Op struct {
	Tag         OpTag
	Output      string
	Inputs      []string
	Contraction *Contraction // valid iff Tag == OpContraction
	Function    Function     // valid iff Tag == OpFunction

	// computed marks an op whose output has already been produced by an
	// earlier kernel (prefill, unification, or special-op absorption); the
	// Driver skips it on its main walk (spec §4.6).
	computed bool
}

// Program is an ordered sequence of Ops; order is significant both for
// use-def resolution and for the Driver's kernel-emission order (spec §5).
type Program struct {
	Ops []Op
}

// NewProgram returns an empty Program.
func NewProgram() *Program {
	return &Program{}
}

// AddContraction appends a CONTRACTION op and returns its index.
func (p *Program) AddContraction(output string, inputs []string, c *Contraction) int {
	p.Ops = append(p.Ops, Op{Tag: OpContraction, Output: output, Inputs: inputs, Contraction: c})
	return len(p.Ops) - 1
}

// AddFunction appends a FUNCTION op and returns its index.
func (p *Program) AddFunction(output string, inputs []string, fn string, params []string, isSpecial bool) int {
	p.Ops = append(p.Ops, Op{
		Tag:    OpFunction,
		Output: output,
		Inputs: inputs,
		Function: Function{
			Fn:        fn,
			Params:    params,
			IsSpecial: isSpecial,
		},
	})
	return len(p.Ops) - 1
}

// AddConstant appends a CONSTANT op and returns its index.
func (p *Program) AddConstant(output string) int {
	p.Ops = append(p.Ops, Op{Tag: OpConstant, Output: output})
	return len(p.Ops) - 1
}

// BindingTag is the discriminant of the Binding tagged-variant (spec §3).
type BindingTag int

//go:generate go tool enumer -type=BindingTag -trimprefix=Binding -output=bindingtag_string.go program.go

const (
	BindingTensor BindingTag = iota
	BindingInt
	BindingFloat
)

// TensorDim is one {size, stride} pair of a TensorShape.
type TensorDim struct {
	Size   int
	Stride int
}

// TensorShape is element type plus an ordered sequence of {size, stride}
// dimensions (spec §3, "Binding").
type TensorShape struct {
	DType dtypes.DType
	Dims  []TensorDim
}

// MakeTensorShape builds a dense, row-major TensorShape (the stride of dim i
// is the product of the sizes of dims i+1..n-1), the layout a frontend binder
// would assign to a freshly-declared tensor.
func MakeTensorShape(dtype dtypes.DType, sizes ...int) TensorShape {
	dims := make([]TensorDim, len(sizes))
	stride := 1
	for i := len(sizes) - 1; i >= 0; i-- {
		dims[i] = TensorDim{Size: sizes[i], Stride: stride}
		stride *= sizes[i]
	}
	return TensorShape{DType: dtype, Dims: dims}
}

// Rank is the number of dimensions.
func (s TensorShape) Rank() int {
	return len(s.Dims)
}

// ElemSize is Π size over all dimensions (1 for a scalar/rank-0 shape).
func (s TensorShape) ElemSize() int {
	n := 1
	for _, d := range s.Dims {
		n *= d.Size
	}
	return n
}

// ByteSize is ElemSize * sizeof(DType).
func (s TensorShape) ByteSize() int64 {
	return int64(s.ElemSize()) * int64(s.DType.Size())
}

// Binding is a tagged variant describing the type of a program variable.
type Binding struct {
	Tag   BindingTag
	Shape TensorShape // valid iff Tag == BindingTensor
}

// Bindings maps every program variable name to its Binding. Constants and
// program inputs handed in from outside are present here but absent from
// the use-def graph's op_defs map (spec §4.3).
type Bindings map[string]Binding

// NewBindings returns an empty Bindings table.
func NewBindings() Bindings {
	return make(Bindings)
}

// BindTensor records name as a tensor of the given shape.
func (b Bindings) BindTensor(name string, shape TensorShape) {
	b[name] = Binding{Tag: BindingTensor, Shape: shape}
}

// BindScalar records name as a non-tensor scalar of the given tag.
func (b Bindings) BindScalar(name string, tag BindingTag) {
	b[name] = Binding{Tag: tag}
}

// Shape returns the TensorShape bound to name, and whether name is bound to
// a tensor at all (false for scalars and unbound names).
func (b Bindings) Shape(name string) (TensorShape, bool) {
	binding, ok := b[name]
	if !ok || binding.Tag != BindingTensor {
		return TensorShape{}, false
	}
	return binding.Shape, true
}

// TensorSpec is one operand of a symbolic Contraction: a tensor id plus an
// affine index polynomial per dimension (spec §3, "Contraction").
type TensorSpec struct {
	ID              string
	IndexPolynomial []Polynomial
}

// Constraint is a symbolic linear inequality over indices: Expr ≤ RHS.
type Constraint struct {
	Expr Polynomial
	RHS  int64
}

// Contraction is the symbolic tensor-contraction spec, before lowering:
//
//	out[f(i)] = ⊕(in_1[g_1(i)] ⊗ in_2[g_2(i)] ⊗ …)
//
// Specs[0] is the output; the remaining 1-3 entries are input operands.
type Contraction struct {
	Specs       []TensorSpec
	UseDefault  string // optional default-fill tensor name, "" if unset
	Constraints []Constraint
}
