package kernelgen

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProgramReshapeByteSizeMismatchIsInvalidReshape(t *testing.T) {
	prog := NewProgram()
	bindings := NewBindings()
	bindings.BindTensor("A", MakeTensorShape(dtypes.Float32, 4))
	bindings.BindTensor("C", MakeTensorShape(dtypes.Float32, 4))
	// D has the same element count as C but a different dtype, so its
	// byte_size differs even though OpCanBeUnified's elem_size-vs-root check
	// (fusion.go) lets it into the candidate set.
	bindings.BindTensor("D", MakeTensorShape(dtypes.Float64, 4))

	prog.AddContraction("C", []string{"A"}, &Contraction{
		Specs: []TensorSpec{
			{ID: "C", IndexPolynomial: []Polynomial{VarPolynomial("i")}},
			{ID: "A", IndexPolynomial: []Polynomial{VarPolynomial("i")}},
		},
	})
	prog.AddFunction("D", []string{"C"}, "reshape", nil, false)

	_, err := GenerateProgram(prog, bindings, []string{"D"}, DefaultHardwareSettings(), "badreshape", 1)
	require.Error(t, err)
	var kgErr *Error
	require.ErrorAs(t, err, &kgErr)
	assert.Equal(t, KindInvalidReshape, kgErr.Kind)
}

// TestGenerateProgramElementwiseOrphan covers spec §4.6's "elementwise
// orphan" case: a FUNCTION op with no upstream contraction to unify into.
// Its own unification root is a FUNCTION, so DoUnification's rewrite walk
// must still emit it as a post-op (generate.cc:462-530's tag guard skips a
// contraction root but keeps a function root) -- otherwise ContractionWrap
// sees an empty PostOps and silently drops the kernel, losing the program's
// only output and its inputs (spec §8).
func TestGenerateProgramElementwiseOrphan(t *testing.T) {
	prog := NewProgram()
	bindings := NewBindings()
	bindings.BindTensor("x", MakeTensorShape(dtypes.Float32, 4))
	bindings.BindTensor("y", MakeTensorShape(dtypes.Float32, 4))
	bindings.BindTensor("out", MakeTensorShape(dtypes.Float32, 4))

	prog.AddFunction("out", []string{"x", "y"}, "add", nil, false)

	kl, err := GenerateProgram(prog, bindings, []string{"out"}, DefaultHardwareSettings(), "orphan", 1)
	require.NoError(t, err)
	require.Len(t, kl.Kernels, 1)

	ki := kl.Kernels[0]
	assert.Equal(t, []string{"out"}, ki.Outputs)
	assert.Contains(t, ki.Inputs, "x")
	assert.Contains(t, ki.Inputs, "y")
}
