package kernelgen

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProgramIdentity(t *testing.T) {
	prog := NewProgram()
	bindings := NewBindings()
	bindings.BindTensor("in", MakeTensorShape(dtypes.Float32, 8))
	bindings.BindTensor("out", MakeTensorShape(dtypes.Float32, 8))
	prog.AddContraction("out", []string{"in"}, &Contraction{
		Specs: []TensorSpec{
			{ID: "out", IndexPolynomial: []Polynomial{VarPolynomial("i1")}},
			{ID: "in", IndexPolynomial: []Polynomial{VarPolynomial("i1")}},
		},
	})

	kl, err := GenerateProgram(prog, bindings, []string{"out"}, DefaultHardwareSettings(), "identity", 1)
	require.NoError(t, err)
	require.Len(t, kl.Kernels, 1)
	ki := kl.Kernels[0]
	assert.Equal(t, []string{"out"}, ki.Outputs)
	assert.Equal(t, int64(0), ki.TotFlops)
	assert.Contains(t, ki.Inputs, "in")
}

func TestGenerateProgramMatmulBiasReshapeAdd(t *testing.T) {
	prog := NewProgram()
	bindings := NewBindings()
	bindings.BindTensor("A", MakeTensorShape(dtypes.Float32, 4, 8))
	bindings.BindTensor("B", MakeTensorShape(dtypes.Float32, 8, 16))
	bindings.BindTensor("C", MakeTensorShape(dtypes.Float32, 4, 16))
	bindings.BindTensor("D", MakeTensorShape(dtypes.Float32, 4, 16))
	bindings.BindTensor("b", MakeTensorShape(dtypes.Float32, 16))
	bindings.BindTensor("E", MakeTensorShape(dtypes.Float32, 4, 16))

	prog.AddContraction("C", []string{"A", "B"}, &Contraction{
		Specs: []TensorSpec{
			{ID: "C", IndexPolynomial: []Polynomial{VarPolynomial("i"), VarPolynomial("j")}},
			{ID: "A", IndexPolynomial: []Polynomial{VarPolynomial("i"), VarPolynomial("k")}},
			{ID: "B", IndexPolynomial: []Polynomial{VarPolynomial("k"), VarPolynomial("j")}},
		},
	})
	prog.AddFunction("D", []string{"C"}, "reshape", nil, false)
	prog.AddFunction("E", []string{"D", "b"}, "add", nil, false)

	kl, err := GenerateProgram(prog, bindings, []string{"E"}, DefaultHardwareSettings(), "matmul", 1)
	require.NoError(t, err)
	require.Len(t, kl.Kernels, 1)
	ki := kl.Kernels[0]
	assert.Equal(t, []string{"E"}, ki.Outputs)
	assert.Contains(t, ki.Inputs, "A")
	assert.Contains(t, ki.Inputs, "B")
	assert.Contains(t, ki.Inputs, "b")
	assert.True(t, ki.WarSafeReads["b"])
	assert.Equal(t, "C", kl.VarRewrites.Lookup("D"))
}

func TestGenerateProgramPRNGTriple(t *testing.T) {
	prog := NewProgram()
	bindings := NewBindings()
	shape := MakeTensorShape(dtypes.Float32, 4)
	for _, name := range []string{"s", "t", "s2", "v"} {
		bindings.BindTensor(name, shape)
	}
	prog.AddFunction("t", []string{"s"}, "prng_step", nil, true)
	prog.AddFunction("s2", []string{"t"}, "prng_state", nil, true)
	prog.AddFunction("v", []string{"t"}, "prng_value", nil, true)

	kl, err := GenerateProgram(prog, bindings, []string{"s2", "v"}, DefaultHardwareSettings(), "prng", 1)
	require.NoError(t, err)
	require.Len(t, kl.Kernels, 1)
	ki := kl.Kernels[0]
	assert.ElementsMatch(t, []string{"t", "s2", "v"}, ki.Outputs)
	assert.True(t, prog.Ops[1].computed)
	assert.True(t, prog.Ops[2].computed)
}

func TestGenerateProgramNonDenseOutputEmitsPrefill(t *testing.T) {
	prog := NewProgram()
	bindings := NewBindings()
	bindings.BindTensor("out", MakeTensorShape(dtypes.Float32, 8))
	bindings.BindTensor("in", MakeTensorShape(dtypes.Float32, 4))
	prog.AddContraction("out", []string{"in"}, &Contraction{
		Specs: []TensorSpec{
			{ID: "out", IndexPolynomial: []Polynomial{VarPolynomial("i").ScaleInt(2)}},
			{ID: "in", IndexPolynomial: []Polynomial{VarPolynomial("i")}},
		},
	})

	kl, err := GenerateProgram(prog, bindings, []string{"out"}, DefaultHardwareSettings(), "scatter", 1)
	require.NoError(t, err)
	require.Len(t, kl.Kernels, 2)
	assert.Equal(t, []string{"out"}, kl.Kernels[0].Outputs)
	assert.Equal(t, []string{"out"}, kl.Kernels[1].Outputs)
}

func TestGenerateProgramArityErrorIsInvalidProgram(t *testing.T) {
	prog := NewProgram()
	bindings := NewBindings()
	bindings.BindTensor("out", MakeTensorShape(dtypes.Float32, 4))
	prog.AddContraction("out", nil, &Contraction{
		Specs: []TensorSpec{{ID: "out", IndexPolynomial: []Polynomial{VarPolynomial("i")}}},
	})

	_, err := GenerateProgram(prog, bindings, []string{"out"}, DefaultHardwareSettings(), "bad", 1)
	require.Error(t, err)
	var kgErr *Error
	require.ErrorAs(t, err, &kgErr)
	assert.Equal(t, KindInvalidProgram, kgErr.Kind)
}
