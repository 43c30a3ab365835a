package kernelgen

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityContraction() (*Contraction, Bindings) {
	bindings := NewBindings()
	bindings.BindTensor("in", MakeTensorShape(dtypes.Float32, 8))
	bindings.BindTensor("out", MakeTensorShape(dtypes.Float32, 8))
	c := &Contraction{
		Specs: []TensorSpec{
			{ID: "out", IndexPolynomial: []Polynomial{VarPolynomial("i1")}},
			{ID: "in", IndexPolynomial: []Polynomial{VarPolynomial("i1")}},
		},
	}
	return c, bindings
}

func TestLowerContractionIdentity(t *testing.T) {
	c, bindings := identityContraction()
	flat, err := LowerContraction(c, bindings)
	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, flat.Names)
	assert.Equal(t, []int64{8}, flat.Ranges)
	assert.Equal(t, []int64{1}, flat.Access[0].Strides)
	assert.Equal(t, int64(0), flat.Access[0].Offset)
	assert.True(t, flat.GenerateContraction)
	assert.NoError(t, flat.CheckInvariants())
}

func matmulContraction() (*Contraction, Bindings) {
	bindings := NewBindings()
	bindings.BindTensor("A", MakeTensorShape(dtypes.Float32, 4, 8))
	bindings.BindTensor("B", MakeTensorShape(dtypes.Float32, 8, 16))
	bindings.BindTensor("C", MakeTensorShape(dtypes.Float32, 4, 16))
	c := &Contraction{
		Specs: []TensorSpec{
			{ID: "C", IndexPolynomial: []Polynomial{VarPolynomial("i"), VarPolynomial("j")}},
			{ID: "A", IndexPolynomial: []Polynomial{VarPolynomial("i"), VarPolynomial("k")}},
			{ID: "B", IndexPolynomial: []Polynomial{VarPolynomial("k"), VarPolynomial("j")}},
		},
	}
	return c, bindings
}

func TestLowerContractionMatmul(t *testing.T) {
	c, bindings := matmulContraction()
	flat, err := LowerContraction(c, bindings)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"i", "j", "k"}, flat.Names)
	assert.False(t, NeedsZero(flat))
	assert.Len(t, flat.Access, 3)
}

func TestLowerContractionArityRejected(t *testing.T) {
	_, bindings := identityContraction()
	one := &Contraction{Specs: []TensorSpec{{ID: "out", IndexPolynomial: []Polynomial{VarPolynomial("i1")}}}}
	_, err := LowerContraction(one, bindings)
	require.Error(t, err)
	var kgErr *Error
	require.ErrorAs(t, err, &kgErr)
	assert.Equal(t, KindInvalidProgram, kgErr.Kind)

	five := &Contraction{Specs: make([]TensorSpec, 5)}
	for i := range five.Specs {
		five.Specs[i] = TensorSpec{ID: "out"}
	}
	_, err = LowerContraction(five, bindings)
	require.Error(t, err)
}

func TestLowerContractionUnboundIndexFails(t *testing.T) {
	bindings := NewBindings()
	bindings.BindTensor("out", MakeTensorShape(dtypes.Float32, 4))
	bindings.BindTensor("in", MakeTensorShape(dtypes.Float32, 4))
	c := &Contraction{
		Specs: []TensorSpec{
			{ID: "out", IndexPolynomial: []Polynomial{VarPolynomial("i").Scale(IntRational(2))}},
			{ID: "in", IndexPolynomial: []Polynomial{VarPolynomial("i")}},
		},
	}
	_, err := LowerContraction(c, bindings)
	require.Error(t, err)
}

func TestLowerContractionNonDenseOutputNeedsZero(t *testing.T) {
	bindings := NewBindings()
	bindings.BindTensor("out", MakeTensorShape(dtypes.Float32, 8))
	bindings.BindTensor("in", MakeTensorShape(dtypes.Float32, 4))
	c := &Contraction{
		Specs: []TensorSpec{
			{ID: "out", IndexPolynomial: []Polynomial{VarPolynomial("i").ScaleInt(2)}},
			{ID: "in", IndexPolynomial: []Polynomial{VarPolynomial("i")}},
		},
	}
	flat, err := LowerContraction(c, bindings)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, flat.Access[0].Strides)
	assert.True(t, NeedsZero(flat))
}

func TestLowerContractionConstraintGatedOutputNeedsZero(t *testing.T) {
	bindings := NewBindings()
	bindings.BindTensor("out", MakeTensorShape(dtypes.Float32, 4))
	c := &Contraction{
		Specs: []TensorSpec{
			{ID: "out", IndexPolynomial: []Polynomial{VarPolynomial("i")}},
			{ID: "out", IndexPolynomial: []Polynomial{VarPolynomial("i")}},
		},
		Constraints: []Constraint{{Expr: VarPolynomial("i"), RHS: 2}},
	}
	flat, err := LowerContraction(c, bindings)
	require.NoError(t, err)
	assert.True(t, NeedsZero(flat))
}

func TestNewElementwiseSeed(t *testing.T) {
	shape := MakeTensorShape(dtypes.Float32, 2, 3)
	flat := NewElementwiseSeed("out", shape)
	assert.Equal(t, []string{"i1", "i2"}, flat.Names)
	assert.Equal(t, []int64{2, 3}, flat.Ranges)
	assert.False(t, flat.GenerateContraction)
	assert.Equal(t, []int64{3, 1}, flat.Access[0].Strides)
}
