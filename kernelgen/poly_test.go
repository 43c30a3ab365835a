package kernelgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRationalFloor(t *testing.T) {
	cases := []struct {
		r    Rational
		want int64
	}{
		{Rational{Num: 6, Den: 2}, 3},
		{Rational{Num: 7, Den: 2}, 3},
		{Rational{Num: -7, Den: 2}, -4},
		{Rational{Num: -6, Den: 2}, -3},
		{ZeroRational, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.r.Floor())
	}
}

func TestRationalNormalize(t *testing.T) {
	r := Rational{Num: 4, Den: -6}.normalize()
	assert.Equal(t, int64(-2), r.Num)
	assert.Equal(t, int64(3), r.Den)
}

func TestPolynomialAddScale(t *testing.T) {
	p := VarPolynomial("i").Add(ConstPolynomial(3))
	q := p.Scale(IntRational(2))
	assert.Equal(t, int64(2), q.Coeff("i").Num)
	assert.Equal(t, int64(6), q.Const.Num)
}

func TestPolynomialFloorCoeff(t *testing.T) {
	p := NewPolynomial()
	p.Terms["k"] = Rational{Num: 3, Den: 2}
	assert.Equal(t, int64(1), p.FloorCoeff("k"))
	assert.Equal(t, int64(0), p.FloorCoeff("missing"))
}

func TestPolynomialSortedNamesDeterministic(t *testing.T) {
	p := NewPolynomial()
	p.Terms["z"] = IntRational(1)
	p.Terms["a"] = IntRational(1)
	p.Terms["m"] = IntRational(1)
	require.Equal(t, []string{"a", "m", "z"}, p.SortedNames())
}
