package kernelgen

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// gcd returns the greatest common divisor of the absolute values of a and b.
// Generic over any signed integer so Rational can normalize regardless of
// the width chosen for its numerator/denominator.
func gcd[T constraints.Integer](a, b T) T {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// Rational is a coefficient in the index-polynomial algebra: Num/Den, always
// kept with a positive denominator and reduced to lowest terms.
type Rational struct {
	Num, Den int64
}

// ZeroRational is the additive identity.
var ZeroRational = Rational{Num: 0, Den: 1}

// IntRational builds a Rational from a plain integer.
func IntRational(n int64) Rational {
	return Rational{Num: n, Den: 1}
}

func (r Rational) normalize() Rational {
	if r.Den < 0 {
		r.Num, r.Den = -r.Num, -r.Den
	}
	if r.Num == 0 {
		return Rational{Num: 0, Den: 1}
	}
	g := gcd(r.Num, r.Den)
	if g > 1 {
		r.Num /= g
		r.Den /= g
	}
	return r
}

// Add returns r + o.
func (r Rational) Add(o Rational) Rational {
	return Rational{Num: r.Num*o.Den + o.Num*r.Den, Den: r.Den * o.Den}.normalize()
}

// Mul returns r * o.
func (r Rational) Mul(o Rational) Rational {
	return Rational{Num: r.Num * o.Num, Den: r.Den * o.Den}.normalize()
}

// Scale returns r multiplied by the plain integer k.
func (r Rational) Scale(k int64) Rational {
	return Rational{Num: r.Num * k, Den: r.Den}.normalize()
}

// IsZero reports whether r is exactly 0.
func (r Rational) IsZero() bool {
	return r.Num == 0
}

// Floor rounds r toward negative infinity, returning an integer.
//
// Non-integer coefficients are expected only inside intermediate polynomial
// computations, never in final strides; Floor is how a final stride is
// extracted from a coefficient (spec §9, "Polynomial coefficient extraction").
func (r Rational) Floor() int64 {
	if r.Den == 1 {
		return r.Num
	}
	q := r.Num / r.Den
	if (r.Num%r.Den != 0) && ((r.Num < 0) != (r.Den < 0)) {
		q--
	}
	return q
}

// Polynomial is an affine expression over named indices with rational
// coefficients: Const + Σ Terms[name]*name.
type Polynomial struct {
	Const Rational
	Terms map[string]Rational
}

// NewPolynomial returns the zero polynomial.
func NewPolynomial() Polynomial {
	return Polynomial{Const: ZeroRational, Terms: map[string]Rational{}}
}

// ConstPolynomial returns the polynomial equal to the constant c.
func ConstPolynomial(c int64) Polynomial {
	return Polynomial{Const: IntRational(c), Terms: map[string]Rational{}}
}

// VarPolynomial returns the polynomial equal to 1*name.
func VarPolynomial(name string) Polynomial {
	p := NewPolynomial()
	p.Terms[name] = IntRational(1)
	return p
}

// Clone returns a deep copy of p.
func (p Polynomial) Clone() Polynomial {
	q := Polynomial{Const: p.Const, Terms: make(map[string]Rational, len(p.Terms))}
	for k, v := range p.Terms {
		q.Terms[k] = v
	}
	return q
}

// Add returns p + o, dropping any resulting zero-coefficient terms.
func (p Polynomial) Add(o Polynomial) Polynomial {
	result := p.Clone()
	result.Const = result.Const.Add(o.Const)
	for name, coeff := range o.Terms {
		result.Terms[name] = result.Terms[name].Add(coeff)
	}
	return result.prune()
}

// Scale returns p with every coefficient (including the constant term)
// multiplied by k.
func (p Polynomial) Scale(k Rational) Polynomial {
	result := NewPolynomial()
	result.Const = p.Const.Mul(k)
	for name, coeff := range p.Terms {
		result.Terms[name] = coeff.Mul(k)
	}
	return result.prune()
}

// ScaleInt is a convenience wrapper around Scale for a plain integer factor.
func (p Polynomial) ScaleInt(k int64) Polynomial {
	return p.Scale(IntRational(k))
}

func (p Polynomial) prune() Polynomial {
	for name, coeff := range p.Terms {
		if coeff.IsZero() {
			delete(p.Terms, name)
		}
	}
	return p
}

// Coeff returns the (possibly non-integer) coefficient of name, zero if absent.
func (p Polynomial) Coeff(name string) Rational {
	if c, ok := p.Terms[name]; ok {
		return c
	}
	return ZeroRational
}

// FloorCoeff returns Floor(p.Coeff(name)): the final, integral stride
// contributed by index name.
func (p Polynomial) FloorCoeff(name string) int64 {
	return p.Coeff(name).Floor()
}

// Names returns the index names with a (possibly zero after pruning, never
// stored) term in p, in unspecified order.
func (p Polynomial) Names() []string {
	names := make([]string, 0, len(p.Terms))
	for name := range p.Terms {
		names = append(names, name)
	}
	return names
}

// SortedNames is Names in ascending lexical order, used wherever map
// iteration order would otherwise make the lowering non-deterministic.
func (p Polynomial) SortedNames() []string {
	names := p.Names()
	sort.Strings(names)
	return names
}
