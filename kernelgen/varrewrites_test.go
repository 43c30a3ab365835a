package kernelgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVarRewritesTransitiveLookup(t *testing.T) {
	v := NewVarRewrites()
	v.Insert("t1", "out")
	v.Insert("t2", "t1")
	assert.Equal(t, "out", v.Lookup("t2"))
	assert.Equal(t, "out", v.Lookup("t1"))
	assert.Equal(t, "out", v.Lookup("out"))
}

func TestVarRewritesLookupIdempotent(t *testing.T) {
	v := NewVarRewrites()
	v.Insert("t1", "out")
	v.Insert("t2", "t1")
	first := v.Lookup("t2")
	second := v.Lookup(first)
	assert.Equal(t, first, second)
}

func TestVarRewritesCycleGuardDoesNotHang(t *testing.T) {
	v := NewVarRewrites()
	v.Insert("a", "b")
	v.Insert("b", "a")
	assert.NotPanics(t, func() { v.Lookup("a") })
}
