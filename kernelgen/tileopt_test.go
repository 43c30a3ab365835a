package kernelgen

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchTilesReturnsRequestedTrialsDescendingScore(t *testing.T) {
	flat := &FlatContraction{
		Names:  []string{"i", "j"},
		Ranges: []int64{64, 64},
		Access: []FlatTensorAccess{{Strides: []int64{64, 1}, GlobalIndexLimit: 4096, Type: dtypes.Float32}},
	}
	settings := DefaultHardwareSettings()
	candidates := SearchTiles(flat, settings, 3)
	require.Len(t, candidates, 3)
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Score, candidates[i].Score)
	}
	for _, c := range candidates {
		assert.Len(t, c.Sizes, 2)
	}
}

func TestVectorizeContiguousInnermost(t *testing.T) {
	flat := &FlatContraction{
		Names:  []string{"i", "k"},
		Ranges: []int64{4, 8},
		Access: []FlatTensorAccess{
			{Strides: []int64{8, 1}, Vector: 1, GlobalIndexLimit: 32, Type: dtypes.Float32},
		},
		AggVec:       1,
		PostOpInputs: map[string]FlatTensorAccess{},
	}
	Vectorize(flat, 4)
	assert.Equal(t, 4, flat.AggVec)
	assert.Equal(t, int64(2), flat.Ranges[1])
	assert.Equal(t, 4, flat.Access[0].Vector)
}

func TestVectorizeHalvesUntilLegal(t *testing.T) {
	flat := &FlatContraction{
		Names:  []string{"k"},
		Ranges: []int64{6},
		Access: []FlatTensorAccess{
			{Strides: []int64{1}, Vector: 1, GlobalIndexLimit: 6, Type: dtypes.Float32},
		},
		AggVec:       1,
		PostOpInputs: map[string]FlatTensorAccess{},
	}
	Vectorize(flat, 8) // 8 and 4 don't divide 6, 2 does.
	assert.Equal(t, 2, flat.AggVec)
	assert.Equal(t, int64(3), flat.Ranges[0])
}

func TestContractionWrapSkipsEmptyKernel(t *testing.T) {
	flat := &FlatContraction{
		Names:               []string{},
		GenerateContraction: false,
		Access:              []FlatTensorAccess{},
		PostOpInputs:        map[string]FlatTensorAccess{},
	}
	ki, ok, err := ContractionWrap(flat, NewVarRewrites(), "kernel_x_0", DefaultHardwareSettings(), 1, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, ki)
}
