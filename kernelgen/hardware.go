package kernelgen

// HardwareSettings describes the target the Vectorizer and tile optimizer
// size kernels for (spec §6: "consumed, not defined here"). This module only
// reads the handful of knobs its own search needs; a real backend is free to
// embed this struct inside a larger, backend-specific settings type.
type HardwareSettings struct {
	Name string

	// VecSize is the maximum vector width Vectorize may request.
	VecSize int

	// TileSizeOptions are the candidate per-index tile sizes the tile
	// optimizer tries, ascending.
	TileSizeOptions []int64

	// MaxTileSize caps any single index's tile size regardless of
	// TileSizeOptions.
	MaxTileSize int64

	// ThreadsPerWorkgroup is informational, surfaced through KernelInfo for
	// a downstream codegen backend.
	ThreadsPerWorkgroup int
}

// DefaultHardwareSettings returns a generic, conservative configuration
// suitable for a reference backend or the demo CLI.
func DefaultHardwareSettings() HardwareSettings {
	return HardwareSettings{
		Name:                "generic",
		VecSize:             4,
		TileSizeOptions:     []int64{1, 2, 4, 8, 16, 32, 64},
		MaxTileSize:         64,
		ThreadsPerWorkgroup: 256,
	}
}
