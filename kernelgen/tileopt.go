package kernelgen

// TileCandidate is one scored tile-size assignment from the tile optimizer
// (spec §4.8): one size per kernel index, the resulting work-group count,
// and a score used only to rank candidates against each other.
type TileCandidate struct {
	Sizes      []int64
	WorkGroups int64
	Score      float64
}

// SearchTiles scores candidate tile-size assignments for flat and returns up
// to trials of them, best first. The search is a single coordinate-descent
// sweep seeded at the all-ones tile (one index at a time, keeping whichever
// option from settings.TileSizeOptions improves the score), then generates
// additional candidates for the remaining trial slots by halving the
// currently-largest dimension of the best tile found.
func SearchTiles(flat *FlatContraction, settings HardwareSettings, trials int) []TileCandidate {
	if trials <= 0 {
		trials = 1
	}
	n := len(flat.Names)
	if n == 0 {
		return []TileCandidate{{Sizes: nil, WorkGroups: 1, Score: 0}}
	}

	options := settings.TileSizeOptions
	if len(options) == 0 {
		options = []int64{1}
	}

	tile := make([]int64, n)
	for i := range tile {
		tile[i] = 1
	}
	best := scoreTile(flat, tile)
	for i := 0; i < n; i++ {
		bestSize := tile[i]
		bestScore := best
		for _, opt := range options {
			if opt > flat.Ranges[i] || (settings.MaxTileSize > 0 && opt > settings.MaxTileSize) {
				continue
			}
			tile[i] = opt
			s := scoreTile(flat, tile)
			if s > bestScore {
				bestScore = s
				bestSize = opt
			}
		}
		tile[i] = bestSize
		best = bestScore
	}

	candidates := []TileCandidate{{
		Sizes:      append([]int64(nil), tile...),
		WorkGroups: workGroups(flat, tile),
		Score:      best,
	}}

	alt := append([]int64(nil), tile...)
	for len(candidates) < trials {
		idx := argMaxInt64(alt)
		if idx < 0 || alt[idx] <= 1 {
			break
		}
		alt[idx] /= 2
		candidates = append(candidates, TileCandidate{
			Sizes:      append([]int64(nil), alt...),
			WorkGroups: workGroups(flat, alt),
			Score:      scoreTile(flat, alt),
		})
	}

	sortCandidatesDescending(candidates)
	if len(candidates) > trials {
		candidates = candidates[:trials]
	}
	return candidates
}

// scoreTile favors fewer work groups (more work folded into each tile) while
// preferring, among equal work-group counts, the tile with the larger total
// volume (fuller utilization of whatever the per-workgroup budget is).
func scoreTile(flat *FlatContraction, tile []int64) float64 {
	wg := workGroups(flat, tile)
	volume := int64(1)
	for _, t := range tile {
		volume *= t
	}
	return -float64(wg)*1e6 + float64(volume)
}

// workGroups is Π ceil(range_i / tile_i) across all kernel indices.
func workGroups(flat *FlatContraction, tile []int64) int64 {
	wg := int64(1)
	for i, r := range flat.Ranges {
		t := tile[i]
		if t <= 0 {
			t = 1
		}
		wg *= (r + t - 1) / t
	}
	return wg
}

func argMaxInt64(a []int64) int {
	idx := -1
	for i, v := range a {
		if idx < 0 || v > a[idx] {
			idx = i
		}
	}
	return idx
}

func sortCandidatesDescending(c []TileCandidate) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && c[j-1].Score < c[j].Score; j-- {
			c[j-1], c[j] = c[j], c[j-1]
		}
	}
}
