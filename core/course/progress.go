package course

import "math"

// ComputeProgress returns round(100 * |watched ∩ courseVideos| / |courseVideos|), clamped to [0, 100].
// An empty course has no progress.
func ComputeProgress(courseVideos []ID, watched IDSet) int {
	unique := NewIDSet(courseVideos...)
	if unique.Len() == 0 {
		return 0
	}
	var seen int
	for id := range unique {
		if watched.Has(id) {
			seen++
		}
	}
	pct := int(math.Round(100 * float64(seen) / float64(unique.Len())))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
