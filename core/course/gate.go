package course

// IsAccessible reports whether video may be played.
// Non-sequential courses have every video accessible. In a sequential course the first video
// is always accessible and any other one only once its immediate predecessor is watched.
// Videos missing from ordered are inaccessible in sequential mode.
func IsAccessible(video ID, ordered []ID, watched IDSet, isSequential bool) bool {
	if !isSequential {
		return true
	}
	video = NormalizeID(string(video))
	for i, id := range ordered {
		if NormalizeID(string(id)) != video {
			continue
		}
		if i == 0 {
			return true
		}
		return watched.Has(ordered[i-1])
	}
	return false
}
