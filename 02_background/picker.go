package background

// pickVideo chooses a candidate uniformly at random. Candidates matching
// avoidID are skipped unless nothing else is left.
func pickVideo(videos []Video, avoidID string, rng func(n int) int) (Video, bool) {
	if len(videos) == 0 {
		return Video{}, false
	}
	candidates := videos
	if avoidID != "" {
		fresh := make([]Video, 0, len(videos))
		for _, v := range videos {
			if v.IDString() != avoidID {
				fresh = append(fresh, v)
			}
		}
		if len(fresh) > 0 {
			candidates = fresh
		}
	}
	return candidates[rng(len(candidates))], true
}

// pickRendition returns the first file at least minHeight tall, else the first file.
func pickRendition(files []VideoFile, minHeight int) (VideoFile, bool) {
	var usable []VideoFile
	for _, f := range files {
		if f.Link != "" {
			usable = append(usable, f)
		}
	}
	if len(usable) == 0 {
		return VideoFile{}, false
	}
	for _, f := range usable {
		if f.Height >= minHeight {
			return f, true
		}
	}
	return usable[0], true
}
