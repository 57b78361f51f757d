package service

// ChunkConfig controls how normalized text is split into indexable spans.
type ChunkConfig struct {
	// Size is the maximum chunk length in runes.
	Size int
	// Overlap is the window shared by adjacent chunks.
	Overlap int
	// Separators are preferred split boundaries, coarsest first. The empty
	// string means a hard character cut and is always the last resort.
	Separators []string
}

// DefaultChunkConfig mirrors the corpus ingestion defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:       1000,
		Overlap:    200,
		Separators: []string{"\n\n", "\n", ". ", " ", ""},
	}
}

// TextSpan is one chunk of a document together with its rune offsets in the
// source text. Removing the overlap (taking [max(Start, prevEnd), End) per
// span) reconstructs the source exactly.
type TextSpan struct {
	Start   int
	End     int
	Content string
}

// SplitText splits text into spans of at most cfg.Size runes, cutting at the
// coarsest separator available inside each window and falling back to finer
// ones. Adjacent spans overlap by cfg.Overlap runes.
func SplitText(text string, cfg ChunkConfig) []TextSpan {
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap >= cfg.Size {
		cfg.Overlap = cfg.Size / 2
	}
	if len(cfg.Separators) == 0 {
		cfg.Separators = DefaultChunkConfig().Separators
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	spans := make([]TextSpan, 0, len(runes)/cfg.Size+1)
	pos := 0
	for pos < len(runes) {
		end := pos + cfg.Size
		if end >= len(runes) {
			spans = append(spans, TextSpan{Start: pos, End: len(runes), Content: string(runes[pos:])})
			break
		}

		cut := findCut(runes, pos, end, cfg)
		spans = append(spans, TextSpan{Start: pos, End: cut, Content: string(runes[pos:cut])})

		next := cut - cfg.Overlap
		if next <= pos {
			next = cut
		}
		pos = next
	}

	return spans
}

// findCut picks the split point for the window (pos, end]. It tries each
// separator in order and keeps the latest occurrence whose cut lands past the
// window midpoint; a window with no usable boundary is cut hard at end.
func findCut(runes []rune, pos, end int, cfg ChunkConfig) int {
	minCut := pos + cfg.Size/2

	for _, sep := range cfg.Separators {
		if sep == "" {
			break
		}
		if cut := lastBoundary(runes, []rune(sep), minCut, end); cut > 0 {
			return cut
		}
	}

	return end
}

// lastBoundary returns the end index of the last occurrence of sep such that
// minCut < cut <= hi, or 0 when none exists.
func lastBoundary(runes, sep []rune, minCut, hi int) int {
	for cut := hi; cut > minCut; cut-- {
		start := cut - len(sep)
		if start < 0 {
			break
		}
		match := true
		for i := range sep {
			if runes[start+i] != sep[i] {
				match = false
				break
			}
		}
		if match {
			return cut
		}
	}
	return 0
}

// ReassembleSpans concatenates span contents with their overlaps removed.
// It is the inverse of SplitText and exists for integrity checks.
func ReassembleSpans(spans []TextSpan) string {
	var out []rune
	prevEnd := 0
	for _, s := range spans {
		content := []rune(s.Content)
		skip := 0
		if s.Start < prevEnd {
			skip = prevEnd - s.Start
		}
		if skip > len(content) {
			skip = len(content)
		}
		out = append(out, content[skip:]...)
		if s.End > prevEnd {
			prevEnd = s.End
		}
	}
	return string(out)
}
