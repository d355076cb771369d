package pdf

import "math"

// DeduplicateRects drops rects whose top-left corner, rounded to whole
// points, was already seen. Order is preserved.
func DeduplicateRects(rects []Rect) []Rect {
	if len(rects) == 0 {
		return rects
	}

	type corner struct{ x, y int }
	seen := make(map[corner]bool, len(rects))
	result := make([]Rect, 0, len(rects))
	for _, r := range rects {
		key := corner{int(math.Round(r.X0)), int(math.Round(r.Y0))}
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, r)
	}
	return result
}
