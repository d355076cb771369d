// Package trim finds the tight bounds of drawn content in a bitmap.
//
// Two variants share the ContentBounds primitive. Illustration additionally
// focuses on the densest band of content, which strips product names and
// codes printed above a picture. Dimension keeps every mark, because
// measurement arrows and labels are sparse by nature.
package trim

import (
	"image"

	"golang.org/x/image/draw"
)

// Options controls a trim variant
type Options struct {
	// Threshold is the background cut-off: a pixel is content when any
	// channel is below it.
	Threshold uint8
	// Window is the dense-zone height as a fraction of the trimmed height.
	// Zero disables the dense-zone step.
	Window float64
	// EdgeCut is the fraction of height the dense zone must remove from an
	// edge before the re-crop is applied.
	EdgeCut float64
	// Pad is added around a dense-zone re-crop, in pixels.
	Pad int
	// MinSize rejects results narrower or shorter than this many pixels.
	MinSize int
}

// IllustrationOptions returns the defaults for product pictures
func IllustrationOptions() Options {
	return Options{
		Threshold: 240,
		Window:    0.55,
		EdgeCut:   0.08,
		Pad:       6,
		MinSize:   20,
	}
}

// DimensionOptions returns the defaults for dimension drawings
func DimensionOptions() Options {
	return Options{
		Threshold: 250,
		MinSize:   20,
	}
}

// ContentBounds returns the smallest rectangle holding every content pixel
// of img. ok is false when img has no content at all.
func ContentBounds(img image.Image, threshold uint8) (bounds image.Rectangle, ok bool) {
	return contentBounds(asRGBA(img), img.Bounds(), threshold)
}

// Illustration trims img for a product picture. The result is in img's
// coordinate space.
func Illustration(img image.Image, opts Options) (image.Rectangle, bool) {
	rgba := asRGBA(img)
	r, ok := contentBounds(rgba, img.Bounds(), opts.Threshold)
	if !ok {
		return image.Rectangle{}, false
	}

	if opts.Window > 0 {
		r = denseZone(rgba, r, opts)
	}
	return checkSize(r, opts.MinSize)
}

// Dimension trims img for a dimension drawing: primitive trim only.
func Dimension(img image.Image, opts Options) (image.Rectangle, bool) {
	r, ok := ContentBounds(img, opts.Threshold)
	if !ok {
		return image.Rectangle{}, false
	}
	return checkSize(r, opts.MinSize)
}

func checkSize(r image.Rectangle, minSize int) (image.Rectangle, bool) {
	if r.Dx() < minSize || r.Dy() < minSize {
		return image.Rectangle{}, false
	}
	return r, true
}

// denseZone re-crops r to the window of rows with the most content when
// that window drops a meaningful slice from the top or bottom. The window is
// then grown over adjacent rows at least half as dense as its mean, by no
// more than its own height in total, so a caption touching the picture
// still falls outside.
func denseZone(img *image.RGBA, r image.Rectangle, opts Options) image.Rectangle {
	h := r.Dy()
	win := int(float64(h)*opts.Window + 0.5)
	if win < 1 || win >= h {
		return r
	}

	density := make([]int, h)
	for y := 0; y < h; y++ {
		density[y] = rowContent(img, r.Min.X, r.Max.X, r.Min.Y+y, opts.Threshold)
	}

	sum := 0
	for y := 0; y < win; y++ {
		sum += density[y]
	}
	best, bestStart := sum, 0
	for start := 1; start+win <= h; start++ {
		sum += density[start+win-1] - density[start-1]
		if sum > best {
			best, bestStart = sum, start
		}
	}

	floor := max(1, best/(2*win))
	start, end := bestStart, bestStart+win
	for grown := 0; grown < win; grown++ {
		if start > 0 && density[start-1] >= floor {
			start--
		} else if end < h && density[end] >= floor {
			end++
		} else {
			break
		}
	}

	cut := float64(h) * opts.EdgeCut
	if float64(start) <= cut && float64(h-end) <= cut {
		return r
	}

	zone := image.Rect(r.Min.X, r.Min.Y+start, r.Max.X, r.Min.Y+end)
	if tight, ok := contentBounds(img, zone, opts.Threshold); ok {
		zone = tight
	}
	return image.Rect(zone.Min.X-opts.Pad, zone.Min.Y-opts.Pad, zone.Max.X+opts.Pad, zone.Max.Y+opts.Pad).Intersect(r)
}

func contentBounds(img *image.RGBA, within image.Rectangle, threshold uint8) (image.Rectangle, bool) {
	within = within.Intersect(img.Bounds())
	minX, minY := within.Max.X, within.Max.Y
	maxX, maxY := within.Min.X-1, within.Min.Y-1

	for y := within.Min.Y; y < within.Max.Y; y++ {
		off := img.PixOffset(within.Min.X, y)
		for x := within.Min.X; x < within.Max.X; x, off = x+1, off+4 {
			if !isContent(img.Pix[off:off+3], threshold) {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}

	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

func rowContent(img *image.RGBA, x0, x1, y int, threshold uint8) int {
	n := 0
	off := img.PixOffset(x0, y)
	for x := x0; x < x1; x, off = x+1, off+4 {
		if isContent(img.Pix[off:off+3], threshold) {
			n++
		}
	}
	return n
}

func isContent(rgb []uint8, threshold uint8) bool {
	return rgb[0] < threshold || rgb[1] < threshold || rgb[2] < threshold
}

func asRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba
}
