// Package refine grows a located drawing box to include artwork that renders
// outside its vector border, such as a ceiling plate and suspension stem
// drawn above the box.
package refine

import (
	"image"

	"golang.org/x/image/draw"
)

// Options controls upward extension
type Options struct {
	// DarkThreshold is the mean channel value below which a pixel is dark.
	DarkThreshold uint8
	// ContentFrac is the dark fraction above which a row holds content.
	ContentFrac float64
	// MaxGap is the number of blank rows bridged before giving up.
	MaxGap int
	// MaxGrowth caps upward growth as a fraction of the box height.
	MaxGrowth float64
	// Margin widens the scanned columns on both sides, in pixels.
	Margin int
	// Pad is added on all sides of the result, in pixels.
	Pad int
}

// DefaultOptions returns the default extension settings
func DefaultOptions() Options {
	return Options{
		DarkThreshold: 200,
		ContentFrac:   0.005,
		MaxGap:        25,
		MaxGrowth:     0.8,
		Margin:        10,
		Pad:           8,
	}
}

// Extend scans upward from the top of r and returns r grown over content
// found there, padded and clipped to the bitmap.
func Extend(img image.Image, r image.Rectangle, opts Options) image.Rectangle {
	bounds := img.Bounds()
	r = r.Intersect(bounds)
	if r.Empty() {
		return r
	}
	rgba := asRGBA(img)

	x0 := max(bounds.Min.X, r.Min.X-opts.Margin)
	x1 := min(bounds.Max.X, r.Max.X+opts.Margin)
	limit := max(bounds.Min.Y, r.Min.Y-int(float64(r.Dy())*opts.MaxGrowth))

	top, gap := r.Min.Y, 0
	for y := r.Min.Y - 1; y >= limit; y-- {
		if DarkFraction(rgba, x0, x1, y, opts.DarkThreshold) > opts.ContentFrac {
			top, gap = y, 0
			continue
		}
		gap++
		if gap > opts.MaxGap {
			break
		}
	}

	out := image.Rect(r.Min.X-opts.Pad, top-opts.Pad, r.Max.X+opts.Pad, r.Max.Y+opts.Pad)
	return out.Intersect(bounds)
}

// DarkFraction returns the share of dark pixels in row y between x0 and x1.
func DarkFraction(img *image.RGBA, x0, x1, y int, threshold uint8) float64 {
	if x1 <= x0 {
		return 0
	}
	dark := 0
	off := img.PixOffset(x0, y)
	for x := x0; x < x1; x, off = x+1, off+4 {
		mean := (int(img.Pix[off]) + int(img.Pix[off+1]) + int(img.Pix[off+2])) / 3
		if mean < int(threshold) {
			dark++
		}
	}
	return float64(dark) / float64(x1-x0)
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
