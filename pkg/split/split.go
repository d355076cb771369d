// Package split detects pages holding two stacked product sections.
package split

import (
	"image"

	"golang.org/x/image/draw"
)

// Position tags a section of the page.
type Position string

const (
	PositionFull   Position = "full"
	PositionTop    Position = "top"
	PositionBottom Position = "bottom"
)

// Options controls the separator search
type Options struct {
	// StripHeight is the height of each scanned strip in pixels.
	StripHeight int
	// Step is the distance between consecutive strips in pixels.
	Step int
	// BandStart and BandEnd bound the search as fractions of page height.
	BandStart, BandEnd float64
	// Brightness is the mean value a strip must exceed to be a gutter.
	Brightness float64
	// MinPos and MaxPos bound the accepted split position (exclusive).
	MinPos, MaxPos float64
}

// DefaultOptions returns the default separator search settings
func DefaultOptions() Options {
	return Options{
		StripHeight: 6,
		Step:        4,
		BandStart:   0.30,
		BandEnd:     0.70,
		Brightness:  235,
		MinPos:      0.25,
		MaxPos:      0.75,
	}
}

// Section is one product section of the page
type Section struct {
	Position Position
	Bounds   image.Rectangle
}

// Result describes how the page was partitioned
type Result struct {
	Sections   []Section
	TwoProduct bool
	// SplitY is the separator row when TwoProduct is set.
	SplitY int
	// Peak is the brightest strip mean found in the search band.
	Peak float64
}

// Split scans for a bright horizontal gutter and partitions the page at it.
// Without one the page is a single full section.
func Split(img image.Image, opts Options) Result {
	b := img.Bounds()
	full := Result{Sections: []Section{{Position: PositionFull, Bounds: b}}}
	h := b.Dy()
	if h == 0 || b.Dx() == 0 || opts.StripHeight <= 0 || opts.Step <= 0 {
		return full
	}
	rgba := asRGBA(img)

	start := b.Min.Y + int(float64(h)*opts.BandStart)
	end := b.Min.Y + int(float64(h)*opts.BandEnd)

	peak := -1.0
	first, last := -1, -1
	atPeak := false
	for y := start; y+opts.StripHeight <= end; y += opts.Step {
		v := stripBrightness(rgba, y, opts.StripHeight)
		switch {
		case v > peak:
			peak, first, last, atPeak = v, y, y, true
		case v == peak && atPeak:
			last = y
		default:
			atPeak = false
		}
	}
	full.Peak = peak
	if first < 0 {
		return full
	}

	splitY := (first+last)/2 + opts.StripHeight/2
	rel := float64(splitY-b.Min.Y) / float64(h)
	if peak <= opts.Brightness || rel <= opts.MinPos || rel >= opts.MaxPos {
		return full
	}

	return Result{
		Sections: []Section{
			{Position: PositionTop, Bounds: image.Rect(b.Min.X, b.Min.Y, b.Max.X, splitY)},
			{Position: PositionBottom, Bounds: image.Rect(b.Min.X, splitY, b.Max.X, b.Max.Y)},
		},
		TwoProduct: true,
		SplitY:     splitY,
		Peak:       peak,
	}
}

// stripBrightness returns the mean channel value of rows [y, y+height).
func stripBrightness(img *image.RGBA, y, height int) float64 {
	b := img.Bounds()
	var sum uint64
	for row := y; row < y+height; row++ {
		off := img.PixOffset(b.Min.X, row)
		for x := b.Min.X; x < b.Max.X; x, off = x+1, off+4 {
			sum += uint64(img.Pix[off]) + uint64(img.Pix[off+1]) + uint64(img.Pix[off+2])
		}
	}
	return float64(sum) / float64(3*height*b.Dx())
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
