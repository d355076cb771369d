package raster

import (
	"image"
	"math"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/pdf"
)

// Scale returns the pixels-per-point factor for dpi.
func Scale(dpi float64) float64 {
	return dpi / 72
}

// ToPixels converts a document-space rect to pixel space at dpi.
func ToPixels(r pdf.Rect, dpi float64) image.Rectangle {
	s := Scale(dpi)
	return image.Rect(
		int(math.Round(r.X0*s)),
		int(math.Round(r.Y0*s)),
		int(math.Round(r.X1*s)),
		int(math.Round(r.Y1*s)),
	)
}

// ToDocument converts a pixel rect rendered at dpi back to document space.
func ToDocument(r image.Rectangle, dpi float64) pdf.Rect {
	s := Scale(dpi)
	return pdf.Rect{
		X0: float64(r.Min.X) / s,
		Y0: float64(r.Min.Y) / s,
		X1: float64(r.Max.X) / s,
		Y1: float64(r.Max.Y) / s,
	}
}

// Pad grows r by n pixels on every side, clipped to bounds.
func Pad(r image.Rectangle, n int, bounds image.Rectangle) image.Rectangle {
	return image.Rect(r.Min.X-n, r.Min.Y-n, r.Max.X+n, r.Max.Y+n).Intersect(bounds)
}
