// Package testpdf builds small catalog-like PDFs for tests with gofpdf.
// Coordinates are in points with a top-left origin on an A4 page.
package testpdf

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// A4 page size in points
const (
	PageWidth  = 595.28
	PageHeight = 841.89
)

// Box is a rectangle drawn with the re operator.
type Box struct {
	X, Y, W, H float64
}

// Label is a line of text; Y is the baseline.
type Label struct {
	X, Y  float64
	Text  string
	Size  float64
	Color [3]int
}

// Picture is a raster image placed on the page.
type Picture struct {
	X, Y, W, H float64
	Img        image.Image
}

// Page describes one page of the fixture.
type Page struct {
	Boxes []Box
	// Outlines are rectangles drawn as closed m/l polylines instead of re.
	Outlines []Box
	Labels   []Label
	Pictures []Picture
}

// Build renders pages into a PDF document.
func Build(pages ...Page) ([]byte, error) {
	f := gofpdf.New("P", "pt", "A4", "")
	tr := f.UnicodeTranslatorFromDescriptor("")

	for pi, page := range pages {
		f.AddPage()
		f.SetLineWidth(1)

		for _, b := range page.Boxes {
			f.Rect(b.X, b.Y, b.W, b.H, "D")
		}
		for _, b := range page.Outlines {
			f.Polygon([]gofpdf.PointType{
				{X: b.X, Y: b.Y},
				{X: b.X + b.W, Y: b.Y},
				{X: b.X + b.W, Y: b.Y + b.H},
				{X: b.X, Y: b.Y + b.H},
			}, "D")
		}
		for _, l := range page.Labels {
			size := l.Size
			if size == 0 {
				size = 12
			}
			f.SetFont("Helvetica", "", size)
			f.SetTextColor(l.Color[0], l.Color[1], l.Color[2])
			f.Text(l.X, l.Y, tr(l.Text))
		}
		for i, p := range page.Pictures {
			var buf bytes.Buffer
			if err := png.Encode(&buf, p.Img); err != nil {
				return nil, fmt.Errorf("encode picture: %w", err)
			}
			name := fmt.Sprintf("p%d-%d", pi, i)
			opts := gofpdf.ImageOptions{ImageType: "PNG"}
			f.RegisterImageOptionsReader(name, opts, &buf)
			f.ImageOptions(name, p.X, p.Y, p.W, p.H, false, opts, 0, "")
		}
	}

	var out bytes.Buffer
	if err := f.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// MustBuild is Build for tests.
func MustBuild(t testing.TB, pages ...Page) []byte {
	t.Helper()
	data, err := Build(pages...)
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return data
}
