// Package raster renders PDF pages to RGB bitmaps and converts between
// document space (points) and pixel space.
package raster

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/pdf"
)

// Common render resolutions.
const (
	// GeometryDPI balances crop precision against memory for region work.
	GeometryDPI = 150
	// BulkDPI is used for throughput-sensitive passes over many pages.
	BulkDPI = 100
)

// Renderer renders single pages of a document held in memory.
type Renderer interface {
	// Render returns page index (0-based) as an opaque RGB bitmap.
	Render(data []byte, index int, dpi float64) (*image.RGBA, error)
	// PageCount returns the number of pages in the document.
	PageCount(data []byte) (int, error)
}

// FitzRenderer renders with MuPDF through go-fitz. Every call opens its own
// document handle and closes it before returning, so a FitzRenderer can be
// shared between goroutines.
type FitzRenderer struct{}

// NewFitzRenderer creates a MuPDF-backed renderer
func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{}
}

// Render renders one page. Only that page is rasterized.
func (r *FitzRenderer) Render(data []byte, index int, dpi float64) (*image.RGBA, error) {
	if dpi <= 0 {
		dpi = GeometryDPI
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, pdf.OpenError("failed to open PDF for rendering", err)
	}
	defer doc.Close()

	if index < 0 || index >= doc.NumPage() {
		return nil, pdf.PageRangeError(index, doc.NumPage())
	}

	img, err := doc.ImageDPI(index, dpi)
	if err != nil {
		return nil, pdf.RenderError(fmt.Sprintf("failed to render page %d", index), err)
	}
	return Opaque(img), nil
}

// PageCount returns the number of pages
func (r *FitzRenderer) PageCount(data []byte) (int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return 0, pdf.OpenError("failed to open PDF for rendering", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// Opaque flattens img onto white and returns a fully opaque RGBA bitmap with
// its origin at (0, 0).
func Opaque(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}

// Crop copies r out of img into a new bitmap with origin (0, 0). r is
// clipped to the image bounds; an empty intersection yields nil.
func Crop(img image.Image, r image.Rectangle) *image.RGBA {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return nil
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}
