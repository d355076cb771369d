// Package pdfcatalog recovers product illustrations and dimension drawings
// from PDF lighting catalogs and rewrites the prices printed in them.
package pdfcatalog

import (
	"context"
	"image"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/extract"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/locate"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/pdf"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/prices"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/raster"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/refine"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/split"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/trim"
)

// Re-export types from the component packages for the public API
type (
	Document     = pdf.Document
	Page         = pdf.Page
	PageContent  = pdf.PageContent
	Rect         = pdf.Rect
	Error        = pdf.Error
	Region       = extract.Region
	Regions      = extract.Regions
	Orchestrator = extract.Orchestrator
	Rewriter     = prices.Rewriter
	Report       = prices.Report
	Renderer     = raster.Renderer
	Layout       = locate.Layout
)

// Structural error sentinels
var (
	ErrOpen      = pdf.ErrOpen
	ErrPageRange = pdf.ErrPageRange
	ErrRender    = pdf.ErrRender
	ErrWrite     = pdf.ErrWrite
)

// Re-export constructors and options
var (
	NewOrchestrator = extract.New
	WithRenderer    = extract.WithRenderer
	WithBoxService  = extract.WithBoxService
	WithOptions     = extract.WithOptions
	NewRewriter     = prices.NewRewriter

	Locate           = locate.Locate
	Extend           = refine.Extend
	Split            = split.Split
	TrimIllustration = trim.Illustration
	TrimDimension    = trim.Dimension
)

// Open opens a PDF file
func Open(path string) (*pdf.PDFDocument, error) {
	return pdf.Open(path)
}

// OpenBytes opens a PDF held in memory
func OpenBytes(data []byte) (*pdf.PDFDocument, error) {
	return pdf.OpenBytes(data)
}

// Render renders page index of data at dpi with MuPDF.
func Render(data []byte, index int, dpi float64) (*image.RGBA, error) {
	return raster.NewFitzRenderer().Render(data, index, dpi)
}

// ExtractRegions crops the illustrations and drawings of page index with the
// default strategies and no AI box service.
func ExtractRegions(ctx context.Context, data []byte, index int) (*Regions, error) {
	return extract.New().ExtractRegions(ctx, data, index)
}

// RewritePrices multiplies every price marked by from and marks the result
// with to, using the default rewriter.
func RewritePrices(data []byte, from string, multiplier float64, to string) ([]byte, error) {
	return prices.NewRewriter().Rewrite(data, from, multiplier, to)
}
