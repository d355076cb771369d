package pdf

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFDocument implements the Document interface using pdfcpu
type PDFDocument struct {
	ctx   *model.Context
	data  []byte
	pages map[int]*PDFCPUPage
}

// Open opens a PDF file and returns a Document
func Open(path string) (*PDFDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, OpenError("failed to read file", err)
	}
	return OpenBytes(data)
}

// OpenBytes parses a PDF held in memory. Any failure to read or validate the
// document is reported as an ErrOpen structural error.
func OpenBytes(data []byte) (*PDFDocument, error) {
	if len(data) == 0 {
		return nil, OpenError("empty document", nil)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, OpenError("failed to read PDF context", err)
	}

	if err := api.ValidateContext(ctx); err != nil {
		return nil, OpenError("invalid PDF", err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, OpenError("failed to count pages", err)
	}

	return &PDFDocument{
		ctx:   ctx,
		data:  data,
		pages: make(map[int]*PDFCPUPage),
	}, nil
}

// PageCount returns the total number of pages
func (d *PDFDocument) PageCount() int {
	if d.ctx == nil {
		return 0
	}
	return d.ctx.PageCount
}

// Page returns a specific page by index (0-based). Pages are built on first
// access and cached for the lifetime of the document.
func (d *PDFDocument) Page(index int) (Page, error) {
	return d.PDFPage(index)
}

// PDFPage is Page with the concrete pdfcpu page type, for callers that need
// the page dictionary or raw content streams.
func (d *PDFDocument) PDFPage(index int) (*PDFCPUPage, error) {
	if d.ctx == nil {
		return nil, OpenError("document is closed", nil)
	}
	if index < 0 || index >= d.ctx.PageCount {
		return nil, PageRangeError(index, d.ctx.PageCount)
	}
	if p, ok := d.pages[index]; ok {
		return p, nil
	}

	p, err := NewPDFCPUPage(d.ctx, index+1)
	if err != nil {
		return nil, fmt.Errorf("failed to create page %d: %w", index, err)
	}
	d.pages[index] = p
	return p, nil
}

// Context exposes the underlying pdfcpu context for writers.
func (d *PDFDocument) Context() *model.Context {
	return d.ctx
}

// Bytes returns the source bytes the document was opened from
func (d *PDFDocument) Bytes() []byte {
	return d.data
}

// Close releases resources associated with the document
func (d *PDFDocument) Close() error {
	d.ctx = nil
	d.pages = nil
	return nil
}
