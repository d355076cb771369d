package pdf

import (
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ContentStream is one decoded page content stream
type ContentStream struct {
	Data []byte
}

// PDFCPUPage implements the Page interface using pdfcpu
type PDFCPUPage struct {
	ctx        *model.Context
	pageNumber int
	pageDict   types.Dict
	resources  types.Dict
	inherited  bool // resources came from the page tree, not the page dict
	box        types.Rectangle
	rotation   int
	streams    []ContentStream

	once    sync.Once
	content *PageContent
}

// NewPDFCPUPage creates a page from a 1-based page number
func NewPDFCPUPage(ctx *model.Context, pageNumber int) (*PDFCPUPage, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is nil")
	}
	if pageNumber < 1 || pageNumber > ctx.PageCount {
		return nil, PageRangeError(pageNumber-1, ctx.PageCount)
	}

	pageDict, _, attrs, err := ctx.PageDict(pageNumber, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get page dict: %w", err)
	}
	if pageDict == nil {
		return nil, fmt.Errorf("page %d has no dictionary", pageNumber)
	}

	page := &PDFCPUPage{
		ctx:        ctx,
		pageNumber: pageNumber,
		pageDict:   pageDict,
		// Default US Letter size
		box: types.Rectangle{LL: types.Point{X: 0, Y: 0}, UR: types.Point{X: 612, Y: 792}},
	}

	// The renderer shows the crop box, so geometry uses it too.
	if attrs != nil {
		if attrs.CropBox != nil {
			page.box = *attrs.CropBox
		} else if attrs.MediaBox != nil {
			page.box = *attrs.MediaBox
		}
		page.rotation = attrs.Rotate
	}

	if res := derefDict(ctx, pageDict["Resources"]); res != nil {
		page.resources = res
	} else if attrs != nil && attrs.Resources != nil {
		page.resources = attrs.Resources
		page.inherited = true
	}

	if err := page.extractContent(); err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	return page, nil
}

// extractContent decodes the page content streams, keeping them separate so
// byte offsets recorded by the interpreter stay valid per stream.
func (p *PDFCPUPage) extractContent() error {
	contents, err := p.ctx.Dereference(p.pageDict["Contents"])
	if err != nil {
		return fmt.Errorf("failed to dereference content: %w", err)
	}
	if contents == nil {
		return nil
	}

	var refs []types.Object
	switch v := contents.(type) {
	case types.Array:
		refs = v
	default:
		refs = []types.Object{p.pageDict["Contents"]}
	}

	for _, ref := range refs {
		sd := derefStream(p.ctx, ref)
		if sd == nil {
			continue
		}
		if err := sd.Decode(); err != nil {
			return fmt.Errorf("failed to decode stream: %w", err)
		}
		p.streams = append(p.streams, ContentStream{Data: sd.Content})
	}
	return nil
}

// Index returns the 0-based page index
func (p *PDFCPUPage) Index() int {
	return p.pageNumber - 1
}

// GetPageNumber returns the page number (1-based)
func (p *PDFCPUPage) GetPageNumber() int {
	return p.pageNumber
}

// Width returns the page width in points
func (p *PDFCPUPage) Width() float64 {
	return p.box.Width()
}

// Height returns the page height in points
func (p *PDFCPUPage) Height() float64 {
	return p.box.Height()
}

// Rotation returns the page rotation in degrees
func (p *PDFCPUPage) Rotation() int {
	return p.rotation
}

// Dict returns the underlying page dictionary
func (p *PDFCPUPage) Dict() types.Dict {
	return p.pageDict
}

// Resources returns the effective resource dictionary and whether it was
// inherited from the page tree.
func (p *PDFCPUPage) Resources() (types.Dict, bool) {
	return p.resources, p.inherited
}

// Streams returns the decoded content streams in page order
func (p *PDFCPUPage) Streams() []ContentStream {
	return p.streams
}

// ToPage converts PDF user space to top-left page space.
func (p *PDFCPUPage) ToPage(x, y float64) (float64, float64) {
	return x - p.box.LL.X, p.box.UR.Y - y
}

// ToUser converts top-left page space back to PDF user space.
func (p *PDFCPUPage) ToUser(x, y float64) (float64, float64) {
	return x + p.box.LL.X, p.box.UR.Y - y
}

// Content interprets the page content streams once and returns the result.
func (p *PDFCPUPage) Content() (*PageContent, error) {
	p.once.Do(func() {
		parser := NewContentStreamParser(p.ctx, p.resources, p.ToPage)
		for i, s := range p.streams {
			parser.Parse(s.Data, i)
		}
		p.content = parser.Content()
		p.content.Width = p.Width()
		p.content.Height = p.Height()
	})
	return p.content, nil
}

func derefObject(ctx *model.Context, obj types.Object) types.Object {
	if obj == nil {
		return nil
	}
	if ref, ok := obj.(*types.IndirectRef); ok {
		obj = *ref
	}
	o, err := ctx.Dereference(obj)
	if err != nil {
		return nil
	}
	return o
}

func derefDict(ctx *model.Context, obj types.Object) types.Dict {
	if d, ok := derefObject(ctx, obj).(types.Dict); ok {
		return d
	}
	return nil
}

func derefArray(ctx *model.Context, obj types.Object) types.Array {
	if a, ok := derefObject(ctx, obj).(types.Array); ok {
		return a
	}
	return nil
}

func derefStream(ctx *model.Context, obj types.Object) *types.StreamDict {
	switch o := derefObject(ctx, obj).(type) {
	case types.StreamDict:
		return &o
	case *types.StreamDict:
		return o
	}
	return nil
}

func nameOf(ctx *model.Context, obj types.Object) string {
	if n, ok := derefObject(ctx, obj).(types.Name); ok {
		return string(n)
	}
	return ""
}

func numberOf(ctx *model.Context, obj types.Object) (float64, bool) {
	switch v := derefObject(ctx, obj).(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	}
	return 0, false
}

func matrixOf(ctx *model.Context, obj types.Object) (Matrix, bool) {
	arr := derefArray(ctx, obj)
	if len(arr) != 6 {
		return Matrix{}, false
	}
	var v [6]float64
	for i, o := range arr {
		f, ok := numberOf(ctx, o)
		if !ok {
			return Matrix{}, false
		}
		v[i] = f
	}
	return Matrix{A: v[0], B: v[1], C: v[2], D: v[3], E: v[4], F: v[5]}, true
}
