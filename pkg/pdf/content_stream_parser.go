package pdf

import (
	"math"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxFormDepth bounds Form XObject recursion
const maxFormDepth = 8

// Glyph box extents relative to the baseline, in em.
const (
	ascent  = 0.8
	descent = 0.2
)

// ContentStreamParser interprets content streams and records painted paths,
// text spans and image placements.
type ContentStreamParser struct {
	ctx     *model.Context
	toPage  func(x, y float64) (float64, float64)
	content *PageContent

	// Graphics state
	graphicsState GraphicsState
	stateStack    []GraphicsState

	// Text object state
	textMatrix Matrix
	lineMatrix Matrix

	// Current path
	currentPath []Subpath

	// Resources
	resources types.Dict
	fonts     map[string]*FontInfo
	xobjects  types.Dict

	stream int
	depth  int
}

// GraphicsState is the part of the PDF graphics state the interpreter tracks.
// Text state is part of it, so q/Q save and restore fonts too.
type GraphicsState struct {
	CTM       Matrix // Current transformation matrix
	FillColor uint32 // packed RGB
	Text      TextState
}

// TextState represents the PDF text state
type TextState struct {
	Font       *FontInfo
	FontName   string
	FontSize   float64
	CharSpace  float64
	WordSpace  float64
	Scale      float64 // Tz / 100
	Leading    float64
	Rise       float64
	RenderMode int
}

// textPart is one element of a text-showing operand: a string or a TJ
// adjustment in thousandths of an em.
type textPart struct {
	data   []byte
	adjust float64
}

// NewContentStreamParser creates an interpreter over the given resources.
// toPage maps PDF user space to the coordinate space recorded in the output.
func NewContentStreamParser(ctx *model.Context, resources types.Dict, toPage func(x, y float64) (float64, float64)) *ContentStreamParser {
	if toPage == nil {
		toPage = func(x, y float64) (float64, float64) { return x, y }
	}
	p := &ContentStreamParser{
		ctx:     ctx,
		toPage:  toPage,
		content: &PageContent{},
		graphicsState: GraphicsState{
			CTM:  IdentityMatrix(),
			Text: TextState{Scale: 1},
		},
		textMatrix: IdentityMatrix(),
		lineMatrix: IdentityMatrix(),
	}
	p.setResources(resources)
	return p
}

func (p *ContentStreamParser) setResources(resources types.Dict) {
	p.resources = resources
	p.fonts = nil
	p.xobjects = nil
	if resources == nil || p.ctx == nil {
		return
	}
	p.fonts = loadFonts(p.ctx, resources)
	p.xobjects = derefDict(p.ctx, resources["XObject"])
}

// Content returns everything recorded so far
func (p *ContentStreamParser) Content() *PageContent {
	return p.content
}

// Parse interprets one content stream. stream is recorded on spans so the
// caller can locate operators later; pass -1 for streams that must not be
// edited.
func (p *ContentStreamParser) Parse(data []byte, stream int) {
	saved := p.stream
	p.stream = stream
	defer func() { p.stream = saved }()

	lex := NewLexer(data)
	var operands []Token
	for {
		tok := lex.Next()
		if tok.Type == TokenEOF {
			return
		}
		if !tok.IsOperator() {
			operands = append(operands, tok)
			continue
		}

		start := tok.Start
		if len(operands) > 0 {
			start = operands[0].Start
		}
		p.processOperator(tok.Text, operands, start, tok.End)
		if tok.Text == "ID" {
			lex.SkipInlineImage()
		}
		operands = operands[:0]
	}
}

// processOperator processes a PDF operator with its operands
func (p *ContentStreamParser) processOperator(op string, operands []Token, start, end int) {
	switch op {
	// Graphics state
	case "q":
		p.stateStack = append(p.stateStack, p.graphicsState)
	case "Q":
		if n := len(p.stateStack); n > 0 {
			p.graphicsState = p.stateStack[n-1]
			p.stateStack = p.stateStack[:n-1]
		}
	case "cm":
		if v, ok := lastNumbers(operands, 6); ok {
			m := Matrix{A: v[0], B: v[1], C: v[2], D: v[3], E: v[4], F: v[5]}
			p.graphicsState.CTM = MultiplyMatrix(m, p.graphicsState.CTM)
		}

	// Text object
	case "BT":
		p.textMatrix = IdentityMatrix()
		p.lineMatrix = IdentityMatrix()
	case "ET":

	// Text positioning
	case "Td":
		if v, ok := lastNumbers(operands, 2); ok {
			p.textMoveBy(v[0], v[1])
		}
	case "TD":
		if v, ok := lastNumbers(operands, 2); ok {
			p.graphicsState.Text.Leading = -v[1]
			p.textMoveBy(v[0], v[1])
		}
	case "Tm":
		if v, ok := lastNumbers(operands, 6); ok {
			p.textMatrix = Matrix{A: v[0], B: v[1], C: v[2], D: v[3], E: v[4], F: v[5]}
			p.lineMatrix = p.textMatrix
		}
	case "T*":
		p.textMoveBy(0, -p.graphicsState.Text.Leading)

	// Text state
	case "Tc":
		if v, ok := lastNumbers(operands, 1); ok {
			p.graphicsState.Text.CharSpace = v[0]
		}
	case "Tw":
		if v, ok := lastNumbers(operands, 1); ok {
			p.graphicsState.Text.WordSpace = v[0]
		}
	case "Tz":
		if v, ok := lastNumbers(operands, 1); ok {
			p.graphicsState.Text.Scale = v[0] / 100
		}
	case "TL":
		if v, ok := lastNumbers(operands, 1); ok {
			p.graphicsState.Text.Leading = v[0]
		}
	case "Ts":
		if v, ok := lastNumbers(operands, 1); ok {
			p.graphicsState.Text.Rise = v[0]
		}
	case "Tr":
		if v, ok := lastNumbers(operands, 1); ok {
			p.graphicsState.Text.RenderMode = int(v[0])
		}
	case "Tf":
		p.setFont(operands)

	// Text showing
	case "Tj":
		p.showText(stringParts(operands), op, start, end, 0, 0)
	case "TJ":
		p.showText(arrayParts(operands), op, start, end, 0, 0)
	case "'":
		p.textMoveBy(0, -p.graphicsState.Text.Leading)
		p.showText(stringParts(operands), op, start, end, 0, 0)
	case "\"":
		v, ok := lastNumbers(numericOnly(operands), 2)
		if !ok {
			return
		}
		p.graphicsState.Text.WordSpace = v[0]
		p.graphicsState.Text.CharSpace = v[1]
		p.textMoveBy(0, -p.graphicsState.Text.Leading)
		p.showText(stringParts(operands), op, start, end, v[0], v[1])

	// Path construction
	case "m":
		if v, ok := lastNumbers(operands, 2); ok {
			p.moveTo(v[0], v[1])
		}
	case "l":
		if v, ok := lastNumbers(operands, 2); ok {
			p.lineTo(v[0], v[1], false)
		}
	case "c":
		if v, ok := lastNumbers(operands, 6); ok {
			p.lineTo(v[4], v[5], true)
		}
	case "v", "y":
		if v, ok := lastNumbers(operands, 4); ok {
			p.lineTo(v[2], v[3], true)
		}
	case "h":
		p.closePath()
	case "re":
		if v, ok := lastNumbers(operands, 4); ok {
			p.rectangle(v[0], v[1], v[2], v[3])
		}

	// Path painting
	case "S":
		p.paint(true, false)
	case "s":
		p.closePath()
		p.paint(true, false)
	case "f", "F", "f*":
		p.paint(false, true)
	case "B", "B*":
		p.paint(true, true)
	case "b", "b*":
		p.closePath()
		p.paint(true, true)
	case "n":
		p.currentPath = nil

	// Fill colour; stroke colour does not affect anything recorded
	case "g":
		if v, ok := lastNumbers(operands, 1); ok {
			p.graphicsState.FillColor = PackRGB(v[0], v[0], v[0])
		}
	case "rg":
		if v, ok := lastNumbers(operands, 3); ok {
			p.graphicsState.FillColor = PackRGB(v[0], v[1], v[2])
		}
	case "k":
		if v, ok := lastNumbers(operands, 4); ok {
			p.graphicsState.FillColor = cmykToRGB(v[0], v[1], v[2], v[3])
		}
	case "cs":
		p.graphicsState.FillColor = 0
	case "sc", "scn":
		p.setFillColor(numericOnly(operands))

	// XObjects and inline images
	case "Do":
		if len(operands) > 0 && operands[len(operands)-1].Type == TokenName {
			p.doXObject(operands[len(operands)-1].Text)
		}
	case "ID":
		p.inlineImage(operands)
	}
}

func (p *ContentStreamParser) textMoveBy(tx, ty float64) {
	p.lineMatrix = MultiplyMatrix(TranslationMatrix(tx, ty), p.lineMatrix)
	p.textMatrix = p.lineMatrix
}

func (p *ContentStreamParser) setFont(operands []Token) {
	if len(operands) < 2 {
		return
	}
	nameTok, sizeTok := operands[len(operands)-2], operands[len(operands)-1]
	if nameTok.Type != TokenName || sizeTok.Type != TokenNumber {
		return
	}
	ts := &p.graphicsState.Text
	ts.FontName = nameTok.Text
	ts.FontSize = sizeTok.Number
	ts.Font = p.fonts[nameTok.Text]
}

func (p *ContentStreamParser) setFillColor(v []Token) {
	switch len(v) {
	case 1:
		p.graphicsState.FillColor = PackRGB(v[0].Number, v[0].Number, v[0].Number)
	case 3:
		p.graphicsState.FillColor = PackRGB(v[0].Number, v[1].Number, v[2].Number)
	case 4:
		p.graphicsState.FillColor = cmykToRGB(v[0].Number, v[1].Number, v[2].Number, v[3].Number)
	}
}

// showText advances the text matrix over parts and records one span.
func (p *ContentStreamParser) showText(parts []textPart, op string, start, end int, wordSpace, charSpace float64) {
	ts := p.graphicsState.Text
	font := ts.Font
	if font == nil {
		font = fallbackFont
	}

	trm := MultiplyMatrix(p.textMatrix, p.graphicsState.CTM)
	var sb strings.Builder
	var advance float64
	for _, part := range parts {
		if part.data == nil {
			// Large negative adjustments are word gaps in most producers.
			if part.adjust <= -250 && sb.Len() > 0 && !strings.HasSuffix(sb.String(), " ") {
				sb.WriteByte(' ')
			}
			advance -= part.adjust / 1000 * ts.FontSize
			continue
		}
		for _, g := range font.glyphs(part.data) {
			sb.WriteString(g.text)
			w := g.width/1000*ts.FontSize + ts.CharSpace
			if g.space {
				w += ts.WordSpace
			}
			advance += w
		}
	}

	width := advance * ts.Scale
	p.textMatrix = MultiplyMatrix(TranslationMatrix(width, 0), p.textMatrix)

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return
	}

	lo := ts.Rise - descent*ts.FontSize
	hi := ts.Rise + ascent*ts.FontSize
	var bbox Rect
	for i, c := range [4]Point{{0, lo}, {width, lo}, {width, hi}, {0, hi}} {
		x, y := p.toPage(trm.Apply(c.X, c.Y))
		if i == 0 {
			bbox = Rect{X0: x, Y0: y, X1: x, Y1: y}
			continue
		}
		bbox = bbox.Union(Rect{X0: x, Y0: y, X1: x, Y1: y})
	}

	ox, oy := trm.Apply(0, ts.Rise)
	p.content.Spans = append(p.content.Spans, Span{
		Text:      text,
		Font:      ts.FontName,
		FontSize:  ts.FontSize,
		Size:      ts.FontSize * math.Hypot(trm.C, trm.D),
		Scale:     ts.Scale,
		Color:     p.graphicsState.FillColor,
		BBox:      bbox,
		Origin:    Point{X: ox, Y: oy},
		Advance:   advance,
		Hidden:    ts.RenderMode == 3 || ts.RenderMode == 7,
		Op:        op,
		Stream:    p.stream,
		Start:     start,
		End:       end,
		WordSpace: wordSpace,
		CharSpace: charSpace,
	})
}

// Path construction

func (p *ContentStreamParser) transformPoint(x, y float64) Point {
	px, py := p.toPage(p.graphicsState.CTM.Apply(x, y))
	return Point{X: px, Y: py}
}

func (p *ContentStreamParser) moveTo(x, y float64) {
	p.currentPath = append(p.currentPath, Subpath{Points: []Point{p.transformPoint(x, y)}})
}

func (p *ContentStreamParser) lineTo(x, y float64, curved bool) {
	n := len(p.currentPath)
	if n == 0 {
		p.moveTo(x, y)
		return
	}
	last := &p.currentPath[n-1]
	if last.Closed {
		// After h the current point is the subpath start.
		p.currentPath = append(p.currentPath, Subpath{Points: []Point{last.Points[0]}})
		last = &p.currentPath[len(p.currentPath)-1]
	}
	last.Points = append(last.Points, p.transformPoint(x, y))
	if curved {
		last.Curved = true
	}
}

func (p *ContentStreamParser) closePath() {
	if n := len(p.currentPath); n > 0 {
		p.currentPath[n-1].Closed = true
	}
}

func (p *ContentStreamParser) rectangle(x, y, w, h float64) {
	p.currentPath = append(p.currentPath, Subpath{
		Points: []Point{
			p.transformPoint(x, y),
			p.transformPoint(x+w, y),
			p.transformPoint(x+w, y+h),
			p.transformPoint(x, y+h),
		},
		Closed:   true,
		FromRect: true,
	})
}

func (p *ContentStreamParser) paint(stroked, filled bool) {
	if len(p.currentPath) > 0 {
		p.content.Paths = append(p.content.Paths, Path{
			Subpaths: p.currentPath,
			Stroked:  stroked,
			Filled:   filled,
		})
	}
	p.currentPath = nil
}

// XObjects

func (p *ContentStreamParser) doXObject(name string) {
	if p.xobjects == nil {
		return
	}
	sd := derefStream(p.ctx, p.xobjects[name])
	if sd == nil {
		return
	}

	switch nameOf(p.ctx, sd.Dict["Subtype"]) {
	case "Image":
		w, _ := numberOf(p.ctx, sd.Dict["Width"])
		h, _ := numberOf(p.ctx, sd.Dict["Height"])
		p.addImage(name, int(w), int(h))
	case "Form":
		if p.depth >= maxFormDepth {
			return
		}
		if err := sd.Decode(); err != nil {
			return
		}
		p.runForm(sd)
	}
}

// runForm interprets a Form XObject with its own matrix and resources, then
// restores the caller's state.
func (p *ContentStreamParser) runForm(sd *types.StreamDict) {
	savedState := p.graphicsState
	savedStack := len(p.stateStack)
	savedRes, savedFonts, savedX := p.resources, p.fonts, p.xobjects
	savedTM, savedLM := p.textMatrix, p.lineMatrix
	savedPath := p.currentPath

	if m, ok := matrixOf(p.ctx, sd.Dict["Matrix"]); ok {
		p.graphicsState.CTM = MultiplyMatrix(m, p.graphicsState.CTM)
	}
	if res := derefDict(p.ctx, sd.Dict["Resources"]); res != nil {
		p.setResources(res)
	}
	p.currentPath = nil

	p.depth++
	p.Parse(sd.Content, -1)
	p.depth--

	p.graphicsState = savedState
	p.stateStack = p.stateStack[:savedStack]
	p.resources, p.fonts, p.xobjects = savedRes, savedFonts, savedX
	p.textMatrix, p.lineMatrix = savedTM, savedLM
	p.currentPath = savedPath
}

func (p *ContentStreamParser) inlineImage(operands []Token) {
	var w, h int
	for i := 0; i+1 < len(operands); i++ {
		if operands[i].Type != TokenName || operands[i+1].Type != TokenNumber {
			continue
		}
		switch operands[i].Text {
		case "W", "Width":
			w = int(operands[i+1].Number)
		case "H", "Height":
			h = int(operands[i+1].Number)
		}
	}
	p.addImage("inline", w, h)
}

// addImage records the unit square mapped through the CTM.
func (p *ContentStreamParser) addImage(name string, w, h int) {
	var bbox Rect
	for i, c := range [4]Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
		pt := p.transformPoint(c.X, c.Y)
		if i == 0 {
			bbox = Rect{X0: pt.X, Y0: pt.Y, X1: pt.X, Y1: pt.Y}
			continue
		}
		bbox = bbox.Union(Rect{X0: pt.X, Y0: pt.Y, X1: pt.X, Y1: pt.Y})
	}
	p.content.Images = append(p.content.Images, ImagePlacement{
		Name:   name,
		Width:  w,
		Height: h,
		BBox:   bbox,
	})
}

// Operand helpers

// lastNumbers returns the last n operands as numbers.
func lastNumbers(operands []Token, n int) ([]float64, bool) {
	if len(operands) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i, tok := range operands[len(operands)-n:] {
		if tok.Type != TokenNumber {
			return nil, false
		}
		out[i] = tok.Number
	}
	return out, true
}

func numericOnly(operands []Token) []Token {
	var out []Token
	for _, tok := range operands {
		if tok.Type == TokenNumber {
			out = append(out, tok)
		}
	}
	return out
}

func stringParts(operands []Token) []textPart {
	for i := len(operands) - 1; i >= 0; i-- {
		if operands[i].Type == TokenString || operands[i].Type == TokenHexString {
			return []textPart{{data: nonNil(operands[i].Bytes)}}
		}
	}
	return nil
}

func arrayParts(operands []Token) []textPart {
	var parts []textPart
	for _, tok := range operands {
		switch tok.Type {
		case TokenString, TokenHexString:
			parts = append(parts, textPart{data: nonNil(tok.Bytes)})
		case TokenNumber:
			parts = append(parts, textPart{adjust: tok.Number})
		}
	}
	return parts
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func cmykToRGB(c, m, y, k float64) uint32 {
	return PackRGB((1-c)*(1-k), (1-m)*(1-k), (1-y)*(1-k))
}
