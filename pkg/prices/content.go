package prices

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/pdf"
)

// applyPage rewrites one page. The page keeps its own drawing state inside
// q/Q; all white covers are painted in a single pass and only then is the
// new text drawn, so no cover can hide a reinserted price.
func (r *Rewriter) applyPage(doc *pdf.PDFDocument, page *pdf.PDFCPUPage, edits []edit) error {
	ctx := doc.Context()

	fontName, err := r.addFont(ctx, page)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("q\n")
	for i, s := range neutralize(page.Streams(), edits) {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(s)
	}
	buf.WriteString("\nQ\n")

	buf.WriteString("q\n1 g\n")
	for _, e := range edits {
		b := e.span.BBox
		x, y := page.ToUser(b.X0-r.redactPad, b.Y1+r.redactPad)
		fmt.Fprintf(&buf, "%s %s %s %s re\n", num(x), num(y), num(b.Width()+2*r.redactPad), num(b.Height()+2*r.redactPad))
	}
	buf.WriteString("f\nQ\n")

	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	for _, e := range edits {
		text, err := enc.String(e.text)
		if err != nil {
			return fmt.Errorf("encode %q: %w", e.text, err)
		}
		cr, cg, cb := pdf.UnpackRGB(e.span.Color)
		fmt.Fprintf(&buf, "BT\n/%s %s Tf\n%s %s %s rg\n%s %s Td\n(%s) Tj\nET\n",
			fontName, num(e.span.Size),
			num(cr), num(cg), num(cb),
			num(e.span.Origin.X), num(e.span.Origin.Y),
			escapeString(text))
	}

	sd, err := ctx.NewStreamDictForBuf(buf.Bytes())
	if err != nil {
		return err
	}
	if err := sd.Encode(); err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	ref, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return err
	}
	page.Dict().Update("Contents", *ref)
	return nil
}

// neutralize returns the page streams with every edited text-showing
// operator replaced by a glyph-free TJ that moves the pen by the same
// amount, so text following on the same line stays where it was.
func neutralize(streams []pdf.ContentStream, edits []edit) [][]byte {
	byStream := make(map[int][]pdf.Span)
	for _, e := range edits {
		byStream[e.span.Stream] = append(byStream[e.span.Stream], e.span)
	}

	out := make([][]byte, len(streams))
	for i, s := range streams {
		spans := byStream[i]
		if len(spans) == 0 {
			out[i] = s.Data
			continue
		}
		sort.Slice(spans, func(a, b int) bool { return spans[a].Start > spans[b].Start })

		data := append([]byte(nil), s.Data...)
		for _, sp := range spans {
			if sp.Start < 0 || sp.End > len(data) || sp.Start >= sp.End {
				continue
			}
			op := []byte(blankOp(sp))
			data = append(data[:sp.Start], append(op, data[sp.End:]...)...)
		}
		out[i] = data
	}
	return out
}

// blankOp is the replacement for the operator that showed s.
func blankOp(s pdf.Span) string {
	shift := "[] TJ"
	if s.FontSize != 0 {
		shift = fmt.Sprintf("[%s] TJ", num(-s.Advance*1000/s.FontSize))
	}
	switch s.Op {
	case "'":
		return "T* " + shift
	case `"`:
		return fmt.Sprintf("%s Tw %s Tc T* %s", num(s.WordSpace), num(s.CharSpace), shift)
	}
	return shift
}

// addFont registers the reinsertion font in the page resources and returns
// its resource name. Inherited resources are copied onto the page first so
// sibling pages are left alone.
func (r *Rewriter) addFont(ctx *model.Context, page *pdf.PDFCPUPage) (string, error) {
	res, inherited := page.Resources()
	if res == nil || inherited {
		if res == nil {
			res = types.NewDict()
		} else {
			res = res.Clone().(types.Dict)
		}
		page.Dict().Update("Resources", res)
	}

	fonts, err := ctx.DereferenceDict(res["Font"])
	if err != nil {
		return "", fmt.Errorf("font resources: %w", err)
	}
	if fonts == nil {
		fonts = types.NewDict()
		res.Update("Font", fonts)
	}

	font := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name(r.font),
		"Encoding": types.Name("WinAnsiEncoding"),
	}
	ref, err := ctx.IndRefForNewObject(font)
	if err != nil {
		return "", err
	}
	name := fonts.NewIDForPrefix("PCF", 1)
	fonts.Insert(name, *ref)
	return name, nil
}

func num(v float64) string {
	v = math.Round(v*10000) / 10000
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escapeString(s string) string {
	var b bytes.Buffer
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
