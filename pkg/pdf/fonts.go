package pdf

import (
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/charmap"
)

// FontInfo holds what the interpreter needs from a font dictionary: how to
// split strings into codes, how wide each code is and what text it maps to.
type FontInfo struct {
	Name     string // resource name
	BaseFont string
	Subtype  string
	Encoding string

	// TwoByte is set for composite fonts using 2-byte codes.
	TwoByte bool

	FirstChar    int
	Widths       []float64 // simple fonts, glyph units (1/1000 em)
	DefaultWidth float64   // composite fonts, /DW
	cidWidths    map[int]float64

	ToUnicode *ToUnicodeCMap
}

type glyph struct {
	code  int
	text  string
	width float64 // glyph units
	space bool    // single-byte code 32, receives word spacing
}

// fallbackFont is used when Tf names a font missing from the resources.
var fallbackFont = &FontInfo{Name: "", Encoding: "WinAnsiEncoding", DefaultWidth: 1000}

func (f *FontInfo) glyphs(data []byte) []glyph {
	step := 1
	if f.TwoByte {
		step = 2
	}
	out := make([]glyph, 0, len(data)/step)
	for i := 0; i < len(data); i += step {
		end := i + step
		if end > len(data) {
			end = len(data)
		}
		code := int(codeValue(data[i:end]))
		text := f.decode(code)
		out = append(out, glyph{
			code:  code,
			text:  text,
			width: f.width(code, text),
			space: step == 1 && code == 32,
		})
	}
	return out
}

func (f *FontInfo) decode(code int) string {
	if f.ToUnicode != nil {
		if s, ok := f.ToUnicode.MapCIDToUnicode(uint32(code)); ok {
			return s
		}
	}
	if f.TwoByte || code < 32 {
		return ""
	}
	cm := charmap.Windows1252
	if f.Encoding == "MacRomanEncoding" {
		cm = charmap.Macintosh
	}
	return string(cm.DecodeByte(byte(code)))
}

func (f *FontInfo) width(code int, text string) float64 {
	if f.TwoByte {
		if w, ok := f.cidWidths[code]; ok {
			return w
		}
		return f.DefaultWidth
	}
	if i := code - f.FirstChar; f.Widths != nil && i >= 0 && i < len(f.Widths) {
		return f.Widths[i]
	}
	return approxWidth(text)
}

// approxWidth estimates glyph widths for fonts without metrics (the standard
// 14 fonts). Values follow Helvetica.
func approxWidth(text string) float64 {
	if text == "" {
		return 0
	}
	var total float64
	for _, r := range text {
		switch {
		case r == ' ', r == '.', r == ',', r == ':', r == ';', r == 'I', r == 'f', r == 't', r == '!', r == '/':
			total += 278
		case r == 'i', r == 'l', r == 'j', r == '\'':
			total += 222
		case r == 'r', r == '-', r == '(', r == ')':
			total += 333
		case r >= '0' && r <= '9', r == '$', r == '€', r == '£':
			total += 556
		case r == 'm', r == 'M':
			total += 833
		case r == 'w':
			total += 722
		case r == 'W':
			total += 944
		case r == 'Ø', r == 'O', r == 'Q', r == 'G':
			total += 778
		case r >= 'A' && r <= 'Z':
			total += 667
		default:
			total += 556
		}
	}
	return total
}

// loadFonts reads every font of a resource dictionary. Fonts that fail to
// resolve are skipped and fall back to approximate metrics at use time.
func loadFonts(ctx *model.Context, resources types.Dict) map[string]*FontInfo {
	fonts := make(map[string]*FontInfo)
	fontDict := derefDict(ctx, resources["Font"])
	for name, obj := range fontDict {
		if f := loadFont(ctx, name, obj); f != nil {
			fonts[name] = f
		}
	}
	return fonts
}

func loadFont(ctx *model.Context, name string, obj types.Object) *FontInfo {
	d := derefDict(ctx, obj)
	if d == nil {
		return nil
	}

	f := &FontInfo{
		Name:         name,
		BaseFont:     nameOf(ctx, d["BaseFont"]),
		Subtype:      nameOf(ctx, d["Subtype"]),
		DefaultWidth: 1000,
	}

	if enc := nameOf(ctx, d["Encoding"]); enc != "" {
		f.Encoding = enc
	} else if encDict := derefDict(ctx, d["Encoding"]); encDict != nil {
		f.Encoding = nameOf(ctx, encDict["BaseEncoding"])
	}

	if f.Subtype == "Type0" {
		f.TwoByte = true
		f.cidWidths = make(map[int]float64)
		descendants := derefArray(ctx, d["DescendantFonts"])
		if len(descendants) > 0 {
			if cid := derefDict(ctx, descendants[0]); cid != nil {
				if dw, ok := numberOf(ctx, cid["DW"]); ok {
					f.DefaultWidth = dw
				}
				f.parseCIDWidths(ctx, derefArray(ctx, cid["W"]))
			}
		}
	} else {
		if fc, ok := numberOf(ctx, d["FirstChar"]); ok {
			f.FirstChar = int(fc)
		}
		for _, w := range derefArray(ctx, d["Widths"]) {
			v, _ := numberOf(ctx, w)
			f.Widths = append(f.Widths, v)
		}
	}

	if sd := derefStream(ctx, d["ToUnicode"]); sd != nil {
		if err := sd.Decode(); err == nil {
			cmap := NewToUnicodeCMap()
			if cmap.Parse(sd.Content) == nil {
				f.ToUnicode = cmap
				if f.TwoByte && cmap.CodeLength() == 1 {
					f.TwoByte = false
				}
			}
		}
	}

	if strings.HasPrefix(f.Encoding, "Identity") {
		f.TwoByte = true
	}
	return f
}

// parseCIDWidths reads a /W array: c [w1 w2 ...] or cFirst cLast w.
func (f *FontInfo) parseCIDWidths(ctx *model.Context, w types.Array) {
	for i := 0; i < len(w); {
		first, ok := numberOf(ctx, w[i])
		if !ok || i+1 >= len(w) {
			return
		}
		if arr := derefArray(ctx, w[i+1]); arr != nil {
			for j, v := range arr {
				width, _ := numberOf(ctx, v)
				f.cidWidths[int(first)+j] = width
			}
			i += 2
			continue
		}
		if i+2 >= len(w) {
			return
		}
		last, _ := numberOf(ctx, w[i+1])
		width, _ := numberOf(ctx, w[i+2])
		for c := int(first); c <= int(last); c++ {
			f.cidWidths[c] = width
		}
		i += 3
	}
}
