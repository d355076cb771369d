package locate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyhub-apps/pdfcatalog-golang/internal/testpdf"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/pdf"
)

const (
	pw = testpdf.PageWidth
	ph = testpdf.PageHeight
)

func fixtureContent(t *testing.T, page testpdf.Page) *pdf.PageContent {
	t.Helper()
	doc, err := pdf.OpenBytes(testpdf.MustBuild(t, page))
	require.NoError(t, err)
	defer doc.Close()

	p, err := doc.Page(0)
	require.NoError(t, err)
	content, err := p.Content()
	require.NoError(t, err)
	return content
}

func assertRect(t *testing.T, want testpdf.Box, got pdf.Rect) {
	t.Helper()
	assert.InDelta(t, want.X, got.X0, 0.05)
	assert.InDelta(t, want.Y, got.Y0, 0.05)
	assert.InDelta(t, want.X+want.W, got.X1, 0.05)
	assert.InDelta(t, want.Y+want.H, got.Y1, 0.05)
}

func TestLocateStackedBoxes(t *testing.T) {
	top := testpdf.Box{X: 40, Y: 0.20 * ph, W: 240, H: 0.20 * ph}
	bottom := testpdf.Box{X: 40, Y: 0.55 * ph, W: 240, H: 0.20 * ph}
	content := fixtureContent(t, testpdf.Page{
		Boxes: []testpdf.Box{
			// Section borders spanning drawing and text columns
			{X: 30, Y: 0.18 * ph, W: 0.9 * pw, H: 0.24 * ph},
			{X: 30, Y: 0.53 * ph, W: 0.9 * pw, H: 0.24 * ph},
			bottom,
			top,
		},
		Labels: []testpdf.Label{
			{X: 120, Y: bottom.Y + 60, Text: "Ø 350"},
			{X: 120, Y: top.Y + 60, Text: "Ø 120"},
			{X: 360, Y: top.Y + 40, Text: "LAMP-120 E27 60W"},
		},
	})

	rects := Locate(content, DefaultOptions())
	require.Len(t, rects, 2)
	assertRect(t, top, rects[0])
	assertRect(t, bottom, rects[1])
}

func TestLocateWidthFilter(t *testing.T) {
	border := testpdf.Box{X: 0.05 * pw, Y: 100, W: 0.9 * pw, H: 300}
	content := fixtureContent(t, testpdf.Page{
		Boxes:  []testpdf.Box{border},
		Labels: []testpdf.Label{{X: 100, Y: 200, Text: "Ø 80"}},
	})
	assert.Empty(t, Locate(content, DefaultOptions()), "a 90% wide border is never a drawing box")

	box := testpdf.Box{X: 20, Y: 100, W: 0.4 * pw, H: 300}
	content = fixtureContent(t, testpdf.Page{
		Boxes:  []testpdf.Box{border, box},
		Labels: []testpdf.Label{{X: 100, Y: 200, Text: "Ø 80"}},
	})
	rects := Locate(content, DefaultOptions())
	require.Len(t, rects, 1)
	assertRect(t, box, rects[0])
}

func TestLocateSideColumnLayout(t *testing.T) {
	wide := testpdf.Box{X: 20, Y: 100, W: 0.7 * pw, H: 300}
	content := fixtureContent(t, testpdf.Page{
		Boxes:  []testpdf.Box{wide},
		Labels: []testpdf.Label{{X: 100, Y: 200, Text: "Ø 80"}},
	})

	assert.Empty(t, Locate(content, DefaultOptions()))

	opts, err := ForLayout(LayoutSideColumn)
	require.NoError(t, err)
	rects := Locate(content, opts)
	require.Len(t, rects, 1)
	assertRect(t, wide, rects[0])
}

func TestLocatePrefersTightestBox(t *testing.T) {
	outer := testpdf.Box{X: 20, Y: 100, W: 0.5 * pw, H: 400}
	inner := testpdf.Box{X: 40, Y: 150, W: 0.3 * pw, H: 200}
	content := fixtureContent(t, testpdf.Page{
		Boxes:  []testpdf.Box{outer, inner},
		Labels: []testpdf.Label{{X: 60, Y: 250, Text: "ø 45"}},
	})

	rects := Locate(content, DefaultOptions())
	require.Len(t, rects, 1)
	assertRect(t, inner, rects[0])
}

func TestLocatePolylineBoxes(t *testing.T) {
	box := testpdf.Box{X: 50, Y: 120, W: 200, H: 160}
	content := fixtureContent(t, testpdf.Page{
		Outlines: []testpdf.Box{box},
		Labels:   []testpdf.Label{{X: 80, Y: 200, Text: "Ø 60"}},
	})

	rects := Locate(content, DefaultOptions())
	require.Len(t, rects, 1)
	assertRect(t, box, rects[0])
}

func TestLocateWithoutAnchors(t *testing.T) {
	boxes := []testpdf.Box{
		{X: 40, Y: 500, W: 200, H: 150},
		{X: 40, Y: 300, W: 200, H: 150},
		{X: 40, Y: 100, W: 200, H: 150},
		{X: 40, Y: 100, W: 20, H: 20}, // tick mark
	}
	content := fixtureContent(t, testpdf.Page{Boxes: boxes})

	rects := Locate(content, DefaultOptions())
	require.Len(t, rects, 2)
	assertRect(t, boxes[2], rects[0])
	assertRect(t, boxes[1], rects[1])
}

func TestLocateEmptyPage(t *testing.T) {
	content := fixtureContent(t, testpdf.Page{
		Labels: []testpdf.Label{{X: 50, Y: 50, Text: "Index"}},
	})
	assert.Empty(t, Locate(content, DefaultOptions()))
	assert.Empty(t, Locate(nil, DefaultOptions()))
}

func TestCandidatesShapes(t *testing.T) {
	pts := func(coords ...float64) []pdf.Point {
		var out []pdf.Point
		for i := 0; i+1 < len(coords); i += 2 {
			out = append(out, pdf.Point{X: coords[i], Y: coords[i+1]})
		}
		return out
	}

	tests := []struct {
		name string
		sp   pdf.Subpath
		ok   bool
	}{
		{"Closed four points", pdf.Subpath{Points: pts(0, 0, 100, 0, 100, 50, 0, 50), Closed: true}, true},
		{"Returns to start", pdf.Subpath{Points: pts(0, 0, 100, 0, 100, 50, 0, 50, 0, 0)}, true},
		{"Jitter within tolerance", pdf.Subpath{Points: pts(0, 0, 100.3, 0.2, 100, 50, 0.1, 50), Closed: true}, true},
		{"Open polyline", pdf.Subpath{Points: pts(0, 0, 100, 0, 100, 50, 0, 50)}, false},
		{"Triangle", pdf.Subpath{Points: pts(0, 0, 100, 0, 50, 50), Closed: true}, false},
		{"Three distinct x", pdf.Subpath{Points: pts(0, 0, 50, 0, 100, 0, 100, 50, 0, 50), Closed: true}, false},
		{"Curved", pdf.Subpath{Points: pts(0, 0, 100, 0, 100, 50, 0, 50), Closed: true, Curved: true}, false},
		{"Rotated re", pdf.Subpath{Points: pts(0, 0, 10, 10, 0, 20, -10, 10), Closed: true, FromRect: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rects := Candidates([]pdf.Path{{Subpaths: []pdf.Subpath{tt.sp}, Stroked: true}}, 0.5)
			assert.Equal(t, tt.ok, len(rects) == 1)
		})
	}
}

func TestForLayoutUnknown(t *testing.T) {
	_, err := ForLayout("magazine")
	assert.Error(t, err)
}
