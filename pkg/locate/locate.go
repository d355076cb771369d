// Package locate recovers bordered drawing boxes from a page's vector
// content.
package locate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/pdf"
)

// Layout names a catalog family whose box geometry differs.
type Layout string

const (
	// LayoutBordered catalogs frame the whole product section, text column
	// included, so the drawing box is at most a little over half the page.
	LayoutBordered Layout = "bordered"
	// LayoutSideColumn catalogs keep a narrow text column beside a wide
	// drawing box.
	LayoutSideColumn Layout = "sidecolumn"
)

// Options controls candidate filtering
type Options struct {
	// Markers are glyphs that label measurements inside a drawing box.
	Markers []string
	// MinFrac is the minimum width and height as a fraction of the page.
	MinFrac float64
	// MaxWidthFrac rejects boxes wider than this fraction of the page, which
	// excludes outer section borders.
	MaxWidthFrac float64
	// Tolerance merges coordinates closer than this many points.
	Tolerance float64
	// MaxResults caps the number of boxes returned.
	MaxResults int
}

// DefaultOptions returns the options for bordered catalogs
func DefaultOptions() Options {
	return Options{
		Markers:      []string{"Ø", "ø", "⌀"},
		MinFrac:      0.08,
		MaxWidthFrac: 0.58,
		Tolerance:    0.5,
		MaxResults:   2,
	}
}

// ForLayout returns DefaultOptions adjusted for layout.
func ForLayout(layout Layout) (Options, error) {
	opts := DefaultOptions()
	switch layout {
	case LayoutBordered, "":
	case LayoutSideColumn:
		opts.MaxWidthFrac = 0.80
	default:
		return opts, fmt.Errorf("unknown layout %q", layout)
	}
	return opts, nil
}

// Locate returns up to opts.MaxResults drawing boxes, top to bottom, in
// top-left document space. An empty result means the page has no
// recognisable boxes.
func Locate(content *pdf.PageContent, opts Options) []pdf.Rect {
	if content == nil {
		return nil
	}

	candidates := Filter(Candidates(content.Paths, opts.Tolerance), content.Width, content.Height, opts)
	if len(candidates) == 0 {
		return nil
	}

	var result []pdf.Rect
	anchors := Anchors(content.Spans, opts.Markers)
	if len(anchors) == 0 {
		result = candidates
	} else {
		for _, a := range anchors {
			if r, ok := smallestContaining(candidates, a); ok {
				result = append(result, r)
			}
		}
	}

	result = pdf.DeduplicateRects(result)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Y0 < result[j].Y0
	})
	if opts.MaxResults > 0 && len(result) > opts.MaxResults {
		result = result[:opts.MaxResults]
	}
	return result
}

// Anchors returns the centre of every span containing a marker glyph.
func Anchors(spans []pdf.Span, markers []string) []pdf.Point {
	var anchors []pdf.Point
	for _, s := range spans {
		for _, m := range markers {
			if m != "" && strings.Contains(s.Text, m) {
				anchors = append(anchors, s.BBox.Center())
				break
			}
		}
	}
	return anchors
}

// Candidates resolves painted subpaths to axis-aligned rectangles: re
// primitives, and closed polylines of 4 or 5 segments whose points take
// exactly two distinct X and two distinct Y values.
func Candidates(paths []pdf.Path, tol float64) []pdf.Rect {
	var rects []pdf.Rect
	for _, p := range paths {
		for _, sp := range p.Subpaths {
			if r, ok := resolve(sp, tol); ok {
				rects = append(rects, r)
			}
		}
	}
	return rects
}

// Filter keeps rectangles large enough to be a drawing and narrow enough not
// to be a section border.
func Filter(rects []pdf.Rect, pageWidth, pageHeight float64, opts Options) []pdf.Rect {
	var out []pdf.Rect
	for _, r := range rects {
		if r.Width() < opts.MinFrac*pageWidth || r.Height() < opts.MinFrac*pageHeight {
			continue
		}
		if r.Width() > opts.MaxWidthFrac*pageWidth {
			continue
		}
		out = append(out, r)
	}
	return out
}

func resolve(sp pdf.Subpath, tol float64) (pdf.Rect, bool) {
	if sp.Curved || len(sp.Points) < 4 {
		return pdf.Rect{}, false
	}
	if !sp.FromRect {
		first, last := sp.Points[0], sp.Points[len(sp.Points)-1]
		closed := sp.Closed || (math.Abs(first.X-last.X) <= tol && math.Abs(first.Y-last.Y) <= tol)
		if n := sp.Segments(); !closed || n < 4 || n > 5 {
			return pdf.Rect{}, false
		}
	}

	xs := make([]float64, len(sp.Points))
	ys := make([]float64, len(sp.Points))
	for i, pt := range sp.Points {
		xs[i], ys[i] = pt.X, pt.Y
	}
	if len(distinct(xs, tol)) != 2 || len(distinct(ys, tol)) != 2 {
		return pdf.Rect{}, false
	}

	r := sp.Bounds()
	return r, r.Valid()
}

// distinct clusters values closer than tol and returns one per cluster.
func distinct(values []float64, tol float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	var out []float64
	for _, v := range sorted {
		if len(out) == 0 || v-out[len(out)-1] > tol {
			out = append(out, v)
		}
	}
	return out
}

func smallestContaining(rects []pdf.Rect, p pdf.Point) (pdf.Rect, bool) {
	var best pdf.Rect
	found := false
	for _, r := range rects {
		if !r.Contains(p.X, p.Y) {
			continue
		}
		if !found || r.Area() < best.Area() {
			best, found = r, true
		}
	}
	return best, found
}
