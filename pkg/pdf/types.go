package pdf

import "math"

// Rect is an axis-aligned box. Rects produced by this package live in
// top-left page space: X grows to the right, Y grows downward, unit = points.
type Rect struct {
	X0 float64 // Left
	Y0 float64 // Top
	X1 float64 // Right
	Y1 float64 // Bottom
}

// NewRect returns the normalized rect spanning the two corners.
func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{
		X0: math.Min(x0, x1),
		Y0: math.Min(y0, y1),
		X1: math.Max(x0, x1),
		Y1: math.Max(y0, y1),
	}
}

// Width returns the width of the rect
func (r Rect) Width() float64 {
	return r.X1 - r.X0
}

// Height returns the height of the rect
func (r Rect) Height() float64 {
	return r.Y1 - r.Y0
}

// Area returns width * height
func (r Rect) Area() float64 {
	return r.Width() * r.Height()
}

// Valid reports whether the rect is non-degenerate (x0 < x1, y0 < y1).
func (r Rect) Valid() bool {
	return r.X0 < r.X1 && r.Y0 < r.Y1
}

// Contains checks if a point is within the rect
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Intersects checks if two rects overlap
func (r Rect) Intersects(other Rect) bool {
	return !(r.X1 < other.X0 || r.X0 > other.X1 || r.Y1 < other.Y0 || r.Y0 > other.Y1)
}

// Center returns the centroid of the rect
func (r Rect) Center() Point {
	return Point{X: (r.X0 + r.X1) / 2, Y: (r.Y0 + r.Y1) / 2}
}

// Union returns the smallest rect containing both r and other.
func (r Rect) Union(other Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, other.X0),
		Y0: math.Min(r.Y0, other.Y0),
		X1: math.Max(r.X1, other.X1),
		Y1: math.Max(r.Y1, other.Y1),
	}
}

// Scale multiplies every coordinate by s. Used to move between document
// space and pixel space (s = dpi / 72).
func (r Rect) Scale(s float64) Rect {
	return Rect{X0: r.X0 * s, Y0: r.Y0 * s, X1: r.X1 * s, Y1: r.Y1 * s}
}

// Point is a 2D point
type Point struct {
	X, Y float64
}

// Matrix is a PDF transformation matrix [a b c d e f].
type Matrix struct {
	A, B, C, D, E, F float64
}

// IdentityMatrix returns the identity transform
func IdentityMatrix() Matrix {
	return Matrix{A: 1, D: 1}
}

// TranslationMatrix returns a pure translation
func TranslationMatrix(tx, ty float64) Matrix {
	return Matrix{A: 1, D: 1, E: tx, F: ty}
}

// MultiplyMatrix returns m1 x m2 (apply m1 first, then m2).
func MultiplyMatrix(m1, m2 Matrix) Matrix {
	return Matrix{
		A: m1.A*m2.A + m1.B*m2.C,
		B: m1.A*m2.B + m1.B*m2.D,
		C: m1.C*m2.A + m1.D*m2.C,
		D: m1.C*m2.B + m1.D*m2.D,
		E: m1.E*m2.A + m1.F*m2.C + m2.E,
		F: m1.E*m2.B + m1.F*m2.D + m2.F,
	}
}

// Apply transforms the point (x, y)
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// Subpath is one connected run of a path in top-left page space.
type Subpath struct {
	Points   []Point
	Closed   bool
	FromRect bool // produced by the re operator
	Curved   bool // contains at least one Bezier segment
}

// Segments returns the number of straight segments, counting the implicit
// closing segment of a closed subpath.
func (s Subpath) Segments() int {
	if len(s.Points) < 2 {
		return 0
	}
	n := len(s.Points) - 1
	if s.Closed {
		first, last := s.Points[0], s.Points[len(s.Points)-1]
		if first != last {
			n++
		}
	}
	return n
}

// Bounds returns the bounding rect of the subpath points.
func (s Subpath) Bounds() Rect {
	if len(s.Points) == 0 {
		return Rect{}
	}
	r := Rect{X0: s.Points[0].X, Y0: s.Points[0].Y, X1: s.Points[0].X, Y1: s.Points[0].Y}
	for _, p := range s.Points[1:] {
		r = r.Union(Rect{X0: p.X, Y0: p.Y, X1: p.X, Y1: p.Y})
	}
	return r
}

// Path is a painted path: the subpaths between construction and a painting
// operator. Paths ended with n (clipping only) are not recorded.
type Path struct {
	Subpaths []Subpath
	Stroked  bool
	Filled   bool
}

// Span is the text shown by one text-showing operator.
type Span struct {
	Text     string
	Font     string  // font resource name
	FontSize float64 // Tf operand
	Size     float64 // effective size after text matrix and CTM
	Scale    float64 // horizontal scaling, Tz / 100
	Color    uint32  // packed 0xRRGGBB fill colour
	BBox     Rect    // top-left page space

	// Origin is the baseline start in PDF user space (bottom-left origin).
	Origin Point

	// Advance is the horizontal pen displacement in unscaled text space
	// units (glyph widths * FontSize + Tc + Tw + TJ adjustments).
	Advance float64

	// Hidden is set for invisible text (render mode 3 or 7).
	Hidden bool

	// Op is the operator that showed the text: Tj, TJ, ' or ".
	Op string
	// Stream is the index of the page content stream holding the operator,
	// or -1 when the text came from a form XObject.
	Stream int
	// Start and End delimit the operands and operator inside the stream.
	Start, End int
	// WordSpace and CharSpace are the operands of a " operator.
	WordSpace, CharSpace float64
}

// ImagePlacement is an image XObject (or inline image) painted on the page.
type ImagePlacement struct {
	Name   string
	Width  int // intrinsic pixel width
	Height int // intrinsic pixel height
	BBox   Rect
}

// PageContent is everything the content-stream interpreter recovered from a
// page.
type PageContent struct {
	Width  float64
	Height float64
	Paths  []Path
	Spans  []Span
	Images []ImagePlacement
}

// PackRGB packs 0..1 float components into 0xRRGGBB.
func PackRGB(r, g, b float64) uint32 {
	return uint32(clampUnit(r)*255+0.5)<<16 | uint32(clampUnit(g)*255+0.5)<<8 | uint32(clampUnit(b)*255+0.5)
}

// UnpackRGB splits a packed colour into 0..1 float components:
// red = bits 16-23, green = bits 8-15, blue = bits 0-7.
func UnpackRGB(c uint32) (r, g, b float64) {
	return float64(c>>16&255) / 255, float64(c>>8&255) / 255, float64(c&255) / 255
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
