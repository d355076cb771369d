// Package boxes is the contract for external bounding-box services and an
// OpenAI-compatible vision client implementing it.
package boxes

import (
	"context"
	"image"
	"math"
	"sync"
)

// Labels a service may attach to a box.
const (
	LabelIllustration = "illustration"
	LabelDrawing      = "drawing"
)

// DefaultInstruction asks a vision model for illustration and drawing boxes.
const DefaultInstruction = `This is one page of a lighting product catalog.
Find every product illustration (photo or rendering of the fixture) and every dimension drawing (line art with measurement arrows and labels).
Return ONLY a JSON array. Each element: {"label": "illustration" or "drawing", "x0": left, "y0": top, "x1": right, "y1": bottom}, coordinates as percentages (0-100) of page width and height.
Return [] when the page has neither.`

// Box is a region in percentage coordinates (0-100) of the image it was
// detected on.
type Box struct {
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	Label string  `json:"label,omitempty"`
}

// Valid reports whether 0 <= x0 < x1 <= 100 and 0 <= y0 < y1 <= 100.
func (b Box) Valid() bool {
	for _, v := range []float64{b.X0, b.Y0, b.X1, b.Y1} {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return false
		}
	}
	return b.X0 < b.X1 && b.Y0 < b.Y1
}

// IsDrawing reports whether the service labelled the box a dimension drawing.
func (b Box) IsDrawing() bool {
	return b.Label == LabelDrawing
}

// ToPixels maps the box onto bounds and grows it by pad pixels, clipped to
// bounds.
func (b Box) ToPixels(bounds image.Rectangle, pad int) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	r := image.Rect(
		bounds.Min.X+int(math.Floor(b.X0/100*w))-pad,
		bounds.Min.Y+int(math.Floor(b.Y0/100*h))-pad,
		bounds.Min.X+int(math.Ceil(b.X1/100*w))+pad,
		bounds.Min.Y+int(math.Ceil(b.Y1/100*h))+pad,
	)
	return r.Intersect(bounds)
}

// Service detects boxes on an image.
type Service interface {
	Boxes(ctx context.Context, img image.Image, instruction string) ([]Box, error)
}

// Preference remembers the model that last answered, so later calls within
// the same run try it first. It is carried in a context rather than held
// globally.
type Preference struct {
	mu    sync.Mutex
	model string
}

// NewPreference returns an empty preference
func NewPreference() *Preference {
	return &Preference{}
}

// Model returns the preferred model, or "".
func (p *Preference) Model() string {
	if p == nil {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.model
}

// Set records model as preferred
func (p *Preference) Set(model string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.model = model
	p.mu.Unlock()
}

type preferenceKey struct{}

// WithPreference attaches p to ctx.
func WithPreference(ctx context.Context, p *Preference) context.Context {
	return context.WithValue(ctx, preferenceKey{}, p)
}

// PreferenceFrom returns the preference attached to ctx, or nil.
func PreferenceFrom(ctx context.Context) *Preference {
	p, _ := ctx.Value(preferenceKey{}).(*Preference)
	return p
}
