package extract

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/boxes"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/locate"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/raster"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/refine"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/split"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/trim"
)

// Strategy names
const (
	StrategyAI     = "ai"
	StrategyVector = "vector"
	StrategyZone   = "zone"
)

// AIStrategy asks an external box service for regions.
type AIStrategy struct {
	Service     boxes.Service
	Timeout     time.Duration
	Pad         int
	Instruction string
}

func (s *AIStrategy) Name() string { return StrategyAI }

// Extract calls the service under Timeout. Boxes outside the 0-100 range
// or with inverted corners are dropped one by one.
func (s *AIStrategy) Extract(ctx context.Context, in *PageInput) (*Regions, error) {
	out := &Regions{}
	if s.Service == nil {
		return out, nil
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	found, err := s.Service.Boxes(ctx, in.Image, s.Instruction)
	if err != nil {
		return nil, fmt.Errorf("box service: %w", err)
	}

	bounds := in.Image.Bounds()
	for i, b := range found {
		if !b.Valid() {
			in.Logger.Debug().Int("box", i).Interface("value", b).Msg("dropping invalid box")
			continue
		}
		r := b.ToPixels(bounds, s.Pad)
		crop := raster.Crop(in.Image, r)
		if crop == nil {
			continue
		}
		kind := KindIllustration
		if b.IsDrawing() {
			kind = KindDrawing
		}
		out.add(Region{Image: crop, Bounds: r, Position: split.PositionFull, Kind: kind, Strategy: StrategyAI})
	}
	return out, nil
}

// VectorStrategy crops bordered drawing boxes found in the content streams
// and, beside each one, the product picture.
type VectorStrategy struct {
	Locate       locate.Options
	Refine       refine.Options
	Illustration trim.Options
}

func (s *VectorStrategy) Name() string { return StrategyVector }

// Extract turns every located box into a drawing, extended upward over
// content belonging to it. The wider horizontal side of the page over the
// same vertical band is trimmed as that product's illustration.
func (s *VectorStrategy) Extract(_ context.Context, in *PageInput) (*Regions, error) {
	out := &Regions{}
	if in.Content == nil {
		return out, nil
	}

	rects := locate.Locate(in.Content, s.Locate)
	pos := positions(len(rects))
	bounds := in.Image.Bounds()
	for i, rect := range rects {
		px := raster.ToPixels(rect, in.DPI).Intersect(bounds)
		if px.Empty() {
			continue
		}
		px = refine.Extend(in.Image, px, s.Refine)
		crop := raster.Crop(in.Image, px)
		if crop == nil {
			continue
		}
		out.add(Region{Image: crop, Bounds: px, Position: pos[i], Kind: KindDrawing, Strategy: StrategyVector})

		left := image.Rect(bounds.Min.X, px.Min.Y, px.Min.X, px.Max.Y)
		right := image.Rect(px.Max.X, px.Min.Y, bounds.Max.X, px.Max.Y)
		side := left
		if right.Dx() > left.Dx() {
			side = right
		}
		if side.Empty() {
			continue
		}
		if r, ok := trim.Illustration(in.Image.SubImage(side), s.Illustration); ok {
			out.add(Region{
				Image:    raster.Crop(in.Image, r),
				Bounds:   r,
				Position: pos[i],
				Kind:     KindIllustration,
				Strategy: StrategyVector,
			})
		}
	}
	return out, nil
}

// ZoneStrategy assumes the common catalog layout: picture on the left,
// drawing on the right, one or two products stacked.
type ZoneStrategy struct {
	Split        split.Options
	LeftFrac     float64
	Illustration trim.Options
	Dimension    trim.Options
	// MinImageSize skips placed images whose intrinsic width or height is
	// not above it (logos, icons, bullets).
	MinImageSize int
}

func (s *ZoneStrategy) Name() string { return StrategyZone }

// Extract splits the page into sections. A section's illustrations are the
// raster images placed in it; without any, its left zone is trimmed
// instead. The zone right of the cut, and right of every placed image, is
// trimmed as the drawing.
func (s *ZoneStrategy) Extract(_ context.Context, in *PageInput) (*Regions, error) {
	out := &Regions{}
	placed := s.placements(in)
	res := split.Split(in.Image, s.Split)
	for _, sec := range res.Sections {
		b := sec.Bounds
		cut := b.Min.X + int(float64(b.Dx())*s.LeftFrac)

		var pictures []image.Rectangle
		for _, r := range placed {
			if c := center(r); c.In(b) {
				pictures = append(pictures, r)
				cut = max(cut, r.Max.X)
			}
		}

		for _, r := range pictures {
			out.add(Region{Image: raster.Crop(in.Image, r), Bounds: r, Position: sec.Position, Kind: KindIllustration, Strategy: StrategyZone})
		}
		if len(pictures) == 0 {
			left := image.Rect(b.Min.X, b.Min.Y, cut, b.Max.Y)
			if r, ok := trim.Illustration(in.Image.SubImage(left), s.Illustration); ok {
				out.add(Region{Image: raster.Crop(in.Image, r), Bounds: r, Position: sec.Position, Kind: KindIllustration, Strategy: StrategyZone})
			}
		}

		right := image.Rect(cut, b.Min.Y, b.Max.X, b.Max.Y)
		if right.Empty() {
			continue
		}
		if r, ok := trim.Dimension(in.Image.SubImage(right), s.Dimension); ok {
			out.add(Region{Image: raster.Crop(in.Image, r), Bounds: r, Position: sec.Position, Kind: KindDrawing, Strategy: StrategyZone})
		}
	}
	return out, nil
}

// placements returns the pixel bounds of raster images drawn on the page.
// An XObject painted more than once counts at its first placement only.
func (s *ZoneStrategy) placements(in *PageInput) []image.Rectangle {
	if in.Content == nil {
		return nil
	}
	var out []image.Rectangle
	seen := make(map[string]bool)
	bounds := in.Image.Bounds()
	for _, im := range in.Content.Images {
		if im.Width <= s.MinImageSize || im.Height <= s.MinImageSize {
			continue
		}
		if im.Name != "" {
			if seen[im.Name] {
				continue
			}
			seen[im.Name] = true
		}
		if r := raster.ToPixels(im.BBox, in.DPI).Intersect(bounds); !r.Empty() {
			out = append(out, r)
		}
	}
	return out
}

func center(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}
