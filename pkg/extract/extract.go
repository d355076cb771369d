// Package extract crops product illustrations and dimension drawings from a
// catalog page. Strategies run in a fixed order (AI, vector, zone) and the
// first one that finds anything wins, so photo catalogs and vector catalogs
// with or without borders all degrade to some result.
package extract

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/boxes"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/locate"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/pdf"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/raster"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/refine"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/split"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/trim"
)

// Kind tells illustrations from dimension drawings
type Kind string

const (
	KindIllustration Kind = "illustration"
	KindDrawing      Kind = "drawing"
)

// Region is one cropped area of the page bitmap.
type Region struct {
	Image    *image.RGBA
	Bounds   image.Rectangle // on the page bitmap
	Position split.Position
	Kind     Kind
	Strategy string
}

// Regions is the result of one extraction. Both lists are empty when no
// strategy found anything.
type Regions struct {
	Illustrations []Region
	Drawings      []Region
	// Strategy names the strategy that produced the result.
	Strategy string
	RunID    string
}

// Empty reports whether neither list has a region
func (r *Regions) Empty() bool {
	return r == nil || len(r.Illustrations)+len(r.Drawings) == 0
}

func (r *Regions) add(region Region) {
	if region.Kind == KindDrawing {
		r.Drawings = append(r.Drawings, region)
	} else {
		r.Illustrations = append(r.Illustrations, region)
	}
}

// PageInput is what a strategy sees of the page.
type PageInput struct {
	Index int
	Image *image.RGBA
	DPI   float64
	// Content is nil when the content streams could not be interpreted.
	Content *pdf.PageContent
	Logger  zerolog.Logger
}

// Strategy finds regions on a rendered page. An error means the strategy
// could not run; finding nothing is an empty result.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, in *PageInput) (*Regions, error)
}

// Options holds every threshold the strategies use
type Options struct {
	DPI          float64
	AITimeout    time.Duration
	BoxPad       int
	Instruction  string
	MinImageSize int
	LeftFrac     float64

	Locate       locate.Options
	Refine       refine.Options
	Split        split.Options
	Illustration trim.Options
	Dimension    trim.Options
}

// DefaultOptions returns the options for bordered catalogs at geometry dpi.
func DefaultOptions() Options {
	return Options{
		DPI:          raster.GeometryDPI,
		AITimeout:    45 * time.Second,
		BoxPad:       10,
		Instruction:  boxes.DefaultInstruction,
		MinImageSize: 80,
		LeftFrac:     0.45,
		Locate:       locate.DefaultOptions(),
		Refine:       refine.DefaultOptions(),
		Split:        split.DefaultOptions(),
		Illustration: trim.IllustrationOptions(),
		Dimension:    trim.DimensionOptions(),
	}
}

// Orchestrator runs the strategies over one page at a time.
type Orchestrator struct {
	renderer   raster.Renderer
	service    boxes.Service
	logger     zerolog.Logger
	opts       Options
	strategies []Strategy
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRenderer replaces the MuPDF renderer
func WithRenderer(r raster.Renderer) Option {
	return func(o *Orchestrator) { o.renderer = r }
}

// WithBoxService enables the AI strategy
func WithBoxService(s boxes.Service) Option {
	return func(o *Orchestrator) { o.service = s }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithOptions replaces the thresholds
func WithOptions(opts Options) Option {
	return func(o *Orchestrator) { o.opts = opts }
}

// New creates an orchestrator. Without a box service the AI strategy is
// skipped.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		renderer: raster.NewFitzRenderer(),
		logger:   zerolog.Nop(),
		opts:     DefaultOptions(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.service != nil {
		o.strategies = append(o.strategies, &AIStrategy{
			Service:     o.service,
			Timeout:     o.opts.AITimeout,
			Pad:         o.opts.BoxPad,
			Instruction: o.opts.Instruction,
		})
	}
	o.strategies = append(o.strategies,
		&VectorStrategy{Locate: o.opts.Locate, Refine: o.opts.Refine, Illustration: o.opts.Illustration},
		&ZoneStrategy{
			Split:        o.opts.Split,
			LeftFrac:     o.opts.LeftFrac,
			Illustration: o.opts.Illustration,
			Dimension:    o.opts.Dimension,
			MinImageSize: o.opts.MinImageSize,
		},
	)
	return o
}

// Strategies returns the strategy names in the order they run
func (o *Orchestrator) Strategies() []string {
	names := make([]string, len(o.strategies))
	for i, s := range o.strategies {
		names[i] = s.Name()
	}
	return names
}

// ExtractRegions crops the illustrations and drawings of page index. Only
// structural failures (unreadable document, bad index, render failure) are
// errors; a page where no strategy finds anything yields empty lists.
func (o *Orchestrator) ExtractRegions(ctx context.Context, data []byte, index int) (*Regions, error) {
	runID := uuid.NewString()
	logger := o.logger.With().Str("run_id", runID).Int("page", index).Logger()

	doc, err := pdf.OpenBytes(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	page, err := doc.Page(index)
	if err != nil {
		return nil, err
	}
	content, err := page.Content()
	if err != nil {
		logger.Warn().Err(err).Msg("content streams unreadable, vector strategies disabled")
		content = nil
	}

	img, err := o.renderer.Render(data, index, o.opts.DPI)
	if err != nil {
		return nil, err
	}

	in := &PageInput{Index: index, Image: img, DPI: o.opts.DPI, Content: content, Logger: logger}
	for _, s := range o.strategies {
		start := time.Now()
		found, err := s.Extract(ctx, in)
		ev := logger.Debug().Str("strategy", s.Name()).Dur("elapsed", time.Since(start))
		if err != nil {
			ev.Err(err).Msg("strategy failed")
			continue
		}
		if found.Empty() {
			ev.Msg("strategy found nothing")
			continue
		}
		ev.Int("illustrations", len(found.Illustrations)).Int("drawings", len(found.Drawings)).Msg("strategy succeeded")
		found.Strategy = s.Name()
		found.RunID = runID
		return found, nil
	}

	logger.Info().Msg("no strategy found regions")
	return &Regions{RunID: runID}, nil
}

// PageCount returns the number of pages of data
func (o *Orchestrator) PageCount(data []byte) (int, error) {
	n, err := o.renderer.PageCount(data)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}

// positions labels n stacked results: a single one covers the page, two are
// top and bottom.
func positions(n int) []split.Position {
	switch n {
	case 0:
		return nil
	case 1:
		return []split.Position{split.PositionFull}
	}
	out := make([]split.Position, n)
	for i := range out {
		out[i] = split.PositionFull
	}
	out[0], out[n-1] = split.PositionTop, split.PositionBottom
	return out
}
