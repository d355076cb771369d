package config

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/boxes"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/extract"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/locate"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/prices"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/refine"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/split"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/trim"
)

// LocateOptions returns the locator options of the configured layout with
// explicit settings applied on top.
func (c *Config) LocateOptions() (locate.Options, error) {
	opts, err := locate.ForLayout(locate.Layout(c.Layout))
	if err != nil {
		return opts, err
	}
	if len(c.Locate.Markers) > 0 {
		opts.Markers = c.Locate.Markers
	}
	if c.Locate.MinFrac > 0 {
		opts.MinFrac = c.Locate.MinFrac
	}
	if c.Locate.MaxWidthFrac > 0 {
		opts.MaxWidthFrac = c.Locate.MaxWidthFrac
	}
	if c.Locate.Tolerance > 0 {
		opts.Tolerance = c.Locate.Tolerance
	}
	if c.Locate.MaxResults > 0 {
		opts.MaxResults = c.Locate.MaxResults
	}
	return opts, nil
}

// ExtractOptions converts the configuration into orchestrator options.
func (c *Config) ExtractOptions() (extract.Options, error) {
	loc, err := c.LocateOptions()
	if err != nil {
		return extract.Options{}, err
	}

	opts := extract.DefaultOptions()
	opts.DPI = c.Render.DPI
	opts.AITimeout = c.Boxes.Timeout
	opts.BoxPad = c.Boxes.Pad
	if c.Boxes.Instruction != "" {
		opts.Instruction = c.Boxes.Instruction
	}
	opts.MinImageSize = c.Extract.MinImageSize
	opts.LeftFrac = c.Extract.LeftFrac
	opts.Locate = loc
	opts.Refine = refine.Options{
		DarkThreshold: uint8(c.Refine.DarkThreshold),
		ContentFrac:   c.Refine.ContentFrac,
		MaxGap:        c.Refine.MaxGap,
		MaxGrowth:     c.Refine.MaxGrowth,
		Margin:        c.Refine.Margin,
		Pad:           c.Refine.Pad,
	}
	opts.Split = split.Options{
		StripHeight: c.Split.StripHeight,
		Step:        c.Split.Step,
		BandStart:   c.Split.BandStart,
		BandEnd:     c.Split.BandEnd,
		Brightness:  c.Split.Brightness,
		MinPos:      c.Split.MinPos,
		MaxPos:      c.Split.MaxPos,
	}
	opts.Illustration = c.Trim.Illustration.options()
	opts.Dimension = c.Trim.Dimension.options()
	return opts, nil
}

func (v TrimVariant) options() trim.Options {
	return trim.Options{
		Threshold: uint8(v.Threshold),
		Window:    v.Window,
		EdgeCut:   v.EdgeCut,
		Pad:       v.Pad,
		MinSize:   v.MinSize,
	}
}

// BoxService returns the configured AI box client, or nil when no URL is
// set.
func (c *Config) BoxService(logger zerolog.Logger) (boxes.Service, error) {
	if c.Boxes.URL == "" {
		return nil, nil
	}
	client, err := boxes.NewClient(c.Boxes.URL, c.Boxes.APIKey,
		boxes.WithModels(c.Boxes.Models...),
		boxes.WithRetry(c.Boxes.Retries, c.Boxes.Backoff),
		boxes.WithLogger(logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "box service")
	}
	return client, nil
}

// Orchestrator builds an extraction orchestrator from the configuration.
func (c *Config) Orchestrator(logger zerolog.Logger) (*extract.Orchestrator, error) {
	opts, err := c.ExtractOptions()
	if err != nil {
		return nil, err
	}
	o := []extract.Option{extract.WithOptions(opts), extract.WithLogger(logger)}
	svc, err := c.BoxService(logger)
	if err != nil {
		return nil, err
	}
	if svc != nil {
		o = append(o, extract.WithBoxService(svc))
	}
	return extract.New(o...), nil
}

// Rewriter builds a price rewriter from the configuration.
func (c *Config) Rewriter(logger zerolog.Logger) *prices.Rewriter {
	return prices.NewRewriter(
		prices.WithMinPrice(c.Prices.MinPrice),
		prices.WithFont(c.Prices.Font),
		prices.WithRedactPad(c.Prices.RedactPad),
		prices.WithLogger(logger),
	)
}
