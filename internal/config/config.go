// Package config loads pdfcatalog configuration from YAML, .env files and
// the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/boxes"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/locate"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/prices"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/refine"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/similarity"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/split"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/trim"
)

// Config is the complete configuration.
type Config struct {
	Render     RenderConfig     `yaml:"render"`
	Layout     string           `yaml:"layout"` // bordered or sidecolumn
	Boxes      BoxesConfig      `yaml:"boxes"`
	Trim       TrimConfig       `yaml:"trim"`
	Locate     LocateConfig     `yaml:"locate"`
	Refine     RefineConfig     `yaml:"refine"`
	Split      SplitConfig      `yaml:"split"`
	Extract    ExtractConfig    `yaml:"extract"`
	Prices     PricesConfig     `yaml:"prices"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// RenderConfig holds rasterization settings.
type RenderConfig struct {
	DPI float64 `yaml:"dpi"`
}

// BoxesConfig holds the AI box service settings. An empty URL disables the
// AI strategy.
type BoxesConfig struct {
	// URL is the OpenAI-compatible base URL, the part before
	// /chat/completions.
	URL         string        `yaml:"url"`
	APIKey      string        `yaml:"api_key"`
	Models      []string      `yaml:"models"`
	Timeout     time.Duration `yaml:"timeout"`
	Retries     int           `yaml:"retries"`
	Backoff     time.Duration `yaml:"backoff"`
	Pad         int           `yaml:"pad"`
	Instruction string        `yaml:"instruction"`
}

// TrimConfig holds both trimmer variants.
type TrimConfig struct {
	Illustration TrimVariant `yaml:"illustration"`
	Dimension    TrimVariant `yaml:"dimension"`
}

// TrimVariant mirrors trim.Options.
type TrimVariant struct {
	Threshold int     `yaml:"threshold"`
	Window    float64 `yaml:"window"`
	EdgeCut   float64 `yaml:"edge_cut"`
	Pad       int     `yaml:"pad"`
	MinSize   int     `yaml:"min_size"`
}

// LocateConfig holds vector locator settings. A zero max_width_frac takes
// the value of the layout profile.
type LocateConfig struct {
	Markers      []string `yaml:"markers"`
	MinFrac      float64  `yaml:"min_frac"`
	MaxWidthFrac float64  `yaml:"max_width_frac"`
	Tolerance    float64  `yaml:"tolerance"`
	MaxResults   int      `yaml:"max_results"`
}

// RefineConfig mirrors refine.Options.
type RefineConfig struct {
	DarkThreshold int     `yaml:"dark_threshold"`
	ContentFrac   float64 `yaml:"content_frac"`
	MaxGap        int     `yaml:"max_gap"`
	MaxGrowth     float64 `yaml:"max_growth"`
	Margin        int     `yaml:"margin"`
	Pad           int     `yaml:"pad"`
}

// SplitConfig mirrors split.Options.
type SplitConfig struct {
	StripHeight int     `yaml:"strip_height"`
	Step        int     `yaml:"step"`
	BandStart   float64 `yaml:"band_start"`
	BandEnd     float64 `yaml:"band_end"`
	Brightness  float64 `yaml:"brightness"`
	MinPos      float64 `yaml:"min_pos"`
	MaxPos      float64 `yaml:"max_pos"`
}

// ExtractConfig holds orchestrator settings not owned by a component.
type ExtractConfig struct {
	MinImageSize int     `yaml:"min_image_size"`
	LeftFrac     float64 `yaml:"left_frac"`
}

// PricesConfig holds price rewriting settings.
type PricesConfig struct {
	MinPrice  float64 `yaml:"min_price"`
	Font      string  `yaml:"font"`
	RedactPad float64 `yaml:"redact_pad"`
}

// SimilarityConfig holds image search settings.
type SimilarityConfig struct {
	Threshold int `yaml:"threshold"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// HTTPConfig holds the HTTP surface settings.
type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxUploadMB  int           `yaml:"max_upload_mb"`
}

// Load reads configuration from a YAML file and applies environment
// overrides. Variables from .env in the working directory are loaded first
// and never replace variables already set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config file")
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, errors.Wrap(err, "apply environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	return cfg, nil
}

// DefaultConfig returns the tuned defaults for bordered catalogs.
func DefaultConfig() *Config {
	illustration := trim.IllustrationOptions()
	dimension := trim.DimensionOptions()
	loc := locate.DefaultOptions()
	ref := refine.DefaultOptions()
	spl := split.DefaultOptions()

	return &Config{
		Render: RenderConfig{DPI: 150},
		Layout: string(locate.LayoutBordered),
		Boxes: BoxesConfig{
			Models:  boxes.DefaultModels,
			Timeout: 45 * time.Second,
			Retries: 3,
			Backoff: 15 * time.Second,
			Pad:     10,
		},
		Trim: TrimConfig{
			Illustration: trimVariant(illustration),
			Dimension:    trimVariant(dimension),
		},
		Locate: LocateConfig{
			Markers:    loc.Markers,
			MinFrac:    loc.MinFrac,
			Tolerance:  loc.Tolerance,
			MaxResults: loc.MaxResults,
		},
		Refine: RefineConfig{
			DarkThreshold: int(ref.DarkThreshold),
			ContentFrac:   ref.ContentFrac,
			MaxGap:        ref.MaxGap,
			MaxGrowth:     ref.MaxGrowth,
			Margin:        ref.Margin,
			Pad:           ref.Pad,
		},
		Split: SplitConfig{
			StripHeight: spl.StripHeight,
			Step:        spl.Step,
			BandStart:   spl.BandStart,
			BandEnd:     spl.BandEnd,
			Brightness:  spl.Brightness,
			MinPos:      spl.MinPos,
			MaxPos:      spl.MaxPos,
		},
		Extract: ExtractConfig{
			MinImageSize: 80,
			LeftFrac:     0.45,
		},
		Prices: PricesConfig{
			MinPrice:  prices.DefaultMinPrice,
			Font:      "Helvetica",
			RedactPad: 0.5,
		},
		Similarity: SimilarityConfig{Threshold: similarity.DefaultThreshold},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 120 * time.Second,
			MaxUploadMB:  64,
		},
	}
}

func trimVariant(o trim.Options) TrimVariant {
	return TrimVariant{
		Threshold: int(o.Threshold),
		Window:    o.Window,
		EdgeCut:   o.EdgeCut,
		Pad:       o.Pad,
		MinSize:   o.MinSize,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Render.DPI < 36 || c.Render.DPI > 600 {
		return fmt.Errorf("render dpi must be between 36 and 600, got %v", c.Render.DPI)
	}

	if _, err := locate.ForLayout(locate.Layout(c.Layout)); err != nil {
		return err
	}

	for name, v := range map[string]int{
		"trim.illustration.threshold": c.Trim.Illustration.Threshold,
		"trim.dimension.threshold":    c.Trim.Dimension.Threshold,
		"refine.dark_threshold":       c.Refine.DarkThreshold,
	} {
		if v < 1 || v > 255 {
			return fmt.Errorf("%s must be between 1 and 255, got %d", name, v)
		}
	}

	for name, v := range map[string]float64{
		"locate.max_width_frac":    c.Locate.MaxWidthFrac,
		"trim.illustration.window": c.Trim.Illustration.Window,
		"extract.left_frac":        c.Extract.LeftFrac,
		"refine.content_frac":      c.Refine.ContentFrac,
		"refine.max_growth":        c.Refine.MaxGrowth,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be a fraction, got %v", name, v)
		}
	}

	for name, v := range map[string]int{
		"refine.max_gap": c.Refine.MaxGap,
		"refine.margin":  c.Refine.Margin,
		"refine.pad":     c.Refine.Pad,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, v)
		}
	}

	// A zero strip or step turns two-product detection off silently.
	if c.Split.StripHeight < 1 {
		return fmt.Errorf("split.strip_height must be at least 1, got %d", c.Split.StripHeight)
	}
	if c.Split.Step < 1 {
		return fmt.Errorf("split.step must be at least 1, got %d", c.Split.Step)
	}
	if c.Split.BandStart >= c.Split.BandEnd {
		return fmt.Errorf("split band is empty: %v..%v", c.Split.BandStart, c.Split.BandEnd)
	}

	if c.Boxes.URL != "" && c.Boxes.Timeout <= 0 {
		return fmt.Errorf("boxes timeout must be positive when a box service is configured")
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PDFCATALOG_DPI"); v != "" {
		dpi, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "PDFCATALOG_DPI %q", v)
		}
		cfg.Render.DPI = dpi
	}

	if v := os.Getenv("PDFCATALOG_LAYOUT"); v != "" {
		cfg.Layout = v
	}

	if v := os.Getenv("BOXES_API_URL"); v != "" {
		cfg.Boxes.URL = v
	}

	if v := os.Getenv("BOXES_API_KEY"); v != "" {
		cfg.Boxes.APIKey = v
	}

	if v := os.Getenv("BOXES_MODELS"); v != "" {
		var models []string
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		cfg.Boxes.Models = models
	}

	if v := os.Getenv("BOXES_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "BOXES_TIMEOUT %q", v)
		}
		cfg.Boxes.Timeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}

	return nil
}
