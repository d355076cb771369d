package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pyhub-apps/pdfcatalog-golang/internal/config"
	"github.com/pyhub-apps/pdfcatalog-golang/internal/logging"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/pdf"
)

// app carries the state shared by all commands of one invocation.
type app struct {
	cfgFile string
	jsonOut bool
	verbose bool
	noColor bool

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: logging.Nop()}

	cmd := &cobra.Command{
		Use:   "pdfcatalog",
		Short: "Catalog page geometry: product regions and price rewriting",
		Long: `pdfcatalog crops product illustrations and dimension drawings out of
PDF lighting catalogs and rewrites the prices printed in them.

Page numbers on the command line start at 1.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path")
	cmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print results as JSON")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newPagesCmd(a),
		newRenderCmd(a),
		newRegionsCmd(a),
		newPricesCmd(a),
		newHashCmd(a),
		newSimilarCmd(a),
		newServeCmd(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	a.logger = logging.New(logging.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})

	if a.noColor {
		color.NoColor = true
	}
	return nil
}

func readPDF(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// pageIndexes turns 1-based page numbers into 0-based indexes. No numbers
// selects every page.
func pageIndexes(numbers []int, count int) ([]int, error) {
	if len(numbers) == 0 {
		out := make([]int, count)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	out := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if n < 1 || n > count {
			return nil, pdf.PageRangeError(n-1, count)
		}
		out = append(out, n-1)
	}
	return out, nil
}
