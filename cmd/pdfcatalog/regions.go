package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/boxes"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/extract"
	"github.com/pyhub-apps/pdfcatalog-golang/pkg/raster"
)

type regionFile struct {
	Kind     string `json:"kind"`
	Position string `json:"position"`
	Bounds   [4]int `json:"bounds"`
	Path     string `json:"path"`
}

type pageRegions struct {
	Page     int          `json:"page"`
	Strategy string       `json:"strategy"`
	RunID    string       `json:"run_id"`
	Regions  []regionFile `json:"regions"`
}

func newRegionsCmd(a *app) *cobra.Command {
	var (
		pages  []int
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "regions FILE",
		Short: "Crop illustrations and dimension drawings to PNG files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readPDF(args[0])
			if err != nil {
				return err
			}
			orch, err := a.cfg.Orchestrator(a.logger)
			if err != nil {
				return err
			}
			count, err := orch.PageCount(data)
			if err != nil {
				return err
			}
			indexes, err := pageIndexes(pages, count)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", outDir, err)
			}

			// The model that answered for one page is asked first for the next.
			ctx := boxes.WithPreference(cmd.Context(), boxes.NewPreference())

			p := a.printer(cmd)
			bar := newProgress(cmd.ErrOrStderr(), len(indexes), "regions", !a.jsonOut)
			var results []pageRegions
			for _, index := range indexes {
				found, err := orch.ExtractRegions(ctx, data, index)
				if err != nil {
					return err
				}
				result, err := writeRegions(outDir, index, found)
				if err != nil {
					return err
				}
				results = append(results, result)
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			if p.json {
				return p.emit(results)
			}
			total := 0
			for _, r := range results {
				if len(r.Regions) == 0 {
					p.warn("page %d: nothing found", r.Page)
					continue
				}
				total += len(r.Regions)
				p.info("page %d: %d regions via %s", r.Page, len(r.Regions), r.Strategy)
			}
			p.success("%d regions from %d pages written to %s", total, len(results), outDir)
			return nil
		},
	}

	cmd.Flags().IntSliceVarP(&pages, "page", "p", nil, "page numbers (default all)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "regions", "output directory")
	return cmd
}

// writeRegions saves every region of one page as
// p<page>_<kind>_<position>_<n>.png.
func writeRegions(dir string, index int, found *extract.Regions) (pageRegions, error) {
	result := pageRegions{Page: index + 1, Strategy: found.Strategy, RunID: found.RunID}
	for _, list := range [][]extract.Region{found.Illustrations, found.Drawings} {
		for i, r := range list {
			data, err := raster.EncodePNG(r.Image)
			if err != nil {
				return result, err
			}
			name := fmt.Sprintf("p%d_%s_%s_%d.png", index+1, r.Kind, r.Position, i+1)
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return result, fmt.Errorf("write %s: %w", path, err)
			}
			result.Regions = append(result.Regions, regionFile{
				Kind:     string(r.Kind),
				Position: string(r.Position),
				Bounds:   [4]int{r.Bounds.Min.X, r.Bounds.Min.Y, r.Bounds.Max.X, r.Bounds.Max.Y},
				Path:     path,
			})
		}
	}
	return result, nil
}
