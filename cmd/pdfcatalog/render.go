package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/raster"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		page int
		dpi  float64
		out  string
	)

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render one page to a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readPDF(args[0])
			if err != nil {
				return err
			}
			if dpi <= 0 {
				dpi = a.cfg.Render.DPI
			}
			if out == "" {
				out = fmt.Sprintf("%s_p%d.png", strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])), page)
			}

			img, err := raster.NewFitzRenderer().Render(data, page-1, dpi)
			if err != nil {
				return err
			}
			png, err := raster.EncodePNG(img)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			p := a.printer(cmd)
			b := img.Bounds()
			if p.json {
				return p.emit(map[string]interface{}{
					"page": page, "dpi": dpi, "width": b.Dx(), "height": b.Dy(), "path": out,
				})
			}
			p.success("page %d rendered at %.0f dpi (%dx%d) to %s", page, dpi, b.Dx(), b.Dy(), out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	cmd.Flags().Float64Var(&dpi, "dpi", 0, "render resolution (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG path")
	return cmd
}
