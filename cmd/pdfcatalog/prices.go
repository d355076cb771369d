package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/prices"
)

type priceChange struct {
	Page        int     `json:"page"`
	Text        string  `json:"text"`
	Value       float64 `json:"value"`
	Converted   float64 `json:"converted"`
	Replacement string  `json:"replacement"`
}

type priceSummary struct {
	Output    string        `json:"output"`
	Rewritten int           `json:"rewritten"`
	Skipped   int           `json:"skipped"`
	Changes   []priceChange `json:"changes"`
}

func newPricesCmd(a *app) *cobra.Command {
	var (
		from       string
		to         string
		multiplier float64
		out        string
	)

	cmd := &cobra.Command{
		Use:   "prices FILE",
		Short: "Multiply the prices of a catalog and write a new PDF",
		Long: `Rewrites every price found after the --from marker. A one or two character
marker (€, $, ¥) is a currency symbol in front of the amount; a longer marker
(RMB, Price) is a column label and pages containing it have their standalone
amounts rewritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readPDF(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "_prices.pdf"
			}

			result, report, err := a.cfg.Rewriter(a.logger).RewriteWithReport(data, from, multiplier, to)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, result, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			summary := summarize(report)
			summary.Output = out

			p := a.printer(cmd)
			if p.json {
				return p.emit(summary)
			}
			for _, c := range summary.Changes {
				p.info("page %d: %q -> %q", c.Page, c.Text, c.Replacement)
			}
			if summary.Skipped > 0 {
				p.warn("%d prices left untouched (form or invisible text)", summary.Skipped)
			}
			if summary.Rewritten == 0 {
				p.warn("no prices matched %q", from)
			}
			p.success("%d prices rewritten to %s", summary.Rewritten, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "currency symbol or price column label to look for")
	cmd.Flags().StringVar(&to, "to", "", "replacement currency (default keeps the marker)")
	cmd.Flags().Float64VarP(&multiplier, "multiplier", "m", 1, "factor applied to every price")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PDF path")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func summarize(report *prices.Report) priceSummary {
	s := priceSummary{Rewritten: report.Total(), Skipped: report.Skipped, Changes: []priceChange{}}
	for _, page := range report.Pages {
		for _, m := range page.Matches {
			s.Changes = append(s.Changes, priceChange{
				Page:        m.Page + 1,
				Text:        m.Text,
				Value:       m.Value,
				Converted:   m.Converted,
				Replacement: m.Replacement,
			})
		}
	}
	return s
}
