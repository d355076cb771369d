package main

import (
	"github.com/spf13/cobra"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/pdf"
)

type pageInfo struct {
	Page   int     `json:"page"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Images int     `json:"images"`
	Paths  int     `json:"paths"`
	Spans  int     `json:"spans"`
}

func newPagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pages FILE",
		Short: "List the pages of a PDF with their size and content counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readPDF(args[0])
			if err != nil {
				return err
			}
			doc, err := pdf.OpenBytes(data)
			if err != nil {
				return err
			}
			defer doc.Close()

			var pages []pageInfo
			for i := 0; i < doc.PageCount(); i++ {
				page, err := doc.Page(i)
				if err != nil {
					return err
				}
				info := pageInfo{Page: i + 1, Width: page.Width(), Height: page.Height()}
				if content, err := page.Content(); err == nil {
					info.Images = len(content.Images)
					info.Paths = len(content.Paths)
					info.Spans = len(content.Spans)
				} else {
					a.logger.Warn().Err(err).Int("page", i+1).Msg("content streams unreadable")
				}
				pages = append(pages, info)
			}

			p := a.printer(cmd)
			if p.json {
				return p.emit(pages)
			}
			p.success("%s: %d pages", args[0], len(pages))
			for _, info := range pages {
				p.info("page %d  %.0f x %.0f pt  images=%d paths=%d spans=%d",
					info.Page, info.Width, info.Height, info.Images, info.Paths, info.Spans)
			}
			return nil
		},
	}
}
