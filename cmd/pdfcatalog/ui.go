package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// printer writes human summaries, or JSON documents when --json is set.
type printer struct {
	w    io.Writer
	json bool
}

func (a *app) printer(cmd *cobra.Command) *printer {
	return &printer{w: cmd.OutOrStdout(), json: a.jsonOut}
}

func (p *printer) success(format string, args ...interface{}) {
	if p.json {
		return
	}
	color.New(color.FgGreen).Fprintf(p.w, "✓ %s\n", fmt.Sprintf(format, args...))
}

func (p *printer) warn(format string, args ...interface{}) {
	if p.json {
		return
	}
	color.New(color.FgYellow).Fprintf(p.w, "⚠ %s\n", fmt.Sprintf(format, args...))
}

func (p *printer) info(format string, args ...interface{}) {
	if p.json {
		return
	}
	fmt.Fprintf(p.w, "  %s\n", fmt.Sprintf(format, args...))
}

// emit writes v as indented JSON in JSON mode.
func (p *printer) emit(v interface{}) error {
	if !p.json {
		return nil
	}
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newProgress draws a page counter on w. It stays hidden in JSON mode.
func newProgress(w io.Writer, total int, description string, visible bool) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
}
