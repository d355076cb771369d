// Package prices rewrites price text in place: every matched span is blanked
// in its content stream, covered with white and printed again with the
// converted amount at the same baseline, size and colour.
package prices

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/charmap"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/pdf"
)

// DefaultMinPrice rejects dimensions and weights that look like prices.
const DefaultMinPrice = 10

// PageReport lists the matches rewritten on one page.
type PageReport struct {
	Index   int
	Matches []Match
}

// Report summarises a rewrite
type Report struct {
	Pages []PageReport
	// Skipped counts price spans that could not be rewritten in place
	// (text inside form XObjects, invisible text).
	Skipped int
}

// Total returns the number of rewritten prices
func (r *Report) Total() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Matches)
	}
	return n
}

// Rewriter converts prices in PDF documents.
type Rewriter struct {
	minPrice  float64
	font      string
	redactPad float64
	logger    zerolog.Logger
}

// Option configures a Rewriter
type Option func(*Rewriter)

// WithMinPrice sets the smallest value accepted as a price
func WithMinPrice(v float64) Option {
	return func(r *Rewriter) { r.minPrice = v }
}

// WithFont sets the standard font used for reinserted text
func WithFont(baseFont string) Option {
	return func(r *Rewriter) { r.font = baseFont }
}

// WithRedactPad grows every white cover by pad points
func WithRedactPad(pad float64) Option {
	return func(r *Rewriter) { r.redactPad = pad }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(r *Rewriter) { r.logger = l }
}

// NewRewriter creates a rewriter with Helvetica reinsertion and a minimum
// price of 10.
func NewRewriter(opts ...Option) *Rewriter {
	r := &Rewriter{
		minPrice:  DefaultMinPrice,
		font:      "Helvetica",
		redactPad: 0.5,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rewrite replaces every price marked by from with its value times
// multiplier, marked by to.
func (r *Rewriter) Rewrite(data []byte, from string, multiplier float64, to string) ([]byte, error) {
	out, _, err := r.RewriteWithReport(data, from, multiplier, to)
	return out, err
}

// RewriteWithReport is Rewrite returning what was changed. A document
// without any match is returned as given. The new marker must be printable
// in Windows-1252, the encoding of the standard fonts used for reinsertion.
func (r *Rewriter) RewriteWithReport(data []byte, from string, multiplier float64, to string) ([]byte, *Report, error) {
	if from == "" {
		return nil, nil, errors.New("price marker is empty")
	}
	if _, err := charmap.Windows1252.NewEncoder().String(to); err != nil {
		return nil, nil, fmt.Errorf("price marker %q cannot be printed with the standard fonts", to)
	}

	doc, err := pdf.OpenBytes(data)
	if err != nil {
		return nil, nil, err
	}
	defer doc.Close()

	m := newMatcher(from, to, multiplier, r.minPrice)
	report := &Report{}
	for i := 0; i < doc.PageCount(); i++ {
		page, err := doc.PDFPage(i)
		if err != nil {
			return nil, nil, err
		}
		logger := r.logger.With().Int("page", i).Logger()

		content, err := page.Content()
		if err != nil {
			return nil, nil, err
		}

		if !m.symbol {
			text, err := doc.PlainText(i)
			if err != nil {
				logger.Debug().Err(err).Msg("plain text unavailable")
			}
			if !m.pageApplies(text) && !m.pageApplies(pdf.SpansText(content.Spans)) {
				continue
			}
		}

		var edits []edit
		var matches []Match
		for _, span := range content.Spans {
			e, ok := m.span(span)
			if !ok {
				e, ok = m.header(span)
			}
			if !ok {
				continue
			}
			if span.Hidden || span.Stream < 0 {
				logger.Debug().Str("text", span.Text).Msg("price outside page streams, left unchanged")
				report.Skipped++
				continue
			}
			for _, mt := range e.matches {
				mt.Page = i
				matches = append(matches, mt)
			}
			edits = append(edits, e)
		}
		if len(edits) == 0 {
			continue
		}

		if err := r.applyPage(doc, page, edits); err != nil {
			return nil, nil, pdf.WriteError(fmt.Sprintf("failed to rewrite page %d", i), err)
		}
		logger.Debug().Int("spans", len(edits)).Int("prices", len(matches)).Msg("page rewritten")
		report.Pages = append(report.Pages, PageReport{Index: i, Matches: matches})
	}

	if len(report.Pages) == 0 {
		return data, report, nil
	}

	var buf bytes.Buffer
	if err := api.WriteContext(doc.Context(), &buf); err != nil {
		return nil, nil, pdf.WriteError("failed to write document", err)
	}
	return buf.Bytes(), report, nil
}
