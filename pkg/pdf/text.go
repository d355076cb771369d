package pdf

import (
	"bytes"
	"fmt"
	"strings"

	dpdf "github.com/dslipak/pdf"
	lpdf "github.com/ledongthuc/pdf"
)

// PlainText returns the text of the page at index. It tries the ledongthuc
// reader first, then dslipak, then joins the interpreter's own spans. Both
// external readers panic on some malformed content, so each attempt runs
// under recover.
func (d *PDFDocument) PlainText(index int) (string, error) {
	if d.ctx == nil {
		return "", OpenError("document is closed", nil)
	}
	if index < 0 || index >= d.ctx.PageCount {
		return "", PageRangeError(index, d.ctx.PageCount)
	}

	if text, err := ledongthucText(d.data, index); err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if text, err := dslipakText(d.data, index); err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}

	page, err := d.Page(index)
	if err != nil {
		return "", err
	}
	content, err := page.Content()
	if err != nil {
		return "", err
	}
	return SpansText(content.Spans), nil
}

// SpansText joins span texts, one span per line.
func SpansText(spans []Span) string {
	var sb strings.Builder
	for i, s := range spans {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}

func ledongthucText(data []byte, index int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ledongthuc reader panicked: %v", r)
		}
	}()

	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF with ledongthuc: %w", err)
	}
	if index >= r.NumPage() {
		return "", PageRangeError(index, r.NumPage())
	}
	page := r.Page(index + 1)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d not found", index)
	}
	return page.GetPlainText(nil)
}

func dslipakText(data []byte, index int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dslipak reader panicked: %v", r)
		}
	}()

	r, err := dpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF with dslipak: %w", err)
	}
	if index >= r.NumPage() {
		return "", PageRangeError(index, r.NumPage())
	}
	page := r.Page(index + 1)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d not found", index)
	}

	var sb strings.Builder
	for _, t := range page.Content().Text {
		sb.WriteString(t.S)
	}
	return sb.String(), nil
}
