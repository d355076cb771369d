package prices

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/pdf"
)

// Match is one price token found in a text span.
type Match struct {
	Page  int
	Text  string // token as printed
	Value float64
	// Converted is Value times the multiplier.
	Converted float64
	// Replacement is the full new text of the span holding the token.
	Replacement string
	FontSize    float64
	Color       [3]float64
	BBox        pdf.Rect
}

// edit is the rewrite of one span, carrying every match inside it.
type edit struct {
	span    pdf.Span
	text    string
	matches []Match
}

var (
	numericRun  = regexp.MustCompile(`\d[\d.,]*`)
	labelAmount = regexp.MustCompile(`^(?:\d{3,}|\d{1,3}(?:[.,]\d{3})+)(?:[.,]\d{2})?$`)
)

type matcher struct {
	from, to   string
	multiplier float64
	minPrice   float64
	symbol     bool
	symbolRe   *regexp.Regexp
	labelRe    *regexp.Regexp
	// labelWord matches the label with the blanks before it, for removal
	// from spans whose amounts now carry the new marker.
	labelWord  *regexp.Regexp
	// prefix goes in front of every converted amount.
	prefix     string
}

func newMatcher(from, to string, multiplier, minPrice float64) *matcher {
	m := &matcher{from: from, to: to, multiplier: multiplier, minPrice: minPrice, symbol: IsSymbol(from)}
	if m.symbol {
		m.symbolRe = regexp.MustCompile(regexp.QuoteMeta(from) + `(\s*)(\d[\d.,]*)`)
	} else {
		m.labelRe = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(from) + `\b`)
		m.labelWord = regexp.MustCompile(`(?i)\s*\b` + regexp.QuoteMeta(from) + `\b`)
		m.prefix = to
		if to != "" && !IsSymbol(to) {
			m.prefix = to + " "
		}
	}
	return m
}

// pageApplies reports whether label-mode matching may run on a page with
// this plain text. Symbol mode runs everywhere.
func (m *matcher) pageApplies(text string) bool {
	return m.symbol || strings.Contains(strings.ToLower(text), strings.ToLower(m.from))
}

// span returns the rewrite of s, or false when it holds no accepted price.
func (m *matcher) span(s pdf.Span) (edit, bool) {
	var (
		sb      strings.Builder
		matches []Match
		last    int
	)
	add := func(start, end int, token, replacement string) {
		value, ok := ParseAmount(token)
		if !ok || value < m.minPrice {
			return
		}
		converted := value * m.multiplier
		sb.WriteString(s.Text[last:start])
		sb.WriteString(replacement)
		sb.WriteString(FormatAmount(converted))
		last = end
		matches = append(matches, Match{Text: token, Value: value, Converted: converted})
	}

	if m.symbol {
		for _, loc := range m.symbolRe.FindAllStringSubmatchIndex(s.Text, -1) {
			token := trimAmount(s.Text[loc[4]:loc[5]])
			gap := s.Text[loc[2]:loc[3]]
			add(loc[0], loc[4]+len(token), token, m.to+gap)
		}
	} else {
		for _, loc := range numericRun.FindAllStringIndex(s.Text, -1) {
			token := trimAmount(s.Text[loc[0]:loc[1]])
			end := loc[0] + len(token)
			if !standalone(s.Text, loc[0], end) || measurement(s.Text, loc[0], end) || !labelAmount.MatchString(token) {
				continue
			}
			add(loc[0], end, token, m.prefix)
		}
	}
	if len(matches) == 0 {
		return edit{}, false
	}
	sb.WriteString(s.Text[last:])

	text := sb.String()
	if !m.symbol && m.to != "" {
		text = strings.TrimSpace(m.labelWord.ReplaceAllLiteralString(text, ""))
	}
	e := edit{span: s, text: text}
	r, g, b := pdf.UnpackRGB(s.Color)
	for _, mt := range matches {
		mt.Replacement = e.text
		mt.FontSize = s.Size
		mt.Color = [3]float64{r, g, b}
		mt.BBox = s.BBox
		e.matches = append(e.matches, mt)
	}
	return e, true
}

// header returns the rewrite of a column header span naming the label: the
// label is renamed to the new marker.
func (m *matcher) header(s pdf.Span) (edit, bool) {
	if m.symbol || m.to == "" || !m.labelRe.MatchString(s.Text) {
		return edit{}, false
	}
	return edit{span: s, text: m.labelRe.ReplaceAllLiteralString(s.Text, m.to)}, true
}

// trimAmount drops sentence punctuation trailing a numeric run.
func trimAmount(s string) string {
	return strings.TrimRight(s, ".,")
}

// standalone reports whether text[start:end] is a number on its own rather
// than part of a code like E27, LAMP-120 or 60W.
func standalone(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if joins(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if joins(r) || r == '%' {
			return false
		}
	}
	return true
}

// measurementUnits follow numbers that are dimensions or ratings.
var measurementUnits = []string{"mm", "cm", "m", "w", "kg", "g", "lm", "k", "v", "°"}

// measurement reports whether text[start:end] is a dimension: preceded by a
// diameter marker or followed by a unit.
func measurement(text string, start, end int) bool {
	before := strings.TrimRightFunc(text[:start], unicode.IsSpace)
	if r, _ := utf8.DecodeLastRuneInString(before); r == 'Ø' || r == 'ø' || r == '⌀' {
		return true
	}
	after := strings.ToLower(strings.TrimLeftFunc(text[end:], unicode.IsSpace))
	for _, unit := range measurementUnits {
		if !strings.HasPrefix(after, unit) {
			continue
		}
		next, _ := utf8.DecodeRuneInString(after[len(unit):])
		if next == utf8.RuneError || !unicode.IsLetter(next) {
			return true
		}
	}
	return false
}

func joins(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '/' || r == '_'
}
