package prices

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Amount shapes, tried in order.
var (
	// 1.234,50 and 1.234
	dotThousands = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+(?:,\d+)?$`)
	// 14469,00
	commaDecimal = regexp.MustCompile(`^\d+,\d{1,2}$`)
	// 1234.50 and 1234
	plainDecimal = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

// ParseAmount reads a price written in any of the common catalog
// conventions. Spaces are ignored; anything that still does not parse after
// stripping commas is rejected.
func ParseAmount(s string) (float64, bool) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}

	switch {
	case dotThousands.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case commaDecimal.MatchString(s):
		s = strings.Replace(s, ",", ".", 1)
	case plainDecimal.MatchString(s):
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatAmount writes v with English thousands grouping and two decimals.
func FormatAmount(v float64) string {
	return message.NewPrinter(language.English).Sprintf("%.2f", v)
}

// IsSymbol reports whether marker is matched as a currency symbol (short and
// without letters) rather than as a column label.
func IsSymbol(marker string) bool {
	if n := len([]rune(marker)); n == 0 || n > 2 {
		return false
	}
	for _, r := range marker {
		if unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
