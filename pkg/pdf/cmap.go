package pdf

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// ToUnicodeCMap maps character codes of a font to Unicode text
type ToUnicodeCMap struct {
	// Direct character mappings (from beginbfchar sections)
	cidToUnicode map[uint32]string

	// Range mappings (from beginbfrange sections)
	ranges []cmapRange

	// codeLength is the byte width declared by begincodespacerange, 0 if absent
	codeLength int
}

// cmapRange represents a range mapping from beginbfrange
type cmapRange struct {
	startCID     uint32
	endCID       uint32
	startUnicode []uint16 // UTF-16 units of the first destination
	unicodeArray []string // set for the [ ... ] destination form
}

// NewToUnicodeCMap creates an empty CMap
func NewToUnicodeCMap() *ToUnicodeCMap {
	return &ToUnicodeCMap{
		cidToUnicode: make(map[uint32]string),
		ranges:       []cmapRange{},
	}
}

// Parse reads a ToUnicode CMap program. Malformed entries are skipped.
func (cmap *ToUnicodeCMap) Parse(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty cmap")
	}

	lex := NewLexer(data)
	var operands []Token
	for {
		tok := lex.Next()
		if tok.Type == TokenEOF {
			return nil
		}
		if tok.Type != TokenKeyword {
			operands = append(operands, tok)
			continue
		}

		switch tok.Text {
		case "endcodespacerange":
			for _, op := range operands {
				if op.Type == TokenHexString && len(op.Bytes) > cmap.codeLength {
					cmap.codeLength = len(op.Bytes)
				}
			}
		case "endbfchar":
			cmap.addChars(operands)
		case "endbfrange":
			cmap.addRanges(operands)
		}
		operands = operands[:0]
	}
}

func (cmap *ToUnicodeCMap) addChars(operands []Token) {
	for i := 0; i+1 < len(operands); i += 2 {
		src, dst := operands[i], operands[i+1]
		if src.Type != TokenHexString || dst.Type != TokenHexString {
			continue
		}
		cmap.cidToUnicode[codeValue(src.Bytes)] = bytesToUnicode(dst.Bytes)
	}
}

func (cmap *ToUnicodeCMap) addRanges(operands []Token) {
	for i := 0; i+2 < len(operands); {
		lo, hi := operands[i], operands[i+1]
		if lo.Type != TokenHexString || hi.Type != TokenHexString {
			i++
			continue
		}
		r := cmapRange{startCID: codeValue(lo.Bytes), endCID: codeValue(hi.Bytes)}
		dst := operands[i+2]
		switch dst.Type {
		case TokenHexString:
			r.startUnicode = utf16Units(dst.Bytes)
			i += 3
		case TokenArrayStart:
			j := i + 3
			for ; j < len(operands) && operands[j].Type != TokenArrayEnd; j++ {
				if operands[j].Type == TokenHexString {
					r.unicodeArray = append(r.unicodeArray, bytesToUnicode(operands[j].Bytes))
				}
			}
			i = j + 1
		default:
			i += 3
			continue
		}
		if r.endCID >= r.startCID {
			cmap.ranges = append(cmap.ranges, r)
		}
	}
}

// MapCIDToUnicode maps a character code to its Unicode string
func (cmap *ToUnicodeCMap) MapCIDToUnicode(cid uint32) (string, bool) {
	if s, ok := cmap.cidToUnicode[cid]; ok {
		return s, true
	}

	for _, r := range cmap.ranges {
		if cid < r.startCID || cid > r.endCID {
			continue
		}
		offset := cid - r.startCID
		if r.unicodeArray != nil {
			if int(offset) < len(r.unicodeArray) {
				return r.unicodeArray[offset], true
			}
			return "", false
		}
		if len(r.startUnicode) == 0 {
			return "", false
		}
		// The last UTF-16 unit is incremented across the range.
		units := append([]uint16(nil), r.startUnicode...)
		units[len(units)-1] += uint16(offset)
		return string(utf16.Decode(units)), true
	}

	return "", false
}

// CodeLength returns the code width in bytes declared by the CMap, or 0.
func (cmap *ToUnicodeCMap) CodeLength() int {
	return cmap.codeLength
}

// Decode maps raw string bytes using width-byte codes. Unmapped bytes are
// kept as they are.
func (cmap *ToUnicodeCMap) Decode(data []byte, width int) string {
	if width < 1 {
		width = 1
	}
	var sb strings.Builder
	for i := 0; i < len(data); i += width {
		end := i + width
		if end > len(data) {
			end = len(data)
		}
		if s, ok := cmap.MapCIDToUnicode(codeValue(data[i:end])); ok {
			sb.WriteString(s)
			continue
		}
		sb.Write(data[i:end])
	}
	return sb.String()
}

// DecodeHexString decodes a hex string (with or without brackets) as
// 2-byte codes.
func (cmap *ToUnicodeCMap) DecodeHexString(hexStr string) string {
	body := strings.Trim(hexStr, "<>")
	for i := 0; i < len(body); i++ {
		if _, ok := hexValue(body[i]); !ok && !isWhitespace(body[i]) {
			return ""
		}
	}
	tok := NewLexer([]byte("<" + body + ">")).Next()
	return cmap.Decode(tok.Bytes, 2)
}

// GetMappingCount returns the total number of mapped codes
func (cmap *ToUnicodeCMap) GetMappingCount() int {
	count := len(cmap.cidToUnicode)
	for _, r := range cmap.ranges {
		if r.unicodeArray != nil {
			count += len(r.unicodeArray)
		} else {
			count += int(r.endCID - r.startCID + 1)
		}
	}
	return count
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func utf16Units(b []byte) []uint16 {
	if len(b) == 1 {
		return []uint16{uint16(b[0])}
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return units
}

// bytesToUnicode decodes a UTF-16BE destination, dropping a leading BOM.
func bytesToUnicode(b []byte) string {
	units := utf16Units(b)
	if len(units) > 1 && units[0] == 0xFEFF {
		units = units[1:]
	}
	return string(utf16.Decode(units))
}
