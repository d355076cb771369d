package pdf

import (
	"bytes"
	"strconv"
)

// TokenType represents the type of a content-stream token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenString
	TokenHexString
	TokenName
	TokenKeyword
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenNumber:
		return "Number"
	case TokenString:
		return "String"
	case TokenHexString:
		return "HexString"
	case TokenName:
		return "Name"
	case TokenKeyword:
		return "Keyword"
	case TokenArrayStart:
		return "ArrayStart"
	case TokenArrayEnd:
		return "ArrayEnd"
	case TokenDictStart:
		return "DictStart"
	case TokenDictEnd:
		return "DictEnd"
	default:
		return "Unknown"
	}
}

// Token is one lexical element of a content stream. Start and End are byte
// offsets into the lexed data, so callers can splice the source.
type Token struct {
	Type   TokenType
	Text   string  // keyword or name (without the slash)
	Bytes  []byte  // decoded string / hex string payload
	Number float64 // numeric value
	Start  int
	End    int
}

// IsOperator reports whether the token is a content-stream operator.
func (t Token) IsOperator() bool {
	if t.Type != TokenKeyword {
		return false
	}
	switch t.Text {
	case "true", "false", "null":
		return false
	}
	return true
}

// Lexer tokenizes content streams and CMap programs held in memory
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer creates a lexer over data
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Pos returns the current byte offset
func (l *Lexer) Pos() int {
	return l.pos
}

// Next returns the next token, or a TokenEOF token at the end of the data.
func (l *Lexer) Next() Token {
	l.skipWhitespaceAndComments()
	if l.pos >= len(l.data) {
		return Token{Type: TokenEOF, Start: l.pos, End: l.pos}
	}

	start := l.pos
	ch := l.data[l.pos]
	switch {
	case ch == '(':
		l.pos++
		tok := Token{Type: TokenString, Bytes: l.readString(), Start: start}
		tok.End = l.pos
		return tok
	case ch == '<':
		if l.peek(1) == '<' {
			l.pos += 2
			return Token{Type: TokenDictStart, Start: start, End: l.pos}
		}
		l.pos++
		tok := Token{Type: TokenHexString, Bytes: l.readHexString(), Start: start}
		tok.End = l.pos
		return tok
	case ch == '>':
		if l.peek(1) == '>' {
			l.pos += 2
			return Token{Type: TokenDictEnd, Start: start, End: l.pos}
		}
		l.pos++
		return l.Next()
	case ch == '[':
		l.pos++
		return Token{Type: TokenArrayStart, Start: start, End: l.pos}
	case ch == ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Start: start, End: l.pos}
	case ch == '{' || ch == '}':
		l.pos++
		return Token{Type: TokenKeyword, Text: string(ch), Start: start, End: l.pos}
	case ch == '/':
		l.pos++
		name := l.readName()
		return Token{Type: TokenName, Text: name, Start: start, End: l.pos}
	case ch == ')':
		// Unbalanced close paren; skip it.
		l.pos++
		return l.Next()
	}

	word := l.readRegular()
	if looksNumeric(word) {
		if f, err := strconv.ParseFloat(word, 64); err == nil {
			return Token{Type: TokenNumber, Text: word, Number: f, Start: start, End: l.pos}
		}
	}
	return Token{Type: TokenKeyword, Text: word, Start: start, End: l.pos}
}

// SkipInlineImage advances past inline image data following an ID operator,
// up to and including the terminating EI.
func (l *Lexer) SkipInlineImage() {
	// A single whitespace byte separates ID from the data.
	if l.pos < len(l.data) && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
	for i := l.pos; i+1 < len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		before := i == 0 || isWhitespace(l.data[i-1])
		after := i+2 >= len(l.data) || isWhitespace(l.data[i+2]) || isDelimiter(l.data[i+2])
		if before && after {
			l.pos = i + 2
			return
		}
	}
	l.pos = len(l.data)
}

func (l *Lexer) peek(offset int) byte {
	if l.pos+offset < len(l.data) {
		return l.data[l.pos+offset]
	}
	return 0
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		if isWhitespace(ch) {
			l.pos++
			continue
		}
		if ch == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// readString reads a literal string body after the opening paren.
func (l *Lexer) readString() []byte {
	var buf bytes.Buffer
	depth := 1
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		l.pos++
		switch ch {
		case '\\':
			if l.pos >= len(l.data) {
				return buf.Bytes()
			}
			esc := l.data[l.pos]
			l.pos++
			switch esc {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
				// line continuation
			default:
				if esc >= '0' && esc <= '7' {
					val := int(esc - '0')
					for i := 0; i < 2 && l.pos < len(l.data); i++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						val = val*8 + int(d-'0')
						l.pos++
					}
					buf.WriteByte(byte(val))
				} else {
					buf.WriteByte(esc)
				}
			}
		case '(':
			depth++
			buf.WriteByte(ch)
		case ')':
			depth--
			if depth == 0 {
				return buf.Bytes()
			}
			buf.WriteByte(ch)
		default:
			buf.WriteByte(ch)
		}
	}
	return buf.Bytes()
}

// readHexString reads a hex string body after the opening angle bracket.
func (l *Lexer) readHexString() []byte {
	var out []byte
	var hi byte
	half := false
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		l.pos++
		if ch == '>' {
			break
		}
		v, ok := hexValue(ch)
		if !ok {
			continue
		}
		if !half {
			hi = v
			half = true
		} else {
			out = append(out, hi<<4|v)
			half = false
		}
	}
	if half {
		out = append(out, hi<<4)
	}
	return out
}

func (l *Lexer) readName() string {
	var buf bytes.Buffer
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		if isWhitespace(ch) || isDelimiter(ch) {
			break
		}
		l.pos++
		if ch == '#' && l.pos+1 < len(l.data) {
			h, ok1 := hexValue(l.data[l.pos])
			lo, ok2 := hexValue(l.data[l.pos+1])
			if ok1 && ok2 {
				buf.WriteByte(h<<4 | lo)
				l.pos += 2
				continue
			}
		}
		buf.WriteByte(ch)
	}
	return buf.String()
}

func (l *Lexer) readRegular() string {
	start := l.pos
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		if isWhitespace(ch) || isDelimiter(ch) {
			break
		}
		l.pos++
	}
	if l.pos == start {
		// A stray delimiter we do not handle; consume it to make progress.
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}

func hexValue(ch byte) (byte, bool) {
	switch {
	case ch >= '0' && ch <= '9':
		return ch - '0', true
	case ch >= 'a' && ch <= 'f':
		return ch - 'a' + 10, true
	case ch >= 'A' && ch <= 'F':
		return ch - 'A' + 10, true
	}
	return 0, false
}

// isWhitespace checks if a byte is PDF whitespace
func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

// isDelimiter checks if a byte is a PDF delimiter
func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' || b == '[' || b == ']' ||
		b == '{' || b == '}' || b == '/' || b == '%'
}
