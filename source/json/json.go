// Package json provides the byte-oriented JSON token source used by
// the decode fast path. It scans a []byte directly, validates the
// full JSON grammar (nesting, commas, colons, literals), and reports
// every failure with the exact byte offset.
package json

import (
	"io"
	"unicode/utf16"
	"unicode/utf8"

	eng "github.com/recwire/recwire/internal/engine"
)

type state uint8

const (
	stateValue         state = iota // expecting a value
	stateObjKeyOrEnd                // just after '{'
	stateObjKey                     // after ',' inside an object
	stateObjCommaOrEnd              // after a value inside an object
	stateArrValueOrEnd              // just after '['
	stateArrCommaOrEnd              // after a value inside an array
	stateEnd                        // top-level value complete
)

// Source scans one JSON value from a byte slice. It implements the
// engine token source: structural errors are caught here, so
// consumers only ever see well-ordered tokens.
type Source struct {
	data  []byte
	pos   int
	state state
	stack []byte // '{' and '[' nesting
}

// NewBytes returns a token source reading one JSON value from data.
func NewBytes(data []byte) *Source {
	return &Source{data: data, state: stateValue, stack: make([]byte, 0, 8)}
}

// Location returns the current byte offset into the input.
func (s *Source) Location() int64 { return int64(s.pos) }

// NextToken returns the next token, io.EOF after the top-level value
// has been fully consumed, or an engine syntax error.
func (s *Source) NextToken() (eng.Token, error) {
	for {
		s.skipSpace()
		switch s.state {
		case stateEnd:
			if s.pos >= len(s.data) {
				return eng.Token{}, io.EOF
			}
			return eng.Token{}, eng.Errf(int64(s.pos), "unexpected data after top-level value")
		case stateValue:
			return s.scanValue()
		case stateObjKeyOrEnd:
			if s.pos >= len(s.data) {
				return eng.Token{}, s.errEOF()
			}
			if s.data[s.pos] == '}' {
				return s.closeContainer('}')
			}
			return s.scanKey()
		case stateObjKey:
			return s.scanKey()
		case stateObjCommaOrEnd:
			if s.pos >= len(s.data) {
				return eng.Token{}, s.errEOF()
			}
			switch s.data[s.pos] {
			case ',':
				s.pos++
				s.state = stateObjKey
				continue
			case '}':
				return s.closeContainer('}')
			}
			return eng.Token{}, eng.Errf(int64(s.pos), "expected ',' or '}'")
		case stateArrValueOrEnd:
			if s.pos >= len(s.data) {
				return eng.Token{}, s.errEOF()
			}
			if s.data[s.pos] == ']' {
				return s.closeContainer(']')
			}
			s.state = stateValue
			return s.scanValue()
		case stateArrCommaOrEnd:
			if s.pos >= len(s.data) {
				return eng.Token{}, s.errEOF()
			}
			switch s.data[s.pos] {
			case ',':
				s.pos++
				s.state = stateValue
				continue
			case ']':
				return s.closeContainer(']')
			}
			return eng.Token{}, eng.Errf(int64(s.pos), "expected ',' or ']'")
		}
	}
}

func (s *Source) skipSpace() {
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *Source) errEOF() error {
	return eng.Errf(int64(len(s.data)), "unexpected end of input")
}

// afterValue decides what comes next once a complete value has been
// produced, based on the enclosing container.
func (s *Source) afterValue() {
	if n := len(s.stack); n > 0 {
		if s.stack[n-1] == '{' {
			s.state = stateObjCommaOrEnd
		} else {
			s.state = stateArrCommaOrEnd
		}
		return
	}
	s.state = stateEnd
}

func (s *Source) closeContainer(close byte) (eng.Token, error) {
	off := int64(s.pos)
	s.pos++
	s.stack = s.stack[:len(s.stack)-1]
	s.afterValue()
	if close == '}' {
		return eng.Token{Kind: eng.KindEndObject, Offset: off}, nil
	}
	return eng.Token{Kind: eng.KindEndArray, Offset: off}, nil
}

func (s *Source) scanValue() (eng.Token, error) {
	if s.pos >= len(s.data) {
		return eng.Token{}, s.errEOF()
	}
	off := int64(s.pos)
	switch c := s.data[s.pos]; {
	case c == '{':
		s.pos++
		s.stack = append(s.stack, '{')
		s.state = stateObjKeyOrEnd
		return eng.Token{Kind: eng.KindBeginObject, Offset: off}, nil
	case c == '[':
		s.pos++
		s.stack = append(s.stack, '[')
		s.state = stateArrValueOrEnd
		return eng.Token{Kind: eng.KindBeginArray, Offset: off}, nil
	case c == '"':
		str, err := s.scanString()
		if err != nil {
			return eng.Token{}, err
		}
		s.afterValue()
		return eng.Token{Kind: eng.KindString, String: str, Offset: off}, nil
	case c == 't' || c == 'f':
		b, err := s.scanBool()
		if err != nil {
			return eng.Token{}, err
		}
		s.afterValue()
		return eng.Token{Kind: eng.KindBool, Bool: b, Offset: off}, nil
	case c == 'n':
		if err := s.scanLiteral("null"); err != nil {
			return eng.Token{}, err
		}
		s.afterValue()
		return eng.Token{Kind: eng.KindNull, Offset: off}, nil
	case c == '-' || (c >= '0' && c <= '9'):
		num, err := s.scanNumber()
		if err != nil {
			return eng.Token{}, err
		}
		s.afterValue()
		return eng.Token{Kind: eng.KindNumber, Number: num, Offset: off}, nil
	default:
		return eng.Token{}, eng.Errf(off, "expected value")
	}
}

func (s *Source) scanKey() (eng.Token, error) {
	if s.pos >= len(s.data) {
		return eng.Token{}, s.errEOF()
	}
	off := int64(s.pos)
	if s.data[s.pos] != '"' {
		return eng.Token{}, eng.Errf(off, "expected object key")
	}
	key, err := s.scanString()
	if err != nil {
		return eng.Token{}, err
	}
	s.skipSpace()
	if s.pos >= len(s.data) {
		return eng.Token{}, s.errEOF()
	}
	if s.data[s.pos] != ':' {
		return eng.Token{}, eng.Errf(int64(s.pos), "expected ':'")
	}
	s.pos++
	s.state = stateValue
	return eng.Token{Kind: eng.KindKey, String: key, Offset: off}, nil
}

func (s *Source) scanBool() (bool, error) {
	if s.data[s.pos] == 't' {
		return true, s.scanLiteral("true")
	}
	return false, s.scanLiteral("false")
}

func (s *Source) scanLiteral(lit string) error {
	off := int64(s.pos)
	if len(s.data)-s.pos < len(lit) || string(s.data[s.pos:s.pos+len(lit)]) != lit {
		return eng.Errf(off, "invalid literal")
	}
	s.pos += len(lit)
	return nil
}

// scanString consumes a string token including both quotes. The fast
// path covers strings without escapes; only escaped strings allocate
// a scratch buffer.
func (s *Source) scanString() (string, error) {
	start := s.pos // at opening quote
	s.pos++
	begin := s.pos
	high := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case c == '"':
			raw := s.data[begin:s.pos]
			s.pos++
			if high && !utf8.Valid(raw) {
				return "", eng.Errf(int64(start), "invalid UTF-8 in string literal")
			}
			return string(raw), nil
		case c == '\\':
			return s.scanStringSlow(start, begin)
		case c < 0x20:
			return "", eng.Errf(int64(s.pos), "invalid control character in string literal")
		default:
			if c >= 0x80 {
				high = true
			}
			s.pos++
		}
	}
	return "", s.errEOF()
}

// scanStringSlow resumes at the first backslash and unescapes into a
// scratch buffer.
func (s *Source) scanStringSlow(start, begin int) (string, error) {
	buf := make([]byte, 0, s.pos-begin+16)
	buf = append(buf, s.data[begin:s.pos]...)
	high := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case c == '"':
			s.pos++
			if high && !utf8.Valid(buf) {
				return "", eng.Errf(int64(start), "invalid UTF-8 in string literal")
			}
			return string(buf), nil
		case c == '\\':
			s.pos++
			if s.pos >= len(s.data) {
				return "", s.errEOF()
			}
			esc := s.data[s.pos]
			switch esc {
			case '"', '\\', '/':
				buf = append(buf, esc)
				s.pos++
			case 'b':
				buf = append(buf, '\b')
				s.pos++
			case 'f':
				buf = append(buf, '\f')
				s.pos++
			case 'n':
				buf = append(buf, '\n')
				s.pos++
			case 'r':
				buf = append(buf, '\r')
				s.pos++
			case 't':
				buf = append(buf, '\t')
				s.pos++
			case 'u':
				r, err := s.scanUnicodeEscape()
				if err != nil {
					return "", err
				}
				buf = utf8.AppendRune(buf, r)
			default:
				return "", eng.Errf(int64(s.pos-1), "invalid escape sequence")
			}
		case c < 0x20:
			return "", eng.Errf(int64(s.pos), "invalid control character in string literal")
		default:
			if c >= 0x80 {
				high = true
			}
			buf = append(buf, c)
			s.pos++
		}
	}
	return "", s.errEOF()
}

// scanUnicodeEscape is positioned at the 'u' of a \u escape. Unpaired
// surrogate halves decode to U+FFFD, matching encoding/json.
func (s *Source) scanUnicodeEscape() (rune, error) {
	r1, err := s.scanHex4()
	if err != nil {
		return 0, err
	}
	if !utf16.IsSurrogate(r1) {
		return r1, nil
	}
	// Only consume the next escape if it completes the pair.
	if s.pos+1 < len(s.data) && s.data[s.pos] == '\\' && s.data[s.pos+1] == 'u' {
		save := s.pos
		s.pos += 2
		r2, err := s.scanHex4()
		if err != nil {
			return 0, err
		}
		if r := utf16.DecodeRune(r1, r2); r != utf8.RuneError {
			return r, nil
		}
		s.pos = save
	}
	return utf8.RuneError, nil
}

// scanHex4 is positioned at the 'u' of a \u escape and consumes uXXXX.
func (s *Source) scanHex4() (rune, error) {
	off := int64(s.pos - 1)
	s.pos++ // 'u'
	if s.pos+4 > len(s.data) {
		return 0, s.errEOF()
	}
	var r rune
	for i := 0; i < 4; i++ {
		c := s.data[s.pos+i]
		switch {
		case c >= '0' && c <= '9':
			r = r<<4 | rune(c-'0')
		case c >= 'a' && c <= 'f':
			r = r<<4 | rune(c-'a'+10)
		case c >= 'A' && c <= 'F':
			r = r<<4 | rune(c-'A'+10)
		default:
			return 0, eng.Errf(off, "invalid escape sequence")
		}
	}
	s.pos += 4
	return r, nil
}

// scanNumber validates the JSON number grammar and returns the raw
// literal; classification into int64/float64 happens at the consumer
// against the target type.
func (s *Source) scanNumber() (string, error) {
	off := int64(s.pos)
	start := s.pos
	if s.data[s.pos] == '-' {
		s.pos++
	}
	// integer part
	switch {
	case s.pos < len(s.data) && s.data[s.pos] == '0':
		s.pos++
	case s.pos < len(s.data) && s.data[s.pos] >= '1' && s.data[s.pos] <= '9':
		for s.pos < len(s.data) && isDigit(s.data[s.pos]) {
			s.pos++
		}
	default:
		return "", eng.Errf(off, "invalid number literal")
	}
	// fraction
	if s.pos < len(s.data) && s.data[s.pos] == '.' {
		s.pos++
		if s.pos >= len(s.data) || !isDigit(s.data[s.pos]) {
			return "", eng.Errf(off, "invalid number literal")
		}
		for s.pos < len(s.data) && isDigit(s.data[s.pos]) {
			s.pos++
		}
	}
	// exponent
	if s.pos < len(s.data) && (s.data[s.pos] == 'e' || s.data[s.pos] == 'E') {
		s.pos++
		if s.pos < len(s.data) && (s.data[s.pos] == '+' || s.data[s.pos] == '-') {
			s.pos++
		}
		if s.pos >= len(s.data) || !isDigit(s.data[s.pos]) {
			return "", eng.Errf(off, "invalid number literal")
		}
		for s.pos < len(s.data) && isDigit(s.data[s.pos]) {
			s.pos++
		}
	}
	return string(s.data[start:s.pos]), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
