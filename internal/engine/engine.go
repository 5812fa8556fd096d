package engine

import (
	"fmt"
	"strconv"
)

// Kind represents token kinds from a generic source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindBeginObject:
		return "'{'"
	case KindEndObject:
		return "'}'"
	case KindBeginArray:
		return "'['"
	case KindEndArray:
		return "']'"
	case KindKey:
		return "object key"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindNull:
		return "null"
	}
	return "unknown token"
}

// Token is one streaming token with the byte offset of its first
// character in the input, or -1 when the source cannot report offsets.
type Token struct {
	Kind   Kind
	String string
	Number string
	Bool   bool
	Offset int64
}

// TokenSource is the minimal interface decode layers consume. Sources
// are responsible for structural validity: by the time tokens come out
// of a source, commas, colons and nesting have already been checked.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64
}

// SyntaxError reports malformed input at a byte offset. Offset is -1
// when the source cannot track positions.
type SyntaxError struct {
	Offset int64
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e.Offset < 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s at offset %d", e.Msg, e.Offset)
}

// Errf builds a SyntaxError at the given offset.
func Errf(offset int64, format string, args ...any) *SyntaxError {
	return &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// DecodeAny builds a generic value tree from the token source:
// objects become map[string]any, arrays []any, numbers int64 when the
// literal has no fraction or exponent (falling back to float64 on
// overflow), float64 otherwise.
func DecodeAny(src TokenSource) (any, error) {
	tok, err := src.NextToken()
	if err != nil {
		return nil, err
	}
	return DecodeValue(src, tok)
}

// DecodeValue builds a generic value from tok, consuming any nested
// tokens from src.
func DecodeValue(src TokenSource, tok Token) (any, error) {
	switch tok.Kind {
	case KindBeginObject:
		return decodeObject(src)
	case KindBeginArray:
		return decodeArray(src)
	case KindString:
		return tok.String, nil
	case KindNumber:
		v, err := ParseNumber(tok.Number)
		if err != nil {
			return nil, Errf(tok.Offset, "number %q out of range", tok.Number)
		}
		return v, nil
	case KindBool:
		return tok.Bool, nil
	case KindNull:
		return nil, nil
	default:
		return nil, Errf(tok.Offset, "unexpected %s", tok.Kind)
	}
}

// SkipValue consumes and discards the value starting at tok, including
// any nested tokens.
func SkipValue(src TokenSource, tok Token) error {
	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		depth := 1
		for depth > 0 {
			t, err := src.NextToken()
			if err != nil {
				return err
			}
			switch t.Kind {
			case KindBeginObject, KindBeginArray:
				depth++
			case KindEndObject, KindEndArray:
				depth--
			}
		}
		return nil
	case KindString, KindNumber, KindBool, KindNull:
		return nil
	default:
		return Errf(tok.Offset, "unexpected %s", tok.Kind)
	}
}

// ParseNumber classifies a JSON number literal: int64 when integral,
// float64 when the literal carries a fraction or exponent or does not
// fit in int64.
func ParseNumber(lit string) (any, error) {
	if IsIntegerLiteral(lit) {
		if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return n, nil
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// IsIntegerLiteral reports whether the JSON number literal has no
// fraction or exponent part.
func IsIntegerLiteral(lit string) bool {
	for i := 0; i < len(lit); i++ {
		switch lit[i] {
		case '.', 'e', 'E':
			return false
		}
	}
	return true
}

func decodeObject(src TokenSource) (any, error) {
	m := make(map[string]any)
	for {
		tok, err := src.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndObject {
			return m, nil
		}
		if tok.Kind != KindKey {
			return nil, Errf(tok.Offset, "expected object key, got %s", tok.Kind)
		}
		vt, err := src.NextToken()
		if err != nil {
			return nil, err
		}
		v, err := DecodeValue(src, vt)
		if err != nil {
			return nil, err
		}
		m[tok.String] = v
	}
}

func decodeArray(src TokenSource) (any, error) {
	arr := []any{}
	for {
		tok, err := src.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndArray {
			return arr, nil
		}
		v, err := DecodeValue(src, tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
}
