package recwire

import (
	"fmt"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Marshal encodes a value to JSON. Records need no schema argument:
// they carry their binding, and encode as objects with the
// discriminant entry first (for tagged schemas) followed by fields in
// declaration order. Generic mappings encode with sorted keys, so
// equal values produce byte-equal output. Non-finite floats are
// rejected with a *TypeError.
func Marshal(v any) ([]byte, error) {
	return appendValue(nil, v)
}

// An Encoder amortizes buffer allocations across calls. The returned
// slice is reused: it stays valid only until the next Encode.
//
// An Encoder is not safe for concurrent use; give each goroutine its
// own.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode appends nothing to prior results; it resets the internal
// buffer and encodes v into it.
func (e *Encoder) Encode(v any) ([]byte, error) {
	buf, err := appendValue(e.buf[:0], v)
	if err != nil {
		return nil, err
	}
	e.buf = buf
	return buf, nil
}

func appendValue(buf []byte, v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return append(buf, "null"...), nil
	case bool:
		return strconv.AppendBool(buf, x), nil
	case int64:
		return strconv.AppendInt(buf, x, 10), nil
	case int:
		return strconv.AppendInt(buf, int64(x), 10), nil
	case int8:
		return strconv.AppendInt(buf, int64(x), 10), nil
	case int16:
		return strconv.AppendInt(buf, int64(x), 10), nil
	case int32:
		return strconv.AppendInt(buf, int64(x), 10), nil
	case uint:
		return strconv.AppendUint(buf, uint64(x), 10), nil
	case uint8:
		return strconv.AppendUint(buf, uint64(x), 10), nil
	case uint16:
		return strconv.AppendUint(buf, uint64(x), 10), nil
	case uint32:
		return strconv.AppendUint(buf, uint64(x), 10), nil
	case uint64:
		return strconv.AppendUint(buf, x, 10), nil
	case float64:
		return appendFloat(buf, x)
	case float32:
		return appendFloat(buf, float64(x))
	case string:
		return appendString(buf, x), nil
	case []byte:
		buf = append(buf, '"')
		buf = append(buf, formatBytes(x)...)
		return append(buf, '"'), nil
	case time.Time:
		buf = append(buf, '"')
		buf = append(buf, formatTimestamp(x)...)
		return append(buf, '"'), nil
	case uuid.UUID:
		buf = append(buf, '"')
		buf = append(buf, formatUUID(x)...)
		return append(buf, '"'), nil
	case []any:
		return appendSeq(buf, x)
	case map[string]any:
		return appendMap(buf, x)
	case *Record:
		return appendRecord(buf, x)
	default:
		return nil, &TypeError{Expected: "encodable value", Actual: fmt.Sprintf("%T", v)}
	}
}

func appendSeq(buf []byte, xs []any) ([]byte, error) {
	buf = append(buf, '[')
	for i, e := range xs {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		buf, err = appendValue(buf, e)
		if err != nil {
			return nil, pathErr("["+strconv.Itoa(i)+"]", err)
		}
	}
	return append(buf, ']'), nil
}

func appendMap(buf []byte, m map[string]any) ([]byte, error) {
	buf = append(buf, '{')
	for i, k := range sortedKeys(m) {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendString(buf, k)
		buf = append(buf, ':')
		var err error
		buf, err = appendValue(buf, m[k])
		if err != nil {
			return nil, pathErr(k, err)
		}
	}
	return append(buf, '}'), nil
}

func appendRecord(buf []byte, r *Record) ([]byte, error) {
	if r == nil {
		return append(buf, "null"...), nil
	}
	s := r.schema
	buf = append(buf, '{')
	n := 0
	if s.tagged {
		buf = appendString(buf, s.tagField)
		buf = append(buf, ':')
		buf = appendString(buf, s.tagValue)
		n++
	}
	for i := range s.fields {
		if n > 0 {
			buf = append(buf, ',')
		}
		n++
		buf = appendString(buf, s.fields[i].name)
		buf = append(buf, ':')
		var err error
		buf, err = appendValue(buf, r.vals[i])
		if err != nil {
			return nil, pathErr(s.fields[i].name, err)
		}
	}
	return append(buf, '}'), nil
}

// appendFloat matches the conventional JSON rendering: plain decimal
// notation inside [1e-6, 1e21), exponent notation outside.
func appendFloat(buf []byte, f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &TypeError{Expected: "finite number", Actual: strconv.FormatFloat(f, 'g', -1, 64)}
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	return strconv.AppendFloat(buf, f, format, -1, 64), nil
}

// appendString writes a quoted JSON string with minimal escaping:
// quote, backslash and control characters only. HTML-significant
// characters pass through unescaped. Invalid UTF-8 bytes are replaced
// with U+FFFD.
func appendString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	start := 0
	for i := 0; i < len(s); {
		b := s[i]
		if b < utf8.RuneSelf {
			if b >= 0x20 && b != '"' && b != '\\' {
				i++
				continue
			}
			buf = append(buf, s[start:i]...)
			switch b {
			case '"':
				buf = append(buf, '\\', '"')
			case '\\':
				buf = append(buf, '\\', '\\')
			case '\n':
				buf = append(buf, '\\', 'n')
			case '\r':
				buf = append(buf, '\\', 'r')
			case '\t':
				buf = append(buf, '\\', 't')
			default:
				buf = append(buf, '\\', 'u', '0', '0', hexDigits[b>>4], hexDigits[b&0xf])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf = append(buf, s[start:i]...)
			buf = append(buf, "�"...)
			i++
			start = i
			continue
		}
		i += size
	}
	buf = append(buf, s[start:]...)
	return append(buf, '"')
}

const hexDigits = "0123456789abcdef"

// pathErr threads a path segment onto a type error unwinding out of a
// container. Paths are only assembled on the error path.
func pathErr(seg string, err error) error {
	if te, ok := err.(*TypeError); ok {
		te.Path = prefixPath(seg, te.Path)
	}
	return err
}

func prefixPath(seg, rest string) string {
	if rest == "" {
		return seg
	}
	if rest[0] == '[' {
		return seg + rest
	}
	return seg + "." + rest
}
