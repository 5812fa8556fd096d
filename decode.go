package recwire

import (
	"fmt"
	"io"
	"strconv"

	eng "github.com/recwire/recwire/internal/engine"
	srcgojson "github.com/recwire/recwire/source/gojson"
	srcjson "github.com/recwire/recwire/source/json"
)

// Unmarshal parses JSON into the generic value vocabulary: nil, bool,
// int64, float64, string, []any and map[string]any. Integer literals
// stay integers. Trailing data after the top-level value is an error.
func Unmarshal(data []byte) (any, error) {
	src := srcjson.NewBytes(data)
	v, err := eng.DecodeAny(src)
	if err != nil {
		return nil, decodeErr(err)
	}
	if err := finishStream(src); err != nil {
		return nil, err
	}
	return v, nil
}

// A Decoder parses JSON directly into a target type in a single pass
// over the input. Tokens feed type checks, constraint checks and
// record construction as they are read; no intermediate generic tree
// is built, except for union member fields read before the
// discriminant settles.
//
// A Decoder is stateless and safe for concurrent use.
type Decoder struct {
	target Type
}

// NewDecoder builds a decoder for a resolved type. Types carrying
// record or union references must come from a compiled registry.
func NewDecoder(t Type) (*Decoder, error) {
	if !t.resolved() {
		return nil, &SchemaError{Name: t.String(), Msg: "type is not bound to a compiled registry"}
	}
	return &Decoder{target: t}, nil
}

// MustDecoder is NewDecoder, panicking on error. Intended for
// package-level decoder variables next to MustCompile registries.
func MustDecoder(t Type) *Decoder {
	d, err := NewDecoder(t)
	if err != nil {
		panic(err)
	}
	return d
}

// Target returns the type the decoder produces.
func (d *Decoder) Target() Type { return d.target }

// Decode parses one JSON document from data. Syntax problems surface
// as *DecodeError with a byte offset; shape and constraint problems as
// the typed validation errors with dotted paths.
func (d *Decoder) Decode(data []byte) (any, error) {
	return d.decode(srcjson.NewBytes(data))
}

// DecodeReader parses one JSON document from a stream. Offsets in
// syntax errors are unavailable on this path and report as -1.
func (d *Decoder) DecodeReader(r io.Reader) (any, error) {
	return d.decode(srcgojson.NewReader(r))
}

func (d *Decoder) decode(src eng.TokenSource) (any, error) {
	tok, err := nextToken(src)
	if err != nil {
		return nil, err
	}
	v, err := d.decodeValue(src, tok, d.target, "")
	if err != nil {
		return nil, err
	}
	if err := finishStream(src); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeValue consumes exactly the tokens of one value. tok is the
// value's first token, already read.
func (d *Decoder) decodeValue(src eng.TokenSource, tok eng.Token, t Type, path string) (any, error) {
	switch t.kind {
	case KindOptional:
		if tok.Kind == eng.KindNull {
			return nil, nil
		}
		return d.decodeValue(src, tok, *t.elem, path)
	case KindAny:
		v, err := eng.DecodeValue(src, tok)
		if err != nil {
			return nil, decodeErr(err)
		}
		return v, nil
	}
	if tok.Kind == eng.KindNull {
		return nil, typeErrorFor(path, t.String(), nil)
	}
	switch t.kind {
	case KindBool:
		if tok.Kind == eng.KindBool {
			return tok.Bool, nil
		}
	case KindInt:
		if tok.Kind == eng.KindNumber {
			if !eng.IsIntegerLiteral(tok.Number) {
				return nil, &TypeError{Path: path, Expected: "int", Actual: "float"}
			}
			n, err := strconv.ParseInt(tok.Number, 10, 64)
			if err != nil {
				return nil, &TypeError{Path: path, Expected: "int", Actual: "number " + tok.Number, Cause: err}
			}
			return n, nil
		}
	case KindFloat:
		if tok.Kind == eng.KindNumber {
			f, err := strconv.ParseFloat(tok.Number, 64)
			if err != nil {
				return nil, &TypeError{Path: path, Expected: "float", Actual: "number " + tok.Number, Cause: err}
			}
			return f, nil
		}
	case KindString:
		if tok.Kind == eng.KindString {
			return tok.String, nil
		}
	case KindBytes:
		if tok.Kind == eng.KindString {
			b, err := parseBytes(tok.String)
			if err != nil {
				return nil, &TypeError{Path: path, Expected: "bytes", Actual: "string", Cause: err}
			}
			return b, nil
		}
	case KindTime:
		if tok.Kind == eng.KindString {
			ts, err := parseTimestamp(tok.String)
			if err != nil {
				return nil, &TypeError{Path: path, Expected: "timestamp", Actual: "string", Cause: err}
			}
			return ts, nil
		}
	case KindUUID:
		if tok.Kind == eng.KindString {
			if u, ok := parseUUID(tok.String); ok {
				return u, nil
			}
			return nil, &TypeError{Path: path, Expected: "uuid", Actual: "string"}
		}
	case KindSeq:
		if tok.Kind == eng.KindBeginArray {
			return d.decodeSeq(src, t, path)
		}
	case KindMap:
		if tok.Kind == eng.KindBeginObject {
			return d.decodeMap(src, t, path)
		}
	case KindRecord:
		if tok.Kind == eng.KindBeginObject {
			return d.decodeObjectBody(src, t.reg.entries[t.ref].schema, path, nil)
		}
	case KindUnion:
		if tok.Kind == eng.KindBeginObject {
			return d.decodeUnion(src, t.reg.entries[t.ref].union, path)
		}
	}
	return nil, &TypeError{Path: path, Expected: t.String(), Actual: tokenActual(tok)}
}

func (d *Decoder) decodeSeq(src eng.TokenSource, t Type, path string) ([]any, error) {
	out := []any{}
	for i := 0; ; i++ {
		tok, err := nextToken(src)
		if err != nil {
			return nil, err
		}
		if tok.Kind == eng.KindEndArray {
			return out, nil
		}
		v, err := d.decodeValue(src, tok, *t.elem, indexPath(path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func (d *Decoder) decodeMap(src eng.TokenSource, t Type, path string) (map[string]any, error) {
	out := map[string]any{}
	for {
		tok, err := nextToken(src)
		if err != nil {
			return nil, err
		}
		if tok.Kind == eng.KindEndObject {
			return out, nil
		}
		vtok, err := nextToken(src)
		if err != nil {
			return nil, err
		}
		v, err := d.decodeValue(src, vtok, *t.elem, joinPath(path, tok.String))
		if err != nil {
			return nil, err
		}
		out[tok.String] = v
	}
}

// pendingField buffers a union member field read before the
// discriminant. It holds the generic form and is converted once the
// member schema is known.
type pendingField struct {
	key string
	val any
}

// decodeObjectBody consumes an object's fields after its '{' token and
// builds a record. pending carries fields buffered by union dispatch;
// they are applied first, in wire order. A duplicate key overwrites
// the earlier value.
func (d *Decoder) decodeObjectBody(src eng.TokenSource, s *Schema, path string, pending []pendingField) (*Record, error) {
	vals := make([]any, len(s.fields))
	for i := range vals {
		vals[i] = absentVal
	}
	for _, p := range pending {
		if idx, ok := s.byName[p.key]; ok {
			f := &s.fields[idx]
			fpath := joinPath(path, p.key)
			cv, err := convertValue(p.val, f.typ, fpath)
			if err != nil {
				return nil, err
			}
			if err := checkConstraints(cv, f.cons, fpath); err != nil {
				return nil, err
			}
			vals[idx] = cv
			continue
		}
		if s.forbidUnknown {
			return nil, &ValidationError{Path: joinPath(path, p.key), Rule: RuleUnknown, Msg: fmt.Sprintf("unknown field %q", p.key)}
		}
	}
	for {
		tok, err := nextToken(src)
		if err != nil {
			return nil, err
		}
		if tok.Kind == eng.KindEndObject {
			break
		}
		key := tok.String
		vtok, err := nextToken(src)
		if err != nil {
			return nil, err
		}
		if idx, ok := s.byName[key]; ok {
			f := &s.fields[idx]
			fpath := joinPath(path, key)
			v, err := d.decodeValue(src, vtok, f.typ, fpath)
			if err != nil {
				return nil, err
			}
			if err := checkConstraints(v, f.cons, fpath); err != nil {
				return nil, err
			}
			vals[idx] = v
			continue
		}
		if s.tagged && key == s.tagField {
			if vtok.Kind != eng.KindString || vtok.String != s.tagValue {
				return nil, &TypeError{
					Path:     joinPath(path, s.tagField),
					Expected: fmt.Sprintf("discriminant %q", s.tagValue),
					Actual:   tokenTag(vtok),
				}
			}
			continue
		}
		if s.forbidUnknown {
			return nil, &ValidationError{Path: joinPath(path, key), Rule: RuleUnknown, Msg: fmt.Sprintf("unknown field %q", key)}
		}
		if err := eng.SkipValue(src, vtok); err != nil {
			return nil, decodeErr(err)
		}
	}
	for i := range s.fields {
		if vals[i] != absentVal {
			continue
		}
		f := &s.fields[i]
		if f.required {
			return nil, &MissingFieldError{Path: path, Field: f.name}
		}
		if f.hasDefault {
			vals[i] = copyValue(f.def)
		} else {
			vals[i] = nil
		}
	}
	return &Record{schema: s, vals: vals}, nil
}

// decodeUnion reads object fields generically until the discriminant
// arrives, then hands the buffered fields and the rest of the stream
// to the member schema. The input order of fields does not matter.
func (d *Decoder) decodeUnion(src eng.TokenSource, u *Union, path string) (*Record, error) {
	var pending []pendingField
	for {
		tok, err := nextToken(src)
		if err != nil {
			return nil, err
		}
		if tok.Kind == eng.KindEndObject {
			return nil, &MissingDiscriminantError{Path: path, Field: u.tagField, Union: u.name}
		}
		key := tok.String
		vtok, err := nextToken(src)
		if err != nil {
			return nil, err
		}
		if key == u.tagField {
			if vtok.Kind != eng.KindString {
				return nil, &TypeError{Path: joinPath(path, u.tagField), Expected: "string", Actual: tokenActual(vtok)}
			}
			member, ok := u.table[vtok.String]
			if !ok {
				return nil, &UnknownTagError{Path: joinPath(path, u.tagField), Tag: vtok.String, Union: u.name}
			}
			return d.decodeObjectBody(src, member, path, pending)
		}
		v, err := eng.DecodeValue(src, vtok)
		if err != nil {
			return nil, decodeErr(err)
		}
		pending = append(pending, pendingField{key: key, val: v})
	}
}

type absent struct{}

// absentVal marks record slots not yet assigned during decoding. It is
// distinguishable from a decoded nil.
var absentVal any = absent{}

// nextToken reads the next token, turning end-of-input into a decode
// error: callers use it only where a token is required.
func nextToken(src eng.TokenSource) (eng.Token, error) {
	tok, err := src.NextToken()
	if err == io.EOF {
		return eng.Token{}, &DecodeError{Offset: src.Location(), Msg: "unexpected end of input"}
	}
	if err != nil {
		return eng.Token{}, decodeErr(err)
	}
	return tok, nil
}

// finishStream asserts the input is exhausted after the top-level
// value.
func finishStream(src eng.TokenSource) error {
	tok, err := src.NextToken()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return decodeErr(err)
	}
	return &DecodeError{Offset: tok.Offset, Msg: "unexpected data after top-level value"}
}

// decodeErr converts scanner errors to the public *DecodeError.
func decodeErr(err error) error {
	if se, ok := err.(*eng.SyntaxError); ok {
		return &DecodeError{Offset: se.Offset, Msg: se.Msg}
	}
	return err
}

// tokenActual names a token's shape for type mismatch messages.
func tokenActual(tok eng.Token) string {
	switch tok.Kind {
	case eng.KindString:
		return "string"
	case eng.KindNumber:
		if eng.IsIntegerLiteral(tok.Number) {
			return "int"
		}
		return "float"
	case eng.KindBool:
		return "bool"
	case eng.KindNull:
		return "null"
	case eng.KindBeginArray:
		return "sequence"
	case eng.KindBeginObject:
		return "mapping"
	}
	return tok.Kind.String()
}

// tokenTag renders a discriminant token for mismatch messages.
func tokenTag(tok eng.Token) string {
	if tok.Kind == eng.KindString {
		return strconv.Quote(tok.String)
	}
	return tokenActual(tok)
}
