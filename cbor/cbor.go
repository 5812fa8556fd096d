// Package cbor carries the recwire value model over CBOR (RFC 8949),
// the compact binary companion to the JSON wire format. Encoding is
// Core Deterministic (sorted map keys, shortest integers), so equal
// values produce identical bytes. Records encode as maps carrying
// their discriminant entry when tagged; timestamps and unique ids
// travel as their canonical text forms, which the typed decode path
// parses back, so cbor.Unmarshal(cbor.Marshal(x), t) round-trips.
package cbor

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/recwire/recwire"
)

// encMode is configured with Core Deterministic Encoding. Timestamps
// become RFC 3339 text rather than epoch integers so the generic
// decode of a typed document mirrors the JSON wire shape.
var encMode cbor.EncMode

// decMode accepts standard CBOR and decodes any-typed map targets as
// map[string]any, the registry value vocabulary.
var decMode cbor.DecMode

func init() {
	var err error
	encOpts := cbor.CoreDetEncOptions()
	encOpts.Time = cbor.TimeRFC3339Nano
	// uuid.UUID implements encoding.TextMarshaler; without this it
	// would encode as an opaque 16-byte array instead of the canonical
	// hyphenated text form the converter knows how to read back.
	encOpts.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic("cbor: encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("cbor: decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes a value to deterministic CBOR bytes. Records are
// accepted anywhere in the value, typed or nested inside generic
// containers.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(genericize(v))
}

// Unmarshal decodes CBOR bytes and converts the result against the
// target type, applying the same checks and constraints as the JSON
// path. Shape and constraint failures surface as recwire's typed
// errors with dotted paths.
func Unmarshal(data []byte, target recwire.Type) (any, error) {
	var v any
	if err := decMode.Unmarshal(data, &v); err != nil {
		return nil, &recwire.DecodeError{Offset: -1, Msg: err.Error()}
	}
	return recwire.Convert(v, target)
}

// Decode decodes CBOR bytes into the generic value vocabulary without
// a target type, for inspection.
func Decode(data []byte) (any, error) {
	var v any
	if err := decMode.Unmarshal(data, &v); err != nil {
		return nil, &recwire.DecodeError{Offset: -1, Msg: err.Error()}
	}
	return v, nil
}

// NewEncoder returns a streaming encoder with the package's
// deterministic configuration. Records must be genericized by the
// caller via Generic before writing.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a streaming decoder with the package's
// configuration.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// Generic converts records to generic mappings recursively, the wire
// shape both codecs share. Values without records pass through.
func Generic(v any) any { return genericize(v) }

func genericize(v any) any {
	switch x := v.(type) {
	case *recwire.Record:
		if x == nil {
			return nil
		}
		s := x.Schema()
		m := make(map[string]any, s.NumFields()+1)
		if s.Tagged() {
			m[s.TagField()] = s.TagValue()
		}
		for i := 0; i < s.NumFields(); i++ {
			m[s.Field(i).Name()] = genericize(x.At(i))
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = genericize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = genericize(e)
		}
		return out
	default:
		return v
	}
}
