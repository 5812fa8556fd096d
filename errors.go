package recwire

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Rule names carried by ValidationError, matching the declaration
// surface option names.
const (
	RuleMinValue  = "minimum_value"
	RuleMaxValue  = "maximum_value"
	RuleMinLength = "minimum_length"
	RuleMaxLength = "maximum_length"
	RuleUnknown   = "unknown_field"
)

// SchemaError reports a problem building a registry: an unresolvable
// reference, a discriminant collision, an invalid default, and so on.
// It surfaces from Register or Compile, never from per-value calls.
type SchemaError struct {
	Name  string // schema, union, or field the problem belongs to
	Msg   string
	Cause error
}

func (e *SchemaError) Error() string {
	if e.Name == "" {
		return "schema: " + e.Msg
	}
	return fmt.Sprintf("schema %q: %s", e.Name, e.Msg)
}

func (e *SchemaError) Unwrap() error { return e.Cause }

// ValidationError reports a constraint violation on a converted value.
// Path is the dotted field path (e.g. "profile.address.postal_code"),
// Rule the violated constraint option name.
type ValidationError struct {
	Path string
	Rule string
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return e.Path + ": " + e.Msg
}

// TypeError reports that a value's runtime shape does not match the
// declared type at Path.
type TypeError struct {
	Path     string
	Expected string
	Actual   string
	Cause    error
}

func (e *TypeError) Error() string {
	msg := fmt.Sprintf("expected %s, got %s", e.Expected, e.Actual)
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TypeError) Unwrap() error { return e.Cause }

// MissingFieldError reports an absent required field. Path locates the
// enclosing object ("" at the top level), Field names the field.
type MissingFieldError struct {
	Path  string
	Field string
}

func (e *MissingFieldError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("missing required field %q", e.Field)
	}
	return fmt.Sprintf("%s: missing required field %q", e.Path, e.Field)
}

// UnknownTagError reports a discriminant value with no entry in the
// union table. Path locates the discriminant field.
type UnknownTagError struct {
	Path  string
	Tag   string
	Union string
}

func (e *UnknownTagError) Error() string {
	msg := fmt.Sprintf("unknown discriminant value %q for union %q", e.Tag, e.Union)
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	return msg
}

// MissingDiscriminantError reports an object that carries no
// discriminant field where a union was expected. Path locates the
// enclosing object, Field names the discriminant.
type MissingDiscriminantError struct {
	Path  string
	Field string
	Union string
}

func (e *MissingDiscriminantError) Error() string {
	msg := fmt.Sprintf("missing discriminant field %q for union %q", e.Field, e.Union)
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	return msg
}

// DecodeError reports malformed input bytes. Offset is the byte
// position of the problem, -1 when the input source cannot track
// positions (streaming readers).
type DecodeError struct {
	Offset int64
	Msg    string
}

func (e *DecodeError) Error() string {
	if e.Offset < 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s at offset %d", e.Msg, e.Offset)
}

// typeErrorFor builds a TypeError describing the actual value.
func typeErrorFor(path, expected string, v any) *TypeError {
	return &TypeError{Path: path, Expected: expected, Actual: describeValue(v)}
}

// describeValue names a generic value's shape for error messages.
func describeValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int"
	case float32, float64:
		return "float"
	case string:
		return "string"
	case []byte:
		return "bytes"
	case time.Time:
		return "timestamp"
	case uuid.UUID:
		return "uuid"
	case []any:
		return "sequence"
	case map[string]any:
		return "mapping"
	case *Record:
		if x == nil || x.schema == nil {
			return "record"
		}
		return fmt.Sprintf("record %q", x.schema.name)
	default:
		return fmt.Sprintf("%T", v)
	}
}

// describeTag renders a discriminant candidate: quoted when it is a
// string, shape name otherwise.
func describeTag(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	return describeValue(v)
}
