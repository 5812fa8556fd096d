package recwire

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is a typed instance of a Schema: a fixed-arity tuple of field
// values stored by position, giving O(1) access and iteration in
// declaration order. Records carry their schema binding, so encoding
// needs no external lookup. Construction trusts the caller's value
// types; validation happens when untrusted data is converted or
// decoded.
type Record struct {
	schema *Schema
	vals   []any
}

// New builds a record from positional values in field declaration
// order. Omitted trailing fields take their defaults or the absent
// state; omitted required fields fail with *MissingFieldError. Values
// canonicalize through containers (int widths to int64, float32 to
// float64) so constructed records compare equal to decoded ones.
func (s *Schema) New(vals ...any) (*Record, error) {
	if s.reg == nil || !s.reg.compiled {
		return nil, &SchemaError{Name: s.name, Msg: "registry not compiled"}
	}
	if len(vals) > len(s.fields) {
		return nil, &TypeError{
			Expected: fmt.Sprintf("at most %d positional values for %q", len(s.fields), s.name),
			Actual:   strconv.Itoa(len(vals)),
		}
	}
	out := make([]any, len(s.fields))
	for i := range s.fields {
		f := &s.fields[i]
		if i < len(vals) {
			out[i] = canonicalValue(vals[i])
			continue
		}
		if f.required {
			return nil, &MissingFieldError{Field: f.name}
		}
		if f.hasDefault {
			out[i] = copyValue(f.def)
			continue
		}
		out[i] = nil
	}
	return &Record{schema: s, vals: out}, nil
}

// NewNamed builds a record from named values. Unknown names are
// dropped, or rejected when the schema forbids unknown fields. For
// tagged schemas the discriminant key is tolerated when it matches the
// schema's discriminant value, so NewNamed(r.AsMap()) round-trips.
func (s *Schema) NewNamed(fields map[string]any) (*Record, error) {
	if s.reg == nil || !s.reg.compiled {
		return nil, &SchemaError{Name: s.name, Msg: "registry not compiled"}
	}
	out := make([]any, len(s.fields))
	matched := 0
	for i := range s.fields {
		f := &s.fields[i]
		if v, ok := fields[f.name]; ok {
			out[i] = canonicalValue(v)
			matched++
			continue
		}
		if f.required {
			return nil, &MissingFieldError{Field: f.name}
		}
		if f.hasDefault {
			out[i] = copyValue(f.def)
			continue
		}
		out[i] = nil
	}
	if s.tagged {
		if tv, ok := fields[s.tagField]; ok {
			tag, isStr := tv.(string)
			if !isStr || tag != s.tagValue {
				return nil, &TypeError{
					Path:     s.tagField,
					Expected: fmt.Sprintf("discriminant %q", s.tagValue),
					Actual:   describeTag(tv),
				}
			}
			matched++
		}
	}
	if s.forbidUnknown && matched < len(fields) {
		for _, k := range sortedKeys(fields) {
			if _, ok := s.byName[k]; ok {
				continue
			}
			if s.tagged && k == s.tagField {
				continue
			}
			return nil, &ValidationError{Path: k, Rule: RuleUnknown, Msg: fmt.Sprintf("unknown field %q", k)}
		}
	}
	return &Record{schema: s, vals: out}, nil
}

// Schema returns the record's schema binding.
func (r *Record) Schema() *Schema { return r.schema }

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.vals) }

// At returns the i-th field value in declaration order.
func (r *Record) At(i int) any { return r.vals[i] }

// Field returns a field value by name.
func (r *Record) Field(name string) (any, bool) {
	if i, ok := r.schema.byName[name]; ok {
		return r.vals[i], true
	}
	return nil, false
}

// AsMap returns a generic mapping view of the record. Tagged schemas
// include their discriminant entry, mirroring the wire shape. Values
// are shared, not copied.
func (r *Record) AsMap() map[string]any {
	m := make(map[string]any, len(r.vals)+1)
	if r.schema.tagged {
		m[r.schema.tagField] = r.schema.tagValue
	}
	for i := range r.schema.fields {
		m[r.schema.fields[i].name] = r.vals[i]
	}
	return m
}

// Equal reports structural equality: same schema and pairwise equal
// field values in declaration order. Timestamps compare by instant,
// byte strings by content.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.schema != o.schema {
		return false
	}
	for i := range r.vals {
		if !equalValue(r.vals[i], o.vals[i]) {
			return false
		}
	}
	return true
}

func (r *Record) String() string {
	var b strings.Builder
	b.WriteString(r.schema.name)
	b.WriteByte('{')
	for i := range r.schema.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", r.schema.fields[i].name, r.vals[i])
	}
	b.WriteByte('}')
	return b.String()
}

// equalValue compares two generic values structurally.
func equalValue(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case uuid.UUID:
		bv, ok := b.(uuid.UUID)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValue(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !equalValue(v, bvv) {
				return false
			}
		}
		return true
	case *Record:
		bv, ok := b.(*Record)
		return ok && av.Equal(bv)
	default:
		return reflect.DeepEqual(a, b)
	}
}

// canonicalScalar folds Go's numeric widths into the canonical value
// vocabulary: int64 for integers, float64 for floats. Unsigned values
// outside int64 stay as given and fail later type checks.
func canonicalScalar(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		if uint64(x) <= 1<<63-1 {
			return int64(x)
		}
		return v
	case uint64:
		if x <= 1<<63-1 {
			return int64(x)
		}
		return v
	case float32:
		return float64(x)
	default:
		return v
	}
}

// canonicalValue applies canonicalScalar through containers, building
// fresh containers rather than mutating the input.
func canonicalValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = canonicalValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = canonicalValue(e)
		}
		return out
	default:
		return canonicalScalar(v)
	}
}

// copyValue deep-copies mutable containers so that schema defaults are
// never aliased between instances. Records are shared: they have no
// mutating API.
func copyValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = copyValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = copyValue(e)
		}
		return out
	case []byte:
		out := make([]byte, len(x))
		copy(out, x)
		return out
	default:
		return v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
