package recwire

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Convert checks a generic value against a type and returns its
// canonical typed form. Mappings become records, numeric widths fold
// to int64 and float64, and scalar string forms (RFC 3339 timestamps,
// canonical UUIDs, base64 byte strings) are parsed. Validation is
// fail-fast: the first violation in depth-first, declaration-order
// traversal is returned with its dotted path.
//
// Convert is idempotent on typed values: a *Record of the expected
// schema passes through unchanged.
func Convert(v any, t Type) (any, error) {
	if !t.resolved() {
		return nil, &SchemaError{Name: t.String(), Msg: "type is not bound to a compiled registry"}
	}
	return convertValue(v, t, "")
}

// ConvertAll converts a batch of values against one element type.
// Paths in errors are rooted at the offending index, as in "[3].kind".
// The result is independent of the input slice; an empty or nil input
// yields an empty, non-nil result.
func ConvertAll(vals []any, elem Type) ([]any, error) {
	if !elem.resolved() {
		return nil, &SchemaError{Name: elem.String(), Msg: "type is not bound to a compiled registry"}
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		cv, err := convertValue(v, elem, "["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		out[i] = cv
	}
	return out, nil
}

func convertValue(v any, t Type, path string) (any, error) {
	switch t.kind {
	case KindOptional:
		if v == nil {
			return nil, nil
		}
		return convertValue(v, *t.elem, path)
	case KindAny:
		return canonicalValue(v), nil
	}
	if v == nil {
		return nil, typeErrorFor(path, t.String(), v)
	}
	switch t.kind {
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindInt:
		if n, ok := toInt64(v); ok {
			return n, nil
		}
	case KindFloat:
		if f, ok := toFloat64(v); ok {
			return f, nil
		}
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindBytes:
		switch x := v.(type) {
		case []byte:
			return x, nil
		case string:
			b, err := parseBytes(x)
			if err != nil {
				return nil, &TypeError{Path: path, Expected: "bytes", Actual: "string", Cause: err}
			}
			return b, nil
		}
	case KindTime:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			ts, err := parseTimestamp(x)
			if err != nil {
				return nil, &TypeError{Path: path, Expected: "timestamp", Actual: "string", Cause: err}
			}
			return ts, nil
		}
	case KindUUID:
		switch x := v.(type) {
		case uuid.UUID:
			return x, nil
		case string:
			if u, ok := parseUUID(x); ok {
				return u, nil
			}
			return nil, &TypeError{Path: path, Expected: "uuid", Actual: describeValue(v)}
		}
	case KindSeq:
		if xs, ok := v.([]any); ok {
			out := make([]any, len(xs))
			for i, e := range xs {
				ce, err := convertValue(e, *t.elem, indexPath(path, i))
				if err != nil {
					return nil, err
				}
				out[i] = ce
			}
			return out, nil
		}
	case KindMap:
		if m, ok := v.(map[string]any); ok {
			out := make(map[string]any, len(m))
			for _, k := range sortedKeys(m) {
				cv, err := convertValue(m[k], *t.elem, joinPath(path, k))
				if err != nil {
					return nil, err
				}
				out[k] = cv
			}
			return out, nil
		}
	case KindRecord:
		s := t.reg.entries[t.ref].schema
		switch x := v.(type) {
		case *Record:
			if x.schema == s {
				return x, nil
			}
			return nil, typeErrorFor(path, t.String(), v)
		case map[string]any:
			return convertRecordFromMap(x, s, path)
		}
	case KindUnion:
		u := t.reg.entries[t.ref].union
		switch x := v.(type) {
		case *Record:
			if u.contains(x.schema) {
				return x, nil
			}
			return nil, typeErrorFor(path, t.String(), v)
		case map[string]any:
			return convertUnionFromMap(x, u, path)
		}
	}
	return nil, typeErrorFor(path, t.String(), v)
}

// convertRecordFromMap builds a typed record from a generic mapping,
// walking fields in declaration order. Field constraints apply to the
// converted value. For tagged schemas a discriminant entry is allowed
// and must match; unknown keys are dropped, or rejected in sorted
// order when the schema forbids them.
func convertRecordFromMap(m map[string]any, s *Schema, path string) (*Record, error) {
	vals := make([]any, len(s.fields))
	matched := 0
	for i := range s.fields {
		f := &s.fields[i]
		fpath := joinPath(path, f.name)
		v, ok := m[f.name]
		if !ok {
			if f.required {
				return nil, &MissingFieldError{Path: path, Field: f.name}
			}
			if f.hasDefault {
				vals[i] = copyValue(f.def)
			}
			continue
		}
		matched++
		cv, err := convertValue(v, f.typ, fpath)
		if err != nil {
			return nil, err
		}
		if err := checkConstraints(cv, f.cons, fpath); err != nil {
			return nil, err
		}
		vals[i] = cv
	}
	if s.tagged {
		if tv, ok := m[s.tagField]; ok {
			matched++
			tag, isStr := tv.(string)
			if !isStr || tag != s.tagValue {
				return nil, &TypeError{
					Path:     joinPath(path, s.tagField),
					Expected: fmt.Sprintf("discriminant %q", s.tagValue),
					Actual:   describeTag(tv),
				}
			}
		}
	}
	if s.forbidUnknown && matched < len(m) {
		for _, k := range sortedKeys(m) {
			if _, ok := s.byName[k]; ok {
				continue
			}
			if s.tagged && k == s.tagField {
				continue
			}
			return nil, &ValidationError{Path: joinPath(path, k), Rule: RuleUnknown, Msg: fmt.Sprintf("unknown field %q", k)}
		}
	}
	return &Record{schema: s, vals: vals}, nil
}

// convertUnionFromMap resolves the member schema through the
// discriminant entry, then converts as that member.
func convertUnionFromMap(m map[string]any, u *Union, path string) (*Record, error) {
	tv, ok := m[u.tagField]
	if !ok {
		return nil, &MissingDiscriminantError{Path: path, Field: u.tagField, Union: u.name}
	}
	tag, isStr := tv.(string)
	if !isStr {
		return nil, typeErrorFor(joinPath(path, u.tagField), "string", tv)
	}
	member, ok := u.table[tag]
	if !ok {
		return nil, &UnknownTagError{Path: joinPath(path, u.tagField), Tag: tag, Union: u.name}
	}
	return convertRecordFromMap(m, member, path)
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return int64(x), true
		}
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x), true
		}
	}
	return 0, false
}

// toFloat64 widens integers to float64; floats never narrow to int.
func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}
