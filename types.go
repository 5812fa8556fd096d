package recwire

// Kind identifies the variant of a Type node.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt    // 64-bit signed integer
	KindFloat  // 64-bit float; integer inputs widen
	KindString // UTF-8 text
	KindBytes  // raw bytes; base64 string on the JSON wire
	KindTime   // timestamp; ISO-8601 string on the wire
	KindUUID   // unique id; canonical hyphenated string on the wire
	KindAny    // passes any generic value through unchanged
	KindSeq    // ordered sequence of Elem
	KindMap    // string-keyed mapping of Elem values
	KindOptional
	KindRecord
	KindUnion
)

// kindRef marks a named reference that has not been resolved by
// Registry.Compile yet.
const kindRef Kind = 0xff

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindTime:
		return "timestamp"
	case KindUUID:
		return "uuid"
	case KindAny:
		return "any"
	case KindSeq:
		return "sequence"
	case KindMap:
		return "mapping"
	case KindOptional:
		return "optional"
	case KindRecord:
		return "record"
	case KindUnion:
		return "union"
	case kindRef:
		return "reference"
	}
	return "invalid"
}

// Type is one node of a type graph: a scalar kind, a container of an
// element type, or a reference into a Registry. Types built from the
// constructors below are plain descriptions; record and union
// references become usable once the owning registry is compiled.
// Compiled types are immutable and safe to share across goroutines.
type Type struct {
	kind Kind
	elem *Type  // KindSeq element, KindMap value, KindOptional inner
	name string // referenced name; kept after resolution for rendering
	ref  int    // registry entry id for KindRecord/KindUnion
	reg  *Registry
}

// Bool declares a boolean type.
func Bool() Type { return Type{kind: KindBool} }

// Int declares a 64-bit signed integer type.
func Int() Type { return Type{kind: KindInt} }

// Float declares a 64-bit floating point type. Integer values widen
// into it during conversion and decoding.
func Float() Type { return Type{kind: KindFloat} }

// String declares a text type. Length constraints count codepoints.
func String() Type { return Type{kind: KindString} }

// Bytes declares a byte-string type, carried as base64 text in JSON.
func Bytes() Type { return Type{kind: KindBytes} }

// Time declares a timestamp type. The wire form is an ISO-8601 string
// with an explicit Z designator or numeric offset.
func Time() Type { return Type{kind: KindTime} }

// UUID declares a unique-id type. The wire form is the canonical
// hyphenated hexadecimal representation.
func UUID() Type { return Type{kind: KindUUID} }

// Any declares a type that admits every generic value unchanged.
// Constraints cannot attach to it.
func Any() Type { return Type{kind: KindAny} }

// SeqOf declares an ordered sequence of elem.
func SeqOf(elem Type) Type { return Type{kind: KindSeq, elem: &elem} }

// MapOf declares a string-keyed mapping with values of value.
func MapOf(value Type) Type { return Type{kind: KindMap, elem: &value} }

// OptionalOf declares a type whose values may be absent (nil).
func OptionalOf(inner Type) Type { return Type{kind: KindOptional, elem: &inner} }

// Ref declares a reference to a record or union registered under name.
// The reference may point forward: it resolves at Registry.Compile,
// which is what permits self-referential and mutually recursive
// schemas.
func Ref(name string) Type { return Type{kind: kindRef, name: name} }

// Kind returns the node's variant.
func (t Type) Kind() Kind { return t.kind }

// Elem returns the element type of a sequence, mapping, or optional
// node, and the zero Type for every other kind.
func (t Type) Elem() Type {
	if t.elem == nil {
		return Type{}
	}
	return *t.elem
}

// Schema returns the referenced record schema. It is nil unless the
// node is a compiled KindRecord.
func (t Type) Schema() *Schema {
	if t.kind != KindRecord || t.reg == nil {
		return nil
	}
	return t.reg.entries[t.ref].schema
}

// Union returns the referenced union. It is nil unless the node is a
// compiled KindUnion.
func (t Type) Union() *Union {
	if t.kind != KindUnion || t.reg == nil {
		return nil
	}
	return t.reg.entries[t.ref].union
}

// String renders the type expression form: "int", "[]float",
// "map[string]int", "User?", "Geometry".
func (t Type) String() string {
	switch t.kind {
	case KindSeq:
		return "[]" + t.Elem().String()
	case KindMap:
		return "map[string]" + t.Elem().String()
	case KindOptional:
		return t.Elem().String() + "?"
	case KindRecord, KindUnion, kindRef:
		return t.name
	default:
		return t.kind.String()
	}
}

// resolved reports whether every reference reachable from t has been
// bound to a compiled registry. Handles produced by Schema.Type and
// Union.Type before Compile are not resolved: required flags and union
// tables only exist after compilation.
func (t Type) resolved() bool {
	switch t.kind {
	case kindRef, KindInvalid:
		return false
	case KindRecord, KindUnion:
		return t.reg != nil && t.reg.compiled
	case KindSeq, KindMap, KindOptional:
		return t.elem != nil && t.elem.resolved()
	default:
		return true
	}
}
