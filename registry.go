package recwire

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

type regEntry struct {
	schema *Schema
	union  *Union
}

func (e regEntry) name() string {
	if e.schema != nil {
		return e.schema.name
	}
	return e.union.name
}

// Registry is the arena owning record schemas and unions. Types refer
// to entries by id, so forward and self references cost nothing until
// Compile resolves them. A registry goes through two phases: an open
// phase accepting Register/RegisterUnion calls, and a compiled phase
// in which every entry is resolved, frozen, and safe for concurrent
// use. Registering into a compiled registry panics.
type Registry struct {
	entries  []regEntry
	byName   map[string]int
	compiled bool
	fp       uint64
}

// NewRegistry returns an empty, open registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register records a schema declaration under name and returns its
// handle. The handle is valid immediately but usable for conversion,
// decoding, and construction only after Compile. Field declarations
// are captured as given; all validation happens in Compile so that a
// declaration batch can reference names in any order.
func (r *Registry) Register(name string, fields []FieldSpec, opts ...SchemaOption) *Schema {
	if r.compiled {
		panic("recwire: Register called after Compile")
	}
	s := &Schema{
		reg:    r,
		id:     len(r.entries),
		name:   name,
		fields: append([]FieldSpec(nil), fields...),
	}
	for _, o := range opts {
		o(s)
	}
	r.entries = append(r.entries, regEntry{schema: s})
	return s
}

// RegisterUnion records a union of the named members. A member may be
// a record schema or another union; unions flatten transitively at
// Compile. Every flattened member must be a tagged schema, all members
// must agree on the discriminant field name, and no two members may
// share a discriminant value.
func (r *Registry) RegisterUnion(name string, members ...string) *Union {
	if r.compiled {
		panic("recwire: RegisterUnion called after Compile")
	}
	u := &Union{
		reg:         r,
		id:          len(r.entries),
		name:        name,
		memberNames: append([]string(nil), members...),
	}
	r.entries = append(r.entries, regEntry{union: u})
	return u
}

// Compiled reports whether Compile has run.
func (r *Registry) Compiled() bool { return r.compiled }

// Schema looks up a registered record schema by name. Lookups resolve
// only after Compile.
func (r *Registry) Schema(name string) (*Schema, bool) {
	if i, ok := r.byName[name]; ok {
		return r.entries[i].schema, r.entries[i].schema != nil
	}
	return nil, false
}

// Union looks up a registered union by name. Lookups resolve only
// after Compile.
func (r *Registry) Union(name string) (*Union, bool) {
	if i, ok := r.byName[name]; ok {
		return r.entries[i].union, r.entries[i].union != nil
	}
	return nil, false
}

// TypeOf returns the type-graph node for a registered record or union.
func (r *Registry) TypeOf(name string) (Type, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Type{}, false
	}
	if s := r.entries[i].schema; s != nil {
		return s.Type(), true
	}
	return r.entries[i].union.Type(), true
}

// Compile resolves every reference, derives required flags, validates
// defaults and constraint placement, builds union tables, and freezes
// the registry. It fails with *SchemaError on the first problem; a
// failed registry stays open so the declaration can be corrected only
// by building a fresh registry (entries already checked may hold
// partially resolved state).
func (r *Registry) Compile() error {
	if r.compiled {
		return &SchemaError{Msg: "registry already compiled"}
	}

	for i, e := range r.entries {
		n := e.name()
		if n == "" {
			return &SchemaError{Msg: "registration with empty name"}
		}
		if _, dup := r.byName[n]; dup {
			return &SchemaError{Name: n, Msg: "duplicate registration"}
		}
		r.byName[n] = i
	}

	// Resolve field types and tag settings before touching defaults or
	// unions: both need the full graph in place.
	for _, e := range r.entries {
		s := e.schema
		if s == nil {
			continue
		}
		if s.tagged {
			if s.tagField == "" {
				s.tagField = "type"
			}
			if s.tagValue == "" {
				s.tagValue = s.name
			}
		}
		s.byName = make(map[string]int, len(s.fields))
		for i := range s.fields {
			f := &s.fields[i]
			if f.name == "" {
				return &SchemaError{Name: s.name, Msg: "field with empty name"}
			}
			if _, dup := s.byName[f.name]; dup {
				return &SchemaError{Name: s.name, Msg: fmt.Sprintf("duplicate field %q", f.name)}
			}
			s.byName[f.name] = i
			if s.tagged && f.name == s.tagField {
				return &SchemaError{Name: s.name, Msg: fmt.Sprintf("field %q collides with the discriminant field", f.name)}
			}
			rt, err := r.resolveType(f.typ, s.name)
			if err != nil {
				return err
			}
			f.typ = rt
			if err := checkConstraintTarget(f.cons, rt, s.name, f.name); err != nil {
				return err
			}
			f.required = !f.hasDefault && rt.Kind() != KindOptional
		}
	}

	for _, e := range r.entries {
		u := e.union
		if u == nil {
			continue
		}
		members, err := r.flattenUnion(u, make(map[int]bool))
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return &SchemaError{Name: u.name, Msg: "union has no members"}
		}
		u.members = members
		u.table = make(map[string]*Schema, len(members))
		for _, m := range members {
			if !m.tagged {
				return &SchemaError{Name: u.name, Msg: fmt.Sprintf("member %q is not tagged", m.name)}
			}
			if u.tagField == "" {
				u.tagField = m.tagField
			} else if u.tagField != m.tagField {
				return &SchemaError{Name: u.name, Msg: fmt.Sprintf("members disagree on the discriminant field (%q vs %q)", u.tagField, m.tagField)}
			}
			if prev, dup := u.table[m.tagValue]; dup {
				return &SchemaError{Name: u.name, Msg: fmt.Sprintf("discriminant value %q used by both %q and %q", m.tagValue, prev.name, m.name)}
			}
			u.table[m.tagValue] = m
		}
	}

	// Defaults convert against the resolved graph. Scalars inside raw
	// defaults canonicalize first so that a default embedding another
	// schema's not-yet-processed default still lands in canonical form.
	for _, e := range r.entries {
		s := e.schema
		if s == nil {
			continue
		}
		for i := range s.fields {
			if s.fields[i].hasDefault {
				s.fields[i].def = canonicalValue(s.fields[i].def)
			}
		}
	}
	for _, e := range r.entries {
		s := e.schema
		if s == nil {
			continue
		}
		for i := range s.fields {
			f := &s.fields[i]
			if !f.hasDefault {
				continue
			}
			dv, err := convertValue(f.def, f.typ, f.name)
			if err != nil {
				return &SchemaError{Name: s.name, Msg: fmt.Sprintf("invalid default for field %q", f.name), Cause: err}
			}
			if err := checkConstraints(dv, f.cons, f.name); err != nil {
				return &SchemaError{Name: s.name, Msg: fmt.Sprintf("default for field %q violates its constraints", f.name), Cause: err}
			}
			f.def = dv
		}
	}

	r.compiled = true
	r.fp = r.fingerprint()
	return nil
}

// MustCompile is Compile that panics on error, for declaration batches
// known correct at build time.
func (r *Registry) MustCompile() *Registry {
	if err := r.Compile(); err != nil {
		panic(err)
	}
	return r
}

// Fingerprint returns a stable hex hash of the compiled declarations,
// independent of registration order. It is empty before Compile.
func (r *Registry) Fingerprint() string {
	if !r.compiled {
		return ""
	}
	return fmt.Sprintf("%016x", r.fp)
}

func (r *Registry) resolveType(t Type, owner string) (Type, error) {
	switch t.kind {
	case kindRef:
		i, ok := r.byName[t.name]
		if !ok {
			return Type{}, &SchemaError{Name: owner, Msg: fmt.Sprintf("unresolved type reference %q", t.name)}
		}
		if s := r.entries[i].schema; s != nil {
			return Type{kind: KindRecord, name: t.name, ref: i, reg: r}, nil
		}
		return Type{kind: KindUnion, name: t.name, ref: i, reg: r}, nil
	case KindSeq, KindMap, KindOptional:
		elem, err := r.resolveType(t.Elem(), owner)
		if err != nil {
			return Type{}, err
		}
		return Type{kind: t.kind, elem: &elem}, nil
	case KindRecord, KindUnion:
		// Handle-produced node; must belong to this registry.
		if t.reg != r {
			return Type{}, &SchemaError{Name: owner, Msg: fmt.Sprintf("type %q belongs to a different registry", t.name)}
		}
		return t, nil
	case KindInvalid:
		return Type{}, &SchemaError{Name: owner, Msg: "invalid type declaration"}
	default:
		return t, nil
	}
}

// flattenUnion expands member names depth-first. stack holds only the
// unions on the current recursion path: a sub-union reachable through
// two sibling members is a valid diamond, not a cycle, and the present
// set below dedupes its schemas.
func (r *Registry) flattenUnion(u *Union, stack map[int]bool) ([]*Schema, error) {
	if stack[u.id] {
		return nil, &SchemaError{Name: u.name, Msg: "union includes itself"}
	}
	stack[u.id] = true
	defer delete(stack, u.id)
	var out []*Schema
	present := make(map[int]bool)
	for _, name := range u.memberNames {
		i, ok := r.byName[name]
		if !ok {
			return nil, &SchemaError{Name: u.name, Msg: fmt.Sprintf("unresolved member %q", name)}
		}
		if s := r.entries[i].schema; s != nil {
			if !present[s.id] {
				present[s.id] = true
				out = append(out, s)
			}
			continue
		}
		nested, err := r.flattenUnion(r.entries[i].union, stack)
		if err != nil {
			return nil, err
		}
		for _, s := range nested {
			if !present[s.id] {
				present[s.id] = true
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// checkConstraintTarget verifies that the declared constraints can
// apply to the (optionally unwrapped) field type.
func checkConstraintTarget(c Constraints, t Type, schema, field string) error {
	if c.empty() {
		return nil
	}
	k := t.Kind()
	if k == KindOptional {
		k = t.Elem().Kind()
	}
	if c.minValue != nil || c.maxValue != nil {
		if k != KindInt && k != KindFloat {
			return &SchemaError{Name: schema, Msg: fmt.Sprintf("numeric bounds on non-numeric field %q", field)}
		}
		if c.minValue != nil && c.maxValue != nil && *c.minValue > *c.maxValue {
			return &SchemaError{Name: schema, Msg: fmt.Sprintf("empty numeric range on field %q", field)}
		}
	}
	if c.minLen != nil || c.maxLen != nil {
		switch k {
		case KindString, KindBytes, KindSeq, KindMap:
		default:
			return &SchemaError{Name: schema, Msg: fmt.Sprintf("length bounds on field %q of kind %s", field, k)}
		}
		if c.minLen != nil && *c.minLen < 0 {
			return &SchemaError{Name: schema, Msg: fmt.Sprintf("negative length bound on field %q", field)}
		}
		if c.minLen != nil && c.maxLen != nil && *c.minLen > *c.maxLen {
			return &SchemaError{Name: schema, Msg: fmt.Sprintf("empty length range on field %q", field)}
		}
	}
	return nil
}

// fingerprint hashes a canonical rendering of every entry, sorted by
// name.
func (r *Registry) fingerprint() uint64 {
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.name())
	}
	sort.Strings(names)
	h := xxhash.New()
	for _, n := range names {
		e := r.entries[r.byName[n]]
		if s := e.schema; s != nil {
			h.WriteString("record " + s.name + "\n")
			if s.tagged {
				h.WriteString("tag " + s.tagField + "=" + s.tagValue + "\n")
			}
			if s.forbidUnknown {
				h.WriteString("strict\n")
			}
			for _, f := range s.fields {
				h.WriteString("field " + f.name + " " + f.typ.String())
				if f.required {
					h.WriteString(" required")
				}
				if f.hasDefault {
					h.WriteString(fmt.Sprintf(" default=%v", f.def))
				}
				writeConstraints(h, f.cons)
				h.WriteString("\n")
			}
			continue
		}
		u := e.union
		members := make([]string, 0, len(u.members))
		for _, m := range u.members {
			members = append(members, m.name)
		}
		sort.Strings(members)
		h.WriteString("union " + u.name + " =")
		for _, m := range members {
			h.WriteString(" " + m)
		}
		h.WriteString("\n")
	}
	return h.Sum64()
}

func writeConstraints(h *xxhash.Digest, c Constraints) {
	if c.minValue != nil {
		h.WriteString(" min=" + strconv.FormatFloat(*c.minValue, 'g', -1, 64))
	}
	if c.maxValue != nil {
		h.WriteString(" max=" + strconv.FormatFloat(*c.maxValue, 'g', -1, 64))
	}
	if c.minLen != nil {
		h.WriteString(" minlen=" + strconv.Itoa(*c.minLen))
	}
	if c.maxLen != nil {
		h.WriteString(" maxlen=" + strconv.Itoa(*c.maxLen))
	}
}
