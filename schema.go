package recwire

// Constraints bundles the optional per-field validation rules: numeric
// bounds for int/float fields and length bounds for string, bytes,
// sequence, and mapping fields. All bounds are inclusive.
type Constraints struct {
	minValue *float64
	maxValue *float64
	minLen   *int
	maxLen   *int
}

func (c Constraints) empty() bool {
	return c.minValue == nil && c.maxValue == nil && c.minLen == nil && c.maxLen == nil
}

// FieldSpec describes one record field: name, declared type, optional
// default, and constraints. Field declaration order is significant: it
// fixes both the wire encoding order and the positional construction
// order. A field is required iff it declares no default and its type
// is not optional.
type FieldSpec struct {
	name       string
	typ        Type
	def        any
	hasDefault bool
	required   bool // derived at Compile
	cons       Constraints
}

// Field declares a record field.
func Field(name string, typ Type, opts ...FieldOption) FieldSpec {
	f := FieldSpec{name: name, typ: typ}
	for _, o := range opts {
		o(&f)
	}
	return f
}

// Fields collects field declarations for Registry.Register.
func Fields(ff ...FieldSpec) []FieldSpec { return ff }

// FieldOption configures a field declaration.
type FieldOption func(*FieldSpec)

// Default attaches a default value, making the field optional. The
// default is converted and validated against the field type at
// Compile; container defaults are copied on every use.
func Default(v any) FieldOption {
	return func(f *FieldSpec) { f.def, f.hasDefault = v, true }
}

// Min sets the inclusive numeric minimum (int and float fields).
func Min(v float64) FieldOption {
	return func(f *FieldSpec) { f.cons.minValue = &v }
}

// Max sets the inclusive numeric maximum (int and float fields).
func Max(v float64) FieldOption {
	return func(f *FieldSpec) { f.cons.maxValue = &v }
}

// MinLen sets the inclusive minimum length: codepoints for strings,
// bytes for byte fields, elements for sequences and mappings.
func MinLen(n int) FieldOption {
	return func(f *FieldSpec) { f.cons.minLen = &n }
}

// MaxLen sets the inclusive maximum length.
func MaxLen(n int) FieldOption {
	return func(f *FieldSpec) { f.cons.maxLen = &n }
}

// Name returns the field name.
func (f FieldSpec) Name() string { return f.name }

// Type returns the declared field type.
func (f FieldSpec) Type() Type { return f.typ }

// Required reports whether the field must be supplied. Only meaningful
// once the owning registry is compiled.
func (f FieldSpec) Required() bool { return f.required }

// HasDefault reports whether the field declares a default value.
func (f FieldSpec) HasDefault() bool { return f.hasDefault }

// SchemaOption configures a record schema at registration.
type SchemaOption func(*Schema)

// Tagged marks the schema as a tagged-union participant: its wire form
// carries a discriminant field (default name "type", default value the
// schema's registered name).
func Tagged() SchemaOption {
	return func(s *Schema) { s.tagged = true }
}

// TagValue overrides the schema's discriminant value and implies
// Tagged.
func TagValue(v string) SchemaOption {
	return func(s *Schema) { s.tagged, s.tagValue = true, v }
}

// TagField overrides the discriminant field name and implies Tagged.
func TagField(name string) SchemaOption {
	return func(s *Schema) { s.tagged, s.tagField = true, name }
}

// ForbidUnknown rejects unknown fields during conversion and decoding
// instead of dropping them.
func ForbidUnknown() SchemaOption {
	return func(s *Schema) { s.forbidUnknown = true }
}

// Schema is the opaque handle for a registered record type. It is
// returned by Registry.Register and becomes usable once the registry
// is compiled; from then on it is immutable and safe to share.
type Schema struct {
	reg           *Registry
	id            int
	name          string
	fields        []FieldSpec
	byName        map[string]int
	tagged        bool
	tagField      string
	tagValue      string
	forbidUnknown bool
}

// Name returns the registered schema name.
func (s *Schema) Name() string { return s.name }

// Type returns the type-graph node referencing this schema.
func (s *Schema) Type() Type {
	return Type{kind: KindRecord, name: s.name, ref: s.id, reg: s.reg}
}

// NumFields returns the number of declared fields.
func (s *Schema) NumFields() int { return len(s.fields) }

// Field returns the i-th field in declaration order.
func (s *Schema) Field(i int) FieldSpec { return s.fields[i] }

// FieldByName looks a field up by name.
func (s *Schema) FieldByName(name string) (FieldSpec, bool) {
	if i, ok := s.byName[name]; ok {
		return s.fields[i], true
	}
	return FieldSpec{}, false
}

// Tagged reports whether wire forms of this schema carry a
// discriminant field.
func (s *Schema) Tagged() bool { return s.tagged }

// TagField returns the discriminant field name ("" when not tagged).
func (s *Schema) TagField() string { return s.tagField }

// TagValue returns this schema's discriminant value ("" when not
// tagged).
func (s *Schema) TagValue() string { return s.tagValue }

// Union is the opaque handle for a registered union: a precomputed
// discriminant-value lookup over tagged record schemas. Immutable
// after Compile.
type Union struct {
	reg         *Registry
	id          int
	name        string
	memberNames []string
	members     []*Schema
	table       map[string]*Schema
	tagField    string
}

// Name returns the registered union name.
func (u *Union) Name() string { return u.name }

// Type returns the type-graph node referencing this union.
func (u *Union) Type() Type {
	return Type{kind: KindUnion, name: u.name, ref: u.id, reg: u.reg}
}

// Members returns the flattened member schemas in declaration order.
func (u *Union) Members() []*Schema {
	out := make([]*Schema, len(u.members))
	copy(out, u.members)
	return out
}

// Member resolves a discriminant value to its schema in O(1).
func (u *Union) Member(tag string) (*Schema, bool) {
	s, ok := u.table[tag]
	return s, ok
}

// TagField returns the discriminant field name shared by all members.
func (u *Union) TagField() string { return u.tagField }

// contains reports whether s is a member of the union.
func (u *Union) contains(s *Schema) bool {
	for _, m := range u.members {
		if m == s {
			return true
		}
	}
	return false
}
