// Package schemafile loads schema declaration documents into a
// registry. Documents are YAML (JSON works too, as a YAML subset):
//
//	records:
//	  Address:
//	    fields:
//	      - name: line1
//	        type: string
//	        minimum_length: 5
//	        maximum_length: 64
//	      - name: country
//	        type: string
//	        minimum_length: 2
//	        maximum_length: 2
//	  Point:
//	    tagged: true
//	    fields:
//	      - name: coordinates
//	        type: "[]float"
//	unions:
//	  Geometry:
//	    members: [Point, LineString]
//
// Field order in the document is the schema's declaration order. Type
// expressions use scalar names (bool, int, float, string, bytes,
// timestamp, uuid, any), "[]T" for sequences, "map[string]T" for
// mappings, a trailing "?" for optional, and any other name as a
// record or union reference.
package schemafile

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/recwire/recwire"
)

type document struct {
	Records map[string]recordDecl `yaml:"records"`
	Unions  map[string]unionDecl  `yaml:"unions"`
}

type recordDecl struct {
	Tagged        bool        `yaml:"tagged"`
	Tag           string      `yaml:"tag"`
	TagField      string      `yaml:"tag_field"`
	ForbidUnknown bool        `yaml:"forbid_unknown_fields"`
	Fields        []fieldDecl `yaml:"fields"`
}

type fieldDecl struct {
	Name     string     `yaml:"name"`
	Type     string     `yaml:"type"`
	Default  *yaml.Node `yaml:"default"`
	MinLen   *int       `yaml:"minimum_length"`
	MaxLen   *int       `yaml:"maximum_length"`
	MinValue *float64   `yaml:"minimum_value"`
	MaxValue *float64   `yaml:"maximum_value"`
}

type unionDecl struct {
	Members []string `yaml:"members"`
}

// Load parses a declaration document and registers every record and
// union into reg. The caller still runs reg.Compile, so one registry
// can combine several documents and Go-API registrations before the
// references resolve. Unknown document keys are rejected.
func Load(reg *recwire.Registry, data []byte) error {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return &recwire.SchemaError{Msg: "invalid declaration document", Cause: err}
	}

	// Maps iterate in random order; register sorted so diagnostics are
	// reproducible. Compile itself does not care about order.
	for _, name := range sortedNames(doc.Records) {
		decl := doc.Records[name]
		fields, err := buildFields(name, decl.Fields)
		if err != nil {
			return err
		}
		var opts []recwire.SchemaOption
		if decl.Tagged || decl.Tag != "" || decl.TagField != "" {
			opts = append(opts, recwire.Tagged())
		}
		if decl.Tag != "" {
			opts = append(opts, recwire.TagValue(decl.Tag))
		}
		if decl.TagField != "" {
			opts = append(opts, recwire.TagField(decl.TagField))
		}
		if decl.ForbidUnknown {
			opts = append(opts, recwire.ForbidUnknown())
		}
		reg.Register(name, fields, opts...)
	}

	for _, name := range sortedNames(doc.Unions) {
		reg.RegisterUnion(name, doc.Unions[name].Members...)
	}
	return nil
}

// LoadAndCompile is Load followed by Compile, for the common case of a
// registry declared by a single document.
func LoadAndCompile(data []byte) (*recwire.Registry, error) {
	reg := recwire.NewRegistry()
	if err := Load(reg, data); err != nil {
		return nil, err
	}
	if err := reg.Compile(); err != nil {
		return nil, err
	}
	return reg, nil
}

func buildFields(record string, decls []fieldDecl) ([]recwire.FieldSpec, error) {
	fields := make([]recwire.FieldSpec, 0, len(decls))
	for _, d := range decls {
		if d.Name == "" {
			return nil, &recwire.SchemaError{Name: record, Msg: "field declaration without a name"}
		}
		typ, err := ParseType(d.Type)
		if err != nil {
			return nil, &recwire.SchemaError{Name: record, Msg: fmt.Sprintf("field %q: %v", d.Name, err)}
		}
		var opts []recwire.FieldOption
		if d.Default != nil {
			var v any
			if err := d.Default.Decode(&v); err != nil {
				return nil, &recwire.SchemaError{Name: record, Msg: fmt.Sprintf("field %q: invalid default", d.Name), Cause: err}
			}
			opts = append(opts, recwire.Default(v))
		}
		if d.MinValue != nil {
			opts = append(opts, recwire.Min(*d.MinValue))
		}
		if d.MaxValue != nil {
			opts = append(opts, recwire.Max(*d.MaxValue))
		}
		if d.MinLen != nil {
			opts = append(opts, recwire.MinLen(*d.MinLen))
		}
		if d.MaxLen != nil {
			opts = append(opts, recwire.MaxLen(*d.MaxLen))
		}
		fields = append(fields, recwire.Field(d.Name, typ, opts...))
	}
	return fields, nil
}

// ParseType parses a type expression into an unresolved type. The
// result resolves against whichever registry it is registered into.
func ParseType(expr string) (recwire.Type, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return recwire.Type{}, fmt.Errorf("empty type expression")
	}
	if strings.HasSuffix(expr, "?") {
		inner, err := ParseType(expr[:len(expr)-1])
		if err != nil {
			return recwire.Type{}, err
		}
		return recwire.OptionalOf(inner), nil
	}
	if rest, ok := strings.CutPrefix(expr, "[]"); ok {
		elem, err := ParseType(rest)
		if err != nil {
			return recwire.Type{}, err
		}
		return recwire.SeqOf(elem), nil
	}
	if rest, ok := strings.CutPrefix(expr, "map[string]"); ok {
		val, err := ParseType(rest)
		if err != nil {
			return recwire.Type{}, err
		}
		return recwire.MapOf(val), nil
	}
	switch expr {
	case "bool":
		return recwire.Bool(), nil
	case "int":
		return recwire.Int(), nil
	case "float":
		return recwire.Float(), nil
	case "string":
		return recwire.String(), nil
	case "bytes":
		return recwire.Bytes(), nil
	case "timestamp":
		return recwire.Time(), nil
	case "uuid":
		return recwire.UUID(), nil
	case "any":
		return recwire.Any(), nil
	}
	if strings.ContainsAny(expr, "[]? \t") {
		return recwire.Type{}, fmt.Errorf("malformed type expression %q", expr)
	}
	return recwire.Ref(expr), nil
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
