// FILE: launchconf/schema.go
package launchconf

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// FieldType names the value shape a schema field expects.
type FieldType uint8

const (
	TypeBool FieldType = iota + 1
	TypeInt
	TypeFloat
	TypeString
	TypeSequence
	TypeMapping
)

func (t FieldType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeSequence:
		return "sequence"
	case TypeMapping:
		return "mapping"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// ParseFieldType reads the textual type names used in schema documents.
func ParseFieldType(name string) (FieldType, error) {
	switch name {
	case "bool":
		return TypeBool, nil
	case "int":
		return TypeInt, nil
	case "float":
		return TypeFloat, nil
	case "string":
		return TypeString, nil
	case "sequence", "list":
		return TypeSequence, nil
	case "mapping", "map":
		return TypeMapping, nil
	default:
		return 0, fmt.Errorf("unknown field type %q", name)
	}
}

// Field is one schema constraint: the path it addresses, the type expected
// there, an optional closed set of allowed scalar values, and whether the
// path must be present at all. Optional fields are still type-checked when
// present.
type Field struct {
	Path     Path
	Type     FieldType
	Enum     []any
	Required bool
}

// ViolationCode classifies a schema violation.
type ViolationCode uint8

const (
	MissingPath ViolationCode = iota + 1
	WrongKind
	NotInEnum
)

func (c ViolationCode) String() string {
	switch c {
	case MissingPath:
		return "missing_path"
	case WrongKind:
		return "wrong_kind"
	case NotInEnum:
		return "not_in_enum"
	default:
		return fmt.Sprintf("code(%d)", uint8(c))
	}
}

// Violation is one failed constraint. Violations are data, not errors:
// validation walks every field and reports everything wrong at once.
type Violation struct {
	Path   Path
	Code   ViolationCode
	Detail string
}

func (v Violation) String() string {
	return v.Path.String() + ": " + v.Detail
}

// Schema is an ordered set of fields keyed by path. Declaring the same
// path again replaces the earlier constraint, so generated schemas can be
// tightened field by field afterwards.
type Schema struct {
	fields []Field
	byKey  map[string]int
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{byKey: make(map[string]int)}
}

// Add upserts a field. Enum values normalize to the scalar set (ints to
// int64, floats to float64); a non-scalar enum value panics, as schemas
// are static declarations.
func (s *Schema) Add(f Field) *Schema {
	for i, v := range f.Enum {
		f.Enum[i] = Scalar(v).Value()
	}
	if idx, ok := s.byKey[f.Path.Key()]; ok {
		s.fields[idx] = f
		return s
	}
	s.byKey[f.Path.Key()] = len(s.fields)
	s.fields = append(s.fields, f)
	return s
}

// Require declares path as mandatory with the given type. The path string
// must be well formed; Require panics otherwise.
func (s *Schema) Require(path string, t FieldType) *Schema {
	return s.upsert(path, t, true, nil)
}

// Optional declares path as type-checked only when present.
func (s *Schema) Optional(path string, t FieldType) *Schema {
	return s.upsert(path, t, false, nil)
}

// Enum restricts a scalar path to a closed value set. Presence stays as
// previously declared, optional by default.
func (s *Schema) Enum(path string, t FieldType, values ...any) *Schema {
	p := MustParsePath(path)
	required := false
	if idx, ok := s.byKey[p.Key()]; ok {
		required = s.fields[idx].Required
	}
	return s.Add(Field{Path: p, Type: t, Enum: values, Required: required})
}

func (s *Schema) upsert(path string, t FieldType, required bool, enum []any) *Schema {
	p := MustParsePath(path)
	if idx, ok := s.byKey[p.Key()]; ok && enum == nil {
		enum = s.fields[idx].Enum
	}
	return s.Add(Field{Path: p, Type: t, Enum: enum, Required: required})
}

// Len returns the number of declared fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Fields returns the declared fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Validate checks tree against every field and returns all violations in
// declaration order. A nil or empty result means the tree conforms. A
// required path that is absent is MissingPath; a present node of the wrong
// shape is WrongKind; a well-typed scalar outside its enum is NotInEnum.
// An int where a float is expected conforms, the reverse does not. A null
// on an optional field passes, since documents spell "explicitly unset"
// that way; a null on a required field is still a violation.
func (s *Schema) Validate(tree *Node) []Violation {
	var out []Violation
	for _, f := range s.fields {
		node, ok := tree.At(f.Path)
		if !ok {
			if f.Required {
				out = append(out, Violation{
					Path:   f.Path,
					Code:   MissingPath,
					Detail: "required path is missing",
				})
			}
			continue
		}
		if node.IsNull() && !f.Required {
			continue
		}
		if !typeMatches(f.Type, node) {
			out = append(out, Violation{
				Path:   f.Path,
				Code:   WrongKind,
				Detail: fmt.Sprintf("found %s, want %s", describeNode(node), f.Type),
			})
			continue
		}
		if len(f.Enum) > 0 && !enumContains(f, node) {
			out = append(out, Violation{
				Path:   f.Path,
				Code:   NotInEnum,
				Detail: fmt.Sprintf("value %v not in %s", node.Value(), formatEnum(f.Enum)),
			})
		}
	}
	return out
}

func typeMatches(t FieldType, n *Node) bool {
	switch t {
	case TypeSequence:
		return n.Kind() == KindSequence
	case TypeMapping:
		return n.Kind() == KindMapping
	}
	if n.Kind() != KindScalar {
		return false
	}
	switch t {
	case TypeBool:
		_, ok := n.Value().(bool)
		return ok
	case TypeInt:
		_, ok := n.Value().(int64)
		return ok
	case TypeFloat:
		switch n.Value().(type) {
		case float64, int64:
			return true
		}
		return false
	case TypeString:
		_, ok := n.Value().(string)
		return ok
	default:
		return false
	}
}

// describeNode names what actually sits at a path, finer than Kind for
// scalars so violation messages read "found string, want int".
func describeNode(n *Node) string {
	if n.Kind() != KindScalar {
		return n.Kind().String()
	}
	switch n.Value().(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	default:
		return "scalar"
	}
}

func enumContains(f Field, n *Node) bool {
	for _, allowed := range f.Enum {
		if scalarEquals(n.Value(), allowed, f.Type) {
			return true
		}
	}
	return false
}

// scalarEquals compares with int-to-float promotion for float fields, so
// an enum declared as floats accepts integral spellings of its members.
func scalarEquals(got, want any, t FieldType) bool {
	if t == TypeFloat {
		gf, gok := asFloat(got)
		wf, wok := asFloat(want)
		return gok && wok && gf == wf
	}
	return got == want
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

func formatEnum(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// SchemaFromStruct derives a schema from a struct type by reflection.
// Field paths follow yaml tags, falling back to the lowercased field name;
// tags marked "-" and unexported fields are skipped and ",inline" flattens
// into the parent. Nested structs recurse; leaves map to field types by Go
// kind, with time.Duration and time.Time treated as strings since that is
// how they are written in documents. Every derived field is optional;
// tighten the result with Require and Enum. A non-empty prefix is
// prepended to every path.
func SchemaFromStruct(prefix string, sample any) (*Schema, error) {
	t := reflect.TypeOf(sample)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema source must be a struct, got %T", sample)
	}
	var base Path
	if prefix != "" {
		p, err := ParsePath(prefix)
		if err != nil {
			return nil, err
		}
		base = p
	}
	s := NewSchema()
	if err := schemaFields(s, base, t); err != nil {
		return nil, err
	}
	return s, nil
}

func schemaFields(s *Schema, base Path, t reflect.Type) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, inline, skip := yamlFieldName(field)
		if skip {
			continue
		}
		ft := field.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if inline {
			if ft.Kind() == reflect.Struct {
				if err := schemaFields(s, base, ft); err != nil {
					return err
				}
			}
			continue
		}
		path, err := base.Child(name)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		if ft.Kind() == reflect.Struct && ft != reflect.TypeOf(time.Time{}) {
			if err := schemaFields(s, path, ft); err != nil {
				return err
			}
			continue
		}
		fieldType, ok := fieldTypeFor(ft)
		if !ok {
			continue
		}
		s.Add(Field{Path: path, Type: fieldType})
	}
	return nil
}

func yamlFieldName(field reflect.StructField) (name string, inline, skip bool) {
	tag := field.Tag.Get("yaml")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	for _, opt := range parts[1:] {
		if opt == "inline" {
			inline = true
		}
	}
	if name == "" {
		name = strings.ToLower(field.Name)
	}
	return name, inline, false
}

func fieldTypeFor(t reflect.Type) (FieldType, bool) {
	if t == reflect.TypeOf(time.Duration(0)) || t == reflect.TypeOf(time.Time{}) {
		return TypeString, true
	}
	switch t.Kind() {
	case reflect.Bool:
		return TypeBool, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInt, true
	case reflect.Float32, reflect.Float64:
		return TypeFloat, true
	case reflect.String:
		return TypeString, true
	case reflect.Slice, reflect.Array:
		return TypeSequence, true
	case reflect.Map:
		return TypeMapping, true
	default:
		return 0, false
	}
}

// LoadSchema reads a schema document. The document holds a "fields"
// sequence; each entry carries "path" and "type", plus optional "required"
// and "enum". Formats follow LoadDocument.
func LoadSchema(path string) (*Schema, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	return SchemaFromDocument(doc)
}

// SchemaFromDocument builds a schema from an already parsed document tree.
func SchemaFromDocument(doc *Node) (*Schema, error) {
	fieldsNode, ok := doc.Get("fields")
	if !ok {
		return nil, fmt.Errorf("schema document has no \"fields\" key")
	}
	if fieldsNode.Kind() != KindSequence {
		return nil, fmt.Errorf("schema \"fields\" must be a sequence, got %s", fieldsNode.Kind())
	}
	s := NewSchema()
	for i, entry := range fieldsNode.Items() {
		f, err := fieldFromNode(entry)
		if err != nil {
			return nil, fmt.Errorf("schema field %d: %w", i, err)
		}
		s.Add(f)
	}
	return s, nil
}

func fieldFromNode(entry *Node) (Field, error) {
	if entry.Kind() != KindMapping {
		return Field{}, fmt.Errorf("expected a mapping, got %s", entry.Kind())
	}
	pathNode, ok := entry.Get("path")
	if !ok {
		return Field{}, fmt.Errorf("missing \"path\"")
	}
	pathText, ok := pathNode.Value().(string)
	if !ok {
		return Field{}, fmt.Errorf("\"path\" must be a string")
	}
	p, err := ParsePath(pathText)
	if err != nil {
		return Field{}, err
	}
	typeNode, ok := entry.Get("type")
	if !ok {
		return Field{}, fmt.Errorf("missing \"type\" for %q", pathText)
	}
	typeText, ok := typeNode.Value().(string)
	if !ok {
		return Field{}, fmt.Errorf("\"type\" must be a string for %q", pathText)
	}
	ft, err := ParseFieldType(typeText)
	if err != nil {
		return Field{}, err
	}
	f := Field{Path: p, Type: ft}
	if reqNode, ok := entry.Get("required"); ok {
		req, ok := reqNode.Value().(bool)
		if !ok {
			return Field{}, fmt.Errorf("\"required\" must be a bool for %q", pathText)
		}
		f.Required = req
	}
	if enumNode, ok := entry.Get("enum"); ok {
		if enumNode.Kind() != KindSequence {
			return Field{}, fmt.Errorf("\"enum\" must be a sequence for %q", pathText)
		}
		for _, item := range enumNode.Items() {
			if item.Kind() != KindScalar {
				return Field{}, fmt.Errorf("enum values must be scalars for %q", pathText)
			}
			f.Enum = append(f.Enum, item.Value())
		}
	}
	return f, nil
}
