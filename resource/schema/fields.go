package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// A Field represents an extracted field from a struct.
type Field struct {
	Index int               // The field's index, relative to the parent struct.
	Type  reflect.Type      // The field's type.
	Tags  map[string]string // Struct tags set on the field, excluding terrane and name tags.

	// Required is set if the field must be set in configuration. Only valid
	// on input fields.
	Required bool

	// Immutable is set if the field cannot be updated in place. Changing an
	// immutable input replaces the resource. Only valid on input fields.
	Immutable bool

	dir string // input or output, from the terrane:"" tag
}

// A FieldSet contains extracted schema fields.
type FieldSet map[string]Field

// Inputs filters the FieldSet and returns all fields that are marked as an
// input, based on the terrane:"input" struct tag.
func (ff FieldSet) Inputs() FieldSet {
	out := make(FieldSet, len(ff))
	for k, v := range ff {
		if v.dir == "input" {
			out[k] = v
		}
	}
	return out
}

// Outputs filters the FieldSet and returns all fields that are marked as an
// output, based on the terrane:"output" struct tag.
func (ff FieldSet) Outputs() FieldSet {
	out := make(FieldSet, len(ff))
	for k, v := range ff {
		if v.dir == "output" {
			out[k] = v
		}
	}
	return out
}

// Required filters the FieldSet and returns all fields that must be set in
// configuration.
func (ff FieldSet) Required() FieldSet {
	out := make(FieldSet, len(ff))
	for k, v := range ff {
		if v.Required {
			out[k] = v
		}
	}
	return out
}

// Immutable filters the FieldSet and returns all fields that cannot be
// updated in place.
func (ff FieldSet) Immutable() FieldSet {
	out := make(FieldSet, len(ff))
	for k, v := range ff {
		if v.Immutable {
			out[k] = v
		}
	}
	return out
}

// CtyType converts the FieldSet to a cty object type.
//
// The type is processed deeply, nested structs or pointers to structs are
// included.
//
// Fields that have interface types are not included as they cannot be
// represented in the cty type system.
//
// Panics if a field cannot be converted. See ImpliedType() for details.
func (ff FieldSet) CtyType() cty.Type {
	obj := make(map[string]cty.Type, len(ff))
	for k, v := range ff {
		if v.Type.Kind() == reflect.Interface {
			continue
		}
		obj[k] = ImpliedType(v.Type)
	}
	return cty.Object(obj)
}

// Fields extracts fields from target. Unexported fields are ignored.
//
// All fields are extracted, regardless if they are marked as an input, output
// or neither. The returned FieldSet may be further filtered to get the
// desired fields:
//
//   Name   string `terrane:"input,required"`  // must be set in config
//   Region string `terrane:"input,immutable"` // changing replaces the resource
//   ARN    string `terrane:"output"`          // set by the provider
//
// The terrane struct tag is excluded from the Tags in the returned fields.
//
// The name of the field is derived from the struct field name. For example,
// ExampleField becomes example_field. This can be overridden by setting a
// `name:"<override>"` tag.
//
// Panics if target is not a struct or a pointer to a struct, or if a terrane
// tag option is not recognized.
func Fields(target reflect.Type) FieldSet {
	t := target
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("Target must be a struct or pointer to struct, not %s", target.Kind()))
	}
	fields := make(FieldSet, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		field := Field{
			Type:  f.Type,
			Index: i,
		}
		tag := parseTag(f.Tag)
		var name string
		if n, ok := tag["name"]; ok {
			name = n
			delete(tag, "name")
		} else {
			name = fieldName(f)
		}
		if v, ok := tag["terrane"]; ok {
			parts := strings.Split(v, ",")
			field.dir = parts[0]
			switch parts[0] {
			case "input":
				for _, opt := range parts[1:] {
					switch opt {
					case "required":
						field.Required = true
					case "immutable":
						field.Immutable = true
					default:
						panic(fmt.Sprintf("Unknown option %q on %s.%s", opt, t.Name(), f.Name))
					}
				}
			case "output":
				if len(parts) > 1 {
					panic(fmt.Sprintf("Output field %s.%s cannot have options", t.Name(), f.Name))
				}
			default:
				panic(fmt.Sprintf("Unknown tag value %q on %s.%s", parts[0], t.Name(), f.Name))
			}
			delete(tag, "terrane")
		}
		field.Tags = tag
		fields[name] = field
	}
	return fields
}

// FieldName returns the configuration name for a struct field. It is used
// when converting between structs and cty values so nested structs use the
// same naming rules as schema fields.
func FieldName(field reflect.StructField) string {
	return fieldName(field)
}

// parseTag parses a struct tag string into a map where the key is the key of
// the struct tag and the value is the entire quoted value.
//
//   `example:"foo,bar"`
//   ->
//   map[string]string{"example": "foo,bar"}
//
// The code is mostly copied from go strlib reflect/type.go.
func parseTag(tag reflect.StructTag) map[string]string {
	tags := make(map[string]string)

	for tag != "" {
		// Skip leading space.
		i := 0
		for i < len(tag) && tag[i] == ' ' {
			i++
		}
		tag = tag[i:]
		if tag == "" {
			break
		}

		// Scan to colon. A space, a quote or a control character is a syntax error.
		// Strictly speaking, control chars include the range [0x7f, 0x9f], not just
		// [0x00, 0x1f], but in practice, we ignore the multi-byte control characters
		// as it is simpler to inspect the tag's bytes than the tag's runes.
		i = 0
		for i < len(tag) && tag[i] > ' ' && tag[i] != ':' && tag[i] != '"' && tag[i] != 0x7f {
			i++
		}
		if i == 0 || i+1 >= len(tag) || tag[i] != ':' || tag[i+1] != '"' {
			break
		}
		name := string(tag[:i])
		tag = tag[i+1:]

		// Scan quoted string to find value.
		i = 1
		for i < len(tag) && tag[i] != '"' {
			if tag[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(tag) {
			break
		}
		qvalue := string(tag[:i+1])
		tag = tag[i+1:]

		value, err := strconv.Unquote(qvalue)
		if err != nil {
			panic(fmt.Sprintf("unquote structtag value: %v", err))
		}
		tags[name] = value
	}

	return tags
}
