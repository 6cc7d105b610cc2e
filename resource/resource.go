package resource

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// A Resource is the desired state of a single resource, as declared by the
// user in configuration.
//
// The resource is immutable after decoding; fields whose values depend on
// another resource's outputs are unknown until the resource is applied.
type Resource struct {
	// Type is the resource type name, matching a registered definition.
	Type string

	// Name is the logical name for the resource, unique within a type.
	Name string

	// Input contains the decoded input values as an object value. Fields
	// that reference another resource's outputs are unknown.
	Input cty.Value

	// Deps contains the addresses of resources this resource depends on.
	Deps []string
}

// Addr returns the address for the resource (type.name). The address uniquely
// identifies the resource within a project.
func (r *Resource) Addr() string {
	return Addr(r.Type, r.Name)
}

// Addr returns the address for a type-name pair.
func Addr(typename, name string) string {
	return fmt.Sprintf("%s.%s", typename, name)
}
