package resource

import "github.com/zclconf/go-cty/cty"

// A Record is the last applied state of a single resource.
//
// Records are owned by the state store. They are written only after a
// provider operation has been confirmed, and never modified during planning.
type Record struct {
	// Type is the resource type name.
	Type string

	// Name is the logical name of the resource.
	Name string

	// Input contains the input values that were applied. All values are
	// known; references were resolved before the resource was applied.
	Input cty.Value

	// Output contains the provider assigned output values.
	Output cty.Value

	// Deps contains the addresses of resources that were dependencies when
	// the resource was applied. Used for ordering deletes.
	Deps []string
}

// Addr returns the address for the record (type.name).
func (r *Record) Addr() string {
	return Addr(r.Type, r.Name)
}
