package resource

import "github.com/zclconf/go-cty/cty"

// A Dependency is a dependency for a single field between two resources.
type Dependency struct {
	// Field is the path to the field within the dependent resource. The
	// field is relative to the resource's input.
	Field cty.Path

	// Expression is the expression to resolve for the field. The expression
	// may refer to fields in multiple parent resources.
	Expression Expression
}

// Parents returns the addresses of the parent resources in the dependency's
// expression.
func (d Dependency) Parents() []string {
	refs := d.Expression.References()
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		// Safe to assert, reference paths are checked when the dependency is
		// added to the graph.
		typename := ref[0].(cty.GetAttrStep).Name
		resname := ref[1].(cty.GetAttrStep).Name
		names = append(names, Addr(typename, resname))
	}
	return names
}
