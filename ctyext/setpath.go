package ctyext

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// SetPath returns a copy of val with the value at the given path replaced by
// newVal. The new value is converted to the type of the value it replaces.
//
// All steps on the path except the last must traverse through known object,
// map or list values.
func SetPath(val cty.Value, path cty.Path, newVal cty.Value) (cty.Value, error) {
	if len(path) == 0 {
		conv, err := convert.Convert(newVal, val.Type())
		if err != nil {
			// The value may legitimately change type when an unknown
			// placeholder is replaced.
			return newVal, nil
		}
		return conv, nil
	}
	if !val.IsKnown() {
		return cty.NilVal, fmt.Errorf("cannot set %s in unknown value", PathString(path))
	}
	switch step := path[0].(type) {
	case cty.GetAttrStep:
		if !val.Type().IsObjectType() {
			return cty.NilVal, fmt.Errorf("cannot set attribute %q in %s", step.Name, val.Type().FriendlyName())
		}
		attrs := val.AsValueMap()
		child, ok := attrs[step.Name]
		if !ok {
			return cty.NilVal, fmt.Errorf("value has no attribute %q", step.Name)
		}
		nv, err := SetPath(child, path[1:], newVal)
		if err != nil {
			return cty.NilVal, err
		}
		attrs[step.Name] = nv
		return cty.ObjectVal(attrs), nil
	case cty.IndexStep:
		switch {
		case val.Type().IsListType() || val.Type().IsTupleType():
			if step.Key.Type() != cty.Number {
				return cty.NilVal, fmt.Errorf("index must be a number")
			}
			idx, _ := step.Key.AsBigFloat().Int64()
			vals := val.AsValueSlice()
			if idx < 0 || int(idx) >= len(vals) {
				return cty.NilVal, fmt.Errorf("index %d out of bounds", idx)
			}
			nv, err := SetPath(vals[idx], path[1:], newVal)
			if err != nil {
				return cty.NilVal, err
			}
			vals[idx] = nv
			if val.Type().IsTupleType() {
				return cty.TupleVal(vals), nil
			}
			return cty.ListVal(vals), nil
		case val.Type().IsMapType():
			if step.Key.Type() != cty.String {
				return cty.NilVal, fmt.Errorf("map key must be a string")
			}
			m := val.AsValueMap()
			key := step.Key.AsString()
			child, ok := m[key]
			if !ok {
				return cty.NilVal, fmt.Errorf("value has no element %q", key)
			}
			nv, err := SetPath(child, path[1:], newVal)
			if err != nil {
				return cty.NilVal, err
			}
			m[key] = nv
			return cty.MapVal(m), nil
		default:
			return cty.NilVal, fmt.Errorf("cannot index %s", val.Type().FriendlyName())
		}
	default:
		return cty.NilVal, fmt.Errorf("unsupported path step %T", step)
	}
}
