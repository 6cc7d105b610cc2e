package resource

import (
	"bytes"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// An Expression describes a value for a field.
//
// The Expression may consist of any combination of literals and references.
// The exprPart interface is closed, only ExprLiteral and ExprReference are
// allowed.
type Expression []exprPart

// exprPart is a part in an Expression. The interface is closed, only parts
// declared in this package are allowed.
type exprPart interface{ isExpr() }

// ExprLiteral is a literal value in an expression.
type ExprLiteral struct {
	Value cty.Value
}

func (e ExprLiteral) isExpr() {}

// ExprReference is a part in an expression that has a reference to a field in
// another resource. The first two steps of the path address the resource
// (type.name), the remaining steps traverse into its fields.
type ExprReference struct {
	Path cty.Path
}

func (e ExprReference) isExpr() {}

// References returns all referenced paths that are found in the expression.
//
// If the returned slice is empty, the expression contains no dynamic
// references. Such an expression can be evaluated with expr.Value(nil).
func (expr Expression) References() []cty.Path {
	var parts []cty.Path
	for _, e := range expr {
		if ref, ok := e.(ExprReference); ok {
			parts = append(parts, ref.Path)
		}
	}
	return parts
}

// An EvalContext provides variables for evaluating an expression.
//
// Variables are keyed by resource type; every value is an object of logical
// names, which in turn contain the resource's field values. Reference paths
// are applied against this structure.
type EvalContext struct {
	Variables map[string]cty.Value
}

// Value evaluates the expression value with the given variables.
//
// The following rules apply:
//
//   - If the expression contains a single literal value, it is returned.
//   - If the expression contains a single reference value, the referenced
//     value is extracted from the context and returned.
//   - If the expression contains a combination of values, they are
//     concatenated to a string value. Every value must be convertible to
//     string.
//   - If an unknown value is encountered, an unknown value is returned. If
//     it was the only part in the expression, the type will match this part.
//     Otherwise, the returned value will be an unknown string.
//
// If the expression contains a reference to a variable that was not set in
// the ctx, an error is returned.
//
// A nil ctx is equivalent to an EvalContext with no variables, meaning only
// expressions with static literals can be evaluated.
func (expr Expression) Value(ctx *EvalContext) (cty.Value, error) {
	if ctx == nil {
		ctx = &EvalContext{}
	}
	vals := make([]cty.Value, len(expr))
	for i, e := range expr {
		switch p := e.(type) {
		case ExprLiteral:
			vals[i] = p.Value
		case ExprReference:
			val := cty.ObjectVal(ctx.Variables)
			for _, step := range p.Path {
				v, err := step.Apply(val)
				if err != nil {
					return cty.NilVal, err
				}
				val = v
			}
			vals[i] = val
		default:
			// This should not happen unless we add a new exprPart that is not
			// supported here (always a bug).
			panic(fmt.Sprintf("Not supported: %T", p))
		}
	}
	if len(vals) == 0 {
		return cty.NilVal, nil
	}
	if len(vals) == 1 {
		return vals[0], nil
	}

	// Multiple parts; concatenate into a string.
	var buf bytes.Buffer
	for i, v := range vals {
		if !v.IsKnown() {
			return cty.UnknownVal(cty.String), nil
		}
		if v.Type() != cty.String {
			tmp, err := convert.Convert(v, cty.String)
			if err != nil {
				return cty.NilVal, errors.Wrapf(err, "convert part %d", i)
			}
			v = tmp
		}
		buf.WriteString(v.AsString())
	}
	return cty.StringVal(buf.String()), nil
}

// MergeLiterals merges consecutive literal values into a single literal.
// Parts of the expression that are not literals are returned in place as-is.
func (expr Expression) MergeLiterals() Expression {
	if len(expr) == 1 {
		return expr
	}

	join := func(expr Expression) Expression {
		if len(expr) == 0 {
			return nil
		}
		val, err := expr.Value(nil)
		if err != nil {
			// This should not happen as the expression is only constructed of
			// literal expressions that can be resolved without additional
			// variables.
			panic(err)
		}
		return Expression{ExprLiteral{Value: val}}
	}

	var out Expression // nolint: prealloc
	var pending Expression
	for _, e := range expr {
		if lit, ok := e.(ExprLiteral); ok {
			pending = append(pending, lit)
			continue
		}
		out = append(out, join(pending)...)
		pending = pending[:0]
		out = append(out, e)
	}
	out = append(out, join(pending)...)
	return out
}

// Equals returns true if the expression is equivalent to the other expression.
func (expr Expression) Equals(other Expression) bool {
	opts := []cmp.Option{
		cmp.Transformer("GoString", func(v cty.Value) string { return v.GoString() }),
		cmp.Transformer("Name", func(v cty.GetAttrStep) string { return v.Name }),
		cmp.Transformer("GoString", func(v cty.IndexStep) string { return v.GoString() }),
	}
	return cmp.Equal(expr, other, opts...)
}
