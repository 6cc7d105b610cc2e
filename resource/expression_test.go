package resource_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/terrane/terrane/resource"
	"github.com/zclconf/go-cty/cty"
)

func TestExpression_Value(t *testing.T) {
	vars := resource.EvalVariables(
		&resource.Record{
			Type:  "bucket",
			Name:  "assets",
			Input: cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("my-bucket")}),
			Output: cty.ObjectVal(map[string]cty.Value{
				"arn": cty.StringVal("arn:aws:s3:::my-bucket"),
			}),
		},
		&resource.Record{
			Type:   "dist",
			Name:   "cdn",
			Input:  cty.EmptyObjectVal,
			Output: cty.ObjectVal(map[string]cty.Value{"domain": cty.UnknownVal(cty.String)}),
		},
	)

	tests := []struct {
		name string
		expr resource.Expression
		want cty.Value
	}{
		{
			name: "Literal",
			expr: resource.Expression{
				resource.ExprLiteral{Value: cty.NumberIntVal(3)},
			},
			want: cty.NumberIntVal(3),
		},
		{
			name: "Reference",
			expr: resource.Expression{
				resource.ExprReference{Path: cty.GetAttrPath("bucket").GetAttr("assets").GetAttr("arn")},
			},
			want: cty.StringVal("arn:aws:s3:::my-bucket"),
		},
		{
			name: "ReferenceToInput",
			expr: resource.Expression{
				resource.ExprReference{Path: cty.GetAttrPath("bucket").GetAttr("assets").GetAttr("name")},
			},
			want: cty.StringVal("my-bucket"),
		},
		{
			name: "Concat",
			expr: resource.Expression{
				resource.ExprReference{Path: cty.GetAttrPath("bucket").GetAttr("assets").GetAttr("arn")},
				resource.ExprLiteral{Value: cty.StringVal("/*")},
			},
			want: cty.StringVal("arn:aws:s3:::my-bucket/*"),
		},
		{
			name: "ConcatConvertsToString",
			expr: resource.Expression{
				resource.ExprLiteral{Value: cty.StringVal("v")},
				resource.ExprLiteral{Value: cty.NumberIntVal(2)},
			},
			want: cty.StringVal("v2"),
		},
		{
			name: "UnknownReference",
			expr: resource.Expression{
				resource.ExprReference{Path: cty.GetAttrPath("dist").GetAttr("cdn").GetAttr("domain")},
			},
			want: cty.UnknownVal(cty.String),
		},
		{
			name: "UnknownInConcat",
			expr: resource.Expression{
				resource.ExprLiteral{Value: cty.StringVal("https://")},
				resource.ExprReference{Path: cty.GetAttrPath("dist").GetAttr("cdn").GetAttr("domain")},
			},
			want: cty.UnknownVal(cty.String),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.expr.Value(&resource.EvalContext{Variables: vars})
			if err != nil {
				t.Fatalf("Value() err = %v", err)
			}
			if !got.RawEquals(tt.want) {
				t.Errorf("Value() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestExpression_Value_missingVariable(t *testing.T) {
	expr := resource.Expression{
		resource.ExprReference{Path: cty.GetAttrPath("bucket").GetAttr("assets").GetAttr("arn")},
	}
	_, err := expr.Value(nil)
	if err == nil {
		t.Errorf("Value() with no variables did not return error")
	}
}

func TestExpression_References(t *testing.T) {
	ref := cty.GetAttrPath("bucket").GetAttr("assets").GetAttr("arn")
	expr := resource.Expression{
		resource.ExprLiteral{Value: cty.StringVal("prefix-")},
		resource.ExprReference{Path: ref},
	}
	got := expr.References()
	want := []cty.Path{ref}
	if diff := cmp.Diff(got, want, cmp.Comparer(func(a, b cty.Path) bool { return a.Equals(b) })); diff != "" {
		t.Errorf("References() (-got +want)\n%s", diff)
	}
}
