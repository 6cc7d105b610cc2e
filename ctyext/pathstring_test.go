package ctyext_test

import (
	"fmt"
	"testing"

	"github.com/terrane/terrane/ctyext"
	"github.com/google/go-cmp/cmp"
	"github.com/zclconf/go-cty/cty"
)

func ExamplePathString() {
	path := cty.
		GetAttrPath("website").
		GetAttr("routing_rules").
		Index(cty.NumberIntVal(1)).
		Index(cty.StringVal("redirect"))

	fmt.Println(ctyext.PathString(path))
	// Output: website.routing_rules[1]["redirect"]
}

func TestParsePathString(t *testing.T) {
	tests := []struct {
		str  string
		want cty.Path
	}{
		{
			``,
			cty.Path{},
		},
		{
			`a`,
			cty.GetAttrPath("a"),
		},
		{
			`a.b.c`,
			cty.GetAttrPath("a").GetAttr("b").GetAttr("c"),
		},
		{
			`a[1]`,
			cty.GetAttrPath("a").Index(cty.NumberIntVal(1)),
		},
		{
			`a["b"]`,
			cty.GetAttrPath("a").Index(cty.StringVal("b")),
		},
		{
			`a.b["cde"][3].f`,
			cty.GetAttrPath("a").GetAttr("b").Index(cty.StringVal("cde")).Index(cty.NumberIntVal(3)).GetAttr("f"),
		},
		{
			`origin.custom_header["X-Env"]`,
			cty.GetAttrPath("origin").GetAttr("custom_header").Index(cty.StringVal("X-Env")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			got, err := ctyext.ParsePathString(tt.str)
			if err != nil {
				t.Fatalf("ParsePathString() err = %v", err)
			}
			opts := []cmp.Option{
				cmp.Comparer(func(a, b cty.Path) bool {
					return a.Equals(b)
				}),
			}
			if diff := cmp.Diff(got, tt.want, opts...); diff != "" {
				t.Errorf("Diff (-got +want)\n%s", diff)
			}
		})
	}
}
