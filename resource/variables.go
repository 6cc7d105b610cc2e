package resource

import "github.com/zclconf/go-cty/cty"

// EvalVariables builds expression variables from resource records.
//
// Every record contributes its input and output fields to the variables,
// keyed by resource type and name. The result can be used in an EvalContext
// to resolve reference expressions:
//
//   aws_s3_bucket.assets.bucket
//
// resolves to the bucket field of the record for aws_s3_bucket.assets.
func EvalVariables(records ...*Record) map[string]cty.Value {
	byType := make(map[string]map[string]cty.Value)
	for _, rec := range records {
		fields := make(map[string]cty.Value)
		mergeAttrs(fields, rec.Input)
		mergeAttrs(fields, rec.Output)
		names := byType[rec.Type]
		if names == nil {
			names = make(map[string]cty.Value)
			byType[rec.Type] = names
		}
		if len(fields) == 0 {
			names[rec.Name] = cty.EmptyObjectVal
			continue
		}
		names[rec.Name] = cty.ObjectVal(fields)
	}
	vars := make(map[string]cty.Value, len(byType))
	for typename, names := range byType {
		vars[typename] = cty.ObjectVal(names)
	}
	return vars
}

func mergeAttrs(into map[string]cty.Value, val cty.Value) {
	if val.IsNull() || !val.IsKnown() || !val.Type().IsObjectType() {
		return
	}
	for k, v := range val.AsValueMap() {
		into[k] = v
	}
}
