// Package schema derives resource schemas from struct definitions.
//
// A resource definition declares its inputs and outputs with struct tags:
//
//   type Bucket struct {
//       Name   string            `terrane:"input,required"`
//       Region string            `terrane:"input,required,immutable"`
//       Tags   map[string]string `terrane:"input"`
//
//       ARN string `terrane:"output"`
//   }
//
// Input fields are set from configuration. Required inputs must be present,
// immutable inputs cannot change without replacing the resource. Output
// fields are set by the provider when the resource is created or updated.
//
// Field names are converted to snake_case. The name can be overridden with
// a name tag:
//
//   LongFieldName string `terrane:"input" name:"custom_name"`
package schema
