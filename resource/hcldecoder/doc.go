// Package hcldecoder decodes hcl2 configuration into a resource graph.
//
// A config may look something like this:
//
//   project "website" {}
//
//   resource "aws_s3_bucket" "assets" {
//       bucket = "example-assets"
//       region = "us-east-1"
//   }
//
//   resource "aws_s3_bucket_object" "index" {
//       bucket = aws_s3_bucket.assets.bucket
//       key    = "index.html"
//   }
//
// The first label on a resource block selects the resource type, which
// determines how the rest of the body is decoded. The type is matched
// against registered resource definitions to produce a schema.
//
// The package will return hcl.Diagnostics for any errors, which should
// always be displayed to the user. If the diagnostics contain errors, the
// graph may be partially populated but should not be considered correct or
// complete.
//
// Dependencies
//
// A resource may refer to a field in another resource:
//
//   bucket = aws_s3_bucket.assets.bucket
//
// References can also be combined with literals in string templates:
//
//   comment = "distribution for ${aws_s3_bucket.assets.bucket}"
//
// References that can be statically resolved are not turned into
// dependencies. In the example above, bucket refers to an input of the
// bucket resource, so the value is populated directly from configuration.
//
// References to outputs can only be resolved once the referenced resource
// has been applied. Such references become dependencies in the graph, and
// the field is unknown until the dependency is resolved:
//
//   domain_name = aws_cloudfront_distribution.cdn.domain_name
//
// Outputs
//
// An output block binds a name to a value, evaluated after resources have
// been applied:
//
//   output "url" {
//       value = "https://${aws_cloudfront_distribution.cdn.domain_name}"
//   }
package hcldecoder
