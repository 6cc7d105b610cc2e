// Package config loads project configuration files from disk.
//
// Configuration is written in hcl. The files are loaded using the Loader and
// packed into a single *hclpack.Body, which can be decoded into a resource
// graph.
//
// A typical config file may look something like this:
//
//  project "example" {}
//
//  resource "aws_s3_bucket" "assets" {
//    bucket = "example-assets"
//    region = "us-east-1"
//  }
//
// The first label on a resource block selects the resource type, which
// determines how the body is decoded. The second label is a logical name for
// the resource, unique within the type.
package config
