package aws

import (
	"github.com/terrane/terrane/resource"
)

type registry interface {
	Register(resource.Definition)
}

// Register adds all supported AWS resources to the registry.
func Register(reg registry) {
	reg.Register(&CloudFrontDistribution{})
	reg.Register(&IAMPolicyDocument{})
	reg.Register(&S3Bucket{})
	reg.Register(&S3BucketObject{})
	reg.Register(&S3BucketPolicy{})
}
