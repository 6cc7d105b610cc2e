package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/terrane/terrane/resource"
)

// S3BucketPolicy manages the resource policy of an S3 bucket.
//
// The policy document can be generated with aws_iam_policy_document:
//
//   resource "aws_iam_policy_document" "public" {
//     statement {
//       effect    = "Allow"
//       actions   = ["s3:GetObject"]
//       resources = ["${aws_s3_bucket.site.arn}/*"]
//       principals = {
//         AWS = ["*"]
//       }
//     }
//   }
//
//   resource "aws_s3_bucket_policy" "site" {
//     bucket = aws_s3_bucket.site.bucket
//     region = aws_s3_bucket.site.region
//     policy = aws_iam_policy_document.public.json
//   }
type S3BucketPolicy struct {
	// Inputs

	// The name of the bucket to attach the policy to.
	//
	// Bucket is a required field.
	Bucket string `terrane:"input,required,immutable"`

	// The region the bucket is in.
	//
	// Region is a required field.
	Region string `terrane:"input,required,immutable"`

	// The policy document as JSON.
	//
	// Policy is a required field.
	Policy string `terrane:"input,required" validate:"json"`

	s3Service
}

// Type returns the resource type name.
func (p *S3BucketPolicy) Type() string { return "aws_s3_bucket_policy" }

// Create attaches the policy to the bucket.
func (p *S3BucketPolicy) Create(ctx context.Context, r *resource.CreateRequest) error {
	return p.put(ctx, r.Auth)
}

// Read is a no-op, the policy has no outputs.
func (p *S3BucketPolicy) Read(ctx context.Context, r *resource.ReadRequest) error {
	return nil
}

// Update replaces the bucket policy.
func (p *S3BucketPolicy) Update(ctx context.Context, r *resource.UpdateRequest) error {
	return p.put(ctx, r.Auth)
}

// Delete removes the policy from the bucket.
func (p *S3BucketPolicy) Delete(ctx context.Context, r *resource.DeleteRequest) error {
	svc, err := p.service(r.Auth, p.Region)
	if err != nil {
		return errors.Wrap(err, "get client")
	}
	input := &s3.DeleteBucketPolicyInput{Bucket: aws.String(p.Bucket)}
	if err := input.Validate(); err != nil {
		return backoff.Permanent(err)
	}
	_, err = svc.DeleteBucketPolicyRequest(input).Send(ctx)
	return handleDelError(err)
}

func (p *S3BucketPolicy) put(ctx context.Context, auth resource.AuthProvider) error {
	svc, err := p.service(auth, p.Region)
	if err != nil {
		return errors.Wrap(err, "get client")
	}
	input := &s3.PutBucketPolicyInput{
		Bucket: aws.String(p.Bucket),
		Policy: aws.String(p.Policy),
	}
	if err := input.Validate(); err != nil {
		return backoff.Permanent(err)
	}
	if _, err := svc.PutBucketPolicyRequest(input).Send(ctx); err != nil {
		return handlePutError(err)
	}
	return nil
}
