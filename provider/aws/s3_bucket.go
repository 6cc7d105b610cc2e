package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/s3iface"
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/terrane/terrane/resource"
)

// S3Bucket manages an AWS S3 bucket.
//
// Amazon Simple Storage Service (S3) is an object storage service. A bucket
// is a container for objects stored in S3. Bucket names are globally unique;
// the bucket cannot be renamed or moved to another region after creation.
type S3Bucket struct {
	// Inputs

	// The name of the bucket. The name must be globally unique, between 3
	// and 63 characters, and must not contain uppercase characters.
	//
	// Bucket is a required field.
	Bucket string `terrane:"input,required,immutable" validate:"min=3,max=63"`

	// The region to create the bucket in.
	//
	// Region is a required field.
	Region string `terrane:"input,required,immutable"`

	// The canned ACL to apply to the bucket. Defaults to private.
	ACL *string `terrane:"input" validate:"oneof=private public-read public-read-write authenticated-read"`

	// Static website hosting configuration for the bucket.
	Website *struct {
		// The object key to serve when a directory is requested, for
		// example index.html.
		IndexDocument string

		// The object key to serve when an error occurs.
		ErrorDocument *string
	} `terrane:"input"`

	// Outputs

	// The Amazon Resource Name for the bucket.
	ARN string `terrane:"output"`

	// The website endpoint for the bucket. Only meaningful when a website
	// block is set.
	WebsiteEndpoint string `terrane:"output"`

	s3Service
}

// Type returns the resource type name.
func (p *S3Bucket) Type() string { return "aws_s3_bucket" }

// Create creates a new S3 bucket.
func (p *S3Bucket) Create(ctx context.Context, r *resource.CreateRequest) error {
	svc, err := p.service(r.Auth, p.Region)
	if err != nil {
		return errors.Wrap(err, "get client")
	}

	input := &s3.CreateBucketInput{
		Bucket: aws.String(p.Bucket),
	}
	if p.ACL != nil {
		input.ACL = s3.BucketCannedACL(*p.ACL)
	}
	if p.Region != "us-east-1" {
		// us-east-1 does not accept a location constraint.
		input.CreateBucketConfiguration = &s3.CreateBucketConfiguration{
			LocationConstraint: s3.BucketLocationConstraint(p.Region),
		}
	}
	if err := input.Validate(); err != nil {
		return backoff.Permanent(err)
	}

	if _, err := svc.CreateBucketRequest(input).Send(ctx); err != nil {
		return handlePutError(err)
	}

	if p.Website != nil {
		if err := p.putWebsite(ctx, svc); err != nil {
			return err
		}
	}

	p.setOutputs()
	return nil
}

// Read refreshes the bucket outputs.
func (p *S3Bucket) Read(ctx context.Context, r *resource.ReadRequest) error {
	svc, err := p.service(r.Auth, p.Region)
	if err != nil {
		return errors.Wrap(err, "get client")
	}
	input := &s3.HeadBucketInput{Bucket: aws.String(p.Bucket)}
	if _, err := svc.HeadBucketRequest(input).Send(ctx); err != nil {
		return handlePutError(err)
	}
	p.setOutputs()
	return nil
}

// Update updates the mutable bucket settings.
func (p *S3Bucket) Update(ctx context.Context, r *resource.UpdateRequest) error {
	svc, err := p.service(r.Auth, p.Region)
	if err != nil {
		return errors.Wrap(err, "get client")
	}

	prev := r.Previous.(*S3Bucket)

	if p.ACL != nil && (prev.ACL == nil || *prev.ACL != *p.ACL) {
		input := &s3.PutBucketAclInput{
			Bucket: aws.String(p.Bucket),
			ACL:    s3.BucketCannedACL(*p.ACL),
		}
		if _, err := svc.PutBucketAclRequest(input).Send(ctx); err != nil {
			return handlePutError(err)
		}
	}

	if p.Website != nil {
		if err := p.putWebsite(ctx, svc); err != nil {
			return err
		}
	} else if prev.Website != nil {
		input := &s3.DeleteBucketWebsiteInput{Bucket: aws.String(p.Bucket)}
		if _, err := svc.DeleteBucketWebsiteRequest(input).Send(ctx); err != nil {
			return handlePutError(err)
		}
	}

	p.setOutputs()
	return nil
}

// Delete removes the bucket. The bucket must be empty.
func (p *S3Bucket) Delete(ctx context.Context, r *resource.DeleteRequest) error {
	svc, err := p.service(r.Auth, p.Region)
	if err != nil {
		return errors.Wrap(err, "get client")
	}
	input := &s3.DeleteBucketInput{Bucket: aws.String(p.Bucket)}
	if err := input.Validate(); err != nil {
		return backoff.Permanent(err)
	}
	_, err = svc.DeleteBucketRequest(input).Send(ctx)
	return handleDelError(err)
}

func (p *S3Bucket) putWebsite(ctx context.Context, svc s3iface.ClientAPI) error {
	cfg := &s3.WebsiteConfiguration{
		IndexDocument: &s3.IndexDocument{Suffix: aws.String(p.Website.IndexDocument)},
	}
	if p.Website.ErrorDocument != nil {
		cfg.ErrorDocument = &s3.ErrorDocument{Key: p.Website.ErrorDocument}
	}
	input := &s3.PutBucketWebsiteInput{
		Bucket:               aws.String(p.Bucket),
		WebsiteConfiguration: cfg,
	}
	if err := input.Validate(); err != nil {
		return backoff.Permanent(err)
	}
	if _, err := svc.PutBucketWebsiteRequest(input).Send(ctx); err != nil {
		return handlePutError(err)
	}
	return nil
}

func (p *S3Bucket) setOutputs() {
	p.ARN = bucketARN(p.Bucket)
	p.WebsiteEndpoint = fmt.Sprintf("%s.s3-website-%s.amazonaws.com", p.Bucket, p.Region)
}

func bucketARN(bucket string) string {
	return "arn:aws:s3:::" + bucket
}
