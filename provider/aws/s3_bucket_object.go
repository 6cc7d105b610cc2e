package aws

import (
	"bytes"
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/terrane/terrane/resource"
)

// S3BucketObject manages an object in an S3 bucket.
//
// The object content is stored inline in the configuration, which makes the
// resource suitable for small files such as website documents.
type S3BucketObject struct {
	// Inputs

	// The name of the bucket to store the object in.
	//
	// Bucket is a required field.
	Bucket string `terrane:"input,required,immutable"`

	// The object key.
	//
	// Key is a required field.
	Key string `terrane:"input,required,immutable"`

	// The region the bucket is in.
	//
	// Region is a required field.
	Region string `terrane:"input,required,immutable"`

	// The content to store.
	Content string `terrane:"input,required"`

	// A standard MIME type describing the content, for example text/html.
	ContentType *string `terrane:"input"`

	// The canned ACL to apply to the object. Defaults to private.
	ACL *string `terrane:"input" validate:"oneof=private public-read public-read-write authenticated-read"`

	// Outputs

	// The entity tag assigned to the stored object.
	ETag string `terrane:"output"`

	s3Service
}

// Type returns the resource type name.
func (p *S3BucketObject) Type() string { return "aws_s3_bucket_object" }

// Create stores the object.
func (p *S3BucketObject) Create(ctx context.Context, r *resource.CreateRequest) error {
	return p.put(ctx, r.Auth)
}

// Read refreshes the object outputs.
func (p *S3BucketObject) Read(ctx context.Context, r *resource.ReadRequest) error {
	svc, err := p.service(r.Auth, p.Region)
	if err != nil {
		return errors.Wrap(err, "get client")
	}
	input := &s3.HeadObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(p.Key),
	}
	resp, err := svc.HeadObjectRequest(input).Send(ctx)
	if err != nil {
		return handlePutError(err)
	}
	if resp.ETag != nil {
		p.ETag = strings.Trim(*resp.ETag, `"`)
	}
	return nil
}

// Update overwrites the object with the new content.
func (p *S3BucketObject) Update(ctx context.Context, r *resource.UpdateRequest) error {
	return p.put(ctx, r.Auth)
}

// Delete removes the object.
func (p *S3BucketObject) Delete(ctx context.Context, r *resource.DeleteRequest) error {
	svc, err := p.service(r.Auth, p.Region)
	if err != nil {
		return errors.Wrap(err, "get client")
	}
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(p.Key),
	}
	if err := input.Validate(); err != nil {
		return backoff.Permanent(err)
	}
	_, err = svc.DeleteObjectRequest(input).Send(ctx)
	return handleDelError(err)
}

func (p *S3BucketObject) put(ctx context.Context, auth resource.AuthProvider) error {
	svc, err := p.service(auth, p.Region)
	if err != nil {
		return errors.Wrap(err, "get client")
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(p.Key),
		Body:   bytes.NewReader([]byte(p.Content)),
	}
	if p.ContentType != nil {
		input.ContentType = p.ContentType
	}
	if p.ACL != nil {
		input.ACL = s3.ObjectCannedACL(*p.ACL)
	}
	if err := input.Validate(); err != nil {
		return backoff.Permanent(err)
	}

	resp, err := svc.PutObjectRequest(input).Send(ctx)
	if err != nil {
		return handlePutError(err)
	}
	if resp.ETag != nil {
		p.ETag = strings.Trim(*resp.ETag, `"`)
	}
	return nil
}
