package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/awserr"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"github.com/terrane/terrane/resource"
)

// CloudFrontDistribution manages an AWS CloudFront distribution.
//
// CloudFront is a content delivery network that serves content from edge
// locations close to the viewer. The distribution fetches content from a
// single custom origin, such as an S3 website endpoint.
//
// Creating or replacing a distribution takes a long time (typically 15-30
// minutes) while the configuration is propagated to the edge locations.
type CloudFrontDistribution struct {
	// Inputs

	// The domain name CloudFront fetches content from, for example the
	// website endpoint of an S3 bucket.
	//
	// OriginDomain is a required field.
	OriginDomain string `terrane:"input,required,immutable" validate:"fqdn"`

	// An optional path prepended to the request path when fetching from the
	// origin. Must start with a slash.
	OriginPath *string `terrane:"input"`

	// The protocol to use when fetching from the origin. Defaults to
	// http-only, which is the only supported protocol when the origin is an
	// S3 website endpoint.
	OriginProtocolPolicy *string `terrane:"input" validate:"oneof=http-only https-only match-viewer"`

	// Alternate domain names (CNAMEs) for the distribution.
	Aliases []string `terrane:"input"`

	// A comment to describe the distribution.
	Comment *string `terrane:"input" validate:"max=128"`

	// The object to serve when the root URL is requested, for example
	// index.html.
	DefaultRootObject *string `terrane:"input"`

	// Whether the distribution accepts end user requests. Defaults to true.
	Enabled *bool `terrane:"input"`

	// The price class controlling which edge locations serve the
	// distribution.
	PriceClass *string `terrane:"input" validate:"oneof=PriceClass_100 PriceClass_200 PriceClass_All"`

	// The minimum time in seconds an object stays in the CloudFront cache.
	// Defaults to 0.
	MinTTL *int `terrane:"input" validate:"min=0"`

	// Outputs

	// The identifier of the distribution.
	ID string `terrane:"output"`

	// The Amazon Resource Name for the distribution.
	ARN string `terrane:"output"`

	// The domain name assigned to the distribution, for example
	// d111111abcdef8.cloudfront.net.
	DomainName string `terrane:"output"`

	// The current status of the distribution. The distribution is fully
	// propagated when the status is Deployed.
	Status string `terrane:"output"`

	cloudfrontService
}

// Type returns the resource type name.
func (p *CloudFrontDistribution) Type() string { return "aws_cloudfront_distribution" }

// CreateBeforeDelete makes replacements create the new distribution before
// the previous one is removed, avoiding downtime.
func (p *CloudFrontDistribution) CreateBeforeDelete() bool { return true }

// Create creates a new distribution.
func (p *CloudFrontDistribution) Create(ctx context.Context, r *resource.CreateRequest) error {
	svc, err := p.service(r.Auth)
	if err != nil {
		return errors.Wrap(err, "get client")
	}

	input := &cloudfront.CreateDistributionInput{
		DistributionConfig: p.config(ksuid.New().String()),
	}
	if err := input.Validate(); err != nil {
		return backoff.Permanent(err)
	}

	resp, err := svc.CreateDistributionRequest(input).Send(ctx)
	if err != nil {
		return handlePutError(err)
	}

	p.setOutputs(resp.Distribution)
	return nil
}

// Read refreshes the distribution outputs.
func (p *CloudFrontDistribution) Read(ctx context.Context, r *resource.ReadRequest) error {
	svc, err := p.service(r.Auth)
	if err != nil {
		return errors.Wrap(err, "get client")
	}
	input := &cloudfront.GetDistributionInput{Id: aws.String(p.ID)}
	resp, err := svc.GetDistributionRequest(input).Send(ctx)
	if err != nil {
		return handlePutError(err)
	}
	p.setOutputs(resp.Distribution)
	return nil
}

// Update updates the distribution configuration.
func (p *CloudFrontDistribution) Update(ctx context.Context, r *resource.UpdateRequest) error {
	svc, err := p.service(r.Auth)
	if err != nil {
		return errors.Wrap(err, "get client")
	}

	prev := r.Previous.(*CloudFrontDistribution)

	// The update must carry the current etag.
	get, err := svc.GetDistributionConfigRequest(&cloudfront.GetDistributionConfigInput{
		Id: aws.String(prev.ID),
	}).Send(ctx)
	if err != nil {
		return handlePutError(err)
	}

	cfg := p.config("")
	cfg.CallerReference = get.DistributionConfig.CallerReference

	input := &cloudfront.UpdateDistributionInput{
		Id:                 aws.String(prev.ID),
		IfMatch:            get.ETag,
		DistributionConfig: cfg,
	}
	if err := input.Validate(); err != nil {
		return backoff.Permanent(err)
	}

	resp, err := svc.UpdateDistributionRequest(input).Send(ctx)
	if err != nil {
		return handlePutError(err)
	}

	p.setOutputs(resp.Distribution)
	return nil
}

// Delete disables and removes the distribution.
//
// A distribution must be disabled and fully propagated before it can be
// deleted. Deletion is retried until the propagation completes.
func (p *CloudFrontDistribution) Delete(ctx context.Context, r *resource.DeleteRequest) error {
	svc, err := p.service(r.Auth)
	if err != nil {
		return errors.Wrap(err, "get client")
	}

	get, err := svc.GetDistributionConfigRequest(&cloudfront.GetDistributionConfigInput{
		Id: aws.String(p.ID),
	}).Send(ctx)
	if err != nil {
		return handleDelError(err)
	}
	etag := get.ETag

	if get.DistributionConfig.Enabled != nil && *get.DistributionConfig.Enabled {
		cfg := get.DistributionConfig
		cfg.Enabled = aws.Bool(false)
		upd, err := svc.UpdateDistributionRequest(&cloudfront.UpdateDistributionInput{
			Id:                 aws.String(p.ID),
			IfMatch:            etag,
			DistributionConfig: cfg,
		}).Send(ctx)
		if err != nil {
			return handlePutError(err)
		}
		etag = upd.ETag
	}

	_, err = svc.DeleteDistributionRequest(&cloudfront.DeleteDistributionInput{
		Id:      aws.String(p.ID),
		IfMatch: etag,
	}).Send(ctx)
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == cloudfront.ErrCodeDistributionNotDisabled {
			// Still propagating, retry.
			return err
		}
		return handleDelError(err)
	}
	return nil
}

func (p *CloudFrontDistribution) config(callerReference string) *cloudfront.DistributionConfig {
	origin := cloudfront.Origin{
		Id:         aws.String("origin"),
		DomainName: aws.String(p.OriginDomain),
		CustomOriginConfig: &cloudfront.CustomOriginConfig{
			HTTPPort:             aws.Int64(80),
			HTTPSPort:            aws.Int64(443),
			OriginProtocolPolicy: cloudfront.OriginProtocolPolicyHttpOnly,
		},
	}
	if p.OriginPath != nil {
		origin.OriginPath = p.OriginPath
	}
	if p.OriginProtocolPolicy != nil {
		origin.CustomOriginConfig.OriginProtocolPolicy = cloudfront.OriginProtocolPolicy(*p.OriginProtocolPolicy)
	}

	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}

	comment := ""
	if p.Comment != nil {
		comment = *p.Comment
	}

	minTTL := int64(0)
	if p.MinTTL != nil {
		minTTL = int64(*p.MinTTL)
	}

	cfg := &cloudfront.DistributionConfig{
		CallerReference: aws.String(callerReference),
		Comment:         aws.String(comment),
		Enabled:         aws.Bool(enabled),
		Origins: &cloudfront.Origins{
			Quantity: aws.Int64(1),
			Items:    []cloudfront.Origin{origin},
		},
		DefaultCacheBehavior: &cloudfront.DefaultCacheBehavior{
			TargetOriginId: aws.String("origin"),
			ForwardedValues: &cloudfront.ForwardedValues{
				QueryString: aws.Bool(false),
				Cookies: &cloudfront.CookiePreference{
					Forward: cloudfront.ItemSelectionNone,
				},
			},
			TrustedSigners: &cloudfront.TrustedSigners{
				Enabled:  aws.Bool(false),
				Quantity: aws.Int64(0),
			},
			ViewerProtocolPolicy: cloudfront.ViewerProtocolPolicyRedirectToHttps,
			MinTTL:               aws.Int64(minTTL),
		},
	}

	if len(p.Aliases) > 0 {
		cfg.Aliases = &cloudfront.Aliases{
			Quantity: aws.Int64(int64(len(p.Aliases))),
			Items:    p.Aliases,
		}
	}
	if p.DefaultRootObject != nil {
		cfg.DefaultRootObject = p.DefaultRootObject
	}
	if p.PriceClass != nil {
		cfg.PriceClass = cloudfront.PriceClass(*p.PriceClass)
	}

	return cfg
}

func (p *CloudFrontDistribution) setOutputs(dist *cloudfront.Distribution) {
	if dist == nil {
		return
	}
	if dist.Id != nil {
		p.ID = *dist.Id
	}
	if dist.ARN != nil {
		p.ARN = *dist.ARN
	}
	if dist.DomainName != nil {
		p.DomainName = *dist.DomainName
	}
	if dist.Status != nil {
		p.Status = *dist.Status
	}
}
