package aws

import (
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/s3iface"
	"github.com/terrane/terrane/resource"
)

type s3Service struct {
	client s3iface.ClientAPI
}

// service returns an S3 API Client. If client was set, it is returned.
func (p *s3Service) service(auth resource.AuthProvider, region string) (s3iface.ClientAPI, error) {
	if p.client != nil {
		return p.client, nil
	}
	cfg, err := awsConfig(auth, region)
	if err != nil {
		return nil, err
	}
	return s3.New(cfg), nil
}
