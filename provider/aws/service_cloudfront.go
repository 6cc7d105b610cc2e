package aws

import (
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/cloudfrontiface"
	"github.com/terrane/terrane/resource"
)

type cloudfrontService struct {
	client cloudfrontiface.ClientAPI
}

// service returns a CloudFront API Client. If client was set, it is returned.
//
// CloudFront is a global service; all requests go to us-east-1.
func (p *cloudfrontService) service(auth resource.AuthProvider) (cloudfrontiface.ClientAPI, error) {
	if p.client != nil {
		return p.client, nil
	}
	cfg, err := awsConfig(auth, "us-east-1")
	if err != nil {
		return nil, err
	}
	return cloudfront.New(cfg), nil
}
