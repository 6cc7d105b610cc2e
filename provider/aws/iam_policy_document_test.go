package aws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

func TestIAMPolicyDocument_generate(t *testing.T) {
	strptr := func(str string) *string { return &str }

	tests := []struct {
		name  string
		input *IAMPolicyDocument
		want  string
	}{
		{
			"PublicRead",
			&IAMPolicyDocument{
				Statements: []IAMPolicyStatement{{
					ID:         strptr("PublicReadGetObject"),
					Effect:     "Allow",
					Actions:    &[]string{"s3:GetObject"},
					Resources:  &[]string{"arn:aws:s3:::example-website/*"},
					Principals: &map[string][]string{"AWS": {"*"}},
				}},
			},
			minify(`{
				"Version": "2012-10-17",
					"Statement": [{
						"Sid": "PublicReadGetObject",
						"Effect": "Allow",
						"Action": "s3:GetObject",
						"Resource": "arn:aws:s3:::example-website/*",
						"Principal": {
							"AWS": "*"
						}
					}
				]
			}`),
		},
		{
			"ListAndGet",
			&IAMPolicyDocument{
				Version: strptr("2012-10-17"),
				Statements: []IAMPolicyStatement{{
					Effect:    "Allow",
					Actions:   &[]string{"s3:ListBucket", "s3:GetObject", "s3:GetObjectVersion"},
					Resources: &[]string{"*"},
				}},
			},
			minify(`{
				"Version": "2012-10-17",
				"Statement": [{
					"Effect": "Allow",
					"Action": [
						"s3:ListBucket",
						"s3:GetObject",
						"s3:GetObjectVersion"
					],
					"Resource": "*"
				}]
			}`),
		},
		{
			// https://docs.aws.amazon.com/AmazonS3/latest/userguide/security-best-practices.html
			"DenyInsecureTransport",
			&IAMPolicyDocument{
				Statements: []IAMPolicyStatement{{
					Effect:    "Deny",
					Actions:   &[]string{"s3:*"},
					Resources: &[]string{"*"},
					Conditions: &map[string]map[string]string{
						"Bool": {
							"aws:SecureTransport": "false",
						},
						"StringNotEquals": {
							"aws:Referer": "https://example.com",
						},
					},
				}},
			},
			minify(`{
				"Version": "2012-10-17",
				"Statement": [{
					"Effect": "Deny",
					"Action": "s3:*",
					"Resource": "*",
					"Condition": {
						"Bool": {"aws:SecureTransport": "false"},
						"StringNotEquals": {"aws:Referer": "https://example.com"}
					}
				}]
			}`),
		},
		{
			// https://docs.aws.amazon.com/IAM/latest/UserGuide/reference_policies_examples_s3_deny-except-bucket.html
			"LimitToWebsiteBucket",
			&IAMPolicyDocument{
				Statements: []IAMPolicyStatement{{
					Effect:    "Allow",
					Actions:   &[]string{"s3:*"},
					Resources: &[]string{"arn:aws:s3:::site-content", "arn:aws:s3:::site-content/*"},
				}, {
					Effect:       "Deny",
					NotActions:   &[]string{"s3:*"},
					NotResources: &[]string{"arn:aws:s3:::site-logs", "arn:aws:s3:::site-logs/*"},
				}},
			},
			minify(`{
				"Version": "2012-10-17",
				"Statement": [{
					"Effect": "Allow",
					"Action": "s3:*",
					"Resource": [
						"arn:aws:s3:::site-content",
						"arn:aws:s3:::site-content/*"
					]
				}, {
					"Effect": "Deny",
					"NotAction": "s3:*",
					"NotResource": [
						"arn:aws:s3:::site-logs",
						"arn:aws:s3:::site-logs/*"
					]
				}]
			}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.generate()
			if err != nil {
				t.Fatalf("generate() error = %v", err)
			}
			got := tt.input.JSON
			if got != tt.want {
				t.Errorf("Generated doc does not match\n\nGot:\n%s\n\nWant:\n%s", pretty(got), pretty(tt.want))
			}
		})
	}
}

func minify(jsonDoc string) string {
	var b bytes.Buffer
	if err := json.Compact(&b, []byte(jsonDoc)); err != nil {
		return fmt.Sprintf("minify error: %v", err)
	}
	return b.String()
}

func pretty(jsonDoc string) string {
	var b bytes.Buffer
	if err := json.Indent(&b, []byte(jsonDoc), "", "  "); err != nil {
		return fmt.Sprintf("minify error: %v", err)
	}
	return b.String()
}
