package awss3

import (
	"github.com/aws/aws-sdk-go-v2/aws"
)

type options struct {
	region          string
	endpoint        string
	forcePathStyle  bool
	maxRetries      int
	accessKeyID     string
	secretAccessKey string
	sessionToken    string
	awsConfig       *aws.Config
}

// Option configures New.
type Option func(*options)

// WithRegion sets the AWS region. Defaults to the region of the loaded
// configuration, or us-east-1.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithEndpoint sets a custom S3 endpoint, such as LocalStack or MinIO.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithForcePathStyle enables path-style addressing.
func WithForcePathStyle(forcePathStyle bool) Option {
	return func(o *options) {
		o.forcePathStyle = forcePathStyle
	}
}

// WithMaxRetries sets the SDK retry attempts per request. These retries are
// independent of the per-part retries of a channel.
func WithMaxRetries(maxRetries int) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
	}
}

// WithStaticCredentials uses fixed credentials instead of the default chain.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(o *options) {
		o.accessKeyID = accessKeyID
		o.secretAccessKey = secretAccessKey
		o.sessionToken = sessionToken
	}
}

// WithAWSConfig uses cfg instead of loading the default configuration.
func WithAWSConfig(cfg *aws.Config) Option {
	return func(o *options) {
		o.awsConfig = cfg
	}
}
