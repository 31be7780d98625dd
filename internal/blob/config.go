package blob

import "errors"

var ErrNoBucket = errors.New("bucket name is required")

type S3BlobConfig struct {
	BucketName    string
	Region        string
	AccessKey     string
	SecretKey     string
	Endpoint      string
	UsePathStyle  bool
	UseAccelerate bool
}

func (c *S3BlobConfig) Validate() error {
	if c.BucketName == "" {
		return ErrNoBucket
	}
	return nil
}

// WithS3Config creates a configuration for an AWS S3 bucket. Empty keys use the default AWS credential
// chain, accelerate routes requests through the Transfer Acceleration endpoint.
func WithS3Config(bucketName, region, accessKey, secretKey string, accelerate bool) *S3BlobConfig {
	return &S3BlobConfig{
		BucketName:    bucketName,
		Region:        region,
		AccessKey:     accessKey,
		SecretKey:     secretKey,
		UseAccelerate: accelerate,
	}
}

// WithMinioConfig creates a configuration for a Minio (or any S3 compatible) bucket
func WithMinioConfig(url, bucketName, accessKey, secretKey string) *S3BlobConfig {
	return &S3BlobConfig{
		BucketName:   bucketName,
		Endpoint:     url,
		Region:       "us-east-1",
		AccessKey:    accessKey,
		SecretKey:    secretKey,
		UsePathStyle: true,
	}
}
