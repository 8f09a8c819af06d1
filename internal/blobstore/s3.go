package blobstore

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// DefaultURLValidity is the longest lifetime SigV4 allows for a presigned
// URL. Stored image links are governed by this access policy; consumers
// that need access beyond it must re-presign from the object key embedded
// in the URL path.
const DefaultURLValidity = 7 * 24 * time.Hour

// S3Config holds connection settings for an S3-compatible backend (AWS S3,
// minio, localstack).
type S3Config struct {
	BaseEndpoint string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	// URLValidity bounds presigned GET URLs returned by AccessURL.
	URLValidity time.Duration
}

// S3BlobStore implements BlobStore over the AWS SDK.
type S3BlobStore struct {
	cfg     S3Config
	client  *s3.Client
	presign *s3.PresignClient
}

// NewS3BlobStore builds the SDK client once with static credentials and the
// configured base endpoint.
func NewS3BlobStore(ctx context.Context, c S3Config) (*S3BlobStore, error) {
	if c.URLValidity <= 0 {
		c.URLValidity = DefaultURLValidity
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3BlobStore{
		cfg:     c,
		client:  client,
		presign: newS3PresignClient(client),
	}, nil
}

func (s *S3BlobStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := putObject(s.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	return err
}

func (s *S3BlobStore) AccessURL(ctx context.Context, key string) (string, error) {
	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.cfg.URLValidity))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
