package media

import (
	"context"
	"fmt"
	"io"

	"vidhub/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Host S3及兼容存储（MinIO等）
type S3Host struct {
	client  objectPutter
	bucket  string
	region  string
	baseURL string
}

func NewS3Host(ctx context.Context, cfg config.MediaConfig) (*S3Host, error) {
	if cfg.S3.Bucket == "" {
		return nil, fmt.Errorf("未配置S3 bucket")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3.Region),
	}
	if cfg.S3.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.UsePathStyle
	})

	return newS3Host(client, cfg), nil
}

func newS3Host(client objectPutter, cfg config.MediaConfig) *S3Host {
	return &S3Host{
		client:  client,
		bucket:  cfg.S3.Bucket,
		region:  cfg.S3.Region,
		baseURL: cfg.PublicBaseURL,
	}
}

func (h *S3Host) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return h.objectURL(key), nil
}

func (h *S3Host) objectURL(key string) string {
	if h.baseURL != "" {
		return joinURL(h.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", h.bucket, h.region, key)
}
