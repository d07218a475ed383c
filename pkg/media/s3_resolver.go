package media

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config contains configuration for the S3 media resolver.
type S3Config struct {
	Bucket      string        `env:"MEDIA_S3_BUCKET,required"`
	Region      string        `env:"MEDIA_S3_REGION" envDefault:"us-east-1"`
	AccessKeyID string        `env:"MEDIA_S3_ACCESS_KEY_ID"`
	SecretKey   string        `env:"MEDIA_S3_SECRET_KEY"`
	Endpoint    string        `env:"MEDIA_S3_ENDPOINT"` // Optional: for S3-compatible services
	URLTTL      time.Duration `env:"MEDIA_S3_URL_TTL" envDefault:"30m"`
}

// S3Resolver resolves media keys to presigned S3 GET URLs. Keys are stored
// namespaced per user, so resolution never exposes another user's objects.
type S3Resolver struct {
	presigner *s3.PresignClient
	bucket    string
	urlTTL    time.Duration
}

// NewS3Resolver creates a resolver over a presign client built from config.
func NewS3Resolver(ctx context.Context, cfg S3Config) (*S3Resolver, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	awsOptions := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		awsOptions = append(awsOptions,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretKey,
				"",
			)),
		)
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	urlTTL := cfg.URLTTL
	if urlTTL <= 0 {
		urlTTL = 30 * time.Minute
	}

	return &S3Resolver{
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		urlTTL:    urlTTL,
	}, nil
}

// Resolve implements Resolver.
func (r *S3Resolver) Resolve(ctx context.Context, mediaKey, userID string) (string, error) {
	if mediaKey == "" {
		return "", ErrKeyEmpty
	}

	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(objectKey(userID, mediaKey)),
	}, s3.WithPresignExpires(r.urlTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign media %q: %w", mediaKey, err)
	}
	return req.URL, nil
}

// objectKey namespaces media objects per user.
func objectKey(userID, mediaKey string) string {
	if userID == "" {
		return mediaKey
	}
	return path.Join(userID, mediaKey)
}
