package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"practice_app_echo/internal/config"
)

// ReceiptStorage uploads payment receipts to an S3-compatible bucket and
// hands back the URL that ends up in Payment.ReceiptURL. Stored URLs are
// permanent, so the bucket must be served from a public base URL.
type ReceiptStorage struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

// NewReceiptStorage builds the S3 client; endpoint overrides allow R2/MinIO
func NewReceiptStorage(ctx context.Context, cfg config.ReceiptConfig) (*ReceiptStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("receipt bucket is not configured")
	}
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("RECEIPT_PUBLIC_BASE_URL is required for bucket %q", cfg.Bucket)
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &ReceiptStorage{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// ReceiptObjectKey namespaces receipts per user and randomises the name
func ReceiptObjectKey(userID uint, filename string) string {
	return fmt.Sprintf("receipts/%d/%s%s", userID, uuid.NewString(), strings.ToLower(path.Ext(filename)))
}

// Upload stores the file and returns a URL for it
func (r *ReceiptStorage) Upload(ctx context.Context, userID uint, filename string, body io.Reader) (string, error) {
	key := ReceiptObjectKey(userID, filename)

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload receipt: %w", err)
	}

	return r.ObjectURL(key), nil
}

// ObjectURL is the public address of an uploaded receipt
func (r *ReceiptStorage) ObjectURL(key string) string {
	return r.publicBase + "/" + strings.TrimPrefix(key, "/")
}
