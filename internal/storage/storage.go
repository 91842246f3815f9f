package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/pixloom/pixloom/config"
)

// AssetStore writes blobs under fresh unique keys and returns a stable public
// URL. Keys never collide and existing objects are never overwritten, which
// makes the store append-only from the workflow's point of view.
type AssetStore interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

// S3Store implements AssetStore on top of an S3-compatible bucket.
type S3Store struct {
	client        *s3.Client
	bucket        string
	publicURLBase string
}

// NewS3Store builds the store from the storage section of the configuration.
// Credentials are injected here; nothing reads them from process-wide state.
func NewS3Store(ctx context.Context, cnf config.StorageConfig) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cnf.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cnf.AwsAccessKeyId, cnf.AwsSecretAccessKey, "")),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cnf.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cnf.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	base := strings.TrimSuffix(cnf.PublicURLBase, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cnf.S3BucketName, cnf.S3Region)
	}

	return &S3Store{client: client, bucket: cnf.S3BucketName, publicURLBase: base}, nil
}

// Put uploads the blob under a fresh UUID key and returns its public URL.
func (s *S3Store) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	key := fmt.Sprintf("%s%s", uuid.New().String(), extensionFor(contentType))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s", s.publicURLBase, key), nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "audio/mpeg":
		return ".mp3"
	default:
		return ""
	}
}
