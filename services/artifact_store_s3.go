package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"submission-portal-api/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client the artifact store needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewS3Client builds a client for AWS or any S3 compatible endpoint (MinIO).
func NewS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3ArtifactStore keeps uploads in a bucket under submissions/YYYY/MM.
type S3ArtifactStore struct {
	client S3API
	bucket string
	prefix string
	now    func() time.Time
}

func NewS3ArtifactStore(client S3API, bucket string) *S3ArtifactStore {
	return &S3ArtifactStore{
		client: client,
		bucket: bucket,
		prefix: "submissions",
		now:    time.Now,
	}
}

// Save spools the upload to a temp file first so the SDK gets a seekable
// body with a known length.
func (s *S3ArtifactStore) Save(ctx context.Context, fileName string, r io.Reader) (*StoredArtifact, error) {
	tmp, err := os.CreateTemp("", "artifact-*.zip")
	if err != nil {
		return nil, fmt.Errorf("failed to spool upload: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	size, sum, err := copyWithDigest(ctx, tmp, r)
	if err != nil {
		return nil, fmt.Errorf("failed to spool upload: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind upload: %w", err)
	}

	key := path.Join(s.prefix, s.now().UTC().Format("2006/01"), storedName(fileName))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          tmp,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/zip"),
		Metadata:      map[string]string{"blake2b-256": sum},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return &StoredArtifact{Path: s.location(key), Size: size, Hash: sum}, nil
}

func (s *S3ArtifactStore) Delete(ctx context.Context, location string) error {
	key := strings.TrimPrefix(location, s.location(""))
	if key == "" || key == location {
		return fmt.Errorf("artifact %q is not in bucket %s", location, s.bucket)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3ArtifactStore) location(key string) string {
	return "s3://" + s.bucket + "/" + key
}
