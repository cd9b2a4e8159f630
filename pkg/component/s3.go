package component

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/nasa-meteo/dashboard/internal/errors"
)

// ObjectGetter is the subset of the S3 client used by S3Source.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads views from an S3 bucket.
//
// Example usage:
//
//	client := component.NewS3Client(component.S3Options{Region: "eu-west-3"})
//	src := component.NewS3Source(client, "meteo-views", "views/")
type S3Source struct {
	client  ObjectGetter
	bucket  string
	prefix  string
	maxSize int64
}

// DefaultMaxViewSize bounds the size of a fetched view.
const DefaultMaxViewSize = 4 << 20

// NewS3Source creates a Source reading objects under prefix in bucket.
func NewS3Source(client ObjectGetter, bucket, prefix string) *S3Source {
	return &S3Source{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		maxSize: DefaultMaxViewSize,
	}
}

// WithMaxSize sets the largest accepted object size in bytes.
func (s *S3Source) WithMaxSize(n int64) *S3Source {
	s.maxSize = n
	return s
}

// Fetch implements Source.
func (s *S3Source) Fetch(ctx context.Context, key string) ([]byte, error) {
	objectKey := s.prefix + strings.TrimPrefix(key, "/")

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if stderrors.As(err, &nsk) {
			return nil, errors.New("E150").WithDetailf("s3://%s/%s", s.bucket, objectKey).Wrap(err)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, objectKey, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, objectKey, err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("s3://%s/%s exceeds %d bytes", s.bucket, objectKey, s.maxSize)
	}
	return data, nil
}

// S3Options configures NewS3Client.
type S3Options struct {
	// Region is the bucket region.
	Region string

	// Endpoint overrides the service endpoint (e.g., a MinIO server).
	Endpoint string

	// PathStyle forces path-style addressing, needed by most S3-compatible
	// servers.
	PathStyle bool
}

// NewS3Client builds an S3 client. Credentials come from AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN; without them requests are
// sent anonymously, which is enough for a public view bucket.
func NewS3Client(opts S3Options) *s3.Client {
	var creds aws.CredentialsProvider = aws.AnonymousCredentials{}
	if id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"); id != "" && secret != "" {
		token := os.Getenv("AWS_SESSION_TOKEN")
		creds = aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     id,
				SecretAccessKey: secret,
				SessionToken:    token,
				Source:          "environment",
			}, nil
		}))
	}

	return s3.New(s3.Options{
		Region:       opts.Region,
		Credentials:  creds,
		BaseEndpoint: optionalString(opts.Endpoint),
		UsePathStyle: opts.PathStyle,
	})
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
