package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/msomdec/gohans-journey/internal/domain"
)

// S3Config describes an S3-compatible bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Custom endpoint for MinIO, R2 and friends
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string // When set, objects are linked directly
}

// objectAPI is the subset of *s3.Client the store uses.
type objectAPI interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store implements domain.FileStore on an S3 bucket. The client is
// created on first use; a missing bucket or credential is reported then
// as domain.ErrNotConfigured.
type S3Store struct {
	cfg S3Config

	mu       sync.Mutex
	client   objectAPI
	uploader *manager.Uploader
}

// NewS3Store returns a store for cfg without contacting S3.
func NewS3Store(cfg S3Config) *S3Store {
	return &S3Store{cfg: cfg}
}

func newS3StoreWithClient(cfg S3Config, client objectAPI) *S3Store {
	return &S3Store{cfg: cfg, client: client, uploader: manager.NewUploader(client)}
}

func (s *S3Store) init(ctx context.Context) (objectAPI, *manager.Uploader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, s.uploader, nil
	}
	if s.cfg.Bucket == "" {
		return nil, nil, fmt.Errorf("%w: BLOB_BUCKET is not set", domain.ErrNotConfigured)
	}
	if s.cfg.AccessKeyID == "" || s.cfg.SecretAccessKey == "" {
		return nil, nil, fmt.Errorf("%w: blob storage credentials are not set", domain.ErrNotConfigured)
	}

	awsConf, err := awscfg.LoadDefaultConfig(ctx,
		awscfg.WithRegion(s.cfg.Region),
		awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.AccessKeyID, s.cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConf, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	s.client = client
	s.uploader = manager.NewUploader(client)
	return s.client, s.uploader, nil
}

func (s *S3Store) Save(ctx context.Context, key, contentType string, data []byte) error {
	_, uploader, err := s.init(ctx)
	if err != nil {
		return err
	}

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := uploader.Upload(ctx, in); err != nil {
		return fmt.Errorf("upload object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	client, _, err := s.init(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	client, _, err := s.init(ctx)
	if err != nil {
		return err
	}

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// PublicURL links key directly in the bucket when a public base URL is
// configured.
func (s *S3Store) PublicURL(key string) (string, bool) {
	if s.cfg.PublicBaseURL == "" {
		return "", false
	}
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + url.PathEscape(key), true
}
