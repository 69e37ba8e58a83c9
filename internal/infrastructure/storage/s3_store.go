// Package storage archives rendered invoices in S3-compatible object storage
// or on the local disk.
package storage

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	invoiceapp "github.com/wellnest/backend/internal/application/invoice"
	"github.com/wellnest/backend/internal/infrastructure/config"
)

const (
	defaultRegion     = "ap-south-1"
	defaultLinkExpiry = 15 * time.Minute
	maxLinkExpiry     = 7 * 24 * time.Hour
)

var (
	_ invoiceapp.ArchiveStore = (*S3Store)(nil)

	errEmptyKey = errors.New("object key is required")
)

// s3API is the slice of the S3 client the archive uses.
type s3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store keeps invoice PDFs in a bucket and hands out presigned download
// links. It talks to AWS S3 or any S3-compatible server such as MinIO.
type S3Store struct {
	api     s3API
	presign presigner
	bucket  string
	region  string
	expiry  time.Duration
	log     *zap.Logger
	now     func() time.Time
}

// NewS3Store builds a store from the storage config section. The endpoint may
// omit its scheme; UseSSL then picks https.
func NewS3Store(cfg *config.StorageConfig, log *zap.Logger) (*S3Store, error) {
	if err := validateStorage(cfg); err != nil {
		return nil, err
	}
	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	region := cmp.Or(cfg.Region, defaultRegion)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Store(client, s3.NewPresignClient(client), cfg.Bucket, region, cfg.PresignExpiration, log), nil
}

func newS3Store(api s3API, p presigner, bucket, region string, expiry time.Duration, log *zap.Logger) *S3Store {
	if expiry <= 0 {
		expiry = defaultLinkExpiry
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &S3Store{
		api:     api,
		presign: p,
		bucket:  bucket,
		region:  region,
		expiry:  min(expiry, maxLinkExpiry),
		log:     log.Named("s3").With(zap.String("bucket", bucket)),
		now:     time.Now,
	}
}

func validateStorage(cfg *config.StorageConfig) error {
	switch {
	case cfg == nil:
		return errors.New("storage config is required")
	case cfg.Bucket == "":
		return errors.New("storage bucket is required")
	case cfg.AccessKey == "" || cfg.SecretKey == "":
		return errors.New("storage access key and secret key are required")
	}
	return nil
}

// normalizeEndpoint defaults to a local MinIO and adds a missing scheme.
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	if !strings.Contains(endpoint, "://") {
		scheme := "http://"
		if useSSL {
			scheme = "https://"
		}
		endpoint = scheme + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid storage endpoint %q", endpoint)
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}

// EnsureBucket creates the bucket on first start. Losing a creation race to
// another instance is fine.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noBucket) {
		return fmt.Errorf("head bucket: %w", err)
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	// us-east-1 rejects an explicit location constraint
	if s.region != "" && s.region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.api.CreateBucket(ctx, in); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	s.log.Info("Created invoice bucket")
	return nil
}

// Put uploads one invoice. The object is served inline under its file name.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errEmptyKey
	}
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(data),
		ContentLength:      aws.Int64(int64(len(data))),
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String(fmt.Sprintf("inline; filename=%q", path.Base(key))),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	s.log.Debug("Archived object", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// PresignGet returns a time-limited download link for key. A non-positive
// expiresIn uses the configured expiry; links never outlive seven days.
func (s *S3Store) PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errEmptyKey
	}
	if expiresIn <= 0 {
		expiresIn = s.expiry
	}
	expiresIn = min(expiresIn, maxLinkExpiry)

	issued := s.now()
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, issued.Add(expiresIn), nil
}
