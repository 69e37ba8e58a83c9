package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wellnest/backend/internal/infrastructure/config"
)

type fakeS3 struct {
	headErr   error
	createErr error
	putErr    error

	created *s3.CreateBucketInput
	put     *s3.PutObjectInput
	body    []byte
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = in
	return &s3.CreateBucketOutput{}, f.createErr
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.putErr
}

type fakePresigner struct {
	expires time.Duration
	err     error
}

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var o s3.PresignOptions
	for _, fn := range opts {
		fn(&o)
	}
	f.expires = o.Expires
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{URL: "https://objects.example/" + aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key) + "?X-Amz-Signature=x"}, nil
}

func newFakeStore(t *testing.T, region string, expiry time.Duration) (*S3Store, *fakeS3, *fakePresigner) {
	api, p := &fakeS3{}, &fakePresigner{}
	s := newS3Store(api, p, "wellnest-invoices", region, expiry, zaptest.NewLogger(t))
	s.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return s, api, p
}

func TestNewS3Store_Validation(t *testing.T) {
	cases := []struct {
		name string
		cfg  *config.StorageConfig
		want string
	}{
		{"nil", nil, "config is required"},
		{"no bucket", &config.StorageConfig{AccessKey: "k", SecretKey: "s"}, "bucket is required"},
		{"no secret", &config.StorageConfig{Bucket: "b", AccessKey: "k"}, "secret key"},
		{"bad endpoint", &config.StorageConfig{Bucket: "b", AccessKey: "k", SecretKey: "s", Endpoint: "ftp://minio:21"}, "invalid storage endpoint"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewS3Store(tc.cfg, nil)
			assert.ErrorContains(t, err, tc.want)
		})
	}

	s, err := NewS3Store(&config.StorageConfig{Bucket: "wellnest-invoices", AccessKey: "k", SecretKey: "s", UsePathStyle: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultRegion, s.region)
	assert.Equal(t, defaultLinkExpiry, s.expiry)
}

func TestNormalizeEndpoint(t *testing.T) {
	cases := []struct {
		in     string
		ssl    bool
		want   string
		wantOK bool
	}{
		{"", false, "http://localhost:9000", true},
		{"minio:9000", false, "http://minio:9000", true},
		{"minio:9000", true, "https://minio:9000", true},
		{"https://s3.ap-south-1.amazonaws.com/", false, "https://s3.ap-south-1.amazonaws.com", true},
		{"ftp://minio", false, "", false},
		{"http://", false, "", false},
	}
	for _, tc := range cases {
		got, err := normalizeEndpoint(tc.in, tc.ssl)
		if !tc.wantOK {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestS3Store_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("exists", func(t *testing.T) {
		s, api, _ := newFakeStore(t, "ap-south-1", 0)
		require.NoError(t, s.EnsureBucket(ctx))
		assert.Nil(t, api.created)
	})

	t.Run("missing is created in region", func(t *testing.T) {
		s, api, _ := newFakeStore(t, "ap-south-1", 0)
		api.headErr = &types.NotFound{}
		require.NoError(t, s.EnsureBucket(ctx))
		require.NotNil(t, api.created)
		assert.Equal(t, types.BucketLocationConstraint("ap-south-1"), api.created.CreateBucketConfiguration.LocationConstraint)
	})

	t.Run("us-east-1 sends no constraint", func(t *testing.T) {
		s, api, _ := newFakeStore(t, "us-east-1", 0)
		api.headErr = &types.NoSuchBucket{}
		require.NoError(t, s.EnsureBucket(ctx))
		assert.Nil(t, api.created.CreateBucketConfiguration)
	})

	t.Run("lost the race", func(t *testing.T) {
		s, api, _ := newFakeStore(t, "ap-south-1", 0)
		api.headErr = &types.NotFound{}
		api.createErr = &types.BucketAlreadyOwnedByYou{}
		assert.NoError(t, s.EnsureBucket(ctx))
	})

	t.Run("head fails", func(t *testing.T) {
		s, api, _ := newFakeStore(t, "ap-south-1", 0)
		api.headErr = errors.New("access denied")
		assert.ErrorContains(t, s.EnsureBucket(ctx), "head bucket")
		assert.Nil(t, api.created)
	})
}

func TestS3Store_Put(t *testing.T) {
	s, api, _ := newFakeStore(t, "ap-south-1", 0)
	pdf := []byte("%PDF-1.7 invoice")

	require.NoError(t, s.Put(context.Background(), "invoices/WN-20260301-0042.pdf", pdf, "application/pdf"))
	assert.Equal(t, "wellnest-invoices", aws.ToString(api.put.Bucket))
	assert.Equal(t, "application/pdf", aws.ToString(api.put.ContentType))
	assert.Equal(t, `inline; filename="WN-20260301-0042.pdf"`, aws.ToString(api.put.ContentDisposition))
	assert.Equal(t, int64(len(pdf)), aws.ToInt64(api.put.ContentLength))
	assert.Equal(t, pdf, api.body)

	assert.ErrorIs(t, s.Put(context.Background(), "", pdf, "application/pdf"), errEmptyKey)

	api.putErr = errors.New("slow down")
	assert.ErrorContains(t, s.Put(context.Background(), "invoices/x.pdf", pdf, "application/pdf"), "slow down")
}

func TestS3Store_PresignGet(t *testing.T) {
	ctx := context.Background()
	s, _, p := newFakeStore(t, "ap-south-1", 30*time.Minute)
	issued := s.now()

	link, expiresAt, err := s.PresignGet(ctx, "invoices/WN-1.pdf", 0)
	require.NoError(t, err)
	assert.Contains(t, link, "wellnest-invoices/invoices/WN-1.pdf")
	assert.Equal(t, 30*time.Minute, p.expires)
	assert.Equal(t, issued.Add(30*time.Minute), expiresAt)

	_, expiresAt, err = s.PresignGet(ctx, "invoices/WN-1.pdf", 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, maxLinkExpiry, p.expires)
	assert.Equal(t, issued.Add(maxLinkExpiry), expiresAt)

	_, _, err = s.PresignGet(ctx, "", time.Minute)
	assert.ErrorIs(t, err, errEmptyKey)

	p.err = errors.New("no credentials")
	_, _, err = s.PresignGet(ctx, "invoices/WN-1.pdf", time.Minute)
	assert.ErrorContains(t, err, "no credentials")
}
