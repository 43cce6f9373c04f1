package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidfriends/vidvault/internal/config"
)

type fakeS3 struct {
	mu sync.Mutex

	bucketExists bool
	headErr      error
	createErr    error
	deleteErr    error

	headCalls   int
	createCalls int
	blockInput  *s3.PutPublicAccessBlockInput
	createInput *s3.CreateBucketInput
	policy      string
	deleted     []string
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headCalls++
	if f.headErr != nil {
		return nil, f.headErr
	}
	if !f.bucketExists {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.createInput = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.bucketExists {
		return nil, &s3types.BucketAlreadyOwnedByYou{}
	}
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutPublicAccessBlock(_ context.Context, in *s3.PutPublicAccessBlockInput, _ ...func(*s3.Options)) (*s3.PutPublicAccessBlockOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockInput = in
	return &s3.PutPublicAccessBlockOutput{}, nil
}

func (f *fakeS3) PutBucketPolicy(_ context.Context, in *s3.PutBucketPolicyInput, _ ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policy = aws.ToString(in.Policy)
	return &s3.PutBucketPolicyOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

type fakeUploader struct {
	mu     sync.Mutex
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (u *fakeUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return nil, u.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	u.inputs = append(u.inputs, in)
	u.bodies = append(u.bodies, string(body))
	return &manager.UploadOutput{}, nil
}

func newTestGateway(client *fakeS3, uploader *fakeUploader, region string) *S3Gateway {
	return NewS3GatewayWithClient(client, uploader, config.ObjectStoreConfig{Bucket: "videos", Region: region})
}

func TestEnsureBucketProvisionsMissingBucket(t *testing.T) {
	client := &fakeS3{}
	gateway := newTestGateway(client, &fakeUploader{}, "eu-west-1")

	require.NoError(t, gateway.EnsureBucket(context.Background()))

	assert.Equal(t, 1, client.createCalls)
	require.NotNil(t, client.createInput.CreateBucketConfiguration)
	assert.Equal(t, s3types.BucketLocationConstraint("eu-west-1"), client.createInput.CreateBucketConfiguration.LocationConstraint)

	require.NotNil(t, client.blockInput)
	cfg := client.blockInput.PublicAccessBlockConfiguration
	assert.False(t, aws.ToBool(cfg.BlockPublicAcls))
	assert.False(t, aws.ToBool(cfg.IgnorePublicAcls))
	assert.False(t, aws.ToBool(cfg.BlockPublicPolicy))
	assert.False(t, aws.ToBool(cfg.RestrictPublicBuckets))

	var policy policyDocument
	require.NoError(t, json.Unmarshal([]byte(client.policy), &policy))
	require.Len(t, policy.Statement, 1)
	assert.Equal(t, "arn:aws:s3:::videos/*", policy.Statement[0].Resource)
	assert.Equal(t, "*", policy.Statement[0].Principal)
	assert.ElementsMatch(t, []string{"s3:GetObject", "s3:PutObject", "s3:DeleteObject"}, policy.Statement[0].Action)
}

func TestEnsureBucketOmitsLocationForUSEast1(t *testing.T) {
	client := &fakeS3{}
	gateway := newTestGateway(client, &fakeUploader{}, "us-east-1")

	require.NoError(t, gateway.EnsureBucket(context.Background()))
	assert.Nil(t, client.createInput.CreateBucketConfiguration)
}

func TestEnsureBucketIsIdempotent(t *testing.T) {
	client := &fakeS3{bucketExists: true}
	gateway := newTestGateway(client, &fakeUploader{}, "us-east-1")

	require.NoError(t, gateway.EnsureBucket(context.Background()))
	require.NoError(t, gateway.EnsureBucket(context.Background()))

	assert.Equal(t, 1, client.headCalls)
	assert.Zero(t, client.createCalls)
	assert.Empty(t, client.policy)
}

func TestEnsureBucketTreatsAlreadyOwnedAsSuccess(t *testing.T) {
	client := &fakeS3{createErr: &s3types.BucketAlreadyOwnedByYou{}}
	gateway := newTestGateway(client, &fakeUploader{}, "us-east-1")

	require.NoError(t, gateway.EnsureBucket(context.Background()))
	assert.NotEmpty(t, client.policy)
}

func TestEnsureBucketConcurrentColdStart(t *testing.T) {
	client := &fakeS3{}
	gateway := newTestGateway(client, &fakeUploader{}, "us-east-1")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = gateway.EnsureBucket(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.GreaterOrEqual(t, client.createCalls, 1)
}

func TestEnsureBucketSurfacesStorageError(t *testing.T) {
	client := &fakeS3{headErr: errors.New("access denied")}
	gateway := newTestGateway(client, &fakeUploader{}, "us-east-1")

	err := gateway.EnsureBucket(context.Background())
	var storageErr *Error
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "head bucket", storageErr.Op)

	client.headErr = nil
	client.bucketExists = true
	assert.NoError(t, gateway.EnsureBucket(context.Background()))
}

func TestUploadSetsObjectMetadata(t *testing.T) {
	client := &fakeS3{bucketExists: true}
	uploader := &fakeUploader{}
	gateway := newTestGateway(client, uploader, "eu-central-1")

	url, err := gateway.Upload(context.Background(), "abc.mp4", strings.NewReader("video-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "https://videos.s3.eu-central-1.amazonaws.com/abc.mp4", url)
	require.Len(t, uploader.inputs, 1)
	in := uploader.inputs[0]
	assert.Equal(t, "videos", aws.ToString(in.Bucket))
	assert.Equal(t, "abc.mp4", aws.ToString(in.Key))
	assert.Equal(t, "video/mp4", aws.ToString(in.ContentType))
	assert.Equal(t, "inline", aws.ToString(in.ContentDisposition))
	assert.Equal(t, "video-bytes", uploader.bodies[0])
}

func TestUploadEnsuresBucketFirst(t *testing.T) {
	client := &fakeS3{}
	uploader := &fakeUploader{}
	gateway := newTestGateway(client, uploader, "us-east-1")

	_, err := gateway.Upload(context.Background(), "abc.mp4", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, client.createCalls)
	assert.Len(t, uploader.inputs, 1)
}

func TestUploadFailureIsStorageError(t *testing.T) {
	client := &fakeS3{bucketExists: true}
	uploader := &fakeUploader{err: errors.New("connection reset")}
	gateway := newTestGateway(client, uploader, "us-east-1")

	_, err := gateway.Upload(context.Background(), "abc.mp4", strings.NewReader("x"))
	var storageErr *Error
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "abc.mp4", storageErr.Key)
}

func TestDelete(t *testing.T) {
	client := &fakeS3{bucketExists: true}
	gateway := newTestGateway(client, &fakeUploader{}, "us-east-1")

	require.NoError(t, gateway.Delete(context.Background(), "abc.mp4"))
	assert.Equal(t, []string{"abc.mp4"}, client.deleted)

	client.deleteErr = errors.New("boom")
	var storageErr *Error
	require.ErrorAs(t, gateway.Delete(context.Background(), "abc.mp4"), &storageErr)
}

func TestPublicBaseURLOverride(t *testing.T) {
	gateway := NewS3GatewayWithClient(&fakeS3{}, &fakeUploader{}, config.ObjectStoreConfig{
		Bucket:        "videos",
		PublicBaseURL: "https://cdn.example.com/",
	})
	assert.Equal(t, "https://cdn.example.com/abc.mp4", gateway.URL("abc.mp4"))
}
