package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/vidfriends/vidvault/internal/config"
	"github.com/vidfriends/vidvault/internal/logging"
)

// Client is the subset of the S3 API the gateway needs.
type Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutPublicAccessBlock(ctx context.Context, params *s3.PutPublicAccessBlockInput, optFns ...func(*s3.Options)) (*s3.PutPublicAccessBlockOutput, error)
	PutBucketPolicy(ctx context.Context, params *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Uploader puts objects, splitting large bodies into parts.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Error reports a failed object store operation.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3 %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3 %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying SDK error.
func (e *Error) Unwrap() error {
	return e.Err
}

// S3Gateway uploads and deletes video objects in a single bucket,
// provisioning the bucket lazily on first use.
type S3Gateway struct {
	client   Client
	uploader Uploader
	bucket   string
	region   string
	baseURL  string
	ready    atomic.Bool
}

// NewS3Gateway configures a gateway targeting the provided object store.
func NewS3Gateway(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Gateway, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 storage: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return NewS3GatewayWithClient(client, uploader, cfg), nil
}

// NewS3GatewayWithClient builds a gateway around existing SDK clients.
func NewS3GatewayWithClient(client Client, uploader Uploader, cfg config.ObjectStoreConfig) *S3Gateway {
	return &S3Gateway{
		client:   client,
		uploader: uploader,
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		baseURL:  cfg.BaseURL(),
	}
}

// URL returns the public location of key.
func (g *S3Gateway) URL(key string) string {
	return g.baseURL + "/" + strings.TrimLeft(key, "/")
}

// EnsureBucket creates the bucket and opens it for public object access if it does not exist.
// Concurrent callers may both attempt creation; an existing bucket counts as success.
func (g *S3Gateway) EnsureBucket(ctx context.Context) error {
	if g.ready.Load() {
		return nil
	}

	_, err := g.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(g.bucket)})
	switch {
	case err == nil:
	case isNotFound(err):
		if err := g.provision(ctx); err != nil {
			return err
		}
	default:
		return &Error{Op: "head bucket", Key: g.bucket, Err: err}
	}

	g.ready.Store(true)
	return nil
}

func (g *S3Gateway) provision(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	input := &s3.CreateBucketInput{Bucket: aws.String(g.bucket)}
	if g.region != "" && g.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(g.region),
		}
	}
	if _, err := g.client.CreateBucket(ctx, input); err != nil {
		if !isAlreadyExists(err) {
			return &Error{Op: "create bucket", Key: g.bucket, Err: err}
		}
		logger.Info("bucket created concurrently", "bucket", g.bucket)
	} else {
		logger.Info("bucket created", "bucket", g.bucket, "region", g.region)
	}

	_, err := g.client.PutPublicAccessBlock(ctx, &s3.PutPublicAccessBlockInput{
		Bucket: aws.String(g.bucket),
		PublicAccessBlockConfiguration: &s3types.PublicAccessBlockConfiguration{
			BlockPublicAcls:       aws.Bool(false),
			IgnorePublicAcls:      aws.Bool(false),
			BlockPublicPolicy:     aws.Bool(false),
			RestrictPublicBuckets: aws.Bool(false),
		},
	})
	if err != nil {
		return &Error{Op: "put public access block", Key: g.bucket, Err: err}
	}

	policy, err := bucketPolicy(g.bucket)
	if err != nil {
		return &Error{Op: "encode bucket policy", Key: g.bucket, Err: err}
	}
	if _, err := g.client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(g.bucket),
		Policy: aws.String(policy),
	}); err != nil {
		return &Error{Op: "put bucket policy", Key: g.bucket, Err: err}
	}

	return nil
}

// Upload stores body under key as an inline MP4 and returns its public URL.
func (g *S3Gateway) Upload(ctx context.Context, key string, body io.Reader) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", &Error{Op: "upload", Err: errors.New("empty key")}
	}

	if err := g.EnsureBucket(ctx); err != nil {
		return "", err
	}

	_, err := g.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(g.bucket),
		Key:                aws.String(key),
		Body:               body,
		ContentType:        aws.String("video/mp4"),
		ContentDisposition: aws.String("inline"),
	})
	if err != nil {
		return "", &Error{Op: "upload", Key: key, Err: err}
	}

	return g.URL(key), nil
}

// Delete removes the object stored under key.
func (g *S3Gateway) Delete(ctx context.Context, key string) error {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return &Error{Op: "delete", Err: errors.New("empty key")}
	}

	if _, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return &Error{Op: "delete", Key: key, Err: err}
	}
	return nil
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string   `json:"Sid"`
	Effect    string   `json:"Effect"`
	Principal string   `json:"Principal"`
	Action    []string `json:"Action"`
	Resource  string   `json:"Resource"`
}

func bucketPolicy(bucket string) (string, error) {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Sid:       "PublicReadGetObject",
			Effect:    "Allow",
			Principal: "*",
			Action:    []string{"s3:GetObject", "s3:PutObject", "s3:DeleteObject"},
			Resource:  "arn:aws:s3:::" + bucket + "/*",
		}},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchBucket *s3types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}

func isAlreadyExists(err error) bool {
	var owned *s3types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return true
	}
	var exists *s3types.BucketAlreadyExists
	return errors.As(err, &exists)
}
