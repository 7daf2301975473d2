package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"hlsladder/internal/services"
)

// putObjectAPI is the subset of the S3 client used here.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures an S3 or S3-compatible (MinIO) backend.
type S3Options struct {
	// Endpoint overrides the AWS endpoint; a bare host:port gets a scheme from UseSSL.
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
	// Timeout bounds each PutObject call; zero disables it.
	Timeout time.Duration
}

// S3Store uploads artifacts with PutObject.
type S3Store struct {
	client  putObjectAPI
	timeout time.Duration
}

// NewS3Store resolves AWS configuration and builds an S3 client. Static
// credentials are used when both keys are set; otherwise the default
// provider chain applies.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "load aws config", "", err)
	}

	endpoint := endpointURL(opts.Endpoint, opts.UseSSL)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &S3Store{client: client, timeout: opts.Timeout}, nil
}

func endpointURL(endpoint string, useSSL bool) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// PutObject uploads localPath to bucket/key with an HLS-aware content type.
func (s *S3Store) PutObject(ctx context.Context, bucket, key, localPath string) error {
	if s == nil || s.client == nil {
		return services.Wrap(services.ErrConfiguration, "publish", "put object", "s3 client not configured", nil)
	}
	key, err := cleanKey(key)
	if err != nil {
		return services.Wrap(services.ErrValidation, "publish", "put object", "", err)
	}
	file, err := os.Open(localPath)
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "publish", "open artifact", localPath, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "publish", "stat artifact", localPath, err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(ContentType(localPath)),
	})
	if err != nil {
		marker := services.ErrStorage
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			marker = services.ErrTimeout
		}
		return services.Wrap(marker, "publish", "put object", fmt.Sprintf("s3://%s/%s", bucket, key), err)
	}
	return nil
}

var _ ObjectStore = (*S3Store)(nil)
