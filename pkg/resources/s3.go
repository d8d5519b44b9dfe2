package resources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marmos91/lazyhost/internal/logger"
)

func init() {
	Register(Kind{
		Name:        "s3",
		Description: "S3 client; has no cleanup method, so its entry is skipped on drain",
		Open:        openS3,
	})
}

// S3Options configures an s3 member.
type S3Options struct {
	// Bucket is checked with HeadBucket when Verify is set.
	Bucket string `mapstructure:"bucket"`

	// Region is the AWS region.
	// Default: "us-east-1"
	Region string `mapstructure:"region"`

	// Endpoint overrides the service endpoint (MinIO, Localstack).
	Endpoint string `mapstructure:"endpoint"`

	// ForcePathStyle addresses buckets as endpoint/bucket.
	ForcePathStyle bool `mapstructure:"force_path_style"`

	// Static credentials. Empty uses the default AWS credential chain.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`

	// Verify issues a HeadBucket before the client is handed out.
	Verify bool `mapstructure:"verify"`

	// VerifyTimeout bounds the HeadBucket call.
	// Default: 10s
	VerifyTimeout time.Duration `mapstructure:"verify_timeout"`
}

func (o *S3Options) applyDefaults() {
	if o.Region == "" {
		o.Region = "us-east-1"
	}
	if o.VerifyTimeout <= 0 {
		o.VerifyTimeout = 10 * time.Second
	}
}

func (o S3Options) loadOptions() []func(*awsconfig.LoadOptions) error {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(o.Region)}
	if o.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, o.SessionToken),
		))
	}
	return opts
}

func (o S3Options) clientOptions() []func(*s3.Options) {
	var opts []func(*s3.Options)
	if o.Endpoint != "" {
		opts = append(opts, func(so *s3.Options) {
			so.BaseEndpoint = aws.String(o.Endpoint)
		})
	}
	if o.ForcePathStyle {
		opts = append(opts, func(so *s3.Options) {
			so.UsePathStyle = true
		})
	}
	return opts
}

func openS3(ctx context.Context, env Env) (any, error) {
	var opts S3Options
	if err := decodeOptions(env, &opts); err != nil {
		return nil, err
	}
	opts.applyDefaults()
	if opts.Verify && opts.Bucket == "" {
		return nil, fmt.Errorf("member %q: %w", env.Member, errors.New("verify requires a bucket"))
	}
	if (opts.AccessKeyID == "") != (opts.SecretAccessKey == "") {
		return nil, fmt.Errorf("member %q: %w", env.Member, errors.New("access_key_id and secret_access_key must be set together"))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts.loadOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, opts.clientOptions()...)

	if opts.Verify {
		if err := headBucket(ctx, env, client, opts); err != nil {
			return nil, err
		}
	}

	logger.Debug("S3 client created",
		logger.KeyMember, env.Member,
		logger.KeyBucket, opts.Bucket,
		logger.KeyRegion, opts.Region,
		logger.KeyEndpoint, opts.Endpoint)
	return client, nil
}

func headBucket(ctx context.Context, env Env, client *s3.Client, opts S3Options) error {
	ctx, cancel := context.WithTimeout(ctx, opts.VerifyTimeout)
	defer cancel()

	start := time.Now()
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(opts.Bucket)})
	if m := env.Metrics.S3; m != nil {
		m.ObserveOperation(env.Member, "HeadBucket", time.Since(start), err)
	}
	if err != nil {
		return fmt.Errorf("bucket %q not reachable: %w", opts.Bucket, err)
	}
	return nil
}
