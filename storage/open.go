package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
)

// Options selects and configures a backend for Open.
type Options struct {
	Source string // memory, disk or s3
	URI    string // base directory for disk, key prefix for s3

	Bucket    string
	Region    string
	Endpoint  string // custom S3 endpoint, e.g. a LocalStack URL
	AccessKey string
	SecretKey string
}

// Open builds the backend described by opts.
func Open(ctx context.Context, opts Options) (System, error) {
	switch opts.Source {
	case "memory":
		return NewMemoryStorage(), nil
	case "disk", "":
		uri := opts.URI
		if uri == "" {
			uri = "."
		}
		return NewDiskStorage(uri), nil
	case "s3":
		client, err := newS3Client(ctx, opts)
		if err != nil {
			return nil, err
		}
		if opts.Bucket == "" {
			return nil, errors.New("s3 storage needs a bucket")
		}
		return NewS3Storage(client, opts.Bucket, opts.URI), nil
	default:
		return nil, errors.Newf("unsupported storage system: %s", opts.Source)
	}
}

func newS3Client(ctx context.Context, opts Options) (*s3.Client, error) {
	var loadOpts []func(*s3config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, s3config.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, s3config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := s3config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "can not load aws config")
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
