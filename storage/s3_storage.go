package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/cockroachdb/errors"
)

type s3Storage struct {
	Client     *s3.Client
	BucketName string
	Prefix     string
}

// NewS3Storage stores keys as objects in bucketName, below prefix.
func NewS3Storage(client *s3.Client, bucketName string, prefix string) *s3Storage {
	return &s3Storage{Client: client, BucketName: bucketName, Prefix: prefix}
}

func (s *s3Storage) objectKey(key string) string {
	return s.Prefix + key
}

func (s *s3Storage) GetKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var matchedFiles []string
	paginator := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.BucketName),
		Prefix: aws.String(s.objectKey(prefix)),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list S3 objects")
		}

		for _, obj := range page.Contents {
			matchedFiles = append(matchedFiles, aws.ToString(obj.Key)[len(s.Prefix):])
		}
	}

	return matchedFiles, nil
}

// Write uploads data to an S3 bucket with a given key
func (s *s3Storage) Write(ctx context.Context, key string, data []byte) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.BucketName),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(data),
		ACL:    types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return errors.Wrapf(err, "can not write %s", key)
	}
	return nil
}

// s3StreamWriter pipes everything written into a single PutObject that
// completes when the stream is closed.
type s3StreamWriter struct {
	pipeWriter *io.PipeWriter
	wg         sync.WaitGroup
	uploadErr  error
}

func (s *s3StreamWriter) Write(data []byte) (int, error) {
	return s.pipeWriter.Write(data)
}

func (s *s3StreamWriter) Close() error {
	s.pipeWriter.Close()
	s.wg.Wait()
	return s.uploadErr
}

func (s *s3Storage) BeginStream(ctx context.Context, key string) (StreamWriter, error) {
	pipeReader, pipeWriter := io.Pipe()
	w := &s3StreamWriter{pipeWriter: pipeWriter}
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()

		_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.BucketName),
			Key:    aws.String(s.objectKey(key)),
			Body:   pipeReader,
		}, func(o *s3.Options) {
			o.Retryer = aws.NopRetryer{} // a pipe can not be replayed
		})
		if err != nil {
			w.uploadErr = errors.Wrapf(err, "s3 upload of %s failed", key)
		}
		pipeReader.CloseWithError(err)
	}()

	return w, nil
}

// Read downloads data from an S3 bucket for a given key
func (s *s3Storage) Read(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.BucketName),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil, errors.Wrapf(ErrDoesNotExist, "key %s", key)
		}
		return nil, errors.Wrap(err, "failed to get object")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "can not read object")
	}
	return data, nil
}

// Delete removes an object from an S3 bucket for a given key
func (s *s3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.BucketName),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKeyError *types.NoSuchKey
		if errors.As(err, &noSuchKeyError) {
			return nil // Ignore file not found errors
		}
		return errors.Wrapf(err, "can not delete %s", key)
	}
	return nil
}
