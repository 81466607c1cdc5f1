package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"plaksha/ocr-api/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Documents bigger than this go through the multipart uploader
const minMultipartSize = 12 << 20

// S3Archive stores uploads in any S3 compatible bucket (AWS, R2, MinIO)
type S3Archive struct {
	C      *s3.Client
	Bucket *string
}

func NewS3Archive(ctx context.Context, cfg config.Archive) (*S3Archive, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(cfg.Bucket)

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", cfg.Bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &S3Archive{
		C:      client,
		Bucket: bucket,
	}, nil
}

func (a *S3Archive) Put(ctx context.Context, key, contentType string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:        a.Bucket,
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	}

	var err error
	if len(data) > minMultipartSize {
		uploader := manager.NewUploader(a.C, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		})
		_, err = uploader.Upload(ctx, input)
	} else {
		_, err = a.C.PutObject(ctx, input)
	}
	if err != nil {
		return fmt.Errorf("failed to upload document to s3, %w", err)
	}

	return nil
}

func (a *S3Archive) Delete(ctx context.Context, key string) error {
	_, err := a.C.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: a.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete document from s3, %w", err)
	}

	return nil
}
