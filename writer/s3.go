package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "flightlooker/config"
	"flightlooker/logger"
)

// S3Uploader copies finished exports to an S3 bucket so runs from different
// machines land in one place.
type S3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
	log    *logger.Log
}

func NewS3Uploader(ctx context.Context, cfg *appconfig.Config) (*S3Uploader, error) {
	s3cfg := cfg.Storage.S3

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s3cfg.Region),
	}
	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3cfg.AccessKeyID, s3cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: s3cfg.Bucket,
		prefix: s3cfg.Prefix,
		log:    logger.GetLogger(),
	}, nil
}

// Upload stores one export under prefix/name. The local file already exists,
// so upload failures are logged by the caller and never fail the run.
func (u *S3Uploader) Upload(ctx context.Context, name string, data []byte, contentType string) error {
	key := name
	if u.prefix != "" {
		key = path.Join(u.prefix, name)
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to s3://%s: %w", name, u.bucket, err)
	}

	u.log.WithComponent("writer").WithFields(logger.Fields{
		"bucket": u.bucket,
		"key":    key,
		"bytes":  len(data),
	}).Info("export uploaded to S3")
	return nil
}
