package storage

import (
	"bytes"
	"context"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/dipdup-net/acquire/cmd/acquire/config"
	"github.com/dipdup-net/acquire/internal/cache"
	"github.com/pkg/errors"
)

// AWS - cache storage in an S3 bucket
type AWS struct {
	Session *session.Session
	Bucket  *string
	Prefix  string
}

// NewAWS - returns nil if the bucket is not configured
func NewAWS(settings config.AWS) *AWS {
	if settings.AccessKey == "" || settings.BucketName == "" || settings.Region == "" || settings.Secret == "" {
		return nil
	}

	awsConfig := &aws.Config{
		Region:      aws.String(settings.Region),
		Credentials: credentials.NewStaticCredentials(settings.AccessKey, settings.Secret, ""),
		MaxRetries:  aws.Int(3),
	}
	if settings.Endpoint != "" {
		awsConfig.Endpoint = aws.String(settings.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	return &AWS{
		Session: session.Must(session.NewSession(awsConfig)),
		Bucket:  aws.String(settings.BucketName),
		Prefix:  settings.Prefix,
	}
}

// Get -
func (storage *AWS) Get(ctx context.Context, key string) ([]byte, error) {
	downloader := s3manager.NewDownloader(storage.Session)

	buf := aws.NewWriteAtBuffer([]byte{})
	if _, err := downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: storage.Bucket,
		Key:    aws.String(storage.key(key)),
	}); err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, cache.ErrNotFound
		}
		return nil, errors.Wrapf(err, "download %s", key)
	}
	return buf.Bytes(), nil
}

// Put -
func (storage *AWS) Put(ctx context.Context, key string, data []byte) error {
	uploader := s3manager.NewUploader(storage.Session)
	_, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      storage.Bucket,
		Key:         aws.String(storage.key(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	return err
}

func (storage *AWS) key(key string) string {
	if storage.Prefix == "" {
		return key
	}
	return path.Join(storage.Prefix, key)
}
