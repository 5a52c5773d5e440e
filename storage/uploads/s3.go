package uploads

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

type s3Store struct {
	client *s3.S3
	bucket string
}

var _ core.UploadStore = (*s3Store)(nil)

// NewS3Store returns an UploadStore backed by an S3 bucket. Credentials
// come from the default AWS chain (env, shared config, instance role).
func NewS3Store(conf *core.Config) (*s3Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(conf.Uploads.S3Region),
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating AWS session")
	}
	return &s3Store{
		client: s3.New(sess),
		bucket: conf.Uploads.S3Bucket,
	}, nil
}

func (s *s3Store) Save(ctx context.Context, key string, r io.Reader) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   aws.ReadSeekCloser(r),
	})
	return errors.Wrap(err, "putting upload object")
}

func (s *s3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrap(err, "getting upload object")
	}
	return result.Body, nil
}
