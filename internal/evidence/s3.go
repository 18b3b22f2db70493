package evidence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"claimchain/internal/sentinel"
)

// S3Store persists blobs to object storage keyed by CID:
//
//	s3://<bucket>/<prefix>/<cid>
//
// Because the key is derived from the content, re-uploading identical bytes
// overwrites the object with identical bytes, which keeps Put idempotent.
type S3Store struct {
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Store creates an S3Store. Region and credentials come from the
// environment (AWS_REGION, AWS_PROFILE, AWS_ACCESS_KEY_ID/SECRET etc.).
func NewS3Store(ctx context.Context, bucket, prefix string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)

	return &S3Store{
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (s *S3Store) key(cid CID) string {
	return path.Join(s.prefix, string(cid))
}

func (s *S3Store) Put(ctx context.Context, data []byte) (CID, error) {
	cid := ComputeCID(data)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(cid)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: s3 put: %v", sentinel.ErrUnavailable, err)
	}
	return cid, nil
}

func (s *S3Store) Get(ctx context.Context, cid CID) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(cid)),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%w: s3 get: %v", sentinel.ErrUnavailable, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: s3 read: %v", sentinel.ErrUnavailable, err)
	}
	return data, nil
}
