package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"botpos-chat-backend/internal/database"
	"botpos-chat-backend/internal/env"
	"botpos-chat-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	now       func() time.Time
}

// NewS3Store builds a store for ATTACHMENTS_BUCKET. S3_ENDPOINT selects an
// S3-compatible provider such as R2 or MinIO.
func NewS3Store(ctx context.Context) (*S3Store, error) {
	if err := env.Require(env.AttachmentBucket); err != nil {
		return nil, err
	}
	cfg, err := database.LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	var opts []func(*s3.Options)
	if endpoint := env.Get(env.S3Endpoint); endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(cfg, opts...)
	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    env.Get(env.AttachmentBucket),
		now:       time.Now,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, name, contentType string, body io.Reader, size int64) (model.Attachment, error) {
	if err := checkSize(size); err != nil {
		return model.Attachment{}, err
	}

	key := ObjectKey(s.now(), name)
	ct := ContentType(contentType, name)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(ct),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return model.Attachment{}, fmt.Errorf("s3 upload %s: %w", key, err)
	}

	url, err := s.SignedURL(ctx, key)
	if err != nil {
		return model.Attachment{}, err
	}

	return model.Attachment{
		URL:      url,
		MimeType: ct,
		Name:     path.Base(name),
		Size:     size,
		Key:      key,
	}, nil
}

func (s *S3Store) SignedURL(ctx context.Context, key string) (string, error) {
	presigned, err := s.presigner.PresignGetObject(ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		},
		func(po *s3.PresignOptions) {
			po.Expires = signedURLTTL
		},
	)
	if err != nil {
		return "", fmt.Errorf("s3 presign %s: %w", key, err)
	}
	return presigned.URL, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}
