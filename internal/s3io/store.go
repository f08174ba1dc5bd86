package s3io

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/healthfolio/labtrends-backend/internal/fault"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectAPI is the slice of the S3 client the JSON store needs.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store reads and writes JSON documents in a bucket. Used for the
// intermediate OCR output; writes to the same key overwrite.
type Store struct {
	Client ObjectAPI
	Bucket string
}

// PutJSON marshals v and writes it at key, replacing any previous content.
func (s *Store) PutJSON(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fault.Wrap(fault.Internal, err, "marshal intermediate document")
	}
	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	return fault.Wrap(fault.Transient, err, "put "+key)
}

// GetJSON reads the document at key into v.
func (s *Store) GetJSON(ctx context.Context, key string, v any) error {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fault.Wrap(fault.NotFound, err, "get "+key)
		}
		return fault.Wrap(fault.Transient, err, "get "+key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return fault.Wrap(fault.Transient, err, "read "+key)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fault.Wrap(fault.Internal, err, "decode "+key)
	}
	return nil
}
