// Package s3io provides the object-store key scheme, presigned upload
// credentials, and the intermediate JSON store.
package s3io

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigner defines the interface for presigning S3 requests.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// PresignPut generates a time-limited PUT credential for exactly one key.
// The upload/user metadata rides along so the pipeline can recover the
// owning upload even if key parsing ever changes.
func PresignPut(ctx context.Context, p Presigner, bucket, key, contentType string, meta map[string]string, ttl time.Duration) (string, time.Duration, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Metadata:    meta,
	}

	req, err := p.PresignPutObject(ctx, input, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", 0, err
	}
	return req.URL, ttl, nil
}

// UploadHeaders builds the headers the client must send on the presigned PUT.
func UploadHeaders(userID, uploadID, contentType string) map[string]string {
	return map[string]string{
		"Content-Type":         contentType,
		"x-amz-meta-upload_id": uploadID,
		"x-amz-meta-user_id":   userID,
	}
}
