package ocr

import (
	"context"
	"time"

	"github.com/healthfolio/labtrends-backend/internal/fault"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// DetectAPI is the slice of the Textract client the engine needs.
type DetectAPI interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// Engine wraps the OCR service. Every invocation is wall-clock bounded;
// engine failures surface as transient faults so the queue retries them
// until the budget runs out.
type Engine struct {
	Client  DetectAPI
	Timeout time.Duration
}

// Detect runs OCR on the object at bucket/key and returns the typed
// document.
func (e *Engine) Detect(ctx context.Context, bucket, key string) (*Document, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	out, err := e.Client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{
			S3Object: &types.S3Object{
				Bucket: aws.String(bucket),
				Name:   aws.String(key),
			},
		},
	})
	if err != nil {
		// Throttling, unreadable images and timeouts all retry the same
		// way; the dead-letter path catches persistent failures.
		return nil, fault.Wrap(fault.Transient, err, "detect document text")
	}

	doc := &Document{Blocks: make([]Block, 0, len(out.Blocks))}
	for _, b := range out.Blocks {
		if b.BlockType != types.BlockTypeLine && b.BlockType != types.BlockTypeWord {
			continue
		}
		blk := Block{
			Type: string(b.BlockType),
		}
		if b.Text != nil {
			blk.Text = *b.Text
		}
		if b.Confidence != nil {
			blk.Confidence = float64(*b.Confidence)
		}
		if b.Geometry != nil && b.Geometry.BoundingBox != nil {
			bb := b.Geometry.BoundingBox
			blk.Top = float64(bb.Top)
			blk.Left = float64(bb.Left)
			blk.Width = float64(bb.Width)
			blk.Height = float64(bb.Height)
		}
		doc.Blocks = append(doc.Blocks, blk)
	}
	return doc, nil
}
