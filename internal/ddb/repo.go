// Package ddb is the repository over the single DynamoDB table holding
// pending uploads, indicator records, and stage idempotence markers.
package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/healthfolio/labtrends-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// API is the slice of the DynamoDB client the repository uses. Narrow so
// tests can substitute fakes.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Repo wraps a DynamoDB client and table name.
type Repo struct {
	DB    API
	Table string
}

// Composite key builders. One table for all item types.
func userPK(userID string) string      { return fmt.Sprintf("USER#%s", userID) }
func uploadSK(uploadID string) string  { return fmt.Sprintf("UPLOAD#%s", uploadID) }
func recordSK(recordID string) string  { return fmt.Sprintf("REC#%s", recordID) }
func objectPK(objectKey string) string { return fmt.Sprintf("OBJ#%s", objectKey) }
func stageSK(stage models.Stage) string {
	return fmt.Sprintf("STAGE#%s", stage)
}

// NowISO returns the current time in ISO8601 format.
func NowISO() string { return time.Now().UTC().Format(time.RFC3339) }

// awsStr is a helper to get a pointer to a string literal.
func awsStr(s string) *string { return &s }
