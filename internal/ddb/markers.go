package ddb

import (
	"context"
	"errors"

	"github.com/healthfolio/labtrends-backend/internal/fault"
	"github.com/healthfolio/labtrends-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Stage marker statuses. A marker pins the idempotence contract: once a
// stage is DONE for an object key, duplicate notifications must not start
// it again. In-flight duplicates are tolerated because consumers are
// idempotent.
const (
	markerEnqueued = "ENQUEUED"
	markerDone     = "DONE"
	markerDead     = "DEAD"
)

// ShouldEnqueue records intent to run a stage for an object and reports
// whether the caller should enqueue the job. Returns false once the stage
// has reached a terminal state for that key.
func (r *Repo) ShouldEnqueue(ctx context.Context, objectKey string, stage models.Stage) (bool, error) {
	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &r.Table,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: objectPK(objectKey)},
			"SK": &types.AttributeValueMemberS{Value: stageSK(stage)},
		},
		UpdateExpression:    awsStr("SET #st = :enqueued, enqueued_at = :now"),
		ConditionExpression: awsStr("attribute_not_exists(#st) OR #st = :enqueued"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":enqueued": &types.AttributeValueMemberS{Value: markerEnqueued},
			":now":      &types.AttributeValueMemberS{Value: NowISO()},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fault.Wrap(fault.Transient, err, "claim stage marker")
	}
	return true, nil
}

// MarkStageDone records terminal success for (objectKey, stage).
func (r *Repo) MarkStageDone(ctx context.Context, objectKey string, stage models.Stage) error {
	return r.setMarker(ctx, objectKey, stage, markerDone, "")
}

// MarkStageDead records retry-budget exhaustion or an orphaned job. The
// marker stays visible to operators alongside the alert.
func (r *Repo) MarkStageDead(ctx context.Context, objectKey string, stage models.Stage, reason string) error {
	return r.setMarker(ctx, objectKey, stage, markerDead, reason)
}

func (r *Repo) setMarker(ctx context.Context, objectKey string, stage models.Stage, status, reason string) error {
	expr := "SET #st = :status, updated_at = :now"
	values := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: status},
		":now":    &types.AttributeValueMemberS{Value: NowISO()},
	}
	if reason != "" {
		expr += ", reason = :reason"
		values[":reason"] = &types.AttributeValueMemberS{Value: reason}
	}
	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &r.Table,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: objectPK(objectKey)},
			"SK": &types.AttributeValueMemberS{Value: stageSK(stage)},
		},
		UpdateExpression:          awsStr(expr),
		ExpressionAttributeNames:  map[string]string{"#st": "status"},
		ExpressionAttributeValues: values,
	})
	return fault.Wrap(fault.Transient, err, "set stage marker")
}
