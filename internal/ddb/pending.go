package ddb

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/healthfolio/labtrends-backend/internal/fault"
	"github.com/healthfolio/labtrends-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PutPendingUpload inserts a new pending upload in ISSUED state, refusing
// duplicates for the same upload ID.
func (r *Repo) PutPendingUpload(ctx context.Context, u models.PendingUpload) error {
	u.PK = userPK(u.UserID)
	u.SK = uploadSK(u.UploadID)
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fault.Wrap(fault.Internal, err, "marshal pending upload")
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.Table,
		Item:                item,
		ConditionExpression: awsStr("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	return fault.Wrap(fault.Transient, err, "put pending upload")
}

// GetPendingUpload fetches one pending upload.
func (r *Repo) GetPendingUpload(ctx context.Context, userID, uploadID string) (*models.PendingUpload, error) {
	out, err := r.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.Table,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: uploadSK(uploadID)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fault.Wrap(fault.Transient, err, "get pending upload")
	}
	if out.Item == nil {
		return nil, fault.Newf(fault.NotFound, "no pending upload %s for user %s", uploadID, userID)
	}
	var u models.PendingUpload
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fault.Wrap(fault.Internal, err, "unmarshal pending upload")
	}
	return &u, nil
}

// CountIssuedUploads returns the number of outstanding ISSUED uploads
// created at or after notBefore, used to enforce the upload quota. The time
// bound is the same lazy-expiry rule applied everywhere else: an abandoned
// credential past its window never counts against the caller again.
func (r *Repo) CountIssuedUploads(ctx context.Context, userID string, notBefore time.Time) (int, error) {
	out, err := r.DB.Query(ctx, &dynamodb.QueryInput{
		TableName:              &r.Table,
		KeyConditionExpression: awsStr("PK = :pk AND begins_with(SK, :sk)"),
		FilterExpression:       awsStr("#st = :issued AND created_at >= :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#st": "state",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: userPK(userID)},
			":sk":     &types.AttributeValueMemberS{Value: "UPLOAD#"},
			":issued": &types.AttributeValueMemberS{Value: string(models.UploadIssued)},
			":cutoff": &types.AttributeValueMemberS{Value: notBefore.UTC().Format(time.RFC3339)},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, fault.Wrap(fault.Transient, err, "count issued uploads")
	}
	return int(out.Count), nil
}

// ConfirmPendingUpload transitions ISSUED -> CONFIRMED. The transition is
// advisory bookkeeping; the storage notification is what starts the pipeline.
func (r *Repo) ConfirmPendingUpload(ctx context.Context, userID, uploadID string) error {
	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &r.Table,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: uploadSK(uploadID)},
		},
		UpdateExpression:    awsStr("SET #st = :confirmed, confirmed_at = :now"),
		ConditionExpression: awsStr("attribute_exists(PK) AND #st = :issued"),
		ExpressionAttributeNames: map[string]string{
			"#st": "state",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":confirmed": &types.AttributeValueMemberS{Value: string(models.UploadConfirmed)},
			":issued":    &types.AttributeValueMemberS{Value: string(models.UploadIssued)},
			":now":       &types.AttributeValueMemberS{Value: NowISO()},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fault.Newf(fault.NotFound, "upload %s is not awaiting confirmation", uploadID)
		}
		return fault.Wrap(fault.Transient, err, "confirm pending upload")
	}
	return nil
}

// MarkUploadExpired flags an upload as EXPIRED. Best effort: expiry is also
// evaluated lazily by readers via Expired.
func (r *Repo) MarkUploadExpired(ctx context.Context, userID, uploadID string) error {
	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &r.Table,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: uploadSK(uploadID)},
		},
		UpdateExpression:    awsStr("SET #st = :expired"),
		ConditionExpression: awsStr("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{
			"#st": "state",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expired": &types.AttributeValueMemberS{Value: string(models.UploadExpired)},
		},
	})
	return fault.Wrap(fault.Transient, err, "mark upload expired")
}

// SetUploadOutcome records the extraction result on the owning upload so the
// status query can answer without touching the pipeline.
func (r *Repo) SetUploadOutcome(ctx context.Context, userID, uploadID string, outcome models.UploadOutcome, recordIDs, gaps []string, failReason string) error {
	expr := "SET outcome = :outcome, record_ids = :recs, gaps = :gaps"
	values := map[string]types.AttributeValue{
		":outcome": &types.AttributeValueMemberS{Value: string(outcome)},
		":recs":    stringList(recordIDs),
		":gaps":    stringList(gaps),
	}
	if failReason != "" {
		expr += ", fail_reason = :reason"
		values[":reason"] = &types.AttributeValueMemberS{Value: failReason}
	}
	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &r.Table,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: uploadSK(uploadID)},
		},
		UpdateExpression:          awsStr(expr),
		ConditionExpression:       awsStr("attribute_exists(PK)"),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fault.Newf(fault.NotFound, "no pending upload %s for user %s", uploadID, userID)
		}
		return fault.Wrap(fault.Transient, err, "set upload outcome")
	}
	return nil
}

// LatestConfirmedUpload returns the most recent CONFIRMED upload for a user,
// or NotFound. ULID sort keys order uploads by creation time.
func (r *Repo) LatestConfirmedUpload(ctx context.Context, userID string) (*models.PendingUpload, error) {
	out, err := r.DB.Query(ctx, &dynamodb.QueryInput{
		TableName:              &r.Table,
		KeyConditionExpression: awsStr("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: userPK(userID)},
			":sk": &types.AttributeValueMemberS{Value: "UPLOAD#"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(25),
	})
	if err != nil {
		return nil, fault.Wrap(fault.Transient, err, "query latest upload")
	}
	for _, item := range out.Items {
		var u models.PendingUpload
		if err := attributevalue.UnmarshalMap(item, &u); err != nil {
			continue
		}
		if u.State == models.UploadConfirmed {
			return &u, nil
		}
	}
	return nil, fault.Newf(fault.NotFound, "no confirmed upload for user %s", userID)
}

// Expired reports whether an upload's confirmation window has passed.
func Expired(u *models.PendingUpload, window time.Duration, now time.Time) bool {
	if u.State == models.UploadExpired {
		return true
	}
	created, err := time.Parse(time.RFC3339, u.CreatedAt)
	if err != nil {
		return false
	}
	return now.Sub(created) > window
}

func stringList(vals []string) types.AttributeValue {
	members := make([]types.AttributeValue, 0, len(vals))
	for _, v := range vals {
		if strings.TrimSpace(v) == "" {
			continue
		}
		members = append(members, &types.AttributeValueMemberS{Value: v})
	}
	return &types.AttributeValueMemberL{Value: members}
}
