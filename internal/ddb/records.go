package ddb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/healthfolio/labtrends-backend/internal/fault"
	"github.com/healthfolio/labtrends-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrStaleVersion signals an upsert that lost the version gate. Benign for
// pipeline re-runs; callers log and move on.
var ErrStaleVersion = errors.New("record version is older than the stored one")

// UpsertRecord writes a record by identity, replacing any existing record
// only if the incoming version is not older. This is the single
// concurrency-control point of the pipeline: one atomic conditional write,
// never read-modify-write.
func (r *Repo) UpsertRecord(ctx context.Context, rec models.IndicatorRecord) error {
	rec.PK = userPK(rec.UserID)
	rec.SK = recordSK(rec.ID())
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fault.Wrap(fault.Internal, err, "marshal record")
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.Table,
		Item:                item,
		ConditionExpression: awsStr("attribute_not_exists(PK) OR record_version <= :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.Version, 10)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrStaleVersion
		}
		return fault.Wrap(fault.Transient, err, "upsert record")
	}
	return nil
}

// GetRecord fetches one record by its identity string.
func (r *Repo) GetRecord(ctx context.Context, userID, recordID string) (*models.IndicatorRecord, error) {
	out, err := r.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.Table,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: recordSK(recordID)},
		},
	})
	if err != nil {
		return nil, fault.Wrap(fault.Transient, err, "get record")
	}
	if out.Item == nil {
		return nil, fault.Newf(fault.NotFound, "record %s not found", recordID)
	}
	var rec models.IndicatorRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fault.Wrap(fault.Internal, err, "unmarshal record")
	}
	return &rec, nil
}

// ListRecordsByUser returns every record for a user. Follows pagination so
// the caller always sees a complete snapshot, consistent-read to avoid
// tearing against concurrent pipeline writes.
func (r *Repo) ListRecordsByUser(ctx context.Context, userID string) ([]models.IndicatorRecord, error) {
	var records []models.IndicatorRecord
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.DB.Query(ctx, &dynamodb.QueryInput{
			TableName:              &r.Table,
			KeyConditionExpression: awsStr("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: userPK(userID)},
				":sk": &types.AttributeValueMemberS{Value: "REC#"},
			},
			ConsistentRead:    aws.Bool(true),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fault.Wrap(fault.Transient, err, "list records")
		}
		for _, item := range out.Items {
			var rec models.IndicatorRecord
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				return nil, fault.Wrap(fault.Internal, err, "unmarshal record")
			}
			records = append(records, rec)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return records, nil
}

// Fields a user review edit may touch.
var editableFields = map[string]bool{
	"patient_name": true,
	"result":       true,
	"units":        true,
	"lower_range":  true,
	"upper_range":  true,
	"laboratory":   true,
}

// EditRecord applies a user edit to a record. The caller mints version, which
// must be strictly newer than whatever the pipeline wrote so that a later
// re-extraction can never clobber the edit.
func (r *Repo) EditRecord(ctx context.Context, userID, recordID string, fields map[string]any, version int64) error {
	if len(fields) == 0 {
		return fault.New(fault.InvalidRequest, "no fields to update")
	}
	expr := "SET record_version = :v"
	values := map[string]types.AttributeValue{
		":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
	}
	names := map[string]string{}

	// Deterministic expression order keeps logs and tests stable.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, k := range keys {
		if !editableFields[k] {
			return fault.Newf(fault.InvalidRequest, "field %q is not editable", k)
		}
		av, err := attributevalue.Marshal(fields[k])
		if err != nil {
			return fault.Wrap(fault.InvalidRequest, err, "bad value for "+k)
		}
		alias := fmt.Sprintf("#f%d", i)
		placeholder := fmt.Sprintf(":f%d", i)
		names[alias] = k
		values[placeholder] = av
		expr += fmt.Sprintf(", %s = %s", alias, placeholder)
	}

	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &r.Table,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: recordSK(recordID)},
		},
		UpdateExpression:          awsStr(expr),
		ConditionExpression:       awsStr("attribute_exists(PK) AND record_version < :v"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fault.Newf(fault.NotFound, "record %s not found or edit raced a newer write", recordID)
		}
		return fault.Wrap(fault.Transient, err, "edit record")
	}
	return nil
}
