package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrItemNotFound    = errors.New("item not found")
	ErrConditionFailed = errors.New("condition check failed")
)

func AttrString(value string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: value}
}

func AttrNumber(value int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", value)}
}

func AttrBool(value bool) types.AttributeValue {
	return &types.AttributeValueMemberBOOL{Value: value}
}

// StringKey builds a single-attribute string key.
func StringKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{name: AttrString(value)}
}

func (c *DynamoDBClient) PutItem(
	ctx context.Context,
	tableName string,
	item any,
) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	}

	_, err = c.svc.PutItem(ctx, input)
	if err != nil {
		return fmt.Errorf("put item %s: %w", tableName, err)
	}
	return nil
}

// PutItemIfAbsent writes item only when no row with the same keyAttr exists.
// It returns ErrConditionFailed when the row is already present.
func (c *DynamoDBClient) PutItemIfAbsent(
	ctx context.Context,
	tableName string,
	keyAttr string,
	item any,
) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:                aws.String(tableName),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": keyAttr},
	}

	if _, err := c.svc.PutItem(ctx, input); err != nil {
		if isConditionalCheckFailed(err) {
			return ErrConditionFailed
		}
		return fmt.Errorf("put item %s: %w", tableName, err)
	}
	return nil
}

func (c *DynamoDBClient) GetItem(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
	out any,
) error {
	input := &dynamodb.GetItemInput{
		TableName:      aws.String(tableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	}

	res, err := c.svc.GetItem(ctx, input)
	if err != nil {
		return fmt.Errorf("get item %s: %w", tableName, err)
	}
	if res.Item == nil {
		return fmt.Errorf("%w in %s", ErrItemNotFound, tableName)
	}

	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}

// UpdateItemConditional applies updateExpr only when condExpr holds. A failed
// condition is reported as ErrConditionFailed.
func (c *DynamoDBClient) UpdateItemConditional(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
	updateExpr string,
	condExpr string,
	exprAttrValues map[string]types.AttributeValue,
	exprAttrNames map[string]string,
	out any,
) error {
	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(tableName),
		Key:                       key,
		UpdateExpression:          aws.String(updateExpr),
		ExpressionAttributeValues: exprAttrValues,
		ReturnValues:              types.ReturnValueAllNew,
	}
	if len(exprAttrNames) > 0 {
		input.ExpressionAttributeNames = exprAttrNames
	}
	if condExpr != "" {
		input.ConditionExpression = aws.String(condExpr)
	}

	res, err := c.svc.UpdateItem(ctx, input)
	if err != nil {
		if isConditionalCheckFailed(err) {
			return ErrConditionFailed
		}
		return fmt.Errorf("update item %s: %w", tableName, err)
	}

	if out != nil {
		if err := attributevalue.UnmarshalMap(res.Attributes, out); err != nil {
			return fmt.Errorf("unmarshal updated item: %w", err)
		}
	}
	return nil
}

func (c *DynamoDBClient) DeleteItem(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key:       key,
	}

	_, err := c.svc.DeleteItem(ctx, input)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", tableName, err)
	}
	return nil
}

type page struct {
	items   []map[string]types.AttributeValue
	lastKey map[string]types.AttributeValue
}

// collect follows LastEvaluatedKey until fetch reports the final page.
func collect(ctx context.Context, fetch func(ctx context.Context, start map[string]types.AttributeValue) (page, error)) ([]map[string]types.AttributeValue, error) {
	var (
		all   []map[string]types.AttributeValue
		start map[string]types.AttributeValue
	)
	for {
		p, err := fetch(ctx, start)
		if err != nil {
			return nil, err
		}
		all = append(all, p.items...)
		if len(p.lastKey) == 0 {
			return all, nil
		}
		start = p.lastKey
	}
}

func withNames(names map[string]string) map[string]string {
	if len(names) == 0 {
		return nil
	}
	return names
}

func (c *DynamoDBClient) queryIndex(
	ctx context.Context,
	tableName, indexName, keyCondExpr string,
	values map[string]types.AttributeValue,
	names map[string]string,
) ([]map[string]types.AttributeValue, error) {
	return collect(ctx, func(ctx context.Context, start map[string]types.AttributeValue) (page, error) {
		res, err := c.svc.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(tableName),
			IndexName:                 aws.String(indexName),
			KeyConditionExpression:    aws.String(keyCondExpr),
			ExpressionAttributeValues: values,
			ExpressionAttributeNames:  withNames(names),
			ExclusiveStartKey:         start,
		})
		if err != nil {
			return page{}, fmt.Errorf("query %s[%s]: %w", tableName, indexName, err)
		}
		return page{items: res.Items, lastKey: res.LastEvaluatedKey}, nil
	})
}

// QueryIndexOrScan reads every row whose attr equals value, through the
// named GSI when it exists and a filtered scan otherwise. Local tables
// created without the index still work.
func (c *DynamoDBClient) QueryIndexOrScan(
	ctx context.Context,
	tableName string,
	indexName string,
	attr string,
	value string,
) ([]map[string]types.AttributeValue, error) {
	names := map[string]string{"#a": attr}
	values := map[string]types.AttributeValue{":v": AttrString(value)}

	items, err := c.queryIndex(ctx, tableName, indexName, "#a = :v", values, names)
	if err == nil {
		return items, nil
	}
	if !isIndexNotFound(err) {
		return nil, err
	}
	return c.ScanAllWithFilter(ctx, tableName, "#a = :v", values, names)
}

func (c *DynamoDBClient) ScanAll(ctx context.Context, tableName string) ([]map[string]types.AttributeValue, error) {
	return c.ScanAllWithFilter(ctx, tableName, "", nil, nil)
}

// ScanAllWithFilter scans the whole table. An empty filterExpr returns
// every row.
func (c *DynamoDBClient) ScanAllWithFilter(
	ctx context.Context,
	tableName string,
	filterExpr string,
	values map[string]types.AttributeValue,
	names map[string]string,
) ([]map[string]types.AttributeValue, error) {
	return collect(ctx, func(ctx context.Context, start map[string]types.AttributeValue) (page, error) {
		input := &dynamodb.ScanInput{
			TableName:                aws.String(tableName),
			ExpressionAttributeNames: withNames(names),
			ExclusiveStartKey:        start,
		}
		if filterExpr != "" {
			input.FilterExpression = aws.String(filterExpr)
			input.ExpressionAttributeValues = values
		}
		res, err := c.svc.Scan(ctx, input)
		if err != nil {
			return page{}, fmt.Errorf("scan %s: %w", tableName, err)
		}
		return page{items: res.Items, lastKey: res.LastEvaluatedKey}, nil
	})
}

// UnmarshalAll decodes raw items into a slice of T.
func UnmarshalAll[T any](items []map[string]types.AttributeValue) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			return nil, fmt.Errorf("unmarshal item: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

const (
	batchLimit        = 25
	batchMaxAttempts  = 4
	batchRetryBackoff = 100 * time.Millisecond
)

// BatchWriteItem puts and deletes rows in chunks of 25, resubmitting
// unprocessed requests with a doubling delay.
func (c *DynamoDBClient) BatchWriteItem(
	ctx context.Context,
	tableName string,
	putItems []any,
	deleteKeys []map[string]types.AttributeValue,
) error {
	requests := make([]types.WriteRequest, 0, len(putItems)+len(deleteKeys))
	for _, item := range putItems {
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("marshal put item: %w", err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}
	for _, key := range deleteKeys {
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
	}

	for chunk := range slices.Chunk(requests, batchLimit) {
		if err := c.writeChunk(ctx, tableName, chunk); err != nil {
			return fmt.Errorf("batch write %s: %w", tableName, err)
		}
	}
	return nil
}

func (c *DynamoDBClient) writeChunk(ctx context.Context, tableName string, chunk []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{tableName: chunk}
	delay := batchRetryBackoff

	for attempt := 1; ; attempt++ {
		res, err := c.svc.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("attempt %d: %w", attempt, err)
		}
		pending = res.UnprocessedItems
		left := len(pending[tableName])
		if left == 0 {
			return nil
		}
		if attempt == batchMaxAttempts {
			return fmt.Errorf("%d request(s) still unprocessed after %d attempts", left, attempt)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (c *DynamoDBClient) BatchDeleteItems(
	ctx context.Context,
	tableName string,
	keys []map[string]types.AttributeValue,
) error {
	return c.BatchWriteItem(ctx, tableName, nil, keys)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func isIndexNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "does not have the specified index") {
		return true
	}
	return strings.Contains(msg, "index") && strings.Contains(msg, "not") && strings.Contains(msg, "found")
}
