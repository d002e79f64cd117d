package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TransactWrite is one element of an all-or-nothing write. Item selects a
// put; otherwise Key and Update describe an update.
type TransactWrite struct {
	Table     string
	Item      interface{}
	Key       map[string]types.AttributeValue
	Update    string
	Condition string
	Values    map[string]types.AttributeValue
	Names     map[string]string
}

const maxTransactItems = 100

// TransactWriteItems applies every write or none. A failed condition on any
// element is reported as ErrConditionFailed.
func (c *DynamoDBClient) TransactWriteItems(ctx context.Context, writes ...TransactWrite) error {
	if len(writes) == 0 {
		return nil
	}
	if len(writes) > maxTransactItems {
		return fmt.Errorf("transact write: %d items exceeds limit of %d", len(writes), maxTransactItems)
	}

	items := make([]types.TransactWriteItem, 0, len(writes))
	for i, w := range writes {
		item, err := w.build()
		if err != nil {
			return fmt.Errorf("transact write item %d: %w", i, err)
		}
		items = append(items, item)
	}

	_, err := c.svc.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if isTransactionConditionFailed(err) {
			return ErrConditionFailed
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

func (w TransactWrite) build() (types.TransactWriteItem, error) {
	var cond *string
	if w.Condition != "" {
		cond = aws.String(w.Condition)
	}
	var names map[string]string
	if len(w.Names) > 0 {
		names = w.Names
	}
	var values map[string]types.AttributeValue
	if len(w.Values) > 0 {
		values = w.Values
	}

	if w.Item != nil {
		av, err := attributevalue.MarshalMap(w.Item)
		if err != nil {
			return types.TransactWriteItem{}, fmt.Errorf("marshal item: %w", err)
		}
		return types.TransactWriteItem{Put: &types.Put{
			TableName:                 aws.String(w.Table),
			Item:                      av,
			ConditionExpression:       cond,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}}, nil
	}

	if len(w.Key) == 0 || w.Update == "" {
		return types.TransactWriteItem{}, errors.New("update requires key and expression")
	}
	return types.TransactWriteItem{Update: &types.Update{
		TableName:                 aws.String(w.Table),
		Key:                       w.Key,
		UpdateExpression:          aws.String(w.Update),
		ConditionExpression:       cond,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}}, nil
}

func isTransactionConditionFailed(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	for _, reason := range canceled.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
