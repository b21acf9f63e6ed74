package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// dynamoKey is the partition key attribute of every collection table.
const dynamoKey = "id"

// DynamoAPI is the subset of *dynamodb.Client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoStore maps each collection to the table prefix+collection with a
// string partition key "id". Merge writes are a single UpdateItem SET.
type DynamoStore struct {
	client DynamoAPI
	prefix string
}

func NewDynamoStore(client DynamoAPI, tablePrefix string) *DynamoStore {
	return &DynamoStore{client: client, prefix: tablePrefix}
}

func (d *DynamoStore) table(collection string) string {
	return d.prefix + collection
}

func (d *DynamoStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{dynamoKey: &types.AttributeValueMemberS{Value: id}}
}

func (d *DynamoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table(collection)),
		Key:            d.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem %s/%s failed: %w", collection, id, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	doc := Document{}
	if err := attributevalue.UnmarshalMap(out.Item, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	delete(doc, dynamoKey)
	return doc, nil
}

func (d *DynamoStore) Set(ctx context.Context, collection, id string, patch Document, opts SetOptions) error {
	if !opts.Merge {
		item, err := attributevalue.MarshalMap(map[string]any(patch))
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
		item[dynamoKey] = &types.AttributeValueMemberS{Value: id}
		if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(d.table(collection)), Item: item}); err != nil {
			return fmt.Errorf("dynamodb PutItem %s/%s failed: %w", collection, id, err)
		}
		return nil
	}

	expr, names, values, err := buildSetExpression(patch)
	if err != nil {
		return err
	}
	if expr == "" {
		return nil
	}

	_, err = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.table(collection)),
		Key:                       d.key(id),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("dynamodb UpdateItem %s/%s failed: %w", collection, id, err)
	}
	return nil
}

// buildSetExpression renders patch as "SET #f0 = :v0, ..." in key order.
// The partition key is never part of the SET.
func buildSetExpression(patch Document) (string, map[string]string, map[string]types.AttributeValue, error) {
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	var clauses []string

	for i, k := range sortedKeys(patch) {
		if k == dynamoKey {
			continue
		}
		av, err := attributevalue.Marshal(patch[k])
		if err != nil {
			return "", nil, nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		n, v := fmt.Sprintf("#f%d", i), fmt.Sprintf(":v%d", i)
		names[n] = k
		values[v] = av
		clauses = append(clauses, n+" = "+v)
	}
	if len(clauses) == 0 {
		return "", nil, nil, nil
	}
	return "SET " + strings.Join(clauses, ", "), names, values, nil
}
