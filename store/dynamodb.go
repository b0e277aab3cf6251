package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoStore keeps each key as one item in a DynamoDB table whose hash key
// is the string attribute "Key". Compare-and-set uses condition expressions
// on the "Version" attribute, so it holds across any number of instances.
type DynamoStore struct {
	client DynamoDBAPI
	table  string
}

type dynamoItem struct {
	Key     string `dynamodbav:"Key"`
	Value   []byte `dynamodbav:"Value"`
	Version uint64 `dynamodbav:"Version"`
}

// NewDynamoStore loads the default AWS configuration for region. endpoint
// overrides the service URL (e.g. DynamoDB Local) when non-empty.
func NewDynamoStore(ctx context.Context, table, region, endpoint string) (*DynamoStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewDynamoStoreWithClient(client, table), nil
}

func NewDynamoStoreWithClient(client DynamoDBAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

func (s *DynamoStore) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"Key": &types.AttributeValueMemberS{Value: key},
	}
}

func (s *DynamoStore) Get(ctx context.Context, key string) (Entry, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("dynamodb get %q: %w", key, err)
	}
	if len(out.Item) == 0 {
		return Entry{}, nil
	}
	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return Entry{}, fmt.Errorf("dynamodb get %q: %w", key, err)
	}
	return Entry{Value: item.Value, Version: item.Version}, nil
}

func (s *DynamoStore) Set(ctx context.Context, key string, value []byte) error {
	update := expression.
		Set(expression.Name("Value"), expression.Value(value)).
		Add(expression.Name("Version"), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("dynamodb set %q: %w", key, err)
	}
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       s.itemKey(key),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("dynamodb set %q: %w", key, err)
	}
	return nil
}

func (s *DynamoStore) CompareAndSet(ctx context.Context, key string, value []byte, version uint64) error {
	var err error
	if version == 0 {
		err = s.create(ctx, key, value)
	} else {
		err = s.replace(ctx, key, value, version)
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("dynamodb compare-and-set %q: %w", key, err)
	}
	return nil
}

func (s *DynamoStore) create(ctx context.Context, key string, value []byte) error {
	item, err := attributevalue.MarshalMap(dynamoItem{Key: key, Value: value, Version: 1})
	if err != nil {
		return err
	}
	cond := expression.AttributeNotExists(expression.Name("Key"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	return err
}

func (s *DynamoStore) replace(ctx context.Context, key string, value []byte, version uint64) error {
	update := expression.
		Set(expression.Name("Value"), expression.Value(value)).
		Set(expression.Name("Version"), expression.Value(version+1))
	cond := expression.Name("Version").Equal(expression.Value(version))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return err
	}
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       s.itemKey(key),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return err
}

func (s *DynamoStore) Close() error {
	return nil
}
