package store_test

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo understands only the request shapes DynamoStore builds: a
// binary "Value" plus numeric operands for "Version". For a conditional
// update the smaller number is the expected version and the larger one the
// next version.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(key map[string]types.AttributeValue) string {
	if s, ok := key["Key"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func versionOf(item map[string]types.AttributeValue) uint64 {
	if item == nil {
		return 0
	}
	n, ok := item["Version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	v, _ := strconv.ParseUint(n.Value, 10, 64)
	return v
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[keyOf(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return &dynamodb.GetItemOutput{Item: out}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := keyOf(in.Item)
	if key == "" {
		return nil, errors.New("missing Key attribute")
	}
	if _, exists := f.items[key]; exists && in.ConditionExpression != nil {
		return nil, conditionFailed()
	}
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var (
		value []byte
		nums  []uint64
	)
	for _, v := range in.ExpressionAttributeValues {
		switch av := v.(type) {
		case *types.AttributeValueMemberB:
			value = av.Value
		case *types.AttributeValueMemberN:
			n, err := strconv.ParseUint(av.Value, 10, 64)
			if err != nil {
				return nil, err
			}
			nums = append(nums, n)
		}
	}

	key := keyOf(in.Key)
	current := versionOf(f.items[key])
	var next uint64
	if in.ConditionExpression == nil {
		if len(nums) != 1 {
			return nil, errors.New("unexpected update shape")
		}
		next = current + nums[0]
	} else {
		if len(nums) != 2 {
			return nil, errors.New("unexpected conditional update shape")
		}
		expected, newVersion := nums[0], nums[1]
		if expected > newVersion {
			expected, newVersion = newVersion, expected
		}
		if _, exists := f.items[key]; !exists || current != expected {
			return nil, conditionFailed()
		}
		next = newVersion
	}

	f.items[key] = map[string]types.AttributeValue{
		"Key":     &types.AttributeValueMemberS{Value: key},
		"Value":   &types.AttributeValueMemberB{Value: value},
		"Version": &types.AttributeValueMemberN{Value: strconv.FormatUint(next, 10)},
	}
	return &dynamodb.UpdateItemOutput{}, nil
}
