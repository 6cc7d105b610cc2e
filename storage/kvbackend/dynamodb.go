package kvbackend

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/awserr"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/dynamodbiface"
	"github.com/pkg/errors"
	"github.com/terrane/terrane/storage"
)

// DynamoDB stores key-value pairs in an AWS DynamoDB table.
//
// Keys are split on the first / character. The part before the slash is used
// as the partition key and the remainder as the sort key. The table must have
// a string partition key named Project and a string sort key named Key.
type DynamoDB struct {
	Client    dynamodbiface.ClientAPI
	TableName string
}

// NewDynamoDB creates a new DynamoDB backend that stores values in the given
// table.
func NewDynamoDB(cfg aws.Config, tableName string) *DynamoDB {
	return &DynamoDB{
		Client:    dynamodb.New(cfg),
		TableName: tableName,
	}
}

// CreateTable creates the DynamoDB table.
func (d *DynamoDB) CreateTable(ctx context.Context, rcu, wcu int64) error {
	_, err := d.Client.CreateTableRequest(&dynamodb.CreateTableInput{
		TableName: aws.String(d.TableName),
		AttributeDefinitions: []dynamodb.AttributeDefinition{
			{AttributeName: aws.String("Project"), AttributeType: dynamodb.ScalarAttributeTypeS},
			{AttributeName: aws.String("Key"), AttributeType: dynamodb.ScalarAttributeTypeS},
		},
		KeySchema: []dynamodb.KeySchemaElement{
			{AttributeName: aws.String("Project"), KeyType: dynamodb.KeyTypeHash},
			{AttributeName: aws.String("Key"), KeyType: dynamodb.KeyTypeRange},
		},
		ProvisionedThroughput: &dynamodb.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(rcu),
			WriteCapacityUnits: aws.Int64(wcu),
		},
	}).Send(ctx)
	if err != nil {
		return errors.Wrap(err, "create table")
	}
	return nil
}

// Put creates or updates a value.
func (d *DynamoDB) Put(ctx context.Context, key string, value []byte) error {
	part, sort, err := dynamoKey(key)
	if err != nil {
		return err
	}
	input := &dynamodb.PutItemInput{
		TableName: aws.String(d.TableName),
		Item: map[string]dynamodb.AttributeValue{
			"Project": {S: aws.String(part)},
			"Key":     {S: aws.String(sort)},
			"Value":   {B: value},
		},
	}
	if _, err := d.Client.PutItemRequest(input).Send(ctx); err != nil {
		return errors.Wrap(err, "dynamodb put")
	}
	return nil
}

// Get returns a single value.
func (d *DynamoDB) Get(ctx context.Context, key string) ([]byte, error) {
	part, sort, err := dynamoKey(key)
	if err != nil {
		return nil, err
	}
	input := &dynamodb.GetItemInput{
		TableName:      aws.String(d.TableName),
		ConsistentRead: aws.Bool(true),
		Key: map[string]dynamodb.AttributeValue{
			"Project": {S: aws.String(part)},
			"Key":     {S: aws.String(sort)},
		},
	}
	resp, err := d.Client.GetItemRequest(input).Send(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "dynamodb get")
	}
	if resp.Item == nil {
		return nil, storage.ErrNotFound
	}
	return resp.Item["Value"].B, nil
}

// Delete deletes a key. Returns ErrNotFound if the key does not exist.
func (d *DynamoDB) Delete(ctx context.Context, key string) error {
	part, sort, err := dynamoKey(key)
	if err != nil {
		return err
	}
	input := &dynamodb.DeleteItemInput{
		TableName:    aws.String(d.TableName),
		ReturnValues: dynamodb.ReturnValueAllOld,
		Key: map[string]dynamodb.AttributeValue{
			"Project": {S: aws.String(part)},
			"Key":     {S: aws.String(sort)},
		},
	}
	resp, err := d.Client.DeleteItemRequest(input).Send(ctx)
	if err != nil {
		return errors.Wrap(err, "dynamodb delete")
	}
	if len(resp.Attributes) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Scan returns all values that share the partition given by the prefix. The
// prefix must not contain a slash.
func (d *DynamoDB) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	if strings.Contains(prefix, "/") {
		return nil, errors.New("prefix should not contain /")
	}
	ret := make(map[string][]byte)
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.TableName),
		ConsistentRead:         aws.Bool(true),
		KeyConditionExpression: aws.String("#project = :project"),
		ExpressionAttributeNames: map[string]string{
			"#project": "Project",
		},
		ExpressionAttributeValues: map[string]dynamodb.AttributeValue{
			":project": {S: aws.String(prefix)},
		},
	}
	for {
		resp, err := d.Client.QueryRequest(input).Send(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "query dynamodb")
		}
		for _, item := range resp.Items {
			ret[prefix+"/"+*item["Key"].S] = item["Value"].B
		}
		if len(resp.LastEvaluatedKey) == 0 {
			return ret, nil
		}
		input.ExclusiveStartKey = resp.LastEvaluatedKey
	}
}

// Lock acquires an advisory lock for a project. Returns ErrLockHeld if
// another run holds the lock.
//
// The lock is stored as an item in the same table, under a partition that
// cannot collide with stored values.
func (d *DynamoDB) Lock(ctx context.Context, project string) error {
	input := &dynamodb.PutItemInput{
		TableName:           aws.String(d.TableName),
		ConditionExpression: aws.String("attribute_not_exists(#project)"),
		ExpressionAttributeNames: map[string]string{
			"#project": "Project",
		},
		Item: map[string]dynamodb.AttributeValue{
			"Project": {S: aws.String("lock:" + project)},
			"Key":     {S: aws.String("lock")},
		},
	}
	if _, err := d.Client.PutItemRequest(input).Send(ctx); err != nil {
		if aerr, ok := errors.Cause(err).(awserr.Error); ok &&
			aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
			return storage.ErrLockHeld
		}
		return errors.Wrap(err, "acquire lock")
	}
	return nil
}

// Unlock releases the advisory lock for a project.
func (d *DynamoDB) Unlock(ctx context.Context, project string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(d.TableName),
		Key: map[string]dynamodb.AttributeValue{
			"Project": {S: aws.String("lock:" + project)},
			"Key":     {S: aws.String("lock")},
		},
	}
	if _, err := d.Client.DeleteItemRequest(input).Send(ctx); err != nil {
		return errors.Wrap(err, "release lock")
	}
	return nil
}

// dynamoKey returns the partition and sort key to use for a user specified
// key.
//
// The keys are determined by looking for the first /. Anything before it is
// used as the partition key and anything after it as the sort key.
//
//   foo/bar/baz
//   ->
//   partition: foo
//   sort:      bar/baz
//
// Returns an error if the input does not contain a slash.
func dynamoKey(input string) (partition, sort string, err error) {
	if strings.HasPrefix(input, "/") {
		return "", "", errors.New("input cannot start with a slash")
	}
	if strings.HasSuffix(input, "/") {
		return "", "", errors.New("input cannot end with a slash")
	}
	slash := strings.Index(input, "/")
	if slash == -1 {
		return "", "", errors.New("input does not contain a slash")
	}
	return input[:slash], input[slash+1:], nil
}
