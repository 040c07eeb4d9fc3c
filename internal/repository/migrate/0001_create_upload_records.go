package migrate

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	UploadRecordsVersion = "20250801000000_upload_records_table"

	tableActiveTimeout = 5 * time.Minute
)

// TableAPI is the part of the DynamoDB client migrations use.
type TableAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Migration is one reversible schema change.
type Migration interface {
	Version() string
	TableName() string
	Up(ctx context.Context, client TableAPI) error
	Down(ctx context.Context, client TableAPI) error
}

// CreateUploadRecordsTable creates the table of finished uploads, keyed by
// file name and root chunk address.
type CreateUploadRecordsTable struct {
	Table string
	// Wait overrides how long Up waits for the table to become active.
	Wait time.Duration
}

func (m *CreateUploadRecordsTable) Version() string {
	return UploadRecordsVersion
}

func (m *CreateUploadRecordsTable) TableName() string {
	return m.Table
}

func (m *CreateUploadRecordsTable) Up(ctx context.Context, client TableAPI) error {
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("file_name"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("root_address"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("file_name"),
				KeyType:       types.KeyTypeHash, // Partition Key
			},
			{
				AttributeName: aws.String("root_address"),
				KeyType:       types.KeyTypeRange, // Sort Key
			},
		},
		TableName:   aws.String(m.Table),
		BillingMode: types.BillingModePayPerRequest,
		Tags: []types.Tag{
			{
				Key:   aws.String("Purpose"),
				Value: aws.String("SwarmUploadRecords"),
			},
		},
	}

	if _, err := client.CreateTable(ctx, input); err != nil {
		return err
	}

	wait := m.Wait
	if wait == 0 {
		wait = tableActiveTimeout
	}
	waiter := dynamodb.NewTableExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(m.Table),
	}, wait)
}

func (m *CreateUploadRecordsTable) Down(ctx context.Context, client TableAPI) error {
	_, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(m.Table),
	})
	return err
}
