package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
	"github.com/Cafe137/swarm-chunked-upload/internal/errors"
)

// RecordAPI is the part of the DynamoDB client the record repository uses.
type RecordAPI interface {
	dynamodb.QueryAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// UploadRecordRepository manages DynamoDB interactions for UploadRecord.
type UploadRecordRepository struct {
	client    RecordAPI
	tableName string
}

// NewUploadRecordRepository initializes a new UploadRecordRepository.
func NewUploadRecordRepository(client RecordAPI, tableName string) UploadRecordRepository {
	return UploadRecordRepository{
		client:    client,
		tableName: tableName,
	}
}

// CreateRecord stores an upload record in DynamoDB.
func (repo *UploadRecordRepository) CreateRecord(ctx context.Context, record domain.UploadRecord) (domain.UploadRecord, error) {
	if record.FileName == "" || record.RootAddress == "" {
		return domain.UploadRecord{}, errors.ErrMissingRequiredFields
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return domain.UploadRecord{}, fmt.Errorf("failed to marshal upload record: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(repo.tableName),
		Item:      item,
	}
	if _, err := repo.client.PutItem(ctx, input); err != nil {
		return domain.UploadRecord{}, fmt.Errorf("failed to create upload record: %w", err)
	}

	return record, nil
}

// GetRecord retrieves the record of one upload by file name and root address.
func (repo *UploadRecordRepository) GetRecord(ctx context.Context, fileName, rootAddress string) (domain.UploadRecord, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(repo.tableName),
		Key: map[string]types.AttributeValue{
			"file_name":    &types.AttributeValueMemberS{Value: fileName},
			"root_address": &types.AttributeValueMemberS{Value: rootAddress},
		},
	}

	result, err := repo.client.GetItem(ctx, input)
	if err != nil {
		return domain.UploadRecord{}, fmt.Errorf("failed to get upload record: %w", err)
	}
	if result.Item == nil {
		return domain.UploadRecord{}, errors.ErrRecordNotFound
	}

	var record domain.UploadRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return domain.UploadRecord{}, fmt.Errorf("failed to unmarshal upload record: %w", err)
	}
	return record, nil
}

// ListRecordsByFilename retrieves every upload of fileName, newest first.
func (repo *UploadRecordRepository) ListRecordsByFilename(ctx context.Context, fileName string) ([]domain.UploadRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(repo.tableName),
		KeyConditionExpression: aws.String("#file_name = :file_name"),
		ExpressionAttributeNames: map[string]string{
			"#file_name": "file_name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":file_name": &types.AttributeValueMemberS{Value: fileName},
		},
	}

	var records []domain.UploadRecord
	paginator := dynamodb.NewQueryPaginator(repo.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query upload records: %w", err)
		}

		var batch []domain.UploadRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal upload records: %w", err)
		}
		records = append(records, batch...)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].UploadedAt.After(records[j].UploadedAt)
	})
	return records, nil
}
