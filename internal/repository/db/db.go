package db

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	log "github.com/sirupsen/logrus"

	"github.com/Cafe137/swarm-chunked-upload/internal/repository/migrate"
)

// DynamoDb holds the DynamoDB client and the upload record table name.
type DynamoDb struct {
	Client    *dynamodb.Client
	TableName string
}

// NewDatabase creates a DynamoDB client for the record table.
func NewDatabase(awsConfig aws.Config, tableName string) (*DynamoDb, error) {
	if tableName == "" {
		return nil, fmt.Errorf("no DynamoDB table configured")
	}
	return &DynamoDb{
		Client:    dynamodb.NewFromConfig(awsConfig),
		TableName: tableName,
	}, nil
}

func (d *DynamoDb) migrations() []migrate.Migration {
	return []migrate.Migration{
		&migrate.CreateUploadRecordsTable{Table: d.TableName},
	}
}

// MigrateDb applies every migration in order.
func (d *DynamoDb) MigrateDb(ctx context.Context) error {
	for _, m := range d.migrations() {
		log.Infof("Applying migration %s to %s", m.Version(), m.TableName())
		if err := m.Up(ctx, d.Client); err != nil {
			return fmt.Errorf("migration %s: %w", m.Version(), err)
		}
	}
	return nil
}

// MigrateDown rolls back every migration in reverse order.
func (d *DynamoDb) MigrateDown(ctx context.Context) error {
	migrations := d.migrations()
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		log.Infof("Rolling back migration %s on %s", m.Version(), m.TableName())
		if err := m.Down(ctx, d.Client); err != nil {
			return fmt.Errorf("rolling back %s: %w", m.Version(), err)
		}
	}
	return nil
}
