package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// EnsureTable creates the geo table and its entity-ID index if they don't
// exist yet, and waits until the table is active. Intended for local
// development and first deploys; in managed environments the table usually
// comes from infrastructure templates and this is a cheap no-op check.
func (r *LocationRepository) EnsureTable(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.opts.TableName),
	})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table %s: %w", r.opts.TableName, err)
	}

	r.logger.Info("creating geo table", zap.String("table", r.opts.TableName))

	_, err = r.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(r.opts.TableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("cellKey"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("rangeKey"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("entityId"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("cellKey"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("rangeKey"), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(r.opts.EntityIndexName),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("entityId"), KeyType: types.KeyTypeHash},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", r.opts.TableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(r.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.opts.TableName),
	}, 2*time.Minute); err != nil {
		return fmt.Errorf("wait for table %s: %w", r.opts.TableName, err)
	}
	return nil
}
