// Package dynamo implements the location repository on a DynamoDB table
// partitioned by cell key and sorted by geohash-prefixed range key, with a
// global secondary index on the entity ID for direct lookup.
package dynamo

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"friendfinder/internal/domain/entities"
	"friendfinder/internal/repository"
)

// item is the table row shape. Attributes stays opaque: profile fields and
// timestamps pass through unread.
type item struct {
	CellKey    string         `dynamodbav:"cellKey"`
	RangeKey   string         `dynamodbav:"rangeKey"`
	EntityID   string         `dynamodbav:"entityId"`
	Latitude   float64        `dynamodbav:"latitude"`
	Longitude  float64        `dynamodbav:"longitude"`
	Geohash    string         `dynamodbav:"geohash"`
	Attributes map[string]any `dynamodbav:"attributes,omitempty"`
	UpdatedAt  time.Time      `dynamodbav:"updatedAt"`
}

func toItem(r *entities.LocationRecord) item {
	return item{
		CellKey:    r.CellKey,
		RangeKey:   r.RangeKey,
		EntityID:   r.EntityID,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Geohash:    r.Geohash,
		Attributes: r.Attributes,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (i item) toRecord() *entities.LocationRecord {
	return &entities.LocationRecord{
		EntityID:   i.EntityID,
		Latitude:   i.Latitude,
		Longitude:  i.Longitude,
		Geohash:    i.Geohash,
		CellKey:    i.CellKey,
		RangeKey:   i.RangeKey,
		Attributes: i.Attributes,
		UpdatedAt:  i.UpdatedAt,
	}
}

// Options tunes the repository's table names and read-retry policy.
type Options struct {
	TableName       string
	EntityIndexName string
	// ReadRetries is the number of additional attempts for retryable read
	// failures (throttling, transient server errors). Writes are never
	// retried here.
	ReadRetries int
	ReadBackoff time.Duration
}

// LocationRepository talks to one DynamoDB geo table.
type LocationRepository struct {
	client *dynamodb.Client
	opts   Options
	logger *zap.Logger
}

func NewLocationRepository(client *dynamodb.Client, opts Options, logger *zap.Logger) *LocationRepository {
	if opts.EntityIndexName == "" {
		opts.EntityIndexName = "entityId-index"
	}
	if opts.ReadBackoff <= 0 {
		opts.ReadBackoff = 100 * time.Millisecond
	}
	return &LocationRepository{client: client, opts: opts, logger: logger}
}

// Put upserts the row at (CellKey, RangeKey). DynamoDB overwrites on
// identical keys, so repeating a put with the same entity and coordinates
// leaves exactly one row. Not retried: a timed-out write may have landed, and
// blind re-sends during a relocation are how orphan rows multiply.
func (r *LocationRepository) Put(ctx context.Context, record *entities.LocationRecord) error {
	av, err := attributevalue.MarshalMap(toItem(record))
	if err != nil {
		return &repository.StoreError{Op: "put", Err: err}
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.opts.TableName),
		Item:      av,
	})
	if err != nil {
		return &repository.StoreError{Op: "put", Retryable: isThrottle(err), Err: err}
	}
	return nil
}

// QueryCell range-reads one partition, restricted to sort keys beginning
// with the covering cell's geohash, resuming from startRangeKey when set.
func (r *LocationRepository) QueryCell(ctx context.Context, cellKey, geohashPrefix, startRangeKey string, limit int32) (*repository.CellPage, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.opts.TableName),
		KeyConditionExpression: aws.String("cellKey = :ck AND begins_with(rangeKey, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ck":     &types.AttributeValueMemberS{Value: cellKey},
			":prefix": &types.AttributeValueMemberS{Value: geohashPrefix},
		},
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}
	if startRangeKey != "" {
		input.ExclusiveStartKey = map[string]types.AttributeValue{
			"cellKey":  &types.AttributeValueMemberS{Value: cellKey},
			"rangeKey": &types.AttributeValueMemberS{Value: startRangeKey},
		}
	}

	var out *dynamodb.QueryOutput
	err := r.retryRead(ctx, "queryCell", func() error {
		var qerr error
		out, qerr = r.client.Query(ctx, input)
		return qerr
	})
	if err != nil {
		return nil, err
	}

	page := &repository.CellPage{Records: make([]*entities.LocationRecord, 0, len(out.Items))}
	for _, raw := range out.Items {
		var it item
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, &repository.StoreError{Op: "queryCell", Err: err}
		}
		page.Records = append(page.Records, it.toRecord())
	}
	if rk, ok := out.LastEvaluatedKey["rangeKey"].(*types.AttributeValueMemberS); ok {
		page.NextRangeKey = rk.Value
	}
	return page, nil
}

// Delete removes the row at (cellKey, rangeKey). The existence condition
// turns "nothing there" into ErrNotFound instead of a silent no-op, so
// callers holding stale coordinates find out.
func (r *LocationRepository) Delete(ctx context.Context, cellKey, rangeKey string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.opts.TableName),
		Key: map[string]types.AttributeValue{
			"cellKey":  &types.AttributeValueMemberS{Value: cellKey},
			"rangeKey": &types.AttributeValueMemberS{Value: rangeKey},
		},
		ConditionExpression: aws.String("attribute_exists(rangeKey)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return repository.ErrNotFound
		}
		return &repository.StoreError{Op: "delete", Retryable: isThrottle(err), Err: err}
	}
	return nil
}

// GetByEntityID queries the entity-ID secondary index. The index projects the
// whole row, so no follow-up read against the table is needed.
func (r *LocationRepository) GetByEntityID(ctx context.Context, entityID string) (*entities.LocationRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.opts.TableName),
		IndexName:              aws.String(r.opts.EntityIndexName),
		KeyConditionExpression: aws.String("entityId = :e"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e": &types.AttributeValueMemberS{Value: entityID},
		},
		Limit: aws.Int32(1),
	}

	var out *dynamodb.QueryOutput
	err := r.retryRead(ctx, "getByEntityId", func() error {
		var qerr error
		out, qerr = r.client.Query(ctx, input)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, repository.ErrNotFound
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Items[0], &it); err != nil {
		return nil, &repository.StoreError{Op: "getByEntityId", Err: err}
	}
	return it.toRecord(), nil
}

// retryRead runs a read call, retrying throttles and transient server errors
// with exponential backoff up to the configured attempt budget.
func (r *LocationRepository) retryRead(ctx context.Context, op string, call func() error) error {
	backoff := r.opts.ReadBackoff
	for attempt := 0; ; attempt++ {
		err := call()
		if err == nil {
			return nil
		}
		if attempt >= r.opts.ReadRetries || !isThrottle(err) {
			return &repository.StoreError{Op: op, Retryable: isThrottle(err), Err: err}
		}
		r.logger.Warn("retrying read after transient store error",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return &repository.StoreError{Op: op, Err: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// isThrottle classifies capacity and transient server errors, the only kinds
// worth retrying.
func isThrottle(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	var requestLimit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	return errors.As(err, &throughput) || errors.As(err, &requestLimit) || errors.As(err, &internal)
}
