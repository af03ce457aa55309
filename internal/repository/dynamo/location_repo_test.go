package dynamo

import (
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"friendfinder/internal/domain/entities"
)

func TestItemRoundTrip(t *testing.T) {
	record, err := entities.NewLocationRecord("user-1", 40.7128, -74.0060,
		map[string]any{"name": "alice"}, 9, 3)
	if err != nil {
		t.Fatalf("NewLocationRecord() error = %v", err)
	}
	record.UpdatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	av, err := attributevalue.MarshalMap(toItem(record))
	if err != nil {
		t.Fatalf("MarshalMap() error = %v", err)
	}

	// The table is keyed on these two; losing either makes the row
	// unaddressable.
	for _, key := range []string{"cellKey", "rangeKey", "entityId", "geohash"} {
		if _, ok := av[key]; !ok {
			t.Errorf("marshaled item is missing attribute %q", key)
		}
	}

	var it item
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		t.Fatalf("UnmarshalMap() error = %v", err)
	}
	got := it.toRecord()
	if got.EntityID != record.EntityID ||
		got.Latitude != record.Latitude ||
		got.Longitude != record.Longitude ||
		got.Geohash != record.Geohash ||
		got.CellKey != record.CellKey ||
		got.RangeKey != record.RangeKey {
		t.Errorf("round trip = %+v, want %+v", got, record)
	}
	if !got.UpdatedAt.Equal(record.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, record.UpdatedAt)
	}
}

func TestIsThrottle(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "throughput exceeded", err: &types.ProvisionedThroughputExceededException{}, want: true},
		{name: "request limit", err: &types.RequestLimitExceeded{}, want: true},
		{name: "internal server error", err: &types.InternalServerError{}, want: true},
		{name: "conditional check failed", err: &types.ConditionalCheckFailedException{}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isThrottle(tt.err); got != tt.want {
				t.Errorf("isThrottle(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
