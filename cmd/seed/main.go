// Command seed writes a batch of random location records around New York
// City into the geo table, for exercising nearby queries against a fresh
// local or development table.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"friendfinder/internal/config"
	"friendfinder/internal/repository/dynamo"
	"friendfinder/internal/services"
)

func main() {
	count := flag.Int("count", 20, "number of records to seed")
	flag.Parse()

	cfg := config.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Store.Region))
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Store.Endpoint != "" {
			o.BaseEndpoint = &cfg.Store.Endpoint
		}
	})

	repo := dynamo.NewLocationRepository(client, dynamo.Options{
		TableName:       cfg.Store.TableName,
		EntityIndexName: cfg.Store.EntityIndexName,
		ReadRetries:     cfg.Store.ReadRetries,
		ReadBackoff:     cfg.Store.ReadBackoff,
	}, logger)
	if err := repo.EnsureTable(ctx); err != nil {
		logger.Fatal("Failed to ensure table", zap.Error(err))
	}

	service := services.NewLocationService(repo, cfg, logger)

	for i := 0; i < *count; i++ {
		// Scatter over the NYC metro area, the same box the original sample
		// data used.
		lat := 40.5 + rand.Float64()*0.4
		lng := -74.25 + rand.Float64()*0.55
		entityID := uuid.New().String()

		record, err := service.CreateOrUpdate(ctx, entityID, lat, lng, map[string]any{
			"seeded": true,
		})
		if err != nil {
			logger.Fatal("Failed to seed record", zap.Error(err))
		}
		logger.Info("seeded",
			zap.String("entityId", record.EntityID),
			zap.String("geohash", record.Geohash))
	}

	logger.Info("seeding complete", zap.Int("count", *count))
}
