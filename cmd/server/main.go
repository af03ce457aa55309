package main

import (
	"context"
	"log"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"friendfinder/internal/api"
	"friendfinder/internal/api/handlers"
	"friendfinder/internal/config"
	"friendfinder/internal/repository"
	"friendfinder/internal/repository/dynamo"
	"friendfinder/internal/repository/memory"
	"friendfinder/internal/services"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	repo, err := buildRepository(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	locationService := services.NewLocationService(repo, cfg, logger)
	locationHandler := handlers.NewLocationHandler(locationService)
	router := api.NewRouter(locationHandler, cfg.Server.APIToken)

	engine := gin.Default()
	router.Setup(engine)

	logger.Info("Starting friendfinder geo service",
		zap.String("port", cfg.Server.Port),
		zap.String("backend", cfg.Store.Backend),
		zap.String("table", cfg.Store.TableName))
	if err := engine.Run(cfg.Server.Port); err != nil {
		logger.Fatal("Server exited", zap.Error(err))
	}
}

// buildRepository selects the backing store. The memory backend exists for
// local development and tests; everything else goes through DynamoDB.
func buildRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.LocationRepository, error) {
	if cfg.Store.Backend == "memory" {
		return memory.NewLocationRepository(), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Store.Region))
	if err != nil {
		return nil, err
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

	// Local endpoints get the table created on the fly; in managed
	// environments the table already exists and this returns immediately.
	if cfg.Store.Endpoint != "" {
		if err := repo.EnsureTable(ctx); err != nil {
			return nil, err
		}
	}
	return repo, nil
}
