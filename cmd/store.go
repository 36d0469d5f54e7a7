package main

import (
	"context"
	"fmt"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/api"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/config"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/dynamo"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/postgres"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	// dynamodb-local accepts any credentials but the SDK still wants some.
	if cfg.Dynamo.Endpoint != "" {
		opts = append(opts,
			awsconfig.WithRegion("localhost"),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "dummy")),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to get aws config: %w", err)
	}
	return awsCfg, nil
}

func newDynamoClient(ctx context.Context) (*dynamodb.Client, error) {
	awsCfg, err := loadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Dynamo.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Dynamo.Endpoint)
		}
	}), nil
}

// openStore returns the configured store and a func that releases it.
func openStore(ctx context.Context) (api.DB, func(), error) {
	switch cfg.Store.Driver {
	case config.DRIVER_POSTGRES:
		pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return postgres.NewDB(pool), pool.Close, nil
	default:
		client, err := newDynamoClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		return dynamo.NewDB(client, cfg.Dynamo.Table), func() {}, nil
	}
}
