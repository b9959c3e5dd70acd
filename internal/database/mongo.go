package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"volunteerhub/internal/log"
)

// OpenMongo connects to MongoDB and pings the primary, retrying with the same
// policy as OpenPostgres.
func OpenMongo(ctx context.Context, uri, name string) (*mongo.Database, error) {
	logger := log.WithComponent("mongo")

	var (
		client *mongo.Client
		err    error
	)
	for i := 0; i < maxRetries; i++ {
		client, err = connectMongo(ctx, uri)
		if err == nil {
			break
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("Database connection attempt failed")
		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	logger.Info().Str("database", name).Msg("Database connection established")
	return client.Database(name), nil
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}
