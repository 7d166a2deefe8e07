// Package store is the sole boundary between the delivery domain and
// MongoDB. Every bson.M query the rest of the codebase needs lives here,
// one collection at a time.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.uber.org/zap"
)

// Store wraps a connected mongo.Client and the four collections the
// delivery domain reads and writes.
type Store struct {
	client     *mongo.Client
	metadata   *mongo.Collection
	identities *mongo.Collection
	customers  *mongo.Collection
	status     *mongo.Collection
	log        *zap.Logger
}

// connectRetries bounds the Connect retry loop: one initial attempt plus up
// to three retries, three seconds apart.
const connectRetries = 3

// Connect dials MongoDB at uri and opens the four collections under dbName.
// Connection failures are retried up to connectRetries times with a fixed
// three-second backoff before giving up.
func Connect(ctx context.Context, uri, dbName string, log *zap.Logger) (*Store, error) {
	var client *mongo.Client
	attempt := 0

	operation := func() error {
		attempt++
		opts := options.Client().ApplyURI(uri).SetMonitor(otelmongo.NewMonitor())
		c, err := mongo.Connect(ctx, opts)
		if err != nil {
			log.Warn("mongo connect attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		if err := c.Ping(ctx, nil); err != nil {
			log.Warn("mongo ping attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		client = c
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(3*time.Second), connectRetries)
	if err := backoff.Retry(operation, policy); err != nil {
		log.Error("mongo connection failed after retries", zap.Int("retries", connectRetries), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	db := client.Database(dbName)
	return &Store{
		client:     client,
		metadata:   db.Collection("metadata"),
		identities: db.Collection("identities"),
		customers:  db.Collection("customers"),
		status:     db.Collection("status"),
		log:        log,
	}, nil
}

// Close disconnects the underlying mongo.Client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
