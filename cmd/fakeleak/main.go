// Command fakeleak seeds a MongoDB instance with a synthetic finished leak:
// a metadata document, a customer record, and a batch of fake identities
// with generated emails and passwords. It also writes the plain
// (identifier, password) pairs it generated to identities.json, so
// cmd/leakdemo can later verify how many of the delivered, salted
// identities it receives actually match what was seeded.
//
// Fake values are generated with math/rand rather than a fake-data
// library; see DESIGN.md for why.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/arc-self/leakchef-server/internal/leaktypes"
	"github.com/arc-self/leakchef-server/packages/go-core/natsclient"
)

// leakIngestedEvent is published to NATS JetStream once seeding succeeds,
// so anything subscribed to DOMAIN_EVENTS.leak.ingested can react (e.g. a
// notifier) without fakeleak needing to know who's listening.
type leakIngestedEvent struct {
	LeakID        string `json:"leak_id"`
	CustomerID    int32  `json:"customer_id"`
	IdentityCount int    `json:"identity_count"`
}

// plainCredential is one generated (identifier, password) pair, recorded
// so a later consumer can check how many of its deliveries actually match.
type plainCredential struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func main() {
	mongoURL := flag.String("mongo-url", "mongodb://localhost:27017", "MongoDB connection string")
	dbName := flag.String("db", "leakchef", "database name")
	count := flag.Int("count", 10_000, "number of identities to generate")
	leakID := flag.String("leak-id", "fake-leak-001", "leak id to seed")
	apiKey := flag.String("api-key", "", "bearer token to register for the seeded customer (generates a fresh UUID if empty)")
	out := flag.String("out", "identities.json", "path to write the generated plain credentials to")
	natsURL := flag.String("nats-url", "", "if set, publish a leak.ingested event to this NATS JetStream server once seeding completes")
	redisURL := flag.String("redis-url", "", "if set, use this Redis server to refuse reseeding a leak_id that was already seeded")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *redisURL != "" {
		already, err := checkAndMarkSeeded(ctx, *redisURL, *leakID)
		if err != nil {
			log.Printf("redis seeded-check failed, proceeding without it: %v", err)
		} else if already {
			log.Fatalf("leak_id %q was already seeded according to redis at %s", *leakID, *redisURL)
		}
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURL))
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(*dbName)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	identities := make([]interface{}, 0, *count)
	plain := make(map[string]plainCredential, *count)

	for i := 0; i < *count; i++ {
		email := randomEmail(rng, i)
		password := randomPassword(rng)

		doc := leaktypes.Identity{
			ID:       primitive.NewObjectID(),
			LeakID:   *leakID,
			Email:    []string{email},
			Password: []string{password},
		}
		identities = append(identities, doc)
		plain[doc.ID.Hex()] = plainCredential{Identifier: email, Password: password}
	}

	if len(identities) > 0 {
		if _, err := db.Collection("identities").InsertMany(ctx, identities); err != nil {
			log.Fatalf("insert identities: %v", err)
		}
	}

	metadata := leaktypes.Metadata{
		LeakID:              *leakID,
		FileName:            *leakID + ".txt",
		ExtractedIdentities: int64(*count),
		Status:              leaktypes.LeakStatusFinished,
		FileType:            leaktypes.FileTypeDSV,
		DateParsed:          time.Now().Unix(),
	}
	if _, err := db.Collection("metadata").InsertOne(ctx, metadata); err != nil {
		log.Fatalf("insert metadata: %v", err)
	}

	token := *apiKey
	if token == "" {
		token = uuid.NewString()
	}
	customer := leaktypes.Customer{
		CustomerID:   rng.Int31n(999_000) + 1000,
		HandledLeaks: []string{},
		CustomerSalt: randomPassword(rng),
		APIKey:       token,
	}
	if _, err := db.Collection("customers").InsertOne(ctx, customer); err != nil {
		log.Fatalf("insert customer: %v", err)
	}

	file, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer file.Close()
	if err := json.NewEncoder(file).Encode(plain); err != nil {
		log.Fatalf("encode %s: %v", *out, err)
	}

	log.Printf("seeded %d identities under leak %q for customer_id=%d (bearer token: %s, customer salt: %s)",
		*count, *leakID, customer.CustomerID, token, customer.CustomerSalt)

	if *natsURL != "" {
		publishLeakIngested(*natsURL, leakIngestedEvent{
			LeakID:        *leakID,
			CustomerID:    customer.CustomerID,
			IdentityCount: *count,
		})
	}
}

// publishLeakIngested connects to NATS, provisions the shared domain-event
// stream if it doesn't already exist, and publishes a leak.ingested event.
// Failures here are logged, not fatal — seeding has already succeeded by
// this point and should not be undone over a notification hiccup.
func publishLeakIngested(url string, event leakIngestedEvent) {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	nc, err := natsclient.NewClient(url, logger)
	if err != nil {
		logger.Warn("skipping leak.ingested publish: NATS connect failed", zap.Error(err))
		return
	}
	defer nc.Close()

	if err := nc.ProvisionStreams(); err != nil {
		logger.Warn("skipping leak.ingested publish: stream provisioning failed", zap.Error(err))
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Warn("skipping leak.ingested publish: encode failed", zap.Error(err))
		return
	}

	subject := natsclient.SubjectDomainEvents[:len(natsclient.SubjectDomainEvents)-1] + "leak.ingested"
	if _, err := nc.JS.Publish(subject, payload); err != nil {
		logger.Warn("leak.ingested publish failed", zap.Error(err))
		return
	}
	logger.Info("published leak.ingested event", zap.String("subject", subject))
}

// checkAndMarkSeeded reports whether leakID was already marked seeded in
// Redis and, if not, marks it now with a week-long TTL so repeated demo
// runs against the same Redis instance don't silently double-seed a
// leak_id under concurrent scripts.
func checkAndMarkSeeded(ctx context.Context, redisURL, leakID string) (bool, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return false, err
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	key := "fakeleak:seeded:" + leakID
	ok, err := rdb.SetNX(ctx, key, 1, 7*24*time.Hour).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

const randomCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomString(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = randomCharset[rng.Intn(len(randomCharset))]
	}
	return string(b)
}

func randomEmail(rng *rand.Rand, seq int) string {
	return fmt.Sprintf("%s.%d@hotmail.com", randomString(rng, 10), seq)
}

func randomPassword(rng *rand.Rand) string {
	return randomString(rng, 8+rng.Intn(8))
}
