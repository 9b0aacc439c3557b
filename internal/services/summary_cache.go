package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/michellelee0718/porespective/internal/models"
)

// SummaryCache stores ingredient-summary results keyed by the serialized
// ingredient list. Entries never expire.
type SummaryCache interface {
	Get(ctx context.Context, key string) ([]string, error)
	Put(ctx context.Context, key string, summary []string) error
}

// SummaryCacheKey derives the cache key from the JSON-serialized ingredient
// list, hashed so the key stays a sane length for an index.
func SummaryCacheKey(ingredients []models.Ingredient) string {
	raw, err := json.Marshal(ingredients)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

type summaryCacheDoc struct {
	Key       string    `bson:"key"`
	Summary   []string  `bson:"summary"`
	CreatedAt time.Time `bson:"created_at"`
}

type MongoSummaryCache struct {
	col *mongo.Collection
}

func NewMongoSummaryCache(ctx context.Context, db *mongo.Database) *MongoSummaryCache {
	col := db.Collection("summary_cache")

	// Best-effort index.
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoSummaryCache{col: col}
}

func (c *MongoSummaryCache) Get(ctx context.Context, key string) ([]string, error) {
	var doc summaryCacheDoc
	err := c.col.FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Summary, nil
}

func (c *MongoSummaryCache) Put(ctx context.Context, key string, summary []string) error {
	_, err := c.col.UpdateOne(
		ctx,
		bson.M{"key": key},
		bson.M{"$set": summaryCacheDoc{Key: key, Summary: summary, CreatedAt: time.Now()}},
		options.Update().SetUpsert(true),
	)
	return err
}
