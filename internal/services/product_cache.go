package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/michellelee0718/porespective/internal/models"
)

// ProductCacheMaxAge is how long a cached ingredient lookup stays valid.
const ProductCacheMaxAge = 30 * 24 * time.Hour

// ProductCache stores ingredient lookups keyed by the search term.
type ProductCache interface {
	Get(ctx context.Context, searchKey string) (*models.CachedProduct, error)
	Put(ctx context.Context, searchKey string, product models.Product) error
}

type MongoProductCache struct {
	col *mongo.Collection
}

func NewMongoProductCache(ctx context.Context, db *mongo.Database) *MongoProductCache {
	col := db.Collection("product_cache")

	// Best-effort index.
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "search_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoProductCache{col: col}
}

// Get returns the cached entry or nil on a miss. Expiry is decided by the
// caller so tests can control the clock.
func (c *MongoProductCache) Get(ctx context.Context, searchKey string) (*models.CachedProduct, error) {
	var cached models.CachedProduct
	err := c.col.FindOne(ctx, bson.M{"search_key": searchKey}).Decode(&cached)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cached, nil
}

func (c *MongoProductCache) Put(ctx context.Context, searchKey string, product models.Product) error {
	entry := models.CachedProduct{
		SearchKey:   searchKey,
		Product:     product,
		LastUpdated: time.Now(),
	}
	_, err := c.col.UpdateOne(
		ctx,
		bson.M{"search_key": searchKey},
		bson.M{"$set": entry},
		options.Update().SetUpsert(true),
	)
	return err
}
