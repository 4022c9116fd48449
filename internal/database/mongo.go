package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is the global MongoDB database handle.
var Mongo *mongo.Database

// ConnectMongo opens a MongoDB connection and ensures indexes.
func ConnectMongo(url string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("mongodb connection failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	db := client.Database(databaseName(url))
	if err := ensureMongoIndexes(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure mongodb indexes: %w", err)
	}

	Mongo = db
	return db, nil
}

func databaseName(url string) string {
	trimmed := strings.TrimSuffix(url, "/")
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		if name := trimmed[idx+1:]; name != "" && !strings.Contains(name, "@") && !strings.Contains(name, ":") {
			return name
		}
	}
	return "motohub"
}

func ensureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("alerts").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "latitude", Value: 1}, {Key: "longitude", Value: 1}}},
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("posts").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "hashtags", Value: 1}}},
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("videos").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "views", Value: -1}}},
	})
	return err
}
