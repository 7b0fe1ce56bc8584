package catalog

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ensureIndexes creates idempotent indexes on every collection this
// package reads or writes.
func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	type idx struct {
		collection string
		model      mongo.IndexModel
	}

	indexes := []idx{
		{
			collection: "archive_directory",
			model: mongo.IndexModel{
				Keys: bson.D{
					{Key: "vendor", Value: 1}, {Key: "market", Value: 1},
					{Key: "symbol", Value: 1}, {Key: "resolution", Value: 1},
					{Key: "data_type", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: "backfill_tasks",
			model: mongo.IndexModel{
				Keys: bson.D{
					{Key: "symbol", Value: 1}, {Key: "resolution", Value: 1},
					{Key: "data_type", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: "trade_exports",
			model: mongo.IndexModel{
				Keys: bson.D{
					{Key: "mode", Value: 1}, {Key: "brokerage", Value: 1},
					{Key: "account", Value: 1}, {Key: "exported_date", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for _, i := range indexes {
		if _, err := db.Collection(i.collection).Indexes().CreateOne(ctx, i.model); err != nil {
			return fmt.Errorf("catalog: create index on %s: %w", i.collection, err)
		}
	}
	return nil
}
