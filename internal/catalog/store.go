// Package catalog is the Mongo-backed best-effort index this runtime keeps
// alongside the archive's own directory tree: a directory index so
// GetLatestTime/GetEarliestTime on a hot key can be served from one indexed
// query instead of a filesystem walk, a backfill task registry, and an
// idempotent trade-export ledger. The directory walk in internal/archive
// remains the source of truth; everything here is rebuildable by
// re-walking it.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Store wraps the MongoDB client and database backing the catalog.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to MongoDB and returns a Store. The URI should include
// the database name (e.g. mongodb://localhost:27017/fundforge); if it
// doesn't, "fundforge" is used.
func NewStore(ctx context.Context, uri string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("catalog: connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("catalog: ping mongodb: %w", err)
	}

	dbName := "fundforge"
	if u, err := url.Parse(uri); err == nil {
		if name := strings.TrimPrefix(u.Path, "/"); name != "" {
			dbName = name
		}
	}

	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// DB returns the underlying mongo.Database, for callers that need direct
// collection access this package doesn't expose a method for.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates every index this package relies on. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	return ensureIndexes(ctx, s.db)
}
