package catalog

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ndrandal/fund-forge-go/internal/archive"
)

// directoryDoc is the persisted shape of one archive.Key's indexed bounds.
type directoryDoc struct {
	Vendor     string    `bson:"vendor"`
	Market     string    `bson:"market"`
	Symbol     string    `bson:"symbol"`
	Resolution string    `bson:"resolution"`
	DataType   string    `bson:"data_type"`
	Earliest   time.Time `bson:"earliest"`
	Latest     time.Time `bson:"latest"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func directoryFilter(key archive.Key) bson.M {
	return bson.M{
		"vendor": key.Vendor, "market": key.Market.String(), "symbol": key.Symbol,
		"resolution": key.Resolution.String(), "data_type": key.DataType.String(),
	}
}

// ArchiveIndex keeps a best-effort (earliest, latest) timestamp index
// mirroring internal/archive's own directory tree, so a hot key's bounds
// can be read with one indexed query instead of a filesystem walk.
type ArchiveIndex struct {
	coll *Store
}

// NewArchiveIndex binds an ArchiveIndex to store.
func NewArchiveIndex(store *Store) *ArchiveIndex { return &ArchiveIndex{coll: store} }

// UpsertBounds records key's current (earliest, latest) bounds, called
// after every archive write so the index tracks the directory tree it
// mirrors. now is the update timestamp, passed in rather than read from
// the clock so callers control it in tests and replay.
func (a *ArchiveIndex) UpsertBounds(ctx context.Context, key archive.Key, earliest, latest time.Time, now time.Time) error {
	doc := directoryDoc{
		Vendor: key.Vendor, Market: key.Market.String(), Symbol: key.Symbol,
		Resolution: key.Resolution.String(), DataType: key.DataType.String(),
		Earliest: earliest, Latest: latest, UpdatedAt: now,
	}
	_, err := a.coll.db.Collection("archive_directory").ReplaceOne(
		ctx, directoryFilter(key), doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("catalog: upsert archive directory entry: %w", err)
	}
	return nil
}

// LatestTime returns key's indexed latest timestamp, if the index has an
// entry for it.
func (a *ArchiveIndex) LatestTime(ctx context.Context, key archive.Key) (time.Time, bool, error) {
	var doc directoryDoc
	err := a.coll.db.Collection("archive_directory").FindOne(ctx, directoryFilter(key)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("catalog: query archive directory entry: %w", err)
	}
	return doc.Latest, true, nil
}

// EarliestTime returns key's indexed earliest timestamp, if the index has
// an entry for it.
func (a *ArchiveIndex) EarliestTime(ctx context.Context, key archive.Key) (time.Time, bool, error) {
	var doc directoryDoc
	err := a.coll.db.Collection("archive_directory").FindOne(ctx, directoryFilter(key)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("catalog: query archive directory entry: %w", err)
	}
	return doc.Earliest, true, nil
}
