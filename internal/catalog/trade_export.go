package catalog

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ExportRecord is the idempotency marker for one ledger CSV export: a
// given (mode, brokerage, account) triple exports at most once per
// calendar date, so a retried or duplicated ExportTrades call doesn't
// double-write the same day's results.
type ExportRecord struct {
	Mode         string    `bson:"mode"`
	Brokerage    string    `bson:"brokerage"`
	Account      string    `bson:"account"`
	ExportedDate string    `bson:"exported_date"` // YYYY-MM-DD
	Path         string    `bson:"path"`
	RowCount     int       `bson:"row_count"`
	ExportedAt   time.Time `bson:"exported_at"`
}

func exportFilter(mode, brokerage, account, date string) bson.M {
	return bson.M{"mode": mode, "brokerage": brokerage, "account": account, "exported_date": date}
}

// TradeExportIndex records which ledger exports have already run.
type TradeExportIndex struct {
	store *Store
}

// NewTradeExportIndex binds a TradeExportIndex to store.
func NewTradeExportIndex(store *Store) *TradeExportIndex { return &TradeExportIndex{store: store} }

func (i *TradeExportIndex) collection() *mongo.Collection {
	return i.store.db.Collection("trade_exports")
}

// HasExported reports whether mode/brokerage/account already has a
// recorded export for the UTC calendar date of at.
func (i *TradeExportIndex) HasExported(ctx context.Context, mode, brokerage, account string, at time.Time) (bool, error) {
	date := at.UTC().Format("2006-01-02")
	err := i.collection().FindOne(ctx, exportFilter(mode, brokerage, account, date)).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog: query trade export record: %w", err)
	}
	return true, nil
}

// RecordExport marks mode/brokerage/account as exported for at's UTC
// calendar date, idempotently (re-recording the same date overwrites path
// and row count rather than erroring).
func (i *TradeExportIndex) RecordExport(ctx context.Context, mode, brokerage, account, path string, rowCount int, at time.Time) error {
	date := at.UTC().Format("2006-01-02")
	doc := ExportRecord{
		Mode: mode, Brokerage: brokerage, Account: account, ExportedDate: date,
		Path: path, RowCount: rowCount, ExportedAt: at,
	}
	_, err := i.collection().ReplaceOne(ctx, exportFilter(mode, brokerage, account, date), doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("catalog: record trade export: %w", err)
	}
	return nil
}
