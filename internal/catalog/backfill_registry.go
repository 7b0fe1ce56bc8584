package catalog

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// TaskStatus is a backfill task's lifecycle state.
type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// TaskRecord is one backfill task's persisted progress, keyed by the
// (symbol, resolution, data-type) triple the backfill controller dedups
// concurrent starts on.
type TaskRecord struct {
	Symbol     string     `bson:"symbol"`
	Resolution string     `bson:"resolution"`
	DataType   string     `bson:"data_type"`
	Status     TaskStatus `bson:"status"`
	StartedAt  time.Time  `bson:"started_at"`
	UpdatedAt  time.Time  `bson:"updated_at"`
	Error      string     `bson:"error,omitempty"`
}

func taskFilter(symbol, resolution, dataType string) bson.M {
	return bson.M{"symbol": symbol, "resolution": resolution, "data_type": dataType}
}

// BackfillRegistry mirrors the backfill controller's in-memory task
// registry in Mongo, so a restarted process can see what was already
// running rather than starting every configured symbol from scratch.
type BackfillRegistry struct {
	store *Store
}

// NewBackfillRegistry binds a BackfillRegistry to store.
func NewBackfillRegistry(store *Store) *BackfillRegistry { return &BackfillRegistry{store: store} }

func (r *BackfillRegistry) collection() *mongo.Collection {
	return r.store.db.Collection("backfill_tasks")
}

// Start records a task entering TaskRunning, overwriting any prior record
// for the same key (a restart always begins a task's record fresh).
func (r *BackfillRegistry) Start(ctx context.Context, symbol, resolution, dataType string, now time.Time) error {
	doc := TaskRecord{
		Symbol: symbol, Resolution: resolution, DataType: dataType,
		Status: TaskRunning, StartedAt: now, UpdatedAt: now,
	}
	_, err := r.collection().ReplaceOne(ctx, taskFilter(symbol, resolution, dataType), doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("catalog: start backfill task: %w", err)
	}
	return nil
}

// Finish marks a task TaskCompleted (taskErr == nil) or TaskFailed, and
// records its error text on failure.
func (r *BackfillRegistry) Finish(ctx context.Context, symbol, resolution, dataType string, now time.Time, taskErr error) error {
	status := TaskCompleted
	errText := ""
	if taskErr != nil {
		status = TaskFailed
		errText = taskErr.Error()
	}
	update := bson.M{"$set": bson.M{"status": status, "updated_at": now, "error": errText}}
	_, err := r.collection().UpdateOne(ctx, taskFilter(symbol, resolution, dataType), update)
	if err != nil {
		return fmt.Errorf("catalog: finish backfill task: %w", err)
	}
	return nil
}

// Get returns the task record for the given key, if one exists.
func (r *BackfillRegistry) Get(ctx context.Context, symbol, resolution, dataType string) (TaskRecord, bool, error) {
	var rec TaskRecord
	err := r.collection().FindOne(ctx, taskFilter(symbol, resolution, dataType)).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return TaskRecord{}, false, nil
	}
	if err != nil {
		return TaskRecord{}, false, fmt.Errorf("catalog: query backfill task: %w", err)
	}
	return rec, true, nil
}

// ListRunning returns every task currently marked TaskRunning, for reaping
// a sweep that finds tasks abandoned by a crashed process.
func (r *BackfillRegistry) ListRunning(ctx context.Context) ([]TaskRecord, error) {
	cursor, err := r.collection().Find(ctx, bson.M{"status": TaskRunning})
	if err != nil {
		return nil, fmt.Errorf("catalog: list running backfill tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var out []TaskRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("catalog: decode running backfill tasks: %w", err)
	}
	return out, nil
}
