package storage

import (
	"context"

	"driftlab/internal/model"
)

// Store persists replicate batches and their trajectory matrices. The
// simulation core never touches a Store; persistence belongs to the
// surrounding tooling.
type Store interface {
	Init(ctx context.Context) error
	SaveBatch(ctx context.Context, batch model.BatchRecord) error
	GetBatch(ctx context.Context, id string) (model.BatchRecord, bool, error)
	ListBatches(ctx context.Context) ([]model.BatchRecord, error)
	SaveTrajectories(ctx context.Context, batchID string, tracks []model.TrajectoryRecord) error
	GetTrajectories(ctx context.Context, batchID string) ([]model.TrajectoryRecord, bool, error)
	SaveModelSummary(ctx context.Context, summary model.ModelSummary) error
	GetModelSummary(ctx context.Context, name string) (model.ModelSummary, bool, error)
}

// Resetter is implemented by stores that can drop all persisted state.
type Resetter interface {
	Reset(ctx context.Context) error
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
