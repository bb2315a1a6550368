package storage

import (
	"context"
	"sort"
	"sync"

	"driftlab/internal/model"
)

type MemoryStore struct {
	mu           sync.RWMutex
	initialized  bool
	batches      map[string]model.BatchRecord
	trajectories map[string][]model.TrajectoryRecord
	summaries    map[string]model.ModelSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.batches = make(map[string]model.BatchRecord)
	s.trajectories = make(map[string][]model.TrajectoryRecord)
	s.summaries = make(map[string]model.ModelSummary)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *MemoryStore) SaveBatch(_ context.Context, batch model.BatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batches[batch.ID] = batch
	return nil
}

func (s *MemoryStore) GetBatch(_ context.Context, id string) (model.BatchRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch, ok := s.batches[id]
	return batch, ok, nil
}

func (s *MemoryStore) ListBatches(_ context.Context) ([]model.BatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batches := make([]model.BatchRecord, 0, len(s.batches))
	for _, batch := range s.batches {
		batches = append(batches, batch)
	}
	sort.Slice(batches, func(i, j int) bool {
		if batches[i].CreatedAtUTC == batches[j].CreatedAtUTC {
			return batches[i].ID < batches[j].ID
		}
		return batches[i].CreatedAtUTC > batches[j].CreatedAtUTC
	})
	return batches, nil
}

func (s *MemoryStore) SaveTrajectories(_ context.Context, batchID string, tracks []model.TrajectoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trajectories[batchID] = append([]model.TrajectoryRecord(nil), tracks...)
	return nil
}

func (s *MemoryStore) GetTrajectories(_ context.Context, batchID string) ([]model.TrajectoryRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tracks, ok := s.trajectories[batchID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.TrajectoryRecord(nil), tracks...), true, nil
}

func (s *MemoryStore) SaveModelSummary(_ context.Context, summary model.ModelSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries[summary.Name] = summary
	return nil
}

func (s *MemoryStore) GetModelSummary(_ context.Context, name string) (model.ModelSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.summaries[name]
	return summary, ok, nil
}
