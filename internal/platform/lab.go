package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"driftlab/internal/model"
	"driftlab/internal/rules"
	"driftlab/internal/sim"
	"driftlab/internal/stats"
	"driftlab/internal/storage"
)

type Config struct {
	Store storage.Store
}

// BatchSpec is a request to run one replicate batch of a registered model.
type BatchSpec struct {
	BatchID        string
	Model          string
	Params         model.Params
	PopulationSize int
	Generations    int
	Runs           int
	Workers        int
	Seed           int64
}

// BatchResult pairs the persisted record with the in-memory batch and its
// cross-run summaries.
type BatchResult struct {
	Record   model.BatchRecord
	Batch    *sim.Batch
	Mean     []float64
	Variance []float64
	Mean2    []float64
}

// Lab wires the simulation engine to a store. It validates batch requests,
// executes them through the replicate harness, and records provenance and
// trajectories for later inspection and export.
type Lab struct {
	store storage.Store

	mu      sync.RWMutex
	started bool

	now func() time.Time
}

func NewLab(cfg Config) *Lab {
	return &Lab{
		store: cfg.Store,
		now:   time.Now,
	}
}

func (l *Lab) Init(ctx context.Context) error {
	if l.store == nil {
		return fmt.Errorf("store is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	if err := l.store.Init(ctx); err != nil {
		return err
	}
	l.started = true
	return nil
}

func (l *Lab) Started() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.started
}

func (l *Lab) Stop() {
	l.mu.Lock()
	l.started = false
	l.mu.Unlock()
}

func (l *Lab) Reset(ctx context.Context) error {
	l.Stop()
	if resetter, ok := l.store.(storage.Resetter); ok {
		if err := resetter.Reset(ctx); err != nil {
			return err
		}
	}
	return l.Init(ctx)
}

// Models lists the registered transmission model identifiers.
func (l *Lab) Models() []string {
	return rules.Names()
}

// RunBatch builds the requested model, runs the replicate batch, persists
// the batch record plus its trajectory matrices, and returns the result
// with per-generation summaries attached.
func (l *Lab) RunBatch(ctx context.Context, spec BatchSpec) (BatchResult, error) {
	if !l.Started() {
		return BatchResult{}, fmt.Errorf("lab is not initialized")
	}

	m, err := rules.New(spec.Model, spec.Params)
	if err != nil {
		return BatchResult{}, err
	}

	batchID := spec.BatchID
	if batchID == "" {
		batchID = fmt.Sprintf("batch:%s:%d", spec.Model, spec.Seed)
	}

	batch, err := sim.RunBatch(ctx, sim.BatchConfig{
		Model:   m,
		N:       spec.PopulationSize,
		TMax:    spec.Generations,
		Runs:    spec.Runs,
		Workers: spec.Workers,
		Seed:    spec.Seed,
	})
	if err != nil {
		return BatchResult{}, err
	}

	record := model.BatchRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:             batchID,
		Model:          batch.Meta.Model,
		Params:         batch.Meta.Params,
		PopulationSize: batch.Meta.N,
		Generations:    batch.Meta.TMax,
		Runs:           batch.Meta.Runs,
		Seed:           batch.Meta.Seed,
		Tracks:         batch.Meta.Tracks,
		CreatedAtUTC:   l.now().UTC().Format(time.RFC3339),
	}
	if err := l.store.SaveBatch(ctx, record); err != nil {
		return BatchResult{}, err
	}
	records, err := trajectoryRecords(batch)
	if err != nil {
		return BatchResult{}, err
	}
	if err := l.store.SaveTrajectories(ctx, batchID, records); err != nil {
		return BatchResult{}, err
	}
	if err := l.updateModelSummary(ctx, record); err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{
		Record:   record,
		Batch:    batch,
		Mean:     stats.MeanByGeneration(batch.Freq),
		Variance: stats.VarianceByGeneration(batch.Freq),
	}
	if batch.Freq2 != nil {
		result.Mean2 = stats.MeanByGeneration(batch.Freq2)
	}
	return result, nil
}

// Batch loads a persisted batch record.
func (l *Lab) Batch(ctx context.Context, id string) (model.BatchRecord, bool, error) {
	if !l.Started() {
		return model.BatchRecord{}, false, fmt.Errorf("lab is not initialized")
	}
	return l.store.GetBatch(ctx, id)
}

// Batches lists persisted batch records, newest first.
func (l *Lab) Batches(ctx context.Context) ([]model.BatchRecord, error) {
	if !l.Started() {
		return nil, fmt.Errorf("lab is not initialized")
	}
	return l.store.ListBatches(ctx)
}

// Trajectories loads a persisted batch's trajectory matrices.
func (l *Lab) Trajectories(ctx context.Context, batchID string) ([]model.TrajectoryRecord, bool, error) {
	if !l.Started() {
		return nil, false, fmt.Errorf("lab is not initialized")
	}
	return l.store.GetTrajectories(ctx, batchID)
}

// TrajectoryMatrix rebuilds the matrix for one 1-based track of a persisted
// batch. Requesting a track the batch's model did not record is a
// model-mismatch error.
func (l *Lab) TrajectoryMatrix(ctx context.Context, batchID string, track int) (*sim.Matrix, error) {
	tracks, ok, err := l.Trajectories(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("batch not found: %s", batchID)
	}
	for _, rec := range tracks {
		if rec.Track != track {
			continue
		}
		return sim.MatrixFromRows(rec.Values)
	}
	return nil, fmt.Errorf("%w: batch %s has no track %d", sim.ErrTrackMismatch, batchID, track)
}

// BatchComparison orders one batch's mean trajectory against another's.
type BatchComparison struct {
	BatchA     string
	BatchB     string
	Track      int
	Order      stats.TrajectoryOrder
	FinalMeanA float64
	FinalMeanB float64
}

// CompareBatches orders batch A's per-generation mean against batch B's on
// the given track. Both batches must cover the same number of generations.
func (l *Lab) CompareBatches(ctx context.Context, idA, idB string, track int) (BatchComparison, error) {
	matrixA, err := l.TrajectoryMatrix(ctx, idA, track)
	if err != nil {
		return BatchComparison{}, err
	}
	matrixB, err := l.TrajectoryMatrix(ctx, idB, track)
	if err != nil {
		return BatchComparison{}, err
	}
	if matrixA.Generations() != matrixB.Generations() {
		return BatchComparison{}, fmt.Errorf("batches cover different generation counts: %d vs %d",
			matrixA.Generations(), matrixB.Generations())
	}

	meanA := stats.MeanByGeneration(matrixA)
	meanB := stats.MeanByGeneration(matrixB)
	return BatchComparison{
		BatchA:     idA,
		BatchB:     idB,
		Track:      track,
		Order:      stats.CompareTrajectories(meanA, meanB),
		FinalMeanA: meanA[len(meanA)-1],
		FinalMeanB: meanB[len(meanB)-1],
	}, nil
}

func (l *Lab) ModelSummary(ctx context.Context, name string) (model.ModelSummary, bool, error) {
	if !l.Started() {
		return model.ModelSummary{}, false, fmt.Errorf("lab is not initialized")
	}
	return l.store.GetModelSummary(ctx, name)
}

func (l *Lab) updateModelSummary(ctx context.Context, record model.BatchRecord) error {
	summary, ok, err := l.store.GetModelSummary(ctx, record.Model)
	if err != nil {
		return err
	}
	if !ok {
		summary = model.ModelSummary{
			VersionedRecord: model.VersionedRecord{
				SchemaVersion: storage.CurrentSchemaVersion,
				CodecVersion:  storage.CurrentCodecVersion,
			},
			Name:        record.Model,
			Description: fmt.Sprintf("replicate batches recorded for model %s", record.Model),
		}
	}
	summary.BatchCount++
	summary.LastBatchID = record.ID
	return l.store.SaveModelSummary(ctx, summary)
}

func trajectoryRecords(batch *sim.Batch) ([]model.TrajectoryRecord, error) {
	records := make([]model.TrajectoryRecord, 0, batch.Meta.Tracks)
	for track := 1; track <= batch.Meta.Tracks; track++ {
		matrix, err := batch.Track(track)
		if err != nil {
			return nil, err
		}
		records = append(records, model.TrajectoryRecord{
			Track:       track,
			Generations: matrix.Generations(),
			Runs:        matrix.Runs(),
			Values:      matrix.Rows(),
		})
	}
	return records, nil
}
