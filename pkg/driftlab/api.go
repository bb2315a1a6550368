// Package driftlab is the public facade over the transmission-model
// simulation platform. It wires a store to the lab coordinator and exposes
// batch execution, inspection, and export as a small client API.
package driftlab

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"driftlab/internal/model"
	"driftlab/internal/platform"
	"driftlab/internal/sim"
	"driftlab/internal/stats"
	"driftlab/internal/storage"
)

const (
	defaultExportsDir = "exports"
	defaultDBPath     = "driftlab.db"
)

type Options struct {
	StoreKind  string
	DBPath     string
	ExportsDir string
}

type Client struct {
	store storage.Store
	lab   *platform.Lab

	exportsDir string
}

// RunRequest describes one replicate batch. Zero-valued knobs fall back to
// defaults; model parameters are passed through to the model's own
// validation.
type RunRequest struct {
	Model       string
	BatchID     string
	Population  int
	Generations int
	Runs        int
	Workers     int
	Seed        int64

	P0      float64
	PA0     float64
	PB0     float64
	Q0      float64
	Mu      float64
	MuB     float64
	S       float64
	Linkage float64
}

type RunSummary struct {
	BatchID      string
	Model        string
	Tracks       int
	Mean         []float64
	Variance     []float64
	Mean2        []float64
	FinalMean    float64
	CreatedAtUTC string
}

type BatchesRequest struct {
	Limit int
}

type BatchItem struct {
	BatchID      string
	Model        string
	Population   int
	Generations  int
	Runs         int
	Seed         int64
	Tracks       int
	CreatedAtUTC string
}

type TrajectoryRequest struct {
	BatchID string
	Track   int
}

type TrajectorySummary struct {
	BatchID     string
	Track       int
	Generations int
	Runs        int
	Mean        []float64
	Variance    []float64
	Rows        [][]float64
}

type CompareRequest struct {
	BatchA string
	BatchB string
	Track  int
}

type CompareSummary struct {
	BatchA     string
	BatchB     string
	Track      int
	Order      string
	FinalMeanA float64
	FinalMeanB float64
}

type ExportRequest struct {
	BatchID string
	Latest  bool
	OutDir  string
}

type ExportSummary struct {
	BatchID   string
	Directory string
}

type ModelInfo struct {
	Name       string
	BatchCount int
	LastBatch  string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureLab(ctx)
	return err
}

// Models lists the registered model names alongside their stored batch
// counts, if any.
func (c *Client) Models(ctx context.Context) ([]ModelInfo, error) {
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return nil, err
	}
	names := lab.Models()
	out := make([]ModelInfo, 0, len(names))
	for _, name := range names {
		info := ModelInfo{Name: name}
		summary, ok, err := lab.ModelSummary(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			info.BatchCount = summary.BatchCount
			info.LastBatch = summary.LastBatchID
		}
		out = append(out, info)
	}
	return out, nil
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Model == "" {
		req.Model = "unbiased_transmission"
	}
	// Only the unset zero value falls back to a default. Negative values are
	// invalid configuration and must surface as errors, not be clamped.
	if req.Population < 0 {
		return RunSummary{}, fmt.Errorf("population size must be >= 1, got %d", req.Population)
	}
	if req.Generations < 0 {
		return RunSummary{}, fmt.Errorf("generation count must be >= 1, got %d", req.Generations)
	}
	if req.Runs < 0 {
		return RunSummary{}, fmt.Errorf("run count must be >= 1, got %d", req.Runs)
	}
	if req.Workers < 0 {
		return RunSummary{}, fmt.Errorf("worker count must be >= 1, got %d", req.Workers)
	}
	if req.Population == 0 {
		req.Population = 100
	}
	if req.Generations == 0 {
		req.Generations = 100
	}
	if req.Runs == 0 {
		req.Runs = 10
	}
	if req.Workers == 0 {
		req.Workers = 4
	}

	lab, err := c.ensureLab(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	result, err := lab.RunBatch(ctx, platform.BatchSpec{
		BatchID:        req.BatchID,
		Model:          req.Model,
		Params:         paramsFromRequest(req),
		PopulationSize: req.Population,
		Generations:    req.Generations,
		Runs:           req.Runs,
		Workers:        req.Workers,
		Seed:           req.Seed,
	})
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{
		BatchID:      result.Record.ID,
		Model:        result.Record.Model,
		Tracks:       result.Record.Tracks,
		Mean:         append([]float64(nil), result.Mean...),
		Variance:     append([]float64(nil), result.Variance...),
		Mean2:        append([]float64(nil), result.Mean2...),
		CreatedAtUTC: result.Record.CreatedAtUTC,
	}
	if len(result.Mean) > 0 {
		summary.FinalMean = result.Mean[len(result.Mean)-1]
	}
	return summary, nil
}

func (c *Client) Batches(ctx context.Context, req BatchesRequest) ([]BatchItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	lab, err := c.ensureLab(ctx)
	if err != nil {
		return nil, err
	}
	records, err := lab.Batches(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) > req.Limit {
		records = records[:req.Limit]
	}

	out := make([]BatchItem, 0, len(records))
	for _, rec := range records {
		out = append(out, BatchItem{
			BatchID:      rec.ID,
			Model:        rec.Model,
			Population:   rec.PopulationSize,
			Generations:  rec.Generations,
			Runs:         rec.Runs,
			Seed:         rec.Seed,
			Tracks:       rec.Tracks,
			CreatedAtUTC: rec.CreatedAtUTC,
		})
	}
	return out, nil
}

func (c *Client) Batch(ctx context.Context, batchID string) (BatchItem, error) {
	if batchID == "" {
		return BatchItem{}, errors.New("batch id is required")
	}
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return BatchItem{}, err
	}
	rec, ok, err := lab.Batch(ctx, batchID)
	if err != nil {
		return BatchItem{}, err
	}
	if !ok {
		return BatchItem{}, fmt.Errorf("batch not found: %s", batchID)
	}
	return BatchItem{
		BatchID:      rec.ID,
		Model:        rec.Model,
		Population:   rec.PopulationSize,
		Generations:  rec.Generations,
		Runs:         rec.Runs,
		Seed:         rec.Seed,
		Tracks:       rec.Tracks,
		CreatedAtUTC: rec.CreatedAtUTC,
	}, nil
}

// Trajectory returns one stored trajectory matrix together with its
// per-generation mean and variance. Track defaults to 1.
func (c *Client) Trajectory(ctx context.Context, req TrajectoryRequest) (TrajectorySummary, error) {
	if req.BatchID == "" {
		return TrajectorySummary{}, errors.New("batch id is required")
	}
	if req.Track == 0 {
		req.Track = 1
	}

	lab, err := c.ensureLab(ctx)
	if err != nil {
		return TrajectorySummary{}, err
	}
	matrix, err := lab.TrajectoryMatrix(ctx, req.BatchID, req.Track)
	if err != nil {
		return TrajectorySummary{}, err
	}
	return TrajectorySummary{
		BatchID:     req.BatchID,
		Track:       req.Track,
		Generations: matrix.Generations(),
		Runs:        matrix.Runs(),
		Mean:        stats.MeanByGeneration(matrix),
		Variance:    stats.VarianceByGeneration(matrix),
		Rows:        matrix.Rows(),
	}, nil
}

// Compare orders batch A's mean trajectory against batch B's. Track
// defaults to 1.
func (c *Client) Compare(ctx context.Context, req CompareRequest) (CompareSummary, error) {
	if req.BatchA == "" || req.BatchB == "" {
		return CompareSummary{}, errors.New("compare requires two batch ids")
	}
	if req.Track == 0 {
		req.Track = 1
	}

	lab, err := c.ensureLab(ctx)
	if err != nil {
		return CompareSummary{}, err
	}
	cmp, err := lab.CompareBatches(ctx, req.BatchA, req.BatchB, req.Track)
	if err != nil {
		return CompareSummary{}, err
	}
	return CompareSummary{
		BatchA:     cmp.BatchA,
		BatchB:     cmp.BatchB,
		Track:      cmp.Track,
		Order:      string(cmp.Order),
		FinalMeanA: cmp.FinalMeanA,
		FinalMeanB: cmp.FinalMeanB,
	}, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.BatchID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either batch id or latest")
	}
	if req.BatchID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires batch id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	lab, err := c.ensureLab(ctx)
	if err != nil {
		return ExportSummary{}, err
	}

	batchID := req.BatchID
	if req.Latest {
		records, err := lab.Batches(ctx)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(records) == 0 {
			return ExportSummary{}, errors.New("no batches available to export")
		}
		batchID = records[0].ID
	}

	rec, ok, err := lab.Batch(ctx, batchID)
	if err != nil {
		return ExportSummary{}, err
	}
	if !ok {
		return ExportSummary{}, fmt.Errorf("batch not found: %s", batchID)
	}
	trajectories, ok, err := lab.Trajectories(ctx, batchID)
	if err != nil {
		return ExportSummary{}, err
	}
	if !ok {
		return ExportSummary{}, fmt.Errorf("trajectories not found for batch: %s", batchID)
	}

	artifact := stats.BatchArtifact{
		Batch:        rec,
		Trajectories: trajectories,
	}
	for _, traj := range trajectories {
		matrix, err := sim.MatrixFromRows(traj.Values)
		if err != nil {
			return ExportSummary{}, err
		}
		switch traj.Track {
		case 1:
			artifact.Mean = stats.MeanByGeneration(matrix)
			artifact.Variance = stats.VarianceByGeneration(matrix)
		case 2:
			artifact.Mean2 = stats.MeanByGeneration(matrix)
		}
	}

	if err := stats.WriteBatchArtifact(req.OutDir, artifact); err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{BatchID: batchID, Directory: filepath.Clean(req.OutDir)}, nil
}

func (c *Client) Reset(ctx context.Context) error {
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return err
	}
	return lab.Reset(ctx)
}

func (c *Client) ensureLab(ctx context.Context) (*platform.Lab, error) {
	if c.lab != nil {
		return c.lab, nil
	}
	lab := platform.NewLab(platform.Config{Store: c.store})
	if err := lab.Init(ctx); err != nil {
		return nil, err
	}
	c.lab = lab
	return c.lab, nil
}

func paramsFromRequest(req RunRequest) model.Params {
	return model.Params{
		P0:      req.P0,
		PA0:     req.PA0,
		PB0:     req.PB0,
		Q0:      req.Q0,
		Mu:      req.Mu,
		MuB:     req.MuB,
		S:       req.S,
		Linkage: req.Linkage,
	}
}
