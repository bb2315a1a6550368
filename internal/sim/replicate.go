package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"driftlab/internal/model"
	"driftlab/internal/rules"
)

// runSeedStride spaces the per-run seeds of a batch. Runs are fully
// isolated: run r always draws from seed + r*stride regardless of which
// worker executes it or in which order runs complete.
const runSeedStride int64 = 0x6A09E667F3BCC909

var ErrTrackMismatch = errors.New("trajectory track mismatch")

// BatchConfig describes S independent replicate runs of one model.
type BatchConfig struct {
	Model   rules.Model
	N       int
	TMax    int
	Runs    int
	Workers int
	Seed    int64
}

// Metadata carries the parameter set and model identity alongside a batch's
// trajectory matrices, so multiple batches can coexist and be compared.
type Metadata struct {
	Model  string
	Params model.Params
	N      int
	TMax   int
	Runs   int
	Seed   int64
	Tracks int
}

// Batch is the collected result of a replicate batch: one trajectory matrix
// per track, annotated with its provenance.
type Batch struct {
	Meta  Metadata
	Freq  *Matrix
	Freq2 *Matrix
}

// Track returns the matrix for the given 1-based track, or ErrTrackMismatch
// when the batch's model does not produce that track.
func (b *Batch) Track(track int) (*Matrix, error) {
	switch track {
	case 1:
		return b.Freq, nil
	case 2:
		if b.Freq2 == nil {
			return nil, fmt.Errorf("%w: model %s records a single trajectory", ErrTrackMismatch, b.Meta.Model)
		}
		return b.Freq2, nil
	default:
		return nil, fmt.Errorf("%w: track %d", ErrTrackMismatch, track)
	}
}

// RunBatch executes cfg.Runs independent runs and collects their
// trajectories into generation × run matrices. Runs share no mutable state
// and own independent seeded random sources, so they are distributed over a
// worker pool; each trajectory lands in the column of its own run index and
// the result is identical for any worker count.
func RunBatch(ctx context.Context, cfg BatchConfig) (*Batch, error) {
	if cfg.Runs < 1 {
		return nil, fmt.Errorf("run count must be >= 1, got %d", cfg.Runs)
	}
	runCfg := RunConfig{Model: cfg.Model, N: cfg.N, TMax: cfg.TMax, Seed: cfg.Seed}
	if err := runCfg.validate(); err != nil {
		return nil, err
	}
	workerCount := cfg.Workers
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > cfg.Runs {
		workerCount = cfg.Runs
	}

	type result struct {
		idx  int
		traj Trajectory
		err  error
	}

	jobs := make(chan int)
	results := make(chan result, cfg.Runs)

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: idx, err: err}
					continue
				}
				traj, err := Run(ctx, RunConfig{
					Model: cfg.Model,
					N:     cfg.N,
					TMax:  cfg.TMax,
					Seed:  cfg.Seed + int64(idx)*runSeedStride,
				})
				results <- result{idx: idx, traj: traj, err: err}
			}
		}()
	}

	for idx := 0; idx < cfg.Runs; idx++ {
		jobs <- idx
	}
	close(jobs)

	wg.Wait()
	close(results)

	tracks := cfg.Model.Tracks()
	freq, err := NewMatrix(cfg.TMax, cfg.Runs)
	if err != nil {
		return nil, err
	}
	var freq2 *Matrix
	if tracks == 2 {
		freq2, err = NewMatrix(cfg.TMax, cfg.Runs)
		if err != nil {
			return nil, err
		}
	}

	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		if err := freq.SetColumn(res.idx, res.traj.Freq); err != nil {
			return nil, err
		}
		if freq2 != nil {
			if err := freq2.SetColumn(res.idx, res.traj.Freq2); err != nil {
				return nil, err
			}
		}
	}

	return &Batch{
		Meta: Metadata{
			Model:  cfg.Model.Name(),
			Params: cfg.Model.Params(),
			N:      cfg.N,
			TMax:   cfg.TMax,
			Runs:   cfg.Runs,
			Seed:   cfg.Seed,
			Tracks: tracks,
		},
		Freq:  freq,
		Freq2: freq2,
	}, nil
}
