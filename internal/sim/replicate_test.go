package sim

import (
	"context"
	"errors"
	"testing"

	"driftlab/internal/rules"
)

func TestRunBatchShapeAndMetadata(t *testing.T) {
	batch, err := RunBatch(context.Background(), BatchConfig{
		Model:   rules.UnbiasedTransmission{P0: 0.5},
		N:       50,
		TMax:    25,
		Runs:    8,
		Workers: 3,
		Seed:    1,
	})
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if batch.Freq.Generations() != 25 || batch.Freq.Runs() != 8 {
		t.Fatalf("unexpected matrix shape: %dx%d", batch.Freq.Generations(), batch.Freq.Runs())
	}
	if batch.Freq2 != nil {
		t.Fatal("expected single-track batch")
	}
	if batch.Meta.Model != "unbiased_transmission" {
		t.Fatalf("unexpected model identity: %s", batch.Meta.Model)
	}
	if batch.Meta.Params.P0 != 0.5 || batch.Meta.N != 50 || batch.Meta.TMax != 25 || batch.Meta.Runs != 8 {
		t.Fatalf("metadata does not match configuration: %+v", batch.Meta)
	}
	if batch.Meta.Tracks != 1 {
		t.Fatalf("unexpected track count: %d", batch.Meta.Tracks)
	}
}

func TestRunBatchDeterministicAcrossWorkerCounts(t *testing.T) {
	base := BatchConfig{
		Model: rules.DirectBias{P0: 0.05, S: 0.2},
		N:     100,
		TMax:  40,
		Runs:  10,
		Seed:  99,
	}

	serial := base
	serial.Workers = 1
	parallel := base
	parallel.Workers = 4

	first, err := RunBatch(context.Background(), serial)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	second, err := RunBatch(context.Background(), parallel)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if !first.Freq.Equal(second.Freq) {
		t.Fatal("expected bit-identical matrices regardless of worker count")
	}

	third, err := RunBatch(context.Background(), parallel)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if !second.Freq.Equal(third.Freq) {
		t.Fatal("expected bit-identical matrices for repeated identical batches")
	}
}

func TestRunBatchRunsAreIndependent(t *testing.T) {
	batch, err := RunBatch(context.Background(), BatchConfig{
		Model:   rules.UnbiasedTransmission{P0: 0.5},
		N:       30,
		TMax:    20,
		Runs:    6,
		Workers: 2,
		Seed:    5,
	})
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}

	// Each run matches a standalone run at its derived seed.
	for run := 0; run < 6; run++ {
		solo, err := Run(context.Background(), RunConfig{
			Model: rules.UnbiasedTransmission{P0: 0.5},
			N:     30,
			TMax:  20,
			Seed:  5 + int64(run)*runSeedStride,
		})
		if err != nil {
			t.Fatalf("solo run %d: %v", run, err)
		}
		col := batch.Freq.Column(run)
		for gen := range col {
			if col[gen] != solo.Freq[gen] {
				t.Fatalf("run %d generation %d: batch column diverged from isolated run", run, gen+1)
			}
		}
	}
}

func TestRunBatchPairedTracks(t *testing.T) {
	batch, err := RunBatch(context.Background(), BatchConfig{
		Model:   rules.LinkedIndirectBias{P0: 0.2, Q0: 0.5, Linkage: 1, S: 0.3},
		N:       80,
		TMax:    15,
		Runs:    5,
		Workers: 2,
		Seed:    3,
	})
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if batch.Freq2 == nil {
		t.Fatal("expected second trajectory matrix for linked model")
	}
	if batch.Freq2.Generations() != 15 || batch.Freq2.Runs() != 5 {
		t.Fatalf("unexpected second matrix shape: %dx%d", batch.Freq2.Generations(), batch.Freq2.Runs())
	}

	// Full linkage keeps both tracks identical everywhere.
	for gen := 0; gen < 15; gen++ {
		for run := 0; run < 5; run++ {
			if batch.Freq.At(gen, run) != batch.Freq2.At(gen, run) {
				t.Fatalf("generation %d run %d: tracks diverged at full linkage", gen+1, run)
			}
		}
	}
}

func TestBatchTrackMismatch(t *testing.T) {
	batch, err := RunBatch(context.Background(), BatchConfig{
		Model: rules.UnbiasedTransmission{P0: 0.5},
		N:     10,
		TMax:  5,
		Runs:  2,
		Seed:  1,
	})
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if _, err := batch.Track(1); err != nil {
		t.Fatalf("track 1: %v", err)
	}
	if _, err := batch.Track(2); !errors.Is(err, ErrTrackMismatch) {
		t.Fatalf("expected ErrTrackMismatch for missing second track, got %v", err)
	}
	if _, err := batch.Track(3); !errors.Is(err, ErrTrackMismatch) {
		t.Fatalf("expected ErrTrackMismatch for unknown track, got %v", err)
	}
}

func TestRunBatchValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := RunBatch(ctx, BatchConfig{Model: rules.UnbiasedTransmission{P0: 0.5}, N: 10, TMax: 5, Runs: 0}); err == nil {
		t.Fatal("expected error for zero runs")
	}
	if _, err := RunBatch(ctx, BatchConfig{Model: rules.UnbiasedTransmission{P0: -1}, N: 10, TMax: 5, Runs: 2}); err == nil {
		t.Fatal("expected error for invalid parameters before any run executes")
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	m, err := NewMatrix(3, 2)
	if err != nil {
		t.Fatalf("new matrix: %v", err)
	}
	if err := m.SetColumn(0, []float64{0.1, 0.2, 0.3}); err != nil {
		t.Fatalf("set column: %v", err)
	}
	if err := m.SetColumn(1, []float64{0.9, 0.8, 0.7}); err != nil {
		t.Fatalf("set column: %v", err)
	}
	if err := m.SetColumn(2, []float64{0, 0, 0}); err == nil {
		t.Fatal("expected error for run index out of range")
	}
	if err := m.SetColumn(0, []float64{0.1}); err == nil {
		t.Fatal("expected error for trajectory length mismatch")
	}

	rebuilt, err := MatrixFromRows(m.Rows())
	if err != nil {
		t.Fatalf("from rows: %v", err)
	}
	if !m.Equal(rebuilt) {
		t.Fatal("expected round-tripped matrix to be identical")
	}
	if got := m.Row(1); got[0] != 0.2 || got[1] != 0.8 {
		t.Fatalf("unexpected row: %v", got)
	}
	if got := m.Column(1); got[2] != 0.7 {
		t.Fatalf("unexpected column: %v", got)
	}
}
