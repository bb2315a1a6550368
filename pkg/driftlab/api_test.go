package driftlab

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"driftlab/internal/sim"
	"driftlab/internal/stats"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{
		StoreKind:  "memory",
		ExportsDir: filepath.Join(t.TempDir(), "exports"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestClientRunBatchesAndExport(t *testing.T) {
	client := newTestClient(t)

	summary, err := client.Run(context.Background(), RunRequest{
		Model:       "unbiased_transmission",
		Population:  40,
		Generations: 25,
		Runs:        4,
		Workers:     2,
		Seed:        42,
		P0:          0.5,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.BatchID == "" {
		t.Fatal("expected batch id")
	}
	if summary.Tracks != 1 {
		t.Fatalf("unexpected tracks: %d", summary.Tracks)
	}
	if len(summary.Mean) != 25 || len(summary.Variance) != 25 {
		t.Fatalf("unexpected summary lengths: mean=%d variance=%d", len(summary.Mean), len(summary.Variance))
	}
	if summary.FinalMean != summary.Mean[24] {
		t.Fatalf("final mean mismatch: got=%v want=%v", summary.FinalMean, summary.Mean[24])
	}

	batches, err := client.Batches(context.Background(), BatchesRequest{Limit: 5})
	if err != nil {
		t.Fatalf("batches: %v", err)
	}
	if len(batches) != 1 || batches[0].BatchID != summary.BatchID {
		t.Fatalf("expected batch %s in listing: %+v", summary.BatchID, batches)
	}
	if batches[0].Population != 40 || batches[0].Runs != 4 {
		t.Fatalf("unexpected batch item: %+v", batches[0])
	}

	item, err := client.Batch(context.Background(), summary.BatchID)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if item.Model != "unbiased_transmission" || item.Generations != 25 {
		t.Fatalf("unexpected batch: %+v", item)
	}

	trajectory, err := client.Trajectory(context.Background(), TrajectoryRequest{BatchID: summary.BatchID})
	if err != nil {
		t.Fatalf("trajectory: %v", err)
	}
	if trajectory.Track != 1 {
		t.Fatalf("expected default track 1, got %d", trajectory.Track)
	}
	if trajectory.Generations != 25 || trajectory.Runs != 4 {
		t.Fatalf("unexpected trajectory shape: %+v", trajectory)
	}
	for gen := range trajectory.Mean {
		if trajectory.Mean[gen] != summary.Mean[gen] {
			t.Fatalf("generation %d mean mismatch: got=%v want=%v", gen+1, trajectory.Mean[gen], summary.Mean[gen])
		}
	}

	exported, err := client.Export(context.Background(), ExportRequest{BatchID: summary.BatchID})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.BatchID != summary.BatchID {
		t.Fatalf("export batch mismatch: got=%s want=%s", exported.BatchID, summary.BatchID)
	}
	artifact, ok, err := stats.ReadBatchArtifact(exported.Directory, summary.BatchID)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !ok {
		t.Fatal("expected exported artifact on disk")
	}
	if artifact.Batch.ID != summary.BatchID || len(artifact.Mean) != 25 {
		t.Fatalf("unexpected artifact: id=%s mean=%d", artifact.Batch.ID, len(artifact.Mean))
	}
	if len(artifact.Trajectories) != 1 {
		t.Fatalf("unexpected trajectory count: %d", len(artifact.Trajectories))
	}
}

func TestClientRunDeterministicAcrossClients(t *testing.T) {
	req := RunRequest{
		Model:       "direct_bias",
		Population:  30,
		Generations: 20,
		Runs:        3,
		Seed:        7,
		P0:          0.2,
		S:           0.3,
	}

	first, err := newTestClient(t).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := newTestClient(t).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(first.Mean) != len(second.Mean) {
		t.Fatalf("mean length mismatch: %d vs %d", len(first.Mean), len(second.Mean))
	}
	for gen := range first.Mean {
		if first.Mean[gen] != second.Mean[gen] {
			t.Fatalf("generation %d differs across clients: %v vs %v", gen+1, first.Mean[gen], second.Mean[gen])
		}
	}
}

func TestClientRunRejectsNegativeShape(t *testing.T) {
	client := newTestClient(t)

	cases := []struct {
		name string
		req  RunRequest
	}{
		{"negative population", RunRequest{Model: "unbiased_transmission", P0: 0.5, Population: -5}},
		{"negative generations", RunRequest{Model: "unbiased_transmission", P0: 0.5, Generations: -1}},
		{"negative runs", RunRequest{Model: "unbiased_transmission", P0: 0.5, Runs: -3}},
		{"negative workers", RunRequest{Model: "unbiased_transmission", P0: 0.5, Workers: -2}},
	}
	for _, tc := range cases {
		if _, err := client.Run(context.Background(), tc.req); err == nil {
			t.Fatalf("%s: expected configuration error", tc.name)
		}
	}

	batches, err := client.Batches(context.Background(), BatchesRequest{})
	if err != nil {
		t.Fatalf("batches: %v", err)
	}
	if len(batches) != 0 {
		t.Fatalf("rejected runs must not persist batches, got %d", len(batches))
	}
}

func TestClientLinkedModelSecondTrack(t *testing.T) {
	client := newTestClient(t)

	summary, err := client.Run(context.Background(), RunRequest{
		Model:       "indirect_bias_linked",
		Population:  30,
		Generations: 15,
		Runs:        3,
		Seed:        11,
		P0:          0.4,
		Q0:          0.6,
		Linkage:     1,
		S:           0.2,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Tracks != 2 {
		t.Fatalf("expected two tracks, got %d", summary.Tracks)
	}
	if len(summary.Mean2) != 15 {
		t.Fatalf("unexpected mean2 length: %d", len(summary.Mean2))
	}

	second, err := client.Trajectory(context.Background(), TrajectoryRequest{BatchID: summary.BatchID, Track: 2})
	if err != nil {
		t.Fatalf("trajectory track 2: %v", err)
	}
	// Full linkage ties the indicator trait to the focal trait from the
	// initial draw onward.
	first, err := client.Trajectory(context.Background(), TrajectoryRequest{BatchID: summary.BatchID, Track: 1})
	if err != nil {
		t.Fatalf("trajectory track 1: %v", err)
	}
	for gen := range first.Mean {
		if first.Mean[gen] != second.Mean[gen] {
			t.Fatalf("generation %d tracks diverged at full linkage: %v vs %v", gen+1, first.Mean[gen], second.Mean[gen])
		}
	}
}

func TestClientTrajectoryTrackMismatch(t *testing.T) {
	client := newTestClient(t)

	summary, err := client.Run(context.Background(), RunRequest{
		Model:       "unbiased_transmission",
		Population:  10,
		Generations: 5,
		Runs:        2,
		Seed:        3,
		P0:          0.5,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	_, err = client.Trajectory(context.Background(), TrajectoryRequest{BatchID: summary.BatchID, Track: 2})
	if !errors.Is(err, sim.ErrTrackMismatch) {
		t.Fatalf("expected track mismatch error, got %v", err)
	}
}

func TestClientCompare(t *testing.T) {
	client := newTestClient(t)

	if _, err := client.Compare(context.Background(), CompareRequest{BatchA: "only-one"}); err == nil {
		t.Fatal("expected error without both batch ids")
	}

	first, err := client.Run(context.Background(), RunRequest{
		Model:       "direct_bias",
		BatchID:     "strong",
		Population:  30,
		Generations: 15,
		Runs:        3,
		Seed:        13,
		P0:          0.2,
		S:           0.4,
	})
	if err != nil {
		t.Fatalf("run strong: %v", err)
	}

	cmp, err := client.Compare(context.Background(), CompareRequest{BatchA: first.BatchID, BatchB: first.BatchID})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if cmp.Order != "equal" {
		t.Fatalf("expected a batch to equal itself, got %s", cmp.Order)
	}
	if cmp.Track != 1 {
		t.Fatalf("expected default track 1, got %d", cmp.Track)
	}
	if cmp.FinalMeanA != cmp.FinalMeanB || cmp.FinalMeanA != first.FinalMean {
		t.Fatalf("unexpected final means: %v vs %v (want %v)", cmp.FinalMeanA, cmp.FinalMeanB, first.FinalMean)
	}

	if _, err := client.Compare(context.Background(), CompareRequest{
		BatchA: first.BatchID,
		BatchB: "missing",
	}); err == nil {
		t.Fatal("expected error for unknown batch")
	}
	if _, err := client.Compare(context.Background(), CompareRequest{
		BatchA: first.BatchID,
		BatchB: first.BatchID,
		Track:  2,
	}); !errors.Is(err, sim.ErrTrackMismatch) {
		t.Fatalf("expected track mismatch error, got %v", err)
	}
}

func TestClientExportLatestAndValidation(t *testing.T) {
	client := newTestClient(t)

	if _, err := client.Export(context.Background(), ExportRequest{}); err == nil {
		t.Fatal("expected error without batch id or latest")
	}
	if _, err := client.Export(context.Background(), ExportRequest{BatchID: "x", Latest: true}); err == nil {
		t.Fatal("expected error for batch id combined with latest")
	}
	if _, err := client.Export(context.Background(), ExportRequest{Latest: true}); err == nil {
		t.Fatal("expected error with no batches stored")
	}

	if _, err := client.Run(context.Background(), RunRequest{
		Model:       "biased_mutation",
		Population:  20,
		Generations: 10,
		Runs:        2,
		Seed:        9,
		P0:          0.1,
		MuB:         0.05,
	}); err != nil {
		t.Fatalf("run: %v", err)
	}

	outDir := filepath.Join(t.TempDir(), "out")
	exported, err := client.Export(context.Background(), ExportRequest{Latest: true, OutDir: outDir})
	if err != nil {
		t.Fatalf("export latest: %v", err)
	}
	if exported.Directory != filepath.Clean(outDir) {
		t.Fatalf("unexpected export directory: %s", exported.Directory)
	}

	entries, err := os.ReadDir(filepath.Join(outDir, "batches"))
	if err != nil {
		t.Fatalf("read export dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one exported batch, got %d", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(outDir, "batches", entries[0].Name(), "batch.json"))
	if err != nil {
		t.Fatalf("read exported artifact: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode exported artifact: %v", err)
	}
	if _, ok := payload["batch"]; !ok {
		t.Fatal("expected batch provenance in exported artifact")
	}
}

func TestClientModelsIncludeBatchCounts(t *testing.T) {
	client := newTestClient(t)

	models, err := client.Models(context.Background())
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if len(models) != 7 {
		t.Fatalf("unexpected model count: %d", len(models))
	}
	for _, info := range models {
		if info.BatchCount != 0 {
			t.Fatalf("expected zero batches for %s, got %d", info.Name, info.BatchCount)
		}
	}

	if _, err := client.Run(context.Background(), RunRequest{
		Model:       "unbiased_mutation_2",
		Population:  20,
		Generations: 10,
		Runs:        2,
		Seed:        1,
		P0:          0.5,
		Mu:          0.05,
	}); err != nil {
		t.Fatalf("run: %v", err)
	}

	models, err = client.Models(context.Background())
	if err != nil {
		t.Fatalf("models after run: %v", err)
	}
	for _, info := range models {
		if info.Name == "unbiased_mutation_2" {
			if info.BatchCount != 1 || info.LastBatch == "" {
				t.Fatalf("unexpected model info: %+v", info)
			}
			return
		}
	}
	t.Fatal("unbiased_mutation_2 missing from models listing")
}

func TestClientResetDropsBatches(t *testing.T) {
	client := newTestClient(t)

	if _, err := client.Run(context.Background(), RunRequest{
		Model:       "indirect_bias",
		Population:  20,
		Generations: 10,
		Runs:        2,
		Seed:        5,
		P0:          0.3,
		S:           0.1,
	}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := client.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}

	batches, err := client.Batches(context.Background(), BatchesRequest{})
	if err != nil {
		t.Fatalf("batches: %v", err)
	}
	if len(batches) != 0 {
		t.Fatalf("expected no batches after reset, got %d", len(batches))
	}
}
