package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"driftlab/internal/model"
)

const batchArtifactsDir = "batches"

// BatchArtifact is the exported form of one replicate batch: provenance,
// per-generation summaries, and the raw matrices for downstream plotting.
type BatchArtifact struct {
	Batch        model.BatchRecord        `json:"batch"`
	Mean         []float64                `json:"mean"`
	Variance     []float64                `json:"variance"`
	Mean2        []float64                `json:"mean2,omitempty"`
	Trajectories []model.TrajectoryRecord `json:"trajectories"`
}

func WriteBatchArtifact(baseDir string, artifact BatchArtifact) error {
	if artifact.Batch.ID == "" {
		return fmt.Errorf("batch id is required")
	}
	path := batchArtifactPath(baseDir, artifact.Batch.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func ReadBatchArtifact(baseDir, id string) (BatchArtifact, bool, error) {
	if id == "" {
		return BatchArtifact{}, false, fmt.Errorf("batch id is required")
	}
	data, err := os.ReadFile(batchArtifactPath(baseDir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return BatchArtifact{}, false, nil
		}
		return BatchArtifact{}, false, err
	}
	var artifact BatchArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return BatchArtifact{}, false, err
	}
	return artifact, true, nil
}

func ListBatchArtifacts(baseDir string) ([]BatchArtifact, error) {
	root := filepath.Join(baseDir, batchArtifactsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []BatchArtifact{}, nil
		}
		return nil, err
	}

	artifacts := make([]BatchArtifact, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		artifact, ok, err := ReadBatchArtifact(baseDir, entry.Name())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		artifacts = append(artifacts, artifact)
	}
	sort.Slice(artifacts, func(i, j int) bool {
		switch {
		case artifacts[i].Batch.CreatedAtUTC == artifacts[j].Batch.CreatedAtUTC:
			return artifacts[i].Batch.ID < artifacts[j].Batch.ID
		case artifacts[i].Batch.CreatedAtUTC == "":
			return false
		case artifacts[j].Batch.CreatedAtUTC == "":
			return true
		default:
			return artifacts[i].Batch.CreatedAtUTC > artifacts[j].Batch.CreatedAtUTC
		}
	})
	return artifacts, nil
}

func batchArtifactPath(baseDir, id string) string {
	return filepath.Join(baseDir, batchArtifactsDir, sanitizeArtifactID(id), "batch.json")
}

// Batch IDs embed model names and seeds; keep the directory name flat.
func sanitizeArtifactID(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
