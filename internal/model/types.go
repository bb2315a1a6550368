package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Params is the flat parameter record shared by all transmission models.
// Each model validates only the fields it reads.
type Params struct {
	P0      float64 `json:"p0"`
	PA0     float64 `json:"pa0,omitempty"`
	PB0     float64 `json:"pb0,omitempty"`
	Q0      float64 `json:"q0,omitempty"`
	Mu      float64 `json:"mu,omitempty"`
	MuB     float64 `json:"mu_b,omitempty"`
	S       float64 `json:"s,omitempty"`
	Linkage float64 `json:"linkage,omitempty"`
}

// BatchRecord is the provenance attached to a stored trajectory batch.
type BatchRecord struct {
	VersionedRecord
	ID             string `json:"id"`
	Model          string `json:"model"`
	Params         Params `json:"params"`
	PopulationSize int    `json:"population_size"`
	Generations    int    `json:"generations"`
	Runs           int    `json:"runs"`
	Seed           int64  `json:"seed"`
	Tracks         int    `json:"tracks"`
	CreatedAtUTC   string `json:"created_at_utc,omitempty"`
}

// TrajectoryRecord holds one trajectory matrix of a batch. Track 1 is the
// focal trait1 frequency; track 2 exists only for the linked-trait model.
type TrajectoryRecord struct {
	Track       int         `json:"track"`
	Generations int         `json:"generations"`
	Runs        int         `json:"runs"`
	Values      [][]float64 `json:"values"`
}

type ModelSummary struct {
	VersionedRecord
	Name        string `json:"name"`
	Description string `json:"description"`
	BatchCount  int    `json:"batch_count"`
	LastBatchID string `json:"last_batch_id,omitempty"`
}
