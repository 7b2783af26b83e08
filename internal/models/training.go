package models

import "time"

// TrainingRun records one completed training job.
type TrainingRun struct {
	ID           string    `json:"id" db:"id"`
	SnapshotID   string    `json:"snapshot_id" db:"snapshot_id"`
	SnapshotPath string    `json:"snapshot_path" db:"snapshot_path"`
	CorpusPath   string    `json:"corpus_path" db:"corpus_path"`
	Examples     int       `json:"examples" db:"examples"`
	Vocabulary   int       `json:"vocabulary" db:"vocabulary"`
	Tags         int       `json:"tags" db:"tags"`
	HiddenSize   int       `json:"hidden_size" db:"hidden_size"`
	Epochs       int       `json:"epochs" db:"epochs"`
	Loss         float64   `json:"loss" db:"loss"`
	Accuracy     float64   `json:"accuracy" db:"accuracy"`
	DurationMS   int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// StatusResponse describes the running chatbot.
type StatusResponse struct {
	Engine            string    `json:"engine"`
	Backend           string    `json:"backend,omitempty"`
	SnapshotID        string    `json:"snapshot_id,omitempty"`
	SnapshotCreatedAt time.Time `json:"snapshot_created_at,omitempty"`
	InputSize         int       `json:"input_size,omitempty"`
	HiddenSize        int       `json:"hidden_size,omitempty"`
	OutputSize        int       `json:"output_size,omitempty"`
	Tags              []string  `json:"tags,omitempty"`
	Exchanges         int64     `json:"exchanges"`
	TrainingRuns      int64     `json:"training_runs"`
	DiskUsageBytes    int64     `json:"disk_usage_bytes"`
}
