package schema

import "time"

// RunRecord represents a row from the migdelta_runs table.
type RunRecord struct {
	RunID        int64
	StartTime    time.Time
	EndTime      *time.Time
	DurationMs   *int32
	TotalFiles   int32
	TotalModels  int32
	ConfigParams *string
}

// ModelChangeRecord represents a row from the migdelta_model_changes table.
type ModelChangeRecord struct {
	RunID       int64
	Model       string
	Status      int32
	RenamedFrom *string
	Added       string // "|"-joined, sorted
	Removed     string // "|"-joined, sorted
}
