// Package parquet provides data structures and functions for exporting migdelta
// run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangsam/migdelta/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single analysis run with metadata.
// This struct maps to the migdelta_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// TotalFiles is the number of descriptor files analyzed in this run
	TotalFiles int32 `parquet:"total_files,snappy"`

	// TotalModels is the number of models present in the run's result
	TotalModels int32 `parquet:"total_models,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// ModelChange is the change record one run produced for one model.
// This struct maps to the migdelta_model_changes database table.
type ModelChange struct {
	RunID       int64    `parquet:"run_id,snappy"`
	Model       string   `parquet:"model,snappy,dict"`
	Status      int32    `parquet:"status,snappy"`
	RenamedFrom *string  `parquet:"renamed_from,optional,snappy"`
	Added       []string `parquet:"added,list"`
	Removed     []string `parquet:"removed,list"`
}

// writeParquet writes rows of T to outputPath, inferring the schema from T's struct tags.
func writeParquet[T any](data []T, outputPath string) (err error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { err = errors.Join(err, file.Close()) }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	// Close flushes the footer, so its error matters
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteRunsParquet writes a slice of Run structs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteModelChangesParquet writes a slice of ModelChange structs to a Parquet file.
func WriteModelChangesParquet(data []ModelChange, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:         record.RunID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.DurationMs,
			TotalFiles:    record.TotalFiles,
			TotalModels:   record.TotalModels,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertModelChangeRecords converts schema.ModelChangeRecord to ModelChange,
// expanding the stored field lists.
func ConvertModelChangeRecords(records []schema.ModelChangeRecord) []ModelChange {
	result := make([]ModelChange, len(records))
	for i, record := range records {
		result[i] = ModelChange{
			RunID:       record.RunID,
			Model:       record.Model,
			Status:      record.Status,
			RenamedFrom: record.RenamedFrom,
			Added:       splitFields(record.Added),
			Removed:     splitFields(record.Removed),
		}
	}
	return result
}

func splitFields(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, "|")
}
