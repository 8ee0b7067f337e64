package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/migdelta/internal/contract"
	"github.com/huangsam/migdelta/internal/parquet"
)

// ExecuteHistoryExport exports run history to two Parquet files named after outputPrefix.
func ExecuteHistoryExport(store contract.HistoryStore, w io.Writer, outputPrefix string) error {
	if outputPrefix == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history is disabled. Set --history-backend to export run history")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total model records: %d\n", status.TableSizes[modelChangesTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	changes, err := store.GetAllModelChanges()
	if err != nil {
		return fmt.Errorf("failed to retrieve model changes: %w", err)
	}

	parquetRuns := parquet.ConvertRunRecords(runs)
	runsFile := outputPrefix + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(parquetRuns), runsFile)

	parquetChanges := parquet.ConvertModelChangeRecords(changes)
	changesFile := outputPrefix + ".model_changes.parquet"
	if err := parquet.WriteModelChangesParquet(parquetChanges, changesFile); err != nil {
		return fmt.Errorf("failed to write model changes: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d model change records to: %s\n", len(parquetChanges), changesFile)

	return nil
}
