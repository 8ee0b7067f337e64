package core

import (
	"time"

	"github.com/huangsam/migdelta/internal/contract"
	"github.com/huangsam/migdelta/schema"
)

// recordRun stores the run and its per-model records in the history store.
// Failures are reported as warnings and never fail the run.
func recordRun(mgr contract.CacheManager, cfg *contract.Config, start time.Time, totalFiles int, result schema.Result) {
	if mgr == nil {
		return
	}
	store := mgr.GetHistoryStore()
	if store == nil {
		return
	}

	runID, err := store.BeginRun(start, cfg.Params())
	if err != nil {
		contract.LogWarn("Failed to begin history run", err)
		return
	}
	for _, model := range result.Models() {
		if err := store.RecordModelChange(runID, model, result[model]); err != nil {
			contract.LogWarn("Failed to record model change", err)
			return
		}
	}
	if err := store.EndRun(runID, time.Now(), totalFiles, len(result)); err != nil {
		contract.LogWarn("Failed to end history run", err)
	}
}
