// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/migdelta/schema"
)

// GitClient defines the Git operations needed to discover changed descriptors.
// This allows the check flow to be tested without needing a real git executable.
type GitClient interface {
	// Run executes a git command and returns its output.
	// Its use should be minimized in favor of the explicit methods below.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// GetRepoRoot returns the absolute path to the root of the Git repository
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// GetChangedFilesBetweenRefs returns repository-relative paths changed in baseRef..targetRef.
	GetChangedFilesBetweenRefs(ctx context.Context, repoPath string, baseRef string, targetRef string) ([]string, error)
}

// CacheManager defines the interface for managing the persistent stores.
// This allows the storage layer to be mocked for testing.
type CacheManager interface {
	GetParseStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cached parse results.
// Keys are content hashes; values are JSON-encoded operation lists.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for recording analysis runs and their model changes.
type HistoryStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, totalFiles int, totalModels int) error

	// RecordModelChange stores the final change record of one model
	RecordModelChange(runID int64, model string, report schema.ModelReport) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every recorded run, oldest first
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllModelChanges returns every recorded model change
	GetAllModelChanges() ([]schema.ModelChangeRecord, error)

	// Close closes the underlying connection
	Close() error
}
