// Package core has the orchestration that turns migration descriptors into a change summary.
package core

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/migdelta/core/delta"
	"github.com/huangsam/migdelta/internal/contract"
	"github.com/huangsam/migdelta/internal/outwriter"
	"github.com/huangsam/migdelta/schema"
	"golang.org/x/sync/errgroup"
)

// ExecutorFunc defines the function signature for executing different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteDiff summarizes the descriptor files given on the command line and prints the result.
// It serves as the main entry point for the 'diff' command.
func ExecuteDiff(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	result, err := GetDiffResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	recordRun(mgr, cfg, start, len(cfg.Files), result)
	return outwriter.NewOutWriter().WriteResult(result, cfg, time.Since(start))
}

// GetDiffResults summarizes cfg.Files without writing any output.
func GetDiffResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (schema.Result, error) {
	if len(cfg.Files) == 0 {
		return nil, fmt.Errorf("at least one migration file is required")
	}
	return Summarize(ctx, cfg.Files, cfg, mgr)
}

// Summarize parses every path concurrently and then folds the operations in path order.
// Any unreadable or malformed file aborts the whole run and no result is produced.
func Summarize(ctx context.Context, paths []string, cfg *contract.Config, mgr contract.CacheManager) (schema.Result, error) {
	descriptors, err := parseDescriptors(ctx, paths, cfg.Workers, parseStore(mgr))
	if err != nil {
		return nil, err
	}

	acc := delta.New(delta.WithQualifiedFields(cfg.QualifyFields))
	for _, d := range descriptors {
		acc.ApplyDescriptor(d)
	}
	return acc.Result(), nil
}

// parseDescriptors reads and parses paths with at most workers goroutines.
// Results keep the input order regardless of completion order.
func parseDescriptors(ctx context.Context, paths []string, workers int, store contract.CacheStore) ([]schema.Descriptor, error) {
	descriptors := make([]schema.Descriptor, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			d, err := cachedParse(store, path, content)
			if err != nil {
				return err
			}
			descriptors[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return descriptors, nil
}

// parseStore returns the parse cache, or nil when no manager is configured.
func parseStore(mgr contract.CacheManager) contract.CacheStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetParseStore()
}
