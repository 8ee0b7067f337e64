package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/migdelta/core/descriptor"
	"github.com/huangsam/migdelta/internal/contract"
	"github.com/huangsam/migdelta/internal/outwriter"
	"github.com/huangsam/migdelta/schema"
)

// ErrCheckFailed is returned when at least one model violates a configured policy.
var ErrCheckFailed = errors.New("migration check failed")

// ExecuteCheck runs the check command for CI/CD gating.
// It summarizes the migration files changed between base and target refs, records the
// result in the env-file sink and fails when any model violates an enabled policy.
func ExecuteCheck(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	return runCheck(ctx, cfg, mgr, contract.NewLocalGitClient())
}

func runCheck(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, client contract.GitClient) error {
	start := time.Now()

	builder := NewCheckResultBuilder(ctx, cfg, mgr, client)
	if _, err := builder.DiscoverFiles(); err != nil {
		return err
	}
	if _, err := builder.RunAnalysis(); err != nil {
		return err
	}
	result := builder.ApplyPolicies().GetResult()

	if len(builder.paths) > 0 {
		recordRun(mgr, cfg, start, len(builder.paths), result.Result)
	}
	if err := outwriter.NewOutWriter().WriteCheck(*result, cfg, time.Since(start)); err != nil {
		return err
	}
	if !result.Passed {
		return fmt.Errorf("%w: %d violation(s) found", ErrCheckFailed, len(result.Violations))
	}
	return nil
}

// CheckResultBuilder builds the check result using a builder pattern.
type CheckResultBuilder struct {
	ctx    context.Context
	cfg    *contract.Config
	client contract.GitClient
	mgr    contract.CacheManager
	files  []string // as displayed
	paths  []string // as read from disk
	result *schema.CheckResult
}

// NewCheckResultBuilder creates a new builder for check results.
func NewCheckResultBuilder(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, client contract.GitClient) *CheckResultBuilder {
	return &CheckResultBuilder{
		ctx:    ctx,
		cfg:    cfg,
		client: client,
		mgr:    mgr,
		result: &schema.CheckResult{
			Passed:    true,
			BaseRef:   cfg.BaseRef,
			TargetRef: cfg.TargetRef,
			Result:    schema.Result{},
		},
	}
}

// DiscoverFiles picks the descriptors to analyze. Explicit files win over Git discovery.
func (b *CheckResultBuilder) DiscoverFiles() (*CheckResultBuilder, error) {
	if len(b.cfg.Files) > 0 {
		b.files = b.cfg.Files
		b.paths = b.cfg.Files
		b.result.Files = b.files
		return b, nil
	}
	if !b.cfg.CheckMode() {
		return nil, fmt.Errorf("check command requires --base-ref or explicit migration files. Example: migdelta check --base-ref main")
	}

	changedFiles, err := b.client.GetChangedFilesBetweenRefs(b.ctx, b.cfg.RepoPath, b.cfg.BaseRef, b.cfg.TargetRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get changed files between %q and %q: %w. Verify both refs exist in the repository", b.cfg.BaseRef, b.cfg.TargetRef, err)
	}

	candidates := filterChangedFiles(changedFiles, b.cfg.MigrationsDir, b.cfg.Excludes)
	candidates = schema.OrderDescriptorPaths(candidates, descriptorGroup, filepath.Base)
	for _, rel := range candidates {
		full := filepath.Join(b.cfg.RepoPath, filepath.FromSlash(rel))
		if _, err := os.Stat(full); err != nil {
			contract.LogWarn(fmt.Sprintf("Skipping %s", rel), err)
			continue
		}
		b.files = append(b.files, rel)
		b.paths = append(b.paths, full)
	}
	b.result.Files = b.files
	return b, nil
}

// RunAnalysis summarizes the discovered descriptors.
func (b *CheckResultBuilder) RunAnalysis() (*CheckResultBuilder, error) {
	if len(b.paths) == 0 {
		return b, nil
	}
	result, err := Summarize(b.ctx, b.paths, b.cfg, b.mgr)
	if err != nil {
		return nil, err
	}
	b.result.Result = result
	return b, nil
}

// ApplyPolicies records a violation for every model breaking an enabled policy.
func (b *CheckResultBuilder) ApplyPolicies() *CheckResultBuilder {
	for _, model := range b.result.Result.Models() {
		report := b.result.Result[model]
		if b.cfg.FailOnDeleted && report.Status == schema.DeletedStatus {
			b.result.Violations = append(b.result.Violations, schema.CheckViolation{
				Model:  model,
				Policy: schema.PolicyFailOnDeleted,
				Detail: "model is deleted",
			})
		}
		if b.cfg.FailOnRemoved && len(report.Removed) > 0 {
			b.result.Violations = append(b.result.Violations, schema.CheckViolation{
				Model:  model,
				Policy: schema.PolicyFailOnRemoved,
				Detail: "removed fields: " + strings.Join(report.Removed, ", "),
			})
		}
	}
	b.result.Passed = len(b.result.Violations) == 0
	return b
}

// GetResult returns the check result built so far.
func (b *CheckResultBuilder) GetResult() *schema.CheckResult {
	return b.result
}

// filterChangedFiles keeps migration descriptors that are not excluded.
func filterChangedFiles(files []string, migrationsDir string, excludes []string) []string {
	filtered := make([]string, 0, len(files))
	for _, f := range files {
		if IsDescriptorPath(f, migrationsDir) && !contract.ShouldIgnore(f, excludes) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// IsDescriptorPath reports whether a repository-relative path has the shape
// <group>/<migrationsDir>/<name>.py. Package markers are not descriptors.
func IsDescriptorPath(path, migrationsDir string) bool {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) < 3 || parts[len(parts)-2] != migrationsDir || parts[len(parts)-3] == "" {
		return false
	}
	name := parts[len(parts)-1]
	return strings.HasSuffix(name, schema.DescriptorExt) && name != "__init__.py"
}

// descriptorGroup returns the owning group of a repository-relative descriptor path.
func descriptorGroup(path string) string {
	return descriptor.OwningGroup(filepath.Join(string(filepath.Separator), filepath.FromSlash(path)))
}
