package cmd

import (
	"github.com/huangsam/migdelta/core"
	"github.com/spf13/cobra"
)

// checkCmd focused on CI/CD policy enforcement.
var checkCmd = &cobra.Command{
	Use:   "check [migration-file]...",
	Short: "Summarize changed migrations for CI/CD pipelines (fails build on violations)",
	Long: `Summarize ONLY the migration files changed between Git references and enforce policies.

Files matching <group>/<migrations-dir>/<name>.py in base-ref..target-ref are
ordered by group and file name, then summarized. Files removed by the change are
skipped with a warning. Explicit file arguments replace Git discovery.

The summary is always appended to the environment file as KEY=<json> so later
CI steps can read it. A text summary goes to stdout.

Policies (off by default):
  --fail-on-deleted  fail when any model is deleted
  --fail-on-removed  fail when any model loses a field

Examples:
  # Check PR changes against main branch
  migdelta check --base-ref origin/main --target-ref HEAD

  # Block destructive schema changes
  migdelta check --base-ref main --fail-on-deleted --fail-on-removed`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteCheck(rootCtx, cfg, cacheManager)
	},
}
