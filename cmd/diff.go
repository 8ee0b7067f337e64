package cmd

import (
	"github.com/huangsam/migdelta/core"
	"github.com/spf13/cobra"
)

// diffCmd summarizes the given migration files.
var diffCmd = &cobra.Command{
	Use:   "diff <migration-file>...",
	Short: "Summarize per-model schema changes across migration files",
	Long: `Read migration files in the given order and print one change record per model.

Each record shows whether the model was created, deleted or only modified, the
fields it net-gained and net-lost, and the name it had before a rename.

Pass files in the order they are applied. A file that cannot be read or parsed
aborts the run and nothing is printed.

Examples:
  # Summarize two migrations of the shop app
  migdelta diff shop/migrations/0001_initial.py shop/migrations/0002_widget.py

  # Emit JSON for scripts
  migdelta diff --output json shop/migrations/*.py

  # Append MIGRATION_CHANGES=<json> to $GITHUB_OUTPUT
  migdelta diff --output env shop/migrations/*.py`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteDiff(rootCtx, cfg, cacheManager)
	},
}
