// Package outwriter has output and writer logic.
package outwriter

import (
	"os"
	"time"

	"github.com/huangsam/migdelta/internal/contract"
	"github.com/huangsam/migdelta/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteResult prints the per-model change summary using the configured output format.
func (ow *OutWriter) WriteResult(result schema.Result, cfg *contract.Config, duration time.Duration) error {
	return WriteResult(result, cfg, duration)
}

// WriteCheck prints the outcome of a policy check using the configured output format.
func (ow *OutWriter) WriteCheck(check schema.CheckResult, cfg *contract.Config, duration time.Duration) error {
	return WriteCheck(check, cfg, duration)
}

// GetMaxTableModelWidth calculates the maximum width for model names in table output
// based on terminal width.
func GetMaxTableModelWidth() int {
	termWidth := 80 // Conservative default for narrow terminals and CI
	if detected, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && detected > 0 {
		termWidth = detected
	}

	// Status + Renamed From + Added + Removed with borders/padding
	baseWidth := 60

	available := termWidth - baseWidth
	if available < 20 {
		return 20
	}
	if available > 60 {
		return 60
	}
	return available
}
