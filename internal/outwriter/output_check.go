package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/migdelta/internal/contract"
	"github.com/huangsam/migdelta/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteCheck records the change summary in the env-file sink and then reports
// the check outcome in the configured output format.
func WriteCheck(check schema.CheckResult, cfg *contract.Config, duration time.Duration) error {
	if err := appendEnvFile(cfg.EnvFile, cfg.EnvKey, normalizeResult(check.Result)); err != nil {
		return fmt.Errorf("error writing env output: %w", err)
	}

	switch cfg.Output {
	case schema.JSONOut:
		check.Result = normalizeResult(check.Result)
		if check.Violations == nil {
			check.Violations = []schema.CheckViolation{}
		}
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, check)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeViolationsCSV(w, check.Violations)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCheckText(w, check, cfg, duration)
		}, "Wrote check summary")
	}
	return nil
}

// writeCheckText prints the ref range, the model table and any policy violations.
func writeCheckText(w io.Writer, check schema.CheckResult, cfg *contract.Config, duration time.Duration) error {
	if _, err := fmt.Fprintf(w, "Checked %d migration files in %s..%s\n", len(check.Files), check.BaseRef, check.TargetRef); err != nil {
		return err
	}
	if err := writeResultTable(w, check.Result, cfg, duration); err != nil {
		return err
	}
	if check.Passed {
		_, err := fmt.Fprintln(w, "✅ Check passed")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Model", "Policy", "Detail"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})
	var data [][]string
	for _, v := range check.Violations {
		data = append(data, []string{v.Model, v.Policy, v.Detail})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "❌ Check failed with %d violations\n", len(check.Violations))
	return err
}

// writeViolationsCSV writes one row per policy violation.
func writeViolationsCSV(w io.Writer, violations []schema.CheckViolation) error {
	return writeCSVWithHeader(w, []string{"model", "policy", "detail"}, func(cw *csv.Writer) error {
		for _, v := range violations {
			if err := cw.Write([]string{v.Model, v.Policy, v.Detail}); err != nil {
				return err
			}
		}
		return nil
	})
}
