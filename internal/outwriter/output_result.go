package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/migdelta/internal/contract"
	"github.com/huangsam/migdelta/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// listSeparator joins field names inside a single CSV cell.
const listSeparator = "|"

// WriteResult outputs the change summary, dispatching based on the output format configured.
func WriteResult(result schema.Result, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, normalizeResult(result))
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeResultCSV(w, result)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.EnvOut:
		if err := appendEnvFile(cfg.EnvFile, cfg.EnvKey, normalizeResult(result)); err != nil {
			return fmt.Errorf("error writing env output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "💾 Wrote %s to %s\n", cfg.EnvKey, cfg.EnvFile)
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeResultTable(w, result, cfg, duration)
		}, "Wrote table")
	}
	return nil
}

// normalizeResult replaces nil field lists so every record encodes "added" and "removed" as arrays.
func normalizeResult(result schema.Result) schema.Result {
	out := make(schema.Result, len(result))
	for model, report := range result {
		if report.Added == nil {
			report.Added = []string{}
		}
		if report.Removed == nil {
			report.Removed = []string{}
		}
		out[model] = report
	}
	return out
}

// writeResultTable generates and writes the human-readable table.
func writeResultTable(w io.Writer, result schema.Result, cfg *contract.Config, duration time.Duration) error {
	models := result.Models()
	if len(models) == 0 {
		if _, err := fmt.Fprintln(w, "No model changes found."); err != nil {
			return err
		}
	} else {
		if err := renderResultTable(w, result, cfg.UseColors); err != nil {
			return err
		}
	}

	created, deleted, modified := countStatuses(result)
	if _, err := fmt.Fprintf(w, "Showing %d models (created: %d, deleted: %d, modified: %d)\n", len(models), created, deleted, modified); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Analysis completed in %v with %d workers. Cache backend: %s\n", duration, cfg.Workers, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// renderResultTable renders one row per model in sorted key order.
func renderResultTable(w io.Writer, result schema.Result, useColors bool) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Model", "Status", "Renamed From", "Added", "Removed"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	width := GetMaxTableModelWidth()
	var data [][]string
	for _, model := range result.Models() {
		report := result[model]
		label := contract.GetPlainLabel(report.Status)
		removed := schema.FormatFieldList(report.Removed)
		if useColors {
			label = contract.GetColorLabel(report.Status)
			if len(report.Removed) > 0 {
				removed = contract.RemovedColor.Sprint(removed)
			}
		}
		data = append(data, []string{
			contract.TruncatePath(model, width),
			label,
			renamedFromCell(report.RenamedFrom),
			schema.FormatFieldList(report.Added),
			removed,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// writeResultCSV writes one row per model with list cells joined by listSeparator.
func writeResultCSV(w io.Writer, result schema.Result) error {
	header := []string{"model", "status", "renamed_from", "added", "removed"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, model := range result.Models() {
			report := result[model]
			renamed := ""
			if report.RenamedFrom != nil {
				renamed = *report.RenamedFrom
			}
			rec := []string{
				model,
				strconv.Itoa(int(report.Status)),
				renamed,
				strings.Join(report.Added, listSeparator),
				strings.Join(report.Removed, listSeparator),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func renamedFromCell(name *string) string {
	if name == nil {
		return "-"
	}
	return *name
}

// countStatuses tallies models by their final status.
func countStatuses(result schema.Result) (created, deleted, modified int) {
	for _, report := range result {
		switch report.Status {
		case schema.CreatedStatus:
			created++
		case schema.DeletedStatus:
			deleted++
		default:
			modified++
		}
	}
	return created, deleted, modified
}
