// Package main provides a performance benchmarking tool for the migdelta CLI.
// It generates synthetic Django projects of increasing size, then measures
// `migdelta diff` without a cache and with the SQLite parse cache, treating the
// first cached run as cold and averaging the rest as warm. Results are written
// to a timestamped CSV file for performance analysis and documentation.
//
// Prerequisites:
// - migdelta binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where the synthetic projects are generated
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Project     string
	Files       int
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// ProjectShape describes a synthetic project: groups times migrations per group.
type ProjectShape struct {
	Name       string
	Groups     int
	Migrations int
	Fields     int
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	Projects    []ProjectShape
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     2 * time.Minute,
		Workers:     8,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Projects: []ProjectShape{
			{Name: "small", Groups: 3, Migrations: 10, Fields: 5},
			{Name: "medium", Groups: 20, Migrations: 40, Fields: 10},
			{Name: "large", Groups: 60, Migrations: 120, Fields: 15},
		},
	}

	if _, err := exec.LookPath("migdelta"); err != nil {
		fmt.Printf("Prerequisites check failed: migdelta binary not found in PATH\n")
		os.Exit(1)
	}

	results := make([]BenchmarkResult, 0, len(config.Projects))
	for _, shape := range config.Projects {
		root := filepath.Join(config.WorkDir, shape.Name)
		files, err := generateProject(root, shape)
		if err != nil {
			fmt.Printf("Failed to generate %s: %v\n", shape.Name, err)
			os.Exit(1)
		}
		results = append(results, runBenchmarkSuite(config, shape.Name, root, files))
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// generateProject writes a synthetic project below root and returns the
// migration paths relative to root.
func generateProject(root string, shape ProjectShape) ([]string, error) {
	if err := os.RemoveAll(root); err != nil {
		return nil, err
	}
	var files []string
	for g := range shape.Groups {
		group := fmt.Sprintf("app%03d", g)
		dir := filepath.Join(root, group, "migrations")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		for m := range shape.Migrations {
			name := fmt.Sprintf("%04d_step.py", m+1)
			if err := os.WriteFile(filepath.Join(dir, name), []byte(migrationSource(m, shape.Fields)), 0o644); err != nil {
				return nil, err
			}
			files = append(files, filepath.Join(group, "migrations", name))
		}
	}
	return files, nil
}

// migrationSource renders the m-th migration of a group. The first migration
// creates the model and later ones swap a field in and out.
func migrationSource(m, fields int) string {
	var b strings.Builder
	b.WriteString("from django.db import migrations, models\n\n\nclass Migration(migrations.Migration):\n    operations = [\n")
	if m == 0 {
		b.WriteString("        migrations.CreateModel(\n            name=\"Record\",\n            fields=[\n")
		for f := range fields {
			fmt.Fprintf(&b, "                (\"field_%d\", models.IntegerField(default=0)),\n", f)
		}
		b.WriteString("            ],\n        ),\n")
	} else {
		fmt.Fprintf(&b, "        migrations.AddField(model_name=\"record\", name=\"extra_%d\", field=models.TextField()),\n", m)
		fmt.Fprintf(&b, "        migrations.RemoveField(model_name=\"record\", name=\"field_%d\"),\n", m%fields)
	}
	b.WriteString("    ]\n")
	return b.String()
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a project
func runBenchmarkSuite(config BenchmarkConfig, project, root string, files []string) BenchmarkResult {
	fmt.Printf("Running diff on %s (%d files)\n", project, len(files))

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, root, files, cacheBackend, numRuns)
		if len(times) == 0 {
			return cold, "TIMEOUT"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Start the cached phase from an empty database
	cacheFile := filepath.Join(root, "bench-cache.db")
	_ = os.Remove(cacheFile)
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Project:     project,
		Files:       len(files),
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes migdelta diff multiple times with the given cache backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, root string, files []string, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{"diff", "--workers", fmt.Sprint(config.Workers), "--cache-backend", cacheBackend}
	if cacheBackend == "sqlite" {
		args = append(args, "--cache-db-connect", filepath.Join(root, "bench-cache.db"))
	}
	args = append(args, files...)

	var times []float64
	for range numRuns {
		start := time.Now()

		cmd := exec.Command("migdelta", args...)
		cmd.Dir = root

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
			<-done
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Analysis completed in") &&
		strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("migdelta_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"project", "files", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Project, fmt.Sprint(result.Files), result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-8s (%5d files): No-cache: %s, Cold: %s, Warm: %s\n",
			result.Project, result.Files, result.NoCacheTime, result.ColdTime, result.WarmTime)
	}
}
