package contract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/migdelta/schema"
)

// DefaultWorkers is the default number of concurrent parse workers.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// envKeyPattern matches names accepted in a KEY=value environment file.
var envKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for an analysis run.
// This struct remains the "final, validated" config.
type Config struct {
	Files         []string // descriptor paths given on the command line, in order
	RepoPath      string   // resolved only when changed files are discovered from Git
	Workers       int
	Excludes      []string
	QualifyFields bool
	MigrationsDir string

	Output     schema.OutputMode
	OutputFile string
	EnvFile    string
	EnvKey     string
	UseColors  bool // Enable colored labels in table output

	BaseRef       string
	TargetRef     string
	FailOnDeleted bool
	FailOnRemoved bool

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// These are set manually from positional args, so no tag
	Files       []string
	RepoPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	EnvFile          string `mapstructure:"env-file"`
	EnvKey           string `mapstructure:"env-key"`
	Exclude          string `mapstructure:"exclude"`
	Workers          int    `mapstructure:"workers"`
	QualifyFields    bool   `mapstructure:"qualify-fields"`
	MigrationsDir    string `mapstructure:"migrations-dir"`
	Color            string `mapstructure:"color"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Fields from checkCmd.Flags() ---
	BaseRef       string `mapstructure:"base-ref"`
	TargetRef     string `mapstructure:"target-ref"`
	FailOnDeleted bool   `mapstructure:"fail-on-deleted"`
	FailOnRemoved bool   `mapstructure:"fail-on-removed"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Files = slices.Clone(c.Files)
	clone.Excludes = slices.Clone(c.Excludes)
	return &clone
}

// Params returns the settings recorded alongside a run in the history store.
// Connection strings are left out.
func (c *Config) Params() map[string]any {
	return map[string]any{
		"files":          len(c.Files),
		"workers":        c.Workers,
		"qualify_fields": c.QualifyFields,
		"migrations_dir": c.MigrationsDir,
		"output":         string(c.Output),
		"base_ref":       c.BaseRef,
		"target_ref":     c.TargetRef,
	}
}

// CheckMode reports whether descriptors are discovered from a Git ref range.
func (c *Config) CheckMode() bool {
	return c.BaseRef != ""
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct. The Git client is only consulted
// when a base ref is given.
func ProcessAndValidate(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateSinkInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processCheckMode(cfg, input); err != nil {
		return err
	}
	if cfg.CheckMode() {
		if err := resolveRepoPath(ctx, cfg, client, input); err != nil {
			return err
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the analysis fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Files = slices.Clone(input.Files)
	cfg.QualifyFields = input.QualifyFields

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	cfg.MigrationsDir = strings.TrimSpace(input.MigrationsDir)
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = schema.DefaultMigrationDir
	}
	if strings.ContainsAny(cfg.MigrationsDir, `/\`) {
		return fmt.Errorf("migrations-dir must be a single directory name (received %q)", input.MigrationsDir)
	}

	cfg.Excludes = nil
	if input.Exclude != "" {
		for p := range strings.SplitSeq(input.Exclude, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				cfg.Excludes = append(cfg.Excludes, trimmed)
			}
		}
	}
	return nil
}

// validateSinkInputs validates the output format and the CI environment file sink.
func validateSinkInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, json, csv, env", input.Output)
	}
	cfg.OutputFile = input.OutputFile

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	cfg.EnvKey = strings.TrimSpace(input.EnvKey)
	if cfg.EnvKey == "" {
		cfg.EnvKey = schema.DefaultEnvKey
	}
	if !envKeyPattern.MatchString(cfg.EnvKey) {
		return fmt.Errorf("invalid env-key '%s'. must match %s", input.EnvKey, envKeyPattern.String())
	}

	cfg.EnvFile = ResolveEnvFile(input.EnvFile)
	return nil
}

// ResolveEnvFile picks the environment-file sink: an explicit path, else the
// file named by GITHUB_OUTPUT, else a fixed fallback in the working directory.
func ResolveEnvFile(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	if p := os.Getenv(schema.GitHubOutputEnvVar); p != "" {
		return p
	}
	return schema.DefaultEnvFile
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("history: %w", err)
	}

	// Validate that cache and history use different SQLite files
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		historyPath := cfg.HistoryDBConnect
		if historyPath == "" {
			historyPath = GetHistoryDBFilePath()
		}
		if cachePath == historyPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}
	return nil
}

// processCheckMode handles the Git reference range used by the check command.
func processCheckMode(cfg *Config, input *ConfigRawInput) error {
	cfg.BaseRef = strings.TrimSpace(input.BaseRef)
	cfg.TargetRef = strings.TrimSpace(input.TargetRef)
	cfg.FailOnDeleted = input.FailOnDeleted
	cfg.FailOnRemoved = input.FailOnRemoved

	if cfg.BaseRef == "" {
		if cfg.TargetRef != "" {
			return fmt.Errorf("target-ref requires base-ref to be set")
		}
		return nil
	}
	if cfg.TargetRef == "" {
		cfg.TargetRef = "HEAD"
	}
	if cfg.BaseRef == cfg.TargetRef {
		return fmt.Errorf("base-ref and target-ref cannot be the same (%s)", cfg.BaseRef)
	}
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// resolveRepoPath resolves the Git repository containing the search path.
func resolveRepoPath(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	searchPath := input.RepoPathStr
	if searchPath == "" {
		searchPath = "."
	}
	absSearchPath, err := filepath.Abs(searchPath)
	if err != nil {
		return err
	}
	absSearchPath = filepath.Clean(absSearchPath)

	gitContextPath := absSearchPath
	if info, statErr := os.Stat(absSearchPath); statErr == nil && !info.IsDir() {
		gitContextPath = filepath.Dir(absSearchPath)
	}

	gitRoot, err := client.GetRepoRoot(ctx, gitContextPath)
	if err != nil {
		return err
	}
	cfg.RepoPath = gitRoot
	return nil
}
