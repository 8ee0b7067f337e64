package contract

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/huangsam/migdelta/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// validInput returns a raw input that passes validation, for tests to tweak.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Files:   []string{"shop/migrations/0001_initial.py"},
		Workers: 4,
		Output:  "text",
		Color:   "yes",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*ConfigRawInput)
		expectError string
		setupMock   func(*MockGitClient, string) // Pass the expected working directory
	}{
		{
			name:   "valid minimal config",
			modify: func(*ConfigRawInput) {},
		},
		{
			name:        "invalid workers (zero)",
			modify:      func(in *ConfigRawInput) { in.Workers = 0 },
			expectError: "workers must be greater than 0",
		},
		{
			name:        "invalid workers (negative)",
			modify:      func(in *ConfigRawInput) { in.Workers = -1 },
			expectError: "workers must be greater than 0",
		},
		{
			name:        "invalid output format",
			modify:      func(in *ConfigRawInput) { in.Output = "yaml" },
			expectError: "invalid output format",
		},
		{
			name:        "invalid color",
			modify:      func(in *ConfigRawInput) { in.Color = "sometimes" },
			expectError: "invalid --color value",
		},
		{
			name:        "invalid env key",
			modify:      func(in *ConfigRawInput) { in.EnvKey = "1BAD-KEY" },
			expectError: "invalid env-key",
		},
		{
			name:        "migrations dir with separator",
			modify:      func(in *ConfigRawInput) { in.MigrationsDir = "db/migrations" },
			expectError: "migrations-dir must be a single directory name",
		},
		{
			name:        "invalid cache backend",
			modify:      func(in *ConfigRawInput) { in.CacheBackend = "redis" },
			expectError: "invalid cache backend",
		},
		{
			name:        "invalid history backend",
			modify:      func(in *ConfigRawInput) { in.HistoryBackend = "redis" },
			expectError: "invalid history backend",
		},
		{
			name: "mysql cache without connection string",
			modify: func(in *ConfigRawInput) {
				in.CacheBackend = "mysql"
			},
			expectError: "cache: a connection string is required",
		},
		{
			name: "postgres history missing dbname",
			modify: func(in *ConfigRawInput) {
				in.HistoryBackend = "postgresql"
				in.HistoryDBConnect = "host=localhost user=x"
			},
			expectError: "history: PostgreSQL connection string must contain 'dbname='",
		},
		{
			name: "sqlite cache and history share a file",
			modify: func(in *ConfigRawInput) {
				in.CacheBackend = "sqlite"
				in.CacheDBConnect = "/tmp/same.db"
				in.HistoryBackend = "sqlite"
				in.HistoryDBConnect = "/tmp/same.db"
			},
			expectError: "must use different SQLite database files",
		},
		{
			name: "sqlite cache and history with defaults",
			modify: func(in *ConfigRawInput) {
				in.CacheBackend = "sqlite"
				in.HistoryBackend = "sqlite"
			},
		},
		{
			name:        "target ref without base ref",
			modify:      func(in *ConfigRawInput) { in.TargetRef = "feature" },
			expectError: "target-ref requires base-ref",
		},
		{
			name: "same base and target",
			modify: func(in *ConfigRawInput) {
				in.BaseRef = "main"
				in.TargetRef = "main"
			},
			expectError: "cannot be the same",
		},
		{
			name: "check mode resolves repo root",
			modify: func(in *ConfigRawInput) {
				in.BaseRef = "main"
				in.RepoPathStr = "."
			},
			setupMock: func(m *MockGitClient, workDir string) {
				m.On("GetRepoRoot", context.Background(), workDir).Return("/mock/repo/root", nil)
			},
		},
		{
			name: "check mode outside a repository",
			modify: func(in *ConfigRawInput) {
				in.BaseRef = "main"
			},
			setupMock: func(m *MockGitClient, workDir string) {
				m.On("GetRepoRoot", context.Background(), workDir).Return("", errors.New("not a git repository"))
			},
			expectError: "not a git repository",
		},
	}

	workDir, err := filepath.Abs(".")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := new(MockGitClient)
			if tt.setupMock != nil {
				tt.setupMock(mockClient, workDir)
			}

			input := validInput()
			tt.modify(input)

			cfg := &Config{}
			err := ProcessAndValidate(context.Background(), cfg, mockClient, input)

			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
			} else {
				assert.NoError(t, err)
			}
			mockClient.AssertExpectations(t)
		})
	}
}

func TestProcessAndValidateDefaults(t *testing.T) {
	t.Setenv(schema.GitHubOutputEnvVar, "")

	input := &ConfigRawInput{
		Files:   []string{"a.py", "b.py"},
		Workers: 2,
		Color:   "no",
		Exclude: " legacy/ ,, *_squashed_*.py ",
	}
	cfg := &Config{}
	mockClient := new(MockGitClient)
	require.NoError(t, ProcessAndValidate(context.Background(), cfg, mockClient, input))

	assert.Equal(t, []string{"a.py", "b.py"}, cfg.Files)
	assert.Equal(t, schema.TextOut, cfg.Output)
	assert.Equal(t, schema.NoneBackend, cfg.CacheBackend)
	assert.Equal(t, schema.DatabaseBackend(""), cfg.HistoryBackend)
	assert.Equal(t, schema.DefaultMigrationDir, cfg.MigrationsDir)
	assert.Equal(t, schema.DefaultEnvKey, cfg.EnvKey)
	assert.Equal(t, schema.DefaultEnvFile, cfg.EnvFile)
	assert.Equal(t, []string{"legacy/", "*_squashed_*.py"}, cfg.Excludes)
	assert.False(t, cfg.UseColors)
	assert.False(t, cfg.CheckMode())
	assert.Empty(t, cfg.RepoPath)

	// Input slices are copied, not aliased.
	input.Files[0] = "changed.py"
	assert.Equal(t, "a.py", cfg.Files[0])

	mockClient.AssertNotCalled(t, "GetRepoRoot", mock.Anything, mock.Anything)
}

func TestProcessAndValidateCheckMode(t *testing.T) {
	input := validInput()
	input.BaseRef = " main "
	input.FailOnDeleted = true

	cfg := &Config{}
	mockClient := new(MockGitClient)
	mockClient.On("GetRepoRoot", context.Background(), mock.AnythingOfType("string")).Return("/repo", nil)

	require.NoError(t, ProcessAndValidate(context.Background(), cfg, mockClient, input))
	assert.True(t, cfg.CheckMode())
	assert.Equal(t, "main", cfg.BaseRef)
	assert.Equal(t, "HEAD", cfg.TargetRef)
	assert.Equal(t, "/repo", cfg.RepoPath)
	assert.True(t, cfg.FailOnDeleted)
	assert.False(t, cfg.FailOnRemoved)
}

func TestResolveEnvFile(t *testing.T) {
	t.Run("explicit wins", func(t *testing.T) {
		t.Setenv(schema.GitHubOutputEnvVar, "/runner/output")
		assert.Equal(t, "custom.env", ResolveEnvFile(" custom.env "))
	})

	t.Run("github output", func(t *testing.T) {
		t.Setenv(schema.GitHubOutputEnvVar, "/runner/output")
		assert.Equal(t, "/runner/output", ResolveEnvFile(""))
	})

	t.Run("fallback", func(t *testing.T) {
		t.Setenv(schema.GitHubOutputEnvVar, "")
		assert.Equal(t, schema.DefaultEnvFile, ResolveEnvFile(""))
	})
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{"sqlite accepts anything", schema.SQLiteBackend, "", false},
		{"none accepts anything", schema.NoneBackend, "whatever", false},
		{"mysql valid", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/migdelta", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/migdelta", true},
		{"mysql missing db", schema.MySQLBackend, "user:pass@tcp(localhost:3306)", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost port=5432 dbname=migdelta", false},
		{"postgres missing host", schema.PostgreSQLBackend, "dbname=migdelta", true},
		{"postgres empty", schema.PostgreSQLBackend, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{Files: []string{"a.py"}, Excludes: []string{"legacy/"}, Workers: 3}
	clone := cfg.Clone()
	clone.Files[0] = "b.py"
	clone.Excludes[0] = "other/"
	clone.Workers = 9

	assert.Equal(t, "a.py", cfg.Files[0])
	assert.Equal(t, "legacy/", cfg.Excludes[0])
	assert.Equal(t, 3, cfg.Workers)
}

func TestConfigParams(t *testing.T) {
	cfg := &Config{
		Files:            []string{"a.py", "b.py"},
		Workers:          2,
		Output:           schema.JSONOut,
		HistoryDBConnect: "secret",
	}
	params := cfg.Params()
	assert.Equal(t, 2, params["files"])
	assert.Equal(t, "json", params["output"])
	for _, v := range params {
		assert.NotEqual(t, "secret", v)
	}
}

func TestProcessProfilingConfig(t *testing.T) {
	profile := &ProfileConfig{}
	require.NoError(t, ProcessProfilingConfig(profile, ""))
	assert.False(t, profile.Enabled)

	require.NoError(t, ProcessProfilingConfig(profile, "migdelta"))
	assert.True(t, profile.Enabled)
	assert.Equal(t, "migdelta", profile.Prefix)
}
