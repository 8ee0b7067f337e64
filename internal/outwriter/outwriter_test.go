package outwriter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/migdelta/internal/contract"
	"github.com/huangsam/migdelta/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func sampleResult() schema.Result {
	return schema.Result{
		"shop.widget": {Status: schema.CreatedStatus, Added: []string{"id", "title"}, Removed: []string{}},
		"shop.gadget": {Status: schema.ModifiedStatus, RenamedFrom: strPtr("shop.thing"), Added: []string{}, Removed: []string{"legacy"}},
		"blog.post":   {Status: schema.DeletedStatus},
	}
}

func sampleConfig(t *testing.T) *contract.Config {
	t.Helper()
	return &contract.Config{
		Workers:      2,
		Output:       schema.TextOut,
		EnvKey:       schema.DefaultEnvKey,
		EnvFile:      filepath.Join(t.TempDir(), "env"),
		CacheBackend: schema.NoneBackend,
	}
}

func TestGetMaxTableModelWidth(t *testing.T) {
	width := GetMaxTableModelWidth()
	assert.GreaterOrEqual(t, width, 20)
	assert.LessOrEqual(t, width, 60)
}

func TestWriteResultTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResultTable(&buf, sampleResult(), sampleConfig(t), time.Second))
	out := buf.String()

	assert.Contains(t, out, "shop.widget")
	assert.Contains(t, out, "id, title")
	assert.Contains(t, out, "shop.thing")
	assert.Contains(t, out, "legacy")
	assert.Contains(t, out, "deleted")
	assert.Less(t, strings.Index(out, "blog.post"), strings.Index(out, "shop.gadget"), "rows follow sorted model order")
	assert.Contains(t, out, "Showing 3 models (created: 1, deleted: 1, modified: 1)")
	assert.Contains(t, out, "Analysis completed in 1s with 2 workers. Cache backend: none")
}

func TestWriteResultTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResultTable(&buf, schema.Result{}, sampleConfig(t), 0))
	assert.True(t, strings.HasPrefix(buf.String(), "No model changes found.\n"))
	assert.Contains(t, buf.String(), "Showing 0 models")
}

func TestWriteResultCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResultCSV(&buf, sampleResult()))
	expected := "model,status,renamed_from,added,removed\n" +
		"blog.post,-1,,,\n" +
		"shop.gadget,0,shop.thing,,legacy\n" +
		"shop.widget,1,,id|title,\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteResultJSON(t *testing.T) {
	cfg := sampleConfig(t)
	cfg.Output = schema.JSONOut
	cfg.OutputFile = filepath.Join(t.TempDir(), "out.json")

	require.NoError(t, WriteResult(sampleResult(), cfg, 0))

	content, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(content, &decoded))

	require.Len(t, decoded, 3)
	assert.Equal(t, float64(1), decoded["shop.widget"]["status"])
	assert.Nil(t, decoded["shop.widget"]["renamed_from"])
	assert.Equal(t, []any{"id", "title"}, decoded["shop.widget"]["added"])
	assert.Equal(t, "shop.thing", decoded["shop.gadget"]["renamed_from"])
	// nil lists still encode as arrays
	assert.Equal(t, []any{}, decoded["blog.post"]["added"])
	assert.Equal(t, []any{}, decoded["blog.post"]["removed"])
}

func TestWriteResultEnv(t *testing.T) {
	cfg := sampleConfig(t)
	cfg.Output = schema.EnvOut
	result := schema.Result{"shop.widget": {Status: schema.CreatedStatus, Added: []string{"id"}}}

	require.NoError(t, WriteResult(result, cfg, 0))
	require.NoError(t, WriteResult(schema.Result{}, cfg, 0))

	content, err := os.ReadFile(cfg.EnvFile)
	require.NoError(t, err)
	assert.Equal(t,
		"MIGRATION_CHANGES={\"shop.widget\":{\"status\":1,\"renamed_from\":null,\"added\":[\"id\"],\"removed\":[]}}\n"+
			"MIGRATION_CHANGES={}\n",
		string(content))
}

func TestWriteResultCSVFile(t *testing.T) {
	cfg := sampleConfig(t)
	cfg.Output = schema.CSVOut
	cfg.OutputFile = filepath.Join(t.TempDir(), "out.csv")

	ow := NewOutWriter()
	require.NoError(t, ow.WriteResult(sampleResult(), cfg, 0))

	content, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "model,status,renamed_from,added,removed\n"))
}

func TestWriteCheck(t *testing.T) {
	failed := schema.CheckResult{
		Passed:    false,
		BaseRef:   "main",
		TargetRef: "HEAD",
		Files:     []string{"blog/migrations/0002_drop.py"},
		Result:    schema.Result{"blog.post": {Status: schema.DeletedStatus}},
		Violations: []schema.CheckViolation{
			{Model: "blog.post", Policy: schema.PolicyFailOnDeleted, Detail: "model is deleted"},
		},
	}

	t.Run("text", func(t *testing.T) {
		cfg := sampleConfig(t)
		cfg.OutputFile = filepath.Join(t.TempDir(), "check.txt")
		require.NoError(t, WriteCheck(failed, cfg, time.Second))

		out, err := os.ReadFile(cfg.OutputFile)
		require.NoError(t, err)
		assert.Contains(t, string(out), "Checked 1 migration files in main..HEAD")
		assert.Contains(t, string(out), "fail-on-deleted")
		assert.Contains(t, string(out), "Check failed with 1 violations")

		env, err := os.ReadFile(cfg.EnvFile)
		require.NoError(t, err)
		assert.Equal(t, "MIGRATION_CHANGES={\"blog.post\":{\"status\":-1,\"renamed_from\":null,\"added\":[],\"removed\":[]}}\n", string(env))
	})

	t.Run("text passed", func(t *testing.T) {
		cfg := sampleConfig(t)
		cfg.OutputFile = filepath.Join(t.TempDir(), "check.txt")
		passed := schema.CheckResult{Passed: true, BaseRef: "main", TargetRef: "HEAD", Result: schema.Result{}}
		require.NoError(t, WriteCheck(passed, cfg, 0))

		out, err := os.ReadFile(cfg.OutputFile)
		require.NoError(t, err)
		assert.Contains(t, string(out), "Check passed")
	})

	t.Run("json", func(t *testing.T) {
		cfg := sampleConfig(t)
		cfg.Output = schema.JSONOut
		cfg.OutputFile = filepath.Join(t.TempDir(), "check.json")
		require.NoError(t, NewOutWriter().WriteCheck(failed, cfg, 0))

		content, err := os.ReadFile(cfg.OutputFile)
		require.NoError(t, err)
		var decoded schema.CheckResult
		require.NoError(t, json.Unmarshal(content, &decoded))
		assert.False(t, decoded.Passed)
		assert.Equal(t, failed.Violations, decoded.Violations)
		assert.Equal(t, []string{}, decoded.Result["blog.post"].Added)
	})

	t.Run("csv", func(t *testing.T) {
		cfg := sampleConfig(t)
		cfg.Output = schema.CSVOut
		cfg.OutputFile = filepath.Join(t.TempDir(), "check.csv")
		require.NoError(t, WriteCheck(failed, cfg, 0))

		content, err := os.ReadFile(cfg.OutputFile)
		require.NoError(t, err)
		assert.Equal(t, "model,policy,detail\nblog.post,fail-on-deleted,model is deleted\n", string(content))
	})

	t.Run("env file error", func(t *testing.T) {
		cfg := sampleConfig(t)
		cfg.EnvFile = filepath.Join(t.TempDir(), "missing", "env")
		assert.ErrorContains(t, WriteCheck(failed, cfg, 0), "error writing env output")
	})
}
