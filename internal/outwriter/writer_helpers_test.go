package outwriter

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		expected string
	}{
		{
			name:     "map keys are sorted",
			data:     map[string]int{"b": 2, "a": 1},
			expected: "{\n  \"a\": 1,\n  \"b\": 2\n}\n",
		},
		{
			name:     "array",
			data:     []string{"id", "title"},
			expected: "[\n  \"id\",\n  \"title\"\n]\n",
		},
		{
			name:     "string",
			data:     "hello",
			expected: `"hello"` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeJSON(&buf, tt.data))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	var buf bytes.Buffer
	err := writeJSON(&buf, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		rows     [][]string
		expected string
	}{
		{
			name:     "simple csv",
			header:   []string{"model", "status"},
			rows:     [][]string{{"shop.widget", "1"}, {"shop.gadget", "-1"}},
			expected: "model,status\nshop.widget,1\nshop.gadget,-1\n",
		},
		{
			name:     "empty rows",
			header:   []string{"col1", "col2"},
			expected: "col1,col2\n",
		},
		{
			name:     "values with commas",
			header:   []string{"model", "detail"},
			rows:     [][]string{{"shop.widget", "a, b"}},
			expected: "model,detail\nshop.widget,\"a, b\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeCSVWithHeader(&buf, tt.header, func(w *csv.Writer) error {
				for _, row := range tt.rows {
					if err := w.Write(row); err != nil {
						return err
					}
				}
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteCSVWithHeaderError(t *testing.T) {
	var buf bytes.Buffer
	err := writeCSVWithHeader(&buf, []string{"col"}, func(w *csv.Writer) error {
		return assert.AnError
	})
	assert.Equal(t, assert.AnError, err)
}

func TestWriteWithFile(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		called := false
		err := writeWithFile("", func(w io.Writer) error {
			called = true
			return nil
		}, "Test message")
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("file", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "out.txt")
		err := writeWithFile(tmpFile, func(w io.Writer) error {
			_, err := w.Write([]byte("content"))
			return err
		}, "Test message")
		require.NoError(t, err)

		content, err := os.ReadFile(tmpFile)
		require.NoError(t, err)
		assert.Equal(t, "content", string(content))
	})

	t.Run("writer error", func(t *testing.T) {
		err := writeWithFile(filepath.Join(t.TempDir(), "out.txt"), func(w io.Writer) error {
			return assert.AnError
		}, "Test message")
		assert.Equal(t, assert.AnError, err)
	})

	t.Run("invalid path", func(t *testing.T) {
		err := writeWithFile("/nonexistent/path/file.txt", func(w io.Writer) error {
			return nil
		}, "Test message")
		assert.Error(t, err)
	})
}

func TestWriteEnvLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEnvLine(&buf, "MIGRATION_CHANGES", map[string][]string{"b": {"x"}, "a": {}}))
	assert.Equal(t, "MIGRATION_CHANGES={\"a\":[],\"b\":[\"x\"]}\n", buf.String())

	assert.Error(t, writeEnvLine(&buf, "K", make(chan int)))
}

func TestAppendEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "github_output")
	require.NoError(t, os.WriteFile(envFile, []byte("EXISTING=1\n"), 0o644))

	require.NoError(t, appendEnvFile(envFile, "FIRST", 1))
	require.NoError(t, appendEnvFile(envFile, "SECOND", "two"))

	content, err := os.ReadFile(envFile)
	require.NoError(t, err)
	assert.Equal(t, "EXISTING=1\nFIRST=1\nSECOND=\"two\"\n", string(content))

	err = appendEnvFile(filepath.Join(t.TempDir(), "missing", "env"), "K", 1)
	assert.ErrorContains(t, err, "failed to open env file")
}
