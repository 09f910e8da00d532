// Package testutils holds fixtures shared by the package tests.
package testutils

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/htmlc/internal/storage"
)

// CreateTempProject writes files, keyed by slash-separated path relative to
// the project root, into a new temporary directory and returns its path.
func CreateTempProject(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(name)), content)
	}
	return root
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// NewMemStore returns a Store over an in-memory file system holding files.
func NewMemStore(t testing.TB, files map[string]string) *storage.Store {
	t.Helper()

	store := storage.New(afero.NewMemMapFs())
	for _, name := range SortedKeys(files) {
		require.NoError(t, store.Write(name, []byte(files[name])))
	}
	return store
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WaitForFile polls until path exists and satisfies match, or fails the test
// after timeout. It returns the last content read.
func WaitForFile(t *testing.T, path string, timeout time.Duration, match func(content string) bool) string {
	t.Helper()

	deadline := time.Now().Add(timeout)
	var content string
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil {
			content = string(data)
			if match(content) {
				return content
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s, last content: %q", path, content)
	return content
}
