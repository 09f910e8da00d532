package testutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTempProject(t *testing.T) {
	root := CreateTempProject(t, map[string]string{
		"src/index.html":  "<p>i</p>",
		"src/css/a.css":   ".a{}",
		"src/js/app/x.js": "x()",
	})

	data, err := os.ReadFile(filepath.Join(root, "src", "css", "a.css"))
	require.NoError(t, err)
	assert.Equal(t, ".a{}", string(data))
	assert.FileExists(t, filepath.Join(root, "src", "js", "app", "x.js"))
}

func TestNewMemStore(t *testing.T) {
	store := NewMemStore(t, map[string]string{"src/a.html": "a"})

	content, err := store.Read("src/a.html")
	require.NoError(t, err)
	assert.Equal(t, "a", content)
	assert.False(t, store.Exists("a.html"))
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]string{"c": "", "a": "", "b": ""}))
	assert.Empty(t, SortedKeys(nil))
}

func TestWaitForFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "late.txt")
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(path, []byte("ready"), 0o644)
	}()

	content := WaitForFile(t, path, 2*time.Second, func(c string) bool {
		return strings.Contains(c, "ready")
	})
	assert.Equal(t, "ready", content)
}
