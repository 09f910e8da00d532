package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryRegistry_AddKeepsInsertionOrder(t *testing.T) {
	r := NewEntryRegistry()

	assert.True(t, r.Add("src/b.html"))
	assert.True(t, r.Add("src/a.html"))
	assert.True(t, r.Add("src/c.html"))

	assert.Equal(t, []string{"src/b.html", "src/a.html", "src/c.html"}, r.Paths())
	assert.Equal(t, 3, r.Len())
}

func TestEntryRegistry_AddDuplicateIsNoop(t *testing.T) {
	r := NewEntryRegistry()

	assert.True(t, r.Add("src/a.html"))
	assert.False(t, r.Add("src/a.html"))

	assert.Equal(t, []string{"src/a.html"}, r.Paths())
}

func TestEntryRegistry_Remove(t *testing.T) {
	r := NewEntryRegistry()
	for _, p := range []string{"a", "b", "c", "d"} {
		r.Add(p)
	}

	assert.True(t, r.Remove("b"))
	assert.False(t, r.Remove("b"))
	assert.False(t, r.Remove("missing"))

	assert.Equal(t, []string{"a", "c", "d"}, r.Paths())
	assert.False(t, r.Contains("b"))
	assert.True(t, r.Contains("d"))

	// Removing before a re-add must not leave a stale index behind.
	assert.True(t, r.Remove("c"))
	assert.True(t, r.Add("b"))
	assert.True(t, r.Remove("d"))
	assert.Equal(t, []string{"a", "b"}, r.Paths())
}

func TestEntryRegistry_PathsIsSnapshot(t *testing.T) {
	r := NewEntryRegistry()
	r.Add("a")

	snapshot := r.Paths()
	r.Add("b")
	snapshot[0] = "changed"

	assert.Equal(t, []string{"changed"}, snapshot)
	assert.Equal(t, []string{"a", "b"}, r.Paths())
}

func TestEntryRegistry_ConcurrentAccess(t *testing.T) {
	r := NewEntryRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("src/%d.html", i%10)
			r.Add(path)
			r.Contains(path)
			r.Paths()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, r.Len())
}

func TestEntryRegistry_Clone(t *testing.T) {
	r := NewEntryRegistry()
	r.Add("a")
	r.Add("b")

	clone := r.Clone()
	clone.Remove("a")
	clone.Add("c")

	assert.Equal(t, []string{"a", "b"}, r.Paths())
	assert.Equal(t, []string{"b", "c"}, clone.Paths())
	assert.True(t, r.Contains("a"))
	assert.False(t, clone.Contains("a"))
}
