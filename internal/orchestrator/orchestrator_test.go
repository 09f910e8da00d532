package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/htmlc/internal/build"
	"github.com/conneroisu/htmlc/internal/logging"
	"github.com/conneroisu/htmlc/internal/watcher"
)

type fakeCompiler struct {
	mu    sync.Mutex
	calls []string
	gates map[string]chan struct{}
	fail  map[string]error
}

func newFakeCompiler() *fakeCompiler {
	return &fakeCompiler{
		gates: make(map[string]chan struct{}),
		fail:  make(map[string]error),
	}
}

func (f *fakeCompiler) Compile(ctx context.Context, entry string) (*build.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, entry)
	gate := f.gates[entry]
	err := f.fail[entry]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return &build.Result{Entry: entry, Err: err}, err
}

func (f *fakeCompiler) count(entry string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if c == entry {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	mu     sync.Mutex
	labels []string
}

func (n *fakeNotifier) Reload(label, path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.labels = append(n.labels, label)
}

// runEvents feeds events to a fresh orchestrator and waits until every
// compile and log line has settled.
func runEvents(t *testing.T, compiler Compiler, logs logging.Logger, events ...watcher.Event) *Orchestrator {
	t.Helper()

	o := New(compiler, htmlEntries, logs)
	ch := make(chan watcher.Event, len(events))
	for _, event := range events {
		ch <- event
	}
	close(ch)

	require.NoError(t, o.Run(context.Background(), ch))
	return o
}

func contains(messages []string, want string) bool {
	for _, m := range messages {
		if m == want {
			return true
		}
	}
	return false
}

func TestOrchestrator_ReadyWaitsForInitialBuilds(t *testing.T) {
	compiler := newFakeCompiler()
	release := make(chan struct{})
	compiler.gates["src/x.html"] = release
	logs := logging.NewRecorder()

	o := New(compiler, htmlEntries, logs)
	events := make(chan watcher.Event)
	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background(), events) }()

	events <- add("src/x.html")
	events <- scanComplete()

	ready := func() bool { return contains(logs.Messages(logging.LevelInfo), "RDY") }
	assert.Never(t, ready, 100*time.Millisecond, 10*time.Millisecond)

	close(release)
	assert.Eventually(t, ready, time.Second, 10*time.Millisecond)
	assert.True(t, contains(logs.Messages(logging.LevelInfo), "ADD src/x.html"))

	close(events)
	require.NoError(t, <-done)
	assert.Equal(t, Ready, o.State().Phase)
}

func TestOrchestrator_UnlinkedEntryLeavesLaterPasses(t *testing.T) {
	compiler := newFakeCompiler()
	logs := logging.NewRecorder()

	o := runEvents(t, compiler, logs,
		add("src/a.html"),
		add("src/old.html"),
		scanComplete(),
		unlink("src/old.html"),
		change("src/unrelated.css"),
	)

	// Add and the ready pass.
	assert.Equal(t, 2, compiler.count("src/old.html"))
	// Add, the ready pass and the change pass.
	assert.Equal(t, 3, compiler.count("src/a.html"))
	assert.Equal(t, []string{"src/a.html"}, o.State().Entries.Paths())

	messages := logs.Messages(logging.LevelInfo)
	assert.True(t, contains(messages, "DEL src/old.html"))
	assert.True(t, contains(messages, "MOD src/unrelated.css"))
}

func TestOrchestrator_NonEntryUnlinkDoesNotRebuild(t *testing.T) {
	compiler := newFakeCompiler()
	logs := logging.NewRecorder()

	runEvents(t, compiler, logs,
		add("src/a.html"),
		add("src/a.css"),
		scanComplete(),
		unlink("src/a.css"),
	)

	assert.Equal(t, 2, compiler.count("src/a.html"))
	assert.True(t, contains(logs.Messages(logging.LevelInfo), "DEL src/a.css"))
	assert.True(t, contains(logs.Messages(logging.LevelInfo), "ADD src/a.css"))
}

func TestOrchestrator_SecondScanCompleteIgnored(t *testing.T) {
	compiler := newFakeCompiler()
	logs := logging.NewRecorder()

	runEvents(t, compiler, logs,
		add("src/a.html"),
		scanComplete(),
		scanComplete(),
	)

	assert.Equal(t, 2, compiler.count("src/a.html"))
	ready := 0
	for _, m := range logs.Messages(logging.LevelInfo) {
		if m == "RDY" {
			ready++
		}
	}
	assert.Equal(t, 1, ready)
}

func TestOrchestrator_CompileFailureKeepsWatching(t *testing.T) {
	compiler := newFakeCompiler()
	compiler.fail["src/bad.html"] = errors.New("missing asset")
	logs := logging.NewRecorder()

	runEvents(t, compiler, logs,
		add("src/bad.html"),
		add("src/good.html"),
		scanComplete(),
		change("src/good.html"),
	)

	assert.Equal(t, 3, compiler.count("src/bad.html"))
	assert.Equal(t, 3, compiler.count("src/good.html"))
	assert.Contains(t, logs.Messages(logging.LevelError), "Compile failed")
	assert.True(t, contains(logs.Messages(logging.LevelInfo), "MOD src/good.html"))
}

func TestOrchestrator_NotifiesAfterEachEvent(t *testing.T) {
	compiler := newFakeCompiler()
	notifier := &fakeNotifier{}

	o := New(compiler, htmlEntries, logging.Nop(), WithNotifier(notifier))
	ch := make(chan watcher.Event, 3)
	ch <- add("src/a.html")
	ch <- scanComplete()
	ch <- change("src/a.css")
	close(ch)
	require.NoError(t, o.Run(context.Background(), ch))

	assert.ElementsMatch(t, []string{LabelAdd, LabelReady, LabelChange}, notifier.labels)
}

func TestOrchestrator_StopsOnCancel(t *testing.T) {
	compiler := newFakeCompiler()
	o := New(compiler, htmlEntries, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx, make(chan watcher.Event)) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
