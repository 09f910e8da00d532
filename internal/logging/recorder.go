package logging

import (
	"context"
	"sync"
)

// Entry is one message captured by a Recorder.
type Entry struct {
	Level     LogLevel
	Component string
	Message   string
	Err       error
	Fields    map[string]interface{}
}

// Recorder is a Logger that keeps every entry in memory, in the order the
// calls were made. It is safe for concurrent use.
type Recorder struct {
	mu        *sync.Mutex
	entries   *[]Entry
	component string
	fields    []interface{}
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		mu:      &sync.Mutex{},
		entries: &[]Entry{},
	}
}

func (r *Recorder) Debug(ctx context.Context, msg string, fields ...interface{}) {
	r.record(LevelDebug, nil, msg, fields)
}

func (r *Recorder) Info(ctx context.Context, msg string, fields ...interface{}) {
	r.record(LevelInfo, nil, msg, fields)
}

func (r *Recorder) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	r.record(LevelWarn, err, msg, fields)
}

func (r *Recorder) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	r.record(LevelError, err, msg, fields)
}

func (r *Recorder) With(fields ...interface{}) Logger {
	merged := append(append([]interface{}{}, r.fields...), fields...)
	return &Recorder{mu: r.mu, entries: r.entries, component: r.component, fields: merged}
}

func (r *Recorder) WithComponent(component string) Logger {
	return &Recorder{mu: r.mu, entries: r.entries, component: component, fields: r.fields}
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(*r.entries))
	copy(out, *r.entries)
	return out
}

// Messages returns the recorded messages, optionally filtered by level.
func (r *Recorder) Messages(levels ...LogLevel) []string {
	var out []string
	for _, e := range r.Entries() {
		if len(levels) > 0 && !containsLevel(levels, e.Level) {
			continue
		}
		out = append(out, e.Message)
	}
	return out
}

func (r *Recorder) record(level LogLevel, err error, msg string, fields []interface{}) {
	kv := make(map[string]interface{})
	all := append(append([]interface{}{}, r.fields...), fields...)
	for i := 0; i+1 < len(all); i += 2 {
		if key, ok := all[i].(string); ok {
			kv[key] = all[i+1]
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, Entry{
		Level:     level,
		Component: r.component,
		Message:   msg,
		Err:       err,
		Fields:    kv,
	})
}

func containsLevel(levels []LogLevel, level LogLevel) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}
