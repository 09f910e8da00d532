package build

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/conneroisu/htmlc/internal/config"
	"github.com/conneroisu/htmlc/internal/errors"
	"github.com/conneroisu/htmlc/internal/logging"
	"github.com/conneroisu/htmlc/internal/storage"
)

// Batch compiles every entry below the source root once.
type Batch struct {
	opts     *config.Options
	store    *storage.Store
	compiler *Compiler
	logger   logging.Logger
}

// Report summarizes a batch run.
type Report struct {
	Discovered int
	Compiled   int
	Failed     int
	Degraded   int
	Duration   time.Duration
	Results    []*Result
	// Err combines the errors of every failed entry.
	Err error
}

// NewBatch creates a batch runner sharing compiler's options and store.
func NewBatch(opts *config.Options, store *storage.Store, compiler *Compiler, logger logging.Logger) *Batch {
	return &Batch{
		opts:     opts,
		store:    store,
		compiler: compiler,
		logger:   logger.WithComponent("batch"),
	}
}

// Pattern is the glob, relative to the source root, that selects entries.
func (b *Batch) Pattern() string {
	return "**/*" + b.opts.Ext
}

// Discover lists the entries below the source root in lexical order.
func (b *Batch) Discover() ([]string, error) {
	if !b.store.Exists(b.opts.SourceRoot) {
		return nil, errors.NewIOError("SOURCE_MISSING", "source directory does not exist", nil).WithPath(b.opts.SourceRoot)
	}

	pattern := b.Pattern()
	var entries []string
	err := afero.Walk(b.store.Fs(), b.opts.SourceRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.opts.SourceRoot, path)
		if err != nil {
			return err
		}
		if ok, _ := doublestar.PathMatch(pattern, rel); ok {
			entries = append(entries, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapIO(err, "DISCOVER_FAILED", "cannot scan source directory", b.opts.SourceRoot)
	}
	sort.Strings(entries)
	return entries, nil
}

// Run compiles every discovered entry concurrently and waits for all of
// them. A failing entry never stops the others; the only error Run returns
// is a failure to scan the source root.
func (b *Batch) Run(ctx context.Context) (*Report, error) {
	op := logging.StartOperation(b.logger, "batch")

	entries, err := b.Discover()
	if err != nil {
		return nil, err
	}

	p := pool.NewWithResults[*Result]().WithMaxGoroutines(runtime.GOMAXPROCS(0) * 4)
	for _, entry := range entries {
		p.Go(func() *Result {
			b.logger.Info(ctx, "Compiling "+entry+"...", "entry", entry)
			result, _ := b.compiler.Compile(ctx, entry)
			return result
		})
	}
	results := p.Wait()

	report := &Report{
		Discovered: len(entries),
		Results:    results,
	}
	for _, result := range results {
		switch {
		case result.Failed():
			report.Failed++
			report.Err = multierr.Append(report.Err, result.Err)
			b.logger.Error(ctx, result.Err, "Compile failed", "entry", result.Entry)
		default:
			report.Compiled++
		}
		if result.IsDegraded() {
			report.Degraded++
		}
	}
	report.Duration = op.End(ctx)

	b.logger.Info(ctx, "Finished: "+Plural(report.Compiled, "file")+" compiled.",
		"failed", report.Failed,
		"degraded", report.Degraded,
		"duration", report.Duration.String(),
	)
	return report, nil
}

// Plural formats a count with a noun, adding an "s" unless count is 1.
func Plural(count int, noun string) string {
	if count == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(count) + " " + noun + "s"
}
