package cmd

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/htmlc/internal/build"
	"github.com/conneroisu/htmlc/internal/config"
	"github.com/conneroisu/htmlc/internal/livereload"
	"github.com/conneroisu/htmlc/internal/logging"
	"github.com/conneroisu/htmlc/internal/orchestrator"
	"github.com/conneroisu/htmlc/internal/storage"
	"github.com/conneroisu/htmlc/internal/watcher"
)

// runWatch recompiles on every change below the source directory until ctx
// is done. With --serve it also serves the distribution directory and
// reloads connected browsers after every event.
func runWatch(ctx context.Context, opts *config.Options, store *storage.Store, logger logging.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	compiler := build.NewCompiler(opts, store, logger)

	fileWatcher, err := watcher.NewFileWatcher(opts.SourceRoot, logger)
	if err != nil {
		return err
	}
	defer fileWatcher.Stop()

	g, gctx := errgroup.WithContext(ctx)

	var orchOpts []orchestrator.Option
	if opts.Serve != "" {
		server := livereload.NewServer(opts.Serve, store.Fs(), opts.DistRoot, logger)
		orchOpts = append(orchOpts, orchestrator.WithNotifier(server))
		g.Go(func() error {
			return server.ListenAndServe(gctx)
		})
	}

	if err := fileWatcher.Start(gctx); err != nil {
		return err
	}
	logger.Info(ctx, "Watching "+opts.SourceRoot+" for changes...", "source", opts.SourceRoot, "dist", opts.DistRoot)

	orch := orchestrator.New(compiler, opts.IsEntry, logger, orchOpts...)
	g.Go(func() error {
		return orch.Run(gctx, fileWatcher.Events())
	})

	return g.Wait()
}
