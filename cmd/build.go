package cmd

import (
	"context"

	"github.com/conneroisu/htmlc/internal/build"
	"github.com/conneroisu/htmlc/internal/config"
	"github.com/conneroisu/htmlc/internal/logging"
	"github.com/conneroisu/htmlc/internal/storage"
	"github.com/conneroisu/htmlc/internal/version"
)

// runBatch compiles every entry once.
func runBatch(ctx context.Context, opts *config.Options, store *storage.Store, logger logging.Logger) (*build.Report, error) {
	logger.Info(ctx, version.Banner())

	compiler := build.NewCompiler(opts, store, logger)
	report, err := build.NewBatch(opts, store, compiler, logger).Run(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := compiler.Metrics().GetSnapshot()
	logger.Debug(ctx, "Build metrics",
		"total", snapshot.TotalBuilds,
		"failed", snapshot.FailedBuilds,
		"degraded", snapshot.DegradedBuilds,
		"success_rate", compiler.Metrics().GetSuccessRate(),
		"average", snapshot.AverageDuration.String(),
	)
	return report, nil
}
