package orchestrator

import (
	"context"
	"strings"

	"github.com/sourcegraph/conc"

	"github.com/conneroisu/htmlc/internal/build"
	"github.com/conneroisu/htmlc/internal/logging"
	"github.com/conneroisu/htmlc/internal/watcher"
)

// Compiler compiles one entry.
type Compiler interface {
	Compile(ctx context.Context, entry string) (*build.Result, error)
}

// Notifier is told about every finished event, for example to reload
// browsers looking at the output.
type Notifier interface {
	Reload(label, path string)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the notifier called after every event settles.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

// Orchestrator runs the watch loop. Run is the only goroutine touching the
// state and the pending initial builds; compiles and the waits behind each
// event's log line run on their own goroutines.
type Orchestrator struct {
	compiler Compiler
	isEntry  func(path string) bool
	logger   logging.Logger
	notifier Notifier

	state   State
	pending []<-chan struct{}
	wg      conc.WaitGroup
}

// New creates an orchestrator compiling the paths isEntry accepts.
func New(compiler Compiler, isEntry func(path string) bool, logger logging.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		compiler: compiler,
		isEntry:  isEntry,
		logger:   logger.WithComponent("orchestrator"),
		state:    NewState(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current state. Only safe to call when Run is not
// running.
func (o *Orchestrator) State() State {
	return o.state
}

// Run consumes events until the stream closes or ctx is done, then waits for
// every compile already started. Started compiles are never cancelled.
func (o *Orchestrator) Run(ctx context.Context, events <-chan watcher.Event) error {
	defer o.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			o.handle(ctx, event)
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, event watcher.Event) {
	next, effects := Reduce(o.state, event, o.isEntry)
	o.state = next

	// Compiles outlive a cancelled watch session.
	cctx := context.WithoutCancel(ctx)

	var (
		waits []<-chan struct{}
		logs  []Effect
	)
	for _, effect := range effects {
		switch effect.Kind {
		case EffectCompile:
			for _, path := range effect.Paths {
				done := o.startCompile(cctx, path)
				waits = append(waits, done)
				if effect.Initial {
					o.pending = append(o.pending, done)
				}
			}
		case EffectAwaitInitial:
			waits = append(waits, o.pending...)
			o.pending = nil
		case EffectLog:
			logs = append(logs, effect)
		}
	}
	if len(logs) == 0 {
		return
	}

	o.wg.Go(func() {
		for _, done := range waits {
			<-done
		}
		for _, effect := range logs {
			o.logger.Info(cctx, strings.TrimSpace(effect.Label+" "+effect.Path),
				"event", effect.Label,
				"path", effect.Path,
			)
			if o.notifier != nil {
				o.notifier.Reload(effect.Label, effect.Path)
			}
		}
	})
}

func (o *Orchestrator) startCompile(ctx context.Context, path string) <-chan struct{} {
	done := make(chan struct{})
	o.wg.Go(func() {
		defer close(done)

		o.logger.Debug(ctx, "Compiling "+path+"...", "entry", path)
		result, err := o.compiler.Compile(ctx, path)
		if err != nil {
			o.logger.Error(ctx, err, "Compile failed", "entry", path)
			return
		}
		if result != nil && result.Stale {
			o.logger.Debug(ctx, "Newer build already written", "entry", path)
		}
	})
	return done
}
