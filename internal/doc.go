// Package internal contains the implementation packages of htmlc.
//
// # Package Organization
//
//   - config: option loading from flags, environment and config files
//   - storage: file access on top of an afero file system
//   - dom: HTML parsing, node selection and rendering
//   - processor: CSS flattening and minification, JS minification, HTML formatting
//   - build: the per-entry compiler, the batch runner and build metrics
//   - registry: the ordered set of known entries
//   - watcher: the add/change/unlink/ready event stream of a source tree
//   - orchestrator: the watch-mode reducer and the loop applying it
//   - livereload: optional static server that reloads browsers after builds
//   - logging, errors, version: shared infrastructure
//
// # Data Flow
//
// In batch mode build.Batch discovers every entry and compiles them
// concurrently. In watch mode the watcher feeds events to the orchestrator,
// which keeps the entry registry and schedules compiles; the compiler orders
// overlapping writes of one output with per-path revisions.
package internal
