// Package cmd provides the command-line interface for htmlc.
//
// The root command compiles every entry below the source directory into a
// self-contained HTML file in the distribution directory. With --watch it
// keeps running and recompiles on every change.
//
// # Command Examples
//
//	// Compile src/ into dist/
//	htmlc
//
//	// Minified output from a custom layout
//	htmlc --source pages --dist public --compress
//
//	// Watch mode with a live-reload server
//	htmlc --watch --serve :8080
//
//	// Version information
//	htmlc version --detailed
//
// # Configuration
//
// Options come from three sources, highest precedence first:
//  1. Command-line flags (--source, --dist, ...)
//  2. HTMLC_* environment variables (HTMLC_SOURCE, HTMLC_LOG_FORMAT, ...)
//  3. The configuration file (--config, HTMLC_CONFIG_FILE or .htmlc.yml)
//
// Setting DEBUG=true prints the resolved options before anything runs.
package cmd
