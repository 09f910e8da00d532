// Package config resolves the options of one htmlc run using Viper, so that
// values can come from command-line flags, HTMLC_* environment variables or
// an .htmlc.yml file, in that order of precedence.
//
// The resolved Options are immutable for the duration of a run: the batch
// runner, the watch orchestrator and every file compile read the same value.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/conneroisu/htmlc/internal/errors"
)

// Viper keys. They double as flag names.
const (
	KeySource   = "source"
	KeyDist     = "dist"
	KeyWatch    = "watch"
	KeyCompress = "compress"
	KeyModule   = "module"
	KeyExt      = "ext"
	KeyQuiet    = "quiet"
	KeyServe    = "serve"
	KeyStrict   = "strict"
	KeyLogFmt   = "log-format"
)

// Defaults applied when nothing else sets a value.
const (
	DefaultSource = "src/"
	DefaultDist   = "dist/"
	DefaultExt    = ".html"
)

// Options holds everything a compile needs.
type Options struct {
	SourceRoot string `yaml:"source" mapstructure:"source"`
	DistRoot   string `yaml:"dist" mapstructure:"dist"`
	Watch      bool   `yaml:"watch" mapstructure:"watch"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
	Module     bool   `yaml:"module" mapstructure:"module"`
	Ext        string `yaml:"ext" mapstructure:"ext"`
	Quiet      bool   `yaml:"quiet" mapstructure:"quiet"`
	// Serve is the listen address of the live-reload server in watch mode.
	// Empty disables it.
	Serve string `yaml:"serve,omitempty" mapstructure:"serve"`
	// Strict makes a one-shot run exit non-zero when any entry failed.
	Strict    bool   `yaml:"strict" mapstructure:"strict"`
	LogFormat string `yaml:"log_format" mapstructure:"log-format"`
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySource, DefaultSource)
	v.SetDefault(KeyDist, DefaultDist)
	v.SetDefault(KeyExt, DefaultExt)
	v.SetDefault(KeyLogFmt, "text")
}

// Load reads the options out of v and validates them.
func Load(v *viper.Viper) (*Options, error) {
	SetDefaults(v)

	opts := &Options{
		SourceRoot: v.GetString(KeySource),
		DistRoot:   v.GetString(KeyDist),
		Watch:      v.GetBool(KeyWatch),
		Compress:   v.GetBool(KeyCompress),
		Module:     v.GetBool(KeyModule),
		Ext:        v.GetString(KeyExt),
		Quiet:      v.GetBool(KeyQuiet),
		Serve:      v.GetString(KeyServe),
		Strict:     v.GetBool(KeyStrict),
		LogFormat:  strings.ToLower(v.GetString(KeyLogFmt)),
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks the options for values a run cannot work with.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.SourceRoot) == "" {
		return errors.NewConfigError("SOURCE_INVALID",
			fmt.Sprintf("Source parameter must be a path to a directory. Found '%s'.", o.SourceRoot))
	}
	if strings.TrimSpace(o.DistRoot) == "" {
		return errors.NewConfigError("DIST_INVALID",
			fmt.Sprintf("Dist parameter must be a path to a directory. Found '%s'.", o.DistRoot))
	}
	if o.Ext == "" {
		return errors.NewConfigError("EXT_INVALID", "entry extension must not be empty")
	}
	if !strings.HasPrefix(o.Ext, ".") {
		o.Ext = "." + o.Ext
	}
	switch o.LogFormat {
	case "", "text", "json":
	default:
		return errors.NewConfigError("LOG_FORMAT_INVALID",
			fmt.Sprintf("unsupported log format %q (supported: text, json)", o.LogFormat))
	}
	if o.Serve != "" && !o.Watch {
		return errors.NewConfigError("SERVE_WITHOUT_WATCH", "--serve requires --watch")
	}
	return nil
}

// IsEntry reports whether path names an entry file for these options.
func (o *Options) IsEntry(path string) bool {
	return strings.HasSuffix(path, o.Ext)
}
