package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/htmlc/internal/config"
	"github.com/conneroisu/htmlc/internal/errors"
	"github.com/conneroisu/htmlc/internal/logging"
	"github.com/conneroisu/htmlc/internal/storage"
)

var cfgFile string

// errReported marks failures that were already shown to the user.
var errReported = stderrors.New("htmlc: failed")

// rootCmd compiles the source tree, once or continuously with --watch.
var rootCmd = &cobra.Command{
	Use:   "htmlc",
	Short: "Bundle stylesheets, scripts and images into self-contained HTML files",
	Long: `htmlc compiles every HTML entry below the source directory into the
distribution directory. Linked stylesheets and scripts are inlined into one
<style> and one <script> element, nested CSS is flattened and images marked
with the inline attribute become data URIs.

Examples:
  htmlc                           Compile src/ into dist/
  htmlc -s pages -d public -c     Compile and minify pages/ into public/
  htmlc --watch                   Recompile on every change
  htmlc --watch --serve :8080     Also serve dist/ with live reload`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !stderrors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.Flags()
	flags.StringP(config.KeySource, "s", config.DefaultSource, "source directory")
	flags.StringP(config.KeyDist, "d", config.DefaultDist, "distribution directory")
	flags.BoolP(config.KeyWatch, "w", false, "watch the source directory and recompile on change")
	flags.BoolP(config.KeyCompress, "c", false, "minify the output")
	flags.BoolP(config.KeyModule, "m", false, "mark the bundled script as an ES module")
	flags.StringP(config.KeyExt, "e", config.DefaultExt, "extension of entry files")
	flags.BoolP(config.KeyQuiet, "q", false, "only print warnings and errors")
	flags.String(config.KeyServe, "", "in watch mode, serve the distribution directory with live reload on this address")
	flags.Bool(config.KeyStrict, false, "exit with status 1 when any entry fails to compile")
	flags.String(config.KeyLogFmt, "text", "log format (text, json)")
	_ = viper.BindPFlags(flags)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .htmlc.yml, can also use HTMLC_CONFIG_FILE env var)")
}

// initConfig wires the configuration file and the environment into viper.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("HTMLC_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".htmlc")
	}

	viper.SetEnvPrefix("HTMLC")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// A missing or malformed file leaves flags, environment and defaults.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	opts, err := config.Load(viper.GetViper())
	if err != nil {
		var herr *errors.HtmlcError
		if stderrors.As(err, &herr) && herr.Type == errors.ErrorTypeConfig {
			fmt.Fprintln(cmd.OutOrStdout(), herr.Message)
			return errReported
		}
		return err
	}

	debug := isDebug()
	if debug {
		if err := dumpOptions(cmd.ErrOrStderr(), opts); err != nil {
			return err
		}
	}

	ctx := commandContext(cmd.Context())
	logger := newLogger(opts, debug, cmd.OutOrStdout())
	store := storage.OS()

	if !opts.Watch {
		report, err := runBatch(ctx, opts, store, logger)
		if err != nil {
			logger.Error(ctx, err, "Build failed")
			return errReported
		}
		if opts.Strict && report.Failed > 0 {
			return fmt.Errorf("%w: %d of %d entries failed", errReported, report.Failed, report.Discovered)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return runWatch(ctx, opts, store, logger)
}

func isDebug() bool {
	return strings.EqualFold(os.Getenv("DEBUG"), "true")
}

func newLogger(opts *config.Options, debug bool, out io.Writer) logging.Logger {
	cfg := logging.DefaultConfig()
	if opts.Quiet {
		cfg = logging.QuietConfig()
	}
	if debug {
		cfg.Level = logging.LevelDebug
	}
	if opts.LogFormat != "" {
		cfg.Format = opts.LogFormat
	}
	cfg.Output = out
	return logging.NewLogger(cfg)
}

// dumpOptions writes the resolved options as YAML.
func dumpOptions(w io.Writer, opts *config.Options) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(opts); err != nil {
		return errors.NewInternalError("DEBUG_DUMP_FAILED", "cannot print options", err)
	}
	return enc.Close()
}

// commandContext returns ctx, or a background context when cobra was run
// without one.
func commandContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
