package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"mnistd/internal/config"
)

// options carries the raw flag values; only flags the user actually set
// override the file and environment layers.
type options struct {
	configPath string
	flags      config.Config
	corsCSV    string
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "mnistd",
		Short:         "MNIST digit classification service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "Config file (.yaml, .yml, .json, .toml)")
	pf.StringVar(&o.flags.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.StringVar(&o.flags.LogFormat, "log-format", "", "Log format: json|console")
	pf.StringVar(&o.flags.Store, "store", "", "Weight store driver: fs|sqlite|purekv|memory")
	pf.StringVar(&o.flags.StorePath, "store-path", "", "Directory (fs) or database file (sqlite)")
	pf.StringVar(&o.flags.StoreAddr, "store-addr", "", "pure-kv server address")
	pf.StringVar(&o.flags.StoreBucket, "store-bucket", "", "pure-kv bucket")
	pf.StringVar(&o.flags.WeightsKey, "weights-key", "", "Key of the weight blob in the store")

	root.AddCommand(newServeCmd(o), newWeightsCmd(o))

	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	root.AddCommand(completionCmd)
	return root
}

// resolveConfig layers defaults < config file < MNISTD_* env < flags and
// validates the result.
func (o *options) resolveConfig(fs *pflag.FlagSet, getenv func(string) string) (config.Config, error) {
	var cfg config.Config
	if o.configPath != "" {
		c, err := config.Load(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, err
	}
	o.applyFlags(fs, &cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (o *options) applyFlags(fs *pflag.FlagSet, cfg *config.Config) {
	f := o.flags
	overrides := map[string]func(){
		"log-level":      func() { cfg.LogLevel = f.LogLevel },
		"log-format":     func() { cfg.LogFormat = f.LogFormat },
		"store":          func() { cfg.Store = f.Store },
		"store-path":     func() { cfg.StorePath = f.StorePath },
		"store-addr":     func() { cfg.StoreAddr = f.StoreAddr },
		"store-bucket":   func() { cfg.StoreBucket = f.StoreBucket },
		"weights-key":    func() { cfg.WeightsKey = f.WeightsKey },
		"addr":           func() { cfg.Addr = f.Addr },
		"assets-dir":     func() { cfg.AssetsDir = f.AssetsDir },
		"request-log":    func() { cfg.RequestLog = f.RequestLog },
		"routing":        func() { cfg.Routing = f.Routing },
		"geo-header":     func() { cfg.GeoHeader = f.GeoHeader },
		"fixed-identity": func() { cfg.FixedIdentity = f.FixedIdentity },
		"onnx-library":   func() { cfg.ONNXLibrary = f.ONNXLibrary },

		"max-queue-depth":         func() { cfg.MaxQueueDepth = f.MaxQueueDepth },
		"max-wait-ms":             func() { cfg.MaxWaitMS = f.MaxWaitMS },
		"max-actors":              func() { cfg.MaxActors = f.MaxActors },
		"drain-timeout-seconds":   func() { cfg.DrainTimeoutSeconds = f.DrainTimeoutSeconds },
		"request-timeout-seconds": func() { cfg.RequestTimeoutSeconds = f.RequestTimeoutSeconds },
		"max-body-bytes":          func() { cfg.MaxBodyBytes = f.MaxBodyBytes },
		"max-image-bytes":         func() { cfg.MaxImageBytes = f.MaxImageBytes },
		"cors-origins": func() {
			cfg.CORSEnabled = true
			cfg.CORSOrigins = config.SplitCSV(o.corsCSV)
		},
	}
	for name, apply := range overrides {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			apply()
		}
	}
}

// newLogger builds the process logger from the resolved config.
func newLogger(cfg config.Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	var l zerolog.Logger
	if cfg.LogFormat == "console" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		l = zerolog.New(os.Stderr)
	}
	return l.Level(lvl).With().Timestamp().Str("service", "mnistd").Logger()
}
