package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"quotegw/internal/app"
	"quotegw/internal/infra/config"
)

type rootOptions struct {
	configPath    string
	listenAddress string
	logLevel      string
	dev           bool
	logger        *zap.Logger
}

func main() {
	opts := rootOptions{
		logLevel: "info",
		logger:   newBootstrapLogger(os.Stderr),
	}
	if err := run(&opts, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// run executes the root command. Failures are logged through opts.logger,
// which is still the bootstrap logger when flags or the log level are bad.
func run(opts *rootOptions, args []string) error {
	root := newRootCmd(opts)
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		opts.logger.Error("command failed", zap.Error(err))
		_ = opts.logger.Sync()
	}
	return err
}

// newBootstrapLogger logs in the production encoding until buildLogger has
// applied the requested level.
func newBootstrapLogger(w io.Writer) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(w),
		zapcore.InfoLevel,
	)
	return zap.New(core)
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "quotegw",
		Short:         "Quote gateway exposing a key-value store over HTTP, SSE and MCP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			log, err := buildLogger(opts.logLevel, opts.dev)
			if err != nil {
				return err
			}
			opts.logger = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to gateway config file (defaults and environment only when empty)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.dev, "dev", false, "human readable development logging")

	root.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyServeFlagBindings(cmd.Flags(), opts)
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			return app.New(opts.logger).Serve(ctx, app.ServeConfig{
				ConfigPath:    opts.configPath,
				ListenAddress: opts.listenAddress,
			})
		},
	}
	cmd.Flags().String("listen", "", "override http.listenAddress")
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the gateway configuration without serving",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.New(opts.logger).ValidateConfig(cmd.Context(), app.ValidateConfig{
				ConfigPath: opts.configPath,
			})
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.New(opts.logger).LoadConfig(cmd.Context(), opts.configPath)
			if err != nil {
				return err
			}
			out, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "quotegw %s (%s)\n", app.Version, app.Build)
		},
	}
}

func applyServeFlagBindings(flags *pflag.FlagSet, opts *rootOptions) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "listen":
			opts.listenAddress, _ = flags.GetString("listen")
		}
	})
}

func buildLogger(level string, dev bool) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	return cfg.Build()
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
