package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/stuartleeks/service-bus-subscribers/service/app"
	"github.com/stuartleeks/service-bus-subscribers/service/config"
	"github.com/stuartleeks/service-bus-subscribers/service/metrics"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type flags struct {
	configFile string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:          "subscriber",
		Short:        "Consume broker subscriptions with the registered handlers",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}
	root.PersistentFlags().StringVar(&f.configFile, "config", os.Getenv("SUBSCRIBER_CONFIG_FILE"), "YAML configuration file, overlaid by the environment")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides LOG_LEVEL)")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the consumers until SIGINT or SIGTERM (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			if err := printConfig(cmd.OutOrStdout(), cfg); err != nil {
				return err
			}
			return cfg.Validate()
		},
	})
	return root
}

// loadConfig reads defaults, file and environment without validating.
func loadConfig(f flags) (config.Config, error) {
	cfg := config.Default()
	if f.configFile != "" {
		if err := config.LoadFile(f.configFile, &cfg); err != nil {
			return config.Config{}, err
		}
	}
	if err := config.FromEnv(&cfg); err != nil {
		return config.Config{}, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg, nil
}

func printConfig(w io.Writer, cfg config.Config) error {
	if cfg.ServiceBus.ConnectionString != "" {
		cfg.ServiceBus.ConnectionString = "REDACTED"
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func newLogger(w io.Writer, cfg config.Log) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

func run(ctx context.Context, f flags) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr, cfg.Log)
	if err != nil {
		return err
	}

	registry := app.NewRegistry()
	if err := registerHandlers(registry, logger.With().Str("component", "Handlers").Logger()); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	g, gctx := errgroup.WithContext(ctx)
	consumersDone := make(chan struct{})
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, reg, logger)
		g.Go(func() error {
			serveCtx, cancel := context.WithCancel(gctx)
			defer cancel()
			go func() {
				<-consumersDone
				cancel()
			}()
			return srv.Run(serveCtx)
		})
	}
	g.Go(func() error {
		defer close(consumersDone)
		return app.Run(gctx, cfg, registry, app.NewFactory(cfg, logger), logger, collector)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Subscriber stopped")
		return err
	}
	logger.Info().Msg("Subscriber stopped")
	return nil
}
