package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"polybot/config"
	"polybot/internal/container"
	"polybot/internal/logging"
)

const shutdownTimeout = 15 * time.Second

// rootCommand собирает CLI: serve запускает сервис распознавания, bot запускает Telegram-бота
func rootCommand() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "polybot",
		Short:         "Telegram bot with YOLOv5 object detection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (text, json)")
	_ = v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log_format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(serveCommand(v), botCommand(v))
	return root
}

func serveCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the object detection HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(v, config.RoleServe)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().String("listen", "", "listen address of the HTTP service")
	_ = v.BindPFlag("listen_addr", cmd.Flags().Lookup("listen"))
	return cmd
}

func botCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(v, config.RoleBot)
			if err != nil {
				return err
			}
			return runBot(cmd.Context(), cfg, log)
		},
	}
}

func setup(v *viper.Viper, role string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(role); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("role", role)
	return cfg, log, nil
}

func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	c, err := container.NewInference(ctx, cfg, log, newRegistry())
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Error("close resources", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Server.Start(cfg.ListenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return c.Server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("inference server stopped")
	return nil
}

func runBot(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	c, err := container.NewBot(ctx, cfg, log, newRegistry())
	if err != nil {
		return err
	}

	log.Info("bot is running")
	if err := c.Bot.Run(ctx); err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	log.Info("bot stopped")
	return nil
}
