package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emprendyup/ms-go-reconciler/app/service"
	"github.com/emprendyup/ms-go-reconciler/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	workerMode bool
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Run backend delivery outbox commands",
}

var outboxDispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Deliver pending backend calls that failed synchronously",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"outbox_dispatch",
			func(cfg *config.Config) time.Duration { return cfg.Outbox.DispatchInterval },
			func(s *service.OutboxService, ctx context.Context) error {
				return s.RunDispatchBatch(ctx)
			},
		)
	},
}

var outboxStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print pending, delivered and failed outbox counts",
	Run: func(_ *cobra.Command, _ []string) {
		_, outboxService, cleanup := mustCreateOutboxService()
		defer cleanup()

		runJob("outbox_stats", func() error {
			stats, err := outboxService.Stats(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "pending=%d delivered=%d failed=%d\n", stats.Pending, stats.Delivered, stats.Failed)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(outboxCmd)
	outboxCmd.AddCommand(outboxDispatchCmd)
	outboxCmd.AddCommand(outboxStatsCmd)

	outboxDispatchCmd.Flags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func mustCreateOutboxService() (*config.Config, *service.OutboxService, func()) {
	cfg := mustLoadConfig()
	if !cfg.MySQL.Enabled() {
		logrus.WithError(service.ErrOutboxDisabled).Fatal("MYSQL_DSN is required for outbox commands")
	}

	db := mustOpenDatabase(cfg)
	webhookClient, graphQLClient := newBackendClients(cfg)
	outboxService := newOutboxService(cfg, db, webhookClient, graphQLClient)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, outboxService, cleanup
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.OutboxService, ctx context.Context) error,
) {
	cfg, outboxService, cleanup := mustCreateOutboxService()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), outboxService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(outboxService, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	outboxService *service.OutboxService,
	fn func(s *service.OutboxService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(outboxService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(outboxService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
