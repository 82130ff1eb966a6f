package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskwing/config"
	"taskwing/events"
)

// newWorkerCmd runs the analytics consumer as a standalone process, for
// deployments where event aggregation is separated from the API server.
func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the standalone analytics event consumer",
		Long:  "Consume task events from Kafka and aggregate analytics until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			defer logger.Sync()

			banner := color.New(color.FgCyan, color.Bold)
			banner.Println("TaskWing Analytics Worker")
			fmt.Printf("   Brokers: %v\n", cfg.Kafka.Brokers)
			fmt.Printf("   Topic:   %s\n", cfg.Kafka.Topic)
			fmt.Printf("   Group:   %s\n", cfg.Kafka.GroupID)
			fmt.Println()

			consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, logger)
			defer consumer.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				errCh <- consumer.Run(ctx)
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logger.Info("received shutdown signal", zap.String("signal", sig.String()))
				cancel()
				<-errCh
			case err := <-errCh:
				if err != nil {
					logger.Error("consumer stopped", zap.Error(err))
					return err
				}
			}

			snap := consumer.Snapshot()
			logger.Info("worker stopped",
				zap.Int("total_events", snap.TotalEvents),
				zap.Int("unique_users", snap.UniqueUsers))
			return nil
		},
	}
}
