package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskwing/agent"
	"taskwing/auth"
	"taskwing/catalog"
	"taskwing/chat"
	"taskwing/config"
	"taskwing/events"
	"taskwing/httpapi"
	"taskwing/store"
	"taskwing/tools"
)

func newServeCmd() *cobra.Command {
	var (
		port   int
		host   string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the TaskWing API server",
		Long:  "Start the REST API with the chat assistant, task CRUD and conversation history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("db") {
				cfg.Store.Path = dbPath
			}

			logger, err := newLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			defer logger.Sync()

			boltStore, err := store.NewBoltStore(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("opening store at %s: %w", cfg.Store.Path, err)
			}
			defer boltStore.Close()

			cat, err := catalog.New()
			if err != nil {
				return fmt.Errorf("building tool catalogue: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Event publishing and the analytics consumer are optional.
			var emitter events.Emitter = events.NopEmitter{}
			var analytics *events.Consumer
			if cfg.Kafka.Enabled {
				producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
				defer producer.Close()
				emitter = producer

				analytics = events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, logger)
				defer analytics.Close()
				go func() {
					if err := analytics.Run(ctx); err != nil {
						logger.Error("event consumer stopped", zap.Error(err))
					}
				}()
			}

			client, err := newLLMClient(ctx, cfg.LLM)
			if err != nil {
				return fmt.Errorf("initializing llm provider: %w", err)
			}

			executor := tools.NewExecutor(cat, boltStore, emitter, logger)
			bridge := agent.NewBridge(client, executor, cat, logger)
			chatSvc := chat.NewService(boltStore, bridge, logger)
			authn := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			apiSrv := httpapi.NewServer(addr, boltStore, chatSvc, authn, emitter, analytics, cfg.LLM, logger)

			banner := color.New(color.FgCyan, color.Bold)
			banner.Println("TaskWing API Server")
			fmt.Printf("   Address:  http://%s\n", addr)
			fmt.Printf("   DB Path:  %s\n", cfg.Store.Path)
			fmt.Printf("   Provider: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
			fmt.Printf("   Kafka:    %v\n", cfg.Kafka.Enabled)
			fmt.Println()

			errCh := make(chan error, 1)
			go func() {
				if err := apiSrv.Start(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			case err := <-errCh:
				logger.Error("API server error", zap.Error(err))
				return err
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			if err := apiSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("API server shutdown error", zap.Error(err))
			}
			cancel()

			logger.Info("TaskWing server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 8000, "API server port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "API server host")
	cmd.Flags().StringVar(&dbPath, "db", "taskwing.db", "Path to the BoltDB file")

	return cmd
}
