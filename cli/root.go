// Package cli wires the taskwing commands: the API server, the local
// console shell and the analytics worker.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskwing/config"
	"taskwing/errors"
	"taskwing/llm"
)

var configPath string

// NewRootCmd creates the top-level taskwing command with all
// subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskwing",
		Short: "AI-assisted todo list service",
		Long: `TaskWing is a todo list service with a conversational assistant.
Run the API server, a local console shell, or the analytics worker.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "taskwing.yaml", "Path to config file")

	cmd.AddCommand(
		newServeCmd(),
		newConsoleCmd(),
		newWorkerCmd(),
	)

	return cmd
}

// newLogger builds the process logger for the configured level.
func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newLLMClient constructs the provider adapter named by the config.
// An unrecognized provider falls back to the scripted mock, which keeps
// local development working without credentials.
func newLLMClient(ctx context.Context, cfg config.LLM) (llm.Client, error) {
	switch cfg.Provider {
	case "openai":
		return llm.NewOpenAIClient(ctx, cfg.Model)
	case "anthropic":
		return llm.NewAnthropicClient(ctx, cfg.Model)
	case "gemini":
		return llm.NewGeminiClient(ctx, cfg.Model)
	case "bedrock":
		return llm.NewBedrockClient(ctx, cfg.Model)
	case "mock", "":
		return &llm.MockClient{}, nil
	default:
		return nil, errors.New("unknown llm provider %q", cfg.Provider)
	}
}
