package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/momversation/backend/internal/config"
	"github.com/momversation/backend/pkg/logger"
)

type options struct {
	server  string
	delay   time.Duration
	scope   string
	timeout time.Duration

	cfg *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.InitCLI(false)
	defer logger.Sync()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "momchat",
		Short:         "Chat with the Momversation support companion",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger.InitCLI(cfg.Debug)
			opts.cfg = cfg
			return nil
		},
	}

	hostname, _ := os.Hostname()

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", "", "chat API base URL; talks to the local store when empty")
	rootCmd.PersistentFlags().DurationVar(&opts.delay, "delay", 1500*time.Millisecond, "pause before each reply while the companion is typing")
	rootCmd.PersistentFlags().StringVar(&opts.scope, "scope", hostname, "partition for the persisted session id")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "HTTP timeout when --server is set")

	rootCmd.AddCommand(
		newChatCommand(opts),
		newHistoryCommand(opts),
		newAskCommand(opts),
	)
	return rootCmd
}
