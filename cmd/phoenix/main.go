package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chris/phoenix/config"
	"github.com/chris/phoenix/internal/agent"
	"github.com/chris/phoenix/internal/console"
	"github.com/chris/phoenix/internal/flow"
	"github.com/chris/phoenix/internal/llm"
	"github.com/chris/phoenix/internal/logging"
	"github.com/chris/phoenix/internal/store"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose  bool
	storeDSN string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "phoenix",
	Short: "Agent Phoenix - a habit-recovery coach",
	Long: `Agent Phoenix walks you through a one-time intake, builds a recovery
plan from it, and then supports you every day: check-ins, craving help,
relapse recovery and someone to talk to.

Run without arguments to start (or continue) your session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if storeDSN != "" {
			cfg.StoreDSN = storeDSN
		}
		logger, err = logging.New(cfg.LogLevel, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runSession,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&storeDSN, "store", "", "Session store: JSON path, SQLite path, postgres:// or redis:// URL (or set STORE_DSN)")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(serviceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runSession is the interactive intake and daily loop. Interrupts are left
// to the default handler: every save is complete on its own.
func runSession(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	ag, err := newAgent(ctx)
	if err != nil {
		return err
	}

	con := console.New(os.Stdin, os.Stdout, isatty.IsTerminal(os.Stdout.Fd()))
	return flow.New(st, ag, con, logger).Run(ctx)
}

func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.StoreDSN, cfg.StoreName, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return st, nil
}

func newAgent(ctx context.Context) (*agent.Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	client, err := llm.NewClient(ctx, cfg.Provider())
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}
	return agent.New(client, logger, cfg.MaxContextTokens, cfg.LLMTimeout), nil
}

// signalContext is cancelled on SIGINT or SIGTERM, for the daemons.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
