package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tradementor/internal/config"
	"tradementor/internal/journal"
	"tradementor/internal/logging"
	"tradementor/internal/perception"
	"tradementor/internal/router"
	"tradementor/internal/store"
)

var (
	// Global flags
	verbose    bool
	configPath string
	userID     string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tradementor",
	Short: "tradementor - trading journal assistant",
	Long: `tradementor routes each inbound message to a crisis path, the trading
journal subsystem, or general conversation. Journal messages are classified
into structured actions (log entries, goals, check-ins, summaries) and
persisted locally in SQLite.

Run the chat subcommand to start an interactive session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
		if err := logging.Initialize(wd); err != nil {
			logger.Warn("categorized logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// app bundles the wired pipeline shared by the subcommands.
type app struct {
	cfg    *config.Config
	store  *store.CachedStore
	client perception.LLMClient
	router *router.Router
	engine *journal.ActionEngine
}

// buildApp wires the full pipeline from config.
func buildApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	js, err := store.NewJournalStore(cfg.Store.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal store: %w", err)
	}
	cached := store.NewCachedStore(js, cfg.StoreCacheTTL())

	client, err := perception.NewClient(cfg.LLM)
	if err != nil {
		js.Close()
		return nil, err
	}

	classifier := perception.NewIntentClassifier(client)
	r := router.New(
		perception.NewCrisisDetector(),
		perception.NewJournalKeywordGate(),
		classifier,
		router.Config{
			ConfidenceGate:     cfg.Router.ConfidenceGate,
			FallbackConfidence: cfg.Router.FallbackConfidence,
		},
	)

	engine := journal.NewActionEngine(cached, client)

	logger.Info("pipeline ready",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("db", cfg.Store.DatabasePath),
		zap.Float64("confidence_gate", cfg.Router.ConfidenceGate),
	)

	return &app{cfg: cfg, store: cached, client: client, router: r, engine: engine}, nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".tradementor/config.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "local", "user id for journal operations")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(summaryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
