package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pbaille/autojournal/internal/breaker"
	"github.com/pbaille/autojournal/internal/classifier"
	"github.com/pbaille/autojournal/internal/config"
	"github.com/pbaille/autojournal/internal/domain"
	"github.com/pbaille/autojournal/internal/imagehost"
	"github.com/pbaille/autojournal/internal/journal"
	"github.com/pbaille/autojournal/internal/logging"
	"github.com/pbaille/autojournal/internal/metrics"
	"github.com/pbaille/autojournal/internal/store"
)

var (
	configPath string
	dbOverride string
	owner      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "journal",
		Short:         "Automatic browsing journal with AI summaries and tags",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "config file")
	rootCmd.PersistentFlags().StringVar(&dbOverride, "db", "", "database DSN (overrides config)")
	rootCmd.PersistentFlags().StringVar(&owner, "owner", domain.DefaultOwner, "journal owner")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(summarizeCmd())
	rootCmd.AddCommand(rebuildTagsCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app is the wired service graph shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	level   zap.AtomicLevel
	store   *store.Store
	metrics *metrics.Collector
	journal *journal.Service
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbOverride != "" {
		cfg.Database.DSN = dbOverride
	}

	logger, level, err := logging.New(cfg.Env, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Driver == "sqlite" || cfg.Database.Driver == "sqlite3" {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}
	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	m := metrics.NewCollector("journal")

	provider, err := classifier.NewProvider(cfg.LLM.Provider, cfg.LLM.APIKey(), cfg.LLM.Model)
	if err != nil {
		st.Close()
		return nil, err
	}
	llmGuard := breaker.DefaultConfig("llm:" + provider.Name())
	llmGuard.Timeout = cfg.LLM.Timeout
	llmGuard.Attempts = cfg.LLM.Attempts
	clf := classifier.New(provider, breaker.New(llmGuard, logger, m), logger)

	opts := []journal.Option{journal.WithRecorder(m), journal.WithLogger(logger)}
	hostGuard := breaker.DefaultConfig("imagehost")
	hostGuard.Timeout = cfg.ImageHost.Timeout
	images := imagehost.New(cfg.ImageHost.APIKey, cfg.ImageHost.BaseURL, breaker.New(hostGuard, logger, m))
	if images.Enabled() {
		opts = append(opts, journal.WithUploader(images))
	}

	logger.Debug("journal wired",
		zap.String("db", st.Driver()),
		zap.String("llm", clf.Provider()),
		zap.Bool("imagehost", images.Enabled()))

	return &app{
		cfg:     cfg,
		logger:  logger,
		level:   level,
		store:   st,
		metrics: m,
		journal: journal.New(st, clf, opts...),
	}, nil
}

func (a *app) Close() {
	a.store.Close()
	a.logger.Sync()
}

// withApp runs fn with a wired app and closes it afterwards.
func withApp(fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a)
	}
}

// settingsFor returns the stored settings of the owner, or the defaults.
func (a *app) settingsFor(ctx context.Context, userID string) domain.Settings {
	u, err := a.store.GetUser(ctx, userID)
	if err != nil {
		return domain.DefaultSettings()
	}
	return u.Settings
}
