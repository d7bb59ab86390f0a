package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"biblegpt.app/companion/internal/api"
	"biblegpt.app/companion/internal/config"
	"biblegpt.app/companion/internal/core"
	"biblegpt.app/companion/internal/corpus"
	"biblegpt.app/companion/internal/llm"
	"biblegpt.app/companion/internal/logging"
	"biblegpt.app/companion/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg      config.Config
	logger   *zap.Logger
	logLevel string
	port     string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "companion",
		Short: "Devotional Bible companion: scripture reader, bookmarks and the Father chat",
		Long: `companion serves the Bible reader API backed by the bundled corpus,
stores bookmarks and the chat transcript in SQLite, and relays chat turns
to the configured AI provider with an offline fallback.

Run without arguments to start the HTTP server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg
			if a.logLevel != "" {
				a.cfg.LogLevel = a.logLevel
			}
			logger, err := logging.New(a.cfg.LogLevel)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (DEBUG, INFO, WARN, ERROR); overrides LOG_LEVEL")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	serveCmd.Flags().StringVar(&a.port, "port", "", "HTTP port; overrides HTTP_PORT")

	rootCmd.AddCommand(serveCmd, a.booksCmd(), a.chapterCmd(), a.searchCmd())
	return rootCmd
}

func (a *app) loadCorpus() (*corpus.Corpus, error) {
	if a.cfg.CorpusPath != "" {
		a.logger.Info("Loading corpus from file", zap.String("path", a.cfg.CorpusPath))
		return corpus.LoadFile(a.cfg.CorpusPath)
	}
	return corpus.LoadEmbedded()
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger

	bible, err := a.loadCorpus()
	if err != nil {
		logger.Error("Failed to load corpus", zap.Error(err))
		return err
	}
	logger.Info("Corpus loaded", zap.Int("books", len(bible.ListBooks())), zap.Int("verses", bible.VerseCount()))

	dbStore, err := store.NewSQLiteStore(a.cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database", zap.Error(err))
		return err
	}
	defer dbStore.Close()

	provider, err := llm.ParseProvider(a.cfg.AIProvider)
	if err != nil {
		logger.Warn("Unknown AI_PROVIDER, chat will use fallback responses", zap.Error(err))
		provider = llm.Provider(a.cfg.AIProvider)
	}
	gateway := llm.NewGateway(llm.Config{Provider: provider, APIKey: a.cfg.AIAPIKey, Model: a.cfg.AIModel}, logger.Named("llm"))

	settingsService := core.NewSettingsService(dbStore, gateway, logger)
	if err := settingsService.RestoreAIConfig(); err != nil {
		logger.Error("Failed to restore AI settings", zap.Error(err))
		return err
	}
	if status := gateway.Status(); !status.Configured {
		logger.Warn("No AI API key configured, chat will use fallback responses", zap.String("provider", string(status.Provider)))
	}

	apiHandler := api.NewAPIHandler(
		bible,
		core.NewBookmarkService(dbStore, bible, logger),
		core.NewChatService(dbStore, gateway, logger),
		settingsService,
		logger,
	)
	router := api.NewRouter(apiHandler, api.RouterOptions{
		AllowedOrigins:    a.cfg.CORSAllowedOrigins,
		ChatRatePerMinute: a.cfg.ChatRatePerMinute,
	})

	port := a.cfg.HTTPPort
	if a.port != "" {
		port = a.port
	}
	serverAddr := fmt.Sprintf(":%s", port)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // provider calls can take up to 15s
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server. Press Ctrl+C to quit.", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		// Give active connections time to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server exiting gracefully")
	return nil
}
