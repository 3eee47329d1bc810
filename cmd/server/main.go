package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"medisoft.com/zorgapp/internal/api"
	"medisoft.com/zorgapp/internal/auth"
	"medisoft.com/zorgapp/internal/config"
	"medisoft.com/zorgapp/internal/core"
	"medisoft.com/zorgapp/internal/llm"
	"medisoft.com/zorgapp/internal/logger"
	"medisoft.com/zorgapp/internal/remote"
	"medisoft.com/zorgapp/internal/scheduler"
	"medisoft.com/zorgapp/internal/store"
)

func main() {
	hashPassword := flag.String("hash-password", "", "Print a bcrypt hash for OPERATOR_PASSWORD_HASH and exit")
	importLegacy := flag.String("import-legacy", "", "Import a legacy zorg_data JSON dump and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		fmt.Println(hash)
		return
	}

	if *importLegacy != "" {
		cfg, err := config.LoadStorage()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		zlog := newLogger(cfg)
		defer zlog.Sync()
		if err := importRecords(cfg, zlog, *importLegacy); err != nil {
			zlog.Fatal("legacy import failed", zap.Error(err))
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := newLogger(cfg)
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("zorgapp stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	return logger.New(logger.Options{
		FilePath:   cfg.LogFilePath,
		Level:      cfg.LogLevel,
		Production: cfg.IsProduction(),
	})
}

// importRecords appends a legacy dump to the configured slot. It needs no
// credentials or collaborators.
func importRecords(cfg *config.Config, zlog *zap.Logger, path string) error {
	ctx := context.Background()
	slot, err := openSlot(ctx, cfg)
	if err != nil {
		return err
	}
	defer slot.Close()

	records := store.NewRecordStore(slot, cfg.RecordsSlot, zlog.Named("store"))
	records.Load(ctx)

	zlog.Info("starting legacy import", zap.String("file", path))
	n, err := records.ImportLegacy(ctx, path, cfg.Location())
	if err != nil {
		return err
	}
	zlog.Info("legacy import complete", zap.Int("imported", n), zap.Int("total", records.Len()))
	return nil
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx := context.Background()
	loc := cfg.Location()

	slot, err := openSlot(ctx, cfg)
	if err != nil {
		return err
	}
	defer slot.Close()

	records := store.NewRecordStore(slot, cfg.RecordsSlot, zlog.Named("store"))
	loaded := records.Load(ctx)
	zlog.Info("records loaded", zap.String("backend", cfg.StorageBackend), zap.Int("count", len(loaded)))

	collab, closeCollab, err := newCollaborators(ctx, cfg, zlog.Named("collaborators"))
	if err != nil {
		return err
	}
	defer closeCollab()

	summaries := core.NewSummaryService(collab.Analyser, core.NewSummaryCache(), zlog.Named("summary"), core.SummaryOptions{
		Language: cfg.SummaryLanguage,
		Window:   cfg.SummaryWindow,
		Timeout:  cfg.CallTimeout,
	})
	session := core.NewSession(records, collab, zlog.Named("session"), cfg.CallTimeout)
	care := core.NewCareService(records, summaries, session, zlog.Named("care"))

	sched := scheduler.New(loc, 30*time.Minute, zlog.Named("scheduler"))
	sched.SetRefreshFunction(care.RefreshSummaries)
	if err := sched.Start(cfg.SummaryRefreshCron); err != nil {
		return err
	}
	defer sched.Stop()
	zlog.Info("summary refresh", zap.Bool("scheduled", sched.IsRunning()))

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	operator := auth.Operator{Username: cfg.OperatorUsername, PasswordHash: cfg.OperatorPasswordHash}
	apiHandler := api.NewAPIHandler(care, issuer, operator, loc, zlog.Named("api"))
	router := api.NewRouter(apiHandler, zlog.Named("http"))

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.CallTimeout*3 + 30*time.Second, // stop runs up to three collaborator calls
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("starting server", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return err
	}
	zlog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	zlog.Info("server exiting gracefully")
	return nil
}

func openSlot(ctx context.Context, cfg *config.Config) (store.Slot, error) {
	switch cfg.StorageBackend {
	case config.StorageFile:
		return store.NewFileSlot(cfg.DataDir)
	case config.StorageRedis:
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return store.NewRedisSlot(pingCtx, cfg.RedisURL)
	default:
		return store.NewSQLiteSlot(cfg.DatabaseURL)
	}
}

func newCollaborators(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (core.Collaborators, func(), error) {
	noop := func() {}
	switch cfg.Provider {
	case config.ProviderOpenAI:
		c := llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAITranscriptionModel)
		return core.Collaborators{Transcriber: c, Translator: c, Analyser: c}, noop, nil
	case config.ProviderGemini:
		g, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, zlog)
		if err != nil {
			return core.Collaborators{}, noop, err
		}
		return core.Collaborators{Transcriber: g, Translator: g, Analyser: g}, g.Close, nil
	default:
		c := remote.NewClient(cfg.BackendURL, nil)
		return core.Collaborators{Transcriber: c, Translator: c, Analyser: c}, noop, nil
	}
}
