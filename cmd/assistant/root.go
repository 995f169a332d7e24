package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/productif-io/assistant/internal/agent"
	"github.com/productif-io/assistant/internal/api"
	"github.com/productif-io/assistant/internal/config"
	"github.com/productif-io/assistant/internal/convstate"
	"github.com/productif-io/assistant/internal/media"
	"github.com/productif-io/assistant/internal/restapi"
	"github.com/productif-io/assistant/internal/transcribe"
	"github.com/productif-io/assistant/internal/transport"
	"github.com/productif-io/assistant/internal/worker"
	"github.com/productif-io/assistant/pkg/flexmatch"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Productif WhatsApp assistant",
	RunE:  run,
}

func init() {
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(catalogCmd)
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(newLogHandler(cfg.Log))
	slog.SetDefault(logger)
	slog.Info("configuration loaded", "log_level", cfg.Log.Level)

	catalog, err := flexmatch.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load command catalog: %w", err)
	}
	matcher := flexmatch.NewMatcher(catalog)
	slog.Info("catalog loaded", "commands", len(catalog))

	states, err := convstate.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	slog.Info("conversation store initialized", "path", cfg.Database.Path)

	whatsapp := transport.NewWhatsAppClient(cfg.WhatsApp)
	apiClient := restapi.NewClient(cfg.API)
	whisper := transcribe.NewWhisper(cfg.Transcribe.APIKey, cfg.Transcribe.Model)

	archiver, err := media.NewArchiver(cfg.Media)
	if err != nil {
		return fmt.Errorf("init voice archive: %w", err)
	}

	router := agent.NewRouter(
		states,
		whatsapp,
		whatsapp,
		whisper,
		archiver,
		agent.NewHelpHandler(whatsapp),
		agent.NewPlanningHandler(matcher, apiClient, whatsapp, states),
		agent.NewJournalHandler(matcher, apiClient, whatsapp),
		agent.NewBehaviorHandler(apiClient, whatsapp, states),
		agent.NewHabitsHandler(matcher, apiClient, whatsapp),
		agent.NewDeepWorkHandler(matcher, apiClient, whatsapp, states),
	)

	handler := api.NewHandler(router, cfg.WhatsApp.VerifyToken, Version)
	mux := api.NewRouter(handler, cfg.WhatsApp.AppSecret)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	var wg sync.WaitGroup
	checkins := worker.NewCheckInCoordinator(states, whatsapp,
		time.Duration(cfg.Worker.CheckInScanInterval))
	startWorker(ctx, &wg, "checkin-coordinator", checkins.Run)

	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called
		// gracefully; anything else is a real failure.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	wg.Wait()

	if err := states.Close(); err != nil {
		slog.Error("conversation store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func newLogHandler(cfg config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.NewJSONHandler(os.Stdout, opts)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects context
// cancellation. Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
