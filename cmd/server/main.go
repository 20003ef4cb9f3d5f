// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/utabox/utabox/internal/app/request/filter"
	"github.com/utabox/utabox/internal/app/session"
	"github.com/utabox/utabox/internal/infra/config"
	"github.com/utabox/utabox/internal/infra/engine"
	"github.com/utabox/utabox/internal/infra/library"
	"github.com/utabox/utabox/internal/infra/logger"
	"github.com/utabox/utabox/internal/infra/settings"
	"github.com/utabox/utabox/internal/transport/web"
)

var (
	app        = kingpin.New("utabox-server", "utabox karaoke session server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: console)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available request filters and exit")
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	loggerConfig := logger.Config{Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	lib, err := library.Load(cfg.Library.IndexPath)
	if err != nil {
		return fmt.Errorf("failed to load library index: %w", err)
	}

	store, err := settings.Open(cfg.Settings.Path)
	if err != nil {
		return fmt.Errorf("failed to open settings store: %w", err)
	}

	eng, err := engine.New(engine.Config{
		URL:     cfg.Engine.URL,
		Timeout: time.Duration(cfg.Engine.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine client: %w", err)
	}

	if err := waitForEngine(ctx, eng); err != nil {
		return fmt.Errorf("engine unreachable: %w", err)
	}

	coord, err := session.New(cfg, eng, lib, store)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: web.NewServer(coord, lib, cfg).Handler(),
	}

	serverErrCh := make(chan error, 1)

	coord.Start()

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		coord.Close()
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close the session first so connected clients see the end before
	// the listener goes away.
	coord.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// waitForEngine pings the playback engine with backoff. The engine is a
// separate process that may still be starting when we are.
func waitForEngine(ctx context.Context, eng *engine.Client) error {
	maxRetries := 5
	baseDelay := 1 * time.Second

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			delay := baseDelay * time.Duration(1<<uint(i-1))
			zlog.Info().Msgf("Retrying engine ping in %v...", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := eng.Ping(ctx); err != nil {
			lastErr = err
			zlog.Warn().Msgf("Engine ping failed (attempt %d/%d): %v", i+1, maxRetries, err)
			continue
		}

		zlog.Info().Msg("Engine reachable")
		return nil
	}
	return fmt.Errorf("failed after %d attempts: %v", maxRetries, lastErr)
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	for _, factory := range filter.GetRegistered() {
		f := factory()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}
