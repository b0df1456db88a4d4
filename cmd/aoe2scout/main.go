// AoE2 Scout daemon.
// Serves the match-history web UI and keeps tracked players' histories fresh.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"aoe2scout/internal/config"
	"aoe2scout/internal/insights"
	"aoe2scout/internal/relic"
	"aoe2scout/internal/repository"
	"aoe2scout/internal/scout"
	"aoe2scout/internal/web"
)

// Version is set by -ldflags at build time.
var Version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Println("aoe2scout " + Version)
			return
		case "status":
			runStatusCommand()
			return
		case "stats":
			runStatsCommand(os.Args[2:])
			return
		case "serve":
			// fall through to the server below
		}
	}
	runServe()
}

func runServe() {
	tmpLogger := log.New(os.Stderr, "[aoe2scout] ", log.LstdFlags)
	cfg := loadConfig(tmpLogger)

	logger := setupLogger(cfg.ResolvedLogFile())
	logger.Println("Starting aoe2scout...")
	logger.Printf("Data dir: %s", cfg.DataDir)
	logger.Printf("Log file: %s", cfg.ResolvedLogFile())

	repo, err := repository.NewMatchRepository(cfg.StateFile())
	if err != nil {
		logger.Fatalf("Match repository: %v", err)
	}
	defer func() {
		if c, ok := repo.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}()

	var relicOpts []relic.Option
	var insightsOpts []insights.Option
	if cfg.UserAgent != "" {
		relicOpts = append(relicOpts, relic.WithUserAgent(cfg.UserAgent))
		insightsOpts = append(insightsOpts, insights.WithUserAgent(cfg.UserAgent))
	}
	svc := scout.NewService(
		repo,
		relic.NewClient(relicOpts...),
		insights.NewClient(insightsOpts...),
		logger,
		scout.WithMaxPages(cfg.MaxFetchPages),
		scout.WithSessionIdle(cfg.SessionIdle()),
		scout.WithSessionModeFilter(cfg.SessionModeFilter),
	)
	backfills := scout.NewBackfillManager(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Keep running when daemonized (nohup, systemd without a tty).
	signal.Ignore(syscall.SIGHUP)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	refresher := scout.NewRefresher(svc, cfg.UserIDs, cfg.RefreshInterval(), cfg.FetchWorkers, logger)
	go refresher.Start(ctx)
	if cfg.RefreshInterval() > 0 {
		logger.Printf("Refresher enabled: every %s, %d workers, %d tracked users",
			cfg.RefreshInterval(), cfg.FetchWorkers, len(cfg.UserIDs))
	}

	var importer *scout.Importer
	if cfg.ImportWatch {
		importer = scout.NewImporter(svc, cfg.DataDir,
			repository.LegacyCacheLoader(cfg.GameSpeedFactor),
			repository.UserFromCacheFilename, logger)
		go importer.Start(ctx)
		logger.Printf("Importer watching %s for legacy caches", cfg.DataDir)
	}

	mux := http.NewServeMux()
	web.NewHandler(svc, backfills).RegisterRoutes(mux)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		logger.Fatalf("Listen on port %d: %v", cfg.Port, err)
	}
	httpServer := &http.Server{Handler: mux}
	go func() {
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Printf("HTTP server: %v", err)
			cancel()
		}
	}()
	logger.Printf("HTTP server listening on :%d", cfg.Port)

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown: %v", err)
	}
	refresher.Stop()
	if importer != nil {
		importer.Stop()
	}
	backfills.Shutdown()
	logger.Println("Shutdown complete.")
}

func loadConfig(logger *log.Logger) *config.Config {
	cfg := config.DefaultConfig()
	if configPath := os.Getenv(config.EnvConfigPath); configPath != "" {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			logger.Printf("Warning: failed to load config %s: %v, using defaults", configPath, err)
			cfg = config.DefaultConfig()
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid environment override: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogger(logFilePath string) *log.Logger {
	var writers []io.Writer

	// Only include stderr when it's an interactive terminal (not redirected).
	// This prevents duplicate log lines when running under systemd with
	// output already captured to the journal.
	stderrIsTerminal := false
	if info, err := os.Stderr.Stat(); err == nil {
		stderrIsTerminal = (info.Mode() & os.ModeCharDevice) != 0
	}

	hasLogFile := false
	lower := strings.ToLower(logFilePath)
	if lower != "none" && lower != "off" && logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err == nil {
			f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				writers = append(writers, f)
				hasLogFile = true
			} else {
				fmt.Fprintf(os.Stderr, "[aoe2scout] Warning: cannot open log file %s: %v\n", logFilePath, err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "[aoe2scout] Warning: cannot create log dir %s: %v\n", filepath.Dir(logFilePath), err)
		}
	}

	if stderrIsTerminal || !hasLogFile {
		writers = append(writers, os.Stderr)
	}

	return log.New(io.MultiWriter(writers...), "[aoe2scout] ", log.LstdFlags)
}

func runStatusCommand() {
	logger := log.New(os.Stderr, "", 0)
	cfg := loadConfig(logger)

	repo, err := repository.NewMatchRepository(cfg.StateFile())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if c, ok := repo.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}()

	users, err := repo.UserIDs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(users) == 0 {
		fmt.Println("no cached users")
		return
	}
	for _, u := range users {
		matches, err := repo.LoadMatches(u)
		if err != nil {
			fmt.Printf("%s: error: %v\n", u, err)
			continue
		}
		st, _ := repo.FetchStatus(u)
		fmt.Printf("%s: %d matches, fetch=%s\n", u, len(matches), st.State)
	}
}
