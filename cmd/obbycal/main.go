package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"obbycal/internal/app"
	"obbycal/internal/config"
	appLog "obbycal/internal/log"
	"obbycal/internal/record"
	"obbycal/internal/recur"
	"obbycal/internal/store"
	"obbycal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	dataDir    string
	once       bool
	verbose    bool
}

func main() {
	flags := parseFlags()
	if flags.verbose {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("obbycal starting", "version", "0.1.0-dev")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.dataDir != "" {
		conf.DataDir = flags.dataDir
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"data_dir", conf.DataDir,
		"refresh", conf.RefreshCron,
		"categories", len(conf.Categories),
		"ics_count", len(conf.ICS),
		"once", flags.once,
	)

	st, err := store.NewFS(conf.DataDir)
	if err != nil {
		appLog.Error("failed to open record store", err, "data_dir", conf.DataDir)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	cacheDir := filepath.Join(filepath.Dir(flags.configPath), "ics-cache")
	core := app.New(conf, st, cacheDir)

	if flags.once {
		runOnce(ctx, core)
		return
	}

	if err := core.Start(ctx); err != nil {
		appLog.Error("failed to start application", err)
		os.Exit(1)
	}
	defer core.Close()

	server := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf, core, flags.configPath).Handler(),
	}

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}
	appLog.Info("obbycal exiting")
}

// runOnce performs a single refresh and instance expansion, then exits.
// Useful for cron-driven setups and smoke checks.
func runOnce(ctx context.Context, core *app.App) {
	core.Refresh(ctx)
	today := record.Today()
	win := recur.Window{Start: today.AddDays(-31), End: today.AddDays(62)}
	instances, err := core.LoadInstances(win)
	if err != nil {
		appLog.Error("single-shot load failed", err)
		os.Exit(1)
	}
	appLog.Info("single-shot load complete",
		"from", win.Start, "to", win.End, "instances", len(instances))
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.dataDir, "data-dir", "", "Record store root (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh+expansion cycle and exit")
	flag.BoolVar(&cfg.verbose, "verbose", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
