// Command buddyd runs the buddyai agent: an HTTP server exposing local
// OS commands to controllers.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MockingJay1710/buddyai/internal/bus"
	"github.com/MockingJay1710/buddyai/internal/command"
	"github.com/MockingJay1710/buddyai/internal/config"
	"github.com/MockingJay1710/buddyai/internal/modules"
	otelPkg "github.com/MockingJay1710/buddyai/internal/otel"
	"github.com/MockingJay1710/buddyai/internal/reminder"
	"github.com/MockingJay1710/buddyai/internal/server"
	"github.com/MockingJay1710/buddyai/internal/store"
	"github.com/MockingJay1710/buddyai/internal/telemetry"
)

func main() {
	loadDotEnv(".env")
	loadDotEnv(filepath.Join(config.HomeDir(), ".env"))

	quiet := flag.Bool("quiet", false, "log to file only, keep stdout clean")
	bindAddr := flag.String("bind", "", "listen address override, e.g. 127.0.0.1:8765")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fatalStartup(nil, "config load", err)
	}
	if cfg.NeedsGenesis {
		if err := config.WriteDefault(cfg.HomeDir); err != nil {
			fatalStartup(nil, "config write", err)
		}
		cfg, err = config.Load()
		if err != nil {
			fatalStartup(nil, "config reload", err)
		}
	}
	if *bindAddr != "" {
		cfg.BindAddr = *bindAddr
	}

	logger, logLevel, closer, err := telemetry.NewLogger(cfg.HomeDir, "agent", cfg.LogLevel, *quiet)
	if err != nil {
		fatalStartup(nil, "logger init", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)
	logger.Info("startup phase", "phase", "config_loaded", "home", cfg.HomeDir)

	otelProvider, err := otelPkg.Init(ctx, otelPkg.Config{
		Enabled:  cfg.Otel.Enabled,
		Exporter: cfg.Otel.Exporter,
		Endpoint: cfg.Otel.Endpoint,
	})
	if err != nil {
		fatalStartup(logger, "otel init", err)
	}
	defer otelProvider.Shutdown(context.Background())

	metrics, err := otelPkg.NewMetrics(otelProvider.Meter)
	if err != nil {
		fatalStartup(logger, "metrics init", err)
	}

	eventBus := bus.New()

	dbPath := filepath.Join(cfg.HomeDir, "buddyai.db")
	st, err := store.Open(ctx, dbPath)
	if err != nil {
		fatalStartup(logger, "store open", err)
	}
	defer st.Close()
	logger.Info("startup phase", "phase", "schema_migrated", "db", dbPath)

	registry := command.NewRegistry(logger)
	mods := modules.Enabled(modules.All(modules.Deps{
		Store:      st,
		AppAliases: cfg.AppAliases,
		Logger:     logger,
	}), cfg.Modules)
	var appsModule *modules.Apps
	for _, mod := range mods {
		if a, ok := mod.(*modules.Apps); ok {
			appsModule = a
		}
		for _, spec := range mod.Commands() {
			registry.Register(spec)
		}
		logger.Info("module loaded", "module", mod.Name(), "commands", len(mod.Commands()))
	}
	logger.Info("startup phase", "phase", "registry_built", "commands", registry.Len())

	sched := reminder.NewScheduler(reminder.Config{
		Store:    st,
		Bus:      eventBus,
		Logger:   logger,
		Interval: time.Duration(cfg.ReminderTickSeconds) * time.Second,
	})
	sched.Start(ctx)
	defer sched.Stop()

	// Count fired reminders on the bus so metrics stay in one place.
	go func() {
		sub := eventBus.Subscribe(bus.TopicReminderFired)
		defer eventBus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.Ch():
				if !ok {
					return
				}
				metrics.RemindersFired.Add(ctx, 1)
			}
		}
	}()

	srv := server.New(server.Config{
		Registry:          registry,
		Store:             st,
		Bus:               eventBus,
		Logger:            logger,
		Tracer:            otelProvider.Tracer,
		Metrics:           metrics,
		ConfigFingerprint: cfg.Fingerprint(),
	})

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: srv.Handler(),
	}
	serverErr := make(chan error, 1)
	ln, err := net.Listen("tcp", cfg.BindAddr)
	if err != nil {
		fatalStartup(logger, "listener bind", err)
	}
	go func() {
		logger.Info("agent listening", "addr", cfg.BindAddr)
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Watch config.yaml and apply log-level and app-alias changes
	// without a restart.
	watcher := config.NewWatcher(cfg.HomeDir, logger)
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("config watcher unavailable", "error", err)
	} else {
		go func() {
			lastFingerprint := cfg.Fingerprint()
			for range watcher.Events() {
				reloaded, err := config.Load()
				if err != nil {
					logger.Warn("config reload failed", "error", err)
					continue
				}
				if reloaded.Fingerprint() == lastFingerprint {
					continue
				}
				lastFingerprint = reloaded.Fingerprint()
				logLevel.Set(telemetry.ParseLevel(reloaded.LogLevel))
				if appsModule != nil {
					appsModule.SetAliases(reloaded.AppAliases)
				}
				eventBus.Publish(bus.TopicConfigReloaded, map[string]string{
					"fingerprint": lastFingerprint,
				})
				logger.Info("config reloaded", "log_level", reloaded.LogLevel)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("http server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info("shutdown complete")
}

func fatalStartup(logger *slog.Logger, phase string, err error) {
	if logger != nil {
		logger.Error("startup failure", "phase", phase, "error", err)
	} else {
		fmt.Fprintf(os.Stderr, "buddyd: %s: %v\n", phase, err)
	}
	os.Exit(1)
}

// loadDotEnv applies KEY=VALUE lines from path without overriding
// variables already present in the environment.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if key == "" || os.Getenv(key) != "" {
			continue
		}
		_ = os.Setenv(key, val)
	}
}
