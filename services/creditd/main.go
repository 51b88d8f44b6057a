package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	protocolconfig "github.com/Wenbobobo/Solease/config"
	"github.com/Wenbobobo/Solease/core"
	"github.com/Wenbobobo/Solease/core/events"
	"github.com/Wenbobobo/Solease/core/state"
	"github.com/Wenbobobo/Solease/gateway/middleware"
	nativecommon "github.com/Wenbobobo/Solease/native/common"
	"github.com/Wenbobobo/Solease/observability"
	"github.com/Wenbobobo/Solease/observability/logging"
	"github.com/Wenbobobo/Solease/observability/metrics"
	telemetry "github.com/Wenbobobo/Solease/observability/otel"
	"github.com/Wenbobobo/Solease/services/creditd/config"
	"github.com/Wenbobobo/Solease/services/creditd/server"
	"github.com/Wenbobobo/Solease/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/creditd/config.yaml", "path to creditd config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	env := strings.TrimSpace(os.Getenv("SOLEASE_ENV"))
	logger := logging.SetupWithOptions(logging.Options{
		Service:    "creditd",
		Env:        env,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if cfg.Auth.Disabled && !strings.EqualFold(env, "dev") {
		log.Fatalf("auth.disabled is restricted to the dev environment")
	}

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.ConfigFromEnv("creditd", env))
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	protocol, err := protocolconfig.Load(cfg.Protocol)
	if err != nil {
		log.Fatalf("load protocol config: %v", err)
	}
	program, err := protocol.Program()
	if err != nil {
		log.Fatalf("program id: %v", err)
	}

	db, err := storage.NewLevelDB(filepath.Join(protocol.DataDir, "state"))
	if err != nil {
		log.Fatalf("open state db: %v", err)
	}
	defer db.Close()

	pauses := nativecommon.NewPauseSet(protocol.Credit.PausedModules...)
	feed := events.NewLog(cfg.Events.Retain)
	exec := core.NewExecutor(state.NewManager(db), program)
	exec.SetPauses(pauses)
	exec.SetPoolTerms(protocol.Credit.PoolTerms)
	exec.SetLogger(logger.With(slog.String("component", "executor")))
	exec.SetMetrics(metrics.Credit())
	exec.SetEmitter(events.Fanout{feed, observability.Events(), eventLogger{logger: logger}})

	limits := map[string]middleware.RateLimit{
		"read":  {RequestsPerMinute: cfg.RateLimit.RequestsPerMinute * 4, Burst: cfg.RateLimit.Burst * 4},
		"write": {RequestsPerMinute: cfg.RateLimit.RequestsPerMinute, Burst: cfg.RateLimit.Burst},
	}
	srv, err := server.New(server.Options{
		Executor:   exec,
		Pauses:     pauses,
		Feed:       feed,
		Decimals:   protocol.Decimals,
		AdminScope: cfg.Auth.AdminScope,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    !cfg.Auth.Disabled,
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  cfg.Auth.ClockSkew,
		}, logger),
		RateLimiter: middleware.NewRateLimiter(limits, logger),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			ServiceName: "creditd",
			LogRequests: cfg.Log.Requests,
			Enabled:     true,
		}, logger),
		CORS:   middleware.CORSConfig{AllowedOrigins: cfg.CORS.AllowedOrigins},
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("creditd listening",
			slog.String("listen", cfg.ListenAddress),
			slog.Bool("tls", cfg.TLS.Enabled()))
		if cfg.TLS.Enabled() {
			serverErr <- httpServer.ListenAndServeTLS(cfg.TLS.CertPath, cfg.TLS.KeyPath)
			return
		}
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("forcing server stop", slog.Any("error", err))
			_ = httpServer.Close()
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve http: %v", err)
		}
	}
}

// eventLogger writes committed protocol events to the structured log.
type eventLogger struct {
	logger *slog.Logger
}

func (l eventLogger) Emit(evt events.Event) {
	record, ok := evt.(*events.Record)
	if !ok || record == nil {
		return
	}
	attrs := make([]any, 0, len(record.Attributes)+1)
	attrs = append(attrs, slog.String("event", record.Type))
	for key, value := range record.Attributes {
		attrs = append(attrs, slog.String(key, value))
	}
	l.logger.Info("credit event", attrs...)
}
