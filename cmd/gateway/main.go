package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relaywell/cligateway/internal/auth"
	"github.com/relaywell/cligateway/internal/config"
	"github.com/relaywell/cligateway/internal/dispatcher"
	"github.com/relaywell/cligateway/internal/health"
	"github.com/relaywell/cligateway/internal/jobs"
	"github.com/relaywell/cligateway/internal/ratelimit"
	"github.com/relaywell/cligateway/internal/registry"
	"github.com/relaywell/cligateway/internal/server"
	"github.com/relaywell/cligateway/internal/store/sqlite"
	"github.com/relaywell/cligateway/internal/telemetry"
	"github.com/relaywell/cligateway/internal/template"
)

const configPath = "gateway.yaml"

// staleBucketSweepInterval controls how often the rate limiter reclaims
// buckets for API keys that have gone quiet, bounding memory for gateways
// that see high key churn over a long process lifetime.
const staleBucketSweepInterval = 5 * time.Minute

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	engine := template.New()
	jobManager := jobs.NewManager(cfg.JobManager.MaxLogLines, cfg.JobManager.ExecutableAllowlist)

	reg, tracker, disp, err := buildLive(cfg, engine, jobManager)
	if err != nil {
		log.Fatalf("build registry: %v", err)
	}

	resourceAttrs := telemetry.GatewayResourceAttributes(len(cfg.Providers), len(reg.ListModels()), cfg.RateLimit.RequestsPerSecond > 0)
	shutdownTracing, err := telemetry.InitTracer("cligateway", logger, resourceAttrs...)
	if err != nil {
		log.Fatalf("init tracer: %v", err)
	}
	defer shutdownTracing(nil)

	var interactions *sqlite.Store
	if dbPath := os.Getenv("CLIGATEWAY_AUDIT_LOG_PATH"); dbPath != "" {
		interactions, err = sqlite.Open(dbPath, logger)
		if err != nil {
			log.Fatalf("open interaction log: %v", err)
		}
		defer interactions.Close()
	}

	h := server.NewHandler(reg, disp, tracker, jobManager, interactions, logger)

	watcher, err := config.NewWatcher(configPath, logger)
	if err != nil {
		logger.Warn("config hot-reload disabled", slog.String("error", err.Error()))
	} else {
		stop := make(chan struct{})
		defer close(stop)
		defer watcher.Close()
		go watcher.Watch(stop, func(newCfg *config.RuntimeConfig) {
			newReg, newTracker, newDisp, err := buildLive(newCfg, engine, jobManager)
			if err != nil {
				logger.Error("reload produced an invalid registry, keeping last-good", slog.String("error", err.Error()))
				return
			}
			h.SwapLive(newReg, newDisp, newTracker)
		})
	}

	authenticator := auth.NewAuthenticator(cfg.Auth.APIKeyHashes)
	limiter := ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	limiterStop := make(chan struct{})
	defer close(limiterStop)
	go limiter.RunCleanup(staleBucketSweepInterval, limiterStop)

	srv := server.New(cfg.Server.Port, logger, h, authenticator, limiter)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("shutdown signal received")
		os.Exit(0)
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// buildLive constructs the registry/tracker/dispatcher trio a single
// RuntimeConfig produces, so a config reload always swaps all three
// together rather than leaving the health tracker pointed at a stale
// model set.
func buildLive(cfg *config.RuntimeConfig, engine *template.Engine, jobManager *jobs.Manager) (*registry.Registry, *health.Tracker, *dispatcher.Dispatcher, error) {
	reg, err := registry.Build(cfg.Providers, engine, jobManager)
	if err != nil {
		return nil, nil, nil, err
	}

	modelIDs := make([]string, 0, len(cfg.Providers))
	for _, m := range reg.ListModels() {
		modelIDs = append(modelIDs, m.ModelID)
	}
	tracker := health.NewTracker(modelIDs)
	disp := dispatcher.New(reg, tracker)
	return reg, tracker, disp, nil
}
