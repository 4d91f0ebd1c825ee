// Package main runs the fittrack MCP tool server over stdio. It may share
// storage with a running HTTP service: each side reloads the stored document
// before reading or writing it and refuses to overwrite a newer one. The
// service also mounts the tools at /mcp when mcp_enabled is set.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/2beens/fittrack/internal"
	"github.com/2beens/fittrack/internal/assistant"
	"github.com/2beens/fittrack/internal/config"
	"github.com/2beens/fittrack/internal/logging"
	"github.com/2beens/fittrack/internal/persistence"
	"github.com/2beens/fittrack/internal/stats"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/workouts"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// stdout belongs to the MCP transport
	if cfg.LogsPath != "" {
		logging.Setup(logging.LoggerSetupParams{
			LogFileName:   cfg.LogsPath,
			LogLevel:      cfg.LogLevel,
			LogFormatJSON: cfg.LogFormatJSON,
			Environment:   cfg.Environment,
		})
	} else {
		log.SetOutput(os.Stderr)
		log.SetLevel(logging.GetLevel(cfg.LogLevel))
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	storage, err := internal.OpenStorage(ctx, internal.OpenStorageParams{
		Config:        cfg,
		RedisPassword: os.Getenv("FITTRACK_REDIS_PASS"),
	})
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Errorf("close storage: %s", err)
		}
	}()

	metricsManager := metrics.NewManager("fittrack", "mcp", metrics.SetupPrometheus(storage.Collectors()...))
	adapter := persistence.NewAdapter(storage.Backend, metricsManager)
	state, err := adapter.Load(ctx)
	if err != nil {
		log.Errorf("load state: %v", err)
		return
	}

	store := workouts.NewStore(state, adapter, metricsManager)
	engine := stats.NewEngine(store, loc)
	server := assistant.NewServer(assistant.NewTrackerService(engine, store))

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Errorf("mcp server: %v", err)
	}
}
