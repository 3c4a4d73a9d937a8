package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dataprepper-go/pipeline/internal/api"
	"github.com/dataprepper-go/pipeline/internal/config"
	"github.com/dataprepper-go/pipeline/internal/database"
	"github.com/dataprepper-go/pipeline/internal/logger"
	"github.com/dataprepper-go/pipeline/internal/manager"
	"github.com/dataprepper-go/pipeline/internal/pipelineconfig"
	"github.com/dataprepper-go/pipeline/internal/plugin"
	"github.com/dataprepper-go/pipeline/internal/scheduler"

	_ "github.com/dataprepper-go/pipeline/plugins"
)

var (
	version        = "0.1.0"
	pipelineConfig string
	serverConfig   string
	dbType         string
	dbDSN          string
	showVersion    bool
)

func init() {
	flag.StringVar(&pipelineConfig, "pipeline-config", "configs/pipelines.yaml", "Path to pipeline configuration file")
	flag.StringVar(&serverConfig, "server-config", "configs/server.yaml", "Path to server configuration file")
	flag.StringVar(&dbType, "db-type", "sqlite", "Audit store type: sqlite or mysql")
	flag.StringVar(&dbDSN, "db-dsn", "./pipeline.db", "Audit store DSN (SQLite file path or MySQL DSN)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Printf("pipeline version %s\n", version)
		os.Exit(0)
	}

	logger.Info("pipeline runtime starting", "version", version)

	srvCfg, err := config.LoadServerConfig(serverConfig)
	if err != nil {
		logger.Fatal("failed to load server configuration", "error", err)
	}

	pipelineFile, err := config.LoadPipelineFile(pipelineConfig)
	if err != nil {
		logger.Fatal("failed to load pipeline configuration", "error", err)
	}

	store, err := openMetadataStore()
	if err != nil {
		logger.Fatal("failed to open audit store", "error", err)
	}
	defer store.Close()

	registry := plugin.GetRegistry()
	builder := pipelineconfig.NewBuilder(registry)
	pipelines, err := builder.Build(pipelineFile)
	if err != nil {
		logger.Fatal("failed to build pipelines", "error", err)
	}

	mgr := manager.New(pipelines)
	mgr.SetStore(store)

	if err := recordPluginCatalog(store, pipelineFile); err != nil {
		logger.Warn("failed to record plugin catalog", "error", err)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()
	if err := mgr.Start(startCtx); err != nil {
		logger.Fatal("failed to start pipelines", "error", err)
	}
	logger.Info("all pipelines started", "count", len(pipelines))

	refresher := scheduler.NewStatsRefresher(mgr, scheduler.DefaultInterval)
	if err := refresher.Start(); err != nil {
		logger.Fatal("failed to start stats refresher", "error", err)
	}

	server := api.NewServer(srvCfg, mgr, refresher)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("control API server failed", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("control API shutdown failed", "error", err)
	}
	if err := refresher.Stop(); err != nil {
		logger.Error("stats refresher stop failed", "error", err)
	}
	mgr.Shutdown(shutdownCtx)

	logger.Info("pipeline runtime stopped")
	os.Exit(exitCode)
}

func openMetadataStore() (database.MetadataStore, error) {
	switch dbType {
	case "sqlite":
		return database.NewSQLiteStore(dbDSN)
	case "mysql":
		return database.NewMySQLStore(dbDSN)
	default:
		return nil, fmt.Errorf("unsupported audit store type: %s", dbType)
	}
}

func recordPluginCatalog(store database.MetadataStore, file pipelineconfig.File) error {
	var entries []database.PluginCatalogEntry
	for name, block := range file {
		entries = append(entries, database.PluginCatalogEntry{Name: block.Source.Name, Capability: "source", PipelineName: name})
		for _, sink := range block.Sink {
			entries = append(entries, database.PluginCatalogEntry{Name: sink.Name, Capability: "sink", PipelineName: name})
		}
		for _, proc := range block.Processor {
			entries = append(entries, database.PluginCatalogEntry{Name: proc.Name, Capability: "processor", PipelineName: name})
		}
		if block.Buffer != nil {
			entries = append(entries, database.PluginCatalogEntry{Name: block.Buffer.Name, Capability: "buffer", PipelineName: name})
		}
	}
	return store.SavePluginCatalog(entries)
}
