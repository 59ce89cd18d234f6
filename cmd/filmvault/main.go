package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"filmvault/config"
	"filmvault/core"
	"filmvault/core/events"
	"filmvault/explorer"
	"filmvault/native/platform"
	"filmvault/observability"
	"filmvault/observability/logging"
	"filmvault/rpc"
	"filmvault/storage"
)

const rpcTokenEnv = "FILMVAULT_RPC_TOKEN"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("filmvault", cfg.Env)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		panic(fmt.Sprintf("Failed to prepare data directory: %v", err))
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	store := storage.NewStore(db)
	if err := store.SeedGenesisAdmins(cfg.AdminAddresses()); err != nil {
		logger.Error("Failed to seed genesis admins", slog.Any("error", err))
		os.Exit(1)
	}

	var node *core.Node
	indexer, err := explorer.NewIndexer(cfg.IndexPath, func() uint64 {
		if node == nil {
			return 0
		}
		return node.Height()
	}, logger)
	if err != nil {
		logger.Error("Failed to open event index", slog.Any("error", err))
		os.Exit(1)
	}
	defer indexer.Close()

	node, err = core.NewNode(store, events.Fanout{indexer, observability.Events()})
	if err != nil {
		logger.Error("Failed to start node", slog.Any("error", err))
		os.Exit(1)
	}

	bootstrapRegistry(cfg, node, logger)

	token := strings.TrimSpace(os.Getenv(rpcTokenEnv))
	if token == "" {
		logger.Warn("RPC token not configured; mutating methods are disabled", "env", rpcTokenEnv)
	}
	server := rpc.NewServer(node, token, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.RPCAddress)
	}()

	stopTicker := startBlockTicker(node, cfg.BlockIntervalSeconds, logger)
	defer stopTicker()

	logger.Info("node started",
		"network", cfg.NetworkName,
		"rpc", cfg.RPCAddress,
		"height", node.Height(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("RPC server failed", slog.Any("error", err))
		}
	}

	if err := server.Stop(); err != nil {
		logger.Error("RPC shutdown failed", slog.Any("error", err))
	}
}

// bootstrapRegistry initializes the platform registry from config when all six
// module addresses are present. A registry recorded by an earlier run wins.
func bootstrapRegistry(cfg *config.Config, node *core.Node, logger *slog.Logger) {
	modules, complete := cfg.ModuleAddresses()
	if !complete {
		logger.Info("module registry not configured; waiting for platform_initialize")
		return
	}
	reg := platform.Registry{
		Verification:    modules["verification"],
		Crowdfunding:    modules["crowdfunding"],
		Rewards:         modules["rewards"],
		Escrow:          modules["escrow"],
		CoEp:            modules["coEp"],
		VerificationExt: modules["verificationExt"],
	}
	if _, err := node.InitializePlatform(reg); err != nil {
		if errors.Is(err, platform.ErrAlreadyInitialized) {
			logger.Info("module registry already initialized")
			return
		}
		logger.Error("Failed to initialize module registry", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("module registry initialized from config")
}

// startBlockTicker advances the chain height on the configured interval and
// keeps the chain gauges current. The returned func stops the ticker.
func startBlockTicker(node *core.Node, intervalSeconds uint64, logger *slog.Logger) func() {
	if intervalSeconds == 0 {
		intervalSeconds = 10
	}
	interval := time.Duration(intervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		last := time.Now()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				height, err := node.AdvanceHeight()
				if err != nil {
					logger.Error("Failed to advance height", slog.Any("error", err))
					continue
				}
				now := time.Now()
				observability.Chain().RecordHeight(height)
				observability.Chain().RecordBlockInterval(now.Sub(last))
				last = now
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
