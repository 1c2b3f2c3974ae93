package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/datsfilipe/datschain/pkg/api"
	"github.com/datsfilipe/datschain/pkg/config"
	"github.com/datsfilipe/datschain/pkg/gossip"
	"github.com/datsfilipe/datschain/pkg/logger"
	"github.com/datsfilipe/datschain/pkg/mining"
	"github.com/datsfilipe/datschain/pkg/node"
	"github.com/datsfilipe/datschain/pkg/persistence"
	badgerstore "github.com/datsfilipe/datschain/pkg/persistence/badger"
	memorystore "github.com/datsfilipe/datschain/pkg/persistence/memory"
	redisstore "github.com/datsfilipe/datschain/pkg/persistence/redis"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "datschain",
		Usage: "Proof-of-work ledger node",
		Description: `A peer-to-peer node for a permissionless proof-of-work blockchain with an
authenticated key-value ledger.

The node mines blocks, admits wallet accounts over HTTP, floods ledger
updates to peers over a gossip overlay, and persists committed state.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen-addr",
				Usage:   "Gossip overlay listener address",
				Value:   config.DefaultListenAddr,
				EnvVars: []string{"LISTEN_ADDR"},
			},
			&cli.StringFlag{
				Name:    "api-addr",
				Usage:   "HTTP admission endpoint address",
				Value:   config.DefaultAPIAddr,
				EnvVars: []string{"API_ADDR"},
			},
			&cli.StringFlag{
				Name:    "database-path",
				Usage:   "Ledger KV location for the badger backend",
				Value:   config.DefaultDatabasePath,
				EnvVars: []string{"DATABASE_PATH"},
			},
			&cli.StringFlag{
				Name:    "peers",
				Usage:   "Comma-separated static seed list (host:port)",
				EnvVars: []string{"PEER_ADDRESSES"},
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "Persistence backend: badger, redis or memory",
				Value:   string(config.BackendBadger),
				EnvVars: []string{"PERSISTENCE_BACKEND"},
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis server for the redis backend",
				Value:   "localhost:6379",
				EnvVars: []string{"REDIS_ADDR"},
			},
			&cli.Uint64Flag{
				Name:    "block-interval",
				Usage:   "Block-creation cadence in seconds",
				Value:   uint64(config.DefaultBlockInterval / time.Second),
				EnvVars: []string{"BLOCK_INTERVAL_SECS"},
			},
			&cli.BoolFlag{
				Name:    "record-retargets",
				Usage:   "Commit difficulty retargets under the mining category",
				EnvVars: []string{"RECORD_RETARGETS"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable verbose logging",
				EnvVars: []string{"DEBUG"},
			},
		},
		Action: runNode,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func parseConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{
		ListenAddr:      c.String("listen-addr"),
		APIAddr:         c.String("api-addr"),
		DatabasePath:    c.String("database-path"),
		PeerAddresses:   config.SplitPeerAddresses(c.String("peers")),
		Backend:         config.BackendType(c.String("backend")),
		RedisAddr:       c.String("redis-addr"),
		BlockInterval:   time.Duration(c.Uint64("block-interval")) * time.Second,
		MiningPeriod:    config.DefaultMiningPeriod,
		RecordRetargets: c.Bool("record-retargets"),
		Debug:           c.Bool("debug"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cfg *config.Config, nodeLogger *zap.Logger) (persistence.Store, error) {
	switch cfg.Backend {
	case config.BackendBadger:
		return badgerstore.NewBadgerStore(cfg.DatabasePath, nodeLogger)
	case config.BackendRedis:
		return redisstore.NewRedisStore(&redisstore.RedisConfig{Address: cfg.RedisAddr}, nodeLogger)
	case config.BackendMemory:
		return memorystore.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unsupported persistence backend %q", cfg.Backend)
}

func runNode(c *cli.Context) error {
	cfg, err := parseConfig(c)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	nodeLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = nodeLogger.Sync() }()

	// The store is fatal at boot: a node without its ledger KV is useless.
	store, err := openStore(cfg, nodeLogger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	n := node.New(cfg, store, nodeLogger)
	overlay := gossip.NewOverlay(n.HandlePeerUpdate, nodeLogger)
	n.SetBroadcaster(overlay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- overlay.Listen(ctx, cfg.ListenAddr)
	}()

	overlay.ConnectSeeds(ctx, cfg.PeerAddresses, cfg.ListenAddr)

	server := api.NewServer(n, cfg.APIAddr, nodeLogger)
	apiErr := server.Start()
	defer func() { _ = server.Stop() }()

	miner := mining.NewService(n, cfg.MiningPeriod, cfg.RecordRetargets, nodeLogger)
	go miner.Run(ctx)

	nodeLogger.Sugar().Infow("Node running",
		"listen_addr", cfg.ListenAddr,
		"api_addr", cfg.APIAddr,
		"backend", cfg.Backend,
		"peers", len(cfg.PeerAddresses))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		nodeLogger.Sugar().Infow("Shutting down", "signal", sig.String())
		return nil
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("network listener failed: %w", err)
		}
		return nil
	case err := <-apiErr:
		return fmt.Errorf("http server failed: %w", err)
	}
}
