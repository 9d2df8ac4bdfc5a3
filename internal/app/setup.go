package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/marketarb/agent/internal/arbitrage"
	"github.com/marketarb/agent/internal/circuitbreaker"
	"github.com/marketarb/agent/internal/discovery"
	"github.com/marketarb/agent/internal/execution"
	"github.com/marketarb/agent/internal/execution/venue"
	"github.com/marketarb/agent/internal/matching"
	"github.com/marketarb/agent/internal/quotes"
	"github.com/marketarb/agent/internal/state"
	"github.com/marketarb/agent/internal/storage"
	"github.com/marketarb/agent/pkg/config"
	"github.com/marketarb/agent/pkg/fixedpoint"
	"github.com/marketarb/agent/pkg/healthprobe"
	"github.com/marketarb/agent/pkg/httpserver"
	"github.com/marketarb/agent/pkg/types"
	"github.com/marketarb/agent/pkg/wallet"
)

// defaultCTFExchangeAddress is the well-known Polymarket CTF Exchange
// contract every CLOB-mode order signs against, shared across the
// Predict/Probable/Opinion families (they all build on the same
// go-order-utils EIP-712 domain).
const defaultCTFExchangeAddress = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"

const statePath = "data/state.json"

// New builds a fully wired App from cfg, ready to Run.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}
	dryRun := cfg.DryRun
	if opts.DryRunOverride != nil {
		dryRun = *opts.DryRunOverride
	}

	exchangeAddr := defaultCTFExchangeAddress
	if cfg.ExecutionMode == config.ExecutionModeVault {
		exchangeAddr = cfg.VaultAddress
	}

	clients, err := buildVenueClients(cfg, dryRun, exchangeAddr, logger)
	if err != nil {
		return nil, fmt.Errorf("build venue clients: %w", err)
	}

	engine := matching.NewEngine(time.Now().Year())
	quoteStore := quotes.NewStore()
	providers := buildProviders(cfg, logger)

	var pipeline *discovery.Pipeline
	var resolver execution.MarketResolver
	var staticFP map[types.Venue]map[string]types.DiscoveredMarket

	if cfg.AutoDiscover {
		pipeline = discovery.New(&discovery.Config{
			Predict:  discovery.NewPredictCatalogClient(cfg.PredictBaseURL, logger),
			Probable: discovery.NewProbableCatalogClient(cfg.ProbableBaseURL, int(cfg.ChainID), logger),
			Opinion:  discovery.NewOpinionCatalogClient(cfg.OpinionBaseURL, logger),
			Engine:   engine,
			Logger:   logger,
		})
		resolver = &pipelineResolver{pipeline: pipeline}
	} else {
		staticFP = map[types.Venue]map[string]types.DiscoveredMarket{
			types.VenuePredict:  staticMarkets(cfg.PredictMarketMap, types.VenuePredict),
			types.VenueProbable: staticMarkets(cfg.ProbableMarketMap, types.VenueProbable),
			types.VenueOpinion:  staticMarkets(cfg.OpinionTokenMap, types.VenueOpinion),
		}
		resolver = &staticResolver{markets: staticFP}
	}

	breaker := circuitbreaker.NewDailyLoss(circuitbreaker.DailyLossConfig{
		DailyLossLimit: fixedpoint.NewUSDTFromRaw6(cfg.DailyLossLimit),
		Logger:         logger,
	})

	scanner := arbitrage.New(quoteStore, arbitrage.Config{
		MinSpreadBps:    cfg.MinSpreadBps,
		MaxSpreadBps:    cfg.MaxSpreadBps,
		MaxPositionSize: fixedpoint.NewUSDTFromRaw6(cfg.MaxPositionSize),
		Logger:          logger,
	})

	executor := execution.New(&execution.Config{
		Clients:          clients,
		Resolver:         resolver,
		Breaker:          breaker,
		FillPollInterval: cfg.FillPollInterval,
		FillPollTimeout:  cfg.FillPollTimeout,
		Logger:           logger,
	})

	stateStore, err := state.Open(statePath)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	store, err := buildStorage(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build storage: %w", err)
	}

	health := healthprobe.New()
	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.Port,
		Logger:        logger,
		HealthChecker: health,
		QuoteStore:    quoteStore,
	})

	walletTracker, err := buildWalletTracker(cfg, logger)
	if err != nil {
		logger.Warn("wallet-tracker-unavailable", zap.Error(err))
	}

	return &App{
		cfg:           cfg,
		logger:        logger,
		dryRun:        dryRun,
		pipeline:      pipeline,
		providers:     providers,
		quoteStore:    quoteStore,
		scanner:       scanner,
		resolver:      resolver,
		staticFP:      staticFP,
		executor:      executor,
		breaker:       breaker,
		stateStore:    stateStore,
		storage:       store,
		health:        health,
		httpServer:    httpServer,
		walletTracker: walletTracker,
	}, nil
}

func buildProviders(cfg *config.Config, logger *zap.Logger) map[types.Venue]quotes.Provider {
	return map[types.Venue]quotes.Provider{
		types.VenuePredict:  quotes.NewPredictProvider(cfg.PredictBaseURL, logger, true),
		types.VenueProbable: quotes.NewProbableProvider(cfg.ProbableBaseURL, int(cfg.ChainID), logger),
		types.VenueOpinion:  quotes.NewOpinionProvider(cfg.OpinionBaseURL, logger),
	}
}

func buildVenueClients(cfg *config.Config, dryRun bool, exchangeAddr string, logger *zap.Logger) (map[types.Venue]venue.Client, error) {
	sigType := model.EOA

	predictClient, err := venue.NewPredictClient(venue.PredictConfig{
		BaseURL:         cfg.PredictBaseURL,
		APIKey:          cfg.APIKey,
		PrivateKeyHex:   cfg.PrivateKey,
		ChainID:         cfg.ChainID,
		SignatureType:   int(sigType),
		DryRun:          dryRun,
		ExchangeAddress: exchangeAddr,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("predict client: %w", err)
	}

	probableClient, err := venue.NewProbableClient(venue.ProbableConfig{
		BaseURL:         cfg.ProbableBaseURL,
		ChainID:         cfg.ChainID,
		PrivateKeyHex:   cfg.PrivateKey,
		SignatureType:   int(sigType),
		DryRun:          dryRun,
		ExchangeAddress: exchangeAddr,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("probable client: %w", err)
	}

	opinionClient, err := venue.NewOpinionClient(venue.OpinionConfig{
		BaseURL:         cfg.OpinionBaseURL,
		APIKey:          cfg.APIKey,
		PrivateKeyHex:   cfg.PrivateKey,
		ChainID:         cfg.ChainID,
		SignatureType:   int(sigType),
		DryRun:          dryRun,
		ExchangeAddress: exchangeAddr,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opinion client: %w", err)
	}

	return map[types.Venue]venue.Client{
		types.VenuePredict:  predictClient,
		types.VenueProbable: probableClient,
		types.VenueOpinion:  opinionClient,
	}, nil
}

// buildStorage picks PostgreSQL when DB_HOST is set, console pretty-print
// otherwise — the ledger surface is a deployment concern, not part of the
// agent's own recognized config (spec.md §6), so it reads its own env vars.
func buildStorage(_ *config.Config, logger *zap.Logger) (storage.Storage, error) {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return storage.NewConsoleStorage(logger), nil
	}

	return storage.NewPostgresStorage(&storage.PostgresConfig{
		Host:     host,
		Port:     getEnvOrDefault("DB_PORT", "5432"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Database: os.Getenv("DB_NAME"),
		SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		Logger:   logger,
	})
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func buildWalletTracker(cfg *config.Config, logger *zap.Logger) (*wallet.Tracker, error) {
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	address := crypto.PubkeyToAddress(pk.PublicKey)

	return wallet.New(&wallet.Config{
		RPCEndpoint:  cfg.RPCURL,
		Address:      address,
		PollInterval: 60 * time.Second,
		Logger:       logger,
	})
}
