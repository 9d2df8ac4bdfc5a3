package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"
)

// ExecutionMode selects the settlement pathway used by the two-leg executor.
type ExecutionMode string

const (
	ExecutionModeCLOB  ExecutionMode = "clob"
	ExecutionModeVault ExecutionMode = "vault"
)

// Config holds all application configuration, loaded once at startup and
// passed as an explicit value to every component constructor. There is no
// process-wide config singleton.
type Config struct {
	// Chain / signer
	RPCURL     string
	PrivateKey string
	ChainID    int64

	// Execution pathway
	ExecutionMode    ExecutionMode
	VaultAddress     string
	AdapterAAddress  string
	AdapterBAddress  string
	USDTAddress      string
	VaultMarketID    string

	// Scanner thresholds
	MinSpreadBps    int
	MaxSpreadBps    int
	MaxPositionSize *big.Int // USDT 6-dp

	// Timing
	ScanInterval       time.Duration
	OrderExpiration    time.Duration
	FillPollInterval   time.Duration
	FillPollTimeout    time.Duration
	DiscoveryInterval  time.Duration

	// Risk
	DailyLossLimit *big.Int // USDT 6-dp

	// Matching
	MatchingSimilarityThreshold float64
	MatchingConfidenceThreshold float64

	// Static token maps (used when AutoDiscover is false)
	OpinionTokenMap   map[string]string
	PredictMarketMap  map[string]string
	ProbableMarketMap map[string]string

	// Flags
	DryRun             bool
	AutoDiscover       bool
	YieldRotationEnabled bool

	// Venue credentials / endpoints
	APIKey string

	PredictBaseURL  string
	ProbableBaseURL string
	OpinionBaseURL  string

	ProbablePassphrase string

	// HTTP surface
	Port string

	// Logging
	LogLevel string
}

// developmentChainIDs are chain ids that never require an APIKey (local
// or CI chains, matching the teacher's historical Polygon-mainnet-only
// credential requirement generalized to three venues).
var developmentChainIDs = map[int64]bool{
	31337: true, // Hardhat/Anvil
	1337:  true,
	80001: true, // Mumbai testnet
}

// LoadFromEnv loads configuration from environment variables with defaults,
// then validates it. Callers are expected to call godotenv.Load() before
// this, if a .env file should seed the process environment.
func LoadFromEnv() (*Config, error) {
	maxPositionSize, err := parseBigIntOrDefault("MAX_POSITION_SIZE", big.NewInt(500_000_000))
	if err != nil {
		return nil, fmt.Errorf("MAX_POSITION_SIZE: %w", err)
	}
	dailyLossLimit, err := parseBigIntOrDefault("DAILY_LOSS_LIMIT", big.NewInt(50_000_000))
	if err != nil {
		return nil, fmt.Errorf("DAILY_LOSS_LIMIT: %w", err)
	}

	opinionTokenMap, err := parseStringMapOrDefault("OPINION_TOKEN_MAP")
	if err != nil {
		return nil, fmt.Errorf("OPINION_TOKEN_MAP: %w", err)
	}
	predictMarketMap, err := parseStringMapOrDefault("PREDICT_MARKET_MAP")
	if err != nil {
		return nil, fmt.Errorf("PREDICT_MARKET_MAP: %w", err)
	}
	probableMarketMap, err := parseStringMapOrDefault("PROBABLE_MARKET_MAP")
	if err != nil {
		return nil, fmt.Errorf("PROBABLE_MARKET_MAP: %w", err)
	}

	cfg := &Config{
		RPCURL:     os.Getenv("RPC_URL"),
		PrivateKey: os.Getenv("PRIVATE_KEY"),
		ChainID:    int64(getIntOrDefault("CHAIN_ID", 31337)),

		ExecutionMode:   ExecutionMode(getEnvOrDefault("EXECUTION_MODE", string(ExecutionModeCLOB))),
		VaultAddress:    os.Getenv("VAULT_ADDRESS"),
		AdapterAAddress: os.Getenv("ADAPTER_A_ADDRESS"),
		AdapterBAddress: os.Getenv("ADAPTER_B_ADDRESS"),
		USDTAddress:     os.Getenv("USDT_ADDRESS"),
		VaultMarketID:   os.Getenv("VAULT_MARKET_ID"),

		MinSpreadBps:    getIntOrDefault("MIN_SPREAD_BPS", 100),
		MaxSpreadBps:    getIntOrDefault("MAX_SPREAD_BPS", 5000),
		MaxPositionSize: maxPositionSize,

		ScanInterval:      getDurationMsOrDefault("SCAN_INTERVAL_MS", 5000*time.Millisecond),
		OrderExpiration:   getDurationSecOrDefault("ORDER_EXPIRATION_SEC", 300*time.Second),
		FillPollInterval:  getDurationMsOrDefault("FILL_POLL_INTERVAL_MS", 5000*time.Millisecond),
		FillPollTimeout:   getDurationMsOrDefault("FILL_POLL_TIMEOUT_MS", 60000*time.Millisecond),
		DiscoveryInterval: getDurationMsOrDefault("DISCOVERY_INTERVAL_MS", 60000*time.Millisecond),

		DailyLossLimit: dailyLossLimit,

		MatchingSimilarityThreshold: getFloat64OrDefault("MATCHING_SIMILARITY_THRESHOLD", 0.85),
		MatchingConfidenceThreshold: getFloat64OrDefault("MATCHING_CONFIDENCE_THRESHOLD", 0.90),

		OpinionTokenMap:   opinionTokenMap,
		PredictMarketMap:  predictMarketMap,
		ProbableMarketMap: probableMarketMap,

		DryRun:               getBoolOrDefault("DRY_RUN", true),
		AutoDiscover:         getBoolOrDefault("AUTO_DISCOVER", true),
		YieldRotationEnabled: getBoolOrDefault("YIELD_ROTATION_ENABLED", false),

		APIKey: os.Getenv("API_KEY"),

		PredictBaseURL:  getEnvOrDefault("PREDICT_BASE_URL", "https://api.predict.example"),
		ProbableBaseURL: getEnvOrDefault("PROBABLE_BASE_URL", "https://api.probable.example"),
		OpinionBaseURL:  getEnvOrDefault("OPINION_BASE_URL", "https://api.opinion.example"),

		ProbablePassphrase: os.Getenv("PROBABLE_PASSPHRASE"),

		Port: getEnvOrDefault("PORT", "3001"),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are internally consistent.
// Failures here are a ConfigError: fatal at startup.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return errors.New("RPC_URL is required")
	}
	if c.PrivateKey == "" {
		return errors.New("PRIVATE_KEY is required")
	}

	switch c.ExecutionMode {
	case ExecutionModeCLOB:
	case ExecutionModeVault:
		if c.VaultAddress == "" || c.AdapterAAddress == "" || c.AdapterBAddress == "" ||
			c.USDTAddress == "" || c.VaultMarketID == "" {
			return errors.New("EXECUTION_MODE=vault requires VAULT_ADDRESS, ADAPTER_A_ADDRESS, ADAPTER_B_ADDRESS, USDT_ADDRESS, VAULT_MARKET_ID")
		}
	default:
		return fmt.Errorf("EXECUTION_MODE must be %q or %q, got %q", ExecutionModeCLOB, ExecutionModeVault, c.ExecutionMode)
	}

	if c.MinSpreadBps < 0 {
		return fmt.Errorf("MIN_SPREAD_BPS must be non-negative, got %d", c.MinSpreadBps)
	}
	if c.MaxSpreadBps <= 0 || c.MaxSpreadBps < c.MinSpreadBps {
		return fmt.Errorf("MAX_SPREAD_BPS (%d) must be positive and >= MIN_SPREAD_BPS (%d)", c.MaxSpreadBps, c.MinSpreadBps)
	}
	if c.MaxPositionSize == nil || c.MaxPositionSize.Sign() <= 0 {
		return errors.New("MAX_POSITION_SIZE must be positive")
	}
	if c.DailyLossLimit == nil || c.DailyLossLimit.Sign() <= 0 {
		return errors.New("DAILY_LOSS_LIMIT must be positive")
	}

	if c.ScanInterval <= 0 {
		return errors.New("SCAN_INTERVAL_MS must be positive")
	}
	if c.FillPollInterval <= 0 || c.FillPollTimeout <= 0 || c.FillPollTimeout < c.FillPollInterval {
		return errors.New("FILL_POLL_TIMEOUT_MS must be >= FILL_POLL_INTERVAL_MS, both positive")
	}

	if c.MatchingSimilarityThreshold <= 0 || c.MatchingSimilarityThreshold > 1.0 {
		return fmt.Errorf("MATCHING_SIMILARITY_THRESHOLD must be in (0, 1.0], got %f", c.MatchingSimilarityThreshold)
	}
	if c.MatchingConfidenceThreshold <= 0 || c.MatchingConfidenceThreshold > 1.0 {
		return fmt.Errorf("MATCHING_CONFIDENCE_THRESHOLD must be in (0, 1.0], got %f", c.MatchingConfidenceThreshold)
	}

	if !developmentChainIDs[c.ChainID] && c.APIKey == "" {
		return fmt.Errorf("API_KEY is required when CHAIN_ID=%d is not a recognized development network", c.ChainID)
	}

	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getDurationMsOrDefault(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}

func getDurationSecOrDefault(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultValue
	}
	return time.Duration(sec) * time.Second
}

func parseBigIntOrDefault(key string, defaultValue *big.Int) (*big.Int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// parseStringMapOrDefault parses a JSON object env var (fingerprint -> token
// id / market id) into a map, per spec.md §6's opinionTokenMap /
// predictMarketMap / probableMarketMap config options.
func parseStringMapOrDefault(key string) (map[string]string, error) {
	v := os.Getenv(key)
	if v == "" {
		return map[string]string{}, nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	return out, nil
}
