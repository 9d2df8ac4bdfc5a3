package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"RPC_URL", "PRIVATE_KEY", "CHAIN_ID", "EXECUTION_MODE",
		"VAULT_ADDRESS", "ADAPTER_A_ADDRESS", "ADAPTER_B_ADDRESS", "USDT_ADDRESS", "VAULT_MARKET_ID",
		"MIN_SPREAD_BPS", "MAX_SPREAD_BPS", "MAX_POSITION_SIZE",
		"SCAN_INTERVAL_MS", "ORDER_EXPIRATION_SEC", "FILL_POLL_INTERVAL_MS", "FILL_POLL_TIMEOUT_MS",
		"DAILY_LOSS_LIMIT", "MATCHING_SIMILARITY_THRESHOLD", "MATCHING_CONFIDENCE_THRESHOLD",
		"OPINION_TOKEN_MAP", "PREDICT_MARKET_MAP", "PROBABLE_MARKET_MAP",
		"DRY_RUN", "AUTO_DISCOVER", "YIELD_ROTATION_ENABLED", "API_KEY", "PORT", "LOG_LEVEL",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
}

func withRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("RPC_URL", "http://localhost:8545")
	os.Setenv("PRIVATE_KEY", "0xabc123")
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	withRequiredEnv(t)
	t.Cleanup(func() { clearEnv(t) })

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.ChainID != 31337 {
		t.Errorf("expected default ChainID 31337, got %d", cfg.ChainID)
	}
	if cfg.ExecutionMode != ExecutionModeCLOB {
		t.Errorf("expected default ExecutionMode clob, got %s", cfg.ExecutionMode)
	}
	if cfg.MinSpreadBps != 100 {
		t.Errorf("expected default MinSpreadBps 100, got %d", cfg.MinSpreadBps)
	}
	if cfg.MaxPositionSize.Int64() != 500_000_000 {
		t.Errorf("expected default MaxPositionSize 500000000, got %s", cfg.MaxPositionSize.String())
	}
	if cfg.ScanInterval != 5000*time.Millisecond {
		t.Errorf("expected default ScanInterval 5s, got %s", cfg.ScanInterval)
	}
	if !cfg.DryRun {
		t.Errorf("expected DryRun to default true")
	}
	if !cfg.AutoDiscover {
		t.Errorf("expected AutoDiscover to default true")
	}
}

func TestLoadFromEnv_MissingRequired(t *testing.T) {
	clearEnv(t)
	t.Cleanup(func() { clearEnv(t) })

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for missing RPC_URL/PRIVATE_KEY")
	}

	os.Setenv("RPC_URL", "http://localhost:8545")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for missing PRIVATE_KEY")
	}
}

func TestLoadFromEnv_VaultModeRequiresAddresses(t *testing.T) {
	clearEnv(t)
	withRequiredEnv(t)
	os.Setenv("EXECUTION_MODE", "vault")
	t.Cleanup(func() { clearEnv(t) })

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error when vault mode is missing vault/adapter/usdt/market addresses")
	}

	os.Setenv("VAULT_ADDRESS", "0x1")
	os.Setenv("ADAPTER_A_ADDRESS", "0x2")
	os.Setenv("ADAPTER_B_ADDRESS", "0x3")
	os.Setenv("USDT_ADDRESS", "0x4")
	os.Setenv("VAULT_MARKET_ID", "0x5")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error with full vault config, got %v", err)
	}
	if cfg.ExecutionMode != ExecutionModeVault {
		t.Errorf("expected vault execution mode")
	}
}

func TestLoadFromEnv_SpreadBoundsValidated(t *testing.T) {
	clearEnv(t)
	withRequiredEnv(t)
	os.Setenv("MIN_SPREAD_BPS", "500")
	os.Setenv("MAX_SPREAD_BPS", "100")
	t.Cleanup(func() { clearEnv(t) })

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error when MaxSpreadBps < MinSpreadBps")
	}
}

func TestLoadFromEnv_APIKeyRequiredForNonDevChain(t *testing.T) {
	clearEnv(t)
	withRequiredEnv(t)
	os.Setenv("CHAIN_ID", "137")
	t.Cleanup(func() { clearEnv(t) })

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error requiring API_KEY for a non-development chain id")
	}

	os.Setenv("API_KEY", "key-123")
	if _, err := LoadFromEnv(); err != nil {
		t.Fatalf("expected no error once API_KEY is set, got %v", err)
	}
}

func TestLoadFromEnv_TokenMapsParsed(t *testing.T) {
	clearEnv(t)
	withRequiredEnv(t)
	os.Setenv("AUTO_DISCOVER", "false")
	os.Setenv("PREDICT_MARKET_MAP", `{"0xabc":"tok-1"}`)
	t.Cleanup(func() { clearEnv(t) })

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.AutoDiscover {
		t.Errorf("expected AutoDiscover false")
	}
	if cfg.PredictMarketMap["0xabc"] != "tok-1" {
		t.Errorf("expected PredictMarketMap to parse the supplied JSON object")
	}
}

func TestLoadFromEnv_InvalidTokenMapJSON(t *testing.T) {
	clearEnv(t)
	withRequiredEnv(t)
	os.Setenv("PREDICT_MARKET_MAP", `not-json`)
	t.Cleanup(func() { clearEnv(t) })

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for malformed PREDICT_MARKET_MAP JSON")
	}
}

func TestLoadFromEnv_FillPollTimeoutMustExceedInterval(t *testing.T) {
	clearEnv(t)
	withRequiredEnv(t)
	os.Setenv("FILL_POLL_INTERVAL_MS", "60000")
	os.Setenv("FILL_POLL_TIMEOUT_MS", "5000")
	t.Cleanup(func() { clearEnv(t) })

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error when FillPollTimeout < FillPollInterval")
	}
}
