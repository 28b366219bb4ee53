// Package config aggregates service configuration from an optional JSON
// cluster file and environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ClusterFile models the subset of values read from the cluster JSON file.
type ClusterFile struct {
	RPCURL                string `json:"rpcUrl"`
	Commitment            string `json:"commitment"`
	BalancePollSecs       int    `json:"balancePollSeconds"`
	ConfirmPollMillis     int    `json:"confirmPollMillis"`
	IdempotencyWindowSecs int    `json:"idempotencyWindowSeconds"`
}

// AppConfig ties together cluster, service and wallet settings.
type AppConfig struct {
	Cluster ClusterConfig
	Service ServiceConfig
	Wallet  WalletConfig
}

type ClusterConfig struct {
	RPCURL              string
	Commitment          string
	BalancePollInterval time.Duration
	ConfirmPollInterval time.Duration
}

type ServiceConfig struct {
	HTTPPort             int
	HMACSecret           string
	HMACClockSkew        time.Duration
	IdempotencyWindow    time.Duration
	IdempotencyStorePath string
	PostgresDSN          string
}

type WalletConfig struct {
	// PrivateKey is a base58-encoded keypair. Env only, never file-borne.
	PrivateKey string
}

const defaultRPCURL = "https://api.devnet.solana.com"

// Load aggregates configuration. The cluster file is optional; environment
// variables win over file values.
func Load() (*AppConfig, error) {
	var file ClusterFile
	if path := os.Getenv("CLUSTER_CONFIG_PATH"); path != "" {
		loaded, err := loadClusterFile(path)
		if err != nil {
			return nil, fmt.Errorf("load cluster config: %w", err)
		}
		file = *loaded
	}

	cluster := ClusterConfig{
		RPCURL:              envOr("RPC_URL", orStr(file.RPCURL, defaultRPCURL)),
		Commitment:          envOr("COMMITMENT", orStr(file.Commitment, "finalized")),
		BalancePollInterval: time.Duration(envOrInt("BALANCE_POLL_SECONDS", orInt(file.BalancePollSecs, 30))) * time.Second,
		ConfirmPollInterval: time.Duration(envOrInt("CONFIRM_POLL_MILLIS", orInt(file.ConfirmPollMillis, 500))) * time.Millisecond,
	}

	service := ServiceConfig{
		HTTPPort:             envOrInt("API_HTTP_PORT", 3000),
		HMACSecret:           envOr("HMAC_SECRET", ""),
		HMACClockSkew:        time.Duration(envOrInt("HMAC_CLOCK_SKEW_SECONDS", 60)) * time.Second,
		IdempotencyWindow:    time.Duration(envOrInt("IDEMPOTENCY_WINDOW_SECONDS", orInt(file.IdempotencyWindowSecs, 300))) * time.Second,
		IdempotencyStorePath: envOr("IDEMPOTENCY_STORE_PATH", filepath.Join(os.TempDir(), "solrails-idem.json")),
		PostgresDSN:          envOr("POSTGRES_DSN", ""),
	}

	wallet := WalletConfig{
		PrivateKey: envOr("WALLET_PRIVATE_KEY", ""),
	}

	return &AppConfig{
		Cluster: cluster,
		Service: service,
		Wallet:  wallet,
	}, nil
}

func loadClusterFile(path string) (*ClusterFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ClusterFile
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envOr(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return fallback
}

func orStr(val, fallback string) string {
	if val != "" {
		return val
	}
	return fallback
}

func orInt(val, fallback int) int {
	if val > 0 {
		return val
	}
	return fallback
}
