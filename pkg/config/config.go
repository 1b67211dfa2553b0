// Package config loads client settings from YAML files, the environment and
// an optional .env file.
//
// Precedence is defaults, then the YAML file, then POLYMARKET_* variables.
// Secrets are only ever read here; signers receive explicit credentials.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/Sternrassler/polymarket-client/pkg/cache"
	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/logging"
	"github.com/Sternrassler/polymarket-client/pkg/pagination"
	"github.com/Sternrassler/polymarket-client/pkg/signing"
	"github.com/Sternrassler/polymarket-client/pkg/stream"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent identifies the client when none is configured.
const DefaultUserAgent = "polymarket-client/1.0"

// DefaultStreamURL is the CLOB WebSocket endpoint.
const DefaultStreamURL = stream.DefaultURL

// Config is the full client configuration.
type Config struct {
	GammaURL  string `yaml:"gamma_url"`
	DataURL   string `yaml:"data_url"`
	CLOBURL   string `yaml:"clob_url"`
	StreamURL string `yaml:"stream_url"`

	ChainID int64 `yaml:"chain_id"`

	Wallet WalletConfig          `yaml:"wallet"`
	API    signing.APICredential `yaml:"api"`

	Redis RedisConfig `yaml:"redis"`

	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`

	Retry      RetryConfig      `yaml:"retry"`
	Pagination PaginationConfig `yaml:"pagination"`
	Logging    logging.Config   `yaml:"logging"`
}

// WalletConfig holds the L1 wallet settings.
type WalletConfig struct {
	// Address overrides the address derived from PrivateKey.
	Address    string `yaml:"address"`
	PrivateKey string `yaml:"private_key"`
}

// RedisConfig enables the shared cache and rate limit state. An empty Addr
// disables Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RetryConfig mirrors the retry knobs of client.Config.
type RetryConfig struct {
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// PaginationConfig holds the defaults of the *All helpers.
type PaginationConfig struct {
	MaxPages int           `yaml:"max_pages"`
	Delay    time.Duration `yaml:"delay"`

	// MaxConcurrency > 1 fetches pages in parallel windows.
	MaxConcurrency int `yaml:"max_concurrency"`
}

// Default returns the production configuration without credentials.
func Default() Config {
	return Config{
		GammaURL:  client.DefaultGammaURL,
		DataURL:   client.DefaultDataURL,
		CLOBURL:   client.DefaultCLOBURL,
		StreamURL: DefaultStreamURL,
		ChainID:   signing.DefaultChainID,
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
		CacheTTL:  cache.DefaultTTL,
		Retry: RetryConfig{
			MaxRetries:     3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     30 * time.Second,
		},
		Pagination: PaginationConfig{
			MaxPages:       100,
			MaxConcurrency: 4,
		},
		Logging: logging.Config{Level: logging.LevelInfo},
	}
}

// Load reads the optional .env file, the YAML file at path (skipped when
// empty) and the environment, then validates the result.
func Load(path string) (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv is Load without a YAML file.
func FromEnv() (Config, error) {
	return Load("")
}

// LoadDotEnv loads the given files (default ".env") into the environment.
// Missing files are ignored and existing variables are not overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadFile reads a YAML file on top of Default.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks URLs, numeric bounds and credential completeness.
func (c Config) Validate() error {
	for name, raw := range map[string]string{
		"gamma_url":  c.GammaURL,
		"data_url":   c.DataURL,
		"clob_url":   c.CLOBURL,
		"stream_url": c.StreamURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL (got %q)", name, raw)
		}
	}

	if c.ChainID <= 0 {
		return fmt.Errorf("chain_id must be > 0 (got %d)", c.ChainID)
	}
	if c.UserAgent == "" {
		return errors.New("user_agent is required")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0 (got %d)", c.Retry.MaxRetries)
	}
	if c.Pagination.MaxPages < 0 {
		return fmt.Errorf("max_pages must be >= 0 (got %d)", c.Pagination.MaxPages)
	}
	if c.Pagination.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be >= 0 (got %d)", c.Pagination.MaxConcurrency)
	}
	if _, err := logging.ParseLevel(string(c.Logging.Level)); err != nil {
		return err
	}

	if c.Wallet.PrivateKey != "" {
		if _, err := signing.ParsePrivateKey(c.Wallet.PrivateKey); err != nil {
			return fmt.Errorf("wallet.private_key: %w", err)
		}
	}
	if c.Wallet.Address != "" && !common.IsHexAddress(c.Wallet.Address) {
		return fmt.Errorf("wallet.address is not a hex address: %q", c.Wallet.Address)
	}

	api := c.API
	if (api.Key != "" || api.Secret != "" || api.Passphrase != "") && !api.Complete() {
		return fmt.Errorf("%w: api key, secret and passphrase must be set together", signing.ErrMissingCredential)
	}
	return nil
}

// Address returns the configured wallet address, or the one derived from
// the private key. Empty when neither is set.
func (c Config) Address() (string, error) {
	if c.Wallet.Address != "" {
		return common.HexToAddress(c.Wallet.Address).Hex(), nil
	}
	if c.Wallet.PrivateKey == "" {
		return "", nil
	}
	key, err := signing.ParsePrivateKey(c.Wallet.PrivateKey)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}

// WalletCredential returns the L1 credential, if a private key is set.
func (c Config) WalletCredential() (signing.WalletCredential, bool) {
	if c.Wallet.PrivateKey == "" {
		return signing.WalletCredential{}, false
	}
	return signing.WalletCredential{Address: c.Wallet.Address, PrivateKey: c.Wallet.PrivateKey}, true
}

// APICredential returns the L2 credential, if all three parts are set.
func (c Config) APICredential() (signing.APICredential, bool) {
	return c.API, c.API.Complete()
}

// SignerOptions returns the options shared by both signers.
func (c Config) SignerOptions() ([]signing.Option, error) {
	opts := []signing.Option{signing.WithChainID(c.ChainID)}
	addr, err := c.Address()
	if err != nil {
		return nil, err
	}
	if addr != "" {
		opts = append(opts, signing.WithAddress(addr))
	}
	return opts, nil
}

// NewRedis connects to the configured Redis, or returns nil when disabled.
func (c Config) NewRedis() *redis.Client {
	if c.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
}

// ClientConfig converts to the HTTP core configuration.
func (c Config) ClientConfig(rdb *redis.Client) client.Config {
	cfg := client.DefaultConfig(rdb, c.UserAgent)
	cfg.Timeout = c.Timeout
	cfg.MaxRetries = c.Retry.MaxRetries
	cfg.InitialBackoff = c.Retry.InitialBackoff
	cfg.MaxBackoff = c.Retry.MaxBackoff
	cfg.CacheTTL = c.CacheTTL
	cfg.BaseURLs = map[client.Surface]string{
		client.SurfaceGamma: c.GammaURL,
		client.SurfaceData:  c.DataURL,
		client.SurfaceCLOB:  c.CLOBURL,
	}
	return cfg
}

// PaginationOptions returns the run options of the *All helpers.
func (c Config) PaginationOptions() pagination.Options {
	return pagination.Options{MaxPages: c.Pagination.MaxPages, Delay: c.Pagination.Delay}
}

// BatchConfig returns the concurrent fetcher settings, and whether
// concurrent fetching is enabled at all.
func (c Config) BatchConfig() (pagination.Config, bool) {
	cfg := pagination.DefaultConfig()
	cfg.MaxConcurrency = c.Pagination.MaxConcurrency
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	return cfg, c.Pagination.MaxConcurrency > 1
}

// StreamConfig returns the WebSocket settings with the configured URL.
func (c Config) StreamConfig() stream.Config {
	cfg := stream.DefaultConfig()
	if c.StreamURL != "" {
		cfg.URL = c.StreamURL
	}
	return cfg
}
