package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Sternrassler/polymarket-client/pkg/logging"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "POLYMARKET_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from POLYMARKET_* variables. Unset and empty
// variables leave the field untouched.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return v, ok && v != ""
	}

	strs := map[string]*string{
		"GAMMA_URL":      &c.GammaURL,
		"DATA_URL":       &c.DataURL,
		"CLOB_URL":       &c.CLOBURL,
		"STREAM_URL":     &c.StreamURL,
		"ADDRESS":        &c.Wallet.Address,
		"PRIVATE_KEY":    &c.Wallet.PrivateKey,
		"API_KEY":        &c.API.Key,
		"API_SECRET":     &c.API.Secret,
		"API_PASSPHRASE": &c.API.Passphrase,
		"REDIS_ADDR":     &c.Redis.Addr,
		"REDIS_PASSWORD": &c.Redis.Password,
		"USER_AGENT":     &c.UserAgent,
	}
	for name, field := range strs {
		if v, ok := get(name); ok {
			*field = v
		}
	}

	ints := map[string]*int{
		"REDIS_DB":        &c.Redis.DB,
		"MAX_RETRIES":     &c.Retry.MaxRetries,
		"MAX_PAGES":       &c.Pagination.MaxPages,
		"MAX_CONCURRENCY": &c.Pagination.MaxConcurrency,
	}
	for name, field := range ints {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*field = n
		}
	}

	durations := map[string]*time.Duration{
		"TIMEOUT":         &c.Timeout,
		"CACHE_TTL":       &c.CacheTTL,
		"INITIAL_BACKOFF": &c.Retry.InitialBackoff,
		"MAX_BACKOFF":     &c.Retry.MaxBackoff,
		"PAGE_DELAY":      &c.Pagination.Delay,
	}
	for name, field := range durations {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*field = d
		}
	}

	if v, ok := get("CHAIN_ID"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sCHAIN_ID: %w", EnvPrefix, err)
		}
		c.ChainID = id
	}

	if v, ok := get("LOG_LEVEL"); ok {
		level, err := logging.ParseLevel(v)
		if err != nil {
			return fmt.Errorf("%sLOG_LEVEL: %w", EnvPrefix, err)
		}
		c.Logging.Level = level
	}
	if v, ok := get("LOG_PRETTY"); ok {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sLOG_PRETTY: %w", EnvPrefix, err)
		}
		c.Logging.Pretty = pretty
	}

	return nil
}
