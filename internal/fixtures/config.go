package fixtures

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	Seed      int64
	Customers int
	Products  int
	Days      int
}

func DefaultConfig() Config {
	return Config{
		Seed:      time.Now().UTC().UnixNano(),
		Customers: 200,
		Products:  60,
		Days:      400,
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	if err := applyInt64(lookup, "TECHSTORE_FIXTURES_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "TECHSTORE_FIXTURES_CUSTOMERS", &cfg.Customers); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "TECHSTORE_FIXTURES_PRODUCTS", &cfg.Products); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "TECHSTORE_FIXTURES_DAYS", &cfg.Days); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Customers <= 0 {
		return fmt.Errorf("TECHSTORE_FIXTURES_CUSTOMERS must be > 0")
	}
	if c.Products <= 0 {
		return fmt.Errorf("TECHSTORE_FIXTURES_PRODUCTS must be > 0")
	}
	if c.Days <= 0 {
		return fmt.Errorf("TECHSTORE_FIXTURES_DAYS must be > 0")
	}
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
