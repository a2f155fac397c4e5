package purchases

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/pkg/errors"

	"github.com/RevenueCat/purchases-android-sub005/store"
)

// Config is the SDK configuration, parsed from the environment.
type Config struct {
	APIKey     string `env:"PURCHASES_API_KEY,required"`
	BackendURL string `env:"PURCHASES_BACKEND_URL"`
	Store      string `env:"PURCHASES_STORE" envDefault:"play_store"`

	ProductDetailsCacheTTL time.Duration `env:"PURCHASES_PRODUCT_CACHE_TTL" envDefault:"5m"`
	DiagnosticsEnabled     bool          `env:"PURCHASES_DIAGNOSTICS_ENABLED" envDefault:"false"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	if _, err := store.ParseStore(cfg.Store); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// StoreType resolves the configured store identity.
func (c Config) StoreType() store.Store {
	s, _ := store.ParseStore(c.Store)
	return s
}
