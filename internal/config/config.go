package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the edgelab tools.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Polygon  Polygon        `yaml:"polygon"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Backtest BacktestConfig `yaml:"backtest"`
	StatTest StatTestConfig `yaml:"stattest"`
}

// Storage holds paths for data persistence.
type Storage struct {
	CacheDir   string `yaml:"cache_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Polygon holds credentials and endpoints for the Polygon flat file service.
type Polygon struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
}

// Alpaca holds credentials for the Alpaca trading calendar API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BacktestConfig defines execution parameters shared by all backtests.
type BacktestConfig struct {
	InitialCash        float64 `yaml:"initial_cash"`
	TransactionCostPct float64 `yaml:"transaction_cost_pct"`
}

// StatTestConfig controls instrument selection and statistics for
// cross-sectional tests.
type StatTestConfig struct {
	MinPrice  float64 `yaml:"min_price"`
	MinVolume int64   `yaml:"min_volume"`
	PoolSize  int     `yaml:"pool_size"`
	Seed      int64   `yaml:"seed"`
	Benchmark string  `yaml:"benchmark"`
	NStocks   int     `yaml:"n_stocks"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns a Config with working defaults for every field a run
// requires. Credentials have no defaults and must come from the file or the
// environment.
func Default() *Config {
	return &Config{
		Storage: Storage{
			CacheDir:   "data",
			SQLitePath: "edgelab.db",
		},
		Polygon: Polygon{
			Endpoint: "https://files.polygon.io",
			Bucket:   "flatfiles",
		},
		Alpaca: Alpaca{
			BaseURL: "https://paper-api.alpaca.markets",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Backtest: BacktestConfig{
			InitialCash:        100000,
			TransactionCostPct: 0.05,
		},
		StatTest: StatTestConfig{
			MinPrice:  5.0,
			MinVolume: 100000,
			PoolSize:  500,
			Seed:      42,
			Benchmark: "SPY",
			NStocks:   30,
		},
	}
}

// Load reads the YAML configuration file at the given path over the defaults,
// then applies environment variable overrides. A missing file is not an
// error; defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Fall through to env overrides.
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_CACHE_DIR"); v != "" {
		cfg.Storage.CacheDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("POLYGON_ACCESS_KEY"); v != "" {
		cfg.Polygon.AccessKey = v
	}
	if v := os.Getenv("POLYGON_SECRET_KEY"); v != "" {
		cfg.Polygon.SecretKey = v
	}
	if v := os.Getenv("POLYGON_ENDPOINT"); v != "" {
		cfg.Polygon.Endpoint = v
	}
	if v := os.Getenv("POLYGON_BUCKET"); v != "" {
		cfg.Polygon.Bucket = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority, canonical names used by the
	// SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
