package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Flightlooker FlightlookerConfig `yaml:"flightlooker"`
	Search       SearchConfig       `yaml:"search"`
	VPN          VPNConfig          `yaml:"vpn"`
	Source       SourceConfig       `yaml:"source"`
	Rates        RatesConfig        `yaml:"rates"`
	Writer       WriterConfig       `yaml:"writer"`
	Charts       ChartsConfig       `yaml:"charts"`
	Storage      StorageConfig      `yaml:"storage"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type FlightlookerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type SearchConfig struct {
	// CourtesyDelay is the pause between country probes. Zero disables it.
	CourtesyDelay time.Duration `yaml:"courtesy_delay"`
	// MaxFailures short-circuits the run after this many failed probes.
	// Zero means run to completion (the default).
	MaxFailures int `yaml:"max_failures"`
	// MaxElapsed short-circuits the run once this much time has passed.
	// Zero means run to completion (the default).
	MaxElapsed time.Duration `yaml:"max_elapsed"`
	Timeout    time.Duration `yaml:"timeout"`
}

type VPNConfig struct {
	// Provider selects the identity switch implementation: "nordvpn" or
	// "simulation".
	Provider       string        `yaml:"provider"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// SettleDelay gives the tunnel time to stabilize after connecting.
	SettleDelay time.Duration `yaml:"settle_delay"`
	Token       string        `yaml:"token"`
}

type SourceConfig struct {
	Amadeus AmadeusSourceConfig `yaml:"amadeus"`
	Demo    DemoSourceConfig    `yaml:"demo"`
}

type AmadeusSourceConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	AuthURL        string               `yaml:"auth_url"`
	OffersURL      string               `yaml:"offers_url"`
	APIKey         string               `yaml:"api_key"`
	APISecret      string               `yaml:"api_secret"`
	MaxOffers      int                  `yaml:"max_offers"`
	Timeout        time.Duration        `yaml:"timeout"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type DemoSourceConfig struct {
	Enabled bool `yaml:"enabled"`
	// Seed makes generated offers reproducible. Zero derives the seed from
	// the request.
	Seed      int64 `yaml:"seed"`
	MinOffers int   `yaml:"min_offers"`
	MaxOffers int   `yaml:"max_offers"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type RatesConfig struct {
	// ReportingCurrency is the single currency every price is normalized to.
	ReportingCurrency string        `yaml:"reporting_currency"`
	BaseURL           string        `yaml:"base_url"`
	CacheFile         string        `yaml:"cache_file"`
	Timeout           time.Duration `yaml:"timeout"`
	// Live disables the NBP fetch entirely when false; the built-in
	// fallback table is used instead.
	Live bool `yaml:"live"`
}

type WriterConfig struct {
	OutputDir string        `yaml:"output_dir"`
	CSV       CSVConfig     `yaml:"csv"`
	Parquet   ParquetConfig `yaml:"parquet"`
}

type CSVConfig struct {
	Enabled bool `yaml:"enabled"`
}

type ParquetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Compression string `yaml:"compression"`
}

type ChartsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
}

type StorageConfig struct {
	S3    S3Config    `yaml:"s3"`
	Kafka KafkaConfig `yaml:"kafka"`
}

// KafkaConfig publishes each run's ranked deals to a topic for downstream
// consumers (fare alerting, historical tracking). Off by default.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Output        string `yaml:"output"`
	MaxAge        int    `yaml:"max_age"`
	Report        bool   `yaml:"report"`
	CloudWatch    bool   `yaml:"cloudwatch"`
	DashboardName string `yaml:"dashboard_name"`
}

// DefaultConfig returns the configuration used when no config file is given.
// A config file overrides it wholesale; flags and env vars override both.
func DefaultConfig() *Config {
	return &Config{
		Flightlooker: FlightlookerConfig{Name: "flightlooker", Version: "1.0"},
		Search: SearchConfig{
			CourtesyDelay: 2 * time.Second,
			Timeout:       60 * time.Second,
		},
		VPN: VPNConfig{
			Provider:       "simulation",
			ConnectTimeout: 30 * time.Second,
			SettleDelay:    3 * time.Second,
		},
		Source: SourceConfig{
			Amadeus: AmadeusSourceConfig{
				AuthURL:   "https://test.api.amadeus.com/v1/security/oauth2/token",
				OffersURL: "https://test.api.amadeus.com/v2/shopping/flight-offers",
				MaxOffers: 10,
				Timeout:   30 * time.Second,
				RateLimit: RateLimitConfig{RequestsPerSecond: 2, BurstSize: 1},
				ConnectionPool: ConnectionPoolConfig{
					MaxIdleConns:    4,
					MaxConnsPerHost: 4,
					IdleConnTimeout: 90 * time.Second,
				},
			},
			Demo: DemoSourceConfig{Enabled: true, MinOffers: 3, MaxOffers: 6},
		},
		Rates: RatesConfig{
			ReportingCurrency: "PLN",
			BaseURL:           "https://api.nbp.pl/api/exchangerates/rates/a",
			CacheFile:         ".exchange_rates_cache.json",
			Timeout:           5 * time.Second,
			Live:              true,
		},
		Writer: WriterConfig{
			OutputDir: ".",
			Parquet:   ParquetConfig{Compression: "snappy"},
		},
		Charts:  ChartsConfig{Enabled: true, OutputDir: "charts"},
		Logging: LoggingConfig{Level: "info", Format: "text", Output: "stderr"},
	}
}

// LoadConfig reads the yaml configuration at path on top of the defaults and
// applies environment overrides for secrets.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AMADEUS_API_KEY"); v != "" {
		cfg.Source.Amadeus.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("AMADEUS_API_SECRET"); v != "" {
		cfg.Source.Amadeus.APISecret = strings.TrimSpace(v)
	}
	if v := os.Getenv("NORDVPN_TOKEN"); v != "" {
		cfg.VPN.Token = strings.TrimSpace(v)
	}
	if cfg.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			cfg.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			cfg.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			cfg.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			cfg.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Flightlooker.Name == "" {
		return fmt.Errorf("flightlooker.name is required")
	}
	if cfg.Flightlooker.Version == "" {
		return fmt.Errorf("flightlooker.version is required")
	}

	switch cfg.VPN.Provider {
	case "nordvpn", "simulation":
	default:
		return fmt.Errorf("vpn.provider must be 'nordvpn' or 'simulation', got %q", cfg.VPN.Provider)
	}

	if cfg.Search.CourtesyDelay < 0 {
		return fmt.Errorf("search.courtesy_delay must not be negative")
	}
	if cfg.Search.MaxFailures < 0 {
		return fmt.Errorf("search.max_failures must not be negative")
	}

	if cfg.Rates.ReportingCurrency == "" {
		return fmt.Errorf("rates.reporting_currency is required")
	}
	if cfg.Rates.Live && cfg.Rates.BaseURL == "" {
		return fmt.Errorf("rates.base_url is required when live rates are enabled")
	}

	if cfg.Source.Amadeus.Enabled {
		if cfg.Source.Amadeus.AuthURL == "" || cfg.Source.Amadeus.OffersURL == "" {
			return fmt.Errorf("source.amadeus.auth_url and source.amadeus.offers_url are required when amadeus is enabled")
		}
		if cfg.Source.Amadeus.MaxOffers <= 0 {
			return fmt.Errorf("source.amadeus.max_offers must be greater than 0")
		}
	}
	if !cfg.Source.Amadeus.Enabled && !cfg.Source.Demo.Enabled {
		return fmt.Errorf("at least one offer source must be enabled")
	}

	if cfg.Storage.Kafka.Enabled {
		if len(cfg.Storage.Kafka.Brokers) == 0 {
			return fmt.Errorf("storage.kafka.brokers is required when kafka is enabled")
		}
		if cfg.Storage.Kafka.Topic == "" {
			return fmt.Errorf("storage.kafka.topic is required when kafka is enabled")
		}
	}

	if cfg.Storage.S3.Enabled {
		cfg.Storage.S3.Bucket = strings.TrimSpace(cfg.Storage.S3.Bucket)
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
