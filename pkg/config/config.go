package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source kinds accepted by SourceConfig.Kind.
const (
	SourceHTTP   = "http"
	SourceSQLite = "sqlite"
)

// CoreConfig tunes the query engine.
type CoreConfig struct {
	BucketSizeSeconds int64 // width of one cache bucket
	PrefetchCount     int   // extra buckets probed on each side of a gap
	CacheCapacity     int   // buckets held before LRU eviction
}

// SourceConfig selects and configures the fill source.
type SourceConfig struct {
	Kind           string // http or sqlite
	BaseURL        string // http: fills API base URL
	APIKey         string // http: optional, may come from env or secret store
	TimeoutSeconds int    // http: request timeout
	Retries        int    // http: retry count for failed requests
	DBPath         string // sqlite: database file path
}

// SecretsConfig points at the local encrypted credential store.
type SecretsConfig struct {
	DBPath        string // empty disables the store
	EncryptionKey string // optional AES key, hex or base64
}

// ServerConfig configures the query HTTP server.
type ServerConfig struct {
	Addr string
}

// MetricsConfig controls the expvar/pprof endpoint.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// Config is the resolved application configuration.
type Config struct {
	Core     CoreConfig
	Source   SourceConfig
	Secrets  SecretsConfig
	Server   ServerConfig
	Metrics  MetricsConfig
	LogLevel string
	LogFile  string
}

var globalConfig *Config
var configFilePath string

// SetConfigPath sets the config file path used by Load.
func SetConfigPath(path string) {
	configFilePath = path
}

// GetConfigPath returns the config file path used by Load.
func GetConfigPath() string {
	return configFilePath
}

// ConfigFile mirrors the YAML/JSON config file layout. Pointer fields
// distinguish "absent" from a meaningful zero.
type ConfigFile struct {
	Core struct {
		BucketSizeSeconds int64 `yaml:"bucket_size_seconds" json:"bucket_size_seconds"`
		PrefetchCount     *int  `yaml:"prefetch_count" json:"prefetch_count"`
		CacheCapacity     int   `yaml:"cache_capacity" json:"cache_capacity"`
	} `yaml:"core" json:"core"`
	Source struct {
		Kind           string `yaml:"kind" json:"kind"`
		BaseURL        string `yaml:"base_url" json:"base_url"`
		APIKey         string `yaml:"api_key" json:"api_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
		Retries        *int   `yaml:"retries" json:"retries"`
		DBPath         string `yaml:"db_path" json:"db_path"`
	} `yaml:"source" json:"source"`
	Secrets struct {
		DBPath        string `yaml:"db_path" json:"db_path"`
		EncryptionKey string `yaml:"encryption_key" json:"encryption_key"`
	} `yaml:"secrets" json:"secrets"`
	Server struct {
		Addr string `yaml:"addr" json:"addr"`
	} `yaml:"server" json:"server"`
	Metrics struct {
		Enabled *bool  `yaml:"enabled" json:"enabled"`
		Addr    string `yaml:"addr" json:"addr"`
	} `yaml:"metrics" json:"metrics"`
	LogLevel string `yaml:"log_level" json:"log_level"`
	LogFile  string `yaml:"log_file" json:"log_file"`
}

// Load loads configuration from the path set via SetConfigPath.
func Load() (*Config, error) {
	return LoadFromFile(configFilePath)
}

// LoadFromFile loads configuration from the given file. Priority per
// field: config file > environment variable > default. An empty path
// skips the file and resolves everything from environment and defaults.
func LoadFromFile(filePath string) (*Config, error) {
	if globalConfig != nil && configFilePath == filePath {
		return globalConfig, nil
	}

	var configFile *ConfigFile
	if filePath != "" {
		var err error
		configFile, err = loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("load config file %s: %w", filePath, err)
		}
	}

	config := &Config{
		Core: CoreConfig{
			BucketSizeSeconds: func() int64 {
				if configFile != nil && configFile.Core.BucketSizeSeconds > 0 {
					return configFile.Core.BucketSizeSeconds
				}
				return parseInt64Env("BUCKET_SIZE_SECONDS", 3600)
			}(),
			PrefetchCount: func() int {
				if configFile != nil && configFile.Core.PrefetchCount != nil {
					return *configFile.Core.PrefetchCount
				}
				return parseIntEnv("PREFETCH_COUNT", 1)
			}(),
			CacheCapacity: func() int {
				if configFile != nil && configFile.Core.CacheCapacity > 0 {
					return configFile.Core.CacheCapacity
				}
				return parseIntEnv("CACHE_CAPACITY", 200)
			}(),
		},
		Source: SourceConfig{
			Kind: func() string {
				if configFile != nil && configFile.Source.Kind != "" {
					return configFile.Source.Kind
				}
				return getEnv("SOURCE_KIND", SourceHTTP)
			}(),
			BaseURL: func() string {
				if configFile != nil && configFile.Source.BaseURL != "" {
					return configFile.Source.BaseURL
				}
				return getEnv("FILLS_BASE_URL", "")
			}(),
			APIKey: func() string {
				if configFile != nil && configFile.Source.APIKey != "" {
					return configFile.Source.APIKey
				}
				return getEnv("FILLS_API_KEY", "")
			}(),
			TimeoutSeconds: func() int {
				if configFile != nil && configFile.Source.TimeoutSeconds > 0 {
					return configFile.Source.TimeoutSeconds
				}
				return parseIntEnv("FILLS_TIMEOUT_SECONDS", 60)
			}(),
			Retries: func() int {
				if configFile != nil && configFile.Source.Retries != nil {
					return *configFile.Source.Retries
				}
				return parseIntEnv("FILLS_RETRIES", 3)
			}(),
			DBPath: func() string {
				if configFile != nil && configFile.Source.DBPath != "" {
					return configFile.Source.DBPath
				}
				return getEnv("FILLS_DB_PATH", "data/fills.db")
			}(),
		},
		Secrets: SecretsConfig{
			DBPath: func() string {
				if configFile != nil && configFile.Secrets.DBPath != "" {
					return configFile.Secrets.DBPath
				}
				return getEnv("SECRETS_DB_PATH", "")
			}(),
			EncryptionKey: func() string {
				if configFile != nil && configFile.Secrets.EncryptionKey != "" {
					return configFile.Secrets.EncryptionKey
				}
				return getEnv("SECRETS_ENCRYPTION_KEY", "")
			}(),
		},
		Server: ServerConfig{
			Addr: func() string {
				if configFile != nil && configFile.Server.Addr != "" {
					return configFile.Server.Addr
				}
				return getEnv("SERVER_ADDR", ":8080")
			}(),
		},
		Metrics: MetricsConfig{
			Enabled: func() bool {
				if configFile != nil && configFile.Metrics.Enabled != nil {
					return *configFile.Metrics.Enabled
				}
				return parseBoolEnv("METRICS_ENABLED", false)
			}(),
			Addr: func() string {
				if configFile != nil && configFile.Metrics.Addr != "" {
					return configFile.Metrics.Addr
				}
				return getEnv("METRICS_ADDR", "localhost:6060")
			}(),
		},
		LogLevel: func() string {
			if configFile != nil && configFile.LogLevel != "" {
				return configFile.LogLevel
			}
			return getEnv("LOG_LEVEL", "info")
		}(),
		LogFile: func() string {
			if configFile != nil && configFile.LogFile != "" {
				return configFile.LogFile
			}
			return getEnv("LOG_FILE", "")
		}(),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	globalConfig = config
	configFilePath = filePath
	return config, nil
}

// loadConfigFile reads a YAML or JSON config file by extension.
func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var configFile ConfigFile
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s (want .yaml, .yml or .json)", ext)
	}

	return &configFile, nil
}

// Get returns the cached configuration, nil before the first Load.
func Get() *Config {
	return globalConfig
}

// Validate checks the resolved configuration for values the engine
// cannot run with.
func (c *Config) Validate() error {
	if c.Core.BucketSizeSeconds <= 0 {
		return fmt.Errorf("bucket_size_seconds must be positive, got %d", c.Core.BucketSizeSeconds)
	}
	if c.Core.PrefetchCount < 0 {
		return fmt.Errorf("prefetch_count must not be negative, got %d", c.Core.PrefetchCount)
	}
	if c.Core.CacheCapacity <= 0 {
		return fmt.Errorf("cache_capacity must be positive, got %d", c.Core.CacheCapacity)
	}

	switch c.Source.Kind {
	case SourceHTTP:
		if c.Source.BaseURL == "" {
			return fmt.Errorf("source base_url is required for the http source")
		}
	case SourceSQLite:
		if c.Source.DBPath == "" {
			return fmt.Errorf("source db_path is required for the sqlite source")
		}
	default:
		return fmt.Errorf("unknown source kind: %s (want %s or %s)", c.Source.Kind, SourceHTTP, SourceSQLite)
	}

	if c.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source timeout_seconds must be positive, got %d", c.Source.TimeoutSeconds)
	}
	if c.Source.Retries < 0 {
		return fmt.Errorf("source retries must not be negative, got %d", c.Source.Retries)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics addr is required when metrics are enabled")
	}

	return nil
}

// getEnv returns the environment value or the default when unset.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an integer environment variable.
func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseInt64Env parses a 64-bit integer environment variable.
func parseInt64Env(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseBoolEnv parses a boolean environment variable.
func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
