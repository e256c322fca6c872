// Package config loads gochat configuration from an optional YAML file, a
// .env file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when GOCHAT_CONFIG is unset.
const DefaultPath = "config.yaml"

// Config holds the application configuration
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	Chat     ChatConfig     `yaml:"chat"`
	Model    ModelConfig    `yaml:"model"`
	History  HistoryConfig  `yaml:"history"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Speech   SpeechConfig   `yaml:"speech"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LogConfig      `yaml:"logging"`
}

// ProviderConfig describes the completion endpoint.
type ProviderConfig struct {
	Type       string `yaml:"type" env:"GOCHAT_PROVIDER"`
	APIKey     string `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL    string `yaml:"base_url" env:"OPENAI_BASE_URL"`
	UseAzure   bool   `yaml:"use_azure" env:"GOCHAT_USE_AZURE"`
	APIVersion string `yaml:"api_version" env:"GOCHAT_API_VERSION"`
}

// ProxyConfig is only applied when protocol, host and port are all set.
type ProxyConfig struct {
	Protocol string `yaml:"protocol" env:"GOCHAT_PROXY_PROTOCOL"`
	Host     string `yaml:"host" env:"GOCHAT_PROXY_HOST"`
	Port     string `yaml:"port" env:"GOCHAT_PROXY_PORT"`
}

// Complete reports whether all proxy fields are present.
func (p ProxyConfig) Complete() bool {
	return p.Protocol != "" && p.Host != "" && p.Port != ""
}

// Partial reports whether some but not all proxy fields are present.
func (p ProxyConfig) Partial() bool {
	return !p.Complete() && (p.Protocol != "" || p.Host != "" || p.Port != "")
}

// ChatConfig holds the session preferences.
type ChatConfig struct {
	Stream        bool `yaml:"stream" env:"GOCHAT_STREAM"`
	HistoryPaused bool `yaml:"history_paused" env:"GOCHAT_HISTORY_PAUSED"`
	AutoSpeak     bool `yaml:"auto_speak" env:"GOCHAT_AUTO_SPEAK"`
}

// ModelConfig is the default model selection.
type ModelConfig struct {
	Option      string `yaml:"option" env:"GOCHAT_MODEL"`
	Temperature string `yaml:"temperature" env:"GOCHAT_TEMPERATURE"`
	Prompt      string `yaml:"prompt" env:"GOCHAT_PROMPT"`
}

// HistoryConfig controls persistence of finalized exchanges.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled" env:"HISTORY_ENABLED"`
	// BufferSize is the number of exchanges queued before new ones are dropped
	BufferSize int `yaml:"buffer_size" env:"HISTORY_BUFFER_SIZE"`
	// FlushInterval is in seconds
	FlushInterval int `yaml:"flush_interval" env:"HISTORY_FLUSH_INTERVAL"`
	RetentionDays int `yaml:"retention_days" env:"HISTORY_RETENTION_DAYS"`
	// LoadOnStart seeds a new session with this many recent exchanges
	LoadOnStart int `yaml:"load_on_start" env:"HISTORY_LOAD_ON_START"`
}

// StorageConfig selects the history database.
type StorageConfig struct {
	Type       string           `yaml:"type" env:"STORAGE_TYPE"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	PostgreSQL PostgreSQLConfig `yaml:"postgresql"`
	MongoDB    MongoDBConfig    `yaml:"mongodb"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path" env:"SQLITE_PATH"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	URL      string `yaml:"url" env:"POSTGRES_URL"`
	MaxConns int    `yaml:"max_conns" env:"POSTGRES_MAX_CONNS"`
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URL      string `yaml:"url" env:"MONGODB_URL"`
	Database string `yaml:"database" env:"MONGODB_DATABASE"`
}

// CacheConfig controls the model list cache.
type CacheConfig struct {
	Type string `yaml:"type" env:"CACHE_TYPE"`
	// TTL is in seconds
	TTL   int              `yaml:"ttl" env:"CACHE_TTL"`
	Local LocalCacheConfig `yaml:"local"`
	Redis RedisConfig      `yaml:"redis"`
}

// LocalCacheConfig holds file cache configuration
type LocalCacheConfig struct {
	Dir string `yaml:"dir" env:"CACHE_DIR"`
}

// RedisConfig holds Redis cache configuration
type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL"`
	Key string `yaml:"key" env:"REDIS_KEY"`
}

// SpeechConfig selects the text-to-speech program. When disabled, answers are
// never spoken even with auto speak on.
type SpeechConfig struct {
	Enabled bool     `yaml:"enabled" env:"GOCHAT_SPEECH_ENABLED"`
	Command string   `yaml:"command" env:"GOCHAT_SPEECH_COMMAND"`
	Args    []string `yaml:"args"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string `yaml:"port" env:"PORT"`
	MasterKey      string `yaml:"master_key" env:"GOCHAT_MASTER_KEY"`
	SwaggerEnabled bool   `yaml:"swagger_enabled" env:"SWAGGER_ENABLED"`
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	Endpoint string `yaml:"endpoint" env:"METRICS_ENDPOINT"`
}

// LogConfig holds application log output configuration
type LogConfig struct {
	Format string `yaml:"format" env:"LOG_FORMAT"`
	Level  string `yaml:"level" env:"LOG_LEVEL"`
}

// buildDefaultConfig returns the configuration used when nothing is set.
func buildDefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{Type: "openai"},
		Chat:     ChatConfig{Stream: true},
		Model: ModelConfig{
			Option:      "gpt-3.5-turbo",
			Temperature: "1",
			Prompt:      "You are a helpful assistant.",
		},
		History: HistoryConfig{
			Enabled:       true,
			BufferSize:    1000,
			FlushInterval: 5,
			LoadOnStart:   20,
		},
		Storage: StorageConfig{
			Type:       "sqlite",
			SQLite:     SQLiteConfig{Path: "data/gochat.db"},
			PostgreSQL: PostgreSQLConfig{MaxConns: 4},
			MongoDB:    MongoDBConfig{Database: "gochat"},
		},
		Cache: CacheConfig{
			Type:  "local",
			TTL:   3600,
			Local: LocalCacheConfig{Dir: ".cache"},
			Redis: RedisConfig{Key: "gochat:models"},
		},
		Speech:  SpeechConfig{Enabled: true},
		Server:  ServerConfig{Port: "8080"},
		Metrics: MetricsConfig{Endpoint: "/metrics"},
		Logging: LogConfig{Format: "text", Level: "info"},
	}
}

// Load reads .env, the YAML file named by GOCHAT_CONFIG (default config.yaml)
// and the environment. A missing file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	path := os.Getenv("GOCHAT_CONFIG")
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

// LoadFile is Load without the .env step and with an explicit YAML path.
func LoadFile(path string) (*Config, error) {
	cfg := buildDefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		expandEnvVars(reflect.ValueOf(cfg).Elem())
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if cfg.Proxy.Partial() {
		slog.Warn("incomplete proxy configuration, connecting directly",
			"protocol_set", cfg.Proxy.Protocol != "",
			"host_set", cfg.Proxy.Host != "",
			"port_set", cfg.Proxy.Port != "",
		)
	}
	return cfg, nil
}

// Validate checks settings required to talk to the provider.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Provider.APIKey) == "" {
		return errors.New("provider api key is required (set OPENAI_API_KEY or provider.api_key)")
	}
	if c.Model.Option == "" {
		return errors.New("model option is required")
	}
	if c.Model.Temperature != "" {
		v, err := strconv.ParseFloat(c.Model.Temperature, 64)
		if err != nil {
			return fmt.Errorf("invalid model temperature %q: %w", c.Model.Temperature, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid model temperature %q: must be a finite number", c.Model.Temperature)
		}
	}
	return nil
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default}. A placeholder without a
// default whose variable is unset or empty is left as written.
func expandString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		parts := placeholder.FindStringSubmatch(m)
		if v := os.Getenv(parts[1]); v != "" {
			return v
		}
		if parts[2] != "" {
			return parts[3]
		}
		return m
	})
}

func expandEnvVars(v reflect.Value) {
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandEnvVars(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(expandString(v.String()))
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			expandEnvVars(v.Index(i))
		}
	}
}

// applyEnvOverrides sets every field tagged env:"NAME" from a non-empty
// environment variable.
func applyEnvOverrides(cfg *Config) error {
	return applyEnv(reflect.ValueOf(cfg).Elem())
}

func applyEnv(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		if field.Kind() == reflect.Struct {
			if err := applyEnv(field); err != nil {
				return err
			}
			continue
		}

		name := t.Field(i).Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(raw)
		case reflect.Bool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("invalid boolean for %s: %q", name, raw)
			}
			field.SetBool(b)
		case reflect.Int:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid integer for %s: %q", name, raw)
			}
			field.SetInt(int64(n))
		}
	}
	return nil
}
