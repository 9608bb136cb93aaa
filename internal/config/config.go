// Package config loads the engine configuration from YAML with environment
// variable expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the coverquery API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Structured StructuredConfig `yaml:"structured"`
	Semantic   SemanticConfig   `yaml:"semantic"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Engine     EngineConfig     `yaml:"engine"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StructuredConfig holds relational store settings.
type StructuredConfig struct {
	DSN              string `yaml:"dsn"`
	MaxOpenConns     int    `yaml:"max_open_conns"`
	MaxIdleConns     int    `yaml:"max_idle_conns"`
	TimeoutMS        int    `yaml:"timeout_ms"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// SemanticConfig holds vector store settings.
type SemanticConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	IndexPrefix      string   `yaml:"index_prefix"`
	TimeoutMS        int      `yaml:"timeout_ms"`
	TopK             int      `yaml:"top_k"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// EngineConfig holds retrieval and scoring settings.
type EngineConfig struct {
	RouteBudgetMS       int                `yaml:"route_budget_ms"`
	ConfidenceThreshold float64            `yaml:"confidence_threshold"`
	RouteWeights        map[string]float64 `yaml:"route_weights"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Structured.MaxOpenConns <= 0 {
		c.Structured.MaxOpenConns = 10
	}
	if c.Structured.MaxIdleConns <= 0 {
		c.Structured.MaxIdleConns = 5
	}
	if c.Structured.TimeoutMS <= 0 {
		c.Structured.TimeoutMS = 400
	}
	if c.Structured.ReadinessTimeout <= 0 {
		c.Structured.ReadinessTimeout = 10
	}
	if c.Semantic.IndexPrefix == "" {
		c.Semantic.IndexPrefix = "coverquery:"
	}
	if c.Semantic.TimeoutMS <= 0 {
		c.Semantic.TimeoutMS = 900
	}
	if c.Semantic.TopK <= 0 {
		c.Semantic.TopK = 5
	}
	if c.Semantic.ReadinessTimeout <= 0 {
		c.Semantic.ReadinessTimeout = 10
	}
	if c.Engine.RouteBudgetMS <= 0 {
		c.Engine.RouteBudgetMS = 1500
	}
	if c.Engine.ConfidenceThreshold <= 0 {
		c.Engine.ConfidenceThreshold = 0.7
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Structured.DSN == "" {
		return fmt.Errorf("structured.dsn is required")
	}
	if len(c.Semantic.Addrs) == 0 {
		return fmt.Errorf("semantic.addrs is required")
	}
	if c.Engine.ConfidenceThreshold > 1 {
		return fmt.Errorf("engine.confidence_threshold must be in (0, 1], got %g",
			c.Engine.ConfidenceThreshold)
	}
	for cat, w := range c.Engine.RouteWeights {
		if w <= 0 {
			return fmt.Errorf("engine.route_weights.%s must be positive, got %g", cat, w)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
