package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Store      StoreConfig      `mapstructure:"store"`
	Report     ReportConfig     `mapstructure:"report"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// OpenAIConfig holds completion API configuration
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// ProcessingConfig holds batch pipeline configuration. The defaults mirror
// product-chosen limits; they are policy, not invariants.
type ProcessingConfig struct {
	MaxInvoices         int           `mapstructure:"max_invoices"`
	DefaultBatchSize    int           `mapstructure:"default_batch_size"`
	SequentialThreshold int           `mapstructure:"sequential_threshold"`
	GroupTimeout        time.Duration `mapstructure:"group_timeout"`
	ItemPause           time.Duration `mapstructure:"item_pause"`
	PauseEvery          int           `mapstructure:"pause_every"`
	GroupPause          time.Duration `mapstructure:"group_pause"`
}

// StoreConfig holds analysis store configuration
type StoreConfig struct {
	EmbeddingDimension int `mapstructure:"embedding_dimension"`
}

// ReportConfig holds Excel report export configuration
type ReportConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	OutputDir string `mapstructure:"output_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 5*time.Minute)

	// Database defaults
	viper.SetDefault("database.path", "data/invoice_analysis.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// OpenAI defaults
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.temperature", 0.3)
	viper.SetDefault("openai.max_tokens", 1024)

	// Processing defaults
	viper.SetDefault("processing.max_invoices", 30)
	viper.SetDefault("processing.default_batch_size", 3)
	viper.SetDefault("processing.sequential_threshold", 5)
	viper.SetDefault("processing.group_timeout", 120*time.Second)
	viper.SetDefault("processing.item_pause", 100*time.Millisecond)
	viper.SetDefault("processing.pause_every", 5)
	viper.SetDefault("processing.group_pause", 500*time.Millisecond)

	// Store defaults
	viper.SetDefault("store.embedding_dimension", 384)

	// Report defaults
	viper.SetDefault("report.enabled", false)
	viper.SetDefault("report.output_dir", "reports")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required (set OPENAI_API_KEY)")
	}
	if c.Processing.MaxInvoices <= 0 {
		return fmt.Errorf("processing.max_invoices must be positive")
	}
	if c.Processing.GroupTimeout <= 0 {
		return fmt.Errorf("processing.group_timeout must be positive")
	}
	return nil
}
