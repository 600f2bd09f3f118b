package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server Server
	Data   Data
	OpenAI OpenAI
	Search Search
}

// Server holds HTTP server configuration
type Server struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Data holds the file locations the engine works with
type Data struct {
	CatalogPath   string `mapstructure:"catalog_path"`
	WorkListPath  string `mapstructure:"worklist_path"`
	LedgerPath    string `mapstructure:"ledger_path"`
	BackupDir     string `mapstructure:"backup_dir"`
	MaxBackups    int    `mapstructure:"max_backups"`
	TermCachePath string `mapstructure:"term_cache_path"`
}

// OpenAI holds the remote term-generation service configuration.
// The API key is supplied via environment (SUBFINDER_OPENAI_API_KEY),
// never hardcoded; with no key the deterministic fallback still works.
type OpenAI struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Search holds matching engine tuning
type Search struct {
	MaxResults      int `mapstructure:"max_results"`
	MinSimilarity   int `mapstructure:"min_similarity"`
	FuzzySampleSize int `mapstructure:"fuzzy_sample_size"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/substifinder/")

	// Environment variable settings
	v.SetEnvPrefix("SUBFINDER")
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Data defaults
	v.SetDefault("data.catalog_path", "Itens_Ativos.csv")
	v.SetDefault("data.worklist_path", "Base_Fazer.csv")
	v.SetDefault("data.ledger_path", "data/substituicoes.csv")
	v.SetDefault("data.backup_dir", "data/backups")
	v.SetDefault("data.max_backups", 10)
	v.SetDefault("data.term_cache_path", "data/cache.json")

	// OpenAI defaults
	v.SetDefault("openai.base_url", "https://api.openai.com")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.timeout", "30s")

	// Search defaults
	v.SetDefault("search.max_results", 50)
	v.SetDefault("search.min_similarity", 60)
	v.SetDefault("search.fuzzy_sample_size", 1000)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Data.CatalogPath == "" {
		return fmt.Errorf("catalog path is required (set SUBFINDER_DATA_CATALOG_PATH)")
	}

	if config.Data.WorkListPath == "" {
		return fmt.Errorf("work list path is required (set SUBFINDER_DATA_WORKLIST_PATH)")
	}

	if config.Search.MinSimilarity < 0 || config.Search.MinSimilarity > 100 {
		return fmt.Errorf("search min_similarity must be in [0,100], got: %d", config.Search.MinSimilarity)
	}

	if config.Data.MaxBackups <= 0 {
		return fmt.Errorf("max_backups must be positive, got: %d", config.Data.MaxBackups)
	}

	return nil
}
