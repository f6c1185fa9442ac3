package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Providers []ProviderConfig `mapstructure:"providers"`
	CMS       CMSConfig       `mapstructure:"cms"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CrawlerConfig holds crawl engine settings
type CrawlerConfig struct {
	UserAgent           string        `mapstructure:"user_agent"`
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
	MaxRetries          int           `mapstructure:"max_retries"`
	RequestsPerSecond   int           `mapstructure:"requests_per_second"`
	ValidateConcurrency int           `mapstructure:"validate_concurrency"`
	FetchConcurrency    int           `mapstructure:"fetch_concurrency"`
}

// SchedulerConfig holds AI load balancer settings
type SchedulerConfig struct {
	Cooldown   time.Duration `mapstructure:"cooldown"`
	MaxRetries int           `mapstructure:"max_retries"`
	ClusterCap int           `mapstructure:"cluster_cap"`
}

// ProviderConfig is one credential/vendor pairing; the scheduler runs one
// worker per entry.
type ProviderConfig struct {
	Name   string `mapstructure:"name"`
	Vendor string `mapstructure:"vendor"`
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// CMSConfig holds the content-management backend the optimize command
// pushes approved updates to.
type CMSConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Token    string `mapstructure:"token"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.seosmith")
	}

	setDefaults(v)

	v.SetEnvPrefix("SEOSMITH")
	v.AutomaticEnv()
	v.BindEnv("cms.token", "SEOSMITH_CMS_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults and env cover it
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Provider API keys may come from the conventional vendor env vars
	for i := range config.Providers {
		if config.Providers[i].APIKey == "" && config.Providers[i].Vendor == "openai" {
			config.Providers[i].APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	// With nothing configured, fall back to the offline heuristic provider
	if len(config.Providers) == 0 {
		config.Providers = []ProviderConfig{{Name: "local", Vendor: "local"}}
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.user_agent", "SEOSmith/1.0")
	v.SetDefault("crawler.fetch_timeout", "15s")
	v.SetDefault("crawler.max_retries", 3)
	v.SetDefault("crawler.requests_per_second", 10)
	v.SetDefault("crawler.validate_concurrency", 50)
	v.SetDefault("crawler.fetch_concurrency", 30)

	v.SetDefault("scheduler.cooldown", "60s")
	v.SetDefault("scheduler.max_retries", 2)
	v.SetDefault("scheduler.cluster_cap", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Crawler.ValidateConcurrency <= 0 {
		return fmt.Errorf("crawler.validate_concurrency must be positive")
	}
	if c.Crawler.FetchConcurrency <= 0 {
		return fmt.Errorf("crawler.fetch_concurrency must be positive")
	}
	if c.Crawler.RequestsPerSecond <= 0 {
		return fmt.Errorf("crawler.requests_per_second must be positive")
	}
	if c.Scheduler.Cooldown <= 0 {
		return fmt.Errorf("scheduler.cooldown must be positive")
	}
	if c.Scheduler.MaxRetries < 0 {
		return fmt.Errorf("scheduler.max_retries must not be negative")
	}
	for _, p := range c.Providers {
		if p.Vendor == "" {
			return fmt.Errorf("provider %q has no vendor", p.Name)
		}
		if p.Vendor != "local" && p.APIKey == "" {
			return fmt.Errorf("provider %q (%s) has no API key", p.Name, p.Vendor)
		}
	}
	return nil
}
