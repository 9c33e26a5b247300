package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	LLM        LLM        `mapstructure:"llm"`
	Triage     Triage     `mapstructure:"triage"`
	Generation Generation `mapstructure:"generation"`
	Analysis   Analysis   `mapstructure:"analysis"`
	Vector     Vector     `mapstructure:"vector"`
	Email      Email      `mapstructure:"email"`
	Feeds      Feeds      `mapstructure:"feeds"`
	Output     Output     `mapstructure:"output"`
}

// App holds general application configuration
type App struct {
	Debug   bool   `mapstructure:"debug"`
	DataDir string `mapstructure:"data_dir"`
}

// LLM holds chat-completion endpoint configuration
type LLM struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Timeout     string  `mapstructure:"timeout"`
	Temperature float64 `mapstructure:"temperature"`
}

// Triage holds triage stage configuration
type Triage struct {
	MinConfidence  int `mapstructure:"min_confidence"`
	MaxTokens      int `mapstructure:"max_tokens"`
	AbstractBudget int `mapstructure:"abstract_budget"`
}

// Generation holds content generation stage configuration
type Generation struct {
	MaxTokens       int `mapstructure:"max_tokens"`
	ContextSnippets int `mapstructure:"context_snippets"`
}

// Analysis holds chunked comment analysis configuration
type Analysis struct {
	ChunkSize      int `mapstructure:"chunk_size"`
	Workers        int `mapstructure:"workers"`
	QuickThreshold int `mapstructure:"quick_threshold"`
	MaxTokens      int `mapstructure:"max_tokens"`
}

// Vector holds vector-search collaborator configuration
type Vector struct {
	Endpoint   string `mapstructure:"endpoint"`
	Token      string `mapstructure:"token"`
	Collection string `mapstructure:"collection"`
	Timeout    string `mapstructure:"timeout"`
	CacheTTL   string `mapstructure:"cache_ttl"`
}

// Email holds email configuration
type Email struct {
	SMTP        SMTPConfig `mapstructure:"smtp"`
	FromAddress string     `mapstructure:"from_address"`
	FromName    string     `mapstructure:"from_name"`
	Recipient   string     `mapstructure:"recipient"`
}

// SMTPConfig holds SMTP configuration
type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// Feeds holds journal feed configuration
type Feeds struct {
	UserAgent       string       `mapstructure:"user_agent"`
	Timeout         string       `mapstructure:"timeout"`
	MaxItemsPerFeed int          `mapstructure:"max_items_per_feed"`
	Sources         []FeedSource `mapstructure:"sources"`
}

// FeedSource is one configured journal feed with its tier weight
type FeedSource struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
	Tier int    `mapstructure:"tier"`
}

// Output holds output configuration
type Output struct {
	Directory string `mapstructure:"directory"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".cardiobrief")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".cardiobrief-cache")

	// LLM defaults. An empty api_key leaves the gateway disabled so every
	// stage runs in degraded mode instead of failing per call.
	viper.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("llm.model", "anthropic/claude-3.5-sonnet")
	viper.SetDefault("llm.timeout", "45s")
	viper.SetDefault("llm.temperature", 0.7)

	// Triage defaults
	viper.SetDefault("triage.min_confidence", 5)
	viper.SetDefault("triage.max_tokens", 500)
	viper.SetDefault("triage.abstract_budget", 2000)

	// Generation defaults
	viper.SetDefault("generation.max_tokens", 2000)
	viper.SetDefault("generation.context_snippets", 3)

	// Analysis defaults
	viper.SetDefault("analysis.chunk_size", 50)
	viper.SetDefault("analysis.workers", 4)
	viper.SetDefault("analysis.quick_threshold", 30)
	viper.SetDefault("analysis.max_tokens", 1500)

	// Vector defaults
	viper.SetDefault("vector.collection", "cardiology_articles")
	viper.SetDefault("vector.timeout", "15s")
	viper.SetDefault("vector.cache_ttl", "10m")

	// Email defaults
	viper.SetDefault("email.smtp.port", 587)
	viper.SetDefault("email.smtp.tls_enabled", true)
	viper.SetDefault("email.from_name", "CardioBrief")

	// Feeds defaults
	viper.SetDefault("feeds.user_agent", "CardioBrief/1.0")
	viper.SetDefault("feeds.timeout", "30s")
	viper.SetDefault("feeds.max_items_per_feed", 50)

	// Output defaults
	viper.SetDefault("output.directory", "digests")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("llm.api_key", []string{
		"OPENROUTER_API_KEY",
		"LLM_API_KEY",
	})

	bindEnvKeys("llm.model", []string{
		"OPENROUTER_MODEL",
	})

	bindEnvKeys("vector.endpoint", []string{
		"ASTRA_DB_API_ENDPOINT",
		"VECTOR_DB_ENDPOINT",
	})

	bindEnvKeys("vector.token", []string{
		"ASTRA_DB_APPLICATION_TOKEN",
		"VECTOR_DB_TOKEN",
	})

	bindEnvKeys("email.smtp.host", []string{
		"SMTP_HOST",
		"EMAIL_SMTP_HOST",
	})

	bindEnvKeys("email.smtp.username", []string{
		"SMTP_USERNAME",
		"EMAIL_USERNAME",
	})

	bindEnvKeys("email.smtp.password", []string{
		"SMTP_PASSWORD",
		"EMAIL_PASSWORD",
	})

	bindEnvKeys("email.recipient", []string{
		"DIGEST_RECIPIENT",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"CARDIOBRIEF_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.Output.Directory != "" {
		config.Output.Directory = expandPath(config.Output.Directory)
	}

	durations := map[string]string{
		"llm.timeout":      config.LLM.Timeout,
		"vector.timeout":   config.Vector.Timeout,
		"vector.cache_ttl": config.Vector.CacheTTL,
		"feeds.timeout":    config.Feeds.Timeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	if config.Triage.MinConfidence < 1 || config.Triage.MinConfidence > 10 {
		return fmt.Errorf("triage.min_confidence must be in [1, 10], got %d", config.Triage.MinConfidence)
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// MissingCapabilities reports every optional collaborator that is not
// configured. The result is logged once at startup; a missing capability
// degrades the relevant stage to a no-op instead of failing each call.
func (c *Config) MissingCapabilities() []string {
	var missing []string
	if c.LLM.APIKey == "" {
		missing = append(missing, "llm (set OPENROUTER_API_KEY)")
	}
	if c.Vector.Endpoint == "" || c.Vector.Token == "" {
		missing = append(missing, "vector search (set ASTRA_DB_API_ENDPOINT and ASTRA_DB_APPLICATION_TOKEN)")
	}
	if c.Email.SMTP.Host == "" || c.Email.SMTP.Username == "" || c.Email.SMTP.Password == "" {
		missing = append(missing, "email delivery (set SMTP_HOST, SMTP_USERNAME and SMTP_PASSWORD)")
	}
	return missing
}

// LLMTimeout returns the parsed LLM request timeout.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 45 * time.Second
	}
	return d
}

// VectorTimeout returns the parsed vector-search request timeout.
func (c *Config) VectorTimeout() time.Duration {
	d, err := time.ParseDuration(c.Vector.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// VectorCacheTTL returns the parsed retrieval cache TTL.
func (c *Config) VectorCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Vector.CacheTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// FeedTimeout returns the parsed feed fetch timeout.
func (c *Config) FeedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Feeds.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// DefaultFeedSources returns the built-in cardiology journal feeds used when
// no sources are configured.
func DefaultFeedSources() []FeedSource {
	return []FeedSource{
		{Name: "Circulation", URL: "https://www.ahajournals.org/action/showFeed?type=etoc&feed=rss&jc=circ", Tier: 1},
		{Name: "JACC", URL: "https://www.jacc.org/action/showFeed?type=etoc&feed=rss&jc=jacc", Tier: 1},
		{Name: "European Heart Journal", URL: "https://academic.oup.com/rss/site_5375/3243.xml", Tier: 1},
		{Name: "JAMA Cardiology", URL: "https://jamanetwork.com/rss/site_24/76.xml", Tier: 2},
		{Name: "Heart", URL: "https://heart.bmj.com/rss/current.xml", Tier: 2},
	}
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
