package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Finance FinanceConfig `yaml:"finance" mapstructure:"finance"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Archive ArchiveConfig `yaml:"archive" mapstructure:"archive"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr                string   `yaml:"addr" mapstructure:"addr"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
	CORSOrigins         []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	MaxBodyBytes        int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LLMConfig selects the text-generation provider and its limits.
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"`
	Model             string  `yaml:"model" mapstructure:"model"`
	AnthropicKey      string  `yaml:"anthropic_api_key" mapstructure:"anthropic_api_key"`
	OpenAIKey         string  `yaml:"openai_api_key" mapstructure:"openai_api_key"`
	DeepseekKey       string  `yaml:"deepseek_api_key" mapstructure:"deepseek_api_key"`
	GeminiKey         string  `yaml:"gemini_api_key" mapstructure:"gemini_api_key"`
	OpenAIBaseURL     string  `yaml:"openai_base_url" mapstructure:"openai_base_url"`
	DeepseekBaseURL   string  `yaml:"deepseek_base_url" mapstructure:"deepseek_base_url"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// FinanceConfig holds the fixed assumptions of the projection model.
type FinanceConfig struct {
	DiscountRate        float64 `yaml:"discount_rate" mapstructure:"discount_rate"`
	OpexGrowthRate      float64 `yaml:"opex_growth_rate" mapstructure:"opex_growth_rate"`
	DefaultHorizonYears int     `yaml:"default_horizon_years" mapstructure:"default_horizon_years"`
	MaxHorizonYears     int     `yaml:"max_horizon_years" mapstructure:"max_horizon_years"`
}

// StoreConfig configures report persistence.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Path   string `yaml:"path" mapstructure:"path"`
}

// ExportConfig configures document rendering.
type ExportConfig struct {
	ChromePath     string `yaml:"chrome_path" mapstructure:"chrome_path"`
	PDFTimeoutSecs int    `yaml:"pdf_timeout_secs" mapstructure:"pdf_timeout_secs"`
	PageFormat     string `yaml:"page_format" mapstructure:"page_format"`
}

// ArchiveConfig configures optional S3 upload of exported documents.
type ArchiveConfig struct {
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	Region string `yaml:"region" mapstructure:"region"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	Insecure    bool   `yaml:"insecure" mapstructure:"insecure"`
}

var (
	providers = map[string]bool{"anthropic": true, "openai": true, "deepseek": true, "gemini": true, "static": true}
	drivers   = map[string]bool{"sqlite": true, "file": true, "memory": true}
	formats   = map[string]bool{"A4": true, "Letter": true}
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BIZCASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.deepseek_api_key", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.deepseek_base_url", "https://api.deepseek.com/v1")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout_secs", 120)
	v.SetDefault("llm.requests_per_second", 2.0)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("finance.discount_rate", 0.10)
	v.SetDefault("finance.opex_growth_rate", 0.10)
	v.SetDefault("finance.default_horizon_years", 5)
	v.SetDefault("finance.max_horizon_years", 10)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "bizcase.db")
	v.SetDefault("export.chrome_path", "")
	v.SetDefault("export.pdf_timeout_secs", 60)
	v.SetDefault("export.page_format", "A4")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "reports/")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "bizcase")
	v.SetDefault("tracing.insecure", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.LLM.applyVendorEnv()

	return &cfg, nil
}

// applyVendorEnv falls back to each vendor's conventional key variable.
func (c *LLMConfig) applyVendorEnv() {
	fallback := func(dst *string, env string) {
		if *dst == "" {
			*dst = strings.TrimSpace(os.Getenv(env))
		}
	}
	fallback(&c.AnthropicKey, "ANTHROPIC_API_KEY")
	fallback(&c.OpenAIKey, "OPENAI_API_KEY")
	fallback(&c.DeepseekKey, "DEEPSEEK_API_KEY")
	fallback(&c.GeminiKey, "GEMINI_API_KEY")
}

// APIKey returns the key for the configured provider.
func (c LLMConfig) APIKey() string {
	switch c.Provider {
	case "anthropic":
		return c.AnthropicKey
	case "openai":
		return c.OpenAIKey
	case "deepseek":
		return c.DeepseekKey
	case "gemini":
		return c.GeminiKey
	}
	return ""
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []string

	if !providers[c.LLM.Provider] {
		errs = append(errs, "llm.provider must be one of anthropic, openai, deepseek, gemini, static")
	}
	if c.LLM.MaxAttempts < 1 {
		errs = append(errs, "llm.max_attempts must be at least 1")
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, "llm.max_tokens must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "llm.temperature must be in [0, 2]")
	}
	if c.Finance.DiscountRate <= -1 || c.Finance.DiscountRate > 1 {
		errs = append(errs, "finance.discount_rate must be in (-1, 1]")
	}
	if c.Finance.OpexGrowthRate < 0 || c.Finance.OpexGrowthRate > 1 {
		errs = append(errs, "finance.opex_growth_rate must be in [0, 1]")
	}
	if c.Finance.MaxHorizonYears < 1 || c.Finance.MaxHorizonYears > 50 {
		errs = append(errs, "finance.max_horizon_years must be in [1, 50]")
	}
	if c.Finance.DefaultHorizonYears < 1 || c.Finance.DefaultHorizonYears > c.Finance.MaxHorizonYears {
		errs = append(errs, "finance.default_horizon_years must be in [1, max_horizon_years]")
	}
	if !drivers[c.Store.Driver] {
		errs = append(errs, "store.driver must be one of sqlite, file, memory")
	}
	if c.Store.Driver != "memory" && strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, "store.path is required for driver "+c.Store.Driver)
	}
	if !formats[c.Export.PageFormat] {
		errs = append(errs, "export.page_format must be A4 or Letter")
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, "server.max_body_bytes must be positive")
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
