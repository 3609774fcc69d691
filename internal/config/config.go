package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	S3       S3Config
	Log      LogConfig
	Provider ProviderConfig
	Pipeline PipelineConfig
	Eval     EvalConfig
	Prompt   PromptConfig
	Store    StoreConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL settings for the optional experiment archive.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Enabled reports whether an archive database is configured.
func (d *DBConfig) Enabled() bool {
	return d.Host != ""
}

// S3Config holds settings for archiving final artifacts to object storage.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Enabled reports whether S3 archiving is configured.
func (s *S3Config) Enabled() bool {
	return s.Bucket != ""
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ProviderEndpointConfig holds settings for a single LLM provider.
type ProviderEndpointConfig struct {
	Provider     string  `mapstructure:"provider"`
	APIKey       string  `mapstructure:"api_key"`
	DefaultModel string  `mapstructure:"default_model"`
	Temperature  float64 `mapstructure:"temperature"`
	TimeoutSecs  int     `mapstructure:"timeout_secs"`
}

// ProviderConfig holds primary and optional secondary LLM provider settings.
type ProviderConfig struct {
	Primary   ProviderEndpointConfig `mapstructure:"primary"`
	Secondary ProviderEndpointConfig `mapstructure:"secondary"`
}

// SecondaryConfig returns the secondary provider config, or nil if unset.
func (p *ProviderConfig) SecondaryConfig() *ProviderEndpointConfig {
	if p.Secondary.Provider != "" {
		return &p.Secondary
	}
	return nil
}

// PipelineConfig holds extraction pipeline settings.
type PipelineConfig struct {
	ChunkWordBudget int           `mapstructure:"chunk_word_budget"`
	Concurrency     int           `mapstructure:"concurrency"`
	RetryCeiling    int           `mapstructure:"retry_ceiling"`
	BackoffBase     time.Duration `mapstructure:"backoff_base"`
	ChunkTimeout    time.Duration `mapstructure:"chunk_timeout"`
}

// EvalConfig holds the fuzzy-matching scorer constants. The weights are
// empirically tuned; the defaults guarantee that an exact address with an
// equal category always clears the threshold while a category mismatch on
// the same address never does.
type EvalConfig struct {
	AddressWeight  float64 `mapstructure:"address_weight"`
	CategoryWeight float64 `mapstructure:"category_weight"`
	TextWeight     float64 `mapstructure:"text_weight"`
	Threshold      float64 `mapstructure:"threshold"`
	NearMissFloor  float64 `mapstructure:"near_miss_floor"`
}

// PromptConfig locates the versioned prompt directory.
type PromptConfig struct {
	Dir string `mapstructure:"dir"`
}

// StoreConfig locates the local run-artifact directory.
type StoreConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the PCAX_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PCAX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults (archive disabled unless a host is set)
	v.SetDefault("db.host", "")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "pcax")
	v.SetDefault("db.password", "pcax_secret")
	v.SetDefault("db.name", "pcax_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// S3 archive defaults (disabled unless a bucket is set)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	// Provider defaults
	v.SetDefault("provider.primary.provider", "gemini")
	v.SetDefault("provider.primary.api_key", "")
	v.SetDefault("provider.primary.default_model", "gemini-2.5-flash")
	v.SetDefault("provider.primary.temperature", 0.1)
	v.SetDefault("provider.primary.timeout_secs", 120)
	v.SetDefault("provider.secondary.provider", "")
	v.SetDefault("provider.secondary.api_key", "")
	v.SetDefault("provider.secondary.default_model", "")
	v.SetDefault("provider.secondary.temperature", 0.1)
	v.SetDefault("provider.secondary.timeout_secs", 120)

	// Pipeline defaults
	v.SetDefault("pipeline.chunk_word_budget", 3500)
	v.SetDefault("pipeline.concurrency", 3)
	v.SetDefault("pipeline.retry_ceiling", 3)
	v.SetDefault("pipeline.backoff_base", "2s")
	v.SetDefault("pipeline.chunk_timeout", "5m")

	// Eval defaults
	v.SetDefault("eval.address_weight", 0.5)
	v.SetDefault("eval.category_weight", 0.35)
	v.SetDefault("eval.text_weight", 0.15)
	v.SetDefault("eval.threshold", 0.75)
	v.SetDefault("eval.near_miss_floor", 0.25)

	// Prompt / store defaults
	v.SetDefault("prompt.dir", "prompts")
	v.SetDefault("store.output_dir", "outputs/runs")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                      "PCAX_SERVER_PORT",
		"server.read_timeout":              "PCAX_SERVER_READ_TIMEOUT",
		"server.write_timeout":             "PCAX_SERVER_WRITE_TIMEOUT",
		"server.environment":               "PCAX_SERVER_ENVIRONMENT",
		"db.host":                          "PCAX_DB_HOST",
		"db.port":                          "PCAX_DB_PORT",
		"db.user":                          "PCAX_DB_USER",
		"db.password":                      "PCAX_DB_PASSWORD",
		"db.name":                          "PCAX_DB_NAME",
		"db.sslmode":                       "PCAX_DB_SSLMODE",
		"db.max_open":                      "PCAX_DB_MAX_OPEN",
		"db.max_idle":                      "PCAX_DB_MAX_IDLE",
		"s3.region":                        "PCAX_S3_REGION",
		"s3.bucket":                        "PCAX_S3_BUCKET",
		"s3.endpoint":                      "PCAX_S3_ENDPOINT",
		"s3.access_key":                    "PCAX_S3_ACCESS_KEY",
		"s3.secret_key":                    "PCAX_S3_SECRET_KEY",
		"log.level":                        "PCAX_LOG_LEVEL",
		"log.format":                       "PCAX_LOG_FORMAT",
		"log.file":                         "PCAX_LOG_FILE",
		"provider.primary.provider":        "PCAX_PROVIDER_PRIMARY_PROVIDER",
		"provider.primary.api_key":         "PCAX_PROVIDER_PRIMARY_API_KEY",
		"provider.primary.default_model":   "PCAX_PROVIDER_PRIMARY_DEFAULT_MODEL",
		"provider.primary.temperature":     "PCAX_PROVIDER_PRIMARY_TEMPERATURE",
		"provider.primary.timeout_secs":    "PCAX_PROVIDER_PRIMARY_TIMEOUT_SECS",
		"provider.secondary.provider":      "PCAX_PROVIDER_SECONDARY_PROVIDER",
		"provider.secondary.api_key":       "PCAX_PROVIDER_SECONDARY_API_KEY",
		"provider.secondary.default_model": "PCAX_PROVIDER_SECONDARY_DEFAULT_MODEL",
		"provider.secondary.temperature":   "PCAX_PROVIDER_SECONDARY_TEMPERATURE",
		"provider.secondary.timeout_secs":  "PCAX_PROVIDER_SECONDARY_TIMEOUT_SECS",
		"pipeline.chunk_word_budget":       "PCAX_PIPELINE_CHUNK_WORD_BUDGET",
		"pipeline.concurrency":             "PCAX_PIPELINE_CONCURRENCY",
		"pipeline.retry_ceiling":           "PCAX_PIPELINE_RETRY_CEILING",
		"pipeline.backoff_base":            "PCAX_PIPELINE_BACKOFF_BASE",
		"pipeline.chunk_timeout":           "PCAX_PIPELINE_CHUNK_TIMEOUT",
		"eval.address_weight":              "PCAX_EVAL_ADDRESS_WEIGHT",
		"eval.category_weight":             "PCAX_EVAL_CATEGORY_WEIGHT",
		"eval.text_weight":                 "PCAX_EVAL_TEXT_WEIGHT",
		"eval.threshold":                   "PCAX_EVAL_THRESHOLD",
		"eval.near_miss_floor":             "PCAX_EVAL_NEAR_MISS_FLOOR",
		"prompt.dir":                       "PCAX_PROMPT_DIR",
		"store.output_dir":                 "PCAX_STORE_OUTPUT_DIR",
		"cors.allowed_origins":             "PCAX_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if PCAX_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("PCAX_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		File:   v.GetString("log.file"),
	}
	cfg.Provider = ProviderConfig{
		Primary: ProviderEndpointConfig{
			Provider:     v.GetString("provider.primary.provider"),
			APIKey:       v.GetString("provider.primary.api_key"),
			DefaultModel: v.GetString("provider.primary.default_model"),
			Temperature:  v.GetFloat64("provider.primary.temperature"),
			TimeoutSecs:  v.GetInt("provider.primary.timeout_secs"),
		},
		Secondary: ProviderEndpointConfig{
			Provider:     v.GetString("provider.secondary.provider"),
			APIKey:       v.GetString("provider.secondary.api_key"),
			DefaultModel: v.GetString("provider.secondary.default_model"),
			Temperature:  v.GetFloat64("provider.secondary.temperature"),
			TimeoutSecs:  v.GetInt("provider.secondary.timeout_secs"),
		},
	}
	cfg.Pipeline = PipelineConfig{
		ChunkWordBudget: v.GetInt("pipeline.chunk_word_budget"),
		Concurrency:     v.GetInt("pipeline.concurrency"),
		RetryCeiling:    v.GetInt("pipeline.retry_ceiling"),
		BackoffBase:     v.GetDuration("pipeline.backoff_base"),
		ChunkTimeout:    v.GetDuration("pipeline.chunk_timeout"),
	}
	cfg.Eval = EvalConfig{
		AddressWeight:  v.GetFloat64("eval.address_weight"),
		CategoryWeight: v.GetFloat64("eval.category_weight"),
		TextWeight:     v.GetFloat64("eval.text_weight"),
		Threshold:      v.GetFloat64("eval.threshold"),
		NearMissFloor:  v.GetFloat64("eval.near_miss_floor"),
	}
	cfg.Prompt = PromptConfig{Dir: v.GetString("prompt.dir")}
	cfg.Store = StoreConfig{OutputDir: v.GetString("store.output_dir")}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	return cfg, nil
}
