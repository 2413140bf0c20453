// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"

	SourceRules     = "rules"
	SourceGenerator = "generator"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// Enables overrides such as STORAGE_DRIVER or GENERATOR_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finalize(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finalize(v)
}

func finalize(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads .env from the first location that has one.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from well-known variables when the file left them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Generator.APIKey == "" {
		if val := os.Getenv("OPENAI_API_KEY"); val != "" {
			cfg.Generator.APIKey = val
		}
	}
	if cfg.Storage.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Storage.Postgres.User = val
		}
	}
	if cfg.Storage.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Storage.Postgres.Password = val
		}
	}
	if cfg.Storage.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Storage.Redis.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "mental-triage"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 90000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}
	if cfg.Server.SessionIdleTTL == 0 {
		cfg.Server.SessionIdleTTL = 1800
	}

	if cfg.Conversation.MaxMessageLength == 0 {
		cfg.Conversation.MaxMessageLength = 1000
	}
	if cfg.Conversation.AnalysisSource == "" {
		cfg.Conversation.AnalysisSource = SourceRules
	}
	if cfg.Conversation.SchemaVersion == "" {
		cfg.Conversation.SchemaVersion = "1.0"
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverFile
	}
	if cfg.Storage.File.Dir == "" {
		cfg.Storage.File.Dir = "data/conversations"
	}
	if cfg.Storage.Postgres.Port == 0 {
		cfg.Storage.Postgres.Port = 5432
	}
	if cfg.Storage.Postgres.MaxConnections == 0 {
		cfg.Storage.Postgres.MaxConnections = 25
	}
	if cfg.Storage.Postgres.MaxIdle == 0 {
		cfg.Storage.Postgres.MaxIdle = 5
	}
	if cfg.Storage.Postgres.SSLMode == "" {
		cfg.Storage.Postgres.SSLMode = "disable"
	}
	if cfg.Storage.Redis.KeyPrefix == "" {
		cfg.Storage.Redis.KeyPrefix = "triage"
	}

	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-4o-mini"
	}
	if cfg.Generator.Timeout == 0 {
		cfg.Generator.Timeout = 60000
	}
	if cfg.Generator.MaxRetries == 0 {
		cfg.Generator.MaxRetries = 2
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 1500
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Conversation.MaxMessageLength < 0 {
		return fmt.Errorf("conversation.max_message_length must be positive")
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be between 0 and 1, got %v", cfg.Tracing.SampleRatio)
	}

	switch cfg.Conversation.AnalysisSource {
	case SourceRules:
	case SourceGenerator:
		if cfg.Generator.APIKey == "" {
			return fmt.Errorf("generator.api_key is required when conversation.analysis_source is generator")
		}
	default:
		return fmt.Errorf("conversation.analysis_source must be %q or %q, got %q",
			SourceRules, SourceGenerator, cfg.Conversation.AnalysisSource)
	}

	switch cfg.Storage.Driver {
	case DriverFile:
		if cfg.Storage.File.Dir == "" {
			return fmt.Errorf("storage.file.dir is required")
		}
	case DriverPostgres:
		if cfg.Storage.Postgres.Host == "" {
			return fmt.Errorf("storage.postgres.host is required")
		}
		if cfg.Storage.Postgres.Database == "" {
			return fmt.Errorf("storage.postgres.database is required")
		}
		if cfg.Storage.Postgres.User == "" {
			return fmt.Errorf("storage.postgres.user is required")
		}
	case DriverRedis:
		if cfg.Storage.Redis.Address == "" {
			return fmt.Errorf("storage.redis.address is required")
		}
	default:
		return fmt.Errorf("storage.driver must be one of file, postgres, redis, got %q", cfg.Storage.Driver)
	}

	if cfg.Alerts.Enabled {
		if cfg.Alerts.Region == "" {
			return fmt.Errorf("alerts.region is required when alerts are enabled")
		}
		if cfg.Alerts.SNS.Enabled && cfg.Alerts.SNS.TopicARN == "" {
			return fmt.Errorf("alerts.sns.topic_arn is required when sns alerts are enabled")
		}
		if cfg.Alerts.SES.Enabled && (cfg.Alerts.SES.FromEmail == "" || len(cfg.Alerts.SES.To) == 0) {
			return fmt.Errorf("alerts.ses.from_email and alerts.ses.to are required when ses alerts are enabled")
		}
	}

	return nil
}
