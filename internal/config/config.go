// Package config loads runtime configuration from a config file, environment
// variables, and .env, in that order of increasing precedence for env values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Prompts  PromptsConfig  `mapstructure:"prompts"`
	Output   OutputConfig   `mapstructure:"output"`
	Log      LogConfig      `mapstructure:"log"`
}

// APIConfig configures the LLM transport.
type APIConfig struct {
	Provider       string  `mapstructure:"provider"` // "openrouter" or "gemini"
	Key            string  `mapstructure:"key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxRetries     int     `mapstructure:"max_retries"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	RPS            float64 `mapstructure:"rps"`
	Burst          int     `mapstructure:"burst"`
}

// Timeout returns the base per-attempt timeout.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// PipelineConfig configures generation behavior.
type PipelineConfig struct {
	NumIdeas         int    `mapstructure:"num_ideas"`
	BatchSize        int    `mapstructure:"batch_size"`
	MaxFormatRetries int    `mapstructure:"max_format_retries"`
	Workers          int    `mapstructure:"workers"`
	Schema           string `mapstructure:"schema"` // "rich" or "minimal"
}

// PromptsConfig locates the prompt template files.
type PromptsConfig struct {
	Dir string `mapstructure:"dir"`
}

// OutputConfig controls where artifacts land.
type OutputConfig struct {
	Dir        string `mapstructure:"dir"`
	WorkingDir string `mapstructure:"working_dir"` // defaults to a timestamp
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load reads configuration. path may be empty, in which case config.yaml in
// the current directory is used when present and defaults otherwise. An
// explicitly given path that does not exist is an error.
func Load(path string) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("IDEAPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.API.Key == "" {
		switch cfg.API.Provider {
		case "gemini":
			cfg.API.Key = os.Getenv("GEMINI_API_KEY")
		default:
			cfg.API.Key = os.Getenv("OPENROUTER_API_KEY")
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("api.provider", "openrouter")
	v.SetDefault("api.model", "meta-llama/llama-3.3-70b-instruct")
	v.SetDefault("api.timeout_seconds", 60)
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.max_tokens", 2000)
	v.SetDefault("pipeline.num_ideas", 15)
	v.SetDefault("pipeline.batch_size", 25)
	v.SetDefault("pipeline.max_format_retries", 3)
	v.SetDefault("pipeline.workers", 5)
	v.SetDefault("pipeline.schema", "rich")
	v.SetDefault("prompts.dir", "prompts")
	v.SetDefault("output.dir", "output")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func validate(cfg *Config) error {
	switch cfg.API.Provider {
	case "openrouter", "gemini":
	default:
		return fmt.Errorf("config: unknown api.provider %q", cfg.API.Provider)
	}
	switch cfg.Pipeline.Schema {
	case "rich", "minimal":
	default:
		return fmt.Errorf("config: unknown pipeline.schema %q (valid: rich, minimal)", cfg.Pipeline.Schema)
	}
	if cfg.Pipeline.NumIdeas < 1 {
		return errors.New("config: pipeline.num_ideas must be at least 1")
	}
	if cfg.Pipeline.BatchSize < 1 {
		return errors.New("config: pipeline.batch_size must be at least 1")
	}
	return nil
}
