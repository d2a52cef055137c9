// Package config manages application configuration from environment
// variables, config files, and default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration. Values can be set via
// environment variables prefixed with BOT_ (e.g. BOT_DISCORD_TOKEN) or
// through config.yaml.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Context   ContextConfig   `mapstructure:"context"`
	Lexicon   LexiconConfig   `mapstructure:"lexicon"`
	Backfill  BackfillConfig  `mapstructure:"backfill"`
	Gainers   GainersConfig   `mapstructure:"gainers"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Publish   PublishConfig   `mapstructure:"publish"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DiscordConfig holds the connection and channel-scoping settings.
type DiscordConfig struct {
	Token       string   `mapstructure:"token"        validate:"required"`
	GuildID     string   `mapstructure:"guild_id"     validate:"required"`
	Channels    []string `mapstructure:"channels"     validate:"required,min=1"`
	PostChannel string   `mapstructure:"post_channel"`
	AdminUserID string   `mapstructure:"admin_user_id"`
}

// LedgerConfig locates the mention ledger document.
type LedgerConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// ContextConfig locates the per-day conversation log.
type ContextConfig struct {
	Dir      string `mapstructure:"dir"      validate:"required"`
	Timezone string `mapstructure:"timezone" validate:"required"`
	TailSize int    `mapstructure:"tail_size" validate:"min=1,max=2000"`
}

// LexiconConfig locates the symbol universe and blacklist.
type LexiconConfig struct {
	SymbolsPath string `mapstructure:"symbols_path" validate:"required"`
	Blacklist   string `mapstructure:"blacklist"`
}

// BackfillConfig tunes the catch-up scan.
type BackfillConfig struct {
	LookbackDays int `mapstructure:"lookback_days" validate:"min=1,max=365"`
}

// GainersConfig tunes the price-ranking queries.
type GainersConfig struct {
	FanOut int `mapstructure:"fan_out" validate:"min=1,max=16"`
}

// GeminiConfig holds the AI client settings.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"             validate:"required"`
	ModelName         string  `mapstructure:"model_name"          validate:"required"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=1,max=60"`
}

// PublishConfig controls the git mirror of the ledger.
type PublishConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	RepoDir string `mapstructure:"repo_dir" validate:"required_if=Enabled true"`
}

// TaskConfig describes one scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// LoadConfig loads and validates configuration from, in order of
// precedence: defaults, the YAML file at path, BOT_* environment
// variables. A missing config file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", true)

	v.SetDefault("ledger.path", "data/mentions.json")
	v.SetDefault("context.dir", "data/context")
	v.SetDefault("context.timezone", "Asia/Jerusalem")
	v.SetDefault("context.tail_size", 200)

	v.SetDefault("lexicon.symbols_path", "data/symbols.txt")

	v.SetDefault("backfill.lookback_days", 7)
	v.SetDefault("gainers.fan_out", 4)

	v.SetDefault("gemini.model_name", "gemini-2.0-flash")
	v.SetDefault("gemini.temperature", 1.0)
	v.SetDefault("gemini.max_retries", 2)
	v.SetDefault("gemini.retry_delay_seconds", 5)

	v.SetDefault("publish.enabled", false)

	v.SetDefault("scheduler.tasks", map[string]TaskConfig{
		"backfill":      {Enabled: true, Schedule: "0 */30 * * * *"},
		"daily_gainers": {Enabled: false, Schedule: "0 0 18 * * *"},
	})
}
