package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"crewdesk/internal/model"
)

// DefaultRewardPoints is the fixed grant for an approved on-time task.
const DefaultRewardPoints = 10

// Config keeps runtime settings for the service.
type Config struct {
	DatabaseURL    string        `mapstructure:"database_url"`
	HTTPAddr       string        `mapstructure:"http_addr"`
	TelegramToken  string        `mapstructure:"telegram_token"`
	AdminTelegram  []int64       `mapstructure:"admin_telegram_ids"`
	Timezone       string        `mapstructure:"timezone"`
	RewardPoints   int           `mapstructure:"reward_points"`
	GenerateAt     string        `mapstructure:"generate_at"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	ReportInterval time.Duration `mapstructure:"report_interval"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	Log            LogConfig     `mapstructure:"log"`

	Location *time.Location `mapstructure:"-"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Load reads configuration from an optional file and CREWDESK_* environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("crewdesk")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "data/crewdesk.db"
	}
	if cfg.RewardPoints <= 0 {
		cfg.RewardPoints = DefaultRewardPoints
	}

	loc, err := time.LoadLocation(strings.TrimSpace(cfg.Timezone))
	if err != nil {
		return cfg, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if _, _, err := model.ParseClock(cfg.GenerateAt); err != nil {
		return cfg, fmt.Errorf("generate_at: %w", err)
	}
	if cfg.PollInterval < 0 || cfg.ReportInterval < 0 {
		return cfg, fmt.Errorf("intervals must not be negative")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "data/crewdesk.db")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("telegram_token", "")
	v.SetDefault("admin_telegram_ids", []int64{})
	v.SetDefault("timezone", "Local")
	v.SetDefault("reward_points", DefaultRewardPoints)
	v.SetDefault("generate_at", "00:05")
	v.SetDefault("poll_interval", 30*time.Second)
	v.SetDefault("report_interval", 5*time.Hour)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
}
