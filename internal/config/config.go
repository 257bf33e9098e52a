package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port             int    `env:"PORT" envDefault:"8080"`
	DatabaseURL      string `env:"DATABASE_URL,required"`
	RedisURL         string `env:"REDIS_URL,required"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	BridgeCmd        string `env:"TELEGRAM_BRIDGE_CMD" envDefault:"tdbridge"`
	TdlibDatabaseDir string `env:"TDLIB_DATABASE_DIR" envDefault:"./tdlib-db"`
	TdlibFilesDir    string `env:"TDLIB_FILES_DIR" envDefault:"./tdlib-files"`
	ExportsDir       string `env:"EXPORTS_DIR" envDefault:"./exports"`
	QueueConcurrency int    `env:"QUEUE_CONCURRENCY" envDefault:"2"`
	QueueMaxAttempts int    `env:"QUEUE_MAX_ATTEMPTS" envDefault:"3"`
	ExportTTLDays    int    `env:"EXPORT_TTL_DAYS" envDefault:"7"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) ExportTTL() time.Duration {
	return time.Duration(c.ExportTTLDays) * 24 * time.Hour
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
