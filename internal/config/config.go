package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN       string `env:"DATABASE_DSN,required=true"`
	RedisURL          string `env:"REDIS_URL,required=true"`
	MailRelayURL      string `env:"MAIL_RELAY_URL,required=true"`
	MonitorTriggerKey string `env:"MONITOR_TRIGGER_KEY,required=true"`
	AMQPURL           string `env:"AMQP_URL"`
	WindowHours       int    `env:"WINDOW_HOURS,default=24"`
	MaxEmailsPerRun   int    `env:"MAX_EMAILS_PER_RUN,default=1000"`
	MailRatePerSec    int    `env:"MAIL_RATE_PER_SEC,default=10"`
	APIPort           int    `env:"API_PORT,default=8080"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
