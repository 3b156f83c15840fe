// internal/workers/bidding/hire-bid/config.go
package hirebid

import (
	"time"

	"marketplace-workers/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	NotifyTimeout time.Duration
	MaxAttempts   int
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		Timeout:       config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		NotifyTimeout: config.GetDuration(cfg.Notifications.Timeout),
		MaxAttempts:   cfg.Bidding.HireAttempts,
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	return c
}
