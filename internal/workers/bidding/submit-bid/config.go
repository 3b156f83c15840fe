// internal/workers/bidding/submit-bid/config.go
package submitbid

import (
	"time"

	"marketplace-workers/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	NotifyTimeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		Timeout:       config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		NotifyTimeout: config.GetDuration(cfg.Notifications.Timeout),
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 5 * time.Second
	}
	return c
}
