// internal/notifier/config.go
package notifier

import (
	"time"

	"marketplace-workers/internal/common/config"
)

type Config struct {
	PushEnabled  bool
	EmailEnabled bool
	FromEmail    string
	DedupTTL     time.Duration
	Timeout      time.Duration
}

func LoadConfig(cfg config.NotificationConfig) *Config {
	c := &Config{
		PushEnabled:  cfg.Push.Enabled,
		EmailEnabled: cfg.Email.Enabled,
		FromEmail:    cfg.Email.FromEmail,
		DedupTTL:     config.GetDuration(cfg.DedupTTL),
		Timeout:      config.GetDuration(cfg.Timeout),
	}
	if c.DedupTTL <= 0 {
		c.DedupTTL = time.Minute
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	return c
}
