package mail

import (
	"github.com/motohub/core/internal/config"
)

// BuildMailConfig constructs a mail.Config from the application config so
// every caller builds the mailer consistently.
func BuildMailConfig(cfg *config.AppConfig) Config {
	if cfg == nil {
		return Config{}
	}
	mc := Config{
		Enable:  cfg.Mail.Enable,
		Host:    cfg.Mail.Host,
		Port:    cfg.Mail.Port,
		User:    cfg.Mail.User,
		Pass:    cfg.Mail.Pass,
		From:    cfg.Mail.From,
		ReplyTo: cfg.Mail.ReplyTo,
	}
	if cfg.Mail.ResendKey != "" {
		mc.UseResend = true
		mc.ResendKey = cfg.Mail.ResendKey
	}
	return mc
}
