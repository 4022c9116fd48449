package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/motohub/core/internal/config"
	jwtpkg "github.com/motohub/core/internal/pkg/jwt"
	"github.com/motohub/core/internal/pkg/logging"
	"go.uber.org/zap"
)

// applyRuntimeSettings propagates config values into process-wide state
// that packages read at runtime.
func applyRuntimeSettings(cfg *config.AppConfig, logger *zap.Logger) error {
	if dir := cfg.LogDir(); dir != "" {
		if err := os.Setenv(logging.EnvLogDir, dir); err != nil {
			return fmt.Errorf("set log dir: %w", err)
		}
	}

	if cfg.JWTSecret == "" {
		logger.Warn("jwt_secret is empty, issued tokens use an insecure default")
	}
	jwtpkg.SetSecret(cfg.JWTSecret)

	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
		time.Local = loc
	}

	return nil
}

// humanizeDuration renders a duration as "2d 3h 4m 5s" for the uptime endpoint.
func humanizeDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	seconds := d - minutes*time.Minute

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds/time.Second))

	return strings.Join(parts, " ")
}
