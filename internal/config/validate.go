package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if strings.TrimSpace(cfg.LogRoot) == "" {
		return fmt.Errorf("log_root must be set")
	}
	if strings.TrimSpace(cfg.ImageRoot) == "" {
		return fmt.Errorf("image_root must be set")
	}

	// log_file is joined under log_root, so it must be a bare file name
	if cfg.LogFile == "" {
		return fmt.Errorf("log_file must be set")
	}
	if cfg.LogFile != filepath.Base(cfg.LogFile) || cfg.LogFile == "." || cfg.LogFile == ".." {
		return fmt.Errorf("log_file %q must be a file name, not a path", cfg.LogFile)
	}

	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.TailLines <= 0 {
		return fmt.Errorf("tail_lines must be positive, got %d", cfg.TailLines)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", cfg.Port)
	}

	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log_format %q must be text or json", cfg.Log.Format)
	}

	return nil
}
