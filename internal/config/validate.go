package config

import (
	"fmt"
	"strings"
)

var changeDetectionValues = map[string]struct{}{
	"remote-flag": {},
	"timestamp":   {},
}

// Validate checks configuration values for consistency.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return fmt.Errorf("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ManifestPath) == "" {
		return fmt.Errorf("paths.manifest_path must be set")
	}
	if strings.TrimSpace(c.GOG.BaseURL) == "" {
		return fmt.Errorf("gog.base_url must be set")
	}
	if c.GOG.TimeoutSeconds <= 0 {
		return fmt.Errorf("gog.timeout_seconds must be positive, got %d", c.GOG.TimeoutSeconds)
	}
	if c.GOG.PageSize <= 0 {
		return fmt.Errorf("gog.page_size must be positive, got %d", c.GOG.PageSize)
	}
	if c.Fetch.Workers <= 0 {
		return fmt.Errorf("fetch.workers must be positive, got %d", c.Fetch.Workers)
	}
	if c.Fetch.CheckpointInterval <= 0 {
		return fmt.Errorf("fetch.checkpoint_interval must be positive, got %d", c.Fetch.CheckpointInterval)
	}
	if c.Fetch.MaxConsecutiveFailures <= 0 {
		return fmt.Errorf("fetch.max_consecutive_failures must be positive, got %d", c.Fetch.MaxConsecutiveFailures)
	}
	if c.Fetch.MinFreeSpaceGiB < 0 {
		return fmt.Errorf("fetch.min_free_space_gib must not be negative, got %d", c.Fetch.MinFreeSpaceGiB)
	}
	if _, ok := changeDetectionValues[c.Fetch.ChangeDetection]; !ok {
		return fmt.Errorf("fetch.change_detection: unsupported value %q (use remote-flag or timestamp)", c.Fetch.ChangeDetection)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
