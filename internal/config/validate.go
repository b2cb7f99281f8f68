package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks configuration invariants that normalize cannot repair.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return fmt.Errorf("paths.work_dir is required")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return fmt.Errorf("paths.output_dir is required")
	}
	if c.Paths.WorkDir == c.Paths.OutputDir {
		return fmt.Errorf("paths.output_dir must differ from paths.work_dir")
	}
	if c.Queue.BaseURL != "" {
		if err := validateURL("queue.base_url", c.Queue.BaseURL); err != nil {
			return err
		}
	}
	if c.Feed.ChannelURL != "" {
		if err := validateURL("feed.channel_url", c.Feed.ChannelURL); err != nil {
			return err
		}
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func validateURL(field, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: unsupported scheme %q", field, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: missing host", field)
	}
	return nil
}
