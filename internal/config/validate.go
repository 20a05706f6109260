package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSidecar(); err != nil {
		return err
	}
	if err := c.validateFilter(); err != nil {
		return err
	}
	if err := c.validateVerify(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSidecar() error {
	if c.Sidecar.FileName == "" {
		return errors.New("sidecar.file_name must be set")
	}
	if strings.ContainsAny(c.Sidecar.FileName, "/\\") {
		return fmt.Errorf("sidecar.file_name %q must be a bare file name", c.Sidecar.FileName)
	}
	if c.Sidecar.HashTool == "" {
		return errors.New("sidecar.hash_tool must be set")
	}
	return nil
}

func (c *Config) validateFilter() error {
	if err := c.FileFilter().Validate(); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if c.Filter.MinSizeBytes < 0 {
		return errors.New("filter.min_size_bytes must not be negative")
	}
	if c.Filter.MaxSizeBytes < 0 {
		return errors.New("filter.max_size_bytes must not be negative")
	}
	if c.Filter.MaxSizeBytes > 0 && c.Filter.MinSizeBytes > c.Filter.MaxSizeBytes {
		return errors.New("filter.min_size_bytes must not exceed filter.max_size_bytes")
	}
	return nil
}

func (c *Config) validateVerify() error {
	if c.Verify.Percent < 0 || c.Verify.Percent > 100 {
		return fmt.Errorf("verify.percent must be between 0 and 100, got %d", c.Verify.Percent)
	}
	if c.Verify.ToolTimeoutSeconds < 0 {
		return errors.New("verify.tool_timeout_seconds must not be negative")
	}
	if c.Verify.LockWaitSeconds < 0 {
		return errors.New("verify.lock_wait_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}
