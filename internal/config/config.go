package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"scrub/internal/walk"
)

//go:embed sample_config.toml
var sampleConfig string

// Sidecar names the checksum file and the tool that produces its digests.
type Sidecar struct {
	FileName string `toml:"file_name"`
	HashTool string `toml:"hash_tool"`
}

// Filter selects which files are eligible for checksumming.
type Filter struct {
	Include      []string `toml:"include"`
	Exclude      []string `toml:"exclude"`
	MinSizeBytes int64    `toml:"min_size_bytes"`
	MaxSizeBytes int64    `toml:"max_size_bytes"`
}

// Verify contains scrubbing policy.
type Verify struct {
	// Percent is the share of all records a single verify run covers.
	Percent int `toml:"percent"`
	// ToolTimeoutSeconds bounds one hashing tool invocation. 0 disables the
	// bound, leaving a hung tool to block the run.
	ToolTimeoutSeconds int `toml:"tool_timeout_seconds"`
	// LockWaitSeconds is how long to wait for a sidecar's advisory lock
	// before skipping it.
	LockWaitSeconds int `toml:"lock_wait_seconds"`
}

// History configures the optional run audit log.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for scrub.
type Config struct {
	Sidecar Sidecar `toml:"sidecar"`
	Filter  Filter  `toml:"filter"`
	Verify  Verify  `toml:"verify"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/scrub/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// FileFilter converts the configured filter into the walk predicate.
func (c *Config) FileFilter() walk.Filter {
	return walk.Filter{
		Include: c.Filter.Include,
		Exclude: c.Filter.Exclude,
		MinSize: c.Filter.MinSizeBytes,
		MaxSize: c.Filter.MaxSizeBytes,
	}
}

// CreateSample writes the annotated sample configuration to target.
func CreateSample(target string) error {
	return os.WriteFile(target, []byte(sampleConfig), 0o644)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scrub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	c.Sidecar.FileName = strings.TrimSpace(c.Sidecar.FileName)
	c.Sidecar.HashTool = strings.TrimSpace(c.Sidecar.HashTool)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	expanded, err := ExpandPath(c.History.Path)
	if err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	c.History.Path = expanded
	return nil
}

// ExpandPath resolves ~ shortcuts and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
