// Package config loads the YAML configuration of the ffarc command.
//
// Every field has a default, so a missing file is not an error. Unknown
// keys are rejected to catch typos early.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	archive "github.com/meigma/ffarchive/core"
	"github.com/meigma/ffarchive/core/cache/disk"
	"github.com/meigma/ffarchive/core/cache/memory"
	"github.com/meigma/ffarchive/resolver"
)

// Cache kinds.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheDisk   = "disk"
)

// Config configures the registry behind the ffarc command.
type Config struct {
	// Root is the game installation: a directory or an http(s) URL.
	Root string `yaml:"root"`

	// Language selects the per-language data directory.
	// Default: en
	Language string `yaml:"language"`

	// LogLevel is one of debug, info, warn or error.
	// Default: info
	LogLevel string `yaml:"log_level"`

	// LZ4MaxProbe bounds the LZ4 block search past the pre-header.
	// Negative values search the whole entry.
	// Default: 64
	LZ4MaxProbe int `yaml:"lz4_max_probe"`

	// MaxEntrySize limits one entry's on-disk and decoded size in bytes.
	// 0 disables the limit.
	// Default: 256MB
	MaxEntrySize int64 `yaml:"max_entry_size"`

	// SnapshotDir stores index snapshots so unchanged archives open
	// without parsing their tables. Empty disables snapshots.
	SnapshotDir string `yaml:"snapshot_dir"`

	// Cache configures the decoded entry cache.
	Cache CacheConfig `yaml:"cache"`

	// Archives adds archive definitions or replaces defaults of the same
	// name.
	Archives []resolver.Definition `yaml:"archives"`
}

// CacheConfig configures the decoded entry cache.
type CacheConfig struct {
	// Kind is none, memory or disk.
	// Default: memory
	Kind string `yaml:"kind"`

	// Dir is the disk cache directory. Required for kind disk.
	Dir string `yaml:"dir"`

	// MaxBytes bounds the cached bytes. 0 means unbounded.
	MaxBytes int64 `yaml:"max_bytes"`

	// MaxEntries bounds the number of entries held by the memory cache.
	// Default: 1024
	MaxEntries int `yaml:"max_entries"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Root:         ".",
		Language:     resolver.DefaultLanguage,
		LogLevel:     "info",
		LZ4MaxProbe:  archive.DefaultLZ4MaxProbe,
		MaxEntrySize: archive.DefaultMaxEntrySize,
		Cache: CacheConfig{
			Kind:       CacheMemory,
			MaxEntries: memory.DefaultMaxEntries,
		},
	}
}

// LoadFile loads the configuration at path over the defaults.
// A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Root == "" {
		return errors.New("root is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.MaxEntrySize < 0 {
		return fmt.Errorf("max_entry_size %d is negative", c.MaxEntrySize)
	}
	switch strings.ToLower(c.Cache.Kind) {
	case "", CacheNone, CacheMemory:
	case CacheDisk:
		if c.Cache.Dir == "" {
			return errors.New("cache.dir is required for a disk cache")
		}
	default:
		return fmt.Errorf("unknown cache kind %q", c.Cache.Kind)
	}
	if c.Cache.MaxBytes < 0 {
		return fmt.Errorf("cache.max_bytes %d is negative", c.Cache.MaxBytes)
	}
	for i, d := range c.Archives {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("archives[%d]: name is required", i)
		}
		if len(d.Dirs) == 0 {
			return fmt.Errorf("archives[%d] (%s): dirs is required", i, d.Name)
		}
	}
	if err := resolver.ValidateDefinitions(append(resolver.DefaultDefinitions(c.Language), c.Archives...)); err != nil {
		return fmt.Errorf("archives: %w", err)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// MapOptions returns the archive map options the configuration implies.
func (c *Config) MapOptions() []archive.Option {
	return []archive.Option{
		archive.WithMaxProbe(c.LZ4MaxProbe),
		archive.WithMaxEntrySize(c.MaxEntrySize),
	}
}

// RegistryOptions returns options for resolver.New, including the entry
// cache the configuration selects.
func (c *Config) RegistryOptions(logger *slog.Logger) ([]resolver.Option, error) {
	opts := []resolver.Option{
		resolver.WithLanguage(c.Language),
		resolver.WithLogger(logger),
		resolver.WithMapOptions(c.MapOptions()...),
		resolver.WithDefinitions(c.Archives...),
	}
	if c.SnapshotDir != "" {
		opts = append(opts, resolver.WithSnapshotDir(c.SnapshotDir))
	}

	switch strings.ToLower(c.Cache.Kind) {
	case CacheMemory:
		entries := c.Cache.MaxEntries
		if entries <= 0 {
			entries = memory.DefaultMaxEntries
		}
		mc, err := memory.New(entries, memory.WithMaxBytes(c.Cache.MaxBytes))
		if err != nil {
			return nil, fmt.Errorf("memory cache: %w", err)
		}
		opts = append(opts, resolver.WithCache(mc))
	case CacheDisk:
		dc, err := disk.New(c.Cache.Dir, disk.WithMaxBytes(c.Cache.MaxBytes))
		if err != nil {
			return nil, fmt.Errorf("disk cache: %w", err)
		}
		opts = append(opts, resolver.WithCache(dc))
	}
	return opts, nil
}
