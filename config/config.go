// Package config loads editor settings from YAML on top of built-in
// defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/milk9111/tilemap/chunks"
	"github.com/milk9111/tilemap/render"
)

var ErrInvalidConfig = errors.New("invalid config")

//go:embed default.yaml
var defaultYAML []byte

type Config struct {
	TileSize     int         `yaml:"tile_size"`
	ChunkSize    int         `yaml:"chunk_size"`
	ItemSize     float64     `yaml:"item_size"`
	UndoDepth    int         `yaml:"undo_depth"`
	ApplyPerTick int         `yaml:"apply_per_tick"`
	RenderCache  CacheConfig `yaml:"render_cache"`
	Log          LogConfig   `yaml:"log"`
	ScriptsDir   string      `yaml:"scripts_dir"`
}

type CacheConfig struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the built-in settings.
func Default() Config {
	var c Config
	if err := yaml.Unmarshal(defaultYAML, &c); err != nil {
		panic(fmt.Sprintf("config: embedded default.yaml: %v", err))
	}
	return c
}

// Parse overlays data on the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads the YAML file at path. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

func (c Config) Validate() error {
	if err := c.Geometry().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.UndoDepth < 0 {
		return fmt.Errorf("%w: undo_depth %d", ErrInvalidConfig, c.UndoDepth)
	}
	if c.ApplyPerTick < 0 {
		return fmt.Errorf("%w: apply_per_tick %d", ErrInvalidConfig, c.ApplyPerTick)
	}
	if c.RenderCache.NumCounters < 0 || c.RenderCache.MaxCost < 0 {
		return fmt.Errorf("%w: render_cache sizes must not be negative", ErrInvalidConfig)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// Geometry is the grid every store in the session is built on.
func (c Config) Geometry() chunks.Geometry {
	return chunks.Geometry{TileSize: c.TileSize, ChunkSize: c.ChunkSize, ItemSize: c.ItemSize}
}

func (c Config) Cache() render.Config {
	return render.Config{NumCounters: c.RenderCache.NumCounters, MaxCost: c.RenderCache.MaxCost}
}
