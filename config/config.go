// Package config loads the process configuration from a TOML or YAML file.
//
// Values missing from the file keep their defaults; command-line flags are
// applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/textimage/fonts"
	"github.com/ByLCY/textimage/imagegen"
)

// File is the top-level configuration.
type File struct {
	// Engine selects the glyph engine: "canvas" or "opentype".
	Engine string `toml:"engine" yaml:"engine"`
	// Styles is an optional style preset file.
	Styles string       `toml:"styles" yaml:"styles"`
	Render RenderConfig `toml:"render" yaml:"render"`
	Cache  CacheConfig  `toml:"cache" yaml:"cache"`
	Fonts  FontsConfig  `toml:"fonts" yaml:"fonts"`
	Server ServerConfig `toml:"server" yaml:"server"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

// RenderConfig holds the default render parameters.
type RenderConfig struct {
	Font  string `toml:"font" yaml:"font"`
	Size  int    `toml:"size" yaml:"size"`
	Angle int    `toml:"angle" yaml:"angle"`
	// Width and Height cap the canvas; 0 derives the side from the text.
	Width      int    `toml:"width" yaml:"width"`
	Height     int    `toml:"height" yaml:"height"`
	Wrap       bool   `toml:"wrap" yaml:"wrap"`
	Colour     string `toml:"colour" yaml:"colour"`
	Background string `toml:"background" yaml:"background"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Dir     string `toml:"dir" yaml:"dir"`
}

// FontsConfig holds font directory settings.
type FontsConfig struct {
	Dir string `toml:"dir" yaml:"dir"`
	// Watch purges cached images of a font when its file changes.
	Watch bool `toml:"watch" yaml:"watch"`
	// Remote lists fonts to download into Dir at startup, e.g. "google:Roboto:400".
	Remote []string `toml:"remote" yaml:"remote"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level" yaml:"level"`
	// File is the log file path; empty logs to stderr.
	File string `toml:"file" yaml:"file"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb" yaml:"max_size_mb"`
}

// Default returns the built-in configuration.
func Default() *File {
	img := imagegen.DefaultConfig()
	return &File{
		Engine: imagegen.DefaultEngine,
		Render: RenderConfig{
			Font:       img.Font,
			Size:       img.SizePt,
			Angle:      img.Angle,
			Colour:     "#" + img.Colour.Hex(),
			Background: img.Background.String(),
		},
		Cache: CacheConfig{
			Enabled: img.CacheEnabled,
			Dir:     img.CacheDirectory,
		},
		Fonts: FontsConfig{
			Dir: img.FontDirectory,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// Load reads path, choosing the format by extension (.toml, .yaml, .yml).
// An empty path returns Default.
func Load(path string) (*File, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析 TOML 配置失败: %w", err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("解析 YAML 配置失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的配置文件格式 %q（仅支持 .toml/.yaml/.yml）", filepath.Ext(path))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("校验配置失败: %w", err)
	}
	return cfg, nil
}

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all values are usable.
func (f *File) Validate() error {
	if _, err := imagegen.NewEngine(f.Engine); err != nil {
		return err
	}
	if !validLogLevels[strings.ToLower(f.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", f.Log.Level)
	}
	if f.Log.MaxSizeMB < 0 {
		return fmt.Errorf("log.max_size_mb must be >= 0, got %d", f.Log.MaxSizeMB)
	}
	for _, spec := range f.Fonts.Remote {
		if _, err := fonts.RemoteFileName(spec); err != nil {
			return fmt.Errorf("invalid fonts.remote entry %q: want google:Family:Weight: %w", spec, err)
		}
	}
	if _, err := f.ImageConfig(); err != nil {
		return err
	}
	return nil
}

// ImageConfig converts the render, cache and font sections into an
// imagegen.Config using the strict setters.
func (f *File) ImageConfig() (imagegen.Config, error) {
	cfg := imagegen.DefaultConfig()
	r := f.Render
	var width, height any
	if r.Width != 0 {
		width = r.Width
	}
	if r.Height != 0 {
		height = r.Height
	}
	steps := []struct {
		name string
		set  func() error
	}{
		{"fonts.dir", func() error { return cfg.SetFontDirectory(f.Fonts.Dir) }},
		{"render.font", func() error { return cfg.SetFont(r.Font) }},
		{"render.size", func() error { return cfg.SetFontSize(r.Size, true) }},
		{"render.angle", func() error { return cfg.SetFontAngle(r.Angle, true) }},
		{"render.width/height", func() error { return cfg.SetSize(width, height, true) }},
		{"render.colour", func() error { return cfg.SetColour(r.Colour) }},
		{"render.background", func() error { return cfg.SetBackground(r.Background) }},
		{"cache.dir", func() error { return cfg.SetCacheDirectory(f.Cache.Dir) }},
	}
	for _, step := range steps {
		if err := step.set(); err != nil {
			return imagegen.Config{}, fmt.Errorf("%s: %w", step.name, err)
		}
	}
	cfg.UseWrapping(r.Wrap)
	cfg.CacheEnable(f.Cache.Enabled)
	return cfg, nil
}
