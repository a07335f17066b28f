package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/five82/logsift/internal/export"
	"github.com/five82/logsift/internal/filter"
	"github.com/five82/logsift/internal/source"
)

// Source kinds accepted by the source field.
const (
	SourceJournal = "journal"
	SourceFile    = "file"
)

// Config captures logsift's settings.
type Config struct {
	Identifier        string
	Source            string
	File              string
	MaxLines          int
	ExportDir         string
	ExportType        export.FileType
	Preset            filter.Preset
	ExcludeSystemLogs bool
	Theme             string
	RefreshInterval   time.Duration
	LogFile           string
	LogLevel          string
}

const (
	defaultConfigPath = "~/.config/logsift/config.toml"
	defaultIdentifier = "logsift"
	defaultExportDir  = "~"
	defaultLogFile    = "~/.local/state/logsift/logsift.log"
	defaultTheme      = "Nightfox"
	defaultLogLevel   = "info"
)

type rawConfig struct {
	Identifier        string `toml:"identifier" yaml:"identifier"`
	Source            string `toml:"source" yaml:"source"`
	File              string `toml:"file" yaml:"file"`
	MaxLines          int    `toml:"max_lines" yaml:"max_lines"`
	ExportDir         string `toml:"export_dir" yaml:"export_dir"`
	ExportType        string `toml:"export_type" yaml:"export_type"`
	Preset            string `toml:"preset" yaml:"preset"`
	ExcludeSystemLogs bool   `toml:"exclude_system_logs" yaml:"exclude_system_logs"`
	Theme             string `toml:"theme" yaml:"theme"`
	RefreshSeconds    int    `toml:"refresh_seconds" yaml:"refresh_seconds"`
	LogFile           string `toml:"log_file" yaml:"log_file"`
	LogLevel          string `toml:"log_level" yaml:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Identifier: defaultIdentifier,
		Source:     SourceJournal,
		MaxLines:   source.DefaultMaxLines,
		ExportDir:  mustExpand(defaultExportDir),
		ExportType: export.FileTypeLog,
		Preset:     filter.PresetLast24Hours,
		Theme:      defaultTheme,
		LogFile:    mustExpand(defaultLogFile),
		LogLevel:   defaultLogLevel,
	}
}

// Load locates and parses the logsift config, falling back to defaults when
// missing. Files ending in .yaml or .yml are read as YAML, anything else as
// TOML.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bytes, &raw)
	default:
		err = toml.Unmarshal(bytes, &raw)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return raw.resolve()
}

func (raw rawConfig) resolve() (Config, error) {
	cfg := Default()

	if v := strings.TrimSpace(raw.Identifier); v != "" {
		cfg.Identifier = v
	}

	switch v := strings.ToLower(strings.TrimSpace(raw.Source)); v {
	case "":
	case SourceJournal, SourceFile:
		cfg.Source = v
	default:
		return Config{}, fmt.Errorf("invalid source %q (want %s or %s)", raw.Source, SourceJournal, SourceFile)
	}

	if v := strings.TrimSpace(raw.File); v != "" {
		expanded, err := expandPath(v)
		if err != nil {
			return Config{}, fmt.Errorf("expand file: %w", err)
		}
		cfg.File = expanded
	}
	if cfg.Source == SourceFile && cfg.File == "" {
		return Config{}, errors.New("source \"file\" requires file to be set")
	}

	switch {
	case raw.MaxLines < 0:
		cfg.MaxLines = -1
	case raw.MaxLines > 0:
		cfg.MaxLines = raw.MaxLines
	}

	if v := strings.TrimSpace(raw.ExportDir); v != "" {
		cfg.ExportDir = mustExpand(v)
	}

	if v := strings.TrimSpace(raw.ExportType); v != "" {
		ft, err := export.ParseFileType(v)
		if err != nil {
			return Config{}, fmt.Errorf("export_type: %w", err)
		}
		cfg.ExportType = ft
	}

	if v := strings.TrimSpace(raw.Preset); v != "" {
		preset, err := filter.ParsePreset(v)
		if err != nil {
			return Config{}, fmt.Errorf("preset: %w", err)
		}
		cfg.Preset = preset
	}

	cfg.ExcludeSystemLogs = raw.ExcludeSystemLogs

	if v := strings.TrimSpace(raw.Theme); v != "" {
		cfg.Theme = v
	}
	if raw.RefreshSeconds > 0 {
		cfg.RefreshInterval = time.Duration(raw.RefreshSeconds) * time.Second
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	return cfg, nil
}

// InitialCriteria returns the filter a session starts with.
func (c Config) InitialCriteria(now time.Time) filter.Criteria {
	criteria := filter.Defaults(now)
	criteria.Preset = c.Preset
	criteria.ExcludeSystemLogs = c.ExcludeSystemLogs
	return criteria
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
