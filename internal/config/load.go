package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
)

// Load reads, normalizes, defaults and validates the configuration at configPath.
// Files ending in .toml are read as pyproject.toml.
func Load(configPath string) (*Config, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "resolve configuration path").Fatal().Build()
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		return nil, errors.ConfigError("configuration file not found").WithContext("path", configPath).Build()
	}

	loadEnvFiles(filepath.Dir(abs))

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "read configuration file").Fatal().Build()
	}

	cfg, err := Parse(data, formatFor(abs), filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	cfg.Path = abs
	return cfg, nil
}

// Format is the on-disk syntax of a configuration document.
type Format string

const (
	FormatYAML      Format = "yaml"
	FormatPyproject Format = "pyproject"
)

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatPyproject
	}
	return FormatYAML
}

// Parse decodes a configuration document and runs the full load pipeline on it.
// Relative paths are resolved against baseDir.
func Parse(data []byte, format Format, baseDir string) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg *Config
	switch format {
	case FormatPyproject:
		c, err := decodePyproject([]byte(expanded))
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "decode configuration").Fatal().Build()
		}
	}
	cfg.BaseDir = baseDir

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	resolvePaths(cfg)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env then .env.local from dir. Variables already present
// in the process environment win. Missing files are ignored.
func loadEnvFiles(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load environment file", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Loaded environment file", slog.String("path", p))
	}
}

// normalizeConfig case-folds enumerations and cleans pattern values.
func normalizeConfig(cfg *Config) error {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	cfg.Version = strings.TrimSpace(cfg.Version)

	for i := range cfg.Units {
		u := &cfg.Units[i]
		u.Name = strings.TrimSpace(u.Name)

		mode, err := ParsePackageMode(string(u.PackageMode))
		if err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid unit configuration").
				Fatal().WithContext("unit", u.Name).Build()
		}
		u.PackageMode = mode

		for _, patterns := range [][]Pattern{u.Include, u.Exclude} {
			for j := range patterns {
				if err := normalizePattern(&patterns[j]); err != nil {
					return errors.WrapError(err, errors.CategoryConfig, "invalid filter pattern").
						Fatal().WithContext("unit", u.Name).WithContext("pattern", patterns[j].Value).Build()
				}
			}
		}
	}
	return nil
}

func normalizePattern(p *Pattern) error {
	p.Value = cleanPatternValue(p.Value)
	m, err := ParseMatchStrategy(string(p.Match))
	if err != nil {
		return err
	}
	if m == "" {
		m = DetectStrategy(p.Value)
	}
	p.Match = m
	if p.Value == "" {
		return fmt.Errorf("empty pattern")
	}
	return nil
}

// resolvePaths makes unit roots absolute and clean.
func resolvePaths(cfg *Config) {
	abs := func(p string) string {
		if p == "" {
			return p
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(cfg.BaseDir, p)
		}
		return filepath.Clean(p)
	}
	for i := range cfg.Units {
		u := &cfg.Units[i]
		roots := make([]string, len(u.SourceRoots))
		for j, r := range u.SourceRoots {
			roots[j] = abs(r)
		}
		u.SourceRoots = roots
		u.Out = abs(u.Out)
	}
}
