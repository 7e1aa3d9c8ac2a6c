package config

import (
	"git.home.luguber.info/inful/protoimporter/internal/foundation/normalization"
)

// PackageMode selects how package markers are assembled in an output root.
type PackageMode string

const (
	// PackageModePackage creates __init__.py in every directory leading to an artifact.
	PackageModePackage PackageMode = "package"
	// PackageModeNamespace leaves directories as implicit namespace packages.
	PackageModeNamespace PackageMode = "namespace"
)

var packageModeNormalizer = normalization.New("package_mode", map[string]PackageMode{
	"package":   PackageModePackage,
	"regular":   PackageModePackage,
	"namespace": PackageModeNamespace,
	"implicit":  PackageModeNamespace,
	"pep420":    PackageModeNamespace,
}, PackageModePackage)

// ParsePackageMode normalizes raw; empty input yields PackageModePackage.
func ParsePackageMode(raw string) (PackageMode, error) {
	return packageModeNormalizer.Parse(raw)
}

// MatchStrategy selects how a filter pattern is compared with a source path.
type MatchStrategy string

const (
	MatchExact  MatchStrategy = "exact"
	MatchPrefix MatchStrategy = "prefix"
	MatchGlob   MatchStrategy = "glob"
)

var matchStrategyNormalizer = normalization.New("match strategy", map[string]MatchStrategy{
	"exact":    MatchExact,
	"prefix":   MatchPrefix,
	"dir":      MatchPrefix,
	"glob":     MatchGlob,
	"wildcard": MatchGlob,
}, "")

// ParseMatchStrategy normalizes raw; empty input yields "" (auto-detect).
func ParseMatchStrategy(raw string) (MatchStrategy, error) {
	return matchStrategyNormalizer.Parse(raw)
}

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.New("log level", map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

// NormalizeLogLevel maps raw onto a LogLevel, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.Normalize(raw)
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.New("log format", map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// NormalizeLogFormat maps raw onto a LogFormat, defaulting to text.
func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.Normalize(raw)
}
