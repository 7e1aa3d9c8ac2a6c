package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/protoimporter/internal/config"
	"git.home.luguber.info/inful/protoimporter/internal/logfields"
)

// LogLevelEnv overrides the log level chosen by flags and configuration.
const LogLevelEnv = "PROTOIMPORTER_LOG_LEVEL"

// Global is shared state handed to every subcommand.
type Global struct {
	Logger *slog.Logger
	// Out receives user-facing output; logs always go to stderr.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config      string           `short:"c" help:"Configuration file path (YAML or pyproject.toml)" default:"protoimporter.yaml" type:"path"`
	Verbose     bool             `short:"v" help:"Enable verbose logging"`
	LogFormat   string           `name:"log-format" help:"Log format (text or json)"`
	ShowVersion kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Generate, rewrite, assemble and verify every configured unit"`
	Check   CheckCmd   `cmd:"" help:"Verify existing output roots without generating"`
	Plan    PlanCmd    `cmd:"" help:"Print the resolved artifact tree of each unit"`
	Clean   CleanCmd   `cmd:"" help:"Remove the output root of each unit"`
	Doctor  DoctorCmd  `cmd:"" help:"Report which generator and checker tools are available"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	Watch   WatchCmd   `cmd:"" help:"Build, then rebuild whenever a .proto file changes"`
	Version VersionCmd `cmd:"" help:"Print version information"`

	// levelSet and formatSet record what flags or the environment fixed, so
	// the configuration file may not override it.
	levelSet  bool
	formatSet bool
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := config.LogLevelInfo
	if c.Verbose {
		level, c.levelSet = config.LogLevelDebug, true
	}
	if env := os.Getenv(LogLevelEnv); env != "" {
		level, c.levelSet = config.NormalizeLogLevel(env), true
	}
	format := config.LogFormatText
	if c.LogFormat != "" {
		format, c.formatSet = config.NormalizeLogFormat(c.LogFormat), true
	}
	installLogger(level, format)
	return nil
}

// applyConfigLogging lets the configuration's logging block fill in whatever
// the command line left open.
func (c *CLI) applyConfigLogging(cfg *config.Config) {
	if c.levelSet && c.formatSet {
		return
	}
	level := config.NormalizeLogLevel(string(cfg.Logging.Level))
	if c.levelSet {
		level = config.LogLevelDebug
		if env := os.Getenv(LogLevelEnv); env != "" {
			level = config.NormalizeLogLevel(env)
		}
	}
	format := config.NormalizeLogFormat(string(cfg.Logging.Format))
	if c.formatSet {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	installLogger(level, format)
}

func installLogger(level config.LogLevel, format config.LogFormat) {
	opts := &slog.HandlerOptions{Level: slogLevel(level)}
	var h slog.Handler
	if format == config.LogFormatJSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig reads the configuration named by --config.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	c.applyConfigLogging(cfg)
	slog.Debug("Configuration loaded", logfields.Path(cfg.Path), logfields.Count(len(cfg.Units)))
	return cfg, nil
}
