package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExampleConfig returns the configuration written by Init.
func ExampleConfig() Config {
	return Config{
		Version:   "1",
		PythonExe: "python3",
		Build:     BuildSettings{Concurrency: 4, RewriteWorkers: 8},
		Logging:   LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Units: []BuildUnit{
			{
				Name:        "api",
				SourceRoots: []string{"proto"},
				Include:     []Pattern{{Value: "payment"}, {Value: "user/**/*.proto"}},
				Exclude:     []Pattern{{Value: "internal", Match: MatchPrefix}},
				Out:         "generated/python",
				PackageMode: PackageModePackage,
				Emit:        Emit{GRPC: true, TypeStubs: true, GRPCTypeStubs: true},
			},
		},
	}
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	cfg := ExampleConfig()
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	header := "# protoimporter configuration\n# Paths are relative to this file. ${VAR} references are expanded.\n\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
