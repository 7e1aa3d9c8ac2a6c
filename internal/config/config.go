package config

// DefaultConfigFile is looked up in the working directory when --config is not given.
const DefaultConfigFile = "protoimporter.yaml"

// DefaultHeaderText is stamped on generated files when emit.header_comment is enabled.
const DefaultHeaderText = "# pyright: basic"

// Config is the top-level build configuration.
type Config struct {
	Version   string        `yaml:"version" validate:"omitempty,oneof=1"`
	PythonExe string        `yaml:"python_exe,omitempty"`
	Build     BuildSettings `yaml:"build,omitempty"`
	Logging   LoggingConfig `yaml:"logging,omitempty"`
	Units     []BuildUnit   `yaml:"units" validate:"required,min=1,dive"`

	// Path is the file the configuration was loaded from; BaseDir is its directory.
	// Relative paths in units are resolved against BaseDir.
	Path    string `yaml:"-"`
	BaseDir string `yaml:"-"`
}

// BuildSettings bounds build parallelism.
type BuildSettings struct {
	Concurrency    int `yaml:"concurrency,omitempty" validate:"gte=1,lte=256"`
	RewriteWorkers int `yaml:"rewrite_workers,omitempty" validate:"gte=1,lte=1024"`
}

// LoggingConfig selects the slog handler installed by the CLI.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// BuildUnit is one independent build target: sources, filters and an output root.
// Units are treated as immutable values once Load returns.
type BuildUnit struct {
	Name        string       `yaml:"name" validate:"required"`
	SourceRoots []string     `yaml:"source_roots" validate:"required,min=1,dive,required"`
	Include     []Pattern    `yaml:"include,omitempty" validate:"dive"`
	Exclude     []Pattern    `yaml:"exclude,omitempty" validate:"dive"`
	Out         string       `yaml:"out" validate:"required"`
	PackageMode PackageMode  `yaml:"package_mode,omitempty" validate:"oneof=package namespace"`
	Emit        Emit         `yaml:"emit,omitempty"`
	PythonExe   string       `yaml:"python_exe,omitempty" validate:"required"`
	Verify      VerifyConfig `yaml:"verify,omitempty"`
}

// Emit selects which artifact kinds the generator produces.
type Emit struct {
	GRPC          bool   `yaml:"grpc"`
	TypeStubs     bool   `yaml:"type_stubs"`
	GRPCTypeStubs bool   `yaml:"grpc_type_stubs"`
	HeaderComment bool   `yaml:"header_comment"`
	HeaderText    string `yaml:"header_text,omitempty"`
}

// VerifyConfig enables optional checks run after the structural verification.
type VerifyConfig struct {
	ImportCheck bool     `yaml:"import_check,omitempty"`
	MypyCmd     []string `yaml:"mypy_cmd,omitempty"`
	PyrightCmd  []string `yaml:"pyright_cmd,omitempty"`
}

// UnitByName returns the unit with the given name.
func (c *Config) UnitByName(name string) (BuildUnit, bool) {
	for _, u := range c.Units {
		if u.Name == name {
			return u, true
		}
	}
	return BuildUnit{}, false
}

// defaultUnit seeds decoding so omitted keys keep their defaults.
func defaultUnit() BuildUnit {
	return BuildUnit{
		PackageMode: PackageModePackage,
		Emit:        Emit{GRPC: true},
	}
}
