package config

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// BuildDefaultApplier handles build-wide defaults.
type BuildDefaultApplier struct{}

func (BuildDefaultApplier) Domain() string { return "build" }

func (BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = "1"
	}
	if cfg.PythonExe == "" {
		cfg.PythonExe = "python3"
	}
	if cfg.Build.Concurrency <= 0 {
		cfg.Build.Concurrency = 4
	}
	if cfg.Build.RewriteWorkers <= 0 {
		cfg.Build.RewriteWorkers = 8
	}
	return nil
}

// UnitDefaultApplier fills per-unit gaps, inheriting build-wide settings.
type UnitDefaultApplier struct{}

func (UnitDefaultApplier) Domain() string { return "units" }

func (UnitDefaultApplier) ApplyDefaults(cfg *Config) error {
	for i := range cfg.Units {
		u := &cfg.Units[i]
		if len(u.SourceRoots) == 0 {
			u.SourceRoots = []string{"."}
		}
		if u.PackageMode == "" {
			u.PackageMode = PackageModePackage
		}
		if u.PythonExe == "" {
			u.PythonExe = cfg.PythonExe
		}
		if u.Emit.HeaderComment && u.Emit.HeaderText == "" {
			u.Emit.HeaderText = DefaultHeaderText
		}
		// gRPC stubs are meaningless without the gRPC module.
		if !u.Emit.GRPC {
			u.Emit.GRPCTypeStubs = false
		}
	}
	return nil
}

// defaultAppliers run in order; build-wide settings feed unit defaults.
var defaultAppliers = []DefaultApplier{BuildDefaultApplier{}, UnitDefaultApplier{}}

func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
