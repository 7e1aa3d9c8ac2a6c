package config

import (
	"log/slog"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
)

// pyprojectUnitName names the single unit derived from a pyproject.toml.
const pyprojectUnitName = "default"

type pyproject struct {
	Tool struct {
		Importer *pyprojectImporter `toml:"python_proto_importer"`
	} `toml:"tool"`
}

type pyprojectImporter struct {
	Backend     string   `toml:"backend"`
	PythonExe   string   `toml:"python_exe"`
	Include     []string `toml:"include"`
	Inputs      []string `toml:"inputs"`
	Out         string   `toml:"out"`
	Mypy        bool     `toml:"mypy"`
	MypyGRPC    bool     `toml:"mypy_grpc"`
	Postprocess *struct {
		CreatePackage  *bool    `toml:"create_package"`
		PyrightHeader  bool     `toml:"pyright_header"`
		ModuleSuffixes []string `toml:"module_suffixes"`
		ExcludeGoogle  *bool    `toml:"exclude_google"`
	} `toml:"postprocess"`
	Verify *struct {
		MypyCmd    []string `toml:"mypy_cmd"`
		PyrightCmd []string `toml:"pyright_cmd"`
	} `toml:"verify"`
}

// decodePyproject maps [tool.python_proto_importer] onto a one-unit Config.
func decodePyproject(data []byte) (*Config, error) {
	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "decode pyproject.toml").Fatal().Build()
	}
	imp := doc.Tool.Importer
	if imp == nil {
		return nil, errors.ConfigError("pyproject.toml has no [tool.python_proto_importer] table").Build()
	}
	if b := strings.TrimSpace(imp.Backend); b != "" && !strings.EqualFold(b, "protoc") {
		return nil, errors.ConfigError("unsupported generator backend").WithContext("backend", b).Build()
	}

	unit := defaultUnit()
	unit.Name = pyprojectUnitName
	unit.SourceRoots = imp.Include
	if len(unit.SourceRoots) == 0 {
		unit.SourceRoots = []string{"."}
	}
	unit.Out = imp.Out
	if unit.Out == "" {
		unit.Out = "generated/python"
	}
	unit.Emit.TypeStubs = imp.Mypy
	unit.Emit.GRPCTypeStubs = imp.MypyGRPC
	if pp := imp.Postprocess; pp != nil {
		if pp.CreatePackage != nil && !*pp.CreatePackage {
			unit.PackageMode = PackageModeNamespace
		}
		unit.Emit.HeaderComment = pp.PyrightHeader
		// Imports are rewritten from the plan: only modules generated in this
		// unit are touched and google.* is never part of it unless vendored.
		if len(pp.ModuleSuffixes) > 0 {
			slog.Warn("Ignoring pyproject setting; rewritten modules come from the build plan",
				slog.String("key", "postprocess.module_suffixes"), slog.Any("value", pp.ModuleSuffixes))
		}
		if pp.ExcludeGoogle != nil {
			slog.Warn("Ignoring pyproject setting; rewritten modules come from the build plan",
				slog.String("key", "postprocess.exclude_google"), slog.Bool("value", *pp.ExcludeGoogle))
		}
	}
	if v := imp.Verify; v != nil {
		unit.Verify.MypyCmd = v.MypyCmd
		unit.Verify.PyrightCmd = v.PyrightCmd
	}
	for _, in := range imp.Inputs {
		unit.Include = append(unit.Include, Pattern{Value: stripRootPrefix(in, unit.SourceRoots)})
	}

	return &Config{
		Version:   "1",
		PythonExe: imp.PythonExe,
		Units:     []BuildUnit{unit},
	}, nil
}

// stripRootPrefix turns an input written relative to the project ("proto/a/*.proto")
// into one relative to the source root that contains it ("a/*.proto").
func stripRootPrefix(input string, roots []string) string {
	in := cleanPatternValue(input)
	for _, r := range roots {
		r = cleanPatternValue(r)
		if r == "" || r == "." {
			continue
		}
		r = path.Clean(r)
		if strings.HasPrefix(in, r+"/") {
			return strings.TrimPrefix(in, r+"/")
		}
	}
	return in
}
