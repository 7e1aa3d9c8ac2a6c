package plan

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/protoimporter/internal/config"
	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
	"git.home.luguber.info/inful/protoimporter/internal/logfields"
)

var (
	// ErrNoSources is returned when no source root yields a matching file.
	ErrNoSources = stderrors.New("no proto files matched")
	// ErrDuplicateModule is returned when two files in one root map to the same module.
	ErrDuplicateModule = stderrors.New("two proto files map to the same module")
	// ErrMissingRoot is returned when a source root does not exist.
	ErrMissingRoot = stderrors.New("source root does not exist")
)

// Resolve maps a unit onto its artifacts. It has no side effects.
//
// Files are selected by the include patterns (any match) and then dropped by the
// exclude patterns. When the same module is reachable from several source roots
// the first root in declared order wins.
func Resolve(unit config.BuildUnit) (*Plan, error) {
	filter, err := NewFilter(unit.Include, unit.Exclude)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid filter pattern").
			Fatal().WithContext("unit", unit.Name).Build()
	}

	p := &Plan{Unit: unit}
	owners := make(map[string]SourceFile)

	for _, root := range unit.SourceRoots {
		files, err := discover(root, unit.Out)
		if err != nil {
			return nil, err
		}
		for _, rel := range files {
			src := SourceFile{Root: root, RelPath: rel}
			if ok, reason := filter.Include(rel); !ok {
				slog.Debug("Proto filtered out", logfields.Unit(unit.Name), logfields.Path(rel), slog.String("reason", reason))
				p.Filtered = append(p.Filtered, src)
				continue
			}
			key := ModulePathFor(rel, KindMessageModule).String()
			if prev, exists := owners[key]; exists {
				if prev.Root == root {
					return nil, errors.WrapError(
						fmt.Errorf("%w: %s and %s both produce %s", ErrDuplicateModule, prev.RelPath, rel, key),
						errors.CategoryConfig, "ambiguous proto module").
						Fatal().WithContext("unit", unit.Name).WithContext("root", root).Build()
				}
				slog.Debug("Proto shadowed by earlier source root",
					logfields.Unit(unit.Name), logfields.Path(rel), logfields.Root(root),
					slog.String("winner_root", prev.Root))
				p.Shadowed = append(p.Shadowed, src)
				continue
			}
			owners[key] = src
			p.Sources = append(p.Sources, src)
		}
	}

	if len(p.Sources) == 0 {
		return nil, errors.WrapError(ErrNoSources, errors.CategoryConfig, "nothing to build").
			Fatal().WithContext("unit", unit.Name).
			WithContext("source_roots", strings.Join(unit.SourceRoots, ", ")).Build()
	}

	kinds := kindsFor(unit.Emit)
	for _, src := range p.Sources {
		for _, k := range kinds {
			p.Artifacts = append(p.Artifacts, Artifact{Source: src, Module: ModulePathFor(src.RelPath, k), Kind: k})
		}
	}
	sort.Slice(p.Artifacts, func(i, j int) bool { return p.Artifacts[i].RelPath() < p.Artifacts[j].RelPath() })

	slog.Debug("Resolved build plan", logfields.Unit(unit.Name),
		slog.Int("sources", len(p.Sources)), slog.Int("artifacts", len(p.Artifacts)),
		slog.Int("filtered", len(p.Filtered)), slog.Int("shadowed", len(p.Shadowed)))
	return p, nil
}

func kindsFor(e config.Emit) []Kind {
	kinds := []Kind{KindMessageModule}
	if e.GRPC {
		kinds = append(kinds, KindGRPCModule)
	}
	if e.TypeStubs {
		kinds = append(kinds, KindMessageStub)
	}
	if e.GRPC && e.GRPCTypeStubs {
		kinds = append(kinds, KindGRPCStub)
	}
	return kinds
}

// discover lists .proto files below root as sorted slash paths. Hidden
// directories, __pycache__ and the unit's own output root are skipped.
func discover(root, outRoot string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		cause := ErrMissingRoot
		if err != nil && !os.IsNotExist(err) {
			cause = err
		}
		return nil, errors.WrapError(cause, errors.CategoryConfig, "invalid source root").
			Fatal().WithContext("root", root).Build()
	}

	var files []string
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p == root {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || name == "__pycache__" || (outRoot != "" && p == outRoot) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(p) != ".proto" {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return nil, errors.WrapError(walkErr, errors.CategoryConfig, "scan source root").
			Fatal().WithContext("root", root).Build()
	}
	sort.Strings(files)
	return files, nil
}
