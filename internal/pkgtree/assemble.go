// Package pkgtree makes the output tree importable as a Python package
// hierarchy by managing __init__.py markers.
package pkgtree

import (
	"os"
	"path"
	"path/filepath"

	"git.home.luguber.info/inful/protoimporter/internal/config"
	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
	"git.home.luguber.info/inful/protoimporter/internal/plan"
	"git.home.luguber.info/inful/protoimporter/internal/util/sets"
)

// MarkerFile is the package marker.
const MarkerFile = "__init__.py"

// Result describes what Assemble did.
type Result struct {
	Nodes   []string // slash paths relative to the output root; "" is the root itself
	Created int
	Removed int
}

// Nodes returns every directory on a path from the output root to an
// artifact, the root included as "".
func Nodes(artifacts []plan.Artifact) []string {
	nodes := sets.New[string]("")
	for _, a := range artifacts {
		for dir := path.Dir(a.RelPath()); dir != "." && dir != "/"; dir = path.Dir(dir) {
			if nodes.Has(dir) {
				break
			}
			nodes.Add(dir)
		}
	}
	return sets.Sorted(nodes)
}

// Assemble adds or removes markers at the node directories of artifacts.
// Directories that are not nodes are never touched.
func Assemble(outRoot string, artifacts []plan.Artifact, mode config.PackageMode) (Result, error) {
	res := Result{Nodes: Nodes(artifacts)}
	for _, node := range res.Nodes {
		dir := filepath.Join(outRoot, filepath.FromSlash(node))
		marker := filepath.Join(dir, MarkerFile)

		_, statErr := os.Stat(marker)
		exists := statErr == nil
		if statErr != nil && !os.IsNotExist(statErr) {
			return res, assemblyError(statErr, "inspect package marker", marker)
		}

		switch mode {
		case config.PackageModeNamespace:
			if !exists {
				continue
			}
			if err := os.Remove(marker); err != nil {
				return res, assemblyError(err, "remove package marker", marker)
			}
			res.Removed++
		default:
			if exists {
				continue
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return res, assemblyError(err, "create package directory", dir)
			}
			if err := os.WriteFile(marker, nil, 0o644); err != nil {
				return res, assemblyError(err, "create package marker", marker)
			}
			res.Created++
		}
	}
	return res, nil
}

func assemblyError(err error, msg, p string) error {
	return errors.WrapError(err, errors.CategoryAssembly, msg).WithContext("path", p).Build()
}
