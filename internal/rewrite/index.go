package rewrite

import (
	"strings"

	"git.home.luguber.info/inful/protoimporter/internal/plan"
	"git.home.luguber.info/inful/protoimporter/internal/util/sets"
)

// Index answers which dotted names the output tree provides.
type Index struct {
	modules  map[string]plan.Artifact
	packages sets.Set[string]
	filtered map[string]plan.SourceFile
}

// NewIndex builds the lookup tables for p. It is read-only afterwards and
// shared by all rewrite workers.
func NewIndex(p *plan.Plan) *Index {
	idx := &Index{
		modules:  p.ModuleIndex(),
		packages: sets.New[string](),
		filtered: p.FilteredModules(),
	}
	for name := range idx.modules {
		segs := strings.Split(name, ".")
		for i := 1; i < len(segs); i++ {
			idx.packages.Add(strings.Join(segs[:i], "."))
		}
	}
	return idx
}

// Module reports whether dotted is a module generated into the tree.
func (x *Index) Module(dotted string) (plan.Artifact, bool) {
	a, ok := x.modules[dotted]
	return a, ok
}

// Package reports whether dotted is a package directory of the tree.
func (x *Index) Package(dotted string) bool {
	return x.packages.Has(dotted)
}

// Filtered reports whether dotted would have been generated from a proto that
// exists in a source root but was filtered out of the unit.
func (x *Index) Filtered(dotted string) (plan.SourceFile, bool) {
	s, ok := x.filtered[dotted]
	return s, ok
}
