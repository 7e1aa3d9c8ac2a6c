// Package plan resolves a build unit into the explicit set of artifacts the
// generator will produce. Resolution reads the filesystem but never writes.
package plan

import (
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/protoimporter/internal/config"
)

// SourceFile is a .proto file located under one of a unit's source roots.
type SourceFile struct {
	Root    string // absolute source root
	RelPath string // slash separated, relative to Root
}

// Path returns the absolute path of the file.
func (s SourceFile) Path() string {
	return filepath.Join(s.Root, filepath.FromSlash(s.RelPath))
}

// Artifact is one generated file expected in the output root.
type Artifact struct {
	Source SourceFile
	Module ModulePath
	Kind   Kind
}

// RelPath is the slash separated path of the artifact below the output root.
func (a Artifact) RelPath() string {
	return a.Module.File(a.Kind.Ext())
}

// InvocationGroup is one generator call: every selected file of one source root.
type InvocationGroup struct {
	ProtoRoot string
	OutputDir string
	Files     []string // relative to ProtoRoot
}

// Plan is the resolved, immutable mapping for one unit.
type Plan struct {
	Unit      config.BuildUnit
	Sources   []SourceFile // selected files in source root order, then path order
	Artifacts []Artifact   // sorted by RelPath
	Filtered  []SourceFile // discovered but rejected by include/exclude
	Shadowed  []SourceFile // dropped because an earlier root provides the same module
}

// OutRoot is the unit's output root.
func (p *Plan) OutRoot() string { return p.Unit.Out }

// Groups returns one invocation group per source root that contributed files, in root order.
func (p *Plan) Groups() []InvocationGroup {
	byRoot := make(map[string][]string)
	for _, s := range p.Sources {
		byRoot[s.Root] = append(byRoot[s.Root], s.RelPath)
	}
	groups := make([]InvocationGroup, 0, len(byRoot))
	for _, root := range p.Unit.SourceRoots {
		files, ok := byRoot[root]
		if !ok {
			continue
		}
		groups = append(groups, InvocationGroup{ProtoRoot: root, OutputDir: p.Unit.Out, Files: files})
	}
	return groups
}

// ModuleIndex maps dotted module names produced by the plan to their runtime artifact.
// Stubs share the module name of the .py they describe and are not indexed.
func (p *Plan) ModuleIndex() map[string]Artifact {
	idx := make(map[string]Artifact, len(p.Artifacts))
	for _, a := range p.Artifacts {
		if a.Kind.IsStub() {
			continue
		}
		idx[a.Module.String()] = a
	}
	return idx
}

// FilteredModules maps the module names a filtered-out proto would have produced
// to that proto. Modules also produced by the plan are omitted.
func (p *Plan) FilteredModules() map[string]SourceFile {
	inTree := p.ModuleIndex()
	out := make(map[string]SourceFile)
	for _, s := range p.Filtered {
		for _, k := range []Kind{KindMessageModule, KindGRPCModule} {
			name := ModulePathFor(s.RelPath, k).String()
			if _, ok := inTree[name]; ok {
				continue
			}
			if _, seen := out[name]; !seen {
				out[name] = s
			}
		}
	}
	return out
}

// ArtifactsOf returns the artifacts generated from src, in kind order.
func (p *Plan) ArtifactsOf(src SourceFile) []Artifact {
	var out []Artifact
	for _, a := range p.Artifacts {
		if a.Source == src {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return kindRank(out[i].Kind) < kindRank(out[j].Kind) })
	return out
}

func kindRank(k Kind) int {
	for i, kk := range Kinds {
		if kk == k {
			return i
		}
	}
	return len(Kinds)
}
