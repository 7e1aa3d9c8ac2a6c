package commands

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/ddddddO/gtree"

	"git.home.luguber.info/inful/protoimporter/internal/build"
	"git.home.luguber.info/inful/protoimporter/internal/config"
	"git.home.luguber.info/inful/protoimporter/internal/pkgtree"
	"git.home.luguber.info/inful/protoimporter/internal/plan"
)

// PlanCmd implements the 'plan' command. It never writes to disk.
type PlanCmd struct {
	Unit []string `short:"u" help:"Only show the named unit (repeatable)"`
}

func (p *PlanCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	units, err := build.SelectUnits(cfg, p.Unit)
	if err != nil {
		return err
	}
	for _, u := range units {
		resolved, err := plan.Resolve(u)
		if err != nil {
			return err
		}
		if err := renderPlan(g.out(), resolved); err != nil {
			return err
		}
	}
	return nil
}

// planFiles lists every file the unit will own below its output root,
// package markers included.
func planFiles(p *plan.Plan) []string {
	files := make([]string, 0, len(p.Artifacts))
	for _, a := range p.Artifacts {
		files = append(files, a.RelPath())
	}
	if p.Unit.PackageMode == config.PackageModePackage {
		for _, dir := range pkgtree.Nodes(p.Artifacts) {
			files = append(files, path.Join(dir, pkgtree.MarkerFile))
		}
	}
	sort.Strings(files)
	return files
}

func renderPlan(w io.Writer, p *plan.Plan) error {
	title := fmt.Sprintf("%s -> %s (%s)", p.Unit.Name, p.Unit.Out, p.Unit.PackageMode)
	treeRoot := gtree.NewRoot(title)
	dirs := map[string]*gtree.Node{"": treeRoot}

	var parentOf func(dir string) *gtree.Node
	parentOf = func(dir string) *gtree.Node {
		if n, ok := dirs[dir]; ok {
			return n
		}
		parent := parentOf(parentDir(dir))
		n := parent.Add(path.Base(dir) + "/")
		dirs[dir] = n
		return n
	}
	for _, f := range planFiles(p) {
		parentOf(parentDir(f)).Add(path.Base(f))
	}

	if err := gtree.OutputFromRoot(w, treeRoot); err != nil {
		return fmt.Errorf("render plan for unit %s: %w", p.Unit.Name, err)
	}
	_, err := fmt.Fprintf(w, "%d sources, %d artifacts, %d filtered, %d shadowed\n\n",
		len(p.Sources), len(p.Artifacts), len(p.Filtered), len(p.Shadowed))
	return err
}

func parentDir(p string) string {
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return strings.TrimSuffix(d, "/")
}
