// Package verify checks that a rewritten output tree is self-consistent:
// every relative import must land on a module or package inside the output
// root, and no absolute import may still point into the tree.
//
// The static check never runs Python. The optional runtime import check and
// the external type checkers do, and report through the same Problem type.
package verify

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
	"git.home.luguber.info/inful/protoimporter/internal/plan"
	"git.home.luguber.info/inful/protoimporter/internal/pyimport"
	"git.home.luguber.info/inful/protoimporter/internal/rewrite"
)

// Problem reasons.
const (
	ReasonMissingArtifact = "artifact missing"
	ReasonEscapesRoot     = "relative import escapes the output root"
	ReasonDangling        = "relative import does not resolve"
	ReasonAbsoluteInTree  = "absolute import of a generated module"
	ReasonImportFailed    = "module failed to import"
	ReasonChecker         = "type checker reported errors"
)

// Problem is one verification failure.
type Problem struct {
	Artifact  string // slash path below the output root, or a module name for runtime checks
	Line      int
	Statement string
	Reason    string
	Detail    string
}

func (p Problem) String() string {
	var b strings.Builder
	b.WriteString(p.Artifact)
	if p.Line > 0 {
		fmt.Fprintf(&b, ":%d", p.Line)
	}
	b.WriteString(": ")
	b.WriteString(p.Reason)
	if p.Statement != "" {
		fmt.Fprintf(&b, " (%s)", p.Statement)
	}
	if p.Detail != "" {
		b.WriteString(": ")
		b.WriteString(p.Detail)
	}
	return b.String()
}

// Tree statically checks every artifact of p below outRoot. All problems are
// returned; the error is a VerificationError when there is at least one.
func Tree(outRoot string, p *plan.Plan) ([]Problem, error) {
	idx := rewrite.NewIndex(p)
	var problems []Problem
	for _, art := range p.Artifacts {
		rel := art.RelPath()
		data, err := os.ReadFile(filepath.Join(outRoot, filepath.FromSlash(rel)))
		if err != nil {
			if os.IsNotExist(err) {
				problems = append(problems, Problem{Artifact: rel, Reason: ReasonMissingArtifact})
				continue
			}
			return problems, errors.FileSystemError("read artifact").WithCause(err).WithContext("path", rel).Build()
		}
		for _, stmt := range pyimport.Scan(string(data)) {
			if reason := checkStatement(outRoot, art.Module, stmt, idx); reason != "" {
				problems = append(problems, Problem{
					Artifact:  rel,
					Line:      stmt.Line,
					Statement: strings.TrimSpace(stmt.Text),
					Reason:    reason,
				})
			}
		}
	}
	return problems, ProblemsError(p.Unit.Name, problems)
}

// ProblemsError wraps problems in one VerificationError, or returns nil.
func ProblemsError(unit string, problems []Problem) error {
	if len(problems) == 0 {
		return nil
	}
	lines := make([]string, len(problems))
	for i, pr := range problems {
		lines[i] = pr.String()
	}
	return errors.VerificationError("output tree failed verification").
		WithCause(fmt.Errorf("%d problem(s):\n  %s", len(problems), strings.Join(lines, "\n  "))).
		WithContext("unit", unit).
		WithContext("problems", len(problems)).
		Build()
}

func checkStatement(outRoot string, importer plan.ModulePath, stmt pyimport.Statement, idx *rewrite.Index) string {
	if !stmt.Relative() {
		if _, ok := idx.Module(stmt.Module); ok {
			return ReasonAbsoluteInTree
		}
		if stmt.Form == pyimport.FormFrom && idx.Package(stmt.Module) {
			for _, n := range stmt.Names {
				if _, ok := idx.Module(stmt.Module + "." + n.Name); ok {
					return ReasonAbsoluteInTree
				}
			}
		}
		return ""
	}

	pkg := importer.Package()
	up := stmt.Level() - 1
	if up > len(pkg) {
		return ReasonEscapesRoot
	}
	base := append([]string{}, pkg[:len(pkg)-up]...)
	if rest := strings.TrimLeft(stmt.Module, "."); rest != "" {
		base = append(base, strings.Split(rest, ".")...)
		switch lookup(outRoot, base) {
		case targetNone:
			return ReasonDangling
		case targetModule:
			// `from .x_pb2 import Sym`: names are symbols of the module.
			return ""
		}
	}
	// base is a package: every imported name must be a module or subpackage of it.
	if stmt.Open {
		return ""
	}
	for _, n := range stmt.Names {
		if !resolves(outRoot, append(base[:len(base):len(base)], n.Name)) {
			return ReasonDangling
		}
	}
	return ""
}

type target int

const (
	targetNone target = iota
	targetModule
	targetPackage
)

// lookup reports whether segs names a module file or package directory below outRoot.
func lookup(outRoot string, segs []string) target {
	p := filepath.Join(outRoot, filepath.FromSlash(path.Join(segs...)))
	for _, ext := range []string{".py", ".pyi"} {
		if fi, err := os.Stat(p + ext); err == nil && !fi.IsDir() {
			return targetModule
		}
	}
	if fi, err := os.Stat(p); err == nil && fi.IsDir() {
		return targetPackage
	}
	return targetNone
}

func resolves(outRoot string, segs []string) bool {
	return lookup(outRoot, segs) != targetNone
}
