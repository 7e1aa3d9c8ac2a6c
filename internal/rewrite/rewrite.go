// Package rewrite turns the absolute imports the generator emits into
// package-relative imports so the output tree works at any depth.
package rewrite

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/protoimporter/internal/plan"
	"git.home.luguber.info/inful/protoimporter/internal/pyimport"
)

// ErrUnresolvedImport marks an import of a generated module the unit does not
// provide: its proto was filtered out, or it sits in an in-tree package but is
// not part of the plan.
var ErrUnresolvedImport = stderrors.New("import targets a module missing from the unit")

// ImportReference records one rewritten import statement.
type ImportReference struct {
	Importer  plan.ModulePath
	Target    plan.ModulePath
	Statement string // original text
	Rewritten string
	Line      int
	Start     int
	End       int
}

// FindImports returns the absolute import statements of text, the candidates
// for rewriting. Relative statements are already in final form.
func FindImports(text string) []pyimport.Statement {
	var out []pyimport.Statement
	for _, stmt := range pyimport.Scan(text) {
		if !stmt.Relative() {
			out = append(out, stmt)
		}
	}
	return out
}

type qualifiedUse struct {
	re    *regexp.Regexp
	alias string
}

// Source rewrites the imports of one generated file. importer is the module
// the file belongs to. Statements that already are relative, or that target
// modules the tree does not provide, are left alone, so applying Source to its
// own output changes nothing.
func Source(importer plan.ModulePath, src string, idx *Index) (string, []ImportReference, error) {
	var (
		b         strings.Builder
		refs      []ImportReference
		errs      []error
		qualified []qualifiedUse
		last      int
	)

	for _, stmt := range FindImports(src) {
		rewritten, target, q, err := rewriteStatement(importer, stmt, idx)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %s: %w", stmt.Line, strings.TrimSpace(stmt.Text), err))
			continue
		}
		if rewritten == "" {
			continue
		}
		if q != nil {
			qualified = append(qualified, *q)
		}
		b.WriteString(src[last:stmt.Start])
		b.WriteString(rewritten)
		last = stmt.End
		refs = append(refs, ImportReference{
			Importer:  importer,
			Target:    target,
			Statement: stmt.Text,
			Rewritten: rewritten,
			Line:      stmt.Line,
			Start:     stmt.Start,
			End:       stmt.End,
		})
	}
	if len(errs) > 0 {
		return src, nil, stderrors.Join(errs...)
	}
	if len(refs) == 0 {
		return src, nil, nil
	}
	b.WriteString(src[last:])
	out := b.String()
	for _, q := range qualified {
		out = q.re.ReplaceAllString(out, "${1}"+q.alias+".")
	}
	return out, refs, nil
}

// rewriteStatement returns the replacement text for stmt, or "" to keep it.
func rewriteStatement(importer plan.ModulePath, stmt pyimport.Statement, idx *Index) (string, plan.ModulePath, *qualifiedUse, error) {
	switch stmt.Form {
	case pyimport.FormImport:
		return rewriteImport(importer, stmt, idx)
	case pyimport.FormFrom:
		return rewriteFrom(importer, stmt, idx)
	}
	return "", nil, nil, nil
}

// rewriteImport handles `import a.b.c_pb2 [as x]`.
func rewriteImport(importer plan.ModulePath, stmt pyimport.Statement, idx *Index) (string, plan.ModulePath, *qualifiedUse, error) {
	art, ok := idx.Module(stmt.Module)
	if !ok {
		return "", nil, nil, unresolved(stmt.Module, idx)
	}
	target := art.Module
	alias := stmt.Names[0].Alias

	var q *qualifiedUse
	if alias == "" && len(target) > 1 {
		// `import a.b.c_pb2` binds "a" and code refers to a.b.c_pb2.X. Bind the
		// module to protoc's mangled alias and point the references at it.
		alias = target.Alias()
		q = &qualifiedUse{
			re:    regexp.MustCompile(`(^|[^\w.])` + regexp.QuoteMeta(stmt.Module) + `\.`),
			alias: alias,
		}
	}
	return stmt.Indent + RelativeImport(importer, target, alias) + commentSuffix(stmt), target, q, nil
}

// rewriteFrom handles `from pkg import mod [as x], ...` and `from pkg.mod import Symbol`.
func rewriteFrom(importer plan.ModulePath, stmt pyimport.Statement, idx *Index) (string, plan.ModulePath, *qualifiedUse, error) {
	if art, ok := idx.Module(stmt.Module); ok {
		next := stmt
		next.Module = RelativeModule(importer, art.Module)
		return pyimport.Format(next), art.Module, nil, nil
	}
	if src, filtered := idx.Filtered(stmt.Module); filtered {
		return "", nil, nil, fmt.Errorf("%w %s", ErrUnresolvedImport, src.RelPath)
	}

	// Only names the plan provides make the statement in-tree; a bare package
	// match is not enough.
	var target plan.ModulePath
	for _, n := range stmt.Names {
		full := stmt.Module + "." + n.Name
		if art, ok := idx.Module(full); ok {
			if target == nil {
				target = art.Module
			}
			continue
		}
		if err := unresolved(full, idx); err != nil {
			return "", nil, nil, err
		}
	}
	if target == nil {
		return "", nil, nil, nil
	}
	next := stmt
	next.Module = RelativePackage(importer, strings.Split(stmt.Module, "."))
	return pyimport.Format(next), target, nil, nil
}

// unresolved returns ErrUnresolvedImport when dotted is a generated module
// that the tree should hold but does not: its proto was filtered out, or its
// package is in the tree. Anything else is an external module.
func unresolved(dotted string, idx *Index) error {
	if src, filtered := idx.Filtered(dotted); filtered {
		return fmt.Errorf("%w: %s was filtered out", ErrUnresolvedImport, src.RelPath)
	}
	m := plan.ParseModulePath(dotted)
	if len(m) > 1 && isGeneratedName(m.Leaf()) && idx.Package(strings.Join(m.Package(), ".")) {
		return fmt.Errorf("%w: %s is not in the plan", ErrUnresolvedImport, dotted)
	}
	return nil
}

func isGeneratedName(leaf string) bool {
	return strings.HasSuffix(leaf, "_pb2") || strings.HasSuffix(leaf, "_pb2_grpc")
}

func commentSuffix(stmt pyimport.Statement) string {
	if stmt.Comment == "" {
		return ""
	}
	return "  " + stmt.Comment
}

// StampHeader puts header on the first line of text unless it is already there.
func StampHeader(text, header string) string {
	header = strings.TrimRight(header, "\n")
	if header == "" {
		return text
	}
	first, _, _ := strings.Cut(text, "\n")
	if strings.TrimRight(first, "\r") == header {
		return text
	}
	return header + "\n" + text
}
