package rewrite

import (
	"strings"

	"git.home.luguber.info/inful/protoimporter/internal/plan"
)

// RelativePackage returns the relative module reference from importer's
// package to pkg: one leading dot per level (one dot is importer's own package)
// followed by the remaining segments.
func RelativePackage(importer plan.ModulePath, pkg []string) string {
	from := importer.Package()
	common := 0
	for common < len(from) && common < len(pkg) && from[common] == pkg[common] {
		common++
	}
	dots := strings.Repeat(".", len(from)-common+1)
	return dots + strings.Join(pkg[common:], ".")
}

// RelativeModule returns the relative reference to target itself, for
// `from <ref> import Symbol`.
func RelativeModule(importer, target plan.ModulePath) string {
	ref := RelativePackage(importer, target.Package())
	if strings.HasSuffix(ref, ".") {
		return ref + target.Leaf()
	}
	return ref + "." + target.Leaf()
}

// RelativeImport returns the statement that binds target inside importer
// using the minimal relative form. alias is omitted when empty or equal to the
// module name.
func RelativeImport(importer, target plan.ModulePath, alias string) string {
	s := "from " + RelativePackage(importer, target.Package()) + " import " + target.Leaf()
	if alias != "" && alias != target.Leaf() {
		s += " as " + alias
	}
	return s
}
