// Package pyimport finds and renders the single-line import statements that
// appear in generated Python modules and stubs.
package pyimport

import (
	"regexp"
	"strings"
)

// Form distinguishes `import x` from `from x import y`.
type Form int

const (
	FormImport Form = iota + 1
	FormFrom
)

// Name is one imported name with its optional alias.
type Name struct {
	Name  string
	Alias string
}

// Bound returns the identifier the name is bound to in the importing module.
func (n Name) Bound() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

// Statement is a parsed import statement occupying one source line.
type Statement struct {
	Form    Form
	Module  string // dotted module, leading dots for relative from-imports
	Names   []Name // FormFrom: imported names; FormImport: exactly one entry holding the alias
	Open    bool   // FormFrom with an unclosed "(": names continue on later lines
	Indent  string
	Comment string // trailing comment including "#", without preceding space
	Line    int    // 1-based
	Start   int    // byte offset of the line start
	End     int    // byte offset just past the statement text (excludes newline)
	Text    string // original line text
}

// Relative reports whether the statement is a relative from-import.
func (s Statement) Relative() bool {
	return strings.HasPrefix(s.Module, ".")
}

// Level is the number of leading dots of a relative module.
func (s Statement) Level() int {
	return len(s.Module) - len(strings.TrimLeft(s.Module, "."))
}

var (
	importRe = regexp.MustCompile(`^(\s*)import\s+([A-Za-z_][\w.]*)(?:\s+as\s+([A-Za-z_]\w*))?\s*(#.*)?$`)
	fromRe   = regexp.MustCompile(`^(\s*)from\s+(\.*[A-Za-z_][\w.]*|\.+)\s+import\s+(.+?)\s*(#.*)?$`)
	nameRe   = regexp.MustCompile(`^([A-Za-z_]\w*|\*)(?:\s+as\s+([A-Za-z_]\w*))?$`)
)

// Scan returns the import statements of src in source order. Lines inside
// triple-quoted strings are ignored; so are statements it cannot parse, such
// as `import a, b`.
func Scan(src string) []Statement {
	var out []Statement
	inString := false
	offset := 0
	for i, line := range strings.SplitAfter(src, "\n") {
		start := offset
		offset += len(line)
		text := strings.TrimRight(line, "\r\n")

		quotes := strings.Count(text, `"""`) + strings.Count(text, `'''`)
		if inString {
			if quotes%2 == 1 {
				inString = false
			}
			continue
		}
		if quotes%2 == 1 {
			inString = true
			continue
		}

		stmt, ok := parseLine(text)
		if !ok {
			continue
		}
		stmt.Line = i + 1
		stmt.Start = start
		stmt.End = start + len(text)
		stmt.Text = text
		out = append(out, stmt)
	}
	return out
}

func parseLine(text string) (Statement, bool) {
	if m := importRe.FindStringSubmatch(text); m != nil {
		return Statement{
			Form:    FormImport,
			Indent:  m[1],
			Module:  m[2],
			Names:   []Name{{Name: m[2], Alias: m[3]}},
			Comment: m[4],
		}, true
	}
	m := fromRe.FindStringSubmatch(text)
	if m == nil {
		return Statement{}, false
	}
	stmt := Statement{Form: FormFrom, Indent: m[1], Module: m[2], Comment: m[4]}
	names := strings.TrimSpace(m[3])
	if strings.HasPrefix(names, "(") {
		names = strings.TrimPrefix(names, "(")
		if strings.HasSuffix(names, ")") {
			names = strings.TrimSuffix(names, ")")
		} else {
			stmt.Open = true
		}
	}
	for _, part := range strings.Split(names, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		nm := nameRe.FindStringSubmatch(part)
		if nm == nil {
			return Statement{}, false
		}
		stmt.Names = append(stmt.Names, Name{Name: nm[1], Alias: nm[2]})
	}
	if len(stmt.Names) == 0 && !stmt.Open {
		return Statement{}, false
	}
	return stmt, true
}

// Format renders s back into source text, keeping indentation and comment.
func Format(s Statement) string {
	var b strings.Builder
	b.WriteString(s.Indent)
	switch s.Form {
	case FormImport:
		b.WriteString("import ")
		b.WriteString(s.Module)
		if len(s.Names) == 1 && s.Names[0].Alias != "" {
			b.WriteString(" as ")
			b.WriteString(s.Names[0].Alias)
		}
	case FormFrom:
		b.WriteString("from ")
		b.WriteString(s.Module)
		b.WriteString(" import ")
		if s.Open {
			b.WriteString("(")
		}
		for i, n := range s.Names {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(n.Name)
			if n.Alias != "" && n.Alias != n.Name {
				b.WriteString(" as ")
				b.WriteString(n.Alias)
			}
		}
	}
	if s.Comment != "" {
		b.WriteString("  ")
		b.WriteString(s.Comment)
	}
	return b.String()
}
