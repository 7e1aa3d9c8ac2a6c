package plan

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/protoimporter/internal/config"
)

// Matcher decides whether a source path (relative to its root, slash separated) matches a pattern.
type Matcher interface {
	Match(relPath string) bool
	String() string
}

type exactMatcher string

func (m exactMatcher) Match(p string) bool { return p == string(m) }
func (m exactMatcher) String() string      { return "exact(" + string(m) + ")" }

// prefixMatcher matches the path itself or anything below it on a segment boundary.
type prefixMatcher string

func (m prefixMatcher) Match(p string) bool {
	pre := string(m)
	if pre == "" || pre == "." {
		return true
	}
	return p == pre || strings.HasPrefix(p, pre+"/")
}
func (m prefixMatcher) String() string { return "prefix(" + string(m) + ")" }

// globMatcher uses doublestar semantics: "*" and "?" stay within one segment,
// "**" spans segments and may match zero directories.
type globMatcher string

func (m globMatcher) Match(p string) bool {
	ok, err := doublestar.Match(string(m), p)
	return err == nil && ok
}
func (m globMatcher) String() string { return "glob(" + string(m) + ")" }

// NewMatcher compiles p. An empty strategy is auto-detected from the value.
func NewMatcher(p config.Pattern) (Matcher, error) {
	strategy := p.Match
	if strategy == "" {
		strategy = config.DetectStrategy(p.Value)
	}
	switch strategy {
	case config.MatchExact:
		return exactMatcher(p.Value), nil
	case config.MatchPrefix:
		return prefixMatcher(strings.TrimSuffix(p.Value, "/")), nil
	case config.MatchGlob:
		if !doublestar.ValidatePattern(p.Value) {
			return nil, fmt.Errorf("malformed glob %q", p.Value)
		}
		return globMatcher(p.Value), nil
	default:
		return nil, fmt.Errorf("unknown match strategy %q", strategy)
	}
}

// Filter applies include patterns (OR) and then exclude patterns.
type Filter struct {
	include []Matcher
	exclude []Matcher
}

// NewFilter compiles the include and exclude patterns of a unit.
// An empty include list admits every file.
func NewFilter(include, exclude []config.Pattern) (*Filter, error) {
	compile := func(patterns []config.Pattern) ([]Matcher, error) {
		out := make([]Matcher, 0, len(patterns))
		for _, p := range patterns {
			if strings.TrimSpace(p.Value) == "" {
				continue
			}
			m, err := NewMatcher(p)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	}
	incs, err := compile(include)
	if err != nil {
		return nil, err
	}
	excs, err := compile(exclude)
	if err != nil {
		return nil, err
	}
	return &Filter{include: incs, exclude: excs}, nil
}

// Include reports whether relPath passes the filter, with a reason when it does not.
func (f *Filter) Include(relPath string) (bool, string) {
	if f == nil {
		return true, ""
	}
	if len(f.include) > 0 {
		matched := false
		for _, m := range f.include {
			if m.Match(relPath) {
				matched = true
				break
			}
		}
		if !matched {
			return false, "not_in_includes"
		}
	}
	for _, m := range f.exclude {
		if m.Match(relPath) {
			return false, "excluded_by_" + m.String()
		}
	}
	return true, ""
}
