package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pattern is one include or exclude filter. In YAML it is either a bare
// string (strategy auto-detected) or a {pattern, match} mapping.
type Pattern struct {
	Value string        `yaml:"pattern" validate:"required"`
	Match MatchStrategy `yaml:"match" validate:"oneof=exact prefix glob"`
}

// DetectStrategy picks glob for values with glob metacharacters and prefix otherwise.
func DetectStrategy(value string) MatchStrategy {
	if strings.ContainsAny(value, "*?[{") {
		return MatchGlob
	}
	return MatchPrefix
}

// UnmarshalYAML accepts the scalar and mapping forms.
func (p *Pattern) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		p.Value = node.Value
		p.Match = ""
		return nil
	case yaml.MappingNode:
		var raw struct {
			Pattern string `yaml:"pattern"`
			Match   string `yaml:"match"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		p.Value = raw.Pattern
		p.Match = MatchStrategy(raw.Match)
		return nil
	default:
		return fmt.Errorf("line %d: pattern must be a string or a {pattern, match} mapping", node.Line)
	}
}

// MarshalYAML writes the short form when the strategy is the auto-detected one.
func (p Pattern) MarshalYAML() (any, error) {
	if p.Match == "" || p.Match == DetectStrategy(p.Value) {
		return p.Value, nil
	}
	return struct {
		Pattern string        `yaml:"pattern"`
		Match   MatchStrategy `yaml:"match"`
	}{p.Value, p.Match}, nil
}

// String renders the pattern for logs and the plan tree.
func (p Pattern) String() string {
	return fmt.Sprintf("%s(%s)", p.Match, p.Value)
}

// cleanPatternValue normalises separators and strips "./" and trailing slashes.
func cleanPatternValue(v string) string {
	v = strings.TrimSpace(strings.ReplaceAll(v, "\\", "/"))
	for strings.HasPrefix(v, "./") {
		v = v[2:]
	}
	if len(v) > 1 {
		v = strings.TrimRight(v, "/")
	}
	return v
}
