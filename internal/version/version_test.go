package version

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if Resolved() == "" {
		t.Error("Resolved() should not be empty")
	}
}

func TestString(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })
	Version = "v1.2.3"

	s := String()
	if !strings.HasPrefix(s, "protoimporter v1.2.3 ") {
		t.Errorf("unexpected banner %q", s)
	}
	if !strings.Contains(s, GitCommit) {
		t.Errorf("banner lacks commit: %q", s)
	}
}
