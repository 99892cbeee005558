package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestColored(t *testing.T) {
	orig, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = orig, origNoColor }()
	color.NoColor = false

	tests := []struct {
		version string
		plain   bool // returned untouched even with colour on
	}{
		{"0.1.0-dev", false},
		{"1.2.3", false},
		{"1.0.0-beta.1", false},
		{"nightly", true},
		{"1.2", true},
	}
	for _, tt := range tests {
		Version = tt.version
		if got := Colored(false); got != tt.version {
			t.Errorf("Colored(false) = %q, want %q", got, tt.version)
		}
		got := Colored(true)
		if tt.plain {
			if got != tt.version {
				t.Errorf("Colored(true) = %q, want %q", got, tt.version)
			}
			continue
		}
		if !strings.Contains(got, "\x1b[") {
			t.Errorf("Colored(true) = %q has no colour", got)
		}
		major, _, _ := strings.Cut(tt.version, ".")
		if !strings.Contains(got, major) {
			t.Errorf("Colored(true) = %q lost %q", got, major)
		}
		if _, suffix, ok := strings.Cut(tt.version, "-"); ok && !strings.HasSuffix(got, "-"+suffix) {
			t.Errorf("Colored(true) = %q lost suffix %q", got, suffix)
		}
	}
}

func TestBuildMetadataCanBeOverridden(t *testing.T) {
	origCommit, origDate := GitCommit, BuildDate
	defer func() { GitCommit, BuildDate = origCommit, origDate }()

	GitCommit = "abc123def456"
	BuildDate = "2024-01-15T10:30:00Z"
	if GitCommit != "abc123def456" || BuildDate != "2024-01-15T10:30:00Z" {
		t.Error("metadata not overridable")
	}
	if strings.TrimSpace(Version) == "" {
		t.Error("Version should have a default value")
	}
}
