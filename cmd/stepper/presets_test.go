package main

import (
	"testing"

	"stepper/internal/instrument"
)

func TestPresetsCompile(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range presets {
		if seen[p.Slug] {
			t.Fatalf("duplicate preset %q", p.Slug)
		}
		seen[p.Slug] = true
		for _, detail := range []bool{true, false} {
			if _, err := instrument.CompileSource(p.Slug, p.Code, instrument.Options{Detail: detail}); err != nil {
				t.Errorf("preset %q (detail=%v): %v", p.Slug, detail, err)
			}
		}
	}
}

func TestLookupPreset(t *testing.T) {
	cases := []struct {
		name string
		slug string
		ok   bool
	}{
		{"for-loop", "for-loop", true},
		{"Averaging grades with reduce", "reduce", true},
		{"circular data", "circular", true},
		{"fetch", "", false},
	}
	for _, tc := range cases {
		p, ok := lookupPreset(tc.name)
		if ok != tc.ok || p.Slug != tc.slug {
			t.Errorf("lookupPreset(%q) = %q, %v; want %q, %v", tc.name, p.Slug, ok, tc.slug, tc.ok)
		}
	}
}
