package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		flags FileFlags
	}{
		{"plain", "let a = 1;\n", "let a = 1;\n", 0},
		{"crlf", "a;\r\nb;\r\n", "a;\nb;\n", FileNormalizedCRLF},
		{"lone cr kept", "a;\rb;", "a;\rb;", 0},
		{"bom", "\xEF\xBB\xBFx", "x", FileHadBOM},
		{"bom and crlf", "\xEF\xBB\xBFx\r\n", "x\n", FileHadBOM | FileNormalizedCRLF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, flags := Normalize([]byte(tt.in))
			if string(got) != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
			if flags != tt.flags {
				t.Errorf("flags = %b, want %b", flags, tt.flags)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.js")
	if err := os.WriteFile(path, []byte("x++;\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Content != "x++;\n" {
		t.Errorf("content = %q", f.Content)
	}
	if f.Flags&FileNormalizedCRLF == 0 {
		t.Error("expected CRLF flag")
	}
	if _, err := Load(filepath.Join(dir, "missing.js")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLocContains(t *testing.T) {
	l := Loc{Start: Pos{Line: 2, Column: 4}, End: Pos{Line: 3, Column: 1}}
	tests := []struct {
		p    Pos
		want bool
	}{
		{Pos{2, 4}, true},
		{Pos{2, 3}, false},
		{Pos{2, 80}, true},
		{Pos{3, 0}, true},
		{Pos{3, 1}, false},
	}
	for _, tt := range tests {
		if got := l.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := l.String(); got != "2:4-3:1" {
		t.Errorf("String() = %q", got)
	}
}
