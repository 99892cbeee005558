package diagfmt

import (
	"os"
	"path/filepath"
	"strings"

	"stepper/internal/source"
)

const autoPathLimit = 40

func formatPath(f *source.File, mode PathMode, base string) string {
	if f == nil {
		return "<input>"
	}
	p := f.Path
	if f.Flags&source.FileVirtual != 0 {
		return p
	}
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(p); err == nil {
			return filepath.ToSlash(abs)
		}
	case PathModeRelative:
		if base == "" {
			base, _ = os.Getwd()
		}
		if abs, err := filepath.Abs(p); err == nil && base != "" {
			if rel, err := filepath.Rel(base, abs); err == nil && !strings.HasPrefix(rel, "..") {
				return filepath.ToSlash(rel)
			}
		}
	case PathModeBasename:
		return filepath.Base(p)
	case PathModeAuto:
		if len(p) > autoPathLimit {
			return filepath.Base(p)
		}
	}
	return p
}
