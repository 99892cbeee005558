// Package testkit holds checks shared by tests of the instrumenting
// pipeline.
package testkit

import (
	"fmt"
	"strings"

	"stepper/internal/instrument"
	"stepper/internal/source"
	"stepper/internal/step"
)

// CheckSites runs the site invariants on a compiled program:
// 1) every site has a known category and time and a node type
// 2) every location lies inside file and does not end before it starts
// 3) without detail no expression site exists
func CheckSites(prog *instrument.Program, file *source.File, detail bool) error {
	if prog == nil || file == nil {
		return fmt.Errorf("nil program or file")
	}
	lines := strings.Split(file.Content, "\n")
	for i, site := range prog.Sites {
		switch site.Category {
		case step.CategoryStatement:
		case step.CategoryExpression:
			if !detail {
				return fmt.Errorf("site %d: expression site without detail", i)
			}
		default:
			return fmt.Errorf("site %d: unexpected category %q", i, site.Category)
		}
		if site.Time != step.TimeBefore && site.Time != step.TimeAfter {
			return fmt.Errorf("site %d: unexpected time %q", i, site.Time)
		}
		if site.Type == "" {
			return fmt.Errorf("site %d: missing node type", i)
		}
		if site.Loc == nil {
			continue
		}
		if err := checkPos(site.Loc.Start, lines); err != nil {
			return fmt.Errorf("site %d (%s) start: %w", i, site.Type, err)
		}
		if err := checkPos(site.Loc.End, lines); err != nil {
			return fmt.Errorf("site %d (%s) end: %w", i, site.Type, err)
		}
		if site.Loc.End.Line < site.Loc.Start.Line ||
			(site.Loc.End.Line == site.Loc.Start.Line && site.Loc.End.Column < site.Loc.Start.Column) {
			return fmt.Errorf("site %d (%s): location %s ends before it starts", i, site.Type, site.Loc)
		}
	}
	return nil
}

func checkPos(p source.Pos, lines []string) error {
	if p.Line < 1 || p.Line > len(lines) {
		return fmt.Errorf("line %d outside 1..%d", p.Line, len(lines))
	}
	// columns count bytes
	width := len(lines[p.Line-1])
	if p.Column < 0 || p.Column > width {
		return fmt.Errorf("column %d outside line %d of width %d", p.Column, p.Line, width)
	}
	return nil
}
