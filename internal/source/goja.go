package source

import "github.com/dop251/goja/file"

// FromPosition converts a parser position (1-based column) to a Pos.
func FromPosition(p file.Position) Pos {
	col := p.Column - 1
	if col < 0 {
		col = 0
	}
	return Pos{Line: p.Line, Column: col}
}

// LocOf returns the location of the [from, to) index range in f.
// It returns nil when f is nil or from is not a valid index.
func LocOf(f *file.File, from, to file.Idx) *Loc {
	if f == nil || from <= 0 {
		return nil
	}
	if to < from {
		to = from
	}
	start := f.Position(int(from) - f.Base())
	end := f.Position(int(to) - f.Base())
	return &Loc{Start: FromPosition(start), End: FromPosition(end)}
}
