package source

import "fmt"

// FileFlags encodes metadata about a loaded source file.
type FileFlags uint8

const (
	// FileVirtual indicates the file did not come from disk (preset, stdin, test).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

// File is a loaded program text.
type File struct {
	Path    string
	Content string
	Flags   FileFlags
}

// Pos is a human-readable position: 1-based line, 0-based column.
type Pos struct {
	Line   int `msgpack:"line" json:"line"`
	Column int `msgpack:"column" json:"column"`
}

// Loc is the source range of a node.
type Loc struct {
	Start Pos `msgpack:"start" json:"start"`
	End   Pos `msgpack:"end" json:"end"`
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

func (l Loc) String() string {
	if l.Start.Line == l.End.Line {
		return fmt.Sprintf("%d:%d-%d", l.Start.Line, l.Start.Column, l.End.Column)
	}
	return fmt.Sprintf("%s-%s", l.Start, l.End)
}

// Contains reports whether p lies inside l (end exclusive).
func (l Loc) Contains(p Pos) bool {
	return !before(p, l.Start) && before(p, l.End)
}

func before(a, b Pos) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}
