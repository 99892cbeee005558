package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// normalizeCRLF replaces every \r\n with \n and leaves lone \r alone.
func normalizeCRLF(content []byte) ([]byte, bool) {
	if bytes.IndexByte(content, '\r') < 0 {
		return content, false
	}

	out := make([]byte, 0, len(content))
	for i := 0; i < len(content); i++ {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			continue
		}
		out = append(out, content[i])
	}
	return out, len(out) != len(content)
}

func removeBOM(content []byte) ([]byte, bool) {
	if bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}) {
		return content[3:], true
	}
	return content, false
}

// Normalize strips a UTF-8 BOM and folds CRLF line endings.
func Normalize(content []byte) ([]byte, FileFlags) {
	var flags FileFlags
	content, bom := removeBOM(content)
	if bom {
		flags |= FileHadBOM
	}
	content, crlf := normalizeCRLF(content)
	if crlf {
		flags |= FileNormalizedCRLF
	}
	return content, flags
}

// Load reads and normalizes a program file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	content, flags := Normalize(data)
	return &File{Path: normalizePath(path), Content: string(content), Flags: flags}, nil
}

// Virtual wraps in-memory text as a File.
func Virtual(name, content string) *File {
	data, flags := Normalize([]byte(content))
	return &File{Path: name, Content: string(data), Flags: flags | FileVirtual}
}

func normalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
