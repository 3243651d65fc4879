package tree

import (
	"bytes"
	"sort"
	"unicode/utf8"
)

// Lines indexes the line structure of a source buffer.
//
// Lines are separated by '\n'. A '\r' immediately before the '\n' belongs to
// the terminator, not to the line content.
type Lines struct {
	src    []byte
	starts []int
}

// NewLines indexes src.
func NewLines(src []byte) *Lines {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}

	return &Lines{src: src, starts: starts}
}

// Count returns the number of lines. An empty buffer has one empty line.
func (l *Lines) Count() int {
	return len(l.starts)
}

// Start returns the byte offset of the first byte of the zero-based line.
func (l *Lines) Start(line int) int {
	return l.starts[line]
}

// ContentEnd returns the exclusive end offset of the zero-based line's
// content, excluding its terminator.
func (l *Lines) ContentEnd(line int) int {
	end := len(l.src)
	if line+1 < len(l.starts) {
		end = l.starts[line+1] - 1 // The '\n'.
		if end > l.starts[line] && l.src[end-1] == '\r' {
			end--
		}
	}

	return end
}

// Line returns the zero-based line containing offset.
func (l *Lines) Line(offset int) int {
	return sort.Search(len(l.starts), func(i int) bool {
		return l.starts[i] > offset
	}) - 1
}

// Text returns the content of the zero-based line.
func (l *Lines) Text(line int) []byte {
	return l.src[l.starts[line]:l.ContentEnd(line)]
}

// RuneOffset converts a one-based line and one-based rune column into a byte
// offset. It returns false when the position is outside the buffer.
func (l *Lines) RuneOffset(line, column int) (int, bool) {
	if line < 1 || line > len(l.starts) || column < 1 {
		return 0, false
	}

	text := l.src[l.starts[line-1]:]
	if nl := bytes.IndexByte(text, '\n'); nl >= 0 {
		text = text[:nl+1]
	}

	off := 0
	for range column - 1 {
		if off >= len(text) {
			return 0, false
		}

		_, size := utf8.DecodeRune(text[off:])
		off += size
	}

	return l.starts[line-1] + off, true
}
