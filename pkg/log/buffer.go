package log

import (
	"fmt"
	"io"
	"slices"
	"sync"
)

// DefaultBufferSize is the capacity of a [Buffer] created with a
// non-positive size.
const DefaultBufferSize = 100

// Buffer holds the most recent log records written to it. It is used while
// the terminal is owned by a redrawing view, such as watch mode, and
// flushed once the view exits.
type Buffer struct {
	records [][]byte
	next    int
	dropped int
	size    int
	mu      sync.Mutex
}

// NewBuffer creates a [Buffer] holding up to size records.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}

	return &Buffer{
		records: make([][]byte, 0, size),
		size:    size,
	}
}

// Write implements [io.Writer]. Each call is one record. Once the buffer is
// full, the oldest record is dropped.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec := slices.Clone(p)
	if len(b.records) < b.size {
		b.records = append(b.records, rec)
	} else {
		b.records[b.next] = rec
		b.dropped++
	}

	b.next = (b.next + 1) % b.size

	return len(p), nil
}

// Records returns copies of the held records, oldest first.
func (b *Buffer) Records() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([][]byte, 0, len(b.records))

	start := 0
	if len(b.records) == b.size {
		start = b.next
	}

	for i := range len(b.records) {
		out = append(out, slices.Clone(b.records[(start+i)%len(b.records)]))
	}

	return out
}

// Len returns the number of held records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.records)
}

// Dropped returns the number of records overwritten since the last [Buffer.Reset].
func (b *Buffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.dropped
}

// Reset discards every record.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = b.records[:0]
	b.next = 0
	b.dropped = 0
}

// WriteTo implements [io.WriterTo], writing the held records oldest first.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	var total int64

	for _, rec := range b.Records() {
		n, err := w.Write(rec)
		total += int64(n)

		if err != nil {
			return total, fmt.Errorf("write record: %w", err)
		}
	}

	return total, nil
}
