package lookup

import (
	"fmt"
	"io"
	"strings"

	"github.com/AymanAAASWa/facebook-monitor/internal/domain"
)

// Index is an opt-in one-shot offset index over a mapping file. Building it
// costs one full scan; lookups afterwards read a single line instead of
// rescanning the file. Memory grows with the number of records (two ints
// and the identifier per record), not with the file size.
type Index struct {
	entries map[string]lineSpan
}

type lineSpan struct {
	offset int64
	length int
}

// BuildIndex scans the mapping file once, recording the byte span of each
// well-formed record's line keyed by its identifier. Malformed lines are
// skipped. chunkSize of 0 selects DefaultChunkSize.
func BuildIndex(src io.Reader, chunkSize int) (*Index, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	idx := &Index{entries: make(map[string]lineSpan)}
	buf := make([]byte, chunkSize)
	var carry string
	var lineStart int64

	record := func(line string) {
		span := lineSpan{offset: lineStart, length: len(line)}
		lineStart += int64(len(line)) + 1
		parsed, ok := parseRecord(strings.TrimSpace(line))
		if !ok {
			return
		}
		for id := range parsed {
			idx.entries[id] = span
		}
	}

	for {
		n, err := src.Read(buf)
		if n > 0 {
			carry += string(buf[:n])
			lines := strings.Split(carry, "\n")
			carry = lines[len(lines)-1]
			for _, line := range lines[:len(lines)-1] {
				record(line)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read mapping file: %w", err)
		}
	}
	if carry != "" {
		span := lineSpan{offset: lineStart, length: len(carry)}
		if parsed, ok := parseRecord(strings.TrimSpace(carry)); ok {
			for id := range parsed {
				idx.entries[id] = span
			}
		}
	}

	return idx, nil
}

// Len returns the number of indexed records.
func (i *Index) Len() int {
	return len(i.entries)
}

// Lookup reads the indexed line for the identifier from the mapping file
// and returns its contact value, or the zero Contact when the identifier
// was not indexed or its line no longer parses.
func (i *Index) Lookup(identifier string, src io.ReaderAt) domain.Contact {
	span, ok := i.entries[identifier]
	if !ok {
		return domain.Contact{}
	}

	line := make([]byte, span.length)
	if _, err := src.ReadAt(line, span.offset); err != nil {
		return domain.Contact{}
	}
	c, _ := matchLine(string(line), identifier)
	return c
}
