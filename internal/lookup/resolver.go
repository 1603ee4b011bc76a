// Package lookup resolves author identifiers to contact values by
// incrementally scanning an operator-supplied mapping file. The file is a
// newline-delimited sequence of single-pair JSON objects and may be
// gigabytes in size; it is never loaded wholesale into memory.
package lookup

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/AymanAAASWa/facebook-monitor/internal/domain"
)

// DefaultChunkSize is the byte window used per read when none is configured.
const DefaultChunkSize = 1 << 20

// Resolver performs a linear scan of the mapping file per lookup. The full
// rescan per identifier is the dominant cost of the system for large files;
// it is a known scaling limitation of the ad hoc per-session mapping file,
// not a defect. See Index for the opt-in alternative.
type Resolver struct {
	chunkSize int
	logger    *slog.Logger
}

// NewResolver creates a resolver. A chunkSize of 0 selects DefaultChunkSize.
func NewResolver(chunkSize int, logger *slog.Logger) *Resolver {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Resolver{chunkSize: chunkSize, logger: logger}
}

// Resolve scans the mapping file for the given identifier and returns its
// contact value. The result is independent of the configured chunk size: a
// carry-over buffer joins records split across window boundaries. A read
// failure or malformed line degrades to skipping, never an error; the
// zero Contact means unresolved.
func (r *Resolver) Resolve(identifier string, src io.Reader) domain.Contact {
	if identifier == "" {
		return domain.Contact{}
	}

	buf := make([]byte, r.chunkSize)
	var carry string

	for {
		n, err := src.Read(buf)
		if n > 0 {
			carry += string(buf[:n])
			lines := strings.Split(carry, "\n")
			carry = lines[len(lines)-1]
			for _, line := range lines[:len(lines)-1] {
				if c, ok := matchLine(line, identifier); ok {
					return c
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			r.logger.Warn("mapping file read failed", "error", err)
			return domain.Contact{}
		}
	}

	// The final carried-over fragment is a complete line when the file
	// lacks a trailing newline.
	if c, ok := matchLine(carry, identifier); ok {
		return c
	}
	return domain.Contact{}
}

// matchLine tests one complete line for the identifier. A cheap substring
// containment check on the quoted identifier short-circuits the
// overwhelming majority of lines before any structural parse.
func matchLine(line, identifier string) (domain.Contact, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.Contains(line, `"`+identifier+`"`) {
		return domain.Contact{}, false
	}

	record, ok := parseRecord(line)
	if !ok {
		return domain.Contact{}, false
	}
	value, ok := record[identifier]
	if !ok {
		return domain.Contact{}, false
	}
	return domain.Contact{Value: value, Found: true}, true
}

// parseRecord parses one mapping line, tolerating a trailing line-separator
// comma left by hand-edited files. Malformed lines are skipped.
func parseRecord(line string) (map[string]string, bool) {
	line = strings.TrimSuffix(line, ",")
	var record map[string]string
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return nil, false
	}
	return record, true
}
