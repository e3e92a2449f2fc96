// Package journal appends one line per removed torrent to a plain text log.
//
// Every line written during a run carries the same UTC timestamp, taken when
// the journal is created, so the entries of one run can be grouped later.
package journal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// StampFormat is the timestamp layout that prefixes each line.
const StampFormat = "2006-01-02 15:04:05"

// Journal is an append-only removal log. It is safe for concurrent use.
type Journal struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	stamp  string
}

// New writes journal lines to w, stamped with now in UTC.
func New(w io.Writer, now time.Time) *Journal {
	return &Journal{
		w:     w,
		stamp: now.UTC().Format(StampFormat),
	}
}

// Open opens path for appending on fs, creating it and its parent directory
// when missing.
func Open(fs afero.Fs, path string, now time.Time) (*Journal, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	f, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}

	j := New(f, now)
	j.closer = f
	return j, nil
}

// Record appends "<stamp> | <line>" followed by a newline.
func (j *Journal) Record(line string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := fmt.Fprintf(j.w, "%s | %s\n", j.stamp, line); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	return nil
}

// Close closes the underlying file when the journal owns one.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closer == nil {
		return nil
	}
	err := j.closer.Close()
	j.closer = nil
	return err
}
