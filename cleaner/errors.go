package cleaner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// ErrNoFolders is returned when a run has no download folder to measure.
var ErrNoFolders = errors.New("no download folders configured")

// PartialFailureError reports a run that finished but left work undone:
// removals that failed, or a free space target that could not be met.
type PartialFailureError struct {
	Failures  []error
	Shortfall int64
}

func (e *PartialFailureError) Error() string {
	var parts []string
	if n := len(e.Failures); n > 0 {
		parts = append(parts, fmt.Sprintf("%d removal(s) failed: %v", n, errors.Join(e.Failures...)))
	}
	if e.Shortfall > 0 {
		parts = append(parts, fmt.Sprintf("out of disk space with nothing left to remove, %s short", humanize.IBytes(uint64(e.Shortfall))))
	}
	if len(parts) == 0 {
		return "run completed with warnings"
	}
	return strings.Join(parts, "; ")
}

func (e *PartialFailureError) Unwrap() []error {
	return e.Failures
}
