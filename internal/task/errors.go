package task

import (
	"fmt"
	"sort"
)

// InconsistentSplitError reports that two or more splitting options within
// one group imply different color counts, e.g. three working directories
// against two PE counts. No ranks are assigned when this is raised.
type InconsistentSplitError struct {
	Counts []int
}

func (e *InconsistentSplitError) Error() string {
	counts := append([]int(nil), e.Counts...)
	sort.Ints(counts)
	return fmt.Sprintf("inconsistent split lengths %v", counts)
}

// Error reports an invalid or missing required task value discovered during
// group construction or rank assignment.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func taskErrorf(format string, a ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, a...)}
}
