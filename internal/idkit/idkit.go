// Package idkit hands out the two flavors of identifier the framework uses:
// monotonic job ids (§3 Job, never reused, 0 reserved as invalid) and opaque
// UUID handle ids for the C-ABI-style Resource/Controller/Instance objects
// described in spec.md §6.
package idkit

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// InvalidJobID is the sentinel returned for an unknown or never-issued job.
const InvalidJobID uint64 = 0

// JobIDSource hands out strictly increasing job ids starting at 1.
// Safe for concurrent use.
type JobIDSource struct {
	next atomic.Uint64
}

// Next returns the next monotonically increasing id, skipping 0.
func (s *JobIDSource) Next() uint64 {
	return s.next.Add(1)
}

// NewHandleID returns a fresh opaque handle id, the way the teacher repo
// stamps every bus message and task with uuid.New().String().
func NewHandleID() string {
	return uuid.New().String()
}
