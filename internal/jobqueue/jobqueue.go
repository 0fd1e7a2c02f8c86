// Package jobqueue implements the process-wide async job model (spec.md
// §3 Job, §4.1): every externally submitted operation gets an integer id
// whose status can be polled or waited on.
//
// Design constraints, mirrored from the teacher repo's tasklog.Registry:
//   - Registry is the sole owner of job lifecycle; callers never mutate a
//     Job directly.
//   - Status/Wait/AllFinished are nil-safe so a zero-value *Registry never
//     panics a caller that forgot to construct one.
//   - wait() blocks on a one-shot channel closed exactly once on
//     completion — the same "closed channel as completion signal" idiom the
//     teacher uses for resultCh/completionCh in cmd/agsh/main.go.
package jobqueue

import (
	"sync"

	"github.com/autoloom/autoloom/internal/idkit"
)

// Kind labels what a job represents.
type Kind string

const (
	KindResourceLoad Kind = "ResourceLoad"
	KindControllerCmd Kind = "ControllerCmd"
	KindTask         Kind = "Task"
)

// Status is the job's lifecycle state.
type Status string

const (
	StatusIdle      Status = "Idle"
	StatusPending   Status = "Pending"
	StatusRunning   Status = "Running"
	StatusSucceeded Status = "Succeeded"
	StatusFailed    Status = "Failed"
	StatusInvalid   Status = "Invalid" // never stored; returned for unknown ids
)

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job is one async operation's bookkeeping record.
type Job struct {
	ID     uint64
	Kind   Kind
	mu     sync.Mutex
	status Status
	result any
	done   chan struct{}
}

func newJob(id uint64, kind Kind) *Job {
	return &Job{ID: id, Kind: kind, status: StatusPending, done: make(chan struct{})}
}

func (j *Job) setStatus(s Status, result any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return // already terminal; ignore late writes (e.g. racing interrupt)
	}
	j.status = s
	j.result = result
	if s.Terminal() {
		close(j.done)
	}
}

// Snapshot returns the job's current status and result, safe to read
// concurrently with the owning worker's writes.
func (j *Job) Snapshot() (Status, any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status, j.result
}

// Registry is the process-wide job table (§4.1).
type Registry struct {
	mu   sync.Mutex
	ids  idkit.JobIDSource
	jobs map[uint64]*Job
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{jobs: make(map[uint64]*Job)}
}

// Submit creates a new Pending job of the given kind and returns its id.
// Submission cannot fail except by resource exhaustion, per spec.md §4.1.
func (r *Registry) Submit(kind Kind) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.ids.Next()
	job := newJob(id, kind)
	r.jobs[id] = job
	return job
}

// Get returns the Job for id, or nil if unknown.
func (r *Registry) Get(id uint64) *Job {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id]
}

// Status returns the job's current status, or Invalid if id is unknown.
// Never blocks.
func (r *Registry) Status(id uint64) Status {
	job := r.Get(id)
	if job == nil {
		return StatusInvalid
	}
	status, _ := job.Snapshot()
	return status
}

// Wait blocks until id reaches a terminal status and returns it.
// Returns Invalid immediately for an unknown id.
func (r *Registry) Wait(id uint64) Status {
	job := r.Get(id)
	if job == nil {
		return StatusInvalid
	}
	<-job.done
	status, _ := job.Snapshot()
	return status
}

// Result returns the terminal result payload for id (nil if not yet
// terminal or unknown).
func (r *Registry) Result(id uint64) any {
	job := r.Get(id)
	if job == nil {
		return nil
	}
	_, result := job.Snapshot()
	return result
}

// MarkRunning transitions a job from Pending to Running. The owning worker
// calls this immediately before doing the underlying work.
func (r *Registry) MarkRunning(id uint64) {
	if job := r.Get(id); job != nil {
		job.mu.Lock()
		if job.status == StatusPending {
			job.status = StatusRunning
		}
		job.mu.Unlock()
	}
}

// Complete marks id Succeeded with the given result.
func (r *Registry) Complete(id uint64, result any) {
	if job := r.Get(id); job != nil {
		job.setStatus(StatusSucceeded, result)
	}
}

// Fail marks id Failed with the given reason (typically an *errkit.Error).
func (r *Registry) Fail(id uint64, reason any) {
	if job := r.Get(id); job != nil {
		job.setStatus(StatusFailed, reason)
	}
}

// Snapshot returns every tracked job's current (id, kind, status), for
// diagnostics/console listing. Order is unspecified.
func (r *Registry) Snapshot() []JobSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]JobSnapshot, 0, len(r.jobs))
	for id, job := range r.jobs {
		status, _ := job.Snapshot()
		out = append(out, JobSnapshot{ID: id, Kind: job.Kind, Status: status})
	}
	return out
}

// JobSnapshot is one Registry.Snapshot entry.
type JobSnapshot struct {
	ID     uint64
	Kind   Kind
	Status Status
}

// AllFinished reports whether every live job is terminal.
func (r *Registry) AllFinished() bool {
	if r == nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		status, _ := job.Snapshot()
		if !status.Terminal() {
			return false
		}
	}
	return true
}

// FailAllPending moves every non-terminal job to Failed with reason,
// synchronously. Used when an owning object is destroyed with outstanding
// jobs (spec.md §7: "destroying a handle with outstanding jobs moves them
// to Failed(Interrupted) synchronously before returning").
func (r *Registry) FailAllPending(reason any) {
	r.mu.Lock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	r.mu.Unlock()
	for _, job := range jobs {
		job.setStatus(StatusFailed, reason)
	}
}
