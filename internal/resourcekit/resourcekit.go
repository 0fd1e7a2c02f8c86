// Package resourcekit implements the resource loader (spec.md §4.8): an
// async, job-tracked worker that validates an in-memory pipeline graph and
// publishes it atomically to a pipelinekit.Manager. Parsing a bundle's
// on-disk layout is explicitly out of scope (spec.md §1/§3 "resource-manager
// territory") — Load takes an already-decoded node map, the shape any real
// bundle parser would hand it after reading JSON + side directories off
// disk.
//
// Grounded on controllerkit.Controller's single-worker queue: one goroutine
// owns the Manager and drains a buffered channel of load requests, the same
// "one worker per resource manager" shape spec.md §5 calls for.
package resourcekit

import (
	"github.com/autoloom/autoloom/internal/errkit"
	"github.com/autoloom/autoloom/internal/jobqueue"
	"github.com/autoloom/autoloom/internal/pipelinekit"
)

type loadRequest struct {
	jobID uint64
	nodes map[string]*pipelinekit.TaskData
}

// Loader owns one pipelinekit.Manager and serializes every load against it
// through a single worker goroutine (spec.md §4.8/§5).
type Loader struct {
	manager *pipelinekit.Manager
	jobs    *jobqueue.Registry

	queue chan loadRequest
	exit  chan struct{}
	done  chan struct{}
}

// New builds a Loader over manager and starts its worker.
func New(manager *pipelinekit.Manager) *Loader {
	l := &Loader{
		manager: manager,
		jobs:    jobqueue.New(),
		queue:   make(chan loadRequest, 8),
		exit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.worker()
	return l
}

// Load enqueues nodes for validation and publish, returning the tracking
// job id immediately (spec.md §4.8 "Jobs of kind ResourceLoad parse a
// bundle path, validate the pipeline graph, ..., and atomically publish").
func (l *Loader) Load(nodes map[string]*pipelinekit.TaskData) uint64 {
	job := l.jobs.Submit(jobqueue.KindResourceLoad)
	select {
	case <-l.exit:
		l.jobs.Fail(job.ID, errkit.New(errkit.Interrupted, "resource loader stopped"))
		return job.ID
	default:
	}
	select {
	case l.queue <- loadRequest{jobID: job.ID, nodes: nodes}:
	case <-l.exit:
		l.jobs.Fail(job.ID, errkit.New(errkit.Interrupted, "resource loader stopped"))
	}
	return job.ID
}

// Jobs exposes the load-job registry for status/wait polling.
func (l *Loader) Jobs() *jobqueue.Registry { return l.jobs }

// Manager returns the published Manager, shared with the engine bound to
// this resource.
func (l *Loader) Manager() *pipelinekit.Manager { return l.manager }

// Stop drains the worker and fails any still-queued load request.
func (l *Loader) Stop() {
	close(l.exit)
	<-l.done
	l.jobs.FailAllPending(errkit.New(errkit.Interrupted, "resource loader stopped"))
}

func (l *Loader) worker() {
	defer close(l.done)
	for {
		select {
		case <-l.exit:
			return
		case req := <-l.queue:
			l.jobs.MarkRunning(req.jobID)
			graph, err := pipelinekit.NewGraph(req.nodes)
			if err != nil {
				l.jobs.Fail(req.jobID, errkit.Wrap(errkit.InvalidArgument, "resource load", err))
				continue
			}
			l.manager.Publish(graph)
			l.jobs.Complete(req.jobID, graph)
		}
	}
}
