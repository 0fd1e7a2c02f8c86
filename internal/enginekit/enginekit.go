// Package enginekit implements the task engine (spec.md §4.6): a
// recursive, graph-driven state machine that repeatedly captures a frame,
// evaluates recognition, dispatches actuation, and follows next/timeout/
// runout edges, with depth-first sub-pipelines and per-run status.
//
// Grounded on the teacher's cmd/agsh/main.go runSubtaskDispatcher: a
// per-entity (there: per-subtask; here: per-task-id) goroutine fan-out with
// its own cancellable context, generalized from a flat subtask list to the
// recursive pipeline-node state machine spec.md §4.6 describes.
package enginekit

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/autoloom/autoloom/internal/actuatorkit"
	"github.com/autoloom/autoloom/internal/controllerkit"
	"github.com/autoloom/autoloom/internal/errkit"
	"github.com/autoloom/autoloom/internal/jobqueue"
	"github.com/autoloom/autoloom/internal/pipelinekit"
	"github.com/autoloom/autoloom/internal/recognizerkit"
	"github.com/autoloom/autoloom/internal/synckit"
	"github.com/autoloom/autoloom/internal/visionkit"
)

// retryInterval bounds how often the engine re-screencaps while no
// candidate in the current list has hit (spec.md §4.6 "the engine sleeps a
// small bounded interval and re-screencaps").
const retryInterval = 50 * time.Millisecond

// Terminal names how a task run ended.
type Terminal string

const (
	TerminalSucceeded   Terminal = "Succeeded"
	TerminalTimeout     Terminal = "Timeout"
	TerminalRunout      Terminal = "Runout"
	TerminalStoppedByTask Terminal = "StoppedByTask"
	TerminalInterrupted Terminal = "Interrupted"
)

// Event is one lifecycle callback payload (spec.md §6 "Callback contract":
// dotted message strings plus a JSON-equivalent payload).
type Event struct {
	Message string
	TaskID  uint64
	Node    string
	Payload map[string]any
}

// Callback receives lifecycle events, delivered synchronously on the
// engine's own goroutine for that task (spec.md §4.6 "Callback delivery is
// synchronous on the engine thread").
type Callback func(Event)

// runStatus is the per-in-flight-task-id scratch space (spec.md §3
// "Pipeline run status").
type runStatus struct {
	mu          sync.Mutex
	hitTimes    map[string]int
	recBoxes    map[string]visionkit.Rect
	recDetails  map[string][]byte
	interrupted bool
}

func newRunStatus() *runStatus {
	return &runStatus{
		hitTimes:   make(map[string]int),
		recBoxes:   make(map[string]visionkit.Rect),
		recDetails: make(map[string][]byte),
	}
}

// Box implements recognizerkit.boxCache.
func (s *runStatus) Box(name string) (visionkit.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recBoxes[name]
	return r, ok
}

func (s *runStatus) hitCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hitTimes[name]
}

func (s *runStatus) recordHit(name string, box visionkit.Rect, detail []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hitTimes[name]++
	s.recBoxes[name] = box
	s.recDetails[name] = detail
	return s.hitTimes[name]
}

func (s *runStatus) snapshotHitTimes() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.hitTimes))
	for k, v := range s.hitTimes {
		out[k] = v
	}
	return out
}

// Engine is the task engine bound to one resource graph and one controller
// (spec.md §4.6: "The engine owns one worker thread per bound resource;
// tasks within a resource are serialised.").
type Engine struct {
	jobs       *jobqueue.Registry
	graph      *pipelinekit.Manager
	registry   *visionkit.Registry
	dispatcher *recognizerkit.Dispatcher
	controller *controllerkit.Controller
	actuator   *actuatorkit.Actuator
	syncCtx    *synckit.Context

	mu        sync.Mutex
	callbacks []Callback
	exit      chan struct{}
	stopped   bool

	runsMu sync.Mutex
	runs   map[uint64]*runStatus

	paramOverrideMu sync.Mutex
	paramOverride   map[uint64][]byte

	wg sync.WaitGroup

	// submitCh gives the single worker goroutine semantics required by
	// "tasks within a resource are serialised": a dedicated channel fed by
	// Submit, drained by one goroutine started in New.
	submitCh chan submittedTask
}

type submittedTask struct {
	jobID uint64
	entry string
}

// New builds an Engine over graph/registry/controller and starts its single
// task-serialising worker goroutine.
func New(graph *pipelinekit.Manager, registry *visionkit.Registry, controller *controllerkit.Controller) *Engine {
	e := &Engine{
		jobs:       jobqueue.New(),
		graph:      graph,
		registry:   registry,
		dispatcher: recognizerkit.New(registry),
		controller: controller,
		actuator:   actuatorkit.New(controller),
		exit:       make(chan struct{}),
		runs:       make(map[uint64]*runStatus),
		paramOverride: make(map[uint64][]byte),
		submitCh:   make(chan submittedTask, 64),
	}
	e.syncCtx = synckit.New(controller, e, e, e, e)
	e.wg.Add(1)
	go e.worker()
	return e
}

// OnEvent registers a lifecycle callback (spec.md §4.6 "emits lifecycle
// callbacks").
func (e *Engine) OnEvent(cb Callback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks = append(e.callbacks, cb)
}

func (e *Engine) emit(ev Event) {
	e.mu.Lock()
	cbs := append([]Callback(nil), e.callbacks...)
	e.mu.Unlock()
	for _, cb := range cbs {
		cb(ev)
	}
}

// RegisterRecognizer adds a CustomRecognizer as an adapter whose kind is
// name, reachable from any TaskData whose Recognition.Kind == name
// (spec.md §6 "CustomRecognizer").
func (e *Engine) RegisterRecognizer(name string, recognizer visionkit.CustomRecognizer) {
	e.registry.Register(&namedCustomRecognizer{kind: name, recognizer: recognizer, engine: e})
}

// namedCustomRecognizer adapts a plain CustomRecognizer into a full
// visionkit.Adapter registered under its own kind name, so a TaskData can
// name it directly in Recognition.Kind instead of hand-building a
// visionkit.CustomParam (which would otherwise require the bundle author to
// reach into internal/synckit themselves to supply SyncCtx).
type namedCustomRecognizer struct {
	kind       string
	recognizer visionkit.CustomRecognizer
	engine     *Engine
}

func (n *namedCustomRecognizer) Kind() string { return n.kind }
func (n *namedCustomRecognizer) Analyze(in visionkit.Input) ([]visionkit.Result, error) {
	return (&visionkit.Custom{}).Analyze(visionkit.Input{
		Image: in.Image, ROIs: in.ROIs, CachedROI: in.CachedROI,
		TaskName: in.TaskName,
		Param: visionkit.CustomParam{
			Recognizer: n.recognizer,
			SyncCtx:    n.engine.syncCtx,
			TaskName:   in.TaskName,
			Param:      paramBytes(in.Param),
		},
	})
}

func paramBytes(v any) []byte {
	if b, ok := v.([]byte); ok {
		return b
	}
	return nil
}

// RegisterAction adds a CustomAction under name (spec.md §6 "CustomAction").
func (e *Engine) RegisterAction(name string, action actuatorkit.CustomAction) {
	e.actuator.RegisterCustomAction(name, action)
}

// UnregisterAction removes name's CustomAction, calling its Stop exactly
// once (spec.md §9 decision 3).
func (e *Engine) UnregisterAction(name string) {
	e.actuator.UnregisterCustomAction(name)
}

// Submit enqueues a new task run at entry and returns its job id
// immediately (spec.md §4.6 "submit(entry, param_override) -> task_id").
// The engine refuses to start while no resource has loaded (spec.md §4.8).
func (e *Engine) Submit(entry string, paramOverride []byte) (uint64, error) {
	if !e.graph.Loaded() {
		return 0, errkit.New(errkit.NotReady, "no resource bundle loaded")
	}
	if e.graph.Graph().Node(entry) == nil {
		return 0, errkit.New(errkit.InvalidArgument, fmt.Sprintf("unknown entry node %q", entry))
	}
	job := e.jobs.Submit(jobqueue.KindTask)
	if paramOverride != nil {
		e.paramOverrideMu.Lock()
		e.paramOverride[job.ID] = paramOverride
		e.paramOverrideMu.Unlock()
	}
	select {
	case e.submitCh <- submittedTask{jobID: job.ID, entry: entry}:
	case <-e.exit:
		e.jobs.Fail(job.ID, errkit.New(errkit.Interrupted, "engine stopped"))
	}
	return job.ID, nil
}

// SetParam stores a param override for a not-yet-started or in-flight task
// (spec.md §4.6 "set_param(task_id, param) -> ok"). It only has visible
// effect on the task's entry node, and only when that node's
// Recognition.Param is a visionkit.CustomParam (the override replaces its
// Param payload) or a raw []byte (as used by recognizers registered through
// RegisterRecognizer, where the override replaces it whole). Built-in
// adapter param types are left unchanged.
func (e *Engine) SetParam(taskID uint64, param []byte) bool {
	if e.jobs.Get(taskID) == nil {
		return false
	}
	e.paramOverrideMu.Lock()
	e.paramOverride[taskID] = param
	e.paramOverrideMu.Unlock()
	return true
}

// paramOverrideFor returns taskID's currently-stored param override, if any.
func (e *Engine) paramOverrideFor(taskID uint64) ([]byte, bool) {
	e.paramOverrideMu.Lock()
	defer e.paramOverrideMu.Unlock()
	override, ok := e.paramOverride[taskID]
	return override, ok
}

// withOverrideParam returns a shallow copy of node with override applied to
// its Recognition.Param: as the Param payload of a visionkit.CustomParam, or
// in place of a raw []byte param (see SetParam). Nodes with any other param
// type are returned unchanged.
func withOverrideParam(node *pipelinekit.TaskData, override []byte) *pipelinekit.TaskData {
	switch p := node.Recognition.Param.(type) {
	case visionkit.CustomParam:
		cp := *node
		cp.Recognition.Param = visionkit.CustomParam{
			Recognizer: p.Recognizer,
			SyncCtx:    p.SyncCtx,
			TaskName:   p.TaskName,
			Param:      override,
		}
		return &cp
	case []byte:
		cp := *node
		cp.Recognition.Param = override
		return &cp
	default:
		return node
	}
}

func (e *Engine) Status(taskID uint64) jobqueue.Status { return e.jobs.Status(taskID) }
func (e *Engine) Wait(taskID uint64) jobqueue.Status    { return e.jobs.Wait(taskID) }
func (e *Engine) AllFinished() bool                     { return e.jobs.AllFinished() }

// Jobs exposes the underlying task job registry for diagnostics/console use.
func (e *Engine) Jobs() *jobqueue.Registry { return e.jobs }

// Stop signals every in-flight run to wind down at its next suspension
// point, stops every registered custom action (spec.md §9 decision 3), and
// fails outstanding task jobs (spec.md §5 "Destroying an object is a
// barrier").
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.mu.Unlock()

	close(e.exit)
	e.wg.Wait()
	e.actuator.StopAll()
	e.jobs.FailAllPending(errkit.New(errkit.Interrupted, "engine stopped"))
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.exit:
			return
		case st := <-e.submitCh:
			e.runTask(st.jobID, st.entry)
		}
	}
}

func (e *Engine) runTask(taskID uint64, entry string) {
	e.jobs.MarkRunning(taskID)
	status := newRunStatus()
	e.runsMu.Lock()
	e.runs[taskID] = status
	e.runsMu.Unlock()
	defer func() {
		e.runsMu.Lock()
		delete(e.runs, taskID)
		e.runsMu.Unlock()
		e.paramOverrideMu.Lock()
		delete(e.paramOverride, taskID)
		e.paramOverrideMu.Unlock()
	}()

	e.emit(Event{Message: "task.started", TaskID: taskID, Node: entry})

	ctx := context.Background()
	terminal, err := e.runPipeline(ctx, taskID, entry, status, true)

	e.runsMu.Lock()
	interrupted := status.interrupted
	e.runsMu.Unlock()
	if interrupted {
		terminal = TerminalInterrupted
	}

	e.emit(Event{Message: "task.finished", TaskID: taskID, Node: entry, Payload: map[string]any{
		"terminal": string(terminal),
	}})

	if err != nil && terminal != TerminalStoppedByTask {
		e.jobs.Fail(taskID, errkit.Wrap(terminalKind(terminal), "task run", err))
		return
	}
	if terminal == TerminalStoppedByTask {
		e.jobs.Fail(taskID, errkit.New(errkit.StoppedByTask, "task reached StopTask"))
		return
	}
	if terminal == TerminalInterrupted {
		e.jobs.Fail(taskID, errkit.New(errkit.Interrupted, "task interrupted"))
		return
	}
	e.jobs.Complete(taskID, terminal)
}

func terminalKind(t Terminal) errkit.Kind {
	switch t {
	case TerminalTimeout:
		return errkit.Timeout
	case TerminalStoppedByTask:
		return errkit.StoppedByTask
	case TerminalInterrupted:
		return errkit.Interrupted
	default:
		return errkit.Internal
	}
}

// runPipeline is spec.md §4.6's run_pipeline, implemented recursively for
// sub-pipelines (spec.md §9 decision 1: depth-first, before the parent's
// own next edge resumes).
func (e *Engine) runPipeline(ctx context.Context, taskID uint64, entry string, status *runStatus, isTopEntry bool) (Terminal, error) {
	graph := e.graph.Graph()
	curList := []string{entry}

	for {
		select {
		case <-e.exit:
			status.mu.Lock()
			status.interrupted = true
			status.mu.Unlock()
			return TerminalInterrupted, nil
		default:
		}

		var overrideNode string
		if isTopEntry {
			overrideNode = entry
		}
		node, timeoutHit := e.waitForHit(ctx, taskID, curList, graph, status, overrideNode)
		if node == nil {
			if timeoutHit {
				first := graph.Node(curList[0])
				e.emit(Event{Message: "task.node_timeout", TaskID: taskID, Node: curList[0]})
				curList = first.TimeoutNext
				if len(curList) == 0 {
					return TerminalTimeout, nil
				}
				continue
			}
			status.mu.Lock()
			interrupted := status.interrupted
			status.mu.Unlock()
			if interrupted {
				return TerminalInterrupted, nil
			}
			continue
		}

		// spec.md §4.6 checks hit_times[node.name] >= times_limit *before*
		// the increment and before actuator.run: a node already at its
		// limit is routed to runout on its next matching frame without
		// recording another hit, emitting node_hit, or acting (spec.md §8
		// scenario 3's k-th match is the last one that still actuates).
		if node.data.HitLimitReached(status.hitCount(node.name)) {
			curList = node.data.RunoutNext
			e.emit(Event{Message: "task.node_runout", TaskID: taskID, Node: node.name})
			if len(curList) == 0 {
				return TerminalRunout, nil
			}
			continue
		}

		count := status.recordHit(node.name, node.outcome.Box, node.outcome.Result.Detail)
		e.emit(Event{Message: "task.node_hit", TaskID: taskID, Node: node.name, Payload: map[string]any{
			"box": node.outcome.Box, "count": count,
		}})

		lookup := pipelinekit.RecBoxLookup(status.Box)
		ok, err := e.actuator.Run(ctx, node.data, node.outcome.Box, node.outcome.Result.Detail, lookup, e.syncCtx, e.exit)
		e.emit(Event{Message: "task.action_completed", TaskID: taskID, Node: node.name, Payload: map[string]any{"ok": ok}})
		if err != nil {
			return TerminalInterrupted, fmt.Errorf("enginekit: node %q action: %w", node.name, err)
		}
		if !ok {
			return TerminalStoppedByTask, nil
		}

		for _, sub := range node.data.SubPipelines {
			e.emit(Event{Message: "task.subpipeline_entered", TaskID: taskID, Node: sub})
			subTerminal, subErr := e.runPipeline(ctx, taskID, sub, status, false)
			e.emit(Event{Message: "task.subpipeline_left", TaskID: taskID, Node: sub})
			if subErr != nil || subTerminal != TerminalSucceeded {
				return subTerminal, subErr
			}
		}

		curList = node.data.Next
		if len(curList) == 0 {
			return TerminalSucceeded, nil
		}
	}
}

// hitNode bundles a matched node with its dispatcher outcome.
type hitNode struct {
	name    string
	data    *pipelinekit.TaskData
	outcome recognizerkit.Outcome
}

// waitForHit implements find_first_hit plus the node-timeout check around
// it (spec.md §4.6). It blocks, re-screencapping and re-evaluating curList
// until a candidate hits, the governing timeout elapses, or the engine is
// stopped. timeoutHit is true only when the deadline (curList[0]'s Timeout
// field) has elapsed with nothing found. overrideNode, if non-empty, names
// the task's entry node: its Recognition.Param is substituted with the
// task's live param override (spec.md §4.6 "set_param(task_id, param)"),
// re-read on every frame so a SetParam call mid-run still takes effect.
func (e *Engine) waitForHit(ctx context.Context, taskID uint64, curList []string, graph *pipelinekit.Graph, status *runStatus, overrideNode string) (*hitNode, bool) {
	if len(curList) == 0 {
		return nil, false
	}
	first := graph.Node(curList[0])
	var deadline time.Time
	if first != nil && first.Timeout > 0 {
		deadline = time.Now().Add(first.Timeout)
	}

	for {
		select {
		case <-e.exit:
			status.mu.Lock()
			status.interrupted = true
			status.mu.Unlock()
			return nil, false
		default:
		}

		id := e.controller.Screencap()
		if e.controller.Jobs().Wait(id) == jobqueue.StatusSucceeded {
			frame, _ := e.controller.Jobs().Result(id).(*visionkit.Image)
			if frame != nil {
				for _, name := range curList {
					node := graph.Node(name)
					if node == nil || !node.Enabled {
						continue
					}
					dispatchNode := node
					if name == overrideNode {
						if override, ok := e.paramOverrideFor(taskID); ok {
							dispatchNode = withOverrideParam(node, override)
						}
					}
					outcome, err := e.dispatcher.Run(dispatchNode, frame, nil, status)
					if err != nil {
						log.Printf("[ENGINE] node %q: dispatcher error: %v", name, err)
						continue
					}
					if outcome.Hit {
						return &hitNode{name: name, data: node, outcome: outcome}, false
					}
				}
			}
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, true
		}

		select {
		case <-time.After(retryInterval):
		case <-e.exit:
			status.mu.Lock()
			status.interrupted = true
			status.mu.Unlock()
			return nil, false
		}
	}
}

// --- synckit.TaskRunner / RecognizerRunner / ActionRunner / TaskResultGetter ---

func (e *Engine) RunTask(ctx context.Context, entry string, paramOverride []byte) (uint64, error) {
	if !e.graph.Loaded() {
		return 0, errkit.New(errkit.NotReady, "no resource bundle loaded")
	}
	if e.graph.Graph().Node(entry) == nil {
		return 0, errkit.New(errkit.InvalidArgument, fmt.Sprintf("unknown entry node %q", entry))
	}
	job := e.jobs.Submit(jobqueue.KindTask)
	if paramOverride != nil {
		e.paramOverrideMu.Lock()
		e.paramOverride[job.ID] = paramOverride
		e.paramOverrideMu.Unlock()
	}
	e.runTask(job.ID, entry)
	return job.ID, nil
}

func (e *Engine) RunRecognizer(ctx context.Context, nodeName string) (visionkit.Rect, []byte, bool, error) {
	node := e.graph.Graph().Node(nodeName)
	if node == nil {
		return visionkit.Rect{}, nil, false, fmt.Errorf("enginekit: unknown node %q", nodeName)
	}
	id := e.controller.Screencap()
	if e.controller.Jobs().Wait(id) != jobqueue.StatusSucceeded {
		return visionkit.Rect{}, nil, false, fmt.Errorf("enginekit: screencap failed")
	}
	frame, _ := e.controller.Jobs().Result(id).(*visionkit.Image)
	outcome, err := e.dispatcher.Run(node, frame, nil, nil)
	if err != nil {
		return visionkit.Rect{}, nil, false, err
	}
	return outcome.Box, outcome.Result.Detail, outcome.Hit, nil
}

func (e *Engine) RunAction(ctx context.Context, nodeName string, box visionkit.Rect, detail []byte) (bool, error) {
	node := e.graph.Graph().Node(nodeName)
	if node == nil {
		return false, fmt.Errorf("enginekit: unknown node %q", nodeName)
	}
	return e.actuator.Run(ctx, node, box, detail, nil, e.syncCtx, e.exit)
}

func (e *Engine) GetTaskResult(taskID uint64) (string, any, bool) {
	status := e.jobs.Status(taskID)
	if status == jobqueue.StatusInvalid {
		return "", nil, false
	}
	if !status.Terminal() {
		return string(status), nil, true
	}
	return string(status), e.jobs.Result(taskID), true
}
