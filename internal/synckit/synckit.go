// Package synckit implements the Sync Context (spec.md §4.7): a re-entrant
// handle passed to every custom recognizer/action that lets it invoke
// engine/controller operations inline, on the caller's own goroutine,
// without re-queuing through the task engine.
//
// Grounded on the teacher's `clarify func(question string) (string, error)`
// callback injected into perceiver.New: a plain function-shaped escape
// hatch back into the surrounding system, generalized here to a struct of
// such hooks (the engine supplies concrete implementations; this package
// only defines the re-entrant surface).
package synckit

import (
	"context"

	"github.com/autoloom/autoloom/internal/controllerkit"
	"github.com/autoloom/autoloom/internal/jobqueue"
	"github.com/autoloom/autoloom/internal/visionkit"
)

// TaskRunner lets a callback start a nested task synchronously
// (spec.md §4.7 "run_task").
type TaskRunner interface {
	RunTask(ctx context.Context, entry string, paramOverride []byte) (uint64, error)
}

// RecognizerRunner lets a callback invoke another node's recognizer inline
// (spec.md §4.7 "run_recognizer").
type RecognizerRunner interface {
	RunRecognizer(ctx context.Context, nodeName string) (box visionkit.Rect, detail []byte, hit bool, err error)
}

// ActionRunner lets a callback invoke another node's actuator inline
// (spec.md §4.7 "run_action").
type ActionRunner interface {
	RunAction(ctx context.Context, nodeName string, box visionkit.Rect, detail []byte) (bool, error)
}

// TaskResultGetter resolves a previously-submitted task id's outcome
// (spec.md §4.7 "get_task_result").
type TaskResultGetter interface {
	GetTaskResult(taskID uint64) (status string, result any, ok bool)
}

// Context is the concrete Sync Context handle constructed by the engine and
// handed to every custom recognizer/action invocation. All device I/O goes
// through the same Controller the engine itself uses, so a callback's
// screencap/click see exactly the state the pipeline run sees — but every
// call here executes and blocks inline rather than being queued as a new
// engine-level job (spec.md §4.7: "executes inline on the caller's thread
// (no re-queueing)").
type Context struct {
	controller *controllerkit.Controller

	tasks       TaskRunner
	recognizers RecognizerRunner
	actions     ActionRunner
	results     TaskResultGetter
}

// New builds a Context. Any of tasks/recognizers/actions/results may be nil
// if the owning engine doesn't support that re-entrant call; the
// corresponding method then returns an error instead of panicking.
func New(controller *controllerkit.Controller, tasks TaskRunner, recognizers RecognizerRunner, actions ActionRunner, results TaskResultGetter) *Context {
	return &Context{controller: controller, tasks: tasks, recognizers: recognizers, actions: actions, results: results}
}

func (c *Context) RunTask(ctx context.Context, entry string, paramOverride []byte) (uint64, error) {
	if c.tasks == nil {
		return 0, errNotSupported("run_task")
	}
	return c.tasks.RunTask(ctx, entry, paramOverride)
}

func (c *Context) RunRecognizer(ctx context.Context, nodeName string) (visionkit.Rect, []byte, bool, error) {
	if c.recognizers == nil {
		return visionkit.Rect{}, nil, false, errNotSupported("run_recognizer")
	}
	return c.recognizers.RunRecognizer(ctx, nodeName)
}

func (c *Context) RunAction(ctx context.Context, nodeName string, box visionkit.Rect, detail []byte) (bool, error) {
	if c.actions == nil {
		return false, errNotSupported("run_action")
	}
	return c.actions.RunAction(ctx, nodeName, box, detail)
}

func (c *Context) GetTaskResult(taskID uint64) (string, any, bool) {
	if c.results == nil {
		return "", nil, false
	}
	return c.results.GetTaskResult(taskID)
}

// Click, Swipe, PressKey, Screencap, and the touch trio all enqueue on the
// same controller command queue the engine itself uses, then block for the
// result — "inline" from the caller's point of view, while still
// respecting the controller's single-consumer ordering guarantee.

func (c *Context) Click(x, y int) error {
	return c.waitController(c.controller.Click(x, y))
}

func (c *Context) Swipe(x1, y1, x2, y2, durationMs int) error {
	return c.waitController(c.controller.Swipe(x1, y1, x2, y2, durationMs))
}

func (c *Context) PressKey(keycode int) error {
	return c.waitController(c.controller.PressKey(keycode))
}

func (c *Context) TouchDown(contact, x, y, pressure int) error {
	return c.waitController(c.controller.TouchDown(contact, x, y, pressure))
}

func (c *Context) TouchMove(contact, x, y, pressure int) error {
	return c.waitController(c.controller.TouchMove(contact, x, y, pressure))
}

func (c *Context) TouchUp(contact int) error {
	return c.waitController(c.controller.TouchUp(contact))
}

// Screencap blocks until the controller's worker has produced a fresh
// frame and returns it directly, rather than making the caller fetch
// Image() separately.
func (c *Context) Screencap() (*visionkit.Image, error) {
	id := c.controller.Screencap()
	status := c.controller.Jobs().Wait(id)
	if status != jobqueue.StatusSucceeded {
		return nil, errTransport("screencap")
	}
	img, _ := c.controller.Jobs().Result(id).(*visionkit.Image)
	return img, nil
}

func (c *Context) waitController(jobID uint64) error {
	status := c.controller.Jobs().Wait(jobID)
	if status != jobqueue.StatusSucceeded {
		return errTransport("controller command")
	}
	return nil
}

func errNotSupported(op string) error { return &unsupportedErr{op} }

type unsupportedErr struct{ op string }

func (e *unsupportedErr) Error() string { return "synckit: " + e.op + " not supported by this engine" }

func errTransport(op string) error { return &transportErr{op} }

type transportErr struct{ op string }

func (e *transportErr) Error() string { return "synckit: " + e.op + " failed" }
