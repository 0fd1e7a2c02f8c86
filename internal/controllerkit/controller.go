// Package controllerkit implements the controller façade and its command
// queue (spec.md §4.2): a single-worker serialized pipeline over a
// transportkit.Transport, with idempotent connection state, a cached
// screenshot, coordinate scaling, and the screen-freeze predicate the task
// engine gates node transitions on.
//
// Modeled on the teacher's cmd/agsh/main.go runSubtaskDispatcher: one
// goroutine owns all mutable state and drains a channel in a for/select
// loop; every other goroutine only ever sends on channels or reads behind
// a mutex.
package controllerkit

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/autoloom/autoloom/internal/errkit"
	"github.com/autoloom/autoloom/internal/jobqueue"
	"github.com/autoloom/autoloom/internal/transportkit"
	"github.com/autoloom/autoloom/internal/visionkit"
)

// FreezeMethod names the frame-comparison algorithm for WaitFreezes
// (spec.md §4.2).
type FreezeMethod string

const (
	FreezePixelDiff    FreezeMethod = "pixel-diff"
	FreezeHistogram    FreezeMethod = "histogram"
	FreezeTemplateCorr FreezeMethod = "template-correlation"
)

type cmdKind int

const (
	cmdConnect cmdKind = iota
	cmdClick
	cmdSwipe
	cmdTouchDown
	cmdTouchMove
	cmdTouchUp
	cmdPressKey
	cmdScreencap
	cmdStartApp
	cmdStopApp
)

type command struct {
	jobID uint64
	kind  cmdKind

	x, y, x2, y2, duration int
	contact, pressure      int
	keycode                int
	pkg                    string
}

// Controller is the façade a resource/pipeline run drives all device I/O
// through (spec.md §3 "Controller state", §4.2).
type Controller struct {
	transport transportkit.Transport
	jobs      *jobqueue.Registry

	queue chan command
	exit  chan struct{}
	wg    sync.WaitGroup

	mu               sync.Mutex
	connected        bool
	uuid             string
	resolutionW      int
	resolutionH      int
	cachedScreenshot *visionkit.Image

	lazyConnect bool

	scalingEnabled    bool
	logicalW, logicalH int
	deviceW, deviceH   int
}

// New builds a Controller over transport and starts its command-queue
// worker. uuid identifies this controller instance for callback payloads
// and logging (spec.md §3 "uuid").
func New(transport transportkit.Transport, uuid string) *Controller {
	c := &Controller{
		transport: transport,
		jobs:      jobqueue.New(),
		queue:     make(chan command, 64),
		exit:      make(chan struct{}),
		uuid:      uuid,
	}
	c.wg.Add(1)
	go c.worker()
	return c
}

// LazyConnect configures the controller to issue connect automatically on
// the first enqueued command if not already connected (spec.md §4.2: "The
// framework may invoke connect lazily on the first command if configured
// to.").
func (c *Controller) LazyConnect(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lazyConnect = on
}

// EnableResolutionScaling turns on linear coordinate mapping from a
// declared logical size to the device's actual resolution (spec.md §4.2
// "Coordinate scaling").
func (c *Controller) EnableResolutionScaling(logicalW, logicalH, deviceW, deviceH int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scalingEnabled = true
	c.logicalW, c.logicalH = logicalW, logicalH
	c.deviceW, c.deviceH = deviceW, deviceH
}

func (c *Controller) scale(x, y int) (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.scalingEnabled || c.logicalW == 0 || c.logicalH == 0 {
		return x, y
	}
	sx := float64(x) * float64(c.deviceW) / float64(c.logicalW)
	sy := float64(y) * float64(c.deviceH) / float64(c.logicalH)
	return int(sx), int(sy)
}

// enqueue submits job and, if the controller has LazyConnect on and is not
// connected, enqueues an implicit connect ahead of the command.
func (c *Controller) enqueue(cmd command) uint64 {
	id := c.jobs.Submit(jobqueue.KindControllerCmd).ID
	cmd.jobID = id

	c.mu.Lock()
	needsConnect := c.lazyConnect && !c.connected && cmd.kind != cmdConnect
	c.mu.Unlock()
	if needsConnect {
		connectID := c.jobs.Submit(jobqueue.KindControllerCmd).ID
		select {
		case c.queue <- command{jobID: connectID, kind: cmdConnect}:
		case <-c.exit:
			c.jobs.Fail(connectID, errkit.New(errkit.Interrupted, "controller stopped"))
		}
	}

	select {
	case c.queue <- cmd:
	case <-c.exit:
		c.jobs.Fail(id, errkit.New(errkit.Interrupted, "controller stopped"))
	}
	return id
}

func (c *Controller) Connect() uint64 {
	return c.enqueue(command{kind: cmdConnect})
}

func (c *Controller) Click(x, y int) uint64 {
	sx, sy := c.scale(x, y)
	return c.enqueue(command{kind: cmdClick, x: sx, y: sy})
}

func (c *Controller) Swipe(x1, y1, x2, y2, durationMs int) uint64 {
	sx1, sy1 := c.scale(x1, y1)
	sx2, sy2 := c.scale(x2, y2)
	return c.enqueue(command{kind: cmdSwipe, x: sx1, y: sy1, x2: sx2, y2: sy2, duration: durationMs})
}

func (c *Controller) TouchDown(contact, x, y, pressure int) uint64 {
	sx, sy := c.scale(x, y)
	return c.enqueue(command{kind: cmdTouchDown, contact: contact, x: sx, y: sy, pressure: pressure})
}

func (c *Controller) TouchMove(contact, x, y, pressure int) uint64 {
	sx, sy := c.scale(x, y)
	return c.enqueue(command{kind: cmdTouchMove, contact: contact, x: sx, y: sy, pressure: pressure})
}

func (c *Controller) TouchUp(contact int) uint64 {
	return c.enqueue(command{kind: cmdTouchUp, contact: contact})
}

func (c *Controller) PressKey(keycode int) uint64 {
	return c.enqueue(command{kind: cmdPressKey, keycode: keycode})
}

func (c *Controller) Screencap() uint64 {
	return c.enqueue(command{kind: cmdScreencap})
}

func (c *Controller) StartApp(pkg string) uint64 {
	return c.enqueue(command{kind: cmdStartApp, pkg: pkg})
}

func (c *Controller) StopApp(pkg string) uint64 {
	return c.enqueue(command{kind: cmdStopApp, pkg: pkg})
}

// Jobs exposes the underlying registry so callers can status/wait on
// command job ids.
func (c *Controller) Jobs() *jobqueue.Registry { return c.jobs }

// Image returns a clone of the last cached screenshot, or nil if none yet
// (spec.md §4.2 "get_image(): last cached screenshot, cloned").
func (c *Controller) Image() *visionkit.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cachedScreenshot.Clone()
}

func (c *Controller) UUID() string { return c.uuid }

func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Controller) Resolution() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolutionW, c.resolutionH
}

// Stop signals the worker to exit and fails every outstanding job
// (spec.md §5 "Destroying an object is a barrier").
func (c *Controller) Stop() {
	close(c.exit)
	c.wg.Wait()
	c.jobs.FailAllPending(errkit.New(errkit.Interrupted, "controller stopped"))
}

func (c *Controller) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.exit:
			return
		case cmd := <-c.queue:
			c.run(cmd)
		}
	}
}

func (c *Controller) run(cmd command) {
	c.jobs.MarkRunning(cmd.jobID)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var result any
	var err error

	switch cmd.kind {
	case cmdConnect:
		c.mu.Lock()
		alreadyConnected := c.connected
		c.mu.Unlock()
		if alreadyConnected {
			// spec.md §4.2 state machine has no Connected --connect--> edge:
			// connect is idempotent, so a second connect must not re-invoke
			// the transport (spec.md §8 testable property).
			break
		}
		err = c.transport.Connect(ctx)
		if err == nil {
			w, h, scaleErr := c.transport.Scale(ctx)
			if scaleErr == nil {
				c.mu.Lock()
				c.resolutionW, c.resolutionH = w, h
				c.mu.Unlock()
			}
		}
		c.mu.Lock()
		c.connected = err == nil
		c.mu.Unlock()
	case cmdClick:
		err = c.transport.Click(ctx, cmd.x, cmd.y)
	case cmdSwipe:
		err = c.transport.Swipe(ctx, cmd.x, cmd.y, cmd.x2, cmd.y2, cmd.duration)
	case cmdTouchDown:
		err = c.transport.TouchDown(ctx, cmd.contact, cmd.x, cmd.y, cmd.pressure)
	case cmdTouchMove:
		err = c.transport.TouchMove(ctx, cmd.contact, cmd.x, cmd.y, cmd.pressure)
	case cmdTouchUp:
		err = c.transport.TouchUp(ctx, cmd.contact)
	case cmdPressKey:
		err = c.transport.PressKey(ctx, cmd.keycode)
	case cmdScreencap:
		var img *visionkit.Image
		img, err = c.transport.Screencap(ctx)
		if err == nil {
			c.mu.Lock()
			c.cachedScreenshot = img
			c.mu.Unlock()
			result = img
		}
	case cmdStartApp:
		err = c.transport.StartApp(ctx, cmd.pkg)
	case cmdStopApp:
		err = c.transport.StopApp(ctx, cmd.pkg)
	default:
		err = fmt.Errorf("controllerkit: unknown command kind %d", cmd.kind)
	}

	if err != nil {
		log.Printf("[CTRL] job=%d kind=%d failed: %v", cmd.jobID, cmd.kind, err)
		c.jobs.Fail(cmd.jobID, errkit.Wrap(errkit.TransportFailure, "controller command", err))
		return
	}
	c.jobs.Complete(cmd.jobID, result)
}
