package controllerkit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/autoloom/autoloom/internal/jobqueue"
	"github.com/autoloom/autoloom/internal/transportkit"
	"github.com/autoloom/autoloom/internal/visionkit"
)

type logTransport struct {
	mu          sync.Mutex
	connectLog  []time.Time
	clickLog    []string
	connectErr  error
	screencapFn func(ctx context.Context) (*visionkit.Image, error)
}

func (l *logTransport) Connect(ctx context.Context) error {
	l.mu.Lock()
	l.connectLog = append(l.connectLog, time.Now())
	l.mu.Unlock()
	return l.connectErr
}
func (l *logTransport) Connected() bool { return true }
func (l *logTransport) Screencap(ctx context.Context) (*visionkit.Image, error) {
	if l.screencapFn != nil {
		return l.screencapFn(ctx)
	}
	return visionkit.NewImage(1, 1, visionkit.LayoutRGBA, make([]byte, 4))
}
func (l *logTransport) Click(ctx context.Context, x, y int) error {
	l.mu.Lock()
	l.clickLog = append(l.clickLog, fmt.Sprintf("%d,%d", x, y))
	l.mu.Unlock()
	return nil
}
func (l *logTransport) Swipe(ctx context.Context, x1, y1, x2, y2, duration int) error { return nil }
func (l *logTransport) TouchDown(ctx context.Context, contact, x, y, pressure int) error { return nil }
func (l *logTransport) TouchMove(ctx context.Context, contact, x, y, pressure int) error { return nil }
func (l *logTransport) TouchUp(ctx context.Context, contact int) error                   { return nil }
func (l *logTransport) PressKey(ctx context.Context, keycode int) error                  { return nil }
func (l *logTransport) StartApp(ctx context.Context, pkg string) error                   { return nil }
func (l *logTransport) StopApp(ctx context.Context, pkg string) error                    { return nil }
func (l *logTransport) Scale(ctx context.Context) (int, int, error)                      { return 1080, 1920, nil }

var _ transportkit.Transport = (*logTransport)(nil)

// ── connection state machine ─────────────────────────────────────────────────

func TestController_ConnectSucceedsAndMarksConnected(t *testing.T) {
	transport := &logTransport{}
	c := New(transport, "u1")
	defer c.Stop()

	id := c.Connect()
	if status := c.Jobs().Wait(id); status != jobqueue.StatusSucceeded {
		t.Fatalf("Connect job status = %q, want %q", status, jobqueue.StatusSucceeded)
	}
	if !c.Connected() {
		t.Error("expected Connected()=true after a successful connect")
	}
}

func TestController_ConnectFailureLeavesDisconnected(t *testing.T) {
	transport := &logTransport{connectErr: errors.New("device offline")}
	c := New(transport, "u1")
	defer c.Stop()

	id := c.Connect()
	if status := c.Jobs().Wait(id); status != jobqueue.StatusFailed {
		t.Fatalf("Connect job status = %q, want %q", status, jobqueue.StatusFailed)
	}
	if c.Connected() {
		t.Error("expected Connected()=false after a failed connect")
	}
}

func TestController_IdempotentConnectNoExtraTransportCalls(t *testing.T) {
	transport := &logTransport{}
	c := New(transport, "u1")
	defer c.Stop()

	id1 := c.Connect()
	c.Jobs().Wait(id1)
	id2 := c.Connect()
	c.Jobs().Wait(id2)

	transport.mu.Lock()
	calls := len(transport.connectLog)
	transport.mu.Unlock()
	if calls != 1 {
		t.Errorf("got %d connect calls, want exactly 1 (second Connect() must be a no-op on the transport)", calls)
	}
	if !c.Connected() {
		t.Error("expected still connected")
	}
}

func TestController_FailedCommandStaysConnected(t *testing.T) {
	transport := &logTransport{}
	c := New(transport, "u1")
	defer c.Stop()
	c.Jobs().Wait(c.Connect())

	// Force a click failure by swapping in a failing screencap (click always
	// succeeds in logTransport, so exercise the same "stays connected on
	// failure" contract via a screencap error instead).
	transport.screencapFn = func(ctx context.Context) (*visionkit.Image, error) {
		return nil, errors.New("transport hiccup")
	}
	id := c.Screencap()
	if status := c.Jobs().Wait(id); status != jobqueue.StatusFailed {
		t.Fatalf("Screencap job status = %q, want %q", status, jobqueue.StatusFailed)
	}
	if !c.Connected() {
		t.Error("a failed command must not disconnect the controller")
	}
}

// ── command ordering ──────────────────────────────────────────────────────────

func TestController_CommandsCompleteInSubmissionOrder(t *testing.T) {
	transport := &logTransport{}
	c := New(transport, "u1")
	defer c.Stop()

	var ids []uint64
	for i := 0; i < 5; i++ {
		ids = append(ids, c.Click(i, i))
	}
	for _, id := range ids {
		c.Jobs().Wait(id)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	for i, want := range []string{"0,0", "1,1", "2,2", "3,3", "4,4"} {
		if transport.clickLog[i] != want {
			t.Errorf("clickLog[%d] = %q, want %q", i, transport.clickLog[i], want)
		}
	}
}

// ── coordinate scaling (spec.md §8 scenario 4) ───────────────────────────────

func TestController_ResolutionScalingMapsCoordinates(t *testing.T) {
	transport := &logTransport{}
	c := New(transport, "u1")
	defer c.Stop()
	c.EnableResolutionScaling(1080, 1920, 540, 960)

	id := c.Click(200, 400)
	c.Jobs().Wait(id)

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.clickLog) != 1 || transport.clickLog[0] != "100,200" {
		t.Errorf("clickLog = %v, want [\"100,200\"]", transport.clickLog)
	}
}

func TestController_NoScalingPassesCoordinatesThrough(t *testing.T) {
	transport := &logTransport{}
	c := New(transport, "u1")
	defer c.Stop()

	id := c.Click(50, 60)
	c.Jobs().Wait(id)

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if transport.clickLog[0] != "50,60" {
		t.Errorf("clickLog[0] = %q, want \"50,60\"", transport.clickLog[0])
	}
}

// ── lazy connect ──────────────────────────────────────────────────────────────

func TestController_LazyConnectIssuesImplicitConnectOnFirstCommand(t *testing.T) {
	transport := &logTransport{}
	c := New(transport, "u1")
	defer c.Stop()
	c.LazyConnect(true)

	id := c.Click(1, 1)
	c.Jobs().Wait(id)

	if !c.Connected() {
		t.Error("expected lazy connect to have run before the click")
	}
}

// ── Image / accessors ─────────────────────────────────────────────────────────

func TestController_ImageReturnsClonedScreenshot(t *testing.T) {
	transport := &logTransport{}
	c := New(transport, "u1")
	defer c.Stop()

	id := c.Screencap()
	c.Jobs().Wait(id)

	img := c.Image()
	if img == nil {
		t.Fatal("expected a cached screenshot after a successful screencap")
	}
	img.Pix[0] = 0xFF
	again := c.Image()
	if again.Pix[0] == 0xFF {
		t.Error("Image() must return an independent clone, not the cached original")
	}
}

func TestController_ImageNilBeforeAnyScreencap(t *testing.T) {
	transport := &logTransport{}
	c := New(transport, "u1")
	defer c.Stop()
	if c.Image() != nil {
		t.Error("expected nil Image() before any screencap")
	}
}

func TestController_ResolutionPopulatedAfterConnect(t *testing.T) {
	transport := &logTransport{}
	c := New(transport, "u1")
	defer c.Stop()
	c.Jobs().Wait(c.Connect())

	w, h := c.Resolution()
	if w != 1080 || h != 1920 {
		t.Errorf("Resolution() = (%d,%d), want (1080,1920)", w, h)
	}
}

func TestController_UUID(t *testing.T) {
	c := New(&logTransport{}, "my-uuid")
	defer c.Stop()
	if c.UUID() != "my-uuid" {
		t.Errorf("UUID() = %q, want \"my-uuid\"", c.UUID())
	}
}

// ── Stop / destruction barrier ────────────────────────────────────────────────

func TestController_StopFailsOutstandingJobs(t *testing.T) {
	transport := &logTransport{}
	transport.screencapFn = func(ctx context.Context) (*visionkit.Image, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	c := New(transport, "u1")

	// Fill the queue with commands that will still be pending when Stop runs.
	var ids []uint64
	for i := 0; i < 3; i++ {
		ids = append(ids, c.Click(0, 0))
	}
	c.Stop()

	for _, id := range ids {
		status := c.Jobs().Status(id)
		if status != jobqueue.StatusFailed && status != jobqueue.StatusSucceeded {
			t.Errorf("job %d left in non-terminal status %q after Stop", id, status)
		}
	}
}
