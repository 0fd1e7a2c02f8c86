package transportkit

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/autoloom/autoloom/internal/visionkit"
)

// defaultAdbTimeout bounds every shelled-out adb call, the way the teacher's
// tools.RunShell bounds its own bash invocations.
const defaultAdbTimeout = 15 * time.Second

// AdbTransport drives a single device over Android Debug Bridge, shelling
// out to the adb binary found on PATH (or at Bin, if set).
//
// Grounded on the teacher's internal/tools/shell.go: one exec.CommandContext
// call per capability, stdout/stderr captured into buffers, no persistent
// subprocess.
type AdbTransport struct {
	Serial string // adb -s <serial>; empty selects adb's sole/default device
	Bin    string // path to the adb binary; "adb" if empty

	mu        sync.Mutex
	connected bool
}

// NewAdbTransport builds a transport bound to serial (may be empty).
func NewAdbTransport(serial string) *AdbTransport {
	return &AdbTransport{Serial: serial}
}

func (t *AdbTransport) bin() string {
	if t.Bin != "" {
		return t.Bin
	}
	return "adb"
}

func (t *AdbTransport) run(ctx context.Context, args ...string) (stdout []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, defaultAdbTimeout)
	defer cancel()

	full := args
	if t.Serial != "" {
		full = append([]string{"-s", t.Serial}, args...)
	}
	cmd := exec.CommandContext(ctx, t.bin(), full...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("transportkit: adb %s: %w (stderr: %s)", strings.Join(args, " "), err, errBuf.String())
	}
	return outBuf.Bytes(), nil
}

func (t *AdbTransport) shell(ctx context.Context, cmd string) (string, error) {
	out, err := t.run(ctx, "shell", cmd)
	return string(out), err
}

// Connect runs `adb get-state` to verify the device answers.
func (t *AdbTransport) Connect(ctx context.Context) error {
	out, err := t.run(ctx, "get-state")
	if err != nil {
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
		return fmt.Errorf("transportkit: connect: %w", err)
	}
	state := strings.TrimSpace(string(out))
	t.mu.Lock()
	t.connected = state == "device"
	t.mu.Unlock()
	if !t.connected {
		return fmt.Errorf("transportkit: device state %q, want \"device\"", state)
	}
	return nil
}

func (t *AdbTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Screencap runs `adb exec-out screencap -p`, which streams a raw PNG to
// stdout — no on-device temp file, matching how the original C++ core talks
// to adb (per original_source's transport layer).
func (t *AdbTransport) Screencap(ctx context.Context) (*visionkit.Image, error) {
	out, err := t.run(ctx, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, fmt.Errorf("transportkit: screencap: %w", err)
	}
	img, err := visionkit.DecodeImage(out)
	if err != nil {
		return nil, fmt.Errorf("transportkit: screencap decode: %w", err)
	}
	return img, nil
}

func (t *AdbTransport) Click(ctx context.Context, x, y int) error {
	_, err := t.shell(ctx, fmt.Sprintf("input tap %d %d", x, y))
	return err
}

func (t *AdbTransport) Swipe(ctx context.Context, x1, y1, x2, y2, duration int) error {
	_, err := t.shell(ctx, fmt.Sprintf("input swipe %d %d %d %d %d", x1, y1, x2, y2, duration))
	return err
}

// TouchDown/TouchMove/TouchUp drive the device through `adb shell input
// motionevent`, the step-by-step alternative to the `input tap`/`input
// swipe` convenience commands above. contact and pressure are not passed to
// the device, so every call drives the same single pointer.
func (t *AdbTransport) TouchDown(ctx context.Context, contact, x, y, pressure int) error {
	_, err := t.shell(ctx, fmt.Sprintf("input motionevent DOWN %d %d", x, y))
	return err
}

func (t *AdbTransport) TouchMove(ctx context.Context, contact, x, y, pressure int) error {
	_, err := t.shell(ctx, fmt.Sprintf("input motionevent MOVE %d %d", x, y))
	return err
}

func (t *AdbTransport) TouchUp(ctx context.Context, contact int) error {
	_, err := t.shell(ctx, "input motionevent UP")
	return err
}

func (t *AdbTransport) PressKey(ctx context.Context, keycode int) error {
	_, err := t.shell(ctx, fmt.Sprintf("input keyevent %d", keycode))
	return err
}

func (t *AdbTransport) StartApp(ctx context.Context, pkg string) error {
	_, err := t.shell(ctx, fmt.Sprintf("monkey -p %s -c android.intent.category.LAUNCHER 1", pkg))
	return err
}

func (t *AdbTransport) StopApp(ctx context.Context, pkg string) error {
	_, err := t.shell(ctx, fmt.Sprintf("am force-stop %s", pkg))
	return err
}

// Scale parses `wm size`'s "Physical size: WxH" line.
func (t *AdbTransport) Scale(ctx context.Context) (int, int, error) {
	out, err := t.shell(ctx, "wm size")
	if err != nil {
		return 0, 0, fmt.Errorf("transportkit: wm size: %w", err)
	}
	for _, line := range strings.Split(out, "\n") {
		idx := strings.LastIndex(line, ":")
		if idx < 0 {
			continue
		}
		dims := strings.TrimSpace(line[idx+1:])
		parts := strings.SplitN(dims, "x", 2)
		if len(parts) != 2 {
			continue
		}
		w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
		h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errW == nil && errH == nil {
			return w, h, nil
		}
	}
	return 0, 0, fmt.Errorf("transportkit: could not parse wm size output: %q", out)
}
