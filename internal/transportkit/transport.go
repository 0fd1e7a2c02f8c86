// Package transportkit implements the device transport layer beneath
// controllerkit (spec.md §4.5 "Controller façade"): screencap, touch/key
// input, and app lifecycle, against either a shelled-out adb binary or a
// user-supplied custom transport.
//
// Modeled on the teacher's internal/tools package: one small function per
// capability, each wrapping a single exec.CommandContext call with a
// bounded timeout.
package transportkit

import (
	"context"

	"github.com/autoloom/autoloom/internal/visionkit"
)

// Transport is the uniform device capability contract (spec.md §4.5).
// controllerkit drives exactly one Transport per controller instance.
type Transport interface {
	// Connect establishes or re-validates the device connection.
	Connect(ctx context.Context) error
	// Connected reports the last-known connection state without probing.
	Connected() bool

	Screencap(ctx context.Context) (*visionkit.Image, error)

	Click(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, x1, y1, x2, y2 int, duration int) error
	TouchDown(ctx context.Context, contact, x, y, pressure int) error
	TouchMove(ctx context.Context, contact, x, y, pressure int) error
	TouchUp(ctx context.Context, contact int) error
	PressKey(ctx context.Context, keycode int) error

	StartApp(ctx context.Context, pkg string) error
	StopApp(ctx context.Context, pkg string) error

	// Scale returns the device's reported (width, height). controllerkit
	// records it on connect and reports it through Controller.Resolution;
	// coordinate scaling uses the sizes given to EnableResolutionScaling.
	Scale(ctx context.Context) (width, height int, err error)
}
