package transportkit

import (
	"context"
	"fmt"

	"github.com/autoloom/autoloom/internal/visionkit"
)

// CustomTransport adapts a caller-supplied device backend to the Transport
// contract (spec.md §6 custom controller): every field a hook the caller
// wires up, nil fields fail with a clear error rather than panicking.
//
// Mirrors visionkit.CustomRecognizer's shape: the engine itself stays
// ignorant of the field-by-field callback wiring, it only ever calls
// through the Transport interface.
type CustomTransport struct {
	ConnectFn   func(ctx context.Context) error
	ConnectedFn func() bool
	ScreencapFn func(ctx context.Context) (*visionkit.Image, error)
	ClickFn     func(ctx context.Context, x, y int) error
	SwipeFn     func(ctx context.Context, x1, y1, x2, y2, duration int) error
	TouchDownFn func(ctx context.Context, contact, x, y, pressure int) error
	TouchMoveFn func(ctx context.Context, contact, x, y, pressure int) error
	TouchUpFn   func(ctx context.Context, contact int) error
	PressKeyFn  func(ctx context.Context, keycode int) error
	StartAppFn  func(ctx context.Context, pkg string) error
	StopAppFn   func(ctx context.Context, pkg string) error
	ScaleFn     func(ctx context.Context) (width, height int, err error)
}

func (c *CustomTransport) Connect(ctx context.Context) error {
	if c.ConnectFn == nil {
		return fmt.Errorf("transportkit: custom transport has no ConnectFn")
	}
	return c.ConnectFn(ctx)
}

func (c *CustomTransport) Connected() bool {
	if c.ConnectedFn == nil {
		return false
	}
	return c.ConnectedFn()
}

func (c *CustomTransport) Screencap(ctx context.Context) (*visionkit.Image, error) {
	if c.ScreencapFn == nil {
		return nil, fmt.Errorf("transportkit: custom transport has no ScreencapFn")
	}
	return c.ScreencapFn(ctx)
}

func (c *CustomTransport) Click(ctx context.Context, x, y int) error {
	if c.ClickFn == nil {
		return fmt.Errorf("transportkit: custom transport has no ClickFn")
	}
	return c.ClickFn(ctx, x, y)
}

func (c *CustomTransport) Swipe(ctx context.Context, x1, y1, x2, y2, duration int) error {
	if c.SwipeFn == nil {
		return fmt.Errorf("transportkit: custom transport has no SwipeFn")
	}
	return c.SwipeFn(ctx, x1, y1, x2, y2, duration)
}

func (c *CustomTransport) TouchDown(ctx context.Context, contact, x, y, pressure int) error {
	if c.TouchDownFn == nil {
		return fmt.Errorf("transportkit: custom transport has no TouchDownFn")
	}
	return c.TouchDownFn(ctx, contact, x, y, pressure)
}

func (c *CustomTransport) TouchMove(ctx context.Context, contact, x, y, pressure int) error {
	if c.TouchMoveFn == nil {
		return fmt.Errorf("transportkit: custom transport has no TouchMoveFn")
	}
	return c.TouchMoveFn(ctx, contact, x, y, pressure)
}

func (c *CustomTransport) TouchUp(ctx context.Context, contact int) error {
	if c.TouchUpFn == nil {
		return fmt.Errorf("transportkit: custom transport has no TouchUpFn")
	}
	return c.TouchUpFn(ctx, contact)
}

func (c *CustomTransport) PressKey(ctx context.Context, keycode int) error {
	if c.PressKeyFn == nil {
		return fmt.Errorf("transportkit: custom transport has no PressKeyFn")
	}
	return c.PressKeyFn(ctx, keycode)
}

func (c *CustomTransport) StartApp(ctx context.Context, pkg string) error {
	if c.StartAppFn == nil {
		return fmt.Errorf("transportkit: custom transport has no StartAppFn")
	}
	return c.StartAppFn(ctx, pkg)
}

func (c *CustomTransport) StopApp(ctx context.Context, pkg string) error {
	if c.StopAppFn == nil {
		return fmt.Errorf("transportkit: custom transport has no StopAppFn")
	}
	return c.StopAppFn(ctx, pkg)
}

func (c *CustomTransport) Scale(ctx context.Context) (int, int, error) {
	if c.ScaleFn == nil {
		return 0, 0, fmt.Errorf("transportkit: custom transport has no ScaleFn")
	}
	return c.ScaleFn(ctx)
}
