package transportkit

import (
	"context"
	"testing"
)

// ── CustomTransport: unset hooks fail cleanly ────────────────────────────────

func TestCustomTransport_UnsetHooksReturnErrors(t *testing.T) {
	ct := &CustomTransport{}
	ctx := context.Background()

	if err := ct.Connect(ctx); err == nil {
		t.Error("expected error for unset ConnectFn")
	}
	if ct.Connected() {
		t.Error("expected Connected()=false when ConnectedFn is unset")
	}
	if _, err := ct.Screencap(ctx); err == nil {
		t.Error("expected error for unset ScreencapFn")
	}
	if err := ct.Click(ctx, 0, 0); err == nil {
		t.Error("expected error for unset ClickFn")
	}
	if err := ct.Swipe(ctx, 0, 0, 1, 1, 100); err == nil {
		t.Error("expected error for unset SwipeFn")
	}
	if err := ct.TouchDown(ctx, 0, 0, 0, 0); err == nil {
		t.Error("expected error for unset TouchDownFn")
	}
	if err := ct.TouchMove(ctx, 0, 0, 0, 0); err == nil {
		t.Error("expected error for unset TouchMoveFn")
	}
	if err := ct.TouchUp(ctx, 0); err == nil {
		t.Error("expected error for unset TouchUpFn")
	}
	if err := ct.PressKey(ctx, 0); err == nil {
		t.Error("expected error for unset PressKeyFn")
	}
	if err := ct.StartApp(ctx, "pkg"); err == nil {
		t.Error("expected error for unset StartAppFn")
	}
	if err := ct.StopApp(ctx, "pkg"); err == nil {
		t.Error("expected error for unset StopAppFn")
	}
	if _, _, err := ct.Scale(ctx); err == nil {
		t.Error("expected error for unset ScaleFn")
	}
}

// ── CustomTransport: wired hooks delegate ───────────────────────────────────

func TestCustomTransport_WiredHooksDelegate(t *testing.T) {
	var calledWith string
	ct := &CustomTransport{
		ConnectFn: func(ctx context.Context) error { calledWith = "connect"; return nil },
	}
	if err := ct.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if calledWith != "connect" {
		t.Errorf("ConnectFn not invoked")
	}
}

func TestCustomTransport_ConnectedDelegates(t *testing.T) {
	ct := &CustomTransport{ConnectedFn: func() bool { return true }}
	if !ct.Connected() {
		t.Error("expected Connected() to delegate to ConnectedFn")
	}
}

func TestCustomTransport_ScaleDelegates(t *testing.T) {
	ct := &CustomTransport{ScaleFn: func(ctx context.Context) (int, int, error) { return 720, 1280, nil }}
	w, h, err := ct.Scale(context.Background())
	if err != nil || w != 720 || h != 1280 {
		t.Fatalf("Scale() = (%d,%d,%v), want (720,1280,nil)", w, h, err)
	}
}
