// Package actuatorkit implements the actuator (spec.md §4.5): it turns a
// recognition result and a TaskData's action block into controller calls,
// resolving target coordinates, jittering clicks, and gating on
// pre/post-action freeze waits and delays.
//
// Grounded on the teacher's executor.go runTool: a single Kind-keyed
// switch, one case per action, each a thin call into another package's
// capability — here controllerkit instead of the teacher's tools package.
package actuatorkit

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/autoloom/autoloom/internal/controllerkit"
	"github.com/autoloom/autoloom/internal/jobqueue"
	"github.com/autoloom/autoloom/internal/pipelinekit"
	"github.com/autoloom/autoloom/internal/visionkit"
)

// CustomAction is the user plug-in contract for Action.Kind == Custom
// (spec.md §6 CustomAction): Run executes the action, Stop is called
// exactly once over the registration's lifetime (spec.md §9 decision 3).
type CustomAction interface {
	Run(syncCtx any, taskName string, param []byte, curBox visionkit.Rect, curDetail []byte) (bool, error)
	Stop()
}

// sleepChunk bounds how long interruptibleSleep blocks between exit-flag
// checks (spec.md §5: "≤ 5 s for sleep").
const sleepChunk = 5 * time.Second

// Actuator drives one controller on behalf of the task engine.
type Actuator struct {
	controller *controllerkit.Controller

	customActions map[string]CustomAction
}

// New builds an Actuator over controller.
func New(controller *controllerkit.Controller) *Actuator {
	return &Actuator{controller: controller, customActions: make(map[string]CustomAction)}
}

// RegisterCustomAction adds or replaces the CustomAction for name.
func (a *Actuator) RegisterCustomAction(name string, action CustomAction) {
	a.customActions[name] = action
}

// UnregisterCustomAction removes name's CustomAction, calling its Stop
// exactly once (spec.md §9 decision 3) if it was still registered.
func (a *Actuator) UnregisterCustomAction(name string) {
	if action, ok := a.customActions[name]; ok {
		action.Stop()
		delete(a.customActions, name)
	}
}

// StopAll calls Stop on every currently-registered custom action, the
// other half of spec.md §9 decision 3 ("invoked on engine stop() for every
// currently-registered custom action").
func (a *Actuator) StopAll() {
	for name, action := range a.customActions {
		action.Stop()
		delete(a.customActions, name)
	}
}

// Run executes node's action against recBox/recDetail (spec.md §4.5). box
// is the just-matched rect (Target.Self); lookup resolves PreTask targets.
// syncCtx is passed through to a Custom action's Run untouched — opaque to
// this package, just like visionkit.CustomParam's SyncCtx.
// Returns (false, nil) when the action was StopTask or a Custom action's Run
// reported false; any error also comes with false.
func (a *Actuator) Run(ctx context.Context, node *pipelinekit.TaskData, box visionkit.Rect, recDetail []byte, lookup pipelinekit.RecBoxLookup, syncCtx any, exit <-chan struct{}) (bool, error) {
	if err := a.waitFreezes(ctx, node.PreWaitFreezes, box, lookup, exit); err != nil {
		return false, err
	}
	if !interruptibleSleep(node.PreDelay, exit) {
		return false, fmt.Errorf("actuatorkit: node %q: pre-delay interrupted", node.Name)
	}

	ok, err := a.dispatch(ctx, node, box, recDetail, lookup, syncCtx)
	if err != nil {
		return false, err
	}

	if err := a.waitFreezes(ctx, node.PostWaitFreezes, box, lookup, exit); err != nil {
		return false, err
	}
	if !interruptibleSleep(node.PostDelay, exit) {
		return false, fmt.Errorf("actuatorkit: node %q: post-delay interrupted", node.Name)
	}

	return ok, nil
}

func (a *Actuator) waitFreezes(ctx context.Context, fw *pipelinekit.FreezeWait, self visionkit.Rect, lookup pipelinekit.RecBoxLookup, exit <-chan struct{}) error {
	if fw == nil {
		return nil
	}
	rect, err := fw.Target.Resolve(self, lookup)
	if err != nil {
		return fmt.Errorf("actuatorkit: wait_freezes target: %w", err)
	}
	return a.controller.WaitFreezes(ctx, rect, fw.Time, fw.Threshold, controllerkit.FreezeMethod(fw.Method), exit)
}

// interruptibleSleep blocks for d, rechecking exit every sleepChunk
// (spec.md §4.5 "sleep(ms) is interruptible"). It reports whether the full
// duration elapsed; false means exit fired first and the caller must not
// proceed to the next step (spec.md §5: interruption must not run an action
// that hasn't started).
func interruptibleSleep(d time.Duration, exit <-chan struct{}) bool {
	for d > 0 {
		chunk := d
		if chunk > sleepChunk {
			chunk = sleepChunk
		}
		select {
		case <-time.After(chunk):
			d -= chunk
		case <-exit:
			return false
		}
	}
	return true
}

func (a *Actuator) dispatch(ctx context.Context, node *pipelinekit.TaskData, box visionkit.Rect, recDetail []byte, lookup pipelinekit.RecBoxLookup, syncCtx any) (bool, error) {
	act := node.Action
	switch act.Kind {
	case pipelinekit.ActionDoNothing:
		return true, nil

	case pipelinekit.ActionClick:
		rect, err := act.Target.Resolve(box, lookup)
		if err != nil {
			return false, fmt.Errorf("actuatorkit: click target: %w", err)
		}
		x, y := jitteredCenter(rect, act.Jitter)
		id := a.controller.Click(x, y)
		if err := a.waitJob(id); err != nil {
			return false, err
		}
		log.Printf("[ACT] node %q: click (%d,%d)", node.Name, x, y)
		return true, nil

	case pipelinekit.ActionSwipe:
		start, err := act.Target.Resolve(box, lookup)
		if err != nil {
			return false, fmt.Errorf("actuatorkit: swipe start: %w", err)
		}
		end, err := act.SwipeTo.Resolve(box, lookup)
		if err != nil {
			return false, fmt.Errorf("actuatorkit: swipe end: %w", err)
		}
		x1, y1 := start.Center()
		x2, y2 := end.Center()
		id := a.controller.Swipe(x1, y1, x2, y2, int(act.Duration.Milliseconds()))
		if err := a.waitJob(id); err != nil {
			return false, err
		}
		log.Printf("[ACT] node %q: swipe (%d,%d)->(%d,%d)", node.Name, x1, y1, x2, y2)
		return true, nil

	case pipelinekit.ActionKey:
		for _, key := range act.Keys {
			id := a.controller.PressKey(key)
			if err := a.waitJob(id); err != nil {
				return false, err
			}
		}
		log.Printf("[ACT] node %q: pressed %d key(s)", node.Name, len(act.Keys))
		return true, nil

	case pipelinekit.ActionStartApp:
		id := a.controller.StartApp(act.AppPackage)
		return true, a.waitJob(id)

	case pipelinekit.ActionStopApp:
		id := a.controller.StopApp(act.AppPackage)
		return true, a.waitJob(id)

	case pipelinekit.ActionCustom:
		custom, ok := a.customActions[act.CustomName]
		if !ok {
			return false, fmt.Errorf("actuatorkit: unregistered custom action %q", act.CustomName)
		}
		hit, err := custom.Run(syncCtx, node.Name, act.CustomParam, box, recDetail)
		if err != nil {
			return false, fmt.Errorf("actuatorkit: custom action %q: %w", act.CustomName, err)
		}
		return hit, nil

	case pipelinekit.ActionStopTask:
		log.Printf("[ACT] node %q: StopTask", node.Name)
		return false, nil

	default:
		return false, fmt.Errorf("actuatorkit: unknown action kind %q", act.Kind)
	}
}

func (a *Actuator) waitJob(id uint64) error {
	jobs := a.controller.Jobs()
	status := jobs.Wait(id)
	if status.Terminal() && status != jobqueue.StatusSucceeded {
		if reason, ok := jobs.Result(id).(error); ok {
			return fmt.Errorf("actuatorkit: command failed: %w", reason)
		}
		return fmt.Errorf("actuatorkit: command failed")
	}
	return nil
}

// jitteredCenter returns r's center, optionally displaced by a uniform
// random offset within [-jitter, jitter] on each axis and clamped to r
// (spec.md §4.5 "random jitter within the resolved rect").
func jitteredCenter(r visionkit.Rect, jitter int) (int, int) {
	x, y := r.Center()
	if jitter <= 0 {
		return x, y
	}
	x += rand.Intn(2*jitter+1) - jitter
	y += rand.Intn(2*jitter+1) - jitter
	if r.W > 0 {
		x = min(max(x, r.X), r.X+r.W-1)
	}
	if r.H > 0 {
		y = min(max(y, r.Y), r.Y+r.H-1)
	}
	return x, y
}
