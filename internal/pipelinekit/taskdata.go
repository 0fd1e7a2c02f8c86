// Package pipelinekit implements the in-memory pipeline resource model
// (spec.md §3 TaskData, §4.8 resource manager): a graph of named nodes,
// each declaring a recognition kind/params, an action kind/params,
// successor edges, and timing/limit controls.
//
// Modeled on the teacher repo's internal/types.go: plain exported structs
// with no interfaces, validated eagerly rather than lazily.
package pipelinekit

import "time"

// ActionKind names the action a TaskData performs after a successful
// recognition (spec.md §3).
type ActionKind string

const (
	ActionDoNothing ActionKind = "DoNothing"
	ActionClick     ActionKind = "Click"
	ActionSwipe     ActionKind = "Swipe"
	ActionKey       ActionKind = "Key"
	ActionStartApp  ActionKind = "StartApp"
	ActionStopApp   ActionKind = "StopApp"
	ActionCustom    ActionKind = "Custom"
	ActionStopTask  ActionKind = "StopTask"
)

// FreezeWait parametrizes a screen-freeze gate (spec.md §3
// pre_wait_freezes/post_wait_freezes): wait until the ROI has been stable
// for Time, comparing consecutive frames by Method.
type FreezeWait struct {
	Time      time.Duration
	Threshold float64
	Method    FreezeMethod
	Target    Target
}

// FreezeMethod names the frame-comparison algorithm (spec.md §4.2).
type FreezeMethod string

const (
	FreezePixelDiff    FreezeMethod = "pixel-diff"
	FreezeHistogram    FreezeMethod = "histogram"
	FreezeTemplateCorr FreezeMethod = "template-correlation"
)

// Action is the TaskData's action block: a kind tag plus its parameters.
type Action struct {
	Kind ActionKind

	// Click/Swipe resolve coordinates against a Target.
	Target    Target
	SwipeTo   Target // Swipe only: the end point; Target is the start point
	Duration  time.Duration
	Jitter    int // Click only: random jitter radius within the resolved rect

	Keys []int // Key: keycodes pressed in order

	AppPackage string // StartApp/StopApp: passed to the controller as is; an empty name is not replaced by any default

	CustomName  string // Custom: name of the registered CustomAction
	CustomParam []byte
}

// Recognition is the TaskData's recognition block: a kind tag plus params.
// Param is intentionally `any` — each visionkit adapter defines its own
// concrete parameter type (spec.md §9: "sum types with an explicit tag +
// payload rather than virtual inheritance").
type Recognition struct {
	Kind  string // matches a visionkit Adapter.Kind()
	Param any
}

// TaskData is one pipeline node (spec.md §3).
type TaskData struct {
	Name string

	Recognition Recognition
	Action      Action

	Next        []string
	TimeoutNext []string
	RunoutNext  []string

	IsSub   bool
	Inverse bool
	Enabled bool

	PreDelay  time.Duration
	PostDelay time.Duration

	PreWaitFreezes  *FreezeWait
	PostWaitFreezes *FreezeWait

	Timeout    time.Duration
	TimesLimit int // 0 means unlimited

	ROICacheFrom string // name of another node whose box narrows this node's search

	SubPipelines []string // entry nodes run depth-first before following Next
}

// HitLimitReached reports whether count already reached TimesLimit. A zero
// TimesLimit means unlimited, matching the "0 = unlimited" convention used
// throughout the bundle format.
func (t *TaskData) HitLimitReached(count int) bool {
	return t.TimesLimit > 0 && count >= t.TimesLimit
}
