package visionkit

import "fmt"

// CustomRecognizer is the user plug-in contract from spec.md §6:
// given the sync context opaque handle (passed through Param so this
// package stays independent of internal/synckit), the current image, the
// task name, and a custom parameter blob, produce a box and detail.
type CustomRecognizer interface {
	Analyze(syncCtx any, image *Image, taskName string, param []byte, box *Rect, detail *[]byte) (bool, error)
}

// CustomParam carries everything a Custom adapter invocation needs: which
// registered recognizer to call, the task name (for ROI cache lookups the
// callback might make via the sync context), and an opaque param blob.
type CustomParam struct {
	Recognizer CustomRecognizer
	SyncCtx    any
	TaskName   string
	Param      []byte
}

// Custom serialises the image + param to the user callback, invoked on the
// engine's own thread (spec.md §4.3: "The callback is invoked on the
// engine's thread").
type Custom struct{}

func (*Custom) Kind() string { return "Custom" }

func (*Custom) Analyze(in Input) ([]Result, error) {
	param, ok := in.Param.(CustomParam)
	if !ok {
		return nil, fmt.Errorf("visionkit: Custom requires CustomParam")
	}
	if param.Recognizer == nil {
		return nil, fmt.Errorf("visionkit: Custom requires a registered recognizer")
	}
	taskName := param.TaskName
	if taskName == "" {
		taskName = in.TaskName
	}
	var box Rect
	var detail []byte
	hit, err := param.Recognizer.Analyze(param.SyncCtx, in.Image, taskName, param.Param, &box, &detail)
	if err != nil {
		return nil, fmt.Errorf("visionkit: custom recognizer %q: %w", taskName, err)
	}
	if !hit {
		return nil, nil
	}
	return []Result{{Box: box, Detail: detail}}, nil
}
