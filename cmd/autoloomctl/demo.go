package main

import (
	"time"

	"github.com/autoloom/autoloom/internal/pipelinekit"
)

// demoGraph is the console's built-in bundle: a direct-hit linear chain
// (spec.md §8 scenario 1, "A -> B -> (end)"), loaded automatically so
// `submit A` has something to run against without a real device bundle on
// disk (bundle parsing itself is out of scope, spec.md §1/§3).
func demoGraph() map[string]*pipelinekit.TaskData {
	return map[string]*pipelinekit.TaskData{
		"A": {
			Name:        "A",
			Recognition: pipelinekit.Recognition{Kind: "DirectHit"},
			Action:      pipelinekit.Action{Kind: pipelinekit.ActionDoNothing},
			Next:        []string{"B"},
			Enabled:     true,
			Timeout:     5 * time.Second,
		},
		"B": {
			Name:        "B",
			Recognition: pipelinekit.Recognition{Kind: "DirectHit"},
			Action:      pipelinekit.Action{Kind: pipelinekit.ActionDoNothing},
			Enabled:     true,
			Timeout:     5 * time.Second,
		},
	}
}
