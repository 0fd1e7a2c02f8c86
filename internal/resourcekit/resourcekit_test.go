package resourcekit

import (
	"testing"

	"github.com/autoloom/autoloom/internal/jobqueue"
	"github.com/autoloom/autoloom/internal/pipelinekit"
)

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoader_ValidBundlePublishesAndSucceeds(t *testing.T) {
	manager := pipelinekit.NewManager()
	loader := New(manager)
	defer loader.Stop()

	nodes := map[string]*pipelinekit.TaskData{
		"A": {Next: []string{"B"}},
		"B": {},
	}
	id := loader.Load(nodes)
	if status := loader.Jobs().Wait(id); status != jobqueue.StatusSucceeded {
		t.Fatalf("Load job status = %q, want %q", status, jobqueue.StatusSucceeded)
	}
	if !manager.Loaded() {
		t.Error("expected Manager.Loaded()=true after a successful load")
	}
	if manager.Graph().Node("A") == nil {
		t.Error("expected the published graph to contain node A")
	}
}

func TestLoader_InvalidBundleFailsWithoutPublishing(t *testing.T) {
	manager := pipelinekit.NewManager()
	loader := New(manager)
	defer loader.Stop()

	nodes := map[string]*pipelinekit.TaskData{
		"A": {Next: []string{"Ghost"}},
	}
	id := loader.Load(nodes)
	if status := loader.Jobs().Wait(id); status != jobqueue.StatusFailed {
		t.Fatalf("Load job status = %q, want %q", status, jobqueue.StatusFailed)
	}
	if manager.Loaded() {
		t.Error("expected Manager.Loaded()=false after a failed validation")
	}
}

func TestLoader_SecondLoadReplacesFirst(t *testing.T) {
	manager := pipelinekit.NewManager()
	loader := New(manager)
	defer loader.Stop()

	loader.Jobs().Wait(loader.Load(map[string]*pipelinekit.TaskData{"A": {}}))
	loader.Jobs().Wait(loader.Load(map[string]*pipelinekit.TaskData{"B": {}}))

	if manager.Graph().Node("A") != nil {
		t.Error("expected the first graph to be replaced")
	}
	if manager.Graph().Node("B") == nil {
		t.Error("expected the second graph to be published")
	}
}

func TestLoader_StopFailsQueuedLoads(t *testing.T) {
	manager := pipelinekit.NewManager()
	loader := New(manager)
	loader.Stop()

	id := loader.Load(map[string]*pipelinekit.TaskData{"A": {}})
	if status := loader.Jobs().Status(id); status != jobqueue.StatusFailed {
		t.Errorf("Load after Stop status = %q, want %q", status, jobqueue.StatusFailed)
	}
}
