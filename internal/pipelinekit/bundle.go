package pipelinekit

import (
	"fmt"
	"sync"
)

// Graph is the validated in-memory pipeline (spec.md §3/§4.8): a mapping
// from node name to TaskData, guaranteed on construction to have every
// successor name resolvable inside the bundle.
type Graph struct {
	nodes map[string]*TaskData
}

// Validate checks the invariants spec.md §3 requires of a TaskData set:
// every name referenced in any successor/sub-pipeline list resolves inside
// the bundle, and every recognition threshold-bearing param is in [0,1].
// Cycles are explicitly permitted (spec.md §9) and are not checked here.
func Validate(nodes map[string]*TaskData) error {
	for name, node := range nodes {
		if node.Name == "" {
			node.Name = name
		}
		for _, list := range [][]string{node.Next, node.TimeoutNext, node.RunoutNext, node.SubPipelines} {
			for _, succ := range list {
				if _, ok := nodes[succ]; !ok {
					return fmt.Errorf("pipelinekit: node %q references unknown successor %q", name, succ)
				}
			}
		}
		if err := validateThreshold(node.Recognition); err != nil {
			return fmt.Errorf("pipelinekit: node %q: %w", name, err)
		}
		if node.ROICacheFrom != "" {
			if _, ok := nodes[node.ROICacheFrom]; !ok {
				return fmt.Errorf("pipelinekit: node %q has roi_cache_from referencing unknown node %q", name, node.ROICacheFrom)
			}
		}
	}
	return nil
}

// thresholded is implemented by recognition param types that carry a score
// threshold, so Validate can enforce the [0,1] invariant from spec.md §4.8
// without a type switch per adapter kind.
type thresholded interface {
	Threshold() float64
}

func validateThreshold(r Recognition) error {
	t, ok := r.Param.(thresholded)
	if !ok {
		return nil
	}
	th := t.Threshold()
	if th < 0 || th > 1 {
		return fmt.Errorf("recognition %q threshold %.3f out of [0,1]", r.Kind, th)
	}
	return nil
}

// NewGraph validates nodes and wraps them in a Graph. Node.Name is filled
// in from the map key if left empty, mirroring how a JSON bundle's
// top-level mapping supplies the name implicitly.
func NewGraph(nodes map[string]*TaskData) (*Graph, error) {
	if err := Validate(nodes); err != nil {
		return nil, err
	}
	cp := make(map[string]*TaskData, len(nodes))
	for k, v := range nodes {
		cp[k] = v
	}
	return &Graph{nodes: cp}, nil
}

// Node returns the named TaskData, or nil if absent.
func (g *Graph) Node(name string) *TaskData {
	if g == nil {
		return nil
	}
	return g.nodes[name]
}

// Names returns every node name in the graph, for diagnostics/listing.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	return names
}

// Manager owns the currently-published Graph and whether any load has
// succeeded (spec.md §4.8 resource manager). Modeled on the teacher's
// tasklog.Registry: a mutex-guarded single piece of state, published
// atomically, with an idempotent-looking accessor.
type Manager struct {
	mu     sync.RWMutex
	graph  *Graph
	loaded bool
}

// NewManager creates an empty, unloaded Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Publish atomically replaces the current graph. Called by the resource
// loader worker once validation succeeds.
func (m *Manager) Publish(g *Graph) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graph = g
	m.loaded = true
}

// Graph returns the currently-published graph, or nil if none has loaded.
func (m *Manager) Graph() *Graph {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph
}

// Loaded reports whether at least one successful load has occurred
// (spec.md §4.8: "the engine refuses to start a task while loaded() is
// false").
func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
