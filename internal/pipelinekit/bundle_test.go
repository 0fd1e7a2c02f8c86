package pipelinekit

import "testing"

// ── Validate ─────────────────────────────────────────────────────────────────

func TestValidate_UnknownSuccessorIsRejected(t *testing.T) {
	nodes := map[string]*TaskData{
		"A": {Next: []string{"Ghost"}},
	}
	if err := Validate(nodes); err == nil {
		t.Fatal("expected error for a successor that resolves to nothing")
	}
}

func TestValidate_CyclesArePermitted(t *testing.T) {
	nodes := map[string]*TaskData{
		"A": {Next: []string{"B"}},
		"B": {Next: []string{"A"}},
	}
	if err := Validate(nodes); err != nil {
		t.Fatalf("cycles must be permitted, got error: %v", err)
	}
}

func TestValidate_UnknownROICacheFromIsRejected(t *testing.T) {
	nodes := map[string]*TaskData{
		"A": {ROICacheFrom: "Ghost"},
	}
	if err := Validate(nodes); err == nil {
		t.Fatal("expected error for roi_cache_from referencing an unknown node")
	}
}

func TestValidate_UnknownSubPipelineIsRejected(t *testing.T) {
	nodes := map[string]*TaskData{
		"A": {SubPipelines: []string{"Ghost"}},
	}
	if err := Validate(nodes); err == nil {
		t.Fatal("expected error for a sub-pipeline entry that resolves to nothing")
	}
}

type fakeThresholdParam struct{ t float64 }

func (f fakeThresholdParam) Threshold() float64 { return f.t }

func TestValidate_ThresholdOutOfRangeIsRejected(t *testing.T) {
	nodes := map[string]*TaskData{
		"A": {Recognition: Recognition{Kind: "Fake", Param: fakeThresholdParam{t: 1.5}}},
	}
	if err := Validate(nodes); err == nil {
		t.Fatal("expected error for threshold outside [0,1]")
	}
}

func TestValidate_ThresholdWithinRangeAccepted(t *testing.T) {
	nodes := map[string]*TaskData{
		"A": {Recognition: Recognition{Kind: "Fake", Param: fakeThresholdParam{t: 0.5}}},
	}
	if err := Validate(nodes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_FillsNameFromMapKeyWhenEmpty(t *testing.T) {
	nodes := map[string]*TaskData{"A": {}}
	if err := Validate(nodes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nodes["A"].Name != "A" {
		t.Errorf("Name = %q, want \"A\" filled in from the map key", nodes["A"].Name)
	}
}

// ── NewGraph / Graph ─────────────────────────────────────────────────────────

func TestNewGraph_RejectsInvalidNodes(t *testing.T) {
	nodes := map[string]*TaskData{"A": {Next: []string{"Ghost"}}}
	if _, err := NewGraph(nodes); err == nil {
		t.Fatal("expected NewGraph to reject an invalid node set")
	}
}

func TestGraph_NodeReturnsNilForUnknownName(t *testing.T) {
	g, err := NewGraph(map[string]*TaskData{"A": {}})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	if g.Node("Ghost") != nil {
		t.Error("expected Node(unknown) = nil")
	}
}

func TestGraph_NodeReturnsNilOnNilGraph(t *testing.T) {
	var g *Graph
	if g.Node("A") != nil {
		t.Error("expected nil-receiver Node() to return nil rather than panic")
	}
}

func TestGraph_NamesListsEveryNode(t *testing.T) {
	g, err := NewGraph(map[string]*TaskData{"A": {}, "B": {}})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	names := g.Names()
	if len(names) != 2 {
		t.Fatalf("Names() = %v, want 2 entries", names)
	}
}

// ── Manager ──────────────────────────────────────────────────────────────────

func TestManager_NotLoadedInitially(t *testing.T) {
	m := NewManager()
	if m.Loaded() {
		t.Error("expected a fresh Manager to report Loaded()=false")
	}
	if m.Graph() != nil {
		t.Error("expected a fresh Manager's Graph() to be nil")
	}
}

func TestManager_PublishMarksLoaded(t *testing.T) {
	m := NewManager()
	g, err := NewGraph(map[string]*TaskData{"A": {}})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	m.Publish(g)
	if !m.Loaded() {
		t.Error("expected Loaded()=true after Publish")
	}
	if m.Graph() != g {
		t.Error("expected Graph() to return the published graph")
	}
}

func TestManager_PublishReplacesPreviousGraph(t *testing.T) {
	m := NewManager()
	g1, _ := NewGraph(map[string]*TaskData{"A": {}})
	g2, _ := NewGraph(map[string]*TaskData{"B": {}})
	m.Publish(g1)
	m.Publish(g2)
	if m.Graph() != g2 {
		t.Error("expected the latest Publish to win")
	}
}
