package dependency

import (
	"reflect"
	"testing"
)

func TestNew(t *testing.T) {
	g := New()
	if g == nil {
		t.Fatal("New() returned nil")
	}
	if g.nodes == nil {
		t.Fatal("nodes map not initialized")
	}
	if g.Len() != 0 {
		t.Fatalf("expected empty graph, got %d nodes", g.Len())
	}
}

func TestAddNode(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []Node
		expected []NodeID
	}{
		{
			name: "add single node",
			nodes: []Node{
				{ID: "postgres", FriendlyName: "PostgreSQL"},
			},
			expected: []NodeID{"postgres"},
		},
		{
			name: "keeps insertion order",
			nodes: []Node{
				{ID: "frontend", DependsOn: []NodeID{"backend"}},
				{ID: "backend", DependsOn: []NodeID{"postgres"}},
				{ID: "postgres"},
			},
			expected: []NodeID{"frontend", "backend", "postgres"},
		},
		{
			name: "replace keeps position",
			nodes: []Node{
				{ID: "a"},
				{ID: "b"},
				{ID: "a", FriendlyName: "replaced"},
			},
			expected: []NodeID{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			for _, n := range tt.nodes {
				g.AddNode(n)
			}
			if got := g.IDs(); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("IDs() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAddNode_CopiesInput(t *testing.T) {
	g := New()
	deps := []NodeID{"postgres"}
	g.AddNode(Node{ID: "backend", DependsOn: deps})
	deps[0] = "mutated"

	if got := g.Dependencies("backend"); !reflect.DeepEqual(got, []NodeID{"postgres"}) {
		t.Errorf("Dependencies() = %v, want [postgres]", got)
	}
}

func TestAddNode_ZeroValueGraph(t *testing.T) {
	var g Graph
	g.AddNode(Node{ID: "x"})
	if !g.Has("x") {
		t.Fatal("expected node to be added to a zero-value graph")
	}
}

func TestDependencies(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "ai_system", DependsOn: []NodeID{"backend", "llm_server"}})

	got := g.Dependencies("ai_system")
	if !reflect.DeepEqual(got, []NodeID{"backend", "llm_server"}) {
		t.Errorf("Dependencies() = %v", got)
	}

	got[0] = "changed"
	if g.Dependencies("ai_system")[0] != "backend" {
		t.Error("Dependencies() must return a copy")
	}

	if got := g.Dependencies("unknown"); got != nil {
		t.Errorf("Dependencies(unknown) = %v, want nil", got)
	}
}

func TestDependents(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "llm_server"})
	g.AddNode(Node{ID: "backend"})
	g.AddNode(Node{ID: "frontend", DependsOn: []NodeID{"backend"}})
	g.AddNode(Node{ID: "ai_system", DependsOn: []NodeID{"backend", "backend", "llm_server"}})

	if got := g.Dependents("backend"); !reflect.DeepEqual(got, []NodeID{"frontend", "ai_system"}) {
		t.Errorf("Dependents(backend) = %v", got)
	}
	if got := g.Dependents("frontend"); len(got) != 0 {
		t.Errorf("Dependents(frontend) = %v, want none", got)
	}
}
