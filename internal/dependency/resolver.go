package dependency

import (
	"fmt"
	"strings"

	"conductor/internal/config"
)

// CycleError reports a dependency cycle. Cycle lists the node IDs along the
// cycle and repeats the first one at the end, so a self-dependency is
// reported as [a a].
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// BlockedService is a service that can never start in this run because a
// dependency is missing from the registry, directly or transitively.
type BlockedService struct {
	Name string
	// Missing is the first dependency on the way to the missing service. For
	// a direct miss it is the missing name itself.
	Missing string
	Reason  string
}

// Plan is the outcome of resolution.
type Plan struct {
	// Order lists every startable service, dependencies before dependents.
	Order []string
	// Blocked lists unstartable services in insertion order.
	Blocked []BlockedService

	levels [][]string
}

// IsBlocked reports whether name was excluded from the start order.
func (p Plan) IsBlocked(name string) bool {
	for _, b := range p.Blocked {
		if b.Name == name {
			return true
		}
	}
	return false
}

// Levels groups Order by dependency depth. Level 0 holds services without
// dependencies; every service sits one level above its deepest dependency.
// Within a level services keep their start order.
func (p Plan) Levels() [][]string {
	out := make([][]string, len(p.levels))
	for i, level := range p.levels {
		out[i] = append([]string(nil), level...)
	}
	return out
}

// BuildGraph creates a graph from the service registry, in declaration order.
func BuildGraph(services []config.ServiceSpec) *Graph {
	g := New()
	for _, s := range services {
		deps := make([]NodeID, 0, len(s.DependsOn))
		for _, d := range s.DependsOn {
			deps = append(deps, NodeID(d))
		}
		g.AddNode(Node{ID: NodeID(s.Name), FriendlyName: s.Label(), DependsOn: deps})
	}
	return g
}

// Resolve computes the start order. A cycle anywhere in the graph is fatal
// and returned as *CycleError. Services depending on something absent from
// the graph are excluded from the order and reported in Plan.Blocked.
// Among services whose dependencies are satisfied, the one inserted first
// starts first.
func Resolve(g *Graph) (Plan, error) {
	if cycle := findCycle(g); cycle != nil {
		return Plan{}, &CycleError{Cycle: cycle}
	}

	var plan Plan
	blocked := make(map[NodeID]bool)
	for _, id := range g.IDs() {
		if missing, via := g.missingDependency(id); missing != "" {
			blocked[id] = true
			reason := fmt.Sprintf("dependency %q is not declared", missing)
			if via != missing {
				reason = fmt.Sprintf("dependency %q is blocked (%q is not declared)", via, missing)
			}
			plan.Blocked = append(plan.Blocked, BlockedService{Name: string(id), Missing: string(via), Reason: reason})
		}
	}

	plan.Order = kahn(g, blocked)
	plan.levels = levels(g, plan.Order)
	return plan, nil
}

// missingDependency walks the dependencies of id and returns the first
// missing node together with the direct dependency it was reached through.
// The graph must be acyclic.
func (g *Graph) missingDependency(id NodeID) (missing, via NodeID) {
	for _, dep := range g.Dependencies(id) {
		if !g.Has(dep) {
			return dep, dep
		}
		if m, _ := g.missingDependency(dep); m != "" {
			return m, dep
		}
	}
	return "", ""
}

// kahn returns a topological order of the non-blocked nodes. At every step
// the ready node with the lowest insertion index is taken.
func kahn(g *Graph, blocked map[NodeID]bool) []string {
	ids := g.IDs()
	indegree := make(map[NodeID]int, g.Len())
	for _, id := range ids {
		if blocked[id] {
			continue
		}
		indegree[id] = len(uniqueDeps(g.Dependencies(id)))
	}

	order := make([]string, 0, len(indegree))
	done := make(map[NodeID]bool, len(indegree))
	for len(order) < len(indegree) {
		progressed := false
		for _, id := range ids {
			if blocked[id] || done[id] || indegree[id] != 0 {
				continue
			}
			done[id] = true
			order = append(order, string(id))
			for _, dependent := range g.Dependents(id) {
				if !blocked[dependent] {
					indegree[dependent]--
				}
			}
			progressed = true
			break
		}
		if !progressed {
			// Unreachable for an acyclic graph.
			break
		}
	}
	return order
}

func levels(g *Graph, order []string) [][]string {
	depth := make(map[NodeID]int, len(order))
	var out [][]string
	// order is topological, so every dependency's depth is known already.
	for _, name := range order {
		id := NodeID(name)
		d := 0
		for _, dep := range g.Dependencies(id) {
			if dd, ok := depth[dep]; ok && dd+1 > d {
				d = dd + 1
			}
		}
		depth[id] = d
		for len(out) <= d {
			out = append(out, nil)
		}
		out[d] = append(out[d], name)
	}
	return out
}

func uniqueDeps(deps []NodeID) []NodeID {
	seen := make(map[NodeID]bool, len(deps))
	var res []NodeID
	for _, d := range deps {
		if !seen[d] {
			seen[d] = true
			res = append(res, d)
		}
	}
	return res
}

// findCycle runs a depth-first search in insertion order and returns the
// first cycle found, or nil. Edges to missing nodes are ignored.
func findCycle(g *Graph) []string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[NodeID]int, g.Len())
	var stack []NodeID

	var visit func(id NodeID) []string
	visit = func(id NodeID) []string {
		color[id] = grey
		stack = append(stack, id)
		for _, dep := range g.Dependencies(id) {
			if !g.Has(dep) {
				continue
			}
			switch color[dep] {
			case grey:
				var cycle []string
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == dep {
						for _, n := range stack[i:] {
							cycle = append(cycle, string(n))
						}
						break
					}
				}
				return append(cycle, string(dep))
			case white:
				if c := visit(dep); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, id := range g.IDs() {
		if color[id] == white {
			if c := visit(id); c != nil {
				return c
			}
		}
	}
	return nil
}
