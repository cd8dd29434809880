// Package dependency provides the dependency graph of the service registry
// and resolves it into a start order.
//
// # Dependency Rules
//
//  1. No circular dependencies allowed. Any cycle, including a service that
//     depends on itself, makes Resolve fail with *CycleError and nothing is
//     started.
//  2. A service whose dependency is not declared is blocked, and so is every
//     service that depends on it. Blocked services are left out of the order.
//  3. Dependencies start before dependents. When several services are ready
//     at the same time, declaration order decides.
//
// # Usage Example
//
//	graph := dependency.BuildGraph(cfg.Services)
//	plan, err := dependency.Resolve(graph)
//	if err != nil {
//	    return err // *CycleError
//	}
//	for _, name := range plan.Order {
//	    // start name
//	}
//
// Plan.Levels groups the order by dependency depth; shutdown walks the
// levels from the deepest one down to level 0.
//
// The Graph type is not safe for concurrent writes. It is built once per run
// and only read afterwards.
package dependency
