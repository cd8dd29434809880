// Package orchestrator provides the core service orchestration functionality
// for conductor.
//
// The orchestrator owns every managed process of a run. It starts services
// one at a time in dependency order, gates each on its health check, keeps
// probing them in the background, runs the periodic endpoint audit and
// finally tears everything down.
//
// # Architecture
//
//   - State: the single mutex-guarded record of every ServiceInstance, the
//     live process handles, the running flag and the last audit.
//   - Supervisor: allocates a port, launches a pending service and polls its
//     health check until it passes, the startup timeout expires or the
//     child exits.
//   - HealthMonitor: probes running and degraded services every
//     healthCheckInterval and moves them between the two states.
//   - AuditScheduler: runs the audit when it is due and the core service is
//     healthy.
//   - ShutdownCoordinator: stops every live process, dependents first.
//
// # Lifecycle
//
//	o, err := orchestrator.New(orchestrator.Options{Config: cfg})
//	if err != nil {
//	    return err // *dependency.CycleError
//	}
//	summary, err := o.Start(ctx) // ErrStartupIncomplete if a required service failed
//	go o.Run(ctx)                // health monitor and audit scheduler
//	<-ctx.Done()
//	o.Shutdown(context.Background())
//
// # Concurrency
//
// The State mutex is held only for single read-modify-write steps. Probes,
// process launches and terminations happen outside it, and their results are
// applied only if the instance is still in the state they were taken for.
// Shutdown cancels startup and the background loops before it stops any
// process.
package orchestrator
