// Package config provides configuration management for conductor.
//
// Configuration is read from a single YAML file, conductor.yaml. The file is
// looked up in this order:
//
//   - the path given with --config
//   - ./conductor.yaml
//   - ~/.config/conductor/conductor.yaml
//
// When none of them exists the built-in service registry is used. Keys omitted
// from the file keep their default values, but a services list replaces the
// built-in fleet entirely.
//
// # Example
//
//	healthPollInterval: 2s
//	gracePeriod: 10s
//	services:
//	  - name: backend
//	    command: ["python3", "-m", "uvicorn", "main:app", "--port", "{{port}}"]
//	    workingDir: backend
//	    port: 8000
//	    healthCheck:
//	      url: http://localhost:{{port}}/health
//	    dependsOn: [postgres]
//
// The registry is immutable for the lifetime of a run. Watch only tells the
// operator that the file changed and a restart is needed.
package config
