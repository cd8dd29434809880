package config

import (
	"fmt"
	"strings"
	"time"

	"conductor/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateEntityName validates that a service name is usable as an
// identifier in logs, metrics labels and dependency lists.
func ValidateEntityName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ValidationError{Field: "name", Value: name, Message: "is required"}
	}
	if len(name) > 100 {
		return ValidationError{Field: "name", Value: name, Message: "must not exceed 100 characters"}
	}
	if strings.ContainsAny(name, " \t\n") {
		return ValidationError{Field: "name", Value: name, Message: "cannot contain whitespace"}
	}
	return nil
}

// Validate checks the configuration. Missing dependencies and dependency
// cycles are not reported here; they are resolution-time concerns.
func (c Config) Validate() error {
	var errs ValidationErrors

	if len(c.Services) == 0 {
		errs.Add("services", "at least one service must be declared")
	}

	seen := make(map[string]bool, len(c.Services))
	for i, s := range c.Services {
		prefix := fmt.Sprintf("services[%d]", i)
		if s.Name != "" {
			prefix = fmt.Sprintf("services[%s]", s.Name)
		}

		if err := ValidateEntityName(s.Name); err != nil {
			errs.Add(prefix+".name", err.(ValidationError).Message, s.Name)
		} else if seen[s.Name] {
			errs.Add(prefix+".name", "is declared more than once", s.Name)
		}
		seen[s.Name] = true

		if len(s.Command) == 0 || strings.TrimSpace(s.Command[0]) == "" {
			errs.Add(prefix+".command", "must name an executable")
		}
		if s.Port < 1 || s.Port > 65535 {
			errs.Add(prefix+".port", "must be between 1 and 65535", s.Port)
		}

		kinds := 0
		if s.HealthCheck.URL != "" {
			kinds++
		}
		if len(s.HealthCheck.Command) > 0 {
			kinds++
		}
		if s.HealthCheck.Postgres != "" {
			kinds++
		}
		if kinds > 1 {
			errs.Add(prefix+".healthCheck", "only one of url, command and postgres may be set")
		}

		validatePositive(&errs, prefix+".startupTimeout", s.StartupTimeout)
		validatePositive(&errs, prefix+".healthCheck.timeout", s.HealthCheck.Timeout)
	}

	if c.PortSearchBound < 0 {
		errs.Add("portSearchBound", "must not be negative", c.PortSearchBound)
	}
	validatePositive(&errs, "healthPollInterval", c.HealthPollInterval)
	validatePositive(&errs, "healthCheckInterval", c.HealthCheckInterval)
	validatePositive(&errs, "healthCheckTimeout", c.HealthCheckTimeout)
	validatePositive(&errs, "gracePeriod", c.GracePeriod)
	validatePositive(&errs, "killTimeout", c.KillTimeout)

	if c.Audit.Enabled {
		if len(c.Audit.Command) == 0 {
			errs.Add("audit.command", "is required when the audit is enabled")
		}
		if _, ok := c.Service(c.Audit.CoreService); !ok {
			errs.Add("audit.coreService", "must name a declared service", c.Audit.CoreService)
		}
		validatePositive(&errs, "audit.interval", c.Audit.Interval)
		validatePositive(&errs, "audit.checkInterval", c.Audit.CheckInterval)
		validatePositive(&errs, "audit.timeout", c.Audit.Timeout)
	}

	if c.StatusServer.Enabled && c.StatusServer.Address == "" {
		errs.Add("statusServer.address", "is required when the status server is enabled")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs.Add("logging.level", err.Error(), c.Logging.Level)
	}
	if f := c.Logging.Format; f != "" && f != string(logging.FormatText) && f != string(logging.FormatJSON) {
		errs.Add("logging.format", "must be one of: text, json", f)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validatePositive(errs *ValidationErrors, field string, d time.Duration) {
	if d <= 0 {
		errs.Add(field, "must be a positive duration", d.String())
	}
}
