// Package health runs liveness checks over the service's dependencies and
// assembles them into one report for the health endpoint.
package health

import (
	"context"
	"time"

	"github.com/tbruni/weekendfly/pkg/buildinfo"
)

// Status of a single check or of the whole report.
type Status string

const (
	StatusOK   Status = "ok"
	StatusDown Status = "down"
)

// Check is the outcome of probing one dependency.
type Check struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration"`
}

// Report is the aggregate of all registered checks. Status is ok only when
// every check passed.
type Report struct {
	Status    Status           `json:"status"`
	Version   string           `json:"version"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

// Checker probes one dependency.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error {
	return f(ctx)
}

const checkTimeout = 2 * time.Second

// Registry holds named checkers and produces reports.
type Registry struct {
	checkers map[string]Checker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{checkers: make(map[string]Checker)}
}

// Register adds a named checker. Re-registering a name replaces it.
func (r *Registry) Register(name string, checker Checker) {
	r.checkers[name] = checker
}

// Report runs every registered check and aggregates the results.
func (r *Registry) Report(ctx context.Context) Report {
	report := Report{
		Status:    StatusOK,
		Version:   buildinfo.Version,
		Timestamp: time.Now().UTC(),
	}
	if len(r.checkers) == 0 {
		return report
	}

	report.Checks = make(map[string]Check, len(r.checkers))
	for name, checker := range r.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		start := time.Now()
		err := checker.Check(checkCtx)
		cancel()

		check := Check{Status: StatusOK, Duration: time.Since(start).String()}
		if err != nil {
			check.Status = StatusDown
			check.Message = err.Error()
			report.Status = StatusDown
		}
		report.Checks[name] = check
	}
	return report
}
