package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Structural errors: misconfigurations surfaced to the caller as typed
// errors, never retried and never classified.
var (
	// ErrUnknownFlowType is returned when the flow's type is not registered.
	ErrUnknownFlowType = errors.New("unknown flow type")

	// ErrUnknownPhase is returned when the phase is not part of the flow type.
	ErrUnknownPhase = errors.New("unknown phase")

	// ErrHandlerNotFound is returned when a phase references an unregistered
	// handler or crew.
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrNoPhases is returned when a flow type declares no phases to run.
	ErrNoPhases = errors.New("flow type has no phases")
)

// ValidationError carries the violations reported by pre-validators. It is a
// fail-fast structural error: the phase is not dispatched and the error is
// not retried.
type ValidationError struct {
	Phase      string
	Violations []string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("phase %s validation failed: %s", e.Phase, strings.Join(e.Violations, "; "))
}
