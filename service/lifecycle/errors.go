package lifecycle

import (
	"errors"
	"fmt"

	"github.com/viant/orchestra/model"
)

var (
	// ErrFlowNotFound is returned when the requested flow does not exist.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrDuplicateFlow is returned by Create when the flow id is taken.
	ErrDuplicateFlow = errors.New("flow already exists")
)

// InvalidStateError indicates an operation was attempted on a flow whose
// current status does not permit it.
type InvalidStateError struct {
	Op     string
	Status model.Status
}

// Error implements error.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s flow in status: %s", e.Op, e.Status)
}

// InvalidTransitionError indicates a status transition outside the state
// machine table.
type InvalidTransitionError struct {
	From model.Status
	To   model.Status
}

// Error implements error.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid flow transition: %s -> %s", e.From, e.To)
}
