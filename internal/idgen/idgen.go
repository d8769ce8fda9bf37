package idgen

import "github.com/google/uuid"

// NewFunc is the active identifier generator; swap it in tests for
// deterministic ids.
var NewFunc func() string = func() string {
	return uuid.NewString()
}

// New returns a globally unique identifier.
func New() string {
	return NewFunc()
}
