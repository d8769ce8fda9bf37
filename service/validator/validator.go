// Package validator holds the phase validation contract and the built-in
// validators. Validators only report; the engine decides what to do with a
// failed result.
package validator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/registry"
)

// Result is the outcome of one validator run.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Valid returns a passing result.
func Valid() *Result {
	return &Result{Valid: true}
}

// Invalid returns a failing result with the supplied violations.
func Invalid(errors ...string) *Result {
	return &Result{Errors: errors}
}

// Validator checks phase data before or after dispatch.
type Validator interface {
	Validate(ctx context.Context, flow *model.Flow, phaseConfig *model.PhaseConfig, data map[string]interface{}) (*Result, error)
}

// Func adapts a function to the Validator interface.
type Func func(ctx context.Context, flow *model.Flow, phaseConfig *model.PhaseConfig, data map[string]interface{}) (*Result, error)

// Validate implements Validator.
func (f Func) Validate(ctx context.Context, flow *model.Flow, phaseConfig *model.PhaseConfig, data map[string]interface{}) (*Result, error) {
	return f(ctx, flow, phaseConfig, data)
}

// Registry resolves validators by name for phase configurations.
type Registry struct {
	mux        sync.RWMutex
	validators map[string]Validator
}

// Register installs a named validator.
func (r *Registry) Register(name string, validator Validator) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.validators[name] = validator
}

// Lookup returns a validator by name.
func (r *Registry) Lookup(name string) (Validator, error) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	validator, ok := r.validators[name]
	if !ok {
		return nil, fmt.Errorf("validator %v not registered", name)
	}
	return validator, nil
}

// NewRegistry creates a validator registry with the built-ins installed.
func NewRegistry() *Registry {
	return &Registry{validators: map[string]Validator{
		"required_fields": RequiredFields(),
	}}
}

// RequiredFields validates that every field listed under the phase input key
// "required" (or configured per call) is present and non-empty.
func RequiredFields(fields ...string) Validator {
	return Func(func(ctx context.Context, flow *model.Flow, phaseConfig *model.PhaseConfig, data map[string]interface{}) (*Result, error) {
		required := fields
		if len(required) == 0 {
			if v, ok := data["required"]; ok {
				switch typed := v.(type) {
				case []string:
					required = typed
				case []interface{}:
					for _, item := range typed {
						if s, ok := item.(string); ok {
							required = append(required, s)
						}
					}
				}
			}
		}
		var violations []string
		for _, field := range required {
			value, ok := data[field]
			if !ok || value == nil || value == "" {
				violations = append(violations, fmt.Sprintf("missing required field: %v", field))
			}
		}
		if len(violations) > 0 {
			return Invalid(violations...), nil
		}
		return Valid(), nil
	})
}

// Envelope validates that the phase input converts into the phase's declared
// envelope type. Phases without an envelope pass.
func Envelope(types *registry.Types) Validator {
	return Func(func(ctx context.Context, flow *model.Flow, phaseConfig *model.PhaseConfig, data map[string]interface{}) (*Result, error) {
		if phaseConfig == nil || phaseConfig.Envelope == "" {
			return Valid(), nil
		}
		if _, err := types.Instantiate(phaseConfig.Envelope, data); err != nil {
			message := strings.TrimSpace(err.Error())
			return Invalid(fmt.Sprintf("input does not satisfy envelope %v: %v", phaseConfig.Envelope, message)), nil
		}
		return Valid(), nil
	})
}
