package model

import "fmt"

// PhaseValidators lists validator names to run before and after a phase.
type PhaseValidators struct {
	Pre  []string `json:"pre,omitempty" yaml:"pre,omitempty"`
	Post []string `json:"post,omitempty" yaml:"post,omitempty"`
}

// PhaseConfig is the static, registry-provided description of a phase. It is
// immutable once loaded. A phase is dispatched to the synchronous handler
// named by Handler unless Crew is set, in which case the asynchronous crew
// executor path is used.
type PhaseConfig struct {
	Name             string          `json:"name" yaml:"name"`
	Handler          string          `json:"handler,omitempty" yaml:"handler,omitempty"`
	Crew             string          `json:"crew,omitempty" yaml:"crew,omitempty"`
	Validators       PhaseValidators `json:"validators,omitempty" yaml:"validators,omitempty"`
	DefaultNextPhase string          `json:"defaultNextPhase,omitempty" yaml:"defaultNextPhase,omitempty"`

	// CarryOver lists persistence data keys copied into the phase input when
	// present (for example an import reference stored by an earlier phase).
	CarryOver []string `json:"carryOver,omitempty" yaml:"carryOver,omitempty"`

	// Envelope optionally names a registered Go type the phase input must
	// convert into before pre-validation.
	Envelope string `json:"envelope,omitempty" yaml:"envelope,omitempty"`
}

// UsesCrew reports whether the phase dispatches to the crew executor.
func (p *PhaseConfig) UsesCrew() bool {
	return p != nil && p.Crew != ""
}

// FlowConfig describes a flow type: its ordered phases and execution mode.
type FlowConfig struct {
	Type   string         `json:"type" yaml:"type"`
	Phases []*PhaseConfig `json:"phases" yaml:"phases"`

	// Background marks fire-and-forget flow types whose initial phase is
	// kicked off detached from the caller.
	Background bool `json:"background,omitempty" yaml:"background,omitempty"`

	phaseByName map[string]*PhaseConfig
}

// GetPhaseConfig returns the phase configuration by name, or nil.
func (c *FlowConfig) GetPhaseConfig(name string) *PhaseConfig {
	if c == nil {
		return nil
	}
	if c.phaseByName == nil {
		c.index()
	}
	return c.phaseByName[name]
}

// PhaseIndex returns the position of the named phase in the static phase
// list; -1 when absent.
func (c *FlowConfig) PhaseIndex(name string) int {
	for i, p := range c.Phases {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// PhaseNames returns the static ordered phase name list.
func (c *FlowConfig) PhaseNames() []string {
	out := make([]string, 0, len(c.Phases))
	for _, p := range c.Phases {
		out = append(out, p.Name)
	}
	return out
}

// FirstPhase returns the name of the first phase, or empty string.
func (c *FlowConfig) FirstPhase() string {
	if len(c.Phases) == 0 {
		return ""
	}
	return c.Phases[0].Name
}

func (c *FlowConfig) index() {
	c.phaseByName = make(map[string]*PhaseConfig, len(c.Phases))
	for _, p := range c.Phases {
		c.phaseByName[p.Name] = p
	}
}

// Validate reports configuration issues.
func (c *FlowConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("flow config: type is required")
	}
	if len(c.Phases) == 0 {
		return fmt.Errorf("flow config %q: at least one phase is required", c.Type)
	}
	seen := make(map[string]bool, len(c.Phases))
	for _, p := range c.Phases {
		if p.Name == "" {
			return fmt.Errorf("flow config %q: phase name is required", c.Type)
		}
		if seen[p.Name] {
			return fmt.Errorf("flow config %q: duplicate phase %q", c.Type, p.Name)
		}
		seen[p.Name] = true
	}
	for _, p := range c.Phases {
		if p.DefaultNextPhase != "" && !seen[p.DefaultNextPhase] {
			return fmt.Errorf("flow config %q: phase %q declares unknown next phase %q", c.Type, p.Name, p.DefaultNextPhase)
		}
	}
	return nil
}
