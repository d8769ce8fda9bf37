package orchestra

import (
	"fmt"

	"github.com/viant/orchestra/service/engine"
)

// Config is a serialisable representation of the orchestrator configuration.
// It can be populated from JSON, YAML, environment variables, etc. The
// zero-value is useful – all nested fields inherit their package defaults.

type Config struct {
	Crew   CrewConfig   `json:"crew" yaml:"crew"`
	Engine EngineConfig `json:"engine" yaml:"engine"`
}

// CrewConfig tunes the asynchronous crew executor.
type CrewConfig struct {
	WorkerCount int `json:"workers" yaml:"workers"`
}

// EngineConfig tunes the execution engine.
type EngineConfig struct {
	// OnOracleError is "continue" (default) or "pause".
	OnOracleError string `json:"onOracleError" yaml:"onOracleError"`
}

// DefaultConfig returns a Config populated with the package defaults.
// Callers may modify the returned struct before passing it to New.
func DefaultConfig() *Config {
	return &Config{
		Crew:   CrewConfig{WorkerCount: 5},
		Engine: EngineConfig{OnOracleError: engine.OracleErrorContinue},
	}
}

// Validate returns an error describing invalid settings, or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Crew.WorkerCount <= 0 {
		return fmt.Errorf("crew.workers must be > 0")
	}
	switch c.Engine.OnOracleError {
	case "", engine.OracleErrorContinue, engine.OracleErrorPause:
	default:
		return fmt.Errorf("engine.onOracleError must be %q or %q", engine.OracleErrorContinue, engine.OracleErrorPause)
	}
	return nil
}
