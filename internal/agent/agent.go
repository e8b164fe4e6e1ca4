// Package agent runs a model-driven conversation turn: it replays session
// history, calls the model, executes requested function tools and persists
// the new transcript items.
package agent

import (
	"errors"
	"fmt"
)

// ModelSettings are per-agent request options passed through to the model.
type ModelSettings struct {
	// Store asks the provider to keep the response server-side. Nil leaves
	// the provider default.
	Store           *bool
	Include         []string
	Temperature     *float64
	MaxOutputTokens int
}

// Agent is a named model configuration with instructions and tools.
type Agent struct {
	Name         string
	Model        string
	Instructions string
	Tools        []Tool
	Settings     ModelSettings
}

// Validate reports configuration mistakes that would make a run fail.
func (a *Agent) Validate() error {
	if a == nil {
		return errors.New("agent is nil")
	}
	if a.Name == "" {
		return errors.New("agent name is required")
	}
	if a.Model == "" {
		return fmt.Errorf("agent %s: model is required", a.Name)
	}
	seen := make(map[string]bool, len(a.Tools))
	for _, t := range a.Tools {
		name := t.Name()
		if name == "" {
			return fmt.Errorf("agent %s: tool with empty name", a.Name)
		}
		if seen[name] {
			return fmt.Errorf("agent %s: duplicate tool %q", a.Name, name)
		}
		seen[name] = true
	}
	return nil
}
