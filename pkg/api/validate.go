package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Validate checks the workflow configuration for errors.
func (w *Workflow) Validate() error {
	if len(w.Environments) == 0 {
		return fmt.Errorf("workflow has no environments")
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("workflow has no steps")
	}

	if err := validateEnvNames(w.Env); err != nil {
		return err
	}

	envNames := make(map[string]int)
	for i, env := range w.Environments {
		if env.Name == "" {
			return fmt.Errorf("environment %d: name is required", i)
		}
		if prev, exists := envNames[env.Name]; exists {
			return fmt.Errorf("environment %d: duplicate environment name %q (first defined at environment %d)", i, env.Name, prev)
		}
		envNames[env.Name] = i

		if err := validateEnvNames(env.Env); err != nil {
			return fmt.Errorf("environment %q: %w", env.Name, err)
		}
	}

	stepNames := make(map[string]int)
	for i, step := range w.Steps {
		if step.Name == "" {
			return fmt.Errorf("step %d: name is required", i)
		}
		if prev, exists := stepNames[step.Name]; exists {
			return fmt.Errorf("step %d: duplicate step name %q (first defined at step %d)", i, step.Name, prev)
		}
		stepNames[step.Name] = i

		if err := validateStepConfig(step); err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
	}

	if w.On != nil {
		if err := validateTrigger(w.On); err != nil {
			return fmt.Errorf("trigger: %w", err)
		}
	}

	return nil
}

func validateStepConfig(step StepConfig) error {
	if strings.TrimSpace(step.Run) == "" {
		return fmt.Errorf("run is required")
	}
	if err := validateEnvNames(step.Env); err != nil {
		return err
	}
	if step.Timeout != "" {
		if _, err := time.ParseDuration(step.Timeout); err != nil {
			return fmt.Errorf("timeout %q is not a valid duration", step.Timeout)
		}
	}
	return nil
}

func validateTrigger(t *TriggerConfig) error {
	if t.Push == nil {
		return fmt.Errorf("push config is required")
	}
	for _, p := range t.Push.Branches {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("branch pattern %q is not valid", p)
		}
	}
	for _, p := range t.Push.Paths {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("path pattern %q is not valid", p)
		}
	}
	return nil
}

func validateEnvNames(env map[string]string) error {
	for name := range env {
		if name == "" {
			return fmt.Errorf("env variable name must not be empty")
		}
		if strings.ContainsAny(name, "= \t") {
			return fmt.Errorf("env variable name %q is not valid", name)
		}
	}
	return nil
}
