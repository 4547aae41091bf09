package api

const (
	// WorkflowFilename is the default workflow file name picked up by
	// discovery mode.
	WorkflowFilename = ".grid.yaml"

	EventPush = "push"
)

// Workflow is the .grid.yaml configuration format. One workflow binds a
// shared, ordered step sequence to a set of independent environments.
type Workflow struct {
	Name         string              `yaml:"name"`
	On           *TriggerConfig      `yaml:"on,omitempty"`
	Env          map[string]string   `yaml:"env,omitempty"`
	Environments []EnvironmentConfig `yaml:"environments"`
	Steps        []StepConfig        `yaml:"steps"`

	// Set by the loader, not from YAML.
	Dir      string `yaml:"-"`
	FilePath string `yaml:"-"`
}

// TriggerConfig declares the events a workflow responds to. A workflow
// without a trigger runs unconditionally.
type TriggerConfig struct {
	Push *PushTrigger `yaml:"push,omitempty"`
}

// PushTrigger filters push events by branch name and changed paths.
// Both lists hold doublestar glob patterns; an empty list matches anything.
type PushTrigger struct {
	Branches []string `yaml:"branches,omitempty"`
	Paths    []string `yaml:"paths,omitempty"`
}

// EnvironmentConfig names one execution context. Every environment runs the
// full step sequence in its own isolated workspace copy; its env overlays
// the workflow-level env.
type EnvironmentConfig struct {
	Name string            `yaml:"name"`
	Env  map[string]string `yaml:"env,omitempty"`
}

// StepConfig defines a single named command within the shared sequence.
type StepConfig struct {
	Name    string            `yaml:"name"`
	Run     string            `yaml:"run"`
	Env     map[string]string `yaml:"env,omitempty"`
	Dir     string            `yaml:"dir,omitempty"`
	Timeout string            `yaml:"timeout,omitempty"`
}
