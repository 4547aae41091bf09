package matrix

import "time"

// Status classifies a step outcome, a run, or a whole workflow execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	// StatusSkipped marks a workflow whose trigger did not match the event.
	StatusSkipped Status = "skipped"
)

// Outcome records one completed step of one environment's run.
type Outcome struct {
	Step      string        `json:"step"`
	Command   string        `json:"command"`
	Status    Status        `json:"status"`
	ExitCode  int           `json:"exit_code"`
	Stdout    string        `json:"stdout,omitempty"`
	Stderr    string        `json:"stderr,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	Duration  time.Duration `json:"duration"`
	// Error is set when the step never produced an exit code: the command
	// could not be launched or its template failed to render.
	Error string `json:"error,omitempty"`
}

// Run is the execution record of one environment's step sequence. Outcomes
// are appended one per completed step and stop at the first failure; a run
// is never mutated after Finished is set.
type Run struct {
	Environment string    `json:"environment"`
	Status      Status    `json:"status"`
	Outcomes    []Outcome `json:"outcomes"`
	Started     time.Time `json:"started"`
	Finished    time.Time `json:"finished"`
	// Error is set when the environment itself could not be prepared and
	// no step ran at all.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the run ended on a failing step.
func (r *Run) Failed() bool { return r.Status == StatusFailure }

// Summary aggregates the runs of one workflow execution. Status is failure
// if and only if at least one run failed.
type Summary struct {
	ID       string    `json:"id"`
	Workflow string    `json:"workflow"`
	Status   Status    `json:"status"`
	Runs     []Run     `json:"runs"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Failed reports whether any environment's run failed.
func (s *Summary) Failed() bool { return s.Status == StatusFailure }
