// Package matrix executes a workflow's step sequence across a set of
// independent environments: concurrently across environments, strictly
// sequentially within one. A failing step ends its own environment's run
// and never cancels another's.
package matrix

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/systemstart/gridrun/pkg/api"
	"github.com/systemstart/gridrun/pkg/execute"
)

// CommandRunner executes one command within a workspace.
// Implemented by execute.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, dir string, env []string) (*execute.Result, error)
}

// RunnerFactory builds the CommandRunner for one environment's workspace.
type RunnerFactory func(workspace string) CommandRunner

// Engine runs workflows. Zero values are usable: runs execute directly in
// Workspace without isolation, with no parallelism cap.
type Engine struct {
	Workspace   string
	Scratch     *Scratch      // per-environment workspace copies, nil to run in place
	MaxParallel int           // concurrent environments, <=0 means unlimited
	StepTimeout time.Duration // default per-step timeout, zero means none
	MaxOutput   int           // captured bytes per stream, zero for the execute default

	// NewRunner is the seam tests use to substitute command execution.
	// When nil, execute.Runner is used.
	NewRunner RunnerFactory
}

// Run executes every environment of the workflow and aggregates the runs.
// The returned summary's status is failure iff at least one run failed; an
// environment's failure is recorded in its run, never returned as an error.
func (e *Engine) Run(ctx context.Context, w *api.Workflow) (*Summary, error) {
	if w == nil {
		return nil, fmt.Errorf("workflow must be set")
	}

	summary := &Summary{
		ID:       uuid.New().String(),
		Workflow: w.Name,
		Status:   StatusSuccess,
		Runs:     make([]Run, len(w.Environments)),
		Started:  time.Now(),
	}

	baseEnv := processEnv()

	var grp errgroup.Group
	if e.MaxParallel > 0 {
		grp.SetLimit(e.MaxParallel)
	}
	for i, envCfg := range w.Environments {
		i, envCfg := i, envCfg
		grp.Go(func() error {
			summary.Runs[i] = e.runEnvironment(ctx, w, envCfg, baseEnv)
			return nil
		})
	}
	// Never returns an error: one environment's failure must not stop or
	// cancel another's run.
	_ = grp.Wait()

	summary.Finished = time.Now()
	for _, r := range summary.Runs {
		if r.Failed() {
			summary.Status = StatusFailure
			break
		}
	}

	slog.Info("workflow finished",
		"workflow", w.Name, "status", summary.Status, "environments", len(summary.Runs))
	return summary, nil
}

// runEnvironment executes the full step sequence for one environment and
// returns its finalized run record.
func (e *Engine) runEnvironment(ctx context.Context, w *api.Workflow, envCfg api.EnvironmentConfig, baseEnv map[string]string) Run {
	run := Run{
		Environment: envCfg.Name,
		Status:      StatusSuccess,
		Started:     time.Now(),
	}
	defer func() {
		run.Finished = time.Now()
	}()

	workspace := e.Workspace
	if e.Scratch != nil {
		dir, err := e.Scratch.Prepare(envCfg.Name, e.Workspace)
		if err != nil {
			slog.Error("environment preparation failed", "environment", envCfg.Name, "error", err)
			run.Status = StatusFailure
			run.Error = err.Error()
			return run
		}
		workspace = dir
	}

	runner := e.newRunner(workspace)

	baseEnv = mergeEnv(baseEnv, map[string]string{
		"GRIDRUN_WORKFLOW":    w.Name,
		"GRIDRUN_ENVIRONMENT": envCfg.Name,
		"GRIDRUN_WORKSPACE":   workspace,
	})

	// Env layering, lowest to highest: process, workflow, environment.
	// Each overlay's values are rendered before merging.
	data := renderData{Workflow: w.Name, Environment: envCfg.Name, Env: baseEnv}
	env, err := renderEnvOverlay(baseEnv, w.Env, data)
	if err != nil {
		slog.Error("workflow env rendering failed", "environment", envCfg.Name, "error", err)
		run.Status = StatusFailure
		run.Error = err.Error()
		return run
	}
	data.Env = env
	env, err = renderEnvOverlay(env, envCfg.Env, data)
	if err != nil {
		slog.Error("environment env rendering failed", "environment", envCfg.Name, "error", err)
		run.Status = StatusFailure
		run.Error = err.Error()
		return run
	}
	data.Env = env

	for _, step := range w.Steps {
		outcome := e.runStep(ctx, runner, step, env, data)
		run.Outcomes = append(run.Outcomes, outcome)

		if outcome.Status == StatusFailure {
			slog.Error("step failed",
				"workflow", w.Name, "environment", envCfg.Name, "step", step.Name,
				"exit_code", outcome.ExitCode, "error", outcome.Error)
			run.Status = StatusFailure
			break
		}
		slog.Info("step succeeded",
			"workflow", w.Name, "environment", envCfg.Name, "step", step.Name,
			"duration", outcome.Duration)
	}

	return run
}

// runStep renders and executes one step. Render and launch failures yield a
// failed outcome exactly like a non-zero exit; they carry no exit code.
func (e *Engine) runStep(ctx context.Context, runner CommandRunner, step api.StepConfig, env map[string]string, data renderData) Outcome {
	outcome := Outcome{Step: step.Name, Status: StatusFailure, ExitCode: -1}

	stepEnv, err := renderEnvOverlay(env, step.Env, data)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	stepData := data
	stepData.Env = stepEnv

	command, err := renderValue(step.Name, step.Run, stepData)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Command = command

	dir, err := renderValue(step.Name+" dir", step.Dir, stepData)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	argv, err := execute.SplitCommand(command)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	// Exactly one timeout applies per step: the step's own override when
	// set, otherwise the engine default.
	timeout := e.StepTimeout
	if step.Timeout != "" {
		// Validated at load time.
		timeout, _ = time.ParseDuration(step.Timeout)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := runner.Run(ctx, argv, dir, flattenEnv(stepEnv))
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	outcome.ExitCode = result.ExitCode
	outcome.Stdout = string(result.Stdout)
	outcome.Stderr = string(result.Stderr)
	outcome.Truncated = result.Truncated
	outcome.Duration = result.Duration
	if result.ExitCode == 0 {
		outcome.Status = StatusSuccess
	}
	return outcome
}

func (e *Engine) newRunner(workspace string) CommandRunner {
	if e.NewRunner != nil {
		return e.NewRunner(workspace)
	}
	// Timeouts are applied per step in runStep, so the runner carries none.
	return &execute.Runner{
		Workspace: workspace,
		MaxOutput: e.MaxOutput,
	}
}

// renderEnvOverlay renders each overlay value as a template and merges the
// result over base.
func renderEnvOverlay(base, overlay map[string]string, data renderData) (map[string]string, error) {
	if len(overlay) == 0 {
		return base, nil
	}
	rendered := make(map[string]string, len(overlay))
	for k, v := range overlay {
		rv, err := renderValue("env "+k, v, data)
		if err != nil {
			return nil, err
		}
		rendered[k] = rv
	}
	return mergeEnv(base, rendered), nil
}
