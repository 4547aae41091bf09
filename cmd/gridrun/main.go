package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/systemstart/gridrun/pkg/api"
	"github.com/systemstart/gridrun/pkg/logging"
	"github.com/systemstart/gridrun/pkg/matrix"
)

var version = "dev"

const (
	_ = iota
	exitRunFailed
	exitDotenvError
	exitLoadWorkflowFailed
	exitNoWorkflowsFound
	exitWorkspaceCheckFailed
	exitWorkspaceNotADirectory
	exitScratchSetupFailed
	exitTriggerCheckFailed
	exitReportWriteFailed
)

var (
	workflowFile string
	workspaceDir string
	discoverMode bool
	maxDepth     int
	eventType    string
	eventRef     string
	eventChanged string
	maxParallel  int
	stepTimeout  time.Duration
	maxOutput    int
	scratchDir   string
	keepScratch  bool
	inPlace      bool
	reportFile   string
	loggingType  string
	logLevel     string
	showVersion  bool
)

func init() {
	flag.StringVar(
		&workflowFile,
		"workflow",
		"",
		"single .grid.yaml to run (non-discovery mode)")
	flag.StringVar(
		&workspaceDir,
		"workspace",
		".",
		"workspace directory the steps run against")
	flag.BoolVar(
		&discoverMode,
		"discover",
		false,
		"discover and run every .grid.yaml under the workspace")
	flag.IntVar(
		&maxDepth,
		"max-depth",
		-1,
		"max directory recursion depth for discovery (-1 = unlimited, 0 = root only)")
	flag.StringVar(
		&eventType,
		"event",
		api.EventPush,
		"event type to match against workflow triggers")
	flag.StringVar(
		&eventRef,
		"ref",
		"",
		"git ref of the event, e.g. refs/heads/main")
	flag.StringVar(
		&eventChanged,
		"changed",
		"",
		"comma-separated repository-relative paths touched by the event")
	flag.IntVar(
		&maxParallel,
		"max-parallel",
		0,
		"max environments running concurrently (0 = unlimited)")
	flag.DurationVar(
		&stepTimeout,
		"timeout",
		0,
		"default per-step timeout (0 = none)")
	flag.IntVar(
		&maxOutput,
		"max-output",
		0,
		"captured bytes per output stream (0 = default)")
	flag.StringVar(
		&scratchDir,
		"scratch-dir",
		"",
		"parent directory for per-environment workspace copies (default: temp dir)")
	flag.BoolVar(
		&keepScratch,
		"keep-scratch",
		false,
		"keep per-environment workspace copies after the run")
	flag.BoolVar(
		&inPlace,
		"in-place",
		false,
		"run all environments directly in the workspace, without isolation")
	flag.StringVar(
		&reportFile,
		"report",
		"",
		"write a JSON report of all runs to this file")
	flag.StringVar(
		&loggingType,
		"logging-type",
		"tint",
		"logging type: json, text or tint")
	flag.StringVar(
		&logLevel,
		"log-level",
		"info",
		"logging level: debug, info, warn, error")
	flag.BoolVar(
		&showVersion,
		"version",
		false,
		"print version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	_ = logging.Initialize(loggingType, logLevel)

	includeEnv()
	checkWorkspace()

	workflows := loadWorkflows()
	engine := newEngine()

	event := matrix.Event{
		Type: eventType,
		Ref:  eventRef,
	}
	if eventChanged != "" {
		event.Changed = strings.Split(eventChanged, ",")
	}

	summaries := make([]*matrix.Summary, 0, len(workflows))
	failed := false
	for _, w := range workflows {
		summary := runWorkflow(engine, w, event)
		summaries = append(summaries, summary)
		if summary.Failed() {
			failed = true
		}
	}

	cleanupScratch(engine)
	writeReport(summaries)

	if failed {
		slog.Error("one or more workflows failed")
		os.Exit(exitRunFailed)
	}
	slog.Info("done")
}

func runWorkflow(engine *matrix.Engine, w *api.Workflow, event matrix.Event) *matrix.Summary {
	ok, err := matrix.TriggerMatches(w, event)
	if err != nil {
		slog.Error("failed to evaluate trigger", "workflow", w.FilePath, "error", err)
		exitWith(engine, exitTriggerCheckFailed)
	}
	if !ok {
		slog.Info("trigger did not match, skipping", "workflow", w.FilePath, "event", event.Type, "ref", event.Ref)
		return &matrix.Summary{Workflow: w.Name, Status: matrix.StatusSkipped}
	}

	slog.Info("executing workflow",
		"workflow", w.FilePath, "environments", len(w.Environments), "steps", len(w.Steps))
	summary, err := engine.Run(context.Background(), w)
	if err != nil {
		slog.Error("workflow failed to start", "workflow", w.FilePath, "error", err)
		exitWith(engine, exitRunFailed)
	}
	return summary
}

// exitWith removes any scratch copies before terminating on an error path.
func exitWith(engine *matrix.Engine, code int) {
	cleanupScratch(engine)
	os.Exit(code)
}

func cleanupScratch(engine *matrix.Engine) {
	if engine.Scratch != nil {
		engine.Scratch.Cleanup()
	}
}

func newEngine() *matrix.Engine {
	engine := &matrix.Engine{
		Workspace:   workspaceDir,
		MaxParallel: maxParallel,
		StepTimeout: stepTimeout,
		MaxOutput:   maxOutput,
	}

	if !inPlace {
		scratch, err := matrix.NewScratch(scratchDir, keepScratch)
		if err != nil {
			slog.Error("failed to set up scratch directory", "error", err)
			os.Exit(exitScratchSetupFailed)
		}
		engine.Scratch = scratch
	}

	return engine
}

func loadWorkflows() []*api.Workflow {
	if workflowFile != "" {
		w, err := api.LoadWorkflow(workflowFile)
		if err != nil {
			slog.Error("failed to load workflow", "filename", workflowFile, "error", err)
			os.Exit(exitLoadWorkflowFailed)
		}
		return []*api.Workflow{w}
	}

	if !discoverMode {
		slog.Error("either -workflow or -discover must be given")
		os.Exit(exitNoWorkflowsFound)
	}

	workflows, err := api.DiscoverWorkflows(workspaceDir, maxDepth)
	if err != nil {
		slog.Error("failed to discover workflows", "dir", workspaceDir, "error", err)
		os.Exit(exitLoadWorkflowFailed)
	}
	if len(workflows) == 0 {
		slog.Error("no .grid.yaml files found", "dir", workspaceDir)
		os.Exit(exitNoWorkflowsFound)
	}

	slog.Info("discovered workflows", "count", len(workflows))
	return workflows
}

func writeReport(summaries []*matrix.Summary) {
	if reportFile == "" {
		return
	}
	if err := matrix.WriteReport(summaries, reportFile); err != nil {
		slog.Error("failed to write report", "filename", reportFile, "error", err)
		os.Exit(exitReportWriteFailed)
	}
	slog.Info("report written", "filename", reportFile)
}

func includeEnv() {
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			os.Exit(exitDotenvError)
		}
		slog.Info("no .env file found")
	} else {
		slog.Info("using .env file")
	}
}

func checkWorkspace() {
	st, err := os.Stat(workspaceDir)
	if err != nil {
		slog.Error("failed to check workspace directory", "directory", workspaceDir, "error", err)
		os.Exit(exitWorkspaceCheckFailed)
	}

	if !st.IsDir() {
		slog.Error("-workspace is not a directory", "directory", workspaceDir)
		os.Exit(exitWorkspaceNotADirectory)
	}
}
