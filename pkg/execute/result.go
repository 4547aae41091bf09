package execute

import "time"

// Result holds the observed termination state of one command.
type Result struct {
	ExitCode  int           // process exit code, zero on success
	Stdout    []byte        // captured stdout (may be truncated)
	Stderr    []byte        // captured stderr (may be truncated)
	Truncated bool          // true if either stream exceeded the size cap
	Duration  time.Duration // wall-clock time from start to termination
}
