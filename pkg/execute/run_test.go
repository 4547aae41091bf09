package execute

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
		wantErr bool
	}{
		{"simple", "make build", []string{"make", "build"}, false},
		{"quoted argument", `sh -c "echo hello"`, []string{"sh", "-c", "echo hello"}, false},
		{"single quotes", "grep 'two words' file.txt", []string{"grep", "two words", "file.txt"}, false},
		{"empty", "", nil, true},
		{"whitespace only", "   ", nil, true},
		{"unterminated quote", `echo "oops`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitCommand(tt.command)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitCommand(%q) error = %v, wantErr = %v", tt.command, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("SplitCommand(%q) = %v, want %v", tt.command, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("argv[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRun_CapturesOutput(t *testing.T) {
	r := &Runner{Workspace: t.TempDir()}

	result, err := r.Run(context.Background(), []string{"sh", "-c", "echo out; echo err >&2"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	if got := strings.TrimSpace(string(result.Stdout)); got != "out" {
		t.Errorf("stdout = %q, want %q", got, "out")
	}
	if got := strings.TrimSpace(string(result.Stderr)); got != "err" {
		t.Errorf("stderr = %q, want %q", got, "err")
	}
	if result.Truncated {
		t.Error("output marked truncated")
	}
	if result.Duration <= 0 {
		t.Error("duration not recorded")
	}
}

func TestRun_NonZeroExitIsNotAnError(t *testing.T) {
	r := &Runner{Workspace: t.TempDir()}

	result, err := r.Run(context.Background(), []string{"sh", "-c", "exit 3"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
}

func TestRun_MissingBinary(t *testing.T) {
	r := &Runner{Workspace: t.TempDir()}

	_, err := r.Run(context.Background(), []string{"definitely-not-a-binary-4f1a"}, "", nil)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !strings.Contains(err.Error(), "executing") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRun_EmptyArgv(t *testing.T) {
	r := &Runner{Workspace: t.TempDir()}
	if _, err := r.Run(context.Background(), nil, "", nil); err == nil {
		t.Fatal("expected error for empty argv")
	}
}

func TestRun_EnvPassthrough(t *testing.T) {
	r := &Runner{Workspace: t.TempDir()}

	result, err := r.Run(context.Background(),
		[]string{"sh", "-c", "echo $GREETING"}, "",
		[]string{"PATH=/usr/bin:/bin", "GREETING=hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(string(result.Stdout)); got != "hello" {
		t.Errorf("stdout = %q, want %q", got, "hello")
	}
}

func TestRun_Truncation(t *testing.T) {
	r := &Runner{Workspace: t.TempDir(), MaxOutput: 16}

	result, err := r.Run(context.Background(),
		[]string{"sh", "-c", "head -c 1024 /dev/zero | tr '\\0' 'x'"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Truncated {
		t.Error("output not marked truncated")
	}
	if len(result.Stdout) != 16 {
		t.Errorf("stdout length = %d, want 16", len(result.Stdout))
	}
}

func TestRun_Timeout(t *testing.T) {
	r := &Runner{Workspace: t.TempDir(), Timeout: 50 * time.Millisecond}

	result, err := r.Run(context.Background(), []string{"sleep", "10"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode == 0 {
		t.Error("timed-out command reported success")
	}
}

func TestRun_DirWithinWorkspace(t *testing.T) {
	workspace := t.TempDir()
	r := &Runner{Workspace: workspace}

	tests := []struct {
		name    string
		dir     string
		wantErr bool
	}{
		{"empty dir", "", false},
		{"relative subdir", "sub", false},
		{"dot", ".", false},
		{"escape via dotdot", "../outside", true},
		{"absolute outside", "/tmp", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.resolveDir(tt.dir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveDir(%q) error = %v, wantErr = %v", tt.dir, err, tt.wantErr)
			}
			if err == nil && !strings.HasPrefix(got, workspace) {
				t.Errorf("resolveDir(%q) = %q, outside workspace %q", tt.dir, got, workspace)
			}
		})
	}
}

func TestRun_RunsInResolvedDir(t *testing.T) {
	workspace := t.TempDir()
	r := &Runner{Workspace: workspace}

	result, err := r.Run(context.Background(), []string{"pwd"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.TrimSpace(string(result.Stdout))
	if got != workspace {
		// MacOS tempdirs resolve through /private; compare suffixes.
		if !strings.HasSuffix(got, workspace) {
			t.Errorf("pwd = %q, want %q", got, workspace)
		}
	}
}
