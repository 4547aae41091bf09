package api

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalWorkflow = `
environments:
  - name: linux
steps:
  - name: build
    run: make
`

func writeWorkflowAt(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, WorkflowFilename), []byte(minimalWorkflow), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverWorkflows(t *testing.T) {
	root := t.TempDir()
	writeWorkflowAt(t, root)
	writeWorkflowAt(t, filepath.Join(root, "svc", "frontend"))
	writeWorkflowAt(t, filepath.Join(root, "svc"))

	workflows, err := DiscoverWorkflows(root, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(workflows) != 3 {
		t.Fatalf("got %d workflows, want 3", len(workflows))
	}
	// Parents are sorted before children.
	if workflows[0].Dir != root {
		t.Errorf("first workflow dir = %q, want root", workflows[0].Dir)
	}
	if filepath.Base(workflows[2].Dir) != "frontend" {
		t.Errorf("last workflow dir = %q, want deepest", workflows[2].Dir)
	}
}

func TestDiscoverWorkflows_MaxDepth(t *testing.T) {
	root := t.TempDir()
	writeWorkflowAt(t, root)
	writeWorkflowAt(t, filepath.Join(root, "svc"))
	writeWorkflowAt(t, filepath.Join(root, "svc", "frontend"))

	tests := []struct {
		maxDepth int
		want     int
	}{
		{0, 1},
		{1, 2},
		{2, 3},
		{-1, 3},
	}
	for _, tt := range tests {
		workflows, err := DiscoverWorkflows(root, tt.maxDepth)
		if err != nil {
			t.Fatalf("maxDepth %d: unexpected error: %v", tt.maxDepth, err)
		}
		if len(workflows) != tt.want {
			t.Errorf("maxDepth %d: got %d workflows, want %d", tt.maxDepth, len(workflows), tt.want)
		}
	}
}

func TestDiscoverWorkflows_Empty(t *testing.T) {
	workflows, err := DiscoverWorkflows(t.TempDir(), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(workflows) != 0 {
		t.Errorf("got %d workflows, want 0", len(workflows))
	}
}

func TestDiscoverWorkflows_InvalidWorkflow(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, WorkflowFilename), []byte("name: broken\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := DiscoverWorkflows(root, -1); err == nil {
		t.Fatal("expected error for invalid workflow")
	}
}
