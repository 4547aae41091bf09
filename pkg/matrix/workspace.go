package matrix

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Scratch hands out isolated workspace copies, one per environment.
// Environments share no mutable filesystem state: each run executes inside
// its own copy of the source tree.
type Scratch struct {
	Root string // parent directory for the per-environment copies
	Keep bool   // leave copies behind for inspection
}

// NewScratch creates a scratch area under root, or a temp directory when
// root is empty.
func NewScratch(root string, keep bool) (*Scratch, error) {
	if root == "" {
		dir, err := os.MkdirTemp("", "gridrun-")
		if err != nil {
			return nil, fmt.Errorf("creating scratch directory: %w", err)
		}
		return &Scratch{Root: dir, Keep: keep}, nil
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	return &Scratch{Root: root, Keep: keep}, nil
}

// Prepare copies the workspace tree into a fresh directory named after the
// environment and returns its path.
func (s *Scratch) Prepare(environment, workspace string) (string, error) {
	dst := filepath.Join(s.Root, environment)
	if err := os.RemoveAll(dst); err != nil {
		return "", fmt.Errorf("clearing environment directory: %w", err)
	}
	if err := copyTree(workspace, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// Cleanup removes the scratch area unless Keep is set.
func (s *Scratch) Cleanup() {
	if s.Keep {
		slog.Info("keeping scratch directory", "dir", s.Root)
		return
	}
	if err := os.RemoveAll(s.Root); err != nil {
		slog.Warn("failed to remove scratch directory", "dir", s.Root, "error", err)
	}
}

func copyTree(src, dst string) error {
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk error at %s: %w", path, err)
		}
		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return fmt.Errorf("computing relative path for %s: %w", path, relErr)
		}
		return copyEntry(dst, rel, path, d)
	})
	if err != nil {
		return fmt.Errorf("copying tree: %w", err)
	}
	return nil
}

func copyEntry(dst, rel, srcPath string, d fs.DirEntry) error {
	target := filepath.Join(dst, rel)

	if d.IsDir() {
		if err := os.MkdirAll(target, 0o750); err != nil {
			return fmt.Errorf("creating directory %s: %w", target, err)
		}
		return nil
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", srcPath, err)
	}

	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("stat %s: %w", srcPath, err)
	}

	if err := os.WriteFile(target, data, info.Mode()); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return nil
}
