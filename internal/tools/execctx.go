package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ExecutionContext carries the mutable working directory that shell and
// file tools resolve paths against. The process working directory is
// never changed; a `cd` only mutates this context. One context is shared
// by every step of a plan so a directory change in step 2 is visible to
// step 3.
type ExecutionContext struct {
	mu  sync.RWMutex
	cwd string
}

// NewExecutionContext creates a context rooted at the given directory.
// An empty dir falls back to the process working directory.
func NewExecutionContext(dir string) (*ExecutionContext, error) {
	if dir == "" || dir == "." {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("working directory %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("working directory %s is not a directory", abs)
	}
	return &ExecutionContext{cwd: abs}, nil
}

// Cwd returns the current working directory.
func (e *ExecutionContext) Cwd() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cwd
}

// Chdir changes the working directory. The target must exist and be a
// directory; relative targets resolve against the current directory.
func (e *ExecutionContext) Chdir(target string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := target
	if !filepath.IsAbs(next) {
		next = filepath.Join(e.cwd, next)
	}
	next = filepath.Clean(next)

	info, err := os.Stat(next)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("cd: no such directory: %s", target)
		}
		return fmt.Errorf("cd: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cd: not a directory: %s", target)
	}

	e.cwd = next
	return nil
}

// Resolve turns a possibly relative path into an absolute one rooted at
// the context's working directory.
func (e *ExecutionContext) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(e.Cwd(), path)
}
