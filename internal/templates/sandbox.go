package templates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscapesSandbox reports a string file outside the templates folder.
var ErrEscapesSandbox = errors.New("templates: path escapes sandbox")

// maxStringFileBytes caps a file-backed catalog string.
const maxStringFileBytes = 16 << 10

// Sandbox confines file-backed catalog strings to one directory tree.
// Symlinks are followed and must resolve inside the tree as well.
type Sandbox struct {
	root string
}

// NewSandbox roots a sandbox at dir, which must exist.
func NewSandbox(dir string) (*Sandbox, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("templates: sandbox root required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("templates: sandbox root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("templates: sandbox root: %w", err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("templates: sandbox root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("templates: sandbox root %q is not a directory", canonical)
	}
	return &Sandbox{root: canonical}, nil
}

// Root is the canonical sandbox directory.
func (s *Sandbox) Root() string { return s.root }

// Resolve maps name, relative to the root or absolute, to an existing path
// inside the sandbox.
func (s *Sandbox) Resolve(name string) (string, error) {
	if s == nil {
		return "", errors.New("templates: no sandbox configured")
	}
	candidate := filepath.Clean(name)
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(s.root, candidate)
	}
	// Checked before touching the filesystem so a missing file outside the
	// root still reports the escape.
	if !s.within(candidate) {
		return "", fmt.Errorf("%w: %q", ErrEscapesSandbox, name)
	}
	target, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", fmt.Errorf("templates: resolve %q: %w", name, err)
	}
	if !s.within(target) {
		return "", fmt.Errorf("%w: %q", ErrEscapesSandbox, name)
	}
	return target, nil
}

// ReadFile returns the contents of the string file name.
func (s *Sandbox) ReadFile(name string) (string, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("templates: stat %q: %w", name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("templates: %q is a directory", name)
	}
	if info.Size() > maxStringFileBytes {
		return "", fmt.Errorf("templates: %q exceeds %d bytes", name, maxStringFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("templates: read %q: %w", name, err)
	}
	return string(data), nil
}

func (s *Sandbox) within(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return rel == "." || filepath.IsLocal(rel)
}
