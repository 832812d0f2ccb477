package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newStringsDir(t *testing.T, files map[string]string) *Sandbox {
	t.Helper()
	dir := t.TempDir()
	for name, contents := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	}
	sb, err := NewSandbox(dir)
	require.NoError(t, err)
	return sb
}

func TestNewSandboxRoot(t *testing.T) {
	_, err := NewSandbox("  ")
	require.Error(t, err)

	_, err = NewSandbox(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = NewSandbox(file)
	require.ErrorContains(t, err, "not a directory")

	dir := t.TempDir()
	sb, err := NewSandbox(dir)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	require.Equal(t, want, sb.Root())
}

func TestSandboxResolve(t *testing.T) {
	sb := newStringsDir(t, map[string]string{
		"untitled.tmpl":    "Untitled",
		"de/untitled.tmpl": "Ohne Titel",
	})

	path, err := sb.Resolve("de/../de/untitled.tmpl")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(sb.Root(), "de", "untitled.tmpl"), path)

	path, err = sb.Resolve(filepath.Join(sb.Root(), "untitled.tmpl"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(sb.Root(), "untitled.tmpl"), path)

	_, err = sb.Resolve("../outside.tmpl")
	require.ErrorIs(t, err, ErrEscapesSandbox)

	_, err = sb.Resolve("/etc/passwd")
	require.ErrorIs(t, err, ErrEscapesSandbox)

	_, err = sb.Resolve("absent.tmpl")
	require.ErrorIs(t, err, os.ErrNotExist)

	var nilSandbox *Sandbox
	_, err = nilSandbox.Resolve("untitled.tmpl")
	require.Error(t, err)
}

func TestSandboxResolveRejectsSymlinkOut(t *testing.T) {
	outside := filepath.Join(t.TempDir(), "secret.tmpl")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o600))

	sb := newStringsDir(t, nil)
	if err := os.Symlink(outside, filepath.Join(sb.Root(), "link.tmpl")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := sb.Resolve("link.tmpl")
	require.ErrorIs(t, err, ErrEscapesSandbox)
}

func TestSandboxReadFile(t *testing.T) {
	sb := newStringsDir(t, map[string]string{
		"page.tmpl":  "Page {{ .Number }}",
		"huge.tmpl":  strings.Repeat("x", maxStringFileBytes+1),
		"nested/a.t": "a",
	})

	got, err := sb.ReadFile("page.tmpl")
	require.NoError(t, err)
	require.Equal(t, "Page {{ .Number }}", got)

	_, err = sb.ReadFile("huge.tmpl")
	require.ErrorContains(t, err, "exceeds")

	_, err = sb.ReadFile("nested")
	require.ErrorContains(t, err, "directory")

	_, err = sb.ReadFile("../page.tmpl")
	require.ErrorIs(t, err, ErrEscapesSandbox)
}
