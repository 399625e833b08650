package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "callscope version")
	assert.Contains(t, out, "Go version")
}

func TestDemoCommand(t *testing.T) {
	out, err := runCommand(t, "demo", "--iterations", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "demo.process")
	assert.Contains(t, out, "demo.fibonacci")
	assert.Contains(t, out, "Total time:")
}

func TestDemoCommandZeroSamplingRate(t *testing.T) {
	out, err := runCommand(t, "demo", "--iterations", "2", "--sampling-rate", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "No profiling data available")
}

func TestDemoCommandExports(t *testing.T) {
	dir := t.TempDir()
	flame := filepath.Join(dir, "flame.json")
	html := filepath.Join(dir, "flame.html")
	pb := filepath.Join(dir, "profile.pb.gz")

	_, err := runCommand(t, "demo", "--iterations", "2",
		"--flamegraph", flame,
		"--flamegraph-html", html,
		"--pprof", pb)
	require.NoError(t, err)

	data, err := os.ReadFile(flame)
	require.NoError(t, err)
	assert.Contains(t, string(data), "demo.process")

	htmlData, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(htmlData), "<!DOCTYPE html>")

	f, err := os.Open(pb)
	require.NoError(t, err)
	defer f.Close()
	parsed, err := profile.Parse(f)
	require.NoError(t, err)
	assert.NoError(t, parsed.CheckValid())
}

func TestDemoCommandSortFlag(t *testing.T) {
	out, err := runCommand(t, "demo", "--iterations", "2", "--sort", "calls", "--top", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Function")
}

func TestDemoCommandMemory(t *testing.T) {
	out, err := runCommand(t, "demo", "--iterations", "2", "--memory")
	require.NoError(t, err)
	assert.Contains(t, out, "Heap growth")
}

func TestDemoCommandConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "callscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte("report:\n  top_n: 2\n"), 0o644))

	out, err := runCommand(t, "demo", "--iterations", "2", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Total time:")
}
