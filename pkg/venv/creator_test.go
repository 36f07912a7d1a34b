package venv

import (
	"context"
	"strings"
	"testing"

	"github.com/esafeeds/devenv/pkg/toolchain"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	calls [][]string
	err   error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if len(args) == 1 && args[0] == "--version" {
		if strings.HasSuffix(name, "uv") {
			return []byte("uv 0.4.18 (7b55e9790 2024-10-01)\n"), nil
		}
		return []byte("Python 3.12.4\n"), nil
	}
	return nil, r.err
}

func lookPathIn(available ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, a := range available {
			if a == name {
				return "/nix/bin/" + name, nil
			}
		}
		return "", errors.Errorf("%s: not found", name)
	}
}

func TestUVCreator(t *testing.T) {
	tests := []struct {
		name     string
		opts     CreateOptions
		expected []string
	}{
		{"plain", CreateOptions{}, []string{"/bin/uv", "venv", "venv"}},
		{"python and prompt", CreateOptions{Python: "3.12", Prompt: "feeds"}, []string{"/bin/uv", "venv", "--python", "3.12", "--prompt", "feeds", "venv"}},
		{"clear", CreateOptions{Clear: true}, []string{"/bin/uv", "venv", "--clear", "venv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &recordingRunner{}
			c := &UVCreator{Tool: toolchain.Resolved{Name: "uv", Path: "/bin/uv", Version: "0.4.18"}, Runner: runner}

			require.NoError(t, c.Create(context.Background(), "venv", tt.opts))
			assert.Equal(t, [][]string{tt.expected}, runner.calls)
			assert.Equal(t, "uv", c.Name())
			assert.Equal(t, "0.4.18", c.ToolVersion())
		})
	}
}

func TestPythonCreator(t *testing.T) {
	runner := &recordingRunner{}
	c := &PythonCreator{Tool: toolchain.Resolved{Path: "/bin/python3.12", Version: "3.12.4"}, Runner: runner}

	require.NoError(t, c.Create(context.Background(), "venv", CreateOptions{Python: "3.12", Prompt: "feeds", Clear: true}))
	assert.Equal(t, [][]string{{"/bin/python3.12", "-m", "venv", "--prompt", "feeds", "--clear", "venv"}}, runner.calls)
}

func TestUVCreator_PropagatesFailure(t *testing.T) {
	runner := &recordingRunner{err: &toolchain.ExitError{Command: "uv venv venv", Stderr: "No space left on device", Code: 2}}
	c := &UVCreator{Tool: toolchain.Resolved{Path: "uv"}, Runner: runner}

	err := c.Create(context.Background(), "venv", CreateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No space left on device")
}

func TestNewToolCreator(t *testing.T) {
	resolver := toolchain.NewResolver(&recordingRunner{})

	c, err := NewToolCreator("", resolver, nil)
	require.NoError(t, err)
	assert.Equal(t, ToolUV, c.Name())

	_, err = NewToolCreator("conda", resolver, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported environment tool "conda"`)
}

func TestToolCreator_UV(t *testing.T) {
	runner := &recordingRunner{}
	resolver := toolchain.NewResolver(runner, toolchain.WithLookPath(lookPathIn("uv", "python3")))

	c, err := NewToolCreator(ToolUV, resolver, runner)
	require.NoError(t, err)
	require.NoError(t, c.Create(context.Background(), "venv", CreateOptions{}))

	assert.Equal(t, ToolUV, c.Name())
	assert.Equal(t, "0.4.18", c.ToolVersion())
	assert.Equal(t, []string{"/nix/bin/uv", "venv", "venv"}, runner.calls[len(runner.calls)-1])
}

func TestToolCreator_UVMissing(t *testing.T) {
	runner := &recordingRunner{}
	resolver := toolchain.NewResolver(runner, toolchain.WithLookPath(lookPathIn("python3")))

	c, err := NewToolCreator(ToolUV, resolver, runner)
	require.NoError(t, err)

	err = c.Create(context.Background(), "venv", CreateOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, toolchain.ErrNotFound))
	assert.Empty(t, c.ToolVersion())
}

func TestToolCreator_AutoFallsBackToPython(t *testing.T) {
	runner := &recordingRunner{}
	resolver := toolchain.NewResolver(runner, toolchain.WithLookPath(lookPathIn("python3")))

	c, err := NewToolCreator(ToolAuto, resolver, runner)
	require.NoError(t, err)
	require.NoError(t, c.Create(context.Background(), "venv", CreateOptions{}))

	assert.Equal(t, ToolPython, c.Name())
	assert.Equal(t, "3.12.4", c.ToolVersion())
	assert.Equal(t, []string{"/nix/bin/python3", "-m", "venv", "venv"}, runner.calls[len(runner.calls)-1])
}

func TestToolCreator_AutoNothingAvailable(t *testing.T) {
	runner := &recordingRunner{}
	resolver := toolchain.NewResolver(runner, toolchain.WithLookPath(lookPathIn()))

	c, err := NewToolCreator(ToolAuto, resolver, runner)
	require.NoError(t, err)

	err = c.Create(context.Background(), "venv", CreateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no environment tool available")
}

func TestToolCreator_ResolvesLazily(t *testing.T) {
	runner := &recordingRunner{}
	resolver := toolchain.NewResolver(runner, toolchain.WithLookPath(lookPathIn()))

	_, err := NewToolCreator(ToolUV, resolver, runner)
	require.NoError(t, err)
	assert.Empty(t, runner.calls)
}
