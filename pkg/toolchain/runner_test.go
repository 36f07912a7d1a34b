//go:build unix

package toolchain

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_CapturesStdout(t *testing.T) {
	out, err := NewExecRunner().Run(context.Background(), "sh", "-c", "echo created; echo noise >&2")
	require.NoError(t, err)
	assert.Equal(t, "created\n", string(out))
}

func TestExecRunner_ExitError(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), "sh", "-c", "echo 'permission denied' >&2; exit 3")
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "permission denied", exitErr.Stderr)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Contains(t, err.Error(), "sh -c")
}

func TestExecRunner_WorkingDirAndEnv(t *testing.T) {
	dir := t.TempDir()
	runner := &ExecRunner{Dir: dir, Env: []string{"DEVENV_TEST=1"}}

	out, err := runner.Run(context.Background(), "/bin/sh", "-c", "echo $DEVENV_TEST")
	require.NoError(t, err)
	assert.Equal(t, "1\n", string(out))
}

func TestExecRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewExecRunner().Run(ctx, "sh", "-c", "sleep 5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
