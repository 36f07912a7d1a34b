package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/esafeeds/devenv/pkg/logger"
	"github.com/esafeeds/devenv/pkg/osutil"
	"github.com/pkg/errors"
)

// Runner executes an external command and returns its standard output
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExitError is returned when a command ran but exited unsuccessfully
type ExitError struct {
	Command string
	Stderr  string
	Code    int
	Err     error
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("`%s` failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("`%s` failed: %v: %s", e.Command, e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands as child processes in their own process group.
// Cancelling the context terminates the whole group.
type ExecRunner struct {
	// Dir is the working directory; empty means the current directory
	Dir string
	// Env is the child environment; nil inherits the current process environment
	Env []string
}

// NewExecRunner returns an ExecRunner working in the current directory
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command, capturing stdout and stderr separately
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Env = r.Env
	osutil.SetProcessGroup(cmd)
	osutil.SetProcessGroupKill(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	commandLine := strings.Join(append([]string{name}, args...), " ")
	logger.G(ctx).WithField("command", commandLine).Debug("running command")

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrapf(ctxErr, "`%s` interrupted", commandLine)
		}
		exitErr := &ExitError{
			Command: commandLine,
			Stderr:  strings.TrimSpace(stderr.String()),
			Code:    -1,
			Err:     err,
		}
		var execErr *exec.ExitError
		if errors.As(err, &execErr) {
			exitErr.Code = execErr.ExitCode()
		}
		return stdout.Bytes(), exitErr
	}

	return stdout.Bytes(), nil
}
