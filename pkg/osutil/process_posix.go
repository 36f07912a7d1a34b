//go:build unix

// Package osutil holds the platform specific bits of running external tools:
// process groups and their termination on context cancellation.
package osutil

import (
	"errors"
	"os/exec"
	"syscall"
	"time"
)

// GracefulShutdownDelay is how long a cancelled process group gets between
// SIGTERM and SIGKILL.
const GracefulShutdownDelay = 2 * time.Second

// SetProcessGroup configures the command to run in its own process group so
// that tools spawned by it (uv spawning python, jj spawning its pager) can be
// terminated together.
func SetProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// SetProcessGroupKill sets up a cancel function that sends SIGTERM to the
// whole process group and escalates to SIGKILL after GracefulShutdownDelay.
// Must be called after SetProcessGroup and before cmd.Start().
func SetProcessGroupKill(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		pgid := -cmd.Process.Pid
		if err := syscall.Kill(pgid, syscall.SIGTERM); err != nil {
			if errors.Is(err, syscall.ESRCH) {
				return nil
			}
			return err
		}
		go func() {
			time.Sleep(GracefulShutdownDelay)
			_ = syscall.Kill(pgid, syscall.SIGKILL)
		}()
		return nil
	}
}
