//go:build windows

// Package osutil holds the platform specific bits of running external tools:
// process groups and their termination on context cancellation.
package osutil

import (
	"os"
	"os/exec"
	"syscall"
	"time"
)

// GracefulShutdownDelay exists for API parity with unix; Windows has no
// SIGTERM so the process is killed immediately.
const GracefulShutdownDelay = 2 * time.Second

// SetProcessGroup starts the command in a new process group.
func SetProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
}

// SetProcessGroupKill terminates the main process on cancellation. Children
// may outlive it since Windows has no unix-style group signals.
func SetProcessGroupKill(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Kill)
	}
}
