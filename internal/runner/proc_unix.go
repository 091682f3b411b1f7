//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// setProcAttrs places the child in its own process group so a timeout
// kill also reaps any descendants the artifact spawned.
func setProcAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessTree terminates the child and everything in its process group.
func killProcessTree(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	if pgid, err := syscall.Getpgid(cmd.Process.Pid); err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		return
	}

	_ = cmd.Process.Kill()
}
