//go:build !unix

package runner

import "os/exec"

// Process groups are unavailable here; the direct child is all we can kill.
func setProcAttrs(cmd *exec.Cmd) {}

func killProcessTree(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
