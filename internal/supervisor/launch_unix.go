//go:build !windows

package supervisor

import "syscall"

// sysProcAttr places the worker in its own process group so that a
// single signal to -pid reaches the whole subtree, matching the
// teacher's server_runner_unix.go.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func killWorker(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
