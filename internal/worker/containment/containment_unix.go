//go:build !windows

// Package containment installs the worker's crash-containment policy:
// on a fatal signal the worker kills itself immediately rather than
// limping, and on supervisor pipe loss it terminates without attempting
// cleanup (§4.6). Translated from the original's setupSignalHandling /
// killWithoutMercy (original_source/Source/Validator.cpp).
package containment

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pluginhost/validatorctl/internal/logging"
)

var installOnce sync.Once

// Install registers handlers for SIGFPE, SIGILL, SIGSEGV, SIGBUS, and
// SIGABRT that deliver SIGKILL to this process immediately. Idempotent
// and safe to call once at worker startup; handlers are process-global
// and are never removed (§9 "global state").
func Install() {
	installOnce.Do(func() {
		sigs := []os.Signal{syscall.SIGFPE, syscall.SIGILL, syscall.SIGSEGV, syscall.SIGBUS, syscall.SIGABRT}
		ch := make(chan os.Signal, len(sigs))
		signal.Notify(ch, sigs...)
		go func() {
			for sig := range ch {
				logging.Errf("worker: fatal signal %v received, self-terminating", sig)
				killSelf()
			}
		}()
	})
}

// TerminateOnPipeClose force-terminates the worker when it observes its
// own pipe closed by the supervisor. No cleanup is attempted: hosting
// runtime state is not recoverable from a lost supervisor (§4.6).
func TerminateOnPipeClose() {
	logging.Errf("worker: supervisor pipe closed, self-terminating")
	killSelf()
}

func killSelf() {
	_ = syscall.Kill(os.Getpid(), syscall.SIGKILL)
}
