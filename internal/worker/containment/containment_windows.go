//go:build windows

package containment

import (
	"os"

	"github.com/pluginhost/validatorctl/internal/logging"
)

// Install is a no-op on windows: the signal set §4.6 names
// (SIGFPE/SIGILL/SIGSEGV/SIGBUS/SIGABRT) has no POSIX equivalent here,
// so the default OS behaviour on a fatal fault (abnormal termination)
// suffices, exactly as the original notes for non-macOS platforms.
func Install() {}

// TerminateOnPipeClose still force-exits on pipe loss; only the
// fatal-signal containment is platform-gated.
func TerminateOnPipeClose() {
	logging.Errf("worker: supervisor pipe closed, self-terminating")
	os.Exit(1)
}
