// Command validatorctl is the single executable that plays both halves
// of the supervisor/worker pair: a fresh copy of it is relaunched with
// the validatorUID marker argument to become the worker (§6), while an
// unmarked invocation drives the harness as the supervisor. There is no
// interactive CLI front end here by design (spec.md §1) — the flag
// surface below exists only to smoke-test the harness end-to-end.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pluginhost/validatorctl/internal/auth"
	"github.com/pluginhost/validatorctl/internal/config"
	"github.com/pluginhost/validatorctl/internal/logging"
	"github.com/pluginhost/validatorctl/internal/supervisor"
	"github.com/pluginhost/validatorctl/internal/validator"
	execvalidator "github.com/pluginhost/validatorctl/internal/validator/exec"
	"github.com/pluginhost/validatorctl/internal/worker"
)

// marker is the auth.Validator that recognizes a relaunch of this same
// binary; it carries no secret, only a fixed recognition token (§6).
var marker = auth.StaticToken{Token: supervisor.WorkerMarker}

func main() {
	logging.ConfigureRuntime()

	if isWorkerInvocation(os.Args[1:]) {
		if err := runWorker(); err != nil {
			logging.Errf("validatorctl: worker exiting: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := runSupervisor(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "validatorctl: %v\n", err)
		os.Exit(1)
	}
}

func isWorkerInvocation(args []string) bool {
	for _, a := range args {
		if marker.Validate(a) == nil {
			return true
		}
	}
	return false
}

func runWorker() error {
	fs := flag.NewFlagSet("validatorctl-worker", flag.ContinueOnError)
	execCmd := fs.String("exec", "", "external validator command to shell out to per plugin (empty: no-op pass)")
	if err := fs.Parse(filterMarker(os.Args[1:])); err != nil {
		return err
	}

	var v validator.Validator
	if *execCmd != "" {
		v = execvalidator.New(*execCmd)
	} else {
		v = passthroughValidator{}
	}

	return worker.Run(context.Background(), v)
}

// filterMarker strips the self-spawn marker token out of the argument
// list before flag parsing sees it, so it never collides with a real flag.
func filterMarker(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if marker.Validate(a) == nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

func runSupervisor(args []string) error {
	fs := flag.NewFlagSet("validatorctl", flag.ContinueOnError)
	files := fs.String("file", "", "comma-separated plugin locators to validate")
	strictness := fs.Int("strictness", 0, "strictness level (0: use the compiled-in default)")
	configPath := fs.String("config", "", "optional TOML config path")
	timeout := fs.Duration("timeout", 60*time.Second, "overall wait for the batch to complete")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*files) == "" {
		return fmt.Errorf("-file is required (comma-separated plugin locators)")
	}
	locators := strings.Split(*files, ",")
	for i := range locators {
		locators[i] = strings.TrimSpace(locators[i])
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		return err
	}

	ctrl := supervisor.New(cfg)
	done := make(chan struct{})
	var doneOnce sync.Once
	ctrl.AddListener(&cliListener{done: done, once: &doneOnce})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := ctrl.Validate(ctx, locators, *strictness); err != nil {
		_ = ctrl.Close()
		return err
	}

	select {
	case <-done:
	case <-ctx.Done():
		logging.Warnf("validatorctl: timed out waiting for batch completion")
	}
	return ctrl.Close()
}

// passthroughValidator is the worker-mode default when no external
// validator command is configured: it performs no real validation, which
// is enough to exercise the wire protocol and process lifecycle end to
// end (the actual plugin test battery is out of scope here).
type passthroughValidator struct{}

func (passthroughValidator) Validate(ctx context.Context, loc validator.Locator, strictness int, logSink func(string)) ([]validator.Result, error) {
	logSink(fmt.Sprintf("passthrough validator: no external command configured, skipping %s", loc.FileOrID))
	return nil, nil
}

type cliListener struct {
	done chan struct{}
	once *sync.Once
}

func (c *cliListener) ValidationStarted(fileOrID string) {
	logging.Infof("validation started: %s", fileOrID)
}

func (c *cliListener) LogMessage(text string) {
	logging.Infof("%s", text)
}

func (c *cliListener) ItemComplete(fileOrID string, numFailures int) {
	logging.Infof("result: %s failures=%d", fileOrID, numFailures)
}

func (c *cliListener) AllItemsComplete() {
	c.once.Do(func() { close(c.done) })
}

func (c *cliListener) ConnectionLost() {
	logging.Warnf("validatorctl: worker connection lost")
	c.once.Do(func() { close(c.done) })
}
