// Package exec adapts an external command-line plugin validator into
// validator.Validator, for driving the harness against a real validation
// executable instead of an in-memory fake (spec.md's Validator boundary
// is explicitly external; this is one concrete way to cross it).
package exec

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/pluginhost/validatorctl/internal/tools"
	"github.com/pluginhost/validatorctl/internal/validator"
)

// Validator shells out to Command for every locator, appending the
// locator's FileOrID as the final argument. Its stdout is split into
// lines and forwarded to the logSink; a nonzero exit code becomes a
// single failing Result rather than an error, since an external plugin
// test battery failing is an expected outcome, not a harness fault.
type Validator struct {
	Runner  tools.CommandRunner
	Command string
	Args    []string
}

// New returns a Validator backed by the local host's os/exec, the
// default runner for real (non-test) use.
func New(command string, args ...string) Validator {
	return Validator{Runner: tools.ExecRunner{}, Command: command, Args: args}
}

func (v Validator) Validate(ctx context.Context, loc validator.Locator, strictness int, logSink func(string)) ([]validator.Result, error) {
	if loc.FileOrID == "" {
		return nil, fmt.Errorf("exec validator: locator has no file path, descriptor-only locators are not supported")
	}

	args := append(append([]string(nil), v.Args...), fmt.Sprintf("--strictness=%d", strictness), loc.FileOrID)
	stdout, stderr, exitCode, err := v.Runner.Run(v.Command, args...)
	if err != nil && exitCode == 0 {
		return nil, fmt.Errorf("exec validator: %w", err)
	}

	emitLines(stdout, logSink)
	emitLines(stderr, logSink)

	if exitCode == 0 {
		return []validator.Result{{Name: "exit status", NumFailures: 0}}, nil
	}
	return []validator.Result{{Name: fmt.Sprintf("exit status %d", exitCode), NumFailures: 1}}, nil
}

func emitLines(out []byte, logSink func(string)) {
	if len(out) == 0 {
		return
	}
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		logSink(scanner.Text())
	}
}
