package exec

import (
	"context"
	"testing"

	"github.com/pluginhost/validatorctl/internal/validator"
)

type fakeRunner struct {
	gotName string
	gotArgs []string
	stdout  []byte
	stderr  []byte
	exit    int32
	err     error
}

func (f *fakeRunner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	f.gotName = name
	f.gotArgs = args
	return f.stdout, f.stderr, f.exit, f.err
}

func TestExecValidatorSuccessCollectsLogLines(t *testing.T) {
	runner := &fakeRunner{stdout: []byte("loading plugin\nrunning tests\n"), exit: 0}
	v := Validator{Runner: runner, Command: "pluginval-host", Args: []string{"--headless"}}

	var lines []string
	results, err := v.Validate(context.Background(), validator.Locator{FileOrID: "/plugins/foo.vst3"}, 5, func(s string) {
		lines = append(lines, s)
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(results) != 1 || results[0].NumFailures != 0 {
		t.Fatalf("expected one zero-failure result, got %+v", results)
	}
	if len(lines) != 2 || lines[0] != "loading plugin" || lines[1] != "running tests" {
		t.Fatalf("unexpected log lines: %+v", lines)
	}
	if runner.gotName != "pluginval-host" {
		t.Fatalf("unexpected command: %q", runner.gotName)
	}
	if len(runner.gotArgs) != 3 || runner.gotArgs[0] != "--headless" || runner.gotArgs[2] != "/plugins/foo.vst3" {
		t.Fatalf("unexpected args: %+v", runner.gotArgs)
	}
}

func TestExecValidatorNonZeroExitBecomesFailingResult(t *testing.T) {
	runner := &fakeRunner{stderr: []byte("crash detected\n"), exit: 1}
	v := Validator{Runner: runner, Command: "pluginval-host"}

	results, err := v.Validate(context.Background(), validator.Locator{FileOrID: "/plugins/bad.vst3"}, 5, func(string) {})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(results) != 1 || results[0].NumFailures != 1 {
		t.Fatalf("expected one failing result, got %+v", results)
	}
}

func TestExecValidatorRejectsDescriptorOnlyLocator(t *testing.T) {
	v := Validator{Runner: &fakeRunner{}, Command: "pluginval-host"}
	_, err := v.Validate(context.Background(), validator.Locator{Descriptor: []byte("x")}, 5, func(string) {})
	if err == nil {
		t.Fatalf("expected an error for a descriptor-only locator")
	}
}
